// Package ir provides the record value model shared by every datamod package.
//
// Records flowing between services and module state are IRValues: a sealed
// set of JSON-shaped types (null, string, int, float, bool, array, object).
// Keeping records in a closed type set lets merge logic compare ids
// structurally and lets traces serialize deterministically.
//
// ir imports nothing internal. All other internal packages may import it.
//
// Key design constraints:
//   - Integers decode as IRInt, never as float, so ids survive round trips
//   - Object key order is RFC 8785 (UTF-16 code units) wherever order is observable
//   - Values are treated as immutable once built; helpers return copies
package ir
