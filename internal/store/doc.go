// Package store provides SQLite-backed storage for collection records.
//
// It is the durable peer behind the REST server and the SQL service
// adapter. Each record lives in one row of the records table:
//
//   - collection: the collection name (e.g. "users")
//   - id: the record's key, as produced by ir.KeyOf on its id field
//   - body: the whole record as canonical JSON
//   - seq: insertion order within the database
//
// # Ordering
//
// List results are ordered by seq ASC, id ASC COLLATE BINARY, so a
// collection reads back in creation order. Replace keeps a record's seq.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
