// Package datamodule generates collection-state modules: a bundle of views,
// reducers and triggers that keeps a local copy of a remote collection in
// sync through read, create, update and delete calls.
//
// # Lifecycle
//
// Every configured verb gets three event types and a trigger:
//
//	idle --trigger--> <verb>Start --service ok--> <verb>Success --> idle
//	                              --service err-> <verb>Error   --> idle
//
// Start sets the busy flag (IsLoading for read, IsModifying for writes) and
// clears IsError. Success clears the busy flag and updates Data and
// LastUpdated. Error clears the busy flag and sets IsError; a failed read
// also resets Data to the initial collection, a failed write keeps it.
//
// Writes are pessimistic: Data changes only after the service confirms.
//
// # Representation
//
// Data is either an ordered list of records or a map from id to record. The
// kind is fixed by the shape of the initial data and never changes; read
// payloads of the other shape are converted on arrival.
//
// # Staleness
//
// ReadIfNeeded consults ShouldFetch against the current state before
// dispatching anything. Busy modules never fetch; never-loaded empty modules
// always fetch; otherwise a fetch happens once the refresh window elapses.
//
// # Concurrency
//
// Reducers are pure and run inside whatever runtime dispatches events.
// Triggers are not de-duplicated: callers must not run overlapping writes
// against the same module.
//
// The package performs no logging. Service errors are returned unmodified.
package datamodule
