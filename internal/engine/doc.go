// Package engine is the dispatch runtime that hosts data modules.
//
// The engine owns the root state tree. Modules register as slices at
// dot-separated paths and declare the event types they handle. Dispatch
// routes each event to the slice that owns its type, rebuilds the tree
// copy-on-write along that slice's path, and stamps the change with a
// logical sequence number.
//
// ARCHITECTURE:
//
// Synchronous Reduction:
// Dispatch applies the reducer before it returns, so a thunk that dispatches
// and then reads state always sees its own event. Dispatches from concurrent
// thunks are serialized by a mutex; each produces one new tree.
//
// Single-Writer Notification Loop:
// Every dispatch enqueues a Change. Run drains the queue on one goroutine
// and hands each change to the subscribed listeners in seq order. Listener
// failures are logged and do not stop the loop.
//
// Old trees are never modified. A tree returned by State stays valid after
// later dispatches.
package engine
