// Package module provides the registry substrate every generated data module
// is built on.
//
// A Container holds a module's configuration, its initial state value, and
// three registries:
//   - views: named, memoized projections of the root state tree
//   - triggers: named operations that drive a lifecycle through a Thunk
//   - reducers: a dispatch table from event type to state-transition handler
//
// The container is also the module's index reducer. Reduce looks the event
// type up in the dispatch table and returns the prior state unchanged when no
// handler is registered. Unknown events are no-ops.
//
// # State Tree
//
// The root state is a Tree (map[string]any). Each module owns the value at
// its dot-separated path. ModuleState never returns a missing value: any
// absent segment, nil leaf, or leaf of the wrong type resolves to the
// container's initial state.
//
// # Event Types
//
// Event types are namespaced by the module prefix:
//
//	DefaultPrefix("userProfiles")             // "USER_PROFILES"
//	EventTypeName("USER_PROFILES", "readStart") // "USER_PROFILES/READ_START"
//
// # Concurrency
//
// Registration happens while a module is being built and is not synchronized.
// Once built, views, reducers and lookups are safe for concurrent use.
package module
