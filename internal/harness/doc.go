// Package harness runs conformance scenarios against generated collection
// modules.
//
// A scenario declares one module, scripts the responses of its services,
// drives it through trigger calls, raw dispatches and clock advances, and
// asserts on the resulting event trace, service calls and final state.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: users_cold_start
//	description: "A never-loaded module fetches once and then stays fresh"
//	module:
//	  key: users
//	  refreshTime: 60s
//	services:
//	  read:
//	    - value: [{id: 1, name: ada}]
//	  create:
//	    - error: "conflict"
//	steps:
//	  - call: readIfNeeded
//	  - advance: 30s
//	  - call: readIfNeeded
//	  - call: create
//	    args: [{id: 2, name: bob}]
//	    expect:
//	      error: conflict
//	assertions:
//	  - type: trace_order
//	    events: [readStart, readSuccess, createStart, createError]
//	  - type: service_calls
//	    verb: read
//	    count: 1
//	  - type: final_state
//	    expect: {isLoaded: true, isError: true}
//
// Event names in steps and assertions may be local ("readStart") or
// canonical ("USERS/READ_START").
//
// # Assertion Types
//
//   - trace_contains: an event of the type (with a matching payload) was dispatched
//   - trace_order: events appear in the given order
//   - trace_count: an event type appears exactly N times
//   - final_state: the state snapshot holds the given field values
//   - view: a generated or derived view evaluates to a value
//   - service_calls: a verb's service was called exactly N times
//
// # Deterministic Testing
//
// Every scenario runs on a fresh engine with a manual clock starting at
// testutil.Epoch (or the scenario's start time), so traces and
// lastUpdated stamps are identical across runs and suitable for golden
// file comparison.
package harness
