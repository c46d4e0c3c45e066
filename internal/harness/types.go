package harness

import "github.com/roach88/datamod/internal/ir"

// TraceEvent is one dispatched event as observed by the engine's change
// stream.
type TraceEvent struct {
	Seq     int64      `json:"seq"`
	Type    string     `json:"type"`
	Payload ir.IRValue `json:"payload,omitempty"`
}

// CallRecord is one service invocation.
type CallRecord struct {
	Verb string     `json:"verb"`
	Arg  ir.IRValue `json:"arg,omitempty"`
}

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if every step expectation and assertion held.
	Pass bool `json:"pass"`

	// Trace contains every dispatched event in seq order.
	Trace []TraceEvent `json:"trace"`

	// Calls contains every service invocation in order.
	Calls []CallRecord `json:"calls"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// State is the module's final state snapshot.
	State ir.IRObject `json:"state,omitempty"`
}

// NewResult creates a new passing result.
// Used as the starting point for test execution.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Calls:  []CallRecord{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddTrace appends a dispatched event to the trace.
func (r *Result) AddTrace(seq int64, eventType string, payload ir.IRValue) {
	r.Trace = append(r.Trace, TraceEvent{Seq: seq, Type: eventType, Payload: payload})
}
