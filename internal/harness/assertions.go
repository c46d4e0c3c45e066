package harness

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/roach88/datamod/internal/datamodule"
	"github.com/roach88/datamod/internal/derive"
	"github.com/roach88/datamod/internal/ir"
	"github.com/roach88/datamod/internal/module"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, event := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %s", event.Seq, event.Type)
			if event.Payload != nil {
				fmt.Fprintf(&buf, " %s", describe(event.Payload))
			}
			buf.WriteByte('\n')
		}
	}

	return buf.String()
}

// AssertionContext provides the module and final root tree for state and
// view assertions.
type AssertionContext struct {
	Module *datamodule.Module
	Root   module.Tree
}

// resolve maps a local event name to its canonical type when a module is
// available.
func (a *AssertionContext) resolve(name string) string {
	if a == nil || a.Module == nil {
		return name
	}
	return resolveEventType(a.Module, name)
}

// assertTraceContains checks if the trace contains an event of the given
// type whose payload matches (subset match for objects).
func assertTraceContains(trace []TraceEvent, assertion Assertion, actx *AssertionContext) error {
	eventType := actx.resolve(assertion.Event)
	var want ir.IRValue
	if assertion.Payload != nil {
		v, err := ir.FromGo(assertion.Payload)
		if err != nil {
			return fmt.Errorf("trace_contains: payload: %w", err)
		}
		want = v
	}

	for _, event := range trace {
		if event.Type != eventType {
			continue
		}
		if want == nil || matchValue(event.Payload, want) {
			return nil
		}
	}

	expected := eventType
	if want != nil {
		expected += " with payload " + describe(want)
	}
	return &AssertionError{
		Type:     AssertTraceContains,
		Expected: expected,
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

// assertTraceOrder checks if events appear in the specified order.
// Events don't need to be consecutive (intervening events are allowed).
func assertTraceOrder(trace []TraceEvent, assertion Assertion, actx *AssertionContext) error {
	expected := make([]string, len(assertion.Events))
	for i, name := range assertion.Events {
		expected[i] = actx.resolve(name)
	}

	// Match each expected event after the previous match, so repeated
	// types are checked occurrence by occurrence.
	pos := 0
	for _, want := range expected {
		found := false
		for pos < len(trace) {
			pos++
			if trace[pos-1].Type == want {
				found = true
				break
			}
		}
		if !found {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("events in order: %v", expected),
				Actual:   fmt.Sprintf("%s not found after position %d", want, pos),
				Trace:    trace,
			}
		}
	}

	return nil
}

// assertTraceCount checks if the event type appears exactly the specified
// number of times.
func assertTraceCount(trace []TraceEvent, assertion Assertion, actx *AssertionContext) error {
	eventType := actx.resolve(assertion.Event)
	count := 0
	for _, event := range trace {
		if event.Type == eventType {
			count++
		}
	}

	if count != assertion.Count {
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%d occurrences of %s", assertion.Count, eventType),
			Actual:   fmt.Sprintf("%d occurrences", count),
			Trace:    trace,
		}
	}

	return nil
}

// assertFinalState checks each expected field against the final state
// snapshot. Only the fields listed are checked; each must match exactly.
func assertFinalState(state ir.IRObject, assertion Assertion) error {
	raw, err := ir.FromGo(assertion.Expect)
	if err != nil {
		return fmt.Errorf("final_state: expect: %w", err)
	}
	expect, ok := raw.(ir.IRObject)
	if !ok {
		return fmt.Errorf("final_state: expect must be an object, got %s", ir.KindOf(raw))
	}

	for _, key := range expect.SortedKeys() {
		actual, exists := state[key]
		if !exists {
			return &AssertionError{
				Type:     AssertFinalState,
				Expected: fmt.Sprintf("field %q to exist", key),
				Actual:   fmt.Sprintf("fields present: %v", state.SortedKeys()),
			}
		}
		if !ir.Equal(expect[key], actual) {
			return &AssertionError{
				Type:     AssertFinalState,
				Expected: fmt.Sprintf("field %q = %s", key, describe(expect[key])),
				Actual:   fmt.Sprintf("field %q = %s", key, describe(actual)),
			}
		}
	}

	return nil
}

// assertView evaluates a view against the final root and compares it with
// the expected value.
func assertView(actx *AssertionContext, assertion Assertion) error {
	if actx == nil || actx.Module == nil {
		return fmt.Errorf("view: requires a module")
	}
	want, err := ir.FromGo(assertion.Expect)
	if err != nil {
		return fmt.Errorf("view: expect: %w", err)
	}

	got, err := ViewValue(actx.Module, assertion.View, actx.Root)
	if err != nil {
		return &AssertionError{
			Type:     AssertView,
			Expected: fmt.Sprintf("view %q = %s", assertion.View, describe(want)),
			Actual:   err.Error(),
		}
	}
	if !ir.Equal(want, got) {
		return &AssertionError{
			Type:     AssertView,
			Expected: fmt.Sprintf("view %q = %s", assertion.View, describe(want)),
			Actual:   fmt.Sprintf("view %q = %s", assertion.View, describe(got)),
		}
	}
	return nil
}

// assertServiceCalls checks how many times a verb's service was called.
func assertServiceCalls(calls []CallRecord, assertion Assertion) error {
	count := 0
	for _, c := range calls {
		if c.Verb == assertion.Verb {
			count++
		}
	}
	if count != assertion.Count {
		return &AssertionError{
			Type:     AssertServiceCalls,
			Expected: fmt.Sprintf("%d %s calls", assertion.Count, assertion.Verb),
			Actual:   fmt.Sprintf("%d calls", count),
		}
	}
	return nil
}

// ViewValue evaluates view name of m against root as an IRValue. Derived
// expression views and the generated views are both supported.
func ViewValue(m *datamodule.Module, name string, root module.Tree) (ir.IRValue, error) {
	view, ok := m.View(name)
	if !ok {
		return nil, fmt.Errorf("view %q not registered", name)
	}
	if v, err := derive.Eval(m, name, root); !errors.Is(err, derive.ErrNotDerived) {
		return v, err
	}

	switch v := view(root).(type) {
	case datamodule.Collection:
		return v.Value(), nil
	case bool:
		return ir.IRBool(v), nil
	case time.Time:
		if v.IsZero() {
			return ir.IRInt(0), nil
		}
		return ir.IRInt(v.UnixMilli()), nil
	case ir.IRValue:
		return v, nil
	default:
		return nil, fmt.Errorf("view %q: unsupported value %T", name, v)
	}
}

// matchValue compares actual with expected. Objects in expected match any
// actual object holding at least their fields; everything else must be equal.
func matchValue(actual, expected ir.IRValue) bool {
	want, ok := expected.(ir.IRObject)
	if !ok {
		return ir.Equal(actual, expected)
	}
	got, ok := actual.(ir.IRObject)
	if !ok {
		return false
	}
	for key, wantVal := range want {
		gotVal, exists := got[key]
		if !exists || !matchValue(gotVal, wantVal) {
			return false
		}
	}
	return true
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
// The actx parameter provides the module for view assertions and event
// name resolution; it may be nil for trace-only assertions.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errs []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertTraceContains:
			err = assertTraceContains(result.Trace, assertion, actx)
		case AssertTraceOrder:
			err = assertTraceOrder(result.Trace, assertion, actx)
		case AssertTraceCount:
			err = assertTraceCount(result.Trace, assertion, actx)
		case AssertFinalState:
			err = assertFinalState(result.State, assertion)
		case AssertView:
			err = assertView(actx, assertion)
		case AssertServiceCalls:
			err = assertServiceCalls(result.Calls, assertion)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errs = append(errs, err.Error())
		}
	}

	return errs
}
