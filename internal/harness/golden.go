package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/datamod/internal/ir"
)

// TraceSnapshot captures the observable outcome of a scenario execution:
// the dispatched events, the service calls and the final state.
// All fields use canonical JSON serialization for deterministic comparison.
type TraceSnapshot struct {
	ScenarioName string
	Trace        []TraceEvent
	Calls        []CallRecord
	State        ir.IRObject
}

// Canonical renders the snapshot as canonical JSON.
func (s *TraceSnapshot) Canonical() ([]byte, error) {
	return ir.MarshalCanonical(s.toIR())
}

func (s *TraceSnapshot) toIR() ir.IRObject {
	trace := make(ir.IRArray, len(s.Trace))
	for i, event := range s.Trace {
		obj := ir.Obj(
			ir.O("seq", ir.IRInt(event.Seq)),
			ir.O("type", ir.IRString(event.Type)),
		)
		if event.Payload != nil {
			obj["payload"] = event.Payload
		}
		trace[i] = obj
	}

	calls := make(ir.IRArray, len(s.Calls))
	for i, c := range s.Calls {
		obj := ir.Obj(ir.O("verb", ir.IRString(c.Verb)))
		if c.Arg != nil {
			obj["arg"] = c.Arg
		}
		calls[i] = obj
	}

	state := s.State
	if state == nil {
		state = ir.IRObject{}
	}

	return ir.Obj(
		ir.O("scenario_name", ir.IRString(s.ScenarioName)),
		ir.O("trace", trace),
		ir.O("calls", calls),
		ir.O("state", state),
	)
}

// RunWithGolden executes a scenario and compares its snapshot against a
// golden file stored in testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if the snapshot doesn't match.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}

	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares the given result against a golden file without
// re-running the scenario.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	snapshot := TraceSnapshot{
		ScenarioName: scenarioName,
		Trace:        result.Trace,
		Calls:        result.Calls,
		State:        result.State,
	}
	data, err := snapshot.Canonical()
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)

	return nil
}
