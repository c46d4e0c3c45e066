package harness

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/datamod/internal/config"
	"github.com/roach88/datamod/internal/datamodule"
)

// Scenario defines a module conformance scenario: one module driven
// through a sequence of trigger calls against scripted services, followed
// by assertions over the dispatched events and the final state.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Module declares the module under test.
	Module config.ModuleSpec `yaml:"module"`

	// Start is the manual clock's initial time (RFC 3339). Defaults to
	// testutil.Epoch.
	Start string `yaml:"start,omitempty"`

	// Services scripts the responses of each verb, consumed in order.
	// Verbs with no entry still exist but fail every call.
	Services map[string][]ScriptedResponse `yaml:"services,omitempty"`

	// Steps drive the module.
	Steps []Step `yaml:"steps"`

	// Assertions validate the trace, the service calls and the final state.
	// Supported types: trace_contains, trace_order, trace_count,
	// final_state, view, service_calls
	Assertions []Assertion `yaml:"assertions"`
}

// ScriptedResponse is one scripted service outcome.
type ScriptedResponse struct {
	// Value is returned on success.
	Value any `yaml:"value,omitempty"`

	// Error fails the call with this message when non-empty.
	Error string `yaml:"error,omitempty"`
}

// Step is one scenario action. Exactly one of Call, Dispatch and Advance
// is set.
type Step struct {
	// Call runs the named trigger ("read", "readIfNeeded", "create",
	// "update", "delete") through the engine.
	Call string `yaml:"call,omitempty"`

	// Args are the trigger arguments.
	Args []any `yaml:"args,omitempty"`

	// Expect checks the trigger's outcome. Without it the call must succeed.
	Expect *ExpectClause `yaml:"expect,omitempty"`

	// Dispatch sends a raw event.
	Dispatch *EventStep `yaml:"dispatch,omitempty"`

	// Advance moves the manual clock forward by a Go duration.
	Advance string `yaml:"advance,omitempty"`
}

// EventStep is a raw event. Type may be a canonical type or a local name
// registered by the module (e.g. "readStart").
type EventStep struct {
	Type    string `yaml:"type"`
	Payload any    `yaml:"payload,omitempty"`
}

// ExpectClause specifies the expected trigger outcome.
type ExpectClause struct {
	// Error is a substring of the expected error. Empty means success.
	Error string `yaml:"error,omitempty"`

	// Value is the expected resolved value. Nil skips the check.
	Value any `yaml:"value,omitempty"`
}

// Assertion validates the trace, service calls or final state.
type Assertion struct {
	// Type specifies the assertion type:
	// - "trace_contains": an event with the type (and payload, if set) was dispatched
	// - "trace_order": events appear in this order
	// - "trace_count": an event type appears exactly Count times
	// - "final_state": the state snapshot contains Expect's fields
	// - "view": a view evaluates to Expect
	// - "service_calls": Verb's service was called exactly Count times
	Type string `yaml:"type"`

	// Event is the event type (trace_contains, trace_count).
	Event string `yaml:"event,omitempty"`

	// Payload is the expected event payload (trace_contains). Objects are
	// matched as subsets.
	Payload any `yaml:"payload,omitempty"`

	// Events is the expected event order (trace_order).
	Events []string `yaml:"events,omitempty"`

	// Count is the expected number of occurrences (trace_count, service_calls).
	Count int `yaml:"count,omitempty"`

	// View names the view to evaluate (view).
	View string `yaml:"view,omitempty"`

	// Verb names the service (service_calls).
	Verb string `yaml:"verb,omitempty"`

	// Expect contains the expected state fields (final_state, subset match)
	// or view value (view).
	Expect any `yaml:"expect,omitempty"`
}

// Assertion type constants.
const (
	AssertTraceContains = "trace_contains"
	AssertTraceOrder    = "trace_order"
	AssertTraceCount    = "trace_count"
	AssertFinalState    = "final_state"
	AssertView          = "view"
	AssertServiceCalls  = "service_calls"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if errs := config.Validate(&config.File{Modules: []config.ModuleSpec{s.Module}}); len(errs) > 0 {
		return fmt.Errorf("module: %w", errs[0])
	}

	if s.Start != "" {
		if _, err := time.Parse(time.RFC3339, s.Start); err != nil {
			return fmt.Errorf("start: %w", err)
		}
	}

	for verb := range s.Services {
		if _, ok := datamodule.ParseVerb(verb); !ok {
			return fmt.Errorf("services: unknown verb %q", verb)
		}
	}

	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	for i, step := range s.Steps {
		if err := validateStep(i, &step); err != nil {
			return err
		}
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

func validateStep(index int, step *Step) error {
	set := 0
	if step.Call != "" {
		set++
	}
	if step.Dispatch != nil {
		set++
	}
	if step.Advance != "" {
		set++
	}
	if set != 1 {
		return fmt.Errorf("steps[%d]: exactly one of call, dispatch, advance is required", index)
	}

	if step.Dispatch != nil && step.Dispatch.Type == "" {
		return fmt.Errorf("steps[%d].dispatch: type is required", index)
	}
	if step.Advance != "" {
		d, err := time.ParseDuration(step.Advance)
		if err != nil {
			return fmt.Errorf("steps[%d].advance: %w", index, err)
		}
		if d < 0 {
			return fmt.Errorf("steps[%d].advance: must not be negative", index)
		}
	}
	if step.Call == "" && (step.Expect != nil || len(step.Args) > 0) {
		return fmt.Errorf("steps[%d]: args and expect apply only to call", index)
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertTraceContains:
		if a.Event == "" {
			return fmt.Errorf("assertions[%d]: event is required for trace_contains", index)
		}
	case AssertTraceOrder:
		if len(a.Events) == 0 {
			return fmt.Errorf("assertions[%d]: events list is required for trace_order", index)
		}
	case AssertTraceCount:
		if a.Event == "" {
			return fmt.Errorf("assertions[%d]: event is required for trace_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	case AssertFinalState:
		expect, ok := a.Expect.(map[string]any)
		if !ok || len(expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect object is required for final_state", index)
		}
	case AssertView:
		if a.View == "" {
			return fmt.Errorf("assertions[%d]: view is required for view", index)
		}
	case AssertServiceCalls:
		if _, ok := datamodule.ParseVerb(a.Verb); !ok {
			return fmt.Errorf("assertions[%d]: unknown verb %q for service_calls", index, a.Verb)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for service_calls", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
