package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/roach88/datamod/internal/config"
	"github.com/roach88/datamod/internal/datamodule"
	"github.com/roach88/datamod/internal/engine"
	"github.com/roach88/datamod/internal/ir"
	"github.com/roach88/datamod/internal/module"
	"github.com/roach88/datamod/internal/testutil"
)

// Harness is the test execution engine.
// It runs one scenario's module on a real engine with a manual clock and
// scripted services.
type Harness struct {
	engine *engine.Engine
	module *datamodule.Module
	script *testutil.ScriptedServices
	clock  *testutil.ManualClock
	logger *slog.Logger
}

// Run executes a test scenario and returns the result.
//
// Execution flow:
//  1. Build the module from the scenario's module spec
//  2. Bind its verbs to scripted services and a manual clock
//  3. Register it with a fresh engine and record every change
//  4. Execute steps, checking each call's expectation
//  5. Evaluate assertions against the trace, calls and final state
//
// Step expectation and assertion failures are reported in the result.
// The returned error is reserved for scenarios that cannot run at all.
func Run(scenario *Scenario) (*Result, error) {
	start := testutil.Epoch
	if scenario.Start != "" {
		t, err := time.Parse(time.RFC3339, scenario.Start)
		if err != nil {
			return nil, fmt.Errorf("start: %w", err)
		}
		start = t
	}
	clock := testutil.NewManualClock(start)

	script, err := buildScript(scenario.Services)
	if err != nil {
		return nil, err
	}
	verbs, err := scenario.Module.VerbList()
	if err != nil {
		return nil, fmt.Errorf("module: %w", err)
	}

	m, err := config.BuildModule(scenario.Module, nil,
		datamodule.WithServices(script.Services(verbs...)),
		datamodule.WithClock(clock),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build module: %w", err)
	}

	eng := engine.New()
	if err := eng.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register module: %w", err)
	}
	defer eng.Stop()

	result := NewResult()
	unsubscribe := eng.Subscribe(func(c engine.Change) {
		result.AddTrace(c.Seq, c.Event.Type, c.Event.Payload)
	})
	defer unsubscribe()

	h := &Harness{
		engine: eng,
		module: m,
		script: script,
		clock:  clock,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)), // Suppress logs in tests
	}

	if err := h.executeSteps(context.Background(), scenario.Steps, result); err != nil {
		return nil, fmt.Errorf("failed to execute steps: %w", err)
	}
	eng.Flush()

	root := eng.State()
	result.State = m.ModuleState(root).Snapshot()
	for _, c := range script.Calls() {
		result.Calls = append(result.Calls, CallRecord{Verb: string(c.Verb), Arg: c.Arg})
	}

	actx := &AssertionContext{Module: m, Root: root}
	for _, errMsg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(errMsg)
	}

	return result, nil
}

// buildScript converts scenario responses into scripted services.
func buildScript(services map[string][]ScriptedResponse) (*testutil.ScriptedServices, error) {
	script := testutil.NewScriptedServices()

	verbs := make([]string, 0, len(services))
	for verb := range services {
		verbs = append(verbs, verb)
	}
	sort.Strings(verbs)

	for _, name := range verbs {
		verb, ok := datamodule.ParseVerb(name)
		if !ok {
			return nil, fmt.Errorf("services: unknown verb %q", name)
		}
		for i, resp := range services[name] {
			if resp.Error != "" {
				script.Fail(verb, errors.New(resp.Error))
				continue
			}
			value, err := optionalValue(resp.Value)
			if err != nil {
				return nil, fmt.Errorf("services.%s[%d]: %w", name, i, err)
			}
			script.Respond(verb, value)
		}
	}
	return script, nil
}

// executeSteps runs every step in order, draining the change queue after
// each so the trace stays in dispatch order.
func (h *Harness) executeSteps(ctx context.Context, steps []Step, result *Result) error {
	for i, step := range steps {
		switch {
		case step.Call != "":
			if err := h.executeCall(ctx, i, step, result); err != nil {
				return err
			}

		case step.Dispatch != nil:
			payload, err := optionalValue(step.Dispatch.Payload)
			if err != nil {
				return fmt.Errorf("step %d: payload: %w", i, err)
			}
			eventType := resolveEventType(h.module, step.Dispatch.Type)
			h.engine.Dispatch(module.Event{Type: eventType, Payload: payload})
			h.logger.Info("dispatch step completed", "step", i, "type", eventType)

		case step.Advance != "":
			d, err := time.ParseDuration(step.Advance)
			if err != nil {
				return fmt.Errorf("step %d: advance: %w", i, err)
			}
			now := h.clock.Advance(d)
			h.logger.Info("clock advanced", "step", i, "now", now)
		}
		h.engine.Flush()
	}
	return nil
}

func (h *Harness) executeCall(ctx context.Context, i int, step Step, result *Result) error {
	args := make([]ir.IRValue, len(step.Args))
	for j, raw := range step.Args {
		v, err := ir.FromGo(raw)
		if err != nil {
			return fmt.Errorf("step %d: args[%d]: %w", i, j, err)
		}
		args[j] = v
	}

	value, callErr := h.engine.Execute(ctx, h.module.Call(step.Call, args...))
	h.logger.Info("call step completed",
		"step", i,
		"trigger", step.Call,
		"error", callErr,
	)

	expect := step.Expect
	if expect == nil {
		expect = &ExpectClause{}
	}

	switch {
	case expect.Error == "" && callErr != nil:
		result.AddError(fmt.Sprintf("steps[%d]: %s: unexpected error: %v", i, step.Call, callErr))
		return nil
	case expect.Error != "" && callErr == nil:
		result.AddError(fmt.Sprintf("steps[%d]: %s: expected error containing %q, got success", i, step.Call, expect.Error))
		return nil
	case expect.Error != "" && !strings.Contains(callErr.Error(), expect.Error):
		result.AddError(fmt.Sprintf("steps[%d]: %s: expected error containing %q, got %q", i, step.Call, expect.Error, callErr.Error()))
		return nil
	}

	if expect.Value != nil {
		want, err := ir.FromGo(expect.Value)
		if err != nil {
			return fmt.Errorf("step %d: expect.value: %w", i, err)
		}
		if !ir.Equal(want, value) {
			result.AddError(fmt.Sprintf("steps[%d]: %s: expected value %s, got %s", i, step.Call, describe(want), describe(value)))
		}
	}
	return nil
}

// optionalValue converts a YAML value, keeping an absent value nil.
func optionalValue(v any) (ir.IRValue, error) {
	if v == nil {
		return nil, nil
	}
	return ir.FromGo(v)
}

// resolveEventType maps a local event name registered by m to its
// canonical type. Anything else is returned as given.
func resolveEventType(m *datamodule.Module, name string) string {
	if t, ok := m.EventType(name); ok {
		return t
	}
	return name
}

// describe renders v as canonical JSON for messages.
func describe(v ir.IRValue) string {
	if v == nil {
		return "<none>"
	}
	b, err := ir.MarshalCanonical(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}
