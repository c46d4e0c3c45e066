package module

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/datamod/internal/ir"
)

type counterState struct {
	Count int
	Label string
}

func newCounter(t *testing.T, cfg Config) *Container[counterState] {
	t.Helper()
	c := New(cfg, counterState{Label: "init"})
	inc := c.RegisterEventType("increment")
	c.RegisterReducer(inc, func(prior counterState, ev Event) counterState {
		prior.Count++
		return prior
	})
	return c
}

func TestNewDefaults(t *testing.T) {
	c := New(Config{Key: "userProfiles"}, counterState{})

	assert.Equal(t, "userProfiles", c.Key())
	assert.Equal(t, "userProfiles", c.Path())
	assert.Equal(t, "USER_PROFILES", c.Prefix())
}

func TestNewExplicitConfig(t *testing.T) {
	c := New(Config{Key: "users", Path: "entities.users", Prefix: "APP/USERS"}, counterState{})

	assert.Equal(t, "entities.users", c.Path())
	assert.Equal(t, "APP/USERS/READ_START", c.RegisterEventType("readStart"))
}

func TestRegisterEventTypeIdempotent(t *testing.T) {
	c := New(Config{Key: "users"}, counterState{})

	first := c.RegisterEventType("readStart")
	second := c.RegisterEventType("readStart")

	assert.Equal(t, "USERS/READ_START", first)
	assert.Equal(t, first, second)
	assert.Equal(t, []string{"USERS/READ_START"}, c.EventTypes(), "no duplicate registry entries")

	got, ok := c.EventType("readStart")
	require.True(t, ok)
	assert.Equal(t, first, got)

	_, ok = c.EventType("unknown")
	assert.False(t, ok)
}

func TestHandleIdentityFallback(t *testing.T) {
	c := newCounter(t, Config{Key: "counter"})
	prior := counterState{Count: 7, Label: "x"}

	next := c.Handle(prior, Event{Type: "SOMETHING/ELSE"})

	assert.Equal(t, prior, next)
}

func TestHandleRegistered(t *testing.T) {
	c := newCounter(t, Config{Key: "counter"})

	next := c.Handle(counterState{Count: 1}, Event{Type: "COUNTER/INCREMENT"})

	assert.Equal(t, 2, next.Count)
}

func TestReduceAbsentPriorUsesInitial(t *testing.T) {
	c := newCounter(t, Config{Key: "counter"})

	next := c.Reduce(nil, Event{Type: "COUNTER/INCREMENT"})
	assert.Equal(t, counterState{Count: 1, Label: "init"}, next)

	untouched := c.Reduce(nil, Event{Type: "OTHER/EVENT"})
	assert.Equal(t, counterState{Label: "init"}, untouched)
}

func TestReduceKnownPriorIdentity(t *testing.T) {
	c := newCounter(t, Config{Key: "counter"})
	prior := counterState{Count: 3}

	assert.Equal(t, prior, c.Reduce(prior, Event{Type: "OTHER/EVENT", Payload: ir.IRInt(1)}))
}

func TestModuleState(t *testing.T) {
	initial := counterState{Label: "init"}
	c := New(Config{Key: "counter", Path: "a.b"}, initial,
		WithEmpty(func(s counterState) bool { return s.Label == "" }))

	tests := []struct {
		name     string
		root     Tree
		expected counterState
	}{
		{"nil root", nil, initial},
		{"missing intermediate", Tree{"x": 1}, initial},
		{"missing leaf", Tree{"a": Tree{}}, initial},
		{"nil leaf", Tree{"a": Tree{"b": nil}}, initial},
		{"wrong type", Tree{"a": Tree{"b": "nope"}}, initial},
		{"empty value", Tree{"a": Tree{"b": counterState{Count: 9}}}, initial},
		{"present", Tree{"a": Tree{"b": counterState{Count: 2, Label: "live"}}}, counterState{Count: 2, Label: "live"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, c.ModuleState(tt.root))
		})
	}
}

func TestRegisterViewMemoized(t *testing.T) {
	c := New(Config{Key: "counter"}, counterState{})
	calls := 0
	c.RegisterView("doubled",
		[]Input[counterState]{func(_ Tree, s counterState) any { return s.Count }},
		func(args ...any) any {
			calls++
			return args[0].(int) * 2
		})

	view, ok := c.View("doubled")
	require.True(t, ok)

	root := Tree{"counter": counterState{Count: 2}}
	assert.Equal(t, 4, view(root))
	assert.Equal(t, 4, view(root))
	assert.Equal(t, 1, calls, "same input must not recompute")

	// A rebuilt but equal tree still hits the cache.
	assert.Equal(t, 4, view(Tree{"counter": counterState{Count: 2, Label: "other"}}))
	assert.Equal(t, 1, calls)

	assert.Equal(t, 6, view(Tree{"counter": counterState{Count: 3}}))
	assert.Equal(t, 2, calls)
}

func TestRegisterViewMultipleInputs(t *testing.T) {
	c := New(Config{Key: "counter"}, counterState{})
	c.RegisterView("summary",
		[]Input[counterState]{
			func(_ Tree, s counterState) any { return s.Count },
			func(root Tree, _ counterState) any { return root["suffix"] },
		},
		func(args ...any) any {
			return args[1].(string) + ":" + string(rune('0'+args[0].(int)))
		})

	view, _ := c.View("summary")
	assert.Equal(t, "n:5", view(Tree{"counter": counterState{Count: 5}, "suffix": "n"}))
}

func TestRegisterViewOverwrites(t *testing.T) {
	c := New(Config{Key: "counter"}, counterState{})
	c.RegisterView("v", nil, func(...any) any { return "first" })
	c.RegisterView("v", nil, func(...any) any { return "second" })

	view, _ := c.View("v")
	assert.Equal(t, "second", view(nil))
	assert.Equal(t, []string{"v"}, c.ViewNames())
}

func TestRegisterTrigger(t *testing.T) {
	c := New(Config{Key: "counter"}, counterState{})
	c.RegisterTrigger("read", func(args ...ir.IRValue) Thunk { return nil })

	_, ok := c.Trigger("read")
	assert.True(t, ok)
	_, ok = c.Trigger("write")
	assert.False(t, ok)
	assert.Equal(t, []string{"read"}, c.TriggerNames())
}
