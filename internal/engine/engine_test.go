package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/datamod/internal/ir"
	"github.com/roach88/datamod/internal/module"
)

// counter is a minimal slice: an int that INCREMENT bumps.
type counter struct {
	key, path string
	types     []string
}

func (c counter) Key() string          { return c.key }
func (c counter) Path() string         { return c.path }
func (c counter) Init() any            { return 0 }
func (c counter) EventTypes() []string { return c.types }
func (c counter) Reduce(prior any, ev module.Event) any {
	n, _ := prior.(int)
	if ev.Payload != nil {
		return n + int(ev.Payload.(ir.IRInt))
	}
	return n + 1
}

func newCounter(key, path string, types ...string) counter {
	return counter{key: key, path: path, types: types}
}

func TestEngine_RegisterPlacesInitialState(t *testing.T) {
	e := New()

	require.NoError(t, e.Register(newCounter("hits", "stats.hits", "HITS/INC")))

	v, ok := module.Lookup(e.State(), []string{"stats", "hits"})
	require.True(t, ok)
	assert.Equal(t, 0, v)
	assert.Equal(t, []string{"stats.hits"}, e.SlicePaths())
}

func TestEngine_RegisterConflicts(t *testing.T) {
	tests := []struct {
		name   string
		second counter
		check  func(error) bool
	}{
		{"same path", newCounter("b", "stats.hits", "B/INC"), IsPathConflict},
		{"nested below", newCounter("b", "stats.hits.daily", "B/INC"), IsPathConflict},
		{"nested above", newCounter("b", "stats", "B/INC"), IsPathConflict},
		{"event collision", newCounter("b", "other", "HITS/INC"), IsCollisionError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := New()
			require.NoError(t, e.Register(newCounter("a", "stats.hits", "HITS/INC")))

			err := e.Register(tt.second)

			require.Error(t, err)
			assert.True(t, tt.check(err), "unexpected error: %v", err)
		})
	}
}

func TestEngine_RegisterSiblingPaths(t *testing.T) {
	e := New()

	require.NoError(t, e.Register(newCounter("a", "stats.hits", "A/INC")))
	require.NoError(t, e.Register(newCounter("b", "stats.misses", "B/INC")))
	require.NoError(t, e.Register(newCounter("c", "statsx", "C/INC")), "shared name prefix is not nesting")
}

func TestEngine_RegisterAfterStop(t *testing.T) {
	e := New()
	e.Stop()

	err := e.Register(newCounter("a", "a", "A/INC"))

	assert.True(t, IsStopped(err))
}

func TestEngine_DispatchRoutesToOwner(t *testing.T) {
	e := New()
	require.NoError(t, e.Register(newCounter("a", "a", "A/INC")))
	require.NoError(t, e.Register(newCounter("b", "b", "B/INC")))
	before := e.State()

	e.Dispatch(module.Event{Type: "A/INC"})
	e.Dispatch(module.Event{Type: "A/INC", Payload: ir.IRInt(5)})

	after := e.State()
	assert.Equal(t, 6, after["a"])
	assert.Equal(t, 0, after["b"])
	assert.Equal(t, 0, before["a"], "earlier trees are never modified")
}

func TestEngine_DispatchUnknownTypeStillNumbered(t *testing.T) {
	e := New()
	require.NoError(t, e.Register(newCounter("a", "a", "A/INC")))

	e.Dispatch(module.Event{Type: "NOBODY/CARES"})

	assert.Equal(t, int64(1), e.Seq())
	assert.Equal(t, 1, e.Pending())
	assert.Equal(t, 0, e.State()["a"])
}

func TestEngine_FlushDeliversInOrder(t *testing.T) {
	e := New()
	require.NoError(t, e.Register(newCounter("a", "a", "A/INC")))

	var got []Change
	e.Subscribe(func(c Change) { got = append(got, c) })

	e.Dispatch(module.Event{Type: "A/INC"})
	e.Dispatch(module.Event{Type: "A/INC"})

	assert.Equal(t, 2, e.Flush())
	require.Len(t, got, 2)
	assert.Equal(t, int64(1), got[0].Seq)
	assert.Equal(t, 1, got[0].State["a"], "each change carries the tree it produced")
	assert.Equal(t, int64(2), got[1].Seq)
	assert.Equal(t, 2, got[1].State["a"])
}

func TestEngine_Unsubscribe(t *testing.T) {
	e := New()
	calls := 0
	unsubscribe := e.Subscribe(func(Change) { calls++ })

	e.Dispatch(module.Event{Type: "X"})
	e.Flush()
	unsubscribe()
	e.Dispatch(module.Event{Type: "X"})
	e.Flush()

	assert.Equal(t, 1, calls)
}

func TestEngine_ListenerPanicDoesNotStopDelivery(t *testing.T) {
	e := New()
	var seen []int64
	e.Subscribe(func(Change) { panic("boom") })
	e.Subscribe(func(c Change) { seen = append(seen, c.Seq) })

	e.Dispatch(module.Event{Type: "X"})
	e.Dispatch(module.Event{Type: "X"})
	e.Flush()

	assert.Equal(t, []int64{1, 2}, seen)
}

func TestEngine_Execute(t *testing.T) {
	e := New()
	require.NoError(t, e.Register(newCounter("a", "a", "A/INC")))

	thunk := func(ctx context.Context, dispatch module.Dispatch, getState module.GetState) (ir.IRValue, error) {
		dispatch(module.Event{Type: "A/INC"})
		// Dispatch is synchronous: the thunk sees its own event.
		return ir.IRInt(getState()["a"].(int)), nil
	}

	got, err := e.Execute(context.Background(), thunk)

	require.NoError(t, err)
	assert.Equal(t, ir.IRInt(1), got)
}

func TestEngine_ExecuteRejection(t *testing.T) {
	e := New()
	boom := errors.New("boom")

	_, err := e.Execute(context.Background(), func(context.Context, module.Dispatch, module.GetState) (ir.IRValue, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = e.Execute(context.Background(), nil)
	assert.Error(t, err)
}

func TestEngine_ConcurrentDispatchSerialized(t *testing.T) {
	e := New()
	require.NoError(t, e.Register(newCounter("a", "a", "A/INC")))
	const goroutines = 20
	const perGoroutine = 50

	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perGoroutine; j++ {
				e.Dispatch(module.Event{Type: "A/INC"})
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, goroutines*perGoroutine, e.State()["a"])
	assert.Equal(t, int64(goroutines*perGoroutine), e.Seq())
}

func TestEngine_RunDeliversThenStops(t *testing.T) {
	e := New()
	require.NoError(t, e.Register(newCounter("a", "a", "A/INC")))

	var mu sync.Mutex
	var seqs []int64
	e.Subscribe(func(c Change) {
		mu.Lock()
		defer mu.Unlock()
		seqs = append(seqs, c.Seq)
	})

	e.Dispatch(module.Event{Type: "A/INC"})
	e.Dispatch(module.Event{Type: "A/INC"})
	e.Stop()

	done := make(chan error, 1)
	go func() { done <- e.Run(context.Background()) }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after Stop")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int64{1, 2}, seqs, "queued changes drain before Run returns")
}

func TestEngine_RunContextCancel(t *testing.T) {
	e := New()
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- e.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}

	e.Dispatch(module.Event{Type: "X"})
	assert.Equal(t, 0, e.Pending(), "changes after shutdown are dropped")
}

func TestEngine_WithStateAndStartSeq(t *testing.T) {
	e := New(WithState(module.Tree{"meta": "v1"}), WithStartSeq(10))
	require.NoError(t, e.Register(newCounter("a", "a", "A/INC")))

	e.Dispatch(module.Event{Type: "A/INC"})

	assert.Equal(t, "v1", e.State()["meta"])
	assert.Equal(t, int64(11), e.Seq())
}
