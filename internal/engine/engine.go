package engine

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/roach88/datamod/internal/ir"
	"github.com/roach88/datamod/internal/module"
)

// Slice is a piece of state hosted at a path in the root tree.
// *datamodule.Module and *module.Container satisfy it.
type Slice interface {
	Key() string
	Path() string
	Init() any
	Reduce(prior any, ev module.Event) any
	EventTypes() []string
}

// Listener receives changes from the Run loop.
type Listener func(Change)

type hosted struct {
	slice Slice
	path  []string
}

// Engine is the dispatch runtime.
//
// Thread-safety model:
//   - Register(), Dispatch(), State(), Execute(), Subscribe(): safe from any goroutine
//   - Run(): must be called from exactly one goroutine
//   - Flush(): must not run concurrently with Run()
type Engine struct {
	mu     sync.Mutex
	seq    int64 // logical clock; last issued change seq
	root   module.Tree
	slices []hosted
	owners map[string]int // event type -> index into slices
	queue  *changeQueue

	lmu       sync.Mutex
	listeners map[int]Listener
	nextID    int
}

// EngineOption allows configuration of engine parameters.
type EngineOption func(*Engine)

// WithStartSeq resumes change numbering after seq.
func WithStartSeq(seq int64) EngineOption {
	return func(e *Engine) {
		e.seq = seq
	}
}

// WithState seeds the root tree. Slices registered later still place their
// initial state at their own path.
func WithState(root module.Tree) EngineOption {
	return func(e *Engine) {
		e.root = root
	}
}

// New creates an engine with an empty root tree.
func New(opts ...EngineOption) *Engine {
	e := &Engine{
		root:      module.Tree{},
		owners:    make(map[string]int),
		queue:     newChangeQueue(),
		listeners: make(map[int]Listener),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Register hosts s at its path and stores its initial state there.
//
// Registration fails if the path equals or nests with another slice's path,
// or if any of s's event types is already owned by another slice.
func (e *Engine) Register(s Slice) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	path := module.SplitPath(s.Path())
	if e.queue.Closed() {
		return &RuntimeError{Code: ErrCodeStopped, Message: "cannot register after stop", Path: s.Path()}
	}
	if len(path) == 0 {
		return newPathConflict(s.Path(), "<root>")
	}
	for _, h := range e.slices {
		if nested(path, h.path) || nested(h.path, path) {
			return newPathConflict(s.Path(), h.slice.Path())
		}
	}
	for _, t := range s.EventTypes() {
		if idx, taken := e.owners[t]; taken {
			return newCollisionError(s.Path(), t, e.slices[idx].slice.Path())
		}
	}

	idx := len(e.slices)
	e.slices = append(e.slices, hosted{slice: s, path: path})
	for _, t := range s.EventTypes() {
		e.owners[t] = idx
	}
	e.root = module.Assoc(e.root, path, s.Init())

	slog.Debug("slice registered",
		"key", s.Key(),
		"path", s.Path(),
		"event_types", len(s.EventTypes()),
	)
	return nil
}

// nested reports whether a equals b or lies beneath it.
func nested(a, b []string) bool {
	return len(a) >= len(b) && slices.Equal(a[:len(b)], b)
}

// Dispatch applies ev to the slice that owns its type and enqueues the
// resulting change. Unowned event types leave the tree unchanged but are
// still numbered and delivered.
//
// Dispatch returns after the state has been updated. After Stop the state
// is still updated but no change is delivered.
func (e *Engine) Dispatch(ev module.Event) {
	e.mu.Lock()
	if idx, ok := e.owners[ev.Type]; ok {
		h := e.slices[idx]
		prior, _ := module.Lookup(e.root, h.path)
		e.root = module.Assoc(e.root, h.path, h.slice.Reduce(prior, ev))
	}
	e.seq++
	change := Change{Seq: e.seq, Event: ev, State: e.root}
	e.mu.Unlock()

	slog.Debug("dispatch", "seq", change.Seq, "type", ev.Type)

	if !e.queue.Enqueue(change) {
		slog.Debug("change dropped: engine stopped", "seq", change.Seq, "type", ev.Type)
	}
}

// State returns the current root tree. The returned tree is never modified.
func (e *Engine) State() module.Tree {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.root
}

// Seq returns the seq of the most recent dispatch.
func (e *Engine) Seq() int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.seq
}

// Execute runs thunk with this engine's dispatch and state access and
// returns its result.
func (e *Engine) Execute(ctx context.Context, thunk module.Thunk) (ir.IRValue, error) {
	if thunk == nil {
		return nil, fmt.Errorf("execute: nil thunk")
	}
	v, err := thunk(ctx, e.Dispatch, e.State)
	if err != nil {
		slog.Debug("thunk rejected", "error", err)
	}
	return v, err
}

// Subscribe registers l for future changes and returns a function that
// removes it.
func (e *Engine) Subscribe(l Listener) func() {
	e.lmu.Lock()
	defer e.lmu.Unlock()

	id := e.nextID
	e.nextID++
	e.listeners[id] = l

	return func() {
		e.lmu.Lock()
		defer e.lmu.Unlock()
		delete(e.listeners, id)
	}
}

// Pending returns the number of changes not yet delivered.
func (e *Engine) Pending() int {
	return e.queue.Len()
}

// Run starts the single-writer notification loop.
// Blocks until context is cancelled or Stop() is called. After Stop the
// remaining queued changes are delivered before Run returns nil.
//
// CRITICAL: Must be called from exactly ONE goroutine.
func (e *Engine) Run(ctx context.Context) error {
	slog.Info("engine starting", "slices", e.sliceCount())

	for {
		change, ok := e.queue.TryDequeue()
		if ok {
			e.deliver(change)
			continue
		}

		select {
		case <-ctx.Done():
			slog.Info("engine stopping: context cancelled")
			e.queue.Close()
			return ctx.Err()

		case <-e.queue.Wait():
			// The signal channel closes when the queue is closed,
			// which makes this case fire immediately.
			if e.queue.Closed() && e.queue.Len() == 0 {
				slog.Info("engine stopping: queue closed")
				return nil
			}
		}
	}
}

// Flush delivers every queued change on the calling goroutine and returns
// how many were delivered.
func (e *Engine) Flush() int {
	n := 0
	for {
		change, ok := e.queue.TryDequeue()
		if !ok {
			return n
		}
		e.deliver(change)
		n++
	}
}

// Stop gracefully shuts down the engine.
// Closes the change queue, which will cause Run() to return.
func (e *Engine) Stop() {
	e.queue.Close()
}

func (e *Engine) sliceCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.slices)
}

// deliver hands a change to every listener in subscription order.
func (e *Engine) deliver(c Change) {
	e.lmu.Lock()
	ids := make([]int, 0, len(e.listeners))
	for id := range e.listeners {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	listeners := make([]Listener, len(ids))
	for i, id := range ids {
		listeners[i] = e.listeners[id]
	}
	e.lmu.Unlock()

	for _, l := range listeners {
		notify(l, c)
	}
}

// notify calls l, logging and swallowing a panic so one bad listener does
// not stop the loop.
func notify(l Listener, c Change) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("listener failed",
				"seq", c.Seq,
				"type", c.Event.Type,
				"panic", fmt.Sprint(r),
			)
		}
	}()
	l(c)
}

// SlicePaths returns the registered slice paths in registration order.
func (e *Engine) SlicePaths() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	paths := make([]string, len(e.slices))
	for i, h := range e.slices {
		paths[i] = strings.Join(h.path, ".")
	}
	return paths
}
