package module

import (
	"reflect"
	"sync"
)

// memo caches the last inputs and output of a view.
//
// Inputs are compared structurally (reflect.DeepEqual), so a view recomputes
// only when an input's content changes, never because a reducer rebuilt an
// equal value. Comparing costs a walk of the inputs on every call.
type memo struct {
	mu      sync.Mutex
	primed  bool
	last    []any
	output  any
	combine func(args ...any) any
}

func newMemo(combine func(args ...any) any) *memo {
	return &memo{combine: combine}
}

// get returns the cached output when inputs match the last call,
// otherwise recomputes and caches.
func (m *memo) get(inputs []any) any {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.primed && sameInputs(m.last, inputs) {
		return m.output
	}

	m.output = m.combine(inputs...)
	m.last = inputs
	m.primed = true
	return m.output
}

func sameInputs(a, b []any) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !reflect.DeepEqual(a[i], b[i]) {
			return false
		}
	}
	return true
}
