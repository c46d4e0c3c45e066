package module

import (
	"context"

	"github.com/roach88/datamod/internal/ir"
)

// Tree is the root state tree. Module slices live at dot-separated paths.
type Tree = map[string]any

// Event is a tagged state-transition request.
// Payload is nil when the event carries none.
type Event struct {
	Type    string
	Payload ir.IRValue
}

// Dispatch applies an event to the state tree before returning.
type Dispatch func(Event)

// GetState returns the current root state tree.
type GetState func() Tree

// Thunk is the operation a trigger produces. The runtime executing it
// supplies dispatch and state access. Returning a value resolves the
// operation; returning an error rejects it.
type Thunk func(ctx context.Context, dispatch Dispatch, getState GetState) (ir.IRValue, error)

// Trigger builds a Thunk from call arguments.
type Trigger func(args ...ir.IRValue) Thunk

// Reducer is a pure state-transition handler for one event type.
type Reducer[S any] func(prior S, ev Event) S

// Input extracts one view input from the root tree and the module's slice.
type Input[S any] func(root Tree, state S) any

// View is a derived projection of the root tree.
type View func(root Tree) any
