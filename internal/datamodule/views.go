package datamodule

import (
	"time"

	"github.com/roach88/datamod/internal/ir"
	"github.com/roach88/datamod/internal/module"
)

// View names registered on every module.
const (
	ViewData        = "data"
	ViewDataByID    = "dataById"
	ViewIsLoading   = "isLoading"
	ViewIsModifying = "isModifying"
	ViewIsError     = "isError"
	ViewIsLoaded    = "isLoaded"
	ViewLastUpdated = "lastUpdated"
)

func (m *Module) registerViews() {
	identity := func(args ...any) any { return args[0] }
	field := func(get func(State) any) []module.Input[State] {
		return []module.Input[State]{func(_ module.Tree, s State) any { return get(s) }}
	}

	data := field(func(s State) any { return s.Data })
	m.RegisterView(ViewData, data, identity)
	m.RegisterView(ViewIsLoading, field(func(s State) any { return s.IsLoading }), identity)
	m.RegisterView(ViewIsModifying, field(func(s State) any { return s.IsModifying }), identity)
	m.RegisterView(ViewIsError, field(func(s State) any { return s.IsError }), identity)
	m.RegisterView(ViewIsLoaded, field(func(s State) any { return s.IsLoaded }), identity)
	m.RegisterView(ViewLastUpdated, field(func(s State) any { return s.LastUpdated }), identity)

	if m.kind != KindList {
		return
	}
	m.RegisterView(ViewDataByID, data, func(args ...any) any {
		byID := make(ir.IRObject)
		for _, rec := range args[0].(Collection).items {
			if key, ok := recordKey(rec, m.idField); ok {
				byID[key] = rec
			}
		}
		return byID
	})
}

// Data returns the data view for root.
func (m *Module) Data(root module.Tree) Collection {
	return m.view(ViewData, root).(Collection)
}

// DataByID returns a copy of the id-indexed view of a list module. Map
// modules have no such view and report false.
func (m *Module) DataByID(root module.Tree) (ir.IRObject, bool) {
	if _, ok := m.View(ViewDataByID); !ok {
		return nil, false
	}
	return m.view(ViewDataByID, root).(ir.IRObject).Clone(), true
}

// IsLoading returns the isLoading view for root.
func (m *Module) IsLoading(root module.Tree) bool {
	return m.view(ViewIsLoading, root).(bool)
}

// IsModifying returns the isModifying view for root.
func (m *Module) IsModifying(root module.Tree) bool {
	return m.view(ViewIsModifying, root).(bool)
}

// IsError returns the isError view for root.
func (m *Module) IsError(root module.Tree) bool {
	return m.view(ViewIsError, root).(bool)
}

// IsLoaded returns the isLoaded view for root.
func (m *Module) IsLoaded(root module.Tree) bool {
	return m.view(ViewIsLoaded, root).(bool)
}

// LastUpdated returns the lastUpdated view for root.
func (m *Module) LastUpdated(root module.Tree) time.Time {
	return m.view(ViewLastUpdated, root).(time.Time)
}

func (m *Module) view(name string, root module.Tree) any {
	v, _ := m.View(name)
	return v(root)
}
