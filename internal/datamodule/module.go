package datamodule

import (
	"context"
	"fmt"
	"time"

	"github.com/roach88/datamod/internal/ir"
	"github.com/roach88/datamod/internal/module"
)

// Module is a generated collection-state module. It embeds the generic
// container, so it exposes the view, trigger and event-type registries and
// satisfies the runtime's slice interface.
type Module struct {
	*module.Container[State]

	kind        Kind
	idField     string
	refresh     time.Duration
	clock       Clock
	services    Services
	initialData Collection
}

// New builds a module for key. Verbs without a service get no events and
// no trigger.
func New(key string, opts ...Option) (*Module, error) {
	cfg := defaultSettings()
	for _, opt := range opts {
		opt(&cfg)
	}

	if key == "" {
		return nil, &ConfigError{Field: "moduleKey", Message: "must not be empty"}
	}
	if cfg.idField == "" {
		return nil, &ConfigError{Field: "idField", Message: "must not be empty"}
	}
	if cfg.refreshTime < 0 {
		return nil, &ConfigError{Field: "refreshTime", Message: fmt.Sprintf("must not be negative, got %s", cfg.refreshTime)}
	}
	if cfg.clock == nil {
		cfg.clock = SystemClock{}
	}
	data, err := CollectionOf(cfg.initialData)
	if err != nil {
		return nil, &ConfigError{Field: "initialData", Message: err.Error()}
	}

	initial := State{Data: data}
	if cfg.initialState != nil {
		initial.Extra = cfg.initialState.Clone()
	}

	m := &Module{
		Container: module.New(
			module.Config{Key: key, Path: cfg.statePath, Prefix: cfg.eventPrefix},
			initial,
			module.WithEmpty(func(s State) bool { return s.Data.kind == 0 }),
		),
		kind:        data.Kind(),
		idField:     cfg.idField,
		refresh:     cfg.refreshTime,
		clock:       cfg.clock,
		services:    cfg.services,
		initialData: data,
	}

	m.registerViews()
	if svc := cfg.services; svc.Read != nil {
		m.registerRead(svc.Read)
	}
	if svc := cfg.services; svc.Create != nil {
		m.registerWrite(VerbCreate, svc.Create, mergeCreate)
	}
	if svc := cfg.services; svc.Update != nil {
		m.registerWrite(VerbUpdate, svc.Update, mergeUpdate)
	}
	if svc := cfg.services; svc.Delete != nil {
		m.registerDelete(svc.Delete)
	}

	return m, nil
}

// Kind returns the module's fixed representation.
func (m *Module) Kind() Kind { return m.kind }

// IDField returns the record field holding identifiers.
func (m *Module) IDField() string { return m.idField }

// RefreshTime returns the staleness window.
func (m *Module) RefreshTime() time.Duration { return m.refresh }

// Configured reports whether v has a service and therefore a trigger.
func (m *Module) Configured(v Verb) bool { return m.services.Has(v) }

// ShouldFetch applies the staleness policy to the module's slice of root.
func (m *Module) ShouldFetch(root module.Tree) bool {
	return ShouldFetch(m.ModuleState(root), m.clock.Now(), m.refresh)
}

// Read returns a thunk that fetches the collection unconditionally.
func (m *Module) Read() module.Thunk {
	return m.thunk(string(VerbRead))
}

// ReadIfNeeded returns a thunk that fetches only when ShouldFetch says so.
// When it skips it resolves to nil without dispatching.
func (m *Module) ReadIfNeeded() module.Thunk {
	return m.thunk(TriggerReadIfNeeded)
}

// Create returns a thunk that sends record to the create service.
func (m *Module) Create(record ir.IRValue) module.Thunk {
	return m.thunk(string(VerbCreate), record)
}

// Update returns a thunk that sends record to the update service.
func (m *Module) Update(record ir.IRValue) module.Thunk {
	return m.thunk(string(VerbUpdate), record)
}

// Delete returns a thunk that removes the record with the given id.
func (m *Module) Delete(id ir.IRValue) module.Thunk {
	return m.thunk(string(VerbDelete), id)
}

// Call returns the thunk for a trigger by name.
func (m *Module) Call(name string, args ...ir.IRValue) module.Thunk {
	return m.thunk(name, args...)
}

func (m *Module) thunk(name string, args ...ir.IRValue) module.Thunk {
	trigger, ok := m.Trigger(name)
	if !ok {
		err := fmt.Errorf("%s: %s: %w", m.Key(), name, ErrVerbNotConfigured)
		return func(context.Context, module.Dispatch, module.GetState) (ir.IRValue, error) {
			return nil, err
		}
	}
	return trigger(args...)
}
