package module

import (
	"slices"
	"sort"
)

// Config identifies a module and locates its slice of the state tree.
type Config struct {
	// Key is the logical module name (e.g. "users"). Required.
	Key string

	// Path is the dot-separated location of the module's slice in the root
	// tree. Defaults to Key.
	Path string

	// Prefix namespaces the module's event types. Defaults to DefaultPrefix(Key).
	Prefix string
}

// Container is the registry shared by every generated module.
// S is the module's state type.
type Container[S any] struct {
	cfg     Config
	path    []string
	initial S
	isEmpty func(S) bool

	views      map[string]View
	triggers   map[string]Trigger
	reducers   map[string]Reducer[S]
	eventTypes map[string]string // local name -> canonical type
}

// Option configures a Container.
type Option[S any] func(*Container[S])

// WithEmpty marks state values that should be treated as absent by
// ModuleState. Such values resolve to the initial state.
func WithEmpty[S any](isEmpty func(S) bool) Option[S] {
	return func(c *Container[S]) {
		c.isEmpty = isEmpty
	}
}

// New creates a container with the given configuration and initial state.
func New[S any](cfg Config, initial S, opts ...Option[S]) *Container[S] {
	if cfg.Path == "" {
		cfg.Path = cfg.Key
	}
	if cfg.Prefix == "" {
		cfg.Prefix = DefaultPrefix(cfg.Key)
	}

	c := &Container[S]{
		cfg:        cfg,
		path:       SplitPath(cfg.Path),
		initial:    initial,
		views:      make(map[string]View),
		triggers:   make(map[string]Trigger),
		reducers:   make(map[string]Reducer[S]),
		eventTypes: make(map[string]string),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Key returns the logical module name.
func (c *Container[S]) Key() string { return c.cfg.Key }

// Path returns the dot-separated state path.
func (c *Container[S]) Path() string { return c.cfg.Path }

// Prefix returns the event-type prefix.
func (c *Container[S]) Prefix() string { return c.cfg.Prefix }

// Initial returns the initial state value.
func (c *Container[S]) Initial() S { return c.initial }

// RegisterView registers a memoized view under name, replacing any view
// already registered there. The view evaluates every input against the root
// tree and the module's slice, then calls combine with the results.
// combine runs again only when some input differs from the previous call.
func (c *Container[S]) RegisterView(name string, inputs []Input[S], combine func(args ...any) any) {
	m := newMemo(combine)
	c.views[name] = func(root Tree) any {
		state := c.ModuleState(root)
		args := make([]any, len(inputs))
		for i, in := range inputs {
			args[i] = in(root, state)
		}
		return m.get(args)
	}
}

// View returns the view registered under name.
func (c *Container[S]) View(name string) (View, bool) {
	v, ok := c.views[name]
	return v, ok
}

// ViewNames returns registered view names in sorted order.
func (c *Container[S]) ViewNames() []string {
	return sortedKeys(c.views)
}

// RegisterEventType derives the canonical event type for localName and
// caches it. Registering the same local name again returns the cached value.
func (c *Container[S]) RegisterEventType(localName string) string {
	if t, ok := c.eventTypes[localName]; ok {
		return t
	}
	t := EventTypeName(c.cfg.Prefix, localName)
	c.eventTypes[localName] = t
	return t
}

// EventType returns the canonical event type registered for localName.
func (c *Container[S]) EventType(localName string) (string, bool) {
	t, ok := c.eventTypes[localName]
	return t, ok
}

// EventTypes returns every canonical event type in sorted order.
func (c *Container[S]) EventTypes() []string {
	types := make([]string, 0, len(c.eventTypes))
	for _, t := range c.eventTypes {
		types = append(types, t)
	}
	slices.Sort(types)
	return types
}

// RegisterReducer installs the handler for a canonical event type.
func (c *Container[S]) RegisterReducer(eventType string, r Reducer[S]) {
	c.reducers[eventType] = r
}

// RegisterTrigger installs a named trigger, replacing any existing one.
func (c *Container[S]) RegisterTrigger(name string, t Trigger) {
	c.triggers[name] = t
}

// Trigger returns the trigger registered under name.
func (c *Container[S]) Trigger(name string) (Trigger, bool) {
	t, ok := c.triggers[name]
	return t, ok
}

// TriggerNames returns registered trigger names in sorted order.
func (c *Container[S]) TriggerNames() []string {
	return sortedKeys(c.triggers)
}

// ModuleState resolves the module's slice of root. It returns the initial
// state when the path is missing, the leaf is nil or not an S, or the leaf
// is reported empty.
func (c *Container[S]) ModuleState(root Tree) S {
	v, ok := Lookup(root, c.path)
	if !ok || v == nil {
		return c.initial
	}
	s, ok := v.(S)
	if !ok {
		return c.initial
	}
	if c.isEmpty != nil && c.isEmpty(s) {
		return c.initial
	}
	return s
}

// Handle applies the handler registered for ev.Type to prior.
// Unregistered event types return prior unchanged.
func (c *Container[S]) Handle(prior S, ev Event) S {
	r, ok := c.reducers[ev.Type]
	if !ok {
		return prior
	}
	return r(prior, ev)
}

// Init returns the initial state as an untyped value.
func (c *Container[S]) Init() any {
	return c.initial
}

// Reduce is the untyped index reducer used by runtimes that hold many
// modules. A prior that is absent or not an S starts from the initial state.
func (c *Container[S]) Reduce(prior any, ev Event) any {
	s, ok := prior.(S)
	if !ok {
		s = c.initial
	}
	return c.Handle(s, ev)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
