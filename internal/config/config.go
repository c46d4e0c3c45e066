// Package config loads collection module definitions from YAML, JSON or
// CUE files and turns them into datamodule options.
//
// A file lists modules; each names its key, collection shape, verbs,
// refresh window and optional expression views:
//
//	endpoint: http://localhost:8080/api
//	modules:
//	  - key: users
//	    shape: list
//	    refreshTime: 30s
//	    verbs: [read, create]
//	    views:
//	      activeCount: len(filter(items, .active))
package config

import (
	"fmt"
	"time"

	"github.com/roach88/datamod/internal/datamodule"
	"github.com/roach88/datamod/internal/ir"
)

// File is a parsed configuration file.
type File struct {
	// Endpoint is the REST base URL used by the HTTP resources.
	Endpoint string `yaml:"endpoint,omitempty" json:"endpoint,omitempty"`

	// Database is the SQLite path used by the SQL resources.
	Database string `yaml:"database,omitempty" json:"database,omitempty"`

	Modules []ModuleSpec `yaml:"modules" json:"modules"`

	// lines holds the source line of each module when the format has them.
	lines []int
}

// ModuleSpec declares one collection module.
type ModuleSpec struct {
	Key         string `yaml:"key" json:"key"`
	StatePath   string `yaml:"statePath,omitempty" json:"statePath,omitempty"`
	Prefix      string `yaml:"prefix,omitempty" json:"prefix,omitempty"`
	IDField     string `yaml:"idField,omitempty" json:"idField,omitempty"`
	RefreshTime string `yaml:"refreshTime,omitempty" json:"refreshTime,omitempty"`

	// Shape is "list" (default) or "map".
	Shape string `yaml:"shape,omitempty" json:"shape,omitempty"`

	// Collection is the remote collection name. Defaults to Key.
	Collection string `yaml:"collection,omitempty" json:"collection,omitempty"`

	// Verbs limits the generated operations. Empty means all four.
	Verbs []string `yaml:"verbs,omitempty" json:"verbs,omitempty"`

	InitialState map[string]any `yaml:"initialState,omitempty" json:"initialState,omitempty"`

	// InitialData seeds the collection. Its shape must agree with Shape.
	InitialData any `yaml:"initialData,omitempty" json:"initialData,omitempty"`

	// Views maps view names to expressions evaluated by package derive.
	Views map[string]string `yaml:"views,omitempty" json:"views,omitempty"`
}

// Module returns the ModuleSpec registered under key.
func (f *File) Module(key string) (ModuleSpec, bool) {
	for _, spec := range f.Modules {
		if spec.Key == key {
			return spec, true
		}
	}
	return ModuleSpec{}, false
}

func (f *File) line(i int) int {
	if i < len(f.lines) {
		return f.lines[i]
	}
	return 0
}

// CollectionName returns Collection, or Key when Collection is empty.
func (s ModuleSpec) CollectionName() string {
	if s.Collection != "" {
		return s.Collection
	}
	return s.Key
}

// IDFieldOrDefault returns IDField, or "id" when it is empty.
func (s ModuleSpec) IDFieldOrDefault() string {
	if s.IDField != "" {
		return s.IDField
	}
	return "id"
}

// Kind parses Shape.
func (s ModuleSpec) Kind() (datamodule.Kind, error) {
	return datamodule.ParseKind(s.Shape)
}

// Refresh parses RefreshTime. Empty means the datamodule default.
func (s ModuleSpec) Refresh() (time.Duration, error) {
	if s.RefreshTime == "" {
		return datamodule.DefaultRefreshTime, nil
	}
	d, err := time.ParseDuration(s.RefreshTime)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("must not be negative, got %s", d)
	}
	return d, nil
}

// VerbList parses Verbs. Empty means every verb.
func (s ModuleSpec) VerbList() ([]datamodule.Verb, error) {
	if len(s.Verbs) == 0 {
		return datamodule.Verbs(), nil
	}
	verbs := make([]datamodule.Verb, 0, len(s.Verbs))
	for _, name := range s.Verbs {
		v, ok := datamodule.ParseVerb(name)
		if !ok {
			return nil, fmt.Errorf("unknown verb %q", name)
		}
		verbs = append(verbs, v)
	}
	return verbs, nil
}

// Data returns the initial collection value: InitialData when set,
// otherwise an empty array or object matching Shape.
func (s ModuleSpec) Data() (ir.IRValue, error) {
	kind, err := s.Kind()
	if err != nil {
		return nil, err
	}
	if s.InitialData == nil {
		if kind == datamodule.KindMap {
			return ir.IRObject{}, nil
		}
		return ir.IRArray{}, nil
	}
	data, err := ir.FromGo(s.InitialData)
	if err != nil {
		return nil, err
	}
	c, err := datamodule.CollectionOf(data)
	if err != nil {
		return nil, err
	}
	if c.Kind() != kind {
		return nil, fmt.Errorf("initialData is a %s but shape is %s", c.Kind(), kind)
	}
	return data, nil
}

// Options converts a module definition into datamodule options. Services and clock
// are left to the caller.
func (s ModuleSpec) Options() ([]datamodule.Option, error) {
	refresh, err := s.Refresh()
	if err != nil {
		return nil, fmt.Errorf("%s: refreshTime: %w", s.Key, err)
	}
	data, err := s.Data()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.Key, err)
	}

	opts := []datamodule.Option{
		datamodule.WithRefreshTime(refresh),
		datamodule.WithIDField(s.IDFieldOrDefault()),
		datamodule.WithInitialData(data),
	}
	if s.StatePath != "" {
		opts = append(opts, datamodule.WithStatePath(s.StatePath))
	}
	if s.Prefix != "" {
		opts = append(opts, datamodule.WithEventPrefix(s.Prefix))
	}
	if len(s.InitialState) > 0 {
		extra, err := ir.FromGo(s.InitialState)
		if err != nil {
			return nil, fmt.Errorf("%s: initialState: %w", s.Key, err)
		}
		opts = append(opts, datamodule.WithInitialState(extra.(ir.IRObject)))
	}
	return opts, nil
}
