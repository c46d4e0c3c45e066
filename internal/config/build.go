package config

import (
	"errors"
	"fmt"

	"github.com/roach88/datamod/internal/datamodule"
	"github.com/roach88/datamod/internal/derive"
	"github.com/roach88/datamod/internal/service"
	"github.com/roach88/datamod/internal/store"
)

// ResourceFunc supplies the backing resource for a module spec.
type ResourceFunc func(spec ModuleSpec) (service.Resource, error)

// Build validates f and creates one module per ModuleSpec. Each module's verbs
// are bound to the resource returned by resourceFor; a nil resourceFor
// builds modules with no services. extra options apply to every module
// after the ModuleSpec options.
func Build(f *File, resourceFor ResourceFunc, extra ...datamodule.Option) ([]*datamodule.Module, error) {
	if verrs := Validate(f); len(verrs) > 0 {
		errs := make([]error, len(verrs))
		for i, e := range verrs {
			errs[i] = e
		}
		return nil, errors.Join(errs...)
	}

	modules := make([]*datamodule.Module, 0, len(f.Modules))
	for _, spec := range f.Modules {
		m, err := BuildModule(spec, resourceFor, extra...)
		if err != nil {
			return nil, err
		}
		modules = append(modules, m)
	}
	return modules, nil
}

// BuildModule creates the module for a single spec.
func BuildModule(spec ModuleSpec, resourceFor ResourceFunc, extra ...datamodule.Option) (*datamodule.Module, error) {
	opts, err := spec.Options()
	if err != nil {
		return nil, err
	}
	if resourceFor != nil {
		verbs, err := spec.VerbList()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", spec.Key, err)
		}
		res, err := resourceFor(spec)
		if err != nil {
			return nil, fmt.Errorf("%s: resource: %w", spec.Key, err)
		}
		opts = append(opts, datamodule.WithServices(service.Bind(res, verbs...)))
	}
	opts = append(opts, extra...)

	m, err := datamodule.New(spec.Key, opts...)
	if err != nil {
		return nil, err
	}
	if err := derive.RegisterAll(m, spec.Views); err != nil {
		return nil, err
	}
	return m, nil
}

// HTTPResources returns a ResourceFunc serving every module from the REST
// API at endpoint.
func HTTPResources(endpoint string, opts ...service.HTTPOption) ResourceFunc {
	return func(spec ModuleSpec) (service.Resource, error) {
		if endpoint == "" {
			return nil, errors.New("no endpoint configured")
		}
		all := append([]service.HTTPOption{service.WithIDField(spec.IDFieldOrDefault())}, opts...)
		return service.NewHTTPResource(endpoint, spec.CollectionName(), all...), nil
	}
}

// SQLResources returns a ResourceFunc serving every module from st.
func SQLResources(st *store.Store) ResourceFunc {
	return func(spec ModuleSpec) (service.Resource, error) {
		return service.NewSQLResource(st, spec.CollectionName(), spec.IDFieldOrDefault()), nil
	}
}
