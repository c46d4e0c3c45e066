package service

import (
	"context"

	"github.com/roach88/datamod/internal/datamodule"
	"github.com/roach88/datamod/internal/ir"
)

// Resource is a remote collection.
type Resource interface {
	// List returns the whole collection.
	List(ctx context.Context) (ir.IRValue, error)

	// Create stores a new record and returns the stored copy.
	Create(ctx context.Context, record ir.IRValue) (ir.IRValue, error)

	// Update replaces a record and returns the stored copy.
	Update(ctx context.Context, record ir.IRValue) (ir.IRValue, error)

	// Delete removes the record with the given id.
	Delete(ctx context.Context, id ir.IRValue) error
}

// Bind exposes r as datamodule services. With no verbs all four are bound;
// otherwise only the named ones are and the rest stay nil.
func Bind(r Resource, verbs ...datamodule.Verb) datamodule.Services {
	if len(verbs) == 0 {
		verbs = datamodule.Verbs()
	}

	var svc datamodule.Services
	for _, v := range verbs {
		switch v {
		case datamodule.VerbRead:
			svc.Read = r.List
		case datamodule.VerbCreate:
			svc.Create = r.Create
		case datamodule.VerbUpdate:
			svc.Update = r.Update
		case datamodule.VerbDelete:
			svc.Delete = func(ctx context.Context, id ir.IRValue) (ir.IRValue, error) {
				return nil, r.Delete(ctx, id)
			}
		}
	}
	return svc
}
