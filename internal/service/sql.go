package service

import (
	"context"
	"fmt"

	"github.com/roach88/datamod/internal/ir"
	"github.com/roach88/datamod/internal/store"
)

// SQLResource serves a collection straight from the record store.
type SQLResource struct {
	records *store.Records
	idField string
}

// NewSQLResource returns a resource over collection in s.
func NewSQLResource(s *store.Store, collection, idField string) *SQLResource {
	if idField == "" {
		idField = "id"
	}
	return &SQLResource{records: s.Records(collection, idField), idField: idField}
}

// List returns the collection as an array in creation order.
func (r *SQLResource) List(ctx context.Context) (ir.IRValue, error) {
	recs, err := r.records.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make(ir.IRArray, len(recs))
	for i, rec := range recs {
		out[i] = rec
	}
	return out, nil
}

// Create inserts record.
func (r *SQLResource) Create(ctx context.Context, record ir.IRValue) (ir.IRValue, error) {
	obj, err := asObject(record)
	if err != nil {
		return nil, fmt.Errorf("create: %w", err)
	}
	return r.records.Insert(ctx, obj)
}

// Update replaces record.
func (r *SQLResource) Update(ctx context.Context, record ir.IRValue) (ir.IRValue, error) {
	obj, err := asObject(record)
	if err != nil {
		return nil, fmt.Errorf("update: %w", err)
	}
	return r.records.Replace(ctx, obj)
}

// Delete removes the record keyed by id.
func (r *SQLResource) Delete(ctx context.Context, id ir.IRValue) error {
	key, err := ir.KeyOf(id)
	if err != nil {
		return fmt.Errorf("delete: %w", err)
	}
	return r.records.Delete(ctx, key)
}

func asObject(v ir.IRValue) (ir.IRObject, error) {
	obj, ok := v.(ir.IRObject)
	if !ok {
		return nil, fmt.Errorf("record must be an object, got %s", ir.KindOf(v))
	}
	return obj, nil
}
