package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/datamod/internal/ir"
)

// Records is a handle on one collection. idField names the record field
// that holds the identifier.
type Records struct {
	s          *Store
	collection string
	idField    string
}

// Records returns a handle on collection.
func (s *Store) Records(collection, idField string) *Records {
	if idField == "" {
		idField = "id"
	}
	return &Records{s: s, collection: collection, idField: idField}
}

// Collection returns the collection name.
func (r *Records) Collection() string { return r.collection }

// List returns every record in creation order.
//
// Returns an empty slice (not nil) if the collection is empty.
func (r *Records) List(ctx context.Context) ([]ir.IRObject, error) {
	rows, err := r.s.db.QueryContext(ctx, `
		SELECT body
		FROM records
		WHERE collection = ?
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`, r.collection)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	out := []ir.IRObject{}
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		rec, err := unmarshalBody(body)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return out, nil
}

// Get returns the record stored under key, or ErrNotFound.
func (r *Records) Get(ctx context.Context, key string) (ir.IRObject, error) {
	var body string
	err := r.s.db.QueryRowContext(ctx, `
		SELECT body FROM records WHERE collection = ? AND id = ?
	`, r.collection, key).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get %s/%s: %w", r.collection, key, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get %s/%s: %w", r.collection, key, err)
	}
	return unmarshalBody(body)
}

// Insert stores a new record and returns it as stored. A record without an
// id gets a generated string id. Inserting an existing id returns
// ErrConflict.
func (r *Records) Insert(ctx context.Context, rec ir.IRObject) (ir.IRObject, error) {
	rec = rec.Clone()
	if _, ok := rec.Field(r.idField); !ok {
		rec[r.idField] = ir.IRString(r.s.idGen.Generate())
	}

	key, body, err := r.encode(rec)
	if err != nil {
		return nil, fmt.Errorf("insert: %w", err)
	}

	res, err := r.s.db.ExecContext(ctx, `
		INSERT INTO records (collection, id, body, seq)
		VALUES (?, ?, ?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM records))
		ON CONFLICT(collection, id) DO NOTHING
	`, r.collection, key, body)
	if err != nil {
		return nil, fmt.Errorf("insert %s/%s: %w", r.collection, key, err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return nil, fmt.Errorf("insert %s/%s: %w", r.collection, key, err)
	} else if n == 0 {
		return nil, fmt.Errorf("insert %s/%s: %w", r.collection, key, ErrConflict)
	}

	return rec, nil
}

// Replace overwrites an existing record, keeping its position. Returns
// ErrNotFound if no record has the same id.
func (r *Records) Replace(ctx context.Context, rec ir.IRObject) (ir.IRObject, error) {
	key, body, err := r.encode(rec)
	if err != nil {
		return nil, fmt.Errorf("replace: %w", err)
	}

	res, err := r.s.db.ExecContext(ctx, `
		UPDATE records SET body = ? WHERE collection = ? AND id = ?
	`, body, r.collection, key)
	if err != nil {
		return nil, fmt.Errorf("replace %s/%s: %w", r.collection, key, err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return nil, fmt.Errorf("replace %s/%s: %w", r.collection, key, err)
	} else if n == 0 {
		return nil, fmt.Errorf("replace %s/%s: %w", r.collection, key, ErrNotFound)
	}

	return rec.Clone(), nil
}

// Delete removes the record stored under key. Returns ErrNotFound if there
// is none.
func (r *Records) Delete(ctx context.Context, key string) error {
	res, err := r.s.db.ExecContext(ctx, `
		DELETE FROM records WHERE collection = ? AND id = ?
	`, r.collection, key)
	if err != nil {
		return fmt.Errorf("delete %s/%s: %w", r.collection, key, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete %s/%s: %w", r.collection, key, err)
	}
	if n == 0 {
		return fmt.Errorf("delete %s/%s: %w", r.collection, key, ErrNotFound)
	}
	return nil
}

// encode returns the row key and canonical JSON body of rec.
func (r *Records) encode(rec ir.IRObject) (string, string, error) {
	id, ok := rec.Field(r.idField)
	if !ok {
		return "", "", fmt.Errorf("record has no %q field", r.idField)
	}
	key, err := ir.KeyOf(id)
	if err != nil {
		return "", "", fmt.Errorf("field %q: %w", r.idField, err)
	}
	data, err := ir.MarshalCanonical(rec)
	if err != nil {
		return "", "", fmt.Errorf("marshal record: %w", err)
	}
	return key, string(data), nil
}

func unmarshalBody(body string) (ir.IRObject, error) {
	v, err := ir.UnmarshalIRValue([]byte(body))
	if err != nil {
		return nil, fmt.Errorf("unmarshal record: %w", err)
	}
	obj, ok := v.(ir.IRObject)
	if !ok {
		return nil, fmt.Errorf("unmarshal record: stored body is %s, not an object", ir.KindOf(v))
	}
	return obj, nil
}
