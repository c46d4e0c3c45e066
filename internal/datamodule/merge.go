package datamodule

import (
	"slices"

	"github.com/roach88/datamod/internal/ir"
)

// mergeCreate adds a created record. Lists append it; maps store it under
// its id, overwriting any existing entry. A map record without a usable id
// leaves the collection unchanged.
func mergeCreate(c Collection, rec ir.IRValue, idField string) Collection {
	switch c.Kind() {
	case KindMap:
		return c.withEntry(rec, idField)
	default:
		items := make(ir.IRArray, 0, len(c.items)+1)
		items = append(items, c.items...)
		items = append(items, rec)
		return Collection{kind: KindList, items: items}
	}
}

// mergeUpdate replaces an updated record. Lists replace the first element
// with a matching id and keep everything else in place; maps overwrite the
// entry under the record's id.
func mergeUpdate(c Collection, rec ir.IRValue, idField string) Collection {
	switch c.Kind() {
	case KindMap:
		return c.withEntry(rec, idField)
	default:
		id, ok := recordID(rec, idField)
		if !ok {
			return c
		}
		idx := slices.IndexFunc(c.items, func(item ir.IRValue) bool {
			itemID, ok := recordID(item, idField)
			return ok && ir.Equal(itemID, id)
		})
		if idx < 0 {
			return c
		}
		items := slices.Clone(c.items)
		items[idx] = rec
		return Collection{kind: KindList, items: items}
	}
}

// mergeDelete removes a deleted id. Lists drop every element whose id
// matches; maps drop the entry keyed by the id.
func mergeDelete(c Collection, id ir.IRValue, idField string) Collection {
	switch c.Kind() {
	case KindMap:
		key, err := ir.KeyOf(id)
		if err != nil {
			return c
		}
		if _, ok := c.byKey[key]; !ok {
			return c
		}
		entries := c.byKey.Clone()
		delete(entries, key)
		return Collection{kind: KindMap, byKey: entries}
	default:
		items := make(ir.IRArray, 0, len(c.items))
		for _, item := range c.items {
			itemID, ok := recordID(item, idField)
			if ok && ir.Equal(itemID, id) {
				continue
			}
			items = append(items, item)
		}
		return Collection{kind: KindList, items: items}
	}
}

func (c Collection) withEntry(rec ir.IRValue, idField string) Collection {
	key, ok := recordKey(rec, idField)
	if !ok {
		return c
	}
	entries := cloneEntries(c.byKey)
	entries[key] = rec
	return Collection{kind: KindMap, byKey: entries}
}
