package datamodule

import (
	"encoding/json"
	"fmt"
	"slices"

	"github.com/roach88/datamod/internal/ir"
)

// Kind is the representation of a module's collection.
type Kind int

const (
	// KindList stores records as an ordered sequence.
	KindList Kind = iota + 1
	// KindMap stores records keyed by their id field.
	KindMap
)

// String returns "list" or "map".
func (k Kind) String() string {
	switch k {
	case KindList:
		return "list"
	case KindMap:
		return "map"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// ParseKind converts "list" or "map" into a Kind.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "list", "":
		return KindList, nil
	case "map":
		return KindMap, nil
	default:
		return 0, fmt.Errorf("unknown collection shape %q (want list or map)", s)
	}
}

// Collection is an immutable list or keyed map of records.
// Every transform returns a new Collection; the receiver is never modified.
type Collection struct {
	kind  Kind
	items ir.IRArray  // KindList
	byKey ir.IRObject // KindMap
}

// NewList creates a list collection holding items in order.
func NewList(items ...ir.IRValue) Collection {
	return Collection{kind: KindList, items: cloneItems(items)}
}

// NewMap creates a map collection from key -> record entries.
func NewMap(entries ir.IRObject) Collection {
	return Collection{kind: KindMap, byKey: cloneEntries(entries)}
}

// EmptyOf returns an empty collection of kind k.
func EmptyOf(k Kind) Collection {
	if k == KindMap {
		return NewMap(nil)
	}
	return NewList()
}

// CollectionOf infers the kind from the shape of v: arrays become lists,
// objects become maps, and nil or null becomes an empty list.
func CollectionOf(v ir.IRValue) (Collection, error) {
	switch val := v.(type) {
	case nil, ir.IRNull:
		return NewList(), nil
	case ir.IRArray:
		return NewList(val...), nil
	case ir.IRObject:
		return NewMap(val), nil
	default:
		return Collection{}, fmt.Errorf("collection must be an array or object, got %s", ir.KindOf(v))
	}
}

// Normalize converts a read payload into a collection of kind k.
//
// A list payload for a map module is keyed by idField; records without a
// usable id are dropped. A map payload for a list module becomes its values
// in sorted-key order. Null and scalar payloads become an empty collection.
func Normalize(k Kind, payload ir.IRValue, idField string) Collection {
	switch val := payload.(type) {
	case ir.IRArray:
		if k != KindMap {
			return NewList(val...)
		}
		entries := make(ir.IRObject, len(val))
		for _, rec := range val {
			if key, ok := recordKey(rec, idField); ok {
				entries[key] = rec
			}
		}
		return Collection{kind: KindMap, byKey: entries}
	case ir.IRObject:
		if k == KindMap {
			return NewMap(val)
		}
		items := make(ir.IRArray, 0, len(val))
		for _, key := range val.SortedKeys() {
			items = append(items, val[key])
		}
		return Collection{kind: KindList, items: items}
	default:
		return EmptyOf(k)
	}
}

// Kind returns the collection's representation. The zero Collection reports
// KindList.
func (c Collection) Kind() Kind {
	if c.kind == 0 {
		return KindList
	}
	return c.kind
}

// Len returns the number of records.
func (c Collection) Len() int {
	if c.kind == KindMap {
		return len(c.byKey)
	}
	return len(c.items)
}

// IsEmpty reports whether the collection holds no records.
func (c Collection) IsEmpty() bool {
	return c.Len() == 0
}

// Items returns the records in order. Map collections return their values
// in sorted-key order.
func (c Collection) Items() ir.IRArray {
	if c.kind != KindMap {
		return cloneItems(c.items)
	}
	items := make(ir.IRArray, 0, len(c.byKey))
	for _, key := range c.byKey.SortedKeys() {
		items = append(items, c.byKey[key])
	}
	return items
}

// Get returns the record stored under key. Only map collections are keyed.
func (c Collection) Get(key string) (ir.IRValue, bool) {
	if c.kind != KindMap {
		return nil, false
	}
	v, ok := c.byKey[key]
	return v, ok
}

// Value returns the collection in its own shape: an IRArray for lists and
// an IRObject for maps.
func (c Collection) Value() ir.IRValue {
	if c.kind == KindMap {
		return cloneEntries(c.byKey)
	}
	return cloneItems(c.items)
}

// Equal reports whether both collections have the same kind and records.
func (c Collection) Equal(other Collection) bool {
	return c.Kind() == other.Kind() && ir.Equal(c.Value(), other.Value())
}

// MarshalJSON encodes the collection in its own shape.
func (c Collection) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.Value())
}

func cloneItems(items []ir.IRValue) ir.IRArray {
	if items == nil {
		return ir.IRArray{}
	}
	return slices.Clone(ir.IRArray(items))
}

func cloneEntries(entries ir.IRObject) ir.IRObject {
	if entries == nil {
		return ir.IRObject{}
	}
	return entries.Clone()
}

// recordID returns the id field of an object record.
func recordID(rec ir.IRValue, idField string) (ir.IRValue, bool) {
	obj, ok := rec.(ir.IRObject)
	if !ok {
		return nil, false
	}
	return obj.Field(idField)
}

// recordKey returns the map key for a record's id field.
func recordKey(rec ir.IRValue, idField string) (string, bool) {
	id, ok := recordID(rec, idField)
	if !ok {
		return "", false
	}
	key, err := ir.KeyOf(id)
	if err != nil {
		return "", false
	}
	return key, true
}
