package datamodule

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/datamod/internal/ir"
)

func user(id ir.IRValue, name string) ir.IRObject {
	return ir.Obj(ir.O("id", id), ir.O("name", ir.IRString(name)))
}

func TestCollectionOf(t *testing.T) {
	tests := []struct {
		name    string
		input   ir.IRValue
		kind    Kind
		length  int
		wantErr bool
	}{
		{"nil", nil, KindList, 0, false},
		{"null", ir.IRNull{}, KindList, 0, false},
		{"array", ir.Arr(user(ir.IRInt(1), "a")), KindList, 1, false},
		{"object", ir.Obj(ir.O("1", user(ir.IRInt(1), "a"))), KindMap, 1, false},
		{"empty object", ir.Obj(), KindMap, 0, false},
		{"scalar", ir.IRString("x"), 0, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := CollectionOf(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.kind, c.Kind())
			assert.Equal(t, tt.length, c.Len())
		})
	}
}

func TestNormalize(t *testing.T) {
	a := user(ir.IRString("a"), "ada")
	b := user(ir.IRString("b"), "bob")
	noID := ir.Obj(ir.O("name", ir.IRString("anon")))

	t.Run("list payload into list", func(t *testing.T) {
		c := Normalize(KindList, ir.Arr(b, a), "id")
		assert.Equal(t, KindList, c.Kind())
		assert.Equal(t, ir.Arr(b, a), c.Value())
	})

	t.Run("list payload into map keys by id", func(t *testing.T) {
		c := Normalize(KindMap, ir.Arr(a, noID, b), "id")
		assert.Equal(t, KindMap, c.Kind())
		assert.Equal(t, ir.Obj(ir.O("a", a), ir.O("b", b)), c.Value())
	})

	t.Run("map payload into list uses key order", func(t *testing.T) {
		c := Normalize(KindList, ir.Obj(ir.O("b", b), ir.O("a", a)), "id")
		assert.Equal(t, KindList, c.Kind())
		assert.Equal(t, ir.Arr(a, b), c.Value())
	})

	t.Run("map payload into map", func(t *testing.T) {
		c := Normalize(KindMap, ir.Obj(ir.O("a", a)), "id")
		assert.Equal(t, ir.Obj(ir.O("a", a)), c.Value())
	})

	t.Run("null becomes empty of the module kind", func(t *testing.T) {
		assert.Equal(t, KindMap, Normalize(KindMap, ir.IRNull{}, "id").Kind())
		assert.True(t, Normalize(KindMap, nil, "id").IsEmpty())
		assert.Equal(t, KindList, Normalize(KindList, ir.IRInt(3), "id").Kind())
	})
}

func TestCollectionImmutable(t *testing.T) {
	src := ir.Arr(user(ir.IRInt(1), "a"))
	c := NewList(src...)

	src[0] = ir.IRNull{}
	items := c.Items()
	items[0] = ir.IRNull{}

	assert.Equal(t, ir.Arr(user(ir.IRInt(1), "a")), c.Value())
}

func TestCollectionItemsOfMapSorted(t *testing.T) {
	c := NewMap(ir.Obj(ir.O("z", ir.IRInt(26)), ir.O("a", ir.IRInt(1))))

	assert.Equal(t, ir.Arr(ir.IRInt(1), ir.IRInt(26)), c.Items())

	v, ok := c.Get("z")
	require.True(t, ok)
	assert.Equal(t, ir.IRInt(26), v)

	_, ok = NewList().Get("z")
	assert.False(t, ok)
}

func TestCollectionEqual(t *testing.T) {
	assert.True(t, NewList().Equal(Collection{}))
	assert.False(t, NewList().Equal(NewMap(nil)), "kinds differ")
	assert.True(t, NewMap(ir.Obj(ir.O("a", ir.IRInt(1)))).Equal(NewMap(ir.Obj(ir.O("a", ir.IRInt(1))))))
}

func TestCollectionMarshalJSON(t *testing.T) {
	list, err := json.Marshal(NewList(ir.IRInt(1)))
	require.NoError(t, err)
	assert.JSONEq(t, `[1]`, string(list))

	m, err := json.Marshal(NewMap(ir.Obj(ir.O("a", ir.IRBool(true)))))
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":true}`, string(m))
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind("map")
	require.NoError(t, err)
	assert.Equal(t, KindMap, k)

	k, err = ParseKind("")
	require.NoError(t, err)
	assert.Equal(t, KindList, k)

	_, err = ParseKind("set")
	assert.Error(t, err)
	assert.Equal(t, "list", KindList.String())
}
