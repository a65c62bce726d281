package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type position struct{ X, Y float64 }

type health int

func TestComponents(t *testing.T) {
	w := NewWorld()
	id := w.Spawn(position{1, 2})

	p, ok := Get[position](w, id)
	require.True(t, ok)
	assert.Equal(t, position{1, 2}, p)

	require.NoError(t, Insert(w, id, position{3, 4}))
	require.NoError(t, Insert(w, id, health(10)))
	p, _ = Get[position](w, id)
	assert.Equal(t, position{3, 4}, p, "insert replaces")
	assert.Equal(t, 1, Count[health](w))

	assert.True(t, Remove[health](w, id))
	assert.False(t, Remove[health](w, id), "removing twice is a no-op")
	assert.False(t, Has[health](w, id))

	assert.ErrorIs(t, Insert(w, EntityID(99), health(1)), ErrEntityNotFound)
	assert.ErrorIs(t, w.Insert(id, nil), ErrNilComponent)
}

func TestHierarchy(t *testing.T) {
	w := NewWorld()
	root := w.Spawn()
	a, err := w.SpawnChild(root)
	require.NoError(t, err)
	b, err := w.SpawnChild(a)
	require.NoError(t, err)

	parent, ok := w.Parent(b)
	require.True(t, ok)
	assert.Equal(t, a, parent)
	assert.Equal(t, []EntityID{a}, w.Children(root))

	assert.ErrorIs(t, w.SetParent(root, b), ErrHierarchyCycle)
	assert.ErrorIs(t, w.SetParent(a, a), ErrHierarchyCycle)

	// re-parent b directly under root
	require.NoError(t, w.SetParent(b, root))
	assert.Empty(t, w.Children(a))
	assert.ElementsMatch(t, []EntityID{a, b}, w.Children(root))

	w.RemoveParent(b)
	_, ok = w.Parent(b)
	assert.False(t, ok)

	require.NoError(t, w.SetParent(b, a))
	assert.True(t, w.Despawn(a))
	assert.False(t, w.Exists(b), "despawn is recursive")
	assert.Empty(t, w.Children(root))
	assert.Equal(t, []EntityID{root}, w.Entities())
	assert.False(t, w.Despawn(a))
}

func TestQueryOrder(t *testing.T) {
	w := NewWorld()
	var want []EntityID
	for i := 0; i < 10; i++ {
		id := w.Spawn()
		if i%3 == 0 {
			require.NoError(t, Insert(w, id, health(i)))
			want = append(want, id)
		}
	}
	assert.Equal(t, want, Query[health](w))
}

func TestResources(t *testing.T) {
	w := NewWorld()
	_, ok := GetResource[position](w)
	assert.False(t, ok)

	SetResource(w, position{5, 5})
	p, ok := GetResource[position](w)
	require.True(t, ok)
	assert.Equal(t, position{5, 5}, p)

	assert.True(t, w.RemoveResource(TypeOf[position]()))
	assert.False(t, w.RemoveResource(TypeOf[position]()))
}
