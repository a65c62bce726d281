package snapshot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/savestate/internal/core/models"
)

func TestNamesPush(t *testing.T) {
	n := NewNames()
	require.NoError(t, n.Push(1, "John"))
	require.NoError(t, n.Push(1, "John"))
	assert.Equal(t, 1, n.Len())

	err := n.Push(1, "Jane")
	assert.ErrorIs(t, err, ErrNameConflict)
	assert.True(t, IsFatal(err))
	name, ok := n.Get(1)
	assert.True(t, ok)
	assert.Equal(t, "John", name)

	assert.ErrorIs(t, n.Push(2, "a::b"), ErrInvalidName)
	assert.ErrorIs(t, n.Push(2, ""), ErrInvalidName)
	_, ok = n.Get(2)
	assert.False(t, ok)
}

func TestNamesPaths(t *testing.T) {
	w := models.NewWorld()
	units := w.Spawn()
	players, err := w.SpawnChild(units)
	require.NoError(t, err)
	john, err := w.SpawnChild(players)
	require.NoError(t, err)
	hand, err := w.SpawnChild(john)
	require.NoError(t, err)
	loose, err := w.SpawnChild(hand)
	require.NoError(t, err)
	ring, err := w.SpawnChild(loose)
	require.NoError(t, err)

	n := NewNames()
	require.NoError(t, n.Push(players, "Players"))
	require.NoError(t, n.Push(john, "John"))
	require.NoError(t, n.Push(hand, "mainhand"))
	require.NoError(t, n.Push(ring, "ring"))

	paths, err := n.Paths(w)
	require.NoError(t, err)
	assert.Equal(t, map[models.EntityID]string{
		players: "Players",
		john:    "Players::John",
		hand:    "Players::John::mainhand",
		// the unnamed ancestor cuts the chain
		ring: "ring",
	}, paths)
}

func TestNamesDuplicatePath(t *testing.T) {
	w := models.NewWorld()
	a, b := w.Spawn(), w.Spawn()
	n := NewNames()
	require.NoError(t, n.Push(a, "same"))
	require.NoError(t, n.Push(b, "same"))

	_, err := n.Paths(w)
	assert.ErrorIs(t, err, ErrDuplicatePath)
	assert.True(t, IsFatal(err))
}
