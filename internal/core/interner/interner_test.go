package interner

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type Stat uint16

const (
	Attack Stat = iota
	Defense
	Magic
)

type Element uint8

const (
	Water Element = 1 << iota
	Earth
	Fire
	Air
)

func TestEnumSeedAndGrowth(t *testing.T) {
	stats := NewEnum[Stat]("Attack", "Defense", "Magic")
	assert.Equal(t, Defense, stats.Get("Defense"))
	assert.Equal(t, "Magic", stats.String(Magic))

	speed := stats.Get("Speed")
	assert.Equal(t, Stat(3), speed)
	assert.Equal(t, speed, stats.Get("Speed"), "interning is idempotent")
	assert.Equal(t, 4, stats.Len())

	_, ok := stats.TryGet("Luck")
	assert.False(t, ok)
	assert.Equal(t, 4, stats.Len(), "TryGet never allocates")

	stats.Clear()
	assert.Equal(t, []string{"Attack", "Defense", "Magic"}, stats.Names())
	assert.Panics(t, func() { stats.String(speed) })
}

func TestEnumFull(t *testing.T) {
	small := NewEnum[uint8]()
	for i := 0; i < 256; i++ {
		small.Get(fmt.Sprintf("n%d", i))
	}
	assert.Panics(t, func() { small.Get("overflow") })
	assert.Equal(t, "n255", small.String(255))
}

func TestFlags(t *testing.T) {
	elements := NewFlags[Element]("Water", "Earth", "Fire", "Air")
	assert.Equal(t, Water|Fire, elements.Get("Water|Fire"))
	assert.Equal(t, "Water|Fire", elements.String(Fire|Water))
	assert.Equal(t, NoneName, elements.String(0))

	none, ok := elements.TryGet("None")
	require.True(t, ok)
	assert.Zero(t, none)

	_, ok = elements.TryGet("Water|Lightning")
	assert.False(t, ok)

	lightning := elements.GetSingle("Lightning")
	assert.Equal(t, Element(1<<4), lightning)
	assert.Equal(t, "Earth|Lightning", elements.String(Earth|lightning))

	assert.True(t, Contains(Water|Fire|Air, Water|Air))
	assert.False(t, Contains(Water|Fire, Water|Air))
	assert.True(t, Intersects(Water|Fire, Fire|Earth))
	assert.Equal(t, Water, Without(Water|Fire, Fire|Air))

	elements.Clear()
	assert.Equal(t, 4, elements.Len())
	assert.Panics(t, func() { elements.String(lightning) })
}

func TestFlagsFull(t *testing.T) {
	f := NewFlags[uint8]("a", "b", "c", "d", "e", "f", "g", "h")
	assert.Panics(t, func() { f.GetSingle("i") })
	assert.Panics(t, func() { NewFlags[uint8]("None") })
	assert.Panics(t, func() { NewFlags[uint8]("a|b") })
}

func TestFlagsRejectMalformedNames(t *testing.T) {
	status := NewFlags[uint32]("Poisoned", "Slowed")
	assert.Panics(t, func() { status.GetSingle("a|b") })
	assert.Panics(t, func() { status.GetSingle("") })
	assert.Panics(t, func() { NewFlags[uint8]("") })

	both := status.Get("Poisoned||Slowed")
	assert.Equal(t, uint32(0b11), both)
	assert.Equal(t, []string{"Poisoned", "Slowed"}, status.Names())
	assert.Equal(t, "Poisoned|Slowed", status.String(both))

	back, ok := status.TryGet(" Slowed | Poisoned |")
	require.True(t, ok)
	assert.Equal(t, both, back)
}

func TestConcurrentInterning(t *testing.T) {
	e := NewEnum[uint32]()
	var wg sync.WaitGroup
	codes := make([]uint32, 32)
	for i := range codes {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			codes[i] = e.Get(fmt.Sprintf("name-%d", i%8))
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 8, e.Len())
	for i, code := range codes {
		assert.Equal(t, fmt.Sprintf("name-%d", i%8), e.String(code))
	}
}
