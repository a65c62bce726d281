// Package interner maps symbolic names onto small integer codes.
//
// An Enum hands out consecutive codes, a Flags table hands out one bit per
// name. Both start from a seed list, grow on demand, and never forget a name
// until Clear resets them to the seed, so codes stay valid for the life of a
// session. Tables are safe for concurrent use and are meant to be passed
// explicitly to whatever converts codes to and from names.
package interner

import (
	"fmt"
	"math/bits"
	"strings"
	"sync"
)

// Code is the set of integer types an interner can issue.
type Code interface {
	~uint8 | ~uint16 | ~uint32 | ~uint64
}

// NoneName is the textual form of an empty flag set.
const NoneName = "None"

// FlagSeparator joins flag names in a composite flag string.
const FlagSeparator = "|"

type table struct {
	mu    sync.RWMutex
	seed  []string
	codes map[string]uint64
	names []string
}

func (t *table) init(seed []string) {
	t.seed = append([]string(nil), seed...)
	t.reset()
}

func (t *table) reset() {
	t.codes = make(map[string]uint64, len(t.seed))
	t.names = make([]string, 0, len(t.seed))
	for _, name := range t.seed {
		if _, dup := t.codes[name]; dup {
			panic(fmt.Sprintf("interner: duplicate seed name %q", name))
		}
		t.codes[name] = uint64(len(t.names))
		t.names = append(t.names, name)
	}
}

func (t *table) lookup(name string) (uint64, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	idx, ok := t.codes[name]
	return idx, ok
}

// intern returns the index for name, appending it when limit allows.
func (t *table) intern(name string, limit uint64) uint64 {
	if idx, ok := t.lookup(name); ok {
		return idx
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if idx, ok := t.codes[name]; ok {
		return idx
	}
	idx := uint64(len(t.names))
	if idx >= limit {
		panic(fmt.Sprintf("interner: cannot intern %q, table is full at %d entries", name, len(t.names)))
	}
	t.codes[name] = idx
	t.names = append(t.names, name)
	return idx
}

func (t *table) name(idx uint64) (string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if idx >= uint64(len(t.names)) {
		return "", false
	}
	return t.names[idx], true
}

func (t *table) len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.names)
}

func (t *table) snapshot() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]string(nil), t.names...)
}

func (t *table) clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.reset()
}

func bitSize[C Code]() int {
	return bits.Len64(uint64(^C(0)))
}

// Enum is a growable name to code table. Codes follow seed order.
type Enum[C Code] struct {
	t table
}

func NewEnum[C Code](seed ...string) *Enum[C] {
	if bitSize[C]() < 64 && uint64(len(seed)) > uint64(^C(0))+1 {
		panic(fmt.Sprintf("interner: %d seed names do not fit in %d bits", len(seed), bitSize[C]()))
	}
	e := &Enum[C]{}
	e.t.init(seed)
	return e
}

// Get returns the code for name, allocating the next one if name is new.
func (e *Enum[C]) Get(name string) C {
	limit := uint64(^C(0))
	if bitSize[C]() < 64 {
		limit++
	}
	return C(e.t.intern(name, limit))
}

func (e *Enum[C]) TryGet(name string) (C, bool) {
	idx, ok := e.t.lookup(name)
	return C(idx), ok
}

// String returns the name behind code.
//
// Panics if code was never issued by this table.
func (e *Enum[C]) String(code C) string {
	name, ok := e.t.name(uint64(code))
	if !ok {
		panic(fmt.Sprintf("interner: invalid enum code %d", uint64(code)))
	}
	return name
}

func (e *Enum[C]) Len() int { return e.t.len() }

func (e *Enum[C]) Names() []string { return e.t.snapshot() }

// Clear drops every name interned since construction.
func (e *Enum[C]) Clear() { e.t.clear() }

// Flags is a growable name to bit table. The zero value of F is None.
type Flags[F Code] struct {
	t table
}

func NewFlags[F Code](seed ...string) *Flags[F] {
	if len(seed) > bitSize[F]() {
		panic(fmt.Sprintf("interner: %d seed flags do not fit in %d bits", len(seed), bitSize[F]()))
	}
	for _, name := range seed {
		checkFlagName(name)
	}
	f := &Flags[F]{}
	f.t.init(seed)
	return f
}

// GetSingle returns the bit for one name, allocating the next bit if needed.
//
// Panics on an empty name or one containing the separator.
func (f *Flags[F]) GetSingle(name string) F {
	if name == NoneName {
		return 0
	}
	checkFlagName(name)
	return F(1) << f.t.intern(name, uint64(bitSize[F]()))
}

func (f *Flags[F]) TryGetSingle(name string) (F, bool) {
	if name == NoneName {
		return 0, true
	}
	idx, ok := f.t.lookup(name)
	if !ok {
		return 0, false
	}
	return F(1) << idx, true
}

// Get parses a `|` joined flag string, interning unknown names.
func (f *Flags[F]) Get(s string) F {
	var out F
	for _, name := range splitFlags(s) {
		out |= f.GetSingle(name)
	}
	return out
}

// TryGet parses a `|` joined flag string; it fails if any name is unknown.
func (f *Flags[F]) TryGet(s string) (F, bool) {
	var out F
	for _, name := range splitFlags(s) {
		bit, ok := f.TryGetSingle(name)
		if !ok {
			return 0, false
		}
		out |= bit
	}
	return out, true
}

// String renders flags as `|` joined names in bit order, or "None".
//
// Panics if flags carries a bit this table never issued.
func (f *Flags[F]) String(flags F) string {
	if flags == 0 {
		return NoneName
	}
	var parts []string
	v := uint64(flags)
	for idx := uint64(0); v > 0; idx++ {
		if v&1 == 1 {
			name, ok := f.t.name(idx)
			if !ok {
				panic(fmt.Sprintf("interner: invalid flag bit %d in %#x", idx, uint64(flags)))
			}
			parts = append(parts, name)
		}
		v >>= 1
	}
	return strings.Join(parts, FlagSeparator)
}

func (f *Flags[F]) Len() int { return f.t.len() }

func (f *Flags[F]) Names() []string { return f.t.snapshot() }

func (f *Flags[F]) Clear() { f.t.clear() }

// Contains reports whether every bit of other is set in flags.
func Contains[F Code](flags, other F) bool { return flags&other == other }

// Intersects reports whether flags and other share a bit.
func Intersects[F Code](flags, other F) bool { return flags&other != 0 }

// Without clears the bits of other from flags.
func Without[F Code](flags, other F) F { return flags &^ other }

func checkFlagName(name string) {
	if name == "" || name == NoneName || strings.Contains(name, FlagSeparator) {
		panic(fmt.Sprintf("interner: reserved flag name %q", name))
	}
}

func splitFlags(s string) []string {
	var parts []string
	for _, part := range strings.Split(s, FlagSeparator) {
		if part = strings.TrimSpace(part); part != "" {
			parts = append(parts, part)
		}
	}
	return parts
}
