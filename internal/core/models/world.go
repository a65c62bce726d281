// Package models holds the in-memory entity graph that snapshots are taken
// from and applied to: entities with typed components, parent/child edges and
// world level resources.
package models

import (
	"errors"
	"fmt"
	"reflect"
	"slices"
	"sync"
)

// EntityID identifies an entity within one World. Ids are never reused.
type EntityID uint64

var (
	ErrEntityNotFound = errors.New("entity not found")
	ErrHierarchyCycle = errors.New("parent would create a cycle")
	ErrNilComponent   = errors.New("component is nil")
)

type entity struct {
	parent     EntityID
	hasParent  bool
	children   []EntityID
	components map[reflect.Type]any
}

// World is a forest of entities. It is safe for concurrent use.
type World struct {
	mu        sync.RWMutex
	next      EntityID
	entities  map[EntityID]*entity
	resources map[reflect.Type]any
}

func NewWorld() *World {
	return &World{
		entities:  make(map[EntityID]*entity),
		resources: make(map[reflect.Type]any),
	}
}

// Spawn creates an empty root entity.
func (w *World) Spawn(components ...any) EntityID {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.next++
	id := w.next
	e := &entity{components: make(map[reflect.Type]any, len(components))}
	for _, c := range components {
		if c != nil {
			e.components[reflect.TypeOf(c)] = c
		}
	}
	w.entities[id] = e
	return id
}

// SpawnChild creates an entity under parent.
func (w *World) SpawnChild(parent EntityID, components ...any) (EntityID, error) {
	if !w.Exists(parent) {
		return 0, fmt.Errorf("%w: %d", ErrEntityNotFound, parent)
	}
	id := w.Spawn(components...)
	if err := w.SetParent(id, parent); err != nil {
		return 0, err
	}
	return id, nil
}

// Despawn removes id and all of its descendants.
func (w *World) Despawn(id EntityID) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	e, ok := w.entities[id]
	if !ok {
		return false
	}
	if e.hasParent {
		w.detachLocked(id, e.parent)
	}
	w.despawnLocked(id)
	return true
}

func (w *World) despawnLocked(id EntityID) {
	e := w.entities[id]
	for _, child := range e.children {
		w.despawnLocked(child)
	}
	delete(w.entities, id)
}

func (w *World) Exists(id EntityID) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	_, ok := w.entities[id]
	return ok
}

// Len returns the number of live entities.
func (w *World) Len() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.entities)
}

// Entities returns every live entity in ascending id order.
func (w *World) Entities() []EntityID {
	w.mu.RLock()
	defer w.mu.RUnlock()
	ids := make([]EntityID, 0, len(w.entities))
	for id := range w.entities {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

func (w *World) Parent(id EntityID) (EntityID, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	e, ok := w.entities[id]
	if !ok || !e.hasParent {
		return 0, false
	}
	return e.parent, true
}

func (w *World) Children(id EntityID) []EntityID {
	w.mu.RLock()
	defer w.mu.RUnlock()
	e, ok := w.entities[id]
	if !ok {
		return nil
	}
	return slices.Clone(e.children)
}

// SetParent attaches child under parent, detaching it from any previous parent.
func (w *World) SetParent(child, parent EntityID) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	c, ok := w.entities[child]
	if !ok {
		return fmt.Errorf("%w: child %d", ErrEntityNotFound, child)
	}
	p, ok := w.entities[parent]
	if !ok {
		return fmt.Errorf("%w: parent %d", ErrEntityNotFound, parent)
	}
	for cur, at := parent, p; ; {
		if cur == child {
			return fmt.Errorf("%w: %d under %d", ErrHierarchyCycle, child, parent)
		}
		if !at.hasParent {
			break
		}
		cur, at = at.parent, w.entities[at.parent]
	}
	if c.hasParent {
		if c.parent == parent {
			return nil
		}
		w.detachLocked(child, c.parent)
	}
	c.parent, c.hasParent = parent, true
	p.children = append(p.children, child)
	return nil
}

// RemoveParent turns child into a root.
func (w *World) RemoveParent(child EntityID) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if c, ok := w.entities[child]; ok && c.hasParent {
		w.detachLocked(child, c.parent)
	}
}

func (w *World) detachLocked(child, parent EntityID) {
	if p, ok := w.entities[parent]; ok {
		p.children = slices.DeleteFunc(p.children, func(id EntityID) bool { return id == child })
	}
	if c, ok := w.entities[child]; ok {
		c.parent, c.hasParent = 0, false
	}
}

// Insert attaches value keyed by its dynamic type, replacing any previous one.
func (w *World) Insert(id EntityID, value any) error {
	if value == nil {
		return ErrNilComponent
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	e, ok := w.entities[id]
	if !ok {
		return fmt.Errorf("%w: %d", ErrEntityNotFound, id)
	}
	e.components[reflect.TypeOf(value)] = value
	return nil
}

func (w *World) Component(id EntityID, t reflect.Type) (any, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	e, ok := w.entities[id]
	if !ok {
		return nil, false
	}
	v, ok := e.components[t]
	return v, ok
}

// Remove detaches the component of type t. Missing components are a no-op.
func (w *World) Remove(id EntityID, t reflect.Type) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	e, ok := w.entities[id]
	if !ok {
		return false
	}
	if _, ok = e.components[t]; !ok {
		return false
	}
	delete(e.components, t)
	return true
}

// EntitiesWith lists entities carrying a component of type t, ascending.
func (w *World) EntitiesWith(t reflect.Type) []EntityID {
	w.mu.RLock()
	defer w.mu.RUnlock()
	var ids []EntityID
	for id, e := range w.entities {
		if _, ok := e.components[t]; ok {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return ids
}

func (w *World) SetResource(value any) {
	if value == nil {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.resources[reflect.TypeOf(value)] = value
}

func (w *World) Resource(t reflect.Type) (any, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	v, ok := w.resources[t]
	return v, ok
}

func (w *World) RemoveResource(t reflect.Type) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.resources[t]; !ok {
		return false
	}
	delete(w.resources, t)
	return true
}
