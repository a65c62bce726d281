package snapshot

import (
	"fmt"

	"github.com/zeusync/savestate/internal/core/models"
	"github.com/zeusync/savestate/pkg/encoding"
)

// DeserializeContext is the transient state of one load: the parsed document
// and the map from document paths to live entities.
type DeserializeContext struct {
	graph   Graph
	doc     encoding.Document
	paths   map[encoding.EntityPath]models.EntityID
	spawned int
}

func newDeserializeContext(g Graph, doc encoding.Document) *DeserializeContext {
	return &DeserializeContext{graph: g, doc: doc, paths: make(map[encoding.EntityPath]models.EntityID)}
}

// seed records the live paths of named entities.
func (c *DeserializeContext) seed(paths map[models.EntityID]string) error {
	for id, path := range paths {
		key := encoding.NamedPath(path)
		if other, ok := c.paths[key]; ok && other != id {
			return fmt.Errorf("%w: %q is both entity %d and entity %d", ErrDuplicatePath, path, other, id)
		}
		c.paths[key] = id
	}
	return nil
}

// FetchOrSpawn returns the live entity for path. Unknown paths get a fresh
// entity which later references to the same path resolve to. Unique paths
// always spawn.
func (c *DeserializeContext) FetchOrSpawn(path encoding.EntityPath) models.EntityID {
	id, _ := c.fetchOrSpawn(path)
	return id
}

func (c *DeserializeContext) fetchOrSpawn(path encoding.EntityPath) (models.EntityID, bool) {
	if !path.IsUnique() {
		if id, ok := c.paths[path]; ok {
			return id, false
		}
	}
	id := c.graph.Spawn()
	c.spawned++
	if !path.IsUnique() {
		c.paths[path] = id
	}
	return id, true
}

// discard undoes a spawn made for a record that failed to apply.
func (c *DeserializeContext) discard(path encoding.EntityPath, id models.EntityID) {
	if c.paths[path] == id {
		delete(c.paths, path)
	}
	if c.graph.Despawn(id) {
		c.spawned--
	}
}

// take removes and returns the records of typeName.
func (c *DeserializeContext) take(typeName string) ([]encoding.PathedValue, bool) {
	records, ok := c.doc[typeName]
	if ok {
		delete(c.doc, typeName)
	}
	return records, ok
}

// leftover returns the type names nothing consumed.
func (c *DeserializeContext) leftover() []string {
	return c.doc.TypeNames()
}

// LoadScope is handed to conversion functions while loading.
type LoadScope struct {
	// Entity receiving the value, zero for resources.
	Entity models.EntityID
	Graph  Graph
	ctx    *DeserializeContext
}

// Fetch resolves a path written by SaveScope.PathOf, spawning the entity if
// nothing in the graph or earlier records claimed it.
func (s *LoadScope) Fetch(path encoding.EntityPath) models.EntityID {
	return s.ctx.FetchOrSpawn(path)
}
