package snapshot

import (
	"fmt"
	"sync"

	"github.com/zeusync/savestate/internal/core/models"
	"github.com/zeusync/savestate/pkg/encoding"
)

// SerializeContext is the transient state of one save: the resolved paths of
// named entities and the document being assembled.
type SerializeContext struct {
	graph   Graph
	profile Profile
	paths   map[models.EntityID]string

	mu  sync.Mutex
	doc encoding.Document
}

func newSerializeContext(g Graph, p Profile, paths map[models.EntityID]string) *SerializeContext {
	return &SerializeContext{graph: g, profile: p, paths: paths, doc: make(encoding.Document)}
}

// PathOf returns the path of a named entity, or its raw id otherwise.
func (c *SerializeContext) PathOf(id models.EntityID) encoding.EntityPath {
	if path, ok := c.paths[id]; ok {
		return encoding.NamedPath(path)
	}
	return encoding.EntityPathOf(uint64(id))
}

// parentOf resolves the parent reference of an entity carrying typeName.
// A parent that is neither named nor part of the saved set would leave a
// dangling reference in the document.
func (c *SerializeContext) parentOf(id models.EntityID, typeName string) (encoding.EntityParent, error) {
	parent, ok := c.graph.Parent(id)
	if !ok {
		return encoding.RootParent(), nil
	}
	if path, named := c.paths[parent]; named {
		return encoding.NamedParent(path), nil
	}
	if c.profile.Selects(c.graph, parent) {
		return encoding.EntityParentOf(uint64(parent)), nil
	}
	return encoding.EntityParent{}, fmt.Errorf("%w: %s on entity %d has parent %d", ErrOrphaned, typeName, id, parent)
}

// merge adds the records of one type. Each type name may be merged once.
func (c *SerializeContext) merge(typeName string, records []encoding.PathedValue) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.doc[typeName]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateTypeName, typeName)
	}
	c.doc[typeName] = records
	return nil
}

// Document returns the assembled document.
func (c *SerializeContext) Document() encoding.Document {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.doc
}

// SaveScope is handed to conversion functions while saving.
type SaveScope struct {
	// Entity owning the value, zero for resources.
	Entity models.EntityID
	ctx    *SerializeContext
}

// PathOf returns how other refers to an entity in the saved document.
func (s SaveScope) PathOf(other models.EntityID) encoding.EntityPath {
	return s.ctx.PathOf(other)
}
