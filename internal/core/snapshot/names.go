package snapshot

import (
	"fmt"
	"slices"
	"strings"

	"github.com/zeusync/savestate/internal/core/models"
	"github.com/zeusync/savestate/pkg/encoding"
)

// Names maps entities to their local names for the duration of one operation.
type Names struct {
	names map[models.EntityID]string
}

func NewNames() *Names {
	return &Names{names: make(map[models.EntityID]string)}
}

// Push records name for entity. Pushing the same name again is a no-op; a
// different name for an already named entity is ErrNameConflict.
func (n *Names) Push(entity models.EntityID, name string) error {
	if name == "" || strings.Contains(name, encoding.Separator) {
		return fmt.Errorf("%w: %q on entity %d", ErrInvalidName, name, entity)
	}
	if prev, ok := n.names[entity]; ok {
		if prev != name {
			return fmt.Errorf("%w: entity %d is %q, got %q", ErrNameConflict, entity, prev, name)
		}
		return nil
	}
	n.names[entity] = name
	return nil
}

func (n *Names) Get(entity models.EntityID) (string, bool) {
	name, ok := n.names[entity]
	return name, ok
}

func (n *Names) Len() int { return len(n.names) }

// Paths computes the full path of every named entity: local names of the
// ancestor chain, stopping at the root or at the first unnamed ancestor,
// joined outermost first. Two entities with the same path are ErrDuplicatePath.
func (n *Names) Paths(g Graph) (map[models.EntityID]string, error) {
	ids := make([]models.EntityID, 0, len(n.names))
	for id := range n.names {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	out := make(map[models.EntityID]string, len(ids))
	seen := make(map[string]models.EntityID, len(ids))
	for _, id := range ids {
		path := n.pathOf(g, id)
		if other, ok := seen[path]; ok {
			return nil, fmt.Errorf("%w: %q is both entity %d and entity %d", ErrDuplicatePath, path, other, id)
		}
		seen[path] = id
		out[id] = path
	}
	return out, nil
}

func (n *Names) pathOf(g Graph, id models.EntityID) string {
	segments := []string{n.names[id]}
	cur := id
	for {
		parent, ok := g.Parent(cur)
		if !ok {
			break
		}
		name, named := n.names[parent]
		if !named {
			break
		}
		segments = append(segments, name)
		cur = parent
	}
	slices.Reverse(segments)
	return strings.Join(segments, encoding.Separator)
}
