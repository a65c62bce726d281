package snapshot

import (
	"reflect"

	"github.com/zeusync/savestate/internal/core/models"
)

// Graph is the live entity graph a snapshot is taken from and applied to.
// *models.World satisfies it.
type Graph interface {
	Spawn(components ...any) models.EntityID
	Despawn(id models.EntityID) bool
	Exists(id models.EntityID) bool
	Parent(id models.EntityID) (models.EntityID, bool)
	SetParent(child, parent models.EntityID) error

	Insert(id models.EntityID, value any) error
	Component(id models.EntityID, t reflect.Type) (any, bool)
	Remove(id models.EntityID, t reflect.Type) bool
	EntitiesWith(t reflect.Type) []models.EntityID

	SetResource(value any)
	Resource(t reflect.Type) (any, bool)
	RemoveResource(t reflect.Type) bool
}

var _ Graph = (*models.World)(nil)

// PathName is the local name of an entity. It can be attached to any entity,
// whether or not it carries registered components.
type PathName string

var pathNameType = models.TypeOf[PathName]()
