package snapshot

import (
	"fmt"
	"reflect"

	"github.com/zeusync/savestate/internal/core/models"
	"github.com/zeusync/savestate/pkg/encoding"
)

// Profile selects which entities an engine saves, loads and resets, and the
// codec its documents are written with.
type Profile struct {
	name   string
	codec  encoding.Codec
	marker reflect.Type
}

// All selects every entity in the graph.
func All(codec encoding.Codec) Profile {
	return Profile{name: "all", codec: codec}
}

// WithMarker selects entities carrying a component of type M.
func WithMarker[M any](codec encoding.Codec) Profile {
	t := models.TypeOf[M]()
	return Profile{name: fmt.Sprintf("marker:%s", t), codec: codec, marker: t}
}

// Named returns a copy of p with a different name, which allows several
// engines with the same selection to coexist in logs and events.
func (p Profile) Named(name string) Profile {
	p.name = name
	return p
}

func (p Profile) Name() string { return p.name }

func (p Profile) Codec() encoding.Codec { return p.codec }

// IsAll reports whether the profile selects every entity.
func (p Profile) IsAll() bool { return p.marker == nil }

// Marker returns the marker type, or nil for an all-profile.
func (p Profile) Marker() reflect.Type { return p.marker }

// Selects reports whether id is in scope of the profile.
func (p Profile) Selects(g Graph, id models.EntityID) bool {
	if p.marker == nil {
		return g.Exists(id)
	}
	_, ok := g.Component(id, p.marker)
	return ok
}
