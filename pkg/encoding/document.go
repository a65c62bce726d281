package encoding

import (
	"fmt"
	"sort"
	"strings"
)

// Separator joins path names into a path.
const Separator = "::"

// PathKind discriminates the EntityPath union.
type PathKind uint8

const (
	// PathUnique always resolves to a fresh entity.
	PathUnique PathKind = iota
	// PathEntity is an entity id, only meaningful within one save operation.
	PathEntity
	// PathNamed is a stable `::` joined path.
	PathNamed
)

// EntityPath references a target entity in serialized data.
// It is comparable and used as a map key by the reconciler.
type EntityPath struct {
	Kind PathKind
	ID   uint64
	Path string
}

func UniquePath() EntityPath { return EntityPath{} }

func EntityPathOf(id uint64) EntityPath { return EntityPath{Kind: PathEntity, ID: id} }

func NamedPath(path string) EntityPath { return EntityPath{Kind: PathNamed, Path: path} }

func (p EntityPath) IsUnique() bool { return p.Kind == PathUnique }

// Name returns the last segment of a named path.
//
// Panics if p is not a named path.
func (p EntityPath) Name() string {
	name, ok := p.LastSegment()
	if !ok {
		panic(fmt.Sprintf("entity path %s does not contain a name", p))
	}
	return name
}

// LastSegment returns the last `::` delimited segment of a named path.
func (p EntityPath) LastSegment() (string, bool) {
	if p.Kind != PathNamed {
		return "", false
	}
	if i := strings.LastIndex(p.Path, Separator); i >= 0 {
		return p.Path[i+len(Separator):], true
	}
	return p.Path, true
}

func (p EntityPath) String() string {
	switch p.Kind {
	case PathEntity:
		return fmt.Sprintf("entity(%d)", p.ID)
	case PathNamed:
		return p.Path
	default:
		return "unique"
	}
}

// ParentKind discriminates the EntityParent union.
type ParentKind uint8

const (
	ParentRoot ParentKind = iota
	ParentEntity
	ParentNamed
)

// EntityParent references the parent slot of a serialized entity.
type EntityParent struct {
	Kind ParentKind
	ID   uint64
	Path string
}

func RootParent() EntityParent { return EntityParent{} }

func EntityParentOf(id uint64) EntityParent { return EntityParent{Kind: ParentEntity, ID: id} }

func NamedParent(path string) EntityParent { return EntityParent{Kind: ParentNamed, Path: path} }

func (p EntityParent) IsRoot() bool { return p.Kind == ParentRoot }

// Target converts the parent reference into the path used to fetch it.
//
// Panics for the root parent, which has no target.
func (p EntityParent) Target() EntityPath {
	switch p.Kind {
	case ParentEntity:
		return EntityPathOf(p.ID)
	case ParentNamed:
		return NamedPath(p.Path)
	default:
		panic("root is not a valid parent target")
	}
}

func (p EntityParent) String() string {
	if p.Kind == ParentRoot {
		return "root"
	}
	return p.Target().String()
}

// PathedValue is one stored component record.
type PathedValue struct {
	Parent EntityParent
	Path   EntityPath
	Value  Value
}

// Document maps a component type name to its records in extraction order.
type Document map[string][]PathedValue

// TypeNames returns the document's type names sorted.
func (d Document) TypeNames() []string {
	names := make([]string, 0, len(d))
	for name := range d {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the total number of records.
func (d Document) Len() int {
	n := 0
	for _, records := range d {
		n += len(records)
	}
	return n
}

// untagged is the human readable union form: nil, uint64 or string.
func (p EntityPath) untagged() any {
	switch p.Kind {
	case PathEntity:
		return p.ID
	case PathNamed:
		return p.Path
	default:
		return nil
	}
}

func (p EntityParent) untagged() any {
	switch p.Kind {
	case ParentEntity:
		return p.ID
	case ParentNamed:
		return p.Path
	default:
		return nil
	}
}

func pathFromUntagged(v any) EntityPath {
	switch t := v.(type) {
	case uint64:
		return EntityPathOf(t)
	case string:
		return NamedPath(t)
	default:
		return UniquePath()
	}
}

func parentFromUntagged(v any) EntityParent {
	switch t := v.(type) {
	case uint64:
		return EntityParentOf(t)
	case string:
		return NamedParent(t)
	default:
		return RootParent()
	}
}

// tagged is the binary union form.
type tagged struct {
	Kind uint8
	ID   uint64
	Path string
}

func (p EntityPath) tagged() tagged { return tagged{Kind: uint8(p.Kind), ID: p.ID, Path: p.Path} }

func (p EntityParent) tagged() tagged { return tagged{Kind: uint8(p.Kind), ID: p.ID, Path: p.Path} }

func (t tagged) path() (EntityPath, error) {
	if t.Kind > uint8(PathNamed) {
		return EntityPath{}, fmt.Errorf("%w: path tag %d", ErrMalformedDocument, t.Kind)
	}
	return EntityPath{Kind: PathKind(t.Kind), ID: t.ID, Path: t.Path}, nil
}

func (t tagged) parent() (EntityParent, error) {
	if t.Kind > uint8(ParentNamed) {
		return EntityParent{}, fmt.Errorf("%w: parent tag %d", ErrMalformedDocument, t.Kind)
	}
	return EntityParent{Kind: ParentKind(t.Kind), ID: t.ID, Path: t.Path}, nil
}
