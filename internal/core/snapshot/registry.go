package snapshot

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/zeusync/savestate/internal/core/models"
	"github.com/zeusync/savestate/internal/core/observability/log"
	"github.com/zeusync/savestate/pkg/encoding"
)

// Component describes how a component type T is saved as S and restored.
// C is an arbitrary conversion context, such as interner handles, passed to
// both directions.
type Component[T, S, C any] struct {
	// Name keys the type's records in the document. Unique per engine.
	Name string
	// PathName optionally derives a local name for the owning entity.
	PathName func(item *T) (string, bool)
	Context  C
	Save     func(item *T, scope SaveScope, ctx C) (S, error)
	Load     func(data S, scope *LoadScope, ctx C) (T, error)
}

// Resource describes a world level singleton R saved as S.
type Resource[R, S, C any] struct {
	Name    string
	Context C
	Save    func(item *R, scope SaveScope, ctx C) (S, error)
	Load    func(data S, scope *LoadScope, ctx C) (R, error)
}

// entry is the type erased form of a registered type.
type entry interface {
	name() string
	collectNames(g Graph, p Profile, names *Names) error
	extract(sc *SerializeContext, rep *reporter) ([]encoding.PathedValue, bool, error)
	inject(dc *DeserializeContext, codec encoding.Codec, records []encoding.PathedValue, rep *reporter) (int, error)
	reset(g Graph, p Profile) int
}

// Register adds a component type to the engine.
func Register[T, S, C any](e *Engine, c Component[T, S, C]) error {
	if c.Save == nil || c.Load == nil {
		return fmt.Errorf("%w: %s needs both Save and Load", ErrInvalidType, c.Name)
	}
	t := models.TypeOf[T]()
	if t.Kind() == reflect.Interface {
		return fmt.Errorf("%w: %s is an interface", ErrInvalidType, t)
	}
	if t == pathNameType {
		return fmt.Errorf("%w: %s is reserved for path names", ErrInvalidType, t)
	}
	return e.register(&componentEntry[T, S, C]{spec: c, rtype: t})
}

// RegisterCore adds a component type that is saved as itself.
func RegisterCore[T any](e *Engine, name string, pathName func(*T) (string, bool)) error {
	return Register(e, Component[T, T, struct{}]{
		Name:     name,
		PathName: pathName,
		Save:     func(item *T, _ SaveScope, _ struct{}) (T, error) { return *item, nil },
		Load:     func(data T, _ *LoadScope, _ struct{}) (T, error) { return data, nil },
	})
}

// RegisterMapped adds a component type that is saved through a context free
// pair of conversions.
func RegisterMapped[T, S any](e *Engine, name string, pathName func(*T) (string, bool), to func(*T) S, from func(S) T) error {
	return Register(e, Component[T, S, struct{}]{
		Name:     name,
		PathName: pathName,
		Save:     func(item *T, _ SaveScope, _ struct{}) (S, error) { return to(item), nil },
		Load:     func(data S, _ *LoadScope, _ struct{}) (T, error) { return from(data), nil },
	})
}

// RegisterResource adds a world resource type to the engine.
func RegisterResource[R, S, C any](e *Engine, r Resource[R, S, C]) error {
	if r.Save == nil || r.Load == nil {
		return fmt.Errorf("%w: %s needs both Save and Load", ErrInvalidType, r.Name)
	}
	t := models.TypeOf[R]()
	if t.Kind() == reflect.Interface {
		return fmt.Errorf("%w: %s is an interface", ErrInvalidType, t)
	}
	return e.register(&resourceEntry[R, S, C]{spec: r, rtype: t})
}

// RegisterCoreResource adds a resource type that is saved as itself.
func RegisterCoreResource[R any](e *Engine, name string) error {
	return RegisterResource(e, Resource[R, R, struct{}]{
		Name: name,
		Save: func(item *R, _ SaveScope, _ struct{}) (R, error) { return *item, nil },
		Load: func(data R, _ *LoadScope, _ struct{}) (R, error) { return data, nil },
	})
}

func validTypeName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: empty type name", ErrInvalidName)
	}
	return nil
}

type componentEntry[T, S, C any] struct {
	spec  Component[T, S, C]
	rtype reflect.Type
}

func (c *componentEntry[T, S, C]) name() string { return c.spec.Name }

func (c *componentEntry[T, S, C]) collectNames(g Graph, p Profile, names *Names) error {
	if c.spec.PathName == nil {
		return nil
	}
	for _, id := range g.EntitiesWith(c.rtype) {
		if !p.Selects(g, id) {
			continue
		}
		raw, ok := g.Component(id, c.rtype)
		if !ok {
			continue
		}
		item := raw.(T)
		name, ok := c.spec.PathName(&item)
		if !ok {
			continue
		}
		if err := names.Push(id, name); err != nil {
			return fmt.Errorf("%s: %w", c.spec.Name, err)
		}
	}
	return nil
}

func (c *componentEntry[T, S, C]) extract(sc *SerializeContext, rep *reporter) ([]encoding.PathedValue, bool, error) {
	codec := sc.profile.codec
	out := make([]encoding.PathedValue, 0)
	for _, id := range sc.graph.EntitiesWith(c.rtype) {
		if !sc.profile.Selects(sc.graph, id) {
			continue
		}
		raw, ok := sc.graph.Component(id, c.rtype)
		if !ok {
			continue
		}
		item := raw.(T)
		parent, err := sc.parentOf(id, c.spec.Name)
		if err != nil {
			return nil, false, err
		}
		data, err := c.spec.Save(&item, SaveScope{Entity: id, ctx: sc}, c.spec.Context)
		if err != nil {
			rep.report("convert failed", fmt.Errorf("%w: %s on entity %d: %v", ErrConvert, c.spec.Name, id, err),
				log.String("type", c.spec.Name), log.Entity(uint64(id)))
			continue
		}
		value, err := codec.EncodeValue(data)
		if err != nil {
			rep.report("encode failed", fmt.Errorf("%w: %s on entity %d: %v", ErrCodec, c.spec.Name, id, err),
				log.String("type", c.spec.Name), log.Entity(uint64(id)))
			continue
		}
		out = append(out, encoding.PathedValue{Parent: parent, Path: sc.PathOf(id), Value: value})
	}
	return out, true, nil
}

func (c *componentEntry[T, S, C]) inject(dc *DeserializeContext, codec encoding.Codec, records []encoding.PathedValue, rep *reporter) (int, error) {
	applied := 0
	for i, rec := range records {
		fields := []log.Field{log.String("type", c.spec.Name), log.Int("record", i), log.String("path", rec.Path.String())}
		var data S
		if err := codec.DecodeValue(rec.Value, &data); err != nil {
			rep.report("decode failed", fmt.Errorf("%w: %s record %d: %v", ErrCodec, c.spec.Name, i, err), fields...)
			continue
		}
		target, created := dc.fetchOrSpawn(rec.Path)
		item, err := c.spec.Load(data, &LoadScope{Entity: target, Graph: dc.graph, ctx: dc}, c.spec.Context)
		if err != nil {
			rep.report("convert failed", fmt.Errorf("%w: %s record %d: %v", ErrConvert, c.spec.Name, i, err), fields...)
			if created {
				dc.discard(rec.Path, target)
			}
			continue
		}
		if err = dc.graph.Insert(target, item); err != nil {
			rep.report("insert failed", fmt.Errorf("%s record %d: %w", c.spec.Name, i, err), fields...)
			if created {
				dc.discard(rec.Path, target)
			}
			continue
		}
		// The value is in place from here on; a failed attach is reported
		// but the record still counts as applied.
		applied++
		if !rec.Parent.IsRoot() {
			parent := dc.FetchOrSpawn(rec.Parent.Target())
			if err = dc.graph.SetParent(target, parent); err != nil {
				rep.report("attach failed", fmt.Errorf("%s record %d: %w", c.spec.Name, i, err), fields...)
			}
		}
	}
	return applied, nil
}

func (c *componentEntry[T, S, C]) reset(g Graph, p Profile) int {
	removed := 0
	for _, id := range g.EntitiesWith(c.rtype) {
		if p.Selects(g, id) && g.Remove(id, c.rtype) {
			removed++
		}
	}
	return removed
}

type resourceEntry[R, S, C any] struct {
	spec  Resource[R, S, C]
	rtype reflect.Type
}

func (r *resourceEntry[R, S, C]) name() string { return r.spec.Name }

func (r *resourceEntry[R, S, C]) collectNames(Graph, Profile, *Names) error { return nil }

func (r *resourceEntry[R, S, C]) extract(sc *SerializeContext, rep *reporter) ([]encoding.PathedValue, bool, error) {
	raw, ok := sc.graph.Resource(r.rtype)
	if !ok {
		return nil, false, nil
	}
	item := raw.(R)
	data, err := r.spec.Save(&item, SaveScope{ctx: sc}, r.spec.Context)
	if err != nil {
		rep.report("convert failed", fmt.Errorf("%w: resource %s: %v", ErrConvert, r.spec.Name, err), log.String("type", r.spec.Name))
		return nil, false, nil
	}
	value, err := sc.profile.codec.EncodeValue(data)
	if err != nil {
		rep.report("encode failed", fmt.Errorf("%w: resource %s: %v", ErrCodec, r.spec.Name, err), log.String("type", r.spec.Name))
		return nil, false, nil
	}
	return []encoding.PathedValue{{Parent: encoding.RootParent(), Path: encoding.UniquePath(), Value: value}}, true, nil
}

func (r *resourceEntry[R, S, C]) inject(dc *DeserializeContext, codec encoding.Codec, records []encoding.PathedValue, rep *reporter) (int, error) {
	switch len(records) {
	case 0:
		return 0, nil
	case 1:
	default:
		return 0, fmt.Errorf("%w: %s has %d records", ErrDuplicateResource, r.spec.Name, len(records))
	}
	var data S
	if err := codec.DecodeValue(records[0].Value, &data); err != nil {
		rep.report("decode failed", fmt.Errorf("%w: resource %s: %v", ErrCodec, r.spec.Name, err), log.String("type", r.spec.Name))
		return 0, nil
	}
	item, err := r.spec.Load(data, &LoadScope{Graph: dc.graph, ctx: dc}, r.spec.Context)
	if err != nil {
		rep.report("convert failed", fmt.Errorf("%w: resource %s: %v", ErrConvert, r.spec.Name, err), log.String("type", r.spec.Name))
		return 0, nil
	}
	dc.graph.SetResource(item)
	return 1, nil
}

func (r *resourceEntry[R, S, C]) reset(g Graph, _ Profile) int {
	if g.RemoveResource(r.rtype) {
		return 1
	}
	return 0
}
