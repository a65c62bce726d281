package models

import "reflect"

// TypeOf returns the key components of type T are stored under.
func TypeOf[T any]() reflect.Type {
	return reflect.TypeFor[T]()
}

func Insert[T any](w *World, id EntityID, value T) error {
	return w.Insert(id, value)
}

func Get[T any](w *World, id EntityID) (T, bool) {
	v, ok := w.Component(id, TypeOf[T]())
	if !ok {
		var zero T
		return zero, false
	}
	return v.(T), true
}

func Has[T any](w *World, id EntityID) bool {
	_, ok := w.Component(id, TypeOf[T]())
	return ok
}

func Remove[T any](w *World, id EntityID) bool {
	return w.Remove(id, TypeOf[T]())
}

// Query returns the entities carrying T, ascending.
func Query[T any](w *World) []EntityID {
	return w.EntitiesWith(TypeOf[T]())
}

func Count[T any](w *World) int {
	return len(Query[T](w))
}

func SetResource[T any](w *World, value T) {
	w.SetResource(value)
}

func GetResource[T any](w *World) (T, bool) {
	v, ok := w.Resource(TypeOf[T]())
	if !ok {
		var zero T
		return zero, false
	}
	return v.(T), true
}
