package model

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
)

// relation is implemented by association holders. A relation is never
// resolved by the model package itself; the storage layer fills it.
type relation interface {
	assign(v any) error
	loaded() bool
	value() any
	key() (any, error)
	reset()
	display() string
}

// One is a lazily resolved to-one association.
type One[T any] struct {
	v  *T
	ok bool
}

// Get returns the related entity and whether the association is resolved.
// A resolved association may hold nil.
func (o *One[T]) Get() (*T, bool) { return o.v, o.ok }

// Set marks the association resolved to v.
func (o *One[T]) Set(v *T) { o.v, o.ok = v, true }

// Loaded reports whether the association is resolved.
func (o *One[T]) Loaded() bool { return o.ok }

func (o *One[T]) assign(v any) error {
	switch x := v.(type) {
	case nil:
		o.Set(nil)
	case *T:
		o.Set(x)
	default:
		return fmt.Errorf("want *%s", reflect.TypeOf((*T)(nil)).Elem().Name())
	}
	return nil
}

func (o *One[T]) loaded() bool { return o.ok }

func (o *One[T]) value() any {
	if o.v == nil {
		return nil
	}
	return o.v
}

func (o *One[T]) key() (any, error) {
	if o.v == nil {
		return nil, nil
	}
	id, ok := pkValue(reflect.ValueOf(o.v).Elem())
	if !ok || id.IsZero() {
		return nil, errors.New("related entity has no identity")
	}
	return id.Interface(), nil
}

func (o *One[T]) reset() { o.v, o.ok = nil, false }

func (o *One[T]) display() string {
	if o.v == nil {
		return "nil"
	}
	return ref(reflect.ValueOf(o.v).Elem())
}

// Many is a lazily resolved to-many association.
type Many[T any] struct {
	vs []*T
	ok bool
}

// All returns the related entities and whether the association is resolved.
func (m *Many[T]) All() ([]*T, bool) { return m.vs, m.ok }

// Set marks the association resolved to vs.
func (m *Many[T]) Set(vs []*T) { m.vs, m.ok = vs, true }

// Loaded reports whether the association is resolved.
func (m *Many[T]) Loaded() bool { return m.ok }

func (m *Many[T]) assign(any) error {
	return errors.New("reverse relations are read-only")
}

func (m *Many[T]) loaded() bool { return m.ok }

func (m *Many[T]) value() any { return m.vs }

func (m *Many[T]) key() (any, error) { return nil, nil }

func (m *Many[T]) reset() { m.vs, m.ok = nil, false }

func (m *Many[T]) display() string {
	if !m.ok {
		return "nil"
	}
	refs := make([]string, len(m.vs))
	for i, v := range m.vs {
		if v == nil {
			refs[i] = "nil"
			continue
		}
		refs[i] = ref(reflect.ValueOf(v).Elem())
	}
	return "[" + strings.Join(refs, " ") + "]"
}

func pkValue(v reflect.Value) (reflect.Value, bool) {
	s := schemaOf(v.Type())
	f, ok := s.PrimaryKey()
	if !ok {
		return reflect.Value{}, false
	}
	return v.FieldByIndex(f.Index), true
}

func ref(v reflect.Value) string {
	id, ok := pkValue(v)
	if !ok {
		return v.Type().Name()
	}
	return fmt.Sprintf("%s#%v", v.Type().Name(), id.Interface())
}
