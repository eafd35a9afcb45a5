// Package model is a strict-entity layer for persistent records.
//
// Entity types are plain structs that embed Base and declare their stored
// fields with a `model:"name,options"` tag. The per-type field registry is
// built once from those tags (see Schema). Construction rejects unknown
// fields and requires every mandatory field; later writes go through
// SetField, which only accepts declared fields, `_`-prefixed private names
// and `_id` key shadows.
package model

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Fields maps field names to values.
type Fields map[string]any

// Base holds the attribute bag of an entity. Entity types embed it.
type Base struct {
	attrs map[string]any
}

func (b *Base) base() *Base { return b }

func (b *Base) set(name string, v any) {
	if b.attrs == nil {
		b.attrs = make(map[string]any)
	}
	b.attrs[name] = v
}

func (b *Base) get(name string) (any, bool) {
	v, ok := b.attrs[name]
	return v, ok
}

// Entity is a pointer to a struct that embeds Base.
type Entity interface {
	base() *Base
}

// New constructs an in-memory T from fields after running the schema checks.
// Nothing is persisted.
func New[T any, P interface {
	*T
	Entity
}](fields Fields) (P, error) {
	s := For[T]()
	if err := s.Check(fields); err != nil {
		return nil, err
	}
	e := P(new(T))
	rv := reflect.ValueOf(e).Elem()
	for _, name := range sortedKeys(fields) {
		if err := s.assign(rv, e.base(), name, fields[name], false); err != nil {
			return nil, err
		}
	}
	if err := s.checkKeys(rv, fields); err != nil {
		return nil, err
	}
	return e, nil
}

// checkKeys refuses a relation supplied together with a key field that
// names a different entity.
func (s *Schema) checkKeys(rv reflect.Value, fields Fields) error {
	for _, f := range s.fields {
		if !f.Relation || f.Source == "" {
			continue
		}
		if _, ok := fields[f.Name]; !ok {
			continue
		}
		keyValue, ok := fields[f.Source]
		if !ok {
			continue
		}
		rel := rv.FieldByIndex(f.Index).Addr().Interface().(relation)
		key, err := rel.key()
		if err != nil {
			return &InvalidValueError{Type: s.name, Name: f.Name, Value: fields[f.Name], Err: err}
		}
		src, _ := s.Field(f.Source)
		if !sameKey(key, scalar(rv.FieldByIndex(src.Index))) {
			return &InvalidValueError{
				Type:  s.name,
				Name:  f.Source,
				Value: keyValue,
				Err:   fmt.Errorf("conflicts with %s=%s", f.Name, rel.display()),
			}
		}
	}
	return nil
}

func sameKey(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	av, bv := reflect.ValueOf(a), reflect.ValueOf(b)
	if !bv.Type().ConvertibleTo(av.Type()) {
		return false
	}
	return av.Interface() == bv.Convert(av.Type()).Interface()
}

// SetField assigns one field of e. Names outside the registry are refused
// unless they are private (`_x`) or key shadows (`x_id`). A primary key that
// already holds an identity cannot be reassigned.
func SetField(e Entity, name string, value any) error {
	s := SchemaOf(e)
	rv := reflect.ValueOf(e).Elem()

	switch {
	case isPrivate(name):
		e.base().set(name, value)
		return nil
	case s.Known(name):
		f, _ := s.Field(name)
		if f.PrimaryKey && !rv.FieldByIndex(f.Index).IsZero() {
			return &AttributeRestrictionError{Type: s.name, Name: name, Reason: "identity is immutable"}
		}
		return s.assign(rv, e.base(), name, value, true)
	case isKeyShadow(name):
		e.base().set(name, value)
		return nil
	}
	return &AttributeRestrictionError{Type: s.name, Name: name}
}

// Get reads a declared field, a resolved relation or a bag attribute.
func Get(e Entity, name string) (any, bool) {
	s := SchemaOf(e)
	f, ok := s.Field(name)
	if !ok {
		return e.base().get(name)
	}
	fv := reflect.ValueOf(e).Elem().FieldByIndex(f.Index)
	if f.Relation {
		rel := fv.Addr().Interface().(relation)
		if !rel.loaded() {
			return nil, false
		}
		return rel.value(), true
	}
	return scalar(fv), true
}

// AsDict returns the declared fields of e. Relations that are not resolved
// are left out.
func AsDict(e Entity) Fields {
	s := SchemaOf(e)
	rv := reflect.ValueOf(e).Elem()
	out := make(Fields, len(s.fields))
	for _, f := range s.fields {
		fv := rv.FieldByIndex(f.Index)
		if f.Relation {
			rel := fv.Addr().Interface().(relation)
			if rel.loaded() {
				out[f.Name] = rel.value()
			}
			continue
		}
		out[f.Name] = scalar(fv)
	}
	return out
}

// MainRecordEqual compares a and b field by field, ignoring identity and
// relations. Relations are neither compared nor resolved.
func MainRecordEqual(a, b Entity) (bool, error) {
	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	if a == nil || b == nil || va.Type() != vb.Type() || va.IsNil() || vb.IsNil() {
		return false, ErrNotComparable
	}
	s := SchemaOf(a)
	va, vb = va.Elem(), vb.Elem()
	for _, f := range s.fields {
		if f.PrimaryKey || f.Relation || f.Name == "id" {
			continue
		}
		if !reflect.DeepEqual(scalar(va.FieldByIndex(f.Index)), scalar(vb.FieldByIndex(f.Index))) {
			return false, nil
		}
	}
	return true, nil
}

// Display renders e as TypeName(field=value,...) in registry order.
func Display(e Entity) (out string) {
	v := reflect.ValueOf(e)
	if e == nil {
		return "nil"
	}
	t := v.Type()
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if v.IsNil() {
		return t.Name() + "(nil)"
	}
	defer func() {
		if recover() != nil {
			out = t.Name() + "(?)"
		}
	}()

	s := schemaOf(t)
	rv := v.Elem()
	parts := make([]string, 0, len(s.fields))
	for _, f := range s.fields {
		fv := rv.FieldByIndex(f.Index)
		var val string
		if f.Relation {
			val = fv.Addr().Interface().(relation).display()
		} else {
			val = format(scalar(fv))
		}
		parts = append(parts, f.Name+"="+val)
	}
	return t.Name() + "(" + strings.Join(parts, ",") + ")"
}

// Validate checks stored values against the field constraints.
func Validate(e Entity) error {
	s := SchemaOf(e)
	rv := reflect.ValueOf(e).Elem()
	for _, f := range s.fields {
		if f.Relation {
			continue
		}
		v := scalar(rv.FieldByIndex(f.Index))
		if v == nil && f.Required() {
			return &ValidationError{Type: s.name, Name: f.Name, Reason: "must not be null"}
		}
		if str, ok := v.(string); ok && f.MaxLen > 0 {
			if n := utf8.RuneCountInString(str); n > f.MaxLen {
				return &ValidationError{
					Type:   s.name,
					Name:   f.Name,
					Reason: fmt.Sprintf("length %d exceeds %d", n, f.MaxLen),
				}
			}
		}
	}
	return nil
}

func (s *Schema) assign(rv reflect.Value, b *Base, name string, v any, resetRelations bool) error {
	if isPrivate(name) {
		b.set(name, v)
		return nil
	}
	f, ok := s.Field(name)
	if !ok {
		if isKeyShadow(name) {
			b.set(name, v)
			return nil
		}
		return &AttributeRestrictionError{Type: s.name, Name: name}
	}

	fv := rv.FieldByIndex(f.Index)
	if f.Relation {
		rel := fv.Addr().Interface().(relation)
		if err := rel.assign(v); err != nil {
			return &InvalidValueError{Type: s.name, Name: name, Value: v, Err: err}
		}
		if f.Source == "" {
			return nil
		}
		key, err := rel.key()
		if err != nil {
			rel.reset()
			return &InvalidValueError{Type: s.name, Name: name, Value: v, Err: err}
		}
		src, _ := s.Field(f.Source)
		if err := setValue(rv.FieldByIndex(src.Index), key); err != nil {
			rel.reset()
			return &InvalidValueError{Type: s.name, Name: f.Source, Value: key, Err: err}
		}
		return nil
	}

	if err := setValue(fv, v); err != nil {
		return &InvalidValueError{Type: s.name, Name: name, Value: v, Err: err}
	}
	if resetRelations {
		for _, r := range s.fields {
			if r.Relation && r.Source == f.Name {
				rv.FieldByIndex(r.Index).Addr().Interface().(relation).reset()
			}
		}
	}
	return nil
}

func setValue(dst reflect.Value, v any) error {
	if isNil(v) {
		switch dst.Kind() {
		case reflect.Pointer, reflect.Interface, reflect.Slice, reflect.Map:
			dst.SetZero()
			return nil
		}
		return errors.New("field is not nullable")
	}

	src := reflect.ValueOf(v)
	for src.Kind() == reflect.Pointer {
		src = src.Elem()
	}
	if dst.Kind() == reflect.Pointer {
		elem := reflect.New(dst.Type().Elem())
		if err := setValue(elem.Elem(), src.Interface()); err != nil {
			return err
		}
		dst.Set(elem)
		return nil
	}
	if src.Type().AssignableTo(dst.Type()) {
		dst.Set(src)
		return nil
	}
	if cv, ok := convert(src, dst.Type()); ok {
		dst.Set(cv)
		return nil
	}
	return fmt.Errorf("want %s", dst.Type())
}

func convert(src reflect.Value, dst reflect.Type) (reflect.Value, bool) {
	sk, dk := src.Kind(), dst.Kind()
	switch {
	case isInt(sk) && isInt(dk):
		if overflows(src, dst) {
			return reflect.Value{}, false
		}
		return src.Convert(dst), true
	case sk == reflect.String && dk == reflect.String,
		sk == reflect.Bool && dk == reflect.Bool,
		isFloat(sk) && isFloat(dk),
		isInt(sk) && isFloat(dk):
		return src.Convert(dst), true
	}
	return reflect.Value{}, false
}

func overflows(src reflect.Value, dst reflect.Type) bool {
	zero := reflect.Zero(dst)
	if isSigned(src.Kind()) {
		n := src.Int()
		if isSigned(dst.Kind()) {
			return zero.OverflowInt(n)
		}
		return n < 0 || zero.OverflowUint(uint64(n))
	}
	n := src.Uint()
	if isSigned(dst.Kind()) {
		return n > math.MaxInt64 || zero.OverflowInt(int64(n))
	}
	return zero.OverflowUint(n)
}

func isSigned(k reflect.Kind) bool {
	return k >= reflect.Int && k <= reflect.Int64
}

func isInt(k reflect.Kind) bool {
	return isSigned(k) || (k >= reflect.Uint && k <= reflect.Uintptr)
}

func isFloat(k reflect.Kind) bool {
	return k == reflect.Float32 || k == reflect.Float64
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Slice, reflect.Map:
		return rv.IsNil()
	}
	return false
}

// scalar unwraps nullable fields: nil pointers become nil.
func scalar(fv reflect.Value) any {
	if fv.Kind() == reflect.Pointer {
		if fv.IsNil() {
			return nil
		}
		return fv.Elem().Interface()
	}
	return fv.Interface()
}

func format(v any) string {
	switch x := v.(type) {
	case nil:
		return "nil"
	case string:
		return strconv.Quote(x)
	}
	return fmt.Sprint(v)
}

func sortedKeys(fields Fields) []string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
