package model

import (
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// PK is the primary-key synonym accepted wherever a field name is.
const PK = "pk"

const tagName = "model"

// Field is one declared field of an entity type.
type Field struct {
	Name       string
	GoName     string
	Index      []int
	Type       reflect.Type
	PrimaryKey bool
	Null       bool
	Default    string
	HasDefault bool
	MaxLen     int
	Relation   bool
	// Source is the shadow field holding the key of a to-one relation.
	Source string
}

// Required reports whether the field must carry a value when stored.
func (f Field) Required() bool {
	return !f.PrimaryKey && !f.Null && !f.Relation
}

// Mandatory reports whether the field must be supplied on construction.
func (f Field) Mandatory() bool {
	return f.Required() && !f.HasDefault
}

// Schema is the field registry of one entity type.
type Schema struct {
	name      string
	fields    []Field
	index     map[string]int
	known     map[string]struct{}
	mandatory []string
	pk        int
}

var (
	schemas     sync.Map // reflect.Type -> *Schema
	relationTyp = reflect.TypeOf((*relation)(nil)).Elem()
)

// For returns the schema of T, building it on first use.
// It panics if T declares its fields inconsistently.
func For[T any]() *Schema {
	return schemaOf(reflect.TypeOf((*T)(nil)).Elem())
}

// SchemaOf returns the schema of the entity e points to.
func SchemaOf(e Entity) *Schema {
	return schemaOf(reflect.TypeOf(e))
}

func schemaOf(t reflect.Type) *Schema {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if s, ok := schemas.Load(t); ok {
		return s.(*Schema)
	}
	s, err := build(t)
	if err != nil {
		panic(err)
	}
	actual, _ := schemas.LoadOrStore(t, s)
	return actual.(*Schema)
}

func build(t reflect.Type) (*Schema, error) {
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("model: %s is not a struct", t)
	}
	s := &Schema{
		name:  t.Name(),
		index: make(map[string]int),
		known: map[string]struct{}{PK: {}},
		pk:    -1,
	}

	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		tag, ok := sf.Tag.Lookup(tagName)
		if !ok || tag == "-" || !sf.IsExported() {
			continue
		}
		f, err := parseField(sf, tag)
		if err != nil {
			return nil, fmt.Errorf("model: %s.%s: %w", s.name, sf.Name, err)
		}
		if _, dup := s.index[f.Name]; dup || f.Name == PK {
			return nil, fmt.Errorf("model: %s: duplicate field %q", s.name, f.Name)
		}
		if f.PrimaryKey {
			if s.pk >= 0 {
				return nil, fmt.Errorf("model: %s: more than one primary key", s.name)
			}
			s.pk = len(s.fields)
		}
		s.index[f.Name] = len(s.fields)
		s.known[f.Name] = struct{}{}
		s.fields = append(s.fields, f)
	}

	for _, f := range s.fields {
		if f.Source == "" {
			continue
		}
		src, ok := s.index[f.Source]
		if !ok || s.fields[src].Relation {
			return nil, fmt.Errorf("model: %s.%s: unknown key field %q", s.name, f.Name, f.Source)
		}
	}

	for _, f := range s.fields {
		if f.Mandatory() {
			s.mandatory = append(s.mandatory, f.Name)
		}
	}
	sort.Strings(s.mandatory)
	return s, nil
}

func parseField(sf reflect.StructField, tag string) (Field, error) {
	parts := strings.Split(tag, ",")
	f := Field{
		Name:   strings.TrimSpace(parts[0]),
		GoName: sf.Name,
		Index:  sf.Index,
		Type:   sf.Type,
	}
	if f.Name == "" {
		f.Name = strings.ToLower(sf.Name)
	}
	for _, opt := range parts[1:] {
		key, val, _ := strings.Cut(strings.TrimSpace(opt), "=")
		switch key {
		case "pk":
			f.PrimaryKey = true
		case "null":
			f.Null = true
		case "default":
			f.Default, f.HasDefault = val, true
		case "maxlen":
			n, err := strconv.Atoi(val)
			if err != nil || n <= 0 {
				return Field{}, fmt.Errorf("bad maxlen %q", val)
			}
			f.MaxLen = n
		case "rel":
			f.Relation = true
		case "fk":
			f.Source = val
		default:
			return Field{}, fmt.Errorf("unknown option %q", key)
		}
	}
	if f.Relation && !reflect.PointerTo(sf.Type).Implements(relationTyp) {
		return Field{}, fmt.Errorf("%s is not a relation type", sf.Type)
	}
	if f.Source != "" && !f.Relation {
		return Field{}, fmt.Errorf("fk requires rel")
	}
	return f, nil
}

// Name is the entity type name.
func (s *Schema) Name() string { return s.name }

// Fields returns the declared fields in registry order.
func (s *Schema) Fields() []Field {
	out := make([]Field, len(s.fields))
	copy(out, s.fields)
	return out
}

// Field looks a field up by name; PK resolves to the primary key.
func (s *Schema) Field(name string) (Field, bool) {
	if name == PK {
		return s.PrimaryKey()
	}
	i, ok := s.index[name]
	if !ok {
		return Field{}, false
	}
	return s.fields[i], true
}

// PrimaryKey returns the primary-key field, if one is declared.
func (s *Schema) PrimaryKey() (Field, bool) {
	if s.pk < 0 {
		return Field{}, false
	}
	return s.fields[s.pk], true
}

// Known reports whether name is a declared field or the PK synonym.
func (s *Schema) Known(name string) bool {
	_, ok := s.known[name]
	return ok
}

// KnownNames returns the known-field set, sorted.
func (s *Schema) KnownNames() []string {
	out := make([]string, 0, len(s.known))
	for name := range s.known {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Mandatory returns the names that must be supplied on construction, sorted.
func (s *Schema) Mandatory() []string {
	out := make([]string, len(s.mandatory))
	copy(out, s.mandatory)
	return out
}

// Check runs the construction checks against a set of field values.
func (s *Schema) Check(fields Fields) error {
	var invalid []string
	for name := range fields {
		if name == PK || isPrivate(name) {
			continue
		}
		if !s.Known(name) {
			invalid = append(invalid, name)
		}
	}
	if len(invalid) > 0 {
		sort.Strings(invalid)
		return &InvalidAttributeError{Type: s.name, Names: invalid}
	}

	var missing []string
	for _, name := range s.mandatory {
		if v, ok := fields[name]; !ok || isNil(v) {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return &MissingMandatoryFieldError{Type: s.name, Names: missing}
	}
	return nil
}

func isPrivate(name string) bool {
	return strings.HasPrefix(name, "_")
}

func isKeyShadow(name string) bool {
	return strings.HasSuffix(name, "_id")
}
