package model

import (
	"errors"
	"strings"
	"testing"
)

type person struct {
	Base
	ID      int64   `model:"id,pk"`
	Name    string  `model:"name,maxlen=30"`
	Age     int     `model:"age"`
	Comment *string `model:"comment,null"`
	Level   int     `model:"level,default=1"`
}

type team struct {
	Base
	ID      int64        `model:"id,pk"`
	Title   string       `model:"title"`
	Members Many[player] `model:"members,rel"`
}

type player struct {
	Base
	ID     int64     `model:"id,pk"`
	TeamID *int64    `model:"team_id,null"`
	Team   One[team] `model:"team,rel,fk=team_id"`
	Nick   string    `model:"nick"`
}

func strPtr(s string) *string { return &s }

func TestSchemaRegistry(t *testing.T) {
	t.Parallel()

	s := For[person]()
	if s.Name() != "person" {
		t.Fatalf("name = %q, want %q", s.Name(), "person")
	}
	want := []string{"age", "comment", "id", "level", "name", "pk"}
	if got := s.KnownNames(); strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("known = %v, want %v", got, want)
	}
	if got := s.Mandatory(); strings.Join(got, ",") != "age,name" {
		t.Fatalf("mandatory = %v, want [age name]", got)
	}
	if For[person]() != s {
		t.Fatal("schema rebuilt for the same type")
	}

	p := For[player]()
	if got := strings.Join(p.Mandatory(), ","); got != "nick" {
		t.Fatalf("player mandatory = %q, want %q", got, "nick")
	}
	if f, ok := p.Field(PK); !ok || f.Name != "id" {
		t.Fatalf("pk field = %+v, %v", f, ok)
	}
}

func TestSchemaRejectsBadDeclarations(t *testing.T) {
	t.Parallel()

	type dup struct {
		Base
		A string `model:"a"`
		B string `model:"a"`
	}
	type notRel struct {
		Base
		A string `model:"a,rel"`
	}
	type badKey struct {
		Base
		T One[team] `model:"t,rel,fk=t_id"`
	}
	for name, fn := range map[string]func(){
		"duplicate":    func() { For[dup]() },
		"not relation": func() { For[notRel]() },
		"unknown key":  func() { For[badKey]() },
	} {
		func() {
			defer func() {
				if recover() == nil {
					t.Errorf("%s: expected panic", name)
				}
			}()
			fn()
		}()
	}
}

func TestNewRejectsInvalidAttributes(t *testing.T) {
	t.Parallel()

	_, err := New[person](Fields{"name": "Name", "age": 17, "invalid": "Invalid", "other": 1})
	var iae *InvalidAttributeError
	if !errors.As(err, &iae) {
		t.Fatalf("err = %v, want InvalidAttributeError", err)
	}
	if got := strings.Join(iae.Names, ","); got != "invalid,other" {
		t.Fatalf("names = %q, want %q", got, "invalid,other")
	}
	if !strings.Contains(err.Error(), "person: invalid attributes: invalid,other") {
		t.Fatalf("message = %q", err.Error())
	}

	if _, err := New[player](Fields{"nick": "x", "bogus": true}); !errors.As(err, &iae) {
		t.Fatalf("player err = %v, want InvalidAttributeError", err)
	}
}

func TestNewExemptsPKAndPrivateNames(t *testing.T) {
	t.Parallel()

	p, err := New[person](Fields{"pk": 9, "name": "Name", "age": 33, "_cache": "x"})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if p.ID != 9 {
		t.Fatalf("id = %d, want 9", p.ID)
	}
	if v, ok := Get(p, "_cache"); !ok || v != "x" {
		t.Fatalf("_cache = %v, %v", v, ok)
	}
}

func TestNewRequiresMandatoryFields(t *testing.T) {
	t.Parallel()

	cases := []struct {
		fields Fields
		want   string
	}{
		{Fields{}, "missing mandatory attributes: age,name"},
		{Fields{"name": "Name"}, "missing mandatory attributes: age"},
		{Fields{"age": 20, "name": nil}, "missing mandatory attributes: name"},
	}
	for _, c := range cases {
		_, err := New[person](c.fields)
		var mme *MissingMandatoryFieldError
		if !errors.As(err, &mme) {
			t.Errorf("New(%v) err = %v, want MissingMandatoryFieldError", c.fields, err)
			continue
		}
		if !strings.HasSuffix(err.Error(), c.want) {
			t.Errorf("New(%v) = %q, want suffix %q", c.fields, err.Error(), c.want)
		}
	}
}

func TestNewDefaultedFieldIsOptional(t *testing.T) {
	t.Parallel()

	p, err := New[person](Fields{"name": "Name", "age": 40})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if p.Comment != nil {
		t.Fatalf("comment = %v, want nil", *p.Comment)
	}
}

func TestNewConvertsValues(t *testing.T) {
	t.Parallel()

	p, err := New[person](Fields{"name": "Name", "age": int64(33), "comment": "c"})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if p.Age != 33 || p.Comment == nil || *p.Comment != "c" {
		t.Fatalf("got %+v", p)
	}

	_, err = New[person](Fields{"name": 12, "age": 1})
	var ive *InvalidValueError
	if !errors.As(err, &ive) || ive.Name != "name" {
		t.Fatalf("err = %v, want InvalidValueError on name", err)
	}
}

func TestMainRecordEqualIgnoresIdentity(t *testing.T) {
	t.Parallel()

	first, _ := New[person](Fields{"id": 1, "name": "Name", "age": 33})
	second, _ := New[person](Fields{"id": 2, "name": "Name", "age": 33})

	eq, err := MainRecordEqual(first, second)
	if err != nil || !eq {
		t.Fatalf("equal = %v, %v; want true", eq, err)
	}
	if eq, _ := MainRecordEqual(first, first); !eq {
		t.Fatal("not reflexive")
	}
}

func TestMainRecordEqualDetectsDifferences(t *testing.T) {
	t.Parallel()

	first, _ := New[person](Fields{"id": 1, "name": "Name", "age": 20})
	second, _ := New[person](Fields{"id": 1, "name": "Name", "age": 42})
	if eq, _ := MainRecordEqual(first, second); eq {
		t.Fatal("records with different age compare equal")
	}

	third, _ := New[person](Fields{"name": "Name", "age": 20, "comment": "x"})
	if eq, _ := MainRecordEqual(first, third); eq {
		t.Fatal("records with different comment compare equal")
	}
}

func TestMainRecordEqualAcrossTypes(t *testing.T) {
	t.Parallel()

	p, _ := New[person](Fields{"name": "Name", "age": 20})
	q, _ := New[player](Fields{"nick": "n"})
	if _, err := MainRecordEqual(p, q); !errors.Is(err, ErrNotComparable) {
		t.Fatalf("err = %v, want ErrNotComparable", err)
	}
}

func TestMainRecordEqualSkipsRelations(t *testing.T) {
	t.Parallel()

	tm := &team{ID: 3, Title: "T"}
	a, _ := New[player](Fields{"nick": "n", "team": tm})
	b, _ := New[player](Fields{"nick": "n", "team_id": 3})
	if b.Team.Loaded() {
		t.Fatal("relation resolved by construction from key")
	}
	if eq, _ := MainRecordEqual(a, b); !eq {
		t.Fatal("relation state changed equality")
	}
	if b.Team.Loaded() {
		t.Fatal("comparison resolved a relation")
	}
}

func TestNewRejectsConflictingRelationKey(t *testing.T) {
	t.Parallel()

	tm := &team{ID: 1, Title: "T"}
	_, err := New[player](Fields{"nick": "n", "team": tm, "team_id": int64(2)})
	var ive *InvalidValueError
	if !errors.As(err, &ive) {
		t.Fatalf("err = %v, want InvalidValueError", err)
	}
	if ive.Name != "team_id" {
		t.Fatalf("name = %q, want team_id", ive.Name)
	}

	if _, err := New[player](Fields{"nick": "n", "team": nil, "team_id": 2}); !errors.As(err, &ive) {
		t.Fatalf("nil team with key: err = %v, want InvalidValueError", err)
	}

	pl, err := New[player](Fields{"nick": "n", "team": tm, "team_id": 1})
	if err != nil {
		t.Fatalf("agreeing key: %v", err)
	}
	if got, ok := pl.Team.Get(); !ok || got != tm || pl.TeamID == nil || *pl.TeamID != 1 {
		t.Fatalf("team = %v, team_id = %v", got, pl.TeamID)
	}
}

func TestSetFieldRestrictions(t *testing.T) {
	t.Parallel()

	p, _ := New[person](Fields{"name": "Name", "age": 33})

	err := SetField(p, "invalid_attribute", "some value")
	var are *AttributeRestrictionError
	if !errors.As(err, &are) {
		t.Fatalf("err = %v, want AttributeRestrictionError", err)
	}
	if err.Error() != "cannot set 'invalid_attribute' on person" {
		t.Fatalf("message = %q", err.Error())
	}

	if err := SetField(p, "_protected_attribute", "some value"); err != nil {
		t.Fatalf("private set: %v", err)
	}
	if v, ok := Get(p, "_protected_attribute"); !ok || v != "some value" {
		t.Fatalf("_protected_attribute = %v, %v", v, ok)
	}

	if err := SetField(p, "owner_id", 5); err != nil {
		t.Fatalf("key shadow set: %v", err)
	}
	if v, _ := Get(p, "owner_id"); v != 5 {
		t.Fatalf("owner_id = %v, want 5", v)
	}

	if err := SetField(p, "name", "Renamed"); err != nil || p.Name != "Renamed" {
		t.Fatalf("name set: %v, %q", err, p.Name)
	}
	if err := SetField(p, "comment", nil); err != nil || p.Comment != nil {
		t.Fatalf("comment clear: %v", err)
	}
}

func TestSetFieldIdentityIsImmutable(t *testing.T) {
	t.Parallel()

	p, _ := New[person](Fields{"name": "Name", "age": 33})
	if err := SetField(p, "id", 7); err != nil {
		t.Fatalf("first id set: %v", err)
	}
	var are *AttributeRestrictionError
	if err := SetField(p, "pk", 8); !errors.As(err, &are) {
		t.Fatalf("err = %v, want AttributeRestrictionError", err)
	}
	if p.ID != 7 {
		t.Fatalf("id = %d, want 7", p.ID)
	}
}

func TestSetFieldRelationKeepsKeyInSync(t *testing.T) {
	t.Parallel()

	tm := &team{ID: 4, Title: "T"}
	pl, _ := New[player](Fields{"nick": "n"})
	if err := SetField(pl, "team", tm); err != nil {
		t.Fatalf("set team: %v", err)
	}
	if pl.TeamID == nil || *pl.TeamID != 4 {
		t.Fatalf("team_id = %v, want 4", pl.TeamID)
	}
	if got, ok := pl.Team.Get(); !ok || got != tm {
		t.Fatal("team not resolved to the assigned value")
	}

	if err := SetField(pl, "team_id", 5); err != nil {
		t.Fatalf("set team_id: %v", err)
	}
	if pl.Team.Loaded() {
		t.Fatal("stale relation kept after key change")
	}

	var ive *InvalidValueError
	if err := SetField(pl, "team", &team{Title: "unsaved"}); !errors.As(err, &ive) {
		t.Fatalf("err = %v, want InvalidValueError", err)
	}
	if err := SetField(pl, "team", "nope"); !errors.As(err, &ive) {
		t.Fatalf("err = %v, want InvalidValueError", err)
	}
}

func TestAsDictExcludesUnresolvedRelations(t *testing.T) {
	t.Parallel()

	tm := &team{ID: 1, Title: "T"}
	d := AsDict(tm)
	if _, ok := d["members"]; ok {
		t.Fatal("unresolved relation in dict")
	}
	if _, ok := d[PK]; ok {
		t.Fatal("pk synonym in dict")
	}
	if d["id"] != int64(1) || d["title"] != "T" {
		t.Fatalf("dict = %v", d)
	}

	tm.Members.Set([]*player{{ID: 2, Nick: "n"}})
	if _, ok := AsDict(tm)["members"]; !ok {
		t.Fatal("resolved relation missing from dict")
	}

	p, _ := New[person](Fields{"name": "Name", "age": 1, "comment": "c"})
	pd := AsDict(p)
	if pd["comment"] != "c" || pd["level"] != 0 {
		t.Fatalf("person dict = %v", pd)
	}
}

func TestDisplay(t *testing.T) {
	t.Parallel()

	p, _ := New[person](Fields{"id": 1, "name": "Name", "age": 33})
	want := `person(id=1,name="Name",age=33,comment=nil,level=0)`
	if got := Display(p); got != want {
		t.Fatalf("display = %s, want %s", got, want)
	}

	tm := &team{ID: 2, Title: "T"}
	if got := Display(tm); got != `team(id=2,title="T",members=nil)` {
		t.Fatalf("team display = %s", got)
	}
	tm.Members.Set([]*player{{ID: 5}, {ID: 6}})
	if got := Display(tm); got != `team(id=2,title="T",members=[player#5 player#6])` {
		t.Fatalf("team display = %s", got)
	}

	var nilTeam *team
	if got := Display(nilTeam); got != "team(nil)" {
		t.Fatalf("nil display = %s", got)
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	p, _ := New[person](Fields{"name": strings.Repeat("x", 30), "age": 1})
	if err := Validate(p); err != nil {
		t.Fatalf("validate: %v", err)
	}
	p.Name = strings.Repeat("é", 31)
	var ve *ValidationError
	if err := Validate(p); !errors.As(err, &ve) || ve.Name != "name" {
		t.Fatalf("err = %v, want ValidationError on name", err)
	}
	p.Name = "ok"
	p.Comment = strPtr("any length is fine here")
	if err := Validate(p); err != nil {
		t.Fatalf("validate: %v", err)
	}
}
