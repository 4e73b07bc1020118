package openapi

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func userSchema(t *testing.T) *Map {
	return mustDecode(t, `{
		"type":"object",
		"properties":{
			"id":{"type":"integer"},
			"email":{"type":"string","description":"login"},
			"tags":{"type":"array","items":{"type":"string"}}
		},
		"required":["id","email"]
	}`)
}

func TestUniqueName(t *testing.T) {
	cases := []struct {
		base     string
		existing []string
		ignore   int
		want     string
	}{
		{"property", nil, -1, "property"},
		{"property", []string{"property"}, -1, "property2"},
		{"property", []string{"property", "property2", "property3"}, -1, "property4"},
		{"a", []string{"a", "b"}, 0, "a"},
		{"b", []string{"a", "b"}, 0, "b2"},
	}
	for _, tc := range cases {
		if got := UniqueName(tc.base, tc.existing, tc.ignore); got != tc.want {
			t.Fatalf("UniqueName(%q, %v, %d) = %q, want %q", tc.base, tc.existing, tc.ignore, got, tc.want)
		}
	}
}

func TestAddProperty(t *testing.T) {
	s := AddProperty(NewMap())
	s = AddProperty(s)
	if s.String("type") != "object" {
		t.Fatalf("type = %q", s.String("type"))
	}
	if diff := cmp.Diff([]string{"property", "property2"}, s.Map("properties").Keys()); diff != "" {
		t.Fatalf("properties (-want +got):\n%s", diff)
	}
	if !Equal(s.Map("properties").Map("property2"), MapOf("type", "string", "description", "")) {
		t.Fatalf("new property = %s", Text(s.Map("properties").Map("property2")))
	}
}

func TestRenamePropertySameName(t *testing.T) {
	s := MapOf("type", "object", "properties", MapOf("a", MapOf("type", "string")))
	got := RenameProperty(s, "a", "a")
	if !Equal(got, s) {
		t.Fatalf("rename to the same name changed the schema: %s", Text(got))
	}
	if RenameProperty(s, "a", "  a ") != s {
		t.Fatalf("trimmed same name must be a no-op")
	}
}

func TestRenameProperty(t *testing.T) {
	s := userSchema(t)
	got := RenameProperty(s, "email", "mail")
	if diff := cmp.Diff([]string{"id", "mail", "tags"}, got.Map("properties").Keys()); diff != "" {
		t.Fatalf("properties (-want +got):\n%s", diff)
	}
	if got.Map("properties").Map("mail") != s.Map("properties").Map("email") {
		t.Fatalf("renamed property value must be shared")
	}
	if diff := cmp.Diff([]string{"id", "mail"}, RequiredNames(got)); diff != "" {
		t.Fatalf("required (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"id", "email"}, RequiredNames(s)); diff != "" {
		t.Fatalf("input mutated (-want +got):\n%s", diff)
	}
}

func TestRenamePropertyCollisionAndBlank(t *testing.T) {
	s := userSchema(t)
	got := RenameProperty(s, "tags", "id")
	if diff := cmp.Diff([]string{"id", "email", "id2"}, got.Map("properties").Keys()); diff != "" {
		t.Fatalf("properties (-want +got):\n%s", diff)
	}
	blank := RenameProperty(s, "tags", "   ")
	if !blank.Map("properties").Has("property") {
		t.Fatalf("blank name must fall back: %v", blank.Map("properties").Keys())
	}
	if RenameProperty(s, "missing", "x") != s {
		t.Fatalf("unknown property must be a no-op")
	}
}

func TestRetypeProperty(t *testing.T) {
	s := userSchema(t)
	arr := RetypeProperty(s, "email", "array")
	email := arr.Map("properties").Map("email")
	if email.String("type") != "array" || !Equal(email.Map("items"), MapOf("type", "string")) {
		t.Fatalf("array property must carry items: %s", Text(email))
	}
	if email.String("description") != "login" {
		t.Fatalf("other fields must be kept")
	}

	str := RetypeProperty(s, "tags", "string")
	if str.Map("properties").Map("tags").Has("items") {
		t.Fatalf("non-array property must drop items")
	}

	keep := RetypeProperty(s, "tags", "array")
	if keep.Map("properties").Map("tags").Map("items") != s.Map("properties").Map("tags").Map("items") {
		t.Fatalf("existing items must be kept")
	}
}

func TestSetPropertyDescription(t *testing.T) {
	got := SetPropertyDescription(userSchema(t), "id", "primary key")
	if got.Map("properties").Map("id").String("description") != "primary key" {
		t.Fatalf("description not set: %s", Text(got))
	}
}

func TestToggleRequired(t *testing.T) {
	s := userSchema(t)
	if ToggleRequired(s, "id", true) != s {
		t.Fatalf("already required must be a no-op")
	}
	added := ToggleRequired(s, "tags", true)
	if diff := cmp.Diff([]string{"id", "email", "tags"}, RequiredNames(added)); diff != "" {
		t.Fatalf("required (-want +got):\n%s", diff)
	}
	cleared := ToggleRequired(ToggleRequired(s, "id", false), "email", false)
	if cleared.Has("required") {
		t.Fatalf("empty required list must be dropped: %s", Text(cleared))
	}
}

func TestDeleteProperty(t *testing.T) {
	got := DeleteProperty(userSchema(t), "email")
	if diff := cmp.Diff([]string{"id", "tags"}, got.Map("properties").Keys()); diff != "" {
		t.Fatalf("properties (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"id"}, RequiredNames(got)); diff != "" {
		t.Fatalf("required (-want +got):\n%s", diff)
	}
}

func TestOperationBodySchema(t *testing.T) {
	op := NewOperation()
	empty := OperationBodySchema(op, "application/json")
	if !Equal(empty, MapOf("type", "object", "properties", NewMap())) {
		t.Fatalf("default schema = %s", Text(empty))
	}
	op = SetOperationBodySchema(op, "application/json", AddProperty(empty))
	got := OperationBodySchema(op, "application/json")
	if diff := cmp.Diff([]string{"property"}, got.Map("properties").Keys()); diff != "" {
		t.Fatalf("properties (-want +got):\n%s", diff)
	}
	if !op.Has("responses") {
		t.Fatalf("other operation fields must be kept")
	}
}
