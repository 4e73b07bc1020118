package openapi

import (
	"strconv"
	"strings"
)

// PropertyTypes are the property types offered by the schema editor.
var PropertyTypes = []string{"string", "number", "integer", "boolean", "array", "object"}

const defaultPropertyName = "property"

// UniqueName returns base if no name in existing (other than the one at
// ignore) equals it, else the first of base2, base3, ... that is free. Pass a
// negative ignore to consider every name.
func UniqueName(base string, existing []string, ignore int) string {
	taken := make(map[string]bool, len(existing))
	for i, n := range existing {
		if i == ignore {
			continue
		}
		taken[n] = true
	}
	if !taken[base] {
		return base
	}
	for n := 2; ; n++ {
		candidate := base + strconv.Itoa(n)
		if !taken[candidate] {
			return candidate
		}
	}
}

// RequiredNames returns the schema's required list as strings.
func RequiredNames(schema *Map) []string {
	var out []string
	for _, v := range schema.Slice("required") {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// AddProperty appends a string property with a fresh name.
func AddProperty(schema *Map) *Map {
	props := PairsOf(schema.Map("properties"))
	name := UniqueName(defaultPropertyName, props.Keys(), -1)
	props = props.Append(name, MapOf("type", "string", "description", ""))
	return commitProperties(schema, props)
}

// RenameProperty renames oldName to the trimmed newName. A blank name falls
// back to "property"; a taken name gets a numeric suffix. A required entry
// follows the rename. Renaming to the same resolved name returns schema.
func RenameProperty(schema *Map, oldName, newName string) *Map {
	props := PairsOf(schema.Map("properties"))
	idx := props.Index(oldName)
	if idx < 0 {
		return schema
	}
	base := strings.TrimSpace(newName)
	if base == "" {
		base = defaultPropertyName
	}
	resolved := UniqueName(base, props.Keys(), idx)
	if resolved == oldName {
		return schema
	}
	out := commitProperties(schema, props.RenameAt(idx, resolved))

	req := RequiredNames(schema)
	if !contains(req, oldName) {
		return out
	}
	next := make([]string, 0, len(req))
	for _, r := range req {
		if r == oldName {
			r = resolved
		}
		if !contains(next, r) {
			next = append(next, r)
		}
	}
	return withRequired(out, next)
}

// RetypeProperty changes a property's type. Array properties always carry
// items (string items by default); every other type has none.
func RetypeProperty(schema *Map, name, typ string) *Map {
	props := PairsOf(schema.Map("properties"))
	idx := props.Index(name)
	if idx < 0 {
		return schema
	}
	prop, _ := props[idx].Value.(*Map)
	prop = prop.With("type", typ)
	switch {
	case typ == "array" && !prop.Has("items"):
		prop = prop.With("items", MapOf("type", "string"))
	case typ != "array" && prop.Has("items"):
		prop = prop.Without("items")
	}
	return commitProperties(schema, props.SetAt(idx, prop))
}

// SetPropertyDescription sets a property's description.
func SetPropertyDescription(schema *Map, name, description string) *Map {
	props := PairsOf(schema.Map("properties"))
	idx := props.Index(name)
	if idx < 0 {
		return schema
	}
	prop, _ := props[idx].Value.(*Map)
	return commitProperties(schema, props.SetAt(idx, prop.With("description", description)))
}

// ToggleRequired adds name to or removes it from the required list. An empty
// list is dropped from the schema.
func ToggleRequired(schema *Map, name string, required bool) *Map {
	req := RequiredNames(schema)
	if required && contains(req, name) {
		return schema
	}
	var next []string
	for _, r := range req {
		if r != name {
			next = append(next, r)
		}
	}
	if required {
		next = append(next, name)
	}
	return withRequired(schema, next)
}

// DeleteProperty removes a property and its required entry.
func DeleteProperty(schema *Map, name string) *Map {
	props := PairsOf(schema.Map("properties"))
	kept := make(Pairs, 0, len(props))
	for _, p := range props {
		if p.Key != name {
			kept = append(kept, p)
		}
	}
	out := commitProperties(schema, kept)
	if contains(RequiredNames(schema), name) {
		return ToggleRequired(out, name, false)
	}
	return out
}

func commitProperties(schema *Map, props Pairs) *Map {
	out := schema
	if out.String("type") != "object" {
		out = out.With("type", "object")
	}
	return out.With("properties", props.Commit())
}

func withRequired(schema *Map, names []string) *Map {
	if len(names) == 0 {
		return schema.Without("required")
	}
	items := make([]any, len(names))
	for i, n := range names {
		items[i] = n
	}
	return schema.With("required", items)
}

func contains(list []string, s string) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}

// OperationBodySchema returns the request body schema of op for mediaType,
// or an empty object schema when there is none.
func OperationBodySchema(op *Map, mediaType string) *Map {
	schema := op.Map("requestBody").Map("content").Map(mediaType).Map("schema")
	if schema == nil {
		return MapOf("type", "object", "properties", NewMap())
	}
	return schema
}

// SetOperationBodySchema stores schema as the request body schema of op for
// mediaType, creating the intermediate objects as needed.
func SetOperationBodySchema(op *Map, mediaType string, schema *Map) *Map {
	rb := op.Map("requestBody")
	content := rb.Map("content")
	media := content.Map(mediaType).With("schema", schema)
	rb = rb.With("content", content.With(mediaType, media))
	return op.With("requestBody", rb)
}
