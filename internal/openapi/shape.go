package openapi

const DefaultOpenAPIVersion = "3.0.3"

// EnsureShape returns a document that has every top-level field the editor
// relies on. Only missing keys are filled in; present values are kept as they
// are, whatever their kind. When nothing is missing the input itself is
// returned. A non-object input yields a document made of defaults only.
func EnsureShape(v any) *Map {
	doc, _ := v.(*Map)
	out := doc
	if out == nil {
		out = NewMap()
	}
	for _, f := range shapeDefaults {
		if !out.Has(f.key) {
			out = out.With(f.key, f.value())
		}
	}
	return out
}

var shapeDefaults = []struct {
	key   string
	value func() any
}{
	{"openapi", func() any { return DefaultOpenAPIVersion }},
	{"info", func() any { return MapOf("title", "Untitled API", "version", "1.0.0") }},
	{"paths", func() any { return NewMap() }},
	{"components", func() any { return NewMap() }},
	{"servers", func() any { return []any{} }},
	{"tags", func() any { return []any{} }},
}
