package openapi

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Duongo16/vtm-apidocs/specs"
)

// Template is a starter document shipped with the binary.
type Template struct {
	Name string
	Doc  *Map
}

// Templates decodes every embedded starter document, sorted by name.
func Templates() ([]Template, error) {
	entries, err := fs.Glob(specs.FS, "*.json")
	if err != nil {
		return nil, fmt.Errorf("list embedded templates: %w", err)
	}
	sort.Strings(entries)

	var out []Template
	for _, filename := range entries {
		b, err := fs.ReadFile(specs.FS, filename)
		if err != nil {
			return nil, fmt.Errorf("read embedded template %q: %w", filename, err)
		}
		doc, err := Decode(b)
		if err != nil {
			return nil, fmt.Errorf("parse embedded template %q: %w", filename, err)
		}
		name := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
		out = append(out, Template{Name: name, Doc: EnsureShape(doc)})
	}
	return out, nil
}

// TemplateByName returns the starter document called name.
func TemplateByName(name string) (*Map, error) {
	all, err := Templates()
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(all))
	for _, t := range all {
		if t.Name == name {
			return t.Doc, nil
		}
		names = append(names, t.Name)
	}
	return nil, fmt.Errorf("unknown template %q (available: %s)", name, strings.Join(names, ", "))
}
