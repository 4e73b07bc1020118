package openapi

import "strings"

// Methods is the canonical operation order inside a path item.
var Methods = []string{"get", "post", "put", "patch", "delete", "options", "head", "trace"}

// IsMethod reports whether m is one of Methods.
func IsMethod(m string) bool {
	for _, x := range Methods {
		if x == m {
			return true
		}
	}
	return false
}

type OperationRef struct {
	Path   string
	Method string
	// Operation is nil when the method key holds something other than an
	// object.
	Operation *Map
}

// Key is the "METHOD path" label used to select an operation.
func (r OperationRef) Key() string {
	return r.Method + " " + r.Path
}

// ListOperations enumerates operations in path order, then in Methods order
// inside each path. Null method entries are skipped.
func ListOperations(doc *Map) []OperationRef {
	paths := doc.Map("paths")
	out := make([]OperationRef, 0, paths.Len())
	paths.Range(func(p string, v any) bool {
		item, ok := v.(*Map)
		if !ok {
			return true
		}
		for _, m := range Methods {
			raw, ok := item.Get(m)
			if !ok || raw == nil {
				continue
			}
			op, _ := raw.(*Map)
			out = append(out, OperationRef{Path: p, Method: m, Operation: op})
		}
		return true
	})
	return out
}

// FindOperation returns the operation at (path, method).
func FindOperation(doc *Map, path, method string) (*Map, bool) {
	item := doc.Map("paths").Map(path)
	raw, ok := item.Get(method)
	if !ok || raw == nil {
		return nil, false
	}
	op, _ := raw.(*Map)
	return op, true
}

// SetOperation replaces the operation at (path, method) with update(current).
// current is an empty Map when no operation exists. Only the paths map, the
// path item and the operation entry are new; everything else is shared with
// doc.
func SetOperation(doc *Map, path, method string, update func(op *Map) *Map) *Map {
	paths := doc.Map("paths")
	item := paths.Map(path)
	cur := item.Map(method)
	if cur == nil {
		cur = NewMap()
	}
	next := update(cur)
	if next == nil {
		next = NewMap()
	}
	return doc.With("paths", paths.With(path, item.With(method, next)))
}

// PatchOperation sets every key of patch on the operation at (path, method).
func PatchOperation(doc *Map, path, method string, patch *Map) *Map {
	return SetOperation(doc, path, method, func(op *Map) *Map {
		return op.Merge(patch)
	})
}

// DeleteOperation removes the operation at (path, method). A path item left
// without any method by the removal is dropped from paths. Removing a missing
// operation changes nothing but still returns a fresh document sharing all
// values with doc.
func DeleteOperation(doc *Map, path, method string) *Map {
	paths := doc.Map("paths")
	item := paths.Map(path)
	if !item.Has(method) {
		return doc.With("paths", paths.clone(0))
	}
	item = item.Without(method)
	if !hasMethod(item) {
		return doc.With("paths", paths.Without(path))
	}
	return doc.With("paths", paths.With(path, item))
}

func hasMethod(item *Map) bool {
	for _, m := range Methods {
		if item.Has(m) {
			return true
		}
	}
	return false
}

// NewOperation is the operation inserted by AddOperation.
func NewOperation() *Map {
	return MapOf(
		"summary", "",
		"responses", MapOf("200", MapOf("description", "OK")),
	)
}

// AddOperation inserts NewOperation at (path, method) unless an operation is
// already there.
func AddOperation(doc *Map, path, method string) *Map {
	paths := doc.Map("paths")
	item := paths.Map(path)
	if v, ok := item.Get(method); !ok || v == nil {
		item = item.With(method, NewOperation())
	} else {
		item = item.With(method, v)
	}
	return doc.With("paths", paths.With(path, item))
}

// MoveMethod moves the operation at (path, from) to (path, to). An operation
// already at the destination is replaced.
func MoveMethod(doc *Map, path, from, to string) *Map {
	if to == "" || from == to {
		return doc
	}
	return move(doc, path, from, path, to)
}

// MovePath moves the operation at (from, method) to (to, method). An
// operation already at the destination is replaced.
func MovePath(doc *Map, from, to, method string) *Map {
	if to == "" || from == to {
		return doc
	}
	return move(doc, from, method, to, method)
}

func move(doc *Map, fromPath, fromMethod, toPath, toMethod string) *Map {
	cur, ok := FindOperation(doc, fromPath, fromMethod)
	if !ok || cur == nil {
		cur = NewMap()
	}
	next := DeleteOperation(doc, fromPath, fromMethod)
	next = AddOperation(next, toPath, toMethod)
	return SetOperation(next, toPath, toMethod, func(*Map) *Map { return cur })
}

// SplitTags parses a comma separated tag list, dropping blanks.
func SplitTags(s string) []any {
	out := []any{}
	for _, part := range strings.Split(s, ",") {
		if t := strings.TrimSpace(part); t != "" {
			out = append(out, t)
		}
	}
	return out
}
