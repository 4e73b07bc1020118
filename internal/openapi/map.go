package openapi

// Map is an insertion-ordered JSON object.
//
// A Map is treated as an immutable value once it has been handed out: With
// and Without return a new Map that copies only the key index and shares
// every value with the receiver. Pointer identity therefore tells callers
// whether a subtree was touched by an edit.
//
// The zero value and the nil *Map are both valid empty objects for reading.
type Map struct {
	keys   []string
	values map[string]any
}

// NewMap returns an empty Map.
func NewMap() *Map {
	return &Map{values: map[string]any{}}
}

// MapOf builds a Map from alternating key/value arguments. It panics on an
// odd argument count or a non-string key; it is meant for literals.
func MapOf(kv ...any) *Map {
	if len(kv)%2 != 0 {
		panic("openapi: MapOf needs key/value pairs")
	}
	m := &Map{keys: make([]string, 0, len(kv)/2), values: make(map[string]any, len(kv)/2)}
	for i := 0; i < len(kv); i += 2 {
		k, ok := kv[i].(string)
		if !ok {
			panic("openapi: MapOf key must be a string")
		}
		m.set(k, kv[i+1])
	}
	return m
}

func (m *Map) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

// Keys returns the keys in insertion order. The slice is a copy.
func (m *Map) Keys() []string {
	if m == nil {
		return nil
	}
	return append([]string(nil), m.keys...)
}

func (m *Map) Get(key string) (any, bool) {
	if m == nil {
		return nil, false
	}
	v, ok := m.values[key]
	return v, ok
}

func (m *Map) Has(key string) bool {
	_, ok := m.Get(key)
	return ok
}

// Map returns the value at key if it is an object, else nil.
func (m *Map) Map(key string) *Map {
	v, _ := m.Get(key)
	sub, _ := v.(*Map)
	return sub
}

// String returns the value at key if it is a string, else "".
func (m *Map) String(key string) string {
	v, _ := m.Get(key)
	s, _ := v.(string)
	return s
}

// Slice returns the value at key if it is an array, else nil.
func (m *Map) Slice(key string) []any {
	v, _ := m.Get(key)
	s, _ := v.([]any)
	return s
}

// Range calls fn for every entry in insertion order until fn returns false.
func (m *Map) Range(fn func(key string, value any) bool) {
	if m == nil {
		return
	}
	for _, k := range m.keys {
		if !fn(k, m.values[k]) {
			return
		}
	}
}

// With returns a copy of m with key set to value. An existing key keeps its
// position; a new key is appended.
func (m *Map) With(key string, value any) *Map {
	next := m.clone(1)
	next.set(key, value)
	return next
}

// Without returns a copy of m with key removed. The copy is made even when
// key is absent so callers always get a fresh container.
func (m *Map) Without(key string) *Map {
	next := m.clone(0)
	if _, ok := next.values[key]; !ok {
		return next
	}
	delete(next.values, key)
	for i, k := range next.keys {
		if k == key {
			next.keys = append(next.keys[:i], next.keys[i+1:]...)
			break
		}
	}
	return next
}

// Rename returns a copy of m where oldKey is replaced by newKey at the same
// position. If newKey already exists elsewhere, that entry is dropped and the
// renamed one wins.
func (m *Map) Rename(oldKey, newKey string) *Map {
	if oldKey == newKey || !m.Has(oldKey) {
		return m.clone(0)
	}
	v := m.values[oldKey]
	next := &Map{keys: make([]string, 0, len(m.keys)), values: make(map[string]any, len(m.keys))}
	for _, k := range m.keys {
		switch k {
		case newKey:
			continue
		case oldKey:
			next.set(newKey, v)
		default:
			next.set(k, m.values[k])
		}
	}
	return next
}

// Merge returns a copy of m with every entry of patch set over it.
func (m *Map) Merge(patch *Map) *Map {
	next := m.clone(patch.Len())
	patch.Range(func(k string, v any) bool {
		next.set(k, v)
		return true
	})
	return next
}

func (m *Map) clone(extra int) *Map {
	n := m.Len()
	next := &Map{keys: make([]string, 0, n+extra), values: make(map[string]any, n+extra)}
	if m == nil {
		return next
	}
	next.keys = append(next.keys, m.keys...)
	for k, v := range m.values {
		next.values[k] = v
	}
	return next
}

// set mutates m in place. Only builders that own m may call it.
func (m *Map) set(key string, value any) {
	if m.values == nil {
		m.values = map[string]any{}
	}
	if _, ok := m.values[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.values[key] = value
}
