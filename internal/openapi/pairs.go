package openapi

// Pair is one entry of an ordered-pairs list.
type Pair struct {
	Key   string
	Value any
}

// Pairs is an editable view of an object. Unlike Map it tolerates duplicate
// and blank keys, which appear transiently while keys are being edited. It
// turns back into a Map with Commit.
type Pairs []Pair

// PairsOf lists the entries of m in order.
func PairsOf(m *Map) Pairs {
	out := make(Pairs, 0, m.Len())
	m.Range(func(k string, v any) bool {
		out = append(out, Pair{Key: k, Value: v})
		return true
	})
	return out
}

// Commit collapses the pairs into a Map. When a key repeats, the last value
// wins and the key keeps the position of its first occurrence.
func (p Pairs) Commit() *Map {
	m := &Map{keys: make([]string, 0, len(p)), values: make(map[string]any, len(p))}
	for _, e := range p {
		m.set(e.Key, e.Value)
	}
	return m
}

func (p Pairs) Keys() []string {
	out := make([]string, len(p))
	for i, e := range p {
		out[i] = e.Key
	}
	return out
}

// Index returns the position of the last entry with key, or -1. The last one
// is the entry that survives Commit.
func (p Pairs) Index(key string) int {
	for i := len(p) - 1; i >= 0; i-- {
		if p[i].Key == key {
			return i
		}
	}
	return -1
}

// Duplicates returns every key that occurs more than once, in first-seen
// order.
func (p Pairs) Duplicates() []string {
	seen := map[string]int{}
	var out []string
	for _, e := range p {
		seen[e.Key]++
		if seen[e.Key] == 2 {
			out = append(out, e.Key)
		}
	}
	return out
}

func (p Pairs) Append(key string, value any) Pairs {
	out := make(Pairs, len(p), len(p)+1)
	copy(out, p)
	return append(out, Pair{Key: key, Value: value})
}

func (p Pairs) SetAt(i int, value any) Pairs {
	if i < 0 || i >= len(p) {
		return p
	}
	out := append(Pairs(nil), p...)
	out[i].Value = value
	return out
}

func (p Pairs) RenameAt(i int, key string) Pairs {
	if i < 0 || i >= len(p) {
		return p
	}
	out := append(Pairs(nil), p...)
	out[i].Key = key
	return out
}

func (p Pairs) RemoveAt(i int) Pairs {
	if i < 0 || i >= len(p) {
		return p
	}
	out := make(Pairs, 0, len(p)-1)
	out = append(out, p[:i]...)
	return append(out, p[i+1:]...)
}
