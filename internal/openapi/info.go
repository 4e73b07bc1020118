package openapi

const (
	DefaultServerURL = "https://api.example.com"
	DefaultTagName   = "default"
)

// SetInfoField sets info.<key> ("title", "version", "description", ...).
func SetInfoField(doc *Map, key, value string) *Map {
	return doc.With("info", doc.Map("info").With(key, value))
}

// Servers and tags are edited as whole lists: each helper returns a document
// holding a new slice, leaving the old one untouched.

func AddServer(doc *Map, url, description string) *Map {
	if url == "" {
		url = DefaultServerURL
	}
	return doc.With("servers", appendItem(doc.Slice("servers"), urlEntry(url, description)))
}

// UpdateServer sets the url of server i. A nil description keeps the current
// one; an empty one removes it.
func UpdateServer(doc *Map, i int, url string, description *string) *Map {
	items := doc.Slice("servers")
	if i < 0 || i >= len(items) {
		return doc
	}
	cur, _ := items[i].(*Map)
	next := withDescription(cur.With("url", url), description)
	return doc.With("servers", replaceItem(items, i, next))
}

func RemoveServer(doc *Map, i int) *Map {
	return doc.With("servers", removeItem(doc.Slice("servers"), i))
}

func AddTag(doc *Map, name, description string) *Map {
	if name == "" {
		name = DefaultTagName
	}
	tag := MapOf("name", name)
	if description != "" {
		tag = tag.With("description", description)
	}
	return doc.With("tags", appendItem(doc.Slice("tags"), tag))
}

// UpdateTag renames tag i. description follows UpdateServer.
func UpdateTag(doc *Map, i int, name string, description *string) *Map {
	items := doc.Slice("tags")
	if i < 0 || i >= len(items) {
		return doc
	}
	cur, _ := items[i].(*Map)
	next := withDescription(cur.With("name", name), description)
	return doc.With("tags", replaceItem(items, i, next))
}

func RemoveTag(doc *Map, i int) *Map {
	return doc.With("tags", removeItem(doc.Slice("tags"), i))
}

func withDescription(m *Map, description *string) *Map {
	switch {
	case description == nil:
		return m
	case *description == "":
		return m.Without("description")
	default:
		return m.With("description", *description)
	}
}

func urlEntry(url, description string) *Map {
	m := MapOf("url", url)
	if description != "" {
		m = m.With("description", description)
	}
	return m
}

func appendItem(items []any, v any) []any {
	out := make([]any, len(items), len(items)+1)
	copy(out, items)
	return append(out, v)
}

func replaceItem(items []any, i int, v any) []any {
	out := append([]any(nil), items...)
	out[i] = v
	return out
}

func removeItem(items []any, i int) []any {
	out := make([]any, 0, len(items))
	for j, v := range items {
		if j != i {
			out = append(out, v)
		}
	}
	return out
}
