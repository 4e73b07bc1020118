package openapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	gojson "github.com/goccy/go-json"
)

// Number is the representation of JSON numbers inside a document. Keeping the
// literal avoids float round-off on values like "1.10" or large integers.
type Number = gojson.Number

// ErrNotObject is reported when a JSON value parses but its root is not an
// object.
var ErrNotObject = errors.New("document root is not a JSON object")

// Decode parses data as a JSON object, keeping key order.
func Decode(data []byte) (*Map, error) {
	v, err := DecodeValue(data)
	if err != nil {
		return nil, err
	}
	m, ok := v.(*Map)
	if !ok {
		return nil, ErrNotObject
	}
	return m, nil
}

// DecodeValue parses any JSON value. Objects become *Map, arrays []any and
// numbers Number.
func DecodeValue(data []byte) (any, error) {
	if err := checkSyntax(data); err != nil {
		return nil, err
	}
	dec := gojson.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	return readValue(dec, tok)
}

func readValue(dec *gojson.Decoder, tok any) (any, error) {
	switch t := tok.(type) {
	case gojson.Delim:
		switch t {
		case '{':
			return readObject(dec)
		case '[':
			return readArray(dec)
		}
		return nil, fmt.Errorf("unexpected delimiter %q", rune(t))
	case string, bool, nil:
		return t, nil
	case Number:
		return t, nil
	case float64:
		return Number(strconv.FormatFloat(t, 'g', -1, 64)), nil
	}
	return nil, fmt.Errorf("unexpected token %T", tok)
}

func readObject(dec *gojson.Decoder) (*Map, error) {
	m := NewMap()
	for {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		if d, ok := tok.(gojson.Delim); ok && d == '}' {
			return m, nil
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected object key %v", tok)
		}
		tok, err = dec.Token()
		if err != nil {
			return nil, err
		}
		v, err := readValue(dec, tok)
		if err != nil {
			return nil, err
		}
		m.set(key, v)
	}
}

func readArray(dec *gojson.Decoder) ([]any, error) {
	out := []any{}
	for {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		if d, ok := tok.(gojson.Delim); ok && d == ']' {
			return out, nil
		}
		v, err := readValue(dec, tok)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
}

// IsJSON reports whether text is a syntactically valid JSON value.
func IsJSON(text string) bool {
	return checkSyntax([]byte(text)) == nil
}

// checkSyntax applies the strict RFC 8259 grammar: no leading zeros, no raw
// control characters in strings, any number magnitude. The go-json decoder
// is lenient on the first two and its Valid range-checks numbers as float64,
// so the grammar check runs before tokenizing.
func checkSyntax(data []byte) error {
	if json.Valid(data) {
		return nil
	}
	var raw json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	return errors.New("invalid JSON")
}

// Encode serializes v in the canonical pretty form: two-space indent, keys in
// document order, no HTML escaping.
func Encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeValue(&buf, v, "  ", 0); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// EncodeCompact serializes v without insignificant whitespace.
func EncodeCompact(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeValue(&buf, v, "", 0); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Text is Encode for callers that cannot fail: documents built by this
// package only ever hold encodable values.
func Text(v any) string {
	b, err := Encode(v)
	if err != nil {
		return ""
	}
	return string(b)
}

func writeValue(w *bytes.Buffer, v any, indent string, depth int) error {
	switch t := v.(type) {
	case nil:
		w.WriteString("null")
	case bool:
		w.WriteString(strconv.FormatBool(t))
	case string:
		return writeString(w, t)
	case Number:
		if t == "" {
			w.WriteString("0")
			return nil
		}
		w.WriteString(string(t))
	case *Map:
		return writeObject(w, t, indent, depth)
	case []any:
		return writeArray(w, t, indent, depth)
	case []string:
		items := make([]any, len(t))
		for i, s := range t {
			items[i] = s
		}
		return writeArray(w, items, indent, depth)
	default:
		b, err := gojson.Marshal(t)
		if err != nil {
			return fmt.Errorf("encode %T: %w", v, err)
		}
		w.Write(b)
	}
	return nil
}

func writeObject(w *bytes.Buffer, m *Map, indent string, depth int) error {
	if m.Len() == 0 {
		w.WriteString("{}")
		return nil
	}
	w.WriteByte('{')
	for i, k := range m.keys {
		if i > 0 {
			w.WriteByte(',')
		}
		newline(w, indent, depth+1)
		if err := writeString(w, k); err != nil {
			return err
		}
		w.WriteByte(':')
		if indent != "" {
			w.WriteByte(' ')
		}
		if err := writeValue(w, m.values[k], indent, depth+1); err != nil {
			return err
		}
	}
	newline(w, indent, depth)
	w.WriteByte('}')
	return nil
}

func writeArray(w *bytes.Buffer, items []any, indent string, depth int) error {
	if len(items) == 0 {
		w.WriteString("[]")
		return nil
	}
	w.WriteByte('[')
	for i, item := range items {
		if i > 0 {
			w.WriteByte(',')
		}
		newline(w, indent, depth+1)
		if err := writeValue(w, item, indent, depth+1); err != nil {
			return err
		}
	}
	newline(w, indent, depth)
	w.WriteByte(']')
	return nil
}

func newline(w *bytes.Buffer, indent string, depth int) {
	if indent == "" {
		return
	}
	w.WriteByte('\n')
	w.WriteString(strings.Repeat(indent, depth))
}

func writeString(w *bytes.Buffer, s string) error {
	var buf bytes.Buffer
	enc := gojson.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return err
	}
	w.Write(bytes.TrimRight(buf.Bytes(), "\n"))
	return nil
}

// Equal reports whether a and b are the same JSON value. Object key order is
// ignored; numbers compare by literal.
func Equal(a, b any) bool {
	switch x := a.(type) {
	case *Map:
		y, ok := b.(*Map)
		if !ok {
			return false
		}
		if x == y {
			return true
		}
		if x.Len() != y.Len() {
			return false
		}
		for _, k := range x.keys {
			yv, ok := y.Get(k)
			if !ok || !Equal(x.values[k], yv) {
				return false
			}
		}
		return true
	case []any:
		y, ok := b.([]any)
		if !ok || len(x) != len(y) {
			return false
		}
		for i := range x {
			if !Equal(x[i], y[i]) {
				return false
			}
		}
		return true
	case Number:
		y, ok := b.(Number)
		return ok && x == y
	default:
		return a == b
	}
}

// SortKeys returns a deep copy of v where every object's keys are sorted.
func SortKeys(v any) any {
	switch t := v.(type) {
	case *Map:
		keys := t.Keys()
		sort.Strings(keys)
		out := &Map{keys: make([]string, 0, len(keys)), values: make(map[string]any, len(keys))}
		for _, k := range keys {
			out.set(k, SortKeys(t.values[k]))
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = SortKeys(item)
		}
		return out
	default:
		return v
	}
}

// MarshalJSON lets a Map be embedded in values encoded by other packages.
func (m *Map) MarshalJSON() ([]byte, error) {
	return EncodeCompact(m)
}

// UnmarshalJSON decodes an object keeping key order.
func (m *Map) UnmarshalJSON(data []byte) error {
	dec, err := Decode(data)
	if err != nil {
		return err
	}
	*m = *dec
	return nil
}
