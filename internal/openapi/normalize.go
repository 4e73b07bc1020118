package openapi

import (
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Format names the shape of a spec text.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatText Format = "text"
)

// ParseError is returned when a spec text is not a JSON object even after the
// unicode escape repair. The text stays editable as raw text.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("spec is not valid JSON: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Normalized is the result of Normalize. Text is always safe to show; Doc is
// set only when the text parsed into an object.
type Normalized struct {
	Doc      *Map
	Text     string
	Format   Format
	Repaired bool
	Err      error
}

var bareUnicodeEscape = regexp.MustCompile(`u[0-9a-fA-F]{4}`)

// Some upstream transport drops the backslash of / style escapes; these
// are the sequences that show up in practice.
var displayFixups = []struct{ from, to string }{
	{"u002f", "/"},
	{"applicationu002fjson", "application/json"},
	{"multipartu002fform-data", "multipart/form-data"},
	{"applicationu002foctet-stream", "application/octet-stream"},
}

// Normalize turns raw spec text into a document when it can.
//
// It tries a strict JSON parse first, then a parse after restoring missing
// backslashes in front of uXXXX sequences. When both fail the text is kept as
// a non-JSON document with known mis-escaped sequences replaced for display.
func Normalize(raw string) Normalized {
	doc, err := parseObject(raw)
	if err == nil {
		return Normalized{Doc: doc, Text: Text(doc), Format: FormatJSON}
	}
	if err == ErrNotObject {
		return notObject(raw)
	}

	if repaired := RepairUnicodeEscapes(raw); repaired != raw {
		if doc, rerr := parseObject(repaired); rerr == nil {
			return Normalized{Doc: doc, Text: Text(doc), Format: FormatJSON, Repaired: true}
		}
	}

	return Normalized{
		Text:   FixDisplayText(raw),
		Format: detectTextFormat(raw),
		Err:    &ParseError{Err: err},
	}
}

func parseObject(text string) (*Map, error) {
	return Decode([]byte(text))
}

func notObject(raw string) Normalized {
	text := raw
	if v, err := DecodeValue([]byte(raw)); err == nil {
		text = Text(v)
	}
	return Normalized{Text: text, Format: FormatJSON, Err: &ParseError{Err: ErrNotObject}}
}

// RepairUnicodeEscapes inserts a backslash before every "u" followed by four
// hex digits that is not already preceded by a backslash.
func RepairUnicodeEscapes(raw string) string {
	locs := bareUnicodeEscape.FindAllStringIndex(raw, -1)
	if len(locs) == 0 {
		return raw
	}
	var b strings.Builder
	b.Grow(len(raw) + len(locs))
	last := 0
	for _, loc := range locs {
		start := loc[0]
		if start > 0 && raw[start-1] == '\\' {
			continue
		}
		b.WriteString(raw[last:start])
		b.WriteByte('\\')
		last = start
	}
	b.WriteString(raw[last:])
	return b.String()
}

// FixDisplayText applies the literal mis-escape substitutions used when a
// text cannot be parsed as JSON.
func FixDisplayText(text string) string {
	for _, f := range displayFixups {
		text = strings.ReplaceAll(text, f.from, f.to)
	}
	return text
}

func detectTextFormat(text string) Format {
	var node yaml.Node
	if err := yaml.Unmarshal([]byte(text), &node); err != nil {
		return FormatText
	}
	if len(node.Content) == 1 && node.Content[0].Kind == yaml.MappingNode {
		return FormatYAML
	}
	return FormatText
}

// RepairKeys fixes "u002f" left inside object keys that a JSON parse cannot
// catch: path keys, and media type keys under request bodies and responses.
func RepairKeys(doc *Map) *Map {
	if doc == nil {
		return nil
	}
	out := doc
	if paths := doc.Map("paths"); paths != nil {
		next := renameKeys(paths, fixSlash)
		for _, p := range next.Keys() {
			item := next.Map(p)
			if item == nil {
				continue
			}
			fixed := item
			for _, m := range Methods {
				op := fixed.Map(m)
				if op == nil {
					continue
				}
				if fop := repairOperationKeys(op); fop != op {
					fixed = fixed.With(m, fop)
				}
			}
			if fixed != item {
				next = next.With(p, fixed)
			}
		}
		if next != paths {
			out = out.With("paths", next)
		}
	}
	if comps := doc.Map("components"); comps != nil {
		if bodies := comps.Map("requestBodies"); bodies != nil {
			nextBodies := bodies
			for _, k := range bodies.Keys() {
				rb := bodies.Map(k)
				if fixed := repairContentKeys(rb); fixed != rb {
					nextBodies = nextBodies.With(k, fixed)
				}
			}
			if nextBodies != bodies {
				out = out.With("components", comps.With("requestBodies", nextBodies))
			}
		}
	}
	return out
}

func repairOperationKeys(op *Map) *Map {
	out := op
	if rb := op.Map("requestBody"); rb != nil {
		if fixed := repairContentKeys(rb); fixed != rb {
			out = out.With("requestBody", fixed)
		}
	}
	if responses := op.Map("responses"); responses != nil {
		next := responses
		for _, code := range responses.Keys() {
			resp := responses.Map(code)
			if fixed := repairContentKeys(resp); fixed != resp {
				next = next.With(code, fixed)
			}
		}
		if next != responses {
			out = out.With("responses", next)
		}
	}
	return out
}

// repairContentKeys returns holder unchanged (same pointer) when its content
// keys need no fix.
func repairContentKeys(holder *Map) *Map {
	content := holder.Map("content")
	if content == nil {
		return holder
	}
	fixed := renameKeys(content, fixSlash)
	if fixed == content {
		return holder
	}
	return holder.With("content", fixed)
}

// renameKeys returns m itself when no key changes.
func renameKeys(m *Map, fn func(string) string) *Map {
	out := m
	for _, k := range m.Keys() {
		if nk := fn(k); nk != k {
			out = out.Rename(k, nk)
		}
	}
	return out
}

func fixSlash(s string) string { return strings.ReplaceAll(s, "u002f", "/") }
