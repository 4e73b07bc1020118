package openapi

import (
	"fmt"
	"strings"

	"golang.org/x/mod/semver"
)

type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Issue is one finding of Validate.
type Issue struct {
	Severity Severity
	Message  string
}

func (i Issue) String() string {
	return string(i.Severity) + ": " + i.Message
}

// Validate runs the shallow presentational checks the console shows before a
// save. It does not validate against the OpenAPI schema.
func Validate(doc *Map) []Issue {
	var out []Issue
	errorf := func(format string, args ...any) {
		out = append(out, Issue{Severity: SeverityError, Message: fmt.Sprintf(format, args...)})
	}

	if doc == nil {
		errorf("root is not an object")
		return out
	}

	switch v, ok := doc.Get("openapi"); {
	case !ok:
		errorf(`missing "openapi" (for example "3.0.3")`)
	default:
		s, isString := v.(string)
		if !isString || s == "" {
			errorf(`missing "openapi" (for example "3.0.3")`)
		} else if !strings.HasPrefix(s, "3.") {
			errorf("openapi version is not 3.x (found %s)", s)
		}
	}

	info := doc.Map("info")
	if info == nil {
		errorf(`missing "info" object`)
	} else {
		if info.String("title") == "" {
			errorf(`missing "info.title"`)
		}
		version := info.String("version")
		if version == "" {
			errorf(`missing "info.version"`)
		} else if !IsSemver(version) {
			out = append(out, Issue{Severity: SeverityWarning, Message: fmt.Sprintf("info.version %q is not a semantic version", version)})
		}
	}

	if doc.Map("paths") == nil {
		errorf(`missing "paths" object`)
	}
	return out
}

// HasErrors reports whether issues contains an error-level finding.
func HasErrors(issues []Issue) bool {
	for _, i := range issues {
		if i.Severity == SeverityError {
			return true
		}
	}
	return false
}

// IsSemver accepts versions with or without a leading "v".
func IsSemver(v string) bool {
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	return semver.IsValid(v)
}

var escapeUnfolds = strings.NewReplacer(
	`\u003c`, "<", `\u003C`, "<",
	`\u003e`, ">", `\u003E`, ">",
	`\u0026`, "&",
	`\u002f`, "/", `\u002F`, "/",
)

// UnescapeText rewrites the escaped forms of < > & / left in serialized text
// by encoders that escape HTML.
func UnescapeText(text string) string {
	return escapeUnfolds.Replace(text)
}
