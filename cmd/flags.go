package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"unicode"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/term"
)

// enumValue is a string flag restricted to a fixed set of values. Matching
// ignores case; the canonical spelling is stored.
type enumValue struct {
	allowed []string
	value   string
}

var _ pflag.Value = (*enumValue)(nil)

func newEnum(allowed []string, def string) *enumValue {
	return &enumValue{allowed: allowed, value: def}
}

func (e *enumValue) String() string { return e.value }
func (e *enumValue) Type() string   { return "enum" }

func (e *enumValue) Set(s string) error {
	for _, a := range e.allowed {
		if strings.EqualFold(a, s) {
			e.value = a
			return nil
		}
	}
	return fmt.Errorf("must be one of %s", strings.Join(e.allowed, ", "))
}

func parseID(arg string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(arg), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid document id %q", arg)
	}
	return id, nil
}

func parseIndex(arg string) (int, error) {
	i, err := strconv.Atoi(strings.TrimSpace(arg))
	if err != nil || i < 0 {
		return 0, fmt.Errorf("invalid index %q", arg)
	}
	return i, nil
}

// readDataArg reads '@file', '-' for stdin, or returns the argument itself.
func readDataArg(cmd *cobra.Command, arg string) ([]byte, error) {
	switch {
	case arg == "-":
		return io.ReadAll(cmd.InOrStdin())
	case strings.HasPrefix(arg, "@"):
		return os.ReadFile(strings.TrimPrefix(arg, "@"))
	default:
		return []byte(arg), nil
	}
}

// readFileArg reads a path, with '-' meaning stdin.
func readFileArg(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	return os.ReadFile(path)
}

// readSecret prompts for a value without echo when stdin is a terminal, and
// reads one line otherwise.
func readSecret(cmd *cobra.Command, prompt string) (string, error) {
	in := cmd.InOrStdin()
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(cmd.ErrOrStderr(), prompt)
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(cmd.ErrOrStderr())
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// slugify turns a document name into a URL slug: lower case ASCII letters
// and digits separated by single dashes, with camelCase split.
func slugify(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}

	var b strings.Builder
	b.Grow(len(s) + 8)

	prevDash := false
	var prevCat runeCategory

	for _, r := range s {
		cat := categorize(r)
		switch cat {
		case catLower, catUpper, catDigit:
			if b.Len() > 0 && !prevDash {
				if cat == catUpper && (prevCat == catLower || prevCat == catDigit) {
					b.WriteByte('-')
				}
			}
			if cat == catUpper {
				r = unicode.ToLower(r)
			}
			b.WriteRune(r)
			prevDash = false
		default:
			if b.Len() > 0 && !prevDash {
				b.WriteByte('-')
				prevDash = true
			}
		}
		prevCat = cat
	}
	return strings.Trim(b.String(), "-")
}

type runeCategory int

const (
	catOther runeCategory = iota
	catLower
	catUpper
	catDigit
)

func categorize(r rune) runeCategory {
	switch {
	case r >= 'a' && r <= 'z':
		return catLower
	case r >= 'A' && r <= 'Z':
		return catUpper
	case r >= '0' && r <= '9':
		return catDigit
	default:
		return catOther
	}
}
