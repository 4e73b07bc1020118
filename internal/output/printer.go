package output

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	gojson "github.com/goccy/go-json"
	"golang.org/x/term"

	"github.com/Duongo16/vtm-apidocs/internal/apihttp"
)

type PrinterOptions struct {
	ForcePretty  bool
	ForceCompact bool

	PrintStatus  bool
	PrintHeaders bool
}

type Printer struct {
	out io.Writer
	err io.Writer

	pretty bool

	printStatus  bool
	printHeaders bool
}

func NewPrinter(out io.Writer, err io.Writer, opts PrinterOptions) *Printer {
	pretty := false
	if opts.ForcePretty {
		pretty = true
	} else if opts.ForceCompact {
		pretty = false
	} else {
		// auto
		if f, ok := out.(*os.File); ok {
			pretty = term.IsTerminal(int(f.Fd()))
		}
	}

	return &Printer{
		out: out,
		err: err,

		pretty: pretty,

		printStatus:  opts.PrintStatus,
		printHeaders: opts.PrintHeaders,
	}
}

func (p *Printer) Out() io.Writer { return p.out }
func (p *Printer) Err() io.Writer { return p.err }
func (p *Printer) Pretty() bool   { return p.pretty }

// PrintResult prints a raw service answer: status and headers to stderr when
// asked for, the body to stdout.
func (p *Printer) PrintResult(res *apihttp.Result) error {
	if p.printStatus {
		if _, err := fmt.Fprintf(p.err, "%d\n", res.Status); err != nil {
			return err
		}
	}
	if p.printHeaders {
		if err := p.writeHeaders(res.Headers); err != nil {
			return err
		}
	}
	return p.printBodyTo(p.out, res.Body)
}

func (p *Printer) PrintBody(body []byte) error {
	return p.printBodyTo(p.out, body)
}

// PrintJSON marshals v and prints it like a response body.
func (p *Printer) PrintJSON(v any) error {
	b, err := gojson.Marshal(v)
	if err != nil {
		return err
	}
	return p.printBodyTo(p.out, b)
}

// PrintText writes s to stdout, ending it with a newline.
func (p *Printer) PrintText(s string) error {
	if _, err := io.WriteString(p.out, s); err != nil {
		return err
	}
	if s == "" || s[len(s)-1] != '\n' {
		_, err := io.WriteString(p.out, "\n")
		return err
	}
	return nil
}

// Infof writes a progress or confirmation line to stderr.
func (p *Printer) Infof(format string, args ...any) {
	fmt.Fprintf(p.err, format+"\n", args...)
}

// PrintTable writes rows as aligned columns under header.
func (p *Printer) PrintTable(header []string, rows [][]string) error {
	tw := tabwriter.NewWriter(p.out, 0, 0, 2, ' ', 0)
	if len(header) > 0 {
		fmt.Fprintln(tw, strings.Join(header, "\t"))
	}
	for _, r := range rows {
		fmt.Fprintln(tw, strings.Join(r, "\t"))
	}
	return tw.Flush()
}

func (p *Printer) PrintHTTPError(status int, headers http.Header, body []byte) error {
	// Always print a status line for non-2xx responses.
	statusText := http.StatusText(status)
	if statusText != "" {
		if _, err := fmt.Fprintf(p.err, "HTTP %d %s\n", status, statusText); err != nil {
			return err
		}
	} else {
		if _, err := fmt.Fprintf(p.err, "HTTP %d\n", status); err != nil {
			return err
		}
	}

	if p.printHeaders {
		if err := p.writeHeaders(headers); err != nil {
			return err
		}
	}
	return p.printBodyTo(p.err, body)
}

func (p *Printer) writeHeaders(headers http.Header) error {
	keys := make([]string, 0, len(headers))
	for k := range headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		printVal := strings.Join(headers[k], ", ")
		if apihttp.Redacted(k) {
			printVal = "<redacted>"
		}
		if _, err := fmt.Fprintf(p.err, "%s: %s\n", k, printVal); err != nil {
			return err
		}
	}
	return nil
}

func (p *Printer) printBodyTo(w io.Writer, body []byte) error {
	if len(body) == 0 {
		return nil
	}

	out := body
	if p.pretty && gojson.Valid(body) {
		var buf bytes.Buffer
		if err := gojson.Indent(&buf, body, "", "  "); err == nil {
			out = buf.Bytes()
		}
	}

	if _, err := w.Write(out); err != nil {
		return err
	}
	if len(out) == 0 || out[len(out)-1] != '\n' {
		_, _ = w.Write([]byte("\n"))
	}
	return nil
}
