package output

import (
	"bytes"
	"net/http"
	"strings"
	"testing"

	"github.com/Duongo16/vtm-apidocs/internal/apihttp"
)

func TestPrintResultPrettyAndRedacted(t *testing.T) {
	var out, errBuf bytes.Buffer
	p := NewPrinter(&out, &errBuf, PrinterOptions{ForcePretty: true, PrintStatus: true, PrintHeaders: true})
	res := &apihttp.Result{
		Status: 200,
		Headers: http.Header{
			"Set-Cookie":   {"accessToken=secret"},
			"Content-Type": {"application/json"},
		},
		Body: []byte(`{"a":1}`),
	}
	if err := p.PrintResult(res); err != nil {
		t.Fatal(err)
	}
	if out.String() != "{\n  \"a\": 1\n}\n" {
		t.Fatalf("stdout = %q", out.String())
	}
	want := "200\nContent-Type: application/json\nSet-Cookie: <redacted>\n"
	if errBuf.String() != want {
		t.Fatalf("stderr = %q", errBuf.String())
	}
}

func TestPrintCompactAndText(t *testing.T) {
	var out bytes.Buffer
	p := NewPrinter(&out, &bytes.Buffer{}, PrinterOptions{ForceCompact: true})
	if err := p.PrintJSON(map[string]int{"a": 1}); err != nil {
		t.Fatal(err)
	}
	if err := p.PrintText("plain"); err != nil {
		t.Fatal(err)
	}
	if out.String() != "{\"a\":1}\nplain\n" {
		t.Fatalf("stdout = %q", out.String())
	}
}

func TestPrintTable(t *testing.T) {
	var out bytes.Buffer
	p := NewPrinter(&out, &bytes.Buffer{}, PrinterOptions{})
	err := p.PrintTable([]string{"ID", "NAME"}, [][]string{{"1", "Pets"}, {"22", "Store"}})
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimRight(out.String(), "\n"), "\n")
	if len(lines) != 3 || lines[0] != "ID  NAME" || lines[2] != "22  Store" {
		t.Fatalf("table = %q", out.String())
	}
}

func TestPrintHTTPError(t *testing.T) {
	var errBuf bytes.Buffer
	p := NewPrinter(&bytes.Buffer{}, &errBuf, PrinterOptions{})
	if err := p.PrintHTTPError(404, nil, []byte(`{"message":"nope"}`)); err != nil {
		t.Fatal(err)
	}
	if errBuf.String() != "HTTP 404 Not Found\n{\"message\":\"nope\"}\n" {
		t.Fatalf("stderr = %q", errBuf.String())
	}
}
