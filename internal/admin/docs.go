package admin

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/Duongo16/vtm-apidocs/internal/apihttp"
	"github.com/Duongo16/vtm-apidocs/internal/openapi"
)

const DefaultImportTimeout = 120 * time.Second

// Docs talks to the api-doc service.
type Docs struct {
	endpoint
	// ImportTimeout bounds ImportPDF. Zero means DefaultImportTimeout.
	ImportTimeout time.Duration
}

func NewDocs(c *apihttp.Client, baseURL string) *Docs {
	return &Docs{endpoint: endpoint{Client: c, BaseURL: baseURL}}
}

func docPath(id int64, suffix string) string {
	return "/admin/docs/" + strconv.FormatInt(id, 10) + suffix
}

// List searches documents by name, slug, version or description. An empty
// status lists every status.
func (d *Docs) List(ctx context.Context, q string, status DocStatus) ([]Document, error) {
	var out []Document
	err := d.getJSON(ctx, "/admin/docs", url.Values{"q": {q}, "status": {string(status)}}, &out)
	return out, err
}

func (d *Docs) Get(ctx context.Context, id int64) (*Document, error) {
	var out Document
	if err := d.getJSON(ctx, docPath(id, ""), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (d *Docs) Endpoints(ctx context.Context, id int64) ([]Endpoint, error) {
	var out []Endpoint
	err := d.getJSON(ctx, docPath(id, "/endpoints"), nil, &out)
	return out, err
}

func (d *Docs) Categories(ctx context.Context) ([]Category, error) {
	var out []Category
	err := d.getJSON(ctx, "/admin/categories", nil, &out)
	return out, err
}

// GetSpec returns the stored spec text verbatim, JSON or YAML.
func (d *Docs) GetSpec(ctx context.Context, id int64) (string, error) {
	res, err := d.do(ctx, request{
		method: http.MethodGet,
		path:   docPath(id, "/spec"),
		query:  url.Values{"frontend": {"1"}},
		accept: "application/json, text/plain, */*",
	})
	if err != nil {
		return "", err
	}
	return string(res.Body), nil
}

// UpdateSpec replaces the spec text. JSON text is sent as application/json,
// anything else as text/plain.
func (d *Docs) UpdateSpec(ctx context.Context, id int64, text string) error {
	ct := "text/plain"
	if openapi.IsJSON(text) {
		ct = "application/json"
	}
	_, err := d.do(ctx, request{
		method:      http.MethodPut,
		path:        docPath(id, "/spec"),
		body:        []byte(text),
		contentType: ct,
		accept:      "*/*",
	})
	return err
}

// Reindex asks the service to rebuild the endpoint index of a document.
func (d *Docs) Reindex(ctx context.Context, id int64) error {
	_, err := d.do(ctx, request{method: http.MethodPost, path: docPath(id, "/reindex"), accept: "*/*"})
	return err
}

func (d *Docs) UpdateMeta(ctx context.Context, id int64, meta Meta) (*Document, error) {
	var out Document
	if err := d.sendJSON(ctx, http.MethodPut, docPath(id, "/meta"), meta, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SetStatus changes the publication state and returns the state the server
// reports.
func (d *Docs) SetStatus(ctx context.Context, id int64, status DocStatus) (DocStatus, error) {
	res, err := d.do(ctx, request{
		method: http.MethodPut,
		path:   docPath(id, "/status"),
		query:  url.Values{"status": {string(status)}},
		accept: "*/*",
	})
	if err != nil {
		return "", err
	}
	var out struct {
		Status DocStatus `json:"status"`
	}
	if decodeJSON(res, &out) == nil && out.Status != "" {
		return out.Status, nil
	}
	return status, nil
}

func (d *Docs) Delete(ctx context.Context, id int64) error {
	_, err := d.do(ctx, request{method: http.MethodDelete, path: docPath(id, ""), accept: "*/*"})
	return err
}

// ImportSpec creates or updates the document with req.Slug from JSON or YAML
// text.
func (d *Docs) ImportSpec(ctx context.Context, req ImportRequest, text string) (*ImportResult, error) {
	req, err := req.normalized()
	if err != nil {
		return nil, err
	}
	q := url.Values{
		"name":        {req.Name},
		"slug":        {req.Slug},
		"version":     {req.Version},
		"description": {req.Description},
	}
	if req.CategoryID != 0 {
		q.Set("categoryId", strconv.FormatInt(req.CategoryID, 10))
	}
	res, err := d.do(ctx, request{
		method:      http.MethodPost,
		path:        "/admin/docs/import",
		query:       q,
		body:        []byte(text),
		contentType: "text/plain; charset=UTF-8",
	})
	if err != nil {
		return nil, err
	}
	var out ImportResult
	if err := decodeJSON(res, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ImportPDF uploads a PDF for the server to turn into a spec. The call is
// abandoned after ImportTimeout and reported as ErrImportTimeout.
func (d *Docs) ImportPDF(ctx context.Context, req ImportRequest, filename string, file io.Reader, provider Provider) (*ImportResult, error) {
	req, err := req.normalized()
	if err != nil {
		return nil, err
	}
	if provider == "" {
		provider = ProviderOpenRouter
	}
	body, contentType, err := pdfForm(req, filename, file, provider)
	if err != nil {
		return nil, err
	}

	timeout := d.ImportTimeout
	if timeout <= 0 {
		timeout = DefaultImportTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	res, err := d.doWith(ctx, d.Client.WithTimeout(timeout), request{
		method:      http.MethodPost,
		path:        "/admin/docs/import-pdf",
		body:        body,
		contentType: contentType,
	})
	if err != nil {
		var apiErr *APIError
		if !errors.As(err, &apiErr) && apihttp.IsTimeout(err) {
			d.Client.Logger().Warn("pdf import timed out", "slug", req.Slug, "timeout", timeout)
			return nil, fmt.Errorf("%w (after %s)", ErrImportTimeout, timeout)
		}
		return nil, err
	}
	var out ImportResult
	if err := decodeJSON(res, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func pdfForm(req ImportRequest, filename string, file io.Reader, provider Provider) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fields := [][2]string{
		{"name", req.Name},
		{"slug", req.Slug},
		{"version", req.Version},
	}
	if req.Description != "" {
		fields = append(fields, [2]string{"description", req.Description})
	}
	if req.CategoryID != 0 {
		fields = append(fields, [2]string{"categoryId", strconv.FormatInt(req.CategoryID, 10)})
	}
	for _, f := range fields {
		if err := w.WriteField(f[0], f[1]); err != nil {
			return nil, "", err
		}
	}
	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		return nil, "", err
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, "", fmt.Errorf("read %s: %w", filename, err)
	}
	if err := w.WriteField("provider", string(provider)); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}
