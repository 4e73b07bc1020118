package admin

import (
	"context"
	"fmt"
	"net/url"

	gojson "github.com/goccy/go-json"

	"github.com/Duongo16/vtm-apidocs/internal/apihttp"
)

// endpoint is a base URL plus the client used to reach it. Docs, Auth and
// Users each embed one.
type endpoint struct {
	Client  *apihttp.Client
	BaseURL string
}

type request struct {
	method      string
	path        string
	query       url.Values
	body        []byte
	contentType string
	accept      string
}

func (e endpoint) do(ctx context.Context, r request) (*apihttp.Result, error) {
	return e.doWith(ctx, e.Client, r)
}

func (e endpoint) doWith(ctx context.Context, c *apihttp.Client, r request) (*apihttp.Result, error) {
	if c == nil {
		return nil, fmt.Errorf("internal error: no HTTP client for %s", e.BaseURL)
	}
	req, err := apihttp.NewRequest(ctx, r.method, e.BaseURL, r.path, r.query, r.body)
	if err != nil {
		return nil, err
	}
	if r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	}
	if r.accept != "" {
		req.Header.Set("Accept", r.accept)
	}
	res, err := c.Do(req, r.body)
	if err != nil {
		return nil, err
	}
	if !res.OK() {
		return res, newAPIError(res)
	}
	return res, nil
}

func (e endpoint) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	res, err := e.do(ctx, request{method: "GET", path: path, query: query})
	if err != nil {
		return err
	}
	return decodeJSON(res, out)
}

func (e endpoint) sendJSONResult(ctx context.Context, method, path string, in any) (*apihttp.Result, error) {
	body, err := gojson.Marshal(in)
	if err != nil {
		return nil, err
	}
	return e.do(ctx, request{method: method, path: path, body: body, contentType: "application/json"})
}

func (e endpoint) sendJSON(ctx context.Context, method, path string, in, out any) error {
	res, err := e.sendJSONResult(ctx, method, path, in)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	return decodeJSON(res, out)
}

func decodeJSON(res *apihttp.Result, out any) error {
	if len(res.Body) == 0 {
		return nil
	}
	if err := gojson.Unmarshal(res.Body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
