package apihttp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// SessionCookie is the name of the cookie carrying the login token.
const SessionCookie = "accessToken"

type ClientOptions struct {
	Timeout            time.Duration
	Debug              bool
	Trace              bool
	RetryNonIdempotent bool
	// MaxAttempts bounds retries on 429/5xx. Zero means 5.
	MaxAttempts int
	UserAgent   string
	// Token is sent as the session cookie on every request when set.
	Token string
	// Out receives the wire log enabled by Debug and Trace.
	Out    io.Writer
	Logger *slog.Logger
}

type Client struct {
	http *http.Client
	opts ClientOptions
}

type Result struct {
	Status  int
	Headers http.Header
	Body    []byte
}

// OK reports a 2xx status.
func (r *Result) OK() bool { return r.Status >= 200 && r.Status < 300 }

func NewClient(opts ClientOptions) (*Client, error) {
	if opts.Out == nil {
		opts.Out = io.Discard
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 5
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Client{
		http: &http.Client{
			Timeout: opts.Timeout,
		},
		opts: opts,
	}, nil
}

// WithTimeout returns a client sharing c's options but with a different
// overall request timeout. Long running calls such as PDF imports use it.
func (c *Client) WithTimeout(d time.Duration) *Client {
	opts := c.opts
	opts.Timeout = d
	return &Client{http: &http.Client{Timeout: d, Transport: c.http.Transport}, opts: opts}
}

// WithToken returns a client that sends token as the session cookie.
func (c *Client) WithToken(token string) *Client {
	opts := c.opts
	opts.Token = token
	return &Client{http: c.http, opts: opts}
}

func (c *Client) Token() string          { return c.opts.Token }
func (c *Client) Timeout() time.Duration { return c.opts.Timeout }
func (c *Client) Logger() *slog.Logger   { return c.opts.Logger }

// NewRequest builds a request for baseURL+path with query parameters; empty
// query values are dropped.
func NewRequest(ctx context.Context, method, baseURL, path string, query url.Values, body []byte) (*http.Request, error) {
	u, err := JoinURL(baseURL, path)
	if err != nil {
		return nil, err
	}
	if q := compactQuery(query); len(q) > 0 {
		u += "?" + q.Encode()
	}
	var rdr io.Reader
	if body != nil {
		rdr = bytes.NewReader(body)
	}
	return http.NewRequestWithContext(ctx, method, u, rdr)
}

func compactQuery(q url.Values) url.Values {
	out := url.Values{}
	for k, vv := range q {
		for _, v := range vv {
			if v != "" {
				out.Add(k, v)
			}
		}
	}
	return out
}

// JoinURL appends path to the path of baseURL.
func JoinURL(baseURL string, path string) (string, error) {
	if baseURL == "" {
		return "", fmt.Errorf("empty base url")
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", err
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	u.Path = strings.TrimRight(u.Path, "/") + path
	return u.String(), nil
}

func (c *Client) Do(req *http.Request, reqBody []byte) (*Result, error) {
	if req == nil {
		return nil, errors.New("nil request")
	}
	ctx := req.Context()

	if c.opts.UserAgent != "" && req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", c.opts.UserAgent)
	}
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json")
	}
	if c.opts.Token != "" {
		ApplySession(req, c.opts.Token)
	}

	if c.opts.Debug || c.opts.Trace {
		c.logRequest(req, reqBody)
	}

	maxAttempts := c.opts.MaxAttempts
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			if req.GetBody != nil {
				rc, err := req.GetBody()
				if err == nil {
					req.Body = rc
				}
			} else if len(reqBody) > 0 {
				req.Body = io.NopCloser(bytes.NewReader(reqBody))
			}
		}

		resp, err := c.http.Do(req)
		if err != nil {
			lastErr = err
			break
		}

		body, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if readErr != nil {
			return nil, readErr
		}

		if c.opts.Debug || c.opts.Trace {
			c.logResponse(resp, body)
		}

		if shouldRetry(resp.StatusCode, req.Method, c.opts.RetryNonIdempotent) && attempt < maxAttempts {
			sleep := retryBackoff(resp, attempt)
			c.opts.Logger.Debug("retrying request", "method", req.Method, "url", req.URL.String(), "status", resp.StatusCode, "attempt", attempt, "wait", sleep)
			select {
			case <-time.After(sleep):
				continue
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		return &Result{
			Status:  resp.StatusCode,
			Headers: resp.Header.Clone(),
			Body:    body,
		}, nil
	}

	if lastErr == nil {
		lastErr = errors.New("request failed")
	}
	return nil, lastErr
}

// ApplySession attaches the login token the way a browser would send the
// httpOnly cookie set by the user service.
func ApplySession(req *http.Request, token string) {
	req.Header.Set("Cookie", (&http.Cookie{Name: SessionCookie, Value: token}).String())
}

// SessionFromHeaders returns the session cookie value set by a response.
func SessionFromHeaders(h http.Header) (string, bool) {
	for _, c := range (&http.Response{Header: h}).Cookies() {
		if c.Name == SessionCookie && c.Value != "" {
			return c.Value, true
		}
	}
	return "", false
}

// IsTimeout reports whether err came from a deadline: the context's or the
// client's own timeout.
func IsTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var te interface{ Timeout() bool }
	return errors.As(err, &te) && te.Timeout()
}

func shouldRetry(status int, method string, retryNonIdempotent bool) bool {
	if status == http.StatusTooManyRequests || status >= 500 {
		switch strings.ToUpper(method) {
		case http.MethodGet, http.MethodHead, http.MethodPut, http.MethodDelete, http.MethodOptions:
			return true
		default:
			return retryNonIdempotent
		}
	}
	return false
}

func retryBackoff(resp *http.Response, attempt int) time.Duration {
	if resp != nil {
		if ra := resp.Header.Get("Retry-After"); ra != "" {
			// Retry-After can be an integer seconds or a HTTP date.
			if secs, err := strconv.Atoi(strings.TrimSpace(ra)); err == nil && secs >= 0 {
				return time.Duration(secs) * time.Second
			}
			if t, err := http.ParseTime(ra); err == nil {
				d := time.Until(t)
				if d > 0 {
					return d
				}
			}
		}
	}

	// Exponential backoff with jitter: 200ms * 2^(attempt-1), capped at 5s.
	base := 200 * time.Millisecond
	d := base * (1 << (attempt - 1))
	if d > 5*time.Second {
		d = 5 * time.Second
	}
	// +/- 50% jitter
	j := time.Duration(rand.Int63n(int64(d))) - d/2
	return d + j
}

// Redacted reports whether a header value must never be logged.
func Redacted(name string) bool {
	switch strings.ToLower(name) {
	case "authorization", "proxy-authorization", "cookie", "set-cookie":
		return true
	}
	return false
}

func (c *Client) logRequest(req *http.Request, body []byte) {
	fmt.Fprintf(c.opts.Out, "> %s %s\n", req.Method, req.URL.String())
	for k, vv := range req.Header {
		v := strings.Join(vv, ", ")
		if Redacted(k) {
			v = "<redacted>"
		}
		fmt.Fprintf(c.opts.Out, "> %s: %s\n", k, v)
	}
	if c.opts.Trace && len(body) > 0 {
		fmt.Fprintf(c.opts.Out, ">\n")
		_, _ = c.opts.Out.Write(body)
		if body[len(body)-1] != '\n' {
			_, _ = c.opts.Out.Write([]byte("\n"))
		}
	}
}

func (c *Client) logResponse(resp *http.Response, body []byte) {
	if resp == nil {
		return
	}
	fmt.Fprintf(c.opts.Out, "< %s\n", resp.Status)
	if c.opts.Debug {
		ct := resp.Header.Get("Content-Type")
		if ct != "" {
			fmt.Fprintf(c.opts.Out, "< Content-Type: %s\n", ct)
		}
		if resp.Header.Get("Set-Cookie") != "" {
			fmt.Fprintf(c.opts.Out, "< Set-Cookie: <redacted>\n")
		}
		fmt.Fprintf(c.opts.Out, "< Content-Length: %d\n", len(body))
	}
	if c.opts.Trace && len(body) > 0 {
		fmt.Fprintf(c.opts.Out, "<\n")
		_, _ = c.opts.Out.Write(body)
		if body[len(body)-1] != '\n' {
			_, _ = c.opts.Out.Write([]byte("\n"))
		}
	}
}
