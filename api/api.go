// Package api is the client of the remote portfolio REST API.
//
// Every response uses the same envelope:
//
//	{
//	  "status": "success",
//	  "message": "OK",
//	  "timestamp": "2025-09-08T10:00:00",
//	  "data": ...
//	}
//
// A non 2xx HTTP code, or an envelope status other than "success", is
// reported as an *Error.
package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// DefaultTimeout bounds every call made by a Client.
const DefaultTimeout = 10 * time.Second

// DefaultBaseURL is the address of a locally running API.
const DefaultBaseURL = "http://localhost:8081"

// ErrTimeout is wrapped by errors of calls that did not complete in time.
var ErrTimeout = errors.New("request timed out")

// Error is a failure reported by the API itself.
type Error struct {
	Op         string // operation, e.g. "execute backtest"
	StatusCode int    // HTTP status code
	Status     string // envelope status, empty if the body could not be decoded
	Message    string // envelope message
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	return fmt.Sprintf("cannot %s: %s (%d)", e.Op, msg, e.StatusCode)
}

type envelope struct {
	Status    string          `json:"status"`
	Message   string          `json:"message"`
	Timestamp string          `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// Client calls the remote API. It is safe for concurrent use.
type Client struct {
	base    *url.URL
	http    *http.Client
	timeout time.Duration
	header  http.Header
	verbose bool
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the underlying http.Client.
func WithHTTPClient(h *http.Client) Option { return func(c *Client) { c.http = h } }

// WithTimeout sets the per call timeout. Zero or less means DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithHeader adds a header sent with every request.
func WithHeader(key, value string) Option { return func(c *Client) { c.header.Add(key, value) } }

// WithVerbose logs every request and its response status.
func WithVerbose(v bool) Option { return func(c *Client) { c.verbose = v } }

// NewClient returns a client for the API at baseURL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	base, err := url.Parse(strings.TrimSuffix(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid API url %q: %w", baseURL, err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid API url %q: want scheme://host", baseURL)
	}
	c := &Client{
		base:    base,
		http:    http.DefaultClient,
		timeout: DefaultTimeout,
		header: http.Header{
			"Content-Type": {"application/json"},
			"Accept":       {"application/json"},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the API address.
func (c *Client) BaseURL() string { return c.base.String() }

// do performs one call and decodes the envelope data into out (if not nil).
// path must already be escaped.
func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, in, out any) error {
	code, body, err := c.send(ctx, op, method, path, query, in)
	if err != nil {
		return err
	}
	var env envelope
	decodeErr := json.Unmarshal(body, &env)
	if code < 200 || code >= 300 {
		return &Error{Op: op, StatusCode: code, Status: env.Status, Message: env.Message}
	}
	if decodeErr != nil {
		return fmt.Errorf("cannot %s: invalid response body: %w", op, decodeErr)
	}
	if env.Status != "success" {
		return &Error{Op: op, StatusCode: code, Status: env.Status, Message: env.Message}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("cannot %s: cannot decode data: %w", op, err)
	}
	return nil
}

// send performs one call and returns the HTTP code and the body.
func (c *Client) send(ctx context.Context, op, method, path string, query url.Values, in any) (int, []byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	u, err := c.url(path)
	if err != nil {
		return 0, nil, fmt.Errorf("cannot %s: %w", op, err)
	}
	u.RawQuery = query.Encode()

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return 0, nil, fmt.Errorf("cannot %s: cannot encode request: %w", op, err)
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return 0, nil, fmt.Errorf("cannot %s: cannot create http request %q: %w", op, u.String(), err)
	}
	for k, v := range c.header {
		req.Header[k] = v
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return 0, nil, fmt.Errorf("cannot %s after %v: %w", op, c.timeout, ErrTimeout)
		}
		return 0, nil, fmt.Errorf("cannot %s: %w", op, err)
	}
	defer resp.Body.Close()
	if c.verbose {
		log.Printf("%v %v%v %v", method, u.Host, u.EscapedPath(), resp.Status)
	}

	// reading in a buffer to be able to report the payload in errors
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, resp.Body); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return 0, nil, fmt.Errorf("cannot %s after %v: %w", op, c.timeout, ErrTimeout)
		}
		return 0, nil, fmt.Errorf("cannot %s: cannot read http body: %w", op, err)
	}
	return resp.StatusCode, buf.Bytes(), nil
}

// url joins the escaped path to the base URL. Both the decoded and the
// escaped forms are set so that escaped ids are sent as is.
func (c *Client) url(path string) (*url.URL, error) {
	u := *c.base
	u.RawPath = strings.TrimSuffix(c.base.EscapedPath(), "/") + path
	var err error
	if u.Path, err = url.PathUnescape(u.RawPath); err != nil {
		return nil, fmt.Errorf("invalid path %q: %w", path, err)
	}
	return &u, nil
}

// Raw performs a GET on path and returns the decoded data of the envelope,
// for ad hoc queries.
func (c *Client) Raw(ctx context.Context, path string) (any, error) {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	path, rawQuery, _ := strings.Cut(path, "?")
	query, err := url.ParseQuery(rawQuery)
	if err != nil {
		return nil, fmt.Errorf("invalid query %q: %w", rawQuery, err)
	}
	var data any
	if err := c.do(ctx, "get "+path, http.MethodGet, path, query, nil, &data); err != nil {
		return nil, err
	}
	return data, nil
}
