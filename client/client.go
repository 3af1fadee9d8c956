package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
)

// Client issues REST calls against a JSON API rooted at a base URL.
// Its configuration is immutable once built, so a Client is safe for
// concurrent use to the extent its [http.Client] is.
type Client struct {
	c        *http.Client
	baseURL  *url.URL
	auth     Authenticator
	defaults []CallOption
	logger   *slog.Logger

	// follow is the redirect policy restored by WithFollowRedirects(true).
	follow func(*http.Request, []*http.Request) error
}

// New builds a *Client for baseURL with the provided options.
// If not specified, a fresh http.Client over http.DefaultTransport is used.
func New(baseURL string, optFns ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing base url: %w", err)
	}

	var opts options
	for _, opt := range optFns {
		if opt == nil {
			return nil, errors.New("applying client option: option must not be nil")
		}
		if err := opt(&opts); err != nil {
			return nil, fmt.Errorf("applying client option: %w", err)
		}
	}

	client := &Client{
		c:        &http.Client{},
		baseURL:  u,
		auth:     opts.auth,
		defaults: opts.defaults,
		logger:   slog.Default(),
	}

	if opts.client != nil {
		cpy := *opts.client
		client.c = &cpy
	}

	if opts.logger != nil {
		client.logger = opts.logger
	}

	if opts.timeout != nil {
		client.c.Timeout = *opts.timeout
	}

	client.follow = client.c.CheckRedirect
	if opts.noFollowRedirects {
		client.c.CheckRedirect = noFollow
	}

	var transport http.RoundTripper
	switch {
	case opts.rt != nil:
		transport = opts.rt
	case opts.client != nil && opts.client.Transport != nil:
		transport = opts.client.Transport
	default:
		transport = http.DefaultTransport
	}
	if opts.userAgent != "" {
		transport = userAgent{value: opts.userAgent, base: transport}
	}
	if opts.requestIDHeader != "" {
		transport = requestID{header: opts.requestIDHeader, base: transport}
	}
	if opts.tracing {
		transport = newTracing(opts.tracerProvider, transport)
	}
	if opts.registerer != nil {
		rt, err := instrument(opts.registerer, transport)
		if err != nil {
			return nil, fmt.Errorf("configuring metrics: %w", err)
		}
		transport = rt
	}
	client.c.Transport = transport

	return client, nil
}

// BaseURL returns a copy of the URL all calls are issued against.
func (c *Client) BaseURL() *url.URL {
	u := *c.baseURL
	return &u
}

// Call issues a method request to the base URL joined with segments and
// returns the response as received. Each segment is converted to a string.
//
// Call does not interpret the status code unless [WithStatusCheck] is in
// effect, and transport errors are returned exactly as [http.Client.Do]
// reports them. On success the caller must close the response body.
func (c *Client) Call(ctx context.Context, method string, segments []any, opts ...CallOption) (*http.Response, error) {
	var settings callOpts
	for _, opt := range c.defaults {
		if err := opt(&settings); err != nil {
			return nil, fmt.Errorf("applying default call option: %w", err)
		}
	}
	for _, opt := range opts {
		if opt == nil {
			return nil, errors.New("applying call option: option must not be nil")
		}
		if err := opt(&settings); err != nil {
			return nil, fmt.Errorf("applying call option: %w", err)
		}
	}

	for i, seg := range segments {
		if seg == nil {
			return nil, fmt.Errorf("segment %d: must not be nil", i)
		}
	}

	reqURL := c.URL(segments, settings.params)

	var body io.Reader
	if settings.body != nil {
		body = bytes.NewReader(settings.body)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL.String(), body)
	if err != nil {
		return nil, fmt.Errorf("instantiating request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if settings.contentType != "" {
		req.Header.Set("Content-Type", settings.contentType)
	}
	for k, v := range settings.headers {
		req.Header[k] = v
	}

	auth := c.auth
	if settings.auth != nil {
		auth = settings.auth
	}
	if auth != nil {
		auth.Authenticate(req)
	}

	c.logger.DebugContext(ctx, "rest call", "method", method, "url", req.URL.String())

	resp, err := c.httpClient(settings).Do(req)
	if err != nil {
		c.logger.ErrorContext(ctx, "rest call failed",
			"type", KindFailure,
			"error", errorName(err),
			"detail", err.Error(),
			"method", method,
			"url", req.URL.String(),
		)
		return nil, err
	}

	if settings.checkStatus {
		if err := c.checkStatus(ctx, req, resp); err != nil {
			return nil, err
		}
	}

	c.logger.DebugContext(ctx, "rest call done", "method", method, "url", req.URL.String(), "status", resp.StatusCode)

	return resp, nil
}

// URL composes the URL a call with segments and params is sent to.
// The base path (or "/" when empty) is followed by the segments joined
// with "/", and params are appended to any query already on the base URL.
// The base path keeps its original encoding. A nil segment renders empty,
// [Client.Call] rejects it.
func (c *Client) URL(segments []any, params url.Values) *url.URL {
	u := *c.baseURL

	// Work on the escaped form so an encoded base path such as a%2Fb
	// reaches the server unchanged.
	escaped := u.EscapedPath()
	if len(segments) > 0 {
		parts := make([]string, len(segments))
		for i, seg := range segments {
			parts[i] = escapeSegment(stringify(seg))
		}
		escaped = strings.TrimSuffix(escaped, "/") + "/" + strings.Join(parts, "/")
	}
	if escaped == "" {
		escaped = "/"
	}
	if path, err := url.PathUnescape(escaped); err == nil {
		u.Path, u.RawPath = path, escaped
	}

	if len(params) > 0 {
		q := u.Query()
		for k, vals := range params {
			for _, v := range vals {
				q.Add(k, v)
			}
		}
		u.RawQuery = q.Encode()
	}

	return &u
}

// httpClient returns the client to use for a call, a shallow copy
// when the call overrides the timeout or the redirect policy.
func (c *Client) httpClient(settings callOpts) *http.Client {
	if settings.timeout == nil && settings.followRedirects == nil {
		return c.c
	}

	hc := *c.c
	if settings.timeout != nil {
		hc.Timeout = *settings.timeout
	}
	if settings.followRedirects != nil {
		if *settings.followRedirects {
			hc.CheckRedirect = c.follow
		} else {
			hc.CheckRedirect = noFollow
		}
	}

	return &hc
}

// checkStatus turns redirect, client and server error responses into a
// *StatusError. The response body is consumed and closed on failure.
func (c *Client) checkStatus(ctx context.Context, req *http.Request, resp *http.Response) error {
	kind := statusKind(resp)
	if kind == "" {
		return nil
	}

	defer func() {
		if _, err := io.Copy(io.Discard, resp.Body); err != nil {
			c.logger.Error("failed to discard unused body", "error", err)
		}
		if err := resp.Body.Close(); err != nil {
			c.logger.Error("failed to close response body", "error", err)
		}
	}()

	b, err := io.ReadAll(io.LimitReader(resp.Body, maxErrBodySize))
	if err != nil {
		b = []byte("unable to read body")
	}

	statusErr := &StatusError{
		Kind:       kind,
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Code:       string(kind),
		Message:    resp.Header.Get("Location"),
		Location:   resp.Header.Get("Location"),
		Body:       string(b),
		Err:        sentinelFor(kind, resp.StatusCode),
	}
	if kind != KindRedirect {
		statusErr.Code, statusErr.Message = parseErrorPayload(b)
	}

	c.logger.ErrorContext(ctx, "rest call failed",
		"type", kind,
		"error", statusErr.Code,
		"detail", statusErr.Message,
		"method", req.Method,
		"url", req.URL.String(),
		"status", resp.StatusCode,
		"body", statusErr.Body,
	)

	return statusErr
}

// escapeSegment escapes s for use in a path, keeping any "/" it contains
// as a separator.
func escapeSegment(s string) string {
	return (&url.URL{Path: s}).EscapedPath()
}

func noFollow(*http.Request, []*http.Request) error {
	return http.ErrUseLastResponse
}
