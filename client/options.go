package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"reflect"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cast"
	"go.opentelemetry.io/otel/trace"
)

// Option is a functional option for configuring a [Client] via [New].
type Option func(*options) error
type options struct {
	client            *http.Client
	rt                http.RoundTripper
	timeout           *time.Duration
	userAgent         string
	auth              Authenticator
	defaults          []CallOption
	noFollowRedirects bool
	requestIDHeader   string
	tracing           bool
	tracerProvider    trace.TracerProvider
	registerer        prometheus.Registerer
	logger            *slog.Logger
}

// WithClient replaces the default [http.Client] used by the [Client].
// The given client is copied, it is never mutated.
func WithClient(hc *http.Client) Option {
	return func(c *options) error {
		if hc == nil {
			return errors.New("client must not be nil")
		}
		c.client = hc
		return nil
	}
}

// WithTransport sets a custom [http.RoundTripper] as the base transport.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *options) error {
		if rt == nil {
			return errors.New("transport must not be nil")
		}
		c.rt = rt
		return nil
	}
}

// WithTimeout sets the default overall request timeout on the underlying [http.Client].
// [WithCallTimeout] overrides it for a single call.
func WithTimeout(d time.Duration) Option {
	return func(c *options) error {
		if d < 0 {
			return errors.New("timeout must not be negative")
		}
		c.timeout = &d
		return nil
	}
}

// WithUserAgent sets the User-Agent header of all outgoing requests, verbatim.
func WithUserAgent(header string) Option {
	return func(c *options) error {
		c.userAgent = header
		return nil
	}
}

// WithAuth authenticates all outgoing requests with a.
// [WithCallAuth] overrides it for a single call.
func WithAuth(a Authenticator) Option {
	return func(c *options) error {
		c.auth = a
		return nil
	}
}

// WithDefaults registers call options applied to every [Client.Call]
// before the call's own options.
func WithDefaults(opts ...CallOption) Option {
	return func(c *options) error {
		for _, opt := range opts {
			if opt == nil {
				return errors.New("default call option must not be nil")
			}
		}
		c.defaults = append(c.defaults, opts...)
		return nil
	}
}

// WithNoFollowRedirects prevents the [Client] from following HTTP redirects.
func WithNoFollowRedirects() Option {
	return func(c *options) error {
		c.noFollowRedirects = true
		return nil
	}
}

// WithRequestID tags each request with a random UUID in the given header,
// unless the request already carries one. An empty header defaults to X-Request-ID.
func WithRequestID(header string) Option {
	return func(c *options) error {
		if header == "" {
			header = "X-Request-ID"
		}
		c.requestIDHeader = http.CanonicalHeaderKey(header)
		return nil
	}
}

// WithTracing starts a client span per request and propagates it with the
// global text map propagator. A nil tp uses the global tracer provider.
func WithTracing(tp trace.TracerProvider) Option {
	return func(c *options) error {
		c.tracing = true
		c.tracerProvider = tp
		return nil
	}
}

// WithMetrics records request counts, latencies and in-flight requests on reg.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(c *options) error {
		if reg == nil {
			return errors.New("registerer must not be nil")
		}
		c.registerer = reg
		return nil
	}
}

// WithLogger injects a custom [slog.Logger] into the [Client].
func WithLogger(logger *slog.Logger) Option {
	return func(c *options) error {
		c.logger = logger
		return nil
	}
}

// CallOption is a functional option for [Client.Call], also usable
// as a client-wide default through [WithDefaults].
type CallOption func(*callOpts) error

type callOpts struct {
	params          url.Values
	timeout         *time.Duration
	headers         http.Header
	body            []byte
	contentType     string
	auth            Authenticator
	followRedirects *bool
	checkStatus     bool
}

// WithParams adds query parameters to the request URL. Values are
// converted to strings, slices become repeated keys and nil values are dropped.
func WithParams(params map[string]any) CallOption {
	return func(opts *callOpts) error {
		if opts.params == nil {
			opts.params = url.Values{}
		}

		for k, v := range params {
			if k == "" {
				return errors.New("cannot use empty param key")
			}
			if v == nil {
				continue
			}
			opts.params[k] = paramValues(v)
		}

		return nil
	}
}

// WithCallTimeout overrides the client timeout for a single call.
func WithCallTimeout(d time.Duration) CallOption {
	return func(opts *callOpts) error {
		if d < 0 {
			return errors.New("timeout must not be negative")
		}
		opts.timeout = &d

		return nil
	}
}

// WithHeader sets a request header, replacing any default value for key.
// A User-Agent set here is replaced by the one the client was built with
// when [WithUserAgent] is in effect.
func WithHeader(key, value string) CallOption {
	return func(opts *callOpts) error {
		if key == "" {
			return errors.New("cannot use empty header key")
		}
		if opts.headers == nil {
			opts.headers = http.Header{}
		}
		opts.headers.Set(key, value)

		return nil
	}
}

// WithJSON encodes body as the JSON request payload.
func WithJSON(body any) CallOption {
	return func(opts *callOpts) error {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request payload: %w", err)
		}
		opts.body = b
		opts.contentType = "application/json"

		return nil
	}
}

// WithBody sends raw bytes as the request payload with the given Content-Type.
func WithBody(body []byte, contentType string) CallOption {
	return func(opts *callOpts) error {
		if contentType == "" {
			return errors.New("cannot use empty content type")
		}
		opts.body = body
		opts.contentType = contentType

		return nil
	}
}

// WithCallAuth overrides the client [Authenticator] for a single call.
// A nil a sends the call without credentials.
func WithCallAuth(a Authenticator) CallOption {
	return func(opts *callOpts) error {
		if a == nil {
			a = AuthFunc(func(*http.Request) {})
		}
		opts.auth = a

		return nil
	}
}

// WithFollowRedirects overrides the client redirect policy for a single call.
func WithFollowRedirects(follow bool) CallOption {
	return func(opts *callOpts) error {
		opts.followRedirects = &follow

		return nil
	}
}

// WithStatusCheck makes the call fail with a [*StatusError] on 4xx, 5xx
// and unfollowed redirect responses.
func WithStatusCheck() CallOption {
	return func(opts *callOpts) error {
		opts.checkStatus = true

		return nil
	}
}

// DecodeOption is a functional option for [Decode].
type DecodeOption func(*decodeOpts)

type decodeOpts struct {
	useJSONNum bool
}

// WithJSONNumber tells the JSON decoder to use [json.Decoder.UseNumber],
// preserving number precision as [json.Number] instead of float64.
func WithJSONNumber() DecodeOption {
	return func(opts *decodeOpts) {
		opts.useJSONNum = true
	}
}

// stringify converts a segment or parameter value to its string form.
func stringify(v any) string {
	if s, err := cast.ToStringE(v); err == nil {
		return s
	}

	return fmt.Sprint(v)
}

func paramValues(v any) []string {
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Slice && rv.Type().Elem().Kind() != reflect.Uint8 {
		vals := make([]string, rv.Len())
		for i := range rv.Len() {
			vals[i] = stringify(rv.Index(i).Interface())
		}
		return vals
	}

	return []string{stringify(v)}
}
