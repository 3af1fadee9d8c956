package client

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/adamwoolhether/restclient/client"

// userAgent is an http.RoundTripper, enabling the persistent User-Agent header.
type userAgent struct {
	value string
	base  http.RoundTripper
}

func (ua userAgent) RoundTrip(r *http.Request) (*http.Response, error) {
	cpy := r.Clone(r.Context())
	cpy.Header.Set("User-Agent", ua.value)
	return ua.base.RoundTrip(cpy)
}

// requestID is an http.RoundTripper stamping a UUID on requests lacking one.
type requestID struct {
	header string
	base   http.RoundTripper
}

func (rid requestID) RoundTrip(r *http.Request) (*http.Response, error) {
	if r.Header.Get(rid.header) != "" {
		return rid.base.RoundTrip(r)
	}

	cpy := r.Clone(r.Context())
	cpy.Header.Set(rid.header, uuid.NewString())
	return rid.base.RoundTrip(cpy)
}

// tracing is an http.RoundTripper wrapping each request in a client span.
// The span ends once headers are received, the body is not covered.
type tracing struct {
	tracer trace.Tracer
	base   http.RoundTripper
}

func newTracing(tp trace.TracerProvider, base http.RoundTripper) tracing {
	if tp == nil {
		tp = otel.GetTracerProvider()
	}

	return tracing{
		tracer: tp.Tracer(instrumentationName),
		base:   base,
	}
}

func (t tracing) RoundTrip(r *http.Request) (*http.Response, error) {
	ctx, span := t.tracer.Start(r.Context(), "restclient "+r.Method, trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	span.SetAttributes(
		attribute.String("http.request.method", r.Method),
		attribute.String("url.full", r.URL.String()),
		attribute.String("server.address", r.URL.Hostname()),
	)

	cpy := r.Clone(ctx)
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(cpy.Header))

	resp, err := t.base.RoundTrip(cpy)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))
	if resp.StatusCode >= http.StatusInternalServerError {
		span.SetStatus(codes.Error, resp.Status)
	}

	return resp, nil
}

// instrument wraps base with prometheus round tripper instrumentation,
// registering the collectors on reg. Collectors already registered by
// another client on the same registry are shared.
func instrument(reg prometheus.Registerer, base http.RoundTripper) (http.RoundTripper, error) {
	requests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "restclient",
			Name:      "requests_total",
			Help:      "Outbound REST calls by status code and method.",
		},
		[]string{"code", "method"},
	)

	duration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "restclient",
			Name:      "request_duration_seconds",
			Help:      "Latency of outbound REST calls until response headers.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"code", "method"},
	)

	inFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "restclient",
			Name:      "in_flight_requests",
			Help:      "Outbound REST calls awaiting response headers.",
		},
	)

	var err error
	if requests, err = register(reg, requests); err != nil {
		return nil, err
	}
	if duration, err = register(reg, duration); err != nil {
		return nil, err
	}
	if inFlight, err = register(reg, inFlight); err != nil {
		return nil, err
	}

	rt := promhttp.InstrumentRoundTripperDuration(duration, base)
	rt = promhttp.InstrumentRoundTripperCounter(requests, rt)
	rt = promhttp.InstrumentRoundTripperInFlight(inFlight, rt)

	return rt, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, fmt.Errorf("registering collector: %w", err)
	}

	return c, nil
}
