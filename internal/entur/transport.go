package entur

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/five82/transitboard/internal/dispatch"
	"github.com/five82/transitboard/internal/retry"
)

const (
	// DefaultJourneyPlannerURL is the public JourneyPlanner v3 endpoint.
	DefaultJourneyPlannerURL = "https://api.entur.io/journey-planner/v3/graphql"
	// DefaultClientName identifies this client to Entur.
	DefaultClientName = "private-transitboard"

	defaultRequestTimeout = 30 * time.Second
	maxErrorBody          = 4 << 10
)

// Transport performs one journey planner call.
type Transport interface {
	Do(ctx context.Context, r Request) (*TripResponse, error)
}

// TransportFunc adapts a function to Transport.
type TransportFunc func(ctx context.Context, r Request) (*TripResponse, error)

// Do calls f.
func (f TransportFunc) Do(ctx context.Context, r Request) (*TripResponse, error) {
	return f(ctx, r)
}

// Ensure HTTPTransport implements Transport at compile time.
var _ Transport = (*HTTPTransport)(nil)

// StatusError is a non-2xx answer from the planner.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("journey planner returned status %d", e.Code)
	}
	return fmt.Sprintf("journey planner returned status %d: %s", e.Code, e.Body)
}

// QueryError reports GraphQL errors that left no trip data.
type QueryError struct {
	Messages []string
}

func (e *QueryError) Error() string {
	return "journey planner rejected query: " + strings.Join(e.Messages, "; ")
}

// HTTPTransport posts requests to the journey planner.
type HTTPTransport struct {
	endpoint   string
	http       *http.Client
	clientName string
	limiter    *rate.Limiter
	observe    func(status int, elapsed time.Duration, err error)
	newID      func() string
}

// HTTPOption configures an HTTPTransport.
type HTTPOption func(*HTTPTransport)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(c *http.Client) HTTPOption {
	return func(t *HTTPTransport) {
		if c != nil {
			t.http = c
		}
	}
}

// WithRequestsPerMinute spaces requests evenly. Zero or less disables the
// limit.
func WithRequestsPerMinute(n int) HTTPOption {
	return func(t *HTTPTransport) {
		if n > 0 {
			t.limiter = rate.NewLimiter(rate.Limit(float64(n)/60.0), 1)
		} else {
			t.limiter = nil
		}
	}
}

// WithRequestObserver is called after every request with the HTTP status (0
// when no response was received) and the elapsed time.
func WithRequestObserver(fn func(status int, elapsed time.Duration, err error)) HTTPOption {
	return func(t *HTTPTransport) {
		t.observe = fn
	}
}

// NewHTTPTransport builds a transport for the planner at endpoint. Blank
// values fall back to the public endpoint and the default client name.
func NewHTTPTransport(endpoint, clientName string, opts ...HTTPOption) (*HTTPTransport, error) {
	u, err := parseEndpoint(endpoint, DefaultJourneyPlannerURL)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(clientName)
	if name == "" {
		name = DefaultClientName
	}
	t := &HTTPTransport{
		endpoint:   u.String(),
		http:       &http.Client{Timeout: defaultRequestTimeout},
		clientName: name,
		newID:      uuid.NewString,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// Do sends r once. Request construction and decoding failures are marked
// permanent, everything else may be retried.
func (t *HTTPTransport) Do(ctx context.Context, r Request) (*TripResponse, error) {
	if t == nil {
		return nil, retry.Permanent(fmt.Errorf("transport is nil"))
	}
	if t.limiter != nil {
		if err := t.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("wait for request slot: %w", err)
		}
	}
	ctx, cancel := retry.StartAttempt(ctx)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(r.Payload))
	if err != nil {
		return nil, retry.Permanent(fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("ET-Client-Name", t.clientName)
	req.Header.Set("X-Correlation-Id", t.newID())
	for k, v := range r.Headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	status, payload, err := t.roundTrip(req)
	if t.observe != nil {
		t.observe(status, time.Since(start), err)
	}
	return payload, err
}

func (t *HTTPTransport) roundTrip(req *http.Request) (int, *TripResponse, error) {
	resp, err := t.http.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("execute request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return resp.StatusCode, nil, &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	var payload TripResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return resp.StatusCode, nil, retry.Permanent(fmt.Errorf("decode response: %w", err))
	}
	if payload.Data.Trip == nil && len(payload.Errors) > 0 {
		qe := &QueryError{}
		for _, e := range payload.Errors {
			qe.Messages = append(qe.Messages, e.Message)
		}
		return resp.StatusCode, nil, retry.Permanent(qe)
	}
	return resp.StatusCode, &payload, nil
}

// Throttled routes every call through d, so at most d's concurrency limit
// of calls run at once and they leave d's queue in call order.
func Throttled(next Transport, d *dispatch.Dispatcher) Transport {
	return TransportFunc(func(ctx context.Context, r Request) (*TripResponse, error) {
		return dispatch.Do(ctx, d, func(ctx context.Context) (*TripResponse, error) {
			return next.Do(ctx, r)
		})
	})
}

// Retrying retries failed calls to next according to p. Each attempt runs
// with its own timeout, which starts when next calls retry.StartAttempt, so
// time spent queued in a dispatcher or rate limiter is not counted.
func Retrying(next Transport, p retry.Policy, logger *slog.Logger, opts ...retry.Option) Transport {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	opts = append(opts[:len(opts):len(opts)], retry.WithDeferredTimeout())
	return TransportFunc(func(ctx context.Context, r Request) (*TripResponse, error) {
		var out *TripResponse
		err := retry.Do(ctx, p, func(ctx context.Context, attempt int) error {
			resp, err := next.Do(ctx, r)
			if err != nil {
				logger.Warn("journey planner request failed",
					"attempt", attempt,
					"max_attempts", p.MaxAttempts,
					"error", err)
				return err
			}
			out = resp
			return nil
		}, opts...)
		if err != nil {
			return nil, err
		}
		return out, nil
	})
}

func parseEndpoint(raw, fallback string) (*url.URL, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		trimmed = fallback
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "https://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse endpoint %q: %w", raw, err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("parse endpoint %q: missing host", raw)
	}
	u.Fragment = ""
	return u, nil
}
