package entur

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/five82/transitboard/internal/dispatch"
	"github.com/five82/transitboard/internal/retry"
)

func newTestTransport(t *testing.T, handler http.HandlerFunc, opts ...HTTPOption) *HTTPTransport {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	tr, err := NewHTTPTransport(server.URL, "test-client", opts...)
	if err != nil {
		t.Fatalf("NewHTTPTransport returned error: %v", err)
	}
	return tr
}

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func noSleep() retry.Option {
	return retry.WithSleep(func(context.Context, time.Duration) error { return nil })
}

func TestHTTPTransport_PostsPayloadWithHeaders(t *testing.T) {
	var gotBody string
	var gotHeaders http.Header
	tr := newTestTransport(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		gotHeaders = r.Header.Clone()
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, sampleTripJSON)
	})

	var observed int
	WithRequestObserver(func(status int, elapsed time.Duration, err error) { observed = status })(tr)

	resp, err := tr.Do(testContext(t), Request{Payload: []byte(`{"query":"q"}`), Headers: map[string]string{"X-Extra": "1"}})
	if err != nil {
		t.Fatalf("Do returned error: %v", err)
	}
	if got := len(resp.Trips("no")); got != 2 {
		t.Fatalf("trips = %d, want 2", got)
	}
	if gotBody != `{"query":"q"}` {
		t.Fatalf("body = %q", gotBody)
	}
	if gotHeaders.Get("ET-Client-Name") != "test-client" {
		t.Fatalf("ET-Client-Name = %q", gotHeaders.Get("ET-Client-Name"))
	}
	if gotHeaders.Get("Content-Type") != "application/json" || gotHeaders.Get("X-Extra") != "1" {
		t.Fatalf("headers = %v", gotHeaders)
	}
	if gotHeaders.Get("X-Correlation-Id") == "" {
		t.Fatalf("missing X-Correlation-Id")
	}
	if observed != http.StatusOK {
		t.Fatalf("observed status = %d, want 200", observed)
	}
}

func TestHTTPTransport_ErrorClassification(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		permanent bool
		check     func(t *testing.T, err error)
	}{
		{
			name:   "server error",
			status: http.StatusBadGateway,
			body:   "upstream down",
			check: func(t *testing.T, err error) {
				var se *StatusError
				if !errors.As(err, &se) || se.Code != http.StatusBadGateway || se.Body != "upstream down" {
					t.Fatalf("error = %v, want *StatusError 502", err)
				}
			},
		},
		{
			name:      "malformed json",
			status:    http.StatusOK,
			body:      `{"data":`,
			permanent: true,
		},
		{
			name:      "graphql errors",
			status:    http.StatusOK,
			body:      `{"data":{"trip":null},"errors":[{"message":"bad place"}]}`,
			permanent: true,
			check: func(t *testing.T, err error) {
				var qe *QueryError
				if !errors.As(err, &qe) || len(qe.Messages) != 1 || qe.Messages[0] != "bad place" {
					t.Fatalf("error = %v, want QueryError", err)
				}
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := newTestTransport(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			})
			_, err := tr.Do(testContext(t), Request{Payload: []byte(`{}`)})
			if err == nil {
				t.Fatalf("Do returned nil error")
			}
			if got := retry.IsPermanent(err); got != tt.permanent {
				t.Fatalf("IsPermanent = %v, want %v (err %v)", got, tt.permanent, err)
			}
			if tt.check != nil {
				tt.check(t, err)
			}
		})
	}
}

func TestHTTPTransport_ZeroTripsIsSuccess(t *testing.T) {
	tr := newTestTransport(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"data":{"trip":{"tripPatterns":[]}}}`)
	})
	resp, err := tr.Do(testContext(t), Request{Payload: []byte(`{}`)})
	if err != nil {
		t.Fatalf("Do returned error: %v", err)
	}
	if trips := resp.Trips("no"); len(trips) != 0 {
		t.Fatalf("trips = %v, want none", trips)
	}
}

func TestNewHTTPTransport_Defaults(t *testing.T) {
	tr, err := NewHTTPTransport("", "  ")
	if err != nil {
		t.Fatalf("NewHTTPTransport returned error: %v", err)
	}
	if tr.endpoint != DefaultJourneyPlannerURL || tr.clientName != DefaultClientName {
		t.Fatalf("defaults = %q %q", tr.endpoint, tr.clientName)
	}
	if _, err := NewHTTPTransport("http://", ""); err == nil {
		t.Fatalf("NewHTTPTransport accepted an endpoint without host")
	}
}

func TestRetrying_RetriesStatusErrorsThroughDispatcher(t *testing.T) {
	var hits atomic.Int32
	tr := newTestTransport(t, func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = io.WriteString(w, sampleTripJSON)
	})

	d := dispatch.New(1, time.Millisecond)
	t.Cleanup(d.Close)
	composed := Retrying(Throttled(tr, d), retry.Policy{MaxAttempts: 3, Backoff: time.Millisecond}, nil, noSleep())

	resp, err := composed.Do(testContext(t), Request{Payload: []byte(`{}`)})
	if err != nil {
		t.Fatalf("Do returned error: %v", err)
	}
	if hits.Load() != 3 {
		t.Fatalf("hits = %d, want 3", hits.Load())
	}
	if len(resp.Trips("no")) != 2 {
		t.Fatalf("unexpected trips in final response")
	}
}

func TestRetrying_ExhaustsAndStopsOnPermanent(t *testing.T) {
	var calls atomic.Int32
	failing := TransportFunc(func(ctx context.Context, r Request) (*TripResponse, error) {
		calls.Add(1)
		return nil, &StatusError{Code: http.StatusInternalServerError}
	})
	_, err := Retrying(failing, retry.Policy{MaxAttempts: 3}, nil, noSleep()).Do(testContext(t), Request{})
	var exhausted *retry.ExhaustedError
	if !errors.As(err, &exhausted) || calls.Load() != 3 {
		t.Fatalf("err = %v calls = %d, want exhausted after 3", err, calls.Load())
	}
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("exhausted error should unwrap to StatusError: %v", err)
	}

	calls.Store(0)
	permanent := TransportFunc(func(ctx context.Context, r Request) (*TripResponse, error) {
		calls.Add(1)
		return nil, retry.Permanent(errors.New("decode response: eof"))
	})
	if _, err := Retrying(permanent, retry.Policy{MaxAttempts: 3}, nil, noSleep()).Do(testContext(t), Request{}); err == nil || calls.Load() != 1 {
		t.Fatalf("err = %v calls = %d, want one call", err, calls.Load())
	}
}

func TestRetrying_AttemptTimeoutIsRetried(t *testing.T) {
	var calls atomic.Int32
	slowThenFast := TransportFunc(func(ctx context.Context, r Request) (*TripResponse, error) {
		if calls.Add(1) == 1 {
			ctx, cancel := retry.StartAttempt(ctx)
			defer cancel()
			<-ctx.Done()
			return nil, ctx.Err()
		}
		return &TripResponse{Data: TripData{Trip: &TripResult{}}}, nil
	})
	p := retry.Policy{MaxAttempts: 2, AttemptTimeout: 10 * time.Millisecond}
	resp, err := Retrying(slowThenFast, p, nil, noSleep()).Do(testContext(t), Request{})
	if err != nil || resp == nil {
		t.Fatalf("Do = %v, %v; want success on second attempt", resp, err)
	}
	if calls.Load() != 2 {
		t.Fatalf("calls = %d, want 2", calls.Load())
	}
}

func TestRetrying_QueueTimeIsNotChargedToAttempts(t *testing.T) {
	var hits atomic.Int32
	tr := newTestTransport(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		time.Sleep(60 * time.Millisecond)
		_, _ = io.WriteString(w, sampleTripJSON)
	})

	// One call at a time: the last of six waits ~300ms in the queue, well
	// past the attempt timeout, but each request itself takes ~60ms.
	d := dispatch.New(1, 0)
	t.Cleanup(d.Close)
	p := retry.Policy{MaxAttempts: 1, AttemptTimeout: 200 * time.Millisecond}
	composed := Retrying(Throttled(tr, d), p, nil, noSleep())

	ctx := testContext(t)
	errs := make([]error, 6)
	var wg sync.WaitGroup
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = composed.Do(ctx, Request{Payload: []byte(`{}`)})
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("call %d failed: %v", i, err)
		}
	}
	if hits.Load() != 6 {
		t.Fatalf("hits = %d, want 6", hits.Load())
	}
}

func TestRetrying_RateLimitWaitIsNotChargedToAttempts(t *testing.T) {
	tr := newTestTransport(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, sampleTripJSON)
	}, WithRequestsPerMinute(600))

	// 600/min spaces requests 100ms apart, longer than the attempt timeout.
	p := retry.Policy{MaxAttempts: 1, AttemptTimeout: 50 * time.Millisecond}
	composed := Retrying(tr, p, nil, noSleep())
	for i := 0; i < 3; i++ {
		if _, err := composed.Do(testContext(t), Request{Payload: []byte(`{}`)}); err != nil {
			t.Fatalf("call %d failed: %v", i, err)
		}
	}
}
