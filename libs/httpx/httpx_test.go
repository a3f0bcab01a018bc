package httpx

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestChainOrder(t *testing.T) {
	var order []string
	mark := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}
	h := Chain(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		order = append(order, "handler")
	}), mark("a"), mark("b"))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	if strings.Join(order, ",") != "a,b,handler" {
		t.Fatalf("unexpected order %v", order)
	}
}

func TestWithRequestID(t *testing.T) {
	var seen string
	h := WithRequestID(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "req-123")
	rw := httptest.NewRecorder()
	h.ServeHTTP(rw, req)
	if seen != "req-123" || rw.Header().Get(RequestIDHeader) != "req-123" {
		t.Fatalf("expected propagated id, got %q / %q", seen, rw.Header().Get(RequestIDHeader))
	}

	rw = httptest.NewRecorder()
	h.ServeHTTP(rw, httptest.NewRequest(http.MethodGet, "/", nil))
	if seen == "" || seen == "req-123" {
		t.Fatalf("expected generated id, got %q", seen)
	}
}

func TestMemoryRateLimiter(t *testing.T) {
	rl := NewMemoryRateLimiter(2, time.Minute)
	now := time.Date(2026, 1, 28, 9, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if ok, _ := rl.Allow(ctx, "1.2.3.4"); !ok {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	if ok, _ := rl.Allow(ctx, "1.2.3.4"); ok {
		t.Fatal("third request should be limited")
	}
	if ok, _ := rl.Allow(ctx, "5.6.7.8"); !ok {
		t.Fatal("other clients have their own window")
	}

	now = now.Add(time.Minute + time.Second)
	if ok, _ := rl.Allow(ctx, "1.2.3.4"); !ok {
		t.Fatal("window should reset")
	}
}

type failingLimiter struct{}

func (failingLimiter) Allow(context.Context, string) (bool, error) {
	return false, errors.New("redis down")
}

func TestWithRateLimit_FailOpenAndClosed(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })

	rw := httptest.NewRecorder()
	WithRateLimit(failingLimiter{}, nil, true)(ok).ServeHTTP(rw, httptest.NewRequest(http.MethodGet, "/", nil))
	if rw.Code != http.StatusOK {
		t.Fatalf("fail-open: expected 200, got %d", rw.Code)
	}

	rw = httptest.NewRecorder()
	WithRateLimit(failingLimiter{}, nil, false)(ok).ServeHTTP(rw, httptest.NewRequest(http.MethodGet, "/", nil))
	if rw.Code != http.StatusServiceUnavailable {
		t.Fatalf("fail-closed: expected 503, got %d", rw.Code)
	}
}

func TestWithCORS_Preflight(t *testing.T) {
	h := WithCORS(CORSPolicy{
		AllowedOrigins: []string{"https://clinic.example"},
		AllowedMethods: []string{"GET", "POST"},
		MaxAge:         10 * time.Minute,
	})(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		t.Fatal("preflight must not reach the handler")
	}))

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/public/slots", nil)
	req.Header.Set("Origin", "https://clinic.example")
	req.Header.Set("Access-Control-Request-Method", "GET")
	rw := httptest.NewRecorder()
	h.ServeHTTP(rw, req)

	if rw.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rw.Code)
	}
	if rw.Header().Get("Access-Control-Allow-Origin") != "https://clinic.example" {
		t.Fatalf("unexpected allow origin %q", rw.Header().Get("Access-Control-Allow-Origin"))
	}
	if rw.Header().Get("Access-Control-Max-Age") != "600" {
		t.Fatalf("unexpected max age %q", rw.Header().Get("Access-Control-Max-Age"))
	}
}

func TestWithRecover(t *testing.T) {
	h := WithRecover(discardLogger())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rw := httptest.NewRecorder()
	h.ServeHTTP(rw, httptest.NewRequest(http.MethodGet, "/", nil))
	if rw.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rw.Code)
	}
}

func TestDecodeJSON_RejectsUnknownFields(t *testing.T) {
	var dst struct {
		Name string `json:"name"`
	}
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"a","extra":1}`))
	if err := DecodeJSON(req, &dst); err == nil {
		t.Fatal("expected unknown field to be rejected")
	}
}
