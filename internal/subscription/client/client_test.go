package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sony/gobreaker"

	"subadmin/internal/api/dto"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(Config{
		BaseURL:    srv.URL + "/",
		MaxRetries: 2,
		BackoffMin: time.Millisecond,
		BackoffMax: 2 * time.Millisecond,
	})
}

func TestListDecodesRecords(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/api/subscriptions" {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		io.WriteString(w, `[{"id":1,"name":"Spotify","price":9.99,"count":2}]`)
	})

	subs, err := c.List(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(subs) != 1 || subs[0].ID != 1 || subs[0].Name != "Spotify" || subs[0].Price != 9.99 || subs[0].Count != 2 {
		t.Fatalf("unexpected list %+v", subs)
	}
}

func TestListNullBodyIsEmpty(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `null`)
	})
	subs, err := c.List(context.Background())
	if err != nil || subs == nil || len(subs) != 0 {
		t.Fatalf("List = %v, %v", subs, err)
	}
}

func TestCreateSendsSubmittedText(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content-type = %q", ct)
		}
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		if body["price"] != "9.99" || body["count"] != "1" || body["name"] != "Netflix" {
			t.Errorf("body = %v", body)
		}
		w.WriteHeader(http.StatusCreated)
		io.WriteString(w, `{"id":7,"name":"Netflix","price":9.99,"count":1}`)
	})

	sub, err := c.Create(context.Background(), dto.SubscriptionRequest{Name: "Netflix", Price: "9.99", Count: "1"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if sub.ID != 7 {
		t.Fatalf("id = %d", sub.ID)
	}
}

func TestUpdateAndDeletePaths(t *testing.T) {
	var seen []string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, r.Method+" "+r.URL.Path)
		switch r.Method {
		case http.MethodPut:
			io.WriteString(w, `{"id":3,"name":"x","price":1,"count":1}`)
		case http.MethodDelete:
			w.WriteHeader(http.StatusNoContent)
		}
	})

	if _, err := c.Update(context.Background(), 3, dto.SubscriptionRequest{Name: "x", Price: "1", Count: "1"}); err != nil {
		t.Fatalf("update: %v", err)
	}
	if err := c.Delete(context.Background(), 3); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(seen) != 2 || seen[0] != "PUT /api/subscriptions/3" || seen[1] != "DELETE /api/subscriptions/3" {
		t.Fatalf("requests = %v", seen)
	}
}

func TestAPIErrorIsDecodedAndNotRetried(t *testing.T) {
	var calls int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		io.WriteString(w, `{"error":"subscription not found"}`)
	})

	err := c.Delete(context.Background(), 9)
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want *APIError", err)
	}
	if apiErr.StatusCode != http.StatusNotFound || apiErr.Message != "subscription not found" {
		t.Fatalf("apiErr = %+v", apiErr)
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Fatalf("calls = %d, want 1", n)
	}
}

func TestListRetriesTransientFailures(t *testing.T) {
	var calls int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		io.WriteString(w, `[]`)
	})

	if _, err := c.List(context.Background()); err != nil {
		t.Fatalf("list: %v", err)
	}
	if n := atomic.LoadInt32(&calls); n != 3 {
		t.Fatalf("calls = %d, want 3", n)
	}
}

func TestListGivesUpAfterMaxRetries(t *testing.T) {
	var calls int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := c.List(context.Background())
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusBadGateway {
		t.Fatalf("err = %v", err)
	}
	if n := atomic.LoadInt32(&calls); n != 3 {
		t.Fatalf("calls = %d, want 3", n)
	}
}

func TestCreateIsNeverRetried(t *testing.T) {
	var calls int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	})

	if _, err := c.Create(context.Background(), dto.SubscriptionRequest{Name: "a", Price: "1", Count: "1"}); err == nil {
		t.Fatal("expected error")
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Fatalf("calls = %d, want 1", n)
	}
}

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	var calls int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	})
	c.maxRetries = 0

	for i := 0; i < 5; i++ {
		c.List(context.Background())
	}
	_, err := c.List(context.Background())
	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Fatalf("err = %v, want open breaker", err)
	}
	if n := atomic.LoadInt32(&calls); n != 5 {
		t.Fatalf("calls = %d, want 5", n)
	}
}

func TestRateLimitedCallIsNotRetried(t *testing.T) {
	var calls int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, "Too many requests", http.StatusTooManyRequests)
	})

	_, err := c.List(context.Background())
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("err = %v", err)
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Fatalf("calls = %d, want 1", n)
	}
}

func TestTokenIsSentAsBearer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer signed" {
			t.Errorf("Authorization = %q", got)
		}
		io.WriteString(w, `[]`)
	}))
	defer srv.Close()

	c := New(Config{
		BaseURL: srv.URL,
		Token:   func() (string, error) { return "signed", nil },
	})
	if _, err := c.List(context.Background()); err != nil {
		t.Fatalf("list: %v", err)
	}
}

func TestRetryWaitStopsOnCancel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := New(Config{
		BaseURL:    srv.URL,
		MaxRetries: 2,
		BackoffMin: time.Minute,
		BackoffMax: time.Minute,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := c.List(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want deadline exceeded", err)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Fatalf("List waited %v after the context ended", elapsed)
	}
}
