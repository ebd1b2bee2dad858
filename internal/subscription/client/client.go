// Package client talks to the subscriptions REST resource on behalf of the dashboard.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/jpillora/backoff"
	"github.com/sony/gobreaker"

	"subadmin/internal/api/dto"
	"subadmin/internal/metrics"
	"subadmin/internal/subscription"
)

const resourcePath = "/api/subscriptions"

var (
	errDecode = errors.New("decode response")
	errToken  = errors.New("sign request")
)

// Operation names, used as metric labels and in notifications.
const (
	OpList   = "list"
	OpCreate = "create"
	OpUpdate = "update"
	OpDelete = "delete"
)

// APIError is a non-2xx answer from the subscriptions API.
type APIError struct {
	StatusCode int
	Message    string
	Field      string
}

func (e *APIError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("subscriptions api: %d: %s (%s)", e.StatusCode, e.Message, e.Field)
	}
	return fmt.Sprintf("subscriptions api: %d: %s", e.StatusCode, e.Message)
}

type Config struct {
	BaseURL    string
	Timeout    time.Duration
	MaxRetries int
	BackoffMin time.Duration
	BackoffMax time.Duration
	HTTPClient *http.Client
	// Token, when set, is called before every request and sent as a bearer token.
	Token func() (string, error)
}

type Client struct {
	baseURL    string
	http       *http.Client
	maxRetries int
	backoffMin time.Duration
	backoffMax time.Duration
	breaker    *gobreaker.CircuitBreaker
	token      func() (string, error)
}

func New(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.BackoffMin <= 0 {
		cfg.BackoffMin = 100 * time.Millisecond
	}
	if cfg.BackoffMax <= 0 {
		cfg.BackoffMax = 2 * time.Second
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: cfg.Timeout}
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		http:       hc,
		maxRetries: cfg.MaxRetries,
		backoffMin: cfg.BackoffMin,
		backoffMax: cfg.BackoffMax,
		token:      cfg.Token,
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "subscriptions-api",
			MaxRequests: 1,
			Timeout:     15 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
			// 4xx answers mean the API is up.
			IsSuccessful: func(err error) bool {
				return err == nil || !isTransient(err)
			},
		}),
	}
}

func (c *Client) List(ctx context.Context) ([]subscription.Subscription, error) {
	var subs []subscription.Subscription
	if err := c.do(ctx, OpList, http.MethodGet, resourcePath, nil, &subs, http.StatusOK, true); err != nil {
		return nil, err
	}
	if subs == nil {
		subs = []subscription.Subscription{}
	}
	return subs, nil
}

// Create is never retried: a lost response could otherwise create the record twice.
func (c *Client) Create(ctx context.Context, req dto.SubscriptionRequest) (*subscription.Subscription, error) {
	var sub subscription.Subscription
	if err := c.do(ctx, OpCreate, http.MethodPost, resourcePath, req, &sub, http.StatusCreated, false); err != nil {
		return nil, err
	}
	return &sub, nil
}

func (c *Client) Update(ctx context.Context, id int64, req dto.SubscriptionRequest) (*subscription.Subscription, error) {
	var sub subscription.Subscription
	if err := c.do(ctx, OpUpdate, http.MethodPut, itemPath(id), req, &sub, http.StatusOK, true); err != nil {
		return nil, err
	}
	return &sub, nil
}

func (c *Client) Delete(ctx context.Context, id int64) error {
	return c.do(ctx, OpDelete, http.MethodDelete, itemPath(id), nil, nil, http.StatusNoContent, true)
}

func itemPath(id int64) string {
	return resourcePath + "/" + strconv.FormatInt(id, 10)
}

func (c *Client) do(ctx context.Context, op, method, path string, in, out any, want int, retry bool) (err error) {
	start := time.Now()
	defer func() {
		status := "ok"
		if err != nil {
			status = "error"
		}
		metrics.RemoteRequestsTotal.WithLabelValues(op, status).Inc()
		metrics.RemoteRequestDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	}()

	var body []byte
	if in != nil {
		body, err = json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s: encode request: %w", op, err)
		}
	}

	b := &backoff.Backoff{Min: c.backoffMin, Max: c.backoffMax, Factor: 2, Jitter: true}
	for {
		_, err = c.breaker.Execute(func() (interface{}, error) {
			return nil, c.roundTrip(ctx, method, path, body, out, want)
		})
		if err == nil {
			return nil
		}
		if !retry || int(b.Attempt()) >= c.maxRetries || !isTransient(err) {
			return fmt.Errorf("%s: %w", op, err)
		}

		timer := time.NewTimer(b.Duration())
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("%s: %w", op, ctx.Err())
		case <-timer.C:
		}
	}
}

func (c *Client) roundTrip(ctx context.Context, method, path string, body []byte, out any, want int) error {
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if c.token != nil {
		tok, err := c.token()
		if err != nil {
			return fmt.Errorf("%w: %v", errToken, err)
		}
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != want {
		return decodeAPIError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %v", errDecode, err)
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	var body struct {
		Error string `json:"error"`
		Field string `json:"field"`
	}
	if json.Unmarshal(raw, &body) == nil && body.Error != "" {
		apiErr.Message, apiErr.Field = body.Error, body.Field
	} else if msg := strings.TrimSpace(string(raw)); msg != "" {
		apiErr.Message = msg
	} else {
		apiErr.Message = http.StatusText(resp.StatusCode)
	}
	return apiErr
}

// isTransient reports whether retrying the same call may succeed. A 429 is not
// transient: retrying only spends more of the caller's rate budget.
func isTransient(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode >= 500
	}
	if errors.Is(err, errDecode) || errors.Is(err, errToken) {
		return false
	}
	return true
}
