// Package supabase provides a client for Supabase (PostgREST + GoTrue).
// It is the hosted backing store and identity collaborator of the portal.
package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/boddenberg/project-portal-go/internal/domain"
	"github.com/boddenberg/project-portal-go/internal/infra/resilience"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("supabase")

// Client wraps HTTP calls to the Supabase PostgREST and Auth APIs.
type Client struct {
	httpClient     *http.Client
	baseURL        string
	apiKey         string
	serviceRoleKey string
	cb             *gobreaker.CircuitBreaker
	bulkhead       *resilience.Bulkhead
	cfg            resilience.Config
	logger         *zap.Logger
}

// NewClient creates a Supabase client.
func NewClient(httpClient *http.Client, baseURL, apiKey, serviceRoleKey string, cb *gobreaker.CircuitBreaker, cfg resilience.Config, logger *zap.Logger) *Client {
	return &Client{
		httpClient:     httpClient,
		baseURL:        baseURL,
		apiKey:         apiKey,
		serviceRoleKey: serviceRoleKey,
		cb:             cb,
		bulkhead:       resilience.NewBulkhead(cfg.MaxConcurrency),
		cfg:            cfg,
		logger:         logger,
	}
}

// statusError carries a non-2xx answer so callers can branch on the code.
type statusError struct {
	Method string
	Path   string
	Status int
	Body   string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("supabase %s %s returned %d: %s", e.Method, e.Path, e.Status, e.Body)
}

// call performs one HTTP round trip through the bulkhead and circuit breaker.
// A 404 or 204 answer yields a nil body and no error.
func (c *Client) call(ctx context.Context, req *http.Request, path string) ([]byte, error) {
	if err := c.bulkhead.Acquire(ctx); err != nil {
		return nil, err
	}
	defer c.bulkhead.Release()

	var body []byte
	var rejected error
	err := resilience.Execute(c.cb, func() error {
		resp, err := c.httpClient.Do(req)
		if err != nil {
			c.logger.Error("supabase: request failed",
				zap.String("method", req.Method),
				zap.String("path", path),
				zap.Error(err),
			)
			return err
		}
		defer resp.Body.Close()

		raw, err := io.ReadAll(resp.Body)
		if err != nil {
			c.logger.Error("supabase: failed to read response body",
				zap.String("method", req.Method),
				zap.String("path", path),
				zap.Error(err),
			)
			return err
		}

		if resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusNoContent {
			return nil // no data
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			c.logger.Warn("supabase: non-2xx response",
				zap.String("method", req.Method),
				zap.String("path", path),
				zap.Int("status", resp.StatusCode),
				zap.String("body", string(raw)),
			)
			se := &statusError{Method: req.Method, Path: path, Status: resp.StatusCode, Body: string(raw)}
			if resp.StatusCode < 500 {
				// 4xx answers do not count against the breaker.
				rejected = se
				return nil
			}
			return se
		}

		c.logger.Debug("supabase: request OK",
			zap.String("method", req.Method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
		)
		body = raw
		return nil
	})
	if err != nil {
		return nil, err
	}
	if rejected != nil {
		return nil, resilience.Permanent(rejected)
	}
	return body, nil
}

// newRequest builds an authenticated request. The bearer is the service role
// key unless token is non-empty.
func (c *Client) newRequest(ctx context.Context, method, endpoint string, payload any, prefer, token string) (*http.Request, error) {
	var reader io.Reader
	if payload != nil {
		jsonBody, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, err
	}

	if token == "" {
		token = c.serviceRoleKey
		req.Header.Set("apikey", c.serviceRoleKey)
	} else {
		req.Header.Set("apikey", c.apiKey)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	if prefer != "" {
		req.Header.Set("Prefer", prefer)
	}
	return req, nil
}

// doRequest executes a PostgREST read. Reads are idempotent and retried per cfg.
func (c *Client) doRequest(ctx context.Context, method, path string) ([]byte, error) {
	endpoint := fmt.Sprintf("%s/rest/v1/%s", c.baseURL, path)

	var body []byte
	err := resilience.RetryWithBackoff(ctx, c.cfg, func() error {
		req, err := c.newRequest(ctx, method, endpoint, nil, "", "")
		if err != nil {
			c.logger.Error("supabase: failed to create request",
				zap.String("method", method),
				zap.String("path", path),
				zap.Error(err),
			)
			return err
		}
		body, err = c.call(ctx, req, path)
		return err
	})
	return body, err
}

// Ping issues a cheap read used by the health check.
func (c *Client) Ping(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "Supabase.Ping")
	defer span.End()

	_, err := c.doRequest(ctx, http.MethodGet, "profiles?select=id&limit=1")
	return err
}

// decodeRows unmarshals a PostgREST array. A nil body decodes to no rows.
func decodeRows[T any](body []byte, table string) ([]T, error) {
	if len(body) == 0 {
		return []T{}, nil
	}
	var rows []T
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("decode %s: %w", table, err)
	}
	return rows, nil
}

// decodeFirst returns the first row, or nil when there is none.
func decodeFirst[T any](body []byte, table string) (*T, error) {
	rows, err := decodeRows[T](body, table)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

// external wraps store failures for the handler error mapping.
func external(service string, err error) error {
	if err == nil {
		return nil
	}
	var open *domain.ErrCircuitOpen
	if errors.As(err, &open) {
		return err
	}
	return &domain.ErrExternalService{Service: service, Err: err}
}

// eq renders a PostgREST equality filter with an escaped value.
func eq(column, value string) string {
	return column + "=eq." + url.QueryEscape(value)
}

// statusOf returns the HTTP status of a store error, or 0.
func statusOf(err error) int {
	var se *statusError
	if errors.As(err, &se) {
		return se.Status
	}
	return 0
}

var errEmptyInsert = errors.New("insert returned no row")
