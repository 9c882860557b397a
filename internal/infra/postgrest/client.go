// Package postgrest implements the canonical store ports against a
// PostgREST-style collection API (Supabase or plain PostgREST). Every call
// goes through the circuit breaker and retry policy.
package postgrest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/hmoreno/cierre-fiscal/internal/domain"
	"github.com/hmoreno/cierre-fiscal/internal/infra/resilience"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("postgrest")

// Client wraps HTTP calls to the PostgREST API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	serviceKey string
	cb         *gobreaker.CircuitBreaker
	cfg        resilience.Config
	logger     *zap.Logger
}

// NewClient creates a PostgREST client.
func NewClient(httpClient *http.Client, baseURL, apiKey, serviceKey string, cb *gobreaker.CircuitBreaker, cfg resilience.Config, logger *zap.Logger) *Client {
	return &Client{
		httpClient: httpClient,
		baseURL:    baseURL,
		apiKey:     apiKey,
		serviceKey: serviceKey,
		cb:         cb,
		cfg:        cfg,
		logger:     logger,
	}
}

// do executes one authenticated request through the breaker and retry
// policy. prefer sets the Prefer header (upserts use merge-duplicates).
func (c *Client) do(ctx context.Context, method, path string, payload any, prefer string) ([]byte, error) {
	ctx, span := tracer.Start(ctx, "PostgREST."+method)
	defer span.End()
	span.SetAttributes(attribute.String("path", path))

	var body []byte
	if payload != nil {
		var err error
		body, err = json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("postgrest: encode payload: %w", err)
		}
	}

	var out []byte
	result, err := c.cb.Execute(func() (any, error) {
		var inner []byte
		err := resilience.RetryWithBackoff(ctx, c.cfg, func() error {
			var err error
			inner, err = c.roundTrip(ctx, method, path, body, prefer)
			return err
		})
		return inner, err
	})
	if err != nil {
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			return nil, &domain.ErrCircuitOpen{Service: "postgrest"}
		}
		return nil, &domain.ErrExternalService{Service: "postgrest", Err: err}
	}
	if result != nil {
		out = result.([]byte)
	}
	return out, nil
}

func (c *Client) roundTrip(ctx context.Context, method, path string, body []byte, prefer string) ([]byte, error) {
	url := fmt.Sprintf("%s/rest/v1/%s", c.baseURL, path)

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, err
	}

	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", "Bearer "+c.serviceKey)
	req.Header.Set("Content-Type", "application/json")
	if prefer != "" {
		req.Header.Set("Prefer", prefer)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("postgrest: request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err),
		)
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusNoContent {
		return nil, nil // no data
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Warn("postgrest: non-2xx response",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
			zap.String("body", string(respBody)),
		)
		return nil, fmt.Errorf("postgrest returned status %d: %s", resp.StatusCode, string(respBody))
	}

	c.logger.Debug("postgrest: request OK",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
	)
	return respBody, nil
}
