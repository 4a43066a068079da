// Package client is the authenticated HTTP client for the Bronto
// log-analytics API. Each method issues exactly one HTTP call; the retry
// policy lives at the tool-handler boundary so tests can count requests.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/brontoio/bronto-mcp-server/pkg/types"
)

const (
	BrontoAPIKeyHeader = "x-bronto-api-key"
	ContentType        = "Content-Type"
	userAgent          = "bronto-mcp"

	defaultTimeout = 30 * time.Second

	// recentKeysWindow bounds the sampling search used for key discovery.
	recentKeysWindow = 10 * time.Minute
)

// Bronto talks to one Bronto endpoint with one API key.
type Bronto struct {
	baseURL    string
	apiKey     string
	logger     *zap.Logger
	httpClient *http.Client
	limiter    *rate.Limiter
	timeout    time.Duration
}

// Option configures a Bronto client.
type Option func(*Bronto)

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(b *Bronto) { b.timeout = d }
}

// WithRateLimit caps the outbound request rate.
func WithRateLimit(rps float64, burst int) Option {
	return func(b *Bronto) { b.limiter = rate.NewLimiter(rate.Limit(rps), burst) }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(b *Bronto) { b.httpClient = c }
}

func NewClient(log *zap.Logger, baseURL, apiKey string, opts ...Option) *Bronto {
	b := &Bronto{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		logger:  log,
		httpClient: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		limiter: rate.NewLimiter(rate.Limit(10), 20),
		timeout: defaultTimeout,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// do issues one request and returns the response body, translating every
// failure into an APIError. The API key rides both the Bronto header and
// Authorization so either auth scheme the endpoint honours is satisfied.
func (b *Bronto) do(ctx context.Context, method, path string, query url.Values, payload any) ([]byte, error) {
	reqURL := b.baseURL + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	var bodyReader io.Reader
	if payload != nil {
		bodyBytes, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(bodyBytes)
	}

	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	if err := b.limiter.Wait(ctx); err != nil {
		return nil, &APIError{Kind: KindTimeout, Message: "timed out waiting for the outbound rate limiter"}
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set(ContentType, "application/json")
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set(BrontoAPIKeyHeader, b.apiKey)
	req.Header.Set("Authorization", "Bearer "+b.apiKey)

	b.logger.Debug("Making request to Bronto API", zap.String("method", method), zap.String("endpoint", path))

	resp, err := b.httpClient.Do(req)
	if err != nil {
		b.logger.Error("HTTP request failed", zap.String("url", reqURL), zap.Error(err))
		msg := "cannot reach Bronto; check the endpoint configuration"
		if errors.Is(err, context.DeadlineExceeded) {
			msg = fmt.Sprintf("Bronto did not answer within %s", b.timeout)
		}
		return nil, &APIError{Kind: KindTimeout, Message: msg}
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			b.logger.Warn("Failed to close response body", zap.Error(err))
		}
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		b.logger.Error("Failed to read response body", zap.String("url", reqURL), zap.Error(err))
		return nil, &APIError{Kind: KindTimeout, Message: "failed to read Bronto response: " + err.Error()}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b.logger.Error("API request failed", zap.String("url", reqURL), zap.Int("status", resp.StatusCode), zap.String("response", string(body)))
		return nil, &APIError{
			Kind:    kindForStatus(resp.StatusCode),
			Status:  resp.StatusCode,
			Message: messageForStatus(resp.StatusCode, string(body)),
		}
	}

	b.logger.Debug("Bronto request succeeded", zap.String("endpoint", path), zap.Int("status", resp.StatusCode))
	return body, nil
}

func decode[T any](body []byte, out *T) error {
	if err := json.Unmarshal(body, out); err != nil {
		return &APIError{Kind: KindRemoteBadRequest, Message: "unexpected format for Bronto response: " + err.Error()}
	}
	return nil
}

// GetDatasets lists the account's datasets. cursor continues a previous
// paginated listing and is passed through verbatim.
func (b *Bronto) GetDatasets(ctx context.Context, cursor string) (*types.DatasetsResponse, error) {
	query := url.Values{}
	if cursor != "" {
		query.Set("cursor", cursor)
	}

	body, err := b.do(ctx, http.MethodGet, "/logs", query, nil)
	if err != nil {
		return nil, err
	}

	var resp types.DatasetsResponse
	if err := decode(body, &resp); err != nil {
		b.logger.Error("Cannot decode dataset retrieval response", zap.Error(err))
		return nil, err
	}
	b.logger.Debug("Retrieved datasets", zap.Int("count", len(resp.Logs)), zap.Bool("hasNext", resp.Next != ""))
	return &resp, nil
}

// SearchEvents runs one page of an event search.
func (b *Bronto) SearchEvents(ctx context.Context, payload *types.SearchPayload) (*types.EventsResponse, error) {
	if err := payload.Validate(); err != nil {
		return nil, &APIError{Kind: KindRemoteBadRequest, Message: err.Error()}
	}

	body, err := b.do(ctx, http.MethodPost, "/search", nil, payload)
	if err != nil {
		return nil, err
	}

	var resp types.EventsResponse
	if err := decode(body, &resp); err != nil {
		b.logger.Error("Cannot decode search response", zap.Error(err))
		return nil, err
	}
	b.logger.Debug("Search returned events", zap.Int("count", len(resp.Events)), zap.Bool("hasNext", resp.Next != ""))
	return &resp, nil
}

// SearchStatistical runs a statistical search and returns timeseries keyed
// by group name; ungrouped totals use the empty key.
func (b *Bronto) SearchStatistical(ctx context.Context, payload *types.SearchPayload) (map[string]types.Timeseries, error) {
	if err := payload.Validate(); err != nil {
		return nil, &APIError{Kind: KindRemoteBadRequest, Message: err.Error()}
	}

	body, err := b.do(ctx, http.MethodPost, "/search", nil, payload)
	if err != nil {
		return nil, err
	}

	var resp types.StatisticalResponse
	if err := decode(body, &resp); err != nil {
		b.logger.Error("Cannot decode statistical search response", zap.Error(err))
		return nil, err
	}
	return resp.Groups, nil
}

// GetTopKeys fetches the most frequent keys of a dataset with their sampled
// values.
func (b *Bronto) GetTopKeys(ctx context.Context, logID string) (map[string][]string, error) {
	query := url.Values{}
	query.Set("log_id", logID)

	body, err := b.do(ctx, http.MethodGet, "/top-keys", query, nil)
	if err != nil {
		return nil, err
	}

	var resp types.TopKeysResponse
	if err := decode(body, &resp); err != nil {
		b.logger.Error("Cannot decode top keys response", zap.String("logId", logID), zap.Error(err))
		return nil, err
	}
	return resp.KeyValues(logID), nil
}

// GetRecentKeys samples the last ten minutes of a dataset and folds the
// observed attributes into key -> unique values.
func (b *Bronto) GetRecentKeys(ctx context.Context, logID string) (map[string][]string, error) {
	now := time.Now().UnixMilli()
	payload := &types.SearchPayload{
		FromTS: now - recentKeysWindow.Milliseconds(),
		ToTS:   now,
		Select: []string{"*", "@raw"},
		From:   []string{logID},
	}

	resp, err := b.SearchEvents(ctx, payload)
	if err != nil {
		return nil, err
	}

	keys := make(map[string][]string)
	seen := make(map[string]map[string]struct{})
	for _, event := range resp.Events {
		for key, value := range event.Attributes {
			if seen[key] == nil {
				seen[key] = make(map[string]struct{})
			}
			if _, ok := seen[key][value]; ok {
				continue
			}
			seen[key][value] = struct{}{}
			keys[key] = append(keys[key], value)
		}
	}
	return keys, nil
}
