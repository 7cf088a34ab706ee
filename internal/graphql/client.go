package graphql

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/wnt/blinkwatch/internal/logger"
	"github.com/wnt/blinkwatch/internal/metrics"
)

const (
	// DefaultEndpoint is the Blink GraphQL API
	DefaultEndpoint = "https://api.blink.sv/graphql"

	// APIKeyHeader carries the account API key
	APIKeyHeader = "X-API-KEY"
)

var tracer = otel.Tracer("github.com/wnt/blinkwatch/internal/graphql")

// Client executes GraphQL requests over HTTP for one API key
type Client struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
	maxRetries int
	retryDelay time.Duration
	logger     zerolog.Logger
}

// Option configures the Client
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTimeout sets the per-request timeout
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithRetries configures how often network failures are retried
func WithRetries(maxRetries int, retryDelay time.Duration) Option {
	return func(c *Client) {
		c.maxRetries = maxRetries
		c.retryDelay = retryDelay
	}
}

// WithRateLimit caps outgoing requests per second. A non-positive rate
// disables limiting.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(c *Client) {
		if perSecond <= 0 {
			c.limiter = nil
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

// NewClient creates a new GraphQL client
func NewClient(endpoint, apiKey string, baseLogger zerolog.Logger, options ...Option) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}

	client := &Client{
		endpoint: endpoint,
		apiKey:   apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		// Stay well under the provider's per-key limits
		limiter:    rate.NewLimiter(rate.Limit(2.0), 5),
		maxRetries: 3,
		retryDelay: 500 * time.Millisecond,
		logger:     logger.WithEndpoint(baseLogger.With().Str("component", "graphql").Logger(), endpoint),
	}

	for _, option := range options {
		option(client)
	}

	return client
}

// Execute sends one GraphQL request and returns its data object. Network
// failures are retried up to maxRetries times; all other failures return
// immediately.
func (c *Client) Execute(ctx context.Context, query string, variables map[string]any) (json.RawMessage, error) {
	req := NewRequest(query, variables)
	operation := OperationName(query)

	ctx, span := tracer.Start(ctx, "graphql."+operation,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("graphql.operation.name", operation),
			attribute.String("server.address", c.endpoint),
		),
	)
	defer span.End()

	body, err := json.Marshal(req)
	if err != nil {
		return nil, c.fail(span, &Error{Kind: KindOther, Message: "failed to marshal request body", Err: err})
	}

	for attempt := 0; ; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, c.fail(span, &Error{Kind: KindNetwork, Message: "request cancelled", Err: ctx.Err()})
			case <-time.After(c.retryDelay * time.Duration(attempt)):
			}
		}

		start := time.Now()
		data, err := c.executeOnce(ctx, body)
		duration := time.Since(start)

		if err == nil {
			metrics.RecordGraphQLRequest(operation, "success", duration.Seconds())
			c.logger.Debug().
				Str("operation", operation).
				Int("attempt", attempt+1).
				Dur("duration", duration).
				Msg("GraphQL request succeeded")
			return data, nil
		}

		kind := KindOf(err)
		metrics.RecordGraphQLRequest(operation, kind.String(), duration.Seconds())

		retryable := kind == KindNetwork && ctx.Err() == nil && attempt < c.maxRetries
		event := c.logger.Warn()
		if !retryable {
			event = c.logger.Error()
		}
		event.Err(err).
			Str("operation", operation).
			Str("kind", kind.String()).
			Int("attempt", attempt+1).
			Int("max_retries", c.maxRetries).
			Dur("duration", duration).
			Msg("GraphQL request failed")

		if !retryable {
			return nil, c.fail(span, err)
		}
	}
}

// executeOnce performs a single HTTP round trip
func (c *Client) executeOnce(ctx context.Context, body []byte) (json.RawMessage, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, &Error{Kind: KindNetwork, Message: "rate limiter wait failed", Err: err}
		}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, &Error{Kind: KindOther, Message: "failed to create request", Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set(APIKeyHeader, c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &Error{Kind: KindNetwork, Message: "HTTP request failed", Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Kind: KindNetwork, StatusCode: resp.StatusCode, Message: "failed to read response body", Err: err}
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, &Error{Kind: KindUnauthorized, StatusCode: resp.StatusCode, Message: "API key rejected"}
	case resp.StatusCode == http.StatusNotFound:
		return nil, &Error{Kind: KindNotFound, StatusCode: resp.StatusCode, Message: "endpoint or account not found"}
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, &Error{Kind: KindOther, StatusCode: resp.StatusCode, Message: "unexpected HTTP status: " + truncate(string(respBody), 200)}
	}

	var gqlResp Response
	if err := json.Unmarshal(respBody, &gqlResp); err != nil {
		return nil, &Error{Kind: KindOther, StatusCode: resp.StatusCode, Message: "failed to unmarshal GraphQL response", Err: err}
	}

	if len(gqlResp.Errors) > 0 {
		return nil, responseError(resp.StatusCode, gqlResp.Errors)
	}

	if len(gqlResp.Data) == 0 || string(gqlResp.Data) == "null" {
		return nil, &Error{Kind: KindOther, StatusCode: resp.StatusCode, Message: "response contained no data"}
	}

	return gqlResp.Data, nil
}

// responseError classifies a GraphQL errors array by its extension codes
func responseError(status int, errs []ResponseError) *Error {
	kind := KindOther
	messages := make([]string, 0, len(errs))
	for _, e := range errs {
		messages = append(messages, e.Message)
		switch strings.ToUpper(e.Extensions.Code) {
		case "UNAUTHENTICATED", "NOT_AUTHORIZED", "FORBIDDEN":
			kind = KindUnauthorized
		case "NOT_FOUND":
			if kind == KindOther {
				kind = KindNotFound
			}
		}
	}
	return &Error{Kind: kind, StatusCode: status, Message: strings.Join(messages, "; ")}
}

func (c *Client) fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())

	var gqlErr *Error
	if !errors.As(err, &gqlErr) {
		err = &Error{Kind: KindOther, Message: "request failed", Err: err}
	}
	return err
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return fmt.Sprintf("%s...", s[:n])
}
