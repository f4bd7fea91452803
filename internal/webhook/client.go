package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/ligustah/mapleads/internal/logger"
)

// Common errors.
var (
	ErrNotFound     = errors.New("webhook: endpoint not found")
	ErrForbidden    = errors.New("webhook: access forbidden")
	ErrUnauthorized = errors.New("webhook: unauthorized")
	ErrServerError  = errors.New("webhook: server error")
	ErrBodyTooLarge = errors.New("webhook: response body too large")
)

// RequestIDHeader carries a per-submission correlation ID.
const RequestIDHeader = "X-Request-ID"

const tracerName = "github.com/ligustah/mapleads/internal/webhook"

// Options configures the webhook client.
type Options struct {
	// Timeout for the whole request, including reading the body.
	// Default: 0 (no timeout; the call runs until the transport gives up)
	Timeout time.Duration

	// MaxBodyBytes bounds how much of a response body is buffered.
	// Default: 64MB
	MaxBodyBytes int64

	// UserAgent is sent with every request.
	// Default: "mapleads"
	UserAgent string

	// Logger receives request diagnostics. Default: no-op.
	Logger *zap.Logger

	// TracerProvider creates the span around each submission.
	// Default: the global provider
	TracerProvider trace.TracerProvider
}

// DefaultOptions returns options with sensible defaults.
func DefaultOptions() Options {
	return Options{
		MaxBodyBytes: 64 * 1024 * 1024,
		UserAgent:    "mapleads",
	}
}

// LeadRequest is the JSON body posted to the webhook.
type LeadRequest struct {
	SearchQuery     string `json:"searchQuery"`
	Location        string `json:"location"`
	NumberOfResults int    `json:"numberOfResults"`
}

// Response is a fully read 2xx webhook response.
type Response struct {
	StatusCode         int
	ContentType        string
	ContentDisposition string
	Body               []byte
	RequestID          string
}

// StatusError is returned for non-2xx responses. It unwraps to one of the
// package sentinel errors where one applies.
type StatusError struct {
	Code   int
	Status string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP error! status: %d", e.Code)
}

// Unwrap maps well-known status codes to sentinel errors.
func (e *StatusError) Unwrap() error {
	switch {
	case e.Code == http.StatusNotFound:
		return ErrNotFound
	case e.Code == http.StatusForbidden:
		return ErrForbidden
	case e.Code == http.StatusUnauthorized:
		return ErrUnauthorized
	case e.Code >= 500:
		return ErrServerError
	default:
		return nil
	}
}

// Client posts lead requests to a fixed webhook endpoint.
type Client struct {
	client   *http.Client
	endpoint string
	opts     Options
	log      *zap.Logger
	tracer   trace.Tracer
}

// NewClient creates a client for the given endpoint.
func NewClient(endpoint string, opts Options) *Client {
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = DefaultOptions().MaxBodyBytes
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultOptions().UserAgent
	}
	log := logger.OrNop(opts.Logger)
	tp := opts.TracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}

	return &Client{
		client: &http.Client{
			Timeout: opts.Timeout,
		},
		endpoint: endpoint,
		opts:     opts,
		log:      log,
		tracer:   tp.Tracer(tracerName),
	}
}

// Endpoint returns the webhook URL.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// Submit posts req as JSON and returns the buffered response. Exactly one
// attempt is made.
func (c *Client) Submit(ctx context.Context, req LeadRequest) (_ *Response, err error) {
	requestID := uuid.NewString()

	ctx, span := c.tracer.Start(ctx, "webhook.submit",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("mapleads.request_id", requestID),
			attribute.Int("mapleads.number_of_results", req.NumberOfResults),
		),
	)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("User-Agent", c.opts.UserAgent)
	httpReq.Header.Set(RequestIDHeader, requestID)

	log := c.log.With(zap.String("request_id", requestID), zap.String("endpoint", c.endpoint))
	start := time.Now()

	resp, err := c.client.Do(httpReq)
	if err != nil {
		log.Debug("webhook request failed", zap.Error(err))
		return nil, err
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))
	log.Debug("webhook responded",
		zap.Int("status", resp.StatusCode),
		zap.String("content_type", resp.Header.Get("Content-Type")),
		zap.Duration("elapsed", time.Since(start)),
	)

	if err := checkStatusCode(resp); err != nil {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 64*1024))
		return nil, err
	}

	data, err := c.readBody(resp.Body)
	if err != nil {
		return nil, err
	}

	return &Response{
		StatusCode:         resp.StatusCode,
		ContentType:        resp.Header.Get("Content-Type"),
		ContentDisposition: resp.Header.Get("Content-Disposition"),
		Body:               data,
		RequestID:          requestID,
	}, nil
}

// Get performs a simple GET request, used to follow download URLs handed
// back by the webhook. The caller must close the returned body.
func (c *Client) Get(ctx context.Context, url string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.opts.UserAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}

	if err := checkStatusCode(resp); err != nil {
		resp.Body.Close()
		return nil, err
	}

	return resp.Body, nil
}

func (c *Client) readBody(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, c.opts.MaxBodyBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if int64(len(data)) > c.opts.MaxBodyBytes {
		return nil, ErrBodyTooLarge
	}
	return data, nil
}

// checkStatusCode returns a *StatusError for non-success status codes.
func checkStatusCode(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	return &StatusError{Code: resp.StatusCode, Status: resp.Status}
}
