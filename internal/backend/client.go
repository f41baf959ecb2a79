// CivicGuard - Citizen Issue Reporting Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/civicguard

package backend

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/tomtom215/civicguard/internal/config"
	"github.com/tomtom215/civicguard/internal/logging"
	"github.com/tomtom215/civicguard/internal/metrics"
)

const userAgent = "civicguard-web/1.0"

const (
	defaultRequestContentType  = "application/octet-stream"
	defaultResponseContentType = "application/json"
)

// ForwardRequest describes one upstream call.
type ForwardRequest struct {
	// Route labels metrics and logs, e.g. "tickets.get".
	Route string

	Method string

	// Path is the already-escaped path below the base URL. Build it with
	// TicketPath for ticket ids.
	Path string

	// RawQuery is appended verbatim.
	RawQuery string

	// ContentType defaults to application/octet-stream when Body is set.
	ContentType string

	Body io.Reader

	// ContentLength is sent when positive; otherwise the body is chunked.
	ContentLength int64
}

// ForwardResponse is the upstream answer, any status.
type ForwardResponse struct {
	Status      int
	ContentType string
	Body        []byte
}

// Client forwards requests to the backend.
type Client struct {
	base    string
	http    *http.Client
	limiter *rate.Limiter
	maxBody int64
	breaker *gobreaker.CircuitBreaker[*ForwardResponse]
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client. Tests use it to point at
// an httptest server transport.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// New builds a Client from validated configuration.
func New(cfg config.BackendConfig, opts ...Option) *Client {
	c := &Client{
		base:    strings.TrimRight(cfg.BaseURL, "/"),
		http:    &http.Client{Timeout: cfg.Timeout},
		maxBody: cfg.MaxBodyBytes,
		breaker: newBreaker(cfg.Breaker),
	}
	if cfg.RequestsPerSecond > 0 {
		burst := int(cfg.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the configured backend origin without trailing slash.
func (c *Client) BaseURL() string {
	return c.base
}

// TicketPath returns the upstream path for a ticket id, escaped as a single
// path segment.
func TicketPath(id string) string {
	return "/api/tickets/" + url.PathEscape(id)
}

// Forward sends req upstream and returns whatever the backend answered.
// Only transport failures (ErrUpstreamUnavailable) and breaker rejections
// (ErrCircuitOpen) are errors; 4xx and 5xx responses are returned as-is.
func (c *Client) Forward(ctx context.Context, req ForwardRequest) (*ForwardResponse, error) {
	start := time.Now()

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			metrics.RecordUpstream(req.Route, 0, "rate_limited", time.Since(start))
			return nil, fmt.Errorf("%w: %w", ErrUpstreamUnavailable, err)
		}
	}

	resp, err := c.breaker.Execute(func() (*ForwardResponse, error) {
		return c.roundTrip(ctx, &req)
	})
	c.recordBreakerResult(err)
	if errors.Is(err, errServerStatus) {
		err = nil
	}

	duration := time.Since(start)
	switch {
	case err == nil:
		metrics.RecordUpstream(req.Route, resp.Status, "", duration)
		logging.Ctx(ctx).Debug().
			Str("route", req.Route).
			Int("status", resp.Status).
			Dur("duration", duration).
			Msg("Upstream call")
		return resp, nil

	case isRejected(err):
		metrics.RecordUpstream(req.Route, 0, "circuit_open", duration)
		return nil, fmt.Errorf("%w: %w", ErrCircuitOpen, err)

	case errors.Is(err, ErrRequestBody):
		metrics.RecordUpstream(req.Route, 0, "client_body", duration)
		logging.Ctx(ctx).Debug().Err(err).Str("route", req.Route).Msg("Request body failed during upstream call")
		return nil, err

	default:
		outcome := "unavailable"
		if errors.Is(err, context.Canceled) {
			outcome = "cancelled"
		}
		metrics.RecordUpstream(req.Route, 0, outcome, duration)
		logging.Ctx(ctx).Warn().Err(err).Str("route", req.Route).Msg("Upstream call failed")
		return nil, err
	}
}

func (c *Client) roundTrip(ctx context.Context, req *ForwardRequest) (*ForwardResponse, error) {
	target := c.base + req.Path
	if req.RawQuery != "" {
		target += "?" + req.RawQuery
	}

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	var body io.Reader = http.NoBody
	if req.Body != nil {
		body = callerBody{r: req.Body}
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %w", ErrUpstreamUnavailable, err)
	}

	if req.Body != nil {
		ct := req.ContentType
		if ct == "" {
			ct = defaultRequestContentType
		}
		httpReq.Header.Set("Content-Type", ct)
		if req.ContentLength > 0 {
			httpReq.ContentLength = req.ContentLength
		}
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", userAgent)
	if id := logging.RequestIDFromContext(ctx); id != "" {
		httpReq.Header.Set("X-Request-ID", id)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		if errors.Is(err, ErrRequestBody) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrUpstreamUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody+1))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %w", ErrUpstreamUnavailable, err)
	}
	if int64(len(data)) > c.maxBody {
		return nil, fmt.Errorf("%w: response exceeds %d bytes", ErrUpstreamUnavailable, c.maxBody)
	}

	ct := resp.Header.Get("Content-Type")
	if ct == "" {
		ct = defaultResponseContentType
	}

	out := &ForwardResponse{Status: resp.StatusCode, ContentType: ct, Body: data}
	if resp.StatusCode >= http.StatusInternalServerError {
		return out, errServerStatus
	}
	return out, nil
}

// callerBody tags read errors from the caller's body so the breaker can
// tell them apart from backend failures.
type callerBody struct {
	r io.Reader
}

func (b callerBody) Read(p []byte) (int, error) {
	n, err := b.r.Read(p)
	if err != nil && !errors.Is(err, io.EOF) {
		err = fmt.Errorf("%w: %w", ErrRequestBody, err)
	}
	return n, err
}
