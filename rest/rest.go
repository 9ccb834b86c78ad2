// Package rest sends requests to the HTTP API and keeps to its rate limits.
package rest

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/json-iterator/go"
	"github.com/sasha-s/go-csync"
	"github.com/valyala/fasthttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Client is safe for concurrent use. Requests sharing a bucket run one at a
// time; different buckets run in parallel.
type Client struct {
	config Config
	token  string
	logger *zap.Logger
	tracer trace.Tracer

	bucketsMu sync.Mutex
	buckets   map[string]*bucket

	globalMu    sync.Mutex
	globalUntil time.Time
}

// bucket is locked for the whole lifetime of a request, retries included.
type bucket struct {
	mu        csync.Mutex
	remaining int
	reset     time.Time
	known     bool
}

func New(token string, opts ...ConfigOpt) *Client {
	config := DefaultConfig()
	config.Apply(opts)

	return &Client{
		config:  *config,
		token:   token,
		logger:  config.Logger.Named("rest"),
		tracer:  otel.Tracer(config.TracerName),
		buckets: make(map[string]*bucket),
	}
}

func (c *Client) bucket(key string) *bucket {
	c.bucketsMu.Lock()
	defer c.bucketsMu.Unlock()

	b, ok := c.buckets[key]
	if !ok {
		b = &bucket{}
		c.buckets[key] = b
	}
	return b
}

type rateLimitBody struct {
	Message    string  `json:"message"`
	RetryAfter float64 `json:"retry_after"`
	Global     bool    `json:"global"`
}

type errorBody struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Make sends a request to route (for example /channels/123/messages) and
// returns the response body. body is sent as is when it is a []byte or
// jsoniter.RawMessage, and JSON encoded otherwise. A 204 answer yields a nil
// body.
func (c *Client) Make(ctx context.Context, route, method string, body any, headers map[string]string) (jsoniter.RawMessage, error) {
	if !strings.HasPrefix(route, "/") {
		route = "/" + route
	}
	method = strings.ToUpper(method)
	key := BucketKey(method, route)

	ctx, span := c.tracer.Start(ctx, key,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.method", method),
			attribute.String("discord.route", route),
			attribute.String("discord.bucket", key),
			attribute.String("discord.major_parameter", MajorParameter(route)),
		),
	)
	defer span.End()

	payload, err := encodeBody(body)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	b := c.bucket(key)
	if err := b.mu.CLock(ctx); err != nil {
		return nil, err
	}
	defer b.mu.Unlock()

	for attempt := 1; ; attempt++ {
		if err := c.waitGlobal(ctx); err != nil {
			return nil, err
		}
		if err := b.wait(ctx); err != nil {
			return nil, err
		}

		status, header, data, err := c.do(ctx, method, route, payload, headers)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, fmt.Errorf("rest: %s %s: %w", method, route, err)
		}

		c.config.Metrics.Request(method, status)
		span.SetAttributes(attribute.Int("http.status_code", status), attribute.Int("discord.attempt", attempt))
		b.update(header)

		switch {
		case status == fasthttp.StatusTooManyRequests:
			retryAfter, global := parseRateLimit(header, data)
			c.config.Metrics.RateLimited(global)

			if global {
				c.setGlobal(time.Now().Add(retryAfter))
			} else {
				b.limit(time.Now().Add(retryAfter))
			}

			if attempt > c.config.MaxRetries {
				err := &RateLimitError{Method: method, Endpoint: route, RetryAfter: retryAfter, Global: global, Attempts: attempt}
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
				return nil, err
			}

			c.logger.Debug("rate limited, retrying",
				zap.String("bucket", key),
				zap.Duration("retry_after", retryAfter),
				zap.Bool("global", global),
				zap.Int("attempt", attempt),
			)
			continue

		case status >= 400:
			httpErr := &HTTPError{Method: method, Endpoint: route, Status: status, Payload: payload, Body: data}
			var e errorBody
			if json.Unmarshal(data, &e) == nil {
				httpErr.Code, httpErr.Message = e.Code, e.Message
			}
			span.RecordError(httpErr)
			span.SetStatus(codes.Error, httpErr.Error())
			return nil, httpErr

		case status == fasthttp.StatusNoContent:
			return nil, nil
		}

		return data, nil
	}
}

func encodeBody(body any) ([]byte, error) {
	switch v := body.(type) {
	case nil:
		return nil, nil
	case []byte:
		return v, nil
	case jsoniter.RawMessage:
		return v, nil
	}

	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("rest: encode body: %w", err)
	}
	return data, nil
}

func (c *Client) do(ctx context.Context, method, route string, payload []byte, headers map[string]string) (int, *fasthttp.ResponseHeader, []byte, error) {
	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(c.config.BaseURL + "/v" + strconv.Itoa(c.config.Version) + route)
	req.Header.SetMethod(method)
	req.Header.Set("Authorization", "Bot "+c.token)
	req.Header.Set("User-Agent", c.config.UserAgent)
	if payload != nil {
		req.Header.SetContentType("application/json")
		req.SetBody(payload)
	}
	for name, value := range headers {
		req.Header.Set(name, value)
	}

	timeout := c.config.Timeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}
	if timeout <= 0 {
		return 0, nil, nil, context.DeadlineExceeded
	}

	if err := c.config.HTTPClient.DoTimeout(req, resp, timeout); err != nil {
		return 0, nil, nil, err
	}

	header := &fasthttp.ResponseHeader{}
	resp.Header.CopyTo(header)

	return resp.StatusCode(), header, append([]byte(nil), resp.Body()...), nil
}

func parseRateLimit(header *fasthttp.ResponseHeader, data []byte) (time.Duration, bool) {
	var body rateLimitBody
	_ = json.Unmarshal(data, &body)

	retryAfter := seconds(body.RetryAfter)
	if retryAfter <= 0 {
		if value, err := strconv.ParseFloat(string(header.Peek("Retry-After")), 64); err == nil {
			retryAfter = seconds(value)
		}
	}

	global := body.Global ||
		string(header.Peek("X-RateLimit-Global")) == "true" ||
		string(header.Peek("X-RateLimit-Scope")) == "global"

	return retryAfter, global
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

func (b *bucket) update(header *fasthttp.ResponseHeader) {
	remaining, err := strconv.Atoi(string(header.Peek("X-RateLimit-Remaining")))
	if err != nil {
		return
	}
	resetAfter, err := strconv.ParseFloat(string(header.Peek("X-RateLimit-Reset-After")), 64)
	if err != nil {
		return
	}

	b.known = true
	b.remaining = remaining
	b.reset = time.Now().Add(seconds(resetAfter))
}

func (b *bucket) limit(until time.Time) {
	b.known = true
	b.remaining = 0
	if until.After(b.reset) {
		b.reset = until
	}
}

func (b *bucket) wait(ctx context.Context) error {
	if !b.known || b.remaining > 0 {
		return nil
	}
	return sleep(ctx, time.Until(b.reset))
}

func (c *Client) setGlobal(until time.Time) {
	c.globalMu.Lock()
	defer c.globalMu.Unlock()

	if until.After(c.globalUntil) {
		c.globalUntil = until
	}
}

func (c *Client) waitGlobal(ctx context.Context) error {
	c.globalMu.Lock()
	until := c.globalUntil
	c.globalMu.Unlock()

	return sleep(ctx, time.Until(until))
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// IsNotFound reports whether err is a 404 answer.
func IsNotFound(err error) bool {
	var httpErr *HTTPError
	return errors.As(err, &httpErr) && httpErr.Status == fasthttp.StatusNotFound
}
