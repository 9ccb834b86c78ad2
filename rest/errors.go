package rest

import (
	"fmt"
	"time"
)

// HTTPError is a 4xx or 5xx answer other than 429.
type HTTPError struct {
	Method   string
	Endpoint string
	Status   int
	// Code and Message come from the JSON error body, when there is one.
	Code    int
	Message string
	// Payload is the request body that was sent.
	Payload []byte
	// Body is the raw response body.
	Body []byte
}

func (e *HTTPError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("rest: %s %s: %d %s (code %d)", e.Method, e.Endpoint, e.Status, e.Message, e.Code)
	}
	return fmt.Sprintf("rest: %s %s: %d", e.Method, e.Endpoint, e.Status)
}

// RateLimitError is returned once a request was rate limited more often than
// the configured retries allow.
type RateLimitError struct {
	Method     string
	Endpoint   string
	RetryAfter time.Duration
	Global     bool
	Attempts   int
}

func (e *RateLimitError) Error() string {
	scope := "bucket"
	if e.Global {
		scope = "global"
	}
	return fmt.Sprintf("rest: %s %s: %s rate limit hit %d times, retry after %s", e.Method, e.Endpoint, scope, e.Attempts, e.RetryAfter)
}
