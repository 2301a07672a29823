package services

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// HTTPStatusError records a non-2xx response from a remote analyzer.
type HTTPStatusError struct {
	Service    string
	StatusCode int
	Body       string
	Wait       time.Duration
}

// NewHTTPStatusError builds a status error from a response and its drained body.
func NewHTTPStatusError(service string, resp *http.Response, body []byte) *HTTPStatusError {
	err := &HTTPStatusError{Service: service, Body: strings.TrimSpace(string(body))}
	if resp != nil {
		err.StatusCode = resp.StatusCode
		err.Wait, _ = ParseRetryAfter(resp.Header.Get("Retry-After"))
	}
	return err
}

func (e *HTTPStatusError) Error() string {
	service := e.Service
	if service == "" {
		service = "remote"
	}
	body := e.Body
	if len(body) > 300 {
		body = body[:300] + "..."
	}
	return fmt.Sprintf("%s request: http %d: %s", service, e.StatusCode, body)
}

// Temporary reports whether the status is worth retrying (408, 429, 5xx).
func (e *HTTPStatusError) Temporary() bool {
	return e.StatusCode == http.StatusRequestTimeout ||
		e.StatusCode == http.StatusTooManyRequests ||
		e.StatusCode >= http.StatusInternalServerError
}

// RetryAfter returns the server supplied wait, zero when none was sent.
func (e *HTTPStatusError) RetryAfter() time.Duration { return e.Wait }

// Unwrap maps the status onto the shared markers.
func (e *HTTPStatusError) Unwrap() error {
	switch {
	case e.Temporary():
		return ErrTransient
	case e.StatusCode == http.StatusUnauthorized, e.StatusCode == http.StatusForbidden:
		return ErrConfiguration
	default:
		return ErrExternalTool
	}
}

// TransportMarker picks the marker for an error returned by http.Client.Do.
func TransportMarker(err error) error {
	if errors.Is(err, context.Canceled) {
		return ErrExternalTool
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrTimeout
	}
	return ErrTransient
}

// ParseRetryAfter accepts both delta-seconds and HTTP-date values.
func ParseRetryAfter(value string) (time.Duration, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		if seconds < 0 {
			return 0, false
		}
		return time.Duration(seconds) * time.Second, true
	}
	if when, err := http.ParseTime(value); err == nil {
		delay := time.Until(when)
		if delay < 0 {
			return 0, false
		}
		return delay, true
	}
	return 0, false
}
