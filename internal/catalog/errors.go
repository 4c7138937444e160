package catalog

import (
	"context"
	"errors"
	"fmt"
	"net"
)

var (
	// ErrInvalidSiteURL is returned when the site URL cannot scope a crawl.
	ErrInvalidSiteURL = errors.New("invalid site url")
	// ErrMalformedURL marks a candidate URL that cannot be resolved.
	ErrMalformedURL = errors.New("malformed url")
)

// HTTPStatusError indicates a response outside the 2xx range.
type HTTPStatusError struct {
	Status int
}

func (e HTTPStatusError) Error() string {
	return fmt.Sprintf("http_%d", e.Status)
}

// TimeoutError indicates the per-request timeout fired before completion.
type TimeoutError struct {
	Err error
}

func (e TimeoutError) Error() string {
	return fmt.Errorf("timeout: %w", e.Err).Error()
}

func (e TimeoutError) Unwrap() error {
	return e.Err
}

// CancelledError indicates the caller cancelled the run mid-request.
type CancelledError struct {
	Err error
}

func (e CancelledError) Error() string {
	return fmt.Errorf("cancelled: %w", e.Err).Error()
}

func (e CancelledError) Unwrap() error {
	return e.Err
}

// NetworkError indicates a transport failure (DNS, TLS, connection reset...).
type NetworkError struct {
	Err error
}

func (e NetworkError) Error() string {
	return fmt.Errorf("network: %w", e.Err).Error()
}

func (e NetworkError) Unwrap() error {
	return e.Err
}

// MalformedJSONError indicates a JSON-LD block that could not be decoded.
type MalformedJSONError struct {
	Err error
}

func (e MalformedJSONError) Error() string {
	return fmt.Errorf("malformed json-ld: %w", e.Err).Error()
}

func (e MalformedJSONError) Unwrap() error {
	return e.Err
}

// IsCancelled reports whether err stems from caller cancellation.
func IsCancelled(err error) bool {
	var cancelled CancelledError
	return errors.As(err, &cancelled)
}

// ClassifyError maps a fetch error onto a stable, low-cardinality label.
func ClassifyError(err error) string {
	if err == nil {
		return "ok"
	}
	var status HTTPStatusError
	if errors.As(err, &status) {
		return "http_status"
	}
	var timeout TimeoutError
	if errors.As(err, &timeout) {
		return "timeout"
	}
	var cancelled CancelledError
	if errors.As(err, &cancelled) {
		return "cancelled"
	}
	var network NetworkError
	if errors.As(err, &network) {
		return "network"
	}
	if errors.Is(err, context.Canceled) {
		return "cancelled"
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return "timeout"
		}
		return "network"
	}
	return "other"
}
