package catalog

import (
	"context"
	"time"
)

// Fetcher retrieves a URL and returns its body as text.
//
// Implementations must honor both ctx and request.Timeout, whichever fires
// first, and must return one of the typed errors in errors.go on failure.
type Fetcher interface {
	Fetch(ctx context.Context, request FetchRequest) (FetchResponse, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces run IDs.
type IDGenerator interface {
	NewID() (string, error)
}
