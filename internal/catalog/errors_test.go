package catalog

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClassifyError(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, "ok"},
		{"status", HTTPStatusError{Status: 500}, "http_status"},
		{"wrapped status", fmt.Errorf("fetch: %w", HTTPStatusError{Status: 404}), "http_status"},
		{"timeout", TimeoutError{Err: context.DeadlineExceeded}, "timeout"},
		{"cancelled", CancelledError{Err: context.Canceled}, "cancelled"},
		{"network", NetworkError{Err: errors.New("connection reset")}, "network"},
		{"bare deadline", context.DeadlineExceeded, "timeout"},
		{"other", errors.New("boom"), "other"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tc.want, ClassifyError(tc.err))
		})
	}
}

func TestHTTPStatusErrorMessage(t *testing.T) {
	t.Parallel()

	require.Equal(t, "http_503", HTTPStatusError{Status: 503}.Error())
	require.True(t, IsCancelled(fmt.Errorf("wrap: %w", CancelledError{Err: context.Canceled})))
	require.False(t, IsCancelled(TimeoutError{Err: context.DeadlineExceeded}))
}
