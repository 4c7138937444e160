package collector

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestOptionsMaxPages(t *testing.T) {
	t.Parallel()

	opts := DefaultOptions()
	require.Equal(t, 120, opts.MaxPages(0))
	require.Equal(t, 1, opts.MaxPages(-5))
	require.Equal(t, 1, opts.MaxPages(1))
	require.Equal(t, 400, opts.MaxPages(400))
	require.Equal(t, 400, opts.MaxPages(10000))
}

func TestOptionsRequestTimeout(t *testing.T) {
	t.Parallel()

	opts := DefaultOptions()
	require.Equal(t, 12*time.Second, opts.RequestTimeout(0))
	require.Equal(t, time.Second, opts.RequestTimeout(time.Millisecond))
	require.Equal(t, 30*time.Second, opts.RequestTimeout(30*time.Second))
}

func TestOptionsWithDefaultsKeepsOverrides(t *testing.T) {
	t.Parallel()

	opts := Options{DefaultMaxPages: 50, Concurrency: 2}.withDefaults()
	require.Equal(t, 50, opts.DefaultMaxPages)
	require.Equal(t, 2, opts.Concurrency)
	require.Equal(t, 400, opts.MaxPagesLimit)
	require.Equal(t, 12*time.Second, opts.Timeout)
	require.Equal(t, time.Second, opts.MinTimeout)
}
