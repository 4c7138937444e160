package collector

import (
	"time"

	"github.com/revendis/catalog-collector/internal/catalog"
)

// Options holds the limits applied to every run.
type Options struct {
	DefaultMaxPages int
	MaxPagesLimit   int
	Timeout         time.Duration
	MinTimeout      time.Duration
	Concurrency     int
}

// DefaultOptions returns the limits used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		DefaultMaxPages: 120,
		MaxPagesLimit:   catalog.MaxPagesLimit,
		Timeout:         12 * time.Second,
		MinTimeout:      time.Second,
		Concurrency:     6,
	}
}

func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.DefaultMaxPages <= 0 {
		o.DefaultMaxPages = def.DefaultMaxPages
	}
	if o.MaxPagesLimit <= 0 {
		o.MaxPagesLimit = def.MaxPagesLimit
	}
	if o.Timeout <= 0 {
		o.Timeout = def.Timeout
	}
	if o.MinTimeout <= 0 {
		o.MinTimeout = def.MinTimeout
	}
	if o.Concurrency <= 0 {
		o.Concurrency = def.Concurrency
	}
	return o
}

// MaxPages clamps a requested page budget; zero selects the default.
func (o Options) MaxPages(requested int) int {
	if requested == 0 {
		requested = o.DefaultMaxPages
	}
	return min(max(requested, 1), o.MaxPagesLimit)
}

// RequestTimeout clamps a requested per-fetch timeout; zero selects the default.
func (o Options) RequestTimeout(requested time.Duration) time.Duration {
	if requested == 0 {
		requested = o.Timeout
	}
	return max(requested, o.MinTimeout)
}
