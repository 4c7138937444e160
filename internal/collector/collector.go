// Package collector orchestrates a catalog collection run: it discovers
// candidate pages, fans them out to a bounded worker pool and merges the
// extracted products into one deduplicated result.
package collector

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/revendis/catalog-collector/internal/catalog"
	"github.com/revendis/catalog-collector/internal/dedup"
	"github.com/revendis/catalog-collector/internal/discovery"
	"github.com/revendis/catalog-collector/internal/dispatcher"
	"github.com/revendis/catalog-collector/internal/metrics"
	"github.com/revendis/catalog-collector/internal/urls"
)

// Run statuses reported to metrics.
const (
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
	StatusInvalid   = "invalid"
)

// Discoverer produces the candidate product pages for a site.
type Discoverer interface {
	Discover(ctx context.Context, req discovery.Request) []string
}

// PageProcessor fetches one page and returns its products.
type PageProcessor interface {
	Process(ctx context.Context, pageURL string, timeout time.Duration) ([]catalog.Product, error)
}

// Collector runs catalog collections. It keeps no per-run state and is safe
// for concurrent use.
type Collector struct {
	discoverer Discoverer
	pages      PageProcessor
	ids        catalog.IDGenerator
	clock      catalog.Clock
	opts       Options
	logger     *zap.Logger
}

// New wires a Collector. Zero option fields take their defaults.
func New(
	discoverer Discoverer,
	pages PageProcessor,
	ids catalog.IDGenerator,
	clock catalog.Clock,
	opts Options,
	logger *zap.Logger,
) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Collector{
		discoverer: discoverer,
		pages:      pages,
		ids:        ids,
		clock:      clock,
		opts:       opts.withDefaults(),
		logger:     logger.Named("collector"),
	}
}

// Options returns the effective limits.
func (c *Collector) Options() Options {
	return c.opts
}

// Collect discovers and scrapes the product pages of req.SiteURL.
//
// Page failures are reported in Result.FailedURLs and never abort the run.
// Cancelling ctx stops new work and returns whatever was gathered so far
// without an error. The only error is an unusable site URL.
func (c *Collector) Collect(ctx context.Context, req catalog.Request) (catalog.Result, error) {
	site, err := urls.ParseSiteURL(req.SiteURL)
	if err != nil {
		metrics.ObserveRun(StatusInvalid, 0)
		return catalog.Result{}, err
	}

	runID, err := c.ids.NewID()
	if err != nil {
		c.logger.Warn("run id unavailable", zap.Error(err))
	}
	maxPages := c.opts.MaxPages(req.MaxPages)
	timeout := c.opts.RequestTimeout(req.Timeout)
	logger := c.logger.With(zap.String("run_id", runID), zap.String("site", site.String()))

	result := catalog.Result{
		RunID:      runID,
		StartedAt:  c.clock.Now(),
		SourceURLs: []string{},
		FailedURLs: []catalog.FailedURL{},
	}
	logger.Info("collection started",
		zap.Int("max_pages", maxPages),
		zap.Duration("timeout", timeout),
		zap.Int("seed_urls", len(req.ProductURLs)),
	)

	candidates := c.discoverer.Discover(ctx, discovery.Request{
		Site:      site,
		SeedURLs:  req.ProductURLs,
		PathHints: req.PathHints,
		MaxPages:  maxPages,
		Timeout:   timeout,
	})
	result.SourceURLs = append(result.SourceURLs, candidates...)

	state := &runState{products: dedup.NewSet()}
	pool := dispatcher.New(c.opts.Concurrency)
	result.ScannedURLs = pool.Run(ctx, len(candidates), func(ctx context.Context, index int) {
		pageURL := candidates[index]
		products, err := c.pages.Process(ctx, pageURL, timeout)
		if err != nil {
			if catalog.IsCancelled(err) {
				return
			}
			logger.Warn("page failed", zap.String("url", pageURL), zap.Error(err))
			state.fail(pageURL, failureReason(err))
			return
		}
		state.merge(pageURL, products)
	})

	result.Products = state.products.Products()
	result.FailedURLs = append(result.FailedURLs, state.failed...)
	result.FinishedAt = c.clock.Now()

	status := StatusCompleted
	if ctx.Err() != nil {
		status = StatusCancelled
	}
	metrics.ObserveRun(status, len(result.Products))
	logger.Info("collection finished",
		zap.String("status", status),
		zap.Int("candidates", len(candidates)),
		zap.Int("scanned", result.ScannedURLs),
		zap.Int("products", len(result.Products)),
		zap.Int("failed", len(result.FailedURLs)),
		zap.Duration("elapsed", result.FinishedAt.Sub(result.StartedAt)),
	)
	return result, nil
}

// runState is the only state shared between workers.
type runState struct {
	mu       sync.Mutex
	products *dedup.Set
	failed   []catalog.FailedURL
}

func (s *runState) merge(pageURL string, products []catalog.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range products {
		s.products.Add(dedup.CatalogKey(p, pageURL), p)
	}
}

func (s *runState) fail(pageURL, reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failed = append(s.failed, catalog.FailedURL{URL: pageURL, Error: reason})
}

// failureReason renders the typed cause of a page failure, dropping the
// wrapping added on the way up.
func failureReason(err error) string {
	var status catalog.HTTPStatusError
	if errors.As(err, &status) {
		return status.Error()
	}
	var timeout catalog.TimeoutError
	if errors.As(err, &timeout) {
		return timeout.Error()
	}
	var network catalog.NetworkError
	if errors.As(err, &network) {
		return network.Error()
	}
	return err.Error()
}
