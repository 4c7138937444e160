// Package worker fetches one product page and extracts its products.
package worker

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/revendis/catalog-collector/internal/catalog"
)

// Parser extracts products from a fetched page.
type Parser interface {
	Parse(html, pageURL string) []catalog.Product
}

// Config controls Worker behavior.
type Config struct {
	Timeout time.Duration
}

// Worker executes the fetch and parse pipeline for a single URL.
type Worker struct {
	fetcher catalog.Fetcher
	parser  Parser
	cfg     Config
	logger  *zap.Logger
}

// New constructs a Worker.
func New(fetcher catalog.Fetcher, parser Parser, cfg Config, logger *zap.Logger) *Worker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Worker{
		fetcher: fetcher,
		parser:  parser,
		cfg:     cfg,
		logger:  logger.Named("worker"),
	}
}

// Process fetches pageURL and returns the products declared on it. A zero
// timeout falls back to Config.Timeout. Fetch errors keep their typed cause so
// callers can classify them.
func (w *Worker) Process(ctx context.Context, pageURL string, timeout time.Duration) ([]catalog.Product, error) {
	if timeout <= 0 {
		timeout = w.cfg.Timeout
	}
	resp, err := w.fetcher.Fetch(ctx, catalog.FetchRequest{
		URL:     pageURL,
		Kind:    catalog.FetchKindProduct,
		Timeout: timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("fetch product page: %w", err)
	}
	products := w.parser.Parse(resp.Body, pageURL)
	w.logger.Debug("parsed product page",
		zap.String("url", pageURL),
		zap.Int("products", len(products)),
		zap.Duration("duration", resp.Duration),
	)
	return products, nil
}
