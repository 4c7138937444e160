// Package app builds the long-lived services shared by the CLI commands and
// the HTTP server, acting as a small dependency injection container.
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/revendis/catalog-collector/internal/api"
	"github.com/revendis/catalog-collector/internal/catalog"
	"github.com/revendis/catalog-collector/internal/clock/system"
	"github.com/revendis/catalog-collector/internal/collector"
	"github.com/revendis/catalog-collector/internal/config"
	"github.com/revendis/catalog-collector/internal/discovery"
	collyfetcher "github.com/revendis/catalog-collector/internal/fetcher/colly"
	"github.com/revendis/catalog-collector/internal/id/uuid"
	"github.com/revendis/catalog-collector/internal/jsonld"
	"github.com/revendis/catalog-collector/internal/logging"
	"github.com/revendis/catalog-collector/internal/metrics"
	"github.com/revendis/catalog-collector/internal/policy/ratelimit"
	"github.com/revendis/catalog-collector/internal/policy/robots"
	"github.com/revendis/catalog-collector/internal/worker"
)

// App holds the services built from one Config.
type App struct {
	cfg       config.Config
	logger    *zap.Logger
	collector *collector.Collector
}

// Option customizes App construction.
type Option func(*options)

type options struct {
	transport http.RoundTripper
}

// WithTransport replaces the HTTP transport used for every outbound fetch.
func WithTransport(rt http.RoundTripper) Option {
	return func(o *options) {
		o.transport = rt
	}
}

// Load reads configuration from path (optional) and builds the App.
func Load(path string, opts ...Option) (*App, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger, err := logging.New(cfg.Logging.Development, cfg.Logging.Level)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return New(cfg, logger, opts...), nil
}

// New wires the collector pipeline from cfg.
func New(cfg config.Config, logger *zap.Logger, opts ...Option) *App {
	if logger == nil {
		logger = zap.NewNop()
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	metrics.Init()

	c := cfg.Collector
	fetcher := collyfetcher.New(collyfetcher.Config{
		UserAgent:   c.UserAgent,
		Timeout:     c.Timeout,
		MaxBodySize: c.MaxPageBytes,
		Transport:   o.transport,
		Limiter:     ratelimit.New(ratelimit.Config{RPS: c.RateLimitRPS, Burst: c.RateLimitBurst}),
	}, logger)

	var robotsPolicy discovery.RobotsPolicy
	if c.RespectRobots || c.RobotsSitemaps {
		robotsPolicy = robots.New(fetcher, robots.Config{
			Agent:   c.RobotsAgent,
			Enforce: c.RespectRobots,
		}, logger)
	}

	discoverer := discovery.New(fetcher, robotsPolicy, discovery.Config{
		MaxSitemapFiles: c.MaxSitemapFiles,
		MaxLandingLinks: c.MaxLandingLinks,
		RobotsSitemaps:  c.RobotsSitemaps,
	}, logger)
	pages := worker.New(fetcher, jsonld.NewParser(logger), worker.Config{Timeout: c.Timeout}, logger)

	return &App{
		cfg:    cfg,
		logger: logger,
		collector: collector.New(
			discoverer,
			pages,
			uuid.New(),
			system.New(),
			cfg.CollectorOptions(),
			logger,
		),
	}
}

// Config returns the configuration the App was built from.
func (a *App) Config() config.Config {
	return a.cfg
}

// Logger returns the shared zap logger.
func (a *App) Logger() *zap.Logger {
	return a.logger
}

// Collector returns the catalog collector.
func (a *App) Collector() *collector.Collector {
	return a.collector
}

// HTTPServer builds the API server listening on the configured port.
func (a *App) HTTPServer() *http.Server {
	handler := api.NewServer(a.collector, api.Config{
		RequestTimeout: a.cfg.Server.RequestTimeout,
		APIKey:         a.cfg.Server.APIKey,
		RequestIDs:     uuid.New(),
	}, a.logger)
	return &http.Server{
		Addr:              fmt.Sprintf(":%d", a.cfg.Server.Port),
		Handler:           handler.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
}

// Close flushes buffered logs.
func (a *App) Close() {
	_ = a.logger.Sync()
}

// Collect runs one collection with the App's collector.
func (a *App) Collect(ctx context.Context, req catalog.Request) (catalog.Result, error) {
	return a.collector.Collect(ctx, req)
}
