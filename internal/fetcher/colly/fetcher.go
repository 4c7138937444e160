// Package collyfetcher implements catalog.Fetcher using gocolly.
package collyfetcher

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"github.com/revendis/catalog-collector/internal/catalog"
	"github.com/revendis/catalog-collector/internal/metrics"
)

// Request headers sent with every fetch.
const (
	DefaultUserAgent = "Mozilla/5.0 (compatible; RevendisCatalogCollector/1.0)"
	AcceptHeader     = "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"
	AcceptLanguage   = "pt-BR,pt;q=0.9,en;q=0.8"
)

// Timeout bounds.
const (
	DefaultTimeout = 12 * time.Second
	MinTimeout     = time.Second
)

// DefaultMaxBodySize caps how much of a response body is read.
const DefaultMaxBodySize = 10 << 20

// Waiter throttles requests per host.
type Waiter interface {
	Wait(ctx context.Context, rawURL string) error
}

// Config controls collector behavior.
type Config struct {
	UserAgent   string
	Timeout     time.Duration
	MaxBodySize int
	// Transport overrides the pooled HTTP transport; tests inject mocks here.
	Transport http.RoundTripper
	// Limiter, when set, is waited on before every request.
	Limiter Waiter
}

// Fetcher implements catalog.Fetcher using the Colly collector.
type Fetcher struct {
	cfg           Config
	baseCollector *colly.Collector
	logger        *zap.Logger
}

type collectorHooks interface {
	OnRequest(colly.RequestCallback)
	OnResponse(colly.ResponseCallback)
	OnError(colly.ErrorCallback)
}

// fetchState is filled in by the collector callbacks of a single fetch.
type fetchState struct {
	response catalog.FetchResponse
	err      error
}

// New builds a Fetcher.
func New(cfg Config, logger *zap.Logger) *Fetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxBodySize <= 0 {
		cfg.MaxBodySize = DefaultMaxBodySize
	}
	transport := cfg.Transport
	if transport == nil {
		transport = newHTTPTransport()
	}

	c := colly.NewCollector(
		colly.Async(false),
		colly.UserAgent(cfg.UserAgent),
		colly.IgnoreRobotsTxt(),
		colly.AllowURLRevisit(),
		colly.ParseHTTPErrorResponse(),
		colly.MaxBodySize(cfg.MaxBodySize),
	)
	c.WithTransport(transport)
	// Clones share the HTTP client, so per-fetch deadlines travel on the
	// request context instead of the client timeout.
	c.SetRequestTimeout(0)

	return &Fetcher{
		cfg:           cfg,
		baseCollector: c,
		logger:        logger.Named("fetcher"),
	}
}

// Fetch executes a single HTTP GET using Colly and returns the body as text.
// Non-2xx responses fail with catalog.HTTPStatusError.
func (f *Fetcher) Fetch(ctx context.Context, request catalog.FetchRequest) (catalog.FetchResponse, error) {
	kind := string(request.Kind)
	if kind == "" {
		kind = "unknown"
	}
	start := time.Now()
	resp, err := f.fetch(ctx, request, start)
	metrics.ObserveFetch(kind, catalog.ClassifyError(err), time.Since(start))
	if err != nil {
		f.logger.Debug("fetch failed",
			zap.String("url", request.URL),
			zap.String("kind", kind),
			zap.Error(err),
		)
		return resp, err
	}
	return resp, nil
}

func (f *Fetcher) fetch(ctx context.Context, request catalog.FetchRequest, start time.Time) (catalog.FetchResponse, error) {
	if err := ctx.Err(); err != nil {
		return catalog.FetchResponse{}, catalog.CancelledError{Err: err}
	}
	if f.cfg.Limiter != nil {
		if err := f.cfg.Limiter.Wait(ctx, request.URL); err != nil {
			if ctx.Err() != nil {
				return catalog.FetchResponse{}, catalog.CancelledError{Err: err}
			}
			return catalog.FetchResponse{}, fmt.Errorf("throttle %s: %w", request.URL, err)
		}
	}

	fetchCtx, cancel := context.WithTimeout(ctx, f.timeout(request))
	defer cancel()

	state := &fetchState{}
	collector := f.buildCollector(fetchCtx, request, start, state)
	if err := f.runCollector(fetchCtx, collector, request.URL, state); err != nil {
		return catalog.FetchResponse{}, classify(ctx, fetchCtx, err)
	}
	resp := state.response
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return resp, catalog.HTTPStatusError{Status: resp.StatusCode}
	}
	return resp, nil
}

func (f *Fetcher) timeout(request catalog.FetchRequest) time.Duration {
	timeout := request.Timeout
	if timeout <= 0 {
		timeout = f.cfg.Timeout
	}
	return max(timeout, MinTimeout)
}

func (f *Fetcher) buildCollector(
	ctx context.Context,
	request catalog.FetchRequest,
	start time.Time,
	state *fetchState,
) *colly.Collector {
	collector := f.baseCollector.Clone()
	collector.Context = ctx
	f.configureCollectorHooks(collector, request, start, state)
	return collector
}

func (f *Fetcher) configureCollectorHooks(
	hooks collectorHooks,
	request catalog.FetchRequest,
	start time.Time,
	state *fetchState,
) {
	hooks.OnRequest(func(r *colly.Request) {
		r.Headers.Set("Accept", AcceptHeader)
		r.Headers.Set("Accept-Language", AcceptLanguage)
		r.Headers.Set("User-Agent", f.cfg.UserAgent)
	})

	hooks.OnResponse(func(r *colly.Response) {
		finalURL := request.URL
		if r.Request != nil && r.Request.URL != nil {
			finalURL = r.Request.URL.String()
		}
		var headers http.Header
		if r.Headers != nil {
			headers = r.Headers.Clone()
		}
		state.response = catalog.FetchResponse{
			URL:        request.URL,
			FinalURL:   finalURL,
			StatusCode: r.StatusCode,
			Headers:    headers,
			Body:       string(r.Body),
			Duration:   time.Since(start),
		}
	})

	hooks.OnError(func(_ *colly.Response, err error) {
		state.err = err
	})
}

func (f *Fetcher) runCollector(ctx context.Context, collector *colly.Collector, url string, state *fetchState) error {
	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(url)
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("colly fetch canceled: %w", ctx.Err())
	case err := <-done:
		if err != nil {
			return fmt.Errorf("colly visit failed: %w", err)
		}
		if state.err != nil {
			return fmt.Errorf("colly response failed: %w", state.err)
		}
		return nil
	}
}

// classify maps a transport failure onto the catalog error taxonomy. parent
// is the caller's context, fetchCtx the per-request one derived from it.
func classify(parent, fetchCtx context.Context, err error) error {
	if parent.Err() != nil {
		return catalog.CancelledError{Err: err}
	}
	if errors.Is(fetchCtx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return catalog.TimeoutError{Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return catalog.TimeoutError{Err: err}
	}
	return catalog.NetworkError{Err: err}
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   8,
		IdleConnTimeout:       90 * time.Second,
	}
}
