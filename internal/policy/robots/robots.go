// Package robots reads a storefront's robots.txt to find extra sitemaps and,
// when enforcement is on, to drop disallowed product candidates.
package robots

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/temoto/robotstxt"
	"go.uber.org/zap"

	"github.com/revendis/catalog-collector/internal/catalog"
)

// DefaultAgent is the product token matched against robots.txt groups.
const DefaultAgent = "RevendisCatalogCollector"

const (
	defaultCacheSize = 256
	defaultCacheTTL  = 30 * time.Minute
)

// Config controls robots.txt handling.
type Config struct {
	// Agent is the user-agent token looked up in robots.txt groups.
	Agent string
	// Enforce makes Allowed consult Disallow rules.
	Enforce   bool
	CacheSize int
	CacheTTL  time.Duration
}

// Policy fetches robots.txt through a catalog.Fetcher and caches the parsed
// rules per origin.
type Policy struct {
	fetcher catalog.Fetcher
	cfg     Config
	cache   *expirable.LRU[string, *robotstxt.RobotsData]
	logger  *zap.Logger
}

// New builds a Policy.
func New(fetcher catalog.Fetcher, cfg Config, logger *zap.Logger) *Policy {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Agent == "" {
		cfg.Agent = DefaultAgent
	}
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = defaultCacheSize
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = defaultCacheTTL
	}
	return &Policy{
		fetcher: fetcher,
		cfg:     cfg,
		cache:   expirable.NewLRU[string, *robotstxt.RobotsData](cfg.CacheSize, nil, cfg.CacheTTL),
		logger:  logger.Named("robots"),
	}
}

// Enforcing reports whether Allowed can reject URLs.
func (p *Policy) Enforcing() bool {
	return p != nil && p.cfg.Enforce
}

// Sitemaps returns the Sitemap: entries declared for origin.
func (p *Policy) Sitemaps(ctx context.Context, origin string, timeout time.Duration) []string {
	if p == nil {
		return nil
	}
	data := p.load(ctx, origin, timeout)
	if data == nil {
		return nil
	}
	return append([]string(nil), data.Sitemaps...)
}

// Allowed reports whether u may be fetched. Without enforcement, or when
// robots.txt could not be read, everything is allowed.
func (p *Policy) Allowed(ctx context.Context, origin string, u *url.URL, timeout time.Duration) bool {
	if !p.Enforcing() {
		return true
	}
	data := p.load(ctx, origin, timeout)
	if data == nil {
		return true
	}
	return data.TestAgent(u.RequestURI(), p.cfg.Agent)
}

// load returns the cached rules for origin, fetching them on a miss.
// Transient failures return nil and are not cached.
func (p *Policy) load(ctx context.Context, origin string, timeout time.Duration) *robotstxt.RobotsData {
	if data, ok := p.cache.Get(origin); ok {
		return data
	}
	robotsURL := origin + "/robots.txt"
	resp, err := p.fetcher.Fetch(ctx, catalog.FetchRequest{
		URL:     robotsURL,
		Kind:    catalog.FetchKindRobots,
		Timeout: timeout,
	})
	status := resp.StatusCode
	if err != nil {
		var statusErr catalog.HTTPStatusError
		if !errors.As(err, &statusErr) || statusErr.Status < http.StatusBadRequest || statusErr.Status >= http.StatusInternalServerError {
			p.logger.Debug("robots.txt unavailable", zap.String("url", robotsURL), zap.Error(err))
			return nil
		}
		// A 4xx means there is no robots.txt: everything is allowed.
		status = statusErr.Status
	}
	if status == 0 {
		status = http.StatusOK
	}
	data, err := robotstxt.FromStatusAndString(status, resp.Body)
	if err != nil {
		p.logger.Debug("robots.txt unparseable", zap.String("url", robotsURL), zap.Error(err))
		data, _ = robotstxt.FromString("")
	}
	p.cache.Add(origin, data)
	return data
}
