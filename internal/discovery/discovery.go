// Package discovery builds the list of product page candidates for a site
// from caller seeds, landing page links and sitemaps.
package discovery

import (
	"context"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/revendis/catalog-collector/internal/catalog"
	"github.com/revendis/catalog-collector/internal/extract"
	"github.com/revendis/catalog-collector/internal/metrics"
	"github.com/revendis/catalog-collector/internal/urls"
)

// Default caps.
const (
	DefaultMaxSitemapFiles = 30
	DefaultMaxLandingLinks = 300
)

// Candidate sources, used as metric labels.
const (
	SourceSeed    = "seed"
	SourceLanding = "landing"
	SourceSitemap = "sitemap"
)

// RobotsPolicy supplies robots.txt sitemaps and crawl permissions.
type RobotsPolicy interface {
	Sitemaps(ctx context.Context, origin string, timeout time.Duration) []string
	Allowed(ctx context.Context, origin string, u *url.URL, timeout time.Duration) bool
}

// Config tunes discovery.
type Config struct {
	MaxSitemapFiles int
	MaxLandingLinks int
	// RobotsSitemaps queues Sitemap: entries from robots.txt after the
	// default sitemap locations.
	RobotsSitemaps bool
}

// Request is one discovery run.
type Request struct {
	Site      *url.URL
	SeedURLs  []string
	PathHints []string
	MaxPages  int
	Timeout   time.Duration
}

// Discoverer finds product page candidates.
type Discoverer struct {
	fetcher catalog.Fetcher
	robots  RobotsPolicy
	cfg     Config
	logger  *zap.Logger
}

// New builds a Discoverer. robots may be nil.
func New(fetcher catalog.Fetcher, robots RobotsPolicy, cfg Config, logger *zap.Logger) *Discoverer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxSitemapFiles <= 0 {
		cfg.MaxSitemapFiles = DefaultMaxSitemapFiles
	}
	if cfg.MaxLandingLinks <= 0 {
		cfg.MaxLandingLinks = DefaultMaxLandingLinks
	}
	return &Discoverer{
		fetcher: fetcher,
		robots:  robots,
		cfg:     cfg,
		logger:  logger.Named("discovery"),
	}
}

// Discover returns at most req.MaxPages absolute, same-origin candidate URLs
// in discovery order: seeds first, then landing page links, then sitemap
// entries. Every strategy is best effort; failures only shrink the result.
func (d *Discoverer) Discover(ctx context.Context, req Request) []string {
	run := &discoveryRun{
		Discoverer: d,
		ctx:        ctx,
		req:        req,
		origin:     urls.Origin(req.Site),
		hints:      urls.MergeHints(req.PathHints),
		seen:       make(map[string]struct{}),
	}

	for _, seed := range req.SeedURLs {
		resolved, err := urls.Resolve(req.Site, seed)
		if err != nil {
			d.logger.Debug("skipping seed url", zap.String("url", seed), zap.Error(err))
			continue
		}
		run.add(resolved, SourceSeed)
	}

	if !run.full() {
		run.landing()
	}
	if !run.full() {
		run.sitemaps()
	}

	d.logger.Debug("discovery finished",
		zap.String("site", req.Site.String()),
		zap.Int("candidates", len(run.candidates)),
		zap.Int("sitemaps_visited", run.sitemapsVisited),
	)
	return run.candidates
}

type discoveryRun struct {
	*Discoverer
	ctx             context.Context
	req             Request
	origin          string
	hints           []string
	seen            map[string]struct{}
	candidates      []string
	sitemapsVisited int
}

func (r *discoveryRun) full() bool {
	return len(r.candidates) >= r.req.MaxPages
}

// add keeps u when it is same-origin, looks like a product page and is
// allowed by robots.txt. It reports whether u was kept.
func (r *discoveryRun) add(u *url.URL, source string) bool {
	if r.full() {
		return false
	}
	clean := urls.Canonical(u)
	if !urls.SameOrigin(clean, r.origin) || !urls.IsLikelyProductURL(clean, r.hints) {
		return false
	}
	key := clean.String()
	if _, ok := r.seen[key]; ok {
		return false
	}
	if r.robots != nil && !r.robots.Allowed(r.ctx, r.origin, clean, r.req.Timeout) {
		r.logger.Debug("robots.txt disallows candidate", zap.String("url", key))
		return false
	}
	r.seen[key] = struct{}{}
	r.candidates = append(r.candidates, key)
	metrics.ObserveCandidate(source)
	return true
}

func (r *discoveryRun) fetch(rawURL string, kind catalog.FetchKind) (string, bool) {
	resp, err := r.fetcher.Fetch(r.ctx, catalog.FetchRequest{URL: rawURL, Kind: kind, Timeout: r.req.Timeout})
	if err != nil {
		r.logger.Debug("optional fetch failed",
			zap.String("url", rawURL),
			zap.String("kind", string(kind)),
			zap.Error(err),
		)
		return "", false
	}
	return resp.Body, true
}

func (r *discoveryRun) landing() {
	body, ok := r.fetch(r.req.Site.String(), catalog.FetchKindLanding)
	if !ok {
		return
	}
	for _, link := range extract.ExtractLinks(body, r.req.Site, r.cfg.MaxLandingLinks) {
		r.add(link, SourceLanding)
		if r.full() {
			return
		}
	}
}

// sitemaps crawls the default sitemap locations breadth first. Nested
// sitemap files are queued only while visited plus queued stays under
// MaxSitemapFiles; every other loc is a page candidate.
func (r *discoveryRun) sitemaps() {
	queue := []string{r.origin + "/sitemap.xml", r.origin + "/sitemap_index.xml"}
	queued := map[string]struct{}{queue[0]: {}, queue[1]: {}}
	visited := make(map[string]struct{})

	enqueue := func(loc string) {
		if _, ok := queued[loc]; ok {
			return
		}
		if len(visited)+len(queue) >= r.cfg.MaxSitemapFiles {
			return
		}
		queued[loc] = struct{}{}
		queue = append(queue, loc)
	}

	if r.cfg.RobotsSitemaps && r.robots != nil {
		for _, loc := range r.robots.Sitemaps(r.ctx, r.origin, r.req.Timeout) {
			if resolved, err := urls.Resolve(r.req.Site, loc); err == nil {
				enqueue(resolved.String())
			}
		}
	}

	for len(queue) > 0 && len(visited) < r.cfg.MaxSitemapFiles && !r.full() {
		if r.ctx.Err() != nil {
			return
		}
		sitemapURL := queue[0]
		queue = queue[1:]
		if _, ok := visited[sitemapURL]; ok {
			continue
		}
		visited[sitemapURL] = struct{}{}
		r.sitemapsVisited = len(visited)

		body, ok := r.fetch(sitemapURL, catalog.FetchKindSitemap)
		if !ok {
			continue
		}
		if !extract.LooksLikeSitemap(body) {
			r.logger.Debug("ignoring non-sitemap body", zap.String("url", sitemapURL))
			continue
		}
		base, err := url.Parse(sitemapURL)
		if err != nil {
			continue
		}
		for _, loc := range extract.ExtractLocs(body) {
			resolved, err := urls.Resolve(base, loc)
			if err != nil {
				continue
			}
			if extract.IsSitemapURL(resolved.String()) {
				enqueue(resolved.String())
				continue
			}
			r.add(resolved, SourceSitemap)
			if r.full() {
				return
			}
		}
	}
}
