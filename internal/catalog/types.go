// Package catalog defines the types shared by the website catalog collector:
// the request and result envelopes, the collected product record, and the
// fetch contract implemented by transport adapters.
package catalog

import (
	"net/http"
	"time"
)

// Product is one normalized product extracted from a JSON-LD block.
type Product struct {
	Code           string   `json:"code"`
	SKU            string   `json:"sku"`
	Name           string   `json:"name"`
	Brand          string   `json:"brand,omitempty"`
	Barcode        string   `json:"barcode,omitempty"`
	Price          *float64 `json:"price"`
	PurchasePrice  *float64 `json:"purchasePrice"`
	InStock        bool     `json:"inStock"`
	ImageURL       string   `json:"imageUrl,omitempty"`
	SourceCategory string   `json:"sourceCategory"`
	SourceURL      string   `json:"sourceUrl,omitempty"`
}

// Request describes one collection run.
//
// MaxPages zero means "use the collector default"; any other value is clamped
// to [1, MaxPagesLimit]. Timeout zero means "use the collector default".
type Request struct {
	SiteURL     string        `json:"siteUrl"`
	ProductURLs []string      `json:"productUrls,omitempty"`
	PathHints   []string      `json:"pathHints,omitempty"`
	MaxPages    int           `json:"maxPages,omitempty"`
	Timeout     time.Duration `json:"-"`
}

// FailedURL records a product page that could not be fetched.
type FailedURL struct {
	URL   string `json:"url"`
	Error string `json:"error"`
}

// Result is returned by every collection run, even when nothing was found.
type Result struct {
	RunID       string      `json:"runId"`
	Products    []Product   `json:"products"`
	ScannedURLs int         `json:"scannedUrls"`
	SourceURLs  []string    `json:"sourceUrls"`
	FailedURLs  []FailedURL `json:"failedUrls"`
	StartedAt   time.Time   `json:"startedAt"`
	FinishedAt  time.Time   `json:"finishedAt"`
}

// FetchKind labels what a fetch is for; it only feeds logs and metrics.
type FetchKind string

// Fetch kinds issued by discovery and the worker pool.
const (
	FetchKindLanding FetchKind = "landing"
	FetchKindRobots  FetchKind = "robots"
	FetchKindSitemap FetchKind = "sitemap"
	FetchKindProduct FetchKind = "product"
)

// FetchRequest captures everything needed to fetch a URL as text.
type FetchRequest struct {
	URL     string
	Kind    FetchKind
	Timeout time.Duration
}

// FetchResponse is the result returned by a Fetcher implementation.
type FetchResponse struct {
	URL        string
	FinalURL   string
	StatusCode int
	Headers    http.Header
	Body       string
	Duration   time.Duration
}
