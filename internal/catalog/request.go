package catalog

import (
	"fmt"
	"net/url"
	"strings"
)

// Limits of the public invocation contract.
const (
	MaxProductURLs = 500
	MaxPathHints   = 30
	MaxPagesLimit  = 400
)

// Validate enforces the invocation contract for externally supplied requests.
// The collector itself is lenient (it clamps and skips); Validate is what the
// CLI and HTTP surfaces run before handing a request to the collector.
func (r Request) Validate() error {
	if strings.TrimSpace(r.SiteURL) == "" {
		return fmt.Errorf("siteUrl is required")
	}
	if !isAbsoluteHTTPURL(r.SiteURL) {
		return fmt.Errorf("siteUrl must be an absolute http(s) URL")
	}
	if len(r.ProductURLs) > MaxProductURLs {
		return fmt.Errorf("productUrls accepts at most %d entries", MaxProductURLs)
	}
	for i, raw := range r.ProductURLs {
		if !isAbsoluteHTTPURL(raw) {
			return fmt.Errorf("productUrls[%d] must be an absolute http(s) URL", i)
		}
	}
	if len(r.PathHints) > MaxPathHints {
		return fmt.Errorf("pathHints accepts at most %d entries", MaxPathHints)
	}
	for i, hint := range r.PathHints {
		if strings.TrimSpace(hint) == "" {
			return fmt.Errorf("pathHints[%d] must not be empty", i)
		}
	}
	if r.MaxPages != 0 && (r.MaxPages < 1 || r.MaxPages > MaxPagesLimit) {
		return fmt.Errorf("maxPages must be between 1 and %d", MaxPagesLimit)
	}
	if r.Timeout < 0 {
		return fmt.Errorf("timeout cannot be negative")
	}
	return nil
}

func isAbsoluteHTTPURL(raw string) bool {
	parsed, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return false
	}
	scheme := strings.ToLower(parsed.Scheme)
	return (scheme == "http" || scheme == "https") && parsed.Host != ""
}
