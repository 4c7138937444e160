// Package urls resolves scraped link values into absolute URLs and decides
// which of them belong to a crawl.
package urls

import (
	"fmt"
	"net"
	"net/url"
	"strings"

	"github.com/revendis/catalog-collector/internal/catalog"
	"github.com/revendis/catalog-collector/internal/textnorm"
)

// DefaultPathHints mark the path fragments most storefront platforms use for
// product detail pages.
var DefaultPathHints = []string{"/p/", "/produto", "/product", "/produtos/", "/item/", "/sku/"}

const defaultCategory = "website"

// ParseSiteURL validates the URL that scopes a crawl.
func ParseSiteURL(raw string) (*url.URL, error) {
	trimmed := strings.TrimSpace(raw)
	parsed, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", catalog.ErrInvalidSiteURL, err)
	}
	if !isHTTP(parsed) || parsed.Hostname() == "" {
		return nil, fmt.Errorf("%w: %q is not an absolute http(s) url", catalog.ErrInvalidSiteURL, trimmed)
	}
	return parsed, nil
}

// Origin returns scheme://host[:port] in lowercase with default ports removed.
func Origin(u *url.URL) string {
	if u == nil {
		return ""
	}
	scheme := strings.ToLower(u.Scheme)
	host := strings.ToLower(u.Hostname())
	port := u.Port()
	if (scheme == "http" && port == "80") || (scheme == "https" && port == "443") {
		port = ""
	}
	if port != "" {
		host = net.JoinHostPort(host, port)
	} else if strings.Contains(host, ":") {
		host = "[" + host + "]"
	}
	return scheme + "://" + host
}

// SameOrigin reports whether u lives on origin.
func SameOrigin(u *url.URL, origin string) bool {
	return Origin(u) == origin
}

// Resolve normalizes candidate and resolves it against base. Only http(s)
// results are accepted; anything else is reported as catalog.ErrMalformedURL.
func Resolve(base *url.URL, candidate string) (*url.URL, error) {
	value := textnorm.Text(candidate)
	if value == "" {
		return nil, fmt.Errorf("%w: empty value", catalog.ErrMalformedURL)
	}
	ref, err := url.Parse(value)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", catalog.ErrMalformedURL, err)
	}
	resolved := ref
	if base != nil {
		resolved = base.ResolveReference(ref)
	}
	if !isHTTP(resolved) || resolved.Host == "" {
		return nil, fmt.Errorf("%w: %q is not an http(s) url", catalog.ErrMalformedURL, value)
	}
	return resolved, nil
}

// Canonical returns a copy of u without its #fragment, with the scheme and
// host lowercased and a default port removed, so one page has one spelling.
func Canonical(u *url.URL) *url.URL {
	clean := *u
	clean.Fragment = ""
	clean.RawFragment = ""
	clean.Scheme = strings.ToLower(clean.Scheme)
	clean.Host = strings.TrimPrefix(Origin(&clean), clean.Scheme+"://")
	return &clean
}

// MergeHints unions the default hints with extra ones, lowercased and
// deduplicated, defaults first.
func MergeHints(extra []string) []string {
	seen := make(map[string]struct{}, len(DefaultPathHints)+len(extra))
	merged := make([]string, 0, len(DefaultPathHints)+len(extra))
	add := func(hint string) {
		hint = strings.ToLower(strings.TrimSpace(hint))
		if hint == "" {
			return
		}
		if _, ok := seen[hint]; ok {
			return
		}
		seen[hint] = struct{}{}
		merged = append(merged, hint)
	}
	for _, hint := range DefaultPathHints {
		add(hint)
	}
	for _, hint := range extra {
		add(hint)
	}
	return merged
}

// IsLikelyProductURL reports whether the lowercased path of u contains one of
// hints. Hints are expected to come from MergeHints.
func IsLikelyProductURL(u *url.URL, hints []string) bool {
	path := strings.ToLower(u.EscapedPath())
	for _, hint := range hints {
		if strings.Contains(path, hint) {
			return true
		}
	}
	return false
}

// SourceCategory derives a catalog category from the first path segment.
func SourceCategory(raw string) string {
	parsed, err := url.Parse(raw)
	if err != nil {
		return defaultCategory
	}
	for _, segment := range strings.Split(parsed.EscapedPath(), "/") {
		if segment != "" {
			return strings.ToLower(segment)
		}
	}
	return defaultCategory
}

func isHTTP(u *url.URL) bool {
	scheme := strings.ToLower(u.Scheme)
	return scheme == "http" || scheme == "https"
}
