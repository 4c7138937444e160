// Package extract scans raw HTML and sitemap XML for the URLs discovery cares
// about. Scanning is pattern based so malformed or truncated markup still
// yields whatever well-formed fragments it contains.
package extract

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/revendis/catalog-collector/internal/textnorm"
	"github.com/revendis/catalog-collector/internal/urls"
)

var (
	locPattern  = regexp.MustCompile(`(?i)<loc>\s*(?:<!\[CDATA\[\s*)?([^<]+?)\s*(?:\]\]>\s*)?</loc>`)
	hrefPattern = regexp.MustCompile(`(?i)href\s*=\s*(?:"([^"]+)"|'([^']+)')`)
)

// ExtractLocs returns the text of every <loc> element, entity decoded and
// trimmed, in document order.
func ExtractLocs(xml string) []string {
	matches := locPattern.FindAllStringSubmatch(xml, -1)
	locs := make([]string, 0, len(matches))
	for _, match := range matches {
		if loc := textnorm.Text(match[1]); loc != "" {
			locs = append(locs, loc)
		}
	}
	return locs
}

// LooksLikeSitemap reports whether body is a sitemap or sitemap index rather
// than an HTML page served with a 200 for a missing file.
func LooksLikeSitemap(body string) bool {
	lower := strings.ToLower(body)
	return strings.Contains(lower, "<urlset") || strings.Contains(lower, "<sitemapindex")
}

// IsSitemapURL reports whether loc points at another sitemap file. The path
// decides, so paginated sitemaps like /sitemap.xml?page=2 qualify. Gzipped
// sitemaps count too; the fetcher inflates them.
func IsSitemapURL(loc string) bool {
	path := loc
	if parsed, err := url.Parse(loc); err == nil {
		path = parsed.Path
	}
	path = strings.ToLower(path)
	return strings.HasSuffix(path, ".xml") || strings.HasSuffix(path, ".xml.gz")
}

// ExtractLinks resolves every href value in html against base and returns at
// most limit of them. Values that do not resolve to http(s) URLs are dropped
// before the limit is applied. A non-positive limit means no limit.
func ExtractLinks(html string, base *url.URL, limit int) []*url.URL {
	matches := hrefPattern.FindAllStringSubmatch(html, -1)
	links := make([]*url.URL, 0, min(len(matches), max(limit, 0)))
	for _, match := range matches {
		if limit > 0 && len(links) >= limit {
			break
		}
		raw := match[1]
		if raw == "" {
			raw = match[2]
		}
		resolved, err := urls.Resolve(base, raw)
		if err != nil {
			continue
		}
		links = append(links, resolved)
	}
	return links
}
