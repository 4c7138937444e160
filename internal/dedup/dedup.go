// Package dedup derives product identity keys and keeps the first product seen
// under each key.
package dedup

import (
	"strings"

	"github.com/revendis/catalog-collector/internal/catalog"
	"github.com/revendis/catalog-collector/internal/hash/sha1"
)

const autoCodePrefix = "AUTO-"

// AutoCode is the placeholder code for products without a source identifier.
// The same name and source URL always yield the same code.
func AutoCode(name, sourceURL string) string {
	return autoCodePrefix + sha1.Token(name+"|"+sourceURL)
}

// Token uppercases value and drops everything outside [A-Z0-9].
func Token(value string) string {
	upper := strings.ToUpper(value)
	var b strings.Builder
	b.Grow(len(upper))
	for _, r := range upper {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// PageKey identifies a product within one page.
func PageKey(p catalog.Product) string {
	return Token(p.Barcode + "|" + p.Code + "|" + p.SourceURL + "|" + p.Name)
}

// CatalogKey identifies a product across every page of a run. A barcode is
// authoritative on its own; without one the code, source URL (or the page it
// came from) and name are combined.
//
// The barcode-only key "GTIN"+barcode knowingly differs from PageKey's
// barcode|code|sourceUrl|name key, so one GTIN listed on two pages merges.
func CatalogKey(p catalog.Product, pageURL string) string {
	if p.Barcode != "" {
		return "GTIN" + p.Barcode
	}
	source := p.SourceURL
	if source == "" {
		source = pageURL
	}
	return Token(p.Code + "|" + source + "|" + p.Name)
}

// Set keeps products in first-seen order, one per key. It is not safe for
// concurrent use; callers serialize access.
type Set struct {
	index    map[string]struct{}
	products []catalog.Product
}

// NewSet returns an empty Set.
func NewSet() *Set {
	return &Set{index: make(map[string]struct{})}
}

// Add stores p under key unless the key is taken. It reports whether p was kept.
func (s *Set) Add(key string, p catalog.Product) bool {
	if _, ok := s.index[key]; ok {
		return false
	}
	s.index[key] = struct{}{}
	s.products = append(s.products, p)
	return true
}

// Products returns a copy of the kept products in insertion order.
func (s *Set) Products() []catalog.Product {
	out := make([]catalog.Product, len(s.products))
	copy(out, s.products)
	return out
}
