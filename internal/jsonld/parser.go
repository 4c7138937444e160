// Package jsonld finds schema.org Product nodes in the JSON-LD blocks of an
// HTML page and normalizes them into catalog products.
package jsonld

import (
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/revendis/catalog-collector/internal/catalog"
	"github.com/revendis/catalog-collector/internal/dedup"
	"github.com/revendis/catalog-collector/internal/textnorm"
	"github.com/revendis/catalog-collector/internal/urls"
)

var (
	scriptPattern = regexp.MustCompile(`(?is)<script[^>]*type=["']application/ld\+json["'][^>]*>(.*?)</script>`)
	cdataReplacer = strings.NewReplacer("//<![CDATA[", "", "//]]>", "", "<![CDATA[", "", "]]>", "", "<!--", "", "-->", "")

	barcodeKeys = []string{"gtin13", "gtin14", "gtin12", "gtin8", "gtin", "barcode", "ean", "upc"}
	codeKeys    = []string{"sku", "productID", "mpn"}
	priceKeys   = []string{"price", "lowPrice", "highPrice"}
	imageKeys   = []string{"url", "src", "href", "content", "contentUrl", "absURL", "absUrl"}
)

// Parser extracts products from HTML pages.
type Parser struct {
	logger *zap.Logger
}

// NewParser builds a Parser. A nil logger disables logging.
func NewParser(logger *zap.Logger) *Parser {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Parser{logger: logger.Named("jsonld")}
}

// Parse returns the products declared in the JSON-LD blocks of html,
// deduplicated within the page. Malformed blocks are skipped.
func (p *Parser) Parse(html, pageURL string) []catalog.Product {
	base, err := url.Parse(pageURL)
	if err != nil {
		p.logger.Debug("unparseable page url", zap.String("url", pageURL), zap.Error(err))
		return nil
	}
	w := &walker{pageURL: pageURL, base: base, seen: dedup.NewSet()}
	for i, match := range scriptPattern.FindAllStringSubmatch(html, -1) {
		payload, err := decodeBlock(match[1])
		if err != nil {
			p.logger.Debug("skipping json-ld block",
				zap.String("url", pageURL),
				zap.Int("block", i),
				zap.Error(err),
			)
			continue
		}
		w.visit(payload)
	}
	return w.seen.Products()
}

// decodeBlock parses a script body as-is first, then retries after removing
// CDATA and comment wrappers and folding entities and whitespace.
func decodeBlock(raw string) (any, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, catalog.MalformedJSONError{Err: fmt.Errorf("empty block")}
	}
	value, err := decodeJSON(trimmed)
	if err == nil {
		return value, nil
	}
	cleaned := textnorm.Text(cdataReplacer.Replace(trimmed))
	if cleaned == "" || cleaned == trimmed {
		return nil, catalog.MalformedJSONError{Err: err}
	}
	value, retryErr := decodeJSON(cleaned)
	if retryErr != nil {
		return nil, catalog.MalformedJSONError{Err: retryErr}
	}
	return value, nil
}

func decodeJSON(payload string) (any, error) {
	dec := json.NewDecoder(strings.NewReader(payload))
	dec.UseNumber()
	var value any
	if err := dec.Decode(&value); err != nil {
		return nil, fmt.Errorf("decode json-ld: %w", err)
	}
	if dec.More() {
		return nil, fmt.Errorf("decode json-ld: trailing data")
	}
	return value, nil
}

type walker struct {
	pageURL string
	base    *url.URL
	seen    *dedup.Set
}

// visit walks arrays and objects depth first. Object keys are visited in
// sorted order so results do not depend on map iteration.
func (w *walker) visit(node any) {
	switch v := node.(type) {
	case []any:
		for _, item := range v {
			w.visit(item)
		}
	case map[string]any:
		if isProduct(v) {
			if product, ok := w.product(v); ok {
				w.seen.Add(dedup.PageKey(product), product)
			}
		}
		for _, key := range sortedKeys(v) {
			w.visit(v[key])
		}
	}
}

func isProduct(raw map[string]any) bool {
	var typ string
	switch v := raw["@type"].(type) {
	case string:
		typ = v
	case []any:
		if len(v) > 0 {
			typ, _ = v[0].(string)
		}
	}
	return strings.Contains(strings.ToLower(typ), "product")
}

func (w *walker) product(raw map[string]any) (catalog.Product, bool) {
	name := firstText(raw, stringText, "name", "title")
	if name == "" {
		return catalog.Product{}, false
	}

	offer := firstOffer(raw["offers"])
	sourceURL := w.sourceURL(raw)
	code := firstText(raw, scalarText, codeKeys...)
	if code == "" {
		code = dedup.AutoCode(name, sourceURL)
	}

	return catalog.Product{
		Code:           code,
		SKU:            code,
		Name:           name,
		Brand:          brandName(raw["brand"]),
		Barcode:        barcode(raw, offer),
		Price:          price(raw, offer),
		InStock:        inStock(offer),
		ImageURL:       w.image(raw["image"], false),
		SourceCategory: urls.SourceCategory(sourceURL),
		SourceURL:      sourceURL,
	}, true
}

func (w *walker) sourceURL(raw map[string]any) string {
	candidate := stringText(raw["url"])
	if candidate == "" {
		candidate = stringText(raw["@id"])
	}
	if candidate == "" {
		return w.pageURL
	}
	resolved, err := urls.Resolve(w.base, candidate)
	if err != nil {
		return w.pageURL
	}
	return resolved.String()
}

// image resolves the first usable image reference. Inside the fallback walk
// over unknown object keys only URL-looking strings are accepted.
func (w *walker) image(value any, strict bool) string {
	switch v := value.(type) {
	case string:
		if strict && !looksLikeURL(v) {
			return ""
		}
		resolved, err := urls.Resolve(w.base, v)
		if err != nil {
			return ""
		}
		return resolved.String()
	case []any:
		for _, item := range v {
			if found := w.image(item, strict); found != "" {
				return found
			}
		}
	case map[string]any:
		for _, key := range imageKeys {
			if found := w.image(v[key], false); found != "" {
				return found
			}
		}
		for _, key := range sortedKeys(v) {
			if slices.Contains(imageKeys, key) {
				continue
			}
			if found := w.image(v[key], true); found != "" {
				return found
			}
		}
	}
	return ""
}

func firstText(raw map[string]any, render func(any) string, keys ...string) string {
	for _, key := range keys {
		if text := render(raw[key]); text != "" {
			return text
		}
	}
	return ""
}

func firstOffer(value any) map[string]any {
	if list, ok := value.([]any); ok {
		if len(list) == 0 {
			return nil
		}
		value = list[0]
	}
	offer, _ := value.(map[string]any)
	return offer
}

func brandName(value any) string {
	switch v := value.(type) {
	case string:
		return textnorm.Text(v)
	case map[string]any:
		return stringText(v["name"])
	case []any:
		if len(v) > 0 {
			return brandName(v[0])
		}
	}
	return ""
}

func barcode(raw, offer map[string]any) string {
	for _, source := range []map[string]any{raw, offer} {
		if source == nil {
			continue
		}
		for _, key := range barcodeKeys {
			if code := NormalizeBarcode(source[key]); code != "" {
				return code
			}
		}
	}
	return ""
}

func price(raw, offer map[string]any) *float64 {
	if offer != nil {
		for _, key := range priceKeys {
			if parsed := ParsePrice(offer[key]); parsed != nil {
				return parsed
			}
		}
	}
	return ParsePrice(raw["price"])
}

// inStock treats a missing availability as sellable.
func inStock(offer map[string]any) bool {
	if offer == nil {
		return true
	}
	availability := strings.ToLower(stringText(offer["availability"]))
	if availability == "" {
		return true
	}
	return strings.Contains(availability, "instock") && !strings.Contains(availability, "outofstock")
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	return keys
}
