package jsonld

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/revendis/catalog-collector/internal/textnorm"
)

var (
	priceNoise   = regexp.MustCompile(`[^\d,.\-]`)
	nonDigits    = regexp.MustCompile(`\D+`)
	urlLike      = regexp.MustCompile(`(?i)^(https?:)?//|^/[^/]`)
	barcodeRange = [2]int{8, 18}
)

// ParsePrice turns a JSON-LD price into a number. Strings are cleaned of
// currency symbols; when a comma is present it is the decimal separator and
// dots are thousands separators.
func ParsePrice(value any) *float64 {
	switch v := value.(type) {
	case float64:
		return finite(v)
	case json.Number:
		parsed, err := v.Float64()
		if err != nil {
			return nil
		}
		return finite(parsed)
	case string:
		cleaned := priceNoise.ReplaceAllString(v, "")
		if cleaned == "" {
			return nil
		}
		if strings.Contains(cleaned, ",") {
			cleaned = strings.ReplaceAll(cleaned, ".", "")
			cleaned = strings.Replace(cleaned, ",", ".", 1)
		}
		parsed, err := strconv.ParseFloat(cleaned, 64)
		if err != nil {
			return nil
		}
		return finite(parsed)
	default:
		return nil
	}
}

func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// NormalizeBarcode keeps the digits of value and accepts 8 to 18 of them.
func NormalizeBarcode(value any) string {
	text := scalarText(value)
	if text == "" {
		return ""
	}
	digits := nonDigits.ReplaceAllString(text, "")
	if len(digits) < barcodeRange[0] || len(digits) > barcodeRange[1] {
		return ""
	}
	return digits
}

// scalarText renders strings and numbers as normalized text and everything
// else as "".
func scalarText(value any) string {
	switch v := value.(type) {
	case string:
		return textnorm.Text(v)
	case json.Number:
		return v.String()
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return ""
		}
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return ""
	}
}

// stringText only accepts JSON strings.
func stringText(value any) string {
	if s, ok := value.(string); ok {
		return textnorm.Text(s)
	}
	return ""
}

func looksLikeURL(value string) bool {
	return urlLike.MatchString(strings.TrimSpace(value))
}
