package urls

import (
	"errors"
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/revendis/catalog-collector/internal/catalog"
)

func mustParse(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u
}

func TestParseSiteURL(t *testing.T) {
	t.Parallel()

	u, err := ParseSiteURL("  https://Loja.Example.com/catalogo  ")
	require.NoError(t, err)
	require.Equal(t, "https://loja.example.com", Origin(u))

	for _, raw := range []string{"", "loja.example.com", "/catalogo", "ftp://loja.example.com", "https://", "://bad"} {
		_, err := ParseSiteURL(raw)
		require.Error(t, err, raw)
		require.True(t, errors.Is(err, catalog.ErrInvalidSiteURL), raw)
	}
}

func TestOrigin(t *testing.T) {
	t.Parallel()

	testCases := map[string]string{
		"https://shop.example.com/p/1":     "https://shop.example.com",
		"https://shop.example.com:443/x":   "https://shop.example.com",
		"http://SHOP.example.com:80/x":     "http://shop.example.com",
		"http://shop.example.com:8080/x":   "http://shop.example.com:8080",
		"HTTPS://shop.example.com":         "https://shop.example.com",
		"http://[::1]:8080/produto/a":      "http://[::1]:8080",
		"http://[::1]/produto/a":           "http://[::1]",
	}
	for raw, want := range testCases {
		require.Equal(t, want, Origin(mustParse(t, raw)), raw)
	}
	require.Empty(t, Origin(nil))
}

func TestResolve(t *testing.T) {
	t.Parallel()

	base := mustParse(t, "https://shop.example.com/categoria/perfumes")

	testCases := []struct {
		candidate string
		want      string
		wantErr   bool
	}{
		{candidate: "/p/kit-1", want: "https://shop.example.com/p/kit-1"},
		{candidate: "produto/2", want: "https://shop.example.com/categoria/produto/2"},
		{candidate: "//cdn.example.com/img.png", want: "https://cdn.example.com/img.png"},
		{candidate: " https://other.example.com/p/3 ", want: "https://other.example.com/p/3"},
		{candidate: "/busca?q=a&amp;page=2", want: "https://shop.example.com/busca?q=a&page=2"},
		{candidate: "", wantErr: true},
		{candidate: "   ", wantErr: true},
		{candidate: "mailto:contato@example.com", wantErr: true},
		{candidate: "javascript:void(0)", wantErr: true},
		{candidate: "http://[::1", wantErr: true},
	}
	for _, tc := range testCases {
		got, err := Resolve(base, tc.candidate)
		if tc.wantErr {
			require.Error(t, err, tc.candidate)
			require.True(t, errors.Is(err, catalog.ErrMalformedURL), tc.candidate)
			continue
		}
		require.NoError(t, err, tc.candidate)
		require.Equal(t, tc.want, got.String(), tc.candidate)
	}
}

func TestCanonical(t *testing.T) {
	t.Parallel()

	original := mustParse(t, "https://shop.example.com/p/1?x=1#reviews")
	clean := Canonical(original)
	require.Equal(t, "https://shop.example.com/p/1?x=1", clean.String())
	require.Equal(t, "reviews", original.Fragment)

	tests := map[string]string{
		"https://SHOP.Example.com/p/1":       "https://shop.example.com/p/1",
		"https://shop.example.com:443/p/1":   "https://shop.example.com/p/1",
		"HTTP://shop.example.com:80/p/1":     "http://shop.example.com/p/1",
		"https://shop.example.com:8443/P/1":  "https://shop.example.com:8443/P/1",
		"http://[2001:DB8::1]:80/p/1":        "http://[2001:db8::1]/p/1",
		"http://[2001:db8::1]:8080/p/1#frag": "http://[2001:db8::1]:8080/p/1",
	}
	for raw, want := range tests {
		require.Equal(t, want, Canonical(mustParse(t, raw)).String(), raw)
	}
}

func TestMergeHints(t *testing.T) {
	t.Parallel()

	merged := MergeHints([]string{"/Perfumaria/", " ", "/p/", "/kits/"})
	require.Equal(t, append(append([]string{}, DefaultPathHints...), "/perfumaria/", "/kits/"), merged)
}

func TestIsLikelyProductURL(t *testing.T) {
	t.Parallel()

	hints := MergeHints([]string{"/perfumaria/"})
	testCases := map[string]bool{
		"https://shop.example.com/p/kit-1":               true,
		"https://shop.example.com/PRODUTO/kit":           true,
		"https://shop.example.com/products/abc":          true,
		"https://shop.example.com/perfumaria/floral":     true,
		"https://shop.example.com/sku/123":               true,
		"https://shop.example.com/institucional/contato": false,
		"https://shop.example.com/?p=/p/":                false,
	}
	for raw, want := range testCases {
		require.Equal(t, want, IsLikelyProductURL(mustParse(t, raw), hints), raw)
	}
}

func TestSourceCategory(t *testing.T) {
	t.Parallel()

	require.Equal(t, "perfumaria", SourceCategory("https://shop.example.com/Perfumaria/floral/p"))
	require.Equal(t, "p", SourceCategory("https://shop.example.com//p/kit"))
	require.Equal(t, "website", SourceCategory("https://shop.example.com/"))
	require.Equal(t, "website", SourceCategory("https://shop.example.com"))
	require.Equal(t, "website", SourceCategory("http://[::1"))
}
