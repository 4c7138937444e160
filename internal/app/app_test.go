package app_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/revendis/catalog-collector/internal/app"
	"github.com/revendis/catalog-collector/internal/catalog"
	"github.com/revendis/catalog-collector/internal/config"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	cfg, err := config.Load("")
	require.NoError(t, err)
	return cfg
}

func TestAppCollectsThroughFullPipeline(t *testing.T) {
	t.Parallel()

	transport := httpmock.NewMockTransport()
	transport.RegisterNoResponder(httpmock.NewStringResponder(http.StatusNotFound, ""))
	transport.RegisterResponder(http.MethodGet, "https://shop.example.com/robots.txt",
		httpmock.NewStringResponder(http.StatusOK, "User-agent: *\nDisallow:\nSitemap: https://shop.example.com/catalog.xml\n"))
	transport.RegisterResponder(http.MethodGet, "https://shop.example.com/catalog.xml",
		httpmock.NewStringResponder(http.StatusOK, `<urlset><url><loc>https://shop.example.com/produto/kit</loc></url></urlset>`))
	transport.RegisterResponder(http.MethodGet, "https://shop.example.com/produto/kit",
		httpmock.NewStringResponder(http.StatusOK, `<script type="application/ld+json">
{"@type":"Product","name":"Kit Shampoo","sku":"KIT1","gtin13":"7891234567895","offers":{"price":"R$ 1.234,56"}}
</script>`))

	a := app.New(testConfig(t), zap.NewNop(), app.WithTransport(transport))
	defer a.Close()

	result, err := a.Collector().Collect(context.Background(), catalog.Request{SiteURL: "https://shop.example.com/"})
	require.NoError(t, err)
	require.Equal(t, []string{"https://shop.example.com/produto/kit"}, result.SourceURLs)
	require.Len(t, result.Products, 1)
	p := result.Products[0]
	require.Equal(t, "KIT1", p.Code)
	require.Equal(t, "7891234567895", p.Barcode)
	require.NotNil(t, p.Price)
	require.InDelta(t, 1234.56, *p.Price, 1e-9)
	require.NotEmpty(t, result.RunID)
	require.False(t, result.StartedAt.IsZero())
}

func TestAppHTTPServer(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	cfg.Server.Port = 9191
	a := app.New(cfg, nil)

	srv := a.HTTPServer()
	require.Equal(t, ":9191", srv.Addr)
	require.Equal(t, 5*time.Second, srv.ReadHeaderTimeout)

	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/catalog/collect", strings.NewReader(`{}`)))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAppCarriesConfig(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	cfg.Collector.Concurrency = 2
	a := app.New(cfg, nil)

	require.Equal(t, 2, a.Config().Collector.Concurrency)
	require.Equal(t, 2, a.Collector().Options().Concurrency)
	require.NotNil(t, a.Logger())
}

func TestLoadRejectsBadConfig(t *testing.T) {
	t.Parallel()

	_, err := app.Load("/does/not/exist.yaml")
	require.Error(t, err)
}
