package api

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/revendis/catalog-collector/internal/catalog"
)

type fakeCollector struct {
	mu     sync.Mutex
	result catalog.Result
	err    error
	calls  []catalog.Request
	block  bool
}

func (f *fakeCollector) Collect(ctx context.Context, req catalog.Request) (catalog.Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req)
	block := f.block
	f.mu.Unlock()
	if block {
		<-ctx.Done()
	}
	return f.result, f.err
}

func (f *fakeCollector) lastCall() catalog.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[len(f.calls)-1]
}

func (f *fakeCollector) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func newTestServer(c Collector) *Server {
	return NewServer(c, Config{}, zap.NewNop())
}

func postCollect(t *testing.T, s *Server, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/v1/catalog/collect", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestServer_Collect_Succeeds(t *testing.T) {
	t.Parallel()

	price := 19.9
	collector := &fakeCollector{result: catalog.Result{
		RunID: "run-1",
		Products: []catalog.Product{{
			Code: "SKU1", Name: "Shampoo", Price: &price, InStock: true, SourceCategory: "produto",
		}},
		ScannedURLs: 1,
		SourceURLs:  []string{"https://shop.example.com/produto/shampoo"},
		FailedURLs:  []catalog.FailedURL{},
	}}
	server := newTestServer(collector)

	rec := postCollect(t, server, `{
		"siteUrl": "https://shop.example.com",
		"productUrls": ["https://shop.example.com/produto/shampoo"],
		"pathHints": ["/loja/"],
		"maxPages": 25,
		"timeoutMs": 5000
	}`)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var got catalog.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Equal(t, "run-1", got.RunID)
	require.Len(t, got.Products, 1)
	require.Equal(t, 1, got.ScannedURLs)

	call := collector.lastCall()
	require.Equal(t, "https://shop.example.com", call.SiteURL)
	require.Equal(t, []string{"/loja/"}, call.PathHints)
	require.Equal(t, 25, call.MaxPages)
	require.Equal(t, 5*time.Second, call.Timeout)
}

func TestServer_Collect_InvalidJSON(t *testing.T) {
	t.Parallel()

	collector := &fakeCollector{}
	rec := postCollect(t, newTestServer(collector), "{invalid")

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "invalid JSON")
	require.Zero(t, collector.callCount())
}

func TestServer_Collect_ValidationErrors(t *testing.T) {
	t.Parallel()

	tooMany := make([]string, catalog.MaxProductURLs+1)
	for i := range tooMany {
		tooMany[i] = fmt.Sprintf("https://shop.example.com/p/%d", i)
	}
	encoded, err := json.Marshal(tooMany)
	require.NoError(t, err)

	tests := []struct {
		name string
		body string
		want string
	}{
		{name: "missing site", body: `{}`, want: "siteUrl is required"},
		{name: "relative site", body: `{"siteUrl":"/loja"}`, want: "siteUrl"},
		{name: "max pages above limit", body: `{"siteUrl":"https://shop.example.com","maxPages":401}`, want: "maxPages"},
		{name: "blank path hint", body: `{"siteUrl":"https://shop.example.com","pathHints":[" "]}`, want: "pathHints[0]"},
		{name: "too many product urls", body: `{"siteUrl":"https://shop.example.com","productUrls":` + string(encoded) + `}`, want: "productUrls"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			collector := &fakeCollector{}
			rec := postCollect(t, newTestServer(collector), tc.body)
			require.Equal(t, http.StatusBadRequest, rec.Code)
			require.Contains(t, rec.Body.String(), tc.want)
			require.Zero(t, collector.callCount())
		})
	}
}

func TestServer_Collect_InvalidSiteFromCollector(t *testing.T) {
	t.Parallel()

	collector := &fakeCollector{err: fmt.Errorf("%w: no host", catalog.ErrInvalidSiteURL)}
	rec := postCollect(t, newTestServer(collector), `{"siteUrl":"https://shop.example.com"}`)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "invalid site url")
}

func TestServer_Collect_UnexpectedError(t *testing.T) {
	t.Parallel()

	collector := &fakeCollector{err: errors.New("boom")}
	rec := postCollect(t, newTestServer(collector), `{"siteUrl":"https://shop.example.com"}`)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Contains(t, rec.Body.String(), "collection failed")
}

func TestServer_Collect_TimesOut(t *testing.T) {
	t.Parallel()

	collector := &fakeCollector{block: true, result: catalog.Result{
		RunID:       "run-partial",
		Products:    []catalog.Product{{Code: "SKU1", Name: "Shampoo", SourceCategory: "produto"}},
		ScannedURLs: 1,
		SourceURLs:  []string{"https://shop.example.com/produto/shampoo"},
		FailedURLs:  []catalog.FailedURL{},
	}}
	server := NewServer(collector, Config{RequestTimeout: 50 * time.Millisecond}, zap.NewNop())

	rec := postCollect(t, server, `{"siteUrl":"https://shop.example.com"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var got catalog.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Equal(t, "run-partial", got.RunID)
	require.Len(t, got.Products, 1)
	require.Equal(t, "SKU1", got.Products[0].Code)
}

func TestServer_APIKey(t *testing.T) {
	t.Parallel()

	collector := &fakeCollector{result: catalog.Result{Products: []catalog.Product{}}}
	server := NewServer(collector, Config{APIKey: "secret"}, zap.NewNop())

	rec := postCollect(t, server, `{"siteUrl":"https://shop.example.com"}`)
	require.Equal(t, http.StatusForbidden, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/v1/catalog/collect", strings.NewReader(`{"siteUrl":"https://shop.example.com"}`))
	req.Header.Set("X-API-Key", "secret")
	rec = httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	health := httptest.NewRecorder()
	server.Handler().ServeHTTP(health, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, health.Code)
}

func TestServer_HealthAndReady(t *testing.T) {
	t.Parallel()

	server := newTestServer(&fakeCollector{})
	for path, want := range map[string]string{"/healthz": "ok", "/readyz": "ready"} {
		rec := httptest.NewRecorder()
		server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		require.Equal(t, http.StatusOK, rec.Code, path)
		require.Contains(t, rec.Body.String(), want)
		require.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	}
}

func TestServer_MetricsEndpoint(t *testing.T) {
	t.Parallel()

	server := newTestServer(&fakeCollector{})
	warm := httptest.NewRecorder()
	server.Handler().ServeHTTP(warm, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "http_requests_total")
}

func TestRequestIDMiddlewareKeepsIncomingID(t *testing.T) {
	t.Parallel()

	var seen string
	handler := requestIDMiddleware(fixedIDs("generated"))(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		seen = RequestID(r.Context())
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, "abc-123", seen)
	require.Equal(t, "abc-123", rec.Header().Get("X-Request-ID"))
}

type fixedIDs string

func (f fixedIDs) NewRequestID() string { return string(f) }

func TestServer_RequestIDFromGenerator(t *testing.T) {
	t.Parallel()

	server := NewServer(&fakeCollector{}, Config{RequestIDs: fixedIDs("req-42")}, zap.NewNop())
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "req-42", rec.Header().Get("X-Request-ID"))
}

func TestRecoverMiddlewareReturns500(t *testing.T) {
	t.Parallel()

	server := newTestServer(&fakeCollector{})
	handler := server.recoverMiddleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Contains(t, rec.Body.String(), "internal server error")
}

type hijackRecorder struct {
	*httptest.ResponseRecorder
	hijacked bool
}

func (h *hijackRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h.hijacked = true
	return nil, nil, nil
}

func TestResponseWriterPassThrough(t *testing.T) {
	t.Parallel()

	base := &hijackRecorder{ResponseRecorder: httptest.NewRecorder()}
	rw := &responseWriter{ResponseWriter: base, status: http.StatusOK}
	rw.WriteHeader(http.StatusTeapot)
	_, err := rw.Write([]byte("tea"))
	require.NoError(t, err)
	rw.Flush()
	_, _, err = rw.Hijack()
	require.NoError(t, err)

	require.Equal(t, http.StatusTeapot, rw.status)
	require.True(t, base.hijacked)
	require.True(t, base.Flushed)

	plain := &responseWriter{ResponseWriter: httptest.NewRecorder()}
	_, _, err = plain.Hijack()
	require.Error(t, err)
}
