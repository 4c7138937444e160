package api

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/revendis/catalog-collector/internal/catalog"
	"github.com/revendis/catalog-collector/internal/id/uuid"
	"github.com/revendis/catalog-collector/internal/metrics"
)

const maxRequestBytes = 1 << 20

// Collector runs one catalog collection.
type Collector interface {
	Collect(ctx context.Context, req catalog.Request) (catalog.Result, error)
}

// RequestIDGenerator mints IDs for requests that arrive without one.
type RequestIDGenerator interface {
	NewRequestID() string
}

// Config tunes the HTTP surface.
type Config struct {
	// RequestTimeout bounds a whole request, collection included.
	RequestTimeout time.Duration
	// APIKey, when set, is required in the X-API-Key header.
	APIKey string
	// RequestIDs defaults to UUIDv4 request IDs.
	RequestIDs RequestIDGenerator
}

// Server wires HTTP handlers to the collector.
type Server struct {
	router    chi.Router
	collector Collector
	logger    *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(collector Collector, cfg Config, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 10 * time.Minute
	}
	if cfg.RequestIDs == nil {
		cfg.RequestIDs = uuid.New()
	}
	s := &Server{
		collector: collector,
		logger:    logger.Named("api"),
	}
	r := chi.NewRouter()
	r.Use(requestIDMiddleware(cfg.RequestIDs))
	r.Use(s.loggingMiddleware)
	r.Use(s.recoverMiddleware)
	r.Use(metrics.Middleware)

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		if cfg.APIKey != "" {
			r.Use(apiKeyMiddleware(cfg.APIKey))
		}
		r.Use(timeoutMiddleware(cfg.RequestTimeout))
		r.Post("/catalog/collect", s.collect)
	})

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, _ *http.Request) {
	// The collector has no downstream dependencies to check.
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) collect(w http.ResponseWriter, r *http.Request) {
	var body collectRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	if err := dec.Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	req := body.toRequest()
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := s.collector.Collect(r.Context(), req)
	if err != nil {
		if errors.Is(err, catalog.ErrInvalidSiteURL) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.logger.Error("collection failed", zap.String("site", req.SiteURL), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "collection failed")
		return
	}
	if err := r.Context().Err(); err != nil {
		s.logger.Warn("collection cut short, returning partial result",
			zap.String("request_id", RequestID(r.Context())),
			zap.String("site", req.SiteURL),
			zap.Int("products", len(result.Products)),
			zap.Error(err),
		)
	}
	writeJSON(w, http.StatusOK, result)
}

// collectRequest is the wire shape of a collection request. timeoutMs is an
// operational knob and not part of catalog.Request's JSON form.
type collectRequest struct {
	SiteURL     string   `json:"siteUrl"`
	ProductURLs []string `json:"productUrls"`
	PathHints   []string `json:"pathHints"`
	MaxPages    int      `json:"maxPages"`
	TimeoutMs   int64    `json:"timeoutMs"`
}

func (c collectRequest) toRequest() catalog.Request {
	return catalog.Request{
		SiteURL:     c.SiteURL,
		ProductURLs: c.ProductURLs,
		PathHints:   c.PathHints,
		MaxPages:    c.MaxPages,
		Timeout:     time.Duration(c.TimeoutMs) * time.Millisecond,
	}
}

func requestIDMiddleware(ids RequestIDGenerator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqID := r.Header.Get("X-Request-ID")
			if reqID == "" {
				reqID = ids.NewRequestID()
			}
			ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
			w.Header().Set("X-Request-ID", reqID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequestID returns the request ID stored by the middleware, if any.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)
		s.logger.Info("request completed",
			zap.String("request_id", RequestID(r.Context())),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.status),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error("panic recovered",
					zap.String("request_id", RequestID(r.Context())),
					zap.Any("panic", rec),
				)
				writeError(w, http.StatusInternalServerError, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// timeoutMiddleware bounds the request context. The handler keeps running on
// the serving goroutine, so a collection cut short still writes its partial
// result.
func timeoutMiddleware(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), d)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func apiKeyMiddleware(expected string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("X-API-Key") != expected {
				writeError(w, http.StatusForbidden, "unauthorized")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	if err != nil {
		return n, fmt.Errorf("write response: %w", err)
	}
	return n, nil
}

func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if h, ok := rw.ResponseWriter.(http.Hijacker); ok {
		conn, buf, err := h.Hijack()
		if err != nil {
			return nil, nil, fmt.Errorf("hijack connection: %w", err)
		}
		return conn, buf, nil
	}
	return nil, nil, errors.New("hijacker not supported")
}

type requestIDKey struct{}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
