// Package api provides the HTTP API server for the procurement engine.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"reflect"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"procurement-engine/decision/catalog"
	"procurement-engine/decision/constraints"
	"procurement-engine/decision/llm"
	"procurement-engine/decision/negotiation"
	"procurement-engine/decision/procurement"
	"procurement-engine/internal/metrics"
	"procurement-engine/pkg/platform"
)

// Version is reported by / and /version.
var Version = "1.0.0"

// Server is the HTTP API server
type Server struct {
	httpServer  *http.Server
	catalog     *catalog.Catalog
	engine      *procurement.Engine
	constraints *constraints.Endpoint
	optimizer   *negotiation.CostOptimizer
	vendors     func(provider, apiKey string) (llm.Generator, error)
	ready       func(ctx context.Context) error
	validate    *validator.Validate
	config      *Config
	logger      zerolog.Logger
	startedAt   time.Time
}

// Config holds server configuration
type Config struct {
	Port           int
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	RequestTimeout time.Duration
	MaxRequestSize int64
	CORSOrigins    []string
	APIKey         string
	// MetricsEnabled exposes /metrics.
	MetricsEnabled bool
}

// DefaultConfig returns default server configuration
func DefaultConfig() *Config {
	return &Config{
		Port:           8000,
		ReadTimeout:    30 * time.Second,
		WriteTimeout:   60 * time.Second,
		RequestTimeout: 60 * time.Second,
		MaxRequestSize: 1 << 20, // 1MB
		CORSOrigins:    []string{"*"},
		MetricsEnabled: true,
	}
}

// ConfigFromEnv applies PORT, API_KEY, REQUEST_TIMEOUT, MAX_REQUEST_SIZE and
// METRICS_ENABLED on top of the defaults.
func ConfigFromEnv() *Config {
	cfg := DefaultConfig()
	cfg.Port = platform.GetEnvInt("PORT", cfg.Port)
	cfg.APIKey = platform.GetEnv("API_KEY", "")
	cfg.RequestTimeout = platform.GetEnvDuration("REQUEST_TIMEOUT", cfg.RequestTimeout)
	cfg.MaxRequestSize = int64(platform.GetEnvInt("MAX_REQUEST_SIZE", int(cfg.MaxRequestSize)))
	cfg.MetricsEnabled = platform.GetEnvBool("METRICS_ENABLED", cfg.MetricsEnabled)
	return cfg
}

// NewServer creates a new API server over a loaded catalog and engine
func NewServer(cat *catalog.Catalog, engine *procurement.Engine, config *Config) *Server {
	if config == nil {
		config = DefaultConfig()
	}

	return &Server{
		catalog:     cat,
		engine:      engine,
		constraints: constraints.NewEndpoint(),
		optimizer:   negotiation.NewCostOptimizer(),
		vendors:     llm.Select,
		ready:       func(context.Context) error { return nil },
		validate:    newValidator(),
		config:      config,
		logger:      log.With().Str("component", "api").Logger(),
		startedAt:   time.Now(),
	}
}

// newValidator reports fields by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// WithReadiness sets the check behind /health/ready, e.g. a database ping.
func (s *Server) WithReadiness(check func(ctx context.Context) error) *Server {
	s.ready = check
	return s
}

// WithConstraints shares a vendor-constraint endpoint with other callers.
func (s *Server) WithConstraints(e *constraints.Endpoint) *Server {
	s.constraints = e
	return s
}

// WithLogger sets the request logger.
func (s *Server) WithLogger(l zerolog.Logger) *Server {
	s.logger = l
	return s
}

// Router builds the HTTP handler with all routes and middleware.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(s.config.RequestTimeout))
	r.Use(s.cors)

	r.Get("/", s.handleRoot)
	r.Get("/health", s.handleHealth)
	r.Get("/health/live", s.handleLiveness)
	r.Get("/health/ready", s.handleReadiness)
	r.Get("/version", s.handleVersion)
	if s.config.MetricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(platform.APIKeyMiddleware(s.config.APIKey))
		r.Use(middleware.AllowContentType("application/json"))

		r.Get("/health", s.handleHealth)

		r.Route("/catalog", func(r chi.Router) {
			r.Get("/components", s.handleComponents)
			r.Get("/vendors", s.handleVendors)
			r.Get("/items", s.handleItems)
			r.Get("/search", s.handleSearch)
		})

		r.Post("/procurement", s.handleProcurement)
		r.Post("/negotiate", s.handleNegotiate)
		r.Post("/negotiate/vendor", s.handleVendorNegotiation)
		r.Post("/optimize", s.handleOptimize)

		r.Route("/vendor-constraints", func(r chi.Router) {
			r.Post("/", s.handlePostConstraints)
			r.Post("/bulk", s.handleBulkConstraints)
			r.Get("/{requestID}", s.handleGetConstraints)
		})
	})

	return r
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.Router(),
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	s.logger.Info().
		Int("port", s.config.Port).
		Int("catalog_items", s.catalog.Len()).
		Int("vendors", len(s.catalog.ListVendors())).
		Msg("Starting procurement API server")
	return s.httpServer.ListenAndServe()
}

// StartWithGracefulShutdown starts server with graceful shutdown handling
func (s *Server) StartWithGracefulShutdown(ctx context.Context) error {
	errChan := make(chan error, 1)
	go func() {
		if err := s.Start(); !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
	case <-quit:
	}

	s.logger.Info().Msg("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return s.httpServer.Shutdown(shutdownCtx)
}

// =============================================================================
// MIDDLEWARE
// =============================================================================

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		metrics.RecordHTTPRequest(route, r.Method, status)

		s.logger.Info().
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", status).
			Int("bytes", ww.BytesWritten()).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}

func (s *Server) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin == "" {
			origin = "*"
		}

		allowed := false
		for _, o := range s.config.CORSOrigins {
			if o == "*" || o == origin {
				allowed = true
				break
			}
		}

		if allowed {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-API-Key")
			w.Header().Set("Access-Control-Max-Age", "86400")
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}
