package httpadapter

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/dpe-enrichment-service/internal/domain"
	"github.com/couchcryptid/dpe-enrichment-service/internal/refdata"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Enricher enriches a single address.
type Enricher interface {
	Enrich(ctx context.Context, addr domain.Address, opts domain.EnrichOptions) (domain.CombinedResult, error)
}

// BatchRunner enriches every stored user.
type BatchRunner interface {
	Run(ctx context.Context, persist bool) (domain.BatchResult, error)
}

// Seeder loads the reference tables.
type Seeder interface {
	Seed(ctx context.Context) (refdata.Report, error)
}

// Handlers groups the application services the routes delegate to.
type Handlers struct {
	Enricher Enricher
	Batch    BatchRunner
	Seeder   Seeder
}

// Server exposes the enrichment API alongside health, readiness, and metrics endpoints.
type Server struct {
	httpServer *http.Server
	handlers   Handlers
	logger     *slog.Logger
}

// NewServer creates an HTTP server with the enrichment, /healthz, /readyz, and /metrics routes.
func NewServer(addr string, ready sharedobs.ReadinessChecker, h Handlers, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 5 * time.Minute, // batch runs enrich every user before responding
			IdleTimeout:  60 * time.Second,
		},
		handlers: h,
		logger:   logger,
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(ready))
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("POST /combined-data", s.handleCombinedData)
	mux.HandleFunc("GET /users-combined-data", s.handleBatch(false))
	mux.HandleFunc("POST /users-combined-data/persist", s.handleBatch(true))
	mux.HandleFunc("POST /energy-costs/seed", s.handleSeed)

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}
