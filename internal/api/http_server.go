package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"tms/internal/config"
	"tms/internal/domain"

	"github.com/rs/zerolog"
)

// Exporter renders xlsx workbooks of the ledger.
type Exporter interface {
	WriteLedger(ctx context.Context, w io.Writer) error
	WritePersonReport(ctx context.Context, personID string, w io.Writer) error
}

// Deps are the collaborators served over HTTP.
type Deps struct {
	Ledger   domain.LedgerService
	Auth     domain.AuthService
	Exporter Exporter
	// Ready reports whether the snapshot store is reachable. Nil means always ready.
	Ready func(ctx context.Context) error
}

// HTTPServer exposes the ledger as a JSON API.
type HTTPServer struct {
	cfg    config.APIConfig
	deps   Deps
	server *http.Server
	auth   *HTTPAuth
	logger *zerolog.Logger
}

func NewHTTPServer(cfg config.APIConfig, deps Deps, logger *zerolog.Logger) *HTTPServer {
	srv := &HTTPServer{cfg: cfg, deps: deps, logger: logger}
	srv.auth = NewHTTPAuth(cfg)

	mux := http.NewServeMux()
	srv.routes(mux)

	handler := loggingMiddleware(logger, srv.auth.Wrap(mux))

	srv.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
	}
	return srv
}

func (s *HTTPServer) routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("POST /api/v1/auth/login", s.handleLogin)
	mux.HandleFunc("POST /api/v1/auth/logout", s.handleLogout)
	mux.HandleFunc("GET /api/v1/auth/me", s.handleMe)

	mux.HandleFunc("GET /api/v1/equipment", s.handleListEquipment)
	mux.HandleFunc("POST /api/v1/equipment", s.handleRegisterEquipment)
	mux.HandleFunc("GET /api/v1/equipment/{id}", s.handleGetEquipment)
	mux.HandleFunc("PUT /api/v1/equipment/{id}", s.handleUpdateEquipment)
	mux.HandleFunc("PUT /api/v1/equipment/{id}/status", s.handleSetEquipmentStatus)

	mux.HandleFunc("GET /api/v1/people", s.handleListPeople)
	mux.HandleFunc("POST /api/v1/people", s.handleRegisterPerson)
	mux.HandleFunc("GET /api/v1/people/{id}", s.handleGetPerson)
	mux.HandleFunc("DELETE /api/v1/people/{id}", s.handleDeletePerson)
	mux.HandleFunc("GET /api/v1/people/{id}/orders", s.handlePersonOrders)
	mux.HandleFunc("GET /api/v1/people/{id}/report.xlsx", s.handlePersonReport)

	mux.HandleFunc("GET /api/v1/orders", s.handleListOrders)
	mux.HandleFunc("POST /api/v1/orders", s.handleCreateOrder)
	mux.HandleFunc("GET /api/v1/orders/{id}", s.handleGetOrder)
	mux.HandleFunc("POST /api/v1/orders/{id}/complete", s.handleCompleteOrder)

	mux.HandleFunc("GET /api/v1/stats", s.handleStats)
	mux.HandleFunc("GET /api/v1/export.xlsx", s.handleExport)
}

// Handler returns the fully wrapped handler.
func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

func (s *HTTPServer) Start() error {
	if s.server == nil {
		return errors.New("http server is not initialized")
	}
	s.logger.Info().Str("addr", s.server.Addr).Msg("HTTP API listening")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}
