// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Authcore Contributors

// Package httpapi exposes the authentication service over JSON HTTP.
package httpapi

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/samber/oops"

	"github.com/authcore/authcore/internal/auth"
	"github.com/authcore/authcore/internal/observability"
	"github.com/authcore/authcore/internal/token"
)

// TokenValidator checks bearer tokens presented by clients.
type TokenValidator interface {
	Validate(tokenString string) (*token.Claims, error)
}

// Config assembles a Server.
type Config struct {
	// Addr is the listen address in "host:port" form.
	Addr string

	Service   *auth.Service
	Validator TokenValidator

	// Metrics is optional; when nil no counters are recorded.
	Metrics *observability.Metrics

	// Logger is optional and defaults to slog.Default().
	Logger *slog.Logger
}

// Server serves the authentication API.
type Server struct {
	addr       string
	svc        *auth.Service
	validator  TokenValidator
	metrics    *observability.Metrics
	logger     *slog.Logger
	listener   net.Listener
	httpServer *http.Server
	running    atomic.Bool
}

// NewServer creates an API server. Service and Validator are required.
func NewServer(cfg Config) (*Server, error) {
	if cfg.Service == nil {
		return nil, oops.Code("HTTPAPI_CONFIG").Errorf("service is required")
	}
	if cfg.Validator == nil {
		return nil, oops.Code("HTTPAPI_CONFIG").Errorf("validator is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		addr:      cfg.Addr,
		svc:       cfg.Service,
		validator: cfg.Validator,
		metrics:   cfg.Metrics,
		logger:    logger,
	}, nil
}

// Handler returns the routed API handler. Exposed for tests and for
// embedding under an outer mux.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/v1/auth/register", s.handleRegister)
	mux.HandleFunc("POST /api/v1/auth/login", s.handleLogin)
	mux.HandleFunc("POST /api/v1/auth/logout", s.handleLogout)
	mux.HandleFunc("POST /api/v1/auth/refresh", s.handleRefresh)
	mux.HandleFunc("POST /api/v1/auth/forgot-password", s.handleForgotPassword)
	mux.HandleFunc("POST /api/v1/auth/reset-password", s.handleResetPassword)
	mux.HandleFunc("GET /api/v1/users/me", s.requireAccessToken(s.handleCurrentUser))

	return mux
}

// Start begins serving the API. It returns an error channel that receives
// any error from the HTTP server after it starts; the channel is closed on
// graceful stop.
func (s *Server) Start() (<-chan error, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, oops.Errorf("api server already running")
	}

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		s.running.Store(false)
		return nil, oops.With("addr", s.addr).Wrap(err)
	}
	s.listener = listener

	httpSrv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.httpServer = httpSrv

	errCh := make(chan error, 1)

	go func() {
		defer close(errCh)
		if serveErr := httpSrv.Serve(listener); serveErr != nil && serveErr != http.ErrServerClosed {
			s.logger.Error("api server error", "error", serveErr)
			errCh <- serveErr
		}
	}()

	s.logger.Info("api server started", "addr", listener.Addr().String())
	return errCh, nil
}

// Stop gracefully shuts down the API server.
func (s *Server) Stop(ctx context.Context) error {
	if !s.running.CompareAndSwap(true, false) {
		return nil
	}

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.running.Store(true)
			return oops.With("operation", "shutdown_api_server").Wrap(err)
		}
	}

	s.logger.Info("api server stopped")
	return nil
}

// Addr returns the address the server is listening on, or empty if not
// running.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return ""
}

func (s *Server) recordLogin(outcome string) {
	if s.metrics != nil {
		s.metrics.LoginsTotal.WithLabelValues(outcome).Inc()
	}
}

func (s *Server) recordRegistration(outcome string) {
	if s.metrics != nil {
		s.metrics.RegistrationsTotal.WithLabelValues(outcome).Inc()
	}
}

// recordTokensIssued counts one access/refresh pair.
func (s *Server) recordTokensIssued() {
	if s.metrics != nil {
		s.metrics.TokensIssuedTotal.WithLabelValues(token.KindAccess.String()).Inc()
		s.metrics.TokensIssuedTotal.WithLabelValues(token.KindRefresh.String()).Inc()
	}
}

func (s *Server) recordRevocation(cause string) {
	if s.metrics != nil {
		s.metrics.TokensRevokedTotal.WithLabelValues(cause).Inc()
	}
}
