// Package app owns the HTTP server lifecycle.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/tanpawarit/research-agent/internal/config"
	"github.com/tanpawarit/research-agent/internal/httpapi"
	logx "github.com/tanpawarit/research-agent/pkg/logger"
)

type App struct {
	cfg    config.HTTPConfig
	server *http.Server
}

func New(cfg config.HTTPConfig, agent httpapi.Agent) (*App, error) {
	if cfg.Addr == "" {
		return nil, errors.New("new app: empty HTTP_ADDR")
	}
	if agent == nil {
		return nil, errors.New("new app: nil agent")
	}

	a := &App{cfg: cfg}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", a.handleHealthz)
	mux.Handle("/", httpapi.NewRouter(agent))

	handler := requestLoggingMiddleware(corsMiddleware(cfg.CORSOrigin)(mux))
	a.server = &http.Server{
		Addr:    cfg.Addr,
		Handler: handler,
	}
	return a, nil
}

// Handler exposes the full middleware chain.
func (a *App) Handler() http.Handler {
	return a.server.Handler
}

// Start blocks until the server stops; a graceful shutdown returns nil.
func (a *App) Start() error {
	logx.Info().Str("addr", a.cfg.Addr).Msg("Server running")

	err := a.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (a *App) Shutdown(ctx context.Context) error {
	err := a.server.Shutdown(ctx)
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		logx.Warn().Msg("Graceful shutdown timed out; forcing connection close")
		if closeErr := a.server.Close(); closeErr != nil {
			return fmt.Errorf("shutdown timeout and forced close failed: %w", errors.Join(err, closeErr))
		}
		return nil
	}
	return err
}

// Run serves until ctx is done, then shuts down within the configured timeout.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() { errCh <- a.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.cfg.ShutdownTimeout)
	defer cancel()
	logx.Info().Msg("Shutting down server")
	if err := a.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}

func (a *App) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, "OK")
}
