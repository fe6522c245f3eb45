// Package gateway mounts the JSON-RPC handler behind an HTTP router with
// health, metrics and per-client rate limiting.
package gateway

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"alphapoints/gateway/middleware"
)

// Config assembles the gateway surface.
type Config struct {
	RPCHandler http.Handler
	RateLimit  middleware.RateLimit
}

// New builds the router: /healthz and /metrics are unthrottled, /rpc sits
// behind the rate limiter.
func New(cfg Config) http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	if cfg.RPCHandler != nil {
		limiter := middleware.NewRateLimiter(cfg.RateLimit)
		r.With(limiter.Middleware).Handle("/rpc", cfg.RPCHandler)
	}

	return r
}

// Serve runs the gateway on addr until the context is cancelled.
func Serve(ctx context.Context, addr string, handler http.Handler, log *slog.Logger) error {
	if log == nil {
		log = slog.Default()
	}
	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Info("gateway listening", "addr", addr)
		errCh <- server.ListenAndServe()
	}()
	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
