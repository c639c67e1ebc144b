// Package api serves Lighthouse's HTTP endpoints: Prometheus metrics and a
// health probe.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

const shutdownTimeout = 5 * time.Second

// API is the HTTP server exposing metrics and health endpoints.
type API struct {
	server *http.Server
}

// New creates an API listening on the given address.
func New(addr string) *API {
	mux := http.NewServeMux()
	mux.Handle("/v1/metrics", promhttp.Handler())
	mux.HandleFunc("/v1/health", handleHealth)

	return &API{
		server: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

// Start runs the HTTP server until the context is canceled, then shuts it
// down gracefully.
func (a *API) Start(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		logrus.WithField("addr", a.server.Addr).Info("Starting HTTP API")

		if err := a.server.ListenAndServe(); err != nil &&
			!errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("HTTP API failed: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := a.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shut down HTTP API: %w", err)
		}

		return nil
	}
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "OK")
}
