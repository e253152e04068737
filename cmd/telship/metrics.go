package main

import (
	"context"
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bft-labs/telship/pkg/telship"
)

// metricsHandler serves Prometheus metrics and a health check.
func metricsHandler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}

// startMetricsServer serves metricsHandler on addr until ctx is done.
func startMetricsServer(ctx context.Context, addr string, logger telship.Logger) {
	srv := &http.Server{Addr: addr, Handler: metricsHandler()}

	go func() {
		<-ctx.Done()
		_ = srv.Shutdown(context.Background())
	}()

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server error", telship.LogField{Key: "error", Value: err})
		}
	}()
}
