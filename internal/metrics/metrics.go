// Package metrics defines the Prometheus collectors of the codev API and
// serves them on a dedicated listener.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "codev"

// RequestsTotal counts unary RPCs.
// Labels:
//   - method: full gRPC method name
//   - code: gRPC status code name (e.g. "OK", "NotFound")
var RequestsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "grpc",
		Name:      "requests_total",
		Help:      "Total number of unary RPCs, by method and status code.",
	},
	[]string{"method", "code"},
)

// RequestDuration measures unary RPC latency.
var RequestDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "grpc",
		Name:      "request_duration_seconds",
		Help:      "Duration of unary RPCs.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"method"},
)

// EventsPublishedTotal counts domain events handed to the broker.
// Labels:
//   - type: event type (e.g. "solution.liked")
//   - result: "ok" or "error"
var EventsPublishedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "events_published_total",
		Help:      "Total number of domain events published, by type and result.",
	},
	[]string{"type", "result"},
)

// LockContentionTotal counts like toggles refused because another toggle
// of the same pair held the lock.
var LockContentionTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "like_lock_contention_total",
		Help:      "Total number of like toggles rejected by lock contention.",
	},
)

// Serve exposes /metrics on addr until ctx is done.
func Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
