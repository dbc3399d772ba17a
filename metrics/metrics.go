package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

var (
	PunishmentsApplied = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "punish_applied_total",
			Help: "Total number of punishments applied",
		},
		[]string{"kind"},
	)

	PunishmentsReversed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "punish_reversed_total",
			Help: "Total number of punishments reversed",
		},
		[]string{"kind", "trigger"},
	)

	PlatformFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "punish_platform_failures_total",
			Help: "Discord API calls that failed while applying or reversing a punishment",
		},
		[]string{"kind", "operation"},
	)

	ReversalRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "punish_reversal_retries_total",
			Help: "Automatic reversals scheduled for another attempt",
		},
		[]string{"kind"},
	)

	ReversalsDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "punish_reversals_dropped_total",
			Help: "Automatic reversals abandoned after exhausting retries",
		},
		[]string{"kind"},
	)

	ExpirationQueueSize = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "punish_expiration_queue_size",
			Help: "Active time-bound punishments waiting for expiry",
		},
		[]string{"kind"},
	)

	UndoQueueSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "punish_undo_queue_size",
			Help: "Expired punishments waiting to be reversed",
		},
	)
)

// Serve exposes /metrics on addr until ctx is cancelled.
func Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info().Str("addr", addr).Msg("metrics server listening")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
