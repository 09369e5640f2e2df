// Package metrics exports engine activity in the Prometheus format.
package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/Mohsinsiddi/earnusdc/internal/earn"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "earnusdc"

// Result labels.
const (
	resultOK       = "ok"
	resultError    = "error"
	resultRejected = "rejected"
	resultBusy     = "busy"
)

var pendingStates = []earn.PendingOperation{
	earn.PendingNone, earn.Depositing, earn.Withdrawing, earn.Claiming, earn.GeneratingReferral,
}

// Recorder implements earn.Recorder on a private registry.
type Recorder struct {
	registry        *prometheus.Registry
	refreshes       *prometheus.CounterVec
	refreshDuration prometheus.Histogram
	operations      *prometheus.CounterVec
	pending         *prometheus.GaugeVec
}

// New creates a Recorder with Go runtime and process collectors attached.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refresh_total",
			Help:      "Balance refresh passes by result.",
		}, []string{"result"}),
		refreshDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "refresh_duration_seconds",
			Help:      "Time to read deposit, wallet balance and APR.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 8),
		}),
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Engine operations by kind and result.",
		}, []string{"operation", "result"}),
		pending: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pending_operation",
			Help:      "1 for the operation currently in flight, idle otherwise.",
		}, []string{"operation"}),
	}
	r.registry.MustRegister(
		r.refreshes, r.refreshDuration, r.operations, r.pending,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	r.SetPending(earn.PendingNone)
	return r
}

// ObserveRefresh records one refresh pass.
func (r *Recorder) ObserveRefresh(err error, took time.Duration) {
	r.refreshes.WithLabelValues(result(err)).Inc()
	r.refreshDuration.Observe(took.Seconds())
}

// ObserveOperation records the outcome of a user operation.
func (r *Recorder) ObserveOperation(op earn.OperationKind, err error) {
	r.operations.WithLabelValues(string(op), result(err)).Inc()
}

// SetPending marks p as the single active operation.
func (r *Recorder) SetPending(p earn.PendingOperation) {
	for _, s := range pendingStates {
		v := 0.0
		if s == p {
			v = 1
		}
		r.pending.WithLabelValues(s.String()).Set(v)
	}
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

// Handler serves the registry in the text exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

func result(err error) string {
	switch {
	case err == nil:
		return resultOK
	case errors.Is(err, earn.ErrUserRejected):
		return resultRejected
	case errors.Is(err, earn.ErrOperationInProgress):
		return resultBusy
	default:
		return resultError
	}
}

// Serve exposes h on addr under /metrics until ctx is done.
func Serve(ctx context.Context, addr string, h http.Handler, logger *slog.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", h)

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	logger.Info("metrics listening", "addr", ln.Addr().String())

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
