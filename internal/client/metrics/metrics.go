// Package metrics exposes client-side Prometheus metrics: operation outcomes
// reported to the notification surface and latency of API requests.
package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/iudanet/gophnotes/internal/client/api"
	"github.com/iudanet/gophnotes/internal/client/notify"
)

const namespace = "gophnotes"

// Collector implements notify.Notifier and api.RequestObserver
type Collector struct {
	registry  *prometheus.Registry
	outcomes  *prometheus.CounterVec
	requests  *prometheus.HistogramVec
	transport prometheus.Counter
}

var (
	_ notify.Notifier     = (*Collector)(nil)
	_ api.RequestObserver = (*Collector)(nil)
)

// New создает коллектор и регистрирует метрики в собственном реестре
func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		// Количество outcome по операциям и результату
		outcomes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "outcomes_total",
				Help:      "Number of operation outcomes shown to the user",
			},
			[]string{"subject", "kind"},
		),
		// Время ответа API
		requests: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "api_request_duration_seconds",
				Help:      "Duration of API requests in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
			},
			[]string{"method", "route", "status"},
		),
		transport: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "api_transport_errors_total",
				Help:      "Number of API requests that got no response",
			},
		),
	}

	c.registry.MustRegister(c.outcomes, c.requests, c.transport)
	return c
}

// Registry возвращает реестр с метриками клиента
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Notify считает outcome
func (c *Collector) Notify(outcome notify.Outcome) {
	c.outcomes.WithLabelValues(string(outcome.Subject), outcome.Kind.String()).Inc()
}

// ObserveRequest записывает длительность запроса к API
func (c *Collector) ObserveRequest(method, path string, status int, duration time.Duration) {
	if status == 0 {
		c.transport.Inc()
	}
	c.requests.WithLabelValues(method, Route(path), strconv.Itoa(status)).Observe(duration.Seconds())
}

// Route сводит путь запроса к шаблону, чтобы id заметок не раздували кардинальность
func Route(path string) string {
	if rest, ok := strings.CutPrefix(path, "/notes/"); ok && rest != "" {
		return "/notes/:id"
	}
	return path
}

// Handler возвращает HTTP обработчик /metrics
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Mux возвращает маршрутизатор сервера метрик
func (c *Collector) Mux(logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())
	return withRecovery(logger, withLogging(logger, mux))
}

// Serve обслуживает /metrics на addr до отмены ctx
func (c *Collector) Serve(ctx context.Context, addr string, logger *slog.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           c.Mux(logger),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("metrics server running", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
