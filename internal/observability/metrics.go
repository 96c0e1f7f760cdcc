package observability

import (
	"context"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/yungbote/truequecito-backend/internal/platform/logger"
)

type MetricsConfig struct {
	Enabled        bool
	Addr           string
	ScrapeInterval time.Duration
	// Requests at or under this latency count as good for the latency SLI.
	LatencyThreshold time.Duration
}

type Metrics struct {
	apiRequests *CounterVec
	apiLatency  *HistogramVec
	apiInflight *Gauge
	apiReqTotal *Counter
	apiReqError *Counter
	apiReqGood  *Counter

	aggregateOps       *HistogramVec
	aggregateConflicts *CounterVec
	aggregateRetries   *CounterVec

	exchangeTransitions *CounterVec
	receiptUploads      *CounterVec
	notifications       *CounterVec
	completionHooks     *CounterVec

	pgStats   *GaugeVec
	redisUp   *Gauge
	redisPing *Gauge

	latencyThreshold float64
	scrapeInterval   time.Duration
}

var (
	initOnce sync.Once
	instance *Metrics
)

func Current() *Metrics {
	return instance
}

// Init builds the process-wide metrics registry. It returns nil when metrics
// are disabled; every method on a nil *Metrics is a no-op.
func Init(log *logger.Logger, cfg MetricsConfig) *Metrics {
	if !cfg.Enabled {
		return nil
	}
	initOnce.Do(func() {
		instance = newMetrics(cfg)
		if log != nil {
			log.Info("Observability metrics enabled", "addr", cfg.Addr)
		}
	})
	return instance
}

func newMetrics(cfg MetricsConfig) *Metrics {
	latency := cfg.LatencyThreshold
	if latency <= 0 {
		latency = 500 * time.Millisecond
	}
	interval := cfg.ScrapeInterval
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return &Metrics{
		apiRequests: NewCounterVec("tq_api_requests_total", "Total API requests by method/route/status.", []string{"method", "route", "status"}),
		apiLatency: NewHistogramVec(
			"tq_api_request_duration_seconds",
			"API request latency in seconds by method/route/status.",
			[]string{"method", "route", "status"},
			[]float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		),
		apiInflight: NewGauge("tq_api_inflight_requests", "In-flight API requests."),
		apiReqTotal: NewCounter("tq_api_requests_total_all", "Total API requests (all)."),
		apiReqError: NewCounter("tq_api_requests_error_total", "Total API requests with 5xx status."),
		apiReqGood:  NewCounter("tq_api_requests_good_latency_total", "Total API requests under the latency threshold."),
		aggregateOps: NewHistogramVec(
			"tq_aggregate_operation_duration_seconds",
			"Aggregate write duration in seconds by operation/status.",
			[]string{"operation", "status"},
			[]float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2},
		),
		aggregateConflicts:  NewCounterVec("tq_aggregate_conflicts_total", "Aggregate writes rejected as conflicts.", []string{"operation"}),
		aggregateRetries:    NewCounterVec("tq_aggregate_retryable_total", "Aggregate writes failed with a retryable error.", []string{"operation"}),
		exchangeTransitions: NewCounterVec("tq_exchange_transitions_total", "Exchange status transitions by target status.", []string{"status"}),
		receiptUploads:      NewCounterVec("tq_receipt_uploads_total", "Receipt uploads by role/result.", []string{"role", "result"}),
		notifications:       NewCounterVec("tq_notifications_created_total", "Notifications created by kind.", []string{"kind"}),
		completionHooks:     NewCounterVec("tq_completion_hook_total", "Completion hook runs by result.", []string{"result"}),
		pgStats:             NewGaugeVec("tq_postgres_stats", "Postgres connection stats.", []string{"metric"}),
		redisUp:             NewGauge("tq_redis_up", "Redis connectivity (1=up, 0=down)."),
		redisPing:           NewGauge("tq_redis_ping_seconds", "Redis ping latency in seconds."),
		latencyThreshold:    latency.Seconds(),
		scrapeInterval:      interval,
	}
}

func (m *Metrics) StartServer(ctx context.Context, log *logger.Logger, addr string) {
	if m == nil {
		return
	}
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           http.HandlerFunc(m.WriteHTTP),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = srv.Shutdown(shutdownCtx)
		cancel()
	}()
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			if log != nil {
				log.Error("metrics server failed", "error", err, "addr", addr)
			}
		}
	}()
}

func (m *Metrics) WriteHTTP(w http.ResponseWriter, r *http.Request) {
	if m == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	_ = m.WritePrometheus(w)
}

type promWriter interface {
	WritePrometheus(w io.Writer) error
}

func (m *Metrics) WritePrometheus(w io.Writer) error {
	if m == nil {
		return nil
	}
	for _, c := range []promWriter{
		m.apiRequests, m.apiLatency, m.apiInflight, m.apiReqTotal, m.apiReqError, m.apiReqGood,
		m.aggregateOps, m.aggregateConflicts, m.aggregateRetries,
		m.exchangeTransitions, m.receiptUploads, m.notifications, m.completionHooks,
		m.pgStats, m.redisUp, m.redisPing,
	} {
		if err := c.WritePrometheus(w); err != nil {
			return err
		}
	}
	return nil
}

func (m *Metrics) ObserveAPI(method, route, status string, dur time.Duration) {
	if m == nil {
		return
	}
	if method == "" {
		method = "UNKNOWN"
	}
	if route == "" {
		route = "unknown"
	}
	if status == "" {
		status = "0"
	}
	m.apiRequests.Inc(method, route, status)
	m.apiLatency.Observe(dur.Seconds(), method, route, status)
	m.apiReqTotal.Inc()
	if isServerErrorStatus(status) {
		m.apiReqError.Inc()
	}
	if m.latencyThreshold > 0 && dur.Seconds() <= m.latencyThreshold {
		m.apiReqGood.Inc()
	}
}

func (m *Metrics) ApiInflightInc() {
	if m == nil {
		return
	}
	m.apiInflight.Inc()
}

func (m *Metrics) ApiInflightDec() {
	if m == nil {
		return
	}
	m.apiInflight.Dec()
}

func (m *Metrics) ObserveAggregateOperation(op, status string, dur time.Duration) {
	if m == nil {
		return
	}
	if op == "" {
		op = "unknown"
	}
	if status == "" {
		status = "unknown"
	}
	m.aggregateOps.Observe(dur.Seconds(), op, status)
	if status == "success" {
		if to := transitionTarget(op); to != "" {
			m.exchangeTransitions.Inc(to)
		}
	}
}

func (m *Metrics) IncAggregateConflict(op string) {
	if m == nil {
		return
	}
	m.aggregateConflicts.Inc(op)
}

func (m *Metrics) IncAggregateRetry(op string) {
	if m == nil {
		return
	}
	m.aggregateRetries.Inc(op)
}

// IncExchangeTransition counts transitions the operation name cannot imply,
// such as a caller-chosen status or a receipt that completed the exchange.
func (m *Metrics) IncExchangeTransition(status string) {
	if m == nil || status == "" {
		return
	}
	m.exchangeTransitions.Inc(status)
}

func (m *Metrics) IncReceiptUpload(role, result string) {
	if m == nil {
		return
	}
	m.receiptUploads.Inc(role, result)
}

func (m *Metrics) AddNotifications(kind string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.notifications.Add(float64(n), kind)
}

func (m *Metrics) IncCompletionHook(result string) {
	if m == nil {
		return
	}
	m.completionHooks.Inc(result)
}

func transitionTarget(op string) string {
	switch op {
	case "Exchange.Propose":
		return "pending"
	case "Exchange.Accept":
		return "accepted"
	case "Exchange.Reject":
		return "rejected"
	default:
		return ""
	}
}

func (m *Metrics) StartPostgresCollector(ctx context.Context, log *logger.Logger, db *gorm.DB) {
	if m == nil || db == nil {
		return
	}
	go func() {
		ticker := time.NewTicker(m.scrapeInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				sqlDB, err := db.DB()
				if err != nil {
					if log != nil {
						log.Warn("metrics: postgres stats unavailable", "error", err)
					}
					continue
				}
				stats := sqlDB.Stats()
				m.pgStats.Set(float64(stats.OpenConnections), "open_connections")
				m.pgStats.Set(float64(stats.InUse), "in_use")
				m.pgStats.Set(float64(stats.Idle), "idle")
				m.pgStats.Set(float64(stats.WaitCount), "wait_count")
				m.pgStats.Set(stats.WaitDuration.Seconds(), "wait_duration_seconds")
				m.pgStats.Set(float64(stats.MaxOpenConnections), "max_open_connections")
			}
		}
	}()
}

func (m *Metrics) StartRedisCollector(ctx context.Context, log *logger.Logger, addr string) {
	if m == nil {
		return
	}
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	go func() {
		ticker := time.NewTicker(m.scrapeInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				_ = rdb.Close()
				return
			case <-ticker.C:
				start := time.Now()
				if err := rdb.Ping(ctx).Err(); err != nil {
					m.redisUp.Set(0)
					if log != nil {
						log.Warn("metrics: redis ping failed", "error", err)
					}
					continue
				}
				m.redisUp.Set(1)
				m.redisPing.Set(time.Since(start).Seconds())
			}
		}
	}()
}
