package aggregates

import (
	"time"

	"github.com/yungbote/truequecito-backend/internal/observability"
	"github.com/yungbote/truequecito-backend/internal/platform/logger"
)

// Hooks receives one event per aggregate write plus conflict and retry counts.
type Hooks interface {
	ObserveOperation(name, status string, dur time.Duration)
	IncConflict(name string)
	IncRetry(name string)
}

type noopHooks struct{}

func (noopHooks) ObserveOperation(string, string, time.Duration) {}
func (noopHooks) IncConflict(string)                             {}
func (noopHooks) IncRetry(string)                                {}

type metricsHooks struct {
	m *observability.Metrics
}

// NewObservabilityHooks reports writes to the metrics registry. A nil registry
// yields no-op hooks.
func NewObservabilityHooks(metrics *observability.Metrics) Hooks {
	if metrics == nil {
		return noopHooks{}
	}
	return metricsHooks{m: metrics}
}

func (h metricsHooks) ObserveOperation(name, status string, dur time.Duration) {
	h.m.ObserveAggregateOperation(name, status, dur)
}

func (h metricsHooks) IncConflict(name string) { h.m.IncAggregateConflict(name) }
func (h metricsHooks) IncRetry(name string)    { h.m.IncAggregateRetry(name) }

type logHooks struct {
	log *logger.Logger
}

// NewLogHooks logs lost races and transient failures. Successful writes are
// not logged.
func NewLogHooks(log *logger.Logger) Hooks {
	if log == nil {
		return noopHooks{}
	}
	return logHooks{log: log.With("component", "ExchangeAggregate")}
}

func (h logHooks) ObserveOperation(name, status string, dur time.Duration) {
	if dur > time.Second {
		h.log.Warn("slow exchange write", "op", name, "status", status, "duration", dur)
	}
}

func (h logHooks) IncConflict(name string) {
	h.log.Info("exchange write conflict", "op", name)
}

func (h logHooks) IncRetry(name string) {
	h.log.Warn("exchange write failed transiently", "op", name)
}

type chainHooks []Hooks

// ChainHooks fans every event out to each of hooks in order.
func ChainHooks(hooks ...Hooks) Hooks {
	out := make(chainHooks, 0, len(hooks))
	for _, h := range hooks {
		if h != nil {
			out = append(out, h)
		}
	}
	return out
}

func (c chainHooks) ObserveOperation(name, status string, dur time.Duration) {
	for _, h := range c {
		h.ObserveOperation(name, status, dur)
	}
}

func (c chainHooks) IncConflict(name string) {
	for _, h := range c {
		h.IncConflict(name)
	}
}

func (c chainHooks) IncRetry(name string) {
	for _, h := range c {
		h.IncRetry(name)
	}
}
