// Package testutil holds aggregate test doubles. It must not import the
// aggregates package so that package's own tests can use it.
package testutil

import (
	"sync"
	"time"
)

type EventKind string

const (
	EventOperation EventKind = "operation"
	EventConflict  EventKind = "conflict"
	EventRetry     EventKind = "retry"
)

type Event struct {
	Kind     EventKind
	Op       string
	Status   string
	Duration time.Duration
}

// Hooks records aggregate hook calls in arrival order. Safe for concurrent
// writers.
type Hooks struct {
	mu     sync.Mutex
	events []Event
}

func (h *Hooks) ObserveOperation(name, status string, dur time.Duration) {
	h.add(Event{Kind: EventOperation, Op: name, Status: status, Duration: dur})
}

func (h *Hooks) IncConflict(name string) { h.add(Event{Kind: EventConflict, Op: name}) }
func (h *Hooks) IncRetry(name string)    { h.add(Event{Kind: EventRetry, Op: name}) }

func (h *Hooks) add(e Event) {
	h.mu.Lock()
	h.events = append(h.events, e)
	h.mu.Unlock()
}

func (h *Hooks) Events() []Event {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Event(nil), h.events...)
}

// Count returns how many events of kind were recorded for op. An empty op
// matches every operation.
func (h *Hooks) Count(kind EventKind, op string) int {
	n := 0
	for _, e := range h.Events() {
		if e.Kind == kind && (op == "" || e.Op == op) {
			n++
		}
	}
	return n
}

// Statuses lists the reported status of each completed op, oldest first.
func (h *Hooks) Statuses(op string) []string {
	var out []string
	for _, e := range h.Events() {
		if e.Kind == EventOperation && e.Op == op {
			out = append(out, e.Status)
		}
	}
	return out
}
