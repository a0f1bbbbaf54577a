package apmz

import (
	"sync"
	"time"
)

// Span represents a single finished unit of work in a trace.
// Spans are NOT thread-safe - mutate in-flight spans through SpanHandle.
//
//nolint:govet // Field alignment optimized for JSON serialization order
type Span struct {
	StartTime time.Time     `json:"start_time"`
	EndTime   time.Time     `json:"end_time,omitempty"`
	Duration  time.Duration `json:"duration"`
	TraceID   string        `json:"trace_id"`
	SpanID    string        `json:"span_id"`
	ParentID  string        `json:"parent_id,omitempty"`
	Name      string        `json:"name"`
	Tag       string        `json:"tag,omitempty"`
	Error     string        `json:"error,omitempty"`
}

// Errored reports whether the span carries an error payload.
func (s Span) Errored() bool {
	return s.Error != ""
}

// SpanHandle wraps an in-flight Span with thread-safe mutation and
// lifecycle management. Safe for concurrent use by multiple goroutines.
type SpanHandle struct {
	span       *Span
	aggregator *Aggregator
	ambient    *Ambient
	tracer     *Tracer
	mu         sync.Mutex
}

// SetTag sets the span's opaque payload. Last write wins.
// No-op once the span has ended.
func (h *SpanHandle) SetTag(tag string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	// Don't modify ended spans.
	if !h.span.EndTime.IsZero() {
		return
	}
	h.span.Tag = tag
}

// Tag returns the span's current payload.
func (h *SpanHandle) Tag() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.span.Tag
}

// SetError records an error payload on the span, optionally suffixed
// with extra detail. Last write wins. Never panics: a nil error with no
// detail still marks the span as errored. No-op once the span has ended,
// since instrumentation must never alter the caller's error path.
func (h *SpanHandle) SetError(err error, extra string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.span.EndTime.IsZero() {
		return
	}

	msg := ""
	if err != nil {
		msg = err.Error()
	}
	if extra != "" {
		if msg != "" {
			msg += ": "
		}
		msg += extra
	}
	if msg == "" {
		msg = "error"
	}
	h.span.Error = msg
}

// End completes the span: pops it from its ambient stack, stamps the
// end time, and reports it to the aggregator for its name.
// Safe to call multiple times - subsequent calls are no-ops.
func (h *SpanHandle) End() {
	h.mu.Lock()
	defer h.mu.Unlock()

	// Prevent double-ending.
	if !h.span.EndTime.IsZero() {
		return
	}

	if ok := h.ambient.pop(h.span); !ok {
		h.tracer.reportAnomaly(h.span)
	}

	h.span.EndTime = h.tracer.clock.Now()
	h.span.Duration = h.span.EndTime.Sub(h.span.StartTime)

	// Report a copy so the aggregator's view is immutable.
	h.aggregator.report(*h.span)
}

// TraceID returns the trace ID of this span.
func (h *SpanHandle) TraceID() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.span.TraceID
}

// SpanID returns the span ID of this span.
func (h *SpanHandle) SpanID() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.span.SpanID
}

// Span returns a copy of the underlying span at its current state.
func (h *SpanHandle) Span() Span {
	h.mu.Lock()
	defer h.mu.Unlock()
	return *h.span
}
