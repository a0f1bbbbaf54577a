package apmz

import (
	"sync"
	"sync/atomic"
	"time"
)

// Aggregator keeps rolling statistics and sample reservoirs for one
// operation name. Statistics are unbounded accumulators over every span
// ever reported; the two reservoirs are bounded windows of the most
// recent spans, clean and errored kept apart.
// Safe for concurrent use by multiple goroutines.
//
//nolint:govet // Field alignment optimized for readability over memory efficiency
type Aggregator struct {
	name         string
	maxSamples   *atomic.Int64
	maxErrors    *atomic.Int64
	samples      []Span
	errorSamples []Span
	total        uint64
	errors       uint64
	costSum      time.Duration
	maxCost      time.Duration
	minCost      time.Duration
	mu           sync.Mutex
}

// newAggregator creates an aggregator bound to the registry's reservoir
// capacities. Capacities are read at insert time, so later changes on
// the registry take effect for spans reported afterward.
func newAggregator(name string, maxSamples, maxErrors *atomic.Int64) *Aggregator {
	return &Aggregator{
		name:       name,
		maxSamples: maxSamples,
		maxErrors:  maxErrors,
	}
}

// AggregatorView is a point-in-time snapshot of one aggregator,
// shaped for serialization by an external exporter.
//
//nolint:govet // Field alignment optimized for JSON serialization order
type AggregatorView struct {
	Name         string        `json:"name"`
	Total        uint64        `json:"total"`
	Errors       uint64        `json:"errors"`
	Cost         time.Duration `json:"cost"`
	MaxCost      time.Duration `json:"max_cost"`
	MinCost      time.Duration `json:"min_cost"`
	Samples      []Span        `json:"samples,omitempty"`
	ErrorSamples []Span        `json:"error_samples,omitempty"`
}

// report folds one finished span into the statistics and the matching
// reservoir. The whole update is one atomic unit: readers never observe
// a count without its reservoir entry.
func (a *Aggregator) report(span Span) {
	cost := span.Duration

	a.mu.Lock()
	defer a.mu.Unlock()

	a.total++
	a.costSum += cost
	if a.total == 1 {
		a.maxCost = cost
		a.minCost = cost
	} else {
		if cost > a.maxCost {
			a.maxCost = cost
		}
		if cost < a.minCost {
			a.minCost = cost
		}
	}

	if span.Errored() {
		a.errors++
		a.errorSamples = insertBounded(a.errorSamples, span, a.maxErrors.Load())
	} else {
		a.samples = insertBounded(a.samples, span, a.maxSamples.Load())
	}
}

// insertBounded appends span and trims the window to capacity, evicting
// oldest first. A capacity of 0 (or less) disables the window entirely.
// Oversized windows left by a lowered capacity are trimmed here, on the
// next insert, not proactively.
func insertBounded(window []Span, span Span, capacity int64) []Span {
	if capacity <= 0 {
		return nil
	}
	window = append(window, span)
	if overflow := len(window) - int(capacity); overflow > 0 {
		trimmed := make([]Span, int(capacity))
		copy(trimmed, window[overflow:])
		return trimmed
	}
	return window
}

// Name returns the operation name this aggregator tracks.
func (a *Aggregator) Name() string {
	return a.name
}

// Total returns the count of all spans ever reported.
func (a *Aggregator) Total() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.total
}

// Errors returns the count of reported spans that carried an error.
func (a *Aggregator) Errors() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.errors
}

// Cost returns the summed duration of all reported spans.
func (a *Aggregator) Cost() time.Duration {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.costSum
}

// MaxCost returns the largest single span duration ever reported.
func (a *Aggregator) MaxCost() time.Duration {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.maxCost
}

// MinCost returns the smallest single span duration ever reported.
func (a *Aggregator) MinCost() time.Duration {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.minCost
}

// Samples returns a copy of the clean-span reservoir, oldest first.
func (a *Aggregator) Samples() []Span {
	a.mu.Lock()
	defer a.mu.Unlock()
	return copySpans(a.samples)
}

// ErrorSamples returns a copy of the errored-span reservoir, oldest first.
func (a *Aggregator) ErrorSamples() []Span {
	a.mu.Lock()
	defer a.mu.Unlock()
	return copySpans(a.errorSamples)
}

// Snapshot returns a consistent point-in-time view of the aggregator.
// Concurrent reports never produce a view with a count and a missing
// reservoir entry.
func (a *Aggregator) Snapshot() AggregatorView {
	a.mu.Lock()
	defer a.mu.Unlock()

	return AggregatorView{
		Name:         a.name,
		Total:        a.total,
		Errors:       a.errors,
		Cost:         a.costSum,
		MaxCost:      a.maxCost,
		MinCost:      a.minCost,
		Samples:      copySpans(a.samples),
		ErrorSamples: copySpans(a.errorSamples),
	}
}

// reset clears statistics and reservoirs.
func (a *Aggregator) reset() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.total = 0
	a.errors = 0
	a.costSum = 0
	a.maxCost = 0
	a.minCost = 0
	a.samples = nil
	a.errorSamples = nil
}

func copySpans(spans []Span) []Span {
	if len(spans) == 0 {
		return nil
	}
	out := make([]Span, len(spans))
	copy(out, spans)
	return out
}
