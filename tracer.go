package apmz

import (
	"context"
	"runtime"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/zoobzio/clockz"
	"go.uber.org/zap"
)

// Tracer is the registry mapping operation names to aggregators and the
// entry point for starting spans.
// Safe for concurrent use by multiple goroutines.
//
//nolint:govet // Field order optimized for functionality over memory
type Tracer struct {
	aggregators map[string]*Aggregator
	traceIDPool *IDPool
	spanIDPool  *IDPool
	clock       clockz.Clock
	logger      *zap.Logger
	aggLock     sync.RWMutex
	idPoolOnce  sync.Once
	maxSamples  atomic.Int64
	maxErrors   atomic.Int64
}

// New creates a tracer with default capacities and the real clock.
func New() *Tracer {
	return NewWithConfig(DefaultConfig())
}

// NewWithConfig creates a tracer with the given reservoir capacities.
func NewWithConfig(cfg Config) *Tracer {
	cfg = cfg.normalize()
	t := &Tracer{
		aggregators: make(map[string]*Aggregator),
		clock:       clockz.RealClock,
		logger:      zap.NewNop(),
	}
	t.maxSamples.Store(int64(cfg.MaxSamples))
	t.maxErrors.Store(int64(cfg.MaxErrors))
	return t
}

// WithClock returns the tracer using the specified clock.
// Enables clock injection for deterministic testing.
func (t *Tracer) WithClock(clock clockz.Clock) *Tracer {
	t.clock = clock
	return t
}

// WithLogger returns the tracer using the specified logger for anomaly
// reporting. The default is a no-op logger: instrumentation stays
// silent unless asked otherwise.
func (t *Tracer) WithLogger(logger *zap.Logger) *Tracer {
	if logger == nil {
		logger = zap.NewNop()
	}
	t.logger = logger
	return t
}

// ensureIDPools initializes ID pools if not already created.
func (t *Tracer) ensureIDPools() {
	t.idPoolOnce.Do(func() {
		// Pool size based on number of CPUs for optimal contention balance.
		poolSize := runtime.NumCPU() * 100
		t.traceIDPool = NewIDPool(poolSize, traceIDFactory(t.clock))
		t.spanIDPool = NewIDPool(poolSize, spanIDFactory(t.clock))
	})
}

// NewTraceID returns a fresh trace identifier.
func (t *Tracer) NewTraceID() string {
	t.ensureIDPools()
	return t.traceIDPool.Get()
}

// NewSpanID returns a fresh span identifier.
func (t *Tracer) NewSpanID() string {
	t.ensureIDPools()
	return t.spanIDPool.Get()
}

// SetMaxSamples changes the clean-sample reservoir capacity. Takes
// effect for spans reported afterward; oversized reservoirs are trimmed
// on their next insert. Negative values clamp to 0 (disabled).
func (t *Tracer) SetMaxSamples(n int) {
	if n < 0 {
		n = 0
	}
	t.maxSamples.Store(int64(n))
}

// SetMaxErrors changes the error-sample reservoir capacity, with the
// same semantics as SetMaxSamples.
func (t *Tracer) SetMaxErrors(n int) {
	if n < 0 {
		n = 0
	}
	t.maxErrors.Store(int64(n))
}

// MaxSamples returns the current clean-sample reservoir capacity.
func (t *Tracer) MaxSamples() int {
	return int(t.maxSamples.Load())
}

// MaxErrors returns the current error-sample reservoir capacity.
func (t *Tracer) MaxErrors() int {
	return int(t.maxErrors.Load())
}

// GetOrCreateAggregator returns the aggregator for name, creating it
// exactly once on first use. Concurrent calls with the same unseen name
// never create duplicates. Names are normalized: a missing name becomes
// the empty string, never a rejection.
func (t *Tracer) GetOrCreateAggregator(name Key) *Aggregator {
	t.aggLock.RLock()
	agg, ok := t.aggregators[name]
	t.aggLock.RUnlock()
	if ok {
		return agg
	}

	t.aggLock.Lock()
	defer t.aggLock.Unlock()

	// Double-check: another goroutine may have won the race.
	if agg, ok := t.aggregators[name]; ok {
		return agg
	}
	agg = newAggregator(name, &t.maxSamples, &t.maxErrors)
	t.aggregators[name] = agg
	return agg
}

// BuildSpan returns a point-in-time view of the aggregator for name
// without starting any timing.
func (t *Tracer) BuildSpan(name Key) AggregatorView {
	return t.GetOrCreateAggregator(name).Snapshot()
}

// StartSpan begins a new span for the named operation and returns it
// wrapped in a SpanHandle. If the context carries an in-flight span,
// the new span joins its trace as a child; otherwise it starts a new
// root trace. The returned context carries the ambient stack for
// nested spans and must stay on the calling goroutine; use Handoff to
// carry the trace into dispatched work.
func (t *Tracer) StartSpan(ctx context.Context, operation Key) (context.Context, *SpanHandle) {
	// Handle nil context by creating a new one.
	if ctx == nil {
		ctx = context.Background()
	}

	ambient := AmbientFrom(ctx)
	if ambient == nil {
		ambient = NewAmbient()
		ctx = WithAmbient(ctx, ambient)
	}

	span := &Span{
		SpanID:    t.NewSpanID(),
		Name:      string(operation),
		StartTime: t.clock.Now(),
	}

	// Link to parent span if present.
	if parent := ambient.Current(); parent != nil {
		span.TraceID = parent.TraceID
		span.ParentID = parent.SpanID
	} else {
		span.TraceID = t.NewTraceID()
	}

	ambient.push(span)

	return ctx, &SpanHandle{
		span:       span,
		aggregator: t.GetOrCreateAggregator(operation),
		ambient:    ambient,
		tracer:     t,
	}
}

// NewSpan starts a span against the ambient already carried by ctx and
// returns just the handle. Convenience for call sites that do not nest
// further work under the span; use StartSpan when the trace must
// propagate onward.
func (t *Tracer) NewSpan(ctx context.Context, operation Key) *SpanHandle {
	_, span := t.StartSpan(ctx, operation)
	return span
}

// Drain returns a snapshot of every aggregator, ordered by name, for
// export to an external sink. Drain never resets: statistics keep
// accumulating and repeated drains see cumulative values. Use Reset to
// begin fresh aggregation.
func (t *Tracer) Drain() []AggregatorView {
	t.aggLock.RLock()
	aggs := make([]*Aggregator, 0, len(t.aggregators))
	for _, agg := range t.aggregators {
		aggs = append(aggs, agg)
	}
	t.aggLock.RUnlock()

	sort.Slice(aggs, func(i, j int) bool {
		return aggs[i].name < aggs[j].name
	})

	views := make([]AggregatorView, len(aggs))
	for i, agg := range aggs {
		views[i] = agg.Snapshot()
	}
	return views
}

// Reset clears every aggregator's statistics and reservoirs. The
// aggregators themselves survive, so held references stay valid.
func (t *Tracer) Reset() {
	t.aggLock.RLock()
	defer t.aggLock.RUnlock()

	for _, agg := range t.aggregators {
		agg.reset()
	}
}

// Close shuts down the tracer and releases its ID pools.
// This should be called when the tracer is no longer needed.
func (t *Tracer) Close() {
	if t.traceIDPool != nil {
		t.traceIDPool.Close()
	}
	if t.spanIDPool != nil {
		t.spanIDPool.Close()
	}
}

// reportAnomaly logs a nesting-discipline violation: a span ended out
// of stack order. Non-fatal; linkage degrades to best effort.
func (t *Tracer) reportAnomaly(span *Span) {
	t.logger.Warn("span ended out of order",
		zap.String("trace_id", span.TraceID),
		zap.String("span_id", span.SpanID),
		zap.String("operation", span.Name),
	)
}
