// Package apmz provides a minimal, primitive in-process APM engine.
//
// apmz records the start and end of named operations ("spans"), links
// nested operations into traces, and keeps per-operation rolling
// statistics plus bounded windows of recent spans. It is designed for
// the fast path of request instrumentation: no operation blocks, and
// instrumentation failures never surface into caller logic.
//
// Core Components:.
//   - Tracer: Registry of per-operation aggregators; span entry point.
//   - Span: Represents a single finished unit of work.
//   - SpanHandle: Thread-safe wrapper for an in-flight span.
//   - Aggregator: Per-operation statistics and sample reservoirs.
//   - Ambient: Per-goroutine stack of in-flight spans.
//
// Basic Usage:.
//
//	tracer := apmz.New()
//	defer tracer.Close()
//
//	// Start a new span.
//	ctx, span := tracer.StartSpan(ctx, "db.query")
//	defer span.End()
//
//	// Add metadata.
//	span.SetTag("SELECT * FROM users")
//	if err != nil {
//		span.SetError(err, "users")
//	}
//
//	// Nested operations become children automatically.
//	ctx, child := tracer.StartSpan(ctx, "db.scan")
//	defer child.End()
//
// Statistics:.
//
// Every finished span is reported to the aggregator for its name.
// Aggregators keep unbounded accumulators (Total, Errors, Cost, MaxCost,
// MinCost) and two bounded recency windows: Samples for clean spans and
// ErrorSamples for errored ones. Drain returns a consistent snapshot of
// every aggregator for export; it never resets. Call Reset explicitly
// to begin fresh aggregation.
//
// Context Propagation:.
//
// Spans are linked via context.Context. The context carries an Ambient,
// a stack of in-flight spans owned by one goroutine. Passing the context
// into a separately scheduled worker requires Handoff to seed a fresh
// Ambient there; a worker started without one begins a new root trace.
//
// Thread Safety:.
//
// Tracer and Aggregator are safe for concurrent use by multiple
// goroutines. SpanHandle operations are safe for concurrent use.
// An Ambient is owned by a single goroutine and must not be shared.
package apmz

// Key represents a span operation name.
type Key = string
