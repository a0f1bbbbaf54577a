package apmz

import (
	"context"
	"testing"
)

func TestAmbientStack(t *testing.T) {
	ambient := NewAmbient()
	if ambient.Current() != nil {
		t.Error("Expected empty ambient to have no current span")
	}
	if ambient.Depth() != 0 {
		t.Errorf("Expected depth 0, got %d", ambient.Depth())
	}

	outer := &Span{SpanID: "outer"}
	inner := &Span{SpanID: "inner"}

	ambient.push(outer)
	ambient.push(inner)

	if ambient.Current() != inner {
		t.Error("Expected inner span on top")
	}
	if ambient.Depth() != 2 {
		t.Errorf("Expected depth 2, got %d", ambient.Depth())
	}

	if !ambient.pop(inner) {
		t.Error("Expected in-order pop to match the top")
	}
	if ambient.Current() != outer {
		t.Error("Expected outer span on top after pop")
	}
	if !ambient.pop(outer) {
		t.Error("Expected in-order pop to match the top")
	}
	if ambient.Depth() != 0 {
		t.Errorf("Expected empty stack, got depth %d", ambient.Depth())
	}
}

func TestAmbientPopOutOfOrder(t *testing.T) {
	ambient := NewAmbient()
	a := &Span{SpanID: "a"}
	b := &Span{SpanID: "b"}
	c := &Span{SpanID: "c"}
	ambient.push(a)
	ambient.push(b)
	ambient.push(c)

	// Popping from the middle is an anomaly but keeps the stack usable.
	if ambient.pop(b) {
		t.Error("Expected out-of-order pop to report a mismatch")
	}
	if ambient.Depth() != 2 {
		t.Errorf("Expected depth 2 after removal, got %d", ambient.Depth())
	}
	if ambient.Current() != c {
		t.Error("Expected c to remain on top")
	}
	if !ambient.pop(c) {
		t.Error("Expected c to pop cleanly")
	}
	if !ambient.pop(a) {
		t.Error("Expected a to pop cleanly")
	}
}

func TestAmbientPopUnknownSpan(t *testing.T) {
	ambient := NewAmbient()
	if ambient.pop(&Span{SpanID: "ghost"}) {
		t.Error("Expected pop on empty ambient to report a mismatch")
	}

	ambient.push(&Span{SpanID: "real"})
	if ambient.pop(&Span{SpanID: "ghost"}) {
		t.Error("Expected pop of unknown span to report a mismatch")
	}
	if ambient.Depth() != 1 {
		t.Errorf("Expected stack untouched, got depth %d", ambient.Depth())
	}
}

func TestWithAmbientRoundTrip(t *testing.T) {
	ambient := NewAmbient()
	ctx := WithAmbient(context.Background(), ambient)

	if AmbientFrom(ctx) != ambient {
		t.Error("Expected ambient to round-trip through the context")
	}
	if AmbientFrom(context.Background()) != nil {
		t.Error("Expected bare context to carry no ambient")
	}
	if AmbientFrom(nil) != nil { //nolint:staticcheck // Deliberate nil-context check.
		t.Error("Expected nil context to carry no ambient")
	}
}

func TestHandoffSeedsCurrentSpan(t *testing.T) {
	ambient := NewAmbient()
	parent := &Span{SpanID: "parent", TraceID: "trace-1"}
	ambient.push(parent)
	ctx := WithAmbient(context.Background(), ambient)

	workerCtx := Handoff(ctx)
	workerAmbient := AmbientFrom(workerCtx)

	if workerAmbient == ambient {
		t.Fatal("Expected handoff to create a fresh ambient")
	}
	if workerAmbient.Current() != parent {
		t.Error("Expected handoff to seed the caller's current span")
	}

	// The two stacks are independent: pushing on one leaves the other alone.
	workerAmbient.push(&Span{SpanID: "worker"})
	if ambient.Depth() != 1 {
		t.Errorf("Expected caller stack untouched, got depth %d", ambient.Depth())
	}
}

func TestHandoffWithoutAmbient(t *testing.T) {
	workerCtx := Handoff(context.Background())

	ambient := AmbientFrom(workerCtx)
	if ambient == nil {
		t.Fatal("Expected handoff to install an ambient")
	}
	if ambient.Current() != nil {
		t.Error("Expected empty seed when the caller had no current span")
	}
}

func TestCurrentSpan(t *testing.T) {
	if CurrentSpan(context.Background()) != nil {
		t.Error("Expected no current span on a bare context")
	}

	ambient := NewAmbient()
	span := &Span{SpanID: "s"}
	ambient.push(span)
	ctx := WithAmbient(context.Background(), ambient)

	if CurrentSpan(ctx) != span {
		t.Error("Expected the pushed span to be current")
	}
}
