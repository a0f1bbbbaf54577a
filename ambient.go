package apmz

import "context"

// ambientKeyType is a private type for context keys to avoid collisions.
type ambientKeyType string

const (
	ambientKey ambientKeyType = "apmz"
)

// Ambient is the stack of in-flight spans for one logical execution.
// It is owned by a single goroutine and needs no locking; sharing an
// Ambient across goroutines is a caller error. A context that crosses
// into separately scheduled work must go through Handoff first, or the
// worker's spans start a new root trace.
type Ambient struct {
	stack []*Span
}

// NewAmbient creates an empty ambient stack.
func NewAmbient() *Ambient {
	return &Ambient{}
}

// Current returns the innermost in-flight span, or nil if none.
func (a *Ambient) Current() *Span {
	if len(a.stack) == 0 {
		return nil
	}
	return a.stack[len(a.stack)-1]
}

// Depth returns the number of in-flight spans on the stack.
func (a *Ambient) Depth() int {
	return len(a.stack)
}

// push makes span the current span.
func (a *Ambient) push(span *Span) {
	a.stack = append(a.stack, span)
}

// pop removes span from the stack. Returns true if span was on top, the
// expected case. An out-of-order end removes the span from wherever it
// sits so later pops still match; callers log the anomaly and continue.
func (a *Ambient) pop(span *Span) bool {
	n := len(a.stack)
	if n == 0 {
		return false
	}
	if a.stack[n-1] == span {
		a.stack[n-1] = nil
		a.stack = a.stack[:n-1]
		return true
	}
	for i := n - 2; i >= 0; i-- {
		if a.stack[i] == span {
			copy(a.stack[i:], a.stack[i+1:])
			a.stack[n-1] = nil
			a.stack = a.stack[:n-1]
			return false
		}
	}
	return false
}

// WithAmbient returns a context carrying the given ambient stack.
func WithAmbient(ctx context.Context, ambient *Ambient) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ambientKey, ambient)
}

// AmbientFrom extracts the ambient stack from a context.
// Returns nil if none is present.
func AmbientFrom(ctx context.Context) *Ambient {
	if ctx == nil {
		return nil
	}
	if ambient, ok := ctx.Value(ambientKey).(*Ambient); ok {
		return ambient
	}
	return nil
}

// Handoff prepares a context for a separately scheduled worker. It
// captures the caller's current span and seeds a fresh ambient with it,
// so spans started in the worker join the caller's trace as children
// without the two goroutines sharing stack state. Without Handoff a
// worker's spans begin a new root trace.
func Handoff(ctx context.Context) context.Context {
	fresh := NewAmbient()
	if parent := AmbientFrom(ctx); parent != nil {
		if current := parent.Current(); current != nil {
			fresh.push(current)
		}
	}
	return WithAmbient(ctx, fresh)
}

// CurrentSpan returns the innermost in-flight span carried by the
// context, or nil if the context carries none.
func CurrentSpan(ctx context.Context) *Span {
	if ambient := AmbientFrom(ctx); ambient != nil {
		return ambient.Current()
	}
	return nil
}
