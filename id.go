package apmz

import (
	"crypto/rand"
	"encoding/hex"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/zoobzio/clockz"
)

// IDPool manages a pool of pre-generated IDs to amortize randomness overhead.
type IDPool struct {
	factory  func() string
	ids      chan string
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewIDPool creates a new ID pool with the specified capacity.
func NewIDPool(capacity int, factory func() string) *IDPool {
	pool := &IDPool{
		ids:     make(chan string, capacity),
		factory: factory,
		stopCh:  make(chan struct{}),
	}
	// Start background refill goroutine.
	go pool.refill()
	return pool
}

// Get retrieves an ID from the pool or generates one if pool is empty.
func (p *IDPool) Get() string {
	select {
	case id := <-p.ids:
		return id
	default:
		// Pool empty, generate directly (fallback for burst load).
		return p.factory()
	}
}

// refill maintains the pool by generating IDs in background.
func (p *IDPool) refill() {
	for {
		select {
		case <-p.stopCh:
			return
		default:
			// Only generate if pool has capacity.
			select {
			case p.ids <- p.factory():
				// Successfully added ID to pool.
			case <-p.stopCh:
				return
			}
		}
	}
}

// Close stops the refill goroutine. Get keeps working afterward via
// direct generation. Safe to call more than once.
func (p *IDPool) Close() {
	p.stopOnce.Do(func() {
		close(p.stopCh)
	})
}

// traceIDFactory builds the factory for trace IDs: a random UUID rendered
// as 32 hex characters. Falls back to a time-based ID if the randomness
// source fails, since ID generation must never error into caller code.
func traceIDFactory(clock clockz.Clock) func() string {
	return func() string {
		id, err := uuid.NewRandom()
		if err != nil {
			return hex.EncodeToString([]byte(clock.Now().Format(time.RFC3339Nano)))
		}
		return hex.EncodeToString(id[:])
	}
}

// spanIDFactory builds the factory for span IDs: 8 random bytes as 16 hex
// characters, with the same time-based fallback.
func spanIDFactory(clock clockz.Clock) func() string {
	return func() string {
		bytes := make([]byte, 8)
		if _, err := rand.Read(bytes); err != nil {
			return hex.EncodeToString([]byte(clock.Now().Format("15:04:05.000000")))
		}
		return hex.EncodeToString(bytes)
	}
}
