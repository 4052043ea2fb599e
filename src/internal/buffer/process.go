// FILE: scribelog/src/internal/buffer/process.go
package buffer

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"scribelog/src/internal/core"
	"scribelog/src/internal/gelf"

	"golang.org/x/sync/semaphore"
)

// ProcessBuffer is a bounded FIFO of admitted messages.
// Slots are reserved all-or-nothing per offer and released as consumers dequeue.
type ProcessBuffer struct {
	capacity int
	slots    *semaphore.Weighted
	reserved atomic.Int64
	paused   atomic.Bool

	mu     sync.Mutex
	queue  []*gelf.Message
	notify chan struct{}

	totalAccepted atomic.Uint64
	totalRejected atomic.Uint64
	totalDisabled atomic.Uint64
	totalDequeued atomic.Uint64
}

// Stats is a point-in-time snapshot of the buffer
type Stats struct {
	Capacity      int    `json:"capacity"`
	Used          int    `json:"used"`
	Processing    bool   `json:"processing"`
	TotalAccepted uint64 `json:"total_accepted"`
	TotalRejected uint64 `json:"total_rejected"`
	TotalDisabled uint64 `json:"total_disabled"`
	TotalDequeued uint64 `json:"total_dequeued"`
}

// New creates an empty, processing buffer with a fixed number of slots
func New(capacity int) (*ProcessBuffer, error) {
	if capacity < 1 {
		return nil, fmt.Errorf("buffer capacity must be positive, got %d", capacity)
	}
	return &ProcessBuffer{
		capacity: capacity,
		slots:    semaphore.NewWeighted(int64(capacity)),
		queue:    make([]*gelf.Message, 0, capacity),
		notify:   make(chan struct{}, 1),
	}, nil
}

// Capacity is fixed for the lifetime of the buffer
func (b *ProcessBuffer) Capacity() int {
	return b.capacity
}

// FreeSpace may be stale by the time the caller acts on it
func (b *ProcessBuffer) FreeSpace() int {
	free := b.capacity - int(b.reserved.Load())
	if free < 0 {
		return 0
	}
	return free
}

// Len returns the number of queued messages
func (b *ProcessBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.queue)
}

// TryOffer admits all messages or none of them
func (b *ProcessBuffer) TryOffer(msgs []*gelf.Message) core.OfferResult {
	if b.paused.Load() {
		b.totalDisabled.Add(1)
		return core.OfferProcessingDisabled
	}
	if len(msgs) == 0 {
		return core.OfferAccepted
	}

	n := int64(len(msgs))
	if !b.slots.TryAcquire(n) {
		b.totalRejected.Add(1)
		return core.OfferOverCapacity
	}
	b.reserved.Add(n)

	b.mu.Lock()
	b.queue = append(b.queue, msgs...)
	b.mu.Unlock()

	b.totalAccepted.Add(uint64(n))
	b.signal()
	return core.OfferAccepted
}

// Next blocks until a message is available or ctx is done
func (b *ProcessBuffer) Next(ctx context.Context) (*gelf.Message, error) {
	for {
		b.mu.Lock()
		if len(b.queue) > 0 {
			msg := b.queue[0]
			b.queue[0] = nil
			b.queue = b.queue[1:]
			remaining := len(b.queue)
			b.mu.Unlock()

			b.reserved.Add(-1)
			b.slots.Release(1)
			b.totalDequeued.Add(1)
			if remaining > 0 {
				b.signal()
			}
			return msg, nil
		}
		b.mu.Unlock()

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-b.notify:
		}
	}
}

// Pause disables processing; offers are refused until Resume
func (b *ProcessBuffer) Pause() {
	b.paused.Store(true)
}

// Resume re-enables admission
func (b *ProcessBuffer) Resume() {
	b.paused.Store(false)
}

// Processing reports whether offers can be accepted
func (b *ProcessBuffer) Processing() bool {
	return !b.paused.Load()
}

// Stats returns a point-in-time view of the buffer
func (b *ProcessBuffer) Stats() Stats {
	return Stats{
		Capacity:      b.capacity,
		Used:          int(b.reserved.Load()),
		Processing:    b.Processing(),
		TotalAccepted: b.totalAccepted.Load(),
		TotalRejected: b.totalRejected.Load(),
		TotalDisabled: b.totalDisabled.Load(),
		TotalDequeued: b.totalDequeued.Load(),
	}
}

func (b *ProcessBuffer) signal() {
	select {
	case b.notify <- struct{}{}:
	default:
	}
}
