// FILE: scribelog/src/internal/shipper/async.go
package shipper

import (
	"sync"
	"sync/atomic"

	"scribelog/src/internal/core"

	"github.com/lixenwraith/log"
)

const DefaultQueueSize = 1000

// AsyncStats extends SenderStats with queue counters
type AsyncStats struct {
	SenderStats
	Queued  int    `json:"queued"`
	Dropped uint64 `json:"dropped"`
}

// AsyncSender runs a Sender on a dedicated goroutine fed by a bounded queue.
// Producers never block and never see delivery errors.
type AsyncSender struct {
	sender *Sender
	queue  chan core.Batch
	logger *log.Logger
	wg     sync.WaitGroup

	mu      sync.RWMutex
	started bool
	stopped bool

	dropped atomic.Uint64
}

// NewAsyncSender queues up to queueSize batches in front of sender
func NewAsyncSender(sender *Sender, queueSize int, logger *log.Logger) *AsyncSender {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	return &AsyncSender{
		sender: sender,
		queue:  make(chan core.Batch, queueSize),
		logger: logger,
	}
}

// Start launches the delivery worker
func (a *AsyncSender) Start() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.started || a.stopped {
		return
	}
	a.started = true

	a.wg.Add(1)
	go a.run()

	a.logger.Debug("msg", "Async sender started",
		"component", "async_sender",
		"queue_size", cap(a.queue))
}

// Submit enqueues entries as one batch; false if the queue is full or stopped
func (a *AsyncSender) Submit(entries ...core.LogEntry) bool {
	if len(entries) == 0 {
		return true
	}

	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.stopped {
		a.dropped.Add(uint64(len(entries)))
		return false
	}

	select {
	case a.queue <- core.Batch(entries):
		return true
	default:
		a.dropped.Add(uint64(len(entries)))
		return false
	}
}

// Stop drains queued batches, which may take a full retry loop per batch,
// then closes the transport
func (a *AsyncSender) Stop() {
	a.mu.Lock()
	if a.stopped {
		a.mu.Unlock()
		return
	}
	a.stopped = true
	started := a.started
	close(a.queue)
	a.mu.Unlock()

	if started {
		a.wg.Wait()
	}
	if err := a.sender.Close(); err != nil {
		a.logger.Debug("msg", "Error closing scribe transport",
			"component", "async_sender",
			"error", err)
	}

	a.logger.Debug("msg", "Async sender stopped",
		"component", "async_sender",
		"dropped", a.dropped.Load())
}

func (a *AsyncSender) Stats() AsyncStats {
	return AsyncStats{
		SenderStats: a.sender.Stats(),
		Queued:      len(a.queue),
		Dropped:     a.dropped.Load(),
	}
}

func (a *AsyncSender) run() {
	defer a.wg.Done()

	for batch := range a.queue {
		a.sender.Append(batch...)
		// Flush already logged the failed entries
		_ = a.sender.Flush()
	}
}
