// FILE: scribelog/src/internal/receiver/receiver.go
package receiver

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"scribelog/src/internal/core"
	"scribelog/src/internal/gelf"

	"github.com/lixenwraith/log"
)

// ErrCapacityTooSmall means a single batch can never fit the process buffer.
// It is a configuration error and is never turned into TryLater.
var ErrCapacityTooSmall = errors.New("process buffer too small for batch")

// Gate admits parsed messages into downstream processing
type Gate interface {
	// Total slots, fixed
	Capacity() int
	// Currently free slots, advisory only
	FreeSpace() int
	// All-or-nothing insertion
	TryOffer(msgs []*gelf.Message) core.OfferResult
}

// Parser turns a raw entry payload into a structured message.
// A parse error is treated the same as an incomplete message.
type Parser interface {
	Parse(payload []byte) (*gelf.Message, error)
}

// Stats holds the monotonic admission counters
type Stats struct {
	Incoming   uint64 `json:"incoming"`
	Incomplete uint64 `json:"incomplete"`
	Deferred   uint64 `json:"deferred"`
	Processed  uint64 `json:"processed"`
}

// Receiver handles Scribe Log calls: admission check, parse, atomic offer
type Receiver struct {
	gate   Gate
	parser Parser
	logger *log.Logger

	incoming   atomic.Uint64
	incomplete atomic.Uint64
	deferred   atomic.Uint64
	processed  atomic.Uint64
}

// New builds a receiver offering parsed messages to gate
func New(gate Gate, parser Parser, logger *log.Logger) *Receiver {
	return &Receiver{
		gate:   gate,
		parser: parser,
		logger: logger,
	}
}

// Log admits a batch all-or-nothing and answers OK or TRY_LATER. When err is
// non-nil the code is NoResult and the caller must answer with an exception.
// Safe for concurrent use by multiple workers.
func (r *Receiver) Log(ctx context.Context, batch core.Batch) (core.ResultCode, error) {
	n := len(batch)
	r.incoming.Add(uint64(n))

	capacity := r.gate.Capacity()
	if capacity < n {
		r.logger.Error("msg", "Process buffer too small for batch, increase buffer capacity or decrease sender batch size",
			"component", "receiver",
			"capacity", capacity,
			"batch_size", n)
		return core.NoResult, fmt.Errorf("%w: capacity %d, batch of %d messages", ErrCapacityTooSmall, capacity, n)
	}

	if free := r.gate.FreeSpace(); free < n {
		r.deferred.Add(uint64(n))
		r.logger.Warn("msg", "Process buffer over capacity, returning TRY_LATER",
			"component", "receiver",
			"free_space", free,
			"capacity", capacity,
			"batch_size", n)
		return core.TryLater, nil
	}

	msgs := make([]*gelf.Message, 0, n)
	for _, entry := range batch {
		if err := ctx.Err(); err != nil {
			return core.NoResult, err
		}

		msg, err := r.parser.Parse(entry.Message)
		if err != nil || !msg.Complete() {
			r.incomplete.Add(1)
			r.logger.Debug("msg", "Skipping incomplete message",
				"component", "receiver",
				"category", entry.Category,
				"error", err)
			continue
		}

		msg.AddField(gelf.FieldScribeCategory, entry.Category)
		msgs = append(msgs, msg)
	}

	switch result := r.gate.TryOffer(msgs); result {
	case core.OfferAccepted:
		r.processed.Add(uint64(len(msgs)))
		return core.OK, nil
	case core.OfferOverCapacity:
		r.deferred.Add(uint64(len(msgs)))
		r.logger.Warn("msg", "Process buffer over capacity, returning TRY_LATER",
			"component", "receiver",
			"free_space", r.gate.FreeSpace(),
			"batch_size", n)
		return core.TryLater, nil
	case core.OfferProcessingDisabled:
		r.deferred.Add(uint64(len(msgs)))
		r.logger.Warn("msg", "Processing disabled, returning TRY_LATER",
			"component", "receiver",
			"batch_size", n)
		return core.TryLater, nil
	default:
		return core.NoResult, fmt.Errorf("unexpected offer result %v", result)
	}
}

// Stats counters are read independently, not as one atomic snapshot
func (r *Receiver) Stats() Stats {
	return Stats{
		Incoming:   r.incoming.Load(),
		Incomplete: r.incomplete.Load(),
		Deferred:   r.deferred.Load(),
		Processed:  r.processed.Load(),
	}
}
