// FILE: scribelog/src/internal/shipper/sender.go
package shipper

import (
	"errors"
	"fmt"
	"sync/atomic"

	"scribelog/src/internal/core"
	"scribelog/src/internal/retry"

	"github.com/lixenwraith/log"
)

// ErrDeliveryFailed matches every *DeliveryError via errors.Is
var ErrDeliveryFailed = errors.New("scribe delivery failed")

// DeliveryError is returned by Flush after retry exhaustion
type DeliveryError struct {
	Attempts int
	Entries  int
	// Err is the last transport error, nil if every attempt got TRY_LATER
	Err error
}

func (e *DeliveryError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("failed to send %d entries to scribe after %d attempts", e.Entries, e.Attempts)
	}
	return fmt.Sprintf("failed to send %d entries to scribe after %d attempts: %v", e.Entries, e.Attempts, e.Err)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}

func (e *DeliveryError) Is(target error) bool {
	return target == ErrDeliveryFailed
}

// SenderStats counts flush outcomes
type SenderStats struct {
	Attempts      uint64 `json:"attempts"`
	Successes     uint64 `json:"successes"`
	Failures      uint64 `json:"failures"`
	Reconnects    uint64 `json:"reconnects"`
	EntriesSent   uint64 `json:"entries_sent"`
	EntriesFailed uint64 `json:"entries_failed"`
}

// Sender buffers entries and delivers them as one batch per Flush.
// Flush blocks for the whole retry loop, including backoff sleeps.
// A Sender is not safe for concurrent use; see AsyncSender.
type Sender struct {
	transport Transport
	retrier   *retry.Retrier
	logger    *log.Logger
	buf       core.Batch

	attempts      atomic.Uint64
	successes     atomic.Uint64
	failures      atomic.Uint64
	reconnects    atomic.Uint64
	entriesSent   atomic.Uint64
	entriesFailed atomic.Uint64
}

// NewSender does not connect; the first flush opens the transport
func NewSender(transport Transport, policy retry.Policy, sleeper retry.Sleeper, logger *log.Logger) (*Sender, error) {
	retrier, err := retry.New(policy, sleeper)
	if err != nil {
		return nil, fmt.Errorf("invalid retry policy: %w", err)
	}
	return &Sender{
		transport: transport,
		retrier:   retrier,
		logger:    logger,
	}, nil
}

// Append buffers entries for the next Flush
func (s *Sender) Append(entries ...core.LogEntry) {
	s.buf = append(s.buf, entries...)
}

// Buffered returns the number of entries awaiting Flush
func (s *Sender) Buffered() int {
	return len(s.buf)
}

// Flush sends the whole buffer as one batch. The buffer is empty afterwards
// whether delivery succeeded or not.
func (s *Sender) Flush() error {
	if len(s.buf) == 0 {
		return nil
	}

	batch := s.buf
	defer func() { s.buf = nil }()

	res := s.retrier.Do(func(st retry.State) (bool, error) {
		s.attempts.Add(1)

		if !s.transport.IsOpen() {
			_ = s.transport.Close()
			if err := s.transport.Open(); err != nil {
				s.logger.Warn("msg", "Failed to connect to scribe, retrying",
					"component", "sender",
					"attempt", st.Attempt+1,
					"backoff", st.Backoff,
					"error", err)
				_ = s.transport.Close()
				return false, err
			}
			s.reconnects.Add(1)
			s.logger.Info("msg", "Connected to scribe", "component", "sender")
		}

		code, err := s.transport.Log(batch)
		if err != nil {
			s.logger.Warn("msg", "Failed to log events, closing transport and retrying",
				"component", "sender",
				"attempt", st.Attempt+1,
				"backoff", st.Backoff,
				"error", err)
			_ = s.transport.Close()
			return false, err
		}

		if code == core.OK {
			return true, nil
		}

		s.logger.Warn("msg", "Scribe deferred batch, retrying",
			"component", "sender",
			"result", code.String(),
			"attempt", st.Attempt+1,
			"backoff", st.Backoff)
		return false, nil
	})

	if res.Succeeded {
		s.successes.Add(1)
		s.entriesSent.Add(uint64(len(batch)))
		return nil
	}

	s.failures.Add(1)
	s.entriesFailed.Add(uint64(len(batch)))

	derr := &DeliveryError{Attempts: res.Attempts, Entries: len(batch), Err: res.LastErr}
	s.logger.Error("msg", "Failed to log events",
		"component", "sender",
		"entries", len(batch),
		"attempts", res.Attempts,
		"error", res.LastErr)
	for _, entry := range batch {
		s.logger.Warn("msg", "FAIL",
			"component", "sender",
			"category", entry.Category,
			"message", string(entry.Message))
	}
	return derr
}

// Close closes the transport; buffered entries are kept
func (s *Sender) Close() error {
	return s.transport.Close()
}

// Stats returns the delivery counters
func (s *Sender) Stats() SenderStats {
	return SenderStats{
		Attempts:      s.attempts.Load(),
		Successes:     s.successes.Load(),
		Failures:      s.failures.Load(),
		Reconnects:    s.reconnects.Load(),
		EntriesSent:   s.entriesSent.Load(),
		EntriesFailed: s.entriesFailed.Load(),
	}
}
