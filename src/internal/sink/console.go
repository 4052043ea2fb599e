// FILE: scribelog/src/internal/sink/console.go
package sink

import (
	"context"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"scribelog/src/internal/format"
	"scribelog/src/internal/gelf"

	"github.com/lixenwraith/log"
)

// ConsoleSink writes messages to stdout, stderr, or both.
// In "split" mode warnings and more severe levels go to stderr.
type ConsoleSink struct {
	input     chan *gelf.Message
	target    string
	stdout    io.Writer
	stderr    io.Writer
	done      chan struct{}
	wg        sync.WaitGroup
	stopOnce  sync.Once
	startTime time.Time
	logger    *log.Logger
	formatter format.Formatter

	// Statistics
	totalProcessed atomic.Uint64
	formatErrors   atomic.Uint64
	writeErrors    atomic.Uint64
	lastProcessed  atomic.Value // time.Time
}

// NewConsoleSink writes to stdout, stderr, or splits by level for target "split"
func NewConsoleSink(target string, stdout, stderr io.Writer, bufferSize int, logger *log.Logger, formatter format.Formatter) *ConsoleSink {
	if bufferSize <= 0 {
		bufferSize = defaultBufferSize
	}

	s := &ConsoleSink{
		input:     make(chan *gelf.Message, bufferSize),
		target:    target,
		stdout:    stdout,
		stderr:    stderr,
		done:      make(chan struct{}),
		startTime: time.Now(),
		logger:    logger,
		formatter: formatter,
	}
	s.lastProcessed.Store(time.Time{})

	return s
}

func (s *ConsoleSink) Input() chan<- *gelf.Message {
	return s.input
}

func (s *ConsoleSink) Start(ctx context.Context) error {
	s.wg.Add(1)
	go s.processLoop(ctx)
	s.logger.Info("msg", "Console sink started",
		"component", "console_sink",
		"target", s.target,
		"format", s.formatter.Name())
	return nil
}

func (s *ConsoleSink) Stop() {
	s.stopOnce.Do(func() {
		close(s.done)
		s.wg.Wait()
		s.logger.Info("msg", "Console sink stopped", "component", "console_sink")
	})
}

func (s *ConsoleSink) GetStats() SinkStats {
	lastProc, _ := s.lastProcessed.Load().(time.Time)

	return SinkStats{
		Type:           s.target,
		TotalProcessed: s.totalProcessed.Load(),
		FormatErrors:   s.formatErrors.Load(),
		StartTime:      s.startTime,
		LastProcessed:  lastProc,
		Details: map[string]any{
			"target":       s.target,
			"format":       s.formatter.Name(),
			"write_errors": s.writeErrors.Load(),
		},
	}
}

func (s *ConsoleSink) writerFor(msg *gelf.Message) io.Writer {
	switch s.target {
	case "stderr":
		return s.stderr
	case "split":
		if msg.Level() <= gelf.LevelWarning {
			return s.stderr
		}
		return s.stdout
	default:
		return s.stdout
	}
}

func (s *ConsoleSink) processLoop(ctx context.Context) {
	defer s.wg.Done()

	for {
		select {
		case msg := <-s.input:
			s.write(msg)
		case <-ctx.Done():
			s.drain()
			return
		case <-s.done:
			s.drain()
			return
		}
	}
}

// drain writes whatever is already queued without waiting for more
func (s *ConsoleSink) drain() {
	for {
		select {
		case msg := <-s.input:
			s.write(msg)
		default:
			return
		}
	}
}

func (s *ConsoleSink) write(msg *gelf.Message) {
	s.totalProcessed.Add(1)
	s.lastProcessed.Store(time.Now())

	formatted, err := s.formatter.Format(msg)
	if err != nil {
		s.formatErrors.Add(1)
		s.logger.Error("msg", "Failed to format message for console",
			"component", "console_sink",
			"error", err)
		return
	}

	if _, err := s.writerFor(msg).Write(formatted); err != nil {
		s.writeErrors.Add(1)
	}
}
