// FILE: scribelog/src/internal/appender/lines.go
package appender

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync/atomic"
	"time"

	"scribelog/src/internal/core"
	"scribelog/src/internal/gelf"

	"github.com/lixenwraith/log"
)

const (
	DefaultLineBatchSize = 100
	maxLineLength        = 1 * 1024 * 1024 // 1MB max per input line
)

// BatchSender is the blocking side of the shipper
type BatchSender interface {
	Append(entries ...core.LogEntry)
	Buffered() int
	Flush() error
}

// LineShipperConfig sets the category, logger name and batch size for shipped lines
type LineShipperConfig struct {
	Category  string
	BatchSize int
	Logger    string
}

// LineStats counts lines read and batches flushed or failed
type LineStats struct {
	Lines         uint64 `json:"lines"`
	Batches       uint64 `json:"batches"`
	FailedBatches uint64 `json:"failed_batches"`
}

// LineShipper reads plain text lines and ships each as a GELF message
type LineShipper struct {
	sender    BatchSender
	converter *gelf.Converter
	config    LineShipperConfig
	logger    *log.Logger

	lines         atomic.Uint64
	batches       atomic.Uint64
	failedBatches atomic.Uint64
}

// NewLineShipper renders every input line as a GELF message for sender
func NewLineShipper(sender BatchSender, converter *gelf.Converter, cfg LineShipperConfig, logger *log.Logger) *LineShipper {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultLineBatchSize
	}
	if cfg.Logger == "" {
		cfg.Logger = "stdin"
	}
	return &LineShipper{
		sender:    sender,
		converter: converter,
		config:    cfg,
		logger:    logger,
	}
}

// Run ships lines until EOF or ctx is done, flushing every BatchSize lines.
// Delivery failures are logged by the sender and do not stop the run.
func (l *LineShipper) Run(ctx context.Context, r io.Reader) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineLength)

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			l.flush()
			return err
		}

		line := strings.TrimRight(scanner.Text(), "\r")
		if line == "" {
			continue
		}

		payload, err := l.converter.Render(gelf.Event{
			Time:    time.Now(),
			Level:   detectSeverity(line),
			Message: line,
			Logger:  l.config.Logger,
		})
		if err != nil {
			l.logger.Debug("msg", "Failed to render line",
				"component", "line_shipper",
				"error", err)
			continue
		}

		l.lines.Add(1)
		l.sender.Append(core.LogEntry{Category: l.config.Category, Message: payload})
		if l.sender.Buffered() >= l.config.BatchSize {
			l.flush()
		}
	}

	l.flush()

	if err := scanner.Err(); err != nil {
		if errors.Is(err, bufio.ErrTooLong) {
			return fmt.Errorf("input line exceeds %d bytes: %w", maxLineLength, err)
		}
		return fmt.Errorf("read input: %w", err)
	}
	return nil
}

func (l *LineShipper) Stats() LineStats {
	return LineStats{
		Lines:         l.lines.Load(),
		Batches:       l.batches.Load(),
		FailedBatches: l.failedBatches.Load(),
	}
}

func (l *LineShipper) flush() {
	if l.sender.Buffered() == 0 {
		return
	}
	l.batches.Add(1)
	if err := l.sender.Flush(); err != nil {
		l.failedBatches.Add(1)
	}
}

// detectSeverity guesses a syslog severity from common level markers
func detectSeverity(line string) int {
	patterns := []struct {
		patterns []string
		level    int
	}{
		{[]string{"[FATAL]", "FATAL:", " FATAL ", "[CRIT]", "CRITICAL:"}, gelf.LevelCritical},
		{[]string{"[ERROR]", "ERROR:", " ERROR ", "ERR:", "[ERR]"}, gelf.LevelError},
		{[]string{"[WARN]", "WARN:", " WARN ", "WARNING:", "[WARNING]"}, gelf.LevelWarning},
		{[]string{"[NOTICE]", "NOTICE:"}, gelf.LevelNotice},
		{[]string{"[INFO]", "INFO:", " INFO ", "[INF]", "INF:"}, gelf.LevelInfo},
		{[]string{"[DEBUG]", "DEBUG:", " DEBUG ", "[DBG]", "DBG:", "[TRACE]", "TRACE:"}, gelf.LevelDebug},
	}

	upperLine := strings.ToUpper(line)
	for _, group := range patterns {
		for _, pattern := range group.patterns {
			if strings.Contains(upperLine, pattern) {
				return group.level
			}
		}
	}
	return gelf.LevelInfo
}
