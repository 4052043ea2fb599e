// FILE: scribelog/src/internal/sink/file.go
package sink

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"scribelog/src/internal/config"
	"scribelog/src/internal/format"
	"scribelog/src/internal/gelf"

	"github.com/lixenwraith/log"
)

// FileSink writes messages to size-rotated files with retention
type FileSink struct {
	input     chan *gelf.Message
	writer    *log.Logger // Internal logger instance for file writing
	config    config.FileSinkConfig
	done      chan struct{}
	wg        sync.WaitGroup
	stopOnce  sync.Once
	startTime time.Time
	logger    *log.Logger // Application logger
	formatter format.Formatter

	// Statistics
	totalProcessed atomic.Uint64
	formatErrors   atomic.Uint64
	lastProcessed  atomic.Value // time.Time
}

// NewFileSink creates a sink writing through a dedicated rotating logger
func NewFileSink(cfg config.FileSinkConfig, logger *log.Logger, formatter format.Formatter) (*FileSink, error) {
	if cfg.Directory == "" {
		cfg.Directory = "./"
		logger.Warn("msg", "No directory provided for file sink, using current directory",
			"component", "file_sink")
	}
	if cfg.Name == "" {
		cfg.Name = "scribelog.output"
		logger.Warn("msg", "No filename provided for file sink",
			"component", "file_sink",
			"name", cfg.Name)
	}

	writerConfig := log.DefaultConfig()
	writerConfig.Directory = cfg.Directory
	writerConfig.Name = cfg.Name
	writerConfig.EnableConsole = false // File only
	writerConfig.ShowTimestamp = false // Messages carry their own timestamp
	writerConfig.ShowLevel = false

	if cfg.MaxSizeMB > 0 {
		writerConfig.MaxSizeKB = cfg.MaxSizeMB * 1000
	}
	if cfg.MaxTotalSizeMB >= 0 {
		writerConfig.MaxTotalSizeKB = cfg.MaxTotalSizeMB * 1000
	}
	if cfg.RetentionHours > 0 {
		writerConfig.RetentionPeriodHrs = cfg.RetentionHours
	}

	writer := log.NewLogger()
	if err := writer.ApplyConfig(writerConfig); err != nil {
		return nil, fmt.Errorf("failed to initialize file writer: %w", err)
	}
	if err := writer.Start(); err != nil {
		return nil, fmt.Errorf("failed to start file writer: %w", err)
	}

	bufferSize := cfg.BufferSize
	if bufferSize <= 0 {
		bufferSize = defaultBufferSize
	}

	fs := &FileSink{
		input:     make(chan *gelf.Message, bufferSize),
		writer:    writer,
		config:    cfg,
		done:      make(chan struct{}),
		startTime: time.Now(),
		logger:    logger,
		formatter: formatter,
	}
	fs.lastProcessed.Store(time.Time{})

	return fs, nil
}

func (fs *FileSink) Input() chan<- *gelf.Message {
	return fs.input
}

func (fs *FileSink) Start(ctx context.Context) error {
	fs.wg.Add(1)
	go fs.processLoop(ctx)
	fs.logger.Info("msg", "File sink started",
		"component", "file_sink",
		"directory", fs.config.Directory,
		"name", fs.config.Name)
	return nil
}

func (fs *FileSink) Stop() {
	fs.stopOnce.Do(func() {
		close(fs.done)
		fs.wg.Wait()

		if err := fs.writer.Shutdown(2 * time.Second); err != nil {
			fs.logger.Error("msg", "Error shutting down file writer",
				"component", "file_sink",
				"error", err)
		}

		fs.logger.Info("msg", "File sink stopped", "component", "file_sink")
	})
}

func (fs *FileSink) GetStats() SinkStats {
	lastProc, _ := fs.lastProcessed.Load().(time.Time)

	return SinkStats{
		Type:           "file",
		TotalProcessed: fs.totalProcessed.Load(),
		FormatErrors:   fs.formatErrors.Load(),
		StartTime:      fs.startTime,
		LastProcessed:  lastProc,
		Details: map[string]any{
			"directory": fs.config.Directory,
			"name":      fs.config.Name,
			"format":    fs.formatter.Name(),
		},
	}
}

func (fs *FileSink) processLoop(ctx context.Context) {
	defer fs.wg.Done()

	for {
		select {
		case msg := <-fs.input:
			fs.write(msg)
		case <-ctx.Done():
			fs.drain()
			return
		case <-fs.done:
			fs.drain()
			return
		}
	}
}

func (fs *FileSink) drain() {
	for {
		select {
		case msg := <-fs.input:
			fs.write(msg)
		default:
			return
		}
	}
}

func (fs *FileSink) write(msg *gelf.Message) {
	fs.totalProcessed.Add(1)
	fs.lastProcessed.Store(time.Now())

	formatted, err := fs.formatter.Format(msg)
	if err != nil {
		fs.formatErrors.Add(1)
		fs.logger.Error("msg", "Failed to format message",
			"component", "file_sink",
			"error", err)
		return
	}

	// Writer appends its own newline; a string avoids hex encoding of []byte
	fs.writer.Message(string(bytes.TrimSuffix(formatted, []byte{'\n'})))
}
