// FILE: scribelog/src/internal/service/collector.go
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"scribelog/src/internal/buffer"
	"scribelog/src/internal/config"
	"scribelog/src/internal/filter"
	"scribelog/src/internal/gelf"
	"scribelog/src/internal/receiver"
	"scribelog/src/internal/sink"
	"scribelog/src/internal/source"
	"scribelog/src/internal/status"

	"github.com/lixenwraith/log"
)

// Time allowed for admitted messages to reach the sinks during shutdown
const drainTimeout = 5 * time.Second

// Collector wires the scribe endpoint through the process buffer to the sinks
type Collector struct {
	config   config.CollectorConfig
	buffer   *buffer.ProcessBuffer
	receiver *receiver.Receiver
	source   source.Source
	filters  *filter.Chain
	sinks    []sink.Sink
	status   *status.Server
	logger   *log.Logger

	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	stopOnce sync.Once

	stats *CollectorStats
}

// CollectorStats contains collector-level counters
type CollectorStats struct {
	StartTime      time.Time
	TotalConsumed  atomic.Uint64
	TotalFiltered  atomic.Uint64
	TotalDelivered atomic.Uint64
	TotalAbandoned atomic.Uint64
}

// NewCollector builds every collector component without starting any of them
func NewCollector(cfg config.CollectorConfig, logger *log.Logger) (*Collector, error) {
	buf, err := buffer.New(int(cfg.Buffer.Capacity))
	if err != nil {
		return nil, fmt.Errorf("failed to create process buffer: %w", err)
	}

	rcv := receiver.New(buf, gelf.NewParser(), logger)

	src, err := source.NewScribeSource(cfg, rcv, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create scribe source: %w", err)
	}

	chain, err := filter.NewChain(cfg.Filters, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create filter chain: %w", err)
	}

	sinks := make([]sink.Sink, 0, len(cfg.Sinks))
	for i, sinkCfg := range cfg.Sinks {
		s, err := sink.New(sinkCfg, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create sink[%d]: %w", i, err)
		}
		sinks = append(sinks, s)
	}

	c := &Collector{
		config:   cfg,
		buffer:   buf,
		receiver: rcv,
		source:   src,
		filters:  chain,
		sinks:    sinks,
		logger:   logger,
		stats:    &CollectorStats{},
	}

	if cfg.Status != nil && cfg.Status.Enabled {
		c.status = status.NewServer(cfg.Status.Host, cfg.Status.Port, c, logger)
	}

	return c, nil
}

// Start brings components up from the sinks backwards so nothing is admitted
// before there is somewhere to deliver it
func (c *Collector) Start(ctx context.Context) error {
	c.ctx, c.cancel = context.WithCancel(ctx)
	c.stats.StartTime = time.Now()

	for i, s := range c.sinks {
		if err := s.Start(c.ctx); err != nil {
			c.Shutdown()
			return fmt.Errorf("failed to start sink[%d]: %w", i, err)
		}
	}

	c.wg.Add(1)
	go c.consume()

	if err := c.source.Start(); err != nil {
		c.Shutdown()
		return fmt.Errorf("failed to start scribe source: %w", err)
	}

	if c.status != nil {
		if err := c.status.Start(); err != nil {
			c.Shutdown()
			return fmt.Errorf("failed to start status server: %w", err)
		}
	}

	c.logger.Info("msg", "Collector started",
		"component", "collector",
		"buffer_capacity", c.buffer.Capacity(),
		"filters", c.filters.Len(),
		"sinks", len(c.sinks),
		"status_enabled", c.status != nil)
	return nil
}

// Shutdown stops intake first, drains what was already acknowledged, then stops the sinks
func (c *Collector) Shutdown() {
	c.stopOnce.Do(func() {
		c.logger.Info("msg", "Shutting down collector", "component", "collector")

		if c.status != nil {
			c.status.Stop()
		}
		c.source.Stop()

		c.drain(drainTimeout)

		if c.cancel != nil {
			c.cancel()
		}
		c.wg.Wait()

		var wg sync.WaitGroup
		for _, s := range c.sinks {
			wg.Add(1)
			go func(s sink.Sink) {
				defer wg.Done()
				s.Stop()
			}(s)
		}
		wg.Wait()

		c.logger.Info("msg", "Collector shutdown complete",
			"component", "collector",
			"consumed", c.stats.TotalConsumed.Load(),
			"abandoned", c.stats.TotalAbandoned.Load())
	})
}

// drain waits for the consumer to empty the buffer
func (c *Collector) drain(timeout time.Duration) {
	if c.cancel == nil {
		return
	}

	deadline := time.Now().Add(timeout)
	for c.buffer.Len() > 0 {
		if time.Now().After(deadline) {
			c.logger.Warn("msg", "Drain timeout, discarding buffered messages",
				"component", "collector",
				"remaining", c.buffer.Len())
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func (c *Collector) consume() {
	defer c.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("msg", "Panic in collector consumer",
				"component", "collector",
				"panic", r)
		}
	}()

	for {
		msg, err := c.buffer.Next(c.ctx)
		if err != nil {
			if !errors.Is(err, context.Canceled) {
				c.logger.Debug("msg", "Collector consumer stopped",
					"component", "collector",
					"error", err)
			}
			return
		}
		c.dispatch(msg)
	}
}

// dispatch applies the filter chain and hands the message to every sink.
// A full sink blocks the consumer, so the process buffer fills and senders
// get TRY_LATER instead of losing acknowledged messages.
func (c *Collector) dispatch(msg *gelf.Message) {
	c.stats.TotalConsumed.Add(1)

	if !c.filters.Apply(msg) {
		c.stats.TotalFiltered.Add(1)
		return
	}

	for _, s := range c.sinks {
		select {
		case s.Input() <- msg:
			c.stats.TotalDelivered.Add(1)
		case <-c.ctx.Done():
			// Only reachable once the shutdown drain has timed out
			c.stats.TotalAbandoned.Add(1)
			c.logger.Warn("msg", "Abandoned message on shutdown, sink not accepting",
				"component", "collector",
				"sink", s.GetStats().Type)
		}
	}
}

// Processing reports whether the buffer is admitting messages
func (c *Collector) Processing() bool {
	return c.buffer.Processing()
}

// Pause makes every subsequent Log call answer TRY_LATER
func (c *Collector) Pause() {
	c.buffer.Pause()
	c.logger.Info("msg", "Processing paused", "component", "collector")
}

// Resume re-enables admission
func (c *Collector) Resume() {
	c.buffer.Resume()
	c.logger.Info("msg", "Processing resumed", "component", "collector")
}

// GetStats returns a snapshot of every component's counters
func (c *Collector) GetStats() map[string]any {
	sinkStats := make([]sink.SinkStats, 0, len(c.sinks))
	for _, s := range c.sinks {
		sinkStats = append(sinkStats, s.GetStats())
	}

	var uptime int
	if !c.stats.StartTime.IsZero() {
		uptime = int(time.Since(c.stats.StartTime).Seconds())
	}

	return map[string]any{
		"uptime_seconds":  uptime,
		"receiver":        c.receiver.Stats(),
		"buffer":          c.buffer.Stats(),
		"source":          c.source.GetStats(),
		"filters":         c.filters.GetStats(),
		"sinks":           sinkStats,
		"total_consumed":  c.stats.TotalConsumed.Load(),
		"total_filtered":  c.stats.TotalFiltered.Load(),
		"total_delivered": c.stats.TotalDelivered.Load(),
		"total_abandoned": c.stats.TotalAbandoned.Load(),
	}
}

// StatusAddr returns the bound status listener address, or "" when disabled
func (c *Collector) StatusAddr() string {
	if c.status == nil || c.status.Addr() == nil {
		return ""
	}
	return c.status.Addr().String()
}
