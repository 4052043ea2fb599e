// FILE: scribelog/src/internal/filter/chain.go
package filter

import (
	"fmt"
	"sync/atomic"

	"scribelog/src/internal/config"
	"scribelog/src/internal/gelf"

	"github.com/lixenwraith/log"
)

// Chain applies filters in order; a message must pass every one
type Chain struct {
	filters []*Filter
	logger  *log.Logger

	// Statistics
	totalProcessed atomic.Uint64
	totalPassed    atomic.Uint64
}

// NewChain compiles every filter; any invalid pattern fails the whole chain
func NewChain(configs []config.FilterConfig, logger *log.Logger) (*Chain, error) {
	chain := &Chain{
		filters: make([]*Filter, 0, len(configs)),
		logger:  logger,
	}

	for i, cfg := range configs {
		filter, err := NewFilter(cfg, logger)
		if err != nil {
			return nil, fmt.Errorf("filter[%d]: %w", i, err)
		}
		chain.filters = append(chain.filters, filter)
	}

	logger.Info("msg", "Filter chain created",
		"component", "filter_chain",
		"filter_count", len(configs))
	return chain, nil
}

// Apply runs a message through all filters in the chain.
func (c *Chain) Apply(msg *gelf.Message) bool {
	c.totalProcessed.Add(1)

	for i, filter := range c.filters {
		if !filter.Apply(msg) {
			c.logger.Debug("msg", "Message filtered out",
				"component", "filter_chain",
				"filter_index", i,
				"filter_type", filter.config.Type,
				"category", msg.Category())
			return false
		}
	}

	c.totalPassed.Add(1)
	return true
}

// Len returns the number of configured filters
func (c *Chain) Len() int {
	return len(c.filters)
}

// GetStats returns chain-level and per-filter counters
func (c *Chain) GetStats() map[string]any {
	filterStats := make([]map[string]any, len(c.filters))
	for i, filter := range c.filters {
		filterStats[i] = filter.GetStats()
	}

	return map[string]any{
		"filter_count":    len(c.filters),
		"total_processed": c.totalProcessed.Load(),
		"total_passed":    c.totalPassed.Load(),
		"filters":         filterStats,
	}
}
