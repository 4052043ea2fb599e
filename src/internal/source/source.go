// FILE: scribelog/src/internal/source/source.go
package source

import (
	"context"
	"time"

	"scribelog/src/internal/core"
)

// Handler processes one decoded Log call
type Handler interface {
	Log(ctx context.Context, batch core.Batch) (core.ResultCode, error)
}

// Represents a network endpoint delivering batches to a Handler
type Source interface {
	// Begins accepting connections
	Start() error

	// Gracefully shuts down the source
	Stop()

	// Returns source statistics
	GetStats() SourceStats
}

// Contains statistics about a source
type SourceStats struct {
	Type          string         `json:"type"`
	TotalBatches  uint64         `json:"total_batches"`
	TotalEntries  uint64         `json:"total_entries"`
	StartTime     time.Time      `json:"start_time"`
	LastBatchTime time.Time      `json:"last_batch_time"`
	Details       map[string]any `json:"details"`
}
