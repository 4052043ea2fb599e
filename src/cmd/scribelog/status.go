// FILE: scribelog/src/cmd/scribelog/status.go
package main

import (
	"context"
	"time"

	"scribelog/src/internal/buffer"
	"scribelog/src/internal/receiver"
	"scribelog/src/internal/service"
	"scribelog/src/internal/source"
)

const statusInterval = 30 * time.Second

// statusReporter periodically logs collector counters
func statusReporter(collector *service.Collector, ctx context.Context) {
	ticker := time.NewTicker(statusInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			func() {
				defer func() {
					if r := recover(); r != nil {
						logger.Error("msg", "Panic in status reporter",
							"component", "status_reporter",
							"panic", r)
					}
				}()
				logCollectorStatus(collector.GetStats())
			}()
		}
	}
}

func logCollectorStatus(stats map[string]any) {
	statusFields := []any{
		"msg", "Collector status",
		"component", "status_reporter",
	}

	if rcv, ok := stats["receiver"].(receiver.Stats); ok {
		statusFields = append(statusFields,
			"incoming", rcv.Incoming,
			"incomplete", rcv.Incomplete,
			"deferred", rcv.Deferred,
			"processed", rcv.Processed)
	}

	if buf, ok := stats["buffer"].(buffer.Stats); ok {
		statusFields = append(statusFields,
			"buffer_used", buf.Used,
			"buffer_capacity", buf.Capacity,
			"processing", buf.Processing)
	}

	if src, ok := stats["source"].(source.SourceStats); ok {
		statusFields = append(statusFields, "connections", src.Details["active_connections"])
	}

	if abandoned, ok := stats["total_abandoned"].(uint64); ok && abandoned > 0 {
		statusFields = append(statusFields, "sink_abandoned", abandoned)
	}

	logger.Debug(statusFields...)
}
