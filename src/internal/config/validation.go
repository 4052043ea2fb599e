// FILE: scribelog/src/internal/config/validation.go
package config

import (
	"fmt"
	"regexp"

	lconfig "github.com/lixenwraith/config"
)

// validateConfig is the centralized validator for the entire configuration
func validateConfig(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}

	if cfg.Logging == nil {
		cfg.Logging = DefaultLogConfig()
	}
	if err := validateLogConfig(cfg.Logging); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	if err := validateCollector(&cfg.Collector); err != nil {
		return fmt.Errorf("collector: %w", err)
	}

	if err := validateShipper(&cfg.Shipper); err != nil {
		return fmt.Errorf("shipper: %w", err)
	}

	return nil
}

func validateLogConfig(cfg *LogConfig) error {
	validOutputs := map[string]bool{
		"file": true, "stdout": true, "stderr": true,
		"split": true, "all": true, "none": true,
	}
	if !validOutputs[cfg.Output] {
		return fmt.Errorf("invalid log output mode: %s", cfg.Output)
	}

	validLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLevels[cfg.Level] {
		return fmt.Errorf("invalid log level: %s", cfg.Level)
	}

	if cfg.Console != nil {
		validTargets := map[string]bool{
			"stdout": true, "stderr": true, "split": true,
		}
		if !validTargets[cfg.Console.Target] {
			return fmt.Errorf("invalid console target: %s", cfg.Console.Target)
		}

		validFormats := map[string]bool{
			"txt": true, "json": true, "": true,
		}
		if !validFormats[cfg.Console.Format] {
			return fmt.Errorf("invalid console format: %s", cfg.Console.Format)
		}
	}

	if (cfg.Output == "file" || cfg.Output == "all") && cfg.File == nil {
		return fmt.Errorf("output %s requires a [logging.file] section", cfg.Output)
	}

	return nil
}

func validateCollector(c *CollectorConfig) error {
	if err := lconfig.Port(c.Port); err != nil {
		return err
	}

	if c.Host != "" && c.Host != "0.0.0.0" {
		if err := lconfig.IPAddress(c.Host); err != nil {
			return err
		}
	}

	if c.MaxFrameLength < 1 {
		return fmt.Errorf("max_frame_length must be positive: %d", c.MaxFrameLength)
	}
	if c.WorkerThreads < 1 {
		return fmt.Errorf("worker_threads must be positive: %d", c.WorkerThreads)
	}
	if c.Buffer.Capacity < 1 {
		return fmt.Errorf("buffer capacity must be positive: %d", c.Buffer.Capacity)
	}

	if c.NetLimit != nil {
		if err := validateNetLimit(c.NetLimit); err != nil {
			return err
		}
	}

	if c.Status != nil && c.Status.Enabled {
		if err := lconfig.Port(c.Status.Port); err != nil {
			return fmt.Errorf("status: %w", err)
		}
		if c.Status.Port == c.Port {
			return fmt.Errorf("status port %d conflicts with scribe port", c.Status.Port)
		}
		if c.Status.Host != "" && c.Status.Host != "0.0.0.0" {
			if err := lconfig.IPAddress(c.Status.Host); err != nil {
				return fmt.Errorf("status: %w", err)
			}
		}
	}

	for i := range c.Filters {
		if err := validateFilter(i, &c.Filters[i]); err != nil {
			return err
		}
	}

	if len(c.Sinks) == 0 {
		return fmt.Errorf("no sinks configured")
	}
	for i := range c.Sinks {
		if err := validateSink(i, &c.Sinks[i]); err != nil {
			return err
		}
	}

	return nil
}

func validateNetLimit(nl *NetLimitConfig) error {
	if !nl.Enabled {
		return nil
	}

	if nl.ConnectionsPerSecond <= 0 {
		return fmt.Errorf("net_limit: connections_per_second must be positive")
	}
	if nl.BurstSize < 1 {
		return fmt.Errorf("net_limit: burst_size must be at least 1")
	}
	if nl.MaxConnectionsPerIP < 0 {
		return fmt.Errorf("net_limit: max_connections_per_ip cannot be negative")
	}
	if nl.MaxConnectionsTotal < 0 {
		return fmt.Errorf("net_limit: max_connections_total cannot be negative")
	}

	return nil
}

func validateFilter(index int, cfg *FilterConfig) error {
	switch cfg.Type {
	case FilterTypeInclude, FilterTypeExclude, "":
	default:
		return fmt.Errorf("filter[%d]: invalid type '%s' (must be 'include' or 'exclude')", index, cfg.Type)
	}

	switch cfg.Logic {
	case FilterLogicOr, FilterLogicAnd, "":
	default:
		return fmt.Errorf("filter[%d]: invalid logic '%s' (must be 'or' or 'and')", index, cfg.Logic)
	}

	for i, pattern := range cfg.Patterns {
		if _, err := regexp.Compile(pattern); err != nil {
			return fmt.Errorf("filter[%d] pattern[%d] '%s': invalid regex: %w", index, i, pattern, err)
		}
	}

	return nil
}

func validateSink(index int, s *SinkConfig) error {
	if err := lconfig.NonEmpty(s.Type); err != nil {
		return fmt.Errorf("sink[%d]: missing type", index)
	}

	switch s.Format {
	case "", "json", "txt":
	default:
		return fmt.Errorf("sink[%d]: unknown format '%s'", index, s.Format)
	}

	switch s.Type {
	case "stdout", "stderr", "split":
	case "file":
		if s.File == nil {
			return fmt.Errorf("sink[%d]: file sink requires a file section", index)
		}
		if err := lconfig.NonEmpty(s.File.Directory); err != nil {
			return fmt.Errorf("sink[%d]: file sink requires directory", index)
		}
		if err := lconfig.NonEmpty(s.File.Name); err != nil {
			return fmt.Errorf("sink[%d]: file sink requires name", index)
		}
		if s.File.MaxSizeMB < 0 || s.File.MaxTotalSizeMB < 0 || s.File.RetentionHours < 0 {
			return fmt.Errorf("sink[%d]: file size and retention limits cannot be negative", index)
		}
	default:
		return fmt.Errorf("sink[%d]: unknown sink type '%s'", index, s.Type)
	}

	return nil
}

func validateShipper(s *ShipperConfig) error {
	if err := lconfig.NonEmpty(s.Host); err != nil {
		return fmt.Errorf("host: %w", err)
	}
	if err := lconfig.Port(s.Port); err != nil {
		return err
	}
	if err := lconfig.NonEmpty(s.Category); err != nil {
		return fmt.Errorf("category: %w", err)
	}

	if s.SocketTimeoutMS < 1 {
		return fmt.Errorf("socket_timeout_ms must be positive: %d", s.SocketTimeoutMS)
	}
	if s.MinBackoffMS < 1 {
		return fmt.Errorf("min_backoff_ms must be positive: %d", s.MinBackoffMS)
	}
	if s.MaxBackoffMS < s.MinBackoffMS {
		return fmt.Errorf("max_backoff_ms %d is below min_backoff_ms %d", s.MaxBackoffMS, s.MinBackoffMS)
	}
	if s.MaxRetries < 1 {
		return fmt.Errorf("max_retries must be at least 1: %d", s.MaxRetries)
	}
	if s.QueueSize < 1 {
		return fmt.Errorf("queue_size must be positive: %d", s.QueueSize)
	}
	if s.BatchSize < 1 {
		return fmt.Errorf("batch_size must be positive: %d", s.BatchSize)
	}
	if s.ShortMessageLength < 1 {
		return fmt.Errorf("short_message_length must be positive: %d", s.ShortMessageLength)
	}

	return nil
}
