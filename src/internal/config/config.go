// FILE: scribelog/src/internal/config/config.go
package config

// Config is the resolved configuration for both the collector and the shipper
type Config struct {
	// Top-level flags for application control
	ConfigFile string `toml:"config_file"`
	Quiet      bool   `toml:"quiet"`

	Collector CollectorConfig `toml:"collector"`
	Shipper   ShipperConfig   `toml:"shipper"`
	Logging   *LogConfig      `toml:"logging"`
}

// CollectorConfig configures the scribe RPC endpoint and its pipeline
type CollectorConfig struct {
	Host           string `toml:"host"`
	Port           int64  `toml:"port"`
	MaxFrameLength int64  `toml:"max_frame_length"`
	WorkerThreads  int64  `toml:"worker_threads"`
	Multicore      bool   `toml:"multicore"`

	Buffer   BufferConfig    `toml:"buffer"`
	NetLimit *NetLimitConfig `toml:"net_limit"`
	Status   *StatusConfig   `toml:"status"`
	Filters  []FilterConfig  `toml:"filters"`
	Sinks    []SinkConfig    `toml:"sinks"`
}

// BufferConfig sizes the process buffer in messages
type BufferConfig struct {
	// Maximum number of admitted messages awaiting processing
	Capacity int64 `toml:"capacity"`
}

// NetLimitConfig bounds the connection accept rate and concurrent connections
type NetLimitConfig struct {
	Enabled              bool    `toml:"enabled"`
	ConnectionsPerSecond float64 `toml:"connections_per_second"`
	BurstSize            int64   `toml:"burst_size"`
	MaxConnectionsPerIP  int64   `toml:"max_connections_per_ip"`
	MaxConnectionsTotal  int64   `toml:"max_connections_total"`
}

// StatusConfig enables the HTTP status and control endpoint
type StatusConfig struct {
	Enabled bool   `toml:"enabled"`
	Host    string `toml:"host"`
	Port    int64  `toml:"port"`
}

const (
	FilterTypeInclude = "include"
	FilterTypeExclude = "exclude"
	FilterLogicOr     = "or"
	FilterLogicAnd    = "and"
)

// FilterConfig is one include or exclude stage of the filter chain
type FilterConfig struct {
	Type     string   `toml:"type"`
	Logic    string   `toml:"logic"`
	Patterns []string `toml:"patterns"`
}

// SinkConfig selects a sink by type; file options apply to "file" only
type SinkConfig struct {
	Type string `toml:"type"`

	// Output format: "json" or "txt"
	Format   string `toml:"format"`
	Template string `toml:"template"`
	Pretty   bool   `toml:"pretty"`

	File *FileSinkConfig `toml:"file"`
}

// FileSinkConfig configures a rotating file sink
type FileSinkConfig struct {
	Directory      string  `toml:"directory"`
	Name           string  `toml:"name"`
	MaxSizeMB      int64   `toml:"max_size_mb"`
	MaxTotalSizeMB int64   `toml:"max_total_size_mb"`
	RetentionHours float64 `toml:"retention_hours"`
	BufferSize     int64   `toml:"buffer_size"`
}

// ShipperConfig configures the client side delivering entries to a collector
type ShipperConfig struct {
	Host               string `toml:"host"`
	Port               int64  `toml:"port"`
	Category           string `toml:"category"`
	SocketTimeoutMS    int64  `toml:"socket_timeout_ms"`
	MinBackoffMS       int64  `toml:"min_backoff_ms"`
	MaxBackoffMS       int64  `toml:"max_backoff_ms"`
	MaxRetries         int64  `toml:"max_retries"`
	QueueSize          int64  `toml:"queue_size"`
	BatchSize          int64  `toml:"batch_size"`
	Facility           string `toml:"facility"`
	ShortMessageLength int64  `toml:"short_message_length"`
}
