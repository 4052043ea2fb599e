// FILE: scribelog/src/internal/config/loader.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	lconfig "github.com/lixenwraith/config"
)

const envPrefix = "SCRIBELOG_"

func defaults() *Config {
	return &Config{
		Collector: CollectorConfig{
			Host:           "127.0.0.1",
			Port:           1464,
			MaxFrameLength: 16384000,
			WorkerThreads:  5,
			Multicore:      true,
			Buffer: BufferConfig{
				Capacity: 1024,
			},
			NetLimit: &NetLimitConfig{
				Enabled:              false,
				ConnectionsPerSecond: 10,
				BurstSize:            20,
				MaxConnectionsPerIP:  16,
				MaxConnectionsTotal:  1024,
			},
			Status: &StatusConfig{
				Enabled: true,
				Host:    "127.0.0.1",
				Port:    9464,
			},
			Sinks: []SinkConfig{
				{Type: "stdout"},
			},
		},
		Shipper: ShipperConfig{
			Host:               "127.0.0.1",
			Port:               1464,
			Category:           "gelf",
			SocketTimeoutMS:    10000,
			MinBackoffMS:       100,
			MaxBackoffMS:       30000,
			MaxRetries:         50,
			QueueSize:          1000,
			BatchSize:          100,
			ShortMessageLength: 255,
		},
		Logging: DefaultLogConfig(),
	}
}

// Load builds the configuration from defaults, file, environment and CLI arguments
func Load(args []string) (*Config, error) {
	configPath, isExplicit := resolveConfigPath(args)

	cfg, err := lconfig.NewBuilder().
		WithDefaults(defaults()).
		WithEnvPrefix(envPrefix).
		WithFile(configPath).
		WithArgs(args).
		WithEnvTransform(customEnvTransform).
		WithSources(
			lconfig.SourceCLI,
			lconfig.SourceEnv,
			lconfig.SourceFile,
			lconfig.SourceDefault,
		).
		Build()

	if err != nil {
		// A missing default config file is not an error, an explicit one is
		if !strings.Contains(err.Error(), "not found") || isExplicit {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}

	finalConfig := &Config{}
	if err := cfg.Scan(finalConfig, ""); err != nil {
		return nil, fmt.Errorf("failed to scan config: %w", err)
	}
	finalConfig.ConfigFile = configPath

	return finalConfig, validateConfig(finalConfig)
}

func customEnvTransform(path string) string {
	env := strings.ReplaceAll(path, ".", "_")
	env = strings.ToUpper(env)
	env = envPrefix + env
	return env
}

// resolveConfigPath picks the config file: --config flag, then env, then defaults
func resolveConfigPath(args []string) (string, bool) {
	for i, arg := range args {
		switch {
		case arg == "--config" || arg == "-config":
			if i+1 < len(args) {
				return args[i+1], true
			}
		case strings.HasPrefix(arg, "--config="):
			return strings.TrimPrefix(arg, "--config="), true
		case strings.HasPrefix(arg, "-config="):
			return strings.TrimPrefix(arg, "-config="), true
		}
	}

	if configFile := os.Getenv(envPrefix + "CONFIG_FILE"); configFile != "" {
		return configFile, true
	}

	return GetConfigPath(), false
}

// GetConfigPath resolves the config file from the environment, then the user config dir
func GetConfigPath() string {
	if configFile := os.Getenv(envPrefix + "CONFIG_FILE"); configFile != "" {
		if filepath.IsAbs(configFile) {
			return configFile
		}
		if configDir := os.Getenv(envPrefix + "CONFIG_DIR"); configDir != "" {
			return filepath.Join(configDir, configFile)
		}
		return configFile
	}

	if configDir := os.Getenv(envPrefix + "CONFIG_DIR"); configDir != "" {
		return filepath.Join(configDir, "scribelog.toml")
	}

	if homeDir, err := os.UserHomeDir(); err == nil {
		return filepath.Join(homeDir, ".config", "scribelog.toml")
	}

	return "scribelog.toml"
}
