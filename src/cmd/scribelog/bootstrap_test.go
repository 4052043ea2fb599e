// FILE: scribelog/src/cmd/scribelog/bootstrap_test.go
package main

import (
	"testing"

	"scribelog/src/internal/config"

	"github.com/lixenwraith/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want int64
	}{
		{"debug", int64(log.LevelDebug)},
		{"INFO", int64(log.LevelInfo)},
		{"warning", int64(log.LevelWarn)},
		{"error", int64(log.LevelError)},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseLogLevel(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := parseLogLevel("trace")
	assert.Error(t, err)
}

func TestBootstrapSender(t *testing.T) {
	logger = log.NewLogger()

	t.Run("Valid", func(t *testing.T) {
		sender, converter, err := bootstrapSender(config.ShipperConfig{
			Host:               "127.0.0.1",
			Port:               1464,
			SocketTimeoutMS:    1000,
			MinBackoffMS:       100,
			MaxBackoffMS:       1000,
			MaxRetries:         3,
			ShortMessageLength: 80,
		})
		require.NoError(t, err)
		assert.NotNil(t, sender)
		assert.NotNil(t, converter)
		assert.Zero(t, sender.Buffered())
	})

	t.Run("InvalidPolicy", func(t *testing.T) {
		_, _, err := bootstrapSender(config.ShipperConfig{
			Host:         "127.0.0.1",
			Port:         1464,
			MinBackoffMS: 100,
			MaxBackoffMS: 1000,
			MaxRetries:   0,
		})
		assert.Error(t, err)
	})
}
