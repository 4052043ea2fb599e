// FILE: scribelog/src/internal/format/format_test.go
package format

import (
	"testing"

	"scribelog/src/internal/config"
	"scribelog/src/internal/gelf"

	"github.com/lixenwraith/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger() *log.Logger {
	return log.NewLogger()
}

func testMessage() *gelf.Message {
	return gelf.NewMessage(map[string]any{
		gelf.FieldVersion:        "1.1",
		gelf.FieldHost:           "web-1",
		gelf.FieldShortMessage:   "order placed",
		gelf.FieldTimestamp:      1672574400.5,
		gelf.FieldLevel:          float64(gelf.LevelWarning),
		gelf.FieldScribeCategory: "shop",
		"order_id":               float64(42),
		"region":                 "eu",
	})
}

func TestNewFormatter(t *testing.T) {
	logger := newTestLogger()

	testCases := []struct {
		name        string
		cfg         config.SinkConfig
		expected    string
		expectError bool
	}{
		{name: "JSONFormatter", cfg: config.SinkConfig{Format: "json"}, expected: "json"},
		{name: "TxtFormatter", cfg: config.SinkConfig{Format: "txt"}, expected: "txt"},
		{name: "DefaultToJSON", cfg: config.SinkConfig{}, expected: "json"},
		{name: "UnknownFormatter", cfg: config.SinkConfig{Format: "xml"}, expectError: true},
		{name: "BadTemplate", cfg: config.SinkConfig{Format: "txt", Template: "{{.Message"}, expectError: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			formatter, err := NewFormatter(tc.cfg, logger)
			if tc.expectError {
				assert.Error(t, err)
				assert.Nil(t, formatter)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, formatter.Name())
		})
	}
}
