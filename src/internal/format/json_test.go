// FILE: scribelog/src/internal/format/json_test.go
package format

import (
	"strings"
	"testing"

	"scribelog/src/internal/gelf"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONFormatter_Format(t *testing.T) {
	logger := newTestLogger()

	t.Run("BasicFormatting", func(t *testing.T) {
		output, err := NewJSONFormatter(false, logger).Format(testMessage())
		require.NoError(t, err)
		assert.True(t, strings.HasSuffix(string(output), "\n"))
		assert.Equal(t, 1, strings.Count(string(output), "\n"))

		var result map[string]any
		require.NoError(t, json.Unmarshal(output, &result))
		assert.Equal(t, "order placed", result["short_message"])
		assert.Equal(t, "shop", result["scribe_category"])
		assert.Equal(t, float64(42), result["order_id"])
	})

	t.Run("RoundTripsThroughParser", func(t *testing.T) {
		output, err := NewJSONFormatter(false, logger).Format(testMessage())
		require.NoError(t, err)

		parsed, err := gelf.NewParser().Parse(output)
		require.NoError(t, err)
		assert.True(t, parsed.Complete())
		assert.Equal(t, gelf.LevelWarning, parsed.Level())
	})

	t.Run("PrettyFormatting", func(t *testing.T) {
		output, err := NewJSONFormatter(true, logger).Format(testMessage())
		require.NoError(t, err)
		assert.Contains(t, string(output), `  "host": "web-1"`)
	})

	t.Run("NilMessage", func(t *testing.T) {
		_, err := NewJSONFormatter(false, logger).Format(nil)
		assert.Error(t, err)
	})
}

func TestJSONFormatter_FormatBatch(t *testing.T) {
	f := NewJSONFormatter(false, newTestLogger())

	output, err := f.FormatBatch([]*gelf.Message{testMessage(), nil, testMessage()})
	require.NoError(t, err)

	var result []map[string]any
	require.NoError(t, json.Unmarshal(output, &result))
	assert.Len(t, result, 2)
	assert.Equal(t, "web-1", result[1]["host"])
}
