// FILE: scribelog/src/internal/format/txt_test.go
package format

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTxtFormatter_Format(t *testing.T) {
	logger := newTestLogger()

	t.Run("DefaultTemplate", func(t *testing.T) {
		f, err := NewTxtFormatter("", logger)
		require.NoError(t, err)

		output, err := f.Format(testMessage())
		require.NoError(t, err)
		assert.Equal(t, "[2023-01-01T12:00:00Z] [WARN] shop web-1 - order placed\n", string(output))
	})

	t.Run("CustomTemplateWithExtra", func(t *testing.T) {
		f, err := NewTxtFormatter("{{ToLower .Level}} {{.Message}} {{.Extra}}", logger)
		require.NoError(t, err)

		output, err := f.Format(testMessage())
		require.NoError(t, err)
		assert.Equal(t, "warn order placed order_id=42 region=eu\n", string(output))
	})

	t.Run("FallbackOnExecutionError", func(t *testing.T) {
		f, err := NewTxtFormatter("{{.Message.Missing}}", logger)
		require.NoError(t, err)

		output, err := f.Format(testMessage())
		require.NoError(t, err)
		assert.Contains(t, string(output), "[WARN] shop web-1 - order placed")
	})
}
