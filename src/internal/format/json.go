// FILE: scribelog/src/internal/format/json.go
package format

import (
	"fmt"

	"scribelog/src/internal/gelf"

	"github.com/goccy/go-json"
	"github.com/lixenwraith/log"
)

// JSONFormatter writes the message fields as one GELF JSON object per line
type JSONFormatter struct {
	pretty bool
	logger *log.Logger
}

// NewJSONFormatter creates a formatter writing one GELF object per line
func NewJSONFormatter(pretty bool, logger *log.Logger) *JSONFormatter {
	return &JSONFormatter{
		pretty: pretty,
		logger: logger,
	}
}

// Format renders the message fields as a single JSON line
func (f *JSONFormatter) Format(msg *gelf.Message) ([]byte, error) {
	if msg == nil {
		return nil, fmt.Errorf("nil message")
	}

	var result []byte
	var err error
	if f.pretty {
		result, err = json.MarshalIndent(msg.Fields, "", "  ")
	} else {
		result, err = json.Marshal(msg.Fields)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to marshal JSON: %w", err)
	}

	return append(result, '\n'), nil
}

// Name returns the formatter's type name.
func (f *JSONFormatter) Name() string {
	return "json"
}

// FormatBatch renders messages as a single JSON array, skipping unencodable ones
func (f *JSONFormatter) FormatBatch(msgs []*gelf.Message) ([]byte, error) {
	batch := make([]json.RawMessage, 0, len(msgs))

	for _, msg := range msgs {
		formatted, err := f.Format(msg)
		if err != nil {
			f.logger.Warn("msg", "Failed to format message in batch",
				"component", "json_formatter",
				"error", err)
			continue
		}
		batch = append(batch, formatted[:len(formatted)-1])
	}

	if f.pretty {
		return json.MarshalIndent(batch, "", "  ")
	}
	return json.Marshal(batch)
}
