// FILE: scribelog/src/internal/format/format.go
package format

import (
	"fmt"

	"scribelog/src/internal/config"
	"scribelog/src/internal/gelf"

	"github.com/lixenwraith/log"
)

// Formatter renders an admitted message for a sink
type Formatter interface {
	Format(msg *gelf.Message) ([]byte, error)

	// Name returns the formatter type name
	Name() string
}

// NewFormatter picks the formatter named by the sink configuration, JSON by default
func NewFormatter(cfg config.SinkConfig, logger *log.Logger) (Formatter, error) {
	switch cfg.Format {
	case "json", "":
		return NewJSONFormatter(cfg.Pretty, logger), nil
	case "txt":
		return NewTxtFormatter(cfg.Template, logger)
	default:
		return nil, fmt.Errorf("unknown formatter type: %s", cfg.Format)
	}
}
