// FILE: scribelog/src/internal/gelf/converter.go
package gelf

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

const (
	// GELFVersion is the protocol version stamped on rendered messages
	GELFVersion = "1.0"

	DefaultShortMessageLength = 255
)

// Event is an application log record before rendering
type Event struct {
	Time    time.Time
	Level   int
	Message string
	Logger  string
	// Error and Stack describe an attached failure, both optional
	Error  string
	Stack  string
	Fields map[string]any
}

// ConverterConfig controls the static part of every rendered message
type ConverterConfig struct {
	Facility           string
	Host               string
	PID                string
	ShortMessageLength int
	UseLoggerName      bool
}

// Converter renders events as GELF JSON payloads
type Converter struct {
	cfg ConverterConfig
}

// NewConverter fills in the host name and pid when unset
func NewConverter(cfg ConverterConfig) *Converter {
	if cfg.Host == "" {
		if h, err := os.Hostname(); err == nil {
			cfg.Host = h
		} else {
			cfg.Host = "unknown"
		}
	}
	if cfg.PID == "" {
		cfg.PID = strconv.Itoa(os.Getpid())
	}
	if cfg.ShortMessageLength <= 0 {
		cfg.ShortMessageLength = DefaultShortMessageLength
	}
	return &Converter{cfg: cfg}
}

// Fields maps an event to GELF fields; additional fields carry the "_" prefix
func (c *Converter) Fields(e Event) map[string]any {
	fields := make(map[string]any, 10+len(e.Fields))

	fields[FieldFacility] = c.cfg.Facility
	fields[FieldHost] = c.cfg.Host
	fields["_pid"] = c.cfg.PID

	if e.Error != "" {
		full := e.Message + "\n" + e.Error
		if e.Stack != "" {
			full += "\n" + e.Stack
		}
		fields[FieldFullMessage] = full
		fields[FieldShortMessage] = c.truncate(e.Message + ", " + e.Error)
	} else {
		fields[FieldFullMessage] = e.Message
		fields[FieldShortMessage] = c.truncate(e.Message)
	}

	ts := e.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	fields[FieldTimestamp] = float64(ts.UnixMilli()) / 1000.0
	fields[FieldVersion] = GELFVersion
	fields[FieldLevel] = e.Level

	if c.cfg.UseLoggerName && e.Logger != "" {
		fields["_logger"] = e.Logger
	}

	for key, value := range e.Fields {
		if key == "" {
			continue
		}
		if !strings.HasPrefix(key, "_") {
			key = "_" + key
		}
		if key == "_id" {
			continue
		}
		fields[key] = value
	}

	return fields
}

// Render returns the JSON payload for an event
func (c *Converter) Render(e Event) ([]byte, error) {
	data, err := json.Marshal(c.Fields(e))
	if err != nil {
		return nil, fmt.Errorf("render GELF message: %w", err)
	}
	return data, nil
}

// truncate cuts at the first newline (unless leading) or at the configured length
func (c *Converter) truncate(full string) string {
	limit := c.cfg.ShortMessageLength
	if nl := strings.IndexByte(full, '\n'); nl > 0 {
		full = full[:nl]
	}

	runes := []rune(full)
	if len(runes) > limit {
		return string(runes[:limit])
	}
	return full
}
