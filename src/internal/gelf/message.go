// FILE: scribelog/src/internal/gelf/message.go
package gelf

import (
	"fmt"
	"time"
)

// Standard GELF field names
const (
	FieldVersion      = "version"
	FieldHost         = "host"
	FieldShortMessage = "short_message"
	FieldFullMessage  = "full_message"
	FieldTimestamp    = "timestamp"
	FieldLevel        = "level"
	FieldFacility     = "facility"
	FieldLine         = "line"
	FieldFile         = "file"

	// FieldScribeCategory is attached by the collector to every admitted message
	FieldScribeCategory = "scribe_category"
)

// Syslog severities used as GELF levels
const (
	LevelEmergency = 0
	LevelAlert     = 1
	LevelCritical  = 2
	LevelError     = 3
	LevelWarning   = 4
	LevelNotice    = 5
	LevelInfo      = 6
	LevelDebug     = 7
)

// Message is a parsed structured log message
type Message struct {
	Fields map[string]any
}

// NewMessage wraps fields without copying them
func NewMessage(fields map[string]any) *Message {
	if fields == nil {
		fields = make(map[string]any)
	}
	return &Message{Fields: fields}
}

// Complete reports whether the message carries the fields needed for processing
func (m *Message) Complete() bool {
	return m != nil && m.ShortMessage() != "" && m.Host() != ""
}

// AddField overwrites any existing value for key
func (m *Message) AddField(key string, value any) {
	m.Fields[key] = value
}

func (m *Message) ShortMessage() string {
	return m.stringField(FieldShortMessage)
}

func (m *Message) Host() string {
	return m.stringField(FieldHost)
}

func (m *Message) Facility() string {
	return m.stringField(FieldFacility)
}

// Category is the scribe category the message arrived under
func (m *Message) Category() string {
	return m.stringField(FieldScribeCategory)
}

// Level returns the syslog severity, defaulting to LevelAlert like other GELF inputs
func (m *Message) Level() int {
	switch v := m.Fields[FieldLevel].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case int64:
		return int(v)
	default:
		return LevelAlert
	}
}

// Timestamp converts the GELF seconds value; zero when absent
func (m *Message) Timestamp() time.Time {
	switch v := m.Fields[FieldTimestamp].(type) {
	case float64:
		sec := int64(v)
		return time.Unix(sec, int64((v-float64(sec))*1e9)).UTC()
	case time.Time:
		return v
	default:
		return time.Time{}
	}
}

func (m *Message) stringField(key string) string {
	switch v := m.Fields[key].(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

// LevelName maps a syslog severity to a short name
func LevelName(level int) string {
	switch level {
	case LevelEmergency:
		return "EMERG"
	case LevelAlert:
		return "ALERT"
	case LevelCritical:
		return "CRIT"
	case LevelError:
		return "ERROR"
	case LevelWarning:
		return "WARN"
	case LevelNotice:
		return "NOTICE"
	case LevelInfo:
		return "INFO"
	case LevelDebug:
		return "DEBUG"
	default:
		return fmt.Sprintf("LEVEL%d", level)
	}
}
