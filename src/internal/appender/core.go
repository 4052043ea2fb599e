// FILE: scribelog/src/internal/appender/core.go
package appender

import (
	"scribelog/src/internal/core"
	"scribelog/src/internal/gelf"

	"go.uber.org/zap/zapcore"
)

// Submitter accepts entries for background delivery without blocking
type Submitter interface {
	Submit(entries ...core.LogEntry) bool
}

// Core is a zapcore.Core that ships every entry as a GELF message over scribe.
// Delivery problems never reach the application: Write only fails on render errors.
type Core struct {
	zapcore.LevelEnabler

	converter *gelf.Converter
	submitter Submitter
	category  string
	fields    []zapcore.Field
}

// NewCore builds a zap core that ships entries at or above enabler under category
func NewCore(enabler zapcore.LevelEnabler, converter *gelf.Converter, submitter Submitter, category string) *Core {
	return &Core{
		LevelEnabler: enabler,
		converter:    converter,
		submitter:    submitter,
		category:     category,
	}
}

func (c *Core) With(fields []zapcore.Field) zapcore.Core {
	clone := *c
	clone.fields = make([]zapcore.Field, 0, len(c.fields)+len(fields))
	clone.fields = append(clone.fields, c.fields...)
	clone.fields = append(clone.fields, fields...)
	return &clone
}

func (c *Core) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}
	return ce
}

// Write never returns delivery errors; a full queue drops the entry
func (c *Core) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	enc := zapcore.NewMapObjectEncoder()
	for i := range c.fields {
		c.fields[i].AddTo(enc)
	}
	for i := range fields {
		fields[i].AddTo(enc)
	}

	event := gelf.Event{
		Time:    ent.Time,
		Level:   SyslogLevel(ent.Level),
		Message: ent.Message,
		Logger:  ent.LoggerName,
		Stack:   ent.Stack,
		Fields:  enc.Fields,
	}
	if errText, ok := enc.Fields["error"].(string); ok {
		event.Error = errText
		delete(enc.Fields, "error")
	}
	if ent.Caller.Defined {
		enc.Fields[gelf.FieldFile] = ent.Caller.File
		enc.Fields[gelf.FieldLine] = ent.Caller.Line
	}

	payload, err := c.converter.Render(event)
	if err != nil {
		return err
	}

	// A full queue drops the entry, the async sender counts it
	c.submitter.Submit(core.LogEntry{Category: c.category, Message: payload})
	return nil
}

// Sync is a no-op; delivery happens on the async sender
func (c *Core) Sync() error {
	return nil
}

// SyslogLevel maps zap levels to syslog severities
func SyslogLevel(l zapcore.Level) int {
	switch l {
	case zapcore.DebugLevel:
		return gelf.LevelDebug
	case zapcore.InfoLevel:
		return gelf.LevelInfo
	case zapcore.WarnLevel:
		return gelf.LevelWarning
	case zapcore.ErrorLevel:
		return gelf.LevelError
	case zapcore.DPanicLevel, zapcore.PanicLevel:
		return gelf.LevelCritical
	case zapcore.FatalLevel:
		return gelf.LevelEmergency
	default:
		return gelf.LevelInfo
	}
}
