// FILE: scribelog/src/internal/format/txt.go
package format

import (
	"bytes"
	"fmt"
	"sort"
	"strings"
	"text/template"
	"time"

	"scribelog/src/internal/gelf"

	"github.com/lixenwraith/log"
)

const (
	DefaultTxtTemplate = "[{{FmtTime .Timestamp}}] [{{.Level}}] {{.Category}} {{.Host}} - {{.Message}}"
	txtTimestampFormat = time.RFC3339
)

// Fields rendered by the template directly and left out of .Extra
var standardFields = map[string]bool{
	gelf.FieldVersion:        true,
	gelf.FieldHost:           true,
	gelf.FieldShortMessage:   true,
	gelf.FieldFullMessage:    true,
	gelf.FieldTimestamp:      true,
	gelf.FieldLevel:          true,
	gelf.FieldScribeCategory: true,
}

// Produces human-readable text lines using templates
type TxtFormatter struct {
	template *template.Template
	logger   *log.Logger
}

// NewTxtFormatter parses tmpl once; an empty tmpl selects the default layout
func NewTxtFormatter(tmpl string, logger *log.Logger) (*TxtFormatter, error) {
	if tmpl == "" {
		tmpl = DefaultTxtTemplate
	}

	funcMap := template.FuncMap{
		"FmtTime": func(t time.Time) string {
			return t.Format(txtTimestampFormat)
		},
		"ToUpper":   strings.ToUpper,
		"ToLower":   strings.ToLower,
		"TrimSpace": strings.TrimSpace,
	}

	parsed, err := template.New("log").Funcs(funcMap).Parse(tmpl)
	if err != nil {
		return nil, fmt.Errorf("invalid template: %w", err)
	}

	return &TxtFormatter{
		template: parsed,
		logger:   logger,
	}, nil
}

// Format executes the template against the message
func (f *TxtFormatter) Format(msg *gelf.Message) ([]byte, error) {
	if msg == nil {
		return nil, fmt.Errorf("nil message")
	}

	data := map[string]any{
		"Timestamp": msg.Timestamp(),
		"Level":     gelf.LevelName(msg.Level()),
		"Category":  msg.Category(),
		"Host":      msg.Host(),
		"Facility":  msg.Facility(),
		"Message":   msg.ShortMessage(),
		"Extra":     extraFields(msg),
	}

	var buf bytes.Buffer
	if err := f.template.Execute(&buf, data); err != nil {
		f.logger.Debug("msg", "Template execution failed, using fallback",
			"component", "txt_formatter",
			"error", err)

		fallback := fmt.Sprintf("[%s] [%s] %s %s - %s\n",
			msg.Timestamp().Format(txtTimestampFormat),
			gelf.LevelName(msg.Level()),
			msg.Category(),
			msg.Host(),
			msg.ShortMessage())
		return []byte(fallback), nil
	}

	result := buf.Bytes()
	if len(result) == 0 || result[len(result)-1] != '\n' {
		result = append(result, '\n')
	}

	return result, nil
}

// Name returns the formatter's type name.
func (f *TxtFormatter) Name() string {
	return "txt"
}

// extraFields renders additional fields as sorted key=value pairs
func extraFields(msg *gelf.Message) string {
	keys := make([]string, 0, len(msg.Fields))
	for k := range msg.Fields {
		if !standardFields[k] {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	var sb strings.Builder
	for i, k := range keys {
		if i > 0 {
			sb.WriteByte(' ')
		}
		fmt.Fprintf(&sb, "%s=%v", k, msg.Fields[k])
	}
	return sb.String()
}
