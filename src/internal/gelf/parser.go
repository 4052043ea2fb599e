// FILE: scribelog/src/internal/gelf/parser.go
package gelf

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
)

// DefaultMaxDecompressedSize bounds inflated payloads
const DefaultMaxDecompressedSize = 16 * 1024 * 1024

var (
	ErrEmptyPayload    = errors.New("empty GELF payload")
	ErrPayloadTooLarge = errors.New("decompressed GELF payload too large")
)

// Parser turns a raw GELF payload (plain, gzip or zlib JSON) into a Message
type Parser struct {
	maxDecompressed int64
	now             func() time.Time
}

// NewParser accepts plain, gzip and zlib compressed GELF JSON
func NewParser() *Parser {
	return &Parser{
		maxDecompressed: DefaultMaxDecompressedSize,
		now:             time.Now,
	}
}

// Parse decodes the payload. A nil error does not imply the message is complete.
func (p *Parser) Parse(payload []byte) (*Message, error) {
	if len(payload) == 0 {
		return nil, ErrEmptyPayload
	}

	data, err := p.decompress(payload)
	if err != nil {
		return nil, err
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("invalid GELF JSON: %w", err)
	}
	if raw == nil {
		return nil, fmt.Errorf("invalid GELF JSON: not an object")
	}

	msg := NewMessage(make(map[string]any, len(raw)+1))
	for key, value := range raw {
		if !strings.HasPrefix(key, "_") {
			msg.Fields[key] = value
			continue
		}
		// Additional fields lose their prefix; _id is reserved
		name := strings.TrimPrefix(key, "_")
		if name == "" || name == "id" {
			continue
		}
		msg.Fields[name] = value
	}

	if _, ok := msg.Fields[FieldTimestamp].(float64); !ok {
		now := p.now()
		msg.Fields[FieldTimestamp] = float64(now.UnixMilli()) / 1000.0
	}

	return msg, nil
}

func (p *Parser) decompress(payload []byte) ([]byte, error) {
	var (
		r   io.ReadCloser
		err error
	)

	switch {
	case isGzip(payload):
		r, err = gzip.NewReader(bytes.NewReader(payload))
	case isZlib(payload):
		r, err = zlib.NewReader(bytes.NewReader(payload))
	default:
		return payload, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open compressed GELF payload: %w", err)
	}
	defer r.Close()

	data, err := io.ReadAll(io.LimitReader(r, p.maxDecompressed+1))
	if err != nil {
		return nil, fmt.Errorf("decompress GELF payload: %w", err)
	}
	if int64(len(data)) > p.maxDecompressed {
		return nil, ErrPayloadTooLarge
	}
	return data, nil
}

func isGzip(b []byte) bool {
	return len(b) >= 2 && b[0] == 0x1f && b[1] == 0x8b
}

func isZlib(b []byte) bool {
	return len(b) >= 2 && b[0]&0x0f == 0x08 && (uint16(b[0])<<8|uint16(b[1]))%31 == 0
}
