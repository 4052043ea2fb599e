// FILE: scribelog/src/internal/codec/frame.go
package codec

import (
	"encoding/binary"
	"errors"
	"fmt"
)

const (
	// FrameHeaderLen is the size of the big-endian length prefix
	FrameHeaderLen = 4

	// DefaultMaxFrameLength matches the collector's default scribe_max_message_length
	DefaultMaxFrameLength = 16384000
)

var (
	ErrFrameTooLarge   = errors.New("frame too large")
	ErrIncompleteFrame = errors.New("incomplete frame")
)

// Peeker is the read side of a buffered connection (gnet.Conn satisfies it)
type Peeker interface {
	Peek(n int) ([]byte, error)
	InboundBuffered() int
}

// AppendFrame appends the length prefix and payload to dst
func AppendFrame(dst, payload []byte) []byte {
	dst = binary.BigEndian.AppendUint32(dst, uint32(len(payload)))
	return append(dst, payload...)
}

// PeekFrame returns a copy of the next complete frame payload without consuming it,
// along with the total number of bytes the caller must discard once done.
// Returns ErrIncompleteFrame until the whole frame is buffered.
func PeekFrame(p Peeker, maxFrame int) ([]byte, int, error) {
	if p.InboundBuffered() < FrameHeaderLen {
		return nil, 0, ErrIncompleteFrame
	}

	header, err := p.Peek(FrameHeaderLen)
	if err != nil {
		return nil, 0, ErrIncompleteFrame
	}

	size, err := frameSize(header, maxFrame)
	if err != nil {
		return nil, 0, err
	}

	total := FrameHeaderLen + size
	if p.InboundBuffered() < total {
		return nil, 0, ErrIncompleteFrame
	}

	buf, err := p.Peek(total)
	if err != nil {
		return nil, 0, ErrIncompleteFrame
	}

	// Peeked bytes are only valid until the next discard
	payload := make([]byte, size)
	copy(payload, buf[FrameHeaderLen:])
	return payload, total, nil
}

func frameSize(header []byte, maxFrame int) (int, error) {
	size := int32(binary.BigEndian.Uint32(header))
	if size < 0 {
		return 0, fmt.Errorf("%w: negative length %d", ErrFrameTooLarge, size)
	}
	if maxFrame > 0 && int(size) > maxFrame {
		return 0, fmt.Errorf("%w: %d bytes exceeds limit of %d", ErrFrameTooLarge, size, maxFrame)
	}
	return int(size), nil
}
