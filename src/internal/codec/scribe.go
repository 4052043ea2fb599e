// FILE: scribelog/src/internal/codec/scribe.go
package codec

import (
	"context"
	"errors"
	"fmt"

	"scribelog/src/internal/core"

	"github.com/apache/thrift/lib/go/thrift"
)

// MethodLog is the only RPC exposed by the scribe service
const MethodLog = "Log"

var (
	ErrUnknownMethod = errors.New("unknown method")
	// Log expects a reply, so a oneway call is rejected rather than answered
	ErrInvalidMessageType = errors.New("invalid message type")
	ErrUnexpectedReply    = errors.New("unexpected reply")
)

// Scribe peers use TBinaryProtocol(strictRead=false, strictWrite=false)
func newProtocol(buf *thrift.TMemoryBuffer) *thrift.TBinaryProtocol {
	return thrift.NewTBinaryProtocolConf(buf, &thrift.TConfiguration{
		TBinaryStrictRead:  thrift.BoolPtr(false),
		TBinaryStrictWrite: thrift.BoolPtr(false),
	})
}

func readerFor(payload []byte) (*thrift.TMemoryBuffer, *thrift.TBinaryProtocol) {
	buf := thrift.NewTMemoryBufferLen(len(payload))
	_, _ = buf.Write(payload)
	return buf, newProtocol(buf)
}

// EncodeCall serializes a Log(messages) call, without the frame header
func EncodeCall(batch core.Batch, seqID int32) ([]byte, error) {
	ctx := context.Background()
	buf := thrift.NewTMemoryBufferLen(batch.Size() + 64)
	p := newProtocol(buf)

	if err := WriteCall(ctx, p, batch, seqID); err != nil {
		return nil, err
	}
	if err := p.Flush(ctx); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteCall writes a Log(messages) call to p. The caller flushes, which on a
// framed transport emits the length prefix.
func WriteCall(ctx context.Context, p thrift.TProtocol, batch core.Batch, seqID int32) error {
	if err := p.WriteMessageBegin(ctx, MethodLog, thrift.CALL, seqID); err != nil {
		return err
	}
	if err := p.WriteStructBegin(ctx, "Log_args"); err != nil {
		return err
	}
	if err := p.WriteFieldBegin(ctx, "messages", thrift.LIST, 1); err != nil {
		return err
	}
	if err := p.WriteListBegin(ctx, thrift.STRUCT, len(batch)); err != nil {
		return err
	}
	for _, entry := range batch {
		if err := writeEntry(ctx, p, entry); err != nil {
			return err
		}
	}
	if err := p.WriteListEnd(ctx); err != nil {
		return err
	}
	if err := p.WriteFieldEnd(ctx); err != nil {
		return err
	}
	if err := p.WriteFieldStop(ctx); err != nil {
		return err
	}
	if err := p.WriteStructEnd(ctx); err != nil {
		return err
	}
	return p.WriteMessageEnd(ctx)
}

func writeEntry(ctx context.Context, p thrift.TProtocol, entry core.LogEntry) error {
	if err := p.WriteStructBegin(ctx, "LogEntry"); err != nil {
		return err
	}
	if err := p.WriteFieldBegin(ctx, "category", thrift.STRING, 1); err != nil {
		return err
	}
	if err := p.WriteString(ctx, entry.Category); err != nil {
		return err
	}
	if err := p.WriteFieldEnd(ctx); err != nil {
		return err
	}
	if err := p.WriteFieldBegin(ctx, "message", thrift.STRING, 2); err != nil {
		return err
	}
	// binary and string share one encoding on the wire
	if err := p.WriteBinary(ctx, entry.Message); err != nil {
		return err
	}
	if err := p.WriteFieldEnd(ctx); err != nil {
		return err
	}
	if err := p.WriteFieldStop(ctx); err != nil {
		return err
	}
	return p.WriteStructEnd(ctx)
}

// DecodeCall parses a Log call. Any error invalidates the whole batch.
func DecodeCall(payload []byte) (core.Batch, int32, error) {
	ctx := context.Background()
	buf, p := readerFor(payload)

	name, typeID, seqID, err := p.ReadMessageBegin(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("read message header: %w", err)
	}
	if name != MethodLog {
		return nil, seqID, fmt.Errorf("%w: %q", ErrUnknownMethod, name)
	}
	if typeID != thrift.CALL {
		return nil, seqID, fmt.Errorf("%w: %d for %s", ErrInvalidMessageType, typeID, name)
	}

	if _, err := p.ReadStructBegin(ctx); err != nil {
		return nil, seqID, err
	}

	var batch core.Batch
	for {
		_, fieldType, fieldID, err := p.ReadFieldBegin(ctx)
		if err != nil {
			return nil, seqID, err
		}
		if fieldType == thrift.STOP {
			break
		}

		if fieldID == 1 && fieldType == thrift.LIST {
			batch, err = readEntries(ctx, buf, p)
			if err != nil {
				return nil, seqID, err
			}
		} else if err := p.Skip(ctx, fieldType); err != nil {
			return nil, seqID, err
		}

		if err := p.ReadFieldEnd(ctx); err != nil {
			return nil, seqID, err
		}
	}

	if err := p.ReadStructEnd(ctx); err != nil {
		return nil, seqID, err
	}
	if err := p.ReadMessageEnd(ctx); err != nil {
		return nil, seqID, err
	}
	return batch, seqID, nil
}

func readEntries(ctx context.Context, buf *thrift.TMemoryBuffer, p thrift.TProtocol) (core.Batch, error) {
	elemType, size, err := p.ReadListBegin(ctx)
	if err != nil {
		return nil, err
	}
	if elemType != thrift.STRUCT {
		return nil, fmt.Errorf("messages: expected list<struct>, got list<%d>", elemType)
	}
	// Every entry takes at least one byte (its field stop)
	if size < 0 || size > buf.Len() {
		return nil, fmt.Errorf("messages: invalid list size %d", size)
	}

	batch := make(core.Batch, 0, size)
	for i := 0; i < size; i++ {
		entry, err := readEntry(ctx, p)
		if err != nil {
			return nil, fmt.Errorf("messages[%d]: %w", i, err)
		}
		batch = append(batch, entry)
	}

	if err := p.ReadListEnd(ctx); err != nil {
		return nil, err
	}
	return batch, nil
}

func readEntry(ctx context.Context, p thrift.TProtocol) (core.LogEntry, error) {
	var entry core.LogEntry
	if _, err := p.ReadStructBegin(ctx); err != nil {
		return entry, err
	}

	for {
		_, fieldType, fieldID, err := p.ReadFieldBegin(ctx)
		if err != nil {
			return entry, err
		}
		if fieldType == thrift.STOP {
			break
		}

		switch {
		case fieldID == 1 && fieldType == thrift.STRING:
			if entry.Category, err = p.ReadString(ctx); err != nil {
				return entry, err
			}
		case fieldID == 2 && fieldType == thrift.STRING:
			if entry.Message, err = p.ReadBinary(ctx); err != nil {
				return entry, err
			}
		default:
			if err := p.Skip(ctx, fieldType); err != nil {
				return entry, err
			}
		}

		if err := p.ReadFieldEnd(ctx); err != nil {
			return entry, err
		}
	}

	return entry, p.ReadStructEnd(ctx)
}

// EncodeReply serializes the Log result carrying the admission code
func EncodeReply(seqID int32, code core.ResultCode) ([]byte, error) {
	ctx := context.Background()
	buf := thrift.NewTMemoryBufferLen(32)
	p := newProtocol(buf)

	if err := p.WriteMessageBegin(ctx, MethodLog, thrift.REPLY, seqID); err != nil {
		return nil, err
	}
	if err := p.WriteStructBegin(ctx, "Log_result"); err != nil {
		return nil, err
	}
	if err := p.WriteFieldBegin(ctx, "success", thrift.I32, 0); err != nil {
		return nil, err
	}
	if err := p.WriteI32(ctx, int32(code)); err != nil {
		return nil, err
	}
	if err := p.WriteFieldEnd(ctx); err != nil {
		return nil, err
	}
	if err := p.WriteFieldStop(ctx); err != nil {
		return nil, err
	}
	if err := p.WriteStructEnd(ctx); err != nil {
		return nil, err
	}
	if err := p.WriteMessageEnd(ctx); err != nil {
		return nil, err
	}
	if err := p.Flush(ctx); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// EncodeException serializes a TApplicationException reply
func EncodeException(seqID int32, exceptionType int32, message string) ([]byte, error) {
	ctx := context.Background()
	buf := thrift.NewTMemoryBufferLen(len(message) + 64)
	p := newProtocol(buf)

	if err := p.WriteMessageBegin(ctx, MethodLog, thrift.EXCEPTION, seqID); err != nil {
		return nil, err
	}
	appErr := thrift.NewTApplicationException(exceptionType, message)
	if err := appErr.Write(ctx, p); err != nil {
		return nil, err
	}
	if err := p.WriteMessageEnd(ctx); err != nil {
		return nil, err
	}
	if err := p.Flush(ctx); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeReply parses the server response to a Log call with the given sequence id.
// An EXCEPTION reply is returned as a thrift.TApplicationException error.
func DecodeReply(payload []byte, wantSeqID int32) (core.ResultCode, error) {
	_, p := readerFor(payload)
	return ReadReply(context.Background(), p, wantSeqID)
}

// ReadReply reads one Log reply message from p
func ReadReply(ctx context.Context, p thrift.TProtocol, wantSeqID int32) (core.ResultCode, error) {
	name, typeID, seqID, err := p.ReadMessageBegin(ctx)
	if err != nil {
		return core.NoResult, fmt.Errorf("read reply header: %w", err)
	}
	if name != MethodLog {
		return core.NoResult, fmt.Errorf("%w: method %q", ErrUnexpectedReply, name)
	}
	if seqID != wantSeqID {
		return core.NoResult, fmt.Errorf("%w: sequence id %d, want %d", ErrUnexpectedReply, seqID, wantSeqID)
	}

	switch typeID {
	case thrift.EXCEPTION:
		appErr := thrift.NewTApplicationException(thrift.UNKNOWN_APPLICATION_EXCEPTION, "Unknown Exception")
		if err := appErr.Read(ctx, p); err != nil {
			return core.NoResult, err
		}
		return core.NoResult, appErr
	case thrift.REPLY:
	default:
		return core.NoResult, fmt.Errorf("%w: message type %d", ErrUnexpectedReply, typeID)
	}

	if _, err := p.ReadStructBegin(ctx); err != nil {
		return core.NoResult, err
	}

	code, found := core.NoResult, false
	for {
		_, fieldType, fieldID, err := p.ReadFieldBegin(ctx)
		if err != nil {
			return core.NoResult, err
		}
		if fieldType == thrift.STOP {
			break
		}

		if fieldID == 0 && fieldType == thrift.I32 {
			v, err := p.ReadI32(ctx)
			if err != nil {
				return core.NoResult, err
			}
			code, found = core.ResultCode(v), true
		} else if err := p.Skip(ctx, fieldType); err != nil {
			return core.NoResult, err
		}

		if err := p.ReadFieldEnd(ctx); err != nil {
			return core.NoResult, err
		}
	}

	if err := p.ReadStructEnd(ctx); err != nil {
		return core.NoResult, err
	}
	if err := p.ReadMessageEnd(ctx); err != nil {
		return core.NoResult, err
	}
	if !found {
		return core.NoResult, fmt.Errorf("%w: Log failed, missing result", ErrUnexpectedReply)
	}
	return code, nil
}
