// FILE: scribelog/src/internal/shipper/shipper_test.go
package shipper

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"testing"
	"time"

	"scribelog/src/internal/codec"
	"scribelog/src/internal/core"
	"scribelog/src/internal/retry"

	"github.com/apache/thrift/lib/go/thrift"
	"github.com/lixenwraith/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// step scripts one Log call on fakeTransport
type step struct {
	code core.ResultCode
	err  error
}

type fakeTransport struct {
	mu       sync.Mutex
	open     bool
	openErrs []error
	steps    []step
	opens    int
	closes   int
	// closes of an open connection; closing an already closed one is a no-op
	drops     int
	logCalls  int
	delivered []core.Batch
}

func (f *fakeTransport) Open() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.opens++
	if len(f.openErrs) > 0 {
		err := f.openErrs[0]
		f.openErrs = f.openErrs[1:]
		if err != nil {
			return err
		}
	}
	f.open = true
	return nil
}

func (f *fakeTransport) IsOpen() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.open
}

func (f *fakeTransport) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closes++
	if f.open {
		f.drops++
	}
	f.open = false
	return nil
}

func (f *fakeTransport) Log(batch core.Batch) (core.ResultCode, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logCalls++

	s := step{code: core.OK}
	if len(f.steps) > 0 {
		s = f.steps[0]
		if len(f.steps) > 1 {
			f.steps = f.steps[1:]
		}
	}
	if s.err == nil && s.code == core.OK {
		f.delivered = append(f.delivered, append(core.Batch(nil), batch...))
	}
	return s.code, s.err
}

type recordingSleeper struct {
	sleeps []time.Duration
}

func (s *recordingSleeper) Sleep(d time.Duration) {
	s.sleeps = append(s.sleeps, d)
}

func testPolicy(maxRetries int) retry.Policy {
	return retry.Policy{
		MaxRetries: maxRetries,
		MinBackoff: 100 * time.Millisecond,
		MaxBackoff: 30 * time.Second,
	}
}

func entries(n int) []core.LogEntry {
	out := make([]core.LogEntry, n)
	for i := range out {
		out[i] = core.LogEntry{Category: "gelf", Message: []byte(fmt.Sprintf(`{"short_message":"m%d","host":"h"}`, i))}
	}
	return out
}

func newTestSender(t *testing.T, tr Transport, maxRetries int) (*Sender, *recordingSleeper) {
	t.Helper()
	sleeper := &recordingSleeper{}
	s, err := NewSender(tr, testPolicy(maxRetries), sleeper, log.NewLogger())
	require.NoError(t, err)
	return s, sleeper
}

func TestSender_FlushEmpty(t *testing.T) {
	tr := &fakeTransport{}
	s, sleeper := newTestSender(t, tr, 3)

	require.NoError(t, s.Flush())
	assert.Zero(t, tr.opens, "no connection for an empty flush")
	assert.Zero(t, tr.logCalls)
	assert.Empty(t, sleeper.sleeps)
}

func TestSender_ImmediateAccept(t *testing.T) {
	tr := &fakeTransport{}
	s, sleeper := newTestSender(t, tr, 50)

	s.Append(entries(3)...)
	assert.Equal(t, 3, s.Buffered())
	assert.Zero(t, tr.opens, "connect is lazy")

	require.NoError(t, s.Flush())
	assert.Equal(t, 0, s.Buffered())
	assert.Equal(t, 1, tr.logCalls)
	assert.Empty(t, sleeper.sleeps)
	require.Len(t, tr.delivered, 1)
	assert.Len(t, tr.delivered[0], 3)

	stats := s.Stats()
	assert.Equal(t, uint64(1), stats.Attempts)
	assert.Equal(t, uint64(1), stats.Successes)
	assert.Equal(t, uint64(3), stats.EntriesSent)
	assert.Equal(t, uint64(1), stats.Reconnects)
}

func TestSender_TryLaterTwiceThenOK(t *testing.T) {
	tr := &fakeTransport{steps: []step{{code: core.TryLater}, {code: core.TryLater}, {code: core.OK}}}
	s, sleeper := newTestSender(t, tr, 50)

	s.Append(entries(2)...)
	require.NoError(t, s.Flush())

	assert.Equal(t, 3, tr.logCalls)
	assert.Equal(t, []time.Duration{100 * time.Millisecond, 200 * time.Millisecond}, sleeper.sleeps)
	assert.Equal(t, 1, tr.opens, "TRY_LATER keeps the connection")
	assert.Equal(t, 1, tr.closes, "only the close preceding the first open")
	assert.Zero(t, tr.drops, "TRY_LATER never closes an open connection")
	assert.Equal(t, 0, s.Buffered())
}

func TestSender_Exhaustion(t *testing.T) {
	t.Run("AlwaysTryLater", func(t *testing.T) {
		tr := &fakeTransport{steps: []step{{code: core.TryLater}}}
		s, sleeper := newTestSender(t, tr, 5)

		s.Append(entries(4)...)
		err := s.Flush()
		require.Error(t, err)

		var derr *DeliveryError
		require.True(t, errors.As(err, &derr))
		assert.ErrorIs(t, err, ErrDeliveryFailed)
		assert.Equal(t, 5, derr.Attempts)
		assert.Equal(t, 4, derr.Entries)
		assert.NoError(t, derr.Err)

		assert.Equal(t, 5, tr.logCalls)
		assert.Len(t, sleeper.sleeps, 5)
		assert.Equal(t, 0, s.Buffered())
		assert.Equal(t, uint64(4), s.Stats().EntriesFailed)
	})

	t.Run("AlwaysErrors", func(t *testing.T) {
		errReset := errors.New("connection reset by peer")
		tr := &fakeTransport{steps: []step{{err: errReset}}}
		s, _ := newTestSender(t, tr, 3)

		s.Append(entries(1)...)
		err := s.Flush()

		assert.ErrorIs(t, err, ErrDeliveryFailed)
		assert.ErrorIs(t, err, errReset)
		assert.Equal(t, 3, tr.logCalls)
		assert.Equal(t, 3, tr.opens, "each failure forces a reopen")
		assert.Equal(t, 0, s.Buffered())
	})

	t.Run("OpenFailuresCountAsAttempts", func(t *testing.T) {
		errRefused := errors.New("connection refused")
		tr := &fakeTransport{openErrs: []error{errRefused, errRefused, errRefused}}
		s, sleeper := newTestSender(t, tr, 3)

		s.Append(entries(2)...)
		err := s.Flush()

		assert.ErrorIs(t, err, errRefused)
		assert.Zero(t, tr.logCalls)
		assert.Equal(t, 3, tr.opens)
		assert.Len(t, sleeper.sleeps, 3)
		assert.Equal(t, 0, s.Buffered())
	})
}

func TestSender_RecoversAfterTransportError(t *testing.T) {
	tr := &fakeTransport{steps: []step{{err: errors.New("i/o timeout")}, {code: core.OK}}}
	s, sleeper := newTestSender(t, tr, 5)

	s.Append(entries(1)...)
	require.NoError(t, s.Flush())

	assert.Equal(t, 2, tr.opens)
	assert.GreaterOrEqual(t, tr.closes, 2, "close before reopen is tolerated")
	assert.Equal(t, []time.Duration{100 * time.Millisecond}, sleeper.sleeps)
	assert.Equal(t, uint64(2), s.Stats().Reconnects)
}

func TestSender_NextFlushIsIndependent(t *testing.T) {
	tr := &fakeTransport{steps: []step{{code: core.TryLater}, {code: core.OK}}}
	s, _ := newTestSender(t, tr, 1)

	s.Append(entries(2)...)
	require.Error(t, s.Flush())

	s.Append(entries(1)...)
	require.NoError(t, s.Flush())
	require.Len(t, tr.delivered, 1)
	assert.Len(t, tr.delivered[0], 1, "failed entries are not carried over")
}

func TestNewSender_InvalidPolicy(t *testing.T) {
	_, err := NewSender(&fakeTransport{}, retry.Policy{}, nil, log.NewLogger())
	assert.Error(t, err)
}

// scribeServer answers each framed Log call with the scripted result codes
// readFrame and writeFrame play the collector's side of the framed transport
func readFrame(r io.Reader) ([]byte, error) {
	var header [codec.FrameHeaderLen]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, err
	}
	payload := make([]byte, binary.BigEndian.Uint32(header[:]))
	_, err := io.ReadFull(r, payload)
	return payload, err
}

func writeFrame(w io.Writer, payload []byte) error {
	_, err := w.Write(codec.AppendFrame(nil, payload))
	return err
}

func scribeServer(t *testing.T, codes ...core.ResultCode) (*net.TCPAddr, <-chan core.Batch) {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	received := make(chan core.Batch, 16)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		for i := 0; ; i++ {
			payload, err := readFrame(conn)
			if err != nil {
				return
			}
			batch, seqID, err := codec.DecodeCall(payload)
			if err != nil {
				return
			}
			received <- batch

			code := core.OK
			if i < len(codes) {
				code = codes[i]
			}
			reply, _ := codec.EncodeReply(seqID, code)
			if err := writeFrame(conn, reply); err != nil {
				return
			}
		}
	}()

	return ln.Addr().(*net.TCPAddr), received
}

func TestConn_Loopback(t *testing.T) {
	addr, received := scribeServer(t, core.TryLater, core.OK)

	c := NewConn(ConnConfig{Host: "127.0.0.1", Port: int64(addr.Port), SocketTimeout: 2 * time.Second})
	assert.False(t, c.IsOpen())

	_, err := c.Log(core.Batch(entries(1)))
	assert.ErrorIs(t, err, ErrNotOpen)

	require.NoError(t, c.Open())
	assert.True(t, c.IsOpen())

	code, err := c.Log(core.Batch(entries(2)))
	require.NoError(t, err)
	assert.Equal(t, core.TryLater, code)

	code, err = c.Log(core.Batch(entries(2)))
	require.NoError(t, err)
	assert.Equal(t, core.OK, code)

	batch := <-received
	require.Len(t, batch, 2)
	assert.Equal(t, "gelf", batch[0].Category)

	require.NoError(t, c.Close())
	require.NoError(t, c.Close(), "close is idempotent")
	assert.False(t, c.IsOpen())
}

func TestConn_ServerException(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		payload, err := readFrame(conn)
		if err != nil {
			return
		}
		_, seqID, _ := codec.DecodeCall(payload)
		reply, _ := codec.EncodeException(seqID, thrift.INTERNAL_ERROR, "process buffer too small")
		_ = writeFrame(conn, reply)
	}()

	c := NewConn(ConnConfig{Host: "127.0.0.1", Port: int64(ln.Addr().(*net.TCPAddr).Port), SocketTimeout: 2 * time.Second})
	require.NoError(t, c.Open())
	defer c.Close()

	_, err = c.Log(core.Batch(entries(1)))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "process buffer too small")
}

func TestConn_ReplyFrameTooLarge(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		payload, err := readFrame(conn)
		if err != nil {
			return
		}
		_, seqID, _ := codec.DecodeCall(payload)
		reply, _ := codec.EncodeException(seqID, thrift.INTERNAL_ERROR, string(make([]byte, 512)))
		_ = writeFrame(conn, reply)
	}()

	c := NewConn(ConnConfig{
		Host:          "127.0.0.1",
		Port:          int64(ln.Addr().(*net.TCPAddr).Port),
		SocketTimeout: 2 * time.Second,
		MaxFrame:      256,
	})
	require.NoError(t, c.Open())
	defer c.Close()

	_, err = c.Log(core.Batch(entries(1)))
	require.Error(t, err)
	var appErr thrift.TApplicationException
	assert.False(t, errors.As(err, &appErr), "oversized reply is rejected before decoding")
}

func TestConn_ReadTimeout(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	hold := make(chan struct{})
	defer close(hold)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		<-hold
	}()

	c := NewConn(ConnConfig{Host: "127.0.0.1", Port: int64(ln.Addr().(*net.TCPAddr).Port), SocketTimeout: 50 * time.Millisecond})
	require.NoError(t, c.Open())
	defer c.Close()

	_, err = c.Log(core.Batch(entries(1)))
	require.Error(t, err)
	var netErr net.Error
	require.True(t, errors.As(err, &netErr))
	assert.True(t, netErr.Timeout())
}

func TestSender_OverConn(t *testing.T) {
	addr, received := scribeServer(t, core.TryLater)

	conn := NewConn(ConnConfig{Host: "127.0.0.1", Port: int64(addr.Port), SocketTimeout: 2 * time.Second})
	s, sleeper := newTestSender(t, conn, 5)
	defer s.Close()

	s.Append(entries(3)...)
	require.NoError(t, s.Flush())

	assert.Len(t, sleeper.sleeps, 1)
	assert.Len(t, <-received, 3)
	assert.Len(t, <-received, 3)
}

func TestAsyncSender(t *testing.T) {
	t.Run("DeliversInOrder", func(t *testing.T) {
		tr := &fakeTransport{}
		s, _ := newTestSender(t, tr, 3)
		a := NewAsyncSender(s, 10, log.NewLogger())
		a.Start()

		for i := 0; i < 5; i++ {
			assert.True(t, a.Submit(entries(1)...))
		}
		a.Stop()

		tr.mu.Lock()
		defer tr.mu.Unlock()
		assert.Len(t, tr.delivered, 5)
		assert.Equal(t, uint64(5), a.Stats().EntriesSent)
		assert.False(t, tr.open, "transport closed on stop")
	})

	t.Run("DropsWhenFull", func(t *testing.T) {
		tr := &fakeTransport{}
		s, _ := newTestSender(t, tr, 3)
		a := NewAsyncSender(s, 2, log.NewLogger())

		// Not started, so nothing drains the queue
		assert.True(t, a.Submit(entries(1)...))
		assert.True(t, a.Submit(entries(1)...))
		assert.False(t, a.Submit(entries(3)...))
		assert.Equal(t, uint64(3), a.Stats().Dropped)
		assert.Equal(t, 2, a.Stats().Queued)

		a.Stop()
		assert.False(t, a.Submit(entries(1)...), "submit after stop")
	})

	t.Run("FailuresAreSwallowed", func(t *testing.T) {
		tr := &fakeTransport{steps: []step{{err: errors.New("broken pipe")}}}
		s, _ := newTestSender(t, tr, 2)
		a := NewAsyncSender(s, 4, log.NewLogger())
		a.Start()

		assert.True(t, a.Submit(entries(2)...))
		a.Stop()

		stats := a.Stats()
		assert.Equal(t, uint64(1), stats.Failures)
		assert.Equal(t, uint64(2), stats.EntriesFailed)
	})
}
