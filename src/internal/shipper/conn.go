// FILE: scribelog/src/internal/shipper/conn.go
package shipper

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"scribelog/src/internal/codec"
	"scribelog/src/internal/core"

	"github.com/apache/thrift/lib/go/thrift"
)

// ErrNotOpen is returned by Log before Open or after Close
var ErrNotOpen = errors.New("connection not open")

// Transport delivers one batch per call and reports the peer's result code
type Transport interface {
	Open() error
	IsOpen() bool
	// Close must be idempotent
	Close() error
	Log(batch core.Batch) (core.ResultCode, error)
}

// ConnConfig holds the framed client connection settings
type ConnConfig struct {
	Host string
	Port int64
	// Bounds the dial and every read or write on the socket
	SocketTimeout time.Duration
	MaxFrame      int
}

// Conn is a Scribe client: TBinaryProtocol over TFramedTransport over TSocket.
// The transport stack is rebuilt on every Open so no partial frame from a
// failed call survives a reconnect.
type Conn struct {
	config ConnConfig
	addr   string
	tconf  *thrift.TConfiguration

	mu       sync.Mutex
	socket   *thrift.TSocket
	trans    *thrift.TFramedTransport
	protocol thrift.TProtocol
	seqID    int32
}

// NewConn prepares a connection to cfg.Host:cfg.Port without dialing
func NewConn(cfg ConnConfig) *Conn {
	if cfg.SocketTimeout <= 0 {
		cfg.SocketTimeout = 10 * time.Second
	}
	if cfg.MaxFrame <= 0 {
		cfg.MaxFrame = codec.DefaultMaxFrameLength
	}
	return &Conn{
		config: cfg,
		addr:   net.JoinHostPort(cfg.Host, strconv.FormatInt(cfg.Port, 10)),
		tconf: &thrift.TConfiguration{
			MaxFrameSize:       int32(cfg.MaxFrame),
			ConnectTimeout:     cfg.SocketTimeout,
			SocketTimeout:      cfg.SocketTimeout,
			TBinaryStrictRead:  thrift.BoolPtr(false),
			TBinaryStrictWrite: thrift.BoolPtr(false),
		},
	}
}

// Addr returns the host:port this connection dials
func (c *Conn) Addr() string {
	return c.addr
}

// Open dials the collector; it is a no-op on an open connection
func (c *Conn) Open() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.socket != nil {
		return nil
	}

	socket := thrift.NewTSocketConf(c.addr, c.tconf)
	trans := thrift.NewTFramedTransportConf(socket, c.tconf)
	if err := trans.Open(); err != nil {
		return fmt.Errorf("connect to %s: %w", c.addr, err)
	}

	c.socket = socket
	c.trans = trans
	c.protocol = thrift.NewTBinaryProtocolConf(trans, c.tconf)
	return nil
}

// IsOpen reports whether Open succeeded and Close has not been called since.
// A peer that went away is only noticed by the next Log.
func (c *Conn) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.socket != nil
}

// Close tolerates an already closed connection
func (c *Conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.trans == nil {
		return nil
	}
	err := c.trans.Close()
	c.socket, c.trans, c.protocol = nil, nil, nil
	if errors.Is(err, net.ErrClosed) {
		return nil
	}
	return err
}

// Log performs one Log RPC round trip within the socket timeout
func (c *Conn) Log(batch core.Batch) (core.ResultCode, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.protocol == nil {
		return core.NoResult, ErrNotOpen
	}

	c.seqID++
	seqID := c.seqID
	ctx := context.Background()

	if err := codec.WriteCall(ctx, c.protocol, batch, seqID); err != nil {
		return core.NoResult, fmt.Errorf("write Log call: %w", err)
	}
	if err := c.protocol.Flush(ctx); err != nil {
		return core.NoResult, fmt.Errorf("send Log call: %w", err)
	}

	return codec.ReadReply(ctx, c.protocol, seqID)
}
