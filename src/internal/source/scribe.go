// FILE: scribelog/src/internal/source/scribe.go
package source

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"scribelog/src/internal/codec"
	"scribelog/src/internal/config"
	"scribelog/src/internal/core"
	"scribelog/src/internal/limit"

	"github.com/apache/thrift/lib/go/thrift"
	"github.com/lixenwraith/log"
	"github.com/lixenwraith/log/compat"
	"github.com/panjf2000/ants/v2"
	"github.com/panjf2000/gnet/v2"
)

const (
	// Delay before re-polling a connection whose request the worker pool refused
	overloadRetryDelay = 10 * time.Millisecond
	startupGrace       = 100 * time.Millisecond
)

// ScribeSource serves the scribe Log RPC over framed binary thrift.
// Requests on one connection are handled strictly one at a time; different
// connections are processed concurrently by a bounded worker pool.
type ScribeSource struct {
	host      string
	port      int64
	maxFrame  int
	workers   int
	multicore bool

	handler    Handler
	netLimiter *limit.ConnLimiter
	pool       *ants.Pool
	server     *scribeServer
	logger     *log.Logger

	engine   *gnet.Engine
	engineMu sync.Mutex
	wg       sync.WaitGroup
	ctx      context.Context
	cancel   context.CancelFunc
	stopOnce sync.Once

	// Statistics
	totalBatches    atomic.Uint64
	totalEntries    atomic.Uint64
	okReplies       atomic.Uint64
	tryLaterReplies atomic.Uint64
	exceptions      atomic.Uint64
	protocolErrors  atomic.Uint64
	rejectedConns   atomic.Uint64
	poolOverloads   atomic.Uint64
	activeConns     atomic.Int64
	startTime       time.Time
	lastBatchTime   atomic.Value // time.Time
}

// NewScribeSource creates the RPC endpoint; nothing listens until Start
func NewScribeSource(cfg config.CollectorConfig, handler Handler, logger *log.Logger) (*ScribeSource, error) {
	if handler == nil {
		return nil, fmt.Errorf("scribe source requires a handler")
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		return nil, fmt.Errorf("scribe source requires valid port, got %d", cfg.Port)
	}

	host := cfg.Host
	if host == "" {
		host = "0.0.0.0"
	}

	maxFrame := int(cfg.MaxFrameLength)
	if maxFrame <= 0 {
		maxFrame = codec.DefaultMaxFrameLength
	}

	workers := int(cfg.WorkerThreads)
	if workers <= 0 {
		workers = 5
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &ScribeSource{
		host:       host,
		port:       cfg.Port,
		maxFrame:   maxFrame,
		workers:    workers,
		multicore:  cfg.Multicore,
		handler:    handler,
		netLimiter: limit.NewConnLimiter(cfg.NetLimit, logger),
		logger:     logger,
		ctx:        ctx,
		cancel:     cancel,
		startTime:  time.Now(),
	}
	s.lastBatchTime.Store(time.Time{})

	return s, nil
}

// Start boots the gnet engine; a bind failure within the startup grace is returned
func (s *ScribeSource) Start() error {
	pool, err := ants.NewPool(s.workers, ants.WithNonblocking(true))
	if err != nil {
		return fmt.Errorf("failed to create worker pool: %w", err)
	}
	s.pool = pool
	s.server = &scribeServer{source: s}

	addr := fmt.Sprintf("tcp://%s:%d", s.host, s.port)
	gnetLogger := compat.NewGnetAdapter(s.logger)

	errChan := make(chan error, 1)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.logger.Info("msg", "Scribe source server starting",
			"component", "scribe_source",
			"address", addr,
			"workers", s.workers,
			"max_frame_length", s.maxFrame)

		err := gnet.Run(s.server, addr,
			gnet.WithLogger(gnetLogger),
			gnet.WithMulticore(s.multicore),
			gnet.WithReusePort(true),
		)
		if err != nil {
			s.logger.Error("msg", "Scribe source server failed",
				"component", "scribe_source",
				"port", s.port,
				"error", err)
		}
		errChan <- err
	}()

	// Wait briefly for server to start or fail
	select {
	case err := <-errChan:
		s.wg.Wait()
		s.pool.Release()
		s.pool = nil
		if err == nil {
			err = fmt.Errorf("scribe source server exited during startup")
		}
		return err
	case <-time.After(startupGrace):
		s.logger.Info("msg", "Scribe source started",
			"component", "scribe_source",
			"port", s.port)
		return nil
	}
}

// Stop closes the listener and all connections, then releases the worker pool
func (s *ScribeSource) Stop() {
	s.stopOnce.Do(func() {
		s.logger.Info("msg", "Stopping scribe source", "component", "scribe_source")
		s.cancel()

		s.engineMu.Lock()
		engine := s.engine
		s.engineMu.Unlock()

		if engine != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := engine.Stop(ctx); err != nil {
				s.logger.Warn("msg", "Engine stop returned error",
					"component", "scribe_source",
					"error", err)
			}
		}

		s.wg.Wait()

		if s.pool != nil {
			if err := s.pool.ReleaseTimeout(2 * time.Second); err != nil {
				s.logger.Warn("msg", "Worker pool release timed out",
					"component", "scribe_source",
					"error", err)
			}
		}

		s.netLimiter.Shutdown()

		s.logger.Info("msg", "Scribe source stopped", "component", "scribe_source")
	})
}

func (s *ScribeSource) GetStats() SourceStats {
	lastBatch, _ := s.lastBatchTime.Load().(time.Time)

	return SourceStats{
		Type:          "scribe",
		TotalBatches:  s.totalBatches.Load(),
		TotalEntries:  s.totalEntries.Load(),
		StartTime:     s.startTime,
		LastBatchTime: lastBatch,
		Details: map[string]any{
			"host":               s.host,
			"port":               s.port,
			"active_connections": s.activeConns.Load(),
			"ok_replies":         s.okReplies.Load(),
			"try_later_replies":  s.tryLaterReplies.Load(),
			"exceptions":         s.exceptions.Load(),
			"protocol_errors":    s.protocolErrors.Load(),
			"rejected_conns":     s.rejectedConns.Load(),
			"pool_overloads":     s.poolOverloads.Load(),
			"net_limit":          s.netLimiter.GetStats(),
		},
	}
}

// handle runs on a pool worker and produces the serialized reply frame.
// A nil reply with a non-nil error means the connection must be dropped.
func (s *ScribeSource) handle(payload []byte) ([]byte, error) {
	batch, seqID, err := codec.DecodeCall(payload)
	if err != nil {
		s.protocolErrors.Add(1)
		if errors.Is(err, codec.ErrUnknownMethod) {
			reply, encErr := codec.EncodeException(seqID, thrift.UNKNOWN_METHOD, err.Error())
			if encErr != nil {
				return nil, encErr
			}
			return codec.AppendFrame(nil, reply), nil
		}
		return nil, err
	}

	s.totalBatches.Add(1)
	s.totalEntries.Add(uint64(len(batch)))
	s.lastBatchTime.Store(time.Now())

	code, err := s.handler.Log(s.ctx, batch)

	var reply []byte
	if err != nil {
		s.exceptions.Add(1)
		s.logger.Error("msg", "Log call failed, replying with exception",
			"component", "scribe_source",
			"batch_size", len(batch),
			"error", err)
		reply, err = codec.EncodeException(seqID, thrift.INTERNAL_ERROR, err.Error())
	} else {
		if code == core.OK {
			s.okReplies.Add(1)
		} else {
			s.tryLaterReplies.Add(1)
		}
		reply, err = codec.EncodeReply(seqID, code)
	}
	if err != nil {
		return nil, err
	}
	return codec.AppendFrame(nil, reply), nil
}

// Per-connection state stored in the gnet connection context
type scribeConn struct {
	inFlight atomic.Bool
	admitted bool
	rejected bool
}

// Handles gnet events
type scribeServer struct {
	gnet.BuiltinEventEngine
	source *ScribeSource
}

func (srv *scribeServer) OnBoot(eng gnet.Engine) gnet.Action {
	srv.source.engineMu.Lock()
	srv.source.engine = &eng
	srv.source.engineMu.Unlock()

	srv.source.logger.Debug("msg", "Scribe source server booted",
		"component", "scribe_source",
		"port", srv.source.port)
	return gnet.None
}

func (srv *scribeServer) OnOpen(c gnet.Conn) (out []byte, action gnet.Action) {
	s := srv.source
	remoteAddr := c.RemoteAddr()

	state := &scribeConn{}
	if s.netLimiter != nil {
		if reason := s.netLimiter.Admit(remoteAddr); reason != limit.ReasonAllowed {
			s.rejectedConns.Add(1)
			s.logger.Warn("msg", "Scribe connection refused",
				"component", "scribe_source",
				"remote_addr", addrString(remoteAddr),
				"reason", string(reason))
			state.rejected = true
			c.SetContext(state)
			return nil, gnet.Close
		}
		state.admitted = true
	}
	c.SetContext(state)

	newCount := s.activeConns.Add(1)
	s.logger.Debug("msg", "Scribe connection opened",
		"component", "scribe_source",
		"remote_addr", addrString(remoteAddr),
		"active_connections", newCount)
	return nil, gnet.None
}

func (srv *scribeServer) OnClose(c gnet.Conn, err error) gnet.Action {
	s := srv.source

	state, _ := c.Context().(*scribeConn)
	if state == nil || state.rejected {
		return gnet.None
	}

	if state.admitted {
		s.netLimiter.Release(c.RemoteAddr())
	}

	newCount := s.activeConns.Add(-1)
	s.logger.Debug("msg", "Scribe connection closed",
		"component", "scribe_source",
		"remote_addr", addrString(c.RemoteAddr()),
		"active_connections", newCount,
		"error", err)
	return gnet.None
}

func (srv *scribeServer) OnTraffic(c gnet.Conn) gnet.Action {
	s := srv.source

	state, ok := c.Context().(*scribeConn)
	if !ok {
		return gnet.Close
	}

	// Replies must stay in request order; the next frame waits for the current one
	if state.inFlight.Load() {
		return gnet.None
	}

	payload, n, err := codec.PeekFrame(c, s.maxFrame)
	if errors.Is(err, codec.ErrIncompleteFrame) {
		return gnet.None
	}
	if err != nil {
		s.protocolErrors.Add(1)
		s.logger.Warn("msg", "Invalid frame, closing connection",
			"component", "scribe_source",
			"remote_addr", addrString(c.RemoteAddr()),
			"error", err)
		return gnet.Close
	}

	state.inFlight.Store(true)
	err = s.pool.Submit(func() {
		srv.process(c, state, payload)
	})
	if err != nil {
		state.inFlight.Store(false)
		if errors.Is(err, ants.ErrPoolOverload) {
			// Leave the frame buffered and poll again shortly
			s.poolOverloads.Add(1)
			time.AfterFunc(overloadRetryDelay, func() {
				_ = c.Wake(nil)
			})
			return gnet.None
		}
		s.logger.Error("msg", "Failed to dispatch request",
			"component", "scribe_source",
			"error", err)
		return gnet.Close
	}

	if _, err := c.Discard(n); err != nil {
		return gnet.Close
	}
	return gnet.None
}

// process runs off the event loop and writes the reply back asynchronously
func (srv *scribeServer) process(c gnet.Conn, state *scribeConn, payload []byte) {
	s := srv.source

	reply, err := s.handle(payload)
	if err != nil {
		s.logger.Warn("msg", "Malformed request, closing connection",
			"component", "scribe_source",
			"remote_addr", addrString(c.RemoteAddr()),
			"error", err)
		_ = c.Close()
		return
	}

	err = c.AsyncWrite(reply, func(c gnet.Conn, err error) error {
		state.inFlight.Store(false)
		if err != nil {
			return err
		}
		// Pipelined frames already buffered would otherwise wait for new traffic
		if c.InboundBuffered() > 0 {
			return c.Wake(nil)
		}
		return nil
	})
	if err != nil {
		s.logger.Debug("msg", "Reply write failed",
			"component", "scribe_source",
			"error", err)
	}
}

func addrString(addr net.Addr) string {
	if addr == nil {
		return ""
	}
	return addr.String()
}
