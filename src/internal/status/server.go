// FILE: scribelog/src/internal/status/server.go
package status

import (
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/lixenwraith/log"
	"github.com/valyala/fasthttp"
)

// Controller is the collector surface exposed over HTTP
type Controller interface {
	GetStats() map[string]any
	Processing() bool
	Pause()
	Resume()
}

// Server exposes collector statistics and the processing switch
type Server struct {
	host       string
	port       int64
	controller Controller
	server     *fasthttp.Server
	listener   net.Listener
	wg         sync.WaitGroup
	logger     *log.Logger
	startTime  time.Time
}

// NewServer creates an unstarted status server for controller
func NewServer(host string, port int64, controller Controller, logger *log.Logger) *Server {
	return &Server{
		host:       host,
		port:       port,
		controller: controller,
		logger:     logger,
		startTime:  time.Now(),
	}
}

// Start binds synchronously so address errors surface to the caller
func (s *Server) Start() error {
	addr := net.JoinHostPort(s.host, fmt.Sprint(s.port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("status server listen on %s: %w", addr, err)
	}
	s.listener = ln

	s.server = &fasthttp.Server{
		Handler:          s.requestHandler,
		Name:             "scribelog",
		ReadTimeout:      5 * time.Second,
		WriteTimeout:     5 * time.Second,
		CloseOnShutdown:  true,
		DisableKeepalive: false,
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.server.Serve(ln); err != nil {
			s.logger.Error("msg", "Status server failed",
				"component", "status",
				"address", addr,
				"error", err)
		}
	}()

	s.logger.Info("msg", "Status server started",
		"component", "status",
		"address", addr)
	return nil
}

// Addr returns the bound address, or nil before Start
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Stop closes the listener and waits for open requests to finish
func (s *Server) Stop() {
	if s.server == nil {
		return
	}
	if err := s.server.Shutdown(); err != nil {
		s.logger.Error("msg", "Error shutting down status server",
			"component", "status",
			"error", err)
	}
	s.wg.Wait()
	s.logger.Info("msg", "Status server stopped", "component", "status")
}

func (s *Server) requestHandler(ctx *fasthttp.RequestCtx) {
	path := string(ctx.Path())
	method := string(ctx.Method())

	switch path {
	case "/health":
		if method != fasthttp.MethodGet {
			s.writeError(ctx, fasthttp.StatusMethodNotAllowed, "Method Not Allowed")
			return
		}
		s.writeJSON(ctx, fasthttp.StatusOK, map[string]any{
			"status":     "ok",
			"processing": s.controller.Processing(),
			"uptime":     time.Since(s.startTime).Round(time.Second).String(),
		})

	case "/status":
		if method != fasthttp.MethodGet {
			s.writeError(ctx, fasthttp.StatusMethodNotAllowed, "Method Not Allowed")
			return
		}
		s.writeJSON(ctx, fasthttp.StatusOK, s.controller.GetStats())

	case "/processing/pause", "/processing/resume":
		if method != fasthttp.MethodPost {
			s.writeError(ctx, fasthttp.StatusMethodNotAllowed, "Method Not Allowed")
			return
		}
		if path == "/processing/pause" {
			s.controller.Pause()
		} else {
			s.controller.Resume()
		}
		processing := s.controller.Processing()
		s.logger.Info("msg", "Processing state changed",
			"component", "status",
			"processing", processing,
			"remote_addr", ctx.RemoteAddr().String())
		s.writeJSON(ctx, fasthttp.StatusOK, map[string]any{
			"processing": processing,
		})

	default:
		s.writeError(ctx, fasthttp.StatusNotFound, "Not Found")
	}
}

func (s *Server) writeJSON(ctx *fasthttp.RequestCtx, status int, body any) {
	data, err := json.Marshal(body)
	if err != nil {
		ctx.SetStatusCode(fasthttp.StatusInternalServerError)
		return
	}
	ctx.SetStatusCode(status)
	ctx.SetContentType("application/json")
	ctx.SetBody(data)
}

func (s *Server) writeError(ctx *fasthttp.RequestCtx, status int, message string) {
	s.writeJSON(ctx, status, map[string]string{"error": message})
}
