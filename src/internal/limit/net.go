// FILE: scribelog/src/internal/limit/net.go
package limit

import (
	"context"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"scribelog/src/internal/config"

	"github.com/lixenwraith/log"
	"golang.org/x/time/rate"
)

// DenialReason indicates why a connection was refused
type DenialReason string

const (
	ReasonAllowed        DenialReason = ""
	ReasonRateLimited    DenialReason = "Connection rate exceeded"
	ReasonPerIPLimited   DenialReason = "Per-IP connection limit exceeded"
	ReasonTotalLimited   DenialReason = "Total connection limit exceeded"
	ReasonInvalidAddress DenialReason = "Invalid remote address"
)

const (
	staleTimeout        = 5 * time.Minute
	defaultCleanupEvery = time.Minute
)

// ConnLimiter gates accepted scribe connections by rate and concurrency
type ConnLimiter struct {
	config config.NetLimitConfig
	logger *log.Logger

	ipLimiters map[string]*ipLimiter
	ipMu       sync.Mutex

	total atomic.Int64

	// Statistics
	totalChecked     atomic.Uint64
	blockedByRate    atomic.Uint64
	blockedByPerIP   atomic.Uint64
	blockedByTotal   atomic.Uint64
	blockedByInvalid atomic.Uint64

	ctx         context.Context
	cancel      context.CancelFunc
	cleanupDone chan struct{}
}

type ipLimiter struct {
	limiter     *rate.Limiter
	connections int64
	lastSeen    time.Time
}

// NewConnLimiter returns nil when limiting is disabled; a nil limiter allows everything
func NewConnLimiter(cfg *config.NetLimitConfig, logger *log.Logger) *ConnLimiter {
	if cfg == nil || !cfg.Enabled {
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	l := &ConnLimiter{
		config:      *cfg,
		logger:      logger,
		ipLimiters:  make(map[string]*ipLimiter),
		ctx:         ctx,
		cancel:      cancel,
		cleanupDone: make(chan struct{}),
	}

	go l.cleanupLoop(defaultCleanupEvery)

	logger.Info("msg", "Connection limiter initialized",
		"component", "netlimit",
		"connections_per_second", cfg.ConnectionsPerSecond,
		"burst_size", cfg.BurstSize,
		"max_connections_per_ip", cfg.MaxConnectionsPerIP,
		"max_connections_total", cfg.MaxConnectionsTotal)

	return l
}

// Admit checks and, when allowed, registers a new connection from remoteAddr.
// Every admitted connection must be paired with a Release.
func (l *ConnLimiter) Admit(remoteAddr net.Addr) DenialReason {
	if l == nil {
		return ReasonAllowed
	}

	l.totalChecked.Add(1)

	ip := hostOf(remoteAddr)
	if ip == "" {
		l.blockedByInvalid.Add(1)
		return ReasonInvalidAddress
	}

	if maxTotal := l.config.MaxConnectionsTotal; maxTotal > 0 && l.total.Load() >= maxTotal {
		l.blockedByTotal.Add(1)
		return ReasonTotalLimited
	}

	l.ipMu.Lock()
	lim, exists := l.ipLimiters[ip]
	if !exists {
		lim = &ipLimiter{
			limiter: rate.NewLimiter(rate.Limit(l.config.ConnectionsPerSecond), int(l.config.BurstSize)),
		}
		l.ipLimiters[ip] = lim
	}
	lim.lastSeen = time.Now()

	if maxPerIP := l.config.MaxConnectionsPerIP; maxPerIP > 0 && lim.connections >= maxPerIP {
		l.ipMu.Unlock()
		l.blockedByPerIP.Add(1)
		return ReasonPerIPLimited
	}

	if !lim.limiter.Allow() {
		l.ipMu.Unlock()
		l.blockedByRate.Add(1)
		return ReasonRateLimited
	}

	lim.connections++
	l.ipMu.Unlock()

	l.total.Add(1)
	return ReasonAllowed
}

// Release unregisters a connection previously admitted
func (l *ConnLimiter) Release(remoteAddr net.Addr) {
	if l == nil {
		return
	}

	ip := hostOf(remoteAddr)
	if ip == "" {
		return
	}

	l.ipMu.Lock()
	if lim, exists := l.ipLimiters[ip]; exists && lim.connections > 0 {
		lim.connections--
		lim.lastSeen = time.Now()
		l.total.Add(-1)
	}
	l.ipMu.Unlock()
}

// Shutdown stops the cleanup goroutine
func (l *ConnLimiter) Shutdown() {
	if l == nil {
		return
	}

	l.cancel()

	select {
	case <-l.cleanupDone:
	case <-time.After(2 * time.Second):
		l.logger.Warn("msg", "Cleanup goroutine shutdown timeout", "component", "netlimit")
	}
}

// GetStats returns limiter statistics
func (l *ConnLimiter) GetStats() map[string]any {
	if l == nil {
		return map[string]any{"enabled": false}
	}

	l.ipMu.Lock()
	trackedIPs := len(l.ipLimiters)
	l.ipMu.Unlock()

	return map[string]any{
		"enabled":            true,
		"total_checked":      l.totalChecked.Load(),
		"active_connections": l.total.Load(),
		"tracked_ips":        trackedIPs,
		"blocked_breakdown": map[string]uint64{
			"rate_limit":   l.blockedByRate.Load(),
			"per_ip":       l.blockedByPerIP.Load(),
			"total":        l.blockedByTotal.Load(),
			"invalid_addr": l.blockedByInvalid.Load(),
		},
	}
}

func (l *ConnLimiter) cleanupLoop(every time.Duration) {
	defer close(l.cleanupDone)

	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-l.ctx.Done():
			return
		case <-ticker.C:
			l.cleanup(time.Now())
		}
	}
}

// cleanup drops idle per-IP state with no open connections
func (l *ConnLimiter) cleanup(now time.Time) int {
	l.ipMu.Lock()
	defer l.ipMu.Unlock()

	cleaned := 0
	for ip, lim := range l.ipLimiters {
		if lim.connections <= 0 && now.Sub(lim.lastSeen) > staleTimeout {
			delete(l.ipLimiters, ip)
			cleaned++
		}
	}

	if cleaned > 0 {
		l.logger.Debug("msg", "Cleaned up stale IP limiters",
			"component", "netlimit",
			"cleaned", cleaned,
			"remaining", len(l.ipLimiters))
	}
	return cleaned
}

func hostOf(addr net.Addr) string {
	if addr == nil {
		return ""
	}
	if tcpAddr, ok := addr.(*net.TCPAddr); ok {
		if tcpAddr.IP == nil {
			return ""
		}
		return tcpAddr.IP.String()
	}
	host, _, err := net.SplitHostPort(addr.String())
	if err != nil || net.ParseIP(host) == nil {
		return ""
	}
	return host
}
