package api

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// AuthLimitConfig configures the per-IP AUTH rate limiter.
type AuthLimitConfig struct {
	PerSecond       float64       // AUTH attempts allowed per second per IP
	Burst           int           // Maximum burst size
	CleanupInterval time.Duration // How often to clean up stale limiters
}

// DefaultAuthLimitConfig returns production-safe defaults.
var DefaultAuthLimitConfig = AuthLimitConfig{
	PerSecond:       1,
	Burst:           5,
	CleanupInterval: 5 * time.Minute,
}

// ipLimiterEntry tracks per-IP rate limiting state
type ipLimiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// AuthRateLimiter throttles AUTH attempts per IP. Limiters for abandoned
// IPs are reaped periodically to prevent a memory leak.
type AuthRateLimiter struct {
	limiters sync.Map // map[string]*ipLimiterEntry
	config   AuthLimitConfig
	stopChan chan struct{}
	stopOnce sync.Once

	rejectedCount uint64 // atomic
}

// NewAuthRateLimiter creates the limiter and starts its cleanup loop.
func NewAuthRateLimiter(cfg AuthLimitConfig) *AuthRateLimiter {
	rl := &AuthRateLimiter{
		config:   cfg,
		stopChan: make(chan struct{}),
	}
	go rl.cleanupLoop()
	return rl
}

// Stop stops the cleanup goroutine.
func (rl *AuthRateLimiter) Stop() {
	rl.stopOnce.Do(func() {
		close(rl.stopChan)
	})
}

// Allow checks whether an AUTH attempt from the IP should proceed.
func (rl *AuthRateLimiter) Allow(ip string) bool {
	if rl.getLimiter(ip).Allow() {
		return true
	}
	atomic.AddUint64(&rl.rejectedCount, 1)
	recordConnectionRejected("auth_rate")
	return false
}

func (rl *AuthRateLimiter) getLimiter(ip string) *rate.Limiter {
	now := time.Now()

	if entry, ok := rl.limiters.Load(ip); ok {
		e := entry.(*ipLimiterEntry)
		e.lastSeen = now
		return e.limiter
	}

	entry := &ipLimiterEntry{
		limiter:  rate.NewLimiter(rate.Limit(rl.config.PerSecond), rl.config.Burst),
		lastSeen: now,
	}
	actual, _ := rl.limiters.LoadOrStore(ip, entry)
	return actual.(*ipLimiterEntry).limiter
}

func (rl *AuthRateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stopChan:
			return
		case <-ticker.C:
			rl.cleanup()
		}
	}
}

// cleanup removes limiters that haven't been used recently
func (rl *AuthRateLimiter) cleanup() {
	cutoff := time.Now().Add(-rl.config.CleanupInterval * 2)

	rl.limiters.Range(func(key, value interface{}) bool {
		entry := value.(*ipLimiterEntry)
		if entry.lastSeen.Before(cutoff) {
			rl.limiters.Delete(key)
		}
		return true
	})
}

// ConnectionLimiter caps concurrent websocket connections per IP.
type ConnectionLimiter struct {
	connections sync.Map // map[string]*int32 (atomic counter)
	maxPerIP    int

	rejectedCount uint64 // atomic
}

// NewConnectionLimiter creates a per-IP concurrent connection limiter.
func NewConnectionLimiter(maxPerIP int) *ConnectionLimiter {
	return &ConnectionLimiter{maxPerIP: maxPerIP}
}

// Allow reserves a connection slot for the IP. The caller must Release
// the slot when the connection ends (or the upgrade fails).
func (cl *ConnectionLimiter) Allow(ip string) bool {
	actual, _ := cl.connections.LoadOrStore(ip, new(int32))
	counter := actual.(*int32)

	// Atomically check and increment
	for {
		current := atomic.LoadInt32(counter)
		if int(current) >= cl.maxPerIP {
			atomic.AddUint64(&cl.rejectedCount, 1)
			recordConnectionRejected("conn_limit")
			return false
		}
		if atomic.CompareAndSwapInt32(counter, current, current+1) {
			return true
		}
	}
}

// Release frees a connection slot for the IP.
func (cl *ConnectionLimiter) Release(ip string) {
	if val, ok := cl.connections.Load(ip); ok {
		atomic.AddInt32(val.(*int32), -1)
	}
}

// Count returns the current connection count for an IP.
func (cl *ConnectionLimiter) Count(ip string) int {
	if val, ok := cl.connections.Load(ip); ok {
		return int(atomic.LoadInt32(val.(*int32)))
	}
	return 0
}

// GetClientIP extracts the client IP from an HTTP request.
// Handles X-Forwarded-For for proxied requests.
func GetClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		// First entry is the original client.
		// CAUTION: spoofable unless behind a trusted proxy
		if idx := strings.Index(xff, ","); idx >= 0 {
			return strings.TrimSpace(xff[:idx])
		}
		return strings.TrimSpace(xff)
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}
