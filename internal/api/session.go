package api

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
)

const (
	// sendQueueSize bounds each session's outbound queue. A peer that
	// cannot drain this many frames starts losing them.
	sendQueueSize = 256

	writeTimeout = 10 * time.Second

	// maxMessageSize caps inbound frames (DoS protection).
	maxMessageSize = 4096
)

// SessionKind tells bot connections and spectator connections apart.
// The kind is fixed by the endpoint the peer connected to.
type SessionKind string

const (
	KindBot       SessionKind = "bot"
	KindSpectator SessionKind = "spectator"
)

// Session is one websocket connection. Outbound traffic flows through a
// bounded FIFO channel drained by a single writer goroutine, so sends
// never block callers and frames to one peer stay ordered.
type Session struct {
	ID   string
	IP   string
	Kind SessionKind

	conn       *websocket.Conn
	send       chan []byte
	msgLimiter *rate.Limiter

	mu           sync.Mutex
	botID        string
	lastActivity time.Time

	closeOnce sync.Once
	closed    chan struct{}
}

// NewSession wraps an upgraded connection. The caller starts the write
// pump.
func NewSession(conn *websocket.Conn, ip string, kind SessionKind, messagesPerSecond float64, messageBurst int) *Session {
	return &Session{
		ID:           uuid.New().String(),
		IP:           ip,
		Kind:         kind,
		conn:         conn,
		send:         make(chan []byte, sendQueueSize),
		msgLimiter:   rate.NewLimiter(rate.Limit(messagesPerSecond), messageBurst),
		lastActivity: time.Now(),
		closed:       make(chan struct{}),
	}
}

// BotID returns the bound bot identity, or "" before AUTH.
func (s *Session) BotID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.botID
}

func (s *Session) bindBot(botID string) {
	s.mu.Lock()
	s.botID = botID
	s.mu.Unlock()
}

// Touch stamps activity for staleness tracking.
func (s *Session) Touch() {
	s.mu.Lock()
	s.lastActivity = time.Now()
	s.mu.Unlock()
}

// IdleSince returns the last activity timestamp.
func (s *Session) IdleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActivity
}

// allowMessage applies the per-session inbound rate limit.
func (s *Session) allowMessage() bool {
	return s.msgLimiter.Allow()
}

// TrySend queues a frame without blocking. A full queue drops the frame:
// a slow spectator must never stall a match tick.
func (s *Session) TrySend(msg []byte) {
	select {
	case <-s.closed:
	case s.send <- msg:
	default:
		recordSendDropped()
	}
}

// WritePump drains the send queue onto the wire until the session
// closes. Run on its own goroutine, one per session.
func (s *Session) WritePump() {
	for {
		select {
		case <-s.closed:
			return
		case msg := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := s.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				s.Close(websocket.CloseAbnormalClosure)
				return
			}
			recordMessageSent()
		}
	}
}

// Close shuts the session down with the given close code. Idempotent;
// a best-effort close frame precedes the TCP close.
func (s *Session) Close(code int) {
	s.closeOnce.Do(func() {
		close(s.closed)
		msg := websocket.FormatCloseMessage(code, "")
		s.conn.SetWriteDeadline(time.Now().Add(time.Second))
		s.conn.WriteMessage(websocket.CloseMessage, msg)
		s.conn.Close()
	})
}

// Closed reports whether the session has shut down.
func (s *Session) Closed() bool {
	select {
	case <-s.closed:
		return true
	default:
		return false
	}
}
