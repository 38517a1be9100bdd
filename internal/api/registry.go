package api

import (
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Registry is the connection registry: every live session, a secondary
// index from bot identity to its single session, and per-match spectator
// sets. All methods are safe for concurrent use.
type Registry struct {
	mu         sync.RWMutex
	sessions   map[string]*Session
	byBot      map[string]*Session
	spectators map[string]map[string]*Session // match id → session id → session
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		sessions:   make(map[string]*Session),
		byBot:      make(map[string]*Session),
		spectators: make(map[string]map[string]*Session),
	}
}

// Add registers a freshly upgraded session.
func (r *Registry) Add(s *Session) {
	r.mu.Lock()
	r.sessions[s.ID] = s
	count := len(r.sessions)
	r.mu.Unlock()
	updateConnectionCount(count)
}

// Remove drops a session from every index. Idempotent; does not close
// the transport.
func (r *Registry) Remove(sessionID string) {
	r.mu.Lock()
	s, ok := r.sessions[sessionID]
	if ok {
		delete(r.sessions, sessionID)
		if botID := s.BotID(); botID != "" && r.byBot[botID] == s {
			delete(r.byBot, botID)
		}
		for matchID, set := range r.spectators {
			delete(set, sessionID)
			if len(set) == 0 {
				delete(r.spectators, matchID)
			}
		}
	}
	count := len(r.sessions)
	r.mu.Unlock()
	updateConnectionCount(count)
}

// BindBot binds a session to a bot identity. At most one session per
// identity: an existing binding is evicted and its transport closed, so
// a re-auth from a new connection silently replaces the old one.
func (r *Registry) BindBot(s *Session, botID string) {
	r.mu.Lock()
	prev := r.byBot[botID]
	r.byBot[botID] = s
	s.bindBot(botID)
	r.mu.Unlock()

	if prev != nil && prev != s {
		log.Printf("🔁 Bot %s re-authenticated, evicting previous session", botID)
		prev.Close(CloseAuthFailed)
	}
}

// Bot returns the session bound to the bot identity, or nil.
func (r *Registry) Bot(botID string) *Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.byBot[botID]
}

// AddSpectator subscribes a session to a match's state feed.
func (r *Registry) AddSpectator(matchID string, s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	set, ok := r.spectators[matchID]
	if !ok {
		set = make(map[string]*Session)
		r.spectators[matchID] = set
	}
	set[s.ID] = s
}

// ClearSpectators drops the spectator set of a finished match.
func (r *Registry) ClearSpectators(matchID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.spectators, matchID)
}

// SendToBot pushes a frame to the bot's session, if online. Silent no-op
// otherwise.
func (r *Registry) SendToBot(botID string, msg []byte) {
	if s := r.Bot(botID); s != nil {
		s.TrySend(msg)
	}
}

// BroadcastToSpectators fans a frame out to every spectator of the
// match. The frame is serialized once; dead or slow peers are skipped.
func (r *Registry) BroadcastToSpectators(matchID string, msg []byte) {
	r.mu.RLock()
	set := r.spectators[matchID]
	targets := make([]*Session, 0, len(set))
	for _, s := range set {
		targets = append(targets, s)
	}
	r.mu.RUnlock()

	for _, s := range targets {
		s.TrySend(msg)
	}
}

// SpectatorCount returns the number of spectators on a match.
func (r *Registry) SpectatorCount(matchID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.spectators[matchID])
}

// Count returns the number of live sessions.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// CleanupStale closes and removes sessions idle past the limit. Returns
// how many were evicted.
func (r *Registry) CleanupStale(ageLimit time.Duration) int {
	cutoff := time.Now().Add(-ageLimit)

	r.mu.RLock()
	var stale []*Session
	for _, s := range r.sessions {
		if s.IdleSince().Before(cutoff) {
			stale = append(stale, s)
		}
	}
	r.mu.RUnlock()

	for _, s := range stale {
		log.Printf("🧹 Closing stale session %s (%s)", s.ID, s.IP)
		s.Close(websocket.CloseGoingAway)
		r.Remove(s.ID)
	}
	if len(stale) > 0 {
		staleSessionsEvicted.Add(float64(len(stale)))
	}
	return len(stale)
}
