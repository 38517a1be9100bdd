package api

import (
	"context"
	"encoding/json"
	"log"
	"math/rand"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"

	"bot-arena/internal/config"
	"bot-arena/internal/matchmaking"
	"bot-arena/internal/store"
	"bot-arena/internal/tournament"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Bots are headless programs, not browsers; auth happens in-band.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Server owns the websocket surface and every subsystem behind it:
// connection registry, controller, matchmaking queue and tournament
// manager.
//
// IMPORTANT: background workers do NOT start until Run() is called. This
// enables testing: construct the server, grab Router(), and drive it with
// httptest without a single goroutine running.
type Server struct {
	cfg        config.AppConfig
	registry   *Registry
	controller *Controller
	queue      *matchmaking.Queue
	tourneys   *tournament.Manager

	connLimiter *ConnectionLimiter
	router      http.Handler
	httpServer  *http.Server
}

// NewServer wires the full stack on top of the given stores.
func NewServer(cfg config.AppConfig, bots store.BotStore, matches store.MatchStore) *Server {
	registry := NewRegistry()
	controller := NewController(cfg, registry, bots, matches)

	queue := matchmaking.New(controller, time.Duration(cfg.Matchmaking.IntervalMs)*time.Millisecond)
	tourneys := tournament.NewManager(controller, controller, rand.New(rand.NewSource(time.Now().UnixNano())))
	controller.Attach(queue, tourneys)

	s := &Server{
		cfg:         cfg,
		registry:    registry,
		controller:  controller,
		queue:       queue,
		tourneys:    tourneys,
		connLimiter: NewConnectionLimiter(cfg.Server.Limits.ConnectionsPerIP),
	}
	s.router = NewRouter(RouterConfig{
		BotHandler:       s.handleBotWS,
		SpectatorHandler: s.handleSpectatorWS,
	})
	return s
}

// Router returns the HTTP handler for use with httptest.
func (s *Server) Router() http.Handler {
	return s.router
}

// Controller exposes the controller, mainly for tests.
func (s *Server) Controller() *Controller {
	return s.controller
}

// Run starts the listener and all background workers, and blocks until
// the context is cancelled. Shutdown is ordered: stop pairing new
// matches, terminate running matches, then close the transport.
func (s *Server) Run(ctx context.Context) error {
	addr := ":" + strconv.Itoa(s.cfg.Server.Port)
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.queue.Run()
		return nil
	})

	g.Go(func() error {
		s.housekeeping(ctx)
		return nil
	})

	g.Go(func() error {
		log.Printf("🎮 Arena listening on %s", addr)
		log.Printf("   - bots:       ws://localhost%s/ws/bot", addr)
		log.Printf("   - spectators: ws://localhost%s/ws/spectate", addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		log.Println("🛑 Shutting down...")

		s.queue.Stop()
		s.controller.Stop()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// housekeeping periodically evicts sessions that have gone quiet.
func (s *Server) housekeeping(ctx context.Context) {
	staleAfter := time.Duration(s.cfg.Server.ConnectionStaleMs) * time.Millisecond
	ticker := time.NewTicker(staleAfter / 4)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.registry.CleanupStale(staleAfter)
		}
	}
}

// handleBotWS upgrades a bot connection and runs its read loop.
func (s *Server) handleBotWS(w http.ResponseWriter, r *http.Request) {
	s.serveWS(w, r, false)
}

// handleSpectatorWS upgrades a spectator connection. Spectators skip
// AUTH; they can only SPECTATE and issue read-only queries.
func (s *Server) handleSpectatorWS(w http.ResponseWriter, r *http.Request) {
	s.serveWS(w, r, true)
}

func (s *Server) serveWS(w http.ResponseWriter, r *http.Request, spectator bool) {
	ip := GetClientIP(r)

	if !s.connLimiter.Allow(ip) {
		http.Error(w, "too many connections", http.StatusTooManyRequests)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.connLimiter.Release(ip)
		log.Printf("⚠️ Websocket upgrade failed for %s: %v", ip, err)
		return
	}

	kind := KindBot
	if spectator {
		kind = KindSpectator
	}
	limits := s.cfg.Server.Limits
	sess := NewSession(conn, ip, kind, limits.MessagesPerSecond, limits.MessageBurst)
	s.registry.Add(sess)

	go sess.WritePump()
	sess.TrySend(serverMsg(MsgWelcome, map[string]any{
		"requiresAuth": !spectator,
		"serverTime":   time.Now().UnixMilli(),
	}))

	go s.readLoop(sess)
}

// readLoop pulls frames off the wire and dispatches them until the peer
// disconnects.
func (s *Server) readLoop(sess *Session) {
	defer func() {
		s.registry.Remove(sess.ID)
		s.connLimiter.Release(sess.IP)
		sess.Close(websocket.CloseNormalClosure)
		// Only drop the queue entry if the bot is fully offline; an
		// evicted session must not cancel its successor's queue spot.
		if botID := sess.BotID(); botID != "" && s.registry.Bot(botID) == nil {
			s.queue.Leave(botID)
		}
	}()

	sess.conn.SetReadLimit(maxMessageSize)

	for {
		_, data, err := sess.conn.ReadMessage()
		if err != nil {
			return
		}
		sess.Touch()

		if !sess.allowMessage() {
			recordConnectionRejected("msg_rate")
			sess.TrySend(errorMsg(ErrRateLimited, "slow down"))
			continue
		}

		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			sess.TrySend(errorMsg(ErrInvalidMessage, "malformed JSON frame"))
			continue
		}

		s.controller.Dispatch(sess, msg)
	}
}
