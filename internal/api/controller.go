package api

import (
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"bot-arena/internal/config"
	"bot-arena/internal/game"
	"bot-arena/internal/match"
	"bot-arena/internal/matchmaking"
	"bot-arena/internal/rating"
	"bot-arena/internal/store"
	"bot-arena/internal/tournament"
)

var errUnknownBot = errors.New("unknown bot")

// Controller wires the subsystems together: it dispatches client
// messages, creates and tracks match runtimes, and acts as the match
// transport, result sink, matchmaking starter and tournament callbacks.
type Controller struct {
	cfg      config.AppConfig
	registry *Registry
	bots     store.BotStore
	matches  store.MatchStore

	// Attached after construction; the queue and tournament manager
	// call back into the controller.
	queue    *matchmaking.Queue
	tourneys *tournament.Manager

	authLimiter *AuthRateLimiter

	mu       sync.Mutex
	active   map[string]*match.Runtime // match id → runtime
	botMatch map[string]string         // bot id → match id
}

// NewController builds the controller. Attach must be called before any
// message is dispatched.
func NewController(cfg config.AppConfig, registry *Registry, bots store.BotStore, matches store.MatchStore) *Controller {
	return &Controller{
		cfg:      cfg,
		registry: registry,
		bots:     bots,
		matches:  matches,
		authLimiter: NewAuthRateLimiter(AuthLimitConfig{
			PerSecond:       cfg.Server.Limits.AuthPerSecond,
			Burst:           cfg.Server.Limits.AuthBurst,
			CleanupInterval: 5 * time.Minute,
		}),
		active:   make(map[string]*match.Runtime),
		botMatch: make(map[string]string),
	}
}

// Attach hands the controller its queue and tournament manager. Broken
// out of the constructor because both of those take the controller as a
// callback at their own construction.
func (c *Controller) Attach(queue *matchmaking.Queue, tourneys *tournament.Manager) {
	c.queue = queue
	c.tourneys = tourneys
}

// Stop shuts down the controller's limiters and terminates every active
// match, waiting for their results to land.
func (c *Controller) Stop() {
	c.authLimiter.Stop()

	c.mu.Lock()
	runtimes := make([]*match.Runtime, 0, len(c.active))
	for _, rt := range c.active {
		runtimes = append(runtimes, rt)
	}
	c.mu.Unlock()

	for _, rt := range runtimes {
		rt.Stop()
	}
	for _, rt := range runtimes {
		<-rt.Done()
	}
}

// ActiveMatches returns the number of live matches.
func (c *Controller) ActiveMatches() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.active)
}

// ---------------------------------------------------------------------
// Message dispatch
// ---------------------------------------------------------------------

// spectatorAllowed lists the message types a spectator connection may
// issue. Everything else is reserved for bot connections.
var spectatorAllowed = map[string]bool{
	MsgPing:            true,
	MsgSpectate:        true,
	MsgGetLeaderboard:  true,
	MsgGetMatches:      true,
	MsgGetBracket:      true,
	MsgListTournaments: true,
}

// Dispatch handles one parsed client frame on the session's read
// goroutine.
func (c *Controller) Dispatch(s *Session, msg ClientMessage) {
	if s.Kind == KindSpectator && !spectatorAllowed[msg.Type] {
		s.TrySend(errorMsg(ErrInvalidState, "spectator connections are read-only"))
		return
	}

	switch msg.Type {
	case MsgAuth:
		c.handleAuth(s, msg)
	case MsgPing:
		s.TrySend(serverMsg(MsgPong, map[string]any{"timestamp": time.Now().UnixMilli()}))
	case MsgInput:
		c.handleInput(s, msg)
	case MsgJoinMatchmaking:
		c.handleJoinMatchmaking(s)
	case MsgLeaveMatchmaking:
		c.handleLeaveMatchmaking(s)
	case MsgChallenge:
		c.handleChallenge(s, msg)
	case MsgSpectate:
		c.handleSpectate(s, msg)
	case MsgGetLeaderboard:
		s.TrySend(serverMsg(MsgLeaderboard, map[string]any{"leaderboard": c.bots.List()}))
	case MsgGetMatches:
		c.handleGetMatches(s, msg)
	case MsgRegisterBot:
		c.handleRegisterBot(s, msg)
	case MsgCreateTournament:
		c.handleCreateTournament(s, msg)
	case MsgJoinTournament:
		c.handleJoinTournament(s, msg)
	case MsgStartTournament:
		c.handleStartTournament(s, msg)
	case MsgGetBracket:
		c.handleGetBracket(s, msg)
	case MsgListTournaments:
		s.TrySend(serverMsg(MsgTournamentList, map[string]any{"tournaments": c.tourneys.List()}))
	default:
		s.TrySend(errorMsg(ErrUnknownType, "unknown message type "+msg.Type))
	}
}

func (c *Controller) handleAuth(s *Session, msg ClientMessage) {
	if !c.authLimiter.Allow(s.IP) {
		s.TrySend(errorMsg(ErrRateLimited, "too many auth attempts"))
		s.Close(CloseRateLimited)
		return
	}

	bot := c.bots.GetByCredential(msg.APIKey)
	if bot == nil {
		s.TrySend(errorMsg(ErrAuthFailed, "invalid api key"))
		s.Close(CloseAuthFailed)
		return
	}

	c.registry.BindBot(s, bot.ID)
	c.bots.UpdateLastSeen(bot.ID)
	log.Printf("🤖 Bot %s (%s) authenticated", bot.Name, bot.ID)

	s.TrySend(serverMsg(MsgAuthSuccess, map[string]any{
		"botId":   bot.ID,
		"botName": bot.Name,
		"rating":  bot.Rating,
	}))
}

// requireBot resolves the session's bound bot or replies with an error.
func (c *Controller) requireBot(s *Session) (*store.Bot, bool) {
	botID := s.BotID()
	if botID == "" {
		s.TrySend(errorMsg(ErrNotAuthenticated, "authenticate first"))
		return nil, false
	}
	bot := c.bots.GetByID(botID)
	if bot == nil {
		s.TrySend(errorMsg(ErrNotAuthenticated, "unknown bot identity"))
		return nil, false
	}
	return bot, true
}

func (c *Controller) handleInput(s *Session, msg ClientMessage) {
	botID := s.BotID()
	if botID == "" {
		s.TrySend(errorMsg(ErrNotAuthenticated, "authenticate first"))
		return
	}
	if msg.Input == nil {
		s.TrySend(errorMsg(ErrInvalidMessage, "INPUT requires an input record"))
		return
	}

	c.mu.Lock()
	rt := c.active[c.botMatch[botID]]
	c.mu.Unlock()

	// Inputs outside a match are dropped, not errors: the match may have
	// just ended.
	if rt != nil {
		rt.ReceiveInput(botID, *msg.Input)
	}
}

func (c *Controller) handleJoinMatchmaking(s *Session) {
	bot, ok := c.requireBot(s)
	if !ok {
		return
	}

	if c.inMatch(bot.ID) {
		s.TrySend(errorMsg(ErrInvalidState, "already in a match"))
		return
	}
	if !c.queue.Join(bot.ID, bot.Name, bot.Rating) {
		s.TrySend(errorMsg(ErrInvalidState, "already in the queue"))
		return
	}
	s.TrySend(serverMsg(MsgMatchmakingJoined, nil))
}

func (c *Controller) handleLeaveMatchmaking(s *Session) {
	bot, ok := c.requireBot(s)
	if !ok {
		return
	}
	c.queue.Leave(bot.ID)
	s.TrySend(serverMsg(MsgMatchmakingLeft, nil))
}

func (c *Controller) handleChallenge(s *Session, msg ClientMessage) {
	bot, ok := c.requireBot(s)
	if !ok {
		return
	}

	target := c.bots.GetByID(msg.TargetBotID)
	if target == nil {
		s.TrySend(errorMsg(ErrNotFound, "unknown bot"))
		return
	}
	if target.ID == bot.ID {
		s.TrySend(errorMsg(ErrInvalidState, "cannot challenge yourself"))
		return
	}
	if c.registry.Bot(target.ID) == nil {
		s.TrySend(errorMsg(ErrInvalidState, "challenged bot is offline"))
		return
	}
	if _, err := c.createMatch(bot, target); err != nil {
		s.TrySend(errorMsg(ErrInvalidState, err.Error()))
	}
}

func (c *Controller) handleSpectate(s *Session, msg ClientMessage) {
	c.mu.Lock()
	_, ok := c.active[msg.MatchID]
	c.mu.Unlock()

	if !ok {
		s.TrySend(errorMsg(ErrNotFound, "no such active match"))
		return
	}
	c.registry.AddSpectator(msg.MatchID, s)
	s.TrySend(serverMsg(MsgSpectateJoined, map[string]any{"matchId": msg.MatchID}))
}

func (c *Controller) handleGetMatches(s *Session, msg ClientMessage) {
	var (
		records []store.MatchRecord
		err     error
	)
	if msg.BotID != "" {
		records, err = c.matches.GetBotMatches(msg.BotID, msg.Limit)
	} else {
		records, err = c.matches.GetRecentMatches(msg.Limit)
	}
	if err != nil {
		log.Printf("⚠️ Match history query failed: %v", err)
		s.TrySend(errorMsg(ErrInvalidState, "match history unavailable"))
		return
	}
	s.TrySend(serverMsg(MsgMatchHistory, map[string]any{"matches": records}))
}

func (c *Controller) handleRegisterBot(s *Session, msg ClientMessage) {
	if msg.BotName == "" {
		s.TrySend(errorMsg(ErrInvalidMessage, "botName is required"))
		return
	}
	bot := c.bots.Create(msg.BotName, msg.OwnerID)
	log.Printf("🤖 Registered bot %s (%s)", bot.Name, bot.ID)

	// The one place the key crosses the wire.
	s.TrySend(serverMsg(MsgBotRegistered, map[string]any{
		"botId":   bot.ID,
		"apiKey":  bot.APIKey,
		"botName": bot.Name,
		"rating":  bot.Rating,
	}))
}

// ---------------------------------------------------------------------
// Tournament handlers
// ---------------------------------------------------------------------

func (c *Controller) handleCreateTournament(s *Session, msg ClientMessage) {
	if _, ok := c.requireBot(s); !ok {
		return
	}
	view, err := c.tourneys.Create(msg.Name, msg.Format, msg.MaxBots, msg.BuyIn, msg.PrizeDistribution)
	if err != nil {
		s.TrySend(errorMsg(ErrInvalidState, err.Error()))
		return
	}
	s.TrySend(serverMsg(MsgTournamentCreated, map[string]any{"tournament": view}))
}

func (c *Controller) handleJoinTournament(s *Session, msg ClientMessage) {
	bot, ok := c.requireBot(s)
	if !ok {
		return
	}
	if err := c.tourneys.Join(msg.TournamentID, bot.ID); err != nil {
		s.TrySend(errorMsg(ErrInvalidState, err.Error()))
		return
	}
	s.TrySend(serverMsg(MsgTournamentJoined, map[string]any{"tournamentId": msg.TournamentID}))
}

func (c *Controller) handleStartTournament(s *Session, msg ClientMessage) {
	if _, ok := c.requireBot(s); !ok {
		return
	}
	if err := c.tourneys.Start(msg.TournamentID); err != nil {
		s.TrySend(errorMsg(ErrInvalidState, err.Error()))
		return
	}
	view, err := c.tourneys.Bracket(msg.TournamentID)
	if err != nil {
		s.TrySend(errorMsg(ErrNotFound, err.Error()))
		return
	}
	s.TrySend(serverMsg(MsgTournamentStarted, map[string]any{"tournament": view}))
}

func (c *Controller) handleGetBracket(s *Session, msg ClientMessage) {
	view, err := c.tourneys.Bracket(msg.TournamentID)
	if err != nil {
		s.TrySend(errorMsg(ErrNotFound, err.Error()))
		return
	}
	s.TrySend(serverMsg(MsgBracket, map[string]any{"tournament": view}))
}

// ---------------------------------------------------------------------
// Match creation
// ---------------------------------------------------------------------

func (c *Controller) inMatch(botID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.botMatch[botID]
	return ok
}

// createMatch builds and starts a runtime for the two bots and notifies
// both with MATCH_STARTING. Bot availability is rechecked under the lock:
// a CHALLENGE can land between a pairing pass popping a bot and the match
// actually starting.
func (c *Controller) createMatch(p1, p2 *store.Bot) (*match.Runtime, error) {
	simCfg := game.Config{
		TickRate:    c.cfg.Sim.TickRate,
		RoundsToWin: c.cfg.Sim.RoundsToWin,
		RoundTime:   c.cfg.Sim.RoundTime,
	}
	timeout := time.Duration(c.cfg.Match.DecisionTimeoutMs) * time.Millisecond

	c.mu.Lock()
	if _, busy := c.botMatch[p1.ID]; busy {
		c.mu.Unlock()
		return nil, errors.Errorf("%s is already in a match", p1.Name)
	}
	if _, busy := c.botMatch[p2.ID]; busy {
		c.mu.Unlock()
		return nil, errors.Errorf("%s is already in a match", p2.Name)
	}
	rt := match.NewRuntime(uuid.New().String(), p1.ID, p2.ID, simCfg, timeout, c, c)
	c.active[rt.ID()] = rt
	c.botMatch[p1.ID] = rt.ID()
	c.botMatch[p2.ID] = rt.ID()
	c.mu.Unlock()

	// Bots entering a match cannot keep waiting for another.
	c.queue.Leave(p1.ID)
	c.queue.Leave(p2.ID)

	c.notifyMatchStarting(rt.ID(), p1, p2)
	c.notifyMatchStarting(rt.ID(), p2, p1)

	go rt.Run()
	return rt, nil
}

func (c *Controller) notifyMatchStarting(matchID string, to, opponent *store.Bot) {
	c.registry.SendToBot(to.ID, serverMsg(MsgMatchStarting, map[string]any{
		"matchId": matchID,
		"opponent": map[string]any{
			"botId":   opponent.ID,
			"botName": opponent.Name,
			"rating":  opponent.Rating,
		},
	}))
}

// StartMatch implements matchmaking.Starter.
func (c *Controller) StartMatch(a, b matchmaking.Entry) {
	p1 := c.bots.GetByID(a.BotID)
	p2 := c.bots.GetByID(b.BotID)
	if p1 == nil || p2 == nil {
		log.Printf("⚠️ Matchmaking paired an unknown bot (%s vs %s)", a.BotID, b.BotID)
		return
	}
	if _, err := c.createMatch(p1, p2); err != nil {
		log.Printf("⚠️ Matchmaking could not start %s vs %s: %v", p1.Name, p2.Name, err)
	}
}

// StartTournamentMatch implements tournament.MatchStarter.
func (c *Controller) StartTournamentMatch(tournamentID, bot1, bot2 string) (string, error) {
	p1 := c.bots.GetByID(bot1)
	p2 := c.bots.GetByID(bot2)
	if p1 == nil || p2 == nil {
		return "", errUnknownBot
	}
	rt, err := c.createMatch(p1, p2)
	if err != nil {
		return "", err
	}
	return rt.ID(), nil
}

// TournamentCompleted implements tournament.Finisher: every placed bot
// learns where it finished and what the pot was.
func (c *Controller) TournamentCompleted(res tournament.Result) {
	log.Printf("🏆 Tournament %q paid out: pool %d across %d bots", res.Name, res.PrizePool, len(res.Placements))
	for botID, placement := range res.Placements {
		c.registry.SendToBot(botID, serverMsg(MsgTournamentCompleted, map[string]any{
			"tournamentId":      res.TournamentID,
			"name":              res.Name,
			"placement":         placement,
			"prizePool":         res.PrizePool,
			"prizeDistribution": res.PrizeDistribution,
		}))
	}
}

// ---------------------------------------------------------------------
// match.Transport
// ---------------------------------------------------------------------

func (c *Controller) SendObservation(botID string, obs game.Observation) {
	c.registry.SendToBot(botID, serverMsg(MsgObservation, map[string]any{
		"observation":      obs,
		"requiresResponse": true,
	}))
}

func (c *Controller) SendEventToBot(botID string, ev game.Event) {
	c.registry.SendToBot(botID, eventMsg(ev))
}

func (c *Controller) BroadcastState(matchID string, st *game.State) {
	c.registry.BroadcastToSpectators(matchID, serverMsg(MsgMatchState, map[string]any{"state": st}))
}

func (c *Controller) BroadcastEvent(matchID string, ev game.Event) {
	c.registry.BroadcastToSpectators(matchID, eventMsg(ev))
}

// eventMsg maps a simulation event to its wire frame.
func eventMsg(ev game.Event) []byte {
	switch ev.Type {
	case game.EventRoundStart:
		var p game.RoundStartPayload
		if err := ev.DecodePayload(&p); err == nil {
			return serverMsg(MsgRoundStart, map[string]any{"roundNumber": p.Round})
		}
		return serverMsg(MsgRoundStart, map[string]any{"event": ev})
	case game.EventKO:
		return serverMsg(MsgKO, map[string]any{"event": ev})
	default:
		return serverMsg(MsgDamage, map[string]any{"event": ev})
	}
}

func (c *Controller) NotifyMatchEnd(matchID string, botIDs [2]string, winnerID string, score match.FinalScore) {
	msg := serverMsg(MsgMatchEnd, map[string]any{
		"matchId":  matchID,
		"winnerId": winnerID,
		"finalScore": map[string]any{
			"p1Rounds": score.P1Rounds,
			"p2Rounds": score.P2Rounds,
		},
	})
	c.registry.SendToBot(botIDs[0], msg)
	c.registry.SendToBot(botIDs[1], msg)
	c.registry.BroadcastToSpectators(matchID, msg)
}

// ---------------------------------------------------------------------
// match.ResultSink
// ---------------------------------------------------------------------

// MatchEnded persists the match, applies ratings on a decisive result,
// forwards the result to the tournament manager, and releases the match
// from the active indexes.
func (c *Controller) MatchEnded(matchID string, replay *match.Replay) {
	p1 := c.bots.GetByID(replay.P1ID)
	p2 := c.bots.GetByID(replay.P2ID)
	p1Name, p2Name := replay.P1ID, replay.P2ID
	if p1 != nil {
		p1Name = p1.Name
	}
	if p2 != nil {
		p2Name = p2.Name
	}

	if err := c.matches.SaveMatch(replay, p1Name, p2Name); err != nil {
		log.Printf("⚠️ Failed to persist match %s: %v", matchID, err)
	}

	// Ratings only move on a decisive result; draws leave them alone.
	if replay.WinnerID != "" && p1 != nil && p2 != nil {
		winner, loser := p1, p2
		if replay.WinnerID == p2.ID {
			winner, loser = p2, p1
		}
		newWinner, newLoser := rating.Apply(winner.Rating, loser.Rating)
		c.bots.UpdateRating(winner.ID, newWinner)
		c.bots.UpdateRating(loser.ID, newLoser)
		log.Printf("📈 Ratings: %s %d→%d, %s %d→%d",
			winner.Name, winner.Rating, newWinner, loser.Name, loser.Rating, newLoser)
	}

	// Release the match before the tournament sees the result: advancing
	// the bracket may immediately rebook the winner into the next round.
	c.mu.Lock()
	delete(c.active, matchID)
	if c.botMatch[replay.P1ID] == matchID {
		delete(c.botMatch, replay.P1ID)
	}
	if c.botMatch[replay.P2ID] == matchID {
		delete(c.botMatch, replay.P2ID)
	}
	c.mu.Unlock()

	c.registry.ClearSpectators(matchID)

	// Draws are forwarded too: a bracket slot must resolve even when the
	// match produced no winner.
	c.tourneys.HandleResult(matchID, replay.WinnerID)
}
