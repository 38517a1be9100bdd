package match

import (
	"log"
	"sync"
	"time"

	"bot-arena/internal/game"
)

// Transport delivers match traffic to bots and spectators. Sends must
// never block the tick loop; a slow or dead peer is the transport's
// problem, not the match's.
type Transport interface {
	SendObservation(botID string, obs game.Observation)
	SendEventToBot(botID string, ev game.Event)
	BroadcastState(matchID string, st *game.State)
	BroadcastEvent(matchID string, ev game.Event)
	NotifyMatchEnd(matchID string, botIDs [2]string, winnerID string, score FinalScore)
}

// ResultSink receives the finalized replay. Called exactly once per match,
// after the replay is sealed and both bots have been notified.
type ResultSink interface {
	MatchEnded(matchID string, replay *Replay)
}

// Runtime owns one live match: the simulation, its replay recorder, and
// the fixed-rate tick loop. The simulation is touched only from the tick
// goroutine; inputs cross over through the pending map.
type Runtime struct {
	id   string
	p1ID string
	p2ID string

	sim             *game.Simulation
	recorder        *Recorder
	transport       Transport
	sink            ResultSink
	decisionTimeout time.Duration

	mu      sync.Mutex
	pending map[string]game.Input

	stopChan chan struct{}
	stopOnce sync.Once
	endOnce  sync.Once
	done     chan struct{}
}

// NewRuntime builds a runtime for the two bots. Run must be called to
// start the tick loop.
func NewRuntime(id, p1ID, p2ID string, cfg game.Config, decisionTimeout time.Duration, transport Transport, sink ResultSink) *Runtime {
	return &Runtime{
		id:              id,
		p1ID:            p1ID,
		p2ID:            p2ID,
		sim:             game.New(id, p1ID, p2ID, cfg),
		recorder:        NewRecorder(id, p1ID, p2ID, cfg.TickRate),
		transport:       transport,
		sink:            sink,
		decisionTimeout: decisionTimeout,
		pending:         make(map[string]game.Input),
		stopChan:        make(chan struct{}),
		done:            make(chan struct{}),
	}
}

// ID returns the match identifier.
func (r *Runtime) ID() string {
	return r.id
}

// Bots returns the two participant identities.
func (r *Runtime) Bots() [2]string {
	return [2]string{r.p1ID, r.p2ID}
}

// HasBot reports whether the bot is a participant of this match.
func (r *Runtime) HasBot(botID string) bool {
	return botID == r.p1ID || botID == r.p2ID
}

// Done is closed after the match has fully terminated and the result has
// been delivered.
func (r *Runtime) Done() <-chan struct{} {
	return r.done
}

// Run drives the tick loop until match_end or Stop. Blocks; callers start
// it on its own goroutine.
func (r *Runtime) Run() {
	matchesTotal.Inc()
	activeMatches.Inc()
	defer activeMatches.Dec()

	log.Printf("⚔️ Match %s started: %s vs %s", r.id, r.p1ID, r.p2ID)

	interval := time.Second / time.Duration(r.sim.Config().TickRate)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stopChan:
			r.finish()
			return
		case <-ticker.C:
			if r.tick() {
				r.finish()
				return
			}
		}
	}
}

// Stop requests termination. The match finalizes with whatever score the
// simulation holds; safe to call more than once.
func (r *Runtime) Stop() {
	r.stopOnce.Do(func() {
		close(r.stopChan)
	})
}

// ReceiveInput stores a bot's input for the next tick. Latest input wins;
// anything unconsumed when the tick fires is replaced. Returns false if
// the bot is not a participant.
func (r *Runtime) ReceiveInput(botID string, in game.Input) bool {
	if !r.HasBot(botID) {
		return false
	}
	r.mu.Lock()
	r.pending[botID] = in
	r.mu.Unlock()
	return true
}

// tick advances the match by one frame. Returns true when the simulation
// reached match_end.
func (r *Runtime) tick() bool {
	start := time.Now()

	in1, in2 := r.consumeInputs()
	events := r.sim.Step(in1, in2)
	st := r.sim.State()

	r.recorder.Record(st, events)
	r.transport.BroadcastState(r.id, r.sim.Snapshot())

	// Fresh observations each fighting frame, stamped with the wall-clock
	// decision deadline.
	if st.Phase == game.PhaseFighting {
		deadline := time.Now().Add(r.decisionTimeout).UnixMilli()

		obs1 := r.sim.Observation(r.p1ID)
		obs1.DeadlineMs = deadline
		r.transport.SendObservation(r.p1ID, obs1)

		obs2 := r.sim.Observation(r.p2ID)
		obs2.DeadlineMs = deadline
		r.transport.SendObservation(r.p2ID, obs2)
	}

	ended := false
	for _, ev := range events {
		switch ev.Type {
		case game.EventRoundStart:
			r.transport.SendEventToBot(r.p1ID, ev)
			r.transport.SendEventToBot(r.p2ID, ev)
			r.transport.BroadcastEvent(r.id, ev)
		case game.EventDamage, game.EventKO:
			r.transport.BroadcastEvent(r.id, ev)
		case game.EventMatchEnd:
			ended = true
		}
	}

	recordTick(time.Since(start))
	return ended
}

// consumeInputs drains the pending map, substituting the no-op input for
// any bot that missed its deadline. A missing bot never stalls the tick.
func (r *Runtime) consumeInputs() (game.Input, game.Input) {
	fighting := r.sim.State().Phase == game.PhaseFighting

	r.mu.Lock()
	defer r.mu.Unlock()

	in1, ok1 := r.pending[r.p1ID]
	in2, ok2 := r.pending[r.p2ID]
	if !ok1 {
		in1 = game.Neutral()
		if fighting {
			defaultInputsTotal.Inc()
		}
	}
	if !ok2 {
		in2 = game.Neutral()
		if fighting {
			defaultInputsTotal.Inc()
		}
	}
	clear(r.pending)

	return in1, in2
}

// finish seals the replay, notifies peers, and delivers the result.
// Runs at most once regardless of how the loop exited.
func (r *Runtime) finish() {
	r.endOnce.Do(func() {
		st := r.sim.State()
		score := FinalScore{P1Rounds: st.P1Rounds, P2Rounds: st.P2Rounds}
		replay := r.recorder.Finalize(r.sim.Winner(), score)

		r.transport.NotifyMatchEnd(r.id, r.Bots(), replay.WinnerID, score)

		log.Printf("🏁 Match %s finished: winner=%q score=%d-%d frames=%d",
			r.id, replay.WinnerID, score.P1Rounds, score.P2Rounds, len(replay.Frames))

		r.sink.MatchEnded(r.id, replay)
		close(r.done)
	})
}
