// Package game implements the authoritative deterministic fighting
// simulation. A Simulation is a pure function of (previous state, per-bot
// input, tick): it never reads the clock, never allocates an RNG, and two
// runs fed the same inputs produce identical states and event sequences.
package game

import "math"

// Config holds the per-match simulation parameters.
type Config struct {
	TickRate    int // Ticks per second
	RoundsToWin int // Rounds needed to take the match
	RoundTime   int // Round length in seconds
}

// DefaultConfig returns the standard ruleset.
func DefaultConfig() Config {
	return Config{TickRate: 60, RoundsToWin: 2, RoundTime: 99}
}

// Phase budgets in seconds, converted to frames at the configured rate so
// match pacing is independent of tick rate.
const (
	countdownSeconds = 3
	koFreezeSeconds  = 1
	roundEndSeconds  = 2
)

// Simulation is one authoritative match simulation. It is NOT safe for
// concurrent use; the owning match runtime serializes all access.
type Simulation struct {
	cfg   Config
	state *State

	fightFrames int  // Frames spent in the fighting phase this round
	roundByKO   bool // Whether the round in flight ended by KO
	roundWinner string
}

// New creates a simulation for the two bots in countdown before round 1.
func New(matchID, p1ID, p2ID string, cfg Config) *Simulation {
	if cfg.TickRate <= 0 {
		cfg.TickRate = DefaultConfig().TickRate
	}
	if cfg.RoundsToWin <= 0 {
		cfg.RoundsToWin = DefaultConfig().RoundsToWin
	}
	if cfg.RoundTime <= 0 {
		cfg.RoundTime = DefaultConfig().RoundTime
	}

	return &Simulation{
		cfg: cfg,
		state: &State{
			MatchID:       matchID,
			Phase:         PhaseCountdown,
			PhaseTimer:    countdownSeconds * cfg.TickRate,
			P1:            NewFighter(p1ID, SpawnP1X, FacingRight),
			P2:            NewFighter(p2ID, SpawnP2X, FacingLeft),
			Round:         1,
			TimeRemaining: cfg.RoundTime,
		},
	}
}

// Config returns the simulation's ruleset.
func (s *Simulation) Config() Config {
	return s.cfg
}

// State returns the live state. The caller must not retain it across
// ticks; use Snapshot for an immutable copy.
func (s *Simulation) State() *State {
	return s.state
}

// Snapshot returns a deep copy of the current state.
func (s *Simulation) Snapshot() *State {
	return s.state.Clone()
}

// Done reports whether the simulation reached its terminal phase.
func (s *Simulation) Done() bool {
	return s.state.Phase == PhaseMatchEnd
}

// Winner returns the match winner's bot identity, or "" before match_end
// and on an overall draw.
func (s *Simulation) Winner() string {
	return s.state.Winner
}

// Step advances the simulation by one tick with the given per-bot inputs
// and returns the events emitted this frame.
func (s *Simulation) Step(in1, in2 Input) []Event {
	st := s.state
	if st.Phase == PhaseMatchEnd {
		return nil
	}

	st.Frame++
	now := st.Frame
	var events []Event

	switch st.Phase {
	case PhaseCountdown:
		// No input is processed during the countdown.
		st.PhaseTimer--
		if st.PhaseTimer <= 0 {
			st.Phase = PhaseFighting
			s.fightFrames = 0
			events = append(events, NewEvent(EventRoundStart, now, RoundStartPayload{Round: st.Round}))
		}

	case PhaseFighting:
		events = s.stepFighting(in1, in2, now)

	case PhaseKO, PhaseTimeout:
		// Freeze input but let launched bodies land.
		s.settlePhysics(now)
		st.PhaseTimer--
		if st.PhaseTimer <= 0 {
			st.Phase = PhaseRoundEnd
			st.PhaseTimer = roundEndSeconds * s.cfg.TickRate
			events = append(events, NewEvent(EventRoundEnd, now, RoundEndPayload{
				Round:    st.Round,
				Winner:   s.roundWinner,
				ByKO:     s.roundByKO,
				P1Rounds: st.P1Rounds,
				P2Rounds: st.P2Rounds,
			}))
		}

	case PhaseRoundEnd:
		st.PhaseTimer--
		if st.PhaseTimer <= 0 {
			if st.P1Rounds >= s.cfg.RoundsToWin || st.P2Rounds >= s.cfg.RoundsToWin {
				st.Phase = PhaseMatchEnd
				switch {
				case st.P1Rounds > st.P2Rounds:
					st.Winner = st.P1.BotID
				case st.P2Rounds > st.P1Rounds:
					st.Winner = st.P2.BotID
				}
				events = append(events, NewEvent(EventMatchEnd, now, MatchEndPayload{
					Winner:   st.Winner,
					P1Rounds: st.P1Rounds,
					P2Rounds: st.P2Rounds,
				}))
			} else {
				s.resetRound(now)
			}
		}
	}

	return events
}

// stepFighting runs the full per-tick pipeline of the fighting phase:
// input resolution, physics, hit checks, timed state transitions, facing,
// and the round timer.
func (s *Simulation) stepFighting(in1, in2 Input, now int) []Event {
	st := s.state

	// Round timer decrements exactly once per tickRate ticks.
	s.fightFrames++
	if s.fightFrames%s.cfg.TickRate == 0 && st.TimeRemaining > 0 {
		st.TimeRemaining--
	}

	// 1. Input → state resolution, only for fighters that can act.
	s.resolveInput(st.P1, st.P2, in1, now)
	s.resolveInput(st.P2, st.P1, in2, now)

	// 2. Physics integration.
	if s.stepPhysics(st.P1, in1) {
		s.onLand(st.P1, now)
	}
	if s.stepPhysics(st.P2, in2) {
		s.onLand(st.P2, now)
	}

	// 3. Attack sub-phase bookkeeping, then the two hit checks. Both
	// directions are evaluated before either is applied so a trade
	// resolves independently for each attacker.
	s.updateAttackPhase(st.P1, now)
	s.updateAttackPhase(st.P2, now)

	hit1, counter1 := s.checkHit(st.P1, st.P2)
	hit2, counter2 := s.checkHit(st.P2, st.P1)

	var events []Event
	if hit1 {
		events = append(events, s.applyHit(st.P1, st.P2, counter1, now)...)
	}
	if hit2 {
		events = append(events, s.applyHit(st.P2, st.P1, counter2, now)...)
	}

	// 4. Timed state transitions.
	s.tickState(st.P1, st.P2, now)
	s.tickState(st.P2, st.P1, now)

	// 5. Facing follows the opponent for actionable fighters.
	s.updateFacing(st.P1, st.P2)
	s.updateFacing(st.P2, st.P1)

	// 6. Timeout: round timer reached zero without a KO.
	if st.Phase == PhaseFighting && st.TimeRemaining <= 0 {
		st.Phase = PhaseTimeout
		st.PhaseTimer = koFreezeSeconds * s.cfg.TickRate
		s.roundByKO = false
		switch {
		case st.P1.Health > st.P2.Health:
			s.roundWinner = st.P1.BotID
			st.P1Rounds++
		case st.P2.Health > st.P1.Health:
			s.roundWinner = st.P2.BotID
			st.P2Rounds++
		default:
			s.roundWinner = ""
		}
	}

	return events
}

// resolveInput maps one frame of input to a state transition, in strict
// priority order. Only called while the fighter can act.
func (s *Simulation) resolveInput(f, opp *Fighter, in Input, now int) {
	if !f.CanAct {
		return
	}

	switch {
	case in.Special && f.Magic >= GetAttack(AttackSpecial).MagicCost:
		f.startAttack(AttackSpecial, now)

	case in.Attack1:
		if f.Grounded {
			if next, ok := f.chainReady(now); ok {
				f.startAttack(next, now)
			} else {
				f.startAttack(AttackLight1, now)
			}
		} else {
			f.startAttack(AttackAirLight, now)
		}

	case in.Attack2:
		if f.Grounded {
			f.startAttack(AttackHeavy, now)
		} else {
			f.startAttack(AttackAirHeavy, now)
		}

	case in.Jump && f.Grounded:
		f.VY = JumpVelocity
		f.Grounded = false
		f.setState(StateJumping, now)

	case in.Down && f.Grounded && !in.Left && !in.Right:
		if f.State != StateBlocking {
			f.setState(StateBlocking, now)
		}

	case in.Left || in.Right:
		switch f.State {
		case StateWalking, StateRunning:
			if f.State != StateRunning {
				f.setState(StateRunning, now)
			}
		case StateIdle, StateBlocking:
			f.setState(StateWalking, now)
		}

	default:
		if f.Grounded && f.State != StateIdle &&
			(f.State == StateWalking || f.State == StateRunning || f.State == StateBlocking) {
			f.setState(StateIdle, now)
		}
	}
}

// updateAttackPhase recomputes the attack sub-phase from elapsed frames.
// Attack completion is handled by tickState.
func (s *Simulation) updateAttackPhase(f *Fighter, now int) {
	if f.State != StateAttacking {
		return
	}
	spec := GetAttack(f.Attack)
	fr := f.frames(now)
	switch {
	case fr < spec.Startup:
		f.AttackPhase = PhaseStartup
	case fr < spec.Startup+spec.Active:
		f.AttackPhase = PhaseActive
	default:
		f.AttackPhase = PhaseRecovery
	}
}

// checkHit evaluates one attack direction. A hit lands iff the attacker's
// hitbox is live, the attack has not already connected, the defender is
// vulnerable, and the boxes intersect. The second return reports a
// counter-hit (defender caught in startup or recovery of their own attack).
func (s *Simulation) checkHit(attacker, defender *Fighter) (hit, counter bool) {
	if attacker.State != StateAttacking || attacker.AttackPhase != PhaseActive {
		return false, false
	}
	if attacker.HasHit {
		return false, false
	}
	if !defender.Vulnerable() {
		return false, false
	}
	if !AttackHitbox(attacker).Intersects(Hurtbox(defender)) {
		return false, false
	}
	counter = defender.State == StateAttacking &&
		(defender.AttackPhase == PhaseStartup || defender.AttackPhase == PhaseRecovery)
	return true, counter
}

// applyHit resolves a landed hit: damage scaling, meter gain, knockback,
// stun or knockdown, combo bookkeeping, and the resulting events.
func (s *Simulation) applyHit(attacker, defender *Fighter, counter bool, now int) []Event {
	st := s.state
	spec := GetAttack(attacker.Attack)
	attacker.HasHit = true

	// Combo continues while the defender has no answer.
	switch defender.State {
	case StateHitstun, StateKnockdown, StateGettingUp:
		attacker.Combo++
	default:
		attacker.Combo = 1
	}

	// Damage: base, then combo scaling past the free hits, then the
	// counter-hit bonus.
	dmg := float64(spec.Damage)
	if attacker.Combo > ComboScalingStart {
		scale := math.Pow(ComboScalingFactor, float64(attacker.Combo-ComboScalingStart))
		if scale < ComboScalingFloor {
			scale = ComboScalingFloor
		}
		dmg *= scale
	}
	if counter {
		dmg *= CounterHitBonus
	}
	final := int(math.Round(dmg))

	defender.Health -= final
	if defender.Health < 0 {
		defender.Health = 0
	}

	attacker.gainMagic(MagicOnHit)

	// Knockback pushes away from the attacker.
	dir := 1.0
	if defender.X < attacker.X {
		dir = -1.0
	} else if defender.X == attacker.X {
		dir = attacker.Facing.Sign()
	}
	applyKnockback(defender, spec, dir)

	// Being hit interrupts whatever the defender was doing. The attack
	// slot clears without arming a chain window.
	defender.Attack = AttackNone
	defender.AttackPhase = PhaseNone
	defender.HasHit = false

	events := []Event{NewEvent(EventDamage, now, DamagePayload{
		Attacker:       attacker.BotID,
		Defender:       defender.BotID,
		Attack:         spec.Kind,
		Damage:         final,
		CounterHit:     counter,
		IsCombo:        attacker.Combo > 1,
		ComboHits:      attacker.Combo,
		DefenderHealth: defender.Health,
		Frame:          now,
	})}

	if defender.Health == 0 {
		defender.setState(StateKO, now)
		events = append(events, NewEvent(EventKO, now, KOPayload{
			Winner: attacker.BotID,
			Loser:  defender.BotID,
			Round:  st.Round,
		}))
		st.Phase = PhaseKO
		st.PhaseTimer = koFreezeSeconds * s.cfg.TickRate
		s.roundByKO = true
		s.roundWinner = attacker.BotID
		if attacker == st.P1 {
			st.P1Rounds++
		} else {
			st.P2Rounds++
		}
		return events
	}

	if spec.Knockdown {
		defender.Combo = 0 // Knockdown ends the defender's own combo
		defender.setState(StateKnockdown, now)
	} else {
		defender.Hitstun = spec.Hitstun
		defender.setState(StateHitstun, now)
	}

	return events
}

// tickState applies the frame-counted transitions: attack completion,
// hitstun expiry, knockdown → getting_up → idle with invincibility.
func (s *Simulation) tickState(f, opp *Fighter, now int) {
	switch f.State {
	case StateAttacking:
		spec := GetAttack(f.Attack)
		if f.frames(now) >= spec.Total() {
			f.clearAttack(now)
			if f.Grounded {
				f.setState(StateIdle, now)
			} else {
				f.setState(StateFalling, now)
			}
		}

	case StateHitstun:
		if f.frames(now) >= f.Hitstun {
			f.Hitstun = 0
			if f.Grounded {
				f.setState(StateIdle, now)
			} else {
				f.setState(StateFalling, now)
			}
			opp.Combo = 0 // Defender recovered, the combo is over
		}

	case StateKnockdown:
		if f.Grounded && f.frames(now) >= KnockdownFrames {
			f.setState(StateGettingUp, now)
			f.Invincible = true
		}

	case StateGettingUp:
		fr := f.frames(now)
		if fr >= GetUpInvulnEnd {
			f.Invincible = false
		}
		if fr >= GettingUpFrames {
			f.setState(StateIdle, now)
			opp.Combo = 0
		}

	case StateJumping:
		if !f.Grounded && f.VY <= 0 {
			f.setState(StateFalling, now)
		}
	}
}

// onLand handles the grounded transition out of airborne states.
func (s *Simulation) onLand(f *Fighter, now int) {
	switch f.State {
	case StateJumping, StateFalling:
		f.setState(StateIdle, now)
	}
	// Air attacks and stun states finish on their own timers.
}

// updateFacing turns an actionable fighter toward the opponent.
func (s *Simulation) updateFacing(f, opp *Fighter) {
	if !f.CanAct || f.State == StateAttacking {
		return
	}
	if opp.X < f.X {
		f.Facing = FacingLeft
	} else if opp.X > f.X {
		f.Facing = FacingRight
	}
}

// settlePhysics keeps bodies moving during the ko/timeout freeze so a
// launched fighter lands before round_end.
func (s *Simulation) settlePhysics(now int) {
	st := s.state
	if s.stepPhysics(st.P1, Neutral()) {
		s.onLand(st.P1, now)
	}
	if s.stepPhysics(st.P2, Neutral()) {
		s.onLand(st.P2, now)
	}
	s.tickState(st.P1, st.P2, now)
	s.tickState(st.P2, st.P1, now)
}

// resetRound returns both fighters to their spawns for the next round.
func (s *Simulation) resetRound(now int) {
	st := s.state
	st.Round++
	st.TimeRemaining = s.cfg.RoundTime
	st.Phase = PhaseCountdown
	st.PhaseTimer = countdownSeconds * s.cfg.TickRate
	st.P1.resetForRound(SpawnP1X, FacingRight)
	st.P2.resetForRound(SpawnP2X, FacingLeft)
	s.fightFrames = 0
	s.roundWinner = ""
	s.roundByKO = false
}
