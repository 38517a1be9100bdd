package game

// FighterState is the top-level state of a fighter's state machine.
type FighterState string

const (
	StateIdle      FighterState = "idle"
	StateWalking   FighterState = "walking"
	StateRunning   FighterState = "running"
	StateJumping   FighterState = "jumping"
	StateFalling   FighterState = "falling"
	StateAttacking FighterState = "attacking"
	StateBlocking  FighterState = "blocking"
	StateHitstun   FighterState = "hitstun"
	StateKnockdown FighterState = "knockdown"
	StateGettingUp FighterState = "getting_up"
	StateKO        FighterState = "ko"
)

// Facing is the horizontal orientation of a fighter.
type Facing string

const (
	FacingLeft  Facing = "left"
	FacingRight Facing = "right"
)

// Sign returns +1 for right, -1 for left.
func (f Facing) Sign() float64 {
	if f == FacingLeft {
		return -1
	}
	return 1
}

// Fighter is the full authoritative state of one fighter. All timers are
// frame-based so two runs with the same inputs are bit-identical.
type Fighter struct {
	BotID string `json:"botId"`

	Health    int `json:"health"`
	MaxHealth int `json:"maxHealth"`
	Magic     int `json:"magic"`
	MaxMagic  int `json:"maxMagic"`

	X  float64 `json:"x"`
	Y  float64 `json:"y"`
	VX float64 `json:"vx"`
	VY float64 `json:"vy"`

	Facing   Facing       `json:"facing"`
	State    FighterState `json:"state"`
	Grounded bool         `json:"grounded"`
	CanAct   bool         `json:"canAct"`

	Combo int `json:"combo"` // Hits in this fighter's current combo as attacker

	Attack      AttackKind  `json:"attack"`      // Current attack, if attacking
	AttackPhase AttackPhase `json:"attackPhase"` // startup/active/recovery/none
	HasHit      bool        `json:"hasHit"`      // Current attack already connected

	LastAttack      AttackKind `json:"lastAttack"`      // Most recent completed attack
	LastAttackFrame int        `json:"lastAttackFrame"` // Frame that attack completed

	StateStart int  `json:"stateStart"` // Frame the current state began
	Hitstun    int  `json:"hitstun"`    // Pending hitstun length in frames
	Invincible bool `json:"invincible"`
}

// NewFighter places a fighter at a spawn point at full health.
func NewFighter(botID string, x float64, facing Facing) *Fighter {
	return &Fighter{
		BotID:       botID,
		Health:      StartingHealth,
		MaxHealth:   StartingHealth,
		Magic:       0,
		MaxMagic:    MaxMagic,
		X:           x,
		Y:           GroundY,
		Facing:      facing,
		State:       StateIdle,
		Grounded:    true,
		CanAct:      true,
		AttackPhase: PhaseNone,
	}
}

// resetForRound returns the fighter to its spawn for a new round.
// Health and magic reset; combo bookkeeping clears.
func (f *Fighter) resetForRound(x float64, facing Facing) {
	f.Health = f.MaxHealth
	f.Magic = 0
	f.X = x
	f.Y = GroundY
	f.VX = 0
	f.VY = 0
	f.Facing = facing
	f.State = StateIdle
	f.Grounded = true
	f.CanAct = true
	f.Combo = 0
	f.Attack = AttackNone
	f.AttackPhase = PhaseNone
	f.HasHit = false
	f.LastAttack = AttackNone
	f.LastAttackFrame = 0
	f.StateStart = 0
	f.Hitstun = 0
	f.Invincible = false
}

// frames returns how many frames the fighter has spent in its current state.
func (f *Fighter) frames(now int) int {
	return now - f.StateStart
}

// setState transitions the fighter and records the transition frame.
func (f *Fighter) setState(state FighterState, now int) {
	f.State = state
	f.StateStart = now
	f.refreshCanAct()
}

// refreshCanAct recomputes the can-act flag from the current state.
// A fighter cannot act while stunned, downed, KO'd, or at any point of
// an attack (startup, active or recovery).
func (f *Fighter) refreshCanAct() {
	switch f.State {
	case StateHitstun, StateKnockdown, StateGettingUp, StateKO, StateAttacking:
		f.CanAct = false
	default:
		f.CanAct = true
	}
}

// Vulnerable reports whether the fighter can currently be hit.
func (f *Fighter) Vulnerable() bool {
	if f.Invincible {
		return false
	}
	return f.State != StateBlocking
}

// Airborne reports whether the fighter is off the ground.
func (f *Fighter) Airborne() bool {
	return !f.Grounded
}

// startAttack puts the fighter into the given attack, deducting magic for
// specials. The has-hit flag resets so the new attack may connect once.
func (f *Fighter) startAttack(kind AttackKind, now int) {
	spec := GetAttack(kind)
	f.Magic -= spec.MagicCost
	if f.Magic < 0 {
		f.Magic = 0
	}
	f.Attack = kind
	f.AttackPhase = PhaseStartup
	f.HasHit = false
	f.setState(StateAttacking, now)
}

// clearAttack ends the current attack, remembering it for chain windows.
func (f *Fighter) clearAttack(now int) {
	f.LastAttack = f.Attack
	f.LastAttackFrame = now
	f.Attack = AttackNone
	f.AttackPhase = PhaseNone
	f.HasHit = false
}

// chainReady reports whether the previous light attack's chain window is
// still live at the given frame.
func (f *Fighter) chainReady(now int) (AttackKind, bool) {
	spec := GetAttack(f.LastAttack)
	if f.LastAttack == AttackNone || spec.Next == AttackNone {
		return AttackNone, false
	}
	if now-f.LastAttackFrame <= spec.ChainWindow {
		return spec.Next, true
	}
	return AttackNone, false
}

// gainMagic adds meter, clamped to the maximum.
func (f *Fighter) gainMagic(amount int) {
	f.Magic += amount
	if f.Magic > f.MaxMagic {
		f.Magic = f.MaxMagic
	}
}
