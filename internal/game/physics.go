package game

// Stage geometry and movement constants. Coordinates are y-up: the ground
// is y=0 and airborne fighters have y > 0. All speeds are units/second;
// integration uses deltaTime = 1/tickRate so the same inputs at the same
// tick rate always produce the same positions.
const (
	StageWidth  = 800.0
	StageMinX   = 40.0 // Fighters keep half a body off each wall
	StageMaxX   = StageWidth - 40.0
	GroundY     = 0.0
	SpawnP1X    = 200.0
	SpawnP2X    = 600.0

	FighterWidth  = 60.0
	FighterHeight = 180.0

	WalkSpeed    = 200.0
	RunSpeed     = 350.0
	Acceleration = 12.0 // Lerp coefficient toward target velocity
	JumpVelocity = 620.0
	Gravity      = 1800.0

	StartingHealth = 1000
	MaxMagic       = 100
	MagicOnHit     = 8

	// Combo damage scaling: hits beyond ComboScalingStart are diminished
	// by ComboScalingFactor per hit, never below ComboScalingFloor.
	ComboScalingStart  = 3
	ComboScalingFactor = 0.9
	ComboScalingFloor  = 0.5
	CounterHitBonus    = 1.2

	KnockdownFrames  = 45
	GettingUpFrames  = 30
	GetUpInvulnEnd   = 20 // Invincibility ends this many frames into getting_up
)

// controllable reports whether movement input steers the fighter.
// Attacks keep steering so a fighter drifts toward the held direction
// mid-swing; stun, knockdown, blocking and KO do not.
func controllable(state FighterState) bool {
	switch state {
	case StateIdle, StateWalking, StateRunning, StateJumping, StateFalling, StateAttacking:
		return true
	default:
		return false
	}
}

// stepPhysics integrates one fighter for one tick. Returns true if the
// fighter landed this tick.
func (s *Simulation) stepPhysics(f *Fighter, in Input) bool {
	dt := 1.0 / float64(s.cfg.TickRate)

	// Horizontal: input sets a target velocity, actual velocity lerps
	// toward it. Uncontrollable states keep their momentum (knockback
	// carries through hitstun).
	if controllable(f.State) {
		speed := WalkSpeed
		if f.State == StateRunning {
			speed = RunSpeed
		}
		target := in.horizontal() * speed
		f.VX += (target - f.VX) * Acceleration * dt
	} else if f.Grounded {
		// Ground friction while stunned or downed.
		f.VX += (0 - f.VX) * Acceleration * 0.5 * dt
	}

	// Gravity accumulates while airborne.
	if !f.Grounded {
		f.VY -= Gravity * dt
	}

	f.X += f.VX * dt
	f.Y += f.VY * dt

	// Stage bounds.
	if f.X < StageMinX {
		f.X = StageMinX
		if f.VX < 0 {
			f.VX = 0
		}
	}
	if f.X > StageMaxX {
		f.X = StageMaxX
		if f.VX > 0 {
			f.VX = 0
		}
	}

	// Leaving the ground.
	if f.Grounded && f.Y > GroundY {
		f.Grounded = false
	}

	// Landing.
	landed := false
	if !f.Grounded && f.Y <= GroundY && f.VY <= 0 {
		f.Y = GroundY
		f.VY = 0
		f.Grounded = true
		landed = true
	}

	return landed
}

// applyKnockback launches the defender away from the attacker.
func applyKnockback(defender *Fighter, spec AttackSpec, fromDirection float64) {
	defender.VX = spec.KnockX * fromDirection
	if spec.KnockY > 0 {
		defender.VY = spec.KnockY
		defender.Grounded = false
	}
}
