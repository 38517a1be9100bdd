package game

// AttackKind identifies one entry of the attack table.
type AttackKind string

const (
	AttackNone     AttackKind = ""
	AttackLight1   AttackKind = "light_1"
	AttackLight2   AttackKind = "light_2"
	AttackLight3   AttackKind = "light_3"
	AttackLight4   AttackKind = "light_4"
	AttackHeavy    AttackKind = "heavy"
	AttackAirLight AttackKind = "air_light"
	AttackAirHeavy AttackKind = "air_heavy"
	AttackSpecial  AttackKind = "special"
)

// AttackPhase is the sub-phase of an attack in flight.
type AttackPhase string

const (
	PhaseNone     AttackPhase = "none"
	PhaseStartup  AttackPhase = "startup"
	PhaseActive   AttackPhase = "active"
	PhaseRecovery AttackPhase = "recovery"
)

// AttackSpec holds the fixed frame data for one attack kind.
// All timings are in simulation frames. These are server-authoritative
// balance parameters and cannot be modified by clients.
type AttackSpec struct {
	Kind     AttackKind
	Startup  int // Frames before the hitbox goes live
	Active   int // Frames the hitbox stays live
	Recovery int // Frames after the hitbox retires

	Damage  int     // Base damage before scaling
	Hitstun int     // Frames of hitstun inflicted on hit
	KnockX  float64 // Horizontal knockback speed, away from attacker
	KnockY  float64 // Upward knockback speed

	Knockdown bool // Hit sends the defender into knockdown instead of hitstun

	Range  float64 // Hitbox reach from the attacker's front edge
	Height float64 // Hitbox height from the attacker's feet

	MagicCost   int        // Magic meter cost (special only)
	ChainWindow int        // Frames after recovery during which the chain advances
	Next        AttackKind // Next attack in the light chain
}

// Total returns the full frame budget of the attack.
func (a AttackSpec) Total() int {
	return a.Startup + a.Active + a.Recovery
}

// attackTable is the authoritative frame data, tuned for 60 ticks/second.
var attackTable = map[AttackKind]AttackSpec{
	AttackLight1: {
		Kind: AttackLight1, Startup: 4, Active: 3, Recovery: 8,
		Damage: 40, Hitstun: 12, KnockX: 80,
		Range: 70, Height: 120,
		ChainWindow: 12, Next: AttackLight2,
	},
	AttackLight2: {
		Kind: AttackLight2, Startup: 4, Active: 3, Recovery: 9,
		Damage: 45, Hitstun: 14, KnockX: 100,
		Range: 70, Height: 120,
		ChainWindow: 12, Next: AttackLight3,
	},
	AttackLight3: {
		Kind: AttackLight3, Startup: 5, Active: 3, Recovery: 10,
		Damage: 50, Hitstun: 16, KnockX: 120,
		Range: 75, Height: 120,
		ChainWindow: 12, Next: AttackLight4,
	},
	AttackLight4: {
		Kind: AttackLight4, Startup: 6, Active: 4, Recovery: 14,
		Damage: 70, Hitstun: 20, KnockX: 260, KnockY: 200,
		Knockdown: true,
		Range:     80, Height: 130,
	},
	AttackHeavy: {
		Kind: AttackHeavy, Startup: 10, Active: 4, Recovery: 18,
		Damage: 90, Hitstun: 24, KnockX: 220, KnockY: 150,
		Knockdown: true,
		Range:     90, Height: 140,
	},
	AttackAirLight: {
		Kind: AttackAirLight, Startup: 4, Active: 4, Recovery: 8,
		Damage: 45, Hitstun: 14, KnockX: 90,
		Range: 70, Height: 110,
	},
	AttackAirHeavy: {
		Kind: AttackAirHeavy, Startup: 8, Active: 5, Recovery: 14,
		Damage: 80, Hitstun: 20, KnockX: 180, KnockY: 120,
		Knockdown: true,
		Range:     85, Height: 130,
	},
	AttackSpecial: {
		Kind: AttackSpecial, Startup: 12, Active: 6, Recovery: 22,
		Damage: 140, Hitstun: 30, KnockX: 320, KnockY: 260,
		Knockdown: true,
		Range:     140, Height: 160,
		MagicCost: 50,
	},
}

// GetAttack returns the frame data for an attack kind.
// Unknown kinds fall back to light_1 so a corrupt state can never panic.
func GetAttack(kind AttackKind) AttackSpec {
	if spec, ok := attackTable[kind]; ok {
		return spec
	}
	return attackTable[AttackLight1]
}
