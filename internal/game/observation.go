package game

import "math"

// SelfView is the observation a bot gets of its own fighter.
type SelfView struct {
	Health        int          `json:"health"`
	HealthPercent float64      `json:"healthPercent"`
	Magic         int          `json:"magic"`
	MagicPercent  float64      `json:"magicPercent"`
	X             float64      `json:"x"`
	Y             float64      `json:"y"`
	VX            float64      `json:"vx"`
	VY            float64      `json:"vy"`
	State         FighterState `json:"state"`
	Facing        Facing       `json:"facing"`
	Grounded      bool         `json:"grounded"`
	CanAct        bool         `json:"canAct"`
	Combo         int          `json:"combo"`
}

// OpponentView is the observation a bot gets of the other fighter.
type OpponentView struct {
	Health        int          `json:"health"`
	HealthPercent float64      `json:"healthPercent"`
	X             float64      `json:"x"`
	Y             float64      `json:"y"`
	State         FighterState `json:"state"`
	Facing        Facing       `json:"facing"`
	Attacking     bool         `json:"attacking"`
	Blocking      bool         `json:"blocking"`
	Vulnerable    bool         `json:"vulnerable"`
	Grounded      bool         `json:"grounded"`
}

// Observation is the per-frame view pushed to a bot during the fighting
// phase. DeadlineMs is filled by the match runtime with the wall-clock
// decision deadline in unix milliseconds.
type Observation struct {
	Frame          int          `json:"frame"`
	Self           SelfView     `json:"self"`
	Opponent       OpponentView `json:"opponent"`
	DistanceX      float64      `json:"distanceX"`
	DistanceY      float64      `json:"distanceY"`
	InAttackRange  bool         `json:"inAttackRange"`
	InSpecialRange bool         `json:"inSpecialRange"`
	Round          int          `json:"round"`
	RoundsWon      int          `json:"roundsWon"`
	RoundsLost     int          `json:"roundsLost"`
	TimeRemaining  int          `json:"timeRemaining"`
	DeadlineMs     int64        `json:"deadlineMs"`
	ValidActions   []string     `json:"validActions"`
}

// Observation builds the observation for the given bot. Returns a zero
// observation if the bot is not part of this simulation.
func (s *Simulation) Observation(botID string) Observation {
	st := s.state
	self := st.Fighter(botID)
	if self == nil {
		return Observation{}
	}
	opp := st.P2
	won, lost := st.P1Rounds, st.P2Rounds
	if self == st.P2 {
		opp = st.P1
		won, lost = st.P2Rounds, st.P1Rounds
	}

	dx := math.Abs(opp.X - self.X)
	dy := math.Abs(opp.Y - self.Y)

	return Observation{
		Frame: st.Frame,
		Self: SelfView{
			Health:        self.Health,
			HealthPercent: percent(self.Health, self.MaxHealth),
			Magic:         self.Magic,
			MagicPercent:  percent(self.Magic, self.MaxMagic),
			X:             self.X,
			Y:             self.Y,
			VX:            self.VX,
			VY:            self.VY,
			State:         self.State,
			Facing:        self.Facing,
			Grounded:      self.Grounded,
			CanAct:        self.CanAct,
			Combo:         self.Combo,
		},
		Opponent: OpponentView{
			Health:        opp.Health,
			HealthPercent: percent(opp.Health, opp.MaxHealth),
			X:             opp.X,
			Y:             opp.Y,
			State:         opp.State,
			Facing:        opp.Facing,
			Attacking:     opp.State == StateAttacking,
			Blocking:      opp.State == StateBlocking,
			Vulnerable:    opp.Vulnerable(),
			Grounded:      opp.Grounded,
		},
		DistanceX:      dx,
		DistanceY:      dy,
		InAttackRange:  dx <= GetAttack(AttackLight1).Range+FighterWidth,
		InSpecialRange: dx <= GetAttack(AttackSpecial).Range+FighterWidth,
		Round:          st.Round,
		RoundsWon:      won,
		RoundsLost:     lost,
		TimeRemaining:  st.TimeRemaining,
		ValidActions:   s.validActions(self),
	}
}

// validActions names the inputs that can change the fighter's state this
// frame given can-act and the magic meter.
func (s *Simulation) validActions(f *Fighter) []string {
	if !f.CanAct {
		return []string{}
	}
	actions := []string{"left", "right", "jump", "down", "attack1", "attack2"}
	if f.Magic >= GetAttack(AttackSpecial).MagicCost {
		actions = append(actions, "special")
	}
	return actions
}

func percent(val, max int) float64 {
	if max == 0 {
		return 0
	}
	return float64(val) / float64(max) * 100
}
