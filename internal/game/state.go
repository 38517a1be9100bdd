package game

// MatchPhase is the lifecycle phase of the simulated match.
type MatchPhase string

const (
	PhaseCountdown MatchPhase = "countdown"
	PhaseFighting  MatchPhase = "fighting"
	PhaseKO        MatchPhase = "ko"
	PhaseTimeout   MatchPhase = "timeout"
	PhaseRoundEnd  MatchPhase = "round_end"
	PhaseMatchEnd  MatchPhase = "match_end"
)

// State is the complete authoritative simulation state. It is what
// spectators receive each frame and what replay frames snapshot.
type State struct {
	MatchID string     `json:"matchId"`
	Frame   int        `json:"frame"`
	Phase   MatchPhase `json:"phase"`

	P1 *Fighter `json:"p1"`
	P2 *Fighter `json:"p2"`

	Round         int `json:"round"`
	P1Rounds      int `json:"p1Rounds"`
	P2Rounds      int `json:"p2Rounds"`
	TimeRemaining int `json:"timeRemaining"` // Seconds left in the round

	// Winner is the bot identity of the overall match winner, set only
	// once the phase reaches match_end. Empty means undecided or draw.
	Winner string `json:"winner,omitempty"`

	// PhaseTimer counts down the frames left in countdown, ko/timeout
	// freeze, and round_end.
	PhaseTimer int `json:"phaseTimer"`
}

// Clone returns a deep copy of the state. Replay frames must be immutable
// snapshots independent of subsequent mutation.
func (s *State) Clone() *State {
	out := *s
	p1 := *s.P1
	p2 := *s.P2
	out.P1 = &p1
	out.P2 = &p2
	return &out
}

// Fighter returns the fighter with the given bot identity, or nil.
func (s *State) Fighter(botID string) *Fighter {
	switch botID {
	case s.P1.BotID:
		return s.P1
	case s.P2.BotID:
		return s.P2
	default:
		return nil
	}
}
