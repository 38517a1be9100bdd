package game

// Input is one frame of bot intent. All fields are booleans so a bot can
// hold several directions and buttons at once; the state machine resolves
// conflicts by priority.
type Input struct {
	Left    bool `json:"left"`
	Right   bool `json:"right"`
	Up      bool `json:"up"`
	Down    bool `json:"down"`
	Attack1 bool `json:"attack1"`
	Attack2 bool `json:"attack2"`
	Jump    bool `json:"jump"`
	Special bool `json:"special"`
}

// Neutral returns the default "no input" substituted when a bot misses
// its decision deadline.
func Neutral() Input {
	return Input{}
}

// horizontal returns -1, 0 or +1 for the held direction. Right wins a
// conflict so the result is deterministic.
func (in Input) horizontal() float64 {
	switch {
	case in.Right:
		return 1
	case in.Left:
		return -1
	default:
		return 0
	}
}
