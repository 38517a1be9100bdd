package game

import "encoding/json"

// EventType classifies the events a simulation emits while stepping.
type EventType string

const (
	EventRoundStart EventType = "round_start"
	EventDamage     EventType = "damage"
	EventKO         EventType = "ko"
	EventRoundEnd   EventType = "round_end"
	EventMatchEnd   EventType = "match_end"
)

// Event is one simulation event. The payload is kept as encoded JSON so
// replay frames round-trip byte for byte.
type Event struct {
	Type    EventType       `json:"type"`
	Frame   int             `json:"frame"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// RoundStartPayload announces the start of the fighting phase of a round.
type RoundStartPayload struct {
	Round int `json:"round"`
}

// DamagePayload carries one resolved hit.
type DamagePayload struct {
	Attacker        string     `json:"attacker"`
	Defender        string     `json:"defender"`
	Attack          AttackKind `json:"attack"`
	Damage          int        `json:"damage"`
	CounterHit      bool       `json:"counterHit"`
	IsCombo         bool       `json:"isCombo"`
	ComboHits       int        `json:"comboHits"`
	DefenderHealth  int        `json:"defenderHealth"`
	Frame           int        `json:"frame"`
}

// KOPayload marks the end of a round by knockout.
type KOPayload struct {
	Winner string `json:"winner"`
	Loser  string `json:"loser"`
	Round  int    `json:"round"`
}

// RoundEndPayload marks the end of a round by KO or timeout.
// Winner is empty when the round is a draw.
type RoundEndPayload struct {
	Round    int    `json:"round"`
	Winner   string `json:"winner"`
	ByKO     bool   `json:"byKo"`
	P1Rounds int    `json:"p1Rounds"`
	P2Rounds int    `json:"p2Rounds"`
}

// MatchEndPayload marks the terminal state of the simulation.
// Winner is empty on an overall draw.
type MatchEndPayload struct {
	Winner   string `json:"winner"`
	P1Rounds int    `json:"p1Rounds"`
	P2Rounds int    `json:"p2Rounds"`
}

// NewEvent builds an event with its payload encoded inline.
func NewEvent(eventType EventType, frame int, payload interface{}) Event {
	data, err := json.Marshal(payload)
	if err != nil {
		data = nil
	}
	return Event{Type: eventType, Frame: frame, Payload: data}
}

// DecodePayload unmarshals the event payload into out.
func (e Event) DecodePayload(out interface{}) error {
	return json.Unmarshal(e.Payload, out)
}
