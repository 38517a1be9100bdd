// Package match runs live matches: a fixed-rate tick loop that owns one
// simulation, feeds it bot inputs, fans state out to spectators, and
// records a replay.
package match

import (
	"time"

	"bot-arena/internal/game"
)

// Frame is one recorded simulation frame. The state is a deep copy taken
// at record time so later simulation mutation cannot reach into the replay.
type Frame struct {
	Frame     int          `json:"frame"`
	Timestamp int64        `json:"timestamp"` // Unix milliseconds at record time
	State     *game.State  `json:"state"`
	Events    []game.Event `json:"events,omitempty"`
}

// FinalScore is the rounds tally at match end.
type FinalScore struct {
	P1Rounds int `json:"p1Rounds"`
	P2Rounds int `json:"p2Rounds"`
}

// Replay is the complete record of one match, suitable for storage and
// later playback.
type Replay struct {
	MatchID   string `json:"matchId"`
	P1ID      string `json:"p1Id"`
	P2ID      string `json:"p2Id"`
	TickRate  int    `json:"tickRate"`
	StartedAt int64  `json:"startedAt"` // Unix milliseconds
	EndedAt   int64  `json:"endedAt"`

	// WinnerID is empty on an overall draw.
	WinnerID   string     `json:"winnerId,omitempty"`
	FinalScore FinalScore `json:"finalScore"`

	Frames []Frame `json:"frames"`

	// KeyFrames indexes into Frames where a round started or ended:
	// round_start, ko and match_end frames. Lets playback seek without
	// scanning.
	KeyFrames []int `json:"keyFrames"`
}

// Recorder accumulates frames for one match. Not safe for concurrent use;
// the match runtime records from its tick loop only.
type Recorder struct {
	replay    *Replay
	finalized bool
}

// NewRecorder starts an empty replay for the given match.
func NewRecorder(matchID, p1ID, p2ID string, tickRate int) *Recorder {
	return &Recorder{
		replay: &Replay{
			MatchID:   matchID,
			P1ID:      p1ID,
			P2ID:      p2ID,
			TickRate:  tickRate,
			StartedAt: time.Now().UnixMilli(),
			KeyFrames: []int{},
		},
	}
}

// Record appends one frame. The state is deep-copied and the event slice
// is copied; frames carrying a round_start, ko or match_end event are
// indexed as key frames. No-op after Finalize.
func (r *Recorder) Record(st *game.State, events []game.Event) {
	if r.finalized {
		return
	}

	frame := Frame{
		Frame:     st.Frame,
		Timestamp: time.Now().UnixMilli(),
		State:     st.Clone(),
	}
	if len(events) > 0 {
		frame.Events = append([]game.Event(nil), events...)
	}
	r.replay.Frames = append(r.replay.Frames, frame)

	for _, ev := range events {
		switch ev.Type {
		case game.EventRoundStart, game.EventKO, game.EventMatchEnd:
			r.replay.KeyFrames = append(r.replay.KeyFrames, len(r.replay.Frames)-1)
		}
	}
}

// FrameCount returns the number of recorded frames.
func (r *Recorder) FrameCount() int {
	return len(r.replay.Frames)
}

// Finalize seals the replay with the match result and returns it.
// Idempotent: repeated calls return the same record without re-stamping.
func (r *Recorder) Finalize(winnerID string, score FinalScore) *Replay {
	if !r.finalized {
		r.finalized = true
		r.replay.EndedAt = time.Now().UnixMilli()
		r.replay.WinnerID = winnerID
		r.replay.FinalScore = score
	}
	return r.replay
}
