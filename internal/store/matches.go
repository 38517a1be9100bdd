package store

import (
	"sync"

	"bot-arena/internal/match"
)

// MatchRecord is one persisted match with its replay.
type MatchRecord struct {
	MatchID  string           `json:"matchId"`
	P1ID     string           `json:"p1Id"`
	P1Name   string           `json:"p1Name"`
	P2ID     string           `json:"p2Id"`
	P2Name   string           `json:"p2Name"`
	WinnerID string           `json:"winnerId,omitempty"`
	Score    match.FinalScore `json:"finalScore"`
	EndedAt  int64            `json:"endedAt"`

	// Replay is omitted from listings; only GetMatch loads it.
	Replay *match.Replay `json:"replay,omitempty"`
}

// MatchStore is the match history collaborator. Implementations must not
// lose the record once SaveMatch returns; nothing else is guaranteed.
type MatchStore interface {
	SaveMatch(replay *match.Replay, p1Name, p2Name string) error
	GetMatch(matchID string) (*MatchRecord, error)
	GetRecentMatches(limit int) ([]MatchRecord, error)
	GetBotMatches(botID string, limit int) ([]MatchRecord, error)
}

// MemoryMatchStore keeps match history in memory, newest last.
type MemoryMatchStore struct {
	mu      sync.RWMutex
	records []MatchRecord
	byID    map[string]int
}

// NewMemoryMatchStore creates an empty history.
func NewMemoryMatchStore() *MemoryMatchStore {
	return &MemoryMatchStore{byID: make(map[string]int)}
}

func (s *MemoryMatchStore) SaveMatch(replay *match.Replay, p1Name, p2Name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := MatchRecord{
		MatchID:  replay.MatchID,
		P1ID:     replay.P1ID,
		P1Name:   p1Name,
		P2ID:     replay.P2ID,
		P2Name:   p2Name,
		WinnerID: replay.WinnerID,
		Score:    replay.FinalScore,
		EndedAt:  replay.EndedAt,
		Replay:   replay,
	}
	if i, ok := s.byID[rec.MatchID]; ok {
		s.records[i] = rec
		return nil
	}
	s.byID[rec.MatchID] = len(s.records)
	s.records = append(s.records, rec)
	return nil
}

func (s *MemoryMatchStore) GetMatch(matchID string) (*MatchRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i, ok := s.byID[matchID]
	if !ok {
		return nil, nil
	}
	rec := s.records[i]
	return &rec, nil
}

func (s *MemoryMatchStore) GetRecentMatches(limit int) ([]MatchRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collect(limit, func(MatchRecord) bool { return true }), nil
}

func (s *MemoryMatchStore) GetBotMatches(botID string, limit int) ([]MatchRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collect(limit, func(r MatchRecord) bool {
		return r.P1ID == botID || r.P2ID == botID
	}), nil
}

// collect walks newest-first, stripping replay payloads from listings.
// Caller holds the read lock.
func (s *MemoryMatchStore) collect(limit int, keep func(MatchRecord) bool) []MatchRecord {
	if limit <= 0 {
		limit = 20
	}
	out := make([]MatchRecord, 0, limit)
	for i := len(s.records) - 1; i >= 0 && len(out) < limit; i-- {
		if keep(s.records[i]) {
			rec := s.records[i]
			rec.Replay = nil
			out = append(out, rec)
		}
	}
	return out
}
