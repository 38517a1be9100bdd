package store

import (
	"path/filepath"
	"testing"

	"bot-arena/internal/match"
)

func testReplay(id, p1, p2, winner string, endedAt int64) *match.Replay {
	return &match.Replay{
		MatchID:    id,
		P1ID:       p1,
		P2ID:       p2,
		TickRate:   60,
		StartedAt:  endedAt - 1000,
		EndedAt:    endedAt,
		WinnerID:   winner,
		FinalScore: match.FinalScore{P1Rounds: 2, P2Rounds: 1},
		KeyFrames:  []int{},
	}
}

// matchStores builds each MatchStore implementation for the shared tests.
func matchStores(t *testing.T) map[string]MatchStore {
	t.Helper()

	sqlite, err := OpenSQLiteMatchStore(filepath.Join(t.TempDir(), "matches.db"))
	if err != nil {
		t.Fatalf("open sqlite store: %v", err)
	}
	t.Cleanup(func() { sqlite.Close() })

	return map[string]MatchStore{
		"memory": NewMemoryMatchStore(),
		"sqlite": sqlite,
	}
}

// TestSaveAndGetMatch verifies the full record round-trips through each
// store
func TestSaveAndGetMatch(t *testing.T) {
	for name, s := range matchStores(t) {
		t.Run(name, func(t *testing.T) {
			if err := s.SaveMatch(testReplay("m1", "a", "b", "a", 1000), "Alpha", "Beta"); err != nil {
				t.Fatalf("save: %v", err)
			}

			rec, err := s.GetMatch("m1")
			if err != nil {
				t.Fatalf("get: %v", err)
			}
			if rec == nil {
				t.Fatal("expected a record")
			}
			if rec.P1Name != "Alpha" || rec.P2Name != "Beta" || rec.WinnerID != "a" {
				t.Errorf("unexpected record %+v", rec)
			}
			if rec.Score != (match.FinalScore{P1Rounds: 2, P2Rounds: 1}) {
				t.Errorf("unexpected score %+v", rec.Score)
			}
			if rec.Replay == nil || rec.Replay.MatchID != "m1" || rec.Replay.TickRate != 60 {
				t.Error("replay should load with the record")
			}

			missing, err := s.GetMatch("nope")
			if err != nil || missing != nil {
				t.Errorf("missing match should be (nil, nil), got (%v, %v)", missing, err)
			}
		})
	}
}

// TestRecentAndBotQueries verifies ordering, limits and participant
// filtering
func TestRecentAndBotQueries(t *testing.T) {
	for name, s := range matchStores(t) {
		t.Run(name, func(t *testing.T) {
			s.SaveMatch(testReplay("m1", "a", "b", "a", 1000), "Alpha", "Beta")
			s.SaveMatch(testReplay("m2", "b", "c", "c", 2000), "Beta", "Gamma")
			s.SaveMatch(testReplay("m3", "a", "c", "", 3000), "Alpha", "Gamma")

			recent, err := s.GetRecentMatches(2)
			if err != nil {
				t.Fatalf("recent: %v", err)
			}
			if len(recent) != 2 || recent[0].MatchID != "m3" || recent[1].MatchID != "m2" {
				t.Errorf("expected newest two [m3 m2], got %+v", recent)
			}
			if recent[0].Replay != nil {
				t.Error("listings should not carry replay payloads")
			}

			forA, err := s.GetBotMatches("a", 10)
			if err != nil {
				t.Fatalf("bot matches: %v", err)
			}
			if len(forA) != 2 || forA[0].MatchID != "m3" || forA[1].MatchID != "m1" {
				t.Errorf("expected a's matches [m3 m1], got %+v", forA)
			}

			none, err := s.GetBotMatches("zzz", 10)
			if err != nil || len(none) != 0 {
				t.Errorf("unknown bot should have no matches, got (%v, %v)", none, err)
			}
		})
	}
}

// TestSaveMatchIdempotent verifies re-saving a match replaces rather than
// duplicates
func TestSaveMatchIdempotent(t *testing.T) {
	for name, s := range matchStores(t) {
		t.Run(name, func(t *testing.T) {
			s.SaveMatch(testReplay("m1", "a", "b", "", 1000), "Alpha", "Beta")
			s.SaveMatch(testReplay("m1", "a", "b", "b", 2000), "Alpha", "Beta")

			recent, _ := s.GetRecentMatches(10)
			if len(recent) != 1 {
				t.Fatalf("expected a single record, got %d", len(recent))
			}
			if recent[0].WinnerID != "b" {
				t.Error("second save should replace the record")
			}
		})
	}
}
