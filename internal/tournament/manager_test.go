package tournament

import (
	"fmt"
	"math/rand"
	"testing"
)

// fakeStarter hands out match ids and remembers which pairs were asked
// for.
type fakeStarter struct {
	next    int
	started map[string][2]string // match id → pair
}

func newFakeStarter() *fakeStarter {
	return &fakeStarter{started: make(map[string][2]string)}
}

func (f *fakeStarter) StartTournamentMatch(tournamentID, bot1, bot2 string) (string, error) {
	f.next++
	id := fmt.Sprintf("match-%d", f.next)
	f.started[id] = [2]string{bot1, bot2}
	return id, nil
}

// brokenStarter refuses every match, forcing the walkover path.
type brokenStarter struct{}

func (brokenStarter) StartTournamentMatch(tournamentID, bot1, bot2 string) (string, error) {
	return "", fmt.Errorf("no capacity")
}

type fakeFinisher struct {
	results []Result
}

func (f *fakeFinisher) TournamentCompleted(res Result) {
	f.results = append(f.results, res)
}

func newTestManager() (*Manager, *fakeStarter, *fakeFinisher) {
	st := newFakeStarter()
	fin := &fakeFinisher{}
	return NewManager(st, fin, rand.New(rand.NewSource(42))), st, fin
}

// playRound resolves every started-but-unresolved match, first bot wins.
func playRound(m *Manager, st *fakeStarter, played map[string]bool) {
	for id, pair := range st.started {
		if !played[id] {
			played[id] = true
			m.HandleResult(id, pair[0])
		}
	}
}

// TestCreateValidation verifies bracket-size and prize-sum checks
func TestCreateValidation(t *testing.T) {
	m, _, _ := newTestManager()

	tests := []struct {
		name    string
		size    int
		prizes  []float64
		wantErr bool
	}{
		{"valid 8", 8, []float64{50, 30, 20}, false},
		{"valid 16", 16, []float64{100}, false},
		{"bad size", 4, []float64{100}, true},
		{"prizes under 100", 8, []float64{50, 30}, true},
		{"prizes over 100", 8, []float64{60, 60}, true},
		{"rounding tolerance", 8, []float64{33.33, 33.33, 33.34}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := m.Create(tt.name, "", tt.size, 100, tt.prizes)
			if (err != nil) != tt.wantErr {
				t.Errorf("Create() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

// TestJoinRules verifies registration-only joins, duplicates and capacity
func TestJoinRules(t *testing.T) {
	m, _, _ := newTestManager()
	v, err := m.Create("cup", "", 8, 10, []float64{100})
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 8; i++ {
		if err := m.Join(v.ID, fmt.Sprintf("bot%d", i)); err != nil {
			t.Fatalf("join %d: %v", i, err)
		}
	}
	if err := m.Join(v.ID, "bot0"); err == nil {
		t.Error("duplicate join should fail")
	}
	if err := m.Join(v.ID, "bot9"); err == nil {
		t.Error("joining a full tournament should fail")
	}
	if err := m.Join("nope", "bot0"); err == nil {
		t.Error("joining an unknown tournament should fail")
	}

	if err := m.Start(v.ID); err != nil {
		t.Fatal(err)
	}
	if err := m.Join(v.ID, "late"); err == nil {
		t.Error("joining after start should fail")
	}
}

// TestByeTournament runs the 7-registrant bracket to completion and
// checks the placement shape: one champion, two second places
func TestByeTournament(t *testing.T) {
	m, st, fin := newTestManager()
	v, _ := m.Create("cup", "", 8, 10, []float64{50, 30, 20})
	for i := 0; i < 7; i++ {
		m.Join(v.ID, fmt.Sprintf("bot%d", i))
	}
	if err := m.Start(v.ID); err != nil {
		t.Fatal(err)
	}

	// Round 0: three real matches, one bye.
	if len(st.started) != 3 {
		t.Fatalf("expected 3 round-0 matches, got %d", len(st.started))
	}
	bracket, _ := m.Bracket(v.ID)
	byes := 0
	for _, s := range bracket.Bracket[0] {
		if s.MatchID == "" && s.Winner != "" {
			byes++
		}
	}
	if byes != 1 {
		t.Fatalf("expected exactly one bye, got %d", byes)
	}

	played := map[string]bool{}
	for round := 0; round < 3; round++ {
		playRound(m, st, played)
	}

	if len(fin.results) != 1 {
		t.Fatalf("expected one completion callback, got %d", len(fin.results))
	}
	res := fin.results[0]

	if res.PrizePool != 70 {
		t.Errorf("expected prize pool 70, got %d", res.PrizePool)
	}
	if len(res.Placements) != 7 {
		t.Errorf("expected all 7 bots placed, got %d", len(res.Placements))
	}
	counts := map[int]int{}
	for _, p := range res.Placements {
		counts[p]++
	}
	if counts[1] != 1 {
		t.Errorf("expected exactly one champion, got %d", counts[1])
	}
	if counts[2] != 2 {
		t.Errorf("expected exactly two second places, got %d", counts[2])
	}

	final, _ := m.Bracket(v.ID)
	if final.Status != StatusCompleted {
		t.Errorf("expected completed status, got %s", final.Status)
	}
	winner := final.Bracket[len(final.Bracket)-1][0].Winner
	if res.Placements[winner] != 1 {
		t.Error("bracket winner should hold placement 1")
	}
}

// TestResultIdempotent verifies a repeated or stale result leaves the
// bracket unchanged
func TestResultIdempotent(t *testing.T) {
	m, st, _ := newTestManager()
	v, _ := m.Create("cup", "", 8, 0, []float64{100})
	for i := 0; i < 8; i++ {
		m.Join(v.ID, fmt.Sprintf("bot%d", i))
	}
	m.Start(v.ID)

	var matchID string
	var pair [2]string
	for id, p := range st.started {
		matchID, pair = id, p
		break
	}

	m.HandleResult(matchID, pair[0])
	before, _ := m.Bracket(v.ID)

	// Same result again, then the other bot claiming the same slot.
	m.HandleResult(matchID, pair[0])
	m.HandleResult(matchID, pair[1])
	m.HandleResult("ghost-match", "bot0")

	after, _ := m.Bracket(v.ID)
	if fmt.Sprintf("%+v", before) != fmt.Sprintf("%+v", after) {
		t.Error("repeated or stale results must not change the bracket")
	}
}

// TestBracketShape verifies round sizing and the advancement invariant
func TestBracketShape(t *testing.T) {
	m, st, _ := newTestManager()
	v, _ := m.Create("cup", "", 16, 5, []float64{100})
	for i := 0; i < 16; i++ {
		m.Join(v.ID, fmt.Sprintf("bot%d", i))
	}
	m.Start(v.ID)

	b, _ := m.Bracket(v.ID)
	want := []int{8, 4, 2, 1}
	if len(b.Bracket) != len(want) {
		t.Fatalf("expected %d rounds, got %d", len(want), len(b.Bracket))
	}
	for i, n := range want {
		if len(b.Bracket[i]) != n {
			t.Errorf("round %d: expected %d slots, got %d", i, n, len(b.Bracket[i]))
		}
	}
	if b.TotalRounds != 4 {
		t.Errorf("expected 4 total rounds, got %d", b.TotalRounds)
	}

	// A participant appears at most once per round.
	for i, round := range b.Bracket {
		seen := map[string]bool{}
		for _, s := range round {
			for _, bot := range []string{s.Bot1, s.Bot2} {
				if bot == "" {
					continue
				}
				if seen[bot] {
					t.Errorf("round %d: %s appears twice", i, bot)
				}
				seen[bot] = true
			}
		}
	}

	// in_progress always satisfies currentRound < totalRounds.
	played := map[string]bool{}
	for round := 0; round < 4; round++ {
		cur, _ := m.Bracket(v.ID)
		if cur.Status == StatusInProgress && cur.CurrentRound >= cur.TotalRounds {
			t.Fatal("currentRound must stay below totalRounds while in progress")
		}
		playRound(m, st, played)
	}
	if final, _ := m.Bracket(v.ID); final.Status != StatusCompleted {
		t.Errorf("expected completed, got %s", final.Status)
	}
}

// TestDrawnMatchResolvesSlot verifies a result without a winner still
// resolves the bracket slot instead of stalling the tournament
func TestDrawnMatchResolvesSlot(t *testing.T) {
	m, st, fin := newTestManager()
	v, _ := m.Create("cup", "", 8, 10, []float64{100})
	m.Join(v.ID, "alpha")
	m.Join(v.ID, "beta")
	if err := m.Start(v.ID); err != nil {
		t.Fatal(err)
	}
	if len(st.started) != 1 {
		t.Fatalf("expected 1 match, got %d", len(st.started))
	}

	var matchID string
	var pair [2]string
	for id, p := range st.started {
		matchID, pair = id, p
	}

	m.HandleResult(matchID, "")

	b, _ := m.Bracket(v.ID)
	if b.Status != StatusCompleted {
		t.Fatalf("drawn match left tournament %s, want completed", b.Status)
	}
	if len(fin.results) != 1 {
		t.Fatalf("expected one completion callback, got %d", len(fin.results))
	}
	res := fin.results[0]

	// The slot's first seed advances on a draw.
	if res.Placements[pair[0]] != 1 {
		t.Errorf("%s placement = %d, want 1", pair[0], res.Placements[pair[0]])
	}
	if p, ok := res.Placements[pair[1]]; !ok || p <= 1 {
		t.Errorf("%s placement = %d, want eliminated", pair[1], p)
	}
}

// TestFailedMatchStartPlacesBothBots verifies the walkover path still
// assigns a placement to the displaced bot
func TestFailedMatchStartPlacesBothBots(t *testing.T) {
	fin := &fakeFinisher{}
	m := NewManager(brokenStarter{}, fin, rand.New(rand.NewSource(42)))

	v, _ := m.Create("cup", "", 8, 10, []float64{100})
	bots := []string{"bot0", "bot1", "bot2", "bot3"}
	for _, b := range bots {
		m.Join(v.ID, b)
	}
	if err := m.Start(v.ID); err != nil {
		t.Fatal(err)
	}

	// Every match refused: walkovers cascade straight to completion.
	if len(fin.results) != 1 {
		t.Fatalf("expected one completion callback, got %d", len(fin.results))
	}
	res := fin.results[0]

	if len(res.Placements) != len(bots) {
		t.Fatalf("expected all %d bots placed, got %d: %v", len(bots), len(res.Placements), res.Placements)
	}
	champions := 0
	for _, b := range bots {
		p, ok := res.Placements[b]
		if !ok || p < 1 {
			t.Errorf("%s has no placement", b)
		}
		if p == 1 {
			champions++
		}
	}
	if champions != 1 {
		t.Errorf("expected exactly one champion, got %d", champions)
	}

	b, _ := m.Bracket(v.ID)
	winner := b.Bracket[len(b.Bracket)-1][0].Winner
	if res.Placements[winner] != 1 {
		t.Error("bracket winner should hold placement 1")
	}
}

// TestCancel verifies cancellation rules and that late results become
// no-ops
func TestCancel(t *testing.T) {
	m, st, fin := newTestManager()
	v, _ := m.Create("cup", "", 8, 10, []float64{100})
	for i := 0; i < 8; i++ {
		m.Join(v.ID, fmt.Sprintf("bot%d", i))
	}
	m.Start(v.ID)

	if err := m.Cancel(v.ID); err != nil {
		t.Fatal(err)
	}
	b, _ := m.Bracket(v.ID)
	if b.Status != StatusCancelled {
		t.Errorf("expected cancelled, got %s", b.Status)
	}
	if err := m.Cancel(v.ID); err == nil {
		t.Error("cancelling twice should fail")
	}

	// An in-flight match result after cancellation changes nothing.
	for id, pair := range st.started {
		m.HandleResult(id, pair[0])
		break
	}
	after, _ := m.Bracket(v.ID)
	if after.Status != StatusCancelled || len(fin.results) != 0 {
		t.Error("late results must not advance a cancelled tournament")
	}
}
