// Package tournament implements single-elimination tournaments: bracket
// generation with uniform seeding, bye handling, winner advancement,
// placement tracking and prize-pool bookkeeping.
package tournament

import (
	"log"
	"math"
	"math/rand"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Status is the lifecycle state of a tournament.
type Status string

const (
	StatusRegistration Status = "registration"
	StatusInProgress   Status = "in_progress"
	StatusCompleted    Status = "completed"
	StatusCancelled    Status = "cancelled"
)

// FormatSingleElimination is the only supported bracket format.
const FormatSingleElimination = "single_elimination"

// Slot is one pairing in a bracket round. Empty bot fields mean "no
// participant" (a bye or a void slot).
type Slot struct {
	Index   int    `json:"index"`
	MatchID string `json:"matchId,omitempty"`
	Bot1    string `json:"bot1,omitempty"`
	Bot2    string `json:"bot2,omitempty"`
	Winner  string `json:"winner,omitempty"`

	// Void marks a slot with no participants at all; it resolves to no
	// winner and only exists to keep rounds power-of-two shaped.
	Void bool `json:"void,omitempty"`
}

func (s *Slot) resolved() bool {
	return s.Void || s.Winner != ""
}

// Tournament holds one bracket. All mutable fields (bracket, active
// index, placements, status) are guarded together by a single mutex so
// advancement is atomic.
type Tournament struct {
	ID                string
	Name              string
	Format            string
	BracketSize       int
	BuyIn             int
	PrizeDistribution []float64

	mu           sync.Mutex
	status       Status
	participants []string
	bracket      [][]Slot
	currentRound int
	totalRounds  int
	active       map[string][2]int // match id → (round, slot)
	placements   map[string]int
}

// View is an immutable snapshot of a tournament for wire serialization.
type View struct {
	ID                string         `json:"id"`
	Name              string         `json:"name"`
	Format            string         `json:"format"`
	BracketSize       int            `json:"bracketSize"`
	BuyIn             int            `json:"buyIn"`
	PrizeDistribution []float64      `json:"prizeDistribution"`
	Status            Status         `json:"status"`
	Participants      []string       `json:"participants"`
	Bracket           [][]Slot       `json:"bracket,omitempty"`
	CurrentRound      int            `json:"currentRound"`
	TotalRounds       int            `json:"totalRounds"`
	Placements        map[string]int `json:"placements,omitempty"`
}

// Result is handed to the Finisher when a tournament completes.
type Result struct {
	TournamentID      string
	Name              string
	Placements        map[string]int
	PrizePool         int // buyIn × participant count
	PrizeDistribution []float64
}

// MatchStarter creates a real match for a bracket slot and returns its
// identifier. Implemented by the controller.
type MatchStarter interface {
	StartTournamentMatch(tournamentID, bot1, bot2 string) (matchID string, err error)
}

// Finisher is notified once when a tournament completes.
type Finisher interface {
	TournamentCompleted(res Result)
}

// Manager owns all tournaments. The manager mutex guards the tournament
// map and the seeding RNG; each tournament carries its own lock.
type Manager struct {
	starter  MatchStarter
	finisher Finisher

	mu          sync.Mutex
	tournaments map[string]*Tournament
	rng         *rand.Rand
}

// NewManager creates a manager seeding brackets from the given RNG.
func NewManager(starter MatchStarter, finisher Finisher, rng *rand.Rand) *Manager {
	return &Manager{
		starter:     starter,
		finisher:    finisher,
		tournaments: make(map[string]*Tournament),
		rng:         rng,
	}
}

// Create registers a new tournament in the registration state.
// Bracket size must be 8 or 16 and the prize distribution must sum to
// 100 within a small tolerance.
func (m *Manager) Create(name, format string, bracketSize, buyIn int, prizeDistribution []float64) (View, error) {
	if bracketSize != 8 && bracketSize != 16 {
		return View{}, errors.Errorf("bracket size must be 8 or 16, got %d", bracketSize)
	}
	if format == "" {
		format = FormatSingleElimination
	}
	if format != FormatSingleElimination {
		return View{}, errors.Errorf("unsupported format %q", format)
	}
	sum := 0.0
	for _, p := range prizeDistribution {
		sum += p
	}
	if math.Abs(sum-100) > 0.01 {
		return View{}, errors.Errorf("prize distribution must sum to 100, got %.2f", sum)
	}

	t := &Tournament{
		ID:                uuid.New().String(),
		Name:              name,
		Format:            format,
		BracketSize:       bracketSize,
		BuyIn:             buyIn,
		PrizeDistribution: append([]float64(nil), prizeDistribution...),
		status:            StatusRegistration,
		active:            make(map[string][2]int),
		placements:        make(map[string]int),
	}

	m.mu.Lock()
	m.tournaments[t.ID] = t
	m.mu.Unlock()

	log.Printf("🏆 Tournament %q created (%d slots, buy-in %d)", name, bracketSize, buyIn)
	return t.view(), nil
}

// Join adds a bot during registration. Rejects duplicates and full
// tournaments.
func (m *Manager) Join(tournamentID, botID string) error {
	t, err := m.get(tournamentID)
	if err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.status != StatusRegistration {
		return errors.Errorf("tournament %s is not accepting registrations", tournamentID)
	}
	for _, p := range t.participants {
		if p == botID {
			return errors.New("bot already registered")
		}
	}
	if len(t.participants) >= t.BracketSize {
		return errors.New("tournament is full")
	}
	t.participants = append(t.participants, botID)
	return nil
}

// Start seeds the bracket and begins round 0. Requires at least two
// participants.
func (m *Manager) Start(tournamentID string) error {
	t, err := m.get(tournamentID)
	if err != nil {
		return err
	}

	// Shuffle under the manager lock: the RNG is shared across
	// tournaments.
	m.mu.Lock()
	t.mu.Lock()

	if t.status != StatusRegistration {
		t.mu.Unlock()
		m.mu.Unlock()
		return errors.Errorf("tournament %s already started", tournamentID)
	}
	if len(t.participants) < 2 {
		t.mu.Unlock()
		m.mu.Unlock()
		return errors.New("need at least 2 participants")
	}

	seeded := append([]string(nil), t.participants...)
	m.rng.Shuffle(len(seeded), func(i, j int) {
		seeded[i], seeded[j] = seeded[j], seeded[i]
	})
	m.mu.Unlock()

	t.buildBracket(seeded)
	t.status = StatusInProgress
	log.Printf("🏆 Tournament %q started: %d bots, %d rounds", t.Name, len(t.participants), t.totalRounds)

	finished := t.startCurrentRound(m.starter)
	t.mu.Unlock()

	if finished != nil {
		m.finisher.TournamentCompleted(*finished)
	}
	return nil
}

// HandleResult records a finished match. Unknown matches and already
// resolved slots are no-ops: a late or repeated result never corrupts a
// bracket.
func (m *Manager) HandleResult(matchID, winnerID string) {
	m.mu.Lock()
	list := make([]*Tournament, 0, len(m.tournaments))
	for _, t := range m.tournaments {
		list = append(list, t)
	}
	m.mu.Unlock()

	for _, t := range list {
		if finished := t.applyResult(matchID, winnerID, m.starter); finished != nil {
			m.finisher.TournamentCompleted(*finished)
			return
		} else if t.owned(matchID) {
			return
		}
	}
}

// Cancel stops a non-terminal tournament. Matches already in flight are
// not forcibly stopped; their late results become no-ops.
func (m *Manager) Cancel(tournamentID string) error {
	t, err := m.get(tournamentID)
	if err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.status == StatusCompleted || t.status == StatusCancelled {
		return errors.Errorf("tournament %s is already finished", tournamentID)
	}
	t.status = StatusCancelled
	t.active = make(map[string][2]int)
	log.Printf("🏆 Tournament %q cancelled", t.Name)
	return nil
}

// List returns snapshots of all tournaments.
func (m *Manager) List() []View {
	m.mu.Lock()
	list := make([]*Tournament, 0, len(m.tournaments))
	for _, t := range m.tournaments {
		list = append(list, t)
	}
	m.mu.Unlock()

	views := make([]View, 0, len(list))
	for _, t := range list {
		t.mu.Lock()
		views = append(views, t.view())
		t.mu.Unlock()
	}
	return views
}

// Bracket returns a snapshot of one tournament.
func (m *Manager) Bracket(tournamentID string) (View, error) {
	t, err := m.get(tournamentID)
	if err != nil {
		return View{}, err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.view(), nil
}

func (m *Manager) get(tournamentID string) (*Tournament, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tournaments[tournamentID]
	if !ok {
		return nil, errors.Errorf("unknown tournament %s", tournamentID)
	}
	return t, nil
}

// view builds a snapshot. Caller holds t.mu (or owns t exclusively).
func (t *Tournament) view() View {
	v := View{
		ID:                t.ID,
		Name:              t.Name,
		Format:            t.Format,
		BracketSize:       t.BracketSize,
		BuyIn:             t.BuyIn,
		PrizeDistribution: append([]float64(nil), t.PrizeDistribution...),
		Status:            t.status,
		Participants:      append([]string(nil), t.participants...),
		CurrentRound:      t.currentRound,
		TotalRounds:       t.totalRounds,
	}
	for _, round := range t.bracket {
		v.Bracket = append(v.Bracket, append([]Slot(nil), round...))
	}
	if len(t.placements) > 0 {
		v.Placements = make(map[string]int, len(t.placements))
		for k, p := range t.placements {
			v.Placements[k] = p
		}
	}
	return v
}

// buildBracket lays out the full bracket from the seeded participant
// order: round 0 pairs adjacent entries (padded with byes to the bracket
// size), later rounds start empty and halve in size down to the final.
// Caller holds t.mu.
func (t *Tournament) buildBracket(seeded []string) {
	t.totalRounds = int(math.Log2(float64(t.BracketSize)))

	padded := make([]string, t.BracketSize)
	copy(padded, seeded)

	round0 := make([]Slot, 0, t.BracketSize/2)
	for i := 0; i < t.BracketSize; i += 2 {
		round0 = append(round0, Slot{Index: i / 2, Bot1: padded[i], Bot2: padded[i+1]})
	}
	t.bracket = [][]Slot{round0}

	for slots := t.BracketSize / 4; ; slots /= 2 {
		if slots < 1 {
			slots = 1
		}
		round := make([]Slot, slots)
		for i := range round {
			round[i].Index = i
		}
		t.bracket = append(t.bracket, round)
		if slots == 1 {
			break
		}
	}

	t.currentRound = 0
	t.resolveByes()
}

// resolveByes auto-advances current-round slots with exactly one
// participant and voids slots with none, then advances through any rounds
// that complete without a single real match. Caller holds t.mu.
func (t *Tournament) resolveByes() {
	for {
		round := t.bracket[t.currentRound]
		for i := range round {
			s := &round[i]
			if s.resolved() {
				continue
			}
			switch {
			case s.Bot1 == "" && s.Bot2 == "":
				s.Void = true
			case s.Bot2 == "":
				s.Winner = s.Bot1
			case s.Bot1 == "":
				s.Winner = s.Bot2
			}
		}
		if !t.roundComplete() || t.currentRound >= t.totalRounds-1 {
			return
		}
		t.populateNextRound()
	}
}

// roundComplete reports whether every slot of the current round resolved.
// Caller holds t.mu.
func (t *Tournament) roundComplete() bool {
	for _, s := range t.bracket[t.currentRound] {
		if !s.resolved() {
			return false
		}
	}
	return true
}

// populateNextRound pairs current-round winners into the next round.
// Caller holds t.mu.
func (t *Tournament) populateNextRound() {
	round := t.bracket[t.currentRound]
	next := t.bracket[t.currentRound+1]
	for i, s := range round {
		if i%2 == 0 {
			next[i/2].Bot1 = s.Winner
		} else {
			next[i/2].Bot2 = s.Winner
		}
	}
	t.currentRound++
}

// startCurrentRound creates matches for every playable slot of the
// current round. Returns the completion result when the bracket finished
// without any match to play. Caller holds t.mu.
func (t *Tournament) startCurrentRound(starter MatchStarter) *Result {
	round := t.bracket[t.currentRound]
	for i := range round {
		s := &round[i]
		if s.resolved() || s.MatchID != "" || s.Bot1 == "" || s.Bot2 == "" {
			continue
		}
		matchID, err := starter.StartTournamentMatch(t.ID, s.Bot1, s.Bot2)
		if err != nil {
			// The opponent advances; the slot resolves like a bye. The
			// displaced bot is still placed like any other elimination.
			log.Printf("⚠️ Tournament %s: match for slot %d/%d failed to start: %v", t.ID, t.currentRound, i, err)
			s.Winner = s.Bot2
			if t.currentRound == t.totalRounds-1 {
				t.placements[s.Bot2] = 1
				t.placements[s.Bot1] = 2
			} else {
				t.placements[s.Bot1] = t.unresolvedSlots() + 1
			}
			continue
		}
		s.MatchID = matchID
		t.active[matchID] = [2]int{t.currentRound, i}
	}

	if t.roundComplete() {
		return t.advance(starter)
	}
	return nil
}

// applyResult records one match result if this tournament owns the match.
// Returns the completion result if the bracket finished. Caller must NOT
// hold t.mu.
func (t *Tournament) applyResult(matchID, winnerID string, starter MatchStarter) *Result {
	t.mu.Lock()
	defer t.mu.Unlock()

	pos, ok := t.active[matchID]
	if !ok || t.status != StatusInProgress {
		return nil
	}
	s := &t.bracket[pos[0]][pos[1]]
	delete(t.active, matchID)
	if s.resolved() {
		return nil
	}

	if winnerID == "" {
		// A drawn match cannot leave the slot open or the bracket stalls.
		// The slot's first seed advances.
		log.Printf("⚠️ Tournament %s: match %s drawn, advancing %s", t.ID, matchID, s.Bot1)
		winnerID = s.Bot1
	}

	loser := s.Bot1
	if winnerID == s.Bot1 {
		loser = s.Bot2
	} else if winnerID != s.Bot2 {
		// A result naming a bot outside the slot is an invariant
		// violation; drop it rather than corrupt the bracket.
		log.Printf("⚠️ Tournament %s: winner %s not in slot %d/%d", t.ID, winnerID, pos[0], pos[1])
		return nil
	}
	s.Winner = winnerID

	if pos[0] == t.totalRounds-1 {
		// The final places both directly.
		t.placements[winnerID] = 1
		if loser != "" {
			t.placements[loser] = 2
		}
	} else if loser != "" {
		t.placements[loser] = t.unresolvedSlots() + 1
	}

	if !t.roundComplete() {
		return nil
	}
	return t.advance(starter)
}

// advance moves a completed round forward: completes the tournament after
// the final, otherwise populates and starts the next round. Caller holds
// t.mu.
func (t *Tournament) advance(starter MatchStarter) *Result {
	if t.currentRound >= t.totalRounds-1 {
		t.status = StatusCompleted
		final := t.bracket[t.totalRounds-1][0]
		if final.Winner != "" && t.placements[final.Winner] == 0 {
			t.placements[final.Winner] = 1
		}
		log.Printf("🏆 Tournament %q completed, winner %s", t.Name, final.Winner)

		res := &Result{
			TournamentID:      t.ID,
			Name:              t.Name,
			Placements:        make(map[string]int, len(t.placements)),
			PrizePool:         t.BuyIn * len(t.participants),
			PrizeDistribution: append([]float64(nil), t.PrizeDistribution...),
		}
		for k, p := range t.placements {
			res.Placements[k] = p
		}
		return res
	}

	t.populateNextRound()
	t.resolveByes()
	return t.startCurrentRound(starter)
}

// unresolvedSlots counts slots anywhere in the bracket still waiting for
// a winner. Drives loser placement: the later you fall, the fewer slots
// remain, the better you place. Caller holds t.mu.
func (t *Tournament) unresolvedSlots() int {
	n := 0
	for _, round := range t.bracket {
		for _, s := range round {
			if !s.resolved() {
				n++
			}
		}
	}
	return n
}

// owned reports whether the tournament tracked this match at the time of
// the call or has it recorded on a slot.
func (t *Tournament) owned(matchID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.active[matchID]; ok {
		return true
	}
	for _, round := range t.bracket {
		for _, s := range round {
			if s.MatchID == matchID {
				return true
			}
		}
	}
	return false
}
