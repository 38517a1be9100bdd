package matchmaking

import (
	"testing"
	"time"
)

type recordingStarter struct {
	pairs [][2]Entry
}

func (r *recordingStarter) StartMatch(a, b Entry) {
	r.pairs = append(r.pairs, [2]Entry{a, b})
}

func newTestQueue() (*Queue, *recordingStarter) {
	st := &recordingStarter{}
	return New(st, time.Second), st
}

// TestPairByRating verifies a pass pairs rating-sorted neighbors
func TestPairByRating(t *testing.T) {
	q, st := newTestQueue()
	q.Join("a", "A", 1500)
	q.Join("b", "B", 1600)
	q.Join("c", "C", 1000)
	q.Join("d", "D", 1400)

	q.pair()

	if len(st.pairs) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(st.pairs))
	}
	if st.pairs[0][0].BotID != "c" || st.pairs[0][1].BotID != "d" {
		t.Errorf("expected first match (c, d), got (%s, %s)", st.pairs[0][0].BotID, st.pairs[0][1].BotID)
	}
	if st.pairs[1][0].BotID != "a" || st.pairs[1][1].BotID != "b" {
		t.Errorf("expected second match (a, b), got (%s, %s)", st.pairs[1][0].BotID, st.pairs[1][1].BotID)
	}
	if q.Size() != 0 {
		t.Errorf("queue should drain fully, %d left", q.Size())
	}
}

// TestOddBotWaits verifies the unpaired bot stays queued
func TestOddBotWaits(t *testing.T) {
	q, st := newTestQueue()
	q.Join("a", "A", 1200)
	q.Join("b", "B", 1300)
	q.Join("c", "C", 1100)

	q.pair()

	if len(st.pairs) != 1 {
		t.Fatalf("expected 1 match, got %d", len(st.pairs))
	}
	if q.Size() != 1 || !q.Contains("b") {
		t.Error("the highest-rated odd bot should remain queued")
	}
}

// TestPairNeedsTwo verifies a lone bot is never matched
func TestPairNeedsTwo(t *testing.T) {
	q, st := newTestQueue()
	q.Join("a", "A", 1200)

	q.pair()

	if len(st.pairs) != 0 {
		t.Error("a lone bot must not be paired")
	}
	if !q.Contains("a") {
		t.Error("the lone bot should remain queued")
	}
}

// TestJoinDuplicate verifies a bot cannot queue twice
func TestJoinDuplicate(t *testing.T) {
	q, _ := newTestQueue()
	if !q.Join("a", "A", 1200) {
		t.Fatal("first join should succeed")
	}
	if q.Join("a", "A", 1200) {
		t.Error("second join should be rejected")
	}
	if q.Size() != 1 {
		t.Errorf("expected size 1, got %d", q.Size())
	}
}

// TestLeaveIdempotent verifies repeated leave has no further effect
func TestLeaveIdempotent(t *testing.T) {
	q, _ := newTestQueue()
	q.Join("a", "A", 1200)
	q.Join("b", "B", 1300)

	q.Leave("a")
	q.Leave("a")

	if q.Size() != 1 || q.Contains("a") || !q.Contains("b") {
		t.Error("leave should remove exactly the named bot, once")
	}
}

// TestRunStop verifies the pairing loop pairs on its own and stops
func TestRunStop(t *testing.T) {
	st := &recordingStarter{}
	q := New(st, 10*time.Millisecond)
	q.Join("a", "A", 1200)
	q.Join("b", "B", 1250)

	go q.Run()
	deadline := time.After(time.Second)
	for q.Size() > 0 {
		select {
		case <-deadline:
			t.Fatal("pairing pass never ran")
		default:
			time.Sleep(5 * time.Millisecond)
		}
	}
	q.Stop()
	q.Stop() // Safe to repeat.
}
