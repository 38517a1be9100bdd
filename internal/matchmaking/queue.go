// Package matchmaking pairs queued bots into matches by rating
// proximity.
package matchmaking

import (
	"log"
	"sort"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var queueDepth = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "matchmaking_queue_depth",
	Help: "Bots currently waiting in the matchmaking queue",
})

// Entry is one bot waiting for a match.
type Entry struct {
	BotID    string
	BotName  string
	Rating   int
	JoinedAt time.Time
}

// Starter creates a match between two paired bots. Implemented by the
// controller; the queue never talks to transports directly.
type Starter interface {
	StartMatch(a, b Entry)
}

// Queue is the matchmaking queue. A periodic pairing pass sorts waiting
// bots by rating and pairs neighbors, so closely rated bots meet.
type Queue struct {
	starter  Starter
	interval time.Duration

	mu      sync.Mutex
	entries []Entry

	stopChan chan struct{}
	stopOnce sync.Once
}

// New creates a queue pairing via the given starter every interval.
func New(starter Starter, interval time.Duration) *Queue {
	return &Queue{
		starter:  starter,
		interval: interval,
		stopChan: make(chan struct{}),
	}
}

// Run drives the periodic pairing pass until Stop. Blocks; callers start
// it on its own goroutine.
func (q *Queue) Run() {
	log.Printf("🎯 Matchmaking started (pass every %s)", q.interval)
	ticker := time.NewTicker(q.interval)
	defer ticker.Stop()

	for {
		select {
		case <-q.stopChan:
			return
		case <-ticker.C:
			q.pair()
		}
	}
}

// Stop halts the pairing loop. Safe to call more than once.
func (q *Queue) Stop() {
	q.stopOnce.Do(func() {
		close(q.stopChan)
	})
}

// Join adds a bot to the queue. Returns false if the bot is already
// waiting. The caller is responsible for rejecting bots in a live match.
func (q *Queue) Join(botID, botName string, rating int) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	for _, e := range q.entries {
		if e.BotID == botID {
			return false
		}
	}
	q.entries = append(q.entries, Entry{
		BotID:    botID,
		BotName:  botName,
		Rating:   rating,
		JoinedAt: time.Now(),
	})
	queueDepth.Set(float64(len(q.entries)))
	return true
}

// Leave removes a bot from the queue. Idempotent: leaving twice has no
// effect beyond the first.
func (q *Queue) Leave(botID string) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i, e := range q.entries {
		if e.BotID == botID {
			q.entries = append(q.entries[:i], q.entries[i+1:]...)
			queueDepth.Set(float64(len(q.entries)))
			return
		}
	}
}

// Contains reports whether the bot is waiting in the queue.
func (q *Queue) Contains(botID string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	for _, e := range q.entries {
		if e.BotID == botID {
			return true
		}
	}
	return false
}

// Size returns the number of waiting bots.
func (q *Queue) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

// pair runs one pairing pass: sort waiting bots by rating ascending and
// pop adjacent pairs from the front. An odd bot stays for the next pass.
// Matches start outside the lock so a slow starter cannot block joins.
func (q *Queue) pair() {
	q.mu.Lock()
	if len(q.entries) < 2 {
		q.mu.Unlock()
		return
	}

	sort.SliceStable(q.entries, func(i, j int) bool {
		return q.entries[i].Rating < q.entries[j].Rating
	})

	var pairs [][2]Entry
	for len(q.entries) >= 2 {
		pairs = append(pairs, [2]Entry{q.entries[0], q.entries[1]})
		q.entries = q.entries[2:]
	}
	queueDepth.Set(float64(len(q.entries)))
	q.mu.Unlock()

	for _, p := range pairs {
		log.Printf("🎯 Paired %s (%d) vs %s (%d)", p[0].BotName, p[0].Rating, p[1].BotName, p[1].Rating)
		q.starter.StartMatch(p[0], p[1])
	}
}
