// Package store holds bot identities and match history. Bot identities
// live in memory; match history can live in memory or SQLite.
package store

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"bot-arena/internal/rating"
)

// Bot is one registered bot identity.
type Bot struct {
	ID        string    `json:"botId"`
	Name      string    `json:"botName"`
	OwnerID   string    `json:"ownerId"`
	APIKey    string    `json:"-"` // Never serialized to peers
	Rating    int       `json:"rating"`
	CreatedAt time.Time `json:"createdAt"`
	LastSeen  time.Time `json:"lastSeen"`
}

// BotStore is the bot identity collaborator.
type BotStore interface {
	// GetByCredential resolves an API key; nil when unknown.
	GetByCredential(apiKey string) *Bot
	// GetByID resolves a bot identity; nil when unknown.
	GetByID(botID string) *Bot
	// Create registers a new bot and mints its API key.
	Create(botName, ownerID string) *Bot
	// UpdateLastSeen stamps activity.
	UpdateLastSeen(botID string)
	// UpdateRating replaces the bot's rating.
	UpdateRating(botID string, newRating int)
	// List returns all bots ordered by rating descending.
	List() []Bot
}

// MemoryBotStore is the in-memory BotStore.
type MemoryBotStore struct {
	mu       sync.RWMutex
	byID     map[string]*Bot
	byAPIKey map[string]*Bot
}

// NewMemoryBotStore creates an empty store.
func NewMemoryBotStore() *MemoryBotStore {
	return &MemoryBotStore{
		byID:     make(map[string]*Bot),
		byAPIKey: make(map[string]*Bot),
	}
}

func (s *MemoryBotStore) GetByCredential(apiKey string) *Bot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyBot(s.byAPIKey[apiKey])
}

func (s *MemoryBotStore) GetByID(botID string) *Bot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyBot(s.byID[botID])
}

func (s *MemoryBotStore) Create(botName, ownerID string) *Bot {
	bot := &Bot{
		ID:        uuid.New().String(),
		Name:      botName,
		OwnerID:   ownerID,
		APIKey:    uuid.New().String(),
		Rating:    rating.DefaultRating,
		CreatedAt: time.Now(),
		LastSeen:  time.Now(),
	}

	s.mu.Lock()
	s.byID[bot.ID] = bot
	s.byAPIKey[bot.APIKey] = bot
	s.mu.Unlock()

	return copyBot(bot)
}

func (s *MemoryBotStore) UpdateLastSeen(botID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if bot := s.byID[botID]; bot != nil {
		bot.LastSeen = time.Now()
	}
}

func (s *MemoryBotStore) UpdateRating(botID string, newRating int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if bot := s.byID[botID]; bot != nil {
		bot.Rating = newRating
	}
}

func (s *MemoryBotStore) List() []Bot {
	s.mu.RLock()
	bots := make([]Bot, 0, len(s.byID))
	for _, b := range s.byID {
		bots = append(bots, *b)
	}
	s.mu.RUnlock()

	sort.SliceStable(bots, func(i, j int) bool {
		if bots[i].Rating != bots[j].Rating {
			return bots[i].Rating > bots[j].Rating
		}
		return bots[i].Name < bots[j].Name
	})
	return bots
}

// copyBot shields internal state from callers.
func copyBot(b *Bot) *Bot {
	if b == nil {
		return nil
	}
	out := *b
	return &out
}
