// Package config provides centralized configuration management.
// This is the SINGLE SOURCE OF TRUTH for all arena and server settings.
//
// IMPORTANT: When changing defaults, only modify this file.
// All other parts of the codebase should reference these values.
package config

import (
	"os"
	"strconv"
)

// =============================================================================
// SIMULATION CONFIGURATION
// =============================================================================

// SimConfig holds the fixed parameters of the fighting simulation.
// These values are server-authoritative and shared by every match.
type SimConfig struct {
	TickRate    int // Simulation ticks per second
	RoundsToWin int // Rounds a fighter must take to win the match
	RoundTime   int // Round length in seconds
}

// DefaultSim returns the default simulation configuration.
func DefaultSim() SimConfig {
	return SimConfig{
		TickRate:    60,
		RoundsToWin: 2,
		RoundTime:   99,
	}
}

// SimFromEnv returns simulation configuration with environment overrides.
func SimFromEnv() SimConfig {
	cfg := DefaultSim()

	if tr := getEnvInt("TICK_RATE", 0); tr > 0 {
		cfg.TickRate = tr
	}
	if rw := getEnvInt("ROUNDS_TO_WIN", 0); rw > 0 {
		cfg.RoundsToWin = rw
	}
	if rt := getEnvInt("ROUND_TIME_SECONDS", 0); rt > 0 {
		cfg.RoundTime = rt
	}

	return cfg
}

// =============================================================================
// MATCH ORCHESTRATION
// =============================================================================

// MatchConfig holds per-match orchestration settings.
type MatchConfig struct {
	DecisionTimeoutMs int // Per-bot per-tick input deadline
}

// DefaultMatch returns the default match configuration.
func DefaultMatch() MatchConfig {
	return MatchConfig{
		DecisionTimeoutMs: 100,
	}
}

// MatchFromEnv returns match configuration with environment overrides.
func MatchFromEnv() MatchConfig {
	cfg := DefaultMatch()

	if d := getEnvInt("DECISION_TIMEOUT_MS", 0); d > 0 {
		cfg.DecisionTimeoutMs = d
	}

	return cfg
}

// =============================================================================
// MATCHMAKING
// =============================================================================

// MatchmakingConfig holds pairing pass settings.
type MatchmakingConfig struct {
	IntervalMs int // Pairing pass period
}

// DefaultMatchmaking returns the default matchmaking configuration.
func DefaultMatchmaking() MatchmakingConfig {
	return MatchmakingConfig{
		IntervalMs: 1000,
	}
}

// MatchmakingFromEnv returns matchmaking configuration with environment overrides.
func MatchmakingFromEnv() MatchmakingConfig {
	cfg := DefaultMatchmaking()

	if i := getEnvInt("MATCHMAKING_INTERVAL_MS", 0); i > 0 {
		cfg.IntervalMs = i
	}

	return cfg
}

// =============================================================================
// SERVER & RATE LIMITS
// =============================================================================

// RateLimits controls per-peer abuse protection.
type RateLimits struct {
	ConnectionsPerIP  int     // Concurrent websocket connections per IP
	AuthPerSecond     float64 // AUTH attempts per second per IP
	AuthBurst         int
	MessagesPerSecond float64 // Inbound frames per second per connection
	MessageBurst      int
}

// DefaultRateLimits returns production-safe defaults.
func DefaultRateLimits() RateLimits {
	return RateLimits{
		ConnectionsPerIP:  10,
		AuthPerSecond:     1,
		AuthBurst:         5,
		MessagesPerSecond: 120,
		MessageBurst:      240,
	}
}

// ServerConfig holds HTTP/websocket server settings.
type ServerConfig struct {
	Port              int
	ConnectionStaleMs int // Inactive connection eviction threshold
	Limits            RateLimits
}

// DefaultServer returns the default server configuration.
func DefaultServer() ServerConfig {
	return ServerConfig{
		Port:              3000,
		ConnectionStaleMs: 30000,
		Limits:            DefaultRateLimits(),
	}
}

// ServerFromEnv returns server configuration with environment overrides.
func ServerFromEnv() ServerConfig {
	cfg := DefaultServer()

	if p := getEnvInt("PORT", 0); p > 0 {
		cfg.Port = p
	}
	if s := getEnvInt("CONNECTION_STALE_MS", 0); s > 0 {
		cfg.ConnectionStaleMs = s
	}
	if c := getEnvInt("MAX_CONNECTIONS_PER_IP", 0); c > 0 {
		cfg.Limits.ConnectionsPerIP = c
	}
	if m := getEnvFloat("MESSAGE_RATE_LIMIT", 0); m > 0 {
		cfg.Limits.MessagesPerSecond = m
	}

	return cfg
}

// =============================================================================
// STORAGE
// =============================================================================

// StoreConfig holds persistence settings.
type StoreConfig struct {
	MatchDBPath string // SQLite file for match history ("" = in-memory store)
}

// DefaultStore returns the default storage configuration.
func DefaultStore() StoreConfig {
	return StoreConfig{
		MatchDBPath: "matches.db",
	}
}

// StoreFromEnv returns storage configuration with environment overrides.
func StoreFromEnv() StoreConfig {
	cfg := DefaultStore()

	if p, ok := os.LookupEnv("MATCH_DB_PATH"); ok {
		cfg.MatchDBPath = p
	}

	return cfg
}

// =============================================================================
// COMPLETE APP CONFIGURATION
// =============================================================================

// AppConfig holds the complete application configuration.
type AppConfig struct {
	Sim         SimConfig
	Match       MatchConfig
	Matchmaking MatchmakingConfig
	Server      ServerConfig
	Store       StoreConfig
}

// Load returns the complete configuration with environment overrides.
func Load() AppConfig {
	return AppConfig{
		Sim:         SimFromEnv(),
		Match:       MatchFromEnv(),
		Matchmaking: MatchmakingFromEnv(),
		Server:      ServerFromEnv(),
		Store:       StoreFromEnv(),
	}
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultVal
}
