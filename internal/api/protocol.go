// Package api is the websocket-facing surface of the arena: sessions,
// the connection registry, rate limiting, the message dispatcher and the
// controller wiring every subsystem together.
package api

import (
	"encoding/json"

	"bot-arena/internal/game"
)

// Client→server message types.
const (
	MsgAuth             = "AUTH"
	MsgPing             = "PING"
	MsgInput            = "INPUT"
	MsgJoinMatchmaking  = "JOIN_MATCHMAKING"
	MsgLeaveMatchmaking = "LEAVE_MATCHMAKING"
	MsgChallenge        = "CHALLENGE"
	MsgSpectate         = "SPECTATE"
	MsgGetLeaderboard   = "GET_LEADERBOARD"
	MsgGetMatches       = "GET_MATCHES"
	MsgRegisterBot      = "REGISTER_BOT"
	MsgCreateTournament = "CREATE_TOURNAMENT"
	MsgJoinTournament   = "JOIN_TOURNAMENT"
	MsgStartTournament  = "START_TOURNAMENT"
	MsgGetBracket       = "GET_BRACKET"
	MsgListTournaments  = "LIST_TOURNAMENTS"
)

// Server→client message types.
const (
	MsgWelcome             = "WELCOME"
	MsgAuthSuccess         = "AUTH_SUCCESS"
	MsgError               = "ERROR"
	MsgPong                = "PONG"
	MsgObservation         = "OBSERVATION"
	MsgMatchState          = "MATCH_STATE"
	MsgRoundStart          = "ROUND_START"
	MsgDamage              = "DAMAGE"
	MsgKO                  = "KO"
	MsgMatchStarting       = "MATCH_STARTING"
	MsgMatchEnd            = "MATCH_END"
	MsgMatchmakingJoined   = "MATCHMAKING_JOINED"
	MsgMatchmakingLeft     = "MATCHMAKING_LEFT"
	MsgSpectateJoined      = "SPECTATE_JOINED"
	MsgLeaderboard         = "LEADERBOARD"
	MsgMatchHistory        = "MATCH_HISTORY"
	MsgBotRegistered       = "BOT_REGISTERED"
	MsgTournamentCreated   = "TOURNAMENT_CREATED"
	MsgTournamentJoined    = "TOURNAMENT_JOINED"
	MsgTournamentStarted   = "TOURNAMENT_STARTED"
	MsgTournamentCompleted = "TOURNAMENT_COMPLETED"
	MsgBracket             = "BRACKET"
	MsgTournamentList      = "TOURNAMENT_LIST"
)

// Stable machine-readable error codes.
const (
	ErrAuthFailed       = "AUTH_FAILED"
	ErrNotAuthenticated = "NOT_AUTHENTICATED"
	ErrInvalidMessage   = "INVALID_MESSAGE"
	ErrUnknownType      = "UNKNOWN_TYPE"
	ErrRateLimited      = "RATE_LIMITED"
	ErrInvalidState     = "INVALID_STATE"
	ErrNotFound         = "NOT_FOUND"
)

// Websocket close codes.
const (
	CloseAuthFailed  = 4001
	CloseRateLimited = 4029
)

// ClientMessage is the union of every client→server frame. Only the
// fields relevant to the given type are read.
type ClientMessage struct {
	Type string `json:"type"`

	// AUTH
	APIKey string `json:"apiKey,omitempty"`

	// INPUT
	Input       *game.Input `json:"input,omitempty"`
	FrameNumber int         `json:"frameNumber,omitempty"`

	// CHALLENGE
	TargetBotID string `json:"targetBotId,omitempty"`

	// SPECTATE / GET_MATCHES
	MatchID string `json:"matchId,omitempty"`
	BotID   string `json:"botId,omitempty"`
	Limit   int    `json:"limit,omitempty"`

	// REGISTER_BOT
	BotName string `json:"botName,omitempty"`
	OwnerID string `json:"ownerId,omitempty"`

	// Tournaments
	TournamentID      string    `json:"tournamentId,omitempty"`
	Name              string    `json:"name,omitempty"`
	Format            string    `json:"format,omitempty"`
	MaxBots           int       `json:"maxBots,omitempty"`
	BuyIn             int       `json:"buyIn,omitempty"`
	PrizeDistribution []float64 `json:"prizeDistribution,omitempty"`
}

// serverMsg serializes a server→client frame: the given fields plus the
// type discriminator.
func serverMsg(msgType string, fields map[string]any) []byte {
	m := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		m[k] = v
	}
	m["type"] = msgType
	b, err := json.Marshal(m)
	if err != nil {
		// Fields come from our own structs; a marshal failure is a bug.
		return []byte(`{"type":"` + MsgError + `","code":"` + ErrInvalidMessage + `"}`)
	}
	return b
}

// errorMsg builds an ERROR frame with a stable code.
func errorMsg(code, message string) []byte {
	return serverMsg(MsgError, map[string]any{"code": code, "message": message})
}
