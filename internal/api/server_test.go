package api

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"bot-arena/internal/config"
	"bot-arena/internal/store"
)

func newTestServer(t *testing.T) (*httptest.Server, *store.MemoryBotStore) {
	t.Helper()

	cfg := config.AppConfig{
		Sim:         config.DefaultSim(),
		Match:       config.DefaultMatch(),
		Matchmaking: config.DefaultMatchmaking(),
		Server:      config.DefaultServer(),
		Store:       config.StoreConfig{},
	}
	// Generous limits so tests never trip them by accident.
	cfg.Server.Limits.MessagesPerSecond = 1000
	cfg.Server.Limits.MessageBurst = 1000
	cfg.Server.Limits.AuthPerSecond = 1000
	cfg.Server.Limits.AuthBurst = 1000

	bots := store.NewMemoryBotStore()
	srv := NewServer(cfg, bots, store.NewMemoryMatchStore())

	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return ts, bots
}

func dialPath(t *testing.T, ts *httptest.Server, path string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + path
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", url, err)
	}
	t.Cleanup(func() { conn.Close() })
	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	return conn
}

func dialBot(t *testing.T, ts *httptest.Server) *websocket.Conn {
	return dialPath(t, ts, "/ws/bot")
}

func sendFrame(t *testing.T, conn *websocket.Conn, frame map[string]any) {
	t.Helper()
	if err := conn.WriteJSON(frame); err != nil {
		t.Fatalf("write frame: %v", err)
	}
}

// readUntil skips frames until one of the wanted type arrives.
func readUntil(t *testing.T, conn *websocket.Conn, msgType string) map[string]any {
	t.Helper()
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("waiting for %s: %v", msgType, err)
		}
		var frame map[string]any
		if err := json.Unmarshal(data, &frame); err != nil {
			t.Fatalf("malformed server frame %q: %v", data, err)
		}
		if frame["type"] == msgType {
			return frame
		}
	}
}

func authenticate(t *testing.T, conn *websocket.Conn, apiKey string) map[string]any {
	t.Helper()
	readUntil(t, conn, MsgWelcome)
	sendFrame(t, conn, map[string]any{"type": MsgAuth, "apiKey": apiKey})
	return readUntil(t, conn, MsgAuthSuccess)
}

func TestWelcomeOnConnect(t *testing.T) {
	ts, _ := newTestServer(t)
	conn := dialBot(t, ts)

	welcome := readUntil(t, conn, MsgWelcome)
	if welcome["requiresAuth"] != true {
		t.Errorf("requiresAuth = %v, want true", welcome["requiresAuth"])
	}
}

func TestAuthSuccess(t *testing.T) {
	ts, bots := newTestServer(t)
	bot := bots.Create("crusher", "owner-1")

	conn := dialBot(t, ts)
	success := authenticate(t, conn, bot.APIKey)

	if success["botId"] != bot.ID {
		t.Errorf("botId = %v, want %v", success["botId"], bot.ID)
	}
	if success["botName"] != "crusher" {
		t.Errorf("botName = %v", success["botName"])
	}
	if success["rating"] != float64(bot.Rating) {
		t.Errorf("rating = %v, want %d", success["rating"], bot.Rating)
	}
}

func TestAuthBadKeyCloses(t *testing.T) {
	ts, _ := newTestServer(t)
	conn := dialBot(t, ts)

	readUntil(t, conn, MsgWelcome)
	sendFrame(t, conn, map[string]any{"type": MsgAuth, "apiKey": "not-a-key"})

	// The server may or may not get the ERROR frame out before the close
	// lands; only the close code is guaranteed.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if ce, ok := err.(*websocket.CloseError); !ok || ce.Code != CloseAuthFailed {
				t.Fatalf("close error = %v, want code %d", err, CloseAuthFailed)
			}
			return
		}
	}
}

func TestPingPong(t *testing.T) {
	ts, _ := newTestServer(t)
	conn := dialBot(t, ts)

	readUntil(t, conn, MsgWelcome)
	sendFrame(t, conn, map[string]any{"type": MsgPing})

	pong := readUntil(t, conn, MsgPong)
	if _, ok := pong["timestamp"]; !ok {
		t.Error("PONG missing timestamp")
	}
}

func TestUnknownMessageType(t *testing.T) {
	ts, _ := newTestServer(t)
	conn := dialBot(t, ts)

	readUntil(t, conn, MsgWelcome)
	sendFrame(t, conn, map[string]any{"type": "DANCE"})

	errFrame := readUntil(t, conn, MsgError)
	if errFrame["code"] != ErrUnknownType {
		t.Errorf("code = %v, want %v", errFrame["code"], ErrUnknownType)
	}
}

func TestUnauthenticatedActionRejected(t *testing.T) {
	ts, _ := newTestServer(t)
	conn := dialBot(t, ts)

	readUntil(t, conn, MsgWelcome)
	sendFrame(t, conn, map[string]any{"type": MsgJoinMatchmaking})

	errFrame := readUntil(t, conn, MsgError)
	if errFrame["code"] != ErrNotAuthenticated {
		t.Errorf("code = %v, want %v", errFrame["code"], ErrNotAuthenticated)
	}
}

func TestRegisterBotOverWire(t *testing.T) {
	ts, bots := newTestServer(t)
	conn := dialBot(t, ts)

	readUntil(t, conn, MsgWelcome)
	sendFrame(t, conn, map[string]any{"type": MsgRegisterBot, "botName": "newcomer", "ownerId": "owner-9"})

	reg := readUntil(t, conn, MsgBotRegistered)
	apiKey, _ := reg["apiKey"].(string)
	if apiKey == "" {
		t.Fatal("registration did not return an api key")
	}

	if got := bots.GetByCredential(apiKey); got == nil || got.Name != "newcomer" {
		t.Errorf("registered bot not retrievable by key: %+v", got)
	}
}

func TestReauthEvictsPreviousSession(t *testing.T) {
	ts, bots := newTestServer(t)
	bot := bots.Create("crusher", "owner-1")

	first := dialBot(t, ts)
	authenticate(t, first, bot.APIKey)

	second := dialBot(t, ts)
	authenticate(t, second, bot.APIKey)

	// The first session is evicted; its next read must fail with a close.
	for {
		if _, _, err := first.ReadMessage(); err != nil {
			return
		}
	}
}

func TestLeaderboardQuery(t *testing.T) {
	ts, bots := newTestServer(t)
	bots.Create("alpha", "o1")
	bots.Create("beta", "o2")

	conn := dialBot(t, ts)
	readUntil(t, conn, MsgWelcome)
	sendFrame(t, conn, map[string]any{"type": MsgGetLeaderboard})

	frame := readUntil(t, conn, MsgLeaderboard)
	entries, ok := frame["leaderboard"].([]any)
	if !ok || len(entries) != 2 {
		t.Fatalf("leaderboard = %v", frame["leaderboard"])
	}
}

func TestSpectatorConnectionIsReadOnly(t *testing.T) {
	ts, _ := newTestServer(t)
	conn := dialPath(t, ts, "/ws/spectate")

	welcome := readUntil(t, conn, MsgWelcome)
	if welcome["requiresAuth"] != false {
		t.Errorf("requiresAuth = %v, want false", welcome["requiresAuth"])
	}

	// Mutating operations are rejected on a spectator connection.
	for _, msgType := range []string{MsgRegisterBot, MsgCreateTournament, MsgStartTournament, MsgAuth, MsgJoinMatchmaking} {
		sendFrame(t, conn, map[string]any{"type": msgType, "botName": "sneaky"})
		errFrame := readUntil(t, conn, MsgError)
		if errFrame["code"] != ErrInvalidState {
			t.Errorf("%s: code = %v, want %v", msgType, errFrame["code"], ErrInvalidState)
		}
	}

	// Read-only queries still work.
	sendFrame(t, conn, map[string]any{"type": MsgListTournaments})
	readUntil(t, conn, MsgTournamentList)
}

func TestTournamentOpsRequireAuth(t *testing.T) {
	ts, bots := newTestServer(t)
	bot := bots.Create("crusher", "owner-1")

	conn := dialBot(t, ts)
	readUntil(t, conn, MsgWelcome)

	sendFrame(t, conn, map[string]any{
		"type": MsgCreateTournament, "name": "cup", "maxBots": 8, "buyIn": 0,
		"prizeDistribution": []float64{100},
	})
	errFrame := readUntil(t, conn, MsgError)
	if errFrame["code"] != ErrNotAuthenticated {
		t.Errorf("code = %v, want %v", errFrame["code"], ErrNotAuthenticated)
	}

	// The same frame succeeds once authenticated.
	sendFrame(t, conn, map[string]any{"type": MsgAuth, "apiKey": bot.APIKey})
	readUntil(t, conn, MsgAuthSuccess)
	sendFrame(t, conn, map[string]any{
		"type": MsgCreateTournament, "name": "cup", "maxBots": 8, "buyIn": 0,
		"prizeDistribution": []float64{100},
	})
	created := readUntil(t, conn, MsgTournamentCreated)
	if created["tournament"] == nil {
		t.Error("TOURNAMENT_CREATED missing tournament view")
	}
}

func TestMatchmakingJoinLeave(t *testing.T) {
	ts, bots := newTestServer(t)
	bot := bots.Create("crusher", "owner-1")

	conn := dialBot(t, ts)
	authenticate(t, conn, bot.APIKey)

	sendFrame(t, conn, map[string]any{"type": MsgJoinMatchmaking})
	readUntil(t, conn, MsgMatchmakingJoined)

	// Joining twice is an error.
	sendFrame(t, conn, map[string]any{"type": MsgJoinMatchmaking})
	errFrame := readUntil(t, conn, MsgError)
	if errFrame["code"] != ErrInvalidState {
		t.Errorf("code = %v, want %v", errFrame["code"], ErrInvalidState)
	}

	sendFrame(t, conn, map[string]any{"type": MsgLeaveMatchmaking})
	readUntil(t, conn, MsgMatchmakingLeft)
}
