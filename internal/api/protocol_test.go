package api

import (
	"encoding/json"
	"testing"
)

func TestServerMsgCarriesTypeAndFields(t *testing.T) {
	b := serverMsg(MsgPong, map[string]any{"timestamp": 42})

	var got map[string]any
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatalf("serverMsg produced invalid JSON: %v", err)
	}
	if got["type"] != MsgPong {
		t.Errorf("type = %v, want %v", got["type"], MsgPong)
	}
	if got["timestamp"] != float64(42) {
		t.Errorf("timestamp = %v, want 42", got["timestamp"])
	}
}

func TestErrorMsgShape(t *testing.T) {
	b := errorMsg(ErrNotFound, "no such match")

	var got map[string]any
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatalf("errorMsg produced invalid JSON: %v", err)
	}
	if got["type"] != MsgError {
		t.Errorf("type = %v, want %v", got["type"], MsgError)
	}
	if got["code"] != ErrNotFound {
		t.Errorf("code = %v, want %v", got["code"], ErrNotFound)
	}
	if got["message"] != "no such match" {
		t.Errorf("message = %v", got["message"])
	}
}

func TestClientMessageParsing(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want func(t *testing.T, msg ClientMessage)
	}{
		{
			name: "auth",
			raw:  `{"type":"AUTH","apiKey":"sk-123"}`,
			want: func(t *testing.T, msg ClientMessage) {
				if msg.Type != MsgAuth || msg.APIKey != "sk-123" {
					t.Errorf("got %+v", msg)
				}
			},
		},
		{
			name: "input with payload",
			raw:  `{"type":"INPUT","input":{"left":false,"right":true,"attack1":true},"frameNumber":240}`,
			want: func(t *testing.T, msg ClientMessage) {
				if msg.Input == nil {
					t.Fatal("input not parsed")
				}
				if !msg.Input.Right || !msg.Input.Attack1 || msg.Input.Left {
					t.Errorf("input = %+v", *msg.Input)
				}
				if msg.FrameNumber != 240 {
					t.Errorf("frameNumber = %d, want 240", msg.FrameNumber)
				}
			},
		},
		{
			name: "input without payload stays nil",
			raw:  `{"type":"INPUT"}`,
			want: func(t *testing.T, msg ClientMessage) {
				if msg.Input != nil {
					t.Errorf("input = %+v, want nil", *msg.Input)
				}
			},
		},
		{
			name: "create tournament",
			raw:  `{"type":"CREATE_TOURNAMENT","name":"Friday Night","format":"single_elimination","maxBots":8,"buyIn":10,"prizeDistribution":[50,30,20]}`,
			want: func(t *testing.T, msg ClientMessage) {
				if msg.Name != "Friday Night" || msg.MaxBots != 8 || msg.BuyIn != 10 {
					t.Errorf("got %+v", msg)
				}
				if len(msg.PrizeDistribution) != 3 || msg.PrizeDistribution[0] != 50 {
					t.Errorf("prizeDistribution = %v", msg.PrizeDistribution)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var msg ClientMessage
			if err := json.Unmarshal([]byte(tt.raw), &msg); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			tt.want(t, msg)
		})
	}
}
