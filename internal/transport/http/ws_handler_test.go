package http

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/vovakirdan/wirechat/internal/config"
	"github.com/vovakirdan/wirechat/internal/proto"
)

func TestHealthEndpoint(t *testing.T) {
	ts := startTestServer(t, nil)

	resp, err := ts.Client().Get(ts.URL + "/health")
	if err != nil {
		t.Fatalf("health request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status: %d", resp.StatusCode)
	}
}

func TestWebSocketJoinMessageAndHistory(t *testing.T) {
	ts := startTestServer(t, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	alice := dial(t, ctx, ts)
	bob := dial(t, ctx, ts)

	send(t, ctx, alice, proto.EventHello, proto.HelloData{User: "alice", Protocol: proto.ProtocolVersion})
	send(t, ctx, bob, proto.EventHello, proto.HelloData{User: "bob"})

	send(t, ctx, alice, proto.EventJoin, proto.RoomData{Room: "general"})
	readUntil(t, ctx, alice, proto.EventSystem)
	send(t, ctx, bob, proto.EventJoin, proto.RoomData{Room: "general"})

	var sys proto.SystemData
	if err := readUntil(t, ctx, alice, proto.EventSystem).Decode(&sys); err != nil {
		t.Fatalf("decode system: %v", err)
	}
	if sys.Text != "bob joined #general" || sys.Room != "general" {
		t.Fatalf("unexpected system payload: %+v", sys)
	}

	send(t, ctx, alice, proto.EventMessage, proto.SendData{Room: "general", Text: "hi there"})

	var msg proto.MessageData
	if err := readUntil(t, ctx, bob, proto.EventMessage).Decode(&msg); err != nil {
		t.Fatalf("decode message: %v", err)
	}
	if msg.Username != "alice" || msg.Text != "hi there" || msg.Room != "general" || msg.ID == 0 {
		t.Fatalf("unexpected message payload: %+v", msg)
	}
	if _, err := time.Parse(time.RFC3339Nano, msg.CreatedAt); err != nil {
		t.Fatalf("created_at %q: %v", msg.CreatedAt, err)
	}

	// The sender receives its own message back.
	var echo proto.MessageData
	if err := readUntil(t, ctx, alice, proto.EventMessage).Decode(&echo); err != nil || echo != msg {
		t.Fatalf("echo = %+v, err %v, want %+v", echo, err, msg)
	}

	resp, err := ts.Client().Get(ts.URL + "/history/general")
	if err != nil {
		t.Fatalf("history request: %v", err)
	}
	defer resp.Body.Close()
	var history proto.HistoryResponse
	if err := json.NewDecoder(resp.Body).Decode(&history); err != nil {
		t.Fatalf("decode history: %v", err)
	}
	if len(history.Messages) != 1 || history.Messages[0] != msg {
		t.Fatalf("history = %+v, want [%+v]", history.Messages, msg)
	}

	send(t, ctx, alice, proto.EventLeave, proto.RoomData{Room: "general"})
	if err := readUntil(t, ctx, bob, proto.EventSystem).Decode(&sys); err != nil {
		t.Fatalf("decode system: %v", err)
	}
	if sys.Text != "alice left #general" {
		t.Fatalf("unexpected leave announcement: %+v", sys)
	}
}

func TestWebSocketErrors(t *testing.T) {
	ts := startTestServer(t, func(cfg *config.ServerConfig) { cfg.RateLimit = 1 })

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn := dial(t, ctx, ts)
	send(t, ctx, conn, proto.EventHello, proto.HelloData{User: "alice"})

	tests := []struct {
		name  string
		event string
		data  any
		code  string
	}{
		{name: "send without join", event: proto.EventMessage, data: proto.SendData{Room: "general", Text: "hi"}, code: "not_in_room"},
		{name: "rate limited", event: proto.EventMessage, data: proto.SendData{Room: "general", Text: "again"}, code: "rate_limited"},
		{name: "missing room", event: proto.EventJoin, data: proto.RoomData{}, code: "bad_request"},
		{name: "unknown event", event: "dance", data: map[string]string{}, code: "unknown_event"},
		{name: "leave unknown room", event: proto.EventLeave, data: proto.RoomData{Room: "ghost"}, code: "room_not_found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			send(t, ctx, conn, tt.event, tt.data)
			var perr proto.Error
			if err := readUntil(t, ctx, conn, proto.EventError).Decode(&perr); err != nil {
				t.Fatalf("decode error: %v", err)
			}
			if perr.Code != tt.code {
				t.Fatalf("code = %q, want %q", perr.Code, tt.code)
			}
		})
	}
}
