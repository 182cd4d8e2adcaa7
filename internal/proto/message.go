package proto

import (
	"encoding/json"
	"fmt"
)

// Frame is the envelope for every WebSocket message in both directions.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

const (
	ProtocolVersion = 1

	EventHello   = "hello"
	EventJoin    = "join"
	EventLeave   = "leave"
	EventMessage = "message"
	EventSystem  = "system"
	EventError   = "error"
)

// HelloData is sent by the client on every connect to fix its identity.
type HelloData struct {
	User     string `json:"user"`
	Protocol int    `json:"protocol,omitempty"`
}

// RoomData requests to join or leave a specific room.
type RoomData struct {
	Room     string `json:"room"`
	Username string `json:"username,omitempty"`
}

// SendData is a chat message submitted by the client.
type SendData struct {
	Room     string `json:"room"`
	Text     string `json:"text"`
	Username string `json:"username,omitempty"`
}

// MessageData is a broadcast chat message. Clients must not rely on this
// exact shape; inbound records go through message.Normalize.
type MessageData struct {
	ID        int64  `json:"id,omitempty"`
	Room      string `json:"room,omitempty"`
	Username  string `json:"username"`
	Text      string `json:"text"`
	CreatedAt string `json:"created_at"`
}

// SystemData is a presence or status announcement.
type SystemData struct {
	Room string `json:"room,omitempty"`
	Text string `json:"text"`
}

// Error describes a protocol-level error response.
type Error struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
}

// HistoryResponse is the body of GET /history/{room}.
type HistoryResponse struct {
	Messages []MessageData `json:"messages"`
}

// NewFrame marshals data into a frame for the given event.
func NewFrame(event string, data any) (Frame, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Frame{}, fmt.Errorf("marshal %s: %w", event, err)
	}
	return Frame{Event: event, Data: raw}, nil
}

// Decode unmarshals the frame payload into v.
func (f Frame) Decode(v any) error {
	if len(f.Data) == 0 {
		return fmt.Errorf("decode %s: empty payload", f.Event)
	}
	if err := json.Unmarshal(f.Data, v); err != nil {
		return fmt.Errorf("decode %s: %w", f.Event, err)
	}
	return nil
}
