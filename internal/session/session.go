// Package session is the top-level client orchestrator: it owns the active
// room and the reconciliation epoch, reacts to connection changes, and
// drives membership, timeline reconciliation and presence notices.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/vovakirdan/wirechat/internal/proto"
)

// ConnState is the transport connection state.
type ConnState int

const (
	Connecting ConnState = iota
	Connected
	Disconnected
)

func (s ConnState) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Disconnected:
		return "disconnected"
	default:
		return fmt.Sprintf("conn(%d)", int(s))
	}
}

// Inbound is a frame delivered by the transport, stamped with the epoch of
// the most recent subscription the transport had issued when it was read.
type Inbound struct {
	Frame      proto.Frame
	Epoch      uint64
	ReceivedAt time.Time
}

// Transport sends frames to the server. Subscribe is called right before a
// join frame is sent; frames read afterwards must carry that epoch.
type Transport interface {
	Send(ctx context.Context, frame proto.Frame) error
	Subscribe(epoch uint64)
}

// HistoryFetcher retrieves the full current history of a room as raw
// records, oldest first.
type HistoryFetcher interface {
	History(ctx context.Context, room string) ([]json.RawMessage, error)
}

// HistoryResult is the completion of one history fetch.
type HistoryResult struct {
	Room    string
	Epoch   uint64
	Records []json.RawMessage
	Err     error
}

// Session is the process-wide state of one connection.
type Session struct {
	User       string
	ActiveRoom string
	State      ConnState
	Epoch      uint64
}
