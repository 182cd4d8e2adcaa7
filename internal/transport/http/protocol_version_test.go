package http

import (
	"context"
	"testing"
	"time"

	"github.com/vovakirdan/wirechat/internal/proto"
)

func TestProtocolVersionMismatch(t *testing.T) {
	ts := startTestServer(t, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	conn := dial(t, ctx, ts)
	send(t, ctx, conn, proto.EventHello, proto.HelloData{User: "alice", Protocol: proto.ProtocolVersion + 1})

	var perr proto.Error
	if err := readUntil(t, ctx, conn, proto.EventError).Decode(&perr); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if perr.Code != "unsupported_version" {
		t.Fatalf("expected unsupported_version error, got %+v", perr)
	}
}
