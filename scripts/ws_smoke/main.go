// Command ws_smoke checks a running server end to end: it joins a room,
// sends a message, waits for the echo and confirms the history endpoint
// returns it with the same identity.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/vovakirdan/wirechat/internal/history"
	"github.com/vovakirdan/wirechat/internal/log"
	"github.com/vovakirdan/wirechat/internal/message"
	"github.com/vovakirdan/wirechat/internal/proto"
	"github.com/vovakirdan/wirechat/internal/transport/ws"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "ws_smoke: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	server := flag.String("server", "http://localhost:8080", "server base URL")
	user := flag.String("user", "tester", "username to announce with hello")
	room := flag.String("room", "general", "room name")
	text := flag.String("text", "hello from smoke test", "message text to send")
	timeout := flag.Duration("timeout", 5*time.Second, "total timeout for the run")
	flag.Parse()

	logger := log.New("info", os.Stderr)
	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	addr, err := ws.URLFromBase(*server)
	if err != nil {
		return err
	}
	conn, _, err := websocket.Dial(ctx, addr, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	send := func(event string, data any) error {
		frame, err := proto.NewFrame(event, data)
		if err != nil {
			return err
		}
		if err := wsjson.Write(ctx, conn, frame); err != nil {
			return fmt.Errorf("send %s: %w", event, err)
		}
		return nil
	}

	if err := send(proto.EventHello, proto.HelloData{User: *user, Protocol: proto.ProtocolVersion}); err != nil {
		return err
	}
	if err := send(proto.EventJoin, proto.RoomData{Room: *room, Username: *user}); err != nil {
		return err
	}
	if err := send(proto.EventMessage, proto.SendData{Room: *room, Text: *text, Username: *user}); err != nil {
		return err
	}

	var echo message.Message
	for {
		var frame proto.Frame
		if err := wsjson.Read(ctx, conn, &frame); err != nil {
			return fmt.Errorf("read: %w", err)
		}
		logger.Info().Str("event", frame.Event).RawJSON("data", frame.Data).Msg("received")

		if frame.Event == proto.EventError {
			var perr proto.Error
			_ = frame.Decode(&perr)
			return fmt.Errorf("server error %s: %s", perr.Code, perr.Msg)
		}
		if frame.Event != proto.EventMessage {
			continue
		}
		msg, err := message.Normalize(frame.Data, *room, time.Now())
		if err != nil {
			return err
		}
		if msg.Author == *user && msg.Text == *text {
			echo = msg
			break
		}
	}

	records, err := history.New(*server, nil).History(ctx, *room)
	if err != nil {
		return err
	}
	for _, raw := range records {
		msg, err := message.Normalize(raw, *room, time.Now())
		if err == nil && msg.ID == echo.ID {
			logger.Info().Str("id", echo.ID).Int("history", len(records)).Msg("echo found in history")
			return nil
		}
	}
	return fmt.Errorf("message %s missing from history of #%s", echo.ID, *room)
}
