package http

import (
	"strings"
	"time"

	"github.com/vovakirdan/wirechat/internal/core"
	"github.com/vovakirdan/wirechat/internal/proto"
)

const (
	errCodeUnsupportedVersion = "unsupported_version"
	errCodeUnknownEvent       = "unknown_event"
	errCodeRateLimited        = "rate_limited"
)

func badRequest(msg string) *proto.Error {
	return &proto.Error{Code: core.CodeBadRequest, Msg: msg}
}

// frameToCommand maps a client frame to a hub command. Invalid frames yield
// a protocol error for the client instead.
func frameToCommand(frame proto.Frame) (*core.Command, *proto.Error) {
	switch frame.Event {
	case proto.EventHello:
		var hello proto.HelloData
		if err := frame.Decode(&hello); err != nil {
			return nil, badRequest("invalid hello payload")
		}
		if hello.Protocol != 0 && hello.Protocol != proto.ProtocolVersion {
			return nil, &proto.Error{Code: errCodeUnsupportedVersion, Msg: "unsupported protocol version"}
		}
		return &core.Command{Kind: core.CommandHello, Name: hello.User}, nil
	case proto.EventJoin, proto.EventLeave:
		var data proto.RoomData
		if err := frame.Decode(&data); err != nil {
			return nil, badRequest("invalid " + frame.Event + " payload")
		}
		room := strings.TrimSpace(data.Room)
		if room == "" {
			return nil, badRequest("room is required")
		}
		kind := core.CommandJoinRoom
		if frame.Event == proto.EventLeave {
			kind = core.CommandLeaveRoom
		}
		return &core.Command{Kind: kind, Room: room}, nil
	case proto.EventMessage:
		var data proto.SendData
		if err := frame.Decode(&data); err != nil {
			return nil, badRequest("invalid message payload")
		}
		room := strings.TrimSpace(data.Room)
		if room == "" {
			return nil, badRequest("room is required")
		}
		return &core.Command{
			Kind:    core.CommandSendRoomMessage,
			Room:    room,
			Message: core.Message{Room: room, Text: data.Text},
		}, nil
	default:
		return nil, &proto.Error{Code: errCodeUnknownEvent, Msg: "unknown event " + frame.Event}
	}
}

// eventToFrame renders a hub event as a server frame. Presence changes are
// sent as system announcements.
func eventToFrame(event *core.Event) (proto.Frame, error) {
	switch event.Kind {
	case core.EventRoomMessage:
		return proto.NewFrame(proto.EventMessage, proto.MessageData{
			ID:        event.Message.ID,
			Room:      event.Message.Room,
			Username:  event.Message.Author,
			Text:      event.Message.Text,
			CreatedAt: event.Message.CreatedAt.UTC().Format(time.RFC3339Nano),
		})
	case core.EventUserJoined:
		return proto.NewFrame(proto.EventSystem, proto.SystemData{
			Room: event.Room,
			Text: event.User + " joined #" + event.Room,
		})
	case core.EventUserLeft:
		return proto.NewFrame(proto.EventSystem, proto.SystemData{
			Room: event.Room,
			Text: event.User + " left #" + event.Room,
		})
	case core.EventError:
		if event.Error == nil {
			return proto.NewFrame(proto.EventError, proto.Error{Code: "unknown", Msg: "unknown error"})
		}
		return proto.NewFrame(proto.EventError, proto.Error{Code: event.Error.Code, Msg: event.Error.Message})
	default:
		return proto.NewFrame(proto.EventError, proto.Error{Code: "unknown", Msg: "unknown event"})
	}
}
