package core

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirechat/internal/store"
)

const saveTimeout = 5 * time.Second

type envelope struct {
	client *Client
	cmd    *Command
}

// Hub owns rooms and clients. All state is touched only by Run.
type Hub struct {
	register   chan *Client
	unregister chan *Client
	inbox      chan envelope
	stopped    chan struct{}

	clients map[*Client]struct{}
	rooms   map[string]*Room

	store store.MessageStore
	log   *zerolog.Logger
	now   func() time.Time
}

// NewHub creates a hub. A nil store disables persistence.
func NewHub(st store.MessageStore, logger *zerolog.Logger) *Hub {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		inbox:      make(chan envelope, 64),
		stopped:    make(chan struct{}),
		clients:    make(map[*Client]struct{}),
		rooms:      make(map[string]*Room),
		store:      st,
		log:        logger,
		now:        time.Now,
	}
}

// RegisterClient adds c to the hub and starts consuming its commands.
func (h *Hub) RegisterClient(c *Client) {
	select {
	case h.register <- c:
	case <-h.stopped:
	}
}

// UnregisterClient removes c from every room and closes its event channel.
func (h *Hub) UnregisterClient(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.stopped:
	}
}

// Run processes hub traffic until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.stopped)
	for {
		select {
		case <-ctx.Done():
			return
		case c := <-h.register:
			h.clients[c] = struct{}{}
			h.log.Debug().Str("client_id", c.ID).Msg("client registered")
			go h.forward(ctx, c)
		case c := <-h.unregister:
			h.drop(c)
		case env := <-h.inbox:
			if _, ok := h.clients[env.client]; !ok {
				continue
			}
			h.handle(ctx, env.client, env.cmd)
		}
	}
}

func (h *Hub) forward(ctx context.Context, c *Client) {
	for {
		select {
		case cmd := <-c.Commands:
			if cmd == nil {
				continue
			}
			select {
			case h.inbox <- envelope{client: c, cmd: cmd}:
			case <-c.done:
				return
			case <-ctx.Done():
				return
			}
		case <-c.done:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (h *Hub) handle(ctx context.Context, c *Client, cmd *Command) {
	switch cmd.Kind {
	case CommandHello:
		if name := strings.TrimSpace(cmd.Name); name != "" {
			c.Name = name
		}
	case CommandJoinRoom:
		h.join(c, cmd.Room)
	case CommandLeaveRoom:
		h.leave(c, cmd.Room)
	case CommandSendRoomMessage:
		h.send(ctx, c, cmd.Room, cmd.Message.Text)
	default:
		h.sendError(c, ErrBadRequest.about("unknown command"))
	}
}

func (h *Hub) join(c *Client, name string) {
	room, ok := h.rooms[name]
	if !ok {
		room = NewRoom(name)
		h.rooms[name] = room
	}
	if !room.AddClient(c) {
		h.sendError(c, ErrAlreadyJoined.about(name))
		return
	}
	c.Rooms[name] = struct{}{}
	h.log.Info().Str("client_id", c.ID).Str("user", c.Name).Str("room", name).Msg("joined room")
	h.broadcast(room, &Event{Kind: EventUserJoined, Room: name, User: c.Name})
}

func (h *Hub) leave(c *Client, name string) {
	room, ok := h.rooms[name]
	if !ok {
		h.sendError(c, ErrRoomNotFound.about(name))
		return
	}
	if !room.RemoveClient(c) {
		h.sendError(c, ErrNotInRoom.about(name))
		return
	}
	delete(c.Rooms, name)
	h.log.Info().Str("client_id", c.ID).Str("user", c.Name).Str("room", name).Msg("left room")
	h.broadcast(room, &Event{Kind: EventUserLeft, Room: name, User: c.Name})
	if room.Empty() {
		delete(h.rooms, name)
	}
}

func (h *Hub) send(ctx context.Context, c *Client, name, text string) {
	room, ok := h.rooms[name]
	if !ok || !room.Has(c) {
		h.sendError(c, ErrNotInRoom.about(name))
		return
	}
	text = strings.TrimSpace(text)
	if text == "" {
		h.sendError(c, ErrBadRequest.about("text is required"))
		return
	}

	msg := Message{Room: name, Author: c.Name, Text: text, CreatedAt: h.now().UTC()}
	if h.store != nil {
		saveCtx, cancel := context.WithTimeout(ctx, saveTimeout)
		stored := &store.Message{Room: name, Author: msg.Author, Body: text, CreatedAt: msg.CreatedAt}
		if err := h.store.SaveMessage(saveCtx, stored); err != nil {
			h.log.Error().Err(err).Str("room", name).Msg("failed to persist message")
		} else {
			msg.ID = stored.ID
		}
		cancel()
	}
	h.broadcast(room, &Event{Kind: EventRoomMessage, Room: name, User: c.Name, Message: msg})
}

// drop removes c from all rooms, announcing the departure, and releases it.
func (h *Hub) drop(c *Client) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	for name := range c.Rooms {
		room, ok := h.rooms[name]
		if !ok {
			continue
		}
		room.RemoveClient(c)
		h.broadcast(room, &Event{Kind: EventUserLeft, Room: name, User: c.Name})
		if room.Empty() {
			delete(h.rooms, name)
		}
	}
	c.Rooms = make(map[string]struct{})
	close(c.done)
	close(c.Events)
	h.log.Debug().Str("client_id", c.ID).Msg("client unregistered")
}

func (h *Hub) broadcast(room *Room, ev *Event) {
	if dropped := room.Broadcast(ev); dropped > 0 {
		h.log.Warn().Str("room", room.Name).Int("dropped", dropped).Msg("slow consumers skipped")
	}
}

func (h *Hub) sendError(c *Client, err *CoreError) {
	select {
	case c.Events <- &Event{Kind: EventError, Error: err}:
	default:
		h.log.Warn().Str("client_id", c.ID).Str("code", err.Code).Msg("error event dropped")
	}
}
