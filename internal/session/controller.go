package session

import (
	"context"
	"iter"
	"slices"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirechat/internal/membership"
	"github.com/vovakirdan/wirechat/internal/message"
	"github.com/vovakirdan/wirechat/internal/presence"
	"github.com/vovakirdan/wirechat/internal/proto"
	"github.com/vovakirdan/wirechat/internal/timeline"
)

const defaultHistoryTimeout = 10 * time.Second

// Options configures a Controller.
type Options struct {
	Transport      Transport
	History        HistoryFetcher
	View           timeline.View
	Notifier       *presence.Notifier
	Logger         *zerolog.Logger
	HistoryTimeout time.Duration
	// Now stamps inbound records that carry no usable timestamp.
	Now func() time.Time
}

// Stats exposes counters for silent filtering outcomes.
type Stats struct {
	Discards          membership.Discards
	Timeline          timeline.Stats
	Malformed         uint64
	SupersededHistory uint64
	NoticesDropped    uint64
}

// Controller owns the Session. Its methods must be called from a single
// goroutine; Loop provides one.
type Controller struct {
	transport      Transport
	fetcher        HistoryFetcher
	view           timeline.View
	notifier       *presence.Notifier
	log            *zerolog.Logger
	historyTimeout time.Duration
	now            func() time.Time

	ctx        context.Context
	started    bool
	session    Session
	membership *membership.Machine
	reconciler *timeline.Reconciler

	cancelFetch context.CancelFunc
	fetching    bool
	results     chan HistoryResult

	malformed  uint64
	superseded uint64
}

// New builds a controller. Transport and History are required.
func New(opts Options) *Controller {
	logger := opts.Logger
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	notifier := opts.Notifier
	if notifier == nil {
		notifier = presence.New(32)
	}
	timeout := opts.HistoryTimeout
	if timeout <= 0 {
		timeout = defaultHistoryTimeout
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	c := &Controller{
		transport:      opts.Transport,
		fetcher:        opts.History,
		view:           opts.View,
		notifier:       notifier,
		log:            logger,
		historyTimeout: timeout,
		now:            now,
		ctx:            context.Background(),
		membership:     membership.New(),
		results:        make(chan HistoryResult, 16),
	}
	c.membership.Observe(func(tr membership.Transition) {
		c.log.Debug().
			Str("from", tr.From.String()).
			Str("to", tr.To.String()).
			Str("room", tr.Room).
			Uint64("epoch", tr.Epoch).
			Msg("membership transition")
	})
	return c
}

// Results delivers completed history fetches. Loop drains it; callers
// driving the controller by hand pass each result to HandleHistory.
func (c *Controller) Results() <-chan HistoryResult { return c.results }

// Notices returns the presence/system notice channel.
func (c *Controller) Notices() <-chan presence.Notice { return c.notifier.C() }

// Session returns a copy of the session state.
func (c *Controller) Session() Session { return c.session }

// ActiveRoom returns the room the session is in or about to join.
func (c *Controller) ActiveRoom() string { return c.session.ActiveRoom }

// Epoch returns the current reconciliation epoch.
func (c *Controller) Epoch() uint64 { return c.session.Epoch }

// Membership returns the membership phase.
func (c *Controller) Membership() membership.State { return c.membership.State() }

// Timeline returns the visible timeline of the active room.
func (c *Controller) Timeline() iter.Seq[message.Message] {
	if c.reconciler == nil {
		return func(func(message.Message) bool) {}
	}
	return c.reconciler.Messages()
}

// Stats returns filtering counters.
func (c *Controller) Stats() Stats {
	s := Stats{
		Discards:          c.membership.Discards(),
		Malformed:         c.malformed,
		SupersededHistory: c.superseded,
		NoticesDropped:    c.notifier.Dropped(),
	}
	if c.reconciler != nil {
		s.Timeline = c.reconciler.Stats()
	}
	return s
}

// Start initializes the session for user and switches to defaultRoom. The
// room is joined right away when connected, otherwise on Connected.
func (c *Controller) Start(ctx context.Context, user, defaultRoom string) error {
	if c.started {
		return ErrAlreadyStarted
	}
	user = strings.TrimSpace(user)
	if user == "" {
		return ErrEmptyUser
	}
	if strings.TrimSpace(defaultRoom) == "" {
		return ErrEmptyRoom
	}
	c.ctx = ctx
	c.session.User = user
	c.started = true
	c.log.Info().Str("user", user).Str("room", defaultRoom).Msg("session started")
	return c.SwitchRoom(defaultRoom)
}

// SwitchRoom makes room the active room. Switching to the active room is a
// no-op once it is joined, or while it waits for a connection.
func (c *Controller) SwitchRoom(room string) error {
	if !c.started {
		return ErrNoActiveRoom
	}
	room = strings.TrimSpace(room)
	if room == "" {
		return ErrEmptyRoom
	}
	if room == c.session.ActiveRoom && (c.session.State != Connected || c.joinedTo(room)) {
		return nil
	}

	c.session.ActiveRoom = room
	if c.session.State != Connected {
		c.reconciler = nil
		c.log.Debug().Str("room", room).Str("conn", c.session.State.String()).Msg("room pending until connected")
		return nil
	}
	return c.join(room, c.retained(room))
}

func (c *Controller) joinedTo(room string) bool {
	return c.membership.State() == membership.Joined && c.membership.Room() == room
}

// retained returns the visible timeline when it already belongs to room.
func (c *Controller) retained(room string) []message.Message {
	if c.reconciler == nil || c.reconciler.Room() != room {
		return nil
	}
	return slices.Collect(c.reconciler.Messages())
}

// SendMessage submits text to the active room without waiting for an
// acknowledgment. Whitespace-only text is ignored.
func (c *Controller) SendMessage(text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if c.session.ActiveRoom == "" {
		return ErrNoActiveRoom
	}
	return c.send(proto.EventMessage, proto.SendData{
		Room:     c.session.ActiveRoom,
		Text:     text,
		Username: c.session.User,
	})
}

// OnConnectionChange applies a transport state change. Losing the
// connection forces membership to Idle and keeps the visible timeline;
// reconnecting re-joins the active room under a new epoch.
func (c *Controller) OnConnectionChange(state ConnState) {
	prev := c.session.State
	if state == prev {
		return
	}
	c.session.State = state
	c.log.Info().Str("from", prev.String()).Str("to", state.String()).Msg("connection state changed")

	switch state {
	case Connected:
		room := c.session.ActiveRoom
		if !c.started || room == "" {
			return
		}
		if err := c.join(room, c.retained(room)); err != nil {
			c.log.Warn().Err(err).Str("room", room).Msg("rejoin after reconnect failed")
		}
	default:
		if prev == Connected {
			c.membership.Reset()
			if c.session.ActiveRoom != "" {
				c.notifier.Notify(c.session.ActiveRoom, "connection lost, reconnecting")
			}
		}
	}
}

// RetryHistory re-issues the history fetch for the current epoch after a failure.
func (c *Controller) RetryHistory() error {
	r := c.reconciler
	if r == nil {
		return ErrNoActiveRoom
	}
	if r.Phase() != timeline.Degraded || c.fetching {
		return nil
	}
	c.log.Info().Str("room", r.Room()).Uint64("epoch", r.Epoch()).Msg("retrying history")
	c.fetchHistory(r.Room(), r.Epoch())
	return nil
}

// HandleInbound routes one transport frame. Events for another room or a
// superseded epoch are discarded and counted.
func (c *Controller) HandleInbound(in Inbound) {
	receivedAt := in.ReceivedAt
	if receivedAt.IsZero() {
		receivedAt = c.now()
	}

	switch in.Frame.Event {
	case proto.EventMessage:
		msg, err := message.Normalize(in.Frame.Data, c.session.ActiveRoom, receivedAt)
		if err != nil {
			c.malformed++
			c.log.Warn().Err(err).Msg("dropping malformed message")
			return
		}
		if !c.membership.Admit(msg.Room, in.Epoch) {
			c.log.Debug().Str("room", msg.Room).Uint64("epoch", in.Epoch).Msg("stale message discarded")
			return
		}
		c.reconciler.Live(msg)
	case proto.EventSystem:
		var data proto.SystemData
		if err := in.Frame.Decode(&data); err != nil || strings.TrimSpace(data.Text) == "" {
			c.malformed++
			c.log.Warn().Err(err).Msg("dropping malformed system notice")
			return
		}
		if !c.membership.Admit(data.Room, in.Epoch) {
			c.log.Debug().Str("room", data.Room).Uint64("epoch", in.Epoch).Msg("stale system notice discarded")
			return
		}
		c.notifier.Notify(c.session.ActiveRoom, data.Text)
	case proto.EventError:
		var data proto.Error
		if err := in.Frame.Decode(&data); err != nil {
			c.log.Warn().Err(err).Msg("undecodable error frame")
			return
		}
		c.log.Warn().Str("code", data.Code).Str("msg", data.Msg).Msg("server error")
	default:
		c.log.Debug().Str("event", in.Frame.Event).Msg("ignoring unknown event")
	}
}

// HandleHistory applies a history result. Results for a superseded epoch
// or room are consumed and dropped.
func (c *Controller) HandleHistory(res HistoryResult) {
	r := c.reconciler
	if r == nil || res.Epoch != r.Epoch() || res.Room != r.Room() {
		c.superseded++
		c.log.Debug().Str("room", res.Room).Uint64("epoch", res.Epoch).Msg("superseded history discarded")
		return
	}
	c.fetching = false
	c.cancelFetch = nil

	if res.Err != nil {
		ferr := &HistoryFetchError{Room: res.Room, Epoch: res.Epoch, Err: res.Err}
		c.log.Warn().Err(ferr).Msg("history fetch failed")
		r.FailHistory()
		c.notifier.Error(res.Room, "could not load history for #"+res.Room+"; live messages continue")
		return
	}

	msgs := make([]message.Message, 0, len(res.Records))
	for _, raw := range res.Records {
		msg, err := message.Normalize(raw, res.Room, c.now())
		if err != nil {
			c.malformed++
			c.log.Warn().Err(err).Str("room", res.Room).Msg("dropping malformed history record")
			continue
		}
		msgs = append(msgs, msg)
	}
	if err := r.ApplyHistory(msgs); err != nil {
		c.log.Debug().Err(err).Str("room", res.Room).Msg("history ignored")
		return
	}
	c.log.Debug().Str("room", res.Room).Uint64("epoch", res.Epoch).Int("messages", r.Len()).Msg("timeline reconciled")
}

// join starts a new epoch for room: leave intent for the previous room,
// live subscription, join frame, then the history fetch.
func (c *Controller) join(room string, seed []message.Message) error {
	c.session.Epoch++
	epoch := c.session.Epoch

	left, err := c.membership.Switch(room, epoch)
	if err != nil {
		return err
	}
	c.cancelInFlight()
	c.reconciler = timeline.New(room, epoch, seed, c.view)

	if left != "" && left != room {
		if err := c.send(proto.EventLeave, proto.RoomData{Room: left, Username: c.session.User}); err != nil {
			c.log.Warn().Err(err).Str("room", left).Msg("leave failed")
		}
	}

	c.transport.Subscribe(epoch)
	if err := c.send(proto.EventJoin, proto.RoomData{Room: room, Username: c.session.User}); err != nil {
		// Not joined: a later SwitchRoom or reconnect drives the join again.
		c.membership.Reset()
		return err
	}
	if err := c.membership.Joined(); err != nil {
		return err
	}
	c.log.Info().Str("room", room).Uint64("epoch", epoch).Int("retained", len(seed)).Msg("joined room")

	c.fetchHistory(room, epoch)
	c.notifier.Notify(room, "switched to #"+room)
	return nil
}

func (c *Controller) fetchHistory(room string, epoch uint64) {
	ctx, cancel := context.WithTimeout(c.ctx, c.historyTimeout)
	c.cancelFetch = cancel
	c.fetching = true

	go func() {
		records, err := c.fetcher.History(ctx, room)
		cancel()
		res := HistoryResult{Room: room, Epoch: epoch, Records: records, Err: err}
		select {
		case c.results <- res:
		case <-c.ctx.Done():
		}
	}()
}

func (c *Controller) cancelInFlight() {
	if c.cancelFetch != nil {
		c.cancelFetch()
		c.cancelFetch = nil
	}
	c.fetching = false
}

func (c *Controller) send(event string, data any) error {
	frame, err := proto.NewFrame(event, data)
	if err != nil {
		return err
	}
	if err := c.transport.Send(c.ctx, frame); err != nil {
		c.log.Warn().Err(err).Str("event", event).Msg("send failed")
		return err
	}
	return nil
}
