// Package ws is the client-side WebSocket transport. It keeps one connection
// to the chat server alive, reconnecting with backoff, and stamps every
// inbound frame with the epoch of the latest subscription.
package ws

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirechat/internal/proto"
	"github.com/vovakirdan/wirechat/internal/session"
)

// ErrNotConnected is returned by Send while no connection is established.
var ErrNotConnected = errors.New("ws: not connected")

const (
	defaultReconnectMin = 500 * time.Millisecond
	defaultReconnectMax = 10 * time.Second
	defaultReadLimit    = 1 << 20
)

// Options configures a Client.
type Options struct {
	// URL is the server WebSocket endpoint, e.g. ws://localhost:8080/ws.
	URL  string
	User string

	ReconnectMin time.Duration
	ReconnectMax time.Duration
	ReadLimit    int64
	Logger       *zerolog.Logger
}

// Client implements session.Transport.
type Client struct {
	opts Options
	log  *zerolog.Logger

	mu   sync.Mutex
	conn *websocket.Conn

	epoch   atomic.Uint64
	inbound chan session.Inbound
	states  chan session.ConnState
}

// New creates a client. Call Run to connect.
func New(opts Options) *Client {
	if opts.ReconnectMin <= 0 {
		opts.ReconnectMin = defaultReconnectMin
	}
	if opts.ReconnectMax < opts.ReconnectMin {
		opts.ReconnectMax = max(defaultReconnectMax, opts.ReconnectMin)
	}
	if opts.ReadLimit <= 0 {
		opts.ReadLimit = defaultReadLimit
	}
	logger := opts.Logger
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Client{
		opts:    opts,
		log:     logger,
		inbound: make(chan session.Inbound, 64),
		states:  make(chan session.ConnState, 8),
	}
}

// Inbound delivers frames read from the server. It is closed when Run returns.
func (c *Client) Inbound() <-chan session.Inbound { return c.inbound }

// States delivers connection state changes. It is closed when Run returns.
func (c *Client) States() <-chan session.ConnState { return c.states }

// Subscribe tags frames read from now on with epoch.
func (c *Client) Subscribe(epoch uint64) {
	c.epoch.Store(epoch)
}

// Send writes frame on the current connection.
func (c *Client) Send(ctx context.Context, frame proto.Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return ErrNotConnected
	}
	if err := wsjson.Write(ctx, c.conn, frame); err != nil {
		return fmt.Errorf("ws: write %s: %w", frame.Event, err)
	}
	return nil
}

// Run connects and keeps reconnecting until ctx is cancelled. It must be
// called once.
func (c *Client) Run(ctx context.Context) error {
	defer close(c.inbound)
	defer close(c.states)

	backoff := c.opts.ReconnectMin
	for {
		c.emit(ctx, session.Connecting)
		connected, err := c.serve(ctx)
		if ctx.Err() != nil {
			select {
			case c.states <- session.Disconnected:
			default:
			}
			return nil
		}
		if connected {
			backoff = c.opts.ReconnectMin
		}
		c.log.Warn().Err(err).Dur("retry_in", backoff).Msg("connection lost")
		c.emit(ctx, session.Disconnected)

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}
		backoff = min(backoff*2, c.opts.ReconnectMax)
	}
}

// serve dials, greets and reads until the connection fails. It reports
// whether the connection was established.
func (c *Client) serve(ctx context.Context) (bool, error) {
	conn, _, err := websocket.Dial(ctx, c.opts.URL, nil)
	if err != nil {
		return false, fmt.Errorf("dial: %w", err)
	}
	conn.SetReadLimit(c.opts.ReadLimit)
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	hello, err := proto.NewFrame(proto.EventHello, proto.HelloData{User: c.opts.User, Protocol: proto.ProtocolVersion})
	if err != nil {
		return false, err
	}
	if err := wsjson.Write(ctx, conn, hello); err != nil {
		return false, fmt.Errorf("hello: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.conn = nil
		c.mu.Unlock()
	}()

	c.log.Info().Str("url", c.opts.URL).Str("user", c.opts.User).Msg("connected")
	c.emit(ctx, session.Connected)

	for {
		var frame proto.Frame
		if err := wsjson.Read(ctx, conn, &frame); err != nil {
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				return true, fmt.Errorf("closed by server: %w", err)
			}
			return true, fmt.Errorf("read: %w", err)
		}
		in := session.Inbound{
			Frame:      frame,
			Epoch:      c.epoch.Load(),
			ReceivedAt: time.Now().UTC(),
		}
		select {
		case c.inbound <- in:
		case <-ctx.Done():
			return true, ctx.Err()
		}
	}
}

func (c *Client) emit(ctx context.Context, state session.ConnState) {
	select {
	case c.states <- state:
	case <-ctx.Done():
	}
}

// URLFromBase derives the WebSocket endpoint from an HTTP base URL.
func URLFromBase(base string) (string, error) {
	u, err := url.Parse(strings.TrimRight(base, "/"))
	if err != nil {
		return "", fmt.Errorf("parse server url: %w", err)
	}
	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported server url scheme %q", u.Scheme)
	}
	u.Path += "/ws"
	return u.String(), nil
}
