package app

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/vovakirdan/wirechat/internal/config"
	"github.com/vovakirdan/wirechat/internal/console"
	"github.com/vovakirdan/wirechat/internal/history"
	"github.com/vovakirdan/wirechat/internal/presence"
	"github.com/vovakirdan/wirechat/internal/session"
	"github.com/vovakirdan/wirechat/internal/transport/ws"
)

// Client wires the chat client: transport, session loop and console.
type Client struct {
	cfg       config.ClientConfig
	log       *zerolog.Logger
	transport *ws.Client
	loop      *session.Loop
	notices   <-chan presence.Notice
	printer   *console.Printer
	in        io.Reader
}

// ClientOptions holds the terminal streams of the chat client.
type ClientOptions struct {
	In    io.Reader
	Out   io.Writer
	Color bool
	// Location for displayed timestamps; nil means local time.
	Location *time.Location
}

// NewClient constructs the chat client.
func NewClient(cfg *config.Config, logger *zerolog.Logger, opts ClientOptions) (*Client, error) {
	wsURL, err := ws.URLFromBase(cfg.Client.ServerURL)
	if err != nil {
		return nil, err
	}

	transport := ws.New(ws.Options{
		URL:          wsURL,
		User:         cfg.Client.User,
		ReconnectMin: cfg.Client.ReconnectMin,
		ReconnectMax: cfg.Client.ReconnectMax,
		Logger:       logger,
	})
	printer := console.New(opts.Out, opts.Color, opts.Location)
	notifier := presence.New(cfg.Client.NoticeBuffer)

	controller := session.New(session.Options{
		Transport:      transport,
		History:        history.New(cfg.Client.ServerURL, nil),
		View:           printer,
		Notifier:       notifier,
		Logger:         logger,
		HistoryTimeout: cfg.Client.HistoryTimeout,
	})

	return &Client{
		cfg:       cfg.Client,
		log:       logger,
		transport: transport,
		loop:      session.NewLoop(controller),
		notices:   notifier.C(),
		printer:   printer,
		in:        opts.In,
	}, nil
}

// Run starts the session and processes input lines until ctx is cancelled,
// input ends or the user quits.
func (a *Client) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return a.transport.Run(ctx)
	})
	g.Go(func() error {
		return a.loop.Run(ctx, a.transport.Inbound(), a.transport.States())
	})
	g.Go(func() error {
		a.printer.Notices(ctx, a.notices)
		return nil
	})
	g.Go(func() error {
		defer cancel()
		err := a.loop.Do(ctx, func(c *session.Controller) error {
			return c.Start(ctx, a.cfg.User, a.cfg.DefaultRoom)
		})
		if err != nil {
			return fmt.Errorf("start session: %w", err)
		}
		return a.readInput(ctx)
	})

	return g.Wait()
}

func (a *Client) readInput(ctx context.Context) error {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(a.in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			in := parseInput(line)
			if in.kind == inputQuit {
				return nil
			}
			if err := a.apply(ctx, in); err != nil {
				a.printer.Notice(presence.Notice{Kind: presence.KindError, Text: err.Error()})
			}
		}
	}
}

func (a *Client) apply(ctx context.Context, in input) error {
	switch in.kind {
	case inputNone:
		return nil
	case inputHelp:
		a.printer.Notice(presence.Notice{Kind: presence.KindSystem, Text: helpText})
		return nil
	case inputRooms:
		a.printer.Notice(presence.Notice{Kind: presence.KindSystem, Text: "rooms: " + strings.Join(a.cfg.Rooms, ", ")})
		return nil
	case inputUnknown:
		return fmt.Errorf("unknown command %q, try /help", in.arg)
	}

	return a.loop.Do(ctx, func(c *session.Controller) error {
		switch in.kind {
		case inputJoin:
			return c.SwitchRoom(in.arg)
		case inputRetry:
			return c.RetryHistory()
		case inputStats:
			s := c.Stats()
			a.printer.Notice(presence.Notice{Kind: presence.KindSystem, Text: fmt.Sprintf(
				"epoch %d, discarded %d, malformed %d, duplicates %d, superseded history %d, dropped notices %d",
				c.Epoch(), s.Discards.Total(), s.Malformed, s.Timeline.Duplicates, s.SupersededHistory, s.NoticesDropped,
			)})
			return nil
		default:
			return c.SendMessage(in.arg)
		}
	})
}
