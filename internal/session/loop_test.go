package session

import (
	"context"
	"encoding/json"
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/vovakirdan/wirechat/internal/proto"
)

func waitFor(t *testing.T, l *Loop, cond func(*Controller) bool) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		var ok bool
		err := l.Do(context.Background(), func(c *Controller) error {
			ok = cond(c)
			return nil
		})
		if err != nil {
			t.Fatalf("Do: %v", err)
		}
		if ok {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not reached")
}

func TestLoopDrivesController(t *testing.T) {
	h := newHarness(t)
	h.fetcher.set("general", aliceHi)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	inbound := make(chan Inbound, 8)
	states := make(chan ConnState, 4)
	loop := NewLoop(h.c)

	done := make(chan error, 1)
	go func() { done <- loop.Run(ctx, inbound, states) }()

	states <- Connected
	err := loop.Do(ctx, func(c *Controller) error {
		return c.Start(ctx, "me", "general")
	})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	// History results are applied by the loop itself.
	waitFor(t, loop, func(c *Controller) bool {
		return slices.Equal(visible(c), []string{"alice:hi"})
	})

	var epoch uint64
	_ = loop.Do(ctx, func(c *Controller) error {
		epoch = c.Epoch()
		return nil
	})
	inbound <- Inbound{
		Frame: proto.Frame{Event: proto.EventMessage, Data: json.RawMessage(bobYo)},
		Epoch: epoch,
	}
	waitFor(t, loop, func(c *Controller) bool {
		return slices.Equal(visible(c), []string{"alice:hi", "bob:yo"})
	})

	wantErr := errors.New("nope")
	if err := loop.Do(ctx, func(*Controller) error { return wantErr }); !errors.Is(err, wantErr) {
		t.Fatalf("Do error = %v, want %v", err, wantErr)
	}

	close(inbound)
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop")
	}
}

func TestLoopDoHonoursContext(t *testing.T) {
	loop := NewLoop(newHarness(t).c)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// Run is not started, so the command is queued but never executed.
	if err := loop.Do(ctx, func(*Controller) error { return nil }); !errors.Is(err, context.Canceled) {
		t.Fatalf("Do = %v, want context.Canceled", err)
	}
}
