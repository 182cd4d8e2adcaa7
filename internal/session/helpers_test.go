package session

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/vovakirdan/wirechat/internal/message"
	"github.com/vovakirdan/wirechat/internal/presence"
	"github.com/vovakirdan/wirechat/internal/proto"
)

// fakeTransport records subscriptions and sent frames in order.
type fakeTransport struct {
	mu     sync.Mutex
	log    []string
	frames []proto.Frame
	err    error
}

func (f *fakeTransport) Send(_ context.Context, frame proto.Frame) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	var data proto.RoomData
	_ = json.Unmarshal(frame.Data, &data)
	f.log = append(f.log, frame.Event+":"+data.Room)
	f.frames = append(f.frames, frame)
	return nil
}

func (f *fakeTransport) Subscribe(epoch uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.log = append(f.log, fmt.Sprintf("subscribe:%d", epoch))
}

func (f *fakeTransport) entries() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.log)
}

func (f *fakeTransport) sent() []proto.Frame {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.frames)
}

// fakeFetcher serves canned history per room. A gated room blocks until its
// gate is closed or the request context ends.
type fakeFetcher struct {
	mu      sync.Mutex
	records map[string][]json.RawMessage
	errs    map[string]error
	gates   map[string]chan struct{}
	calls   map[string]int
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		records: make(map[string][]json.RawMessage),
		errs:    make(map[string]error),
		gates:   make(map[string]chan struct{}),
		calls:   make(map[string]int),
	}
}

func (f *fakeFetcher) set(room string, records ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	raw := make([]json.RawMessage, 0, len(records))
	for _, r := range records {
		raw = append(raw, json.RawMessage(r))
	}
	f.records[room] = raw
	delete(f.errs, room)
}

func (f *fakeFetcher) fail(room string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[room] = err
}

func (f *fakeFetcher) gate(room string) chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := make(chan struct{})
	f.gates[room] = ch
	return ch
}

func (f *fakeFetcher) callCount(room string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[room]
}

func (f *fakeFetcher) History(ctx context.Context, room string) ([]json.RawMessage, error) {
	f.mu.Lock()
	f.calls[room]++
	gate := f.gates[room]
	records := f.records[room]
	err := f.errs[room]
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	return records, nil
}

type recordingView struct {
	mu      sync.Mutex
	room    string
	resets  int
	current []message.Message
}

func (v *recordingView) Reset(room string, msgs []message.Message) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.room = room
	v.resets++
	v.current = slices.Clone(msgs)
}

func (v *recordingView) Append(msg message.Message) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.current = append(v.current, msg)
}

func (v *recordingView) lines() []string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return lines(v.current)
}

type harness struct {
	c         *Controller
	transport *fakeTransport
	fetcher   *fakeFetcher
	view      *recordingView
	ctx       context.Context
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	h := &harness{
		transport: &fakeTransport{},
		fetcher:   newFakeFetcher(),
		view:      &recordingView{},
		ctx:       ctx,
	}
	h.c = New(Options{
		Transport:      h.transport,
		History:        h.fetcher,
		View:           h.view,
		Notifier:       presence.New(64),
		HistoryTimeout: time.Second,
		Now:            func() time.Time { return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC) },
	})
	return h
}

// start connects and starts the session in room, applying its history.
func (h *harness) start(t *testing.T, room string) {
	t.Helper()
	h.c.OnConnectionChange(Connected)
	if err := h.c.Start(h.ctx, "me", room); err != nil {
		t.Fatalf("Start: %v", err)
	}
	h.c.HandleHistory(nextResult(t, h.c))
}

func (h *harness) live(raw string) {
	h.liveAt(raw, h.c.Epoch())
}

func (h *harness) liveAt(raw string, epoch uint64) {
	h.c.HandleInbound(Inbound{
		Frame: proto.Frame{Event: proto.EventMessage, Data: json.RawMessage(raw)},
		Epoch: epoch,
	})
}

func nextResult(t *testing.T, c *Controller) HistoryResult {
	t.Helper()
	select {
	case res := <-c.Results():
		return res
	case <-time.After(2 * time.Second):
		t.Fatal("history result not received")
	}
	return HistoryResult{}
}

func drainNotices(c *Controller) []presence.Notice {
	var out []presence.Notice
	for {
		select {
		case n := <-c.Notices():
			out = append(out, n)
		default:
			return out
		}
	}
}

func lines(msgs []message.Message) []string {
	out := make([]string, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, m.Author+":"+m.Text)
	}
	return out
}

func visible(c *Controller) []string {
	return lines(slices.Collect(c.Timeline()))
}

func assertLines(t *testing.T, got []string, want ...string) {
	t.Helper()
	if !slices.Equal(got, want) {
		t.Fatalf("timeline = %v, want %v", got, want)
	}
}
