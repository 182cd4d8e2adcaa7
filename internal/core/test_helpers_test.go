package core

import (
	"testing"
	"time"
)

// mustEvent waits for the next event of kind, skipping others. An empty
// room matches any room.
func mustEvent(t *testing.T, ch <-chan *Event, kind EventKind) *Event {
	t.Helper()
	return mustRoomEvent(t, ch, kind, "")
}

func mustRoomEvent(t *testing.T, ch <-chan *Event, kind EventKind, room string) *Event {
	t.Helper()

	timeout := time.After(2 * time.Second)
	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				t.Fatalf("events closed while waiting for kind %v", kind)
			}
			if ev == nil || ev.Kind != kind {
				continue
			}
			if room != "" && ev.Room != room {
				continue
			}
			return ev
		case <-timeout:
			t.Fatalf("expected event kind %v room %q not received", kind, room)
			return nil
		}
	}
}
