package sqlite

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/vovakirdan/wirechat/internal/store"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSaveAndListMessages(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := range 5 {
		msg := &store.Message{
			Room:      "general",
			Author:    "alice",
			Body:      fmt.Sprintf("m%d", i),
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}
		if err := s.SaveMessage(ctx, msg); err != nil {
			t.Fatalf("SaveMessage: %v", err)
		}
		if msg.ID == 0 {
			t.Fatal("expected id to be set")
		}
	}
	if err := s.SaveMessage(ctx, &store.Message{Room: "random", Author: "bob", Body: "elsewhere", CreatedAt: base}); err != nil {
		t.Fatalf("SaveMessage: %v", err)
	}

	lastID := int64(4)
	tests := []struct {
		name     string
		room     string
		limit    int
		beforeID *int64
		expected []string
	}{
		{name: "latest within limit", room: "general", limit: 3, expected: []string{"m2", "m3", "m4"}},
		{name: "all", room: "general", limit: 50, expected: []string{"m0", "m1", "m2", "m3", "m4"}},
		{name: "before id", room: "general", limit: 2, beforeID: &lastID, expected: []string{"m1", "m2"}},
		{name: "other room", room: "random", limit: 50, expected: []string{"elsewhere"}},
		{name: "empty room", room: "tech", limit: 50, expected: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msgs, err := s.ListMessages(ctx, tt.room, tt.limit, tt.beforeID)
			if err != nil {
				t.Fatalf("ListMessages failed: %v", err)
			}
			if len(msgs) != len(tt.expected) {
				t.Fatalf("expected %d messages, got %d", len(tt.expected), len(msgs))
			}
			for i, m := range msgs {
				if m.Body != tt.expected[i] {
					t.Errorf("expected %s at index %d, got %s", tt.expected[i], i, m.Body)
				}
				if m.Room != tt.room {
					t.Errorf("message %d has room %q", i, m.Room)
				}
			}
		})
	}

	msgs, _ := s.ListMessages(ctx, "general", 1, nil)
	if want := base.Add(4 * time.Second); !msgs[0].CreatedAt.Equal(want) {
		t.Fatalf("created_at = %v, want %v", msgs[0].CreatedAt, want)
	}
}

func TestNewIsIdempotent(t *testing.T) {
	path := t.TempDir() + "/chat.db"
	for range 2 {
		s, err := New(path)
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		if err := s.Close(); err != nil {
			t.Fatalf("Close: %v", err)
		}
	}
}
