package proto

import (
	"encoding/json"
	"testing"
)

func TestFrameWireShape(t *testing.T) {
	frame, err := NewFrame(EventJoin, RoomData{Room: "general", Username: "alice"})
	if err != nil {
		t.Fatalf("NewFrame: %v", err)
	}

	raw, err := json.Marshal(frame)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"event":"join","data":{"room":"general","username":"alice"}}`
	if string(raw) != want {
		t.Fatalf("wire = %s, want %s", raw, want)
	}
}

func TestFrameDecodeEmptyPayload(t *testing.T) {
	var data SystemData
	if err := (Frame{Event: EventSystem}).Decode(&data); err == nil {
		t.Fatal("expected error for empty payload")
	}
}
