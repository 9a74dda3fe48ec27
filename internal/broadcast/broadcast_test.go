package broadcast

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/chatterbox/chatserver/internal/model"
	"github.com/chatterbox/chatserver/internal/registry"
)

type fakeSender struct {
	sent map[int][]byte
}

func (f *fakeSender) SendFrame(fd int, msgType uint16, payload []byte) error {
	if f.sent == nil {
		f.sent = make(map[int][]byte)
	}
	f.sent[fd] = payload
	return nil
}

func TestNotifyRoomUsersReachesOnlyMembers(t *testing.T) {
	reg := registry.New()
	reg.LoadRoom(model.Room{ID: 1, Name: "general", IsActive: true, CreatedTime: time.Now()})
	reg.Join(10, 1)
	reg.Join(20, 1)
	reg.BindIdentity(100, 10)
	reg.BindIdentity(200, 20)
	reg.BindIdentity(300, 30) // user 30 is online but not in the room

	sender := &fakeSender{}
	engine := New(reg, sender)

	engine.NotifyRoomUsers(1, 2001, map[string]string{"message": "hello"})

	if len(sender.sent) != 2 {
		t.Fatalf("sent to %d fds, want 2", len(sender.sent))
	}
	if _, ok := sender.sent[300]; ok {
		t.Error("non-member fd 300 should not receive the broadcast")
	}

	var body map[string]string
	if err := json.Unmarshal(sender.sent[100], &body); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if body["message"] != "hello" {
		t.Errorf("payload message = %q, want hello", body["message"])
	}
}

func TestNotifyRoomUsersUnknownRoomIsNoop(t *testing.T) {
	reg := registry.New()
	sender := &fakeSender{}
	engine := New(reg, sender)

	engine.NotifyRoomUsers(999, 2001, map[string]string{})
	if len(sender.sent) != 0 {
		t.Errorf("expected no sends for an unknown room, got %d", len(sender.sent))
	}
}
