package service

import (
	"testing"

	"github.com/chatterbox/chatserver/internal/dal"
)

func TestRegisterThenLogin(t *testing.T) {
	users := NewUserService(dal.NewMemoryDAL())

	reg := users.Register("alice", "a@x.test", "pw12345")
	if !reg.OK() {
		t.Fatalf("Register: code=%v msg=%s", reg.Code, reg.Message)
	}

	login := users.Login("a@x.test", "pw12345")
	if !login.OK() {
		t.Fatalf("Login: code=%v msg=%s", login.Code, login.Message)
	}
	if login.Value.User.Name != "alice" {
		t.Errorf("Login user = %q, want alice", login.Value.User.Name)
	}
}

func TestRegisterDuplicateEmailConflict(t *testing.T) {
	users := NewUserService(dal.NewMemoryDAL())

	users.Register("alice", "a@x.test", "pw12345")
	dup := users.Register("alice2", "a@x.test", "pw99999")
	if dup.Code != CodeConflict {
		t.Errorf("Register duplicate email code = %v, want CodeConflict", dup.Code)
	}
}

func TestLoginWrongPasswordUnauthorized(t *testing.T) {
	users := NewUserService(dal.NewMemoryDAL())
	users.Register("alice", "a@x.test", "pw12345")

	result := users.Login("a@x.test", "wrong")
	if result.Code != CodeUnauthorized {
		t.Errorf("Login wrong password code = %v, want CodeUnauthorized", result.Code)
	}
}

func TestChangePasswordNotFound(t *testing.T) {
	users := NewUserService(dal.NewMemoryDAL())
	result := users.ChangePassword("nobody@x.test", "old", "new")
	if result.Code != CodeNotFound {
		t.Errorf("ChangePassword on unknown user code = %v, want CodeNotFound", result.Code)
	}
}

func TestRoomServiceCRUD(t *testing.T) {
	store := dal.NewMemoryDAL()
	rooms := NewRoomService(store)

	created := rooms.CreateRoom(1, "general", "welcome", 5)
	if !created.OK() {
		t.Fatalf("CreateRoom: code=%v msg=%s", created.Code, created.Message)
	}

	active := rooms.GetActiveRooms()
	if !active.OK() || len(active.Value) != 1 {
		t.Fatalf("GetActiveRooms = %+v", active)
	}

	deact := rooms.SetRoomStatus(created.Value.ID, false)
	if !deact.OK() {
		t.Fatalf("SetRoomStatus: code=%v msg=%s", deact.Code, deact.Message)
	}

	missing := rooms.GetRoomInfo(9999)
	if missing.Code != CodeNotFound {
		t.Errorf("GetRoomInfo missing room code = %v, want CodeNotFound", missing.Code)
	}
}

func TestMessageServiceHistoryDefaultLimit(t *testing.T) {
	store := dal.NewMemoryDAL()
	rooms := NewRoomService(store)
	messages := NewMessageService(store)

	room := rooms.CreateRoom(1, "general", "", 0)
	for i := 0; i < 3; i++ {
		send := messages.SendMessage(7, room.Value.ID, "hi", "alice#0001")
		if !send.OK() {
			t.Fatalf("SendMessage #%d: code=%v msg=%s", i, send.Code, send.Message)
		}
	}

	history := messages.GetMessageHistory(room.Value.ID, 0)
	if !history.OK() {
		t.Fatalf("GetMessageHistory: code=%v msg=%s", history.Code, history.Message)
	}
	if len(history.Value) != 3 {
		t.Errorf("len(history) = %d, want 3", len(history.Value))
	}
}
