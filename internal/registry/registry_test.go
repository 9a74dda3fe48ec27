package registry

import (
	"testing"
	"time"

	"github.com/chatterbox/chatserver/internal/model"
)

func seedRoom(r *Registry, id int64, maxUsers int) {
	r.LoadRoom(model.Room{ID: id, Name: "general", MaxUsers: maxUsers, IsActive: true, CreatedTime: time.Now()})
}

func TestJoinThenLeave(t *testing.T) {
	r := New()
	seedRoom(r, 42, 10)

	members, err := r.Join(1, 42)
	if err != nil {
		t.Fatalf("Join: %v", err)
	}
	if len(members) != 1 || members[0] != 1 {
		t.Errorf("members after join = %v, want [1]", members)
	}

	roomID, remaining, ok := r.Leave(1)
	if !ok || roomID != 42 {
		t.Fatalf("Leave: roomID=%d ok=%v, want 42/true", roomID, ok)
	}
	if len(remaining) != 0 {
		t.Errorf("remaining after sole member leaves = %v, want empty", remaining)
	}
}

func TestJoinRefusesWhenAlreadyInARoom(t *testing.T) {
	r := New()
	seedRoom(r, 1, 0)
	seedRoom(r, 2, 0)

	if _, err := r.Join(1, 1); err != nil {
		t.Fatalf("first Join: %v", err)
	}
	if _, err := r.Join(1, 2); err == nil {
		t.Error("expected second Join to fail while already in a room")
	}
}

func TestJoinRefusesWhenRoomFull(t *testing.T) {
	r := New()
	seedRoom(r, 1, 1)

	if _, err := r.Join(10, 1); err != nil {
		t.Fatalf("Join user 10: %v", err)
	}
	if _, err := r.Join(20, 1); err == nil {
		t.Error("expected Join to fail once room is at capacity")
	}
}

func TestJoinRefusesUnknownRoom(t *testing.T) {
	r := New()
	if _, err := r.Join(1, 999); err == nil {
		t.Error("expected Join against unknown room to fail")
	}
}

func TestDeactivateEvictsMembers(t *testing.T) {
	r := New()
	seedRoom(r, 42, 0)
	r.Join(1, 42)
	r.Join(2, 42)

	evicted, ok := r.Deactivate(42)
	if !ok {
		t.Fatal("Deactivate should find the room")
	}
	if len(evicted) != 2 {
		t.Errorf("evicted = %v, want 2 users", evicted)
	}
	if _, inRoom := r.CurrentRoom(1); inRoom {
		t.Error("user 1 should have no current room after deactivation")
	}

	if _, err := r.Join(1, 42); err == nil {
		t.Error("Join against a deactivated room should fail")
	}
}

func TestBindIdentityKicksPreviousFD(t *testing.T) {
	r := New()
	prevFD, had := r.BindIdentity(5, 100)
	if had {
		t.Errorf("first bind should have no previous fd, got %d", prevFD)
	}

	prevFD, had = r.BindIdentity(6, 100)
	if !had || prevFD != 5 {
		t.Errorf("second bind: prevFD=%d had=%v, want 5/true", prevFD, had)
	}

	if _, ok := r.UserForFD(5); ok {
		t.Error("fd 5 should no longer resolve to a user after being superseded")
	}
	if user, ok := r.UserForFD(6); !ok || user != 100 {
		t.Errorf("UserForFD(6) = %d,%v, want 100,true", user, ok)
	}
}

func TestUpdateRoomMetaAffectsActiveAndInactiveRooms(t *testing.T) {
	r := New()
	seedRoom(r, 1, 5)
	r.LoadRoom(model.Room{ID: 2, Name: "archived", MaxUsers: 5, IsActive: false, CreatedTime: time.Now()})

	r.UpdateRoomName(1, "renamed")
	r.UpdateRoomDescription(1, "new description")
	r.UpdateRoomMaxUsers(1, 1)
	r.UpdateRoomName(2, "still archived, renamed")

	active := r.ActiveRoomSnapshot()
	if len(active) != 1 || active[0].Name != "renamed" || active[0].Description != "new description" || active[0].MaxUsers != 1 {
		t.Fatalf("active room after update = %+v, want renamed/new description/1", active)
	}

	inactive := r.InactiveRoomSnapshot()
	if len(inactive) != 1 || inactive[0].Name != "still archived, renamed" {
		t.Fatalf("inactive room after update = %+v, want renamed", inactive)
	}

	if _, err := r.Join(99, 1); err != nil {
		t.Fatalf("Join against updated room: %v", err)
	}
	if _, err := r.Join(98, 1); err == nil {
		t.Error("expected Join to respect the updated MaxUsers of 1")
	}
}

func TestMemberSnapshotAndFDTranslation(t *testing.T) {
	r := New()
	seedRoom(r, 1, 0)
	r.Join(7, 1)
	r.Join(8, 1)
	r.BindIdentity(70, 7)
	r.BindIdentity(80, 8)

	members, ok := r.MemberSnapshot(1)
	if !ok || len(members) != 2 {
		t.Fatalf("MemberSnapshot = %v,%v, want 2 members", members, ok)
	}

	fds := r.FDsForUsers(members)
	if len(fds) != 2 {
		t.Errorf("FDsForUsers = %v, want 2 fds", fds)
	}
}
