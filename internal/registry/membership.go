package registry

import "fmt"

// JoinError distinguishes the JOIN_ROOM failure reasons named in §4.J.
type JoinError struct {
	Reason string
}

func (e *JoinError) Error() string { return fmt.Sprintf("registry: join refused: %s", e.Reason) }

// Join implements the JOIN_ROOM atomicity contract of §4.J: acquire
// active_rooms then user_to_room, re-check the caller has no current room,
// re-check the room is active, check capacity, insert into both
// structures, release. Returns the room's live member snapshot (including
// the new member) for the caller to broadcast.
func (r *Registry) Join(userID, roomID int64) ([]int64, error) {
	r.activeMu.Lock()
	defer r.activeMu.Unlock()
	r.userRoomMu.Lock()
	defer r.userRoomMu.Unlock()

	if _, already := r.userRoom[userID]; already {
		return nil, &JoinError{Reason: "already in a room"}
	}

	rt, ok := r.active[roomID]
	if !ok {
		return nil, &JoinError{Reason: "room not found"}
	}
	if rt.MaxUsers > 0 && len(rt.Users) >= rt.MaxUsers {
		return nil, &JoinError{Reason: "room full"}
	}

	rt.Users[userID] = true
	r.userRoom[userID] = roomID

	members := make([]int64, 0, len(rt.Users))
	for id := range rt.Users {
		members = append(members, id)
	}
	return members, nil
}

// Leave removes userID from its current room, if any, returning the room
// id left and the remaining member snapshot.
func (r *Registry) Leave(userID int64) (roomID int64, remaining []int64, ok bool) {
	r.activeMu.Lock()
	defer r.activeMu.Unlock()
	r.userRoomMu.Lock()
	defer r.userRoomMu.Unlock()

	roomID, ok = r.userRoom[userID]
	if !ok {
		return 0, nil, false
	}
	delete(r.userRoom, userID)

	if rt, active := r.active[roomID]; active {
		delete(rt.Users, userID)
		remaining = make([]int64, 0, len(rt.Users))
		for id := range rt.Users {
			remaining = append(remaining, id)
		}
	}
	return roomID, remaining, true
}

// Deactivate moves roomID from active to inactive (§4.I), snapshotting and
// evicting every member's user_to_room entry. Returns the evicted user ids
// so the caller can notify and force-clear their client-side room state.
func (r *Registry) Deactivate(roomID int64) (evicted []int64, ok bool) {
	r.activeMu.Lock()
	defer r.activeMu.Unlock()
	r.inactiveMu.Lock()
	defer r.inactiveMu.Unlock()
	r.userRoomMu.Lock()
	defer r.userRoomMu.Unlock()

	rt, found := r.active[roomID]
	if !found {
		return nil, false
	}

	evicted = make([]int64, 0, len(rt.Users))
	for userID := range rt.Users {
		evicted = append(evicted, userID)
		delete(r.userRoom, userID)
	}
	rt.Users = make(map[int64]bool)

	delete(r.active, roomID)
	r.inactive[roomID] = rt
	return evicted, true
}

// Activate moves roomID from inactive to active, preserving its (empty, by
// invariant) member set.
func (r *Registry) Activate(roomID int64) bool {
	r.activeMu.Lock()
	defer r.activeMu.Unlock()
	r.inactiveMu.Lock()
	defer r.inactiveMu.Unlock()

	rt, found := r.inactive[roomID]
	if !found {
		return false
	}
	delete(r.inactive, roomID)
	r.active[roomID] = rt
	return true
}
