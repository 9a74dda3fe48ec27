// Package registry implements the in-memory room registry and identity
// bi-maps of spec.md §3/§4.I: active/inactive room maps with member sets,
// and the fd↔user↔room bi-maps that answer "who is where right now". Every
// exported method that touches more than one map acquires locks in the
// mandated order and releases in reverse:
//
//	connections > active_rooms > inactive_rooms > fd_to_user > user_to_fd > user_to_room > user_to_token
//
// Registry does not hold user_to_token (that's internal/session); callers
// needing both lock a Registry method first, release it, then call Session
// — satisfying the order without Registry importing session.
package registry

import (
	"sync"
	"time"

	"github.com/chatterbox/chatserver/internal/model"
)

// RoomRuntime is the live, in-memory view of a room (§3): its metadata plus
// the set of currently-joined user ids.
type RoomRuntime struct {
	ID          int64
	Name        string
	Description string
	CreatorID   int64
	MaxUsers    int
	CreatedTime time.Time
	Users       map[int64]bool
}

func newRuntime(r model.Room) *RoomRuntime {
	return &RoomRuntime{
		ID: r.ID, Name: r.Name, Description: r.Description, CreatorID: r.CreatorID,
		MaxUsers: r.MaxUsers, CreatedTime: r.CreatedTime, Users: make(map[int64]bool),
	}
}

// Registry holds every in-memory map named by §3/§4.I, each behind its own
// mutex, in the order they must be acquired.
type Registry struct {
	connMu sync.Mutex
	conns  map[int]bool // fd -> live (connections map is owned by reactor; this set mirrors liveness for invariant checks)

	activeMu   sync.Mutex
	active     map[int64]*RoomRuntime

	inactiveMu sync.Mutex
	inactive   map[int64]*RoomRuntime

	fdUserMu sync.Mutex
	fdUser   map[int]int64

	userFDMu sync.Mutex
	userFD   map[int64]int

	userRoomMu sync.Mutex
	userRoom   map[int64]int64
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{
		conns:    make(map[int]bool),
		active:   make(map[int64]*RoomRuntime),
		inactive: make(map[int64]*RoomRuntime),
		fdUser:   make(map[int]int64),
		userFD:   make(map[int64]int),
		userRoom: make(map[int64]int64),
	}
}

// RegisterConnection marks fd live in the connections map, for invariant 3
// (every fd→user entry has a live connection behind it).
func (r *Registry) RegisterConnection(fd int) {
	r.connMu.Lock()
	r.conns[fd] = true
	r.connMu.Unlock()
}

// UnregisterConnection removes fd from the connections map.
func (r *Registry) UnregisterConnection(fd int) {
	r.connMu.Lock()
	delete(r.conns, fd)
	r.connMu.Unlock()
}

// ConnectionLive reports whether fd is currently registered.
func (r *Registry) ConnectionLive(fd int) bool {
	r.connMu.Lock()
	defer r.connMu.Unlock()
	return r.conns[fd]
}

// LoadRoom seeds or updates a room's runtime metadata from a persisted
// model.Room, placing it in active or inactive per r.IsActive. Used at
// startup and whenever the DAL is the source of truth for metadata.
func (r *Registry) LoadRoom(room model.Room) {
	rt := newRuntime(room)
	if room.IsActive {
		r.activeMu.Lock()
		r.active[room.ID] = rt
		r.activeMu.Unlock()
		return
	}
	r.inactiveMu.Lock()
	r.inactive[room.ID] = rt
	r.inactiveMu.Unlock()
}

// RemoveRoom deletes id from whichever map holds it (room deletion, §4.I).
func (r *Registry) RemoveRoom(id int64) {
	r.activeMu.Lock()
	_, wasActive := r.active[id]
	delete(r.active, id)
	r.activeMu.Unlock()

	if !wasActive {
		r.inactiveMu.Lock()
		delete(r.inactive, id)
		r.inactiveMu.Unlock()
	}
}

// ActiveRoomSnapshot returns a copy of every active room's metadata plus
// live member count, safe to use after the lock is released (§4.K step 1).
func (r *Registry) ActiveRoomSnapshot() []model.RoomSummary {
	r.activeMu.Lock()
	defer r.activeMu.Unlock()
	out := make([]model.RoomSummary, 0, len(r.active))
	for _, rt := range r.active {
		out = append(out, summarize(rt))
	}
	return out
}

// InactiveRoomSnapshot mirrors ActiveRoomSnapshot for admin-only listing.
func (r *Registry) InactiveRoomSnapshot() []model.RoomSummary {
	r.inactiveMu.Lock()
	defer r.inactiveMu.Unlock()
	out := make([]model.RoomSummary, 0, len(r.inactive))
	for _, rt := range r.inactive {
		out = append(out, summarize(rt))
	}
	return out
}

func summarize(rt *RoomRuntime) model.RoomSummary {
	return model.RoomSummary{
		ID: rt.ID, Name: rt.Name, Description: rt.Description, CreatorID: rt.CreatorID,
		MaxUsers: rt.MaxUsers, CurrentUsers: len(rt.Users), CreatedTime: rt.CreatedTime,
	}
}

// MemberSnapshot returns the member-id set of an active room, or (nil,
// false) if roomID isn't active. Used by the broadcast engine under
// active_rooms_mutex before release (§4.K).
func (r *Registry) MemberSnapshot(roomID int64) ([]int64, bool) {
	r.activeMu.Lock()
	defer r.activeMu.Unlock()
	rt, ok := r.active[roomID]
	if !ok {
		return nil, false
	}
	out := make([]int64, 0, len(rt.Users))
	for id := range rt.Users {
		out = append(out, id)
	}
	return out, true
}

// FDsForUsers translates user ids to fds under user_to_fd_mutex (§4.K step
// 2). Users with no live fd are omitted.
func (r *Registry) FDsForUsers(userIDs []int64) []int {
	r.userFDMu.Lock()
	defer r.userFDMu.Unlock()
	out := make([]int, 0, len(userIDs))
	for _, id := range userIDs {
		if fd, ok := r.userFD[id]; ok {
			out = append(out, fd)
		}
	}
	return out
}

// BindIdentity records that fd is authenticated as userID (§4.H step 2),
// evicting any previous fd for that user and returning it if one existed
// (so the caller can issue the kick before the new token is handed out).
func (r *Registry) BindIdentity(fd int, userID int64) (previousFD int, hadPrevious bool) {
	r.fdUserMu.Lock()
	r.userFDMu.Lock()

	if prevFD, ok := r.userFD[userID]; ok && prevFD != fd {
		delete(r.fdUser, prevFD)
		previousFD, hadPrevious = prevFD, true
	}
	r.fdUser[fd] = userID
	r.userFD[userID] = fd

	r.userFDMu.Unlock()
	r.fdUserMu.Unlock()
	return previousFD, hadPrevious
}

// UserForFD resolves fd to its authenticated user, if any.
func (r *Registry) UserForFD(fd int) (int64, bool) {
	r.fdUserMu.Lock()
	defer r.fdUserMu.Unlock()
	id, ok := r.fdUser[fd]
	return id, ok
}

// ClearIdentity removes fd's (and, if it still points at fd, the
// corresponding user's) bi-map entries — part of cleanupConnection (§7).
func (r *Registry) ClearIdentity(fd int) (userID int64, hadUser bool) {
	r.fdUserMu.Lock()
	r.userFDMu.Lock()

	userID, hadUser = r.fdUser[fd]
	if hadUser {
		delete(r.fdUser, fd)
		if r.userFD[userID] == fd {
			delete(r.userFD, userID)
		}
	}

	r.userFDMu.Unlock()
	r.fdUserMu.Unlock()
	return userID, hadUser
}

// UpdateRoomName updates an in-memory room's display name after a
// successful persisted write (SET_ROOM_NAME), wherever the room currently
// lives (active or inactive).
func (r *Registry) UpdateRoomName(roomID int64, name string) {
	r.withRoomRuntime(roomID, func(rt *RoomRuntime) { rt.Name = name })
}

// UpdateRoomDescription mirrors UpdateRoomName for a room's description.
func (r *Registry) UpdateRoomDescription(roomID int64, description string) {
	r.withRoomRuntime(roomID, func(rt *RoomRuntime) { rt.Description = description })
}

// UpdateRoomMaxUsers mirrors UpdateRoomName for the capacity cap Join's
// capacity check reads.
func (r *Registry) UpdateRoomMaxUsers(roomID int64, maxUsers int) {
	r.withRoomRuntime(roomID, func(rt *RoomRuntime) { rt.MaxUsers = maxUsers })
}

// withRoomRuntime locates roomID in whichever map currently holds it and
// applies fn under that map's lock, releasing active_rooms before
// acquiring inactive_rooms to respect the lock order of §4.I.
func (r *Registry) withRoomRuntime(roomID int64, fn func(rt *RoomRuntime)) {
	r.activeMu.Lock()
	if rt, ok := r.active[roomID]; ok {
		fn(rt)
		r.activeMu.Unlock()
		return
	}
	r.activeMu.Unlock()

	r.inactiveMu.Lock()
	defer r.inactiveMu.Unlock()
	if rt, ok := r.inactive[roomID]; ok {
		fn(rt)
	}
}

// CurrentRoom returns the room userID currently occupies, if any.
func (r *Registry) CurrentRoom(userID int64) (int64, bool) {
	r.userRoomMu.Lock()
	defer r.userRoomMu.Unlock()
	id, ok := r.userRoom[userID]
	return id, ok
}
