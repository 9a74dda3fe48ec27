// Package broadcast implements the fan-out notification engine (§4.K):
// snapshot a room's members, translate to fds, and enqueue a frame into
// each recipient's write buffer — all without holding a registry lock
// during the I/O-adjacent enqueue step.
package broadcast

import (
	"encoding/json"
	"log/slog"

	"github.com/chatterbox/chatserver/internal/registry"
)

// Sender enqueues an already-encoded frame onto fd's write buffer and
// requests write-readiness from the reactor. Implemented by
// internal/reactor; kept as an interface here so broadcast has no import
// cycle on reactor.
type Sender interface {
	SendFrame(fd int, msgType uint16, payload []byte) error
}

// Engine ties a Registry to a Sender to implement notifyRoomUsers.
type Engine struct {
	registry *registry.Registry
	sender   Sender
}

func New(reg *registry.Registry, sender Sender) *Engine {
	return &Engine{registry: reg, sender: sender}
}

// NotifyRoomUsers implements §4.K: snapshot room membership under
// active_rooms_mutex, translate to fds under user_to_fd_mutex, then call
// sendResponse for each — each lock is acquired and released before the
// next step, so no registry lock is held during the send.
func (e *Engine) NotifyRoomUsers(roomID int64, msgType uint16, payload any) {
	members, ok := e.registry.MemberSnapshot(roomID)
	if !ok {
		return
	}
	e.notify(members, msgType, payload)
}

// NotifyUsers is the same fan-out as NotifyRoomUsers but over an explicit
// user-id list, for cases like room-deactivation eviction where the
// members have already been removed from the room's live set by the time
// the notification goes out.
func (e *Engine) NotifyUsers(userIDs []int64, msgType uint16, payload any) {
	e.notify(userIDs, msgType, payload)
}

func (e *Engine) notify(userIDs []int64, msgType uint16, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		slog.Error("broadcast: failed to marshal push payload", "type", msgType, "err", err)
		return
	}

	fds := e.registry.FDsForUsers(userIDs)
	for _, fd := range fds {
		if err := e.sender.SendFrame(fd, msgType, body); err != nil {
			slog.Warn("broadcast: send failed", "fd", fd, "type", msgType, "err", err)
		}
	}
}
