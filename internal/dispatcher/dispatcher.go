// Package dispatcher implements the request routing table of spec.md §4.J:
// per-message-type handlers that validate JSON and tokens, call domain
// services, mutate the room registry under the mandated lock order, and
// schedule broadcasts.
package dispatcher

import (
	"encoding/json"
	"log/slog"

	"github.com/buger/jsonparser"

	"github.com/chatterbox/chatserver/internal/broadcast"
	"github.com/chatterbox/chatserver/internal/registry"
	"github.com/chatterbox/chatserver/internal/service"
	"github.com/chatterbox/chatserver/internal/session"
	"github.com/chatterbox/chatserver/internal/wire"
)

// Transport is the narrow set of reactor operations the dispatcher needs:
// enqueue a response/push frame, force-kick a connection, or close one
// outright during teardown.
type Transport interface {
	SendFrame(fd int, msgType uint16, payload []byte) error
	KickWithRetry(fd int)
	CloseConnection(fd int)
}

// Dispatcher wires the registry, session store, domain services, and
// broadcast engine behind the routing table.
type Dispatcher struct {
	registry  *registry.Registry
	sessions  *session.Store
	users     *service.UserService
	rooms     *service.RoomService
	messages  *service.MessageService
	broadcast *broadcast.Engine
	transport Transport
}

func New(
	reg *registry.Registry,
	sessions *session.Store,
	users *service.UserService,
	rooms *service.RoomService,
	messages *service.MessageService,
	bc *broadcast.Engine,
	transport Transport,
) *Dispatcher {
	return &Dispatcher{
		registry:  reg,
		sessions:  sessions,
		users:     users,
		rooms:     rooms,
		messages:  messages,
		broadcast: bc,
		transport: transport,
	}
}

// envelope is the minimum shape every response carries (§6): success,
// code, and an optional message; dispatcher additionally sets type for
// client convenience.
type envelope struct {
	Success bool   `json:"success"`
	Code    int    `json:"code"`
	Message string `json:"message,omitempty"`
	Type    uint16 `json:"type"`
}

// HandleRequest implements reactor.Handler. No ordering guarantee across
// invocations for the same fd is assumed beyond what individual handlers
// provide themselves (spec.md §5).
func (d *Dispatcher) HandleRequest(fd int, frame wire.Frame) {
	switch frame.Type {
	case wire.TypeRegister:
		d.handleRegister(fd, frame)
	case wire.TypeChangePassword:
		d.handleChangePassword(fd, frame)
	case wire.TypeChangeDisplayName:
		d.handleChangeDisplayName(fd, frame)
	case wire.TypeLogin:
		d.handleLogin(fd, frame)
	case wire.TypeLogout:
		d.handleLogout(fd, frame)
	case wire.TypeFetchActiveRooms:
		d.handleFetchActiveRooms(fd, frame)
	case wire.TypeFetchInactiveRooms:
		d.handleFetchInactiveRooms(fd, frame)
	case wire.TypeCreateRoom:
		d.handleCreateRoom(fd, frame)
	case wire.TypeDeleteRoom:
		d.handleDeleteRoom(fd, frame)
	case wire.TypeSetRoomName:
		d.handleSetRoomName(fd, frame)
	case wire.TypeSetRoomDescription:
		d.handleSetRoomDescription(fd, frame)
	case wire.TypeSetRoomMaxUsers:
		d.handleSetRoomMaxUsers(fd, frame)
	case wire.TypeSetRoomStatus:
		d.handleSetRoomStatus(fd, frame)
	case wire.TypeSendMessage:
		d.handleSendMessage(fd, frame)
	case wire.TypeGetMessageHistory:
		d.handleGetMessageHistory(fd, frame)
	case wire.TypeJoinRoom:
		d.handleJoinRoom(fd, frame)
	case wire.TypeLeaveRoom:
		d.handleLeaveRoom(fd, frame)
	case wire.TypeGetUserInfo:
		d.handleGetUserInfo(fd, frame)
	case wire.TypeGetRoomMembers:
		d.handleGetRoomMembers(fd, frame)
	default:
		slog.Warn("dispatcher: unknown message type", "fd", fd, "type", frame.Type)
		d.sendError(fd, wire.TypeErrorResponse, 400, "unknown message type")
	}
}

// CleanupConnection implements reactor.Handler's teardown path (§7): this
// is idempotent and safe to re-enter.
func (d *Dispatcher) CleanupConnection(fd int) {
	userID, hadUser := d.registry.ClearIdentity(fd)
	d.registry.UnregisterConnection(fd)
	d.transport.CloseConnection(fd)

	if hadUser {
		d.sessions.Logout(userID)
		if roomID, remaining, inRoom := d.registry.Leave(userID); inRoom {
			d.broadcast.NotifyUsers(remaining, wire.PushUserLeave, userLeavePayload{UserID: userID, RoomID: roomID})
		}
	}
	slog.Info("dispatcher: connection torn down", "fd", fd, "user_id", userID)
}

type userLeavePayload struct {
	UserID int64 `json:"user_id"`
	RoomID int64 `json:"room_id"`
}

func (d *Dispatcher) sendError(fd int, respType uint16, code int, message string) {
	body, _ := json.Marshal(envelope{Success: false, Code: code, Message: message, Type: respType})
	_ = d.transport.SendFrame(fd, respType, body)
}

func (d *Dispatcher) sendSuccess(fd int, respType uint16, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		slog.Error("dispatcher: failed to marshal response", "type", respType, "err", err)
		d.sendError(fd, respType, 500, "internal error")
		return
	}
	_ = d.transport.SendFrame(fd, respType, body)
}

// codeForError maps a service.ErrorCode onto the wire-level numeric code
// envelope.Code carries (§7: service codes mirror into the JSON response).
func codeForError(code service.ErrorCode) int {
	switch code {
	case service.CodeBadRequest:
		return 400
	case service.CodeUnauthorized:
		return 401
	case service.CodeForbidden:
		return 403
	case service.CodeNotFound:
		return 404
	case service.CodeConflict:
		return 409
	default:
		return 500
	}
}

// requireToken validates the token field extracted from payload against
// fd's authenticated identity, returning the resolved user id and whether
// the caller may proceed. adminOnly additionally requires the admin role.
func (d *Dispatcher) requireToken(fd int, payload []byte, respType uint16, adminOnly bool) (int64, bool) {
	token, err := jsonparser.GetString(payload, "token")
	if err != nil {
		d.sendError(fd, respType, 400, "missing token")
		return 0, false
	}

	userID, ok := d.registry.UserForFD(fd)
	if !ok {
		d.sendError(fd, respType, 401, "token invalid or expired")
		return 0, false
	}

	validity := d.sessions.Validate(userID, token)
	if validity == session.Invalid {
		d.sendError(fd, respType, 401, "token invalid or expired")
		return 0, false
	}
	if adminOnly && validity != session.ValidAdmin {
		d.sendError(fd, respType, 403, "admin required")
		return 0, false
	}
	return userID, true
}
