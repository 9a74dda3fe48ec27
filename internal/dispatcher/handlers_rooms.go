package dispatcher

import (
	"encoding/json"

	"github.com/chatterbox/chatserver/internal/model"
	"github.com/chatterbox/chatserver/internal/wire"
)

func (d *Dispatcher) handleFetchActiveRooms(fd int, frame wire.Frame) {
	respType := wire.ResponseType(frame.Type)
	if _, ok := d.requireToken(fd, frame.Payload, respType, false); !ok {
		return
	}
	d.sendSuccess(fd, respType, struct {
		Success bool                `json:"success"`
		Code    int                 `json:"code"`
		Type    uint16              `json:"type"`
		Rooms   []model.RoomSummary `json:"rooms"`
	}{true, 200, respType, d.registry.ActiveRoomSnapshot()})
}

func (d *Dispatcher) handleFetchInactiveRooms(fd int, frame wire.Frame) {
	respType := wire.ResponseType(frame.Type)
	if _, ok := d.requireToken(fd, frame.Payload, respType, true); !ok {
		return
	}
	d.sendSuccess(fd, respType, struct {
		Success bool                `json:"success"`
		Code    int                 `json:"code"`
		Type    uint16              `json:"type"`
		Rooms   []model.RoomSummary `json:"rooms"`
	}{true, 200, respType, d.registry.InactiveRoomSnapshot()})
}

type createRoomRequest struct {
	Token       string `json:"token"`
	Name        string `json:"name"`
	Description string `json:"description"`
	MaxUsers    int    `json:"max_users"`
}

func (d *Dispatcher) handleCreateRoom(fd int, frame wire.Frame) {
	respType := wire.ResponseType(frame.Type)
	userID, ok := d.requireToken(fd, frame.Payload, respType, true)
	if !ok {
		return
	}

	var req createRoomRequest
	if err := json.Unmarshal(frame.Payload, &req); err != nil {
		d.sendError(fd, respType, 400, "malformed request")
		return
	}

	result := d.rooms.CreateRoom(userID, req.Name, req.Description, req.MaxUsers)
	if !result.OK() {
		d.sendError(fd, respType, codeForError(result.Code), result.Message)
		return
	}
	d.registry.LoadRoom(result.Value)
	d.sendSuccess(fd, respType, struct {
		Success bool       `json:"success"`
		Code    int        `json:"code"`
		Type    uint16     `json:"type"`
		Room    model.Room `json:"room"`
	}{true, 200, respType, result.Value})
}

type roomIDRequest struct {
	Token  string `json:"token"`
	RoomID int64  `json:"room_id"`
}

func (d *Dispatcher) handleDeleteRoom(fd int, frame wire.Frame) {
	respType := wire.ResponseType(frame.Type)
	if _, ok := d.requireToken(fd, frame.Payload, respType, true); !ok {
		return
	}

	var req roomIDRequest
	if err := json.Unmarshal(frame.Payload, &req); err != nil {
		d.sendError(fd, respType, 400, "malformed request")
		return
	}

	result := d.rooms.DeleteRoom(req.RoomID)
	if !result.OK() {
		d.sendError(fd, respType, codeForError(result.Code), result.Message)
		return
	}

	evicted, wasActive := d.registry.Deactivate(req.RoomID)
	d.registry.RemoveRoom(req.RoomID)

	d.sendSuccess(fd, respType, envelope{Success: true, Code: 200, Type: respType})
	if wasActive && len(evicted) > 0 {
		d.broadcast.NotifyUsers(evicted, wire.PushRoomStatusChange, roomStatusPayload{RoomID: req.RoomID, IsActive: false})
	}
}

type setRoomNameRequest struct {
	Token  string `json:"token"`
	RoomID int64  `json:"room_id"`
	Name   string `json:"name"`
}

func (d *Dispatcher) handleSetRoomName(fd int, frame wire.Frame) {
	respType := wire.ResponseType(frame.Type)
	if _, ok := d.requireToken(fd, frame.Payload, respType, true); !ok {
		return
	}

	var req setRoomNameRequest
	if err := json.Unmarshal(frame.Payload, &req); err != nil {
		d.sendError(fd, respType, 400, "malformed request")
		return
	}

	result := d.rooms.SetRoomName(req.RoomID, req.Name)
	if !result.OK() {
		d.sendError(fd, respType, codeForError(result.Code), result.Message)
		return
	}
	d.registry.UpdateRoomName(req.RoomID, req.Name)
	d.sendSuccess(fd, respType, envelope{Success: true, Code: 200, Type: respType})
	d.broadcast.NotifyRoomUsers(req.RoomID, wire.PushRoomNameUpdate, roomNamePayload{RoomID: req.RoomID, Name: req.Name})
}

type setRoomDescriptionRequest struct {
	Token       string `json:"token"`
	RoomID      int64  `json:"room_id"`
	Description string `json:"description"`
}

func (d *Dispatcher) handleSetRoomDescription(fd int, frame wire.Frame) {
	respType := wire.ResponseType(frame.Type)
	if _, ok := d.requireToken(fd, frame.Payload, respType, true); !ok {
		return
	}

	var req setRoomDescriptionRequest
	if err := json.Unmarshal(frame.Payload, &req); err != nil {
		d.sendError(fd, respType, 400, "malformed request")
		return
	}

	result := d.rooms.SetRoomDescription(req.RoomID, req.Description)
	if !result.OK() {
		d.sendError(fd, respType, codeForError(result.Code), result.Message)
		return
	}
	d.registry.UpdateRoomDescription(req.RoomID, req.Description)
	d.sendSuccess(fd, respType, envelope{Success: true, Code: 200, Type: respType})
	d.broadcast.NotifyRoomUsers(req.RoomID, wire.PushRoomDescriptionUpdate, roomDescriptionPayload{RoomID: req.RoomID, Description: req.Description})
}

type setRoomMaxUsersRequest struct {
	Token    string `json:"token"`
	RoomID   int64  `json:"room_id"`
	MaxUsers int    `json:"max_users"`
}

func (d *Dispatcher) handleSetRoomMaxUsers(fd int, frame wire.Frame) {
	respType := wire.ResponseType(frame.Type)
	if _, ok := d.requireToken(fd, frame.Payload, respType, true); !ok {
		return
	}

	var req setRoomMaxUsersRequest
	if err := json.Unmarshal(frame.Payload, &req); err != nil {
		d.sendError(fd, respType, 400, "malformed request")
		return
	}

	result := d.rooms.SetRoomMaxUsers(req.RoomID, req.MaxUsers)
	if !result.OK() {
		d.sendError(fd, respType, codeForError(result.Code), result.Message)
		return
	}
	d.registry.UpdateRoomMaxUsers(req.RoomID, req.MaxUsers)
	d.sendSuccess(fd, respType, envelope{Success: true, Code: 200, Type: respType})
	d.broadcast.NotifyRoomUsers(req.RoomID, wire.PushRoomMaxUsersUpdate, roomMaxUsersPayload{RoomID: req.RoomID, MaxUsers: req.MaxUsers})
}

type setRoomStatusRequest struct {
	Token    string `json:"token"`
	RoomID   int64  `json:"room_id"`
	IsActive bool   `json:"is_active"`
}

func (d *Dispatcher) handleSetRoomStatus(fd int, frame wire.Frame) {
	respType := wire.ResponseType(frame.Type)
	if _, ok := d.requireToken(fd, frame.Payload, respType, true); !ok {
		return
	}

	var req setRoomStatusRequest
	if err := json.Unmarshal(frame.Payload, &req); err != nil {
		d.sendError(fd, respType, 400, "malformed request")
		return
	}

	result := d.rooms.SetRoomStatus(req.RoomID, req.IsActive)
	if !result.OK() {
		d.sendError(fd, respType, codeForError(result.Code), result.Message)
		return
	}

	var evicted []int64
	if req.IsActive {
		d.registry.Activate(req.RoomID)
	} else {
		evicted, _ = d.registry.Deactivate(req.RoomID)
	}

	d.sendSuccess(fd, respType, envelope{Success: true, Code: 200, Type: respType})
	if !req.IsActive && len(evicted) > 0 {
		d.broadcast.NotifyUsers(evicted, wire.PushRoomStatusChange, roomStatusPayload{RoomID: req.RoomID, IsActive: false})
	}
}

func (d *Dispatcher) handleJoinRoom(fd int, frame wire.Frame) {
	respType := wire.ResponseType(frame.Type)
	userID, ok := d.requireToken(fd, frame.Payload, respType, false)
	if !ok {
		return
	}

	var req roomIDRequest
	if err := json.Unmarshal(frame.Payload, &req); err != nil {
		d.sendError(fd, respType, 400, "malformed request")
		return
	}

	members, err := d.registry.Join(userID, req.RoomID)
	if err != nil {
		d.sendError(fd, respType, 400, err.Error())
		return
	}
	d.sendSuccess(fd, respType, envelope{Success: true, Code: 200, Type: respType})
	d.broadcast.NotifyUsers(members, wire.PushUserJoin, userJoinPayload{UserID: userID, RoomID: req.RoomID})
}

func (d *Dispatcher) handleLeaveRoom(fd int, frame wire.Frame) {
	respType := wire.ResponseType(frame.Type)
	userID, ok := d.requireToken(fd, frame.Payload, respType, false)
	if !ok {
		return
	}

	roomID, remaining, inRoom := d.registry.Leave(userID)
	if !inRoom {
		d.sendError(fd, respType, 400, "not in a room")
		return
	}
	d.sendSuccess(fd, respType, envelope{Success: true, Code: 200, Type: respType})
	d.broadcast.NotifyUsers(remaining, wire.PushUserLeave, userLeavePayload{UserID: userID, RoomID: roomID})
}

// handleGetRoomMembers is the supplemented GET_ROOM_MEMBERS operation
// (SPEC_FULL.md SUPPLEMENTED FEATURES, request code 21 / response 1021).
func (d *Dispatcher) handleGetRoomMembers(fd int, frame wire.Frame) {
	respType := wire.ResponseType(frame.Type)
	if _, ok := d.requireToken(fd, frame.Payload, respType, false); !ok {
		return
	}

	var req roomIDRequest
	if err := json.Unmarshal(frame.Payload, &req); err != nil {
		d.sendError(fd, respType, 400, "malformed request")
		return
	}

	memberIDs, ok := d.registry.MemberSnapshot(req.RoomID)
	if !ok {
		d.sendError(fd, respType, 404, "room not found")
		return
	}

	members := make([]publicUserPayload, 0, len(memberIDs))
	for _, id := range memberIDs {
		if u := d.users.GetUserByID(id); u.OK() {
			members = append(members, publicUserPayload{
				ID: u.Value.ID, Name: u.Value.Name,
				Discriminator: u.Value.Discriminator, IsAdmin: u.Value.IsAdmin(),
			})
		}
	}
	d.sendSuccess(fd, respType, struct {
		Success bool                `json:"success"`
		Code    int                 `json:"code"`
		Type    uint16              `json:"type"`
		Members []publicUserPayload `json:"members"`
	}{true, 200, respType, members})
}

type roomStatusPayload struct {
	RoomID   int64 `json:"room_id"`
	IsActive bool  `json:"is_active"`
}

type roomNamePayload struct {
	RoomID int64  `json:"room_id"`
	Name   string `json:"name"`
}

type roomDescriptionPayload struct {
	RoomID      int64  `json:"room_id"`
	Description string `json:"description"`
}

type roomMaxUsersPayload struct {
	RoomID   int64 `json:"room_id"`
	MaxUsers int   `json:"max_users"`
}

type userJoinPayload struct {
	UserID int64 `json:"user_id"`
	RoomID int64 `json:"room_id"`
}
