package dispatcher

import (
	"encoding/json"

	"github.com/chatterbox/chatserver/internal/model"
	"github.com/chatterbox/chatserver/internal/wire"
)

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

func (d *Dispatcher) handleRegister(fd int, frame wire.Frame) {
	respType := wire.ResponseType(frame.Type)
	var req registerRequest
	if err := json.Unmarshal(frame.Payload, &req); err != nil {
		d.sendError(fd, respType, 400, "malformed request")
		return
	}

	result := d.users.Register(req.Name, req.Email, req.Password)
	if !result.OK() {
		d.sendError(fd, respType, codeForError(result.Code), result.Message)
		return
	}
	d.sendSuccess(fd, respType, envelope{Success: true, Code: 200, Type: respType})
}

type changePasswordRequest struct {
	Email       string `json:"email"`
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

func (d *Dispatcher) handleChangePassword(fd int, frame wire.Frame) {
	respType := wire.ResponseType(frame.Type)
	var req changePasswordRequest
	if err := json.Unmarshal(frame.Payload, &req); err != nil {
		d.sendError(fd, respType, 400, "malformed request")
		return
	}

	result := d.users.ChangePassword(req.Email, req.OldPassword, req.NewPassword)
	if !result.OK() {
		d.sendError(fd, respType, codeForError(result.Code), result.Message)
		return
	}
	d.sendSuccess(fd, respType, envelope{Success: true, Code: 200, Type: respType})
}

type changeDisplayNameRequest struct {
	Token       string `json:"token"`
	DisplayName string `json:"display_name"`
}

func (d *Dispatcher) handleChangeDisplayName(fd int, frame wire.Frame) {
	respType := wire.ResponseType(frame.Type)
	userID, ok := d.requireToken(fd, frame.Payload, respType, false)
	if !ok {
		return
	}

	var req changeDisplayNameRequest
	if err := json.Unmarshal(frame.Payload, &req); err != nil {
		d.sendError(fd, respType, 400, "malformed request")
		return
	}

	result := d.users.ChangeDisplayName(userID, req.DisplayName)
	if !result.OK() {
		d.sendError(fd, respType, codeForError(result.Code), result.Message)
		return
	}
	d.sendSuccess(fd, respType, envelope{Success: true, Code: 200, Type: respType})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginUserPayload struct {
	ID            int64  `json:"id"`
	Discriminator string `json:"discriminator"`
	Name          string `json:"name"`
	Email         string `json:"email"`
	IsAdmin       bool   `json:"is_admin"`
	CreatedTime   string `json:"created_time"`
}

type loginResponse struct {
	Success       bool                `json:"success"`
	Code          int                 `json:"code"`
	Type          uint16              `json:"type"`
	Token         string              `json:"token"`
	User          loginUserPayload    `json:"user"`
	ActiveRooms   []model.RoomSummary `json:"active_rooms"`
	InactiveRooms []model.RoomSummary `json:"inactive_rooms,omitempty"`
}

// handleLogin implements §4.H's full login sequence: kick any previous
// session for the user before handing out the new token, then build the
// LOGIN payload per §4.J's exact shape.
func (d *Dispatcher) handleLogin(fd int, frame wire.Frame) {
	respType := wire.ResponseType(frame.Type)
	var req loginRequest
	if err := json.Unmarshal(frame.Payload, &req); err != nil {
		d.sendError(fd, respType, 400, "malformed request")
		return
	}

	result := d.users.Login(req.Email, req.Password)
	if !result.OK() {
		d.sendError(fd, respType, codeForError(result.Code), result.Message)
		return
	}
	user := result.Value.User

	prevFD, hadPrev := d.registry.BindIdentity(fd, user.ID)
	if hadPrev {
		d.transport.KickWithRetry(prevFD)
	}
	d.registry.RegisterConnection(fd)

	token := d.sessions.Login(user.ID, user.Role)

	resp := loginResponse{
		Success: true,
		Code:    200,
		Type:    respType,
		Token:   token,
		User: loginUserPayload{
			ID: user.ID, Discriminator: user.Discriminator, Name: user.Name,
			Email: user.Email, IsAdmin: result.Value.IsAdmin,
			CreatedTime: user.CreatedTime.Format("2006-01-02T15:04:05Z07:00"),
		},
		ActiveRooms: d.registry.ActiveRoomSnapshot(),
	}
	if result.Value.IsAdmin {
		resp.InactiveRooms = d.registry.InactiveRoomSnapshot()
	}
	d.sendSuccess(fd, respType, resp)
}

type logoutRequest struct {
	Token string `json:"token"`
}

// handleLogout implements §4.H's logout path: tear down the session and
// room membership, then close the caller's own socket (the original
// ChatRoomServer.cpp's logout handler kicks its own connection rather
// than leaving it open for reuse).
func (d *Dispatcher) handleLogout(fd int, frame wire.Frame) {
	respType := wire.ResponseType(frame.Type)
	userID, ok := d.requireToken(fd, frame.Payload, respType, false)
	if !ok {
		return
	}

	d.sessions.Logout(userID)
	if roomID, remaining, inRoom := d.registry.Leave(userID); inRoom {
		d.broadcast.NotifyUsers(remaining, wire.PushUserLeave, userLeavePayload{UserID: userID, RoomID: roomID})
	}
	d.registry.ClearIdentity(fd)
	d.registry.UnregisterConnection(fd)
	d.sendSuccess(fd, respType, envelope{Success: true, Code: 200, Type: respType})
	d.transport.CloseConnection(fd)
}
