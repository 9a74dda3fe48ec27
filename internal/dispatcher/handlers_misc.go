package dispatcher

import (
	"encoding/json"
	"time"

	"github.com/chatterbox/chatserver/internal/wire"
)

type getUserInfoRequest struct {
	Token  string `json:"token"`
	UserID int64  `json:"user_id"`
}

type publicUserPayload struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	Discriminator string `json:"discriminator"`
	IsAdmin       bool   `json:"is_admin"`
}

func (d *Dispatcher) handleGetUserInfo(fd int, frame wire.Frame) {
	respType := wire.ResponseType(frame.Type)
	if _, ok := d.requireToken(fd, frame.Payload, respType, false); !ok {
		return
	}

	var req getUserInfoRequest
	if err := json.Unmarshal(frame.Payload, &req); err != nil {
		d.sendError(fd, respType, 400, "malformed request")
		return
	}

	result := d.users.GetUserByID(req.UserID)
	if !result.OK() {
		d.sendError(fd, respType, codeForError(result.Code), result.Message)
		return
	}

	d.sendSuccess(fd, respType, struct {
		Success bool              `json:"success"`
		Code    int               `json:"code"`
		Type    uint16            `json:"type"`
		User    publicUserPayload `json:"user"`
	}{true, 200, respType, publicUserPayload{
		ID: result.Value.ID, Name: result.Value.Name,
		Discriminator: result.Value.Discriminator, IsAdmin: result.Value.IsAdmin(),
	}})
}

func nowMillis() int64 {
	return time.Now().UnixMilli()
}
