package dispatcher

import (
	"encoding/json"
	"unicode/utf8"

	"github.com/chatterbox/chatserver/internal/model"
	"github.com/chatterbox/chatserver/internal/wire"
)

type sendMessageRequest struct {
	Token   string `json:"token"`
	Message string `json:"message"`
}

type chatMessagePush struct {
	DisplayName string `json:"display_name"`
	Message     string `json:"message"`
	Timestamp   int64  `json:"timestamp"`
}

// handleSendMessage implements §4.J's SEND_MESSAGE contract: the caller's
// current room is looked up server-side, display_name is rebuilt from the
// user record (never trusted from the client), and content length is
// validated here — the dispatcher is the hard boundary per §4.D.
func (d *Dispatcher) handleSendMessage(fd int, frame wire.Frame) {
	respType := wire.ResponseType(frame.Type)
	userID, ok := d.requireToken(fd, frame.Payload, respType, false)
	if !ok {
		return
	}

	var req sendMessageRequest
	if err := json.Unmarshal(frame.Payload, &req); err != nil {
		d.sendError(fd, respType, 400, "malformed request")
		return
	}
	if n := utf8.RuneCountInString(req.Message); n == 0 || n > model.MaxMessageContentLength {
		d.sendError(fd, respType, 400, "message length out of bounds")
		return
	}

	roomID, ok := d.registry.CurrentRoom(userID)
	if !ok {
		d.sendError(fd, respType, 400, "not in a room")
		return
	}

	userResult := d.users.GetUserByID(userID)
	if !userResult.OK() {
		d.sendError(fd, respType, codeForError(userResult.Code), userResult.Message)
		return
	}
	displayName := userResult.Value.FullName()

	sendResult := d.messages.SendMessage(userID, roomID, req.Message, displayName)
	if !sendResult.OK() {
		d.sendError(fd, respType, codeForError(sendResult.Code), sendResult.Message)
		return
	}

	d.sendSuccess(fd, respType, envelope{Success: true, Code: 200, Type: respType})
	d.broadcast.NotifyRoomUsers(roomID, wire.PushChatMessage, chatMessagePush{
		DisplayName: displayName,
		Message:     req.Message,
		Timestamp:   nowMillis(),
	})
}

type getMessageHistoryRequest struct {
	Token    string `json:"token"`
	MaxCount int    `json:"max_count"`
}

func (d *Dispatcher) handleGetMessageHistory(fd int, frame wire.Frame) {
	respType := wire.ResponseType(frame.Type)
	userID, ok := d.requireToken(fd, frame.Payload, respType, false)
	if !ok {
		return
	}

	var req getMessageHistoryRequest
	if err := json.Unmarshal(frame.Payload, &req); err != nil {
		d.sendError(fd, respType, 400, "malformed request")
		return
	}

	roomID, ok := d.registry.CurrentRoom(userID)
	if !ok {
		d.sendError(fd, respType, 400, "not in a room")
		return
	}

	result := d.messages.GetMessageHistory(roomID, req.MaxCount)
	if !result.OK() {
		d.sendError(fd, respType, codeForError(result.Code), result.Message)
		return
	}
	d.sendSuccess(fd, respType, struct {
		Success  bool             `json:"success"`
		Code     int              `json:"code"`
		Type     uint16           `json:"type"`
		Messages []model.Message `json:"messages"`
	}{true, 200, respType, result.Value})
}
