package service

import (
	"github.com/chatterbox/chatserver/internal/dal"
	"github.com/chatterbox/chatserver/internal/model"
)

const defaultHistoryLimit = 50

// MessageService implements send/history per §4.D. Content-length
// validation is deliberately NOT duplicated here — §4.D reserves that to
// the dispatcher, the hard boundary that owns the wire-level contract.
type MessageService struct {
	messages dal.MessageDAO
}

func NewMessageService(messages dal.MessageDAO) *MessageService {
	return &MessageService{messages: messages}
}

func (s *MessageService) SendMessage(userID, roomID int64, content, displayName string) Result[struct{}] {
	if err := s.messages.SendMessageToRoom(userID, roomID, content, displayName); err != nil {
		code, msg := translateDALError(err, "room not found")
		return Fail[struct{}](code, msg)
	}
	return Ok(struct{}{})
}

func (s *MessageService) GetMessageHistory(roomID int64, maxCount int) Result[[]model.Message] {
	if maxCount <= 0 {
		maxCount = defaultHistoryLimit
	}
	msgs, err := s.messages.GetRecentMessages(roomID, maxCount)
	if err != nil {
		code, msg := translateDALError(err, "room not found")
		return Fail[[]model.Message](code, msg)
	}
	return Ok(msgs)
}

func (s *MessageService) GetMessageHistoryByUser(userID, roomID int64, maxCount int) Result[[]model.Message] {
	if maxCount <= 0 {
		maxCount = defaultHistoryLimit
	}
	msgs, err := s.messages.GetRecentMessagesByUser(userID, roomID, maxCount)
	if err != nil {
		code, msg := translateDALError(err, "room not found")
		return Fail[[]model.Message](code, msg)
	}
	return Ok(msgs)
}
