package dal

import (
	"context"

	"github.com/chatterbox/chatserver/internal/gateway"
	"github.com/chatterbox/chatserver/internal/model"
)

func (d *sqlDAL) SendMessageToRoom(userID, roomID int64, content, displayName string) error {
	ctx := ctx0()
	h, err := d.acquire(ctx)
	if err != nil {
		return err
	}
	defer h.Release()

	_, err = gateway.Execute(ctx, h,
		`INSERT INTO messages (user_id, room_id, content, display_name, send_time) VALUES ($1, $2, $3, $4, now())`,
		false, gateway.IntValue(userID), gateway.IntValue(roomID), gateway.StringValue(content), gateway.StringValue(displayName))
	return err
}

func (d *sqlDAL) GetRecentMessages(roomID int64, maxCount int) ([]model.Message, error) {
	if maxCount <= 0 {
		maxCount = defaultHistoryLimit
	}
	return d.queryMessages(ctx0(),
		`SELECT message_id, user_id, room_id, content, display_name, send_time
		 FROM messages WHERE room_id = $1 ORDER BY send_time DESC LIMIT $2`,
		gateway.IntValue(roomID), gateway.IntValue(int64(maxCount)))
}

func (d *sqlDAL) GetRecentMessagesByUser(userID, roomID int64, maxCount int) ([]model.Message, error) {
	if maxCount <= 0 {
		maxCount = defaultHistoryLimit
	}
	return d.queryMessages(ctx0(),
		`SELECT message_id, user_id, room_id, content, display_name, send_time
		 FROM messages WHERE room_id = $1 AND user_id = $2 ORDER BY send_time DESC LIMIT $3`,
		gateway.IntValue(roomID), gateway.IntValue(userID), gateway.IntValue(int64(maxCount)))
}

func (d *sqlDAL) queryMessages(ctx context.Context, query string, args ...gateway.Value) ([]model.Message, error) {
	h, err := d.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer h.Release()

	result, err := gateway.Execute(ctx, h, query, true, args...)
	if err != nil {
		if _, notFound := err.(*gateway.NotFoundError); notFound {
			return nil, nil
		}
		return nil, err
	}

	out := make([]model.Message, 0, len(result.Rows))
	for _, row := range result.Rows {
		out = append(out, model.Message{
			ID:          row["message_id"].Int(),
			UserID:      row["user_id"].Int(),
			RoomID:      row["room_id"].Int(),
			Content:     row["content"].String(),
			DisplayName: row["display_name"].String(),
			SendTime:    row["send_time"].Time(),
		})
	}
	return out, nil
}
