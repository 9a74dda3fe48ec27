package dal

import (
	"context"
	"database/sql"
	"time"

	"github.com/chatterbox/chatserver/internal/gateway"
	"github.com/chatterbox/chatserver/internal/model"
)

func (d *sqlDAL) CreateRoom(creatorID int64, name, description string, maxUsers int) (model.Room, error) {
	ctx := context.Background()
	h, err := d.acquire(ctx)
	if err != nil {
		return model.Room{}, err
	}
	defer h.Release()

	var room model.Room
	err = gateway.ExecuteTransaction(ctx, h, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx,
			`INSERT INTO rooms (name, description, creator_id, max_users, is_active, created_time)
			 VALUES ($1, $2, $3, $4, true, now()) RETURNING id, created_time`,
			name, description, creatorID, maxUsers)
		var id int64
		var created time.Time
		if err := row.Scan(&id, &created); err != nil {
			return err
		}
		room = model.Room{
			ID: id, Name: name, Description: description, CreatorID: creatorID,
			MaxUsers: maxUsers, IsActive: true, CreatedTime: created,
		}
		return nil
	})
	if err != nil {
		return model.Room{}, err
	}
	return room, nil
}

func (d *sqlDAL) DeleteRoom(roomID int64) error {
	return d.execNoRows(ctx0(), "DELETE FROM rooms WHERE id = $1", gateway.IntValue(roomID))
}

func (d *sqlDAL) SetRoomStatus(roomID int64, active bool) error {
	return d.execNoRows(ctx0(), "UPDATE rooms SET is_active = $1 WHERE id = $2", gateway.BoolValue(active), gateway.IntValue(roomID))
}

func (d *sqlDAL) SetRoomName(roomID int64, name string) error {
	return d.execNoRows(ctx0(), "UPDATE rooms SET name = $1 WHERE id = $2", gateway.StringValue(name), gateway.IntValue(roomID))
}

func (d *sqlDAL) SetRoomDescription(roomID int64, description string) error {
	return d.execNoRows(ctx0(), "UPDATE rooms SET description = $1 WHERE id = $2", gateway.StringValue(description), gateway.IntValue(roomID))
}

func (d *sqlDAL) SetRoomMaxUsers(roomID int64, maxUsers int) error {
	return d.execNoRows(ctx0(), "UPDATE rooms SET max_users = $1 WHERE id = $2", gateway.IntValue(int64(maxUsers)), gateway.IntValue(roomID))
}

func (d *sqlDAL) GetAllRooms() ([]model.Room, error) {
	return d.queryRooms(ctx0(), "SELECT id, name, description, creator_id, max_users, is_active, created_time FROM rooms ORDER BY id DESC")
}

func (d *sqlDAL) GetActiveRooms() ([]model.Room, error) {
	return d.queryRooms(ctx0(), "SELECT id, name, description, creator_id, max_users, is_active, created_time FROM rooms WHERE is_active = true ORDER BY id DESC")
}

func (d *sqlDAL) GetRoomByID(roomID int64) (model.Room, error) {
	ctx := ctx0()
	h, err := d.acquire(ctx)
	if err != nil {
		return model.Room{}, err
	}
	defer h.Release()

	result, err := gateway.Execute(ctx, h,
		"SELECT id, name, description, creator_id, max_users, is_active, created_time FROM rooms WHERE id = $1",
		true, gateway.IntValue(roomID))
	if err != nil {
		return model.Room{}, translateNotFound(err)
	}
	row, _ := result.Single()
	return roomFromRow(row), nil
}

// execNoRows runs a DML statement through the Query Gateway and reports
// ErrNotFound when it affected no rows (§4.B, §4.C).
func (d *sqlDAL) execNoRows(ctx context.Context, query string, args ...gateway.Value) error {
	h, err := d.acquire(ctx)
	if err != nil {
		return err
	}
	defer h.Release()

	result, err := gateway.Execute(ctx, h, query, false, args...)
	if err != nil {
		return err
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (d *sqlDAL) queryRooms(ctx context.Context, query string, args ...gateway.Value) ([]model.Room, error) {
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

	out := make([]model.Room, 0, len(result.Rows))
	for _, row := range result.Rows {
		out = append(out, roomFromRow(row))
	}
	return out, nil
}

func roomFromRow(row gateway.Row) model.Room {
	return model.Room{
		ID:          row["id"].Int(),
		Name:        row["name"].String(),
		Description: row["description"].String(),
		CreatorID:   row["creator_id"].Int(),
		MaxUsers:    int(row["max_users"].Int()),
		IsActive:    row["is_active"].Bool(),
		CreatedTime: row["created_time"].Time(),
	}
}

// translateNotFound maps the Query Gateway's NotFoundError onto the DAL's
// own sentinel so service-layer error translation stays in one place.
func translateNotFound(err error) error {
	if _, ok := err.(*gateway.NotFoundError); ok {
		return ErrNotFound
	}
	return err
}

func ctx0() context.Context { return context.Background() }
