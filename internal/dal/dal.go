// Package dal implements the typed data-access layer (§4.C): users, rooms
// and messages on top of the Query Gateway, plus discriminator assignment.
// Grounded on the teacher's DAO-behind-an-interface shape (internal/pool's
// Manager owning typed operations over raw connections); the relational
// shape itself is new since the teacher never models application tables.
package dal

import (
	"errors"

	"github.com/chatterbox/chatserver/internal/model"
)

// Sub-codes distinguish the flavours of conflict/not-found DAL operations
// can produce, since "NotFound" alone doesn't tell a caller whether an
// email or a name+discriminator search failed (§4.C, §7).
var (
	ErrEmailTaken      = errors.New("dal: email already registered")
	ErrNameExhausted   = errors.New("dal: no discriminators left for name")
	ErrNotFound        = errors.New("dal: no matching row")
	ErrWrongPassword   = errors.New("dal: password does not verify")
)

// UserDAO is the users capability set (§4.C, §9: "interface + one impl").
type UserDAO interface {
	CreateUser(name, email string, passwordHash []byte, role model.Role) (model.User, error)
	Authenticate(email, password string) (model.User, error)
	ChangePassword(email, oldPassword, newPassword string) error
	ChangeDisplayName(userID int64, name string) (model.User, error)
	GetUserByID(userID int64) (model.User, error)
	GetUserByEmail(email string) (model.User, error)
	GetUserByFullName(name, discriminator string) (model.User, error)
}

// RoomDAO is the rooms capability set.
type RoomDAO interface {
	CreateRoom(creatorID int64, name, description string, maxUsers int) (model.Room, error)
	DeleteRoom(roomID int64) error
	SetRoomStatus(roomID int64, active bool) error
	SetRoomName(roomID int64, name string) error
	SetRoomDescription(roomID int64, description string) error
	SetRoomMaxUsers(roomID int64, maxUsers int) error
	GetAllRooms() ([]model.Room, error)
	GetActiveRooms() ([]model.Room, error)
	GetRoomByID(roomID int64) (model.Room, error)
}

// MessageDAO is the messages capability set.
type MessageDAO interface {
	SendMessageToRoom(userID, roomID int64, content, displayName string) error
	GetRecentMessages(roomID int64, maxCount int) ([]model.Message, error)
	GetRecentMessagesByUser(userID, roomID int64, maxCount int) ([]model.Message, error)
}

// DAL bundles the three capability sets behind one handle, mirroring the
// teacher's single Manager that owns every tenant-facing operation.
type DAL interface {
	UserDAO
	RoomDAO
	MessageDAO
}

const defaultHistoryLimit = 50
