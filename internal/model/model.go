// Package model defines the core data types shared across the chat server:
// users, rooms, messages, and the in-memory runtime shapes layered on top of
// the relational rows.
package model

import "time"

// Role is a user's privilege level.
type Role int

const (
	RoleNormal Role = iota
	RoleAdmin
)

func (r Role) String() string {
	if r == RoleAdmin {
		return "admin"
	}
	return "normal"
}

// RoleChar returns the single-character tag minted into bearer tokens.
func (r Role) RoleChar() byte {
	if r == RoleAdmin {
		return 'a'
	}
	return 'n'
}

// User is a registered account row.
type User struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	Discriminator string    `json:"discriminator"` // zero-padded 4-digit string, e.g. "0042"
	Email         string    `json:"email"`
	Role          Role      `json:"-"`
	CreatedTime   time.Time `json:"created_time"`
}

// IsAdmin reports whether the user holds the admin role, the field name
// GET_USER_INFO responses expose in place of the internal Role enum.
func (u User) IsAdmin() bool { return u.Role == RoleAdmin }

// FullName is the "name#discriminator" display form.
func (u User) FullName() string {
	return u.Name + "#" + u.Discriminator
}

// Room is a persisted chat room row.
type Room struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatorID   int64     `json:"creator_id"`
	MaxUsers    int       `json:"max_users"` // 0 = unbounded
	IsActive    bool      `json:"is_active"`
	CreatedTime time.Time `json:"created_time"`
}

// RoomSummary is the client-facing projection of a room, including live
// membership count, used in LOGIN and FETCH_*_ROOMS responses.
type RoomSummary struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Description  string    `json:"description"`
	CreatorID    int64     `json:"creator_id"`
	MaxUsers     int       `json:"max_users"`
	CurrentUsers int       `json:"current_users"`
	CreatedTime  time.Time `json:"created_time"`
}

// Message is a persisted chat message row.
type Message struct {
	ID          int64     `json:"id"`
	UserID      int64     `json:"user_id"`
	RoomID      int64     `json:"room_id"`
	Content     string    `json:"content"`
	DisplayName string    `json:"display_name"` // snapshot of name#discriminator at send time
	SendTime    time.Time `json:"send_time"`
}

// MaxMessageContentLength is the hard cap on a single message's content, in
// runes. Longer content is rejected at the dispatcher boundary (§4.J).
const MaxMessageContentLength = 1000

// MaxDiscriminators is the number of distinct discriminators available per
// display name ("0000".."9999").
const MaxDiscriminators = 10000
