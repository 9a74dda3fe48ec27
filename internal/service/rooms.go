package service

import (
	"github.com/chatterbox/chatserver/internal/dal"
	"github.com/chatterbox/chatserver/internal/model"
	"github.com/kat-co/vala"
)

// RoomService implements the room CRUD passthroughs of §4.D. Creation
// validates required fields; every other operation passes straight
// through to the DAL, translating its error sub-codes.
type RoomService struct {
	rooms dal.RoomDAO
}

func NewRoomService(rooms dal.RoomDAO) *RoomService {
	return &RoomService{rooms: rooms}
}

func (s *RoomService) CreateRoom(creatorID int64, name, description string, maxUsers int) Result[model.Room] {
	if err := vala.BeginValidation().Validate(
		vala.StringNotEmpty(name, "name"),
		vala.GreaterThan(maxUsers, -1, "max_users"),
	).Check(); err != nil {
		return Fail[model.Room](CodeBadRequest, err.Error())
	}

	room, err := s.rooms.CreateRoom(creatorID, name, description, maxUsers)
	if err != nil {
		code, msg := translateDALError(err, "room not found")
		return Fail[model.Room](code, msg)
	}
	return Ok(room)
}

func (s *RoomService) DeleteRoom(roomID int64) Result[struct{}] {
	if err := s.rooms.DeleteRoom(roomID); err != nil {
		code, msg := translateDALError(err, "room not found")
		return Fail[struct{}](code, msg)
	}
	return Ok(struct{}{})
}

func (s *RoomService) SetRoomStatus(roomID int64, active bool) Result[struct{}] {
	if err := s.rooms.SetRoomStatus(roomID, active); err != nil {
		code, msg := translateDALError(err, "room not found")
		return Fail[struct{}](code, msg)
	}
	return Ok(struct{}{})
}

func (s *RoomService) SetRoomName(roomID int64, name string) Result[struct{}] {
	if err := vala.BeginValidation().Validate(vala.StringNotEmpty(name, "name")).Check(); err != nil {
		return Fail[struct{}](CodeBadRequest, err.Error())
	}
	if err := s.rooms.SetRoomName(roomID, name); err != nil {
		code, msg := translateDALError(err, "room not found")
		return Fail[struct{}](code, msg)
	}
	return Ok(struct{}{})
}

func (s *RoomService) SetRoomDescription(roomID int64, description string) Result[struct{}] {
	if err := s.rooms.SetRoomDescription(roomID, description); err != nil {
		code, msg := translateDALError(err, "room not found")
		return Fail[struct{}](code, msg)
	}
	return Ok(struct{}{})
}

func (s *RoomService) SetRoomMaxUsers(roomID int64, maxUsers int) Result[struct{}] {
	if maxUsers < 0 {
		return Fail[struct{}](CodeBadRequest, "max_users must be >= 0")
	}
	if err := s.rooms.SetRoomMaxUsers(roomID, maxUsers); err != nil {
		code, msg := translateDALError(err, "room not found")
		return Fail[struct{}](code, msg)
	}
	return Ok(struct{}{})
}

func (s *RoomService) GetAllRooms() Result[[]model.Room] {
	rooms, err := s.rooms.GetAllRooms()
	if err != nil {
		code, msg := translateDALError(err, "room not found")
		return Fail[[]model.Room](code, msg)
	}
	return Ok(rooms)
}

func (s *RoomService) GetActiveRooms() Result[[]model.Room] {
	rooms, err := s.rooms.GetActiveRooms()
	if err != nil {
		code, msg := translateDALError(err, "room not found")
		return Fail[[]model.Room](code, msg)
	}
	return Ok(rooms)
}

func (s *RoomService) GetRoomInfo(roomID int64) Result[model.Room] {
	room, err := s.rooms.GetRoomByID(roomID)
	if err != nil {
		code, msg := translateDALError(err, "room not found")
		return Fail[model.Room](code, msg)
	}
	return Ok(room)
}
