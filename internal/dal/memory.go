package dal

import (
	"sort"
	"sync"
	"time"

	"github.com/chatterbox/chatserver/internal/authcrypto"
	"github.com/chatterbox/chatserver/internal/model"
)

// MemoryDAL is a purely in-memory DAL implementation for tests (§9: "a
// concrete DAL backed by the relational store plus a purely in-memory
// implementation for tests"). It is NOT sqlite-backed: the point is to
// exercise service and dispatcher logic without a database at all, the way
// the teacher's own pool/router tests construct fakes in-process rather than
// dialing real Postgres/MySQL.
type MemoryDAL struct {
	mu        sync.Mutex
	nextUser  int64
	nextRoom  int64
	nextMsg   int64
	users     map[int64]memUser
	rooms     map[int64]model.Room
	messages  []model.Message
}

type memUser struct {
	model.User
	hash []byte
}

// NewMemoryDAL returns an empty in-memory DAL.
func NewMemoryDAL() *MemoryDAL {
	return &MemoryDAL{
		users: make(map[int64]memUser),
		rooms: make(map[int64]model.Room),
	}
}

func (m *MemoryDAL) takenDiscriminators(name string) map[string]bool {
	taken := make(map[string]bool)
	for _, u := range m.users {
		if u.Name == name {
			taken[u.Discriminator] = true
		}
	}
	return taken
}

func (m *MemoryDAL) CreateUser(name, email string, passwordHash []byte, role model.Role) (model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.users {
		if u.Email == email {
			return model.User{}, ErrEmailTaken
		}
	}

	disc, err := assignDiscriminator(m.takenDiscriminators(name))
	if err != nil {
		return model.User{}, err
	}

	m.nextUser++
	user := model.User{
		ID: m.nextUser, Name: name, Discriminator: disc, Email: email,
		Role: role, CreatedTime: time.Now(),
	}
	m.users[user.ID] = memUser{User: user, hash: passwordHash}
	return user, nil
}

func (m *MemoryDAL) Authenticate(email, password string) (model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.users {
		if u.Email == email {
			if !authcrypto.Verify(password, u.hash) {
				return model.User{}, ErrWrongPassword
			}
			return u.User, nil
		}
	}
	return model.User{}, ErrNotFound
}

func (m *MemoryDAL) ChangePassword(email, oldPassword, newPassword string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, u := range m.users {
		if u.Email == email {
			if !authcrypto.Verify(oldPassword, u.hash) {
				return ErrWrongPassword
			}
			newHash, err := authcrypto.Hash(newPassword)
			if err != nil {
				return err
			}
			u.hash = newHash
			m.users[id] = u
			return nil
		}
	}
	return ErrNotFound
}

func (m *MemoryDAL) ChangeDisplayName(userID int64, name string) (model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[userID]
	if !ok {
		return model.User{}, ErrNotFound
	}

	taken := m.takenDiscriminators(name)
	disc, err := assignDiscriminator(taken)
	if err != nil {
		return model.User{}, err
	}

	u.Name = name
	u.Discriminator = disc
	m.users[userID] = u
	return u.User, nil
}

func (m *MemoryDAL) GetUserByID(userID int64) (model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return model.User{}, ErrNotFound
	}
	return u.User, nil
}

func (m *MemoryDAL) GetUserByEmail(email string) (model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			return u.User, nil
		}
	}
	return model.User{}, ErrNotFound
}

func (m *MemoryDAL) GetUserByFullName(name, discriminator string) (model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Name == name && u.Discriminator == discriminator {
			return u.User, nil
		}
	}
	return model.User{}, ErrNotFound
}

func (m *MemoryDAL) CreateRoom(creatorID int64, name, description string, maxUsers int) (model.Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextRoom++
	room := model.Room{
		ID: m.nextRoom, Name: name, Description: description, CreatorID: creatorID,
		MaxUsers: maxUsers, IsActive: true, CreatedTime: time.Now(),
	}
	m.rooms[room.ID] = room
	return room, nil
}

func (m *MemoryDAL) DeleteRoom(roomID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rooms[roomID]; !ok {
		return ErrNotFound
	}
	delete(m.rooms, roomID)
	return nil
}

func (m *MemoryDAL) SetRoomStatus(roomID int64, active bool) error {
	return m.mutateRoom(roomID, func(r *model.Room) { r.IsActive = active })
}

func (m *MemoryDAL) SetRoomName(roomID int64, name string) error {
	return m.mutateRoom(roomID, func(r *model.Room) { r.Name = name })
}

func (m *MemoryDAL) SetRoomDescription(roomID int64, description string) error {
	return m.mutateRoom(roomID, func(r *model.Room) { r.Description = description })
}

func (m *MemoryDAL) SetRoomMaxUsers(roomID int64, maxUsers int) error {
	return m.mutateRoom(roomID, func(r *model.Room) { r.MaxUsers = maxUsers })
}

func (m *MemoryDAL) mutateRoom(roomID int64, fn func(*model.Room)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rooms[roomID]
	if !ok {
		return ErrNotFound
	}
	fn(&r)
	m.rooms[roomID] = r
	return nil
}

func (m *MemoryDAL) GetAllRooms() ([]model.Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Room, 0, len(m.rooms))
	for _, r := range m.rooms {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (m *MemoryDAL) GetActiveRooms() ([]model.Room, error) {
	all, _ := m.GetAllRooms()
	out := all[:0:0]
	for _, r := range all {
		if r.IsActive {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *MemoryDAL) GetRoomByID(roomID int64) (model.Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rooms[roomID]
	if !ok {
		return model.Room{}, ErrNotFound
	}
	return r, nil
}

func (m *MemoryDAL) SendMessageToRoom(userID, roomID int64, content, displayName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextMsg++
	m.messages = append(m.messages, model.Message{
		ID: m.nextMsg, UserID: userID, RoomID: roomID, Content: content,
		DisplayName: displayName, SendTime: time.Now(),
	})
	return nil
}

func (m *MemoryDAL) GetRecentMessages(roomID int64, maxCount int) ([]model.Message, error) {
	return m.filterMessages(roomID, 0, maxCount, false)
}

func (m *MemoryDAL) GetRecentMessagesByUser(userID, roomID int64, maxCount int) ([]model.Message, error) {
	return m.filterMessages(roomID, userID, maxCount, true)
}

func (m *MemoryDAL) filterMessages(roomID, userID int64, maxCount int, filterUser bool) ([]model.Message, error) {
	if maxCount <= 0 {
		maxCount = defaultHistoryLimit
	}

	m.mu.Lock()
	var matched []model.Message
	for _, msg := range m.messages {
		if msg.RoomID != roomID {
			continue
		}
		if filterUser && msg.UserID != userID {
			continue
		}
		matched = append(matched, msg)
	}
	m.mu.Unlock()

	sort.Slice(matched, func(i, j int) bool { return matched[i].SendTime.After(matched[j].SendTime) })
	if len(matched) > maxCount {
		matched = matched[:maxCount]
	}
	return matched, nil
}
