package dispatcher

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/chatterbox/chatserver/internal/authcrypto"
	"github.com/chatterbox/chatserver/internal/broadcast"
	"github.com/chatterbox/chatserver/internal/dal"
	"github.com/chatterbox/chatserver/internal/model"
	"github.com/chatterbox/chatserver/internal/registry"
	"github.com/chatterbox/chatserver/internal/service"
	"github.com/chatterbox/chatserver/internal/session"
	"github.com/chatterbox/chatserver/internal/wire"
)

type fakeTransport struct {
	mu     sync.Mutex
	frames map[int][]wire.Frame
	kicked []int
	closed []int
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{frames: make(map[int][]wire.Frame)}
}

func (f *fakeTransport) SendFrame(fd int, msgType uint16, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.frames[fd] = append(f.frames[fd], wire.Frame{Type: msgType, Payload: payload})
	return nil
}

func (f *fakeTransport) KickWithRetry(fd int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.kicked = append(f.kicked, fd)
}

func (f *fakeTransport) CloseConnection(fd int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = append(f.closed, fd)
}

func (f *fakeTransport) last(fd int) wire.Frame {
	f.mu.Lock()
	defer f.mu.Unlock()
	frames := f.frames[fd]
	if len(frames) == 0 {
		return wire.Frame{}
	}
	return frames[len(frames)-1]
}

// lastOfType returns the most recent frame of msgType sent to fd, skipping
// any push frames queued after it.
func (f *fakeTransport) lastOfType(fd int, msgType uint16) wire.Frame {
	f.mu.Lock()
	defer f.mu.Unlock()
	frames := f.frames[fd]
	for i := len(frames) - 1; i >= 0; i-- {
		if frames[i].Type == msgType {
			return frames[i]
		}
	}
	return wire.Frame{}
}

func newTestDispatcher() (*Dispatcher, *fakeTransport, *registry.Registry) {
	d, transport, reg, _ := newTestDispatcherWithStore()
	return d, transport, reg
}

func newTestDispatcherWithStore() (*Dispatcher, *fakeTransport, *registry.Registry, *dal.MemoryDAL) {
	store := dal.NewMemoryDAL()
	reg := registry.New()
	sessions := session.NewStore(30 * time.Minute)
	users := service.NewUserService(store)
	rooms := service.NewRoomService(store)
	messages := service.NewMessageService(store)
	transport := newFakeTransport()
	bc := broadcast.New(reg, transport)
	d := New(reg, sessions, users, rooms, messages, bc, transport)
	return d, transport, reg, store
}

func frame(t *testing.T, msgType uint16, body any) wire.Frame {
	t.Helper()
	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	return wire.Frame{Type: msgType, Payload: payload}
}

func decodeEnvelope(t *testing.T, f wire.Frame) envelope {
	t.Helper()
	var e envelope
	if err := json.Unmarshal(f.Payload, &e); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	return e
}

func registerAndLogin(t *testing.T, d *Dispatcher, transport *fakeTransport, fd int, email, password, name string) loginResponse {
	t.Helper()
	d.HandleRequest(fd, frame(t, wire.TypeRegister, registerRequest{Email: email, Password: password, Name: name}))
	if e := decodeEnvelope(t, transport.last(fd)); !e.Success {
		t.Fatalf("register failed: %+v", e)
	}

	d.HandleRequest(fd, frame(t, wire.TypeLogin, loginRequest{Email: email, Password: password}))
	var resp loginResponse
	if err := json.Unmarshal(transport.last(fd).Payload, &resp); err != nil {
		t.Fatalf("decode login response: %v", err)
	}
	if !resp.Success {
		t.Fatalf("login failed: %+v", resp)
	}
	return resp
}

// createAdminAndLogin stores an admin account directly in the DAL (REGISTER
// always creates a normal user) and logs it in on fd.
func createAdminAndLogin(t *testing.T, d *Dispatcher, store *dal.MemoryDAL, transport *fakeTransport, fd int, email, password, name string) loginResponse {
	t.Helper()
	hash, err := authcrypto.Hash(password)
	if err != nil {
		t.Fatalf("hash admin password: %v", err)
	}
	if _, err := store.CreateUser(name, email, hash, model.RoleAdmin); err != nil {
		t.Fatalf("create admin: %v", err)
	}

	d.HandleRequest(fd, frame(t, wire.TypeLogin, loginRequest{Email: email, Password: password}))
	var resp loginResponse
	if err := json.Unmarshal(transport.last(fd).Payload, &resp); err != nil {
		t.Fatalf("decode login response: %v", err)
	}
	if !resp.Success {
		t.Fatalf("admin login failed: %+v", resp)
	}
	return resp
}

func TestRegisterLoginSendMessageBroadcast(t *testing.T) {
	d, transport, reg, store := newTestDispatcherWithStore()

	admin := createAdminAndLogin(t, d, store, transport, 1, "admin@x.test", "adminpw1", "admin")
	d.HandleRequest(1, frame(t, wire.TypeCreateRoom, createRoomRequest{Token: admin.Token, Name: "general", MaxUsers: 10}))
	if e := decodeEnvelope(t, transport.last(1)); !e.Success {
		t.Fatalf("create room failed: %+v", e)
	}
	var createResp struct {
		Room struct{ ID int64 `json:"id"` } `json:"room"`
	}
	json.Unmarshal(transport.last(1).Payload, &createResp)
	roomID := createResp.Room.ID

	alice := registerAndLogin(t, d, transport, 2, "alice@x.test", "alicepw1", "alice")
	bob := registerAndLogin(t, d, transport, 3, "bob@x.test", "bobpw123", "bob")

	d.HandleRequest(2, frame(t, wire.TypeJoinRoom, roomIDRequest{Token: alice.Token, RoomID: roomID}))
	if e := decodeEnvelope(t, transport.lastOfType(2, wire.ResponseType(wire.TypeJoinRoom))); !e.Success {
		t.Fatalf("alice join failed: %+v", e)
	}
	d.HandleRequest(3, frame(t, wire.TypeJoinRoom, roomIDRequest{Token: bob.Token, RoomID: roomID}))
	if e := decodeEnvelope(t, transport.lastOfType(3, wire.ResponseType(wire.TypeJoinRoom))); !e.Success {
		t.Fatalf("bob join failed: %+v", e)
	}

	d.HandleRequest(2, frame(t, wire.TypeSendMessage, sendMessageRequest{Token: alice.Token, Message: "hello"}))
	if e := decodeEnvelope(t, transport.lastOfType(2, wire.ResponseType(wire.TypeSendMessage))); !e.Success {
		t.Fatalf("send message failed: %+v", e)
	}

	aliceFrames := transport.frames[2]
	bobFrames := transport.frames[3]
	if aliceFrames[len(aliceFrames)-1].Type != wire.PushChatMessage {
		t.Errorf("alice's last frame = %d, want PushChatMessage", aliceFrames[len(aliceFrames)-1].Type)
	}
	if bobFrames[len(bobFrames)-1].Type != wire.PushChatMessage {
		t.Errorf("bob's last frame = %d, want PushChatMessage", bobFrames[len(bobFrames)-1].Type)
	}

	if _, ok := reg.CurrentRoom(alice.User.ID); !ok {
		t.Error("alice should be registered as current-room member after join")
	}
}

func TestFetchInactiveRoomsRequiresAdmin(t *testing.T) {
	d, transport, _ := newTestDispatcher()
	normal := registerAndLogin(t, d, transport, 1, "u@x.test", "password1", "u")

	d.HandleRequest(1, frame(t, wire.TypeFetchInactiveRooms, logoutRequest{Token: normal.Token}))
	e := decodeEnvelope(t, transport.last(1))
	if e.Success || e.Code != 403 {
		t.Errorf("FETCH_INACTIVE_ROOMS with normal token = %+v, want 403 forbidden", e)
	}
}

func TestLoginKicksPreviousConnection(t *testing.T) {
	d, transport, _ := newTestDispatcher()
	d.HandleRequest(1, frame(t, wire.TypeRegister, registerRequest{Email: "a@x.test", Password: "password1", Name: "a"}))

	d.HandleRequest(1, frame(t, wire.TypeLogin, loginRequest{Email: "a@x.test", Password: "password1"}))
	d.HandleRequest(2, frame(t, wire.TypeLogin, loginRequest{Email: "a@x.test", Password: "password1"}))

	if len(transport.kicked) != 1 || transport.kicked[0] != 1 {
		t.Errorf("kicked = %v, want [1]", transport.kicked)
	}
}

func TestSendMessageRejectsOversizeContent(t *testing.T) {
	d, transport, _ := newTestDispatcher()
	user := registerAndLogin(t, d, transport, 1, "a@x.test", "password1", "a")

	oversized := make([]byte, 1001)
	for i := range oversized {
		oversized[i] = 'x'
	}
	d.HandleRequest(1, frame(t, wire.TypeSendMessage, sendMessageRequest{Token: user.Token, Message: string(oversized)}))

	e := decodeEnvelope(t, transport.last(1))
	if e.Success || e.Code != 400 {
		t.Errorf("oversize SEND_MESSAGE = %+v, want 400 bad request", e)
	}
}

func TestJoinRoomFailsWhenFull(t *testing.T) {
	d, transport, _, store := newTestDispatcherWithStore()
	admin := createAdminAndLogin(t, d, store, transport, 1, "admin@x.test", "adminpw1", "admin")
	d.HandleRequest(1, frame(t, wire.TypeCreateRoom, createRoomRequest{Token: admin.Token, Name: "small", MaxUsers: 1}))
	var createResp struct {
		Room struct{ ID int64 `json:"id"` } `json:"room"`
	}
	json.Unmarshal(transport.last(1).Payload, &createResp)
	roomID := createResp.Room.ID

	alice := registerAndLogin(t, d, transport, 2, "alice@x.test", "alicepw1", "alice")
	bob := registerAndLogin(t, d, transport, 3, "bob@x.test", "bobpw123", "bob")

	d.HandleRequest(2, frame(t, wire.TypeJoinRoom, roomIDRequest{Token: alice.Token, RoomID: roomID}))
	if e := decodeEnvelope(t, transport.lastOfType(2, wire.ResponseType(wire.TypeJoinRoom))); !e.Success {
		t.Fatalf("alice join should succeed: %+v", e)
	}

	d.HandleRequest(3, frame(t, wire.TypeJoinRoom, roomIDRequest{Token: bob.Token, RoomID: roomID}))
	e := decodeEnvelope(t, transport.last(3))
	if e.Success {
		t.Error("bob join should fail once room is at capacity")
	}
}

func TestCleanupConnectionBroadcastsUserLeave(t *testing.T) {
	d, transport, reg, store := newTestDispatcherWithStore()
	admin := createAdminAndLogin(t, d, store, transport, 1, "admin@x.test", "adminpw1", "admin")
	d.HandleRequest(1, frame(t, wire.TypeCreateRoom, createRoomRequest{Token: admin.Token, Name: "general", MaxUsers: 0}))
	var createResp struct {
		Room struct{ ID int64 `json:"id"` } `json:"room"`
	}
	json.Unmarshal(transport.last(1).Payload, &createResp)
	roomID := createResp.Room.ID

	alice := registerAndLogin(t, d, transport, 2, "alice@x.test", "alicepw1", "alice")
	bob := registerAndLogin(t, d, transport, 3, "bob@x.test", "bobpw123", "bob")
	d.HandleRequest(2, frame(t, wire.TypeJoinRoom, roomIDRequest{Token: alice.Token, RoomID: roomID}))
	d.HandleRequest(3, frame(t, wire.TypeJoinRoom, roomIDRequest{Token: bob.Token, RoomID: roomID}))

	d.CleanupConnection(2)

	if _, ok := reg.CurrentRoom(alice.User.ID); ok {
		t.Error("alice's current room should be cleared after cleanup")
	}
	bobFrames := transport.frames[3]
	if bobFrames[len(bobFrames)-1].Type != wire.PushUserLeave {
		t.Errorf("bob's last frame after alice's teardown = %d, want PushUserLeave", bobFrames[len(bobFrames)-1].Type)
	}
}
