package antispam_test

import (
	"chatguard/backend/internal/models"
	"chatguard/backend/internal/storage"
	"context"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"
)

// memoryStorage is an in-memory storage.Storage. A single mutex plays the role
// of the room row lock.
type memoryStorage struct {
	mu       sync.Mutex
	rooms    map[string]models.ChatRoom
	messages map[string][]models.Message
	events   []models.StatusEvent
}

func newMemoryStorage() *memoryStorage {
	return &memoryStorage{
		rooms:    make(map[string]models.ChatRoom),
		messages: make(map[string][]models.Message),
	}
}

func (m *memoryStorage) CreateRoom(ctx context.Context, room *models.ChatRoom) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	_ = room.BeforeCreate(nil)
	m.rooms[room.RoomID] = *room
	return nil
}

func (m *memoryStorage) GetRoomByID(ctx context.Context, roomID string) (*models.ChatRoom, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	room, ok := m.rooms[roomID]
	if !ok {
		return nil, storage.ErrRoomNotFound
	}
	return &room, nil
}

func (m *memoryStorage) UpdateRoom(ctx context.Context, roomID string, fn storage.RoomMutator) (*models.ChatRoom, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	room, ok := m.rooms[roomID]
	if !ok {
		return nil, storage.ErrRoomNotFound
	}
	if err := fn(&room); err != nil {
		return nil, err
	}
	m.rooms[roomID] = room
	return &room, nil
}

func (m *memoryStorage) ListFlaggedRooms(ctx context.Context, limit int) ([]models.ChatRoom, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.ChatRoom
	for _, room := range m.rooms {
		if room.UserStatus != models.StatusActive && room.UserStatus != models.StatusUnpaid {
			out = append(out, room)
		}
	}
	return out, nil
}

func (m *memoryStorage) AppendMessage(ctx context.Context, roomID string, prepare storage.MessagePreparer) (*models.ChatRoom, *models.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	room, ok := m.rooms[roomID]
	if !ok {
		return nil, nil, storage.ErrRoomNotFound
	}
	msg, err := prepare(&room)
	if err != nil {
		return nil, nil, err
	}
	if msg != nil {
		msg.RoomID = roomID
		_ = msg.BeforeCreate(nil)
		m.messages[roomID] = append(m.messages[roomID], *msg)
	}
	m.rooms[roomID] = room
	return &room, msg, nil
}

func (m *memoryStorage) GetMessages(ctx context.Context, roomID string, limit int) ([]models.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rooms[roomID]; !ok {
		return nil, storage.ErrRoomNotFound
	}
	msgs := append([]models.Message(nil), m.messages[roomID]...)
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	return msgs, nil
}

func (m *memoryStorage) GetMessageCounts(ctx context.Context, roomID string) (*storage.MessageCounts, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := &storage.MessageCounts{}
	for _, msg := range m.messages[roomID] {
		counts.Total++
		if msg.IsSpam {
			counts.Spam++
		}
		if msg.IsFromAdmin() {
			counts.SinceAdminReply = 0
		} else {
			counts.SinceAdminReply++
		}
	}
	return counts, nil
}

func (m *memoryStorage) PublishStatus(ctx context.Context, event models.StatusEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return nil
}

func (m *memoryStorage) room(roomID string) models.ChatRoom {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rooms[roomID]
}

func (m *memoryStorage) put(room models.ChatRoom) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rooms[room.RoomID] = room
}

func (m *memoryStorage) publishedEvents() []models.StatusEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.StatusEvent(nil), m.events...)
}

// fakeClock is a manually advanced clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(start time.Time) *fakeClock {
	return &fakeClock{now: start}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// MockNotifier records escalation notifications.
type MockNotifier struct {
	mock.Mock
}

func (n *MockNotifier) RoomBlocked(ctx context.Context, room *models.ChatRoom) error {
	args := n.Called(room.RoomID)
	return args.Error(0)
}

func (n *MockNotifier) SpamThresholdReached(ctx context.Context, room *models.ChatRoom) error {
	args := n.Called(room.RoomID)
	return args.Error(0)
}

// MockStorage is a testify mock of storage.Storage, used to inject failures.
type MockStorage struct {
	mock.Mock
}

func (m *MockStorage) CreateRoom(ctx context.Context, room *models.ChatRoom) error {
	args := m.Called(room)
	return args.Error(0)
}

func (m *MockStorage) GetRoomByID(ctx context.Context, roomID string) (*models.ChatRoom, error) {
	args := m.Called(roomID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ChatRoom), args.Error(1)
}

func (m *MockStorage) UpdateRoom(ctx context.Context, roomID string, fn storage.RoomMutator) (*models.ChatRoom, error) {
	args := m.Called(roomID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ChatRoom), args.Error(1)
}

func (m *MockStorage) ListFlaggedRooms(ctx context.Context, limit int) ([]models.ChatRoom, error) {
	args := m.Called(limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.ChatRoom), args.Error(1)
}

func (m *MockStorage) AppendMessage(ctx context.Context, roomID string, prepare storage.MessagePreparer) (*models.ChatRoom, *models.Message, error) {
	args := m.Called(roomID)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).(*models.ChatRoom), args.Get(1).(*models.Message), args.Error(2)
}

func (m *MockStorage) GetMessages(ctx context.Context, roomID string, limit int) ([]models.Message, error) {
	args := m.Called(roomID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Message), args.Error(1)
}

func (m *MockStorage) GetMessageCounts(ctx context.Context, roomID string) (*storage.MessageCounts, error) {
	args := m.Called(roomID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*storage.MessageCounts), args.Error(1)
}

func (m *MockStorage) PublishStatus(ctx context.Context, event models.StatusEvent) error {
	args := m.Called(event)
	return args.Error(0)
}
