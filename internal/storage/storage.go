package storage

import (
	"chatguard/backend/internal/models"
	"context"
	"errors"
	"log"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RoomMutator changes a room while its row is locked. Returning an error rolls the
// transaction back and the error is passed to the caller unchanged.
type RoomMutator func(room *models.ChatRoom) error

// MessagePreparer runs while the room row is locked. It may mutate the room and
// returns the message to insert, or nil to only persist the room changes.
type MessagePreparer func(room *models.ChatRoom) (*models.Message, error)

type Storage interface {
	CreateRoom(ctx context.Context, room *models.ChatRoom) error
	GetRoomByID(ctx context.Context, roomID string) (*models.ChatRoom, error)
	UpdateRoom(ctx context.Context, roomID string, fn RoomMutator) (*models.ChatRoom, error)
	ListFlaggedRooms(ctx context.Context, limit int) ([]models.ChatRoom, error)

	AppendMessage(ctx context.Context, roomID string, prepare MessagePreparer) (*models.ChatRoom, *models.Message, error)
	GetMessages(ctx context.Context, roomID string, limit int) ([]models.Message, error)
	GetMessageCounts(ctx context.Context, roomID string) (*MessageCounts, error)

	PublishStatus(ctx context.Context, event models.StatusEvent) error
}

// MessageCounts aggregates a room's history for the status summary.
type MessageCounts struct {
	Total           int64
	SinceAdminReply int64
	Spam            int64
}

type Service struct {
	DB    *gorm.DB
	Redis *redis.Client
}

// NewStorageService Constructor. rdb may be nil, status events are then not published.
func NewStorageService(db *gorm.DB, rdb *redis.Client) *Service {
	return &Service{
		DB:    db,
		Redis: rdb,
	}
}

// Migrate creates or updates the tables used by the service.
func (s *Service) Migrate() error {
	return s.DB.AutoMigrate(
		&models.ChatRoom{},
		&models.Message{},
	)
}

// CreateRoom зберігає нову кімнату. RoomID генерується хуком, якщо не заданий.
func (s *Service) CreateRoom(ctx context.Context, room *models.ChatRoom) error {
	if err := s.DB.WithContext(ctx).Create(room).Error; err != nil {
		log.Printf("ERROR: Failed to create room for order %s: %v", room.OrderID, err)
		return wrap("create room", err)
	}
	return nil
}

func (s *Service) GetRoomByID(ctx context.Context, roomID string) (*models.ChatRoom, error) {
	var room models.ChatRoom

	err := s.DB.WithContext(ctx).Where("room_id = ?", roomID).First(&room).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRoomNotFound
	}
	if err != nil {
		log.Printf("ERROR: Failed to get room %s: %v", roomID, err)
		return nil, wrap("get room", err)
	}
	return &room, nil
}

// UpdateRoom locks the room row (SELECT ... FOR UPDATE), applies fn and saves the
// result in the same transaction. Concurrent updates of one room are serialized.
func (s *Service) UpdateRoom(ctx context.Context, roomID string, fn RoomMutator) (*models.ChatRoom, error) {
	room, _, err := s.withLockedRoom(ctx, roomID, func(tx *gorm.DB, room *models.ChatRoom) (*models.Message, error) {
		return nil, fn(room)
	})
	return room, err
}

// AppendMessage inserts the message produced by prepare and saves the room counters
// atomically: either both the message and the counter update are durable, or neither.
func (s *Service) AppendMessage(ctx context.Context, roomID string, prepare MessagePreparer) (*models.ChatRoom, *models.Message, error) {
	return s.withLockedRoom(ctx, roomID, func(tx *gorm.DB, room *models.ChatRoom) (*models.Message, error) {
		msg, err := prepare(room)
		if err != nil || msg == nil {
			return nil, err
		}
		msg.RoomID = room.RoomID
		if err := tx.Create(msg).Error; err != nil {
			log.Printf("ERROR: Failed to save message for room %s: %v", room.RoomID, err)
			return nil, wrap("insert message", err)
		}
		return msg, nil
	})
}

func (s *Service) withLockedRoom(ctx context.Context, roomID string, fn func(tx *gorm.DB, room *models.ChatRoom) (*models.Message, error)) (*models.ChatRoom, *models.Message, error) {
	var (
		updated *models.ChatRoom
		saved   *models.Message
		cbErr   error
	)

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var room models.ChatRoom
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("room_id = ?", roomID).
			First(&room).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrRoomNotFound
		}
		if err != nil {
			return wrap("lock room", err)
		}

		msg, err := fn(tx, &room)
		if err != nil {
			cbErr = err
			return err
		}

		if err := tx.Save(&room).Error; err != nil {
			return wrap("save room", err)
		}
		updated = &room
		saved = msg
		return nil
	})

	if err != nil {
		if cbErr != nil || errors.Is(err, ErrRoomNotFound) || IsStorageError(err) {
			return nil, nil, err
		}
		// Commit failed.
		log.Printf("ERROR: Failed to commit update of room %s: %v", roomID, err)
		return nil, nil, wrap("commit", err)
	}
	return updated, saved, nil
}

// ListFlaggedRooms returns rooms whose client is not in the active tier, most recently updated first.
func (s *Service) ListFlaggedRooms(ctx context.Context, limit int) ([]models.ChatRoom, error) {
	var rooms []models.ChatRoom
	q := s.DB.WithContext(ctx).
		Where("user_status NOT IN ?", []string{models.StatusActive, models.StatusUnpaid}).
		Order("updated_at desc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&rooms).Error; err != nil {
		log.Printf("ERROR: Failed to list flagged rooms: %v", err)
		return nil, wrap("list flagged rooms", err)
	}
	return rooms, nil
}
