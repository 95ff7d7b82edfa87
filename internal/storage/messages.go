package storage

import (
	"chatguard/backend/internal/models"
	"context"
	"errors"
	"log"

	"gorm.io/gorm"
)

// GetMessages повертає історію кімнати у порядку створення (найстаріші першими).
// With limit > 0 only the latest limit messages are returned, still ascending.
func (s *Service) GetMessages(ctx context.Context, roomID string, limit int) ([]models.Message, error) {
	if _, err := s.GetRoomByID(ctx, roomID); err != nil {
		return nil, err
	}

	var messages []models.Message
	q := s.DB.WithContext(ctx).Where("room_id = ?", roomID)
	if limit > 0 {
		q = q.Order("created_at desc").Limit(limit)
	} else {
		q = q.Order("created_at asc")
	}
	if err := q.Find(&messages).Error; err != nil {
		log.Printf("ERROR: Failed to get chat history for room %s: %v", roomID, err)
		return nil, wrap("get messages", err)
	}

	if limit > 0 {
		for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
			messages[i], messages[j] = messages[j], messages[i]
		}
	}
	return messages, nil
}

// GetMessageCounts aggregates the room history: total messages, client messages
// after the latest admin message, and messages flagged as spam.
func (s *Service) GetMessageCounts(ctx context.Context, roomID string) (*MessageCounts, error) {
	db := s.DB.WithContext(ctx)
	counts := &MessageCounts{}

	if err := db.Model(&models.Message{}).Where("room_id = ?", roomID).Count(&counts.Total).Error; err != nil {
		return nil, wrap("count messages", err)
	}
	if err := db.Model(&models.Message{}).Where("room_id = ? AND is_spam = ?", roomID, true).Count(&counts.Spam).Error; err != nil {
		return nil, wrap("count spam messages", err)
	}

	clientQuery := db.Model(&models.Message{}).Where("room_id = ? AND sender_type = ?", roomID, models.SenderTypeClient)

	var lastAdmin models.Message
	err := db.Where("room_id = ? AND sender_type = ?", roomID, models.SenderTypeAdmin).
		Order("created_at desc").
		First(&lastAdmin).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		// Адмін ще не відповідав: рахуємо всі повідомлення клієнта.
	case err != nil:
		return nil, wrap("find last admin message", err)
	default:
		clientQuery = clientQuery.Where("created_at > ?", lastAdmin.CreatedAt)
	}

	if err := clientQuery.Count(&counts.SinceAdminReply).Error; err != nil {
		return nil, wrap("count unanswered messages", err)
	}
	return counts, nil
}
