package gormstore

import (
	"time"

	"gorm.io/gorm"

	"github.com/parley-chat/parley/internal/models"
)

// SendMessage persists a message and, in the same transaction, refreshes the
// conversation's denormalized last-message snapshot and bumps every other
// participant's unread counter with one atomic UPDATE.
func (s *GormStore) SendMessage(msg *models.Message) error {
	if msg.Status == "" {
		msg.Status = models.MessageSent
	}
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(msg).Error; err != nil {
			return err
		}

		snapshot := msg.Content
		if snapshot == "" && msg.Image != "" {
			snapshot = "[image]"
		}
		now := time.Now()
		err := tx.Model(&models.Conversation{}).
			Where("id = ?", msg.ConversationID).
			Updates(map[string]interface{}{
				"last_message_content":   snapshot,
				"last_message_sender_id": msg.SenderID,
				"last_message_at":        now,
			}).Error
		if err != nil {
			return err
		}

		return tx.Model(&models.Participant{}).
			Where("conversation_id = ? AND user_id <> ?", msg.ConversationID, msg.SenderID).
			UpdateColumn("unread_count", gorm.Expr("unread_count + 1")).Error
	})
}

// ListMessages returns one newest-first page. cursor is the exclusive upper
// bound on message id (0 means newest); the extra fetched row only signals
// whether another page exists.
func (s *GormStore) ListMessages(conversationID, cursor uint, limit int) ([]models.Message, bool, error) {
	q := s.db.Preload("SeenBy").
		Where("conversation_id = ?", conversationID).
		Order("id DESC").
		Limit(limit + 1)
	if cursor > 0 {
		q = q.Where("id < ?", cursor)
	}

	var msgs []models.Message
	if err := q.Find(&msgs).Error; err != nil {
		return nil, false, err
	}
	hasMore := len(msgs) > limit
	if hasMore {
		msgs = msgs[:limit]
	}
	if msgs == nil {
		msgs = []models.Message{}
	}
	return msgs, hasMore, nil
}

// MarkDelivered flips a message from sent to delivered. It is a no-op for
// any other state so a seen message is never downgraded.
func (s *GormStore) MarkDelivered(messageID uint) error {
	return s.db.Model(&models.Message{}).
		Where("id = ? AND status = ?", messageID, models.MessageSent).
		UpdateColumn("status", models.MessageDelivered).Error
}
