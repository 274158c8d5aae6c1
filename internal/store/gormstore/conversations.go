package gormstore

import (
	"errors"
	"sort"
	"time"

	"gorm.io/gorm"

	"github.com/parley-chat/parley/internal/apperr"
	"github.com/parley-chat/parley/internal/models"
)

// GetOrCreateIndividual returns the 1:1 conversation between a and b,
// creating it on first use. The pair is stored in canonical (low, high)
// order under a unique index, so a concurrent first-message race resolves
// at the database and both callers end up with the same row.
func (s *GormStore) GetOrCreateIndividual(a, b uint) (*models.Conversation, bool, error) {
	low, high := a, b
	if low > high {
		low, high = high, low
	}

	if conv, err := s.findIndividual(low, high); err == nil {
		return conv, false, nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}

	conv := &models.Conversation{
		Type:       models.ConversationIndividual,
		UserLowID:  &low,
		UserHighID: &high,
	}
	now := time.Now()
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(conv).Error; err != nil {
			return err
		}
		participants := []models.Participant{
			{ConversationID: conv.ID, UserID: low, JoinedAt: now},
			{ConversationID: conv.ID, UserID: high, JoinedAt: now},
		}
		return tx.Create(&participants).Error
	})
	if err != nil {
		if isDuplicateKey(err) {
			// Lost the creation race; the winner's row is the conversation.
			conv, ferr := s.findIndividual(low, high)
			return conv, false, ferr
		}
		return nil, false, err
	}

	hydrated, err := s.GetConversation(conv.ID)
	return hydrated, true, err
}

func (s *GormStore) findIndividual(low, high uint) (*models.Conversation, error) {
	var conv models.Conversation
	err := s.db.Preload("Participants.User").
		Where("type = ? AND user_low_id = ? AND user_high_id = ?", models.ConversationIndividual, low, high).
		First(&conv).Error
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

// CreateGroup creates a group conversation with the creator as admin. The
// final participant set is the de-duplicated, sorted union of the creator
// and memberIDs; every member must exist and the total must sit within the
// configured bounds.
func (s *GormStore) CreateGroup(adminID uint, name, image string, memberIDs []uint) (*models.Conversation, error) {
	ids := make(map[uint]bool, len(memberIDs)+1)
	ids[adminID] = true
	for _, id := range memberIDs {
		ids[id] = true
	}
	all := make([]uint, 0, len(ids))
	for id := range ids {
		all = append(all, id)
	}
	sort.Slice(all, func(i, j int) bool { return all[i] < all[j] })

	if len(all) < s.opts.GroupMinParticipants {
		return nil, apperr.Validationf("a group needs at least %d participants", s.opts.GroupMinParticipants)
	}
	if len(all) > s.opts.GroupMaxParticipants {
		return nil, apperr.Validationf("a group can have at most %d participants", s.opts.GroupMaxParticipants)
	}

	var count int64
	if err := s.db.Model(&models.User{}).Where("id IN ?", all).Count(&count).Error; err != nil {
		return nil, err
	}
	if int(count) != len(all) {
		return nil, apperr.NotFoundf("one or more members do not exist")
	}

	conv := &models.Conversation{
		Type:    models.ConversationGroup,
		Name:    name,
		Image:   image,
		AdminID: &adminID,
	}
	now := time.Now()
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(conv).Error; err != nil {
			return err
		}
		participants := make([]models.Participant, 0, len(all))
		for _, id := range all {
			participants = append(participants, models.Participant{
				ConversationID: conv.ID,
				UserID:         id,
				JoinedAt:       now,
			})
		}
		return tx.Create(&participants).Error
	})
	if err != nil {
		return nil, err
	}
	return s.GetConversation(conv.ID)
}

func (s *GormStore) GetConversation(id uint) (*models.Conversation, error) {
	var conv models.Conversation
	err := s.db.Preload("Participants.User").First(&conv, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFoundf("conversation %d not found", id)
		}
		return nil, err
	}
	return &conv, nil
}

// ListConversations returns the caller's conversations ordered by most
// recent activity.
func (s *GormStore) ListConversations(userID uint, limit, offset int) ([]models.Conversation, error) {
	var convs []models.Conversation
	err := s.db.Preload("Participants.User").
		Joins("JOIN participants ON participants.conversation_id = conversations.id AND participants.user_id = ?", userID).
		Order("COALESCE(conversations.last_message_at, conversations.created_at) DESC").
		Limit(limit).Offset(offset).
		Find(&convs).Error
	if err != nil {
		return nil, err
	}
	if convs == nil {
		convs = []models.Conversation{}
	}
	return convs, nil
}

func (s *GormStore) IsParticipant(conversationID, userID uint) (bool, error) {
	var count int64
	err := s.db.Model(&models.Participant{}).
		Where("conversation_id = ? AND user_id = ?", conversationID, userID).
		Count(&count).Error
	return count > 0, err
}

func (s *GormStore) ParticipantIDs(conversationID uint) ([]uint, error) {
	var ids []uint
	err := s.db.Model(&models.Participant{}).
		Where("conversation_id = ?", conversationID).
		Order("user_id").
		Pluck("user_id", &ids).Error
	return ids, err
}

// AddMember adds a user to a group conversation, re-checking capacity.
func (s *GormStore) AddMember(conversationID, userID uint) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		conv, err := getConversationTx(tx, conversationID)
		if err != nil {
			return err
		}
		if conv.Type != models.ConversationGroup {
			return apperr.Validationf("conversation %d is not a group", conversationID)
		}
		var user models.User
		if err := tx.First(&user, userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFoundf("user %d not found", userID)
			}
			return err
		}

		var count int64
		if err := tx.Model(&models.Participant{}).
			Where("conversation_id = ?", conversationID).Count(&count).Error; err != nil {
			return err
		}
		if int(count) >= s.opts.GroupMaxParticipants {
			return apperr.Validationf("a group can have at most %d participants", s.opts.GroupMaxParticipants)
		}

		p := models.Participant{ConversationID: conversationID, UserID: userID, JoinedAt: time.Now()}
		if err := tx.Create(&p).Error; err != nil {
			if isDuplicateKey(err) {
				return apperr.Conflictf("user %d is already a participant", userID)
			}
			return err
		}
		return nil
	})
}

// RemoveMember removes a non-admin member, keeping the group at or above
// the participant floor. The admin leaves through LeaveGroup.
func (s *GormStore) RemoveMember(conversationID, userID uint) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		conv, err := getConversationTx(tx, conversationID)
		if err != nil {
			return err
		}
		if conv.Type != models.ConversationGroup {
			return apperr.Validationf("conversation %d is not a group", conversationID)
		}
		if conv.AdminID != nil && *conv.AdminID == userID {
			return apperr.Validationf("the admin cannot be removed; leave instead")
		}

		res := tx.Where("conversation_id = ? AND user_id = ?", conversationID, userID).
			Delete(&models.Participant{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.Validationf("user %d is not a participant", userID)
		}

		var count int64
		if err := tx.Model(&models.Participant{}).
			Where("conversation_id = ?", conversationID).Count(&count).Error; err != nil {
			return err
		}
		if int(count) < s.opts.GroupMinParticipants {
			return apperr.Validationf("a group needs at least %d participants", s.opts.GroupMinParticipants)
		}
		return nil
	})
}

// LeaveGroup removes the caller from a group. A leaving admin hands the
// role to the remaining participant with the lowest user id.
func (s *GormStore) LeaveGroup(conversationID, userID uint) (*models.Conversation, error) {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		conv, err := getConversationTx(tx, conversationID)
		if err != nil {
			return err
		}
		if conv.Type != models.ConversationGroup {
			return apperr.Validationf("conversation %d is not a group", conversationID)
		}

		res := tx.Where("conversation_id = ? AND user_id = ?", conversationID, userID).
			Delete(&models.Participant{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.Forbiddenf("user %d is not a participant", userID)
		}

		var count int64
		if err := tx.Model(&models.Participant{}).
			Where("conversation_id = ?", conversationID).Count(&count).Error; err != nil {
			return err
		}
		if int(count) < s.opts.GroupMinParticipants {
			return apperr.Validationf("a group needs at least %d participants", s.opts.GroupMinParticipants)
		}

		if conv.AdminID != nil && *conv.AdminID == userID {
			var next models.Participant
			if err := tx.Where("conversation_id = ?", conversationID).
				Order("user_id").First(&next).Error; err != nil {
				return err
			}
			if err := tx.Model(&models.Conversation{}).
				Where("id = ?", conversationID).
				Update("admin_id", next.UserID).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetConversation(conversationID)
}

// UpdateGroup renames and/or re-images a group; nil fields stay unchanged.
func (s *GormStore) UpdateGroup(conversationID uint, name, image *string) (*models.Conversation, error) {
	conv, err := s.GetConversation(conversationID)
	if err != nil {
		return nil, err
	}
	if conv.Type != models.ConversationGroup {
		return nil, apperr.Validationf("conversation %d is not a group", conversationID)
	}

	updates := map[string]interface{}{}
	if name != nil {
		updates["name"] = *name
	}
	if image != nil {
		updates["image"] = *image
	}
	if len(updates) == 0 {
		return nil, apperr.Validationf("nothing to update")
	}
	err = s.db.Model(&models.Conversation{}).Where("id = ?", conversationID).Updates(updates).Error
	if err != nil {
		return nil, err
	}
	return s.GetConversation(conversationID)
}

// MarkSeen resets the caller's unread counter and appends a seen record to
// every message in the conversation the caller has not acknowledged yet.
// It is idempotent; the return value counts newly acknowledged messages.
func (s *GormStore) MarkSeen(conversationID, userID uint) (int64, error) {
	var newlySeen int64
	err := s.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Participant{}).
			Where("conversation_id = ? AND user_id = ?", conversationID, userID).
			UpdateColumn("unread_count", 0)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.Forbiddenf("user %d is not a participant", userID)
		}

		now := time.Now()
		ins := tx.Exec(`
			INSERT INTO message_seens (message_id, user_id, seen_at)
			SELECT m.id, ?, ?
			FROM messages m
			WHERE m.conversation_id = ? AND m.sender_id <> ?
			  AND NOT EXISTS (
				SELECT 1 FROM message_seens ms
				WHERE ms.message_id = m.id AND ms.user_id = ?
			  )`,
			userID, now, conversationID, userID, userID)
		if ins.Error != nil {
			return ins.Error
		}
		newlySeen = ins.RowsAffected

		return tx.Model(&models.Message{}).
			Where("conversation_id = ? AND sender_id <> ? AND status <> ?",
				conversationID, userID, models.MessageStatusSeen).
			UpdateColumn("status", models.MessageStatusSeen).Error
	})
	return newlySeen, err
}

func getConversationTx(tx *gorm.DB, id uint) (*models.Conversation, error) {
	var conv models.Conversation
	if err := tx.First(&conv, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFoundf("conversation %d not found", id)
		}
		return nil, err
	}
	return &conv, nil
}
