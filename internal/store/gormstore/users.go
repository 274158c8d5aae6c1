package gormstore

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/parley-chat/parley/internal/apperr"
	"github.com/parley-chat/parley/internal/models"
)

func (s *GormStore) CreateUser(user *models.User) error {
	if err := s.db.Create(user).Error; err != nil {
		if isDuplicateKey(err) {
			return apperr.Conflictf("username %q already exists", user.Username)
		}
		return err
	}
	return nil
}

func (s *GormStore) GetUserByUsername(username string) (*models.User, error) {
	var user models.User
	if err := s.db.Where("username = ?", username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFoundf("user %q not found", username)
		}
		return nil, err
	}
	return &user, nil
}

func (s *GormStore) GetUserByID(id uint) (*models.User, error) {
	var user models.User
	if err := s.db.First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFoundf("user %d not found", id)
		}
		return nil, err
	}
	return &user, nil
}

func (s *GormStore) Block(blockerID, blockedID uint) error {
	err := s.db.Create(&models.Block{BlockerID: blockerID, BlockedID: blockedID}).Error
	if err != nil && isDuplicateKey(err) {
		return nil
	}
	return err
}

func (s *GormStore) Unblock(blockerID, blockedID uint) error {
	return s.db.Delete(&models.Block{BlockerID: blockerID, BlockedID: blockedID}).Error
}

// IsBlockedEither reports whether either user has blocked the other.
func (s *GormStore) IsBlockedEither(a, b uint) (bool, error) {
	var count int64
	err := s.db.Model(&models.Block{}).
		Where("(blocker_id = ? AND blocked_id = ?) OR (blocker_id = ? AND blocked_id = ?)", a, b, b, a).
		Count(&count).Error
	return count > 0, err
}

// isDuplicateKey matches unique-constraint violations from both drivers.
func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value")
}
