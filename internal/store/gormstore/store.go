// Package gormstore implements store.Store on gorm. Multi-row mutations run
// inside transactions; unread counters move only through single-statement
// atomic updates so concurrent sends cannot lose increments.
package gormstore

import (
	"gorm.io/gorm"

	"github.com/parley-chat/parley/internal/models"
)

// Options carries the group-size bounds enforced on every membership change.
type Options struct {
	GroupMinParticipants int
	GroupMaxParticipants int
}

type GormStore struct {
	db   *gorm.DB
	opts Options
}

func New(db *gorm.DB, opts Options) (*GormStore, error) {
	if opts.GroupMinParticipants == 0 {
		opts.GroupMinParticipants = 3
	}
	if opts.GroupMaxParticipants == 0 {
		opts.GroupMaxParticipants = 100
	}
	err := db.AutoMigrate(
		&models.User{},
		&models.Block{},
		&models.Conversation{},
		&models.Participant{},
		&models.Message{},
		&models.MessageSeen{},
	)
	if err != nil {
		return nil, err
	}
	return &GormStore{db: db, opts: opts}, nil
}
