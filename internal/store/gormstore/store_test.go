package gormstore

import (
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/parley-chat/parley/internal/models"
)

// newTestStore opens a uniquely named shared in-memory database so each
// test gets its own isolated schema. Group bounds are tightened to [3,5]
// to keep capacity tests small.
func newTestStore(t *testing.T) *GormStore {
	t.Helper()
	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	s, err := New(db, Options{GroupMinParticipants: 3, GroupMaxParticipants: 5})
	if err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}
	return s
}

func createUser(t *testing.T, s *GormStore, username string) *models.User {
	t.Helper()
	u := &models.User{Username: username, Password: "hashed"}
	if err := s.CreateUser(u); err != nil {
		t.Fatalf("Failed to create user %s: %v", username, err)
	}
	return u
}

func TestCreateUserDuplicate(t *testing.T) {
	s := newTestStore(t)
	createUser(t, s, "alice")

	err := s.CreateUser(&models.User{Username: "alice", Password: "hashed"})
	if err == nil {
		t.Fatal("Expected duplicate username to fail")
	}
}

func TestBlocks(t *testing.T) {
	s := newTestStore(t)
	a := createUser(t, s, "alice")
	b := createUser(t, s, "bob")

	blocked, err := s.IsBlockedEither(a.ID, b.ID)
	if err != nil {
		t.Fatalf("IsBlockedEither failed: %v", err)
	}
	if blocked {
		t.Error("Expected no block initially")
	}

	if err := s.Block(a.ID, b.ID); err != nil {
		t.Fatalf("Block failed: %v", err)
	}
	// Blocking twice is a no-op.
	if err := s.Block(a.ID, b.ID); err != nil {
		t.Fatalf("Repeated block failed: %v", err)
	}

	// The relationship reads as blocked from both sides.
	for _, pair := range [][2]uint{{a.ID, b.ID}, {b.ID, a.ID}} {
		blocked, _ = s.IsBlockedEither(pair[0], pair[1])
		if !blocked {
			t.Errorf("Expected blocked for pair %v", pair)
		}
	}

	if err := s.Unblock(a.ID, b.ID); err != nil {
		t.Fatalf("Unblock failed: %v", err)
	}
	blocked, _ = s.IsBlockedEither(b.ID, a.ID)
	if blocked {
		t.Error("Expected unblocked after Unblock")
	}
}
