package store

import "github.com/parley-chat/parley/internal/models"

type Store interface {
	// User operations
	CreateUser(user *models.User) error
	GetUserByUsername(username string) (*models.User, error)
	GetUserByID(id uint) (*models.User, error)

	// Block relationships (read by the messaging core; no HTTP surface)
	Block(blockerID, blockedID uint) error
	Unblock(blockerID, blockedID uint) error
	IsBlockedEither(a, b uint) (bool, error)

	// Conversation operations
	GetOrCreateIndividual(a, b uint) (conv *models.Conversation, created bool, err error)
	CreateGroup(adminID uint, name, image string, memberIDs []uint) (*models.Conversation, error)
	GetConversation(id uint) (*models.Conversation, error)
	ListConversations(userID uint, limit, offset int) ([]models.Conversation, error)
	IsParticipant(conversationID, userID uint) (bool, error)
	ParticipantIDs(conversationID uint) ([]uint, error)
	AddMember(conversationID, userID uint) error
	RemoveMember(conversationID, userID uint) error
	LeaveGroup(conversationID, userID uint) (*models.Conversation, error)
	UpdateGroup(conversationID uint, name, image *string) (*models.Conversation, error)
	MarkSeen(conversationID, userID uint) (newlySeen int64, err error)

	// Message operations
	SendMessage(msg *models.Message) error
	ListMessages(conversationID, cursor uint, limit int) (msgs []models.Message, hasMore bool, err error)
	MarkDelivered(messageID uint) error
}
