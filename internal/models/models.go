package models

import "time"

// Conversation types.
const (
	ConversationIndividual = "individual"
	ConversationGroup      = "group"
)

// Message statuses. A message moves sent -> delivered -> seen; delivered is
// skipped when no recipient connection is live at send time.
const (
	MessageSent       = "sent"
	MessageDelivered  = "delivered"
	MessageStatusSeen = "seen"
)

type User struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Username    string    `gorm:"uniqueIndex;size:32;not null" json:"username"`
	Password    string    `gorm:"not null" json:"-"`
	DisplayName string    `gorm:"size:64" json:"display_name"`
	AvatarURL   string    `json:"avatar_url"`
	CreatedAt   time.Time `json:"created_at"`
}

// Block records that blocker has blocked blocked. There is no HTTP surface
// for blocks here; the messaging core only reads the relationship.
type Block struct {
	BlockerID uint      `gorm:"primaryKey;autoIncrement:false" json:"blocker_id"`
	BlockedID uint      `gorm:"primaryKey;autoIncrement:false" json:"blocked_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Conversation is a 1:1 or group thread. For individual conversations the
// two participant ids are also stored canonically (UserLowID < UserHighID)
// under a unique index, which makes 1:1 creation idempotent at the database.
// Name, Image and AdminID are group-only.
type Conversation struct {
	ID      uint   `gorm:"primaryKey" json:"id"`
	Type    string `gorm:"size:16;not null;index" json:"type"`
	Name    string `gorm:"size:64" json:"name,omitempty"`
	Image   string `json:"image,omitempty"`
	AdminID *uint  `json:"admin_id,omitempty"`

	UserLowID  *uint `gorm:"uniqueIndex:idx_individual_pair" json:"-"`
	UserHighID *uint `gorm:"uniqueIndex:idx_individual_pair" json:"-"`

	LastMessageContent  string     `json:"last_message_content,omitempty"`
	LastMessageSenderID *uint      `json:"last_message_sender_id,omitempty"`
	LastMessageAt       *time.Time `json:"last_message_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Participants []Participant `gorm:"constraint:OnDelete:CASCADE" json:"participants,omitempty"`
	Messages     []Message     `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

// Participant links a user to a conversation and carries that user's unread
// counter. The counter only changes through single-statement atomic updates.
type Participant struct {
	ConversationID uint      `gorm:"primaryKey;autoIncrement:false" json:"conversation_id"`
	UserID         uint      `gorm:"primaryKey;autoIncrement:false" json:"user_id"`
	UnreadCount    int       `gorm:"not null;default:0" json:"unread_count"`
	JoinedAt       time.Time `json:"joined_at"`

	User User `json:"user"`
}

// Message ids are auto-increment and therefore monotonic per database, which
// is what the keyset pagination cursor relies on.
type Message struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	ConversationID uint      `gorm:"not null;index" json:"conversation_id"`
	SenderID       uint      `gorm:"not null" json:"sender_id"`
	Content        string    `gorm:"size:4096" json:"content,omitempty"`
	Image          string    `json:"image,omitempty"`
	Status         string    `gorm:"size:16;not null;default:sent" json:"status"`
	CreatedAt      time.Time `json:"created_at"`

	SeenBy []MessageSeen `gorm:"foreignKey:MessageID;constraint:OnDelete:CASCADE" json:"seen_by,omitempty"`
}

// MessageSeen is one (user, timestamp) acknowledgment; the composite key
// keeps a user from appearing twice on the same message.
type MessageSeen struct {
	MessageID uint      `gorm:"primaryKey;autoIncrement:false" json:"-"`
	UserID    uint      `gorm:"primaryKey;autoIncrement:false" json:"user_id"`
	SeenAt    time.Time `json:"seen_at"`
}

type RegisterRequest struct {
	Username    string `json:"username"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}
