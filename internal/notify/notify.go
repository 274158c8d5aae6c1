// Package notify is the outbound notification port. The core's contract is
// "attempt delivery, never block, never fail": implementations swallow their
// own errors and a send/seen request never waits on fan-out.
package notify

import "github.com/google/uuid"

// Event types pushed to participants.
const (
	EventMessageNew       = "message:new"
	EventConversationSeen = "conversation:seen"
)

type Event struct {
	ID             string      `json:"id"`
	Type           string      `json:"type"`
	ConversationID uint        `json:"conversation_id"`
	MessageID      uint        `json:"message_id,omitempty"`
	SenderID       uint        `json:"sender_id,omitempty"`
	Payload        interface{} `json:"payload,omitempty"`
}

func NewEvent(eventType string, conversationID uint) Event {
	return Event{
		ID:             uuid.NewString(),
		Type:           eventType,
		ConversationID: conversationID,
	}
}

type Notifier interface {
	// Notify attempts delivery of ev to each user's live connections.
	// It must return quickly and never surface an error to the caller.
	Notify(userIDs []uint, ev Event)
}

// Nop discards every event; used when no transport is wired.
type Nop struct{}

func (Nop) Notify([]uint, Event) {}

type multi []Notifier

// Multi fans one event out to several notifiers.
func Multi(ns ...Notifier) Notifier { return multi(ns) }

func (m multi) Notify(userIDs []uint, ev Event) {
	for _, n := range m {
		n.Notify(userIDs, ev)
	}
}
