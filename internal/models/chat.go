package models

import "time"

const (
	MessageStatusSent      = "sent"
	MessageStatusDelivered = "delivered"
	MessageStatusSeen      = "seen"
)

// Conversation holds the unique channel for a pair of users. The pair is
// stored canonically with user_a < user_b.
type Conversation struct {
	ID            int64     `json:"id"`
	UserA         int64     `json:"user_a"`
	UserB         int64     `json:"user_b"`
	LastMessageID *int64    `json:"last_message_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// OtherParticipant returns the peer of the given participant.
func (c *Conversation) OtherParticipant(userID int64) int64 {
	if userID == c.UserA {
		return c.UserB
	}
	return c.UserA
}

type ChatMessage struct {
	ID             int64      `json:"id"`
	ConversationID int64      `json:"conversation_id"`
	SenderID       int64      `json:"sender_id"`
	ReceiverID     int64      `json:"receiver_id"`
	Text           string     `json:"text"`
	Status         string     `json:"status"`
	CreatedAt      time.Time  `json:"created_at"`
	ReadAt         *time.Time `json:"read_at,omitempty"`
}

type ConversationSummary struct {
	ID          int64        `json:"id"`
	OtherUser   Contact      `json:"other_user"`
	LastMessage *ChatMessage `json:"last_message,omitempty"`
	UnreadCount int          `json:"unread_count"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// ChatHistory is the bootstrap payload for one two-party conversation,
// already filtered to the rows visible to the caller.
type ChatHistory struct {
	ConversationID int64         `json:"conversation_id"`
	Messages       []ChatMessage `json:"messages"`
}
