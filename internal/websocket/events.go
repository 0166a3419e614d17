package chatws

import (
	"encoding/json"

	"github.com/go-playground/validator/v10"

	"github.com/Abhirup-261004/Innova-InjuryShield/internal/models"
	"github.com/Abhirup-261004/Innova-InjuryShield/internal/services"
)

// Client-to-server event names.
const (
	EventMessageSend        = "message:send"
	EventMessageSeen        = "message:seen"
	EventMessageDeleteForMe = "message:deleteForMe"
	EventTypingStart        = "typing:start"
	EventTypingStop         = "typing:stop"
)

// Server-to-client event names.
const (
	EventMessageNew        = "message:new"
	EventMessageSeenUpdate = "message:seen:update"
	EventMessageDeleted    = "message:deleted"
	EventPresenceOnline    = "presence:online"
	EventPresenceOffline   = "presence:offline"
	EventAck               = "ack"
	EventError             = "error"
)

// Envelope frames every event on the wire. Client requests may carry an
// ack id; the server answers such a request with at most one "ack" event
// echoing the id.
type Envelope struct {
	Type string          `json:"type"`
	Ack  int64           `json:"ack,omitempty"`
	Data json.RawMessage `json:"data,omitempty"`
}

type SendPayload struct {
	To   int64  `json:"to" validate:"required,gt=0"`
	Text string `json:"text" validate:"required"`
}

type SeenPayload struct {
	ConversationID int64 `json:"conversationId" validate:"required,gt=0"`
	FromUserID     int64 `json:"fromUserId" validate:"omitempty,gt=0"`
}

type DeleteForMePayload struct {
	MessageID int64 `json:"messageId" validate:"required,gt=0"`
}

type TypingPayload struct {
	To int64 `json:"to" validate:"required,gt=0"`
}

type PresencePayload struct {
	UserID int64 `json:"userId"`
}

type TypingFromPayload struct {
	From int64 `json:"from"`
}

type SeenUpdatePayload struct {
	ConversationID int64 `json:"conversationId"`
	SeenBy         int64 `json:"seenBy"`
}

type DeletedPayload struct {
	MessageID int64 `json:"messageId"`
}

// MessagePayload is the canonical message as pushed to both participants
// and echoed in the send acknowledgment.
type MessagePayload struct {
	ID           int64  `json:"id"`
	Conversation int64  `json:"conversation"`
	Sender       int64  `json:"sender"`
	Receiver     int64  `json:"receiver"`
	Text         string `json:"text"`
	Status       string `json:"status"`
	CreatedAt    string `json:"createdAt"`
}

// AckResult is the payload of an "ack" event: ok with the canonical
// result, or not ok with a reason string.
type AckResult struct {
	OK      bool        `json:"ok"`
	Message interface{} `json:"message,omitempty"`
}

var validate = validator.New()

// decodeEvent unmarshals a client payload and validates its tags, so that
// malformed events never reach the service layer.
func decodeEvent(raw json.RawMessage, dst interface{}) error {
	if len(raw) == 0 {
		return validate.Struct(dst)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return err
	}
	return validate.Struct(dst)
}

func encodeEvent(eventType string, data interface{}) ([]byte, error) {
	encoded, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Type: eventType, Data: encoded})
}

func newMessagePayload(message *models.ChatMessage) MessagePayload {
	return MessagePayload{
		ID:           message.ID,
		Conversation: message.ConversationID,
		Sender:       message.SenderID,
		Receiver:     message.ReceiverID,
		Text:         message.Text,
		Status:       message.Status,
		CreatedAt:    services.FormatChatTimestamp(message.CreatedAt),
	}
}
