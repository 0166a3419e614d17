package chatws

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Abhirup-261004/Innova-InjuryShield/internal/models"
)

func TestDecodeEventSendPayload(t *testing.T) {
	var req SendPayload
	err := decodeEvent(json.RawMessage(`{"to":7,"text":"hello"}`), &req)
	require.NoError(t, err)
	require.Equal(t, int64(7), req.To)
	require.Equal(t, "hello", req.Text)
}

func TestDecodeEventRejectsInvalidPayloads(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		dst  interface{}
	}{
		{"missing receiver", `{"text":"hello"}`, &SendPayload{}},
		{"missing text", `{"to":7}`, &SendPayload{}},
		{"negative receiver", `{"to":-1,"text":"hi"}`, &SendPayload{}},
		{"malformed json", `{"to":`, &SendPayload{}},
		{"missing conversation", `{"fromUserId":3}`, &SeenPayload{}},
		{"missing message id", `{}`, &DeleteForMePayload{}},
		{"missing typing target", `{}`, &TypingPayload{}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Error(t, decodeEvent(json.RawMessage(tc.raw), tc.dst))
		})
	}
}

func TestDecodeEventSeenPayloadAllowsOmittedSender(t *testing.T) {
	var req SeenPayload
	err := decodeEvent(json.RawMessage(`{"conversationId":4}`), &req)
	require.NoError(t, err)
	require.Equal(t, int64(4), req.ConversationID)
	require.Zero(t, req.FromUserID)
}

func TestEncodeEventWrapsEnvelope(t *testing.T) {
	payload, err := encodeEvent(EventPresenceOnline, PresencePayload{UserID: 9})
	require.NoError(t, err)

	var env Envelope
	require.NoError(t, json.Unmarshal(payload, &env))
	require.Equal(t, EventPresenceOnline, env.Type)
	require.Zero(t, env.Ack)

	var data PresencePayload
	require.NoError(t, json.Unmarshal(env.Data, &data))
	require.Equal(t, int64(9), data.UserID)
}

func TestNewMessagePayloadCarriesCanonicalFields(t *testing.T) {
	createdAt := time.Date(2026, 5, 2, 10, 30, 0, 0, time.UTC)
	message := &models.ChatMessage{
		ID:             12,
		ConversationID: 3,
		SenderID:       1,
		ReceiverID:     2,
		Text:           "Hello",
		Status:         models.MessageStatusDelivered,
		CreatedAt:      createdAt,
	}

	out := newMessagePayload(message)
	require.Equal(t, int64(12), out.ID)
	require.Equal(t, int64(3), out.Conversation)
	require.Equal(t, int64(1), out.Sender)
	require.Equal(t, int64(2), out.Receiver)
	require.Equal(t, "Hello", out.Text)
	require.Equal(t, models.MessageStatusDelivered, out.Status)
	require.Equal(t, "2026-05-02T10:30:00Z", out.CreatedAt)
}
