package repository

import (
	"context"
	"database/sql"

	"github.com/Abhirup-261004/Innova-InjuryShield/internal/models"
)

type ConversationRepository struct {
	db DBTX
}

func NewConversationRepository(db DBTX) *ConversationRepository {
	return &ConversationRepository{db: db}
}

// canonicalPair orders two participant ids so that a conversation is always
// keyed the same way regardless of who initiates contact.
func canonicalPair(a, b int64) (int64, int64) {
	if a > b {
		return b, a
	}
	return a, b
}

// GetOrCreate resolves the single conversation for an unordered pair of
// users. The upsert on the unique (user_a, user_b) constraint keeps the
// at-most-one invariant even when both users send their first message at
// the same instant.
func (r *ConversationRepository) GetOrCreate(
	ctx context.Context,
	userID int64,
	otherID int64,
) (*models.Conversation, error) {
	userA, userB := canonicalPair(userID, otherID)

	query := `
		INSERT INTO conversations (user_a, user_b)
		VALUES ($1, $2)
		ON CONFLICT (user_a, user_b)
		DO UPDATE SET updated_at = conversations.updated_at
		RETURNING id, user_a, user_b, last_message_id, created_at, updated_at
	`

	var conversation models.Conversation
	err := r.db.QueryRow(ctx, query, userA, userB).Scan(
		&conversation.ID,
		&conversation.UserA,
		&conversation.UserB,
		&conversation.LastMessageID,
		&conversation.CreatedAt,
		&conversation.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &conversation, nil
}

func (r *ConversationRepository) GetByID(ctx context.Context, conversationID int64) (*models.Conversation, error) {
	query := `
		SELECT id, user_a, user_b, last_message_id, created_at, updated_at
		FROM conversations
		WHERE id = $1
	`

	var conversation models.Conversation
	err := r.db.QueryRow(ctx, query, conversationID).Scan(
		&conversation.ID,
		&conversation.UserA,
		&conversation.UserB,
		&conversation.LastMessageID,
		&conversation.CreatedAt,
		&conversation.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &conversation, nil
}

func (r *ConversationRepository) SetLastMessage(
	ctx context.Context,
	conversationID int64,
	messageID int64,
) error {
	_, err := r.db.Exec(ctx, `
		UPDATE conversations
		SET last_message_id = $2, updated_at = NOW()
		WHERE id = $1
	`, conversationID, messageID)
	return err
}

// ListForParticipant returns the viewer's conversations with the peer
// projection, the last message, and the unread count. Unread counts
// exclude rows the viewer has hidden.
func (r *ConversationRepository) ListForParticipant(
	ctx context.Context,
	viewerID int64,
) ([]models.ConversationSummary, error) {
	query := `
		SELECT
			c.id,
			c.updated_at,
			u.id,
			u.name,
			u.email,
			u.role,
			lm.id,
			lm.conversation_id,
			lm.sender_id,
			lm.receiver_id,
			lm.text,
			lm.status,
			lm.created_at,
			lm.read_at,
			COALESCE(uc.unread_count, 0)
		FROM conversations c
		JOIN users u
		  ON u.id = CASE WHEN c.user_a = $1 THEN c.user_b ELSE c.user_a END
		LEFT JOIN LATERAL (
			SELECT id, conversation_id, sender_id, receiver_id, text, status, created_at, read_at
			FROM messages
			WHERE conversation_id = c.id
			ORDER BY created_at DESC, id DESC
			LIMIT 1
		) lm ON TRUE
		LEFT JOIN LATERAL (
			SELECT COUNT(*) AS unread_count
			FROM messages m
			WHERE m.conversation_id = c.id
			  AND m.receiver_id = $1
			  AND m.status <> 'seen'
			  AND NOT EXISTS (
				SELECT 1 FROM message_hides h
				WHERE h.message_id = m.id AND h.user_id = $1
			  )
		) uc ON TRUE
		WHERE c.user_a = $1 OR c.user_b = $1
		ORDER BY COALESCE(lm.created_at, c.updated_at, c.created_at) DESC, c.id DESC
	`

	rows, err := r.db.Query(ctx, query, viewerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	summaries := make([]models.ConversationSummary, 0)
	for rows.Next() {
		var summary models.ConversationSummary
		var messageID sql.NullInt64
		var messageConversationID sql.NullInt64
		var messageSenderID sql.NullInt64
		var messageReceiverID sql.NullInt64
		var messageText sql.NullString
		var messageStatus sql.NullString
		var messageCreatedAt sql.NullTime
		var messageReadAt sql.NullTime

		if err := rows.Scan(
			&summary.ID,
			&summary.UpdatedAt,
			&summary.OtherUser.ID,
			&summary.OtherUser.Name,
			&summary.OtherUser.Email,
			&summary.OtherUser.Role,
			&messageID,
			&messageConversationID,
			&messageSenderID,
			&messageReceiverID,
			&messageText,
			&messageStatus,
			&messageCreatedAt,
			&messageReadAt,
			&summary.UnreadCount,
		); err != nil {
			return nil, err
		}

		if messageID.Valid {
			summary.LastMessage = &models.ChatMessage{
				ID:             messageID.Int64,
				ConversationID: messageConversationID.Int64,
				SenderID:       messageSenderID.Int64,
				ReceiverID:     messageReceiverID.Int64,
				Text:           messageText.String,
				Status:         messageStatus.String,
				CreatedAt:      messageCreatedAt.Time,
			}
			if messageReadAt.Valid {
				readAt := messageReadAt.Time
				summary.LastMessage.ReadAt = &readAt
			}
		}

		summaries = append(summaries, summary)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return summaries, nil
}
