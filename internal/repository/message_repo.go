package repository

import (
	"context"

	"github.com/Abhirup-261004/Innova-InjuryShield/internal/models"
)

type MessageRepository struct {
	db DBTX
}

func NewMessageRepository(db DBTX) *MessageRepository {
	return &MessageRepository{db: db}
}

// Create persists a message with its initial delivery status. The status is
// decided once at send time and only ever advances afterwards.
func (r *MessageRepository) Create(
	ctx context.Context,
	conversationID int64,
	senderID int64,
	receiverID int64,
	text string,
	status string,
) (*models.ChatMessage, error) {
	query := `
		INSERT INTO messages (conversation_id, sender_id, receiver_id, text, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, conversation_id, sender_id, receiver_id, text, status, created_at, read_at
	`

	var message models.ChatMessage
	err := r.db.QueryRow(ctx, query, conversationID, senderID, receiverID, text, status).Scan(
		&message.ID,
		&message.ConversationID,
		&message.SenderID,
		&message.ReceiverID,
		&message.Text,
		&message.Status,
		&message.CreatedAt,
		&message.ReadAt,
	)
	if err != nil {
		return nil, err
	}

	return &message, nil
}

func (r *MessageRepository) GetByID(ctx context.Context, messageID int64) (*models.ChatMessage, error) {
	query := `
		SELECT id, conversation_id, sender_id, receiver_id, text, status, created_at, read_at
		FROM messages
		WHERE id = $1
	`

	var message models.ChatMessage
	err := r.db.QueryRow(ctx, query, messageID).Scan(
		&message.ID,
		&message.ConversationID,
		&message.SenderID,
		&message.ReceiverID,
		&message.Text,
		&message.Status,
		&message.CreatedAt,
		&message.ReadAt,
	)
	if err != nil {
		return nil, err
	}

	return &message, nil
}

// ListVisible returns the conversation history in creation order, excluding
// rows the viewer has hidden for themselves.
func (r *MessageRepository) ListVisible(
	ctx context.Context,
	conversationID int64,
	viewerID int64,
) ([]models.ChatMessage, error) {
	query := `
		SELECT id, conversation_id, sender_id, receiver_id, text, status, created_at, read_at
		FROM messages m
		WHERE m.conversation_id = $1
		  AND NOT EXISTS (
			SELECT 1 FROM message_hides h
			WHERE h.message_id = m.id AND h.user_id = $2
		  )
		ORDER BY m.created_at ASC, m.id ASC
	`

	rows, err := r.db.Query(ctx, query, conversationID, viewerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := make([]models.ChatMessage, 0)
	for rows.Next() {
		var message models.ChatMessage
		if err := rows.Scan(
			&message.ID,
			&message.ConversationID,
			&message.SenderID,
			&message.ReceiverID,
			&message.Text,
			&message.Status,
			&message.CreatedAt,
			&message.ReadAt,
		); err != nil {
			return nil, err
		}

		messages = append(messages, message)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return messages, nil
}

// MarkConversationSeen advances every message addressed to the viewer that
// is not yet seen in a single bulk update. Status only moves forward, so
// replaying the call is a no-op and returns zero.
func (r *MessageRepository) MarkConversationSeen(
	ctx context.Context,
	conversationID int64,
	viewerID int64,
) (int64, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE messages
		SET status = 'seen', read_at = NOW()
		WHERE conversation_id = $1
		  AND receiver_id = $2
		  AND status <> 'seen'
	`, conversationID, viewerID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// HideForViewer records the (message, viewer) visibility tombstone. The
// insert is idempotent; the stored message and the peer's view are
// untouched.
func (r *MessageRepository) HideForViewer(
	ctx context.Context,
	messageID int64,
	viewerID int64,
) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO message_hides (message_id, user_id)
		VALUES ($1, $2)
		ON CONFLICT (message_id, user_id) DO NOTHING
	`, messageID, viewerID)
	return err
}
