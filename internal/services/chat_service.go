package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Abhirup-261004/Innova-InjuryShield/internal/models"
	"github.com/Abhirup-261004/Innova-InjuryShield/internal/repository"
)

type userReader interface {
	GetByID(ctx context.Context, id int64) (*models.User, error)
	ListByRole(ctx context.Context, role string) ([]models.Contact, error)
}

type presenceChecker interface {
	IsOnline(userID int64) bool
}

type ChatService struct {
	db               *pgxpool.Pool
	conversationRepo *repository.ConversationRepository
	messageRepo      *repository.MessageRepository
	userRepo         userReader
	presence         presenceChecker
}

// ChatDelivery is the outcome of a successful send: the canonical stored
// message plus the conversation it landed in.
type ChatDelivery struct {
	Conversation *models.Conversation
	Message      *models.ChatMessage
}

func NewChatService(
	db *pgxpool.Pool,
	conversationRepo *repository.ConversationRepository,
	messageRepo *repository.MessageRepository,
	userRepo userReader,
	presence presenceChecker,
) *ChatService {
	return &ChatService{
		db:               db,
		conversationRepo: conversationRepo,
		messageRepo:      messageRepo,
		userRepo:         userRepo,
		presence:         presence,
	}
}

// CanMessage is the single chat-eligibility authority: a coach may message
// anyone, an athlete only a coach. Both the history-fetch path and the
// live-send path go through it.
func CanMessage(senderRole, receiverRole string) bool {
	if senderRole == models.RoleCoach {
		return true
	}
	return senderRole == models.RoleAthlete && receiverRole == models.RoleCoach
}

// SendMessage validates, persists, and returns a new message. The initial
// status is delivered when the receiver holds an open connection at this
// instant and sent otherwise; only the seen transition can advance it
// later.
func (s *ChatService) SendMessage(
	ctx context.Context,
	senderID int64,
	senderRole string,
	receiverID int64,
	text string,
) (*ChatDelivery, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, ErrInvalidInput
	}
	if receiverID <= 0 || receiverID == senderID {
		return nil, ErrInvalidInput
	}

	receiver, err := s.userRepo.GetByID(ctx, receiverID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	if !CanMessage(senderRole, receiver.Role) {
		return nil, ErrChatNotAllowed
	}

	status := models.MessageStatusSent
	if s.presence.IsOnline(receiverID) {
		status = models.MessageStatusDelivered
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	txConversationRepo := repository.NewConversationRepository(tx)
	txMessageRepo := repository.NewMessageRepository(tx)

	conversation, err := txConversationRepo.GetOrCreate(ctx, senderID, receiverID)
	if err != nil {
		return nil, err
	}

	message, err := txMessageRepo.Create(ctx, conversation.ID, senderID, receiverID, trimmed, status)
	if err != nil {
		return nil, err
	}

	if err := txConversationRepo.SetLastMessage(ctx, conversation.ID, message.ID); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	conversation.LastMessageID = &message.ID

	return &ChatDelivery{
		Conversation: conversation,
		Message:      message,
	}, nil
}

// MarkConversationSeen bulk-transitions every unseen message addressed to
// the viewer in the conversation and returns how many rows advanced.
// Replaying the call when nothing is outstanding returns zero.
func (s *ChatService) MarkConversationSeen(
	ctx context.Context,
	viewerID int64,
	conversationID int64,
) (int64, error) {
	if conversationID <= 0 {
		return 0, ErrInvalidInput
	}
	return s.messageRepo.MarkConversationSeen(ctx, conversationID, viewerID)
}

// DeleteForViewer hides a message for the requester only. The stored row
// and the other participant's visibility are untouched.
func (s *ChatService) DeleteForViewer(ctx context.Context, viewerID int64, messageID int64) error {
	if messageID <= 0 {
		return ErrInvalidInput
	}

	message, err := s.messageRepo.GetByID(ctx, messageID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrMessageNotFound
		}
		return err
	}

	if message.SenderID != viewerID && message.ReceiverID != viewerID {
		return ErrForbidden
	}

	return s.messageRepo.HideForViewer(ctx, messageID, viewerID)
}

// GetHistory resolves (lazily creating) the conversation with the given
// partner and returns its history filtered to the rows visible to the
// viewer. The eligibility check is the same one the send path uses.
func (s *ChatService) GetHistory(
	ctx context.Context,
	viewerID int64,
	viewerRole string,
	otherID int64,
) (*models.ChatHistory, error) {
	if otherID <= 0 || otherID == viewerID {
		return nil, ErrInvalidInput
	}

	other, err := s.userRepo.GetByID(ctx, otherID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	if !CanMessage(viewerRole, other.Role) {
		return nil, ErrChatNotAllowed
	}

	conversation, err := s.conversationRepo.GetOrCreate(ctx, viewerID, otherID)
	if err != nil {
		return nil, err
	}

	messages, err := s.messageRepo.ListVisible(ctx, conversation.ID, viewerID)
	if err != nil {
		return nil, err
	}

	return &models.ChatHistory{
		ConversationID: conversation.ID,
		Messages:       messages,
	}, nil
}

// ListContacts returns the users the caller is eligible to start a chat
// with: coaches see athletes, athletes see coaches.
func (s *ChatService) ListContacts(ctx context.Context, role string) ([]models.Contact, error) {
	switch role {
	case models.RoleCoach:
		return s.userRepo.ListByRole(ctx, models.RoleAthlete)
	case models.RoleAthlete:
		return s.userRepo.ListByRole(ctx, models.RoleCoach)
	default:
		return nil, ErrForbidden
	}
}

func (s *ChatService) ListConversations(
	ctx context.Context,
	viewerID int64,
	role string,
) ([]models.ConversationSummary, error) {
	if role != models.RoleAthlete && role != models.RoleCoach {
		return nil, ErrForbidden
	}
	return s.conversationRepo.ListForParticipant(ctx, viewerID)
}

func FormatChatTimestamp(ts time.Time) string {
	return ts.UTC().Format(time.RFC3339)
}
