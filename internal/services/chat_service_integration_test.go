package services

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Abhirup-261004/Innova-InjuryShield/internal/models"
	"github.com/Abhirup-261004/Innova-InjuryShield/internal/presence"
	"github.com/Abhirup-261004/Innova-InjuryShield/internal/repository"
)

var (
	testDBOnce sync.Once
	testDBPool *pgxpool.Pool
	testDBErr  error
)

func integrationTestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	testDBOnce.Do(func() {
		dbURL := testEnvDBURL()
		if dbURL == "" {
			testDBErr = fmt.Errorf("TEST_DB_URL not set")
			return
		}

		cfg, err := pgxpool.ParseConfig(dbURL)
		if err != nil {
			testDBErr = err
			return
		}

		testDBPool, testDBErr = pgxpool.NewWithConfig(context.Background(), cfg)
		if testDBErr != nil {
			return
		}
		testDBErr = testDBPool.Ping(context.Background())
	})

	if testDBErr != nil {
		t.Skipf("skipping integration test: %v", testDBErr)
	}
	return testDBPool
}

func newIntegrationChatService(pool *pgxpool.Pool, registry *presence.Registry) *ChatService {
	return NewChatService(
		pool,
		repository.NewConversationRepository(pool),
		repository.NewMessageRepository(pool),
		repository.NewUserRepository(pool),
		registry,
	)
}

func createChatTestUser(t *testing.T, ctx context.Context, pool *pgxpool.Pool, role string) int64 {
	t.Helper()

	userRepo := repository.NewUserRepository(pool)
	user := &models.User{
		Name:         fmt.Sprintf("Chat Test %s", role),
		Email:        fmt.Sprintf("chat-test-%s-%d@example.com", role, time.Now().UnixNano()),
		PasswordHash: "test-hash",
		Role:         role,
	}
	if err := userRepo.CreateUser(ctx, user); err != nil {
		t.Fatalf("CreateUser(%s): %v", role, err)
	}
	return user.ID
}

func cleanupChatTestUsers(t *testing.T, ctx context.Context, pool *pgxpool.Pool, userIDs ...int64) {
	t.Helper()

	if len(userIDs) == 0 {
		return
	}

	if _, err := pool.Exec(ctx, "DELETE FROM message_hides WHERE user_id = ANY($1) OR message_id IN (SELECT id FROM messages WHERE sender_id = ANY($1) OR receiver_id = ANY($1))", userIDs); err != nil {
		t.Fatalf("cleanup message_hides: %v", err)
	}
	if _, err := pool.Exec(ctx, "UPDATE conversations SET last_message_id = NULL WHERE user_a = ANY($1) OR user_b = ANY($1)", userIDs); err != nil {
		t.Fatalf("cleanup last_message pointers: %v", err)
	}
	if _, err := pool.Exec(ctx, "DELETE FROM messages WHERE sender_id = ANY($1) OR receiver_id = ANY($1)", userIDs); err != nil {
		t.Fatalf("cleanup messages: %v", err)
	}
	if _, err := pool.Exec(ctx, "DELETE FROM conversations WHERE user_a = ANY($1) OR user_b = ANY($1)", userIDs); err != nil {
		t.Fatalf("cleanup conversations: %v", err)
	}
	if _, err := pool.Exec(ctx, "DELETE FROM users WHERE id = ANY($1)", userIDs); err != nil {
		t.Fatalf("cleanup users: %v", err)
	}
}

func TestConcurrentFirstContactCreatesOneConversation(t *testing.T) {
	ctx := context.Background()
	pool := integrationTestPool(t)
	registry := presence.NewRegistry()
	service := newIntegrationChatService(pool, registry)

	athleteID := createChatTestUser(t, ctx, pool, models.RoleAthlete)
	coachID := createChatTestUser(t, ctx, pool, models.RoleCoach)
	t.Cleanup(func() { cleanupChatTestUsers(t, ctx, pool, athleteID, coachID) })

	const attempts = 8
	deliveries := make([]*ChatDelivery, attempts)
	errs := make([]error, attempts)

	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				deliveries[i], errs[i] = service.SendMessage(ctx, athleteID, models.RoleAthlete, coachID, fmt.Sprintf("from athlete %d", i))
			} else {
				deliveries[i], errs[i] = service.SendMessage(ctx, coachID, models.RoleCoach, athleteID, fmt.Sprintf("from coach %d", i))
			}
		}(i)
	}
	wg.Wait()

	var conversationID int64
	for i := 0; i < attempts; i++ {
		if errs[i] != nil {
			t.Fatalf("SendMessage[%d]: %v", i, errs[i])
		}
		if conversationID == 0 {
			conversationID = deliveries[i].Conversation.ID
		}
		if deliveries[i].Conversation.ID != conversationID {
			t.Fatalf("expected one conversation, got %d and %d", conversationID, deliveries[i].Conversation.ID)
		}
		if deliveries[i].Message.ConversationID != conversationID {
			t.Fatalf("message %d references conversation %d, want %d", i, deliveries[i].Message.ConversationID, conversationID)
		}
	}
}

func TestInitialStatusFollowsReceiverPresence(t *testing.T) {
	ctx := context.Background()
	pool := integrationTestPool(t)
	registry := presence.NewRegistry()
	service := newIntegrationChatService(pool, registry)

	athleteID := createChatTestUser(t, ctx, pool, models.RoleAthlete)
	coachID := createChatTestUser(t, ctx, pool, models.RoleCoach)
	t.Cleanup(func() { cleanupChatTestUsers(t, ctx, pool, athleteID, coachID) })

	offline, err := service.SendMessage(ctx, athleteID, models.RoleAthlete, coachID, "while you were away")
	if err != nil {
		t.Fatalf("SendMessage offline: %v", err)
	}
	if offline.Message.Status != models.MessageStatusSent {
		t.Fatalf("expected status sent for offline receiver, got %q", offline.Message.Status)
	}

	registry.Register(coachID, "conn-1")
	online, err := service.SendMessage(ctx, athleteID, models.RoleAthlete, coachID, "now you are here")
	if err != nil {
		t.Fatalf("SendMessage online: %v", err)
	}
	if online.Message.Status != models.MessageStatusDelivered {
		t.Fatalf("expected status delivered for online receiver, got %q", online.Message.Status)
	}

	// The receiver going offline never regresses an already stored status.
	registry.Unregister(coachID, "conn-1")
	stored, err := repository.NewMessageRepository(pool).GetByID(ctx, online.Message.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if stored.Status != models.MessageStatusDelivered {
		t.Fatalf("status regressed to %q", stored.Status)
	}
}

func TestMarkConversationSeenIsBulkAndIdempotent(t *testing.T) {
	ctx := context.Background()
	pool := integrationTestPool(t)
	registry := presence.NewRegistry()
	service := newIntegrationChatService(pool, registry)

	athleteID := createChatTestUser(t, ctx, pool, models.RoleAthlete)
	coachID := createChatTestUser(t, ctx, pool, models.RoleCoach)
	t.Cleanup(func() { cleanupChatTestUsers(t, ctx, pool, athleteID, coachID) })

	var conversationID int64
	for i := 0; i < 3; i++ {
		delivery, err := service.SendMessage(ctx, athleteID, models.RoleAthlete, coachID, fmt.Sprintf("unseen %d", i))
		if err != nil {
			t.Fatalf("SendMessage[%d]: %v", i, err)
		}
		conversationID = delivery.Conversation.ID
	}

	affected, err := service.MarkConversationSeen(ctx, coachID, conversationID)
	if err != nil {
		t.Fatalf("MarkConversationSeen: %v", err)
	}
	if affected != 3 {
		t.Fatalf("expected 3 messages transitioned, got %d", affected)
	}

	history, err := service.GetHistory(ctx, coachID, models.RoleCoach, athleteID)
	if err != nil {
		t.Fatalf("GetHistory: %v", err)
	}
	for _, message := range history.Messages {
		if message.Status != models.MessageStatusSeen {
			t.Fatalf("message %d still %q", message.ID, message.Status)
		}
		if message.ReadAt == nil {
			t.Fatalf("message %d missing read_at", message.ID)
		}
	}

	replay, err := service.MarkConversationSeen(ctx, coachID, conversationID)
	if err != nil {
		t.Fatalf("MarkConversationSeen replay: %v", err)
	}
	if replay != 0 {
		t.Fatalf("expected replay to be a no-op, transitioned %d", replay)
	}
}

func TestDeleteForViewerHidesForRequesterOnly(t *testing.T) {
	ctx := context.Background()
	pool := integrationTestPool(t)
	registry := presence.NewRegistry()
	service := newIntegrationChatService(pool, registry)

	athleteID := createChatTestUser(t, ctx, pool, models.RoleAthlete)
	coachID := createChatTestUser(t, ctx, pool, models.RoleCoach)
	outsiderID := createChatTestUser(t, ctx, pool, models.RoleCoach)
	t.Cleanup(func() { cleanupChatTestUsers(t, ctx, pool, athleteID, coachID, outsiderID) })

	delivery, err := service.SendMessage(ctx, athleteID, models.RoleAthlete, coachID, "delete me")
	if err != nil {
		t.Fatalf("SendMessage: %v", err)
	}

	if err := service.DeleteForViewer(ctx, outsiderID, delivery.Message.ID); err != ErrForbidden {
		t.Fatalf("expected ErrForbidden for non-participant, got %v", err)
	}

	if err := service.DeleteForViewer(ctx, athleteID, delivery.Message.ID); err != nil {
		t.Fatalf("DeleteForViewer: %v", err)
	}
	// Idempotent replay.
	if err := service.DeleteForViewer(ctx, athleteID, delivery.Message.ID); err != nil {
		t.Fatalf("DeleteForViewer replay: %v", err)
	}

	athleteHistory, err := service.GetHistory(ctx, athleteID, models.RoleAthlete, coachID)
	if err != nil {
		t.Fatalf("GetHistory athlete: %v", err)
	}
	for _, message := range athleteHistory.Messages {
		if message.ID == delivery.Message.ID {
			t.Fatalf("hidden message still visible to requester")
		}
	}

	coachHistory, err := service.GetHistory(ctx, coachID, models.RoleCoach, athleteID)
	if err != nil {
		t.Fatalf("GetHistory coach: %v", err)
	}
	found := false
	for _, message := range coachHistory.Messages {
		if message.ID == delivery.Message.ID {
			found = true
		}
	}
	if !found {
		t.Fatalf("peer lost visibility of a message deleted for the requester")
	}
}

func TestUnreadCountExcludesSeenAndHidden(t *testing.T) {
	ctx := context.Background()
	pool := integrationTestPool(t)
	registry := presence.NewRegistry()
	service := newIntegrationChatService(pool, registry)

	athleteID := createChatTestUser(t, ctx, pool, models.RoleAthlete)
	coachID := createChatTestUser(t, ctx, pool, models.RoleCoach)
	t.Cleanup(func() { cleanupChatTestUsers(t, ctx, pool, athleteID, coachID) })

	var hiddenID int64
	for i := 0; i < 3; i++ {
		delivery, err := service.SendMessage(ctx, athleteID, models.RoleAthlete, coachID, fmt.Sprintf("note %d", i))
		if err != nil {
			t.Fatalf("SendMessage[%d]: %v", i, err)
		}
		if i == 0 {
			hiddenID = delivery.Message.ID
		}
	}

	if err := service.DeleteForViewer(ctx, coachID, hiddenID); err != nil {
		t.Fatalf("DeleteForViewer: %v", err)
	}

	summaries, err := service.ListConversations(ctx, coachID, models.RoleCoach)
	if err != nil {
		t.Fatalf("ListConversations: %v", err)
	}

	found := false
	for _, summary := range summaries {
		if summary.OtherUser.ID != athleteID {
			continue
		}
		found = true
		if summary.UnreadCount != 2 {
			t.Fatalf("expected unread count 2 (3 sent, 1 hidden), got %d", summary.UnreadCount)
		}
		if summary.LastMessage == nil || summary.LastMessage.Text != "note 2" {
			t.Fatalf("unexpected last message: %+v", summary.LastMessage)
		}
	}
	if !found {
		t.Fatalf("conversation with athlete %d not listed", athleteID)
	}

	// Ordering guarantee: history arrives in creation order.
	history, err := service.GetHistory(ctx, coachID, models.RoleCoach, athleteID)
	if err != nil {
		t.Fatalf("GetHistory: %v", err)
	}
	for i := 1; i < len(history.Messages); i++ {
		if history.Messages[i].ID < history.Messages[i-1].ID {
			t.Fatalf("history out of creation order: %d before %d", history.Messages[i-1].ID, history.Messages[i].ID)
		}
	}
}

func testEnvDBURL() string {
	return os.Getenv("TEST_DB_URL")
}
