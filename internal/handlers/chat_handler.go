package handlers

import (
	"context"
	"errors"
	"strconv"
	"strings"

	websocket "github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"

	"github.com/Abhirup-261004/Innova-InjuryShield/internal/models"
	"github.com/Abhirup-261004/Innova-InjuryShield/internal/services"
	chatws "github.com/Abhirup-261004/Innova-InjuryShield/internal/websocket"
	"github.com/Abhirup-261004/Innova-InjuryShield/pkg/utils"
)

type chatApplicationService interface {
	ListContacts(ctx context.Context, role string) ([]models.Contact, error)
	ListConversations(ctx context.Context, viewerID int64, role string) ([]models.ConversationSummary, error)
	GetHistory(ctx context.Context, viewerID int64, viewerRole string, otherID int64) (*models.ChatHistory, error)
	DeleteForViewer(ctx context.Context, viewerID int64, messageID int64) error
	SendMessage(ctx context.Context, senderID int64, senderRole string, receiverID int64, text string) (*services.ChatDelivery, error)
	MarkConversationSeen(ctx context.Context, viewerID int64, conversationID int64) (int64, error)
}

type wsUserReader interface {
	GetByID(ctx context.Context, id int64) (*models.User, error)
}

type ChatHandler struct {
	service   chatApplicationService
	hub       *chatws.Hub
	userRepo  wsUserReader
	jwtSecret string
}

func NewChatHandler(
	service chatApplicationService,
	hub *chatws.Hub,
	userRepo wsUserReader,
	jwtSecret string,
) *ChatHandler {
	return &ChatHandler{
		service:   service,
		hub:       hub,
		userRepo:  userRepo,
		jwtSecret: jwtSecret,
	}
}

func (h *ChatHandler) ListContacts(c *fiber.Ctx) error {
	role, ok := c.Locals("role").(string)
	if !ok {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}

	contacts, err := h.service.ListContacts(c.Context(), role)
	if err != nil {
		return mapChatError(c, err)
	}

	return c.JSON(fiber.Map{"contacts": contacts})
}

func (h *ChatHandler) ListConversations(c *fiber.Ctx) error {
	role, ok := c.Locals("role").(string)
	if !ok {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}

	userID, err := parseAuthUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	conversations, err := h.service.ListConversations(c.Context(), userID, role)
	if err != nil {
		return mapChatError(c, err)
	}

	return c.JSON(fiber.Map{"conversations": conversations})
}

func (h *ChatHandler) GetHistory(c *fiber.Ctx) error {
	role, ok := c.Locals("role").(string)
	if !ok {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}

	userID, err := parseAuthUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	otherID, err := strconv.ParseInt(c.Params("otherUserId"), 10, 64)
	if err != nil || otherID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid user id"})
	}

	history, err := h.service.GetHistory(c.Context(), userID, role, otherID)
	if err != nil {
		return mapChatError(c, err)
	}

	return c.JSON(history)
}

func (h *ChatHandler) DeleteForMe(c *fiber.Ctx) error {
	userID, err := parseAuthUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	messageID, err := strconv.ParseInt(c.Params("messageId"), 10, 64)
	if err != nil || messageID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid message id"})
	}

	if err := h.service.DeleteForViewer(c.Context(), userID, messageID); err != nil {
		return mapChatError(c, err)
	}

	return c.JSON(fiber.Map{"ok": true})
}

// WebSocketAuth is the connection gatekeeper: it validates the handshake
// token and resolves the subject against the user store before the
// upgrade. Any failure refuses the connection.
func (h *ChatHandler) WebSocketAuth(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return c.Status(fiber.StatusUpgradeRequired).JSON(fiber.Map{"error": "WebSocket upgrade required"})
	}

	claims, err := h.parseWSClaims(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid or expired token"})
	}

	userID, err := strconv.ParseInt(claims.UserID, 10, 64)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid or expired token"})
	}

	user, err := h.userRepo.GetByID(c.Context(), userID)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid or expired token"})
	}

	c.Locals("user_id", strconv.FormatInt(user.ID, 10))
	c.Locals("role", user.Role)
	return c.Next()
}

func (h *ChatHandler) HandleWebSocket(conn *websocket.Conn) {
	userIDStr, _ := conn.Locals("user_id").(string)
	role, _ := conn.Locals("role").(string)

	userID, err := strconv.ParseInt(userIDStr, 10, 64)
	if err != nil {
		_ = conn.Close()
		return
	}

	client := chatws.NewClient(h.hub, conn, userID, role)

	h.hub.Register(client)
	go client.WritePump()
	client.ReadPump(h.service)
}

func (h *ChatHandler) parseWSClaims(c *fiber.Ctx) (*utils.Claims, error) {
	tokenString := strings.TrimSpace(c.Query("token"))
	if tokenString == "" {
		authHeader := strings.TrimSpace(c.Get("Authorization"))
		if authHeader != "" {
			parts := strings.Split(authHeader, " ")
			if len(parts) == 2 && parts[0] == "Bearer" {
				tokenString = parts[1]
			}
		}
	}

	if tokenString == "" {
		return nil, errors.New("missing token")
	}

	return utils.ValidateToken(tokenString, h.jwtSecret)
}

func parseAuthUserID(c *fiber.Ctx) (int64, error) {
	userIDValue := c.Locals("user_id")
	userIDStr, ok := userIDValue.(string)
	if !ok {
		return 0, strconv.ErrSyntax
	}
	return strconv.ParseInt(userIDStr, 10, 64)
}

func mapChatError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrChatNotAllowed):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Chat not allowed"})
	case errors.Is(err, services.ErrForbidden):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	case errors.Is(err, services.ErrInvalidInput):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request"})
	case errors.Is(err, services.ErrUserNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "User not found"})
	case errors.Is(err, services.ErrMessageNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Message not found"})
	case errors.Is(err, pgx.ErrNoRows):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Not found"})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to process chat request"})
	}
}
