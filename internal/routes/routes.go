package routes

import (
	websocket "github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Abhirup-261004/Innova-InjuryShield/internal/config"
	"github.com/Abhirup-261004/Innova-InjuryShield/internal/handlers"
	"github.com/Abhirup-261004/Innova-InjuryShield/internal/middleware"
	"github.com/Abhirup-261004/Innova-InjuryShield/internal/presence"
	"github.com/Abhirup-261004/Innova-InjuryShield/internal/repository"
	"github.com/Abhirup-261004/Innova-InjuryShield/internal/services"
	chatws "github.com/Abhirup-261004/Innova-InjuryShield/internal/websocket"
)

func RegisterRoutes(app *fiber.App, cfg *config.Config, db *pgxpool.Pool) {
	userRepo := repository.NewUserRepository(db)
	conversationRepo := repository.NewConversationRepository(db)
	messageRepo := repository.NewMessageRepository(db)
	checkinRepo := repository.NewCheckinRepository(db)

	registry := presence.NewRegistry()
	chatHub := chatws.NewHub(registry)
	go chatHub.Run()

	chatService := services.NewChatService(db, conversationRepo, messageRepo, userRepo, registry)

	authHandler := handlers.NewAuthHandler(userRepo, cfg.JWTSecret)
	chatHandler := handlers.NewChatHandler(chatService, chatHub, userRepo, cfg.JWTSecret)
	checkinHandler := handlers.NewCheckinHandler(checkinRepo)

	api := app.Group("/api")

	auth := api.Group("/auth")
	auth.Post("/register", authHandler.Register)
	auth.Post("/login", authHandler.Login)
	auth.Get("/me", middleware.AuthRequired(cfg.JWTSecret), authHandler.Me)

	authProtected := api.Group("/v1", middleware.AuthRequired(cfg.JWTSecret))

	chat := authProtected.Group("/chat")
	chat.Get("/contacts", chatHandler.ListContacts)
	chat.Get("/conversations", chatHandler.ListConversations)
	chat.Get("/:otherUserId/messages", chatHandler.GetHistory)
	chat.Delete("/message/:messageId", chatHandler.DeleteForMe)

	checkins := authProtected.Group("/checkins")
	checkins.Post("", checkinHandler.Create)
	checkins.Get("", checkinHandler.List)

	api.Use("/v1/ws", chatHandler.WebSocketAuth)
	api.Get("/v1/ws", websocket.New(chatHandler.HandleWebSocket))
}
