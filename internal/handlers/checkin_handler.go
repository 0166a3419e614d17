package handlers

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/Abhirup-261004/Innova-InjuryShield/internal/models"
)

type checkinStore interface {
	Create(ctx context.Context, checkin *models.Checkin) error
	ListForUser(ctx context.Context, userID int64) ([]models.Checkin, error)
}

type CheckinHandler struct {
	repo     checkinStore
	validate *validator.Validate
}

func NewCheckinHandler(repo checkinStore) *CheckinHandler {
	return &CheckinHandler{
		repo:     repo,
		validate: validator.New(),
	}
}

type checkinRequest struct {
	Sleep     int      `json:"sleep" validate:"min=0,max=10"`
	Fatigue   int      `json:"fatigue" validate:"min=0,max=10"`
	Soreness  int      `json:"soreness" validate:"min=0,max=10"`
	Stress    int      `json:"stress" validate:"min=0,max=10"`
	PainAreas []string `json:"pain_areas" validate:"dive,required"`
}

func (h *CheckinHandler) Create(c *fiber.Ctx) error {
	userID, err := parseAuthUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	var req checkinRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := h.validate.Struct(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Scores must be between 0 and 10"})
	}

	painAreas := req.PainAreas
	if painAreas == nil {
		painAreas = []string{}
	}

	checkin := &models.Checkin{
		UserID:    userID,
		Sleep:     req.Sleep,
		Fatigue:   req.Fatigue,
		Soreness:  req.Soreness,
		Stress:    req.Stress,
		PainAreas: painAreas,
	}
	if err := h.repo.Create(c.Context(), checkin); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to save check-in"})
	}

	return c.Status(fiber.StatusCreated).JSON(checkin)
}

func (h *CheckinHandler) List(c *fiber.Ctx) error {
	userID, err := parseAuthUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	checkins, err := h.repo.ListForUser(c.Context(), userID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch check-ins"})
	}

	return c.JSON(fiber.Map{"checkins": checkins})
}
