package repository

import (
	"context"

	"github.com/Abhirup-261004/Innova-InjuryShield/internal/models"
)

type CheckinRepository struct {
	db DBTX
}

func NewCheckinRepository(db DBTX) *CheckinRepository {
	return &CheckinRepository{db: db}
}

func (r *CheckinRepository) Create(ctx context.Context, checkin *models.Checkin) error {
	query := `
		INSERT INTO checkins (user_id, sleep, fatigue, soreness, stress, pain_areas)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`
	return r.db.QueryRow(
		ctx,
		query,
		checkin.UserID,
		checkin.Sleep,
		checkin.Fatigue,
		checkin.Soreness,
		checkin.Stress,
		checkin.PainAreas,
	).Scan(&checkin.ID, &checkin.CreatedAt)
}

func (r *CheckinRepository) ListForUser(ctx context.Context, userID int64) ([]models.Checkin, error) {
	query := `
		SELECT id, user_id, sleep, fatigue, soreness, stress, pain_areas, created_at
		FROM checkins
		WHERE user_id = $1
		ORDER BY created_at ASC, id ASC
	`

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	checkins := make([]models.Checkin, 0)
	for rows.Next() {
		var checkin models.Checkin
		if err := rows.Scan(
			&checkin.ID,
			&checkin.UserID,
			&checkin.Sleep,
			&checkin.Fatigue,
			&checkin.Soreness,
			&checkin.Stress,
			&checkin.PainAreas,
			&checkin.CreatedAt,
		); err != nil {
			return nil, err
		}
		checkins = append(checkins, checkin)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return checkins, nil
}
