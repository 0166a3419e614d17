package models

import "time"

type Checkin struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Sleep     int       `json:"sleep"`
	Fatigue   int       `json:"fatigue"`
	Soreness  int       `json:"soreness"`
	Stress    int       `json:"stress"`
	PainAreas []string  `json:"pain_areas"`
	CreatedAt time.Time `json:"created_at"`
}
