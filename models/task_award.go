package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TaskAward marks a completed task as paid so repeated completion events are rejected.
type TaskAward struct {
	ID              uint            `gorm:"primaryKey" json:"id"`
	UserID          uint            `gorm:"uniqueIndex:idx_task_award_user_task;not null" json:"user_id"`
	TaskID          string          `gorm:"uniqueIndex:idx_task_award_user_task;size:64;not null" json:"task_id"`
	DurationMinutes int             `json:"duration_minutes"`
	PointsAwarded   decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"points_awarded"`
	CreatedAt       time.Time       `json:"created_at"`
}
