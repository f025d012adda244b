package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// UserEconomy is the per-user balance record: spendable points, experience and the
// daily earning window. It is created lazily on first authenticated access.
type UserEconomy struct {
	UserID            uint            `gorm:"primaryKey;autoIncrement:false" json:"user_id"`
	Username          string          `gorm:"size:64" json:"username"`
	Points            decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"points"`
	Experience        int64           `gorm:"not null;default:0;index" json:"experience"`
	DailyPointsEarned decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"daily_points_earned"`
	DailyWindowStart  time.Time       `gorm:"not null" json:"daily_window_start"`
	LastCheckinAt     *time.Time      `json:"last_checkin_at"`
	NextCheckinAt     *time.Time      `json:"next_checkin_at"`
	CheckinCount      int64           `gorm:"not null;default:0" json:"checkin_count"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// PointsLog records every ledger mutation with the balance it produced.
type PointsLog struct {
	ID           uint            `gorm:"primaryKey" json:"id"`
	UserID       uint            `gorm:"index;not null" json:"user_id"`
	Amount       decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"amount"`
	BalanceAfter decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"balance_after"`
	Source       string          `gorm:"size:32;not null" json:"source"`
	Reference    string          `gorm:"size:64;index" json:"reference"`
	CreatedAt    time.Time       `json:"created_at"`
}

// Points log sources.
const (
	SourceSession = "session"
	SourceTask    = "task"
	SourceCheckin = "checkin"
	SourceRoll    = "roll"
	SourceGrant   = "grant"
)
