package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// CollectionEntry counts the copies of one reward a user owns. Entries are zeroed on
// release and never deleted, so "ever obtained" stays answerable.
type CollectionEntry struct {
	ID              uint      `gorm:"primaryKey" json:"-"`
	UserID          uint      `gorm:"uniqueIndex:idx_collection_user_reward;not null" json:"-"`
	RewardName      string    `gorm:"uniqueIndex:idx_collection_user_reward;size:64;not null" json:"reward"`
	Rarity          int       `gorm:"not null" json:"rarity"`
	Count           int64     `gorm:"not null;default:0" json:"count"`
	TotalObtained   int64     `gorm:"not null;default:0" json:"total_obtained"`
	FirstObtainedAt time.Time `json:"first_obtained_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// RollLog is the audit trail of a single roll call.
type RollLog struct {
	ID          uint            `gorm:"primaryKey" json:"-"`
	RollID      string          `gorm:"size:36;uniqueIndex;not null" json:"roll_id"`
	UserID      uint            `gorm:"index;not null" json:"user_id"`
	Count       int             `gorm:"not null" json:"count"`
	Cost        decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"cost"`
	Draws       datatypes.JSON  `json:"draws"`
	PointsAfter decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"points_after"`
	CreatedAt   time.Time       `json:"created_at"`
}
