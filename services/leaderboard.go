package services

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/pomtime/rewards/models"
)

// LeaderboardEntry is one ranked row.
type LeaderboardEntry struct {
	Rank       int    `json:"rank"`
	UserID     uint   `json:"user_id"`
	Username   string `json:"username"`
	Experience int64  `json:"experience"`
	Level      int    `json:"level"`
	IsSelf     bool   `json:"is_self,omitempty"`
}

// Leaderboard ranks users by experience, ties broken by user id.
type Leaderboard struct {
	ledger *Ledger
}

func NewLeaderboard(ledger *Ledger) *Leaderboard {
	return &Leaderboard{ledger: ledger}
}

func (b *Leaderboard) rank(rows []models.UserEconomy, self uint) []LeaderboardEntry {
	out := make([]LeaderboardEntry, 0, len(rows))
	for i, r := range rows {
		out = append(out, LeaderboardEntry{
			Rank:       i + 1,
			UserID:     r.UserID,
			Username:   r.Username,
			Experience: r.Experience,
			Level:      b.ledger.curve.LevelOf(r.Experience).Level,
			IsSelf:     self != 0 && r.UserID == self,
		})
	}
	return out
}

// Global returns the top limit users.
func (b *Leaderboard) Global(ctx context.Context, limit int) ([]LeaderboardEntry, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	var rows []models.UserEconomy
	err := b.ledger.db.WithContext(ctx).
		Select("user_id", "username", "experience").
		Order("experience DESC").Order("user_id ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, internal(err)
	}
	return b.rank(rows, 0), nil
}

// Friends ranks the caller together with everyone they have added.
func (b *Leaderboard) Friends(ctx context.Context, userID uint) ([]LeaderboardEntry, error) {
	db := b.ledger.db.WithContext(ctx)
	var friendIDs []uint
	if err := db.Model(&models.Friendship{}).Where("user_id = ?", userID).Pluck("friend_id", &friendIDs).Error; err != nil {
		return nil, internal(err)
	}
	ids := append(friendIDs, userID)
	var rows []models.UserEconomy
	err := db.Select("user_id", "username", "experience").
		Where("user_id IN ?", ids).
		Order("experience DESC").Order("user_id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, internal(err)
	}
	return b.rank(rows, userID), nil
}

// AddFriend records a directed friend edge. Adding twice is a no-op.
func (b *Leaderboard) AddFriend(ctx context.Context, userID, friendID uint) error {
	if friendID == 0 || friendID == userID {
		return invalidRequest("cannot add yourself as a friend")
	}
	db := b.ledger.db.WithContext(ctx)
	var target models.UserEconomy
	err := db.Select("user_id").Where("user_id = ?", friendID).Take(&target).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return invalidRequest("user %d not found", friendID)
	}
	if err != nil {
		return internal(err)
	}
	err = db.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.Friendship{UserID: userID, FriendID: friendID}).Error
	if err != nil {
		return internal(err)
	}
	return nil
}

// RemoveFriend deletes the edge if it exists.
func (b *Leaderboard) RemoveFriend(ctx context.Context, userID, friendID uint) error {
	err := b.ledger.db.WithContext(ctx).
		Where("user_id = ? AND friend_id = ?", userID, friendID).
		Delete(&models.Friendship{}).Error
	if err != nil {
		return internal(err)
	}
	return nil
}
