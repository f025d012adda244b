package models

import "time"

// Friendship is a directed friend edge used to build the friends leaderboard.
type Friendship struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"uniqueIndex:idx_friend_pair;not null" json:"user_id"`
	FriendID  uint      `gorm:"uniqueIndex:idx_friend_pair;not null" json:"friend_id"`
	CreatedAt time.Time `json:"created_at"`
}
