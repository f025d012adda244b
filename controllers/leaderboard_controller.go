package controllers

import (
	"fmt"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/pomtime/rewards/services"
	"github.com/pomtime/rewards/utils"
)

const (
	leaderboardCachePrefix = "leaderboard:"
	leaderboardCacheTTL    = 30 * time.Second
)

// LeaderboardController serves rankings and friend edges.
type LeaderboardController struct {
	board *services.Leaderboard
	size  int
}

func NewLeaderboardController(board *services.Leaderboard, size int) *LeaderboardController {
	if size <= 0 {
		size = 50
	}
	return &LeaderboardController{board: board, size: size}
}

// Global returns the top users, cached briefly in Redis.
func (l *LeaderboardController) Global(ctx *gin.Context) {
	limit := l.size
	if v, err := strconv.Atoi(ctx.Query("limit")); err == nil && v > 0 && v <= l.size {
		limit = v
	}
	key := fmt.Sprintf("%sglobal:%d", leaderboardCachePrefix, limit)

	var entries []services.LeaderboardEntry
	if !utils.CacheGetJSON(ctx.Request.Context(), key, &entries) {
		var err error
		entries, err = l.board.Global(ctx.Request.Context(), limit)
		if err != nil {
			respondError(ctx, err)
			return
		}
		utils.CacheSetJSON(ctx.Request.Context(), key, entries, leaderboardCacheTTL)
	}
	if uid, ok := getUserID(ctx); ok {
		for i := range entries {
			entries[i].IsSelf = entries[i].UserID == uid
		}
	}
	utils.Success(ctx, gin.H{"entries": entries})
}

// Friends ranks the caller among their friends.
func (l *LeaderboardController) Friends(ctx *gin.Context) {
	uid, ok := requireUser(ctx)
	if !ok {
		return
	}
	entries, err := l.board.Friends(ctx.Request.Context(), uid)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"entries": entries})
}

// AddFriend adds the user in :id to the caller's friends.
func (l *LeaderboardController) AddFriend(ctx *gin.Context) {
	uid, ok := requireUser(ctx)
	if !ok {
		return
	}
	fid, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}
	if err := l.board.AddFriend(ctx.Request.Context(), uid, fid); err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"friend_id": fid})
}

// RemoveFriend removes the user in :id from the caller's friends.
func (l *LeaderboardController) RemoveFriend(ctx *gin.Context) {
	uid, ok := requireUser(ctx)
	if !ok {
		return
	}
	fid, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}
	if err := l.board.RemoveFriend(ctx.Request.Context(), uid, fid); err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"friend_id": fid})
}
