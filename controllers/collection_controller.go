package controllers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/pomtime/rewards/services"
	"github.com/pomtime/rewards/utils"
)

// CollectionController serves the inventory and releases.
type CollectionController struct {
	store *services.CollectionStore
}

func NewCollectionController(store *services.CollectionStore) *CollectionController {
	return &CollectionController{store: store}
}

// List returns every reward with the caller's counts.
func (c *CollectionController) List(ctx *gin.Context) {
	uid, ok := requireUser(ctx)
	if !ok {
		return
	}
	view, err := c.store.List(ctx.Request.Context(), uid)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, view)
}

type releaseRequest struct {
	Reward string `json:"reward" binding:"required"`
	Count  int64  `json:"count"`
}

// Release converts copies into experience. A missing count releases one copy.
func (c *CollectionController) Release(ctx *gin.Context) {
	uid, ok := requireUser(ctx)
	if !ok {
		return
	}
	var req releaseRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40001, "invalid payload")
		return
	}
	if req.Count == 0 {
		req.Count = 1
	}
	res, err := c.store.Release(ctx.Request.Context(), uid, strings.TrimSpace(req.Reward), req.Count)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.InvalidateByPrefix(ctx.Request.Context(), leaderboardCachePrefix)
	utils.Success(ctx, res)
}

// ProfileStats returns level, experience and collection totals.
func (c *CollectionController) ProfileStats(ctx *gin.Context) {
	uid, ok := requireUser(ctx)
	if !ok {
		return
	}
	stats, err := c.store.ProfileStats(ctx.Request.Context(), uid)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, stats)
}
