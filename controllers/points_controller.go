package controllers

import (
	"github.com/gin-gonic/gin"

	"github.com/pomtime/rewards/services"
	"github.com/pomtime/rewards/utils"
)

// PointsController serves balance reads.
type PointsController struct {
	ledger *services.Ledger
}

func NewPointsController(ledger *services.Ledger) *PointsController {
	return &PointsController{ledger: ledger}
}

// GetPoints returns the full balance view.
func (p *PointsController) GetPoints(ctx *gin.Context) {
	uid, ok := requireUser(ctx)
	if !ok {
		return
	}
	view, err := p.ledger.Balance(ctx.Request.Context(), uid)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, view)
}

// GetDailyPoints returns only the daily earning window.
func (p *PointsController) GetDailyPoints(ctx *gin.Context) {
	uid, ok := requireUser(ctx)
	if !ok {
		return
	}
	view, err := p.ledger.Balance(ctx.Request.Context(), uid)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{
		"daily_points":     view.DailyEarned,
		"daily_cap":        view.DailyCap,
		"daily_remaining":  view.DailyRemaining,
		"window_resets_at": view.WindowResetsAt,
	})
}
