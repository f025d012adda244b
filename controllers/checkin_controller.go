package controllers

import (
	"github.com/gin-gonic/gin"

	"github.com/pomtime/rewards/services"
	"github.com/pomtime/rewards/utils"
)

// CheckinController handles the daily check-in endpoints.
type CheckinController struct {
	limiter *services.CheckinLimiter
}

func NewCheckinController(limiter *services.CheckinLimiter) *CheckinController {
	return &CheckinController{limiter: limiter}
}

// Status reports availability and the next claim time.
func (c *CheckinController) Status(ctx *gin.Context) {
	uid, ok := requireUser(ctx)
	if !ok {
		return
	}
	st, err := c.limiter.Status(ctx.Request.Context(), uid)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, st)
}

// Claim grants the check-in reward.
func (c *CheckinController) Claim(ctx *gin.Context) {
	uid, ok := requireUser(ctx)
	if !ok {
		return
	}
	res, err := c.limiter.Claim(ctx.Request.Context(), uid)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, res)
}
