package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pomtime/rewards/services"
	"github.com/pomtime/rewards/utils"
)

// GachaController exposes rolls and the banner odds.
type GachaController struct {
	engine *services.RollEngine
}

func NewGachaController(engine *services.RollEngine) *GachaController {
	return &GachaController{engine: engine}
}

type rollRequest struct {
	Count int `json:"count"`
}

// Roll spends points for 1 or 10 draws. A missing count means a single roll.
func (g *GachaController) Roll(ctx *gin.Context) {
	uid, ok := requireUser(ctx)
	if !ok {
		return
	}
	var req rollRequest
	if ctx.Request.ContentLength != 0 {
		if err := ctx.ShouldBindJSON(&req); err != nil {
			utils.Error(ctx, http.StatusBadRequest, 40001, "invalid payload")
			return
		}
	}
	if req.Count == 0 {
		req.Count = 1
	}
	res, err := g.engine.Roll(ctx.Request.Context(), uid, req.Count)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, res)
}

// Pool lists tiers, their odds and rewards.
func (g *GachaController) Pool(ctx *gin.Context) {
	utils.Success(ctx, gin.H{"tiers": g.engine.Table().Tiers()})
}
