package controllers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/pomtime/rewards/services"
	"github.com/pomtime/rewards/utils"
)

// SessionController turns completed pomodoros and tasks into points.
type SessionController struct {
	awards *services.AwardService
}

func NewSessionController(awards *services.AwardService) *SessionController {
	return &SessionController{awards: awards}
}

type pomodoroRequest struct {
	DurationMinutes int    `json:"duration_minutes" binding:"required"`
	SessionType     string `json:"session_type"`
}

// CompletePomodoro pays for finished work sessions; breaks are acknowledged with zero points.
func (s *SessionController) CompletePomodoro(ctx *gin.Context) {
	uid, ok := requireUser(ctx)
	if !ok {
		return
	}
	var req pomodoroRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40001, "invalid payload")
		return
	}
	sessionType := strings.ToLower(strings.TrimSpace(req.SessionType))
	if sessionType == "" {
		sessionType = "work"
	}
	switch sessionType {
	case "work":
	case "short_break", "long_break", "break":
		utils.Success(ctx, gin.H{"session_type": sessionType, "awarded": decimal.Zero, "cap_exceeded": false})
		return
	default:
		utils.Error(ctx, http.StatusBadRequest, 40001, "unknown session_type")
		return
	}

	res, err := s.awards.AwardForSession(ctx.Request.Context(), uid, req.DurationMinutes)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, res)
}

type taskCompleteRequest struct {
	DurationMinutes int              `json:"duration_minutes"`
	Points          *decimal.Decimal `json:"points"`
}

// CompleteTask pays for a finished task once.
func (s *SessionController) CompleteTask(ctx *gin.Context) {
	uid, ok := requireUser(ctx)
	if !ok {
		return
	}
	var req taskCompleteRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40001, "invalid payload")
		return
	}
	res, err := s.awards.AwardForTask(ctx.Request.Context(), uid, ctx.Param("id"), req.DurationMinutes, req.Points)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, res)
}
