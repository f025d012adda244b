package controllers

import (
	"github.com/gin-gonic/gin"

	"github.com/pomtime/rewards/services"
	"github.com/pomtime/rewards/utils"
)

// ConfigController exposes the public economy parameters the frontend displays.
type ConfigController struct {
	settings services.Settings
}

func NewConfigController(settings services.Settings) *ConfigController {
	return &ConfigController{settings: settings}
}

// GetEconomy returns caps, costs and the release XP table.
func (c *ConfigController) GetEconomy(ctx *gin.Context) {
	s := c.settings
	utils.Success(ctx, gin.H{
		"daily_point_cap":        s.DailyCap,
		"daily_window_hours":     s.DailyWindow.Hours(),
		"checkin_reward":         s.CheckinReward,
		"checkin_cooldown_hours": s.CheckinCooldown.Hours(),
		"roll_cost":              s.RollCost,
		"roll_counts":            []int{1, 10},
		"level_base_xp":          s.LevelBaseXP,
		"release_xp":             s.ReleaseXP,
		"minutes_per_point":      30,
	})
}
