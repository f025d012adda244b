package services

import (
	"time"

	"github.com/shopspring/decimal"
)

// Settings are the tunable economy parameters shared by every service.
type Settings struct {
	DailyCap        decimal.Decimal
	DailyWindow     time.Duration
	CheckinReward   decimal.Decimal
	CheckinCooldown time.Duration
	RollCost        decimal.Decimal
	LevelBaseXP     int64
	ReleaseXP       map[int]int64
}

// DefaultSettings returns the stock economy: 50 points per 24h window, 5-point
// check-in every 24h, 1 point per roll and {3:25, 4:75, 5:200} release XP.
func DefaultSettings() Settings {
	return Settings{
		DailyCap:        decimal.NewFromInt(50),
		DailyWindow:     24 * time.Hour,
		CheckinReward:   decimal.NewFromInt(5),
		CheckinCooldown: 24 * time.Hour,
		RollCost:        decimal.NewFromInt(1),
		LevelBaseXP:     100,
		ReleaseXP:       map[int]int64{3: 25, 4: 75, 5: 200},
	}
}

func (s Settings) withDefaults() Settings {
	d := DefaultSettings()
	if s.DailyCap.IsZero() {
		s.DailyCap = d.DailyCap
	}
	if s.DailyWindow <= 0 {
		s.DailyWindow = d.DailyWindow
	}
	if s.CheckinReward.IsZero() {
		s.CheckinReward = d.CheckinReward
	}
	if s.CheckinCooldown <= 0 {
		s.CheckinCooldown = d.CheckinCooldown
	}
	if s.RollCost.IsZero() {
		s.RollCost = d.RollCost
	}
	if s.LevelBaseXP <= 0 {
		s.LevelBaseXP = d.LevelBaseXP
	}
	if len(s.ReleaseXP) == 0 {
		s.ReleaseXP = d.ReleaseXP
	}
	return s
}
