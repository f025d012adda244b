package services

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/pomtime/rewards/models"
)

// Check-in states.
const (
	CheckinAvailable  = "available"
	CheckinOnCooldown = "on_cooldown"
)

// CheckinStatus describes whether the daily check-in can be claimed now.
type CheckinStatus struct {
	State         string          `json:"state"`
	CanCheckIn    bool            `json:"can_check_in"`
	LastCheckinAt *time.Time      `json:"last_checkin_at"`
	NextCheckinAt *time.Time      `json:"next_checkin_at"`
	Reward        decimal.Decimal `json:"reward"`
	CheckinCount  int64           `json:"checkin_count"`
}

// CheckinResult is returned by a successful claim.
type CheckinResult struct {
	Awarded       decimal.Decimal `json:"awarded"`
	CapExceeded   bool            `json:"cap_exceeded"`
	Points        decimal.Decimal `json:"total_points"`
	DailyEarned   decimal.Decimal `json:"daily_points"`
	LastCheckinAt time.Time       `json:"last_checkin_at"`
	NextCheckinAt time.Time       `json:"next_checkin_at"`
	CheckinCount  int64           `json:"checkin_count"`
}

// CheckinLimiter grants the daily check-in reward at most once per cooldown.
type CheckinLimiter struct {
	ledger *Ledger
}

func NewCheckinLimiter(ledger *Ledger) *CheckinLimiter {
	return &CheckinLimiter{ledger: ledger}
}

// Status reports the current cooldown without mutating anything.
func (c *CheckinLimiter) Status(ctx context.Context, userID uint) (CheckinStatus, error) {
	now := c.ledger.now()
	st := CheckinStatus{
		State:      CheckinAvailable,
		CanCheckIn: true,
		Reward:     c.ledger.settings.CheckinReward,
	}
	var econ models.UserEconomy
	err := c.ledger.db.WithContext(ctx).Where("user_id = ?", userID).Take(&econ).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return st, nil
	}
	if err != nil {
		return CheckinStatus{}, internal(err)
	}
	st.LastCheckinAt = econ.LastCheckinAt
	st.CheckinCount = econ.CheckinCount
	if econ.NextCheckinAt != nil && now.Before(*econ.NextCheckinAt) {
		st.State = CheckinOnCooldown
		st.CanCheckIn = false
		st.NextCheckinAt = econ.NextCheckinAt
	}
	return st, nil
}

// Claim credits the check-in reward against the daily cap and starts the next cooldown.
// A claim rejected for any reason, including a full daily cap, leaves the cooldown as it was.
func (c *CheckinLimiter) Claim(ctx context.Context, userID uint) (CheckinResult, error) {
	var out CheckinResult
	err := c.ledger.withUser(ctx, userID, func(tx *gorm.DB, econ *models.UserEconomy, now time.Time) error {
		if econ.NextCheckinAt != nil && now.Before(*econ.NextCheckinAt) {
			next := *econ.NextCheckinAt
			return &Error{
				Kind:    KindTooEarly,
				Message: "already checked in, come back later",
				Details: map[string]interface{}{
					"next_checkin_at":   next,
					"remaining_seconds": int64(next.Sub(now).Seconds()),
				},
			}
		}
		credit, err := c.ledger.applyCredit(econ, c.ledger.settings.CheckinReward, CategoryDailyCapped, now)
		if err != nil {
			return err
		}
		last := now
		next := now.Add(c.ledger.settings.CheckinCooldown)
		econ.LastCheckinAt = &last
		econ.NextCheckinAt = &next
		econ.CheckinCount++
		if err := appendPointsLog(tx, userID, credit.Awarded, econ.Points, models.SourceCheckin, ""); err != nil {
			return err
		}
		out = CheckinResult{
			Awarded:       credit.Awarded,
			CapExceeded:   credit.CapExceeded,
			Points:        econ.Points,
			DailyEarned:   econ.DailyPointsEarned,
			LastCheckinAt: last,
			NextCheckinAt: next,
			CheckinCount:  econ.CheckinCount,
		}
		return nil
	})
	if err != nil {
		return CheckinResult{}, err
	}
	c.ledger.log.Info("daily check-in",
		zap.Uint("user_id", userID),
		zap.String("awarded", out.Awarded.String()),
		zap.Time("next_checkin_at", out.NextCheckinAt))
	return out, nil
}
