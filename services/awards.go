package services

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/pomtime/rewards/models"
)

// MaxSessionMinutes bounds a single reported session or task duration.
const MaxSessionMinutes = 24 * 60

// AwardResult reports a session or task award.
type AwardResult struct {
	Computed    decimal.Decimal `json:"computed"`
	Awarded     decimal.Decimal `json:"awarded"`
	CapExceeded bool            `json:"cap_exceeded"`
	Points      decimal.Decimal `json:"total_points"`
	DailyEarned decimal.Decimal `json:"daily_points"`
}

// AwardService converts completed focus time into capped point credits.
type AwardService struct {
	ledger *Ledger
}

func NewAwardService(ledger *Ledger) *AwardService {
	return &AwardService{ledger: ledger}
}

// PointsForDuration is one point per half hour, rounded half away from zero,
// never less than one.
func PointsForDuration(minutes int) decimal.Decimal {
	p := int64(math.Round(float64(minutes) / 30))
	if p < 1 {
		p = 1
	}
	return decimal.NewFromInt(p)
}

func validateMinutes(minutes int) error {
	if minutes <= 0 {
		return invalidRequest("duration_minutes must be positive")
	}
	if minutes > MaxSessionMinutes {
		return invalidRequest("duration_minutes must not exceed %d", MaxSessionMinutes)
	}
	return nil
}

// AwardForSession credits a completed work session.
func (s *AwardService) AwardForSession(ctx context.Context, userID uint, minutes int) (AwardResult, error) {
	if err := validateMinutes(minutes); err != nil {
		return AwardResult{}, err
	}
	computed := PointsForDuration(minutes)
	res, err := s.ledger.Credit(ctx, userID, computed, CategoryDailyCapped, models.SourceSession, "")
	if err != nil {
		return AwardResult{}, err
	}
	s.ledger.log.Info("session award",
		zap.Uint("user_id", userID),
		zap.Int("minutes", minutes),
		zap.String("awarded", res.Awarded.String()),
		zap.Bool("cap_exceeded", res.CapExceeded))
	return AwardResult{
		Computed:    computed,
		Awarded:     res.Awarded,
		CapExceeded: res.CapExceeded,
		Points:      res.Points,
		DailyEarned: res.DailyEarned,
	}, nil
}

// AwardForTask credits a completed task once. explicit overrides the duration formula.
func (s *AwardService) AwardForTask(ctx context.Context, userID uint, taskID string, minutes int, explicit *decimal.Decimal) (AwardResult, error) {
	taskID = strings.TrimSpace(taskID)
	if taskID == "" || len(taskID) > 64 {
		return AwardResult{}, invalidRequest("task id must be 1 to 64 characters")
	}
	var computed decimal.Decimal
	if explicit != nil {
		if !explicit.IsPositive() {
			return AwardResult{}, invalidRequest("task points must be positive")
		}
		computed = *explicit
	} else {
		if err := validateMinutes(minutes); err != nil {
			return AwardResult{}, err
		}
		computed = PointsForDuration(minutes)
	}

	var out AwardResult
	err := s.ledger.withUser(ctx, userID, func(tx *gorm.DB, econ *models.UserEconomy, now time.Time) error {
		var prior models.TaskAward
		err := tx.Where("user_id = ? AND task_id = ?", userID, taskID).Take(&prior).Error
		if err == nil {
			return &Error{
				Kind:    KindInvalidRequest,
				Message: "task already rewarded",
				Details: map[string]interface{}{"task_id": taskID, "rewarded_at": prior.CreatedAt},
			}
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		credit, err := s.ledger.applyCredit(econ, computed, CategoryDailyCapped, now)
		if err != nil {
			return err
		}
		if err := tx.Create(&models.TaskAward{
			UserID:          userID,
			TaskID:          taskID,
			DurationMinutes: minutes,
			PointsAwarded:   credit.Awarded,
		}).Error; err != nil {
			return err
		}
		if err := appendPointsLog(tx, userID, credit.Awarded, econ.Points, models.SourceTask, taskID); err != nil {
			return err
		}
		out = AwardResult{
			Computed:    computed,
			Awarded:     credit.Awarded,
			CapExceeded: credit.CapExceeded,
			Points:      econ.Points,
			DailyEarned: econ.DailyPointsEarned,
		}
		return nil
	})
	if err != nil {
		return AwardResult{}, err
	}
	s.ledger.log.Info("task award",
		zap.Uint("user_id", userID),
		zap.String("task_id", taskID),
		zap.String("awarded", out.Awarded.String()))
	return out, nil
}
