package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/pomtime/rewards/models"
)

// Locker serializes work per key. Lock blocks for a bounded time and returns an
// error when the key stays held; the returned func releases the lock.
type Locker interface {
	Lock(ctx context.Context, key string) (func(), error)
}

// Category selects whether a credit counts against the daily earning cap.
type Category int

const (
	CategoryDailyCapped Category = iota
	CategoryUncapped
)

// CreditResult reports what a credit actually did.
type CreditResult struct {
	Requested      decimal.Decimal `json:"requested"`
	Awarded        decimal.Decimal `json:"awarded"`
	CapExceeded    bool            `json:"cap_exceeded"`
	Points         decimal.Decimal `json:"total_points"`
	DailyEarned    decimal.Decimal `json:"daily_points"`
	DailyRemaining decimal.Decimal `json:"daily_remaining"`
	WindowResetsAt time.Time       `json:"window_resets_at"`
}

// DebitResult reports the balance after a debit.
type DebitResult struct {
	Debited decimal.Decimal `json:"debited"`
	Points  decimal.Decimal `json:"total_points"`
}

// BalanceView is the read model behind get_balance.
type BalanceView struct {
	UserID         uint            `json:"user_id"`
	Points         decimal.Decimal `json:"points"`
	Experience     int64           `json:"experience"`
	Level          LevelInfo       `json:"level"`
	DailyEarned    decimal.Decimal `json:"daily_points"`
	DailyCap       decimal.Decimal `json:"daily_cap"`
	DailyRemaining decimal.Decimal `json:"daily_remaining"`
	WindowResetsAt *time.Time      `json:"window_resets_at"`
}

// Ledger owns the UserEconomy rows. Every read-modify-write goes through withUser,
// which holds the per-user lock and a row lock for the whole transaction.
type Ledger struct {
	db       *gorm.DB
	locker   Locker
	settings Settings
	curve    Curve
	now      func() time.Time
	log      *zap.Logger
}

// NewLedger builds a ledger. A nil logger is replaced with a no-op one.
func NewLedger(db *gorm.DB, locker Locker, settings Settings, log *zap.Logger) *Ledger {
	if log == nil {
		log = zap.NewNop()
	}
	settings = settings.withDefaults()
	return &Ledger{
		db:       db,
		locker:   locker,
		settings: settings,
		curve:    NewCurve(settings.LevelBaseXP),
		now:      func() time.Time { return time.Now().UTC() },
		log:      log,
	}
}

// WithClock overrides the time source; used by tests to move across windows.
func (l *Ledger) WithClock(now func() time.Time) *Ledger {
	l.now = now
	return l
}

// Settings returns the effective economy settings.
func (l *Ledger) Settings() Settings { return l.settings }

// Curve returns the single leveling curve used for every level display.
func (l *Ledger) Curve() Curve { return l.curve }

// Register creates the economy row on first access and keeps the display name current.
func (l *Ledger) Register(ctx context.Context, userID uint, username string) error {
	if userID == 0 {
		return invalidRequest("missing user id")
	}
	now := l.now()
	row := models.UserEconomy{
		UserID:            userID,
		Username:          username,
		Points:            decimal.Zero,
		DailyPointsEarned: decimal.Zero,
		DailyWindowStart:  now,
	}
	err := l.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"username"}),
	}).Create(&row).Error
	if err != nil {
		l.log.Error("register economy failed", zap.Uint("user_id", userID), zap.Error(err))
		return internal(err)
	}
	return nil
}

// Balance returns balances and the daily window as of now. It never writes; an
// expired window is reported as empty and is reset by the next credit.
func (l *Ledger) Balance(ctx context.Context, userID uint) (BalanceView, error) {
	now := l.now()
	var econ models.UserEconomy
	err := l.db.WithContext(ctx).Where("user_id = ?", userID).Take(&econ).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		econ = models.UserEconomy{UserID: userID, DailyWindowStart: now}
	} else if err != nil {
		l.log.Error("load balance failed", zap.Uint("user_id", userID), zap.Error(err))
		return BalanceView{}, internal(err)
	}

	view := BalanceView{
		UserID:      userID,
		Points:      econ.Points,
		Experience:  econ.Experience,
		Level:       l.curve.LevelOf(econ.Experience),
		DailyEarned: econ.DailyPointsEarned,
		DailyCap:    l.settings.DailyCap,
	}
	resetsAt := econ.DailyWindowStart.Add(l.settings.DailyWindow)
	if !now.Before(resetsAt) {
		view.DailyEarned = decimal.Zero
	} else {
		view.WindowResetsAt = &resetsAt
	}
	view.DailyRemaining = decimal.Max(decimal.Zero, view.DailyCap.Sub(view.DailyEarned))
	return view, nil
}

// Credit adds points. Capped credits are clamped to what is left of the daily cap;
// a clamp is reported through CapExceeded, and nothing left at all is CapAlreadyReached.
func (l *Ledger) Credit(ctx context.Context, userID uint, amount decimal.Decimal, category Category, source, reference string) (CreditResult, error) {
	if amount.IsNegative() {
		return CreditResult{}, invalidRequest("credit amount must not be negative")
	}
	if amount.IsZero() {
		view, err := l.Balance(ctx, userID)
		if err != nil {
			return CreditResult{}, err
		}
		res := CreditResult{
			Requested:      amount,
			Awarded:        decimal.Zero,
			Points:         view.Points,
			DailyEarned:    view.DailyEarned,
			DailyRemaining: view.DailyRemaining,
		}
		if view.WindowResetsAt != nil {
			res.WindowResetsAt = *view.WindowResetsAt
		}
		return res, nil
	}

	var res CreditResult
	err := l.withUser(ctx, userID, func(tx *gorm.DB, econ *models.UserEconomy, now time.Time) error {
		var err error
		res, err = l.applyCredit(econ, amount, category, now)
		if err != nil {
			return err
		}
		return appendPointsLog(tx, userID, res.Awarded, econ.Points, source, reference)
	})
	return res, err
}

// Debit removes points or fails with InsufficientFunds, leaving the balance untouched.
func (l *Ledger) Debit(ctx context.Context, userID uint, amount decimal.Decimal, source, reference string) (DebitResult, error) {
	if amount.IsNegative() {
		return DebitResult{}, invalidRequest("debit amount must not be negative")
	}
	if amount.IsZero() {
		view, err := l.Balance(ctx, userID)
		if err != nil {
			return DebitResult{}, err
		}
		return DebitResult{Debited: decimal.Zero, Points: view.Points}, nil
	}

	var res DebitResult
	err := l.withUser(ctx, userID, func(tx *gorm.DB, econ *models.UserEconomy, now time.Time) error {
		if err := applyDebit(econ, amount); err != nil {
			return err
		}
		res = DebitResult{Debited: amount, Points: econ.Points}
		return appendPointsLog(tx, userID, amount.Neg(), econ.Points, source, reference)
	})
	return res, err
}

// withUser runs fn on the locked economy row inside one transaction. fn's mutations
// to econ are saved on success; any error rolls everything back.
func (l *Ledger) withUser(ctx context.Context, userID uint, fn func(tx *gorm.DB, econ *models.UserEconomy, now time.Time) error) error {
	if userID == 0 {
		return invalidRequest("missing user id")
	}
	unlock, err := l.locker.Lock(ctx, lockKey(userID))
	if err != nil {
		l.log.Warn("user lock not acquired", zap.Uint("user_id", userID), zap.Error(err))
		return busy(err)
	}
	defer unlock()

	now := l.now()
	err = l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		econ, err := loadForUpdate(tx, userID, now)
		if err != nil {
			return err
		}
		if err := fn(tx, econ, now); err != nil {
			return err
		}
		return tx.Save(econ).Error
	})
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return busy(err)
	}
	l.log.Error("economy transaction failed", zap.Uint("user_id", userID), zap.Error(err))
	return internal(err)
}

func loadForUpdate(tx *gorm.DB, userID uint, now time.Time) (*models.UserEconomy, error) {
	var econ models.UserEconomy
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("user_id = ?", userID).Take(&econ).Error
	if err == nil {
		return &econ, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	econ = models.UserEconomy{
		UserID:            userID,
		Points:            decimal.Zero,
		DailyPointsEarned: decimal.Zero,
		DailyWindowStart:  now,
	}
	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&econ).Error; err != nil {
		return nil, err
	}
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("user_id = ?", userID).Take(&econ).Error; err != nil {
		return nil, err
	}
	return &econ, nil
}

// rollWindow restarts the daily window once 24h (DailyWindow) have passed since it opened.
func (l *Ledger) rollWindow(econ *models.UserEconomy, now time.Time) {
	if !now.Before(econ.DailyWindowStart.Add(l.settings.DailyWindow)) {
		econ.DailyPointsEarned = decimal.Zero
		econ.DailyWindowStart = now
	}
}

func (l *Ledger) applyCredit(econ *models.UserEconomy, amount decimal.Decimal, category Category, now time.Time) (CreditResult, error) {
	if amount.IsNegative() {
		return CreditResult{}, invalidRequest("credit amount must not be negative")
	}
	l.rollWindow(econ, now)
	resetsAt := econ.DailyWindowStart.Add(l.settings.DailyWindow)

	grant := amount
	capExceeded := false
	if category == CategoryDailyCapped {
		remaining := l.settings.DailyCap.Sub(econ.DailyPointsEarned)
		if !remaining.IsPositive() && amount.IsPositive() {
			return CreditResult{}, &Error{
				Kind:    KindCapAlreadyReached,
				Message: "daily point cap already reached",
				Details: map[string]interface{}{
					"daily_cap":        l.settings.DailyCap,
					"daily_points":     econ.DailyPointsEarned,
					"window_resets_at": resetsAt,
				},
			}
		}
		if grant.GreaterThan(remaining) {
			grant = remaining
			capExceeded = true
		}
		econ.DailyPointsEarned = econ.DailyPointsEarned.Add(grant)
	}
	econ.Points = econ.Points.Add(grant)

	return CreditResult{
		Requested:      amount,
		Awarded:        grant,
		CapExceeded:    capExceeded,
		Points:         econ.Points,
		DailyEarned:    econ.DailyPointsEarned,
		DailyRemaining: decimal.Max(decimal.Zero, l.settings.DailyCap.Sub(econ.DailyPointsEarned)),
		WindowResetsAt: resetsAt,
	}, nil
}

func applyDebit(econ *models.UserEconomy, amount decimal.Decimal) error {
	if econ.Points.LessThan(amount) {
		return &Error{
			Kind:    KindInsufficientFunds,
			Message: fmt.Sprintf("not enough points: need %s, have %s", amount.String(), econ.Points.String()),
			Details: map[string]interface{}{
				"required":  amount,
				"points":    econ.Points,
				"shortfall": amount.Sub(econ.Points),
			},
		}
	}
	econ.Points = econ.Points.Sub(amount)
	return nil
}

func appendPointsLog(tx *gorm.DB, userID uint, amount, balance decimal.Decimal, source, reference string) error {
	if amount.IsZero() {
		return nil
	}
	if source == "" {
		source = models.SourceGrant
	}
	return tx.Create(&models.PointsLog{
		UserID:       userID,
		Amount:       amount,
		BalanceAfter: balance,
		Source:       source,
		Reference:    reference,
	}).Error
}

func lockKey(userID uint) string {
	return fmt.Sprintf("economy:user:%d", userID)
}
