package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pomtime/rewards/models"
)

func TestLedger_CapStopsAtFifty(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	const uid = 1

	for i := 0; i < 5; i++ {
		res, err := env.ledger.Credit(ctx, uid, decimalInt(10), CategoryDailyCapped, models.SourceSession, "")
		require.NoError(t, err)
		assert.True(t, res.Awarded.Equal(decimalInt(10)))
		assert.False(t, res.CapExceeded)
	}

	_, err := env.ledger.Credit(ctx, uid, decimalInt(10), CategoryDailyCapped, models.SourceSession, "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCapAlreadyReached))
	e := AsError(err)
	assert.Contains(t, e.Details, "window_resets_at")

	bal, err := env.ledger.Balance(ctx, uid)
	require.NoError(t, err)
	assert.True(t, bal.Points.Equal(decimalInt(50)), bal.Points.String())
	assert.True(t, bal.DailyEarned.Equal(decimalInt(50)))
	assert.True(t, bal.DailyRemaining.IsZero())
}

func TestLedger_PartialCreditIsClamped(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	_, err := env.ledger.Credit(ctx, 1, decimalInt(45), CategoryDailyCapped, models.SourceSession, "")
	require.NoError(t, err)

	res, err := env.ledger.Credit(ctx, 1, decimalInt(10), CategoryDailyCapped, models.SourceSession, "")
	require.NoError(t, err)
	assert.True(t, res.CapExceeded)
	assert.True(t, res.Awarded.Equal(decimalInt(5)), res.Awarded.String())
	assert.True(t, res.Points.Equal(decimalInt(50)))
}

func TestLedger_WindowResetsAfter24Hours(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	_, err := env.ledger.Credit(ctx, 1, decimalInt(50), CategoryDailyCapped, models.SourceSession, "")
	require.NoError(t, err)

	env.clock.Advance(23*time.Hour + 59*time.Minute)
	_, err = env.ledger.Credit(ctx, 1, decimalInt(1), CategoryDailyCapped, models.SourceSession, "")
	assert.True(t, errors.Is(err, ErrCapAlreadyReached))

	env.clock.Advance(time.Minute)
	bal, err := env.ledger.Balance(ctx, 1)
	require.NoError(t, err)
	assert.True(t, bal.DailyEarned.IsZero(), "expired window reads as empty")
	assert.Nil(t, bal.WindowResetsAt)

	res, err := env.ledger.Credit(ctx, 1, decimalInt(10), CategoryDailyCapped, models.SourceSession, "")
	require.NoError(t, err)
	assert.True(t, res.Awarded.Equal(decimalInt(10)))
	assert.True(t, res.DailyEarned.Equal(decimalInt(10)))
	assert.Equal(t, env.clock.Now().Add(24*time.Hour), res.WindowResetsAt.UTC())
}

func TestLedger_UncappedIgnoresCap(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	res, err := env.ledger.Credit(ctx, 1, decimalInt(500), CategoryUncapped, models.SourceGrant, "")
	require.NoError(t, err)
	assert.True(t, res.Awarded.Equal(decimalInt(500)))
	assert.True(t, res.DailyEarned.IsZero())
}

func TestLedger_NegativeAndZeroAmounts(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	_, err := env.ledger.Credit(ctx, 1, decimalInt(-1), CategoryDailyCapped, models.SourceSession, "")
	assert.True(t, errors.Is(err, ErrInvalidRequest))
	_, err = env.ledger.Debit(ctx, 1, decimalInt(-1), models.SourceRoll, "")
	assert.True(t, errors.Is(err, ErrInvalidRequest))

	res, err := env.ledger.Credit(ctx, 1, decimal.Zero, CategoryDailyCapped, models.SourceSession, "")
	require.NoError(t, err)
	assert.True(t, res.Awarded.IsZero())
	assert.True(t, res.Points.IsZero())
}

func TestLedger_DebitInsufficientFunds(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	env.grant(t, 1, 3)

	_, err := env.ledger.Debit(ctx, 1, decimalInt(10), models.SourceRoll, "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInsufficientFunds))
	shortfall, ok := AsError(err).Details["shortfall"].(decimal.Decimal)
	require.True(t, ok)
	assert.True(t, shortfall.Equal(decimalInt(7)))

	bal, err := env.ledger.Balance(ctx, 1)
	require.NoError(t, err)
	assert.True(t, bal.Points.Equal(decimalInt(3)), "failed debit leaves balance alone")

	res, err := env.ledger.Debit(ctx, 1, decimalInt(3), models.SourceRoll, "")
	require.NoError(t, err)
	assert.True(t, res.Points.IsZero())
}

func TestLedger_PointsLogMatchesBalance(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	env.grant(t, 1, 20)
	_, err := env.ledger.Credit(ctx, 1, decimalInt(7), CategoryDailyCapped, models.SourceSession, "")
	require.NoError(t, err)
	_, err = env.ledger.Debit(ctx, 1, decimalInt(4), models.SourceRoll, "r1")
	require.NoError(t, err)

	var logs []models.PointsLog
	require.NoError(t, env.db.Where("user_id = ?", 1).Order("id").Find(&logs).Error)
	require.Len(t, logs, 3)
	sum := decimal.Zero
	for _, l := range logs {
		sum = sum.Add(l.Amount)
	}
	assert.True(t, sum.Equal(decimalInt(23)))
	assert.True(t, logs[2].BalanceAfter.Equal(decimalInt(23)))
	assert.Equal(t, "r1", logs[2].Reference)
}

func TestLedger_BusyWhenLockHeld(t *testing.T) {
	env := newTestEnv(t, nil)
	locker := newMemLocker()
	env.ledger.locker = locker

	unlock, err := locker.Lock(context.Background(), lockKey(1))
	require.NoError(t, err)
	defer unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = env.ledger.Credit(ctx, 1, decimalInt(1), CategoryDailyCapped, models.SourceSession, "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrBusy))
	assert.True(t, AsError(err).Retryable())
}

func TestLedger_RegisterKeepsBalances(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	require.NoError(t, env.ledger.Register(ctx, 9, "mochi"))
	env.grant(t, 9, 12)
	require.NoError(t, env.ledger.Register(ctx, 9, "mochi2"))

	var econ models.UserEconomy
	require.NoError(t, env.db.Where("user_id = ?", 9).Take(&econ).Error)
	assert.Equal(t, "mochi2", econ.Username)
	assert.True(t, econ.Points.Equal(decimalInt(12)))
}

func TestLedger_Properties(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	var nextUser uint = 1000

	params := gopter.DefaultTestParameters()
	params.MinSuccessfulTests = 40
	properties := gopter.NewProperties(params)

	properties.Property("daily earned never exceeds the cap", prop.ForAll(
		func(amounts []int) bool {
			nextUser++
			uid := nextUser
			for _, a := range amounts {
				_, err := env.ledger.Credit(ctx, uid, decimalInt(int64(a)), CategoryDailyCapped, models.SourceSession, "")
				if err != nil && !errors.Is(err, ErrCapAlreadyReached) {
					return false
				}
				bal, err := env.ledger.Balance(ctx, uid)
				if err != nil || bal.DailyEarned.GreaterThan(bal.DailyCap) {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.IntRange(1, 30)),
	))

	properties.Property("balance equals credits minus successful debits", prop.ForAll(
		func(ops []int) bool {
			nextUser++
			uid := nextUser
			expected := decimal.Zero
			for _, op := range ops {
				amt := decimalInt(int64(op))
				if op >= 0 {
					res, err := env.ledger.Credit(ctx, uid, amt, CategoryUncapped, models.SourceGrant, "")
					if err != nil {
						return false
					}
					expected = expected.Add(res.Awarded)
					continue
				}
				_, err := env.ledger.Debit(ctx, uid, amt.Neg(), models.SourceRoll, "")
				switch {
				case err == nil:
					expected = expected.Add(amt)
				case !errors.Is(err, ErrInsufficientFunds):
					return false
				}
			}
			bal, err := env.ledger.Balance(ctx, uid)
			return err == nil && bal.Points.Equal(expected) && !bal.Points.IsNegative()
		},
		gen.SliceOf(gen.IntRange(-20, 20)),
	))

	properties.TestingRun(t)
}
