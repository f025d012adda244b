package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/pomtime/rewards/models"
)

// Draw is one reward produced by a roll.
type Draw struct {
	Name   string `json:"name"`
	Rarity int    `json:"rarity"`
}

// RollResult is the outcome of a committed roll.
type RollResult struct {
	RollID string          `json:"roll_id"`
	Draws  []Draw          `json:"draws"`
	Cost   decimal.Decimal `json:"cost"`
	Points decimal.Decimal `json:"total_points"`
}

// RollEngine spends points on draws from the rarity table.
type RollEngine struct {
	ledger     *Ledger
	table      *RarityTable
	collection *CollectionStore
	rng        RandSource
}

func NewRollEngine(ledger *Ledger, table *RarityTable, collection *CollectionStore, rng RandSource) *RollEngine {
	if rng == nil {
		rng = NewRandSource(0)
	}
	return &RollEngine{ledger: ledger, table: table, collection: collection, rng: rng}
}

// Table exposes the rarity table the engine draws from.
func (e *RollEngine) Table() *RarityTable { return e.table }

// Roll performs a single (count 1) or multi (count 10) roll. The debit, the
// collection credits and the roll log commit in one transaction; a failed roll
// changes nothing.
func (e *RollEngine) Roll(ctx context.Context, userID uint, count int) (RollResult, error) {
	if count != 1 && count != 10 {
		return RollResult{}, invalidRequest("roll count must be 1 or 10, got %d", count)
	}
	cost := e.ledger.settings.RollCost.Mul(decimal.NewFromInt(int64(count)))
	rollID := uuid.NewString()

	var out RollResult
	err := e.ledger.withUser(ctx, userID, func(tx *gorm.DB, econ *models.UserEconomy, now time.Time) error {
		if err := applyDebit(econ, cost); err != nil {
			return err
		}

		draws := make([]Draw, 0, count)
		perReward := map[string]int64{}
		order := make([]RewardDefinition, 0, count)
		for i := 0; i < count; i++ {
			def := e.table.Draw(e.rng)
			draws = append(draws, Draw{Name: def.Name, Rarity: def.Rarity})
			if perReward[def.Name] == 0 {
				order = append(order, def)
			}
			perReward[def.Name]++
		}
		for _, def := range order {
			if err := e.collection.credit(tx, userID, def, perReward[def.Name], now); err != nil {
				return err
			}
		}

		raw, err := json.Marshal(draws)
		if err != nil {
			return err
		}
		if err := tx.Create(&models.RollLog{
			RollID:      rollID,
			UserID:      userID,
			Count:       count,
			Cost:        cost,
			Draws:       datatypes.JSON(raw),
			PointsAfter: econ.Points,
		}).Error; err != nil {
			return err
		}
		if err := appendPointsLog(tx, userID, cost.Neg(), econ.Points, models.SourceRoll, rollID); err != nil {
			return err
		}
		out = RollResult{RollID: rollID, Draws: draws, Cost: cost, Points: econ.Points}
		return nil
	})
	if err != nil {
		return RollResult{}, err
	}
	e.ledger.log.Info("gacha roll",
		zap.Uint("user_id", userID),
		zap.String("roll_id", rollID),
		zap.Int("count", count),
		zap.String("points_after", out.Points.String()))
	return out, nil
}
