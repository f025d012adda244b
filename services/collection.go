package services

import (
	"context"
	"errors"
	"sort"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/pomtime/rewards/models"
)

// CollectionItem is one row of a user's collection view.
type CollectionItem struct {
	Reward          string     `json:"reward"`
	Rarity          int        `json:"rarity"`
	Count           int64      `json:"count"`
	TotalObtained   int64      `json:"total_obtained"`
	EverObtained    bool       `json:"ever_obtained"`
	FirstObtainedAt *time.Time `json:"first_obtained_at,omitempty"`
}

// CollectionView is the full collection of a user plus summary counters.
type CollectionView struct {
	Items         []CollectionItem `json:"items"`
	TotalOwned    int64            `json:"total_owned"`
	UniqueOwned   int              `json:"unique_owned"`
	UniqueEver    int              `json:"unique_ever"`
	TotalRewards  int              `json:"total_rewards"`
	ByRarityOwned map[int]int64    `json:"by_rarity_owned"`
}

// ReleaseResult is returned after releasing copies of a reward for experience.
type ReleaseResult struct {
	Reward     string    `json:"reward"`
	Rarity     int       `json:"rarity"`
	Released   int64     `json:"released"`
	Remaining  int64     `json:"remaining"`
	XPGained   int64     `json:"xp_gained"`
	Experience int64     `json:"experience"`
	Level      LevelInfo `json:"level"`
	LeveledUp  bool      `json:"leveled_up"`
}

// ProfileStats combines economy and collection figures for the profile page.
type ProfileStats struct {
	Points      BalanceView   `json:"balance"`
	UniqueOwned int           `json:"unique_owned"`
	UniqueEver  int           `json:"unique_ever"`
	TotalOwned  int64         `json:"total_owned"`
	TotalRolls  int64         `json:"total_rolls"`
	ByRarity    map[int]int64 `json:"by_rarity_owned"`
	Checkins    int64         `json:"checkin_count"`
}

// CollectionStore tracks owned rewards and converts released copies into experience.
type CollectionStore struct {
	ledger *Ledger
	table  *RarityTable
}

func NewCollectionStore(ledger *Ledger, table *RarityTable) *CollectionStore {
	return &CollectionStore{ledger: ledger, table: table}
}

// credit adds n copies of def inside an open ledger transaction.
func (s *CollectionStore) credit(tx *gorm.DB, userID uint, def RewardDefinition, n int64, now time.Time) error {
	res := tx.Model(&models.CollectionEntry{}).
		Where("user_id = ? AND reward_name = ?", userID, def.Name).
		Updates(map[string]interface{}{
			"count":          gorm.Expr("count + ?", n),
			"total_obtained": gorm.Expr("total_obtained + ?", n),
			"updated_at":     now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		return nil
	}
	return tx.Create(&models.CollectionEntry{
		UserID:          userID,
		RewardName:      def.Name,
		Rarity:          def.Rarity,
		Count:           n,
		TotalObtained:   n,
		FirstObtainedAt: now,
		UpdatedAt:       now,
	}).Error
}

// Release gives up n copies of a reward for n * ReleaseXP[rarity] experience.
// The decrement and the experience grant commit together or not at all.
func (s *CollectionStore) Release(ctx context.Context, userID uint, name string, n int64) (ReleaseResult, error) {
	if n < 1 {
		return ReleaseResult{}, invalidRequest("release count must be at least 1")
	}
	def, ok := s.table.Lookup(name)
	if !ok {
		return ReleaseResult{}, invalidRequest("unknown reward %q", name)
	}
	perCopy := s.ledger.settings.ReleaseXP[def.Rarity]
	curve := s.ledger.curve

	var out ReleaseResult
	err := s.ledger.withUser(ctx, userID, func(tx *gorm.DB, econ *models.UserEconomy, now time.Time) error {
		var entry models.CollectionEntry
		err := tx.Where("user_id = ? AND reward_name = ?", userID, name).Take(&entry).Error
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if entry.Count < n {
			return &Error{
				Kind:    KindInsufficientStock,
				Message: "not enough copies to release",
				Details: map[string]interface{}{
					"reward":    name,
					"owned":     entry.Count,
					"requested": n,
				},
			}
		}
		upd := tx.Model(&models.CollectionEntry{}).
			Where("id = ? AND count >= ?", entry.ID, n).
			Updates(map[string]interface{}{
				"count":      gorm.Expr("count - ?", n),
				"updated_at": now,
			})
		if upd.Error != nil {
			return upd.Error
		}
		if upd.RowsAffected == 0 {
			return &Error{Kind: KindInsufficientStock, Message: "not enough copies to release"}
		}

		before := econ.Experience
		gained := perCopy * n
		econ.Experience += gained
		out = ReleaseResult{
			Reward:     name,
			Rarity:     def.Rarity,
			Released:   n,
			Remaining:  entry.Count - n,
			XPGained:   gained,
			Experience: econ.Experience,
			Level:      curve.LevelOf(econ.Experience),
			LeveledUp:  curve.LeveledUp(before, econ.Experience),
		}
		return nil
	})
	if err == nil {
		s.ledger.log.Info("reward released",
			zap.Uint("user_id", userID),
			zap.String("reward", name),
			zap.Int64("count", n),
			zap.Int64("xp_gained", out.XPGained))
	}
	return out, err
}

// List returns every reward in the table merged with what the user owns, ordered
// by rarity desc, count desc, name asc.
func (s *CollectionStore) List(ctx context.Context, userID uint) (CollectionView, error) {
	var entries []models.CollectionEntry
	if err := s.ledger.db.WithContext(ctx).Where("user_id = ?", userID).Find(&entries).Error; err != nil {
		return CollectionView{}, internal(err)
	}
	owned := make(map[string]models.CollectionEntry, len(entries))
	for _, e := range entries {
		owned[e.RewardName] = e
	}

	view := CollectionView{ByRarityOwned: map[int]int64{}}
	for _, def := range s.table.Rewards() {
		item := CollectionItem{Reward: def.Name, Rarity: def.Rarity}
		if e, ok := owned[def.Name]; ok {
			item.Count = e.Count
			item.TotalObtained = e.TotalObtained
			item.EverObtained = e.TotalObtained > 0
			if item.EverObtained {
				first := e.FirstObtainedAt
				item.FirstObtainedAt = &first
			}
		}
		view.Items = append(view.Items, item)
		view.TotalRewards++
		view.TotalOwned += item.Count
		view.ByRarityOwned[def.Rarity] += item.Count
		if item.Count > 0 {
			view.UniqueOwned++
		}
		if item.EverObtained {
			view.UniqueEver++
		}
	}
	sort.SliceStable(view.Items, func(i, j int) bool {
		a, b := view.Items[i], view.Items[j]
		if a.Rarity != b.Rarity {
			return a.Rarity > b.Rarity
		}
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.Reward < b.Reward
	})
	return view, nil
}

// ProfileStats aggregates balance, collection and roll counters for one user.
func (s *CollectionStore) ProfileStats(ctx context.Context, userID uint) (ProfileStats, error) {
	bal, err := s.ledger.Balance(ctx, userID)
	if err != nil {
		return ProfileStats{}, err
	}
	coll, err := s.List(ctx, userID)
	if err != nil {
		return ProfileStats{}, err
	}
	var rolls int64
	if err := s.ledger.db.WithContext(ctx).Model(&models.RollLog{}).
		Where("user_id = ?", userID).
		Select("COALESCE(SUM(count), 0)").Scan(&rolls).Error; err != nil {
		return ProfileStats{}, internal(err)
	}
	var econ models.UserEconomy
	if err := s.ledger.db.WithContext(ctx).Select("checkin_count").Where("user_id = ?", userID).Limit(1).Find(&econ).Error; err != nil {
		return ProfileStats{}, internal(err)
	}
	return ProfileStats{
		Points:      bal,
		UniqueOwned: coll.UniqueOwned,
		UniqueEver:  coll.UniqueEver,
		TotalOwned:  coll.TotalOwned,
		TotalRolls:  rolls,
		ByRarity:    coll.ByRarityOwned,
		Checkins:    econ.CheckinCount,
	}, nil
}
