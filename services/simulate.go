package services

import "sort"

// DrawStats tallies n draws from a table.
type DrawStats struct {
	Draws    int            `json:"draws"`
	ByRarity map[int]int    `json:"by_rarity"`
	ByReward map[string]int `json:"by_reward"`
}

// Simulate draws n rewards without touching any balance.
func Simulate(t *RarityTable, rng RandSource, n int) DrawStats {
	st := DrawStats{Draws: n, ByRarity: map[int]int{}, ByReward: map[string]int{}}
	for i := 0; i < n; i++ {
		def := t.Draw(rng)
		st.ByRarity[def.Rarity]++
		st.ByReward[def.Name]++
	}
	return st
}

// Rate returns the observed share of draws at rarity.
func (s DrawStats) Rate(rarity int) float64 {
	if s.Draws == 0 {
		return 0
	}
	return float64(s.ByRarity[rarity]) / float64(s.Draws)
}

// Rarities lists observed rarities, highest first.
func (s DrawStats) Rarities() []int {
	out := make([]int, 0, len(s.ByRarity))
	for r := range s.ByRarity {
		out = append(out, r)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(out)))
	return out
}
