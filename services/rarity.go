package services

import (
	"fmt"
	"math/rand"
	"os"
	"sort"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// RewardDefinition is one named reward in a rarity pool.
type RewardDefinition struct {
	Name   string  `yaml:"name" json:"name"`
	Rarity int     `yaml:"-" json:"rarity"`
	Weight float64 `yaml:"weight" json:"weight"`
}

// TierConfig is the file form of one rarity tier. The 3-star tier takes whatever
// probability the higher tiers leave, so its probability field is ignored.
type TierConfig struct {
	Rarity      int                `yaml:"rarity"`
	Probability float64            `yaml:"probability"`
	Rewards     []RewardDefinition `yaml:"rewards"`
}

// TableConfig is the root of a rewards YAML file.
type TableConfig struct {
	Tiers []TierConfig `yaml:"tiers"`
}

// TierView is the public description of a tier, probability resolved.
type TierView struct {
	Rarity      int                `json:"rarity"`
	Probability float64            `json:"probability"`
	Rewards     []RewardDefinition `json:"rewards"`
}

type tier struct {
	rarity      int
	probability float64
	rewards     []RewardDefinition
	cumulative  []float64
}

// RarityTable is an immutable, validated set of disjoint reward pools.
type RarityTable struct {
	tiers  []tier // descending rarity; last one is the remainder tier
	byName map[string]RewardDefinition
}

// RandSource yields uniform values in [0,1). *math/rand.Rand satisfies it.
type RandSource interface {
	Float64() float64
}

const remainderRarity = 3

// DefaultTableConfig is the stock Pomeranian banner.
func DefaultTableConfig() TableConfig {
	names := func(ns ...string) []RewardDefinition {
		out := make([]RewardDefinition, 0, len(ns))
		for _, n := range ns {
			out = append(out, RewardDefinition{Name: n, Weight: 1})
		}
		return out
	}
	return TableConfig{Tiers: []TierConfig{
		{Rarity: 5, Probability: 0.006, Rewards: names("King", "Angel", "Dragon")},
		{Rarity: 4, Probability: 0.05, Rewards: names("Snow", "Prince", "Moon", "Autumn")},
		{Rarity: 3, Rewards: names("White", "Brown", "Orange", "Black", "Cream", "Gray", "Tan", "Beige")},
	}}
}

// DefaultRarityTable builds the stock table. It panics only if the built-in config is broken.
func DefaultRarityTable() *RarityTable {
	t, err := NewRarityTable(DefaultTableConfig())
	if err != nil {
		panic(err)
	}
	return t
}

// LoadRarityTable reads a YAML rewards file. An empty path yields the default table.
func LoadRarityTable(path string) (*RarityTable, error) {
	if path == "" {
		return DefaultRarityTable(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rewards file: %w", err)
	}
	var cfg TableConfig
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse rewards file %s: %w", path, err)
	}
	return NewRarityTable(cfg)
}

// NewRarityTable validates cfg and precomputes cumulative weights.
func NewRarityTable(cfg TableConfig) (*RarityTable, error) {
	if len(cfg.Tiers) == 0 {
		return nil, fmt.Errorf("rarity table has no tiers")
	}
	t := &RarityTable{byName: map[string]RewardDefinition{}}
	seen := map[int]bool{}
	explicit := 0.0
	for _, tc := range cfg.Tiers {
		if tc.Rarity < 3 || tc.Rarity > 5 {
			return nil, fmt.Errorf("tier rarity %d out of range 3..5", tc.Rarity)
		}
		if seen[tc.Rarity] {
			return nil, fmt.Errorf("duplicate tier for rarity %d", tc.Rarity)
		}
		seen[tc.Rarity] = true
		if len(tc.Rewards) == 0 {
			return nil, fmt.Errorf("tier %d has no rewards", tc.Rarity)
		}
		if tc.Rarity != remainderRarity {
			if tc.Probability <= 0 || tc.Probability >= 1 {
				return nil, fmt.Errorf("tier %d probability %v must be in (0,1)", tc.Rarity, tc.Probability)
			}
			explicit += tc.Probability
		}

		tr := tier{rarity: tc.Rarity, probability: tc.Probability}
		total := 0.0
		for _, rd := range tc.Rewards {
			if rd.Name == "" {
				return nil, fmt.Errorf("tier %d has a reward without a name", tc.Rarity)
			}
			if _, dup := t.byName[rd.Name]; dup {
				return nil, fmt.Errorf("reward %q appears in more than one pool", rd.Name)
			}
			if rd.Weight < 0 {
				return nil, fmt.Errorf("reward %q has negative weight", rd.Name)
			}
			if rd.Weight == 0 {
				rd.Weight = 1
			}
			rd.Rarity = tc.Rarity
			total += rd.Weight
			tr.rewards = append(tr.rewards, rd)
			t.byName[rd.Name] = rd
		}
		// Normalise so weights inside a tier sum to 1.
		acc := 0.0
		for i := range tr.rewards {
			tr.rewards[i].Weight /= total
			acc += tr.rewards[i].Weight
			tr.cumulative = append(tr.cumulative, acc)
			t.byName[tr.rewards[i].Name] = tr.rewards[i]
		}
		t.tiers = append(t.tiers, tr)
	}
	if !seen[remainderRarity] {
		return nil, fmt.Errorf("rarity table needs a %d-star remainder tier", remainderRarity)
	}
	if explicit >= 1 {
		return nil, fmt.Errorf("tier probabilities sum to %v, leaving nothing for %d-star", explicit, remainderRarity)
	}

	sort.Slice(t.tiers, func(i, j int) bool { return t.tiers[i].rarity > t.tiers[j].rarity })
	last := &t.tiers[len(t.tiers)-1]
	last.probability = 1 - explicit
	return t, nil
}

// Draw samples one reward: the first uniform value picks the tier by cumulative
// probability (highest rarity first), the second picks a reward inside it by weight.
func (t *RarityTable) Draw(rng RandSource) RewardDefinition {
	u := rng.Float64()
	acc := 0.0
	chosen := &t.tiers[len(t.tiers)-1]
	for i := 0; i < len(t.tiers)-1; i++ {
		acc += t.tiers[i].probability
		if u < acc {
			chosen = &t.tiers[i]
			break
		}
	}
	v := rng.Float64()
	for i, c := range chosen.cumulative {
		if v < c {
			return chosen.rewards[i]
		}
	}
	return chosen.rewards[len(chosen.rewards)-1]
}

// Lookup returns the definition for a reward name.
func (t *RarityTable) Lookup(name string) (RewardDefinition, bool) {
	rd, ok := t.byName[name]
	return rd, ok
}

// Tiers describes the table from highest to lowest rarity.
func (t *RarityTable) Tiers() []TierView {
	out := make([]TierView, 0, len(t.tiers))
	for _, tr := range t.tiers {
		rewards := make([]RewardDefinition, len(tr.rewards))
		copy(rewards, tr.rewards)
		out = append(out, TierView{Rarity: tr.rarity, Probability: tr.probability, Rewards: rewards})
	}
	return out
}

// Rewards lists every reward definition, highest rarity first.
func (t *RarityTable) Rewards() []RewardDefinition {
	var out []RewardDefinition
	for _, tr := range t.tiers {
		out = append(out, tr.rewards...)
	}
	return out
}

type lockedRand struct {
	mu sync.Mutex
	r  *rand.Rand
}

// NewRandSource returns a goroutine-safe seeded source. Seed 0 seeds from the clock.
func NewRandSource(seed int64) RandSource {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &lockedRand{r: rand.New(rand.NewSource(seed))}
}

func (l *lockedRand) Float64() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.Float64()
}
