package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pomtime/rewards/services"
)

var (
	rewardsPath string
	draws       int
	seed        int64
	asJSON      bool
)

var rootCmd = &cobra.Command{
	Use:   "gachasim",
	Short: "simulate gacha draws against a rewards table and print observed odds",
	RunE: func(cmd *cobra.Command, args []string) error {
		if draws < 1 {
			return fmt.Errorf("--draws must be positive")
		}
		table, err := services.LoadRarityTable(rewardsPath)
		if err != nil {
			return err
		}
		stats := services.Simulate(table, services.NewRandSource(seed), draws)

		out := cmd.OutOrStdout()
		if asJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(stats)
		}

		expected := map[int]float64{}
		for _, tv := range table.Tiers() {
			expected[tv.Rarity] = tv.Probability
		}
		fmt.Fprintf(out, "%d draws, seed %d\n", draws, seed)
		for _, r := range stats.Rarities() {
			fmt.Fprintf(out, "%d-star  %8d  observed %7.3f%%  expected %7.3f%%\n",
				r, stats.ByRarity[r], stats.Rate(r)*100, expected[r]*100)
		}
		return nil
	},
}

func init() {
	rootCmd.Flags().StringVarP(&rewardsPath, "rewards", "r", "", "rewards YAML file (built-in banner when empty)")
	rootCmd.Flags().IntVarP(&draws, "draws", "n", 100000, "number of draws")
	rootCmd.Flags().Int64Var(&seed, "seed", 1, "RNG seed (0 seeds from the clock)")
	rootCmd.Flags().BoolVar(&asJSON, "json", false, "print raw counts as JSON")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
