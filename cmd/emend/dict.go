package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/platinummonkey/emend/internal/config"
	"github.com/platinummonkey/emend/internal/dictionary"
	"github.com/platinummonkey/emend/internal/logger"
)

// dictCmd represents the dict command group
var dictCmd = &cobra.Command{
	Use:   "dict",
	Short: "Inspect and maintain the learned dictionary",
	Long: `Inspect and maintain the learned dictionary layer.

The pipeline credits every flagged word one sighting per run; words
seen often enough, or confirmed by a high-confidence re-reading, stop
being flagged. Over many documents the learned file accumulates
single-sighting noise, which prune clears out.

Examples:
  # Show what the dictionary has picked up
  emend dict list

  # Drop entries still below the acceptance threshold
  emend dict prune

  # Compact an older file with a stricter bar
  emend dict prune --min-sightings 5 --dict ~/books/.emend-learned.yaml`,
}

// dictListCmd represents the dict list command
var dictListCmd = &cobra.Command{
	Use:   "list",
	Short: "List learned words with their evidence",
	Args:  cobra.NoArgs,
	RunE:  runDictList,
}

// dictPruneCmd represents the dict prune command
var dictPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Drop unconfirmed entries below a sighting threshold",
	Args:  cobra.NoArgs,
	RunE:  runDictPrune,
}

func init() {
	rootCmd.AddCommand(dictCmd)
	dictCmd.AddCommand(dictListCmd)
	dictCmd.AddCommand(dictPruneCmd)

	dictCmd.PersistentFlags().String("dict", "", "learned dictionary file (overrides config)")
	dictPruneCmd.Flags().Int("min-sightings", 0, "keep unconfirmed entries with at least this many sightings (default: configured threshold)")
}

func runDictList(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	log, err := newLogger(cfg)
	if err != nil {
		return err
	}
	dict, err := loadDict(cmd, cfg, log)
	if err != nil {
		return err
	}

	entries := dict.LearnedEntries()
	if len(entries) == 0 {
		fmt.Println("No learned words.")
		return nil
	}

	accepted := 0
	fmt.Printf("%-24s %10s  %s\n", "WORD", "SIGHTINGS", "STATUS")
	for _, entry := range entries {
		var status string
		switch {
		case entry.Confirmed:
			status = "confirmed"
			accepted++
		case entry.Sightings >= cfg.Dictionary.MinSightings:
			status = "accepted"
			accepted++
		default:
			status = fmt.Sprintf("needs %d more", cfg.Dictionary.MinSightings-entry.Sightings)
		}
		fmt.Printf("%-24s %10d  %s\n", entry.Word, entry.Sightings, status)
	}
	fmt.Printf("\n%d words, %d accepted\n", len(entries), accepted)
	return nil
}

func runDictPrune(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	log, err := newLogger(cfg)
	if err != nil {
		return err
	}
	dict, err := loadDict(cmd, cfg, log)
	if err != nil {
		return err
	}

	min, _ := cmd.Flags().GetInt("min-sightings")
	if min <= 0 {
		min = cfg.Dictionary.MinSightings
	}

	before := dict.LearnedCount()
	removed := dict.Prune(min)
	if removed == 0 {
		fmt.Printf("Nothing to prune (%d words kept)\n", before)
		return nil
	}

	if err := dict.Persist(cfg.Dictionary.LearnedPath); err != nil {
		return fmt.Errorf("failed to persist learned dictionary: %w", err)
	}
	fmt.Printf("Pruned %d of %d words (%d kept)\n", removed, before, dict.LearnedCount())
	return nil
}

// loadDict opens the learned dictionary named by config or the --dict
// flag
func loadDict(cmd *cobra.Command, cfg *config.Config, log *logger.Logger) (*dictionary.Dictionary, error) {
	if flag := cmd.Flag("dict"); flag != nil && flag.Changed {
		cfg.Dictionary.LearnedPath = flag.Value.String()
	}

	dict := dictionary.New(&dictionary.Config{
		ExtraVocabulary: cfg.Dictionary.ExtraVocabulary,
		MinSightings:    cfg.Dictionary.MinSightings,
		Logger:          log,
	})
	if err := dict.Load(cfg.Dictionary.LearnedPath); err != nil {
		return nil, fmt.Errorf("failed to load learned dictionary: %w", err)
	}
	return dict, nil
}
