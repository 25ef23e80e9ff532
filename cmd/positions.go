package cmd

import (
	"fmt"
	"log"
	"strconv"

	"lobby-tracker/core/config"
	"lobby-tracker/core/database"
	"lobby-tracker/feature/tracker/models"

	"github.com/spf13/cobra"
)

// positionsCmd prints the persisted feed checkpoints, optionally restricted
// to one region. Useful when diagnosing a stalled feed.
var positionsCmd = &cobra.Command{
	Use:   "positions [region]",
	Short: "Print persisted feed checkpoint positions",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig(".")
		if err != nil {
			log.Fatalf("Failed to load configuration: %v", err)
		}

		db, err := database.Connect(cfg.Database)
		if err != nil {
			return err
		}

		query := db.Preload("Position")
		if len(args) > 0 {
			id, err := strconv.Atoi(args[0])
			if err != nil || !models.RegionID(id).Valid() {
				return fmt.Errorf("invalid region %q", args[0])
			}
			query = query.Where("region_id = ?", id)
		}

		var providers []models.FeedProvider
		if err := query.Find(&providers).Error; err != nil {
			return err
		}

		fmt.Printf("%-4s %-16s %-8s %-22s %s\n", "REG", "FEED", "ENABLED", "STORAGE", "RESUMING")
		for _, p := range providers {
			fmt.Printf("%-4s %-16s %-8t %-22s %s\n",
				models.RegionID(p.RegionID).Code(),
				p.Name,
				p.Enabled,
				fmt.Sprintf("%d:%d", p.Position.StorageFile, p.Position.StorageOffset),
				fmt.Sprintf("%d:%d", p.Position.ResumingFile, p.Position.ResumingOffset),
			)
		}
		return nil
	},
}

func init() {
	RootCmd.AddCommand(positionsCmd)
}
