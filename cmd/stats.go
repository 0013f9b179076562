package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show learning statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		st, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer st.Close()

		ctx := cmd.Context()
		repo := st.EventRepo()

		summary, err := repo.Stats(ctx)
		if err != nil {
			return fmt.Errorf("aggregate stats: %w", err)
		}

		fmt.Printf("Attempts:  %d\n", summary.Attempts)
		fmt.Printf("Mastered:  %d", summary.Mastered)
		if summary.Attempts > 0 {
			fmt.Printf("  (%.0f%%)", 100*float64(summary.Mastered)/float64(summary.Attempts))
		}
		fmt.Println()
		for tube := 1; tube <= 3; tube++ {
			fmt.Printf("Tube %d:    %d attempts\n", tube, summary.AttemptsByTube[tube])
		}

		recent, err := repo.RecentCompletions(ctx, 10)
		if err != nil {
			return fmt.Errorf("load recent completions: %w", err)
		}
		if len(recent) > 0 {
			fmt.Println("\nRecent:")
			for _, ev := range recent {
				outcome := "repeat"
				if ev.Mastered {
					outcome = "mastered"
				}
				fmt.Printf("  %-10s %s/%s  %d/%d  tube %d\n",
					outcome, ev.ThreadID, ev.StitchID, ev.Score, ev.MaxScore, ev.Tube)
			}
		}
		return nil
	},
}
