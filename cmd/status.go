package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show indexing statistics and recent processing activity",
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().Int("logs", 10, "number of recent log entries to show")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx := context.Background()
	st, err := openStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.close()

	stats, err := st.catalog.Stats(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("Documents: %d total, %d completed, %d failed\n",
		stats.TotalDocuments, stats.ProcessedDocuments, stats.FailedDocuments)
	fmt.Printf("Pages: %d   Chunks: %d   Vectors: %d\n",
		stats.TotalPages, stats.TotalChunks, st.vectors.Count())

	summaries, err := st.catalog.MachineSummaries(ctx)
	if err != nil {
		return err
	}
	if len(summaries) > 0 {
		fmt.Println("\nMachines:")
		for _, s := range summaries {
			total := 0
			for _, n := range s.Documents {
				total += n
			}
			fmt.Printf("  %-20s %-12s %d documents\n", s.MachineName, s.MachineType, total)
		}
	}

	limit, _ := cmd.Flags().GetInt("logs")
	logs, err := st.catalog.RecentLogs(ctx, limit)
	if err != nil {
		return err
	}
	if len(logs) > 0 {
		fmt.Println("\nRecent activity:")
		for _, l := range logs {
			line := fmt.Sprintf("  %s  %-10s %s", l.CreatedAt.Format("2006-01-02 15:04"), l.Status, l.Filename)
			if l.Message != "" {
				line += ": " + l.Message
			}
			fmt.Println(line)
		}
	}
	return nil
}
