package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/fixxit/machdocs/internal/ingest"
	"github.com/fixxit/machdocs/internal/progress"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Scan the machines directory and index all documents",
	Long: `Walks every machine directory, extracts text from PDFs and text files,
and updates the keyword and semantic indexes. Documents whose content
is unchanged since the last run are skipped.`,
	RunE: runIndex,
}

func init() {
	indexCmd.Flags().Int("concurrency", 0, "max parallel documents (overrides config)")
	indexCmd.Flags().String("machines-dir", "", "machines directory (overrides config)")
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, args []string) error {
	start := time.Now()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if concurrency, _ := cmd.Flags().GetInt("concurrency"); concurrency > 0 {
		cfg.MaxConcurrency = concurrency
	}
	if dir, _ := cmd.Flags().GetString("machines-dir"); dir != "" {
		cfg.MachinesDir = dir
	}
	if _, err := os.Stat(cfg.MachinesDir); err != nil {
		return fmt.Errorf("machines directory %s: %w", cfg.MachinesDir, err)
	}

	// Ctrl-C stops launching new documents; finished work stays committed.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	st, err := openStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.close()

	ingestor := ingest.NewIngestor(st.catalog, st.keywords, st.vectors, st.embedder, ingest.Options{
		ChunkSize:       cfg.ChunkSize,
		Overlap:         cfg.ChunkOverlap,
		DocumentTimeout: time.Duration(cfg.DocumentTimeout) * time.Second,
	})

	reporter := progress.NewReporter()
	started := false
	scanner := ingest.NewScanner(ingestor, ingest.ScannerOptions{
		Concurrency: cfg.MaxConcurrency,
		Include:     cfg.Include,
		Exclude:     cfg.Exclude,
		OnProgress: func(done, total int, path string) {
			if !started {
				reporter.Start(total)
				started = true
			}
			reporter.Update(done, filepath.Base(path))
		},
	})

	result, err := scanner.ScanAll(ctx, cfg.MachinesDir)
	if started {
		reporter.Finish()
	}
	if err != nil {
		return err
	}

	if err := st.vectors.Persist(context.Background(), cfg.VectorDir()); err != nil {
		return fmt.Errorf("persisting vector store: %w", err)
	}

	fmt.Printf("Indexed %d documents (%d skipped, %d failed) across %d machines in %s\n",
		result.Indexed, result.Skipped, result.Failed, result.Machines, time.Since(start).Round(time.Second))
	if result.Removed > 0 {
		fmt.Printf("Removed %d documents whose files no longer exist\n", result.Removed)
	}
	if len(result.Errors) > 0 && verbose {
		for _, e := range result.Errors {
			fmt.Fprintf(os.Stderr, "  - %v\n", e)
		}
	}
	if result.Failed > 0 && !verbose {
		fmt.Println("Run with --verbose to see failure details, or `machdocs status` for logs.")
	}
	return nil
}
