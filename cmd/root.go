package cmd

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "machdocs",
	Short: "Index and search industrial machine documentation",
	Long: `Machdocs builds a searchable index over machine documentation:
operating manuals, wiring diagrams, spare part lists, and operator
notes. It combines an exact keyword index with semantic embeddings
so both error codes and free-form problem descriptions find the
right page. AI agents connect via MCP.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelWarn
		if verbose {
			level = slog.LevelDebug
		}
		// Stdout is reserved for command output (and MCP protocol traffic).
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", ".machdocs.yml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
