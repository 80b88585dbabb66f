package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fixxit/machdocs/internal/search"
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search the indexed documentation",
	Long: `Runs a hybrid search over the document index: exact keyword matches
(error codes, part numbers, terms) fused with semantic similarity.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().String("machine", "", "restrict to one machine by exact name")
	searchCmd.Flags().String("type", "", "restrict to one document type (manual, diagram, parts, context, general, info)")
	searchCmd.Flags().Int("limit", 10, "maximum number of results")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
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

	machine, _ := cmd.Flags().GetString("machine")
	docType, _ := cmd.Flags().GetString("type")
	limit, _ := cmd.Flags().GetInt("limit")

	results, err := st.searchEngine(cfg).Search(ctx, search.Query{
		Text:         strings.Join(args, " "),
		Machine:      machine,
		DocumentType: docType,
		Limit:        limit,
	})
	if err != nil {
		return err
	}

	printResults(results)
	return nil
}

var troubleshootCmd = &cobra.Command{
	Use:   "troubleshoot <problem description>",
	Short: "Search for troubleshooting information about a problem",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runTroubleshoot,
}

func init() {
	troubleshootCmd.Flags().String("machine", "", "restrict to one machine by exact name")
	troubleshootCmd.Flags().Int("limit", 5, "maximum number of results")
	rootCmd.AddCommand(troubleshootCmd)
}

func runTroubleshoot(cmd *cobra.Command, args []string) error {
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

	machine, _ := cmd.Flags().GetString("machine")
	limit, _ := cmd.Flags().GetInt("limit")

	results, err := st.searchEngine(cfg).SearchTroubleshooting(ctx, machine, strings.Join(args, " "), limit)
	if err != nil {
		return err
	}

	printResults(results)
	return nil
}

func printResults(results []search.Result) {
	if len(results) == 0 {
		fmt.Println("No results found.")
		return
	}
	for i, r := range results {
		fmt.Printf("%d. %s  [%s / %s]  page %d  (score %.3f)\n",
			i+1, r.Filename, r.MachineName, r.DocumentType, r.PageNumber, r.Composite)
		if len(r.MatchedTerms) > 0 {
			fmt.Printf("   matched: %s\n", strings.Join(r.MatchedTerms, ", "))
		}
		if r.Snippet != "" {
			fmt.Printf("   %s\n", r.Snippet)
		}
		fmt.Printf("   document id: %d\n\n", r.DocumentID)
	}
}
