package cmd

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fixxit/machdocs/internal/catalog"
)

var showCmd = &cobra.Command{
	Use:   "show <document-id>",
	Short: "Print the extracted text of an indexed document",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

func init() {
	showCmd.Flags().String("pages", "", "comma-separated page numbers (default all)")
	rootCmd.AddCommand(showCmd)
}

func runShow(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid document id %q", args[0])
	}

	var pages []int
	if raw, _ := cmd.Flags().GetString("pages"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			n, err := strconv.Atoi(strings.TrimSpace(part))
			if err != nil {
				return fmt.Errorf("invalid page number %q", part)
			}
			pages = append(pages, n)
		}
	}

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

	content, err := st.catalog.GetDocumentContent(ctx, id, pages)
	if err != nil {
		return err
	}

	fmt.Printf("%s  [%s / %s]  %d pages\n\n",
		content.Document.Filename, content.MachineName, content.Document.DocumentType, content.Document.PageCount)
	for _, p := range content.Pages {
		fmt.Printf("--- page %d ---\n%s\n\n", p.PageNumber, p.CleanText)
	}
	return nil
}

var machinesCmd = &cobra.Command{
	Use:   "machines [name]",
	Short: "List machines, or show one machine's documents",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runMachines,
}

func init() {
	machinesCmd.Flags().String("type", "", "restrict documents to one type")
	rootCmd.AddCommand(machinesCmd)
}

func runMachines(cmd *cobra.Command, args []string) error {
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

	if len(args) == 0 {
		machines, err := st.catalog.ListMachines(ctx)
		if err != nil {
			return err
		}
		for _, m := range machines {
			line := m.Name
			if m.MachineType != "" {
				line += "  (" + m.MachineType + ")"
			}
			if m.LineNumber != "" {
				line += "  " + m.LineNumber
			}
			fmt.Println(line)
			if m.Description != "" {
				fmt.Println("   " + m.Description)
			}
		}
		return nil
	}

	machine, err := st.catalog.GetMachine(ctx, args[0])
	if err != nil {
		return err
	}
	docType := catalog.DocumentType(cmd.Flag("type").Value.String())
	if docType != "" && !catalog.ValidDocumentType(docType) {
		return fmt.Errorf("unknown document type %q", docType)
	}
	docs, err := st.catalog.MachineDocuments(ctx, machine.ID, docType)
	if err != nil {
		return err
	}

	fmt.Printf("%s  (%s)  %d documents\n", machine.Name, machine.MachineType, len(docs))
	for _, d := range docs {
		fmt.Printf("  [%d] %-10s %s  (%d pages)\n", d.ID, d.DocumentType, d.Filename, d.PageCount)
	}
	return nil
}
