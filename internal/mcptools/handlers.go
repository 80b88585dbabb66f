package mcptools

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/fixxit/machdocs/internal/catalog"
	"github.com/fixxit/machdocs/internal/search"
)

func (s *Server) handleSearchDocuments(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := request.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: query"), nil
	}

	results, err := s.engine.Search(ctx, search.Query{
		Text:         query,
		Machine:      request.GetString("machine", ""),
		DocumentType: request.GetString("document_type", ""),
		Limit:        request.GetInt("limit", 10),
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
	}
	if len(results) == 0 {
		return mcp.NewToolResultText("No matching documents found."), nil
	}
	return mcp.NewToolResultText(formatResults(results)), nil
}

func (s *Server) handleSearchTroubleshooting(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	problem, err := request.RequireString("problem")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: problem"), nil
	}

	results, err := s.engine.SearchTroubleshooting(ctx,
		request.GetString("machine", ""), problem, request.GetInt("limit", 5))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
	}
	if len(results) == 0 {
		return mcp.NewToolResultText("No troubleshooting information found for this problem."), nil
	}
	return mcp.NewToolResultText(formatResults(results)), nil
}

func (s *Server) handleGetDocumentContent(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	docID, err := request.RequireInt("document_id")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: document_id"), nil
	}

	var pages []int
	if raw := request.GetString("pages", ""); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			n, err := strconv.Atoi(strings.TrimSpace(part))
			if err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("invalid page number %q", part)), nil
			}
			pages = append(pages, n)
		}
	}

	content, err := s.catalog.GetDocumentContent(ctx, int64(docID), pages)
	if err != nil {
		if catalog.IsNotFound(err) {
			return mcp.NewToolResultError(fmt.Sprintf("document %d not found", docID)), nil
		}
		return mcp.NewToolResultError(fmt.Sprintf("content lookup failed: %v", err)), nil
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("# %s (%s, %s)\n\n", content.Document.Filename, content.MachineName, content.Document.DocumentType))
	if len(content.Pages) == 0 {
		sb.WriteString("No pages matched the request.\n")
	}
	for _, p := range content.Pages {
		sb.WriteString(fmt.Sprintf("## Page %d\n\n%s\n\n", p.PageNumber, p.CleanText))
	}
	return mcp.NewToolResultText(sb.String()), nil
}

func (s *Server) handleGetMachineOverview(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := request.RequireString("machine")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: machine"), nil
	}

	machine, err := s.catalog.GetMachine(ctx, name)
	if err != nil {
		if catalog.IsNotFound(err) {
			return mcp.NewToolResultError(fmt.Sprintf("machine %q not found", name)), nil
		}
		return mcp.NewToolResultError(fmt.Sprintf("machine lookup failed: %v", err)), nil
	}

	docs, err := s.catalog.MachineDocuments(ctx, machine.ID, "")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("document lookup failed: %v", err)), nil
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("# Machine: %s\n\n", machine.Name))
	if machine.MachineType != "" {
		sb.WriteString(fmt.Sprintf("- Type: %s\n", machine.MachineType))
	}
	if machine.LineNumber != "" {
		sb.WriteString(fmt.Sprintf("- Line: %s\n", machine.LineNumber))
	}
	if machine.Description != "" {
		sb.WriteString(fmt.Sprintf("- Description: %s\n", machine.Description))
	}
	sb.WriteString(fmt.Sprintf("- Indexed documents: %d\n\n", len(docs)))

	byType := make(map[catalog.DocumentType][]catalog.Document)
	for _, d := range docs {
		byType[d.DocumentType] = append(byType[d.DocumentType], d)
	}
	types := make([]string, 0, len(byType))
	for t := range byType {
		types = append(types, string(t))
	}
	sort.Strings(types)
	for _, t := range types {
		sb.WriteString(fmt.Sprintf("## %s\n\n", t))
		for _, d := range byType[catalog.DocumentType(t)] {
			sb.WriteString(fmt.Sprintf("- [%d] %s (%d pages)\n", d.ID, d.Filename, d.PageCount))
		}
		sb.WriteString("\n")
	}
	return mcp.NewToolResultText(sb.String()), nil
}

func (s *Server) handleGetProcessingStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	stats, err := s.catalog.Stats(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("status query failed: %v", err)), nil
	}
	logs, err := s.catalog.RecentLogs(ctx, 10)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("log query failed: %v", err)), nil
	}

	var sb strings.Builder
	sb.WriteString("# Processing Status\n\n")
	sb.WriteString(fmt.Sprintf("- Total documents: %d\n", stats.TotalDocuments))
	sb.WriteString(fmt.Sprintf("- Completed: %d\n", stats.ProcessedDocuments))
	sb.WriteString(fmt.Sprintf("- Failed: %d\n", stats.FailedDocuments))
	sb.WriteString(fmt.Sprintf("- Total pages: %d\n", stats.TotalPages))
	sb.WriteString(fmt.Sprintf("- Total chunks: %d\n", stats.TotalChunks))

	if len(logs) > 0 {
		sb.WriteString("\n## Recent Activity\n\n")
		for _, l := range logs {
			sb.WriteString(fmt.Sprintf("- %s %s: %s", l.Filename, l.Status, l.Operation))
			if l.Message != "" {
				sb.WriteString(": " + l.Message)
			}
			sb.WriteString("\n")
		}
	}
	return mcp.NewToolResultText(sb.String()), nil
}

func formatResults(results []search.Result) string {
	var sb strings.Builder
	for i, r := range results {
		sb.WriteString(fmt.Sprintf("## %d. %s (%s, %s), page %d\n", i+1, r.Filename, r.MachineName, r.DocumentType, r.PageNumber))
		sb.WriteString(fmt.Sprintf("Document ID: %d | Score: %.3f (keyword %.3f, semantic %.3f)\n", r.DocumentID, r.Composite, r.KeywordScore, r.SemanticScore))
		if len(r.MatchedTerms) > 0 {
			sb.WriteString("Matched terms: " + strings.Join(r.MatchedTerms, ", ") + "\n")
		}
		if r.Snippet != "" {
			sb.WriteString("\n> " + r.Snippet + "\n")
		}
		sb.WriteString("\n")
	}
	return sb.String()
}
