package mcptools

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/fixxit/machdocs/internal/catalog"
	"github.com/fixxit/machdocs/internal/db"
	"github.com/fixxit/machdocs/internal/ingest"
	"github.com/fixxit/machdocs/internal/keyword"
	"github.com/fixxit/machdocs/internal/search"
	"github.com/fixxit/machdocs/internal/vectorstore"
)

// mockEmbedder implements embeddings.Embedder for testing.
type mockEmbedder struct{}

func (m *mockEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	result := make([][]float32, len(texts))
	for i, text := range texts {
		a := float64(len(text)%5+1) / 6
		result[i] = []float32{float32(a), float32(math.Sqrt(1 - a*a)), 0}
	}
	return result, nil
}
func (m *mockEmbedder) Dimensions() int { return 3 }
func (m *mockEmbedder) Name() string    { return "mock" }

func newTestServer(t *testing.T) (*Server, int64) {
	t.Helper()
	database, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("opening database: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	vectors, err := vectorstore.NewChromemStore(&mockEmbedder{})
	if err != nil {
		t.Fatalf("creating vector store: %v", err)
	}
	cat := catalog.NewStore(database)
	kw := keyword.NewIndex(database)
	ingestor := ingest.NewIngestor(cat, kw, vectors, &mockEmbedder{}, ingest.Options{})

	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "CSP")
	machine := catalog.Machine{Name: "CSP", DirectoryPath: dir, MachineType: "separator"}
	id, err := cat.EnsureMachine(ctx, machine)
	if err != nil {
		t.Fatalf("EnsureMachine: %v", err)
	}
	machine.ID = id

	path := filepath.Join(dir, "info", "hydraulics.txt")
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte("Hydraulic pressure must stay below 6 bar."), 0644); err != nil {
		t.Fatalf("writing document: %v", err)
	}
	outcome, err := ingestor.Ingest(ctx, machine, path)
	if err != nil {
		t.Fatalf("ingesting: %v", err)
	}

	engine := search.NewEngine(cat, kw, vectors, search.Weights{}, nil)
	return NewServer(cat, engine), outcome.DocumentID
}

func TestToolDefinitions(t *testing.T) {
	tests := []struct {
		name     string
		tool     mcp.Tool
		wantName string
	}{
		{"search_documents", searchDocumentsTool, "search_documents"},
		{"search_troubleshooting", searchTroubleshootingTool, "search_troubleshooting"},
		{"get_document_content", getDocumentContentTool, "get_document_content"},
		{"get_machine_overview", getMachineOverviewTool, "get_machine_overview"},
		{"get_processing_status", getProcessingStatusTool, "get_processing_status"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.tool.Name != tt.wantName {
				t.Errorf("tool name = %q, want %q", tt.tool.Name, tt.wantName)
			}
			if tt.tool.Description == "" {
				t.Error("tool description should not be empty")
			}
		})
	}
}

func TestNewServer(t *testing.T) {
	srv, _ := newTestServer(t)
	if srv.mcp == nil {
		t.Fatal("MCP server not initialized")
	}
}

func textContent(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if len(result.Content) == 0 {
		t.Fatal("empty tool result")
	}
	tc, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("unexpected content type %T", result.Content[0])
	}
	return tc.Text
}

func TestHandleSearchDocuments(t *testing.T) {
	srv, _ := newTestServer(t)
	ctx := context.Background()

	t.Run("basic search", func(t *testing.T) {
		req := mcp.CallToolRequest{}
		req.Params.Arguments = map[string]any{"query": "hydraulic pressure"}

		result, err := srv.handleSearchDocuments(ctx, req)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.IsError {
			t.Fatalf("unexpected tool error: %v", result.Content)
		}
		if !strings.Contains(textContent(t, result), "hydraulics.txt") {
			t.Errorf("result missing document: %s", textContent(t, result))
		}
	})

	t.Run("missing query", func(t *testing.T) {
		req := mcp.CallToolRequest{}
		req.Params.Arguments = map[string]any{}

		result, err := srv.handleSearchDocuments(ctx, req)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !result.IsError {
			t.Error("expected tool error for missing query")
		}
	})

	t.Run("machine filter excludes others", func(t *testing.T) {
		req := mcp.CallToolRequest{}
		req.Params.Arguments = map[string]any{"query": "hydraulic", "machine": "Feeder_1"}

		result, err := srv.handleSearchDocuments(ctx, req)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(textContent(t, result), "No matching documents") {
			t.Errorf("filter leaked results: %s", textContent(t, result))
		}
	})
}

func TestHandleGetDocumentContent(t *testing.T) {
	srv, docID := newTestServer(t)
	ctx := context.Background()

	req := mcp.CallToolRequest{}
	req.Params.Arguments = map[string]any{"document_id": float64(docID)}

	result, err := srv.handleGetDocumentContent(ctx, req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected tool error: %v", result.Content)
	}
	text := textContent(t, result)
	if !strings.Contains(text, "Hydraulic pressure") {
		t.Errorf("content missing page text: %s", text)
	}

	t.Run("unknown document", func(t *testing.T) {
		req := mcp.CallToolRequest{}
		req.Params.Arguments = map[string]any{"document_id": float64(9999)}

		result, err := srv.handleGetDocumentContent(ctx, req)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !result.IsError {
			t.Error("expected tool error for unknown document")
		}
	})
}

func TestHandleGetMachineOverview(t *testing.T) {
	srv, _ := newTestServer(t)
	ctx := context.Background()

	req := mcp.CallToolRequest{}
	req.Params.Arguments = map[string]any{"machine": "CSP"}

	result, err := srv.handleGetMachineOverview(ctx, req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected tool error: %v", result.Content)
	}
	text := textContent(t, result)
	if !strings.Contains(text, "Machine: CSP") || !strings.Contains(text, "Indexed documents: 1") {
		t.Errorf("overview incomplete: %s", text)
	}
}

func TestHandleGetProcessingStatus(t *testing.T) {
	srv, _ := newTestServer(t)
	ctx := context.Background()

	result, err := srv.handleGetProcessingStatus(ctx, mcp.CallToolRequest{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected tool error: %v", result.Content)
	}
	text := textContent(t, result)
	if !strings.Contains(text, "Total documents: 1") || !strings.Contains(text, "Completed: 1") {
		t.Errorf("status incomplete: %s", text)
	}
}
