package server

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fixxit/machdocs/internal/catalog"
	"github.com/fixxit/machdocs/internal/db"
	"github.com/fixxit/machdocs/internal/ingest"
	"github.com/fixxit/machdocs/internal/keyword"
	"github.com/fixxit/machdocs/internal/search"
	"github.com/fixxit/machdocs/internal/vectorstore"
)

type testEmbedder struct{}

func (testEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		a := float64(len(text)%5+1) / 6
		out[i] = []float32{float32(a), float32(math.Sqrt(1 - a*a)), 0}
	}
	return out, nil
}

func (testEmbedder) Dimensions() int { return 3 }
func (testEmbedder) Name() string    { return "test" }

type testServer struct {
	srv   *Server
	docID int64
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	database, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("opening database: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	vectors, err := vectorstore.NewChromemStore(testEmbedder{})
	if err != nil {
		t.Fatalf("creating vector store: %v", err)
	}
	cat := catalog.NewStore(database)
	kw := keyword.NewIndex(database)
	ingestor := ingest.NewIngestor(cat, kw, vectors, testEmbedder{}, ingest.Options{})

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
	content := "Hydraulic pressure must stay below 6 bar. Check the valve block weekly."
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing document: %v", err)
	}
	outcome, err := ingestor.Ingest(ctx, machine, path)
	if err != nil {
		t.Fatalf("ingesting: %v", err)
	}

	engine := search.NewEngine(cat, kw, vectors, search.Weights{}, nil)
	return &testServer{
		srv:   New(Config{Port: 0}, cat, engine, nil),
		docID: outcome.DocumentID,
	}
}

func (ts *testServer) get(t *testing.T, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	ts.srv.Router().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(v); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.get(t, "/healthz")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"ok"`) {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestSearchRequiresQuery(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.get(t, "/search")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	var body map[string]string
	decode(t, rec, &body)
	if body["error"] == "" {
		t.Error("missing error message")
	}
}

func TestSearchReturnsResults(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.get(t, "/search?q=hydraulic+pressure&machine=CSP")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var body struct {
		Query   string          `json:"query"`
		Count   int             `json:"count"`
		Results []search.Result `json:"results"`
	}
	decode(t, rec, &body)
	if body.Count != 1 || len(body.Results) != 1 {
		t.Fatalf("count = %d, results = %d", body.Count, len(body.Results))
	}
	if body.Results[0].DocumentID != ts.docID {
		t.Errorf("document id = %d, want %d", body.Results[0].DocumentID, ts.docID)
	}
	if body.Results[0].MachineName != "CSP" {
		t.Errorf("machine = %q", body.Results[0].MachineName)
	}
}

func TestSearchRejectsUnknownType(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.get(t, "/search?q=valve&type=blueprint")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestSuggest(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.get(t, "/suggest?q=hydr")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var body struct {
		Suggestions []string `json:"suggestions"`
	}
	decode(t, rec, &body)
	if len(body.Suggestions) == 0 || body.Suggestions[0] != "hydraulic" {
		t.Errorf("suggestions = %v, want [hydraulic ...]", body.Suggestions)
	}
}

func TestSuggestRequiresQuery(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.get(t, "/suggest")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestStatus(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.get(t, "/status")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body struct {
		Stats struct {
			TotalDocuments     int `json:"TotalDocuments"`
			ProcessedDocuments int `json:"ProcessedDocuments"`
		} `json:"stats"`
	}
	decode(t, rec, &body)
	if body.Stats.TotalDocuments != 1 || body.Stats.ProcessedDocuments != 1 {
		t.Errorf("stats = %+v", body.Stats)
	}
}

func TestDocumentContent(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.get(t, fmt.Sprintf("/documents/%d/content?pages=1", ts.docID))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "hydraulic") {
		t.Errorf("content missing: %s", rec.Body.String())
	}
}

func TestDocumentContentNotFound(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.get(t, "/documents/9999/content")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestDocumentContentBadID(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.get(t, "/documents/abc/content")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestDocumentContentBadPages(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.get(t, fmt.Sprintf("/documents/%d/content?pages=1,x", ts.docID))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestMachineEndpoint(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.get(t, "/machines/CSP")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var body struct {
		Documents []catalog.Document `json:"documents"`
	}
	decode(t, rec, &body)
	if len(body.Documents) != 1 {
		t.Errorf("documents = %d, want 1", len(body.Documents))
	}
}

func TestMachineNotFound(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.get(t, "/machines/Unknown_9")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestMachineRejectsUnknownType(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.get(t, "/machines/CSP?type=blueprint")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}
