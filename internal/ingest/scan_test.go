package ingest

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/fixxit/machdocs/internal/catalog"
	"github.com/fixxit/machdocs/internal/db"
	"github.com/fixxit/machdocs/internal/keyword"
	"github.com/fixxit/machdocs/internal/vectorstore"
)

func newScanEnv(t *testing.T, opts ScannerOptions) (*Scanner, *catalog.Store, string) {
	t.Helper()
	database, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("opening database: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	embedder := &stubEmbedder{}
	vectors, err := vectorstore.NewChromemStore(embedder)
	if err != nil {
		t.Fatalf("creating vector store: %v", err)
	}
	cat := catalog.NewStore(database)
	ingestor := NewIngestor(cat, keyword.NewIndex(database), vectors, embedder, Options{})
	return NewScanner(ingestor, opts), cat, t.TempDir()
}

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatalf("writing %s: %v", rel, err)
		}
	}
}

func TestScanAllIndexesMatchingFiles(t *testing.T) {
	scanner, cat, root := newScanEnv(t, ScannerOptions{Concurrency: 2})
	writeTree(t, root, map[string]string{
		"Line_1/Feeder_1/info/setup.txt":       "Feeder alignment and setup notes.",
		"Line_1/Feeder_1/info/belts.md":        "Belt routing for the feeder station.",
		"Line_1/CSP/info/overview.txt":         "Separator overview and safety notes.",
		"Line_1/CSP/info/ignored.log":          "log output, wrong extension",
		"Line_1/Feeder_1/CSP-photo.jpg.backup": "not a document",
	})

	result, err := scanner.ScanAll(context.Background(), filepath.Join(root, "Line_1"))
	if err != nil {
		t.Fatalf("ScanAll: %v", err)
	}
	if result.Machines != 2 {
		t.Errorf("machines = %d, want 2", result.Machines)
	}
	if result.Total != 3 || result.Indexed != 3 {
		t.Errorf("total/indexed = %d/%d, want 3/3", result.Total, result.Indexed)
	}
	if result.Failed != 0 || len(result.Errors) != 0 {
		t.Errorf("unexpected failures: %+v", result.Errors)
	}

	stats, err := cat.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.ProcessedDocuments != 3 {
		t.Errorf("processed documents = %d, want 3", stats.ProcessedDocuments)
	}
}

func TestScanAllIsolatesFailures(t *testing.T) {
	scanner, cat, root := newScanEnv(t, ScannerOptions{Concurrency: 2})
	writeTree(t, root, map[string]string{
		"Line_2/Press_1/info/good.txt":  "Press maintenance schedule.",
		"Line_2/Press_1/info/empty.txt": "   ",
		"Line_2/Press_1/manual.pdf":     "not really a pdf",
		"Line_2/Press_1/info/more.txt":  "Hydraulic oil change interval.",
	})

	result, err := scanner.ScanAll(context.Background(), filepath.Join(root, "Line_2"))
	if err != nil {
		t.Fatalf("ScanAll: %v", err)
	}
	if result.Total != 4 {
		t.Errorf("total = %d, want 4", result.Total)
	}
	if result.Indexed != 2 {
		t.Errorf("indexed = %d, want 2", result.Indexed)
	}
	if result.Failed != 2 {
		t.Errorf("failed = %d, want 2", result.Failed)
	}
	if len(result.Errors) != 2 {
		t.Errorf("errors = %d, want 2: %+v", len(result.Errors), result.Errors)
	}

	// Failures were recorded on the documents, not swallowed.
	stats, err := cat.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.FailedDocuments != 2 {
		t.Errorf("failed documents = %d, want 2", stats.FailedDocuments)
	}
	if stats.ProcessedDocuments != 2 {
		t.Errorf("processed documents = %d, want 2", stats.ProcessedDocuments)
	}
}

func TestScanAllSecondRunSkipsUnchanged(t *testing.T) {
	scanner, _, root := newScanEnv(t, ScannerOptions{Concurrency: 1})
	writeTree(t, root, map[string]string{
		"Line_1/Ironer_1/info/a.txt": "Chest temperature calibration.",
		"Line_1/Ironer_1/info/b.txt": "Roller speed adjustment.",
	})
	dir := filepath.Join(root, "Line_1")

	if _, err := scanner.ScanAll(context.Background(), dir); err != nil {
		t.Fatalf("first scan: %v", err)
	}
	second, err := scanner.ScanAll(context.Background(), dir)
	if err != nil {
		t.Fatalf("second scan: %v", err)
	}
	if second.Skipped != 2 || second.Indexed != 0 {
		t.Errorf("skipped/indexed = %d/%d, want 2/0", second.Skipped, second.Indexed)
	}
}

func TestScanAllExcludePatterns(t *testing.T) {
	scanner, _, root := newScanEnv(t, ScannerOptions{
		Concurrency: 1,
		Exclude:     []string{"**/drafts/**"},
	})
	writeTree(t, root, map[string]string{
		"Line_1/Dryer_1/info/final.txt":  "Final airflow figures.",
		"Line_1/Dryer_1/drafts/wip.txt":  "Work in progress, do not index.",
		"Line_1/Dryer_1/drafts/wip2.txt": "Also in progress.",
	})

	result, err := scanner.ScanAll(context.Background(), filepath.Join(root, "Line_1"))
	if err != nil {
		t.Fatalf("ScanAll: %v", err)
	}
	if result.Total != 1 || result.Indexed != 1 {
		t.Errorf("total/indexed = %d/%d, want 1/1", result.Total, result.Indexed)
	}
}

func TestScanAllReportsProgress(t *testing.T) {
	var mu sync.Mutex
	var calls []int
	scanner, _, root := newScanEnv(t, ScannerOptions{
		Concurrency: 2,
		OnProgress: func(done, total int, path string) {
			mu.Lock()
			calls = append(calls, done)
			mu.Unlock()
		},
	})
	writeTree(t, root, map[string]string{
		"Line_1/Picker_1/info/a.txt": "Vacuum pickup pressure table.",
		"Line_1/Picker_1/info/b.txt": "Clamp release timing.",
		"Line_1/Picker_1/info/c.txt": "Sensor cleaning procedure.",
	})

	if _, err := scanner.ScanAll(context.Background(), filepath.Join(root, "Line_1")); err != nil {
		t.Fatalf("ScanAll: %v", err)
	}
	if len(calls) != 3 {
		t.Fatalf("progress calls = %d, want 3", len(calls))
	}
	seen := map[int]bool{}
	for _, c := range calls {
		seen[c] = true
	}
	for want := 1; want <= 3; want++ {
		if !seen[want] {
			t.Errorf("progress counter %d never reported", want)
		}
	}
}

func TestScanAllPrunesVanishedDocuments(t *testing.T) {
	scanner, cat, root := newScanEnv(t, ScannerOptions{Concurrency: 1})
	writeTree(t, root, map[string]string{
		"Line_1/Folder_1/info/keep.txt": "Folding blade gap settings.",
		"Line_1/Folder_1/info/gone.txt": "Obsolete jam clearing steps.",
	})
	dir := filepath.Join(root, "Line_1")

	if _, err := scanner.ScanAll(context.Background(), dir); err != nil {
		t.Fatalf("first scan: %v", err)
	}

	gonePath := filepath.Join(dir, "Folder_1", "info", "gone.txt")
	if err := os.Remove(gonePath); err != nil {
		t.Fatalf("removing file: %v", err)
	}

	second, err := scanner.ScanAll(context.Background(), dir)
	if err != nil {
		t.Fatalf("second scan: %v", err)
	}
	if second.Removed != 1 {
		t.Errorf("removed = %d, want 1", second.Removed)
	}
	if second.Skipped != 1 {
		t.Errorf("skipped = %d, want 1", second.Skipped)
	}

	doc, err := cat.GetDocumentByPath(context.Background(), gonePath)
	if err != nil {
		t.Fatalf("GetDocumentByPath: %v", err)
	}
	if doc != nil {
		t.Errorf("vanished document still cataloged: %+v", doc)
	}
	kept, err := cat.GetDocumentByPath(context.Background(), filepath.Join(dir, "Folder_1", "info", "keep.txt"))
	if err != nil || kept == nil {
		t.Fatalf("kept document missing: doc=%v err=%v", kept, err)
	}
}

func TestScanAllMissingDirectory(t *testing.T) {
	scanner, _, root := newScanEnv(t, ScannerOptions{})
	if _, err := scanner.ScanAll(context.Background(), filepath.Join(root, "nope")); err == nil {
		t.Fatal("expected error for missing machines directory")
	}
}
