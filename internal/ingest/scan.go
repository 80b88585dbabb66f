package ingest

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/fixxit/machdocs/internal/catalog"
)

// DefaultIncludePatterns selects the file types the pipeline can extract.
var DefaultIncludePatterns = []string{"**/*.pdf", "**/*.txt", "**/*.md"}

// ProgressFunc is called after each document finishes, with the running count.
type ProgressFunc func(done, total int, path string)

// Scanner walks a machines directory tree and ingests every matching
// document with bounded parallelism.
type Scanner struct {
	ingestor    *Ingestor
	concurrency int
	include     []string
	exclude     []string
	onProgress  ProgressFunc
	logger      *slog.Logger
}

// ScannerOptions configures a Scanner.
type ScannerOptions struct {
	Concurrency int
	Include     []string
	Exclude     []string
	OnProgress  ProgressFunc
	Logger      *slog.Logger
}

// NewScanner creates a Scanner over the given ingestor.
func NewScanner(ingestor *Ingestor, opts ScannerOptions) *Scanner {
	concurrency := opts.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}
	include := opts.Include
	if len(include) == 0 {
		include = DefaultIncludePatterns
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Scanner{
		ingestor:    ingestor,
		concurrency: concurrency,
		include:     include,
		exclude:     opts.Exclude,
		onProgress:  opts.OnProgress,
		logger:      logger,
	}
}

// ScanResult aggregates the outcome of one batch scan. A document failure is
// recorded here and never aborts the rest of the batch.
type ScanResult struct {
	Machines int
	Total    int
	Indexed  int
	Skipped  int
	Failed   int
	Removed  int
	Errors   []error
}

type scanTask struct {
	machine catalog.Machine
	path    string
}

// ScanAll walks every machine directory under machinesDir and ingests the
// matching documents. Cancellation stops launching new documents; work
// already committed stays committed.
func (s *Scanner) ScanAll(ctx context.Context, machinesDir string) (*ScanResult, error) {
	entries, err := os.ReadDir(machinesDir)
	if err != nil {
		return nil, fmt.Errorf("reading machines directory: %w", err)
	}

	result := &ScanResult{}
	var tasks []scanTask
	var machines []catalog.Machine
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		machineDir := filepath.Join(machinesDir, entry.Name())
		machine := MachineInfo(machineDir)
		id, err := s.ingestor.catalog.EnsureMachine(ctx, machine)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Errorf("registering machine %s: %w", machine.Name, err))
			continue
		}
		machine.ID = id
		machines = append(machines, machine)
		result.Machines++

		files, err := s.collectFiles(machineDir)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Errorf("scanning %s: %w", machine.Name, err))
			continue
		}
		for _, f := range files {
			tasks = append(tasks, scanTask{machine: machine, path: f})
		}
	}

	result.Total = len(tasks)
	if len(tasks) == 0 {
		s.prune(ctx, machines, result)
		return result, nil
	}

	sem := make(chan struct{}, s.concurrency)
	var mu sync.Mutex
	var processed int64
	var wg sync.WaitGroup

	for _, task := range tasks {
		select {
		case <-ctx.Done():
			mu.Lock()
			result.Failed++
			result.Errors = append(result.Errors, fmt.Errorf("ingest %s: %w", task.path, ctx.Err()))
			mu.Unlock()
			count := atomic.AddInt64(&processed, 1)
			if s.onProgress != nil {
				s.onProgress(int(count), result.Total, task.path)
			}
			continue
		case sem <- struct{}{}:
		}

		wg.Add(1)
		go func(t scanTask) {
			defer wg.Done()
			defer func() { <-sem }()

			outcome, err := s.ingestor.Ingest(ctx, t.machine, t.path)
			mu.Lock()
			if err != nil {
				result.Failed++
				result.Errors = append(result.Errors, err)
				s.logger.Warn("document failed", "path", t.path, "error", err)
			} else if outcome.Skipped {
				result.Skipped++
			} else {
				result.Indexed++
			}
			mu.Unlock()

			count := atomic.AddInt64(&processed, 1)
			if s.onProgress != nil {
				s.onProgress(int(count), result.Total, t.path)
			}
		}(task)
	}

	wg.Wait()
	s.prune(ctx, machines, result)
	return result, nil
}

// prune drops index entries for documents whose files no longer exist on
// disk. Skipped when the scan was cancelled, so a partial walk never deletes
// documents it did not get to check.
func (s *Scanner) prune(ctx context.Context, machines []catalog.Machine, result *ScanResult) {
	if ctx.Err() != nil {
		return
	}
	for _, machine := range machines {
		paths, err := s.ingestor.catalog.MachineDocumentPaths(ctx, machine.ID)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Errorf("listing documents of %s: %w", machine.Name, err))
			continue
		}
		for _, path := range paths {
			if _, err := os.Stat(path); !os.IsNotExist(err) {
				continue
			}
			if err := s.ingestor.Remove(ctx, path); err != nil {
				result.Errors = append(result.Errors, err)
				continue
			}
			s.logger.Info("pruned vanished document", "path", path)
			result.Removed++
		}
	}
}

func (s *Scanner) collectFiles(machineDir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(machineDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(machineDir, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if !matchesAny(s.include, rel) || matchesAny(s.exclude, rel) {
			return nil
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

func matchesAny(patterns []string, rel string) bool {
	for _, p := range patterns {
		if ok, err := doublestar.Match(p, rel); err == nil && ok {
			return true
		}
	}
	return false
}
