// Package search fuses keyword and semantic rankings into one result list.
package search

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/fixxit/machdocs/internal/catalog"
	"github.com/fixxit/machdocs/internal/keyword"
	"github.com/fixxit/machdocs/internal/textproc"
	"github.com/fixxit/machdocs/internal/vectorstore"
)

const (
	// DefaultKeywordWeight and DefaultSemanticWeight split the composite
	// score evenly between the two rankings.
	DefaultKeywordWeight  = 0.5
	DefaultSemanticWeight = 0.5

	defaultLimit  = 10
	semanticDepth = 20
)

// Query is one search request.
type Query struct {
	Text         string
	Machine      string
	DocumentType string
	Limit        int
}

// Result is one scored document, attributed to the page that carried the
// strongest evidence.
type Result struct {
	DocumentID    int64
	Filename      string
	MachineName   string
	DocumentType  catalog.DocumentType
	PageNumber    int
	Snippet       string
	KeywordScore  float64
	SemanticScore float64
	Composite     float64
	MatchedTerms  []string
}

// Engine coordinates the keyword index and the vector store.
type Engine struct {
	catalog        *catalog.Store
	keywords       *keyword.Index
	vectors        vectorstore.Store
	keywordWeight  float64
	semanticWeight float64
	logger         *slog.Logger
}

// Weights configures the composite score split. Zero values fall back to the
// even defaults.
type Weights struct {
	Keyword  float64
	Semantic float64
}

// NewEngine creates a search engine over the given stores.
func NewEngine(cat *catalog.Store, kw *keyword.Index, vs vectorstore.Store, weights Weights, logger *slog.Logger) *Engine {
	wk, ws := weights.Keyword, weights.Semantic
	if wk <= 0 && ws <= 0 {
		wk, ws = DefaultKeywordWeight, DefaultSemanticWeight
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		catalog:        cat,
		keywords:       kw,
		vectors:        vs,
		keywordWeight:  wk,
		semanticWeight: ws,
		logger:         logger,
	}
}

type candidate struct {
	documentID    int64
	keywordScore  float64
	semanticScore float64
	matchedTerms  []string
	bestTerm      string
	keywordPage   int
	semanticPage  int
	semanticText  string
}

// Search runs both rankings for the query, normalizes each score set by its
// maximum, and merges them with the configured weights. A document found by
// either ranking participates; absence from one ranking contributes zero to
// that component. Results order by composite score descending, then document
// id, then page.
func (e *Engine) Search(ctx context.Context, q Query) ([]Result, error) {
	text := strings.TrimSpace(q.Text)
	if text == "" {
		return nil, fmt.Errorf("empty query")
	}
	if q.DocumentType != "" && !catalog.ValidDocumentType(catalog.DocumentType(q.DocumentType)) {
		return nil, fmt.Errorf("unknown document type %q", q.DocumentType)
	}
	limit := q.Limit
	if limit <= 0 {
		limit = defaultLimit
	}

	terms := textproc.QueryTerms(text)
	keywordMatches, err := e.keywords.Search(ctx, terms, keyword.Filter{
		Machine:      q.Machine,
		DocumentType: q.DocumentType,
	})
	if err != nil {
		return nil, fmt.Errorf("keyword search: %w", err)
	}

	depth := limit
	if depth < semanticDepth {
		depth = semanticDepth
	}
	semanticHits, err := e.vectors.Search(ctx, text, depth, &vectorstore.Filter{
		Machine:      q.Machine,
		DocumentType: q.DocumentType,
	})
	if err != nil {
		return nil, fmt.Errorf("semantic search: %w", err)
	}

	candidates := make(map[int64]*candidate)
	get := func(docID int64) *candidate {
		c, ok := candidates[docID]
		if !ok {
			c = &candidate{documentID: docID}
			candidates[docID] = c
		}
		return c
	}

	var maxKeyword float64
	for _, m := range keywordMatches {
		if m.Score > maxKeyword {
			maxKeyword = m.Score
		}
	}
	for _, m := range keywordMatches {
		c := get(m.DocumentID)
		if maxKeyword > 0 {
			c.keywordScore = m.Score / maxKeyword
		}
		c.matchedTerms = m.Terms
		c.bestTerm = m.BestTerm
		c.keywordPage = m.BestPage
	}

	var maxSemantic float32
	for _, h := range semanticHits {
		if h.Similarity > maxSemantic {
			maxSemantic = h.Similarity
		}
	}
	for _, h := range semanticHits {
		c := get(h.DocumentID)
		var score float64
		if maxSemantic > 0 {
			score = float64(h.Similarity) / float64(maxSemantic)
		}
		// Hits arrive best-first per document ordering rules, so keep the
		// first one seen for each document.
		if c.semanticText == "" || score > c.semanticScore {
			c.semanticScore = score
			c.semanticPage = h.PageNumber
			c.semanticText = h.Text
		}
	}

	ordered := make([]*candidate, 0, len(candidates))
	for _, c := range candidates {
		ordered = append(ordered, c)
	}

	results := make([]Result, 0, len(ordered))
	for _, c := range ordered {
		r, err := e.buildResult(ctx, c)
		if err != nil {
			return nil, err
		}
		if r != nil {
			results = append(results, *r)
		}
	}

	sort.Slice(results, func(a, b int) bool {
		if results[a].Composite != results[b].Composite {
			return results[a].Composite > results[b].Composite
		}
		if results[a].DocumentID != results[b].DocumentID {
			return results[a].DocumentID < results[b].DocumentID
		}
		return results[a].PageNumber < results[b].PageNumber
	})

	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

func (e *Engine) buildResult(ctx context.Context, c *candidate) (*Result, error) {
	doc, err := e.catalog.GetDocument(ctx, c.documentID)
	if err != nil {
		// A vector hit can outlive its document row when a re-ingestion is
		// mid-flight. Drop it rather than failing the whole query.
		if catalog.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	if doc.Status != catalog.StatusCompleted {
		return nil, nil
	}

	machine, err := e.machineName(ctx, doc.MachineID)
	if err != nil {
		return nil, err
	}

	r := &Result{
		DocumentID:    doc.ID,
		Filename:      doc.Filename,
		MachineName:   machine,
		DocumentType:  doc.DocumentType,
		KeywordScore:  c.keywordScore,
		SemanticScore: c.semanticScore,
		Composite:     e.keywordWeight*c.keywordScore + e.semanticWeight*c.semanticScore,
		MatchedTerms:  c.matchedTerms,
	}

	if c.semanticText != "" {
		r.PageNumber = c.semanticPage
		r.Snippet = makeSnippet(c.semanticText)
		return r, nil
	}

	r.PageNumber = c.keywordPage
	page, err := e.catalog.GetPage(ctx, doc.ID, c.keywordPage)
	if err != nil {
		if catalog.IsNotFound(err) {
			return r, nil
		}
		return nil, err
	}
	r.Snippet = snippetAround(page.CleanText, c.bestTerm)
	return r, nil
}

func (e *Engine) machineName(ctx context.Context, machineID int64) (string, error) {
	name, err := e.catalog.MachineName(ctx, machineID)
	if err != nil {
		if catalog.IsNotFound(err) {
			return "", nil
		}
		return "", err
	}
	return name, nil
}

// troubleshootingTerms widen a problem description toward the vocabulary of
// fault sections in manuals.
var troubleshootingTerms = []string{"troubleshooting", "problem", "error", "fault", "repair"}

// SearchTroubleshooting runs a search tuned for fault diagnosis: the problem
// description is widened with troubleshooting vocabulary and manual and
// pinned-context documents get a ranking boost.
func (e *Engine) SearchTroubleshooting(ctx context.Context, machine, problem string, limit int) ([]Result, error) {
	enriched := problem
	lower := strings.ToLower(problem)
	for _, t := range troubleshootingTerms {
		if !strings.Contains(lower, t) {
			enriched += " " + t
		}
	}

	results, err := e.Search(ctx, Query{Text: enriched, Machine: machine, Limit: limit * 2})
	if err != nil {
		return nil, err
	}

	for i := range results {
		switch results[i].DocumentType {
		case catalog.TypeManual, catalog.TypeContext:
			results[i].Composite *= 1.2
		}
	}
	sort.Slice(results, func(a, b int) bool {
		if results[a].Composite != results[b].Composite {
			return results[a].Composite > results[b].Composite
		}
		if results[a].DocumentID != results[b].DocumentID {
			return results[a].DocumentID < results[b].DocumentID
		}
		return results[a].PageNumber < results[b].PageNumber
	})
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// Suggest proposes completions for the partial query: machine names first,
// then indexed terms by frequency.
func (e *Engine) Suggest(ctx context.Context, partial string, limit int) ([]string, error) {
	if limit <= 0 {
		limit = defaultLimit
	}
	lower := strings.ToLower(strings.TrimSpace(partial))
	if lower == "" {
		return nil, nil
	}

	var suggestions []string
	machines, err := e.catalog.ListMachines(ctx)
	if err != nil {
		return nil, err
	}
	for _, m := range machines {
		if strings.HasPrefix(strings.ToLower(m.Name), lower) {
			suggestions = append(suggestions, m.Name)
		}
	}

	terms, err := e.keywords.Suggest(ctx, partial, limit)
	if err != nil {
		return nil, err
	}
	suggestions = append(suggestions, terms...)
	if len(suggestions) > limit {
		suggestions = suggestions[:limit]
	}
	return suggestions, nil
}
