// Package keyword maintains the normalized-keyword posting index and serves
// exact-match document search over it.
package keyword

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/fixxit/machdocs/internal/db"
	"github.com/fixxit/machdocs/internal/textproc"
)

// Index stores keyword postings in the relational schema.
type Index struct {
	db *db.DB
}

// NewIndex creates a keyword index on the given database.
func NewIndex(database *db.DB) *Index {
	return &Index{db: database}
}

// PageKeywords is the ordered keyword occurrence list of one page.
type PageKeywords struct {
	PageNumber int
	Keywords   []textproc.Keyword
}

// Filter restricts keyword search to one machine and/or document type.
// Both are hard exclusions when set.
type Filter struct {
	Machine      string
	DocumentType string
}

// DocMatch is one document scored against a set of query terms.
type DocMatch struct {
	DocumentID   int64
	Score        float64
	MatchedTerms int
	RelevanceSum float64
	BestPage     int
	BestTerm     string
	Terms        []string
}

// ReindexTx replaces all postings of a document inside the caller's
// transaction. The old postings are removed first, decrementing shared
// keyword frequencies and deleting keywords that reach zero globally, then
// the new occurrence counts are applied and relevance is recomputed for
// every keyword whose corpus document frequency changed.
func (i *Index) ReindexTx(ctx context.Context, tx *sql.Tx, docID int64, pages []PageKeywords) error {
	affected, err := removeDocumentPostings(ctx, tx, docID)
	if err != nil {
		return err
	}

	type aggregate struct {
		frequency int
		pages     map[int]struct{}
		kind      textproc.KeywordType
	}
	terms := make(map[string]*aggregate)
	for _, pk := range pages {
		for _, kw := range pk.Keywords {
			agg, ok := terms[kw.Term]
			if !ok {
				agg = &aggregate{pages: make(map[int]struct{}), kind: kw.Type}
				terms[kw.Term] = agg
			}
			agg.frequency++
			agg.pages[pk.PageNumber] = struct{}{}
		}
	}

	for term, agg := range terms {
		var keywordID int64
		err := tx.QueryRowContext(ctx,
			`INSERT INTO keywords (term, keyword_type, frequency) VALUES (?, ?, ?)
			 ON CONFLICT(term) DO UPDATE SET frequency = frequency + excluded.frequency
			 RETURNING id`,
			term, string(agg.kind), agg.frequency,
		).Scan(&keywordID)
		if err != nil {
			return fmt.Errorf("upserting keyword %q: %w", term, err)
		}

		pageList := make([]int, 0, len(agg.pages))
		for p := range agg.pages {
			pageList = append(pageList, p)
		}
		sort.Ints(pageList)
		pagesJSON, err := json.Marshal(pageList)
		if err != nil {
			return fmt.Errorf("encoding page list: %w", err)
		}

		_, err = tx.ExecContext(ctx,
			`INSERT INTO keyword_postings (keyword_id, document_id, frequency, relevance, pages)
			 VALUES (?, ?, ?, 0, ?)`,
			keywordID, docID, agg.frequency, string(pagesJSON),
		)
		if err != nil {
			return fmt.Errorf("inserting posting for %q: %w", term, err)
		}
		affected[keywordID] = struct{}{}
	}

	return recomputeRelevance(ctx, tx, affected)
}

// DeleteDocumentTx removes all postings of a document inside the caller's
// transaction, garbage-collecting emptied keywords and recomputing relevance
// for the keywords that lost a posting.
func (i *Index) DeleteDocumentTx(ctx context.Context, tx *sql.Tx, docID int64) error {
	affected, err := removeDocumentPostings(ctx, tx, docID)
	if err != nil {
		return err
	}
	return recomputeRelevance(ctx, tx, affected)
}

func removeDocumentPostings(ctx context.Context, tx *sql.Tx, docID int64) (map[int64]struct{}, error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT keyword_id, frequency FROM keyword_postings WHERE document_id = ?`, docID)
	if err != nil {
		return nil, fmt.Errorf("querying old postings: %w", err)
	}

	affected := make(map[int64]struct{})
	type old struct {
		keywordID int64
		frequency int
	}
	var olds []old
	for rows.Next() {
		var o old
		if err := rows.Scan(&o.keywordID, &o.frequency); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning old posting: %w", err)
		}
		olds = append(olds, o)
		affected[o.keywordID] = struct{}{}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, o := range olds {
		if _, err := tx.ExecContext(ctx,
			`UPDATE keywords SET frequency = frequency - ? WHERE id = ?`, o.frequency, o.keywordID); err != nil {
			return nil, fmt.Errorf("decrementing keyword frequency: %w", err)
		}
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM keyword_postings WHERE document_id = ?`, docID); err != nil {
		return nil, fmt.Errorf("deleting old postings: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM keywords WHERE frequency <= 0`); err != nil {
		return nil, fmt.Errorf("garbage-collecting keywords: %w", err)
	}

	return affected, nil
}

// Relevance is term_frequency / (1 + ln(document_frequency)), clamped to
// [0,1]: monotonic in in-document frequency, inversely monotonic in corpus
// rarity.
func relevance(termFrequency, documentFrequency int) float64 {
	if termFrequency <= 0 || documentFrequency <= 0 {
		return 0
	}
	r := float64(termFrequency) / (1 + math.Log(float64(documentFrequency)))
	if r > 1 {
		return 1
	}
	return r
}

func recomputeRelevance(ctx context.Context, tx *sql.Tx, keywordIDs map[int64]struct{}) error {
	for keywordID := range keywordIDs {
		var df int
		if err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM keyword_postings WHERE keyword_id = ?`, keywordID).Scan(&df); err != nil {
			return fmt.Errorf("counting document frequency: %w", err)
		}
		if df == 0 {
			continue
		}

		rows, err := tx.QueryContext(ctx,
			`SELECT document_id, frequency FROM keyword_postings WHERE keyword_id = ?`, keywordID)
		if err != nil {
			return fmt.Errorf("querying postings for relevance: %w", err)
		}
		type posting struct {
			docID     int64
			frequency int
		}
		var postings []posting
		for rows.Next() {
			var p posting
			if err := rows.Scan(&p.docID, &p.frequency); err != nil {
				rows.Close()
				return fmt.Errorf("scanning posting: %w", err)
			}
			postings = append(postings, p)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}

		for _, p := range postings {
			if _, err := tx.ExecContext(ctx,
				`UPDATE keyword_postings SET relevance = ? WHERE keyword_id = ? AND document_id = ?`,
				relevance(p.frequency, df), keywordID, p.docID); err != nil {
				return fmt.Errorf("updating relevance: %w", err)
			}
		}
	}
	return nil
}

// Search looks up postings for each query term and scores candidate
// documents by coverage-weighted relevance: documents matching more distinct
// query terms outrank documents matching fewer, with the relevance sum as
// tie-break. Only completed documents participate.
func (i *Index) Search(ctx context.Context, terms []string, filter Filter) ([]DocMatch, error) {
	if len(terms) == 0 {
		return nil, nil
	}

	query := `SELECT k.term, p.document_id, p.relevance, p.pages
		FROM keyword_postings p
		JOIN keywords k ON p.keyword_id = k.id
		JOIN documents d ON p.document_id = d.id
		JOIN machines m ON d.machine_id = m.id
		WHERE d.processing_status = 'completed'
		  AND k.term IN (?` + strings.Repeat(",?", len(terms)-1) + `)`
	args := make([]any, 0, len(terms)+2)
	for _, t := range terms {
		args = append(args, t)
	}
	if filter.Machine != "" {
		query += ` AND m.machine_name = ?`
		args = append(args, filter.Machine)
	}
	if filter.DocumentType != "" {
		query += ` AND d.document_type = ?`
		args = append(args, filter.DocumentType)
	}

	rows, err := i.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("searching postings: %w", err)
	}
	defer rows.Close()

	matches := make(map[int64]*DocMatch)
	bestRelevance := make(map[int64]float64)
	for rows.Next() {
		var term, pagesJSON string
		var docID int64
		var rel float64
		if err := rows.Scan(&term, &docID, &rel, &pagesJSON); err != nil {
			return nil, fmt.Errorf("scanning posting match: %w", err)
		}

		m, ok := matches[docID]
		if !ok {
			m = &DocMatch{DocumentID: docID, BestPage: 1}
			matches[docID] = m
		}
		m.MatchedTerms++
		m.RelevanceSum += rel
		m.Terms = append(m.Terms, term)

		if rel >= bestRelevance[docID] {
			bestRelevance[docID] = rel
			m.BestTerm = term
			var pages []int
			if err := json.Unmarshal([]byte(pagesJSON), &pages); err == nil && len(pages) > 0 {
				m.BestPage = pages[0]
			}
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	results := make([]DocMatch, 0, len(matches))
	for _, m := range matches {
		coverage := float64(m.MatchedTerms) / float64(len(terms))
		m.Score = coverage * m.RelevanceSum
		sort.Strings(m.Terms)
		results = append(results, *m)
	}

	sort.Slice(results, func(a, b int) bool {
		if results[a].MatchedTerms != results[b].MatchedTerms {
			return results[a].MatchedTerms > results[b].MatchedTerms
		}
		if results[a].RelevanceSum != results[b].RelevanceSum {
			return results[a].RelevanceSum > results[b].RelevanceSum
		}
		return results[a].DocumentID < results[b].DocumentID
	})

	return results, nil
}

// Suggest returns up to limit indexed terms matching the partial query,
// ordered by global frequency.
func (i *Index) Suggest(ctx context.Context, partial string, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := i.db.QueryContext(ctx,
		`SELECT term FROM keywords WHERE term LIKE ? ORDER BY frequency DESC, term LIMIT ?`,
		"%"+strings.ToLower(partial)+"%", limit)
	if err != nil {
		return nil, fmt.Errorf("querying suggestions: %w", err)
	}
	defer rows.Close()

	var terms []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("scanning suggestion: %w", err)
		}
		terms = append(terms, t)
	}
	return terms, rows.Err()
}
