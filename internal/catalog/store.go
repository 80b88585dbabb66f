package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/fixxit/machdocs/internal/db"
)

// ErrNotFound is returned when a machine or document does not exist.
var ErrNotFound = errors.New("not found")

// IsNotFound reports whether err wraps ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// Store manages persistence of machines, documents, pages, and chunks.
type Store struct {
	db *db.DB
}

// NewStore creates a catalog store on the given database.
func NewStore(database *db.DB) *Store {
	return &Store{db: database}
}

// WithTx runs fn inside a single transaction. The per-document ingestion
// commit (pages, chunks, postings, status) goes through here so it becomes
// visible atomically.
func (s *Store) WithTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// EnsureMachine inserts a machine record or updates the existing one with
// the same name, returning its id. Machines are never auto-deleted.
func (s *Store) EnsureMachine(ctx context.Context, m Machine) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx,
		`SELECT id FROM machines WHERE machine_name = ?`, m.Name,
	).Scan(&id)

	if err == nil {
		_, err = s.db.ExecContext(ctx,
			`UPDATE machines
			 SET machine_type = ?, line_number = ?, description = ?, directory_path = ?,
			     updated_at = datetime('now')
			 WHERE id = ?`,
			m.MachineType, m.LineNumber, m.Description, m.DirectoryPath, id,
		)
		if err != nil {
			return 0, fmt.Errorf("updating machine: %w", err)
		}
		return id, nil
	}
	if err != sql.ErrNoRows {
		return 0, fmt.Errorf("looking up machine: %w", err)
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO machines (machine_name, machine_type, line_number, description, directory_path)
		 VALUES (?, ?, ?, ?, ?)`,
		m.Name, m.MachineType, m.LineNumber, m.Description, m.DirectoryPath,
	)
	if err != nil {
		return 0, fmt.Errorf("inserting machine: %w", err)
	}
	return res.LastInsertId()
}

// GetMachine retrieves a machine by exact name.
func (s *Store) GetMachine(ctx context.Context, name string) (*Machine, error) {
	var m Machine
	err := s.db.QueryRowContext(ctx,
		`SELECT id, machine_name, machine_type, line_number, description, directory_path, created_at, updated_at
		 FROM machines WHERE machine_name = ?`, name,
	).Scan(&m.ID, &m.Name, &m.MachineType, &m.LineNumber, &m.Description, &m.DirectoryPath, &m.CreatedAt, &m.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("machine %q: %w", name, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting machine: %w", err)
	}
	return &m, nil
}

// MachineName resolves a machine id to its name.
func (s *Store) MachineName(ctx context.Context, id int64) (string, error) {
	var name string
	err := s.db.QueryRowContext(ctx,
		`SELECT machine_name FROM machines WHERE id = ?`, id).Scan(&name)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("machine %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("getting machine name: %w", err)
	}
	return name, nil
}

// ListMachines returns all machines ordered by name.
func (s *Store) ListMachines(ctx context.Context) ([]Machine, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, machine_name, machine_type, line_number, description, directory_path, created_at, updated_at
		 FROM machines ORDER BY machine_name`)
	if err != nil {
		return nil, fmt.Errorf("listing machines: %w", err)
	}
	defer rows.Close()

	var machines []Machine
	for rows.Next() {
		var m Machine
		if err := rows.Scan(&m.ID, &m.Name, &m.MachineType, &m.LineNumber, &m.Description, &m.DirectoryPath, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning machine: %w", err)
		}
		machines = append(machines, m)
	}
	return machines, rows.Err()
}

// GetDocumentByPath retrieves a document by its file path, or nil if absent.
func (s *Store) GetDocumentByPath(ctx context.Context, filePath string) (*Document, error) {
	d, err := s.scanDocument(s.db.QueryRowContext(ctx, selectDocument+` WHERE file_path = ?`, filePath))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting document by path: %w", err)
	}
	return d, nil
}

// GetDocument retrieves a document by id.
func (s *Store) GetDocument(ctx context.Context, id int64) (*Document, error) {
	d, err := s.scanDocument(s.db.QueryRowContext(ctx, selectDocument+` WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("document %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting document: %w", err)
	}
	return d, nil
}

const selectDocument = `SELECT id, machine_id, file_path, filename, document_type, content_hash,
	file_size, page_count, processing_status, error_message, created_at, updated_at FROM documents`

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *Store) scanDocument(row rowScanner) (*Document, error) {
	var d Document
	err := row.Scan(&d.ID, &d.MachineID, &d.FilePath, &d.Filename, &d.DocumentType, &d.ContentHash,
		&d.FileSize, &d.PageCount, &d.Status, &d.ErrorMessage, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// CreateDocument inserts a new document record in pending state.
func (s *Store) CreateDocument(ctx context.Context, d Document) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO documents (machine_id, file_path, filename, document_type, file_size, processing_status)
		 VALUES (?, ?, ?, ?, ?, 'pending')`,
		d.MachineID, d.FilePath, d.Filename, d.DocumentType, d.FileSize,
	)
	if err != nil {
		return 0, fmt.Errorf("inserting document: %w", err)
	}
	return res.LastInsertId()
}

// ResetDocument returns an existing document to pending state ahead of
// re-processing, keeping its stored hash for comparison by the caller.
func (s *Store) ResetDocument(ctx context.Context, id int64, docType DocumentType, fileSize int64) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE documents SET document_type = ?, file_size = ?, processing_status = 'pending',
		 error_message = '', updated_at = datetime('now') WHERE id = ?`,
		docType, fileSize, id,
	)
	if err != nil {
		return fmt.Errorf("resetting document: %w", err)
	}
	return nil
}

// DeleteDocumentTx removes the document row inside the caller's transaction.
// Pages, chunks, postings, and logs cascade with it.
func (s *Store) DeleteDocumentTx(ctx context.Context, tx *sql.Tx, id int64) error {
	res, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting document: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("document %d: %w", id, ErrNotFound)
	}
	return nil
}

// SetStatus updates the processing status and writes an audit log row.
func (s *Store) SetStatus(ctx context.Context, id int64, status ProcessingStatus, message string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE documents SET processing_status = ?, error_message = ?, updated_at = datetime('now') WHERE id = ?`,
		status, message, id,
	)
	if err != nil {
		return fmt.Errorf("updating document status: %w", err)
	}
	return s.appendLog(ctx, s.db, id, "process", string(status), message)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *Store) appendLog(ctx context.Context, ex execer, docID int64, operation, status, message string) error {
	_, err := ex.ExecContext(ctx,
		`INSERT INTO processing_logs (id, document_id, operation, status, message) VALUES (?, ?, ?, ?, ?)`,
		uuid.New().String(), docID, operation, status, message,
	)
	if err != nil {
		return fmt.Errorf("appending processing log: %w", err)
	}
	return nil
}

// ReplacePagesTx deletes all pages of the document and inserts the new set,
// inside the caller's transaction.
func (s *Store) ReplacePagesTx(ctx context.Context, tx *sql.Tx, docID int64, pages []Page) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM document_pages WHERE document_id = ?`, docID); err != nil {
		return fmt.Errorf("deleting old pages: %w", err)
	}
	for _, p := range pages {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO document_pages (document_id, page_number, content_raw, content_cleaned, keywords, word_count, has_tables, has_images)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			docID, p.PageNumber, p.RawText, p.CleanText, strings.Join(p.Keywords, ","), p.WordCount, p.HasTables, p.HasImages,
		)
		if err != nil {
			return fmt.Errorf("inserting page %d: %w", p.PageNumber, err)
		}
	}
	return nil
}

// ReplaceChunksTx deletes all chunk metadata of the document and inserts the
// new set, inside the caller's transaction.
func (s *Store) ReplaceChunksTx(ctx context.Context, tx *sql.Tx, docID int64, chunks []Chunk) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM content_chunks WHERE document_id = ?`, docID); err != nil {
		return fmt.Errorf("deleting old chunks: %w", err)
	}
	for _, c := range chunks {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO content_chunks (document_id, chunk_index, page_number, chunk_text, start_char, end_char, chunk_type, word_count)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			docID, c.ChunkIndex, c.PageNumber, c.Text, c.StartChar, c.EndChar, c.ChunkType, c.WordCount,
		)
		if err != nil {
			return fmt.Errorf("inserting chunk %d: %w", c.ChunkIndex, err)
		}
	}
	return nil
}

// CompleteDocumentTx marks the document completed with its new content hash
// and page count, and appends the completion log row, inside the caller's
// transaction.
func (s *Store) CompleteDocumentTx(ctx context.Context, tx *sql.Tx, docID int64, contentHash string, pageCount int) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE documents SET processing_status = 'completed', content_hash = ?, page_count = ?,
		 error_message = '', updated_at = datetime('now') WHERE id = ?`,
		contentHash, pageCount, docID,
	)
	if err != nil {
		return fmt.Errorf("completing document: %w", err)
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO processing_logs (id, document_id, operation, status, message) VALUES (?, ?, 'complete', 'completed', ?)`,
		uuid.New().String(), docID, fmt.Sprintf("indexed %d pages", pageCount),
	)
	if err != nil {
		return fmt.Errorf("appending completion log: %w", err)
	}
	return nil
}

// GetPage retrieves one page of a document.
func (s *Store) GetPage(ctx context.Context, docID int64, pageNumber int) (*Page, error) {
	var p Page
	var keywords string
	err := s.db.QueryRowContext(ctx,
		`SELECT document_id, page_number, content_raw, content_cleaned, keywords, word_count, has_tables, has_images
		 FROM document_pages WHERE document_id = ? AND page_number = ?`, docID, pageNumber,
	).Scan(&p.DocumentID, &p.PageNumber, &p.RawText, &p.CleanText, &keywords, &p.WordCount, &p.HasTables, &p.HasImages)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("page %d of document %d: %w", pageNumber, docID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting page: %w", err)
	}
	if keywords != "" {
		p.Keywords = strings.Split(keywords, ",")
	}
	return &p, nil
}

// ListChunks returns all chunk metadata of a document in chunk order.
func (s *Store) ListChunks(ctx context.Context, docID int64) ([]Chunk, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT document_id, chunk_index, page_number, chunk_text, start_char, end_char, chunk_type, word_count
		 FROM content_chunks WHERE document_id = ? ORDER BY chunk_index`, docID)
	if err != nil {
		return nil, fmt.Errorf("listing chunks: %w", err)
	}
	defer rows.Close()

	var chunks []Chunk
	for rows.Next() {
		var c Chunk
		if err := rows.Scan(&c.DocumentID, &c.ChunkIndex, &c.PageNumber, &c.Text, &c.StartChar, &c.EndChar, &c.ChunkType, &c.WordCount); err != nil {
			return nil, fmt.Errorf("scanning chunk: %w", err)
		}
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}

// GetDocumentContent returns a document with the requested pages, or all
// pages when pageNumbers is empty.
func (s *Store) GetDocumentContent(ctx context.Context, docID int64, pageNumbers []int) (*DocumentContent, error) {
	doc, err := s.GetDocument(ctx, docID)
	if err != nil {
		return nil, err
	}

	var machineName string
	if err := s.db.QueryRowContext(ctx,
		`SELECT machine_name FROM machines WHERE id = ?`, doc.MachineID,
	).Scan(&machineName); err != nil {
		return nil, fmt.Errorf("getting machine name: %w", err)
	}

	query := `SELECT document_id, page_number, content_raw, content_cleaned, keywords, word_count, has_tables, has_images
		 FROM document_pages WHERE document_id = ?`
	args := []any{docID}
	if len(pageNumbers) > 0 {
		query += ` AND page_number IN (?` + strings.Repeat(",?", len(pageNumbers)-1) + `)`
		for _, n := range pageNumbers {
			args = append(args, n)
		}
	}
	query += ` ORDER BY page_number`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying pages: %w", err)
	}
	defer rows.Close()

	content := &DocumentContent{Document: *doc, MachineName: machineName}
	for rows.Next() {
		var p Page
		var keywords string
		if err := rows.Scan(&p.DocumentID, &p.PageNumber, &p.RawText, &p.CleanText, &keywords, &p.WordCount, &p.HasTables, &p.HasImages); err != nil {
			return nil, fmt.Errorf("scanning page: %w", err)
		}
		if keywords != "" {
			p.Keywords = strings.Split(keywords, ",")
		}
		content.Pages = append(content.Pages, p)
	}
	return content, rows.Err()
}

// Stats computes aggregate processing counts from persisted state.
func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	var st Stats
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*),
		        COUNT(CASE WHEN processing_status = 'completed' THEN 1 END),
		        COUNT(CASE WHEN processing_status = 'failed' THEN 1 END),
		        COALESCE(SUM(page_count), 0)
		 FROM documents`,
	).Scan(&st.TotalDocuments, &st.ProcessedDocuments, &st.FailedDocuments, &st.TotalPages)
	if err != nil {
		return nil, fmt.Errorf("computing stats: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM content_chunks`).Scan(&st.TotalChunks); err != nil {
		return nil, fmt.Errorf("counting chunks: %w", err)
	}
	return &st, nil
}

// MachineSummaries returns per-machine document counts grouped by type.
func (s *Store) MachineSummaries(ctx context.Context) ([]MachineSummary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT m.machine_name, m.machine_type, d.document_type, COUNT(*)
		 FROM documents d JOIN machines m ON d.machine_id = m.id
		 WHERE d.processing_status = 'completed'
		 GROUP BY m.machine_name, m.machine_type, d.document_type
		 ORDER BY m.machine_name`)
	if err != nil {
		return nil, fmt.Errorf("querying machine summaries: %w", err)
	}
	defer rows.Close()

	var summaries []MachineSummary
	byName := make(map[string]int)
	for rows.Next() {
		var name, mtype string
		var dtype DocumentType
		var count int
		if err := rows.Scan(&name, &mtype, &dtype, &count); err != nil {
			return nil, fmt.Errorf("scanning summary: %w", err)
		}
		idx, ok := byName[name]
		if !ok {
			summaries = append(summaries, MachineSummary{
				MachineName: name,
				MachineType: mtype,
				Documents:   make(map[DocumentType]int),
			})
			idx = len(summaries) - 1
			byName[name] = idx
		}
		summaries[idx].Documents[dtype] = count
	}
	return summaries, rows.Err()
}

// MachineDocuments lists completed documents of a machine, optionally
// restricted to one type.
func (s *Store) MachineDocuments(ctx context.Context, machineID int64, docType DocumentType) ([]Document, error) {
	query := selectDocument + ` WHERE machine_id = ? AND processing_status = 'completed'`
	args := []any{machineID}
	if docType != "" {
		query += ` AND document_type = ?`
		args = append(args, docType)
	}
	query += ` ORDER BY filename`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing machine documents: %w", err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		d, err := s.scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning document: %w", err)
		}
		docs = append(docs, *d)
	}
	return docs, rows.Err()
}

// MachineDocumentPaths lists the file path of every document recorded for
// the machine, regardless of processing status.
func (s *Store) MachineDocumentPaths(ctx context.Context, machineID int64) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT file_path FROM documents WHERE machine_id = ? ORDER BY file_path`, machineID)
	if err != nil {
		return nil, fmt.Errorf("listing document paths: %w", err)
	}
	defer rows.Close()

	var paths []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("scanning document path: %w", err)
		}
		paths = append(paths, p)
	}
	return paths, rows.Err()
}

// RecentLogs returns the newest processing log entries.
func (s *Store) RecentLogs(ctx context.Context, limit int) ([]LogEntry, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT pl.id, pl.document_id, d.filename, pl.operation, pl.status, pl.message, pl.created_at
		 FROM processing_logs pl JOIN documents d ON pl.document_id = d.id
		 ORDER BY pl.created_at DESC, pl.id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying logs: %w", err)
	}
	defer rows.Close()

	var entries []LogEntry
	for rows.Next() {
		var e LogEntry
		if err := rows.Scan(&e.ID, &e.DocumentID, &e.Filename, &e.Operation, &e.Status, &e.Message, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning log entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
