// Package catalog persists the document index entities: machines, documents,
// extracted pages, and chunk metadata.
package catalog

import "time"

// ProcessingStatus is the lifecycle state of a document.
type ProcessingStatus string

const (
	StatusPending    ProcessingStatus = "pending"
	StatusProcessing ProcessingStatus = "processing"
	StatusCompleted  ProcessingStatus = "completed"
	StatusFailed     ProcessingStatus = "failed"
)

// DocumentType categorizes a document by its role in the machine library.
type DocumentType string

const (
	TypeManual  DocumentType = "manual"
	TypeDiagram DocumentType = "diagram"
	TypeParts   DocumentType = "parts"
	TypeContext DocumentType = "context"
	TypeGeneral DocumentType = "general"
	TypeInfo    DocumentType = "info"
)

// ValidDocumentType reports whether t is a recognized document type.
func ValidDocumentType(t DocumentType) bool {
	switch t {
	case TypeManual, TypeDiagram, TypeParts, TypeContext, TypeGeneral, TypeInfo:
		return true
	}
	return false
}

// Machine is a logical equipment unit owning zero or more documents.
type Machine struct {
	ID            int64
	Name          string
	MachineType   string
	LineNumber    string
	Description   string
	DirectoryPath string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Document is one physical file in a machine's directory.
type Document struct {
	ID           int64
	MachineID    int64
	FilePath     string
	Filename     string
	DocumentType DocumentType
	ContentHash  string
	FileSize     int64
	PageCount    int
	Status       ProcessingStatus
	ErrorMessage string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Page is one page of extracted text within a document. A text-only source
// file is modeled as a single synthetic page.
type Page struct {
	DocumentID int64
	PageNumber int
	RawText    string
	CleanText  string
	Keywords   []string
	WordCount  int
	HasTables  bool
	HasImages  bool
}

// Chunk is the persisted metadata of one content chunk. The embedding vector
// itself lives in the vector store, keyed by (DocumentID, ChunkIndex).
type Chunk struct {
	DocumentID int64
	ChunkIndex int
	PageNumber int
	Text       string
	StartChar  int
	EndChar    int
	ChunkType  string
	WordCount  int
}

// Stats aggregates processing state across the whole index.
type Stats struct {
	TotalDocuments     int
	ProcessedDocuments int
	FailedDocuments    int
	TotalPages         int
	TotalChunks        int
}

// MachineSummary counts documents per type for one machine.
type MachineSummary struct {
	MachineName string
	MachineType string
	Documents   map[DocumentType]int
}

// LogEntry is one processing audit record.
type LogEntry struct {
	ID         string
	DocumentID int64
	Filename   string
	Operation  string
	Status     string
	Message    string
	CreatedAt  time.Time
}

// DocumentContent is a document plus a selection of its pages, returned to
// the tool layer.
type DocumentContent struct {
	Document    Document
	MachineName string
	Pages       []Page
}
