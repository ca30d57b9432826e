package document

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/zombor/docscan/internal/scanning"
)

// IDGenerator generates unique IDs for documents
type IDGenerator interface {
	Generate() string
}

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

// defaultIDGenerator generates random UUIDs
type defaultIDGenerator struct{}

func (g *defaultIDGenerator) Generate() string {
	return uuid.New().String()
}

// defaultTimeSource provides the current time
type defaultTimeSource struct{}

func (t *defaultTimeSource) Now() time.Time {
	return time.Now()
}

// Service handles document operations for one session
type Service struct {
	scanner     scanning.Scanner
	history     *History
	catalog     *Catalog
	workbooks   *WorkbookBuilder
	idGenerator IDGenerator
	timeSource  TimeSource
}

// NewService creates a new Service with default ID generator and time source
func NewService(scanner scanning.Scanner, history *History, catalog *Catalog) *Service {
	return NewServiceWithDeps(scanner, history, catalog, &defaultIDGenerator{}, &defaultTimeSource{})
}

// NewServiceWithDeps creates a new Service with custom dependencies for testing
func NewServiceWithDeps(scanner scanning.Scanner, history *History, catalog *Catalog, idGen IDGenerator, timeSrc TimeSource) *Service {
	return &Service{
		scanner:     scanner,
		history:     history,
		catalog:     catalog,
		workbooks:   NewWorkbookBuilder(catalog),
		idGenerator: idGen,
		timeSource:  timeSrc,
	}
}

// ProcessUpload scans one document and appends it to the history
func (s *Service) ProcessUpload(filename string, data []byte, contentType string) (*Document, error) {
	raw, err := s.scanner.ScanDocument(data, contentType)
	if err != nil {
		slog.Error("Failed to scan document",
			"filename", filename,
			"content_type", contentType,
			"file_size", len(data),
			"error", err,
		)
		return nil, fmt.Errorf("scanning document: %w", err)
	}

	doc := NewDocument(s.idGenerator.Generate(), filename, contentType, raw, s.timeSource.Now())
	if err := s.history.Append(doc); err != nil {
		return nil, fmt.Errorf("recording document: %w", err)
	}

	slog.Info("Document extracted",
		"filename", filename,
		"id", doc.ID,
		"type", doc.Type,
		"client", doc.Client,
		"lines", len(doc.Lines),
	)
	return doc, nil
}

// ProcessBatch processes uploads one after another. A failed document
// does not stop the batch, except when the scanner rejects its
// credentials: the remaining uploads are then reported as skipped.
func (s *Service) ProcessBatch(uploads []Upload) *BatchReport {
	report := &BatchReport{Results: make([]BatchResult, 0, len(uploads))}

	for i, upload := range uploads {
		doc, err := s.ProcessUpload(upload.Filename, upload.Data, upload.ContentType)
		result := BatchResult{Filename: upload.Filename, Document: doc}
		if err != nil {
			result.Kind = classifyFailure(err)
			result.Error = err.Error()
		}
		report.Results = append(report.Results, result)

		if result.Kind == FailureAuthentication {
			for _, rest := range uploads[i+1:] {
				report.Results = append(report.Results, BatchResult{
					Filename: rest.Filename,
					Kind:     FailureSkipped,
					Error:    "skipped after authentication failure",
				})
			}
			slog.Warn("Batch aborted after authentication failure", "skipped", len(uploads)-i-1)
			break
		}
	}

	return report
}

// Documents returns the documents matching filter in insertion order
func (s *Service) Documents(filter Filter) []*Document {
	return filter.Apply(s.history.Documents())
}

// Document returns one document by ID
func (s *Service) Document(id string) (*Document, error) {
	doc, ok := s.history.Get(id)
	if !ok {
		return nil, fmt.Errorf("document not found: %s", id)
	}
	return doc, nil
}

// ExportAll renders the whole history as an organized workbook
func (s *Service) ExportAll() ([]byte, error) {
	return s.ExportFiltered(Filter{})
}

// ExportFiltered renders the matching documents as an organized workbook
func (s *Service) ExportFiltered(filter Filter) ([]byte, error) {
	data, err := s.workbooks.Build(s.Documents(filter))
	if err != nil {
		return nil, fmt.Errorf("building workbook: %w", err)
	}
	return data, nil
}

// ExportSingle renders one document as a workbook
func (s *Service) ExportSingle(doc *Document) ([]byte, error) {
	data, err := s.workbooks.BuildSingle(doc)
	if err != nil {
		return nil, fmt.Errorf("building workbook for %s: %w", doc.Filename, err)
	}
	return data, nil
}

// SaveWorkbooks writes one workbook per document the batch produced, then
// the organized export of the whole history, and returns the stored names
// in that order. Storage never replaces a file, so documents whose export
// names coincide each keep their own workbook.
func (s *Service) SaveWorkbooks(report *BatchReport, storage Storage) ([]string, error) {
	var names []string
	for _, result := range report.Results {
		if !result.OK() {
			continue
		}
		data, err := s.ExportSingle(result.Document)
		if err != nil {
			return names, err
		}
		name, err := storage.Save(SingleExportFilename(result.Document), data)
		if err != nil {
			return names, fmt.Errorf("saving workbook for %s: %w", result.Filename, err)
		}
		slog.Info("Document exported", "filename", result.Filename, "workbook", name)
		names = append(names, name)
	}

	data, err := s.ExportAll()
	if err != nil {
		return names, err
	}
	name, err := storage.Save(ExportFilename(s.Now()), data)
	if err != nil {
		return names, fmt.Errorf("saving export: %w", err)
	}
	return append(names, name), nil
}

// ClearHistory drops every processed document
func (s *Service) ClearHistory() error {
	if err := s.history.Clear(); err != nil {
		return fmt.Errorf("clearing history: %w", err)
	}
	slog.Info("History cleared")
	return nil
}

// Stats summarizes the current history
func (s *Service) Stats() Stats {
	return ComputeStats(s.history.Documents(), s.catalog)
}

// Now returns the service clock's current time
func (s *Service) Now() time.Time {
	return s.timeSource.Now()
}
