package document

import (
	"strings"
	"time"

	"github.com/zombor/docscan/internal/scanning"
)

// UnidentifiedClient is used when the model could not name a client
const UnidentifiedClient = "Unidentified"

// Document is one processed upload. Everything except ID, Filename,
// ContentType, Raw and ExtractedAt is derived from Raw by NewDocument;
// documents are never modified once built.
type Document struct {
	ID          string          `json:"id"`
	Filename    string          `json:"filename"`
	ContentType string          `json:"content_type"`
	Raw         scanning.Record `json:"raw"`
	Flat        FlatRecord      `json:"flat"`
	Lines       []LineItem      `json:"lines"`
	Type        Type            `json:"type"`
	Client      string          `json:"client"`
	ExtractedAt time.Time       `json:"extracted_at"`
}

// NewDocument builds a document and its derived views from a raw record
func NewDocument(id, filename, contentType string, raw scanning.Record, extractedAt time.Time) *Document {
	return &Document{
		ID:          id,
		Filename:    filename,
		ContentType: contentType,
		Raw:         raw,
		Flat:        Flatten(raw),
		Lines:       ExtractLines(raw),
		Type:        ClassifyType(raw.String("type_document")),
		Client:      clientName(raw),
		ExtractedAt: extractedAt,
	}
}

// HasLines reports whether the document carries itemized lines
func (d *Document) HasLines() bool {
	return len(d.Lines) > 0
}

// Number returns the document number printed on the source
func (d *Document) Number() string {
	return d.Flat[ColDocumentNumber]
}

func clientName(raw scanning.Record) string {
	name := raw.String("client_detecte")
	if strings.TrimSpace(name) == "" {
		return UnidentifiedClient
	}
	return name
}
