package document

import (
	"fmt"
	"sync"
)

// History is the append-only list of documents processed in one session.
// It is only ever appended to or cleared as a whole.
type History struct {
	mu    sync.RWMutex
	docs  []*Document
	store Store
}

// NewHistory creates an empty in-memory history
func NewHistory() *History {
	return &History{}
}

// OpenHistory creates a history backed by store, loading what it holds
func OpenHistory(store Store) (*History, error) {
	docs, err := store.ListDocuments()
	if err != nil {
		return nil, fmt.Errorf("loading history: %w", err)
	}
	return &History{docs: docs, store: store}, nil
}

// Append adds a document at the end of the history
func (h *History) Append(doc *Document) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.store != nil {
		if err := h.store.SaveDocument(doc); err != nil {
			return fmt.Errorf("saving document: %w", err)
		}
	}
	h.docs = append(h.docs, doc)
	return nil
}

// Documents returns a snapshot of the history in insertion order
func (h *History) Documents() []*Document {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]*Document, len(h.docs))
	copy(out, h.docs)
	return out
}

// Get returns the document with the given ID
func (h *History) Get(id string) (*Document, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, doc := range h.docs {
		if doc.ID == id {
			return doc, true
		}
	}
	return nil, false
}

// Len returns the number of documents
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.docs)
}

// Clear removes every document
func (h *History) Clear() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.store != nil {
		if err := h.store.ClearDocuments(); err != nil {
			return fmt.Errorf("clearing stored documents: %w", err)
		}
	}
	h.docs = nil
	return nil
}
