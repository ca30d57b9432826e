package document

import (
	"errors"

	"github.com/zombor/docscan/internal/scanning"
)

// Upload is one file submitted for extraction
type Upload struct {
	Filename    string
	Data        []byte
	ContentType string
}

// FailureKind classifies why a document could not be processed
type FailureKind string

const (
	FailureNone           FailureKind = ""
	FailureMalformed      FailureKind = "malformed"
	FailureAuthentication FailureKind = "authentication"
	FailureGeneric        FailureKind = "generic"
	// FailureSkipped marks uploads abandoned after an authentication failure
	FailureSkipped FailureKind = "skipped"
)

func classifyFailure(err error) FailureKind {
	switch {
	case err == nil:
		return FailureNone
	case errors.Is(err, scanning.ErrAuthentication):
		return FailureAuthentication
	case errors.Is(err, scanning.ErrMalformedResponse):
		return FailureMalformed
	}
	return FailureGeneric
}

// BatchResult is the outcome of one upload
type BatchResult struct {
	Filename string      `json:"filename"`
	Document *Document   `json:"document,omitempty"`
	Kind     FailureKind `json:"failure,omitempty"`
	Error    string      `json:"error,omitempty"`
}

// OK reports whether the upload produced a document
func (r BatchResult) OK() bool {
	return r.Kind == FailureNone
}

// BatchReport lists upload outcomes in submission order
type BatchReport struct {
	Results []BatchResult `json:"results"`
}

// Succeeded returns the number of uploads that produced a document
func (b *BatchReport) Succeeded() int {
	n := 0
	for _, r := range b.Results {
		if r.OK() {
			n++
		}
	}
	return n
}

// Failed returns the number of uploads that did not produce a document
func (b *BatchReport) Failed() int {
	return len(b.Results) - b.Succeeded()
}
