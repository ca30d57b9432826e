package scanning

import "errors"

var (
	// ErrAuthentication is returned when the model provider rejects the credentials
	ErrAuthentication = errors.New("authentication failed")
	// ErrMalformedResponse is returned when the model output is not a usable JSON object
	ErrMalformedResponse = errors.New("malformed model response")
)

// Scanner defines the interface for document scanning operations
type Scanner interface {
	// ScanDocument analyzes a document image/PDF and extracts its structured record
	ScanDocument(imageData []byte, contentType string) (Record, error)
	// Close closes the scanner and releases resources
	Close() error
}
