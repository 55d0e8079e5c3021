package models

import "fmt"

// ErrorCode classifies a scrape or persistence failure at the service
// boundary. Callers branch on the code, not the message.
type ErrorCode string

const (
	// ErrNavigationTimeout means the page never reached network quiescence
	// within the navigation deadline.
	ErrNavigationTimeout ErrorCode = "NAVIGATION_TIMEOUT"
	// ErrElementWaitTimeout means a required page landmark never appeared.
	ErrElementWaitTimeout ErrorCode = "ELEMENT_WAIT_TIMEOUT"
	// ErrUnsupportedSource means the URL matched no registered extractor.
	ErrUnsupportedSource ErrorCode = "UNSUPPORTED_SOURCE"
	// ErrPersistenceIO means a collection or history file could not be
	// read, parsed, or written.
	ErrPersistenceIO ErrorCode = "PERSISTENCE_IO_ERROR"
	// ErrExtractionFailed covers any other fault inside an extractor.
	ErrExtractionFailed ErrorCode = "EXTRACTION_FAILED"
)

// ScrapeError is the structured failure value returned at the extraction
// boundary. Missing individual fields within a successful extraction are
// never errors; they degrade to sentinel defaults instead.
type ScrapeError struct {
	Code    ErrorCode `json:"error"`
	Message string    `json:"message"`
	Details string    `json:"details,omitempty"`
}

func (e *ScrapeError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewScrapeError builds a ScrapeError, recording the underlying cause in
// Details when one is given.
func NewScrapeError(code ErrorCode, message string, cause error) *ScrapeError {
	e := &ScrapeError{Code: code, Message: message}
	if cause != nil {
		e.Details = cause.Error()
	}
	return e
}
