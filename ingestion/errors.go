package ingestion

import (
	"errors"
	"fmt"
)

var (
	// ErrStorageRequired is returned when a storage is not provided.
	ErrStorageRequired = errors.New("storage required")

	// ErrInvalidSource is returned for a source without an Open function.
	ErrInvalidSource = errors.New("invalid source")
)

// SourceError reports a source that could not be opened or decoded.
// Statements decoded before the failure stay stored.
type SourceError struct {
	Source string
	Err    error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("source %s: %v", e.Source, e.Err)
}

func (e *SourceError) Unwrap() error { return e.Err }
