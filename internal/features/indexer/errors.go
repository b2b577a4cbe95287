package indexer

import (
	"errors"
	"fmt"
)

// Configuration failures: the workflow attempt is aborted, nothing changes.
var (
	ErrCollectionNotFound = errors.New("collection not found")
	ErrMissingAPIKey      = errors.New("private API key is required to process index updates")
	ErrPartialSettings    = errors.New("both schema and transformer are required in the index settings")
)

// Precondition skips: not failures, just duplicate triggers short-circuiting.
var (
	ErrAlreadyUpdating = errors.New("collection is already updating")
	ErrAlreadyUpdated  = errors.New("collection is already updated")
)

var (
	ErrTransformerNoResult = errors.New("transformer needs a return value")
	ErrUnknownAction       = errors.New("unknown document action")
)

// IsSkip reports whether a validation error is a silent short-circuit rather
// than a real failure.
func IsSkip(err error) bool {
	return errors.Is(err, ErrAlreadyUpdating) || errors.Is(err, ErrAlreadyUpdated)
}

// APIError is a failed call against the remote index API.
type APIError struct {
	Status   int
	Message  string
	Original error
}

func (e *APIError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("index api: %s (status %d)", e.Message, e.Status)
	}
	return fmt.Sprintf("index api: %s", e.Message)
}

func (e *APIError) Unwrap() error {
	return e.Original
}
