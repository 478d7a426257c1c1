package ingest

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	// ErrEmptyPayload is returned when the document is absent or blank.
	ErrEmptyPayload = errors.New("ingest: empty payload")

	// ErrRepositoryRequired is returned when a pipeline is built without a repository.
	ErrRepositoryRequired = errors.New("ingest: repository required")
)

// Pipeline stages at which an IngestionError can occur.
const (
	StageCreate = "create"
	StageNotify = "notify"
)

// MalformedDocumentError reports a document that could not be parsed.
type MalformedDocumentError struct {
	Err error
}

func (e *MalformedDocumentError) Error() string {
	return fmt.Sprintf("XML format error: %v", e.Err)
}

func (e *MalformedDocumentError) Unwrap() error {
	return e.Err
}

// IngestionError reports a failure after parsing succeeded. Persisted entries
// are not rolled back.
type IngestionError struct {
	RunID     uuid.UUID
	Stage     string
	Persisted int
	Err       error
}

func (e *IngestionError) Error() string {
	return fmt.Sprintf("ingest: run %s failed at %s after %d persisted: %v", e.RunID, e.Stage, e.Persisted, e.Err)
}

func (e *IngestionError) Unwrap() error {
	return e.Err
}
