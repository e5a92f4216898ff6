package app

import (
	"errors"

	"github.com/rohvvn/tubecast/internal/domain"
	"github.com/rohvvn/tubecast/internal/ports"
)

var ErrNotFound = ports.ErrNotFound

// Codes d'erreur stables, persistés dans IngestJob.errorCode.
const (
	CodeInvalidURL          = "invalid_url"
	CodeDuplicate           = "duplicate"
	CodeMetadataFetchFailed = "metadata_fetch_failed"
	CodeDownloadFailed      = "download_failed"
	CodeArtifactNotFound    = "artifact_not_found"
	CodeStoreWriteFailed    = "store_write_failed"
	CodeUnauthorized        = "unauthorized"
)

// CodedError attache un code machine stable à une erreur d'ingestion.
type CodedError struct {
	Code    string
	Message string
	Err     error
}

func (e *CodedError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err == nil {
		return e.Message
	}
	if e.Message == "" {
		return e.Err.Error()
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *CodedError) Unwrap() error { return e.Err }

// DuplicateError is informational, not a failure: the URL was already
// ingested for this owner and the stored record rides along unchanged.
type DuplicateError struct {
	Existing domain.Episode
}

func (e *DuplicateError) Error() string {
	return "already ingested: " + e.Existing.Title
}

// ErrorCode extrait le code machine d'une erreur d'ingestion, "" sinon.
func ErrorCode(err error) string {
	if err == nil {
		return ""
	}
	var dup *DuplicateError
	if errors.As(err, &dup) {
		return CodeDuplicate
	}
	var coded *CodedError
	if errors.As(err, &coded) {
		return coded.Code
	}
	return ""
}
