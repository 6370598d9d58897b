package service

import (
	"errors"

	"github.com/noah-isme/gema-rubric-api/internal/reconcile"
)

var (
	// ErrDocumentDecode indicates the uploaded file could not be turned into paragraphs.
	ErrDocumentDecode = errors.New("rubric document could not be decoded")
	// ErrDocumentEmpty indicates a document with no non-blank line.
	ErrDocumentEmpty = errors.New("rubric document is empty")
	// ErrDocumentTooLarge indicates the upload exceeded the configured limit.
	ErrDocumentTooLarge = errors.New("rubric document exceeds maximum allowed size")
	// ErrNoMetricsExtracted indicates a document in which no line classified.
	ErrNoMetricsExtracted = errors.New("no metrics could be extracted from the rubric")
	// ErrStagedBatchExpired indicates an unknown, consumed, expired or foreign staging token.
	ErrStagedBatchExpired = errors.New("staged batch expired or not found")
	// ErrInvalidPolicy indicates an unknown reconciliation policy.
	ErrInvalidPolicy = reconcile.ErrInvalidPolicy
	// ErrInvalidExam indicates a missing exam reference.
	ErrInvalidExam = errors.New("exam id is required")
	// ErrPersistenceFailed indicates the metric store or staging store failed.
	ErrPersistenceFailed = errors.New("failed to persist rubric metrics")
)
