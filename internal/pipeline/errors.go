package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/spigell/applyflow/internal/ai"
	"github.com/spigell/applyflow/internal/credentials"
	"github.com/spigell/applyflow/internal/store"
)

var (
	// ErrConfiguration means the posting's tenant has no usable credential.
	// It needs recruiter action and is never retried.
	ErrConfiguration = credentials.ErrNotConfigured
	// ErrNotFound means a referenced entity or its required data is missing.
	ErrNotFound = store.ErrNotFound
	// ErrInvalidInput rejects malformed caller input before any backend call.
	ErrInvalidInput = errors.New("invalid input")
	// ErrExtractionFailed is terminal for an extraction attempt.
	ErrExtractionFailed = errors.New("extraction produced no text")
	// ErrScoringFailed is returned when no usable rubric could be obtained.
	ErrScoringFailed = errors.New("scoring failed")
	// ErrGenerationFailed is returned when no cover letter could be obtained.
	ErrGenerationFailed = errors.New("cover letter generation failed")
	// ErrStorageUnavailable means file storage failed for a reason other than
	// a missing object. The stage may be retried.
	ErrStorageUnavailable = errors.New("file storage unavailable")
)

// StageError records which stage produced err.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s stage: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

func stageError(stage Stage, err error) error {
	if err == nil {
		return nil
	}
	var se *StageError
	if errors.As(err, &se) {
		return err
	}
	return &StageError{Stage: stage, Err: err}
}

// Retryable reports whether the caller may retry the stage as is.
func Retryable(err error) bool {
	return errors.Is(err, ai.ErrTransient) ||
		errors.Is(err, ErrStorageUnavailable) ||
		errors.Is(err, ErrScoringFailed) ||
		errors.Is(err, ErrGenerationFailed) ||
		errors.Is(err, ai.ErrMalformedOutput)
}

// Outcome labels err for logs and metrics.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrConfiguration):
		return "configuration"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, ErrExtractionFailed):
		return "extraction_failed"
	case errors.Is(err, ErrScoringFailed):
		return "scoring_failed"
	case errors.Is(err, ErrGenerationFailed):
		return "generation_failed"
	case errors.Is(err, ErrStorageUnavailable):
		return "storage_unavailable"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return ai.Outcome(err)
	}
}
