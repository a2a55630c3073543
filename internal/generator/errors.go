package generator

import (
	"errors"
	"fmt"
)

// DefaultFailureMessage is shown when the first variation fails without a reason
const DefaultFailureMessage = "Failed to generate thumbnails"

var (
	// ErrEmptyConcept is returned when the concept is blank after trimming
	ErrEmptyConcept = errors.New("concept must not be empty")
	// ErrInsufficientCredits is returned before any variation call when the balance is below one cycle
	ErrInsufficientCredits = errors.New("insufficient credits")
	// ErrSubsequentVariationFailed marks a non-fatal failure of a variation after the first
	ErrSubsequentVariationFailed = errors.New("variation failed")
	// ErrSuggestionGenerationFailed marks a suggestion failure replaced by placeholders
	ErrSuggestionGenerationFailed = errors.New("suggestion generation failed")
)

// GenerationFailedError aborts a cycle: the first variation could not be produced
type GenerationFailedError struct {
	Cause error
}

func (e *GenerationFailedError) Error() string {
	if e.Cause == nil || e.Cause.Error() == "" {
		return DefaultFailureMessage
	}
	return e.Cause.Error()
}

func (e *GenerationFailedError) Unwrap() error {
	return e.Cause
}

// VariationFailure records a non-fatal failure at a given index
type VariationFailure struct {
	Index  int    `json:"variation_index"`
	Reason string `json:"reason"`
}

func (f VariationFailure) Error() string {
	return fmt.Sprintf("variation %d: %s", f.Index+1, f.Reason)
}

func (f VariationFailure) Unwrap() error {
	return ErrSubsequentVariationFailed
}
