package domain

import "errors"

// Error kinds for the scoring pipeline. Wrap these with fmt.Errorf("...: %w")
// so callers can branch on errors.Is.
var (
	// ErrInsufficientData marks a statistic that requires at least two
	// observations but received fewer. Recovered locally by omitting the
	// indicator; never fatal to the pipeline.
	ErrInsufficientData = errors.New("insufficient data")

	// ErrModelNotTrained marks a prediction requested before any model
	// exists. The serving path recovers by lazy-loading the persisted blob
	// or, failing that, training on synthetic placeholder data.
	ErrModelNotTrained = errors.New("model not trained")

	// ErrEmptyInput marks an empty matrix handed to predict. This is a
	// caller contract violation, distinct from "data sparse but present",
	// and is propagated rather than defaulted.
	ErrEmptyInput = errors.New("empty prediction input")

	// ErrPersistence marks a corrupt, missing, or version-mismatched model
	// blob or scaler artifact. Surfaced to the caller as model-unavailable;
	// never silently swallowed.
	ErrPersistence = errors.New("model persistence failure")
)
