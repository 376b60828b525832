package clean

import (
	"errors"
	"fmt"
	"io/fs"

	"csvclean/internal/table"
)

// Error kinds recorded in the descriptor's error.kind on failure.
// FormatDetectionFailure never fails a job (detection always resolves to a
// fallback); it appears only in diagnostics.
const (
	KindConfigError     = "ConfigError"
	KindEmptyInput      = "EmptyInputError"
	KindFormatDetection = "FormatDetectionFailure"
	KindIOFailure       = "IOFailure"
	KindUnclassified    = "UnclassifiedFailure"
)

// configError marks faults in the job descriptor or its parameters:
// missing fields, unresolvable paths, bad parameter values.
type configError struct{ msg string }

func (e *configError) Error() string { return e.msg }

func configErrorf(format string, a ...any) error {
	return &configError{msg: fmt.Sprintf(format, a...)}
}

// stepError tags an underlying fault with the pipeline step it escaped
// from; classify lifts the tag into the descriptor's error.step.
type stepError struct {
	step string
	err  error
}

func (e *stepError) Error() string { return e.err.Error() }
func (e *stepError) Unwrap() error { return e.err }

func atStep(step string, err error) error {
	if err == nil {
		return nil
	}
	return &stepError{step: step, err: err}
}

// classify maps a fault to its descriptor kind and best-effort step label.
func classify(err error) (kind, step string) {
	var se *stepError
	if errors.As(err, &se) {
		step = se.step
	}

	var ce *configError
	var pe *fs.PathError
	switch {
	case errors.As(err, &ce):
		return KindConfigError, step
	case errors.Is(err, table.ErrEmptyInput):
		return KindEmptyInput, step
	case errors.As(err, &pe):
		return KindIOFailure, step
	}
	return KindUnclassified, step
}
