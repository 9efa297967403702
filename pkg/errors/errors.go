// Package errors defines the error taxonomy shared by the indexing, ranking
// and evaluation packages, and maps each category to a CLI exit code.
package errors

import (
	"errors"
	"fmt"
)

var (
	ErrDegenerateCorpus = errors.New("degenerate corpus")
	ErrCorruptSnapshot  = errors.New("corrupt snapshot")
	ErrMalformedQuery   = errors.New("malformed query input")
	ErrJudgmentConflict = errors.New("judgment conflict")
	ErrUndefinedMetric  = errors.New("undefined metric")
	ErrQueryMismatch    = errors.New("query set mismatch")
	ErrInvalidInput     = errors.New("invalid input")
)

// Exit codes returned by the CLI for each error category.
const (
	ExitOK          = 0
	ExitFailure     = 1
	ExitUsage       = 2
	ExitCorpus      = 3
	ExitQueryInput  = 4
	ExitGroundTruth = 5
	ExitMetric      = 6
)

type AppError struct {
	Err     error
	Message string
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(sentinel error, message string) *AppError {
	return &AppError{
		Err:     sentinel,
		Message: message,
	}
}

func Newf(sentinel error, format string, args ...any) *AppError {
	return &AppError{
		Err:     sentinel,
		Message: fmt.Sprintf(format, args...),
	}
}

// Is reports whether any error in err's chain matches target. It mirrors the
// standard library so callers need a single errors import.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As mirrors the standard library errors.As.
func As(err error, target any) bool {
	return errors.As(err, target)
}

func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	switch {
	case errors.Is(err, ErrInvalidInput):
		return ExitUsage
	case errors.Is(err, ErrDegenerateCorpus), errors.Is(err, ErrCorruptSnapshot):
		return ExitCorpus
	case errors.Is(err, ErrMalformedQuery):
		return ExitQueryInput
	case errors.Is(err, ErrJudgmentConflict), errors.Is(err, ErrQueryMismatch):
		return ExitGroundTruth
	case errors.Is(err, ErrUndefinedMetric):
		return ExitMetric
	default:
		return ExitFailure
	}
}
