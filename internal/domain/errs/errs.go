// Package errs defines the error taxonomy shared by the ranking engine.
//
// Every failure that crosses a component boundary is wrapped onto one of the
// sentinel kinds below so callers can branch with errors.Is and the HTTP
// layer can translate kinds to status codes without knowing their origin.
package errs

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// Sentinel kinds.
var (
	// ErrAuth marks a request whose caller is not the owner it claims to be.
	ErrAuth = errors.New("not authenticated")

	// ErrValidation marks caller mistakes: bad ids, cross-bucket pairs,
	// winner outside the current pair.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound marks lookups of unknown sets.
	ErrNotFound = errors.New("not found")

	// ErrConflict marks a second concurrent session or a lost rating
	// compare-and-swap race.
	ErrConflict = errors.New("conflict")

	// ErrTransient marks retryable persistence failures.
	ErrTransient = errors.New("transient failure")

	// ErrFatal marks non-retryable persistence failures.
	ErrFatal = errors.New("fatal failure")
)

// Wrappers attaching context to a kind.

func Authf(format string, args ...any) error {
	return kindf(ErrAuth, format, args...)
}

func Validationf(format string, args ...any) error {
	return kindf(ErrValidation, format, args...)
}

func NotFoundf(format string, args ...any) error {
	return kindf(ErrNotFound, format, args...)
}

func Conflictf(format string, args ...any) error {
	return kindf(ErrConflict, format, args...)
}

func Transientf(format string, args ...any) error {
	return kindf(ErrTransient, format, args...)
}

func Fatalf(format string, args ...any) error {
	return kindf(ErrFatal, format, args...)
}

func kindf(kind error, format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, kind)...)
}

// Retryable reports whether err may succeed on a retry.
func Retryable(err error) bool {
	return errors.Is(err, ErrTransient)
}

// ClassifyStorage folds an arbitrary persistence error onto the taxonomy.
// Errors that already carry a kind pass through unchanged; network and
// deadline failures become transient, everything else fatal.
func ClassifyStorage(err error) error {
	if err == nil {
		return nil
	}
	for _, kind := range []error{ErrAuth, ErrValidation, ErrNotFound, ErrConflict, ErrTransient, ErrFatal} {
		if errors.Is(err, kind) {
			return err
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%v: %w", err, ErrTransient)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%v: %w", err, ErrTransient)
	}
	return fmt.Errorf("%v: %w", err, ErrFatal)
}
