package entity

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotReady is returned while the model or scaler artifacts are still
// loading. Retryable by the caller.
var ErrNotReady = errors.New("model or scalers not loaded yet")

// SchemaMismatchError reports a window or column set that does not match what
// the pipeline and the fitted scaler expect. Not retryable without the caller
// fixing the input.
type SchemaMismatchError struct {
	Reason   string
	Expected []string
	Got      []string
}

func (e *SchemaMismatchError) Error() string {
	return fmt.Sprintf("schema mismatch (%s): expected [%s], got [%s]",
		e.Reason, strings.Join(e.Expected, ", "), strings.Join(e.Got, ", "))
}

// NumericError reports a non-finite value produced during feature derivation.
type NumericError struct {
	Column string
	Index  int
}

func (e *NumericError) Error() string {
	return fmt.Sprintf("non-finite value in column %q at sample %d", e.Column, e.Index)
}

// OracleError wraps a failure inside the model or a scaler, opaque to this
// service. Not retried automatically.
type OracleError struct {
	Op  string
	Err error
}

func (e *OracleError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *OracleError) Unwrap() error { return e.Err }

// IsInputError reports whether err is a per-window input problem that the
// tolerant batch mode converts into a failed slot.
func IsInputError(err error) bool {
	var sm *SchemaMismatchError
	var ne *NumericError
	return errors.As(err, &sm) || errors.As(err, &ne)
}
