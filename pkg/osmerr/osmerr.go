// Package osmerr defines the error taxonomy shared by every osmix
// component: a single typed error carrying a stable code, a
// retryability hint, and optional structured fields.
package osmerr

import (
	"errors"
	"fmt"
)

// Code identifies a class of failure. Codes are stable across releases
// so callers can switch on them.
type Code string

const (
	// Ingestion (§4.7, §4.8) — fatal to the current source.
	CodeShortRead              Code = "E_SHORT_READ"
	CodeBadMagic               Code = "E_BAD_MAGIC"
	CodeDecompressError        Code = "E_DECOMPRESS"
	CodeDecodeError            Code = "E_DECODE"
	CodeUnknownRequiredFeature Code = "E_UNKNOWN_REQUIRED_FEATURE"
	CodeCorruptInput           Code = "E_CORRUPT_INPUT"

	// Query (§4.9) — soft, per-call.
	CodeDanglingRef Code = "E_DANGLING_REF"
	CodeNoRoute     Code = "E_NO_ROUTE"

	// Changeset (§4.10).
	CodeInconsistentChangeset Code = "E_INCONSISTENT_CHANGESET"

	// Cross-cutting (§5, §7).
	CodeCancelled Code = "E_CANCELLED"
)

// Error is the common error type across osmix. It mirrors the
// {Code, Retryable, Err} shape used throughout the teacher's
// connector and staging packages.
type Error struct {
	Code      Code
	Retryable bool
	Err       error
	fields    map[string]any
}

// New constructs an Error. err may be nil for a bare coded error.
func New(code Code, retryable bool, err error) *Error {
	return &Error{Code: code, Retryable: retryable, Err: err}
}

// WithField attaches a structured field (e.g. "way_id", "missing_ref")
// and returns the receiver for chaining.
func (e *Error) WithField(key string, value any) *Error {
	if e.fields == nil {
		e.fields = make(map[string]any, 2)
	}
	e.fields[key] = value
	return e
}

// Field returns a previously attached field, if any.
func (e *Error) Field(key string) (any, bool) {
	if e == nil || e.fields == nil {
		return nil, false
	}
	v, ok := e.fields[key]
	return v, ok
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	msg := string(e.Code)
	for k, v := range e.fields {
		msg += fmt.Sprintf(" %s=%v", k, v)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// CodeValue returns the string error code.
func (e *Error) CodeValue() string { return string(e.Code) }

// RetryableStatus reports whether the failing operation may be retried.
func (e *Error) RetryableStatus() bool { return e.Retryable }

// CodedError is implemented by Error; callers that only need the code
// and retry hint (and don't want to import osmerr directly) can depend
// on this instead.
type CodedError interface {
	error
	CodeValue() string
	RetryableStatus() bool
}

// Is reports whether err carries the given code, unwrapping as needed.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// ShortRead, BadMagic, ... are convenience constructors for the common
// non-retryable ingestion failures.
func ShortRead(err error) *Error       { return New(CodeShortRead, false, err) }
func BadMagic(err error) *Error        { return New(CodeBadMagic, false, err) }
func DecompressError(err error) *Error { return New(CodeDecompressError, false, err) }
func DecodeError(err error) *Error     { return New(CodeDecodeError, false, err) }
func UnknownRequiredFeature(feature string) *Error {
	return New(CodeUnknownRequiredFeature, false, fmt.Errorf("unsupported required feature %q", feature)).
		WithField("feature", feature)
}

// CorruptInput reports a structural violation of the PBF contract or
// of the store invariants I1-I4, naming the block/group/entity that
// failed.
func CorruptInput(where string, err error) *Error {
	return New(CodeCorruptInput, false, err).WithField("where", where)
}

// DanglingRef reports an I2/I3 violation probed by a query; soft,
// callers may skip the offending entity.
func DanglingRef(kind string, owner, missing int64) *Error {
	return New(CodeDanglingRef, true, fmt.Errorf("%s references missing entity", kind)).
		WithField("owner", owner).
		WithField("missing_ref", missing)
}

// InconsistentChangeset reports an Apply-time violation of CS1-CS5.
func InconsistentChangeset(reason string) *Error {
	return New(CodeInconsistentChangeset, false, errors.New(reason))
}

// NoRoute reports that no path exists between two routing nodes.
func NoRoute() *Error {
	return New(CodeNoRoute, true, errors.New("no route between nodes"))
}

// Cancelled wraps a context cancellation as an osmix error so callers
// that only check osmerr codes still observe it.
func Cancelled(err error) *Error {
	return New(CodeCancelled, false, err)
}
