package apperrors

import "fmt"

// ErrLookup is returned when a structural field the platform contract
// guarantees is absent from a metadata payload. It is fatal for the single
// response being processed; the original body is passed through unmodified.
type ErrLookup struct {
	Field   string
	Context string
}

// Error implements the error interface.
func (e *ErrLookup) Error() string {
	if e.Context != "" {
		return fmt.Sprintf("required field %q not found in %s", e.Field, e.Context)
	}
	return fmt.Sprintf("required field %q not found", e.Field)
}

// Is allows for error checking with errors.Is().
func (e *ErrLookup) Is(target error) bool {
	_, ok := target.(*ErrLookup)
	return ok
}

// NewLookupError creates a new ErrLookup.
func NewLookupError(field, context string) *ErrLookup {
	return &ErrLookup{Field: field, Context: context}
}

// ErrFormat is returned when a caption body does not carry the expected
// script header. Non-fatal: callers degrade to an unmodified pass-through.
type ErrFormat struct {
	Expected string
}

// Error implements the error interface.
func (e *ErrFormat) Error() string {
	return fmt.Sprintf("caption body does not contain expected header %q", e.Expected)
}

// Is allows for error checking with errors.Is().
func (e *ErrFormat) Is(target error) bool {
	_, ok := target.(*ErrFormat)
	return ok
}

// NewFormatError creates a new ErrFormat.
func NewFormatError(expected string) *ErrFormat {
	return &ErrFormat{Expected: expected}
}

// ErrFetch wraps a failed derived network fetch. The reconciler degrades to
// its next fallback signal; if none remains, the rewrite is abandoned and
// the original body is forwarded.
type ErrFetch struct {
	URL   string
	Cause error
}

// Error implements the error interface.
func (e *ErrFetch) Error() string {
	return fmt.Sprintf("fetch of %s failed: %v", e.URL, e.Cause)
}

// Unwrap exposes the underlying cause for errors.Is/errors.As chains.
func (e *ErrFetch) Unwrap() error {
	return e.Cause
}

// Is allows for error checking with errors.Is().
func (e *ErrFetch) Is(target error) bool {
	_, ok := target.(*ErrFetch)
	return ok
}

// NewFetchError creates a new ErrFetch.
func NewFetchError(url string, cause error) *ErrFetch {
	return &ErrFetch{URL: url, Cause: cause}
}

// ErrOffsetValidation reports a text-matched offset that landed too far
// from the duration-derived offset. The caller falls back to the duration
// offset; this error is logged, never propagated.
type ErrOffsetValidation struct {
	TextOffsetMs     int64
	DurationOffsetMs int64
	BoundMs          int64
}

// Error implements the error interface.
func (e *ErrOffsetValidation) Error() string {
	return fmt.Sprintf("text offset %dms deviates from duration offset %dms by more than %dms",
		e.TextOffsetMs, e.DurationOffsetMs, e.BoundMs)
}

// Is allows for error checking with errors.Is().
func (e *ErrOffsetValidation) Is(target error) bool {
	_, ok := target.(*ErrOffsetValidation)
	return ok
}
