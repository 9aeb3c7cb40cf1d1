package dirsnap

import (
	"errors"
	"fmt"
)

// Code classifies a dirsnap failure.
type Code string

const (
	// Configuration errors: nothing has been created or modified.
	CodeInvalidIgnorePattern Code = "INVALID_IGNORE_PATTERN"
	CodeEmptySegment         Code = "EMPTY_SEGMENT"
	CodeCollision            Code = "COLLISION"
	CodeNothingToArchive     Code = "NOTHING_TO_ARCHIVE"
	CodeInvalidSelection     Code = "INVALID_SELECTION"
	CodeNotConfirmed         Code = "NOT_CONFIRMED"

	CodeScanFailed    Code = "SCAN_FAILED"
	CodeIntegrity     Code = "INTEGRITY"
	CodeCatalogEntry  Code = "CATALOG_ENTRY"
	CodeRestoreFailed Code = "RESTORE_FAILED"
	CodeCleanup       Code = "CLEANUP"
)

// Error is a classified failure carrying the path it concerns.
type Error struct {
	Code    Code
	Message string
	Path    string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Path != "" {
		msg += fmt.Sprintf(" (%s)", e.Path)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// IsCode reports whether err, or any error it wraps, is an *Error with the given code.
func IsCode(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// NewInvalidIgnorePattern reports a pattern on the given 1-based line that failed to compile.
func NewInvalidIgnorePattern(path string, line int, pattern string, err error) *Error {
	return &Error{
		Code:    CodeInvalidIgnorePattern,
		Message: fmt.Sprintf("invalid pattern %q on line %d", pattern, line),
		Path:    path,
		Err:     err,
	}
}

// NewEmptySegment reports a comment that sanitizes to nothing.
func NewEmptySegment(comment string) *Error {
	return &Error{
		Code:    CodeEmptySegment,
		Message: fmt.Sprintf("comment %q produced empty filename segment", comment),
	}
}

// NewCollision reports that a snapshot file already exists at path.
func NewCollision(path string) *Error {
	return &Error{
		Code:    CodeCollision,
		Message: "snapshot file already exists",
		Path:    path,
	}
}

// NewNothingToArchive reports a scan with no files and no empty directories.
func NewNothingToArchive(root string) *Error {
	return &Error{
		Code:    CodeNothingToArchive,
		Message: "nothing to archive",
		Path:    root,
	}
}

// NewInvalidSelection reports a snapshot selection outside 1..count.
func NewInvalidSelection(input string, count int) *Error {
	return &Error{
		Code:    CodeInvalidSelection,
		Message: fmt.Sprintf("invalid selection %q: expected a number between 1 and %d", input, count),
	}
}

// NewNotConfirmed reports a restore that was not confirmed with the exact token.
func NewNotConfirmed() *Error {
	return &Error{
		Code:    CodeNotConfirmed,
		Message: fmt.Sprintf("restore cancelled: confirmation must be exactly %q", ConfirmationToken),
	}
}

// NewScanFailed reports an unreadable entry under the source tree.
func NewScanFailed(path string, err error) *Error {
	return &Error{
		Code:    CodeScanFailed,
		Message: "scanning source",
		Path:    path,
		Err:     err,
	}
}

// NewIntegrity reports a snapshot archive that failed verification.
func NewIntegrity(path string, reason string, err error) *Error {
	return &Error{
		Code:    CodeIntegrity,
		Message: reason,
		Path:    path,
		Err:     err,
	}
}

// NewCatalogEntry reports a metadata file rejected during discovery.
func NewCatalogEntry(path string, reason string, err error) *Error {
	return &Error{
		Code:    CodeCatalogEntry,
		Message: reason,
		Path:    path,
		Err:     err,
	}
}

// NewRestoreFailed reports a failure while materializing or swapping in a snapshot.
func NewRestoreFailed(path string, err error) *Error {
	return &Error{
		Code:    CodeRestoreFailed,
		Message: "restoring snapshot",
		Path:    path,
		Err:     err,
	}
}

// NewCleanup reports a restore that succeeded but left the previous tree behind at path.
func NewCleanup(path string, err error) *Error {
	return &Error{
		Code:    CodeCleanup,
		Message: "removing previous source contents",
		Path:    path,
		Err:     err,
	}
}
