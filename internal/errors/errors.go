package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents stable error codes for all failure modes
type ErrorCode string

const (
	// IndexUnavailable indicates the declaration index cannot serve queries yet
	IndexUnavailable ErrorCode = "INDEX_UNAVAILABLE"
	// MalformedDeclaration indicates a declaration carries routing metadata that cannot be interpreted
	MalformedDeclaration ErrorCode = "MALFORMED_DECLARATION"
	// ConfigUnresolved indicates a module's deploy config could not be determined
	ConfigUnresolved ErrorCode = "CONFIG_UNRESOLVED"
	// ScopeInvalid indicates an invalid scope parameter
	ScopeInvalid ErrorCode = "SCOPE_INVALID"
	// InternalError indicates unexpected error
	InternalError ErrorCode = "INTERNAL_ERROR"
)

// FixActionType represents the type of fix action
type FixActionType string

const (
	// RunCommand suggests running a command
	RunCommand FixActionType = "run-command"
	// OpenDocs suggests opening documentation
	OpenDocs FixActionType = "open-docs"
)

// FixAction represents a suggested fix for an error
type FixAction struct {
	Type        FixActionType `json:"type"`
	Command     string        `json:"command,omitempty"`
	Safe        bool          `json:"safe,omitempty"`
	Description string        `json:"description,omitempty"`
	URL         string        `json:"url,omitempty"`
}

// Error is a routemap error with a stable code and optional suggestions.
type Error struct {
	Code           ErrorCode   `json:"code"`
	Message        string      `json:"message"`
	Details        interface{} `json:"details,omitempty"`
	SuggestedFixes []FixAction `json:"suggestedFixes,omitempty"`
	cause          error       // Underlying error (not exported to JSON)
}

// New creates a new Error. When fixes is nil the registered fixes for code are used.
func New(code ErrorCode, message string, cause error, fixes []FixAction) *Error {
	if fixes == nil {
		fixes = GetSuggestedFixes(code)
	}
	return &Error{
		Code:           code,
		Message:        message,
		cause:          cause,
		SuggestedFixes: fixes,
	}
}

// Newf creates an Error without cause using a format string.
func Newf(code ErrorCode, format string, args ...interface{}) *Error {
	return New(code, fmt.Sprintf(format, args...), nil, nil)
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.cause
}

// WithDetails adds details to the error
func (e *Error) WithDetails(details interface{}) *Error {
	e.Details = details
	return e
}

// CodeOf returns the code of the first *Error in err's chain, or "".
func CodeOf(err error) ErrorCode {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Code
	}
	return ""
}

// HasCode reports whether err's chain contains an *Error with the given code.
func HasCode(err error, code ErrorCode) bool {
	return err != nil && CodeOf(err) == code
}

// ErrorActions maps error codes to suggested fix actions
var ErrorActions = map[ErrorCode][]FixAction{
	IndexUnavailable: {
		{
			Type:        RunCommand,
			Command:     "routemap index",
			Safe:        true,
			Description: "Build the declaration index",
		},
		{
			Type:        RunCommand,
			Command:     "routemap status",
			Safe:        true,
			Description: "Check whether an indexing run is still in progress",
		},
	},
	ConfigUnresolved: {
		{
			Type:        RunCommand,
			Command:     "routemap init",
			Safe:        true,
			Description: "Create .routemap/deploy.toml to pin protocol, port and context path",
		},
	},
}

// GetSuggestedFixes returns suggested fixes for an error code
func GetSuggestedFixes(code ErrorCode) []FixAction {
	if fixes, ok := ErrorActions[code]; ok {
		return fixes
	}
	return nil
}
