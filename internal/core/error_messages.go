package core

// # Error Codes Reference
//
// This file defines user-friendly error messages with codes for support
// reference. Users can quote the code shown next to a message so support
// staff can find the matching log entry faster.
//
// Known sentinel errors are matched first with errors.Is. Anything else
// falls through to case-insensitive substring patterns, and finally to
// ERR000.
//
// # Session Errors (SES001-SES099)
//
//	SES001 - No files: Analyze was requested without a file selection
//	         Action: Select one or more CSV files first
//	SES002 - In progress: An analysis is already running for this session
//	         Action: Wait for the current analysis to finish
//	SES003 - Busy: The session cannot change while an analysis is running
//	         Action: Wait for the current analysis to finish
//	SES004 - Session failed: The session is in the error state
//	         Action: Select files again or clear the session
//	SES005 - Not found: The session expired or never existed
//	         Action: Reload the page to start a new session
//
// # Initialization Errors (INIT001-INIT099)
//
//	INIT001 - Not ready: Required components are still loading
//	          Action: Please wait a moment and try again
//	INIT002 - Init failed: Required components failed to load
//	          Action: Check your connection and restart the session
//
// # Parse and Analysis Errors (PARSE001, ANL001-ANL099)
//
//	PARSE001 - Parse failed: A file could not be parsed (message names the file)
//	ANL001   - Analysis failed: The model call or its response failed
//	ANL002   - Busy: Too many analyses are running across all sessions
//
// # Export Errors (EXP001-EXP099)
//
//	EXP001 - Nothing to export: No parsed tables yet
//	EXP002 - Unknown format: Only json and xlsx are supported
//
// # File and Request Errors (FILE, UPL, RATE)
//
//	FILE001 - File too large           Patterns: "file too large"
//	FILE004 - No file                  Patterns: "no file provided"
//	FILE005 - Too many files           Patterns: "too many files"
//	UPL004  - Request cancelled        Patterns: "context canceled"
//	UPL005  - Request timeout          Patterns: "context deadline exceeded"
//	RATE001 - Rate limited             Patterns: "rate limit"
//
// # Default Error (ERR000)
//
// Fallback when nothing matches. Check application logs for the original
// technical error when users report ERR000.

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

type sentinelMessage struct {
	target error
	msg    UserMessage
}

// sentinelMessages are checked in order with errors.Is before any pattern.
var sentinelMessages = []sentinelMessage{
	{ErrNoFiles, UserMessage{
		Message: "No files are selected",
		Action:  "Select one or more CSV files first",
		Code:    "SES001",
	}},
	{ErrAnalysisInFlight, UserMessage{
		Message: "An analysis is already running",
		Action:  "Wait for the current analysis to finish",
		Code:    "SES002",
	}},
	{ErrBusy, UserMessage{
		Message: "The session is busy with an analysis",
		Action:  "Wait for the current analysis to finish",
		Code:    "SES003",
	}},
	{ErrSessionFailed, UserMessage{
		Message: "The session is in an error state",
		Action:  "Select files again or clear the session",
		Code:    "SES004",
	}},
	{ErrSessionNotFound, UserMessage{
		Message: "Session not found",
		Action:  "Reload the page to start a new session",
		Code:    "SES005",
	}},
	{ErrTooManySessions, UserMessage{
		Message: "The server is handling too many sessions",
		Action:  "Please try again in a few minutes",
		Code:    "SES006",
	}},
	{ErrNotReady, UserMessage{
		Message: "Required components are still loading",
		Action:  "Please wait a moment and try again",
		Code:    "INIT001",
	}},
	{ErrInitFailed, UserMessage{
		Message: "Failed to load required components",
		Action:  "Check your connection and restart the session",
		Code:    "INIT002",
	}},
	{ErrAnalysisFailed, UserMessage{
		Message: MsgAnalysisFailed,
		Action:  "Please try again",
		Code:    "ANL001",
	}},
	{ErrTooManyAnalyses, UserMessage{
		Message: MsgAnalysisBusy,
		Action:  "Please wait a moment and try again",
		Code:    "ANL002",
	}},
	{ErrNothingToExport, UserMessage{
		Message: "There is no parsed data to export",
		Action:  "Analyze your files before exporting",
		Code:    "EXP001",
	}},
	{ErrUnknownFormat, UserMessage{
		Message: "Unknown export format",
		Action:  "Choose JSON or XLSX",
		Code:    "EXP002",
	}},
	{context.DeadlineExceeded, UserMessage{
		Message: "Request timed out",
		Action:  "Try fewer or smaller files, or check your connection",
		Code:    "UPL005",
	}},
	{context.Canceled, UserMessage{
		Message: "Request was cancelled",
		Action:  "Please try again",
		Code:    "UPL004",
	}},
}

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns maps technical error patterns (case-insensitive) to user messages.
// The first matching pattern wins, so more specific patterns come first.
var errorPatterns = []errorPattern{
	{
		pattern: "file too large",
		msg: UserMessage{
			Message: "File exceeds maximum size limit",
			Action:  "Split the file into smaller chunks",
			Code:    "FILE001",
		},
	},
	{
		pattern: "no file provided",
		msg: UserMessage{
			Message: "No file was selected",
			Action:  "Please select a CSV file to upload",
			Code:    "FILE004",
		},
	},
	{
		pattern: "too many files",
		msg: UserMessage{
			Message: "Too many files were selected",
			Action:  "Select fewer files and try again",
			Code:    "FILE005",
		},
	},
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "Request was cancelled",
			Action:  "Please try again",
			Code:    "UPL004",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "Request timed out",
			Action:  "Try fewer or smaller files, or check your connection",
			Code:    "UPL005",
		},
	},
	{
		pattern: "rate limit",
		msg: UserMessage{
			Message: "Too many requests",
			Action:  "Please wait a moment before trying again",
			Code:    "RATE001",
		},
	},
}

// defaultMessage is returned when nothing matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
//
// Example:
//
//	msg := MapError(fmt.Errorf("analyze: %w", ErrNoFiles))
//	// msg.Code == "SES001"
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	// Parse errors already carry a user-safe, file-specific message.
	var pe *FileParseError
	if errors.As(err, &pe) {
		return UserMessage{
			Message: pe.Error(),
			Action:  "Fix the file and select it again",
			Code:    "PARSE001",
		}
	}

	for _, sm := range sentinelMessages {
		if errors.Is(err, sm.target) {
			return sm.msg
		}
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// FormatUserError creates a formatted error string for display.
// The format is: "Message (Code: XXX). Action"
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err maps to something more specific than ERR000.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// UserError keeps the technical error for logging next to the message shown
// to the user.
type UserError struct {
	Technical error       // Original technical error for logging
	User      UserMessage // User-friendly message for display
}

func (e *UserError) Error() string {
	return e.User.Message
}

func (e *UserError) Unwrap() error {
	return e.Technical
}

// NewUserError maps err to a UserError. Returns nil if err is nil.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{
		Technical: err,
		User:      MapError(err),
	}
}
