package core

import (
	"errors"
	"fmt"
)

// Messages stored in SessionState.Error.
const (
	MsgCapabilityLoadFailed = "Failed to load required components. Check your connection and restart the session."
	MsgAnalysisFailed       = "Failed to generate insights. The AI model may be overloaded or the data shape is unexpected."
	MsgParseFailed          = "Could not read the selected files. Please check the file format."
	MsgAnalysisBusy         = "The service is busy with other analyses. Please try again in a moment."
	MsgUnexpected           = "An unexpected error occurred during analysis."
)

var (
	// ErrNoFiles is returned when an operation needs a non-empty file selection.
	ErrNoFiles = errors.New("no file provided")

	// ErrNotReady is returned while the capabilities are still loading.
	ErrNotReady = errors.New("capabilities not ready")

	// ErrInitFailed is returned once capability loading has failed.
	ErrInitFailed = errors.New("initialization failed")

	// ErrSessionFailed is returned by Analyze while the session is in the error state.
	ErrSessionFailed = errors.New("session in error state")

	// ErrAnalysisInFlight is returned by Analyze while a run is already in progress.
	ErrAnalysisInFlight = errors.New("analysis already in progress")

	// ErrBusy is returned by Clear and Export while a run is in progress.
	ErrBusy = errors.New("session busy")

	// ErrNothingToExport is returned by Export when no tables are parsed.
	ErrNothingToExport = errors.New("nothing to export")

	// ErrUnknownFormat is returned for export formats other than json and xlsx.
	ErrUnknownFormat = errors.New("unknown export format")

	// ErrSessionNotFound is returned when a session ID is unknown or expired.
	ErrSessionNotFound = errors.New("session not found")

	// ErrTooManySessions is returned when the live session limit is reached.
	ErrTooManySessions = errors.New("too many sessions")

	// ErrAnalysisFailed is the only error analyzers surface to the session.
	// Service detail is logged, never shown.
	ErrAnalysisFailed = errors.New(MsgAnalysisFailed)
)

// FileParseError reports a structural parse failure for one file.
// Its Error text is safe to show to the user.
type FileParseError struct {
	FileName string
	Err      error
}

func (e *FileParseError) Error() string {
	return fmt.Sprintf("Could not parse %s. Please check the file format.", e.FileName)
}

func (e *FileParseError) Unwrap() error {
	return e.Err
}
