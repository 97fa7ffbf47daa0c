package core

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantCode    string
		wantMessage string
	}{
		{
			name:        "nil error returns empty",
			err:         nil,
			wantCode:    "",
			wantMessage: "",
		},
		{
			name:        "wrapped no files sentinel",
			err:         fmt.Errorf("analyze: %w", ErrNoFiles),
			wantCode:    "SES001",
			wantMessage: "No files are selected",
		},
		{
			name:        "analysis in flight",
			err:         ErrAnalysisInFlight,
			wantCode:    "SES002",
			wantMessage: "An analysis is already running",
		},
		{
			name:        "session not found",
			err:         fmt.Errorf("lookup abc: %w", ErrSessionNotFound),
			wantCode:    "SES005",
			wantMessage: "Session not found",
		},
		{
			name:        "not ready",
			err:         ErrNotReady,
			wantCode:    "INIT001",
			wantMessage: "Required components are still loading",
		},
		{
			name:        "analysis failed keeps generic text",
			err:         ErrAnalysisFailed,
			wantCode:    "ANL001",
			wantMessage: MsgAnalysisFailed,
		},
		{
			name:        "limiter timeout",
			err:         fmt.Errorf("acquire: %w", ErrTooManyAnalyses),
			wantCode:    "ANL002",
			wantMessage: MsgAnalysisBusy,
		},
		{
			name:        "file parse error names the file",
			err:         fmt.Errorf("parse: %w", &FileParseError{FileName: "a.csv", Err: errors.New("bare quote")}),
			wantCode:    "PARSE001",
			wantMessage: "Could not parse a.csv. Please check the file format.",
		},
		{
			name:        "nothing to export",
			err:         ErrNothingToExport,
			wantCode:    "EXP001",
			wantMessage: "There is no parsed data to export",
		},
		{
			name:        "deadline sentinel",
			err:         fmt.Errorf("run: %w", context.DeadlineExceeded),
			wantCode:    "UPL005",
			wantMessage: "Request timed out",
		},
		{
			name:        "file too large pattern",
			err:         errors.New("file too large: 200MB exceeds limit"),
			wantCode:    "FILE001",
			wantMessage: "File exceeds maximum size limit",
		},
		{
			name:        "rate limit pattern",
			err:         errors.New("rate limit exceeded"),
			wantCode:    "RATE001",
			wantMessage: "Too many requests",
		},
		{
			name:        "case insensitive matching",
			err:         errors.New("TOO MANY FILES selected"),
			wantCode:    "FILE005",
			wantMessage: "Too many files were selected",
		},
		{
			name:        "unknown error returns default",
			err:         errors.New("some random internal error"),
			wantCode:    "ERR000",
			wantMessage: "An unexpected error occurred",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapError(tt.err)
			if got.Code != tt.wantCode {
				t.Errorf("MapError() code = %q, want %q", got.Code, tt.wantCode)
			}
			if got.Message != tt.wantMessage {
				t.Errorf("MapError() message = %q, want %q", got.Message, tt.wantMessage)
			}
		})
	}
}

func TestFormatUserError(t *testing.T) {
	result := FormatUserError(ErrNothingToExport)

	expected := "There is no parsed data to export (Code: EXP001). Analyze your files before exporting"
	if result != expected {
		t.Errorf("FormatUserError() = %q, want %q", result, expected)
	}
}

func TestIsUserFacing(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil error is not user facing", nil, false},
		{"sentinel is user facing", ErrBusy, true},
		{"pattern is user facing", errors.New("rate limit hit"), true},
		{"unknown error is not user facing", errors.New("random internal error xyz"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsUserFacing(tt.err); got != tt.want {
				t.Errorf("IsUserFacing() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewUserError(t *testing.T) {
	t.Run("nil error returns nil", func(t *testing.T) {
		if got := NewUserError(nil); got != nil {
			t.Errorf("NewUserError(nil) = %v, want nil", got)
		}
	})

	t.Run("wraps technical error with user message", func(t *testing.T) {
		techErr := fmt.Errorf("select: %w", ErrNoFiles)
		userErr := NewUserError(techErr)

		if userErr.Error() != "No files are selected" {
			t.Errorf("Error() = %q, want user message", userErr.Error())
		}
		if !errors.Is(userErr, ErrNoFiles) {
			t.Error("Unwrap() should expose the original error")
		}
	})
}
