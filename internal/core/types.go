package core

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"
)

// PreviewRowCount is the number of leading rows kept in ParsedTable.PreviewRows.
const PreviewRowCount = 5

// UploadedFile is user-selected content plus its display name.
// The content is held in memory for the lifetime of the session.
type UploadedFile struct {
	Name string
	Size int64
	data []byte
}

// NewUploadedFile wraps raw file content.
func NewUploadedFile(name string, data []byte) UploadedFile {
	return UploadedFile{Name: name, Size: int64(len(data)), data: data}
}

// Open returns a reader over the file content.
func (f UploadedFile) Open() io.Reader {
	return bytes.NewReader(f.data)
}

// ParsedTable is one uploaded file converted to rows keyed by field name.
// Tables are never mutated after the parser returns them.
type ParsedTable struct {
	SourceName  string              `json:"sourceName" msgpack:"sourceName"`
	FieldNames  []string            `json:"fieldNames" msgpack:"fieldNames"`
	Rows        []map[string]string `json:"rows" msgpack:"rows"`
	PreviewRows []map[string]string `json:"previewRows" msgpack:"previewRows"`
}

// NewParsedTable builds a table and fills PreviewRows from rows.
func NewParsedTable(sourceName string, fieldNames []string, rows []map[string]string) ParsedTable {
	n := len(rows)
	if n > PreviewRowCount {
		n = PreviewRowCount
	}
	return ParsedTable{
		SourceName:  sourceName,
		FieldNames:  fieldNames,
		Rows:        rows,
		PreviewRows: rows[:n:n],
	}
}

// Validate checks the table invariants: unique field names and every row
// key drawn from FieldNames.
func (t ParsedTable) Validate() error {
	known := make(map[string]struct{}, len(t.FieldNames))
	for _, name := range t.FieldNames {
		if _, dup := known[name]; dup {
			return fmt.Errorf("table %s: duplicate field name %q", t.SourceName, name)
		}
		known[name] = struct{}{}
	}
	for i, row := range t.Rows {
		for key := range row {
			if _, ok := known[key]; !ok {
				return fmt.Errorf("table %s: row %d has unknown field %q", t.SourceName, i+1, key)
			}
		}
	}
	return nil
}

// Insight is the model's suggestions and cleaning steps for one source file.
type Insight struct {
	SourceName    string   `json:"sourceName" msgpack:"sourceName"`
	Suggestions   []string `json:"suggestions" msgpack:"suggestions"`
	CleaningSteps []string `json:"cleaningSteps" msgpack:"cleaningSteps"`
}

// Status is the session lifecycle stage.
type Status string

const (
	StatusIdle             Status = "idle"
	StatusFilesSelected    Status = "files_selected"
	StatusLoading          Status = "loading"
	StatusParsingComplete  Status = "parsing_complete"
	StatusAnalysisComplete Status = "analysis_complete"
	StatusError            Status = "error"
)

// SessionState is an immutable snapshot of one session.
// Transitions always build a new value; slices inside a snapshot are shared
// with later snapshots and must not be modified by readers.
type SessionState struct {
	Status   Status
	Files    []UploadedFile
	Tables   []ParsedTable
	Insights []Insight
	Error    string
}

// InFlight reports whether an analyze run owns the session.
func (s SessionState) InFlight() bool {
	return s.Status == StatusLoading || s.Status == StatusParsingComplete
}

// FileNames returns the display names of the selected files.
func (s SessionState) FileNames() []string {
	names := make([]string, len(s.Files))
	for i, f := range s.Files {
		names[i] = f.Name
	}
	return names
}

// ExportFormat names an export encoding.
type ExportFormat string

const (
	ExportJSON ExportFormat = "json"
	ExportXLSX ExportFormat = "xlsx"
)

// ParseExportFormat accepts "json" or "xlsx" (case-insensitive).
func ParseExportFormat(s string) (ExportFormat, error) {
	switch ExportFormat(strings.ToLower(strings.TrimSpace(s))) {
	case ExportJSON:
		return ExportJSON, nil
	case ExportXLSX:
		return ExportXLSX, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
	}
}

// Artifact is an encoded export ready to be offered as a download.
type Artifact struct {
	FileName    string
	ContentType string
	Data        []byte
}

// Parser converts uploaded files into tables. All files must succeed or
// the whole call fails.
type Parser interface {
	Parse(ctx context.Context, files []UploadedFile) ([]ParsedTable, error)
}

// Analyzer turns tables into model-generated insights.
type Analyzer interface {
	Analyze(ctx context.Context, tables []ParsedTable) ([]Insight, error)
}

// Exporter encodes tables in the requested format.
type Exporter interface {
	Export(ctx context.Context, format ExportFormat, tables []ParsedTable) (Artifact, error)
}

// Recorder receives pipeline measurements.
type Recorder interface {
	AnalysisStarted(ctx context.Context, files int)
	AnalysisCompleted(ctx context.Context, d time.Duration)
	AnalysisFailed(ctx context.Context, stage string, d time.Duration)
	ExportCompleted(ctx context.Context, format ExportFormat, bytes int)
}

type nopRecorder struct{}

func (nopRecorder) AnalysisStarted(context.Context, int) {}
func (nopRecorder) AnalysisCompleted(context.Context, time.Duration) {}
func (nopRecorder) AnalysisFailed(context.Context, string, time.Duration) {}
func (nopRecorder) ExportCompleted(context.Context, ExportFormat, int) {}
