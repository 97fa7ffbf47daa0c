// Package export encodes parsed tables as downloadable JSON or XLSX files.
package export

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/JonMunkholm/csvinsight/internal/core"
)

// Download file names.
const (
	JSONFileName = "data_export.json"
	XLSXFileName = "data_export.xlsx"
)

// Content types for the download response.
const (
	JSONContentType = "application/json"
	XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// Exporter implements core.Exporter. It is also the spreadsheet encoder
// capability: Load proves a workbook can be built and read back.
type Exporter struct {
	loaded atomic.Bool
}

// New returns an exporter that still needs Load before XLSX export.
func New() *Exporter {
	return &Exporter{}
}

// Name implements core.Capability.
func (e *Exporter) Name() string { return "spreadsheet encoder" }

// Loaded implements core.Capability.
func (e *Exporter) Loaded() bool { return e.loaded.Load() }

// Load builds and reads back a probe workbook.
func (e *Exporter) Load(ctx context.Context) error {
	if err := probeWorkbook(); err != nil {
		return fmt.Errorf("spreadsheet probe: %w", err)
	}
	e.loaded.Store(true)
	slog.Debug("spreadsheet encoder loaded")
	return nil
}

// Export encodes tables in format. No tables is core.ErrNothingToExport.
func (e *Exporter) Export(ctx context.Context, format core.ExportFormat, tables []core.ParsedTable) (core.Artifact, error) {
	if len(tables) == 0 {
		return core.Artifact{}, core.ErrNothingToExport
	}
	if err := ctx.Err(); err != nil {
		return core.Artifact{}, err
	}

	switch format {
	case core.ExportJSON:
		data, err := EncodeJSON(tables)
		if err != nil {
			return core.Artifact{}, err
		}
		return core.Artifact{FileName: JSONFileName, ContentType: JSONContentType, Data: data}, nil

	case core.ExportXLSX:
		if !e.Loaded() {
			return core.Artifact{}, core.ErrNotReady
		}
		data, err := EncodeXLSX(tables)
		if err != nil {
			return core.Artifact{}, err
		}
		return core.Artifact{FileName: XLSXFileName, ContentType: XLSXContentType, Data: data}, nil

	default:
		return core.Artifact{}, fmt.Errorf("%w: %q", core.ErrUnknownFormat, format)
	}
}
