package export

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/JonMunkholm/csvinsight/internal/core"
)

// defaultSheet is the sheet every new workbook starts with.
const defaultSheet = "Sheet1"

// EncodeXLSX writes one sheet per table: a header row from FieldNames, then
// one row per record in FieldNames order.
func EncodeXLSX(tables []core.ParsedTable) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	names := sheetNames(tables)
	for i, t := range tables {
		name := names[i]
		if i == 0 {
			if err := f.SetSheetName(defaultSheet, name); err != nil {
				return nil, fmt.Errorf("rename sheet for %s: %w", t.SourceName, err)
			}
		} else if _, err := f.NewSheet(name); err != nil {
			return nil, fmt.Errorf("create sheet for %s: %w", t.SourceName, err)
		}

		if err := writeSheet(f, name, t); err != nil {
			return nil, fmt.Errorf("write sheet for %s: %w", t.SourceName, err)
		}
	}
	f.SetActiveSheet(0)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("encode workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func writeSheet(f *excelize.File, sheet string, t core.ParsedTable) error {
	sw, err := f.NewStreamWriter(sheet)
	if err != nil {
		return err
	}

	header := make([]any, len(t.FieldNames))
	for i, name := range t.FieldNames {
		header[i] = name
	}
	if err := sw.SetRow("A1", header); err != nil {
		return err
	}

	for r, row := range t.Rows {
		cells := make([]any, len(t.FieldNames))
		for i, name := range t.FieldNames {
			cells[i] = row[name]
		}
		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, cells); err != nil {
			return err
		}
	}
	return sw.Flush()
}

// probeWorkbook round-trips a one-cell workbook.
func probeWorkbook() error {
	data, err := EncodeXLSX([]core.ParsedTable{
		core.NewParsedTable("probe", []string{"ok"}, []map[string]string{{"ok": "1"}}),
	})
	if err != nil {
		return err
	}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return err
	}
	defer f.Close()

	v, err := f.GetCellValue("probe", "A2")
	if err != nil {
		return err
	}
	if v != "1" {
		return errors.New("probe cell mismatch")
	}
	return nil
}
