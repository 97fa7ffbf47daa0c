package export

import (
	"encoding/json"
	"fmt"

	"github.com/JonMunkholm/csvinsight/internal/core"
)

// TableRows is one entry of the JSON export.
type TableRows struct {
	SourceName string              `json:"sourceName"`
	Rows       []map[string]string `json:"rows"`
}

// EncodeJSON writes tables as a pretty-printed array of {sourceName, rows}.
func EncodeJSON(tables []core.ParsedTable) ([]byte, error) {
	out := make([]TableRows, len(tables))
	for i, t := range tables {
		rows := t.Rows
		if rows == nil {
			rows = []map[string]string{}
		}
		out[i] = TableRows{SourceName: t.SourceName, Rows: rows}
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode json export: %w", err)
	}
	return data, nil
}
