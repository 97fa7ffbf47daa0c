package web

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/JonMunkholm/csvinsight/internal/core"
)

// MsgpackContentType is negotiated through the Accept header on /api/session.
const MsgpackContentType = "application/msgpack"

// SessionView is the API representation of a session snapshot. Uploaded
// file content and full row sets stay on the server; clients get names,
// field names, row counts and previews.
type SessionView struct {
	ID       string         `json:"id"`
	Status   core.Status    `json:"status"`
	Ready    bool           `json:"ready"`
	Files    []FileView     `json:"files"`
	Tables   []TableView    `json:"tables"`
	Insights []core.Insight `json:"insights"`
	Error    string         `json:"error,omitempty"`
}

// FileView describes one selected file.
type FileView struct {
	Name string `json:"name"`
	Size int64  `json:"size"`
}

// TableView summarizes one parsed table.
type TableView struct {
	SourceName  string              `json:"sourceName"`
	FieldNames  []string            `json:"fieldNames"`
	RowCount    int                 `json:"rowCount"`
	PreviewRows []map[string]string `json:"previewRows"`
}

func newSessionView(id string, st core.SessionState, ready bool) SessionView {
	v := SessionView{
		ID:       id,
		Status:   st.Status,
		Ready:    ready,
		Files:    make([]FileView, len(st.Files)),
		Tables:   make([]TableView, len(st.Tables)),
		Insights: st.Insights,
		Error:    st.Error,
	}
	if v.Insights == nil {
		v.Insights = []core.Insight{}
	}
	for i, f := range st.Files {
		v.Files[i] = FileView{Name: f.Name, Size: f.Size}
	}
	for i, t := range st.Tables {
		v.Tables[i] = TableView{
			SourceName:  t.SourceName,
			FieldNames:  t.FieldNames,
			RowCount:    len(t.Rows),
			PreviewRows: t.PreviewRows,
		}
	}
	return v
}

// writeSession writes the snapshot as MessagePack when the client asks for
// it, JSON otherwise.
func (s *Server) writeSession(w http.ResponseWriter, r *http.Request, status int, id string, st core.SessionState) {
	view := newSessionView(id, st, s.service.Ready())

	if !strings.Contains(r.Header.Get("Accept"), MsgpackContentType) {
		writeJSON(w, status, view)
		return
	}

	w.Header().Set("Content-Type", MsgpackContentType)
	w.WriteHeader(status)
	enc := msgpack.NewEncoder(w)
	enc.SetCustomStructTag("json")
	if err := enc.Encode(view); err != nil {
		slog.Error("msgpack encode error", "error", err)
	}
}
