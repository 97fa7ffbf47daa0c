package web

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/JonMunkholm/csvinsight/internal/config"
	"github.com/JonMunkholm/csvinsight/internal/core"
	"github.com/JonMunkholm/csvinsight/internal/export"
	"github.com/JonMunkholm/csvinsight/internal/tabular"
)

type stubAnalyzer struct{}

func (stubAnalyzer) Analyze(ctx context.Context, tables []core.ParsedTable) ([]core.Insight, error) {
	out := make([]core.Insight, len(tables))
	for i, t := range tables {
		out[i] = core.Insight{
			SourceName:    t.SourceName,
			Suggestions:   []string{"Trend over time", "Top values", "Outliers"},
			CleaningSteps: []string{"Normalize dates"},
		}
	}
	return out, nil
}

type stubModel struct{}

func (stubModel) BreakerState() string { return "closed" }

func testConfig() *config.Config {
	return &config.Config{
		Server:   config.ServerConfig{Host: "127.0.0.1", Port: 8080, RequestTimeout: 5 * time.Second},
		Upload:   config.UploadConfig{MaxFileSize: 1 << 20, MaxFiles: 3},
		Security: config.SecurityConfig{EnableCSP: true},
	}
}

// newTestServer wires a real parser and exporter behind a loaded gate.
func newTestServer(t *testing.T, cfg *config.Config) (*Server, *core.Service) {
	t.Helper()

	parser, err := tabular.New(tabular.Config{Encoding: "UTF-8", Delimiter: tabular.AutoDelimiter})
	require.NoError(t, err)
	exporter := export.New()

	gate := core.NewGate(5*time.Second, parser, exporter)
	gate.Start(context.Background())
	require.NoError(t, gate.Wait(context.Background()))

	svc, err := core.NewService(core.Deps{
		Parser:   parser,
		Analyzer: stubAnalyzer{},
		Exporter: exporter,
		Gate:     gate,
	}, core.Options{AnalysisTimeout: 5 * time.Second, MaxSessions: cfg.Session.MaxSessions})
	require.NoError(t, err)

	srv := NewServer(svc, cfg, WithModelHealth(stubModel{}))
	t.Cleanup(func() { srv.Shutdown(context.Background()) })
	return srv, svc
}

// newClient returns a cookie-keeping client that does not follow redirects.
func newClient(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

type upload struct {
	name, content string
}

func multipartBody(t *testing.T, files ...upload) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, f := range files {
		part, err := mw.CreateFormFile(FilesField, f.name)
		require.NoError(t, err)
		_, err = part.Write([]byte(f.content))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func postFiles(t *testing.T, c *http.Client, url string, files ...upload) *http.Response {
	t.Helper()
	body, ct := multipartBody(t, files...)
	resp, err := c.Post(url, ct, body)
	require.NoError(t, err)
	return resp
}

func decodeView(t *testing.T, resp *http.Response) SessionView {
	t.Helper()
	defer resp.Body.Close()
	var v SessionView
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func decodeError(t *testing.T, resp *http.Response) ErrorResponse {
	t.Helper()
	defer resp.Body.Close()
	var e ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&e))
	return e
}

func waitForStatus(t *testing.T, c *http.Client, base string, want core.Status) SessionView {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		resp, err := c.Get(base + "/api/session")
		require.NoError(t, err)
		v := decodeView(t, resp)
		if v.Status == want {
			return v
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("session never reached %s", want)
	return SessionView{}
}

var (
	salesCSV   = upload{"sales.csv", "date,amount\n2024-01-01,10\n,\n2024-01-02,12\n"}
	returnsCSV = upload{"returns.csv", "date;reason\n2024-01-03;damaged\n"}
)

func TestAPI_AnalyzeAndExport(t *testing.T) {
	srv, _ := newTestServer(t, testConfig())
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()
	c := newClient(t)

	resp := postFiles(t, c, ts.URL+"/api/session/files", salesCSV, returnsCSV)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	v := decodeView(t, resp)
	assert.Equal(t, core.StatusFilesSelected, v.Status)
	require.Len(t, v.Files, 2)
	assert.Equal(t, "sales.csv", v.Files[0].Name)

	resp, err := c.Post(ts.URL+"/api/session/analyze", "", nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	resp.Body.Close()

	v = waitForStatus(t, c, ts.URL, core.StatusAnalysisComplete)
	require.Len(t, v.Insights, 2)
	assert.Equal(t, "sales.csv", v.Insights[0].SourceName)
	assert.Equal(t, "returns.csv", v.Insights[1].SourceName)
	require.Len(t, v.Tables, 2)
	assert.Equal(t, 2, v.Tables[0].RowCount, "blank row dropped")
	assert.Equal(t, []string{"date", "reason"}, v.Tables[1].FieldNames)

	resp, err = c.Get(ts.URL + "/api/session/export/json")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Disposition"), `filename="data_export.json"`)

	var exported []export.TableRows
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&exported))
	require.Len(t, exported, 2)
	assert.Equal(t, "returns.csv", exported[1].SourceName)
	assert.Equal(t, "damaged", exported[1].Rows[0]["reason"])

	resp, err = c.Get(ts.URL + "/api/session/export/xlsx")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, export.XLSXContentType, resp.Header.Get("Content-Type"))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), `filename="data_export.xlsx"`)

	resp, err = c.Post(ts.URL+"/api/session/clear", "", nil)
	require.NoError(t, err)
	v = decodeView(t, resp)
	assert.Equal(t, core.StatusIdle, v.Status)
	assert.Empty(t, v.Files)
	assert.Empty(t, v.Tables)
}

func TestAPI_PreconditionErrors(t *testing.T) {
	srv, _ := newTestServer(t, testConfig())
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()
	c := newClient(t)

	resp, err := c.Post(ts.URL+"/api/session/analyze", "", nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "SES001", decodeError(t, resp).Code)

	resp, err = c.Get(ts.URL + "/api/session/export/json")
	require.NoError(t, err)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "EXP001", decodeError(t, resp).Code)

	resp, err = c.Get(ts.URL + "/api/session/export/csv")
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "EXP002", decodeError(t, resp).Code)
}

func TestAPI_UploadLimits(t *testing.T) {
	cfg := testConfig()
	cfg.Upload.MaxFileSize = 16
	cfg.Upload.MaxFiles = 1
	srv, _ := newTestServer(t, cfg)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()
	c := newClient(t)

	resp := postFiles(t, c, ts.URL+"/api/session/files", upload{"a.csv", "a\n1\n"}, upload{"b.csv", "b\n2\n"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "FILE005", decodeError(t, resp).Code)

	resp = postFiles(t, c, ts.URL+"/api/session/files", upload{"big.csv", strings.Repeat("x", 64)})
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
	assert.Equal(t, "FILE001", decodeError(t, resp).Code)

	resp = postFiles(t, c, ts.URL+"/api/session/files")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "SES001", decodeError(t, resp).Code)
}

func TestAPI_ParseFailureNamesFile(t *testing.T) {
	srv, _ := newTestServer(t, testConfig())
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()
	c := newClient(t)

	resp := postFiles(t, c, ts.URL+"/api/session/files", salesCSV, upload{"broken.csv", "a,b\n\"unterminated,1\n"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp, err := c.Post(ts.URL+"/api/session/analyze", "", nil)
	require.NoError(t, err)
	resp.Body.Close()

	v := waitForStatus(t, c, ts.URL, core.StatusError)
	assert.Contains(t, v.Error, "broken.csv")
	assert.Empty(t, v.Tables)
}

func TestAPI_SessionMsgpack(t *testing.T) {
	srv, _ := newTestServer(t, testConfig())

	req := httptest.NewRequest(http.MethodGet, "/api/session", nil)
	req.Header.Set("Accept", MsgpackContentType)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, MsgpackContentType, rec.Header().Get("Content-Type"))

	var got map[string]any
	require.NoError(t, msgpack.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, string(core.StatusIdle), got["status"])
	assert.Equal(t, true, got["ready"])
}

func TestSessionCookie_IssuedOnceAndReused(t *testing.T) {
	srv, svc := newTestServer(t, testConfig())
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()
	c := newClient(t)

	resp := postFiles(t, c, ts.URL+"/api/session/files", salesCSV)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Values("Set-Cookie"))
	first := decodeView(t, resp)
	require.NotEmpty(t, first.ID)

	resp, err := c.Get(ts.URL + "/api/session")
	require.NoError(t, err)
	assert.Empty(t, resp.Header.Values("Set-Cookie"))
	second := decodeView(t, resp)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, core.StatusFilesSelected, second.Status)
	assert.Equal(t, 1, svc.Len())
}

func TestSession_ReadsDoNotCreate(t *testing.T) {
	srv, svc := newTestServer(t, testConfig())

	for _, path := range []string{"/", "/api/session", "/api/session/events", "/api/session/export/json"} {
		rec := httptest.NewRecorder()
		srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Empty(t, rec.Header().Values("Set-Cookie"), path)
	}
	assert.Equal(t, 0, svc.Len())

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/session", nil))
	var v SessionView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	assert.Empty(t, v.ID)
	assert.Equal(t, core.StatusIdle, v.Status)

	rec = httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/session/events", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// An expired cookie is treated like no cookie.
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "expired"})
	rec = httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Ready for insights?")
	assert.Equal(t, 0, svc.Len())
}

func TestSession_LimitRejectsNewSessions(t *testing.T) {
	cfg := testConfig()
	cfg.Session.MaxSessions = 1
	srv, svc := newTestServer(t, cfg)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	first := newClient(t)
	resp := postFiles(t, first, ts.URL+"/api/session/files", salesCSV)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = postFiles(t, newClient(t), ts.URL+"/api/session/files", salesCSV)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, "SES006", decodeError(t, resp).Code)

	// The existing session keeps working.
	resp = postFiles(t, first, ts.URL+"/api/session/files", returnsCSV)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
	assert.Equal(t, 1, svc.Len())
}

func TestForms_RedirectAndRender(t *testing.T) {
	srv, _ := newTestServer(t, testConfig())
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()
	c := newClient(t)

	resp := postFiles(t, c, ts.URL+"/session/files", salesCSV)
	resp.Body.Close()
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/", resp.Header.Get("Location"))

	resp, err := c.Get(ts.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()
	var page strings.Builder
	_, err = bufio.NewReader(resp.Body).WriteTo(&page)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, page.String(), "<li>sales.csv</li>")
	assert.NotContains(t, page.String(), `id="analyze" disabled`)
}

func TestForms_ErrorRendersPage(t *testing.T) {
	srv, _ := newTestServer(t, testConfig())

	req := httptest.NewRequest(http.MethodPost, "/session/analyze", nil)
	req.Header.Set("Accept", "text/html")
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "Code: SES001")
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t, testConfig())

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var h HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &h))
	assert.Equal(t, "ok", h.Status)
	assert.True(t, h.Ready)
	assert.Equal(t, "closed", h.ModelCircuit)
	assert.Equal(t, core.DefaultMaxConcurrentAnalyses, h.Analyses.MaxConcurrent)
}

func TestSecurityHeaders(t *testing.T) {
	srv, _ := newTestServer(t, testConfig())

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.Contains(t, rec.Header().Get("Content-Security-Policy"), "default-src 'self'")
}

func TestSessionEvents_StreamsSnapshots(t *testing.T) {
	srv, _ := newTestServer(t, testConfig())
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()
	c := newClient(t)

	resp := postFiles(t, c, ts.URL+"/api/session/files", salesCSV)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/api/session/events", nil)
	require.NoError(t, err)
	resp, err = c.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	sc := bufio.NewScanner(resp.Body)
	var event, data string
	for sc.Scan() {
		line := sc.Text()
		if v, ok := strings.CutPrefix(line, "event: "); ok {
			event = v
		}
		if v, ok := strings.CutPrefix(line, "data: "); ok {
			data = v
			break
		}
	}
	require.NoError(t, sc.Err())

	assert.Equal(t, "state", event)
	var v SessionView
	require.NoError(t, json.Unmarshal([]byte(data), &v))
	assert.Equal(t, core.StatusFilesSelected, v.Status)
}

func TestRateLimiter(t *testing.T) {
	rl := newRateLimiter(2, time.Minute)
	defer rl.stop()

	assert.True(t, rl.allow("10.0.0.1"))
	assert.True(t, rl.allow("10.0.0.1"))
	assert.False(t, rl.allow("10.0.0.1"))
	assert.True(t, rl.allow("10.0.0.2"), "limits are per IP")
}

func TestRateLimiter_Middleware(t *testing.T) {
	cfg := testConfig()
	cfg.Rate = config.RateLimitConfig{Enabled: true, RequestsPerMinute: 1}
	srv, _ := newTestServer(t, cfg)

	do := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
		req.RemoteAddr = "192.0.2.1:1234"
		rec := httptest.NewRecorder()
		srv.Router().ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusOK, do().Code)
	rec := do()
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))

	var e ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &e))
	assert.Equal(t, "RATE001", e.Code)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{core.ErrNoFiles, http.StatusBadRequest},
		{core.ErrUnknownFormat, http.StatusBadRequest},
		{&core.FileParseError{FileName: "x.csv"}, http.StatusBadRequest},
		{core.ErrAnalysisInFlight, http.StatusConflict},
		{core.ErrBusy, http.StatusConflict},
		{core.ErrNothingToExport, http.StatusConflict},
		{core.ErrNotReady, http.StatusServiceUnavailable},
		{core.ErrInitFailed, http.StatusServiceUnavailable},
		{core.ErrTooManySessions, http.StatusServiceUnavailable},
		{errFileTooLarge, http.StatusRequestEntityTooLarge},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := statusFor(tt.err); got != tt.want {
			t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
