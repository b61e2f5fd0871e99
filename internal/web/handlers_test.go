package web

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sparklabs/sparksearch/internal/config"
	"github.com/sparklabs/sparksearch/internal/core"
)

const testCSV = "name,salary\nAlice,50000\nBob,120000\n"

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = 0
	cfg.Server.RequestTimeout = 30 * time.Second
	cfg.Auth.Username = "Admin"
	cfg.Auth.Password = "Admin@123"
	cfg.Auth.SessionTTL = time.Hour
	cfg.Upload.MaxFileSize = 1 << 20
	cfg.Upload.Timeout = time.Minute
	return cfg
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	cfg := testConfig()
	return NewServer(core.NewService(nil, cfg), cfg)
}

func do(t *testing.T, s *Server, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)
	return w
}

func login(t *testing.T, s *Server) *http.Cookie {
	t.Helper()
	body := strings.NewReader(`{"username":"Admin","password":"Admin@123"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/login", body)
	w := do(t, s, req)

	if w.Code != http.StatusOK {
		t.Fatalf("login status = %d, body %s", w.Code, w.Body.String())
	}
	for _, c := range w.Result().Cookies() {
		if c.Name == sessionCookie {
			return c
		}
	}
	t.Fatal("login response has no session cookie")
	return nil
}

func uploadCSV(t *testing.T, s *Server, cookie *http.Cookie, filename, content string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := fw.Write([]byte(content)); err != nil {
		t.Fatal(err)
	}
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.AddCookie(cookie)
	return do(t, s, req)
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	w := do(t, s, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("healthz status = %d", w.Code)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	s := newTestServer(t)
	body := strings.NewReader(`{"username":"Admin","password":"wrong"}`)
	w := do(t, s, httptest.NewRequest(http.MethodPost, "/api/login", body))

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}

	var resp map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp["code"] != "AUTH001" {
		t.Errorf("code = %v, want AUTH001", resp["code"])
	}
}

func TestProtectedRoutesRequireSession(t *testing.T) {
	s := newTestServer(t)

	for _, tc := range []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/api/upload"},
		{http.MethodGet, "/api/columns"},
		{http.MethodPost, "/api/search"},
		{http.MethodGet, "/api/export"},
		{http.MethodPost, "/api/logout"},
	} {
		w := do(t, s, httptest.NewRequest(tc.method, tc.path, nil))
		if w.Code != http.StatusUnauthorized {
			t.Errorf("%s %s status = %d, want 401", tc.method, tc.path, w.Code)
		}
	}
}

func TestStaleCookieRejected(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/columns", nil)
	req.AddCookie(&http.Cookie{Name: sessionCookie, Value: "stale"})

	w := do(t, s, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
}

func TestUploadSearchExportFlow(t *testing.T) {
	s := newTestServer(t)
	cookie := login(t, s)

	// Upload.
	w := uploadCSV(t, s, cookie, "resumes.csv", testCSV)
	if w.Code != http.StatusOK {
		t.Fatalf("upload status = %d, body %s", w.Code, w.Body.String())
	}
	var summary core.UploadSummary
	if err := json.Unmarshal(w.Body.Bytes(), &summary); err != nil {
		t.Fatal(err)
	}
	if summary.Rows != 2 {
		t.Errorf("summary rows = %d, want 2", summary.Rows)
	}

	// Columns.
	req := httptest.NewRequest(http.MethodGet, "/api/columns", nil)
	req.AddCookie(cookie)
	w = do(t, s, req)
	if w.Code != http.StatusOK {
		t.Fatalf("columns status = %d", w.Code)
	}
	var colResp struct {
		Columns []core.ColumnInfo `json:"columns"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &colResp); err != nil {
		t.Fatal(err)
	}
	if len(colResp.Columns) != 2 {
		t.Fatalf("columns = %v, want 2", colResp.Columns)
	}
	if colResp.Columns[1].Name != "salary" || colResp.Columns[1].Stats == nil {
		t.Errorf("salary column = %+v, want stats present", colResp.Columns[1])
	}

	// Search.
	body := strings.NewReader(`{"selections":[{"column":"salary","kind":"range","low":0,"high":100000,"hasBounds":true}]}`)
	req = httptest.NewRequest(http.MethodPost, "/api/search", body)
	req.AddCookie(cookie)
	w = do(t, s, req)
	if w.Code != http.StatusOK {
		t.Fatalf("search status = %d, body %s", w.Code, w.Body.String())
	}
	var searchResp searchResponse
	if err := json.Unmarshal(w.Body.Bytes(), &searchResp); err != nil {
		t.Fatal(err)
	}
	if searchResp.Count != 1 || len(searchResp.Rows) != 1 {
		t.Fatalf("search count = %d rows = %d, want 1", searchResp.Count, len(searchResp.Rows))
	}
	if searchResp.Rows[0]["name"] != "Alice" {
		t.Errorf("match = %v, want Alice", searchResp.Rows[0])
	}

	// Export the snapshot as CSV.
	req = httptest.NewRequest(http.MethodGet, "/api/export?format=csv", nil)
	req.AddCookie(cookie)
	w = do(t, s, req)
	if w.Code != http.StatusOK {
		t.Fatalf("export status = %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "text/csv" {
		t.Errorf("export content type = %q", ct)
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, "resumes_results.csv") {
		t.Errorf("content disposition = %q", cd)
	}
	if !strings.Contains(w.Body.String(), "Alice") || strings.Contains(w.Body.String(), "Bob") {
		t.Errorf("export body = %q, want filtered rows only", w.Body.String())
	}
}

func TestSearchNoCriteriaReturns400(t *testing.T) {
	s := newTestServer(t)
	cookie := login(t, s)
	uploadCSV(t, s, cookie, "resumes.csv", testCSV)

	body := strings.NewReader(`{"selections":[]}`)
	req := httptest.NewRequest(http.MethodPost, "/api/search", body)
	req.AddCookie(cookie)
	w := do(t, s, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	var resp map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp["code"] != "FLT001" {
		t.Errorf("code = %v, want FLT001", resp["code"])
	}
}

func TestSearchBeforeUploadReturns404(t *testing.T) {
	s := newTestServer(t)
	cookie := login(t, s)

	body := strings.NewReader(`{"selections":[{"column":"name","kind":"text","pattern":"a"}]}`)
	req := httptest.NewRequest(http.MethodPost, "/api/search", body)
	req.AddCookie(cookie)
	w := do(t, s, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404 (no data)", w.Code)
	}
}

func TestUploadRejectsUnsupportedType(t *testing.T) {
	s := newTestServer(t)
	cookie := login(t, s)

	w := uploadCSV(t, s, cookie, "resume.pdf", "some bytes")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	var resp map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp["code"] != "FILE001" {
		t.Errorf("code = %v, want FILE001", resp["code"])
	}
}

func TestUploadWithoutFileField(t *testing.T) {
	s := newTestServer(t)
	cookie := login(t, s)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	mw.WriteField("notfile", "x")
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.AddCookie(cookie)
	w := do(t, s, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestExportWithoutSearch(t *testing.T) {
	s := newTestServer(t)
	cookie := login(t, s)

	req := httptest.NewRequest(http.MethodGet, "/api/export", nil)
	req.AddCookie(cookie)
	w := do(t, s, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}

func TestLogoutInvalidatesSession(t *testing.T) {
	s := newTestServer(t)
	cookie := login(t, s)

	req := httptest.NewRequest(http.MethodPost, "/api/logout", nil)
	req.AddCookie(cookie)
	if w := do(t, s, req); w.Code != http.StatusOK {
		t.Fatalf("logout status = %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/columns", nil)
	req.AddCookie(cookie)
	if w := do(t, s, req); w.Code != http.StatusUnauthorized {
		t.Fatalf("status after logout = %d, want 401", w.Code)
	}
}

func TestSecurityHeaders(t *testing.T) {
	s := newTestServer(t)
	w := do(t, s, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if got := w.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q", got)
	}
	if got := w.Header().Get("X-Frame-Options"); got != "DENY" {
		t.Errorf("X-Frame-Options = %q", got)
	}
}

func TestRateLimiter(t *testing.T) {
	rl := newRateLimiter(2, time.Minute)

	if !rl.allow("1.2.3.4") || !rl.allow("1.2.3.4") {
		t.Fatal("first two requests should pass")
	}
	if rl.allow("1.2.3.4") {
		t.Error("third request should be limited")
	}
	if !rl.allow("5.6.7.8") {
		t.Error("other IPs have their own bucket")
	}
}
