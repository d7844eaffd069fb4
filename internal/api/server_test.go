package api

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/tsawler/pagecheck/internal/config"
	"github.com/tsawler/pagecheck/internal/pdftest"
	"github.com/tsawler/pagecheck/pages"
)

func newTestServer(token string) *Server {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewServer(log, config.Config{APIToken: token, MaxUploadBytes: 1 << 20})
}

type checkBody struct {
	ReportID string `json:"report_id"`
	File     string `json:"file"`
	Tree     struct {
		DeclaredCount  int    `json:"declared_count"`
		ActualCount    int    `json:"actual_count"`
		HasDiscrepancy bool   `json:"has_discrepancy"`
		Error          string `json:"error"`
	} `json:"tree"`
	Copy struct {
		HasMismatch bool `json:"has_mismatch"`
	} `json:"copy"`
	Error string `json:"error"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) checkBody {
	t.Helper()
	var body checkBody
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return body
}

func TestHealth(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestServer("secret").ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != `{"status":"ok"}` {
		t.Errorf("health = %d %s", rec.Code, rec.Body.String())
	}
}

func TestCheckRawPDF(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/v1/check?name=two.pdf",
		bytes.NewReader(pdftest.FlatDocument(2).Bytes()))
	req.Header.Set("Content-Type", "application/pdf")
	rec := httptest.NewRecorder()
	newTestServer("").ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	id := rec.Header().Get(ReportIDHeader)
	if _, err := uuid.Parse(id); err != nil {
		t.Errorf("%s = %q", ReportIDHeader, id)
	}
	body := decode(t, rec)
	if body.ReportID != id {
		t.Errorf("report_id = %q, header %q", body.ReportID, id)
	}
	if body.File != "two.pdf" || body.Tree.DeclaredCount != 2 || body.Tree.ActualCount != 2 {
		t.Errorf("unexpected report %+v", body)
	}
	if body.Tree.HasDiscrepancy || body.Copy.HasMismatch {
		t.Errorf("clean document reported issues: %+v", body)
	}
}

func TestCheckMaxPages(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := NewServer(log, config.Config{MaxUploadBytes: 1 << 20, MaxPages: 2})

	req := httptest.NewRequest(http.MethodPost, "/v1/check?name=three.pdf",
		bytes.NewReader(pdftest.FlatDocument(3).Bytes()))
	req.Header.Set("Content-Type", "application/pdf")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	body := decode(t, rec)
	if body.Tree.ActualCount != -1 || !strings.Contains(body.Tree.Error, pages.ErrTooManyPages.Error()) {
		t.Errorf("tree = %+v", body.Tree)
	}
	if !body.Copy.HasMismatch {
		t.Errorf("copy should fail past the page limit: %+v", body.Copy)
	}
}

func TestCheckMultipart(t *testing.T) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", `C:\docs\three.pdf`)
	if err != nil {
		t.Fatal(err)
	}
	part.Write(pdftest.FlatDocument(3).Bytes())
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/v1/check", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	newTestServer("").ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	body := decode(t, rec)
	if body.File != "three.pdf" || body.Tree.ActualCount != 3 {
		t.Errorf("unexpected report %+v", body)
	}
}

func TestCheckRejects(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		body        []byte
		want        int
	}{
		{"not a pdf", "application/pdf", []byte("hello world"), http.StatusBadRequest},
		{"empty body", "application/pdf", nil, http.StatusBadRequest},
		{"unsupported type", "text/plain", []byte("%PDF-1.7"), http.StatusUnsupportedMediaType},
		{"no content type", "", []byte("%PDF-1.7"), http.StatusUnsupportedMediaType},
		{"too large", "application/pdf", append([]byte("%PDF-1.7\n"), make([]byte, 1<<20)...), http.StatusRequestEntityTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/v1/check", bytes.NewReader(tt.body))
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}
			rec := httptest.NewRecorder()
			newTestServer("").ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d: %s", rec.Code, tt.want, rec.Body.String())
			}
			if body := decode(t, rec); body.Error == "" {
				t.Error("missing error message")
			}
		})
	}
}

func TestAuth(t *testing.T) {
	pdf := pdftest.FlatDocument(1).Bytes()
	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic c2VjcmV0", http.StatusUnauthorized},
		{"wrong token", "Bearer nope", http.StatusUnauthorized},
		{"valid", "Bearer secret", http.StatusOK},
	}
	srv := newTestServer("secret")
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/v1/check", bytes.NewReader(pdf))
			req.Header.Set("Content-Type", "application/pdf")
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			srv.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := map[string]string{
		"":                  "",
		"a.pdf":             "a.pdf",
		"../../etc/x.pdf":   "x.pdf",
		`C:\Users\me\y.pdf`: "y.pdf",
	}
	for in, want := range tests {
		if got := sanitizeFilename(in); got != want {
			t.Errorf("sanitizeFilename(%q) = %q, want %q", in, got, want)
		}
	}
}
