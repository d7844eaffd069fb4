package api

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/tsawler/pagecheck"
	"github.com/tsawler/pagecheck/format"
)

// ReportIDHeader carries the id of the report in a check response.
const ReportIDHeader = "X-Report-ID"

type checkResponse struct {
	ReportID string `json:"report_id"`
	pagecheck.Report
}

// errUploadTooLarge is returned by readUpload when the document exceeds
// the configured limit.
var errUploadTooLarge = errors.New("upload too large")

type requestError struct {
	status int
	msg    string
}

func (e *requestError) Error() string { return e.msg }

func (s *Server) handleCheck(w http.ResponseWriter, r *http.Request) {
	// Extra 1MB for multipart overhead.
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1<<20)

	name, data, err := s.readUpload(r)
	if err != nil {
		var reqErr *requestError
		switch {
		case errors.As(err, &reqErr):
			jsonError(w, reqErr.msg, reqErr.status)
		case errors.Is(err, errUploadTooLarge):
			jsonError(w, fmt.Sprintf("file exceeds max size (%d bytes)", s.cfg.MaxUploadBytes), http.StatusRequestEntityTooLarge)
		default:
			jsonError(w, "failed to read upload: "+err.Error(), http.StatusBadRequest)
		}
		return
	}

	if kind := format.DetectFromMagic(data); kind != format.PDF {
		jsonError(w, fmt.Sprintf("not a PDF (%s)", kind), http.StatusBadRequest)
		return
	}

	id := uuid.NewString()
	log := s.log.With("report_id", id, "request_id", middleware.GetReqID(r.Context()), "file", name)
	report := pagecheck.FromBytes(name, data).
		WithLogger(log).
		WithMaxPages(s.cfg.MaxPages).
		RunOrReport()
	log.Info("document checked", "has_issues", report.HasIssues())

	w.Header().Set(ReportIDHeader, id)
	writeJSON(w, http.StatusOK, checkResponse{ReportID: id, Report: report})
}

// readUpload returns the document from a multipart "file" field or from a
// raw PDF body. A raw body is named by the "name" query parameter.
func (s *Server) readUpload(r *http.Request) (string, []byte, error) {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return "", nil, &requestError{http.StatusUnsupportedMediaType, "missing or invalid Content-Type"}
	}

	var (
		name = sanitizeFilename(r.URL.Query().Get("name"))
		body io.Reader
	)
	switch mediaType {
	case "multipart/form-data":
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			if isMaxBytes(err) {
				return "", nil, errUploadTooLarge
			}
			return "", nil, &requestError{http.StatusBadRequest, "invalid multipart form: " + err.Error()}
		}
		defer r.MultipartForm.RemoveAll()
		file, header, err := r.FormFile("file")
		if err != nil {
			return "", nil, &requestError{http.StatusBadRequest, "file is required"}
		}
		defer file.Close()
		name = sanitizeFilename(header.Filename)
		body = file
	case "application/pdf", "application/octet-stream":
		body = r.Body
	default:
		return "", nil, &requestError{http.StatusUnsupportedMediaType, "unsupported Content-Type " + mediaType}
	}

	data, err := io.ReadAll(io.LimitReader(body, s.cfg.MaxUploadBytes+1))
	if err != nil {
		if isMaxBytes(err) {
			return "", nil, errUploadTooLarge
		}
		return "", nil, err
	}
	if int64(len(data)) > s.cfg.MaxUploadBytes {
		return "", nil, errUploadTooLarge
	}
	if name == "" {
		name = "upload.pdf"
	}
	return name, data, nil
}

func isMaxBytes(err error) bool {
	var mbe *http.MaxBytesError
	return errors.As(err, &mbe)
}

func sanitizeFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "." || name == "/" {
		return ""
	}
	return name
}
