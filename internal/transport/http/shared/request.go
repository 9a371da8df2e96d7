package shared

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"ems/internal/platform/blob"
	"ems/internal/requestctx"
	"ems/internal/transport/http/api"
)

// PathID reads a UUID route parameter in canonical form. A malformed id
// names no record, so it is answered with 404 and ok is false.
func PathID(w http.ResponseWriter, r *http.Request, param string) (string, bool) {
	id, err := uuid.Parse(chi.URLParam(r, param))
	if err != nil {
		api.Fail(w, http.StatusNotFound, "not_found", "resource not found", requestctx.GetRequestID(r.Context()))
		return "", false
	}
	return id.String(), true
}

// DecodeJSON decodes the body into dst, rejecting unknown fields and trailing data.
func DecodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return fmt.Errorf("request body must contain a single JSON object")
	}
	return nil
}

func IsMultipart(r *http.Request) bool {
	contentType := strings.ToLower(strings.TrimSpace(r.Header.Get("Content-Type")))
	return strings.HasPrefix(contentType, "multipart/form-data")
}

// FormFile returns the named upload, or nil when the field is absent. The
// caller closes the returned file via the cleanup func.
func FormFile(r *http.Request, field string, maxBytes int64) (*blob.Upload, func(), error) {
	file, header, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, func() {}, nil
	}
	if err != nil {
		return nil, func() {}, err
	}
	if maxBytes > 0 && header.Size > maxBytes {
		_ = file.Close()
		return nil, func() {}, fmt.Errorf("%s exceeds maximum size", field)
	}
	if header.Size == 0 {
		_ = file.Close()
		return nil, func() {}, fmt.Errorf("%s is empty", field)
	}
	upload := &blob.Upload{FileName: sanitizeUploadedFileName(header), Body: file}
	return upload, func() { _ = file.Close() }, nil
}

func sanitizeUploadedFileName(header *multipart.FileHeader) string {
	cleaned := strings.TrimSpace(filepath.Base(header.Filename))
	cleaned = strings.ReplaceAll(cleaned, "\x00", "")
	if cleaned == "" || cleaned == "." {
		return "upload.bin"
	}
	return cleaned
}

func ClientIP(r *http.Request) string {
	if fwd := strings.TrimSpace(r.Header.Get("X-Forwarded-For")); fwd != "" {
		if first := strings.TrimSpace(strings.Split(fwd, ",")[0]); first != "" {
			return first
		}
	}
	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err == nil && host != "" {
		return host
	}
	return strings.TrimSpace(r.RemoteAddr)
}
