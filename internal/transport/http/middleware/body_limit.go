package middleware

import (
	"mime"
	"net/http"

	"ems/internal/transport/http/api"
)

// BodyLimit caps request bodies at maxBytes, or maxUploadBytes for
// multipart/form-data. A declared Content-Length over the cap is refused with
// 413 before the handler runs; bodies of unknown length are cut off while
// being read.
func BodyLimit(maxBytes, maxUploadBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body == nil || r.Body == http.NoBody {
				next.ServeHTTP(w, r)
				return
			}
			limit := maxBytes
			if isMultipart(r) {
				limit = max(limit, maxUploadBytes)
			}
			if limit <= 0 {
				next.ServeHTTP(w, r)
				return
			}
			if r.ContentLength > limit {
				api.FailWithDetails(w, http.StatusRequestEntityTooLarge, "payload_too_large", "request body too large",
					map[string]any{"limitBytes": limit}, GetRequestID(r.Context()))
				return
			}
			r.Body = http.MaxBytesReader(w, r.Body, limit)
			next.ServeHTTP(w, r)
		})
	}
}

func isMultipart(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == "multipart/form-data"
}
