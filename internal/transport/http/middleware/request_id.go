package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"ems/internal/requestctx"
	"ems/internal/transport/http/shared"
)

const maxRequestIDLen = 128

// RequestID tags every request with an id (taken from X-Request-ID when sent)
// and records the client address for audit entries.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get("X-Request-ID")
		if reqID == "" || len(reqID) > maxRequestIDLen {
			reqID = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", reqID)
		ctx, _ := requestctx.Start(r.Context(), requestctx.Info{
			RequestID: reqID,
			ClientIP:  shared.ClientIP(r),
			UserAgent: r.UserAgent(),
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func GetRequestID(ctx context.Context) string {
	return requestctx.GetRequestID(ctx)
}
