package middleware

import (
	"net/http"
	"strconv"
	"time"
)

// HeaderPolicy is the set of browser hardening headers stamped on every
// response. Empty fields are not sent.
type HeaderPolicy struct {
	ContentSecurityPolicy string
	PermissionsPolicy     string
	ReferrerPolicy        string
	FrameOptions          string
	CacheControl          string
	// HSTS is only sent when positive; keep it off for plain-http deployments.
	HSTS time.Duration
}

// APIHeaderPolicy suits a JSON API that also serves uploaded images and
// documents from its own origin.
func APIHeaderPolicy(production bool) HeaderPolicy {
	p := HeaderPolicy{
		ContentSecurityPolicy: "default-src 'none'; img-src 'self' data:; frame-ancestors 'none'",
		PermissionsPolicy:     "geolocation=(), microphone=(), camera=(), payment=()",
		ReferrerPolicy:        "no-referrer",
		FrameOptions:          "DENY",
		CacheControl:          "no-store",
	}
	if production {
		p.HSTS = 2 * 365 * 24 * time.Hour
	}
	return p
}

func (p HeaderPolicy) apply(h http.Header) {
	h.Set("X-Content-Type-Options", "nosniff")
	h.Set("Cross-Origin-Resource-Policy", "same-origin")
	for name, value := range map[string]string{
		"Content-Security-Policy": p.ContentSecurityPolicy,
		"Permissions-Policy":      p.PermissionsPolicy,
		"Referrer-Policy":         p.ReferrerPolicy,
		"X-Frame-Options":         p.FrameOptions,
		"Cache-Control":           p.CacheControl,
	} {
		if value != "" {
			h.Set(name, value)
		}
	}
	if p.HSTS > 0 {
		h.Set("Strict-Transport-Security", "max-age="+strconv.Itoa(int(p.HSTS.Seconds()))+"; includeSubDomains")
	}
}

// SecureHeaders sets policy on every response. Handlers may still override a
// header afterwards, as the uploads route does for Cache-Control.
func SecureHeaders(policy HeaderPolicy) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			policy.apply(w.Header())
			next.ServeHTTP(w, r)
		})
	}
}
