package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"math"
	"net/http"
	"path"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"ems/internal/requestctx"
	"ems/internal/transport/http/api"
	"ems/internal/transport/http/shared"
)

// KeyFunc picks the bucket a request is charged to.
type KeyFunc func(r *http.Request) string

// bucketStore holds one token bucket per key. Each bucket has room for limit
// requests and refills fully over window. Idle buckets are swept lazily.
type bucketStore struct {
	limit  int
	window time.Duration
	key    KeyFunc

	mu        sync.Mutex
	buckets   map[string]*bucket
	lastSweep time.Time
}

type bucket struct {
	*rate.Limiter
	lastSeen time.Time
}

func newBucketStore(limit int, window time.Duration, key KeyFunc) *bucketStore {
	return &bucketStore{limit: limit, window: window, key: key, buckets: map[string]*bucket{}}
}

func (s *bucketStore) refillRate() rate.Limit {
	if s.window <= 0 {
		return rate.Inf
	}
	return rate.Limit(float64(s.limit) / s.window.Seconds())
}

func (s *bucketStore) get(key string, now time.Time) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()
	if now.Sub(s.lastSweep) > s.window {
		for k, b := range s.buckets {
			if now.Sub(b.lastSeen) > s.window {
				delete(s.buckets, k)
			}
		}
		s.lastSweep = now
	}
	b, ok := s.buckets[key]
	if !ok {
		b = &bucket{Limiter: rate.NewLimiter(s.refillRate(), s.limit)}
		s.buckets[key] = b
	}
	b.lastSeen = now
	return b.Limiter
}

// allow charges the request to its bucket and sets the X-RateLimit headers.
// When the bucket is empty it answers 429 itself and returns false.
func (s *bucketStore) allow(w http.ResponseWriter, r *http.Request) bool {
	if s.limit <= 0 {
		return true
	}
	key := s.key(r)
	if key == "" {
		key = ipKey(r)
	}
	now := time.Now()
	limiter := s.get(key, now)

	res := limiter.ReserveN(now, 1)
	wait := res.DelayFrom(now)
	if wait > 0 {
		res.CancelAt(now)
	}
	left := max(int(math.Floor(limiter.TokensAt(now))), 0)
	untilFull := time.Duration(float64(s.limit-left) / float64(s.refillRate()) * float64(time.Second))

	h := w.Header()
	h.Set("X-RateLimit-Limit", strconv.Itoa(s.limit))
	h.Set("X-RateLimit-Remaining", strconv.Itoa(left))
	h.Set("X-RateLimit-Reset", strconv.Itoa(ceilSeconds(untilFull)))
	if wait <= 0 {
		return true
	}

	h.Set("Retry-After", strconv.Itoa(max(ceilSeconds(wait), 1)))
	slog.Warn("rate limit exceeded", "key", key, "method", r.Method, "path", r.URL.Path, "limit", s.limit)
	api.Fail(w, http.StatusTooManyRequests, "rate_limited", "too many requests", GetRequestID(r.Context()))
	return false
}

func ceilSeconds(d time.Duration) int {
	return int(math.Ceil(max(d, 0).Seconds()))
}

// RateLimit is the general per-caller limit: limit requests per window for
// each signed-in user, or each client address when anonymous.
func RateLimit(limit int, window time.Duration) func(http.Handler) http.Handler {
	store := newBucketStore(limit, window, userOrIPKey)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if store.allow(w, r) {
				next.ServeHTTP(w, r)
			}
		})
	}
}

type scope int

const (
	scopeNone scope = iota
	// scopeCredentials covers login, password reset and MFA changes.
	scopeCredentials
	// scopePublic is the unauthenticated job application form.
	scopePublic
	// scopeDecision covers HR actions that create accounts or settle requests.
	scopeDecision
)

// scopeRoutes maps mutating routes, relative to /api/v1, onto scopes.
// Patterns use path.Match syntax.
var scopeRoutes = []struct {
	pattern string
	scope   scope
}{
	{"/auth/login", scopeCredentials},
	{"/auth/request-reset", scopeCredentials},
	{"/auth/reset", scopeCredentials},
	{"/auth/mfa/*", scopeCredentials},
	{"/applications", scopePublic},
	{"/applications/*/hire", scopeDecision},
	{"/auth/register", scopeDecision},
	{"/leave/requests/*/approve", scopeDecision},
	{"/leave/requests/*/reject", scopeDecision},
}

func scopeOf(r *http.Request) scope {
	switch r.Method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
	default:
		return scopeNone
	}
	route := "/" + strings.TrimLeft(strings.TrimPrefix(r.URL.Path, "/api/v1"), "/")
	for _, rule := range scopeRoutes {
		if ok, _ := path.Match(rule.pattern, route); ok {
			return rule.scope
		}
	}
	return scopeNone
}

// SensitiveMutationRateLimit layers tighter buckets over RateLimit for the
// routes in scopeRoutes. Credential routes get a quarter of base, charged
// both per address and per submitted email; the others get half of base.
func SensitiveMutationRateLimit(base int, window time.Duration) func(http.Handler) http.Handler {
	strict, relaxed := max(base/4, 1), max(base/2, 1)
	stores := map[scope][]*bucketStore{
		scopeCredentials: {
			newBucketStore(strict, window, ipKey),
			newBucketStore(strict, window, bodyFieldKey("email")),
		},
		scopePublic:   {newBucketStore(relaxed, window, ipKey)},
		scopeDecision: {newBucketStore(relaxed, window, userOrIPKey)},
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, store := range stores[scopeOf(r)] {
				if !store.allow(w, r) {
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func userOrIPKey(r *http.Request) string {
	if actor, ok := GetActor(r.Context()); ok {
		return "user:" + actor.UserID
	}
	return ipKey(r)
}

func ipKey(r *http.Request) string {
	if ip := requestctx.GetClientIP(r.Context()); ip != "" {
		return "ip:" + ip
	}
	return "ip:" + shared.ClientIP(r)
}

// bodyFieldKey keys on a string field of a JSON body, lower-cased, and falls
// back to the client address. The body is restored for the handler.
func bodyFieldKey(field string) KeyFunc {
	return func(r *http.Request) string {
		if value := peekJSONField(r, field); value != "" {
			return field + ":" + strings.ToLower(value)
		}
		return ipKey(r)
	}
}

const peekLimit = 64 << 10

func peekJSONField(r *http.Request, field string) string {
	if r.Body == nil || !strings.Contains(strings.ToLower(r.Header.Get("Content-Type")), "application/json") {
		return ""
	}
	raw, err := io.ReadAll(io.LimitReader(r.Body, peekLimit))
	r.Body = io.NopCloser(io.MultiReader(bytes.NewReader(raw), r.Body))
	if err != nil || len(raw) == 0 {
		return ""
	}
	var fields map[string]json.RawMessage
	if json.Unmarshal(raw, &fields) != nil {
		return ""
	}
	var value string
	if json.Unmarshal(fields[field], &value) != nil {
		return ""
	}
	return strings.TrimSpace(value)
}
