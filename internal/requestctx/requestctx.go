// Package requestctx carries per-request facts from the HTTP edge down to
// the domain layer, where audit entries pick them up.
package requestctx

import "context"

// Info is created once per request. Middleware further down the chain may
// fill in UserID, and outer middleware sees the change because the context
// holds a pointer.
type Info struct {
	RequestID string
	ClientIP  string
	UserAgent string
	UserID    string
}

type infoKey struct{}

// Start attaches info to ctx and returns the stored copy for later updates.
func Start(ctx context.Context, info Info) (context.Context, *Info) {
	stored := &info
	return context.WithValue(ctx, infoKey{}, stored), stored
}

func from(ctx context.Context) *Info {
	info, _ := ctx.Value(infoKey{}).(*Info)
	return info
}

// Get returns a copy of the request info, or the zero value outside a request.
func Get(ctx context.Context) Info {
	if info := from(ctx); info != nil {
		return *info
	}
	return Info{}
}

// SetUserID records the authenticated user on the running request.
func SetUserID(ctx context.Context, userID string) {
	if info := from(ctx); info != nil {
		info.UserID = userID
	}
}

// WithRequestID returns a context whose info has the given request id. The
// info already on ctx, if any, is left untouched.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	info := Get(ctx)
	info.RequestID = requestID
	ctx, _ = Start(ctx, info)
	return ctx
}

func WithClientIP(ctx context.Context, ip string) context.Context {
	info := Get(ctx)
	info.ClientIP = ip
	ctx, _ = Start(ctx, info)
	return ctx
}

func GetRequestID(ctx context.Context) string { return Get(ctx).RequestID }

func GetClientIP(ctx context.Context) string { return Get(ctx).ClientIP }
