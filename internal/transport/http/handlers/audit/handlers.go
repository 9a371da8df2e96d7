package audithandler

import (
	"bytes"
	"context"
	"encoding/csv"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"ems/internal/domain/audit"
	"ems/internal/domain/auth"
	"ems/internal/requestctx"
	"ems/internal/transport/http/api"
	"ems/internal/transport/http/middleware"
	"ems/internal/transport/http/shared"
)

const exportLimit = 10000

type Service interface {
	Count(ctx context.Context, filter audit.Filter) (int, error)
	List(ctx context.Context, filter audit.Filter, includeDetails bool, limit, offset int) ([]audit.Event, error)
	History(ctx context.Context, entityType, entityID string) ([]audit.Event, error)
}

type Handler struct {
	Service Service
	Perms   middleware.PermissionChecker
}

func NewHandler(service Service, perms middleware.PermissionChecker) *Handler {
	return &Handler{Service: service, Perms: perms}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/audit", func(r chi.Router) {
		r.Use(middleware.RequireAuth, middleware.RequirePermission(auth.PermAuditRead, h.Perms))
		r.Get("/events", h.handleEvents)
		r.Get("/events/export", h.handleExport)
		r.Get("/{entityType}/{entityID}", h.handleHistory)
	})
}

// readFilter maps query parameters onto a filter. since and until are
// calendar days; until includes the whole day.
func readFilter(w http.ResponseWriter, r *http.Request) (audit.Filter, bool) {
	q := r.URL.Query()
	f := audit.Filter{
		Action:     q.Get("action"),
		EntityType: q.Get("entityType"),
		EntityID:   q.Get("entityId"),
		ActorUser:  q.Get("actorUserId"),
	}
	v := shared.NewValidator()
	if since := v.OptionalDate("since", q.Get("since")); since != nil {
		f.Since = *since
	}
	if until := v.OptionalDate("until", q.Get("until")); until != nil {
		f.Until = until.AddDate(0, 0, 1)
	}
	v.DateOrder("since", f.Since, "until", f.Until)
	return f, !v.Reject(w, requestctx.GetRequestID(r.Context()))
}

func (h *Handler) handleEvents(w http.ResponseWriter, r *http.Request) {
	filter, ok := readFilter(w, r)
	if !ok {
		return
	}
	window := shared.ReadWindow(r, 100, 500)
	events, err := h.Service.List(r.Context(), filter, r.URL.Query().Get("includeDetails") == "true", window.Limit, window.Offset)
	if err != nil {
		shared.WriteError(w, r, err)
		return
	}
	total, err := h.Service.Count(r.Context(), filter)
	if err != nil {
		slog.Warn("audit count failed", "err", err)
		total = window.Offset + len(events)
	}
	w.Header().Set("X-Total-Count", strconv.Itoa(total))
	api.Success(w, shared.Wrap(window, events, total), requestctx.GetRequestID(r.Context()))
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	events, err := h.Service.History(r.Context(), chi.URLParam(r, "entityType"), chi.URLParam(r, "entityID"))
	if err != nil {
		shared.WriteError(w, r, err)
		return
	}
	api.Success(w, events, requestctx.GetRequestID(r.Context()))
}

var exportHeader = []string{"id", "created_at", "actor_user_id", "action", "entity_type", "entity_id", "request_id", "ip"}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	filter, ok := readFilter(w, r)
	if !ok {
		return
	}
	events, err := h.Service.List(r.Context(), filter, false, exportLimit, 0)
	if err != nil {
		shared.WriteError(w, r, err)
		return
	}

	var buf bytes.Buffer
	out := csv.NewWriter(&buf)
	_ = out.Write(exportHeader)
	for _, evt := range events {
		_ = out.Write([]string{
			evt.ID, evt.CreatedAt.UTC().Format(time.RFC3339), evt.ActorID, evt.Action,
			evt.EntityType, evt.EntityID, evt.RequestID, evt.IP,
		})
	}
	out.Flush()
	if err := out.Error(); err != nil {
		shared.WriteError(w, r, err)
		return
	}
	api.Attachment(w, "text/csv", "audit-"+time.Now().UTC().Format("20060102")+".csv", buf.Bytes())
}
