package announcementhandler

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"ems/internal/domain/announcement"
	"ems/internal/domain/auth"
	"ems/internal/platform/blob"
	"ems/internal/requestctx"
	"ems/internal/transport/http/api"
	"ems/internal/transport/http/middleware"
	"ems/internal/transport/http/shared"
)

type Service interface {
	Create(ctx context.Context, actor auth.Actor, a announcement.Announcement, attachment *blob.Upload) (announcement.Announcement, error)
	Update(ctx context.Context, actor auth.Actor, a announcement.Announcement, active *bool, attachment *blob.Upload) (announcement.Announcement, error)
	Deactivate(ctx context.Context, actor auth.Actor, id string) error
	Delete(ctx context.Context, actor auth.Actor, id string) error
	Get(ctx context.Context, actor auth.Actor, id string) (announcement.Announcement, error)
	ListActive(ctx context.Context) ([]announcement.Announcement, error)
	ListAll(ctx context.Context, actor auth.Actor) ([]announcement.Announcement, error)
}

type Handler struct {
	Service        Service
	Perms          middleware.PermissionChecker
	Audit          shared.AuditRecorder
	MaxUploadBytes int64
}

func NewHandler(service Service, perms middleware.PermissionChecker, audit shared.AuditRecorder, maxUploadBytes int64) *Handler {
	return &Handler{Service: service, Perms: perms, Audit: audit, MaxUploadBytes: maxUploadBytes}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	read := middleware.RequirePermission(auth.PermAnnouncementsRead, h.Perms)
	write := middleware.RequirePermission(auth.PermAnnouncementsWrite, h.Perms)

	r.Route("/announcements", func(r chi.Router) {
		r.Use(middleware.RequireAuth)
		r.With(read).Get("/", h.handleList)
		r.With(write).Post("/", h.handleCreate)
		r.With(read).Get("/{announcementID}", h.handleGet)
		r.With(write).Put("/{announcementID}", h.handleUpdate)
		r.With(write).Post("/{announcementID}/deactivate", h.handleDeactivate)
		r.With(write).Delete("/{announcementID}", h.handleDelete)
	})
}

type announcementRequest struct {
	Title      string `json:"title" validate:"required,max=200"`
	Content    string `json:"content" validate:"required,max=10000"`
	Priority   string `json:"priority"`
	ExpiryDate string `json:"expiryDate"`
	IsActive   *bool  `json:"isActive"`
}

// draft is a validated payload. active is nil when the client left
// isActive out. cleanup releases the attachment part.
type draft struct {
	announcement.Announcement
	active     *bool
	attachment *blob.Upload
	cleanup    func()
}

// parse validates the payload and any "attachment" file part.
func (h *Handler) parse(w http.ResponseWriter, r *http.Request) (draft, bool) {
	reqID := requestctx.GetRequestID(r.Context())

	var payload announcementRequest
	if err := shared.DecodeRequest(r, &payload); err != nil {
		shared.DecodeFailed(w, r, err)
		return draft{}, false
	}
	v := shared.NewValidator()
	v.Struct(payload)
	priority, ok := announcement.ParsePriority(payload.Priority)
	if !ok {
		v.Add("priority", "must be one of: normal, important, urgent")
	}
	d := draft{
		Announcement: announcement.Announcement{
			Title:      payload.Title,
			Content:    strings.TrimSpace(payload.Content),
			Priority:   priority,
			ExpiryDate: v.OptionalDate("expiryDate", payload.ExpiryDate),
		},
		active:  payload.IsActive,
		cleanup: func() {},
	}
	if shared.IsMultipart(r) {
		upload, done, err := shared.FormFile(r, "attachment", h.MaxUploadBytes)
		d.attachment, d.cleanup = upload, done
		if err != nil {
			v.Add("attachment", err.Error())
		}
	}
	if v.Reject(w, reqID) {
		d.cleanup()
		return draft{}, false
	}
	return d, true
}

// handleList shows HR every announcement with ?all=true; everyone else gets the visible ones.
func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetActor(r.Context())
	var (
		list []announcement.Announcement
		err  error
	)
	if actor.IsHR() && r.URL.Query().Get("all") == "true" {
		list, err = h.Service.ListAll(r.Context(), actor)
	} else {
		list, err = h.Service.ListActive(r.Context())
	}
	if err != nil {
		shared.WriteError(w, r, err)
		return
	}
	api.Success(w, list, requestctx.GetRequestID(r.Context()))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetActor(r.Context())
	id, ok := shared.PathID(w, r, "announcementID")
	if !ok {
		return
	}
	a, err := h.Service.Get(r.Context(), actor, id)
	if err != nil {
		shared.WriteError(w, r, err)
		return
	}
	api.Success(w, a, requestctx.GetRequestID(r.Context()))
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetActor(r.Context())
	d, ok := h.parse(w, r)
	if !ok {
		return
	}
	defer d.cleanup()

	created, err := h.Service.Create(r.Context(), actor, d.Announcement, d.attachment)
	if err != nil {
		shared.WriteError(w, r, err)
		return
	}
	shared.RecordAudit(r.Context(), h.Audit, actor.UserID, "announcement.create", "announcement", created.ID, nil, created)
	api.Created(w, created, requestctx.GetRequestID(r.Context()))
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetActor(r.Context())
	id, ok := shared.PathID(w, r, "announcementID")
	if !ok {
		return
	}
	d, ok := h.parse(w, r)
	if !ok {
		return
	}
	defer d.cleanup()
	d.ID = id

	updated, err := h.Service.Update(r.Context(), actor, d.Announcement, d.active, d.attachment)
	if err != nil {
		shared.WriteError(w, r, err)
		return
	}
	shared.RecordAudit(r.Context(), h.Audit, actor.UserID, "announcement.update", "announcement", updated.ID, nil, updated)
	api.Success(w, updated, requestctx.GetRequestID(r.Context()))
}

func (h *Handler) handleDeactivate(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetActor(r.Context())
	id, ok := shared.PathID(w, r, "announcementID")
	if !ok {
		return
	}
	if err := h.Service.Deactivate(r.Context(), actor, id); err != nil {
		shared.WriteError(w, r, err)
		return
	}
	shared.RecordAudit(r.Context(), h.Audit, actor.UserID, "announcement.deactivate", "announcement", id, nil, nil)
	api.Success(w, map[string]bool{"isActive": false}, requestctx.GetRequestID(r.Context()))
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetActor(r.Context())
	id, ok := shared.PathID(w, r, "announcementID")
	if !ok {
		return
	}
	if err := h.Service.Delete(r.Context(), actor, id); err != nil {
		shared.WriteError(w, r, err)
		return
	}
	shared.RecordAudit(r.Context(), h.Audit, actor.UserID, "announcement.delete", "announcement", id, nil, nil)
	w.WriteHeader(http.StatusNoContent)
}
