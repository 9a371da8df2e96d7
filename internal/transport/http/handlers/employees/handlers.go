package employeehandler

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"ems/internal/domain/auth"
	"ems/internal/domain/employee"
	"ems/internal/platform/blob"
	"ems/internal/requestctx"
	"ems/internal/transport/http/api"
	"ems/internal/transport/http/middleware"
	"ems/internal/transport/http/shared"
)

type Service interface {
	Create(ctx context.Context, actor auth.Actor, emp employee.Employee) (employee.Employee, error)
	Update(ctx context.Context, actor auth.Actor, emp employee.Employee) error
	UpdateContact(ctx context.Context, actor auth.Actor, phone, address string) (employee.Employee, error)
	SoftDelete(ctx context.Context, actor auth.Actor, id string) error
	Get(ctx context.Context, id string) (employee.Employee, error)
	Self(ctx context.Context, actor auth.Actor) (employee.Employee, error)
	Search(ctx context.Context, term string) ([]employee.Employee, error)
	SetProfilePicture(ctx context.Context, actor auth.Actor, id string, picture blob.Upload) (employee.Employee, error)
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
	r.Route("/employees", func(r chi.Router) {
		r.Use(middleware.RequireAuth)
		r.With(middleware.RequirePermission(auth.PermEmployeesRead, h.Perms)).Get("/", h.handleList)
		r.With(middleware.RequirePermission(auth.PermEmployeesWrite, h.Perms)).Post("/", h.handleCreate)
		r.With(middleware.RequirePermission(auth.PermProfileRead, h.Perms)).Get("/me", h.handleGetSelf)
		r.With(middleware.RequirePermission(auth.PermProfileWrite, h.Perms)).Put("/me", h.handleUpdateSelf)
		r.With(middleware.RequirePermission(auth.PermEmployeesRead, h.Perms)).Get("/{employeeID}", h.handleGet)
		r.With(middleware.RequirePermission(auth.PermEmployeesWrite, h.Perms)).Put("/{employeeID}", h.handleUpdate)
		r.With(middleware.RequirePermission(auth.PermEmployeesWrite, h.Perms)).Delete("/{employeeID}", h.handleDelete)
		r.With(middleware.RequirePermission(auth.PermEmployeesWrite, h.Perms)).Post("/{employeeID}/picture", h.handlePicture)
	})
}

type contactRequest struct {
	Phone   string `json:"phone" validate:"max=30"`
	Address string `json:"address" validate:"max=500"`
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	window := shared.ReadWindow(r, 50, 200)
	list, err := h.Service.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		shared.WriteError(w, r, err)
		return
	}
	api.Success(w, shared.Slice(window, list), requestctx.GetRequestID(r.Context()))
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetActor(r.Context())
	var payload shared.EmployeePayload
	if err := shared.DecodeJSON(r, &payload); err != nil {
		shared.DecodeFailed(w, r, err)
		return
	}
	v := shared.NewValidator()
	emp := payload.Employee(v)
	if v.Reject(w, requestctx.GetRequestID(r.Context())) {
		return
	}

	created, err := h.Service.Create(r.Context(), actor, emp)
	if err != nil {
		shared.WriteError(w, r, err)
		return
	}
	shared.RecordAudit(r.Context(), h.Audit, actor.UserID, "employee.create", "employee", created.ID, nil, created)
	api.Created(w, created, requestctx.GetRequestID(r.Context()))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := shared.PathID(w, r, "employeeID")
	if !ok {
		return
	}
	emp, err := h.Service.Get(r.Context(), id)
	if err != nil {
		shared.WriteError(w, r, err)
		return
	}
	api.Success(w, emp, requestctx.GetRequestID(r.Context()))
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetActor(r.Context())
	id, ok := shared.PathID(w, r, "employeeID")
	if !ok {
		return
	}

	var payload shared.EmployeePayload
	if err := shared.DecodeJSON(r, &payload); err != nil {
		shared.DecodeFailed(w, r, err)
		return
	}
	v := shared.NewValidator()
	emp := payload.Employee(v)
	if v.Reject(w, requestctx.GetRequestID(r.Context())) {
		return
	}

	before, err := h.Service.Get(r.Context(), id)
	if err != nil {
		shared.WriteError(w, r, err)
		return
	}
	emp.ID = id
	if emp.Status == "" {
		emp.Status = before.Status
	}
	if emp.DateHired.IsZero() {
		emp.DateHired = before.DateHired
	}
	if err := h.Service.Update(r.Context(), actor, emp); err != nil {
		shared.WriteError(w, r, err)
		return
	}
	after, err := h.Service.Get(r.Context(), id)
	if err != nil {
		shared.WriteError(w, r, err)
		return
	}
	shared.RecordAudit(r.Context(), h.Audit, actor.UserID, "employee.update", "employee", id, before, after)
	api.Success(w, after, requestctx.GetRequestID(r.Context()))
}

// handleDelete deactivates the employee; the record stays resolvable.
func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetActor(r.Context())
	id, ok := shared.PathID(w, r, "employeeID")
	if !ok {
		return
	}
	if err := h.Service.SoftDelete(r.Context(), actor, id); err != nil {
		shared.WriteError(w, r, err)
		return
	}
	shared.RecordAudit(r.Context(), h.Audit, actor.UserID, "employee.deactivate", "employee", id, nil, nil)
	api.Success(w, map[string]string{"status": "inactive"}, requestctx.GetRequestID(r.Context()))
}

func (h *Handler) handleGetSelf(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetActor(r.Context())
	emp, err := h.Service.Self(r.Context(), actor)
	if err != nil {
		shared.WriteError(w, r, err)
		return
	}
	api.Success(w, emp, requestctx.GetRequestID(r.Context()))
}

func (h *Handler) handleUpdateSelf(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetActor(r.Context())
	var payload contactRequest
	if err := shared.DecodeJSON(r, &payload); err != nil {
		shared.DecodeFailed(w, r, err)
		return
	}
	v := shared.NewValidator()
	v.Struct(payload)
	if v.Reject(w, requestctx.GetRequestID(r.Context())) {
		return
	}

	updated, err := h.Service.UpdateContact(r.Context(), actor, payload.Phone, payload.Address)
	if err != nil {
		shared.WriteError(w, r, err)
		return
	}
	shared.RecordAudit(r.Context(), h.Audit, actor.UserID, "employee.contact.update", "employee", updated.ID, nil, payload)
	api.Success(w, updated, requestctx.GetRequestID(r.Context()))
}

func (h *Handler) handlePicture(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetActor(r.Context())
	id, ok := shared.PathID(w, r, "employeeID")
	if !ok {
		return
	}
	h.storePicture(w, r, actor, id)
}

func (h *Handler) storePicture(w http.ResponseWriter, r *http.Request, actor auth.Actor, id string) {
	reqID := requestctx.GetRequestID(r.Context())
	if !shared.IsMultipart(r) {
		shared.FailValidation(w, reqID, []shared.ValidationIssue{{Field: "picture", Reason: "must be sent as multipart/form-data"}})
		return
	}
	upload, cleanup, err := shared.FormFile(r, "picture", h.MaxUploadBytes)
	defer cleanup()
	if err != nil {
		shared.FailValidation(w, reqID, []shared.ValidationIssue{{Field: "picture", Reason: err.Error()}})
		return
	}
	if upload == nil {
		shared.FailValidation(w, reqID, []shared.ValidationIssue{{Field: "picture", Reason: "is required"}})
		return
	}
	if !imageFile(upload.FileName) {
		shared.FailValidation(w, reqID, []shared.ValidationIssue{{Field: "picture", Reason: "must be a jpg, png or gif image"}})
		return
	}

	updated, err := h.Service.SetProfilePicture(r.Context(), actor, id, *upload)
	if err != nil {
		shared.WriteError(w, r, err)
		return
	}
	shared.RecordAudit(r.Context(), h.Audit, actor.UserID, "employee.picture.update", "employee", id, nil, map[string]string{"path": updated.ProfilePicturePath})
	api.Success(w, updated, reqID)
}

func imageFile(name string) bool {
	lower := strings.ToLower(name)
	for _, ext := range []string{".jpg", ".jpeg", ".png", ".gif"} {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}
