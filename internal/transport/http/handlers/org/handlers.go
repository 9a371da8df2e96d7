package orghandler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"ems/internal/domain/auth"
	"ems/internal/domain/org"
	"ems/internal/domain/record"
	"ems/internal/requestctx"
	"ems/internal/transport/http/api"
	"ems/internal/transport/http/middleware"
	"ems/internal/transport/http/shared"
)

type Handler struct {
	Departments *org.DepartmentService
	Positions   *org.PositionService
	Perms       middleware.PermissionChecker
	Audit       shared.AuditRecorder
}

func NewHandler(departments *org.DepartmentService, positions *org.PositionService, perms middleware.PermissionChecker, audit shared.AuditRecorder) *Handler {
	return &Handler{Departments: departments, Positions: positions, Perms: perms, Audit: audit}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	read := middleware.RequirePermission(auth.PermOrgRead, h.Perms)
	write := middleware.RequirePermission(auth.PermOrgWrite, h.Perms)

	r.Route("/departments", func(r chi.Router) {
		r.Use(middleware.RequireAuth)
		r.With(read).Get("/", h.handleListDepartments)
		r.With(write).Post("/", h.handleCreateDepartment)
		r.With(read).Get("/{departmentID}", h.handleGetDepartment)
		r.With(write).Put("/{departmentID}", h.handleUpdateDepartment)
		r.With(write).Post("/{departmentID}/deactivate", h.handleDeactivateDepartment)
		r.With(write).Delete("/{departmentID}", h.handleDeleteDepartment)
	})
	r.Route("/positions", func(r chi.Router) {
		r.Use(middleware.RequireAuth)
		r.With(read).Get("/", h.handleListPositions)
		r.With(write).Post("/", h.handleCreatePosition)
		r.With(read).Get("/{positionID}", h.handleGetPosition)
		r.With(write).Put("/{positionID}", h.handleUpdatePosition)
		r.With(write).Post("/{positionID}/deactivate", h.handleDeactivatePosition)
		r.With(write).Delete("/{positionID}", h.handleDeletePosition)
	})
}

type departmentRequest struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description" validate:"max=500"`
	Status      string `json:"status" validate:"omitempty,oneof=active inactive"`
}

type positionRequest struct {
	Title       string `json:"title" validate:"required,max=100"`
	Description string `json:"description" validate:"max=500"`
	Status      string `json:"status" validate:"omitempty,oneof=active inactive"`
}

func includeInactive(r *http.Request) bool {
	return r.URL.Query().Get("includeInactive") == "true"
}

func (h *Handler) handleListDepartments(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetActor(r.Context())
	list, err := h.Departments.List(r.Context(), actor, includeInactive(r))
	if err != nil {
		shared.WriteError(w, r, err)
		return
	}
	api.Success(w, list, requestctx.GetRequestID(r.Context()))
}

func (h *Handler) handleGetDepartment(w http.ResponseWriter, r *http.Request) {
	id, ok := shared.PathID(w, r, "departmentID")
	if !ok {
		return
	}
	d, err := h.Departments.Get(r.Context(), id)
	if err != nil {
		shared.WriteError(w, r, err)
		return
	}
	api.Success(w, d, requestctx.GetRequestID(r.Context()))
}

func (h *Handler) handleCreateDepartment(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetActor(r.Context())
	var payload departmentRequest
	if !shared.DecodeValid(w, r, &payload) {
		return
	}
	created, err := h.Departments.Create(r.Context(), actor, org.Department{Name: payload.Name, Description: payload.Description})
	if err != nil {
		shared.WriteError(w, r, err)
		return
	}
	shared.RecordAudit(r.Context(), h.Audit, actor.UserID, "department.create", "department", created.ID, nil, created)
	api.Created(w, created, requestctx.GetRequestID(r.Context()))
}

func (h *Handler) handleUpdateDepartment(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetActor(r.Context())
	id, ok := shared.PathID(w, r, "departmentID")
	if !ok {
		return
	}
	var payload departmentRequest
	if !shared.DecodeValid(w, r, &payload) {
		return
	}
	before, err := h.Departments.Get(r.Context(), id)
	if err != nil {
		shared.WriteError(w, r, err)
		return
	}
	d := org.Department{ID: id, Name: payload.Name, Description: payload.Description, Status: before.Status}
	if payload.Status != "" {
		d.Status = record.Status(payload.Status)
	}
	if err := h.Departments.Update(r.Context(), actor, d); err != nil {
		shared.WriteError(w, r, err)
		return
	}
	d.DateCreated = before.DateCreated
	shared.RecordAudit(r.Context(), h.Audit, actor.UserID, "department.update", "department", id, before, d)
	api.Success(w, d, requestctx.GetRequestID(r.Context()))
}

func (h *Handler) handleDeactivateDepartment(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetActor(r.Context())
	id, ok := shared.PathID(w, r, "departmentID")
	if !ok {
		return
	}
	if err := h.Departments.Deactivate(r.Context(), actor, id); err != nil {
		shared.WriteError(w, r, err)
		return
	}
	shared.RecordAudit(r.Context(), h.Audit, actor.UserID, "department.deactivate", "department", id, nil, nil)
	api.Success(w, map[string]string{"status": string(record.StatusInactive)}, requestctx.GetRequestID(r.Context()))
}

func (h *Handler) handleDeleteDepartment(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetActor(r.Context())
	id, ok := shared.PathID(w, r, "departmentID")
	if !ok {
		return
	}
	if err := h.Departments.Delete(r.Context(), actor, id); err != nil {
		shared.WriteError(w, r, err)
		return
	}
	shared.RecordAudit(r.Context(), h.Audit, actor.UserID, "department.delete", "department", id, nil, nil)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleListPositions(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetActor(r.Context())
	list, err := h.Positions.List(r.Context(), actor, includeInactive(r))
	if err != nil {
		shared.WriteError(w, r, err)
		return
	}
	api.Success(w, list, requestctx.GetRequestID(r.Context()))
}

func (h *Handler) handleGetPosition(w http.ResponseWriter, r *http.Request) {
	id, ok := shared.PathID(w, r, "positionID")
	if !ok {
		return
	}
	p, err := h.Positions.Get(r.Context(), id)
	if err != nil {
		shared.WriteError(w, r, err)
		return
	}
	api.Success(w, p, requestctx.GetRequestID(r.Context()))
}

func (h *Handler) handleCreatePosition(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetActor(r.Context())
	var payload positionRequest
	if !shared.DecodeValid(w, r, &payload) {
		return
	}
	created, err := h.Positions.Create(r.Context(), actor, org.Position{Title: payload.Title, Description: payload.Description})
	if err != nil {
		shared.WriteError(w, r, err)
		return
	}
	shared.RecordAudit(r.Context(), h.Audit, actor.UserID, "position.create", "position", created.ID, nil, created)
	api.Created(w, created, requestctx.GetRequestID(r.Context()))
}

func (h *Handler) handleUpdatePosition(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetActor(r.Context())
	id, ok := shared.PathID(w, r, "positionID")
	if !ok {
		return
	}
	var payload positionRequest
	if !shared.DecodeValid(w, r, &payload) {
		return
	}
	before, err := h.Positions.Get(r.Context(), id)
	if err != nil {
		shared.WriteError(w, r, err)
		return
	}
	p := org.Position{ID: id, Title: payload.Title, Description: payload.Description, Status: before.Status}
	if payload.Status != "" {
		p.Status = record.Status(payload.Status)
	}
	if err := h.Positions.Update(r.Context(), actor, p); err != nil {
		shared.WriteError(w, r, err)
		return
	}
	p.DateCreated = before.DateCreated
	shared.RecordAudit(r.Context(), h.Audit, actor.UserID, "position.update", "position", id, before, p)
	api.Success(w, p, requestctx.GetRequestID(r.Context()))
}

func (h *Handler) handleDeactivatePosition(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetActor(r.Context())
	id, ok := shared.PathID(w, r, "positionID")
	if !ok {
		return
	}
	if err := h.Positions.Deactivate(r.Context(), actor, id); err != nil {
		shared.WriteError(w, r, err)
		return
	}
	shared.RecordAudit(r.Context(), h.Audit, actor.UserID, "position.deactivate", "position", id, nil, nil)
	api.Success(w, map[string]string{"status": string(record.StatusInactive)}, requestctx.GetRequestID(r.Context()))
}

func (h *Handler) handleDeletePosition(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetActor(r.Context())
	id, ok := shared.PathID(w, r, "positionID")
	if !ok {
		return
	}
	if err := h.Positions.Delete(r.Context(), actor, id); err != nil {
		shared.WriteError(w, r, err)
		return
	}
	shared.RecordAudit(r.Context(), h.Audit, actor.UserID, "position.delete", "position", id, nil, nil)
	w.WriteHeader(http.StatusNoContent)
}
