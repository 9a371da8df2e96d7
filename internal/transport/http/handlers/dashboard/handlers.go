package dashboardhandler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"ems/internal/domain/auth"
	"ems/internal/domain/dashboard"
	"ems/internal/requestctx"
	"ems/internal/transport/http/api"
	"ems/internal/transport/http/middleware"
	"ems/internal/transport/http/shared"
)

type Handler struct {
	Service *dashboard.Service
	Perms   middleware.PermissionChecker
}

func NewHandler(service *dashboard.Service, perms middleware.PermissionChecker) *Handler {
	return &Handler{Service: service, Perms: perms}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/dashboard", func(r chi.Router) {
		r.Use(middleware.RequireAuth)
		r.With(middleware.RequireAnyPermission(h.Perms, auth.PermDashboardHR, auth.PermDashboardSelf)).Get("/", h.handleDashboard)
		r.With(middleware.RequirePermission(auth.PermDashboardHR, h.Perms)).Get("/hr", h.handleHR)
		r.With(middleware.RequirePermission(auth.PermDashboardSelf, h.Perms)).Get("/employee", h.handleEmployee)
	})
}

// handleDashboard picks the summary that matches the caller's role.
func (h *Handler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetActor(r.Context())
	if actor.IsHR() {
		h.handleHR(w, r)
		return
	}
	h.handleEmployee(w, r)
}

func (h *Handler) handleHR(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetActor(r.Context())
	summary, err := h.Service.HR(r.Context(), actor)
	if err != nil {
		shared.WriteError(w, r, err)
		return
	}
	api.Success(w, summary, requestctx.GetRequestID(r.Context()))
}

func (h *Handler) handleEmployee(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetActor(r.Context())
	summary, err := h.Service.Employee(r.Context(), actor)
	if err != nil {
		shared.WriteError(w, r, err)
		return
	}
	api.Success(w, summary, requestctx.GetRequestID(r.Context()))
}
