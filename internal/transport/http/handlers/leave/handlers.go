package leavehandler

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"ems/internal/domain/auth"
	"ems/internal/domain/leave"
	"ems/internal/requestctx"
	"ems/internal/transport/http/api"
	"ems/internal/transport/http/middleware"
	"ems/internal/transport/http/shared"
)

type Service interface {
	File(ctx context.Context, actor auth.Actor, req leave.Request) (leave.Request, error)
	Approve(ctx context.Context, actor auth.Actor, id, remarks string) (leave.Request, error)
	Reject(ctx context.Context, actor auth.Actor, id, remarks string) (leave.Request, error)
	Cancel(ctx context.Context, actor auth.Actor, id string) (leave.Request, error)
	Get(ctx context.Context, actor auth.Actor, id string) (leave.Request, error)
	ListAll(ctx context.Context, actor auth.Actor) ([]leave.Request, error)
	ListByEmployee(ctx context.Context, employeeID string) ([]leave.Request, error)
	ListMine(ctx context.Context, actor auth.Actor) ([]leave.Request, error)
	ListPending(ctx context.Context, actor auth.Actor) ([]leave.Request, error)
	Slip(ctx context.Context, actor auth.Actor, id string) ([]byte, error)
}

type Handler struct {
	Service Service
	Perms   middleware.PermissionChecker
	Audit   shared.AuditRecorder
}

func NewHandler(service Service, perms middleware.PermissionChecker, audit shared.AuditRecorder) *Handler {
	return &Handler{Service: service, Perms: perms, Audit: audit}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/leave", func(r chi.Router) {
		r.Use(middleware.RequireAuth)
		r.With(middleware.RequirePermission(auth.PermLeaveRead, h.Perms)).Get("/types", h.handleListTypes)
		r.With(middleware.RequirePermission(auth.PermLeaveRead, h.Perms)).Get("/requests", h.handleListRequests)
		r.With(middleware.RequirePermission(auth.PermLeaveRead, h.Perms)).Get("/requests/mine", h.handleListMine)
		r.With(middleware.RequirePermission(auth.PermLeaveApprove, h.Perms)).Get("/requests/pending", h.handleListPending)
		r.With(middleware.RequirePermission(auth.PermLeaveRead, h.Perms)).Get("/requests/{requestID}", h.handleGetRequest)
		r.With(middleware.RequirePermission(auth.PermLeaveRead, h.Perms)).Get("/requests/{requestID}/slip", h.handleSlip)
		r.With(middleware.RequirePermission(auth.PermLeaveWrite, h.Perms)).Post("/requests", h.handleCreateRequest)
		r.With(middleware.RequirePermission(auth.PermLeaveApprove, h.Perms)).Post("/requests/{requestID}/approve", h.handleApproveRequest)
		r.With(middleware.RequirePermission(auth.PermLeaveApprove, h.Perms)).Post("/requests/{requestID}/reject", h.handleRejectRequest)
		r.With(middleware.RequirePermission(auth.PermLeaveWrite, h.Perms)).Post("/requests/{requestID}/cancel", h.handleCancelRequest)
	})
}

type fileRequest struct {
	EmployeeID string `json:"employeeId" validate:"omitempty,uuid"`
	LeaveType  string `json:"leaveType" validate:"required"`
	StartDate  string `json:"startDate" validate:"required"`
	EndDate    string `json:"endDate" validate:"required"`
	Reason     string `json:"reason" validate:"required,max=1000"`
}

type decisionRequest struct {
	Remarks string `json:"remarks" validate:"max=1000"`
}

func (h *Handler) handleListTypes(w http.ResponseWriter, r *http.Request) {
	api.Success(w, leave.Types, requestctx.GetRequestID(r.Context()))
}

// handleListRequests lists every request for HR (optionally one employee's),
// and the caller's own requests for everyone else.
func (h *Handler) handleListRequests(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetActor(r.Context())
	var (
		list []leave.Request
		err  error
	)
	employeeID := strings.TrimSpace(r.URL.Query().Get("employeeId"))
	if employeeID != "" && actor.IsHR() {
		v := shared.NewValidator()
		if err := uuid.Validate(employeeID); err != nil {
			v.Add("employeeId", "must be a valid id")
		}
		if v.Reject(w, requestctx.GetRequestID(r.Context())) {
			return
		}
	}
	switch {
	case actor.IsHR() && employeeID != "":
		list, err = h.Service.ListByEmployee(r.Context(), employeeID)
	case actor.IsHR():
		list, err = h.Service.ListAll(r.Context(), actor)
	default:
		list, err = h.Service.ListMine(r.Context(), actor)
	}
	if err != nil {
		shared.WriteError(w, r, err)
		return
	}
	if status := leave.Status(r.URL.Query().Get("status")); status != "" {
		list = filterStatus(list, status)
	}
	api.Success(w, list, requestctx.GetRequestID(r.Context()))
}

func (h *Handler) handleListMine(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetActor(r.Context())
	list, err := h.Service.ListMine(r.Context(), actor)
	if err != nil {
		shared.WriteError(w, r, err)
		return
	}
	api.Success(w, list, requestctx.GetRequestID(r.Context()))
}

func (h *Handler) handleListPending(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetActor(r.Context())
	list, err := h.Service.ListPending(r.Context(), actor)
	if err != nil {
		shared.WriteError(w, r, err)
		return
	}
	api.Success(w, list, requestctx.GetRequestID(r.Context()))
}

func (h *Handler) handleGetRequest(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetActor(r.Context())
	id, ok := shared.PathID(w, r, "requestID")
	if !ok {
		return
	}
	req, err := h.Service.Get(r.Context(), actor, id)
	if err != nil {
		shared.WriteError(w, r, err)
		return
	}
	api.Success(w, req, requestctx.GetRequestID(r.Context()))
}

func (h *Handler) handleSlip(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetActor(r.Context())
	id, ok := shared.PathID(w, r, "requestID")
	if !ok {
		return
	}
	pdf, err := h.Service.Slip(r.Context(), actor, id)
	if err != nil {
		shared.WriteError(w, r, err)
		return
	}
	api.Attachment(w, "application/pdf", "leave-slip-"+id+".pdf", pdf)
}

func (h *Handler) handleCreateRequest(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetActor(r.Context())
	reqID := requestctx.GetRequestID(r.Context())

	var payload fileRequest
	if err := shared.DecodeJSON(r, &payload); err != nil {
		shared.DecodeFailed(w, r, err)
		return
	}
	v := shared.NewValidator()
	v.Struct(payload)
	leaveType := leave.Type(strings.ToLower(strings.TrimSpace(payload.LeaveType)))
	if payload.LeaveType != "" && !leaveType.Valid() {
		v.Add("leaveType", "must be one of: "+typeNames())
	}
	start, end := v.OptionalDate("startDate", payload.StartDate), v.OptionalDate("endDate", payload.EndDate)
	if start != nil && end != nil {
		v.DateOrder("startDate", *start, "endDate", *end)
	}
	if v.Reject(w, reqID) {
		return
	}

	created, err := h.Service.File(r.Context(), actor, leave.Request{
		EmployeeID: strings.TrimSpace(payload.EmployeeID),
		LeaveType:  leaveType,
		StartDate:  *start,
		EndDate:    *end,
		Reason:     payload.Reason,
	})
	if err != nil {
		shared.WriteError(w, r, err)
		return
	}
	shared.RecordAudit(r.Context(), h.Audit, actor.UserID, "leave.request.create", "leave_request", created.ID, nil, created)
	api.Created(w, created, reqID)
}

func (h *Handler) handleApproveRequest(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, "leave.request.approve", h.Service.Approve)
}

func (h *Handler) handleRejectRequest(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, "leave.request.reject", h.Service.Reject)
}

func (h *Handler) decide(w http.ResponseWriter, r *http.Request, action string, decide func(context.Context, auth.Actor, string, string) (leave.Request, error)) {
	actor, _ := middleware.GetActor(r.Context())
	id, ok := shared.PathID(w, r, "requestID")
	if !ok {
		return
	}

	var payload decisionRequest
	if r.ContentLength != 0 && !shared.DecodeValid(w, r, &payload) {
		return
	}
	decided, err := decide(r.Context(), actor, id, strings.TrimSpace(payload.Remarks))
	if err != nil {
		shared.WriteError(w, r, err)
		return
	}
	shared.RecordAudit(r.Context(), h.Audit, actor.UserID, action, "leave_request", id,
		map[string]string{"status": string(leave.StatusPending)}, decided)
	api.Success(w, decided, requestctx.GetRequestID(r.Context()))
}

func (h *Handler) handleCancelRequest(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetActor(r.Context())
	id, ok := shared.PathID(w, r, "requestID")
	if !ok {
		return
	}
	cancelled, err := h.Service.Cancel(r.Context(), actor, id)
	if err != nil {
		shared.WriteError(w, r, err)
		return
	}
	shared.RecordAudit(r.Context(), h.Audit, actor.UserID, "leave.request.cancel", "leave_request", id, nil, cancelled)
	api.Success(w, cancelled, requestctx.GetRequestID(r.Context()))
}

func filterStatus(list []leave.Request, status leave.Status) []leave.Request {
	out := make([]leave.Request, 0, len(list))
	for _, req := range list {
		if req.Status == status {
			out = append(out, req)
		}
	}
	return out
}

func typeNames() string {
	names := make([]string, 0, len(leave.Types))
	for _, t := range leave.Types {
		names = append(names, string(t))
	}
	return strings.Join(names, ", ")
}
