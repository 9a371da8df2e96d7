package authhandler

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
	Login(ctx context.Context, email, password, mfaCode string) (auth.LoginResult, error)
	Logout(ctx context.Context, actor auth.Actor) error
	RequestPasswordReset(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, newPassword string) error
	SetupMFA(ctx context.Context, actor auth.Actor) (auth.MFASetup, error)
	EnableMFA(ctx context.Context, actor auth.Actor, code string) error
	DisableMFA(ctx context.Context, actor auth.Actor, code string) error
}

// Registrar onboards employees together with their login.
type Registrar interface {
	Register(ctx context.Context, actor auth.Actor, emp employee.Employee, reg employee.Registration, picture *blob.Upload) (employee.Employee, error)
	Self(ctx context.Context, actor auth.Actor) (employee.Employee, error)
}

type Handler struct {
	Service        Service
	Employees      Registrar
	Perms          middleware.PermissionChecker
	Audit          shared.AuditRecorder
	MaxUploadBytes int64
}

func NewHandler(service Service, employees Registrar, perms middleware.PermissionChecker, audit shared.AuditRecorder, maxUploadBytes int64) *Handler {
	return &Handler{Service: service, Employees: employees, Perms: perms, Audit: audit, MaxUploadBytes: maxUploadBytes}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/auth", func(r chi.Router) {
		r.Post("/login", h.handleLogin)
		r.Post("/request-reset", h.handleRequestReset)
		r.Post("/reset", h.handleResetPassword)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth)
			r.Post("/logout", h.handleLogout)
			r.With(middleware.RequirePermission(auth.PermUsersRegister, h.Perms)).Post("/register", h.handleRegister)
			r.Post("/mfa/setup", h.handleMFASetup)
			r.Post("/mfa/enable", h.handleMFAEnable)
			r.Post("/mfa/disable", h.handleMFADisable)
		})
	})
	r.With(middleware.RequireAuth).Get("/me", h.handleMe)
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
	MFACode  string `json:"mfaCode"`
}

type resetRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type resetPasswordRequest struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required"`
}

type mfaCodeRequest struct {
	Code string `json:"code" validate:"required,len=6,numeric"`
}

type registerRequest struct {
	shared.EmployeePayload
	Password string `json:"password"`
	Role     string `json:"role"`
}

type meResponse struct {
	User     auth.SessionUser   `json:"user"`
	Employee *employee.Employee `json:"employee,omitempty"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var payload loginRequest
	if err := shared.DecodeJSON(r, &payload); err != nil {
		shared.DecodeFailed(w, r, err)
		return
	}
	v := shared.NewValidator()
	v.Struct(payload)
	if v.Reject(w, requestctx.GetRequestID(r.Context())) {
		return
	}

	result, err := h.Service.Login(r.Context(), payload.Email, payload.Password, strings.TrimSpace(payload.MFACode))
	if err != nil {
		shared.WriteError(w, r, err)
		return
	}
	shared.RecordAudit(r.Context(), h.Audit, result.User.ID, "auth.login", "user", result.User.ID, nil, nil)
	api.Success(w, result, requestctx.GetRequestID(r.Context()))
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetActor(r.Context())
	if err := h.Service.Logout(r.Context(), actor); err != nil {
		shared.WriteError(w, r, err)
		return
	}
	api.Success(w, map[string]string{"status": "logged_out"}, requestctx.GetRequestID(r.Context()))
}

func (h *Handler) handleRequestReset(w http.ResponseWriter, r *http.Request) {
	var payload resetRequest
	if err := shared.DecodeJSON(r, &payload); err != nil {
		shared.DecodeFailed(w, r, err)
		return
	}
	v := shared.NewValidator()
	v.Struct(payload)
	if v.Reject(w, requestctx.GetRequestID(r.Context())) {
		return
	}
	if err := h.Service.RequestPasswordReset(r.Context(), payload.Email); err != nil {
		shared.WriteError(w, r, err)
		return
	}
	api.Success(w, map[string]string{"status": "reset_requested"}, requestctx.GetRequestID(r.Context()))
}

func (h *Handler) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	var payload resetPasswordRequest
	if err := shared.DecodeJSON(r, &payload); err != nil {
		shared.DecodeFailed(w, r, err)
		return
	}
	v := shared.NewValidator()
	v.Struct(payload)
	for _, issue := range auth.PasswordIssues(payload.NewPassword) {
		v.Add("newPassword", issue)
	}
	if v.Reject(w, requestctx.GetRequestID(r.Context())) {
		return
	}
	if err := h.Service.ResetPassword(r.Context(), payload.Token, payload.NewPassword); err != nil {
		shared.WriteError(w, r, err)
		return
	}
	api.Success(w, map[string]string{"status": "password_reset"}, requestctx.GetRequestID(r.Context()))
}

// handleRegister accepts JSON, or multipart with a "data" JSON field and an
// optional "profilePicture" file.
func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetActor(r.Context())
	reqID := requestctx.GetRequestID(r.Context())

	var payload registerRequest
	if err := shared.DecodeRequest(r, &payload); err != nil {
		shared.DecodeFailed(w, r, err)
		return
	}
	v := shared.NewValidator()
	emp := payload.EmployeePayload.Employee(v)
	v.Required("password", payload.Password, "is required")
	role := v.Enum("role", payload.Role, []string{auth.RoleHR, auth.RoleEmployee}, "must be HR or Employee")
	if v.Reject(w, reqID) {
		return
	}

	var picture *blob.Upload
	if shared.IsMultipart(r) {
		upload, cleanup, err := shared.FormFile(r, "profilePicture", h.MaxUploadBytes)
		defer cleanup()
		if err != nil {
			shared.FailValidation(w, reqID, []shared.ValidationIssue{{Field: "profilePicture", Reason: err.Error()}})
			return
		}
		picture = upload
	}

	created, err := h.Employees.Register(r.Context(), actor, emp, employee.Registration{
		Email:    emp.Email,
		Password: payload.Password,
		Role:     role,
	}, picture)
	if err != nil {
		shared.WriteError(w, r, err)
		return
	}
	shared.RecordAudit(r.Context(), h.Audit, actor.UserID, "auth.register", "employee", created.ID, nil, created)
	api.Created(w, created, reqID)
}

func (h *Handler) handleMFASetup(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetActor(r.Context())
	setup, err := h.Service.SetupMFA(r.Context(), actor)
	if err != nil {
		shared.WriteError(w, r, err)
		return
	}
	api.Success(w, setup, requestctx.GetRequestID(r.Context()))
}

func (h *Handler) handleMFAEnable(w http.ResponseWriter, r *http.Request) {
	h.toggleMFA(w, r, true)
}

func (h *Handler) handleMFADisable(w http.ResponseWriter, r *http.Request) {
	h.toggleMFA(w, r, false)
}

func (h *Handler) toggleMFA(w http.ResponseWriter, r *http.Request, enable bool) {
	actor, _ := middleware.GetActor(r.Context())
	var payload mfaCodeRequest
	if err := shared.DecodeJSON(r, &payload); err != nil {
		shared.DecodeFailed(w, r, err)
		return
	}
	v := shared.NewValidator()
	v.Struct(payload)
	if v.Reject(w, requestctx.GetRequestID(r.Context())) {
		return
	}

	toggle, status, action := h.Service.DisableMFA, "disabled", "auth.mfa.disable"
	if enable {
		toggle, status, action = h.Service.EnableMFA, "enabled", "auth.mfa.enable"
	}
	if err := toggle(r.Context(), actor, payload.Code); err != nil {
		shared.WriteError(w, r, err)
		return
	}
	shared.RecordAudit(r.Context(), h.Audit, actor.UserID, action, "user", actor.UserID, nil, nil)
	api.Success(w, map[string]string{"status": status}, requestctx.GetRequestID(r.Context()))
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetActor(r.Context())
	out := meResponse{User: auth.SessionUser{
		ID:         actor.UserID,
		Email:      actor.Email,
		Role:       actor.Role,
		EmployeeID: actor.EmployeeID,
	}}
	if h.Employees != nil {
		if emp, err := h.Employees.Self(r.Context(), actor); err == nil {
			out.Employee = &emp
		}
	}
	api.Success(w, out, requestctx.GetRequestID(r.Context()))
}
