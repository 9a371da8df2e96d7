package recruitmenthandler

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"ems/internal/domain/auth"
	"ems/internal/domain/employee"
	"ems/internal/domain/recruitment"
	"ems/internal/platform/blob"
	"ems/internal/requestctx"
	"ems/internal/transport/http/api"
	"ems/internal/transport/http/middleware"
	"ems/internal/transport/http/shared"
)

type Service interface {
	Submit(ctx context.Context, app recruitment.Application, resume *blob.Upload) (recruitment.Application, error)
	UpdateStatus(ctx context.Context, actor auth.Actor, id string, status recruitment.Status, notes string) (recruitment.Application, error)
	Hire(ctx context.Context, actor auth.Actor, id string, terms recruitment.HireTerms, picture *blob.Upload) (recruitment.Application, employee.Employee, error)
	Get(ctx context.Context, actor auth.Actor, id string) (recruitment.Application, error)
	ListAll(ctx context.Context, actor auth.Actor) ([]recruitment.Application, error)
	ListPending(ctx context.Context, actor auth.Actor) ([]recruitment.Application, error)
	Delete(ctx context.Context, actor auth.Actor, id string) error
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
	r.Route("/applications", func(r chi.Router) {
		r.Post("/", h.handleSubmit)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth)
			r.With(middleware.RequirePermission(auth.PermApplicationsRead, h.Perms)).Get("/", h.handleList)
			r.With(middleware.RequirePermission(auth.PermApplicationsRead, h.Perms)).Get("/pending", h.handleListPending)
			r.With(middleware.RequirePermission(auth.PermApplicationsRead, h.Perms)).Get("/{applicationID}", h.handleGet)
			r.With(middleware.RequirePermission(auth.PermApplicationsWrite, h.Perms)).Put("/{applicationID}/status", h.handleUpdateStatus)
			r.With(middleware.RequirePermission(auth.PermApplicationsWrite, h.Perms)).Post("/{applicationID}/hire", h.handleHire)
			r.With(middleware.RequirePermission(auth.PermApplicationsWrite, h.Perms)).Delete("/{applicationID}", h.handleDelete)
		})
	})
}

type submitRequest struct {
	FirstName           string `json:"firstName" validate:"required,max=100"`
	LastName            string `json:"lastName" validate:"required,max=100"`
	Email               string `json:"email" validate:"required,email,max=254"`
	Phone               string `json:"phone" validate:"required,max=30"`
	Address             string `json:"address" validate:"max=500"`
	DateOfBirth         string `json:"dateOfBirth"`
	ApplyingForPosition string `json:"applyingForPosition" validate:"required,max=100"`
	Education           string `json:"education" validate:"max=500"`
	PreviousCompany     string `json:"previousCompany" validate:"max=200"`
	YearsOfExperience   *int   `json:"yearsOfExperience" validate:"omitempty,gte=0,lte=60"`
	Skills              string `json:"skills" validate:"max=1000"`
	CoverLetter         string `json:"coverLetter" validate:"max=5000"`
}

type statusRequest struct {
	Status  string `json:"status" validate:"required"`
	HRNotes string `json:"hrNotes" validate:"max=2000"`
}

type hireRequest struct {
	Email        string   `json:"email" validate:"omitempty,email"`
	Password     string   `json:"password" validate:"required"`
	Gender       string   `json:"gender" validate:"omitempty,oneof=Male Female Other"`
	DepartmentID string   `json:"departmentId" validate:"required,uuid"`
	PositionID   string   `json:"positionId" validate:"required,uuid"`
	Salary       *float64 `json:"salary" validate:"omitempty,gte=0"`
	DateHired    string   `json:"dateHired"`
}

type hireResponse struct {
	Application recruitment.Application `json:"application"`
	Employee    employee.Employee       `json:"employee"`
}

// handleSubmit is the public careers form. Multipart requests may attach a "resume" file.
func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	reqID := requestctx.GetRequestID(r.Context())
	var payload submitRequest
	if err := shared.DecodeRequest(r, &payload); err != nil {
		shared.DecodeFailed(w, r, err)
		return
	}
	v := shared.NewValidator()
	v.Struct(payload)
	dob := v.OptionalDate("dateOfBirth", payload.DateOfBirth)

	var resume *blob.Upload
	if shared.IsMultipart(r) {
		upload, cleanup, err := shared.FormFile(r, "resume", h.MaxUploadBytes)
		defer cleanup()
		switch {
		case err != nil:
			v.Add("resume", err.Error())
		case upload != nil && !hasExtension(upload.FileName, ".pdf", ".doc", ".docx"):
			v.Add("resume", "must be a pdf, doc or docx file")
		default:
			resume = upload
		}
	}
	if v.Reject(w, reqID) {
		return
	}

	created, err := h.Service.Submit(r.Context(), recruitment.Application{
		FirstName:           payload.FirstName,
		LastName:            payload.LastName,
		Email:               payload.Email,
		Phone:               strings.TrimSpace(payload.Phone),
		Address:             strings.TrimSpace(payload.Address),
		DateOfBirth:         dob,
		ApplyingForPosition: strings.TrimSpace(payload.ApplyingForPosition),
		Education:           strings.TrimSpace(payload.Education),
		PreviousCompany:     strings.TrimSpace(payload.PreviousCompany),
		YearsOfExperience:   payload.YearsOfExperience,
		Skills:              strings.TrimSpace(payload.Skills),
		CoverLetter:         strings.TrimSpace(payload.CoverLetter),
	}, resume)
	if err != nil {
		shared.WriteError(w, r, err)
		return
	}
	shared.RecordAudit(r.Context(), h.Audit, "", "application.submit", "job_application", created.ID, nil, nil)
	api.Created(w, map[string]any{"id": created.ID, "status": created.Status, "dateApplied": created.DateApplied}, reqID)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetActor(r.Context())
	list, err := h.Service.ListAll(r.Context(), actor)
	if err != nil {
		shared.WriteError(w, r, err)
		return
	}
	if status := recruitment.Status(r.URL.Query().Get("status")); status != "" {
		filtered := make([]recruitment.Application, 0, len(list))
		for _, app := range list {
			if app.Status == status {
				filtered = append(filtered, app)
			}
		}
		list = filtered
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

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetActor(r.Context())
	id, ok := shared.PathID(w, r, "applicationID")
	if !ok {
		return
	}
	app, err := h.Service.Get(r.Context(), actor, id)
	if err != nil {
		shared.WriteError(w, r, err)
		return
	}
	api.Success(w, app, requestctx.GetRequestID(r.Context()))
}

func (h *Handler) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetActor(r.Context())
	id, ok := shared.PathID(w, r, "applicationID")
	if !ok {
		return
	}
	var payload statusRequest
	if !shared.DecodeValid(w, r, &payload) {
		return
	}
	updated, err := h.Service.UpdateStatus(r.Context(), actor, id, recruitment.Status(strings.TrimSpace(payload.Status)), payload.HRNotes)
	if err != nil {
		shared.WriteError(w, r, err)
		return
	}
	shared.RecordAudit(r.Context(), h.Audit, actor.UserID, "application.status", "job_application", id, nil, updated)
	api.Success(w, updated, requestctx.GetRequestID(r.Context()))
}

// handleHire accepts JSON, or multipart with a "data" JSON field and an
// optional "profilePicture" file.
func (h *Handler) handleHire(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetActor(r.Context())
	id, ok := shared.PathID(w, r, "applicationID")
	if !ok {
		return
	}
	reqID := requestctx.GetRequestID(r.Context())

	var payload hireRequest
	if err := shared.DecodeRequest(r, &payload); err != nil {
		shared.DecodeFailed(w, r, err)
		return
	}
	v := shared.NewValidator()
	v.Struct(payload)
	terms := recruitment.HireTerms{
		Email:        strings.TrimSpace(payload.Email),
		Password:     payload.Password,
		Gender:       payload.Gender,
		DepartmentID: strings.TrimSpace(payload.DepartmentID),
		PositionID:   strings.TrimSpace(payload.PositionID),
		Salary:       payload.Salary,
	}
	if hired := v.OptionalDate("dateHired", payload.DateHired); hired != nil {
		terms.DateHired = *hired
	}

	var picture *blob.Upload
	if shared.IsMultipart(r) {
		upload, cleanup, err := shared.FormFile(r, "profilePicture", h.MaxUploadBytes)
		defer cleanup()
		switch {
		case err != nil:
			v.Add("profilePicture", err.Error())
		case upload != nil && !hasExtension(upload.FileName, ".jpg", ".jpeg", ".png", ".gif"):
			v.Add("profilePicture", "must be a jpg, png or gif image")
		default:
			picture = upload
		}
	}
	if v.Reject(w, reqID) {
		return
	}

	app, emp, err := h.Service.Hire(r.Context(), actor, id, terms, picture)
	if err != nil {
		shared.WriteError(w, r, err)
		return
	}
	shared.RecordAudit(r.Context(), h.Audit, actor.UserID, "application.hire", "job_application", id, nil, hireResponse{Application: app, Employee: emp})
	api.Created(w, hireResponse{Application: app, Employee: emp}, reqID)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetActor(r.Context())
	id, ok := shared.PathID(w, r, "applicationID")
	if !ok {
		return
	}
	if err := h.Service.Delete(r.Context(), actor, id); err != nil {
		shared.WriteError(w, r, err)
		return
	}
	shared.RecordAudit(r.Context(), h.Audit, actor.UserID, "application.delete", "job_application", id, nil, nil)
	w.WriteHeader(http.StatusNoContent)
}

func hasExtension(name string, exts ...string) bool {
	lower := strings.ToLower(name)
	for _, ext := range exts {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}
