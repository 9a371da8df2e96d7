package recruitmenthandler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ems/internal/domain/auth"
	"ems/internal/domain/employee"
	"ems/internal/domain/recruitment"
	"ems/internal/platform/blob"
	"ems/internal/transport/http/middleware"
)

type stubService struct {
	submitted  recruitment.Application
	resume     []byte
	resumeName string
	terms      recruitment.HireTerms
	hireCalls  int
	status     recruitment.Status
	err        error
}

func (s *stubService) Submit(ctx context.Context, app recruitment.Application, resume *blob.Upload) (recruitment.Application, error) {
	if s.err != nil {
		return recruitment.Application{}, s.err
	}
	if resume != nil {
		s.resumeName = resume.FileName
		s.resume, _ = io.ReadAll(resume.Body)
	}
	app.ID = "3a9c8b7d-6e5f-4a3b-9c2d-1e0f9a8b7c04"
	app.Status = recruitment.StatusPending
	app.DateApplied = time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)
	s.submitted = app
	return app, nil
}

func (s *stubService) UpdateStatus(ctx context.Context, actor auth.Actor, id string, status recruitment.Status, notes string) (recruitment.Application, error) {
	if s.err != nil {
		return recruitment.Application{}, s.err
	}
	s.status = status
	return recruitment.Application{ID: id, Status: status, HRNotes: notes}, nil
}

func (s *stubService) Hire(ctx context.Context, actor auth.Actor, id string, terms recruitment.HireTerms, picture *blob.Upload) (recruitment.Application, employee.Employee, error) {
	s.hireCalls++
	if s.err != nil {
		return recruitment.Application{}, employee.Employee{}, s.err
	}
	s.terms = terms
	return recruitment.Application{ID: id, Status: recruitment.StatusHired, HiredEmployeeID: "e-9"},
		employee.Employee{ID: "e-9", EmployeeNumber: "EMP-00009"}, nil
}

func (s *stubService) Get(ctx context.Context, actor auth.Actor, id string) (recruitment.Application, error) {
	return recruitment.Application{ID: id}, s.err
}

func (s *stubService) ListAll(ctx context.Context, actor auth.Actor) ([]recruitment.Application, error) {
	return []recruitment.Application{
		{ID: "a", Status: recruitment.StatusPending},
		{ID: "b", Status: recruitment.StatusRejected},
	}, s.err
}

func (s *stubService) ListPending(ctx context.Context, actor auth.Actor) ([]recruitment.Application, error) {
	return nil, s.err
}

func (s *stubService) Delete(ctx context.Context, actor auth.Actor, id string) error {
	return s.err
}

var (
	hr    = auth.Actor{UserID: "u-hr", Role: auth.RoleHR}
	staff = auth.Actor{UserID: "u-1", Role: auth.RoleEmployee, EmployeeID: "e-1"}
)

func newRouter(t *testing.T, svc *stubService) http.Handler {
	t.Helper()
	perms, err := auth.NewAuthorizer()
	require.NoError(t, err)
	r := chi.NewRouter()
	NewHandler(svc, perms, nil, 1<<20).RegisterRoutes(r)
	return r
}

func serve(router http.Handler, req *http.Request, actor *auth.Actor) *httptest.ResponseRecorder {
	if actor != nil {
		req = req.WithContext(middleware.WithActor(req.Context(), *actor))
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func jsonRequest(method, path, body string) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func multipartRequest(t *testing.T, path string, data any, field, fileName string, content []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, mw.WriteField("data", string(raw)))
	if field != "" {
		part, err := mw.CreateFormFile(field, fileName)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

var applicant = map[string]any{
	"firstName":           "Ada",
	"lastName":            "Applicant",
	"email":               "ada@example.com",
	"phone":               "555-0100",
	"applyingForPosition": "Engineer",
	"yearsOfExperience":   4,
}

func TestPublicSubmitNeedsNoLogin(t *testing.T) {
	svc := &stubService{}
	raw, _ := json.Marshal(applicant)
	rec := serve(newRouter(t, svc), jsonRequest(http.MethodPost, "/applications", string(raw)), nil)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var env struct {
		Data map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.Equal(t, "3a9c8b7d-6e5f-4a3b-9c2d-1e0f9a8b7c04", env.Data["id"])
	assert.Equal(t, "pending", env.Data["status"])
	assert.NotContains(t, env.Data, "email")
	require.NotNil(t, svc.submitted.YearsOfExperience)
	assert.Equal(t, 4, *svc.submitted.YearsOfExperience)
}

func TestSubmitValidation(t *testing.T) {
	cases := map[string]string{
		"missing phone":       `{"firstName":"A","lastName":"B","email":"a@example.com","applyingForPosition":"X"}`,
		"bad email":           `{"firstName":"A","lastName":"B","email":"nope","phone":"1","applyingForPosition":"X"}`,
		"negative experience": `{"firstName":"A","lastName":"B","email":"a@example.com","phone":"1","applyingForPosition":"X","yearsOfExperience":-1}`,
		"bad birth date":      `{"firstName":"A","lastName":"B","email":"a@example.com","phone":"1","applyingForPosition":"X","dateOfBirth":"yesterday"}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			svc := &stubService{}
			rec := serve(newRouter(t, svc), jsonRequest(http.MethodPost, "/applications", body), nil)
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
			assert.Empty(t, svc.submitted.ID)
		})
	}
}

func TestSubmitWithResume(t *testing.T) {
	svc := &stubService{}
	req := multipartRequest(t, "/applications", applicant, "resume", "cv.pdf", []byte("%PDF resume"))
	rec := serve(newRouter(t, svc), req, nil)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "cv.pdf", svc.resumeName)
	assert.Equal(t, "%PDF resume", string(svc.resume))
}

func TestSubmitRejectsResumeType(t *testing.T) {
	svc := &stubService{}
	req := multipartRequest(t, "/applications", applicant, "resume", "cv.exe", []byte("MZ"))
	rec := serve(newRouter(t, svc), req, nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, svc.submitted.ID)
}

func TestListingApplicationsIsHROnly(t *testing.T) {
	router := newRouter(t, &stubService{})

	rec := serve(router, httptest.NewRequest(http.MethodGet, "/applications", nil), nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = serve(router, httptest.NewRequest(http.MethodGet, "/applications", nil), &staff)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = serve(router, httptest.NewRequest(http.MethodGet, "/applications?status=rejected", nil), &hr)
	require.Equal(t, http.StatusOK, rec.Code)
	var env struct {
		Data []recruitment.Application `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	require.Len(t, env.Data, 1)
	assert.Equal(t, "b", env.Data[0].ID)
}

func TestHire(t *testing.T) {
	svc := &stubService{}
	rec := serve(newRouter(t, svc), jsonRequest(http.MethodPost, "/applications/3a9c8b7d-6e5f-4a3b-9c2d-1e0f9a8b7c04/hire",
		`{"password":"Welcome123","departmentId":"6f1c2a3e-0d1a-4c55-9a51-3b2f1d0e7a01","positionId":"9b7e4c21-5f3d-4a8e-b6c2-1d0f2e3a4b02","salary":4200,"dateHired":"2026-10-19"}`), &hr)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "6f1c2a3e-0d1a-4c55-9a51-3b2f1d0e7a01", svc.terms.DepartmentID)
	require.NotNil(t, svc.terms.Salary)
	assert.Equal(t, 4200.0, *svc.terms.Salary)
	assert.Equal(t, 2026, svc.terms.DateHired.Year())

	var env struct {
		Data struct {
			Application recruitment.Application `json:"application"`
			Employee    employee.Employee       `json:"employee"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.Equal(t, recruitment.StatusHired, env.Data.Application.Status)
	assert.Equal(t, "EMP-00009", env.Data.Employee.EmployeeNumber)
}

func TestHireValidationStopsBeforeService(t *testing.T) {
	svc := &stubService{}
	rec := serve(newRouter(t, svc), jsonRequest(http.MethodPost, "/applications/3a9c8b7d-6e5f-4a3b-9c2d-1e0f9a8b7c04/hire",
		`{"departmentId":"6f1c2a3e-0d1a-4c55-9a51-3b2f1d0e7a01","salary":-5}`), &hr)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, svc.hireCalls)
}

func TestHireOfTerminalApplicationConflicts(t *testing.T) {
	svc := &stubService{err: recruitment.ErrInvalidTransition}
	rec := serve(newRouter(t, svc), jsonRequest(http.MethodPost, "/applications/3a9c8b7d-6e5f-4a3b-9c2d-1e0f9a8b7c04/hire",
		`{"password":"Welcome123","departmentId":"6f1c2a3e-0d1a-4c55-9a51-3b2f1d0e7a01","positionId":"9b7e4c21-5f3d-4a8e-b6c2-1d0f2e3a4b02"}`), &hr)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestHireIdentityFailureIsUnprocessable(t *testing.T) {
	svc := &stubService{err: &auth.IdentityError{Reasons: []string{"password too short"}}}
	rec := serve(newRouter(t, svc), jsonRequest(http.MethodPost, "/applications/3a9c8b7d-6e5f-4a3b-9c2d-1e0f9a8b7c04/hire",
		`{"password":"x","departmentId":"6f1c2a3e-0d1a-4c55-9a51-3b2f1d0e7a01","positionId":"9b7e4c21-5f3d-4a8e-b6c2-1d0f2e3a4b02"}`), &hr)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestUpdateStatus(t *testing.T) {
	svc := &stubService{}
	rec := serve(newRouter(t, svc), jsonRequest(http.MethodPut, "/applications/3a9c8b7d-6e5f-4a3b-9c2d-1e0f9a8b7c04/status",
		`{"status":"under_review","hrNotes":"strong CV"}`), &hr)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, recruitment.StatusUnderReview, svc.status)
}
