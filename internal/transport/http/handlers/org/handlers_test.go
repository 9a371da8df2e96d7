package orghandler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ems/internal/domain/auth"
	"ems/internal/domain/org"
	"ems/internal/domain/record"
	"ems/internal/transport/http/middleware"
)

const (
	dept1 = "6f1c2a3e-0d1a-4c55-9a51-3b2f1d0e7a01"
	dept2 = "6f1c2a3e-0d1a-4c55-9a51-3b2f1d0e7a02"
	dept3 = "6f1c2a3e-0d1a-4c55-9a51-3b2f1d0e7a03"
	pos1  = "9b7e4c21-5f3d-4a8e-b6c2-1d0f2e3a4b01"
	pos2  = "9b7e4c21-5f3d-4a8e-b6c2-1d0f2e3a4b02"
)

// memStore keeps departments and positions in maps. IDs listed in inUse
// behave as if employees still reference them.
type memStore struct {
	departments map[string]org.Department
	positions   map[string]org.Position
	inUse       map[string]bool
}

func newMemStore() *memStore {
	return &memStore{
		departments: map[string]org.Department{
			dept1: {ID: dept1, Name: "Engineering", Status: record.StatusActive},
			dept2: {ID: dept2, Name: "Archive", Status: record.StatusInactive},
		},
		positions: map[string]org.Position{
			pos1: {ID: pos1, Title: "Developer", Status: record.StatusActive},
		},
		inUse: map[string]bool{dept1: true, pos1: true},
	}
}

func (m *memStore) ListDepartments(ctx context.Context, includeInactive bool) ([]org.Department, error) {
	var out []org.Department
	for _, id := range []string{dept1, dept2, dept3} {
		d, ok := m.departments[id]
		if ok && (includeInactive || d.Status == record.StatusActive) {
			out = append(out, d)
		}
	}
	return out, nil
}

func (m *memStore) GetDepartment(ctx context.Context, id string) (org.Department, error) {
	d, ok := m.departments[id]
	if !ok {
		return org.Department{}, org.ErrDepartmentNotFound
	}
	return d, nil
}

func (m *memStore) CreateDepartment(ctx context.Context, d org.Department) (org.Department, error) {
	for _, existing := range m.departments {
		if strings.EqualFold(existing.Name, d.Name) {
			return org.Department{}, org.ErrDuplicateName
		}
	}
	d.ID = dept3
	m.departments[d.ID] = d
	return d, nil
}

func (m *memStore) UpdateDepartment(ctx context.Context, d org.Department) error {
	if _, ok := m.departments[d.ID]; !ok {
		return org.ErrDepartmentNotFound
	}
	m.departments[d.ID] = d
	return nil
}

func (m *memStore) SetDepartmentStatus(ctx context.Context, id string, status record.Status) error {
	d, ok := m.departments[id]
	if !ok {
		return org.ErrDepartmentNotFound
	}
	d.Status = status
	m.departments[id] = d
	return nil
}

func (m *memStore) DeleteDepartment(ctx context.Context, id string) error {
	if _, ok := m.departments[id]; !ok {
		return org.ErrDepartmentNotFound
	}
	if m.inUse[id] {
		return org.ErrInUse
	}
	delete(m.departments, id)
	return nil
}

func (m *memStore) CountDepartments(ctx context.Context) (int, error) {
	return len(m.departments), nil
}

func (m *memStore) ListPositions(ctx context.Context, includeInactive bool) ([]org.Position, error) {
	var out []org.Position
	for _, p := range m.positions {
		if includeInactive || p.Status == record.StatusActive {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memStore) GetPosition(ctx context.Context, id string) (org.Position, error) {
	p, ok := m.positions[id]
	if !ok {
		return org.Position{}, org.ErrPositionNotFound
	}
	return p, nil
}

func (m *memStore) CreatePosition(ctx context.Context, p org.Position) (org.Position, error) {
	p.ID = pos2
	m.positions[p.ID] = p
	return p, nil
}

func (m *memStore) UpdatePosition(ctx context.Context, p org.Position) error {
	if _, ok := m.positions[p.ID]; !ok {
		return org.ErrPositionNotFound
	}
	m.positions[p.ID] = p
	return nil
}

func (m *memStore) SetPositionStatus(ctx context.Context, id string, status record.Status) error {
	p, ok := m.positions[id]
	if !ok {
		return org.ErrPositionNotFound
	}
	p.Status = status
	m.positions[id] = p
	return nil
}

func (m *memStore) DeletePosition(ctx context.Context, id string) error {
	if _, ok := m.positions[id]; !ok {
		return org.ErrPositionNotFound
	}
	if m.inUse[id] {
		return org.ErrInUse
	}
	delete(m.positions, id)
	return nil
}

func (m *memStore) CountPositions(ctx context.Context) (int, error) {
	return len(m.positions), nil
}

var (
	hr    = auth.Actor{UserID: "u-hr", Role: auth.RoleHR}
	staff = auth.Actor{UserID: "u-1", Role: auth.RoleEmployee, EmployeeID: "e-1"}
)

func newRouter(t *testing.T, store *memStore) http.Handler {
	t.Helper()
	perms, err := auth.NewAuthorizer()
	require.NoError(t, err)
	r := chi.NewRouter()
	NewHandler(org.NewDepartmentService(store), org.NewPositionService(store), perms, nil).RegisterRoutes(r)
	return r
}

func serve(router http.Handler, method, path string, actor *auth.Actor, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if actor != nil {
		req = req.WithContext(middleware.WithActor(req.Context(), *actor))
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func departmentNames(t *testing.T, rec *httptest.ResponseRecorder) []string {
	t.Helper()
	var env struct {
		Data []org.Department `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	names := make([]string, 0, len(env.Data))
	for _, d := range env.Data {
		names = append(names, d.Name)
	}
	return names
}

func TestOrgReadsAndHROnlyWrites(t *testing.T) {
	store := newMemStore()
	router := newRouter(t, store)

	rec := serve(router, http.MethodGet, "/departments?includeInactive=true", &staff, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"Engineering"}, departmentNames(t, rec), "employees only see active departments")

	rec = serve(router, http.MethodGet, "/departments?includeInactive=true", &hr, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"Engineering", "Archive"}, departmentNames(t, rec))

	rec = serve(router, http.MethodPost, "/departments", &staff, `{"name":"Finance"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = serve(router, http.MethodPost, "/departments", &hr, `{"name":"  Finance "}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "Finance", store.departments[dept3].Name)
	assert.Equal(t, record.StatusActive, store.departments[dept3].Status)

	assert.Equal(t, http.StatusUnauthorized, serve(router, http.MethodGet, "/positions", nil, "").Code)
}

func TestCreateDepartmentValidationAndConflict(t *testing.T) {
	router := newRouter(t, newMemStore())

	assert.Equal(t, http.StatusBadRequest, serve(router, http.MethodPost, "/departments", &hr, `{"name":""}`).Code)
	assert.Equal(t, http.StatusBadRequest, serve(router, http.MethodPost, "/departments", &hr, `{"name":"Ops","status":"gone"}`).Code)
	assert.Equal(t, http.StatusConflict, serve(router, http.MethodPost, "/departments", &hr, `{"name":"engineering"}`).Code)
}

func TestUpdateKeepsStatusWhenOmitted(t *testing.T) {
	store := newMemStore()
	rec := serve(newRouter(t, store), http.MethodPut, "/departments/"+dept2, &hr, `{"name":"Records"}`)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Records", store.departments[dept2].Name)
	assert.Equal(t, record.StatusInactive, store.departments[dept2].Status)
}

func TestDeleteInUseConflicts(t *testing.T) {
	store := newMemStore()
	router := newRouter(t, store)

	assert.Equal(t, http.StatusConflict, serve(router, http.MethodDelete, "/departments/"+dept1, &hr, "").Code)
	assert.Equal(t, http.StatusConflict, serve(router, http.MethodDelete, "/positions/"+pos1, &hr, "").Code)

	rec := serve(router, http.MethodPost, "/departments/"+dept1+"/deactivate", &hr, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, record.StatusInactive, store.departments[dept1].Status)

	assert.Equal(t, http.StatusNoContent, serve(router, http.MethodDelete, "/departments/"+dept2, &hr, "").Code)
	assert.NotContains(t, store.departments, dept2)
	assert.Equal(t, http.StatusNotFound, serve(router, http.MethodDelete, "/departments/"+dept2, &hr, "").Code)
}
