package recruitment

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ems/internal/domain/auth"
	"ems/internal/domain/employee"
	"ems/internal/platform/blob"
)

var (
	hr    = auth.Actor{UserID: "u-hr", Role: auth.RoleHR}
	staff = auth.Actor{UserID: "u-staff", Role: auth.RoleEmployee, EmployeeID: "emp-9"}
)

type fakeStore struct {
	apps   map[string]Application
	locked []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{apps: map[string]Application{}}
}

func (f *fakeStore) Create(ctx context.Context, app Application) (Application, error) {
	app.ID = fmt.Sprintf("app-%d", len(f.apps)+1)
	f.apps[app.ID] = app
	return app, nil
}

func (f *fakeStore) Get(ctx context.Context, id string) (Application, error) {
	app, ok := f.apps[id]
	if !ok {
		return Application{}, ErrNotFound
	}
	return app, nil
}

func (f *fakeStore) GetForUpdate(ctx context.Context, id string) (Application, error) {
	f.locked = append(f.locked, id)
	return f.Get(ctx, id)
}

func (f *fakeStore) List(ctx context.Context, status Status, ascending bool) ([]Application, error) {
	out := []Application{}
	for _, app := range f.apps {
		if status == "" || app.Status == status {
			out = append(out, app)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if ascending {
			return out[i].DateApplied.Before(out[j].DateApplied)
		}
		return out[i].DateApplied.After(out[j].DateApplied)
	})
	return out, nil
}

func (f *fakeStore) SetStatus(ctx context.Context, id string, status Status, notes string, at time.Time) error {
	app, ok := f.apps[id]
	if !ok {
		return ErrNotFound
	}
	app.Status = status
	app.HRNotes = notes
	app.DateReviewed = &at
	f.apps[id] = app
	return nil
}

func (f *fakeStore) MarkHired(ctx context.Context, id, employeeID string, at time.Time) error {
	app, ok := f.apps[id]
	if !ok {
		return ErrNotFound
	}
	app.Status = StatusHired
	app.HiredEmployeeID = employeeID
	app.DateReviewed = &at
	f.apps[id] = app
	return nil
}

func (f *fakeStore) Delete(ctx context.Context, id string) (string, error) {
	app, ok := f.apps[id]
	if !ok {
		return "", ErrNotFound
	}
	delete(f.apps, id)
	return app.ResumeFilePath, nil
}

func (f *fakeStore) CountPending(ctx context.Context) (int, error) {
	total := 0
	for _, app := range f.apps {
		if app.Status == StatusPending {
			total++
		}
	}
	return total, nil
}

type fakeEmployees struct {
	fail    error
	created []employee.Employee
	regs    []employee.Registration
}

func (f *fakeEmployees) CreateWithIdentity(ctx context.Context, emp employee.Employee, reg employee.Registration) (employee.Employee, error) {
	if f.fail != nil {
		return employee.Employee{}, f.fail
	}
	emp.ID = fmt.Sprintf("emp-%d", len(f.created)+1)
	emp.EmployeeNumber = employee.FormatEmployeeNumber(int64(len(f.created) + 1))
	f.created = append(f.created, emp)
	f.regs = append(f.regs, reg)
	return emp, nil
}

type passTx struct {
	calls int
}

func (p *passTx) WithinReadWrite(ctx context.Context, fn func(context.Context) error) error {
	p.calls++
	return fn(ctx)
}

var fixedNow = time.Date(2025, 5, 2, 14, 0, 0, 0, time.UTC)

type fixture struct {
	svc       *Service
	store     *fakeStore
	employees *fakeEmployees
	blobs     *blob.MemoryStore
	tx        *passTx
}

func newFixture() fixture {
	f := fixture{
		store:     newFakeStore(),
		employees: &fakeEmployees{},
		blobs:     blob.NewMemory(),
		tx:        &passTx{},
	}
	f.svc = NewService(f.store, f.employees, f.blobs, f.tx)
	f.svc.now = func() time.Time { return fixedNow }
	return f
}

func applicant() Application {
	return Application{
		FirstName:           "Grace",
		LastName:            "Hopper",
		Email:               "grace@example.com",
		Phone:               "555-0100",
		ApplyingForPosition: "Engineer",
		CoverLetter:         "Hello",
		Status:              StatusHired,
	}
}

func TestSubmitForcesPending(t *testing.T) {
	t.Parallel()
	f := newFixture()

	app, err := f.svc.Submit(context.Background(), applicant(), &blob.Upload{FileName: "cv.pdf", Body: strings.NewReader("%PDF")})
	require.NoError(t, err)
	assert.Equal(t, StatusPending, app.Status)
	assert.Equal(t, fixedNow, app.DateApplied)
	assert.True(t, strings.HasPrefix(app.ResumeFilePath, "/uploads/resumes/Grace_Hopper_cv_"))
	assert.True(t, f.blobs.Has(app.ResumeFilePath))
}

func TestUpdateStatusPipeline(t *testing.T) {
	t.Parallel()
	f := newFixture()
	ctx := context.Background()

	app, err := f.svc.Submit(ctx, applicant(), nil)
	require.NoError(t, err)

	_, err = f.svc.UpdateStatus(ctx, hr, app.ID, StatusInterview, "")
	assert.ErrorIs(t, err, ErrInvalidTransition)

	updated, err := f.svc.UpdateStatus(ctx, hr, app.ID, StatusUnderReview, "looks good")
	require.NoError(t, err)
	assert.Equal(t, StatusUnderReview, updated.Status)
	assert.Equal(t, "looks good", updated.HRNotes)
	require.NotNil(t, updated.DateReviewed)

	same, err := f.svc.UpdateStatus(ctx, hr, app.ID, StatusUnderReview, "still reviewing")
	require.NoError(t, err)
	assert.Equal(t, StatusUnderReview, same.Status)
	assert.Equal(t, "still reviewing", same.HRNotes)

	_, err = f.svc.UpdateStatus(ctx, hr, app.ID, StatusHired, "")
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = f.svc.UpdateStatus(ctx, hr, app.ID, StatusRejected, "no")
	require.NoError(t, err)
	_, err = f.svc.UpdateStatus(ctx, hr, app.ID, StatusUnderReview, "")
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = f.svc.UpdateStatus(ctx, staff, app.ID, StatusRejected, "")
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestHireCreatesEmployee(t *testing.T) {
	t.Parallel()
	f := newFixture()
	ctx := context.Background()

	app, err := f.svc.Submit(ctx, applicant(), nil)
	require.NoError(t, err)

	terms := HireTerms{Password: "Secret1", DepartmentID: "d1", PositionID: "p1"}
	hired, emp, err := f.svc.Hire(ctx, hr, app.ID, terms, &blob.Upload{FileName: "me.png", Body: strings.NewReader("png")})
	require.NoError(t, err)

	assert.Equal(t, StatusHired, hired.Status)
	assert.Equal(t, emp.ID, hired.HiredEmployeeID)
	require.NotNil(t, hired.DateReviewed)
	assert.Equal(t, "EMP-0001", emp.EmployeeNumber)
	assert.Equal(t, "Grace", emp.FirstName)
	assert.True(t, f.blobs.Has(emp.ProfilePicturePath))
	assert.Equal(t, auth.RoleEmployee, f.employees.regs[0].Role)
	assert.Equal(t, "grace@example.com", f.employees.regs[0].Email)
	assert.Equal(t, StatusHired, f.store.apps[app.ID].Status)
	assert.Equal(t, []string{app.ID}, f.store.locked)
	assert.Equal(t, 1, f.tx.calls)

	_, _, err = f.svc.Hire(ctx, hr, app.ID, terms, nil)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestHireIdentityFailureLeavesNothing(t *testing.T) {
	t.Parallel()
	f := newFixture()
	ctx := context.Background()

	app, err := f.svc.Submit(ctx, applicant(), nil)
	require.NoError(t, err)

	f.employees.fail = &auth.IdentityError{Reasons: []string{"Password must contain an uppercase letter"}}
	_, _, err = f.svc.Hire(ctx, hr, app.ID, HireTerms{Password: "weak"}, &blob.Upload{FileName: "me.png", Body: strings.NewReader("png")})

	var identityErr *auth.IdentityError
	require.ErrorAs(t, err, &identityErr)
	assert.Empty(t, f.employees.created)
	assert.Equal(t, StatusPending, f.store.apps[app.ID].Status)
	assert.Zero(t, f.blobs.Len())
}

func TestDeleteRemovesResume(t *testing.T) {
	t.Parallel()
	f := newFixture()
	ctx := context.Background()

	app, err := f.svc.Submit(ctx, applicant(), &blob.Upload{FileName: "cv.pdf", Body: strings.NewReader("%PDF")})
	require.NoError(t, err)

	require.NoError(t, f.svc.Delete(ctx, hr, app.ID))
	assert.False(t, f.blobs.Has(app.ResumeFilePath))
	assert.ErrorIs(t, f.svc.Delete(ctx, hr, app.ID), ErrNotFound)
}

func TestListPendingOldestFirst(t *testing.T) {
	t.Parallel()
	f := newFixture()
	ctx := context.Background()

	first, err := f.svc.Submit(ctx, applicant(), nil)
	require.NoError(t, err)
	f.svc.now = func() time.Time { return fixedNow.Add(time.Minute) }
	second, err := f.svc.Submit(ctx, applicant(), nil)
	require.NoError(t, err)

	pending, err := f.svc.ListPending(ctx, hr)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, first.ID, pending[0].ID)

	all, err := f.svc.ListAll(ctx, hr)
	require.NoError(t, err)
	assert.Equal(t, second.ID, all[0].ID)

	count, err := f.svc.PendingCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestStatusMachine(t *testing.T) {
	t.Parallel()

	assert.True(t, StatusPending.CanTransition(StatusRejected))
	assert.True(t, StatusInterview.CanTransition(StatusRejected))
	assert.False(t, StatusPending.CanTransition(StatusShortlisted))
	assert.False(t, StatusHired.CanTransition(StatusHired))
	assert.False(t, StatusRejected.CanHire())
	assert.True(t, StatusShortlisted.CanHire())
}
