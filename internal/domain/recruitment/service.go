package recruitment

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"ems/internal/domain/auth"
	"ems/internal/domain/employee"
	"ems/internal/platform/blob"
)

type StoreAPI interface {
	Create(ctx context.Context, app Application) (Application, error)
	Get(ctx context.Context, id string) (Application, error)
	GetForUpdate(ctx context.Context, id string) (Application, error)
	List(ctx context.Context, status Status, ascending bool) ([]Application, error)
	SetStatus(ctx context.Context, id string, status Status, notes string, at time.Time) error
	MarkHired(ctx context.Context, id, employeeID string, at time.Time) error
	Delete(ctx context.Context, id string) (string, error)
	CountPending(ctx context.Context) (int, error)
}

// EmployeeCreator creates an employee and its login inside the caller's transaction.
type EmployeeCreator interface {
	CreateWithIdentity(ctx context.Context, emp employee.Employee, reg employee.Registration) (employee.Employee, error)
}

type TxRunner interface {
	WithinReadWrite(ctx context.Context, fn func(context.Context) error) error
}

type Service struct {
	Store     StoreAPI
	Employees EmployeeCreator
	Blobs     blob.Store
	Tx        TxRunner
	now       func() time.Time
}

func NewService(store StoreAPI, employees EmployeeCreator, blobs blob.Store, tx TxRunner) *Service {
	return &Service{Store: store, Employees: employees, Blobs: blobs, Tx: tx, now: time.Now}
}

// Submit records a new application from the public careers form.
func (s *Service) Submit(ctx context.Context, app Application, resume *blob.Upload) (Application, error) {
	app.ID = ""
	app.FirstName = strings.TrimSpace(app.FirstName)
	app.LastName = strings.TrimSpace(app.LastName)
	app.Email = strings.TrimSpace(app.Email)
	app.Status = StatusPending
	app.DateApplied = s.now().UTC()
	app.DateReviewed = nil
	app.HRNotes = ""
	app.HiredEmployeeID = ""
	app.ResumeFilePath = ""

	if resume != nil && resume.Body != nil {
		path, err := s.Blobs.Save(ctx, blob.PrefixResumes, app.FirstName+"_"+app.LastName+"_"+resume.FileName, resume.Body)
		if err != nil {
			return Application{}, fmt.Errorf("store resume: %w", err)
		}
		app.ResumeFilePath = path
	}

	created, err := s.Store.Create(ctx, app)
	if err != nil {
		s.discard(ctx, app.ResumeFilePath)
		return Application{}, err
	}
	return created, nil
}

// UpdateStatus moves an application along the review pipeline.
func (s *Service) UpdateStatus(ctx context.Context, actor auth.Actor, id string, status Status, notes string) (Application, error) {
	if !actor.IsHR() {
		return Application{}, ErrForbidden
	}
	if !status.Valid() {
		return Application{}, ErrUnknownStatus
	}
	app, err := s.Store.Get(ctx, id)
	if err != nil {
		return Application{}, err
	}
	if !app.Status.CanTransition(status) {
		return Application{}, ErrInvalidTransition
	}
	at := s.now().UTC()
	notes = strings.TrimSpace(notes)
	if err := s.Store.SetStatus(ctx, id, status, notes, at); err != nil {
		return Application{}, err
	}
	app.Status = status
	app.HRNotes = notes
	app.DateReviewed = &at
	return app, nil
}

// Hire converts an applicant into an employee with a login. The employee,
// the login and the application update commit together or not at all.
func (s *Service) Hire(ctx context.Context, actor auth.Actor, id string, terms HireTerms, picture *blob.Upload) (Application, employee.Employee, error) {
	if !actor.IsHR() {
		return Application{}, employee.Employee{}, ErrForbidden
	}
	app, err := s.Store.Get(ctx, id)
	if err != nil {
		return Application{}, employee.Employee{}, err
	}
	if !app.Status.CanHire() {
		return Application{}, employee.Employee{}, ErrInvalidTransition
	}

	var stored string
	if picture != nil && picture.Body != nil {
		stored, err = s.Blobs.Save(ctx, blob.PrefixProfiles, app.FirstName+"_"+app.LastName+"_"+picture.FileName, picture.Body)
		if err != nil {
			return Application{}, employee.Employee{}, fmt.Errorf("store profile picture: %w", err)
		}
	}

	var hired employee.Employee
	at := s.now().UTC()
	err = s.Tx.WithinReadWrite(ctx, func(ctx context.Context) error {
		locked, err := s.Store.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if !locked.Status.CanHire() {
			return ErrInvalidTransition
		}
		app = locked

		email := strings.TrimSpace(terms.Email)
		if email == "" {
			email = app.Email
		}
		hired, err = s.Employees.CreateWithIdentity(ctx, employee.Employee{
			FirstName:          app.FirstName,
			LastName:           app.LastName,
			Gender:             terms.Gender,
			Email:              email,
			Phone:              app.Phone,
			Address:            app.Address,
			DateOfBirth:        app.DateOfBirth,
			DateHired:          terms.DateHired,
			Salary:             terms.Salary,
			DepartmentID:       terms.DepartmentID,
			PositionID:         terms.PositionID,
			ProfilePicturePath: stored,
		}, employee.Registration{Email: email, Password: terms.Password, Role: auth.RoleEmployee})
		if err != nil {
			return err
		}
		return s.Store.MarkHired(ctx, id, hired.ID, at)
	})
	if err != nil {
		s.discard(ctx, stored)
		return Application{}, employee.Employee{}, err
	}

	app.Status = StatusHired
	app.DateReviewed = &at
	app.HiredEmployeeID = hired.ID
	return app, hired, nil
}

func (s *Service) Get(ctx context.Context, actor auth.Actor, id string) (Application, error) {
	if !actor.IsHR() {
		return Application{}, ErrForbidden
	}
	return s.Store.Get(ctx, id)
}

func (s *Service) ListAll(ctx context.Context, actor auth.Actor) ([]Application, error) {
	if !actor.IsHR() {
		return nil, ErrForbidden
	}
	return s.Store.List(ctx, "", false)
}

// ListPending returns unreviewed applications, oldest first.
func (s *Service) ListPending(ctx context.Context, actor auth.Actor) ([]Application, error) {
	if !actor.IsHR() {
		return nil, ErrForbidden
	}
	return s.Store.List(ctx, StatusPending, true)
}

// Delete removes the application and its resume file.
func (s *Service) Delete(ctx context.Context, actor auth.Actor, id string) error {
	if !actor.IsHR() {
		return ErrForbidden
	}
	resume, err := s.Store.Delete(ctx, id)
	if err != nil {
		return err
	}
	s.discard(ctx, resume)
	return nil
}

func (s *Service) PendingCount(ctx context.Context) (int, error) {
	return s.Store.CountPending(ctx)
}

func (s *Service) discard(ctx context.Context, path string) {
	if path == "" {
		return
	}
	if err := s.Blobs.Delete(ctx, path); err != nil {
		slog.Warn("blob delete failed", "path", path, "err", err)
	}
}
