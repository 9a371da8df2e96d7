package employee

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"ems/internal/domain/auth"
	"ems/internal/domain/record"
	"ems/internal/platform/blob"
)

const numberAttempts = 3

type StoreAPI interface {
	NextNumber(ctx context.Context) (int64, error)
	Create(ctx context.Context, emp Employee) (Employee, error)
	Update(ctx context.Context, emp Employee) error
	UpdateContact(ctx context.Context, id, phone, address string) error
	SetStatus(ctx context.Context, id string, status record.Status) error
	ReplaceProfilePicture(ctx context.Context, id, path string) (string, error)
	Get(ctx context.Context, id string) (Employee, error)
	GetByUserID(ctx context.Context, userID string) (Employee, error)
	Search(ctx context.Context, term string) ([]Employee, error)
	CountActive(ctx context.Context) (int, error)
	Recent(ctx context.Context, limit int) ([]Employee, error)
}

// IdentityCreator creates the login that belongs to a new employee.
type IdentityCreator interface {
	CreateIdentity(ctx context.Context, email, password, role string) (string, error)
}

type TxRunner interface {
	WithinReadWrite(ctx context.Context, fn func(context.Context) error) error
}

type Service struct {
	Store    StoreAPI
	Blobs    blob.Store
	Identity IdentityCreator
	Tx       TxRunner
	now      func() time.Time
}

func NewService(store StoreAPI, blobs blob.Store, identity IdentityCreator, tx TxRunner) *Service {
	return &Service{Store: store, Blobs: blobs, Identity: identity, Tx: tx, now: time.Now}
}

func (s *Service) GenerateEmployeeNumber(ctx context.Context) (string, error) {
	n, err := s.Store.NextNumber(ctx)
	if err != nil {
		return "", err
	}
	return FormatEmployeeNumber(n), nil
}

func (s *Service) Create(ctx context.Context, actor auth.Actor, emp Employee) (Employee, error) {
	if !actor.IsHR() {
		return Employee{}, ErrForbidden
	}
	return s.create(ctx, emp)
}

// CreateWithIdentity creates the login and the employee in one transaction.
// An identity failure leaves nothing behind.
func (s *Service) CreateWithIdentity(ctx context.Context, emp Employee, reg Registration) (Employee, error) {
	var created Employee
	err := s.Tx.WithinReadWrite(ctx, func(ctx context.Context) error {
		role := reg.Role
		if role == "" {
			role = auth.RoleEmployee
		}
		email := reg.Email
		if email == "" {
			email = emp.Email
		}
		userID, err := s.Identity.CreateIdentity(ctx, email, reg.Password, role)
		if err != nil {
			return err
		}
		emp.UserID = userID
		created, err = s.create(ctx, emp)
		return err
	})
	if err != nil {
		return Employee{}, err
	}
	return created, nil
}

// Register is the HR flow that onboards an employee with a login and optional picture.
func (s *Service) Register(ctx context.Context, actor auth.Actor, emp Employee, reg Registration, picture *blob.Upload) (Employee, error) {
	if !actor.IsHR() {
		return Employee{}, ErrForbidden
	}
	stored, err := s.storePicture(ctx, emp.FirstName+"_"+emp.LastName, picture)
	if err != nil {
		return Employee{}, err
	}
	emp.ProfilePicturePath = stored

	created, err := s.CreateWithIdentity(ctx, emp, reg)
	if err != nil {
		s.discard(ctx, stored)
		return Employee{}, err
	}
	return created, nil
}

func (s *Service) create(ctx context.Context, emp Employee) (Employee, error) {
	emp.Status = record.StatusActive
	if emp.DateHired.IsZero() {
		emp.DateHired = dateOnly(s.now())
	}
	generated := emp.EmployeeNumber == ""

	for attempt := 1; ; attempt++ {
		if generated {
			number, err := s.GenerateEmployeeNumber(ctx)
			if err != nil {
				return Employee{}, err
			}
			emp.EmployeeNumber = number
		}
		created, err := s.Store.Create(ctx, emp)
		if err == nil {
			return created, nil
		}
		if !generated || !errors.Is(err, ErrDuplicateNumber) || attempt >= numberAttempts {
			return Employee{}, err
		}
		slog.Warn("employee number collision, retrying", "number", emp.EmployeeNumber, "attempt", attempt)
	}
}

func (s *Service) Update(ctx context.Context, actor auth.Actor, emp Employee) error {
	if !actor.IsHR() {
		return ErrForbidden
	}
	if !emp.Status.Valid() {
		emp.Status = record.StatusActive
	}
	return s.Store.Update(ctx, emp)
}

// UpdateContact lets employees change only the phone and address on their own record.
func (s *Service) UpdateContact(ctx context.Context, actor auth.Actor, phone, address string) (Employee, error) {
	if actor.EmployeeID == "" {
		return Employee{}, ErrNotLinked
	}
	if err := s.Store.UpdateContact(ctx, actor.EmployeeID, strings.TrimSpace(phone), strings.TrimSpace(address)); err != nil {
		return Employee{}, err
	}
	return s.Store.Get(ctx, actor.EmployeeID)
}

func (s *Service) SoftDelete(ctx context.Context, actor auth.Actor, id string) error {
	if !actor.IsHR() {
		return ErrForbidden
	}
	return s.Store.SetStatus(ctx, id, record.StatusInactive)
}

func (s *Service) Get(ctx context.Context, id string) (Employee, error) {
	return s.Store.Get(ctx, id)
}

func (s *Service) GetByUserID(ctx context.Context, userID string) (Employee, error) {
	return s.Store.GetByUserID(ctx, userID)
}

// Self resolves the actor's own employee record.
func (s *Service) Self(ctx context.Context, actor auth.Actor) (Employee, error) {
	if actor.EmployeeID != "" {
		return s.Store.Get(ctx, actor.EmployeeID)
	}
	emp, err := s.Store.GetByUserID(ctx, actor.UserID)
	if errors.Is(err, ErrNotFound) {
		return Employee{}, ErrNotLinked
	}
	return emp, err
}

func (s *Service) Search(ctx context.Context, term string) ([]Employee, error) {
	return s.Store.Search(ctx, term)
}

func (s *Service) ListActive(ctx context.Context) ([]Employee, error) {
	return s.Store.Search(ctx, "")
}

func (s *Service) Count(ctx context.Context) (int, error) {
	return s.Store.CountActive(ctx)
}

func (s *Service) Recent(ctx context.Context, limit int) ([]Employee, error) {
	return s.Store.Recent(ctx, limit)
}

// SetProfilePicture stores the upload and removes the previous picture once
// the new path is saved. Only HR may change pictures, including their own.
func (s *Service) SetProfilePicture(ctx context.Context, actor auth.Actor, id string, picture blob.Upload) (Employee, error) {
	if !actor.IsHR() {
		return Employee{}, ErrForbidden
	}
	emp, err := s.Store.Get(ctx, id)
	if err != nil {
		return Employee{}, err
	}
	stored, err := s.storePicture(ctx, emp.EmployeeNumber, &picture)
	if err != nil {
		return Employee{}, err
	}
	previous, err := s.Store.ReplaceProfilePicture(ctx, id, stored)
	if err != nil {
		s.discard(ctx, stored)
		return Employee{}, err
	}
	if previous != "" && previous != stored {
		s.discard(ctx, previous)
	}
	emp.ProfilePicturePath = stored
	return emp, nil
}

func (s *Service) storePicture(ctx context.Context, stem string, picture *blob.Upload) (string, error) {
	if picture == nil || picture.Body == nil {
		return "", nil
	}
	path, err := s.Blobs.Save(ctx, blob.PrefixProfiles, stem+"_"+picture.FileName, picture.Body)
	if err != nil {
		return "", fmt.Errorf("store profile picture: %w", err)
	}
	return path, nil
}

func (s *Service) discard(ctx context.Context, path string) {
	if path == "" {
		return
	}
	if err := s.Blobs.Delete(ctx, path); err != nil {
		slog.Warn("blob delete failed", "path", path, "err", err)
	}
}
