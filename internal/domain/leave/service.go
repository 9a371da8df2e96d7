package leave

import (
	"context"
	"strings"
	"time"

	"ems/internal/domain/auth"
)

type StoreAPI interface {
	Create(ctx context.Context, req Request) (Request, error)
	Get(ctx context.Context, id string) (Request, error)
	List(ctx context.Context, filter ListFilter) ([]Request, error)
	Decide(ctx context.Context, id string, status Status, remarks string, at time.Time) error
	CountPending(ctx context.Context, employeeID string) (int, error)
	EmployeeActive(ctx context.Context, employeeID string) (bool, error)
}

// Notifier is told about approvals and rejections. Delivery is best effort.
type Notifier interface {
	LeaveDecided(ctx context.Context, req Request)
}

type Service struct {
	Store    StoreAPI
	Notifier Notifier
	now      func() time.Time
}

func NewService(store StoreAPI, notifier Notifier) *Service {
	return &Service{Store: store, Notifier: notifier, now: time.Now}
}

// File submits a new request as pending. Employees always file for themselves.
func (s *Service) File(ctx context.Context, actor auth.Actor, req Request) (Request, error) {
	switch {
	case actor.IsHR() && req.EmployeeID != "":
	case actor.EmployeeID != "":
		req.EmployeeID = actor.EmployeeID
	default:
		return Request{}, ErrNotLinked
	}
	if !req.LeaveType.Valid() {
		return Request{}, ErrUnknownType
	}
	days, err := TotalDays(req.StartDate, req.EndDate)
	if err != nil {
		return Request{}, err
	}
	active, err := s.Store.EmployeeActive(ctx, req.EmployeeID)
	if err != nil {
		return Request{}, err
	}
	if !active {
		return Request{}, ErrInactiveEmployee
	}

	req.ID = ""
	req.StartDate = dateOnly(req.StartDate)
	req.EndDate = dateOnly(req.EndDate)
	req.TotalDays = days
	req.Reason = strings.TrimSpace(req.Reason)
	req.Status = StatusPending
	req.Remarks = ""
	req.DateFiled = s.now().UTC()
	req.DateProcessed = nil
	return s.Store.Create(ctx, req)
}

func (s *Service) Approve(ctx context.Context, actor auth.Actor, id, remarks string) (Request, error) {
	return s.decide(ctx, actor, id, StatusApproved, remarks)
}

func (s *Service) Reject(ctx context.Context, actor auth.Actor, id, remarks string) (Request, error) {
	return s.decide(ctx, actor, id, StatusRejected, remarks)
}

func (s *Service) decide(ctx context.Context, actor auth.Actor, id string, to Status, remarks string) (Request, error) {
	if !actor.IsHR() {
		return Request{}, ErrForbidden
	}
	req, err := s.Store.Get(ctx, id)
	if err != nil {
		return Request{}, err
	}
	if err := Transition(req.Status, to); err != nil {
		return Request{}, err
	}
	at := s.now().UTC()
	remarks = strings.TrimSpace(remarks)
	if err := s.Store.Decide(ctx, id, to, remarks, at); err != nil {
		return Request{}, err
	}
	req.Status = to
	req.Remarks = remarks
	req.DateProcessed = &at
	if s.Notifier != nil {
		s.Notifier.LeaveDecided(ctx, req)
	}
	return req, nil
}

// Cancel withdraws a pending request. Only its owner or HR may cancel.
func (s *Service) Cancel(ctx context.Context, actor auth.Actor, id string) (Request, error) {
	req, err := s.Store.Get(ctx, id)
	if err != nil {
		return Request{}, err
	}
	if !actor.IsHR() && (actor.EmployeeID == "" || actor.EmployeeID != req.EmployeeID) {
		return Request{}, ErrForbidden
	}
	if err := Transition(req.Status, StatusCancelled); err != nil {
		return Request{}, err
	}
	at := s.now().UTC()
	if err := s.Store.Decide(ctx, id, StatusCancelled, req.Remarks, at); err != nil {
		return Request{}, err
	}
	req.Status = StatusCancelled
	req.DateProcessed = &at
	return req, nil
}

// Get returns a request visible to the actor: HR sees all, employees only their own.
func (s *Service) Get(ctx context.Context, actor auth.Actor, id string) (Request, error) {
	req, err := s.Store.Get(ctx, id)
	if err != nil {
		return Request{}, err
	}
	if !actor.IsHR() && req.EmployeeID != actor.EmployeeID {
		return Request{}, ErrNotFound
	}
	return req, nil
}

func (s *Service) ListAll(ctx context.Context, actor auth.Actor) ([]Request, error) {
	if !actor.IsHR() {
		return nil, ErrForbidden
	}
	return s.Store.List(ctx, ListFilter{})
}

func (s *Service) ListByEmployee(ctx context.Context, employeeID string) ([]Request, error) {
	return s.Store.List(ctx, ListFilter{EmployeeID: employeeID})
}

// ListMine lists the actor's own requests.
func (s *Service) ListMine(ctx context.Context, actor auth.Actor) ([]Request, error) {
	if actor.EmployeeID == "" {
		return nil, ErrNotLinked
	}
	return s.ListByEmployee(ctx, actor.EmployeeID)
}

// ListPending returns the approval queue, oldest first.
func (s *Service) ListPending(ctx context.Context, actor auth.Actor) ([]Request, error) {
	if !actor.IsHR() {
		return nil, ErrForbidden
	}
	return s.Store.List(ctx, ListFilter{Status: StatusPending, Ascending: true})
}

func (s *Service) PendingCount(ctx context.Context) (int, error) {
	return s.Store.CountPending(ctx, "")
}

func (s *Service) PendingCountFor(ctx context.Context, employeeID string) (int, error) {
	return s.Store.CountPending(ctx, employeeID)
}
