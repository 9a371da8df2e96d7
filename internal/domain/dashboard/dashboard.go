package dashboard

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"

	"ems/internal/domain/announcement"
	"ems/internal/domain/auth"
	"ems/internal/domain/employee"
)

const recentEmployees = 5

var ErrForbidden = errors.New("forbidden")

type HRSummary struct {
	ActiveEmployees     int                 `json:"activeEmployees"`
	PendingLeaves       int                 `json:"pendingLeaves"`
	Departments         int                 `json:"departments"`
	Positions           int                 `json:"positions"`
	PendingApplications int                 `json:"pendingApplications"`
	ActiveAnnouncements int                 `json:"activeAnnouncements"`
	RecentEmployees     []employee.Employee `json:"recentEmployees"`
}

type EmployeeSummary struct {
	Employee      employee.Employee           `json:"employee"`
	PendingLeaves int                         `json:"pendingLeaves"`
	Announcements []announcement.Announcement `json:"announcements"`
}

type Employees interface {
	Count(ctx context.Context) (int, error)
	Recent(ctx context.Context, limit int) ([]employee.Employee, error)
	Self(ctx context.Context, actor auth.Actor) (employee.Employee, error)
}

type Leaves interface {
	PendingCount(ctx context.Context) (int, error)
	PendingCountFor(ctx context.Context, employeeID string) (int, error)
}

type Counter interface {
	Count(ctx context.Context) (int, error)
}

type Applications interface {
	PendingCount(ctx context.Context) (int, error)
}

type Announcements interface {
	ActiveCount(ctx context.Context) (int, error)
	ListActive(ctx context.Context) ([]announcement.Announcement, error)
}

type Service struct {
	Employees     Employees
	Leaves        Leaves
	Departments   Counter
	Positions     Counter
	Applications  Applications
	Announcements Announcements
}

// HR gathers the HR landing page figures concurrently. The first failing
// query cancels the rest.
func (s *Service) HR(ctx context.Context, actor auth.Actor) (HRSummary, error) {
	if !actor.IsHR() {
		return HRSummary{}, ErrForbidden
	}
	var out HRSummary
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		out.ActiveEmployees, err = s.Employees.Count(ctx)
		return err
	})
	g.Go(func() (err error) {
		out.PendingLeaves, err = s.Leaves.PendingCount(ctx)
		return err
	})
	g.Go(func() (err error) {
		out.Departments, err = s.Departments.Count(ctx)
		return err
	})
	g.Go(func() (err error) {
		out.Positions, err = s.Positions.Count(ctx)
		return err
	})
	g.Go(func() (err error) {
		out.PendingApplications, err = s.Applications.PendingCount(ctx)
		return err
	})
	g.Go(func() (err error) {
		out.ActiveAnnouncements, err = s.Announcements.ActiveCount(ctx)
		return err
	})
	g.Go(func() (err error) {
		out.RecentEmployees, err = s.Employees.Recent(ctx, recentEmployees)
		return err
	})
	if err := g.Wait(); err != nil {
		return HRSummary{}, err
	}
	return out, nil
}

// Employee builds the self-service landing page for the actor.
func (s *Service) Employee(ctx context.Context, actor auth.Actor) (EmployeeSummary, error) {
	self, err := s.Employees.Self(ctx, actor)
	if err != nil {
		return EmployeeSummary{}, err
	}
	out := EmployeeSummary{Employee: self}
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		out.PendingLeaves, err = s.Leaves.PendingCountFor(ctx, self.ID)
		return err
	})
	g.Go(func() (err error) {
		out.Announcements, err = s.Announcements.ListActive(ctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return EmployeeSummary{}, err
	}
	return out, nil
}
