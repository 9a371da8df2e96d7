package leave

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"ems/internal/platform/querier"
)

const selectRequest = `
    SELECT lr.id, lr.employee_id, e.employee_number, e.first_name || ' ' || e.last_name, e.email,
           lr.leave_type, lr.start_date, lr.end_date, lr.reason, lr.status, COALESCE(lr.remarks, ''),
           lr.date_filed, lr.date_processed
    FROM leave_requests lr
    JOIN employees e ON e.id = lr.employee_id`

type Store struct {
	DB querier.Querier
}

func NewStore(db querier.Querier) *Store {
	return &Store{DB: db}
}

func (s *Store) q(ctx context.Context) querier.Querier {
	return querier.FromContext(ctx, s.DB)
}

func (s *Store) Create(ctx context.Context, req Request) (Request, error) {
	err := s.q(ctx).QueryRow(ctx, `
    INSERT INTO leave_requests (employee_id, leave_type, start_date, end_date, reason, status, date_filed)
    VALUES ($1,$2,$3,$4,$5,$6,$7)
    RETURNING id
  `, req.EmployeeID, string(req.LeaveType), req.StartDate, req.EndDate, req.Reason, string(req.Status), req.DateFiled).Scan(&req.ID)
	if err != nil {
		return Request{}, err
	}
	return req, nil
}

func (s *Store) Get(ctx context.Context, id string) (Request, error) {
	req, err := scan(s.q(ctx).QueryRow(ctx, selectRequest+`
    WHERE lr.id = $1
  `, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Request{}, ErrNotFound
	}
	return req, err
}

// List returns requests ordered by date filed, newest first unless filter.Ascending.
func (s *Store) List(ctx context.Context, filter ListFilter) ([]Request, error) {
	order := "DESC"
	if filter.Ascending {
		order = "ASC"
	}
	rows, err := s.q(ctx).Query(ctx, selectRequest+`
    WHERE ($1 = '' OR lr.employee_id::text = $1)
      AND ($2 = '' OR lr.status = $2)
    ORDER BY lr.date_filed `+order, filter.EmployeeID, string(filter.Status))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Request{}
	for rows.Next() {
		req, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, req)
	}
	return out, rows.Err()
}

// Decide moves a pending request to status. Only one concurrent decider can win;
// the loser gets ErrInvalidTransition.
func (s *Store) Decide(ctx context.Context, id string, status Status, remarks string, at time.Time) error {
	cmd, err := s.q(ctx).Exec(ctx, `
    UPDATE leave_requests
    SET status = $1, remarks = NULLIF($2, ''), date_processed = $3
    WHERE id = $4 AND status = 'pending'
  `, string(status), remarks, at, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() > 0 {
		return nil
	}
	var current string
	err = s.q(ctx).QueryRow(ctx, "SELECT status FROM leave_requests WHERE id = $1", id).Scan(&current)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	return ErrInvalidTransition
}

func (s *Store) CountPending(ctx context.Context, employeeID string) (int, error) {
	var total int
	err := s.q(ctx).QueryRow(ctx, `
    SELECT COUNT(1) FROM leave_requests
    WHERE status = 'pending' AND ($1 = '' OR employee_id::text = $1)
  `, employeeID).Scan(&total)
	if err != nil {
		return 0, err
	}
	return total, nil
}

// EmployeeActive reports whether the employee exists and is active.
func (s *Store) EmployeeActive(ctx context.Context, employeeID string) (bool, error) {
	var active bool
	err := s.q(ctx).QueryRow(ctx, `
    SELECT status = 'active' FROM employees WHERE id = $1
  `, employeeID).Scan(&active)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	return active, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scan(row rowScanner) (Request, error) {
	var req Request
	var leaveType, status string
	err := row.Scan(
		&req.ID, &req.EmployeeID, &req.EmployeeNumber, &req.EmployeeName, &req.EmployeeEmail,
		&leaveType, &req.StartDate, &req.EndDate, &req.Reason, &status, &req.Remarks,
		&req.DateFiled, &req.DateProcessed,
	)
	if err != nil {
		return Request{}, err
	}
	req.LeaveType = Type(leaveType)
	req.Status = Status(status)
	req.TotalDays, _ = TotalDays(req.StartDate, req.EndDate)
	return req, nil
}
