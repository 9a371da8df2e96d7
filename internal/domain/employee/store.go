package employee

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"ems/internal/domain/record"
	"ems/internal/platform/querier"
)

const (
	uniqueViolationCode     = "23505"
	foreignKeyViolationCode = "23503"

	numberConstraint = "employees_employee_number_key"
	userConstraint   = "employees_user_id_key"
)

const selectEmployee = `
    SELECT e.id, e.employee_number, e.first_name, e.last_name, e.gender, e.email, e.phone, e.address,
           e.date_of_birth, e.date_hired, e.salary, e.salary_enc, e.status,
           e.department_id, d.name, e.position_id, p.title,
           COALESCE(e.user_id::text, ''), COALESCE(e.profile_picture_path, ''),
           e.created_at, e.updated_at
    FROM employees e
    JOIN departments d ON d.id = e.department_id
    JOIN positions p ON p.id = e.position_id`

// SecretBox encrypts salary values at rest when a key is configured.
type SecretBox interface {
	Configured() bool
	EncryptString(value string) ([]byte, error)
	DecryptString(value []byte) (string, error)
}

type Store struct {
	DB     querier.Querier
	Crypto SecretBox
}

func NewStore(db querier.Querier, crypto SecretBox) *Store {
	return &Store{DB: db, Crypto: crypto}
}

func (s *Store) q(ctx context.Context) querier.Querier {
	return querier.FromContext(ctx, s.DB)
}

// NextNumber bumps the employee_number counter. The first call seeds it from
// the highest EMP-#### number already stored.
func (s *Store) NextNumber(ctx context.Context) (int64, error) {
	var next int64
	err := s.q(ctx).QueryRow(ctx, `
    INSERT INTO counters (name, last_value)
    VALUES ('employee_number', 1 + COALESCE((
      SELECT MAX(CAST(SUBSTRING(employee_number FROM 5) AS BIGINT))
      FROM employees
      WHERE employee_number ~ '^EMP-[0-9]+$'
    ), 0))
    ON CONFLICT (name) DO UPDATE
      SET last_value = GREATEST(counters.last_value + 1, EXCLUDED.last_value)
    RETURNING last_value
  `).Scan(&next)
	if err != nil {
		return 0, fmt.Errorf("next employee number: %w", err)
	}
	return next, nil
}

func (s *Store) Create(ctx context.Context, emp Employee) (Employee, error) {
	salaryPlain, salaryEnc := s.sealSalary(emp.Salary)
	err := querier.WithSavepoint(ctx, s.DB, func(q querier.Querier) error {
		return q.QueryRow(ctx, `
    INSERT INTO employees (employee_number, first_name, last_name, gender, email, phone, address, date_of_birth,
      date_hired, salary, salary_enc, status, department_id, position_id, user_id, profile_picture_path)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
    RETURNING id, created_at, updated_at
  `,
			emp.EmployeeNumber, emp.FirstName, emp.LastName, emp.Gender, emp.Email, emp.Phone, emp.Address,
			emp.DateOfBirth, emp.DateHired, salaryPlain, salaryEnc, string(emp.Status), emp.DepartmentID, emp.PositionID,
			querier.NullIfEmpty(emp.UserID), querier.NullIfEmpty(emp.ProfilePicturePath),
		).Scan(&emp.ID, &emp.CreatedAt, &emp.UpdatedAt)
	})
	if err != nil {
		return Employee{}, translatePgError(err)
	}
	return emp, nil
}

func (s *Store) Update(ctx context.Context, emp Employee) error {
	salaryPlain, salaryEnc := s.sealSalary(emp.Salary)
	cmd, err := s.q(ctx).Exec(ctx, `
    UPDATE employees
    SET first_name = $1,
        last_name = $2,
        gender = $3,
        email = $4,
        phone = $5,
        address = $6,
        date_of_birth = $7,
        date_hired = $8,
        salary = $9,
        salary_enc = $10,
        status = $11,
        department_id = $12,
        position_id = $13,
        updated_at = now()
    WHERE id = $14
  `,
		emp.FirstName, emp.LastName, emp.Gender, emp.Email, emp.Phone, emp.Address, emp.DateOfBirth,
		emp.DateHired, salaryPlain, salaryEnc, string(emp.Status), emp.DepartmentID, emp.PositionID, emp.ID,
	)
	if err != nil {
		return translatePgError(err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) UpdateContact(ctx context.Context, id, phone, address string) error {
	cmd, err := s.q(ctx).Exec(ctx, `
    UPDATE employees SET phone = $1, address = $2, updated_at = now() WHERE id = $3
  `, phone, address, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) SetStatus(ctx context.Context, id string, status record.Status) error {
	cmd, err := s.q(ctx).Exec(ctx, `
    UPDATE employees SET status = $1, updated_at = now() WHERE id = $2
  `, string(status), id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ReplaceProfilePicture stores the new path and returns the one it replaced.
func (s *Store) ReplaceProfilePicture(ctx context.Context, id, path string) (string, error) {
	var previous string
	err := s.q(ctx).QueryRow(ctx, `
    UPDATE employees e
    SET profile_picture_path = $2, updated_at = now()
    FROM (SELECT id, profile_picture_path FROM employees WHERE id = $1 FOR UPDATE) old
    WHERE e.id = old.id
    RETURNING COALESCE(old.profile_picture_path, '')
  `, id, path).Scan(&previous)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotFound
	}
	return previous, err
}

func (s *Store) Get(ctx context.Context, id string) (Employee, error) {
	return s.scanOne(s.q(ctx).QueryRow(ctx, selectEmployee+`
    WHERE e.id = $1
  `, id))
}

func (s *Store) GetByUserID(ctx context.Context, userID string) (Employee, error) {
	return s.scanOne(s.q(ctx).QueryRow(ctx, selectEmployee+`
    WHERE e.user_id = $1
  `, userID))
}

// Search matches term case-insensitively against name, number and email of active employees.
func (s *Store) Search(ctx context.Context, term string) ([]Employee, error) {
	term = strings.TrimSpace(term)
	rows, err := s.q(ctx).Query(ctx, selectEmployee+`
    WHERE e.status = 'active'
      AND ($1 = '' OR e.first_name ILIKE $2 OR e.last_name ILIKE $2 OR e.employee_number ILIKE $2 OR e.email ILIKE $2)
    ORDER BY e.last_name, e.first_name
  `, term, likePattern(term))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Employee{}
	for rows.Next() {
		emp, err := s.scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, emp)
	}
	return out, rows.Err()
}

func (s *Store) CountActive(ctx context.Context) (int, error) {
	var total int
	if err := s.q(ctx).QueryRow(ctx, "SELECT COUNT(1) FROM employees WHERE status = 'active'").Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

func (s *Store) Recent(ctx context.Context, limit int) ([]Employee, error) {
	rows, err := s.q(ctx).Query(ctx, selectEmployee+`
    WHERE e.status = 'active'
    ORDER BY e.created_at DESC
    LIMIT $1
  `, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Employee{}
	for rows.Next() {
		emp, err := s.scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, emp)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *Store) scanOne(row rowScanner) (Employee, error) {
	emp, err := s.scan(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Employee{}, ErrNotFound
	}
	return emp, err
}

func (s *Store) scan(row rowScanner) (Employee, error) {
	var emp Employee
	var status string
	var salaryEnc []byte
	err := row.Scan(
		&emp.ID, &emp.EmployeeNumber, &emp.FirstName, &emp.LastName, &emp.Gender, &emp.Email, &emp.Phone, &emp.Address,
		&emp.DateOfBirth, &emp.DateHired, &emp.Salary, &salaryEnc, &status,
		&emp.DepartmentID, &emp.DepartmentName, &emp.PositionID, &emp.PositionTitle,
		&emp.UserID, &emp.ProfilePicturePath, &emp.CreatedAt, &emp.UpdatedAt,
	)
	if err != nil {
		return Employee{}, err
	}
	emp.Status = record.Status(status)
	emp.Salary = s.openSalary(salaryEnc, emp.Salary)
	return emp, nil
}

func (s *Store) sealSalary(salary *float64) (any, []byte) {
	if salary == nil || s.Crypto == nil || !s.Crypto.Configured() {
		return salary, nil
	}
	enc, err := s.Crypto.EncryptString(strconv.FormatFloat(*salary, 'f', 2, 64))
	if err != nil {
		return salary, nil
	}
	return nil, enc
}

func (s *Store) openSalary(enc []byte, plain *float64) *float64 {
	if s.Crypto == nil || !s.Crypto.Configured() || len(enc) == 0 {
		return plain
	}
	value, err := s.Crypto.DecryptString(enc)
	if err != nil {
		return plain
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return plain
	}
	return &parsed
}

func translatePgError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case uniqueViolationCode:
		if pgErr.ConstraintName == userConstraint {
			return ErrUserAlreadyLinked
		}
		if pgErr.ConstraintName == numberConstraint {
			return ErrDuplicateNumber
		}
	case foreignKeyViolationCode:
		return ErrInvalidReference
	}
	return err
}

func likePattern(term string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + replacer.Replace(term) + "%"
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
