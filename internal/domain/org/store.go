package org

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"ems/internal/domain/record"
	"ems/internal/platform/querier"
)

const (
	uniqueViolationCode     = "23505"
	foreignKeyViolationCode = "23503"
)

type Store struct {
	DB querier.Querier
}

func NewStore(db querier.Querier) *Store {
	return &Store{DB: db}
}

func (s *Store) q(ctx context.Context) querier.Querier {
	return querier.FromContext(ctx, s.DB)
}

func (s *Store) ListDepartments(ctx context.Context, includeInactive bool) ([]Department, error) {
	rows, err := s.q(ctx).Query(ctx, `
    SELECT id, name, COALESCE(description, ''), status, date_created
    FROM departments
    WHERE $1 OR status = 'active'
    ORDER BY name
  `, includeInactive)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Department{}
	for rows.Next() {
		var d Department
		var status string
		if err := rows.Scan(&d.ID, &d.Name, &d.Description, &status, &d.DateCreated); err != nil {
			return nil, err
		}
		d.Status = record.Status(status)
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *Store) GetDepartment(ctx context.Context, id string) (Department, error) {
	var d Department
	var status string
	err := s.q(ctx).QueryRow(ctx, `
    SELECT id, name, COALESCE(description, ''), status, date_created
    FROM departments
    WHERE id = $1
  `, id).Scan(&d.ID, &d.Name, &d.Description, &status, &d.DateCreated)
	if errors.Is(err, pgx.ErrNoRows) {
		return Department{}, ErrDepartmentNotFound
	}
	d.Status = record.Status(status)
	return d, err
}

func (s *Store) CreateDepartment(ctx context.Context, d Department) (Department, error) {
	err := s.q(ctx).QueryRow(ctx, `
    INSERT INTO departments (name, description, status)
    VALUES ($1,$2,$3)
    RETURNING id, date_created
  `, d.Name, querier.NullIfEmpty(d.Description), string(d.Status)).Scan(&d.ID, &d.DateCreated)
	if err != nil {
		return Department{}, translatePgError(err)
	}
	return d, nil
}

func (s *Store) UpdateDepartment(ctx context.Context, d Department) error {
	cmd, err := s.q(ctx).Exec(ctx, `
    UPDATE departments SET name = $1, description = $2, status = $3 WHERE id = $4
  `, d.Name, querier.NullIfEmpty(d.Description), string(d.Status), d.ID)
	if err != nil {
		return translatePgError(err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrDepartmentNotFound
	}
	return nil
}

func (s *Store) SetDepartmentStatus(ctx context.Context, id string, status record.Status) error {
	cmd, err := s.q(ctx).Exec(ctx, "UPDATE departments SET status = $1 WHERE id = $2", string(status), id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrDepartmentNotFound
	}
	return nil
}

func (s *Store) DeleteDepartment(ctx context.Context, id string) error {
	cmd, err := s.q(ctx).Exec(ctx, "DELETE FROM departments WHERE id = $1", id)
	if err != nil {
		return translatePgError(err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrDepartmentNotFound
	}
	return nil
}

func (s *Store) CountDepartments(ctx context.Context) (int, error) {
	var total int
	err := s.q(ctx).QueryRow(ctx, "SELECT COUNT(1) FROM departments WHERE status = 'active'").Scan(&total)
	return total, err
}

func (s *Store) ListPositions(ctx context.Context, includeInactive bool) ([]Position, error) {
	rows, err := s.q(ctx).Query(ctx, `
    SELECT id, title, COALESCE(description, ''), status, date_created
    FROM positions
    WHERE $1 OR status = 'active'
    ORDER BY title
  `, includeInactive)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Position{}
	for rows.Next() {
		var p Position
		var status string
		if err := rows.Scan(&p.ID, &p.Title, &p.Description, &status, &p.DateCreated); err != nil {
			return nil, err
		}
		p.Status = record.Status(status)
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) GetPosition(ctx context.Context, id string) (Position, error) {
	var p Position
	var status string
	err := s.q(ctx).QueryRow(ctx, `
    SELECT id, title, COALESCE(description, ''), status, date_created
    FROM positions
    WHERE id = $1
  `, id).Scan(&p.ID, &p.Title, &p.Description, &status, &p.DateCreated)
	if errors.Is(err, pgx.ErrNoRows) {
		return Position{}, ErrPositionNotFound
	}
	p.Status = record.Status(status)
	return p, err
}

func (s *Store) CreatePosition(ctx context.Context, p Position) (Position, error) {
	err := s.q(ctx).QueryRow(ctx, `
    INSERT INTO positions (title, description, status)
    VALUES ($1,$2,$3)
    RETURNING id, date_created
  `, p.Title, querier.NullIfEmpty(p.Description), string(p.Status)).Scan(&p.ID, &p.DateCreated)
	if err != nil {
		return Position{}, translatePgError(err)
	}
	return p, nil
}

func (s *Store) UpdatePosition(ctx context.Context, p Position) error {
	cmd, err := s.q(ctx).Exec(ctx, `
    UPDATE positions SET title = $1, description = $2, status = $3 WHERE id = $4
  `, p.Title, querier.NullIfEmpty(p.Description), string(p.Status), p.ID)
	if err != nil {
		return translatePgError(err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrPositionNotFound
	}
	return nil
}

func (s *Store) SetPositionStatus(ctx context.Context, id string, status record.Status) error {
	cmd, err := s.q(ctx).Exec(ctx, "UPDATE positions SET status = $1 WHERE id = $2", string(status), id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrPositionNotFound
	}
	return nil
}

func (s *Store) DeletePosition(ctx context.Context, id string) error {
	cmd, err := s.q(ctx).Exec(ctx, "DELETE FROM positions WHERE id = $1", id)
	if err != nil {
		return translatePgError(err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrPositionNotFound
	}
	return nil
}

func (s *Store) CountPositions(ctx context.Context) (int, error) {
	var total int
	err := s.q(ctx).QueryRow(ctx, "SELECT COUNT(1) FROM positions WHERE status = 'active'").Scan(&total)
	return total, err
}

func translatePgError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case uniqueViolationCode:
		return ErrDuplicateName
	case foreignKeyViolationCode:
		return ErrInUse
	}
	return err
}
