package recruitment

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"ems/internal/platform/querier"
)

const selectApplication = `
    SELECT id, first_name, last_name, email, phone, address, date_of_birth, applying_for_position,
           COALESCE(education, ''), COALESCE(previous_company, ''), years_of_experience, COALESCE(skills, ''),
           cover_letter, COALESCE(resume_file_path, ''), status, date_applied, date_reviewed,
           COALESCE(hr_notes, ''), COALESCE(hired_employee_id::text, '')
    FROM job_applications`

type Store struct {
	DB querier.Querier
}

func NewStore(db querier.Querier) *Store {
	return &Store{DB: db}
}

func (s *Store) q(ctx context.Context) querier.Querier {
	return querier.FromContext(ctx, s.DB)
}

func (s *Store) Create(ctx context.Context, app Application) (Application, error) {
	err := s.q(ctx).QueryRow(ctx, `
    INSERT INTO job_applications (first_name, last_name, email, phone, address, date_of_birth, applying_for_position,
      education, previous_company, years_of_experience, skills, cover_letter, resume_file_path, status, date_applied)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
    RETURNING id
  `,
		app.FirstName, app.LastName, app.Email, app.Phone, app.Address, app.DateOfBirth, app.ApplyingForPosition,
		querier.NullIfEmpty(app.Education), querier.NullIfEmpty(app.PreviousCompany), app.YearsOfExperience, querier.NullIfEmpty(app.Skills),
		app.CoverLetter, querier.NullIfEmpty(app.ResumeFilePath), string(app.Status), app.DateApplied,
	).Scan(&app.ID)
	if err != nil {
		return Application{}, err
	}
	return app, nil
}

func (s *Store) Get(ctx context.Context, id string) (Application, error) {
	return scanOne(s.q(ctx).QueryRow(ctx, selectApplication+`
    WHERE id = $1
  `, id))
}

// GetForUpdate locks the row for the rest of the surrounding transaction.
func (s *Store) GetForUpdate(ctx context.Context, id string) (Application, error) {
	return scanOne(s.q(ctx).QueryRow(ctx, selectApplication+`
    WHERE id = $1
    FOR UPDATE
  `, id))
}

// List returns applications by date applied, newest first unless ascending.
func (s *Store) List(ctx context.Context, status Status, ascending bool) ([]Application, error) {
	order := "DESC"
	if ascending {
		order = "ASC"
	}
	rows, err := s.q(ctx).Query(ctx, selectApplication+`
    WHERE ($1 = '' OR status = $1)
    ORDER BY date_applied `+order, string(status))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Application{}
	for rows.Next() {
		app, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, app)
	}
	return out, rows.Err()
}

func (s *Store) SetStatus(ctx context.Context, id string, status Status, notes string, at time.Time) error {
	cmd, err := s.q(ctx).Exec(ctx, `
    UPDATE job_applications
    SET status = $1, hr_notes = NULLIF($2, ''), date_reviewed = $3
    WHERE id = $4 AND status NOT IN ('hired', 'rejected')
  `, string(status), notes, at, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return s.missingOrFinal(ctx, id)
	}
	return nil
}

func (s *Store) MarkHired(ctx context.Context, id, employeeID string, at time.Time) error {
	cmd, err := s.q(ctx).Exec(ctx, `
    UPDATE job_applications
    SET status = 'hired', hired_employee_id = $1, date_reviewed = $2
    WHERE id = $3 AND status NOT IN ('hired', 'rejected')
  `, employeeID, at, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return s.missingOrFinal(ctx, id)
	}
	return nil
}

// Delete removes the row and returns its resume path, if any.
func (s *Store) Delete(ctx context.Context, id string) (string, error) {
	var resume string
	err := s.q(ctx).QueryRow(ctx, `
    DELETE FROM job_applications WHERE id = $1
    RETURNING COALESCE(resume_file_path, '')
  `, id).Scan(&resume)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotFound
	}
	return resume, err
}

func (s *Store) CountPending(ctx context.Context) (int, error) {
	var total int
	if err := s.q(ctx).QueryRow(ctx, "SELECT COUNT(1) FROM job_applications WHERE status = 'pending'").Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

func (s *Store) missingOrFinal(ctx context.Context, id string) error {
	var exists bool
	err := s.q(ctx).QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM job_applications WHERE id = $1)", id).Scan(&exists)
	if err != nil {
		return err
	}
	if !exists {
		return ErrNotFound
	}
	return ErrInvalidTransition
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOne(row rowScanner) (Application, error) {
	app, err := scan(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Application{}, ErrNotFound
	}
	return app, err
}

func scan(row rowScanner) (Application, error) {
	var app Application
	var status string
	err := row.Scan(
		&app.ID, &app.FirstName, &app.LastName, &app.Email, &app.Phone, &app.Address, &app.DateOfBirth,
		&app.ApplyingForPosition, &app.Education, &app.PreviousCompany, &app.YearsOfExperience, &app.Skills,
		&app.CoverLetter, &app.ResumeFilePath, &status, &app.DateApplied, &app.DateReviewed,
		&app.HRNotes, &app.HiredEmployeeID,
	)
	if err != nil {
		return Application{}, err
	}
	app.Status = Status(status)
	return app, nil
}
