package announcement

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"ems/internal/platform/querier"
)

const selectAnnouncement = `
    SELECT id, title, content, priority, is_active, posted_by, date_posted, expiry_date,
           COALESCE(attachment_path, '')
    FROM announcements`

// visibleClause mirrors Visible for a given day ($1).
const visibleClause = `
    WHERE is_active AND (expiry_date IS NULL OR expiry_date >= $1::date)`

type Store struct {
	DB querier.Querier
}

func NewStore(db querier.Querier) *Store {
	return &Store{DB: db}
}

func (s *Store) q(ctx context.Context) querier.Querier {
	return querier.FromContext(ctx, s.DB)
}

func (s *Store) Create(ctx context.Context, a Announcement) (Announcement, error) {
	err := s.q(ctx).QueryRow(ctx, `
    INSERT INTO announcements (title, content, priority, is_active, posted_by, date_posted, expiry_date, attachment_path)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
    RETURNING id
  `, a.Title, a.Content, int(a.Priority), a.IsActive, a.PostedBy, a.DatePosted, a.ExpiryDate, querier.NullIfEmpty(a.AttachmentPath)).Scan(&a.ID)
	if err != nil {
		return Announcement{}, err
	}
	return a, nil
}

// Update overwrites the editable fields and returns the attachment path it replaced.
func (s *Store) Update(ctx context.Context, a Announcement) (string, error) {
	var previous string
	err := s.q(ctx).QueryRow(ctx, `
    UPDATE announcements n
    SET title = $1, content = $2, priority = $3, is_active = $4, expiry_date = $5, attachment_path = $6
    FROM (SELECT id, attachment_path FROM announcements WHERE id = $7 FOR UPDATE) old
    WHERE n.id = old.id
    RETURNING COALESCE(old.attachment_path, '')
  `, a.Title, a.Content, int(a.Priority), a.IsActive, a.ExpiryDate, querier.NullIfEmpty(a.AttachmentPath), a.ID).Scan(&previous)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotFound
	}
	return previous, err
}

func (s *Store) Deactivate(ctx context.Context, id string) error {
	cmd, err := s.q(ctx).Exec(ctx, "UPDATE announcements SET is_active = false WHERE id = $1", id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes the row and returns its attachment path, if any.
func (s *Store) Delete(ctx context.Context, id string) (string, error) {
	var attachment string
	err := s.q(ctx).QueryRow(ctx, `
    DELETE FROM announcements WHERE id = $1
    RETURNING COALESCE(attachment_path, '')
  `, id).Scan(&attachment)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotFound
	}
	return attachment, err
}

func (s *Store) Get(ctx context.Context, id string) (Announcement, error) {
	a, err := scan(s.q(ctx).QueryRow(ctx, selectAnnouncement+`
    WHERE id = $1
  `, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Announcement{}, ErrNotFound
	}
	return a, err
}

func (s *Store) ListVisible(ctx context.Context, today time.Time) ([]Announcement, error) {
	return s.list(ctx, selectAnnouncement+visibleClause+`
    ORDER BY priority DESC, date_posted DESC
  `, dateOnly(today))
}

func (s *Store) ListAll(ctx context.Context) ([]Announcement, error) {
	return s.list(ctx, selectAnnouncement+`
    ORDER BY date_posted DESC
  `)
}

func (s *Store) CountVisible(ctx context.Context, today time.Time) (int, error) {
	var total int
	err := s.q(ctx).QueryRow(ctx, "SELECT COUNT(1) FROM announcements"+visibleClause, dateOnly(today)).Scan(&total)
	if err != nil {
		return 0, err
	}
	return total, nil
}

func (s *Store) list(ctx context.Context, sql string, args ...any) ([]Announcement, error) {
	rows, err := s.q(ctx).Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Announcement{}
	for rows.Next() {
		a, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scan(row rowScanner) (Announcement, error) {
	var a Announcement
	var priority int16
	err := row.Scan(&a.ID, &a.Title, &a.Content, &priority, &a.IsActive, &a.PostedBy, &a.DatePosted, &a.ExpiryDate, &a.AttachmentPath)
	if err != nil {
		return Announcement{}, err
	}
	a.Priority = Priority(priority)
	return a, nil
}
