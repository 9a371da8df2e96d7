package announcement

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"ems/internal/domain/auth"
	"ems/internal/platform/blob"
)

type StoreAPI interface {
	Create(ctx context.Context, a Announcement) (Announcement, error)
	Update(ctx context.Context, a Announcement) (string, error)
	Deactivate(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) (string, error)
	Get(ctx context.Context, id string) (Announcement, error)
	ListVisible(ctx context.Context, today time.Time) ([]Announcement, error)
	ListAll(ctx context.Context) ([]Announcement, error)
	CountVisible(ctx context.Context, today time.Time) (int, error)
}

type Service struct {
	Store StoreAPI
	Blobs blob.Store
	now   func() time.Time
}

func NewService(store StoreAPI, blobs blob.Store) *Service {
	return &Service{Store: store, Blobs: blobs, now: time.Now}
}

func (s *Service) Create(ctx context.Context, actor auth.Actor, a Announcement, attachment *blob.Upload) (Announcement, error) {
	if !actor.IsHR() {
		return Announcement{}, ErrForbidden
	}
	if !a.Priority.Valid() {
		return Announcement{}, ErrInvalidPriority
	}
	a.ID = ""
	a.Title = strings.TrimSpace(a.Title)
	a.IsActive = true
	a.DatePosted = s.now().UTC()
	a.PostedBy = actor.Email
	if a.PostedBy == "" {
		a.PostedBy = actor.UserID
	}

	path, err := s.storeAttachment(ctx, attachment)
	if err != nil {
		return Announcement{}, err
	}
	a.AttachmentPath = path

	created, err := s.Store.Create(ctx, a)
	if err != nil {
		s.discard(ctx, path)
		return Announcement{}, err
	}
	return created, nil
}

// Update overwrites content, priority and expiry. The active flag changes only
// when active is set. A new attachment replaces the old file.
func (s *Service) Update(ctx context.Context, actor auth.Actor, a Announcement, active *bool, attachment *blob.Upload) (Announcement, error) {
	if !actor.IsHR() {
		return Announcement{}, ErrForbidden
	}
	if !a.Priority.Valid() {
		return Announcement{}, ErrInvalidPriority
	}
	current, err := s.Store.Get(ctx, a.ID)
	if err != nil {
		return Announcement{}, err
	}
	a.Title = strings.TrimSpace(a.Title)
	a.PostedBy = current.PostedBy
	a.DatePosted = current.DatePosted
	a.AttachmentPath = current.AttachmentPath
	a.IsActive = current.IsActive
	if active != nil {
		a.IsActive = *active
	}

	path, err := s.storeAttachment(ctx, attachment)
	if err != nil {
		return Announcement{}, err
	}
	if path != "" {
		a.AttachmentPath = path
	}

	previous, err := s.Store.Update(ctx, a)
	if err != nil {
		s.discard(ctx, path)
		return Announcement{}, err
	}
	if previous != "" && previous != a.AttachmentPath {
		s.discard(ctx, previous)
	}
	return a, nil
}

func (s *Service) Deactivate(ctx context.Context, actor auth.Actor, id string) error {
	if !actor.IsHR() {
		return ErrForbidden
	}
	return s.Store.Deactivate(ctx, id)
}

func (s *Service) Delete(ctx context.Context, actor auth.Actor, id string) error {
	if !actor.IsHR() {
		return ErrForbidden
	}
	attachment, err := s.Store.Delete(ctx, id)
	if err != nil {
		return err
	}
	s.discard(ctx, attachment)
	return nil
}

// Get hides inactive or expired announcements from non-HR actors.
func (s *Service) Get(ctx context.Context, actor auth.Actor, id string) (Announcement, error) {
	a, err := s.Store.Get(ctx, id)
	if err != nil {
		return Announcement{}, err
	}
	if !actor.IsHR() && !Visible(a, s.now()) {
		return Announcement{}, ErrNotFound
	}
	return a, nil
}

// ListActive returns visible announcements, most urgent and newest first.
func (s *Service) ListActive(ctx context.Context) ([]Announcement, error) {
	return s.Store.ListVisible(ctx, s.now())
}

func (s *Service) ListAll(ctx context.Context, actor auth.Actor) ([]Announcement, error) {
	if !actor.IsHR() {
		return nil, ErrForbidden
	}
	return s.Store.ListAll(ctx)
}

func (s *Service) ActiveCount(ctx context.Context) (int, error) {
	return s.Store.CountVisible(ctx, s.now())
}

func (s *Service) storeAttachment(ctx context.Context, attachment *blob.Upload) (string, error) {
	if attachment == nil || attachment.Body == nil {
		return "", nil
	}
	path, err := s.Blobs.Save(ctx, blob.PrefixAnnouncements, attachment.FileName, attachment.Body)
	if err != nil {
		return "", fmt.Errorf("store attachment: %w", err)
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
