package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

const (
	PrefixResumes       = "resumes"
	PrefixProfiles      = "profiles"
	PrefixAnnouncements = "announcements"
)

// PublicRoot is the URL path under which stored files are served.
const PublicRoot = "/uploads"

var (
	ErrUnknownPrefix = errors.New("unknown blob prefix")
	ErrInvalidPath   = errors.New("invalid blob path")
)

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// Stored names stay well below the 255-byte filename limit of common
// filesystems once the uuid suffix is added.
const (
	maxStemLen = 100
	maxExtLen  = 10
)

// Upload is a client file on its way to the store.
type Upload struct {
	FileName string
	Body     io.Reader
}

type Store interface {
	Save(ctx context.Context, prefix, suggestedName string, r io.Reader) (string, error)
	Delete(ctx context.Context, ref string) error
}

// LocalStore keeps files on the local filesystem below Root.
type LocalStore struct {
	Root string
}

func NewLocal(root string) (*LocalStore, error) {
	for _, prefix := range []string{PrefixResumes, PrefixProfiles, PrefixAnnouncements} {
		if err := os.MkdirAll(filepath.Join(root, prefix), 0o755); err != nil {
			return nil, fmt.Errorf("blob: create %s: %w", prefix, err)
		}
	}
	return &LocalStore{Root: root}, nil
}

// Save writes r to <prefix>/<stem>_<uuid><ext> and returns the public path.
func (s *LocalStore) Save(ctx context.Context, prefix, suggestedName string, r io.Reader) (string, error) {
	if !knownPrefix(prefix) {
		return "", ErrUnknownPrefix
	}
	name := FileName(suggestedName)
	target := filepath.Join(s.Root, prefix, name)

	f, err := os.OpenFile(target, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return "", fmt.Errorf("blob: create file: %w", err)
	}
	if _, err := io.Copy(f, contextReader{ctx: ctx, r: r}); err != nil {
		_ = f.Close()
		_ = os.Remove(target)
		return "", fmt.Errorf("blob: write file: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(target)
		return "", fmt.Errorf("blob: close file: %w", err)
	}
	return path.Join(PublicRoot, prefix, name), nil
}

// Delete removes a stored file. Missing files are not an error.
func (s *LocalStore) Delete(ctx context.Context, ref string) error {
	if strings.TrimSpace(ref) == "" {
		return nil
	}
	rel, err := relativePath(ref)
	if err != nil {
		return err
	}
	if err := os.Remove(filepath.Join(s.Root, filepath.FromSlash(rel))); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("blob: delete: %w", err)
	}
	return nil
}

// FileName sanitizes a client file name and appends a random suffix before the extension.
func FileName(suggested string) string {
	base := path.Base(strings.ReplaceAll(suggested, "\\", "/"))
	ext := strings.ToLower(path.Ext(base))
	stem := strings.TrimSuffix(base, path.Ext(base))
	stem = strings.Trim(unsafeChars.ReplaceAllString(stem, "_"), "_.")
	if len(stem) > maxStemLen {
		stem = strings.TrimRight(stem[:maxStemLen], "_.")
	}
	ext = unsafeChars.ReplaceAllString(ext, "")
	if len(ext) > maxExtLen {
		ext = ""
	}
	if stem == "" {
		stem = "file"
	}
	return fmt.Sprintf("%s_%s%s", stem, uuid.NewString(), ext)
}

func relativePath(ref string) (string, error) {
	rel := strings.TrimPrefix(path.Clean("/"+ref), PublicRoot+"/")
	parts := strings.SplitN(rel, "/", 2)
	if len(parts) != 2 || !knownPrefix(parts[0]) || strings.Contains(parts[1], "/") || parts[1] == ".." {
		return "", ErrInvalidPath
	}
	return rel, nil
}

func knownPrefix(prefix string) bool {
	switch prefix {
	case PrefixResumes, PrefixProfiles, PrefixAnnouncements:
		return true
	}
	return false
}

type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
