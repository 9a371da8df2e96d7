package announcement

import (
	"strings"
	"time"
)

type Priority int

const (
	PriorityNormal Priority = iota
	PriorityImportant
	PriorityUrgent
)

func (p Priority) Valid() bool {
	return p >= PriorityNormal && p <= PriorityUrgent
}

func (p Priority) String() string {
	switch p {
	case PriorityImportant:
		return "important"
	case PriorityUrgent:
		return "urgent"
	default:
		return "normal"
	}
}

func ParsePriority(value string) (Priority, bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "normal", "0":
		return PriorityNormal, true
	case "important", "1":
		return PriorityImportant, true
	case "urgent", "2":
		return PriorityUrgent, true
	}
	return PriorityNormal, false
}

type Announcement struct {
	ID             string     `json:"id"`
	Title          string     `json:"title"`
	Content        string     `json:"content"`
	Priority       Priority   `json:"priority"`
	IsActive       bool       `json:"isActive"`
	PostedBy       string     `json:"postedBy"`
	DatePosted     time.Time  `json:"datePosted"`
	ExpiryDate     *time.Time `json:"expiryDate,omitempty"`
	AttachmentPath string     `json:"attachmentPath,omitempty"`
}

// Visible reports whether a is shown to employees on the given day.
// An announcement expiring today is still visible.
func Visible(a Announcement, today time.Time) bool {
	if !a.IsActive {
		return false
	}
	if a.ExpiryDate == nil {
		return true
	}
	return !dateOnly(*a.ExpiryDate).Before(dateOnly(today))
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
