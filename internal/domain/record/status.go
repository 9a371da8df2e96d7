package record

import "fmt"

// Status is the soft-delete state shared by employees, departments and positions.
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

func (s Status) Valid() bool {
	return s == StatusActive || s == StatusInactive
}

func (s Status) IsActive() bool {
	return s == StatusActive
}

func ParseStatus(raw string) (Status, error) {
	s := Status(raw)
	if !s.Valid() {
		return "", fmt.Errorf("unknown record status %q", raw)
	}
	return s, nil
}
