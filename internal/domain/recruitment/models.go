package recruitment

import "time"

type Status string

const (
	StatusPending     Status = "pending"
	StatusUnderReview Status = "under_review"
	StatusShortlisted Status = "shortlisted"
	StatusInterview   Status = "interview"
	StatusHired       Status = "hired"
	StatusRejected    Status = "rejected"
)

type Application struct {
	ID                  string     `json:"id"`
	FirstName           string     `json:"firstName"`
	LastName            string     `json:"lastName"`
	Email               string     `json:"email"`
	Phone               string     `json:"phone"`
	Address             string     `json:"address"`
	DateOfBirth         *time.Time `json:"dateOfBirth,omitempty"`
	ApplyingForPosition string     `json:"applyingForPosition"`
	Education           string     `json:"education,omitempty"`
	PreviousCompany     string     `json:"previousCompany,omitempty"`
	YearsOfExperience   *int       `json:"yearsOfExperience,omitempty"`
	Skills              string     `json:"skills,omitempty"`
	CoverLetter         string     `json:"coverLetter"`
	ResumeFilePath      string     `json:"resumeFilePath,omitempty"`
	Status              Status     `json:"status"`
	DateApplied         time.Time  `json:"dateApplied"`
	DateReviewed        *time.Time `json:"dateReviewed,omitempty"`
	HRNotes             string     `json:"hrNotes,omitempty"`
	HiredEmployeeID     string     `json:"hiredEmployeeId,omitempty"`
}

// HireTerms are the employment details HR supplies when converting an applicant.
type HireTerms struct {
	Email        string
	Password     string
	Gender       string
	DepartmentID string
	PositionID   string
	Salary       *float64
	DateHired    time.Time
}
