package employee

import (
	"strings"
	"time"

	"ems/internal/domain/record"
)

type Employee struct {
	ID                 string        `json:"id"`
	EmployeeNumber     string        `json:"employeeNumber"`
	FirstName          string        `json:"firstName"`
	LastName           string        `json:"lastName"`
	Gender             string        `json:"gender"`
	Email              string        `json:"email"`
	Phone              string        `json:"phone"`
	Address            string        `json:"address"`
	DateOfBirth        *time.Time    `json:"dateOfBirth,omitempty"`
	DateHired          time.Time     `json:"dateHired"`
	Salary             *float64      `json:"salary,omitempty"`
	Status             record.Status `json:"status"`
	DepartmentID       string        `json:"departmentId"`
	DepartmentName     string        `json:"departmentName,omitempty"`
	PositionID         string        `json:"positionId"`
	PositionTitle      string        `json:"positionTitle,omitempty"`
	UserID             string        `json:"userId,omitempty"`
	ProfilePicturePath string        `json:"profilePicturePath,omitempty"`
	CreatedAt          time.Time     `json:"createdAt"`
	UpdatedAt          time.Time     `json:"updatedAt"`
}

func (e Employee) FullName() string {
	return strings.TrimSpace(e.FirstName + " " + e.LastName)
}

// Registration carries the login created together with a new employee.
type Registration struct {
	Email    string
	Password string
	Role     string
}
