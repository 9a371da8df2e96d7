package leave

import "time"

type Status string

const (
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
	StatusCancelled Status = "cancelled"
)

type Type string

const (
	TypeVacation  Type = "vacation"
	TypeSick      Type = "sick"
	TypeEmergency Type = "emergency"
	TypeMaternity Type = "maternity"
	TypePaternity Type = "paternity"
	TypeUnpaid    Type = "unpaid"
)

var Types = []Type{TypeVacation, TypeSick, TypeEmergency, TypeMaternity, TypePaternity, TypeUnpaid}

func (t Type) Valid() bool {
	for _, known := range Types {
		if t == known {
			return true
		}
	}
	return false
}

type Request struct {
	ID             string     `json:"id"`
	EmployeeID     string     `json:"employeeId"`
	EmployeeNumber string     `json:"employeeNumber,omitempty"`
	EmployeeName   string     `json:"employeeName,omitempty"`
	EmployeeEmail  string     `json:"-"`
	LeaveType      Type       `json:"leaveType"`
	StartDate      time.Time  `json:"startDate"`
	EndDate        time.Time  `json:"endDate"`
	TotalDays      int        `json:"totalDays"`
	Reason         string     `json:"reason"`
	Status         Status     `json:"status"`
	Remarks        string     `json:"remarks,omitempty"`
	DateFiled      time.Time  `json:"dateFiled"`
	DateProcessed  *time.Time `json:"dateProcessed,omitempty"`
}

type ListFilter struct {
	EmployeeID string
	Status     Status
	Ascending  bool
}
