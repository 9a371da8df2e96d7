package auth

import "time"

// Actor is the authenticated caller passed into every authorizing service call.
type Actor struct {
	UserID     string
	SessionID  string
	Role       string
	EmployeeID string
	Email      string
}

func (a Actor) IsHR() bool {
	return a.Role == RoleHR
}

func (a Actor) Authenticated() bool {
	return a.UserID != ""
}

type AuthUser struct {
	ID           string
	Email        string
	RoleName     string
	Password     string
	MFAEnabled   bool
	MFASecretEnc []byte
	EmployeeID   string
}

type SessionUser struct {
	ID         string `json:"id"`
	Email      string `json:"email"`
	Role       string `json:"role"`
	EmployeeID string `json:"employeeId,omitempty"`
}

type LoginResult struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expiresAt"`
	User      SessionUser `json:"user"`
}

type MFASetup struct {
	Secret     string `json:"secret"`
	OTPAuthURL string `json:"otpauthUrl"`
}
