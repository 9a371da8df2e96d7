package shared

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"ems/internal/domain/employee"
	"ems/internal/domain/record"
	"ems/internal/requestctx"
)

// multipartMemory is how much of a multipart body is kept in memory before
// file parts spill to disk.
const multipartMemory = 8 << 20

// DecodeRequest reads a JSON body, or for multipart forms the JSON held in the
// "data" field. File parts are left for FormFile.
func DecodeRequest(r *http.Request, dst any) error {
	if !IsMultipart(r) {
		return DecodeJSON(r, dst)
	}
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		return err
	}
	raw := strings.TrimSpace(r.FormValue("data"))
	if raw == "" {
		return errors.New("multipart request requires a data field")
	}
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// AuditRecorder stores an audit trail entry.
type AuditRecorder interface {
	Record(ctx context.Context, actorID, action, entityType, entityID string, before, after any) error
}

// RecordAudit is best-effort: a failed audit write is logged and the request carries on.
func RecordAudit(ctx context.Context, recorder AuditRecorder, actorID, action, entityType, entityID string, before, after any) {
	if recorder == nil {
		return
	}
	if err := recorder.Record(ctx, actorID, action, entityType, entityID, before, after); err != nil {
		slog.Warn("audit "+action+" failed", "entityId", entityID, "err", err)
	}
}

// EmployeePayload is the HR-editable employee record as it arrives over HTTP.
type EmployeePayload struct {
	FirstName    string   `json:"firstName" validate:"required,max=100"`
	LastName     string   `json:"lastName" validate:"required,max=100"`
	Gender       string   `json:"gender" validate:"omitempty,oneof=Male Female Other"`
	Email        string   `json:"email" validate:"required,email,max=254"`
	Phone        string   `json:"phone" validate:"max=30"`
	Address      string   `json:"address" validate:"max=500"`
	DateOfBirth  string   `json:"dateOfBirth"`
	DateHired    string   `json:"dateHired"`
	Salary       *float64 `json:"salary" validate:"omitempty,gte=0"`
	DepartmentID string   `json:"departmentId" validate:"required,uuid"`
	PositionID   string   `json:"positionId" validate:"required,uuid"`
	Status       string   `json:"status" validate:"omitempty,oneof=active inactive"`
}

// Employee validates the payload into v and returns the domain record.
func (p EmployeePayload) Employee(v *Validator) employee.Employee {
	v.Struct(p)
	emp := employee.Employee{
		FirstName:    strings.TrimSpace(p.FirstName),
		LastName:     strings.TrimSpace(p.LastName),
		Gender:       strings.TrimSpace(p.Gender),
		Email:        strings.TrimSpace(p.Email),
		Phone:        strings.TrimSpace(p.Phone),
		Address:      strings.TrimSpace(p.Address),
		DateOfBirth:  v.OptionalDate("dateOfBirth", p.DateOfBirth),
		Salary:       p.Salary,
		DepartmentID: strings.TrimSpace(p.DepartmentID),
		PositionID:   strings.TrimSpace(p.PositionID),
		Status:       record.Status(p.Status),
	}
	if hired := v.OptionalDate("dateHired", p.DateHired); hired != nil {
		emp.DateHired = *hired
	}
	if emp.DateOfBirth != nil && emp.DateOfBirth.After(time.Now()) {
		v.Add("dateOfBirth", "must be in the past")
	}
	return emp
}

// DecodeValid decodes a JSON body and runs its validate tags. On failure the
// response is already written.
func DecodeValid(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := DecodeJSON(r, dst); err != nil {
		DecodeFailed(w, r, err)
		return false
	}
	v := NewValidator()
	v.Struct(dst)
	return !v.Reject(w, requestctx.GetRequestID(r.Context()))
}
