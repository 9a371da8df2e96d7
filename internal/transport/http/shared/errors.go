package shared

import (
	"errors"
	"log/slog"
	"net/http"

	"ems/internal/domain/announcement"
	"ems/internal/domain/auth"
	"ems/internal/domain/dashboard"
	"ems/internal/domain/employee"
	"ems/internal/domain/leave"
	"ems/internal/domain/org"
	"ems/internal/domain/recruitment"
	"ems/internal/platform/blob"
	"ems/internal/requestctx"
	"ems/internal/transport/http/api"
)

type errorMapping struct {
	target error
	status int
	code   string
}

var errorMappings = []errorMapping{
	{employee.ErrNotFound, http.StatusNotFound, "not_found"},
	{org.ErrDepartmentNotFound, http.StatusNotFound, "not_found"},
	{org.ErrPositionNotFound, http.StatusNotFound, "not_found"},
	{leave.ErrNotFound, http.StatusNotFound, "not_found"},
	{recruitment.ErrNotFound, http.StatusNotFound, "not_found"},
	{announcement.ErrNotFound, http.StatusNotFound, "not_found"},
	{auth.ErrUserNotFound, http.StatusNotFound, "not_found"},

	{employee.ErrForbidden, http.StatusForbidden, "forbidden"},
	{org.ErrForbidden, http.StatusForbidden, "forbidden"},
	{leave.ErrForbidden, http.StatusForbidden, "forbidden"},
	{recruitment.ErrForbidden, http.StatusForbidden, "forbidden"},
	{announcement.ErrForbidden, http.StatusForbidden, "forbidden"},
	{dashboard.ErrForbidden, http.StatusForbidden, "forbidden"},
	{auth.ErrForbidden, http.StatusForbidden, "forbidden"},
	{employee.ErrNotLinked, http.StatusForbidden, "not_linked"},
	{leave.ErrNotLinked, http.StatusForbidden, "not_linked"},

	{auth.ErrEmailTaken, http.StatusConflict, "conflict"},
	{employee.ErrDuplicateNumber, http.StatusConflict, "conflict"},
	{employee.ErrUserAlreadyLinked, http.StatusConflict, "conflict"},
	{org.ErrDuplicateName, http.StatusConflict, "conflict"},
	{org.ErrInUse, http.StatusConflict, "conflict"},

	{leave.ErrInvalidTransition, http.StatusConflict, "invalid_state"},
	{leave.ErrNotApproved, http.StatusConflict, "invalid_state"},
	{recruitment.ErrInvalidTransition, http.StatusConflict, "invalid_state"},
	{auth.ErrMFAUnavailable, http.StatusConflict, "invalid_state"},
	{auth.ErrMFANotSetUp, http.StatusConflict, "invalid_state"},

	{leave.ErrInvalidDateRange, http.StatusBadRequest, "validation_error"},
	{leave.ErrUnknownType, http.StatusBadRequest, "validation_error"},
	{leave.ErrInactiveEmployee, http.StatusBadRequest, "validation_error"},
	{recruitment.ErrUnknownStatus, http.StatusBadRequest, "validation_error"},
	{announcement.ErrInvalidPriority, http.StatusBadRequest, "validation_error"},
	{employee.ErrInvalidReference, http.StatusBadRequest, "validation_error"},
	{blob.ErrUnknownPrefix, http.StatusBadRequest, "validation_error"},
	{auth.ErrInvalidResetToken, http.StatusBadRequest, "invalid_token"},

	{auth.ErrInvalidCredentials, http.StatusUnauthorized, "invalid_credentials"},
	{auth.ErrMFARequired, http.StatusUnauthorized, "mfa_required"},
	{auth.ErrMFAInvalid, http.StatusUnauthorized, "mfa_invalid"},
}

// WriteError maps a domain error onto the response envelope. Unknown errors
// are logged and reported as 500 without leaking their text.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	requestID := requestctx.GetRequestID(r.Context())

	var identityErr *auth.IdentityError
	if errors.As(err, &identityErr) {
		api.FailWithDetails(w, http.StatusUnprocessableEntity, "identity_error", "user identity could not be created",
			map[string]any{"reasons": identityErr.Reasons}, requestID)
		return
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		api.Fail(w, http.StatusRequestEntityTooLarge, "payload_too_large", "request body too large", requestID)
		return
	}
	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			if m.code == "validation_error" {
				FailValidation(w, requestID, []ValidationIssue{{Reason: m.target.Error()}})
				return
			}
			api.Fail(w, m.status, m.code, m.target.Error(), requestID)
			return
		}
	}

	slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "requestId", requestID, "err", err)
	api.Fail(w, http.StatusInternalServerError, "internal_error", "internal server error", requestID)
}

func Unauthorized(w http.ResponseWriter, r *http.Request) {
	api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", requestctx.GetRequestID(r.Context()))
}

func InvalidPayload(w http.ResponseWriter, r *http.Request) {
	api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", requestctx.GetRequestID(r.Context()))
}

// DecodeFailed reports a body that could not be decoded. Oversized bodies get 413.
func DecodeFailed(w http.ResponseWriter, r *http.Request, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		WriteError(w, r, err)
		return
	}
	InvalidPayload(w, r)
}
