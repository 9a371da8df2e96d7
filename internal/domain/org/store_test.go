package org

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ems/internal/domain/auth"
	"ems/internal/domain/record"
)

var hr = auth.Actor{UserID: "hr-1", Role: auth.RoleHR}

func TestDeleteDepartmentInUseFails(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM departments WHERE id = $1")).
		WithArgs("d1").
		WillReturnError(&pgconn.PgError{Code: foreignKeyViolationCode})

	svc := NewDepartmentService(NewStore(mock))
	assert.ErrorIs(t, svc.Delete(context.Background(), hr, "d1"), ErrInUse)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeactivateDepartmentAlwaysSucceeds(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec(regexp.QuoteMeta("UPDATE departments SET status = $1 WHERE id = $2")).
		WithArgs("inactive", "d1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	svc := NewDepartmentService(NewStore(mock))
	assert.NoError(t, svc.Deactivate(context.Background(), hr, "d1"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeletePositionInUseFails(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM positions WHERE id = $1")).
		WithArgs("p1").
		WillReturnError(&pgconn.PgError{Code: foreignKeyViolationCode})

	svc := NewPositionService(NewStore(mock))
	assert.ErrorIs(t, svc.Delete(context.Background(), hr, "p1"), ErrInUse)
}

func TestCreateDepartmentDuplicateName(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("INSERT INTO departments").
		WithArgs("Finance", nil, "active").
		WillReturnError(&pgconn.PgError{Code: uniqueViolationCode})

	svc := NewDepartmentService(NewStore(mock))
	_, err = svc.Create(context.Background(), hr, Department{Name: " Finance "})
	assert.ErrorIs(t, err, ErrDuplicateName)
}

func TestListPositionsActiveOnlyForEmployees(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("FROM positions").
		WithArgs(false).
		WillReturnRows(pgxmock.NewRows([]string{"id", "title", "description", "status", "date_created"}).
			AddRow("p1", "Engineer", "", "active", time.Now()))

	svc := NewPositionService(NewStore(mock))
	list, err := svc.List(context.Background(), auth.Actor{Role: auth.RoleEmployee}, true)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, record.StatusActive, list[0].Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWritesRequireHR(t *testing.T) {
	svc := NewDepartmentService(nil)
	_, err := svc.Create(context.Background(), auth.Actor{Role: auth.RoleEmployee}, Department{Name: "X"})
	assert.ErrorIs(t, err, ErrForbidden)
}
