package recruitment

import (
	"context"
	"regexp"
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarkHiredOnFinalApplication(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	at := time.Date(2025, 5, 2, 0, 0, 0, 0, time.UTC)
	mock.ExpectExec(regexp.QuoteMeta("SET status = 'hired', hired_employee_id = $1, date_reviewed = $2")).
		WithArgs("emp-1", at, "app-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS (SELECT 1 FROM job_applications WHERE id = $1)")).
		WithArgs("app-1").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

	err = NewStore(mock).MarkHired(context.Background(), "app-1", "emp-1", at)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteReturnsResumePath(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("DELETE FROM job_applications").
		WithArgs("app-1").
		WillReturnRows(pgxmock.NewRows([]string{"resume"}).AddRow("/uploads/resumes/cv_x.pdf"))
	mock.ExpectQuery("DELETE FROM job_applications").
		WithArgs("app-2").
		WillReturnRows(pgxmock.NewRows([]string{"resume"}))

	store := NewStore(mock)
	path, err := store.Delete(context.Background(), "app-1")
	require.NoError(t, err)
	assert.Equal(t, "/uploads/resumes/cv_x.pdf", path)

	_, err = store.Delete(context.Background(), "app-2")
	assert.ErrorIs(t, err, ErrNotFound)
}
