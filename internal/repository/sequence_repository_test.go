package repository

import (
	"context"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSequenceMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestSequenceRepositoryNext(t *testing.T) {
	db, mock, cleanup := newSequenceMock(t)
	defer cleanup()
	repo := NewSequenceRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("ON CONFLICT (year)")).
		WithArgs(2026).
		WillReturnRows(sqlmock.NewRows([]string{"last_issued"}).AddRow(42))

	issued, err := repo.Next(context.Background(), 2026)
	require.NoError(t, err)
	assert.Equal(t, 42, issued)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSequenceRepositoryCurrentEmptyYear(t *testing.T) {
	db, mock, cleanup := newSequenceMock(t)
	defer cleanup()
	repo := NewSequenceRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COALESCE(MAX(last_issued), 0) FROM registration_sequences WHERE year = $1")).
		WithArgs(2026).
		WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow(0))

	issued, err := repo.Current(context.Background(), 2026)
	require.NoError(t, err)
	assert.Zero(t, issued)
	assert.NoError(t, mock.ExpectationsWereMet())
}
