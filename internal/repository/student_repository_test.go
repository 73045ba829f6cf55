package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smit-institute/registration-api/internal/models"
)

func newStudentMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestStudentRepositoryExistsByUserOrCNIC(t *testing.T) {
	db, mock, cleanup := newStudentMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM students WHERE user_id = $1 OR cnic = $2 LIMIT 1")).
		WithArgs("user-1", "4210112345671").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))

	exists, err := repo.ExistsByUserOrCNIC(context.Background(), "user-1", "4210112345671")
	require.NoError(t, err)
	assert.True(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryExistsByUserOrCNICNoRows(t *testing.T) {
	db, mock, cleanup := newStudentMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM students WHERE user_id = $1 OR cnic = $2 LIMIT 1")).
		WithArgs("user-1", "4210112345671").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}))

	exists, err := repo.ExistsByUserOrCNIC(context.Background(), "user-1", "4210112345671")
	require.NoError(t, err)
	assert.False(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryCreateDefaults(t *testing.T) {
	db, mock, cleanup := newStudentMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectExec("INSERT INTO students").
		WillReturnResult(sqlmock.NewResult(1, 1))

	student := &models.Student{
		UserID:             "user-1",
		RegistrationNumber: "SMIT20260001",
		FullName:           "Applicant",
		CNIC:               "4210112345671",
		CourseID:           "course-1",
	}
	require.NoError(t, repo.Create(context.Background(), student))
	assert.Equal(t, models.StatusPending, student.Status)
	assert.Equal(t, models.PaymentPending, student.PaymentStatus)
	assert.NotEmpty(t, student.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryTransitionStatusWithRelease(t *testing.T) {
	db, mock, cleanup := newStudentMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE students SET status = $3, updated_at = NOW() WHERE id = $1 AND status = $2")).
		WithArgs("stu-1", models.StatusPending, models.StatusRejected).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("SET enrolled_students = GREATEST(enrolled_students - 1, 0)")).
		WithArgs("course-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	ok, err := repo.TransitionStatus(context.Background(), "stu-1", models.StatusPending, models.StatusRejected, nil, nil, "course-1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryTransitionStatusStaleRead(t *testing.T) {
	db, mock, cleanup := newStudentMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE students SET status = $3, updated_at = NOW() WHERE id = $1 AND status = $2")).
		WithArgs("stu-1", models.StatusPending, models.StatusApproved).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	ok, err := repo.TransitionStatus(context.Background(), "stu-1", models.StatusPending, models.StatusApproved, nil, nil, "")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryTransitionStatusEnroll(t *testing.T) {
	db, mock, cleanup := newStudentMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	detail := &models.EnrollmentDetail{BatchNumber: "B-14", RollNumber: "R-0099", Campus: "Main Campus"}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("batch_number = $4, roll_number = $5, enrolled_campus = $6, enrolled_at = NOW()")).
		WithArgs("stu-1", models.StatusApproved, models.StatusEnrolled, "B-14", "R-0099", "Main Campus").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	ok, err := repo.TransitionStatus(context.Background(), "stu-1", models.StatusApproved, models.StatusEnrolled, detail, nil, "")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryStatusCounts(t *testing.T) {
	db, mock, cleanup := newStudentMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	rows := sqlmock.NewRows([]string{"status", "count"}).
		AddRow(models.StatusPending, 4).
		AddRow(models.StatusEnrolled, 2)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT status, COUNT(*) AS count FROM students GROUP BY status")).
		WillReturnRows(rows)

	counts, err := repo.StatusCounts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, counts[models.StatusPending])
	assert.Equal(t, 2, counts[models.StatusEnrolled])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryUpdateProfileRefusedAfterPending(t *testing.T) {
	db, mock, cleanup := newStudentMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("WHERE id = $1 AND status = 'pending'")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := repo.UpdateProfile(context.Background(), &models.Student{ID: "stu-1", DateOfBirth: time.Now()})
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}
