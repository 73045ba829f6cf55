package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/smit-institute/registration-api/internal/models"
	appErrors "github.com/smit-institute/registration-api/pkg/errors"
)

type mockCourseLedgerRepo struct {
	courses  map[string]*models.Course
	reserve  bool
	released []string
}

func (m *mockCourseLedgerRepo) FindByID(ctx context.Context, id string) (*models.Course, error) {
	if c, ok := m.courses[id]; ok {
		return c, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockCourseLedgerRepo) ReserveSeat(ctx context.Context, id string) (bool, error) {
	if m.reserve {
		if c, ok := m.courses[id]; ok {
			c.EnrolledStudents++
		}
	}
	return m.reserve, nil
}

func (m *mockCourseLedgerRepo) ReleaseSeat(ctx context.Context, id string) error {
	m.released = append(m.released, id)
	if c, ok := m.courses[id]; ok && c.EnrolledStudents > 0 {
		c.EnrolledStudents--
	}
	return nil
}

func (m *mockCourseLedgerRepo) AvailableSeats(ctx context.Context, id string) (int, error) {
	if c, ok := m.courses[id]; ok {
		return c.AvailableSeats(), nil
	}
	return 0, sql.ErrNoRows
}

func TestCapacityLedgerTryReserveSeat(t *testing.T) {
	repo := &mockCourseLedgerRepo{reserve: true, courses: map[string]*models.Course{
		"c1": {ID: "c1", Status: models.CourseStatusActive, MaxStudents: 2},
	}}
	ledger := NewCapacityLedger(repo, nil, zap.NewNop())

	require.NoError(t, ledger.TryReserveSeat(context.Background(), "c1"))
	assert.Equal(t, 1, repo.courses["c1"].EnrolledStudents)
}

func TestCapacityLedgerTryReserveSeatFull(t *testing.T) {
	repo := &mockCourseLedgerRepo{reserve: false, courses: map[string]*models.Course{
		"c1": {ID: "c1", Status: models.CourseStatusActive, MaxStudents: 1, EnrolledStudents: 1},
	}}
	ledger := NewCapacityLedger(repo, nil, zap.NewNop())

	err := ledger.TryReserveSeat(context.Background(), "c1")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrCourseFull))
}

func TestCapacityLedgerTryReserveSeatInactive(t *testing.T) {
	repo := &mockCourseLedgerRepo{reserve: false, courses: map[string]*models.Course{
		"c1": {ID: "c1", Status: models.CourseStatusInactive, MaxStudents: 10},
	}}
	ledger := NewCapacityLedger(repo, nil, zap.NewNop())

	err := ledger.TryReserveSeat(context.Background(), "c1")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrCourseInactive))
}

func TestCapacityLedgerTryReserveSeatNotFound(t *testing.T) {
	repo := &mockCourseLedgerRepo{reserve: false}
	ledger := NewCapacityLedger(repo, nil, zap.NewNop())

	err := ledger.TryReserveSeat(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrCourseNotFound))
}

func TestCapacityLedgerReleaseSeatIdempotent(t *testing.T) {
	repo := &mockCourseLedgerRepo{courses: map[string]*models.Course{
		"c1": {ID: "c1", Status: models.CourseStatusActive, MaxStudents: 5, EnrolledStudents: 0},
	}}
	ledger := NewCapacityLedger(repo, nil, zap.NewNop())

	require.NoError(t, ledger.ReleaseSeat(context.Background(), "c1"))
	require.NoError(t, ledger.ReleaseSeat(context.Background(), "c1"))
	assert.Equal(t, 0, repo.courses["c1"].EnrolledStudents)
}

func TestCapacityLedgerAvailableSeats(t *testing.T) {
	repo := &mockCourseLedgerRepo{courses: map[string]*models.Course{
		"c1": {ID: "c1", MaxStudents: 10, EnrolledStudents: 4},
	}}
	ledger := NewCapacityLedger(repo, nil, zap.NewNop())

	seats, err := ledger.AvailableSeats(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, 6, seats)
}
