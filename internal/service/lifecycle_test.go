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

type mockLifecycleRepo struct {
	students map[string]*models.StudentDetail
	commit   bool
	released []string
	details  []*models.EnrollmentDetail
}

func (m *mockLifecycleRepo) FindByID(ctx context.Context, id string) (*models.StudentDetail, error) {
	if s, ok := m.students[id]; ok {
		copied := *s
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockLifecycleRepo) TransitionStatus(ctx context.Context, id string, from, to models.RegistrationStatus,
	detail *models.EnrollmentDetail, payment *models.PaymentInfo, releaseCourseID string) (bool, error) {
	if !m.commit {
		return false, nil
	}
	s := m.students[id]
	if s.Status != from {
		return false, nil
	}
	s.Status = to
	if detail != nil {
		s.BatchNumber = &detail.BatchNumber
		s.RollNumber = &detail.RollNumber
		s.EnrolledCampus = &detail.Campus
	}
	if releaseCourseID != "" {
		m.released = append(m.released, releaseCourseID)
	}
	m.details = append(m.details, detail)
	return true, nil
}

type recordingSink struct {
	events []models.StatusChanged
}

func (r *recordingSink) OnStatusChanged(event models.StatusChanged) {
	r.events = append(r.events, event)
}

func newLifecycleFixture(status models.RegistrationStatus) (*mockLifecycleRepo, *recordingSink, *RegistrationLifecycle) {
	repo := &mockLifecycleRepo{
		commit: true,
		students: map[string]*models.StudentDetail{
			"s1": {Student: models.Student{ID: "s1", CourseID: "c1", RegistrationNumber: "SMIT20260001", Status: status}},
		},
	}
	sink := &recordingSink{}
	return repo, sink, NewRegistrationLifecycle(repo, sink, nil, zap.NewNop())
}

func TestLifecycleApprove(t *testing.T) {
	repo, sink, lifecycle := newLifecycleFixture(models.StatusPending)

	updated, err := lifecycle.Transition(context.Background(), "s1", models.StatusApproved, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, updated.Status)
	assert.Empty(t, repo.released, "approval keeps the seat already held")
	require.Len(t, sink.events, 1)
	assert.Equal(t, models.StatusPending, sink.events[0].OldStatus)
	assert.Equal(t, models.StatusApproved, sink.events[0].NewStatus)
}

func TestLifecycleRejectReleasesSeat(t *testing.T) {
	repo, _, lifecycle := newLifecycleFixture(models.StatusPending)

	updated, err := lifecycle.Transition(context.Background(), "s1", models.StatusRejected, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, models.StatusRejected, updated.Status)
	assert.Equal(t, []string{"c1"}, repo.released)
}

func TestLifecycleRejectAfterApproval(t *testing.T) {
	repo, _, lifecycle := newLifecycleFixture(models.StatusApproved)

	_, err := lifecycle.Transition(context.Background(), "s1", models.StatusRejected, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"c1"}, repo.released)
}

func TestLifecycleEnrollPopulatesDetail(t *testing.T) {
	repo, _, lifecycle := newLifecycleFixture(models.StatusApproved)
	detail := &models.EnrollmentDetail{BatchNumber: "B-14", RollNumber: "R-0099", Campus: "Main Campus"}

	updated, err := lifecycle.Transition(context.Background(), "s1", models.StatusEnrolled, detail, nil)
	require.NoError(t, err)
	assert.Equal(t, models.StatusEnrolled, updated.Status)
	require.NotNil(t, updated.BatchNumber)
	assert.Equal(t, "B-14", *updated.BatchNumber)
	assert.Empty(t, repo.released, "enrollment keeps the seat already held")
}

func TestLifecycleEnrollFastPathFromPending(t *testing.T) {
	_, _, lifecycle := newLifecycleFixture(models.StatusPending)
	detail := &models.EnrollmentDetail{BatchNumber: "B-1", RollNumber: "R-1", Campus: "Main Campus"}

	updated, err := lifecycle.Transition(context.Background(), "s1", models.StatusEnrolled, detail, nil)
	require.NoError(t, err)
	assert.Equal(t, models.StatusEnrolled, updated.Status)
}

func TestLifecycleEnrollRequiresDetail(t *testing.T) {
	repo, sink, lifecycle := newLifecycleFixture(models.StatusApproved)

	_, err := lifecycle.Transition(context.Background(), "s1", models.StatusEnrolled, nil, nil)
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
	assert.Equal(t, models.StatusApproved, repo.students["s1"].Status)
	assert.Empty(t, sink.events)
}

func TestLifecycleTerminalStatesRejectAllTargets(t *testing.T) {
	targets := []models.RegistrationStatus{models.StatusPending, models.StatusApproved, models.StatusRejected, models.StatusEnrolled}
	for _, terminal := range []models.RegistrationStatus{models.StatusRejected, models.StatusEnrolled} {
		for _, target := range targets {
			repo, sink, lifecycle := newLifecycleFixture(terminal)

			_, err := lifecycle.Transition(context.Background(), "s1", target, nil, nil)
			require.Error(t, err, "from %s to %s", terminal, target)
			assert.True(t, appErrors.Is(err, appErrors.ErrInvalidTransition))
			assert.Equal(t, terminal, repo.students["s1"].Status)
			assert.Empty(t, repo.released)
			assert.Empty(t, sink.events)
		}
	}
}

func TestLifecycleConcurrentTransitionLoses(t *testing.T) {
	repo, sink, lifecycle := newLifecycleFixture(models.StatusPending)
	repo.commit = false

	_, err := lifecycle.Transition(context.Background(), "s1", models.StatusApproved, nil, nil)
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrInvalidTransition))
	assert.Empty(t, sink.events)
}

func TestLifecycleUnknownStudent(t *testing.T) {
	_, _, lifecycle := newLifecycleFixture(models.StatusPending)

	_, err := lifecycle.Transition(context.Background(), "missing", models.StatusApproved, nil, nil)
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}
