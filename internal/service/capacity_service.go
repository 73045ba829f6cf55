package service

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/smit-institute/registration-api/internal/models"
	appErrors "github.com/smit-institute/registration-api/pkg/errors"
)

type courseLedgerRepository interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
	ReserveSeat(ctx context.Context, id string) (bool, error)
	ReleaseSeat(ctx context.Context, id string) error
	AvailableSeats(ctx context.Context, id string) (int, error)
}

// CapacityLedger owns a course's seat counters. The reserve decision and the
// increment are a single conditional update in the repository; this layer
// classifies a refused reservation into a caller-facing error kind.
type CapacityLedger struct {
	courses courseLedgerRepository
	metrics *MetricsService
	logger  *zap.Logger
}

// NewCapacityLedger constructs a CapacityLedger.
func NewCapacityLedger(courses courseLedgerRepository, metrics *MetricsService, logger *zap.Logger) *CapacityLedger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CapacityLedger{courses: courses, metrics: metrics, logger: logger}
}

// TryReserveSeat atomically claims one seat. Concurrent callers racing for
// the last seat see exactly one success; the rest fail with COURSE_FULL.
func (l *CapacityLedger) TryReserveSeat(ctx context.Context, courseID string) error {
	reserved, err := l.courses.ReserveSeat(ctx, courseID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrStorageUnavailable.Code, appErrors.ErrStorageUnavailable.Status, "failed to reserve seat")
	}
	if reserved {
		if l.metrics != nil {
			l.metrics.ObserveSeatReservation("granted")
		}
		return nil
	}
	if l.metrics != nil {
		l.metrics.ObserveSeatReservation("denied")
	}

	// The conditional update matched nothing; read the row to tell the
	// caller why. The refusal itself was already decided atomically.
	course, err := l.courses.FindByID(ctx, courseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.ErrCourseNotFound
		}
		return appErrors.Wrap(err, appErrors.ErrStorageUnavailable.Code, appErrors.ErrStorageUnavailable.Status, "failed to load course")
	}
	if course.Status == models.CourseStatusInactive {
		return appErrors.ErrCourseInactive
	}
	return appErrors.ErrCourseFull
}

// ReleaseSeat returns one seat. Idempotent: releasing a course already at
// zero enrolled is a no-op.
func (l *CapacityLedger) ReleaseSeat(ctx context.Context, courseID string) error {
	if err := l.courses.ReleaseSeat(ctx, courseID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrStorageUnavailable.Code, appErrors.ErrStorageUnavailable.Status, "failed to release seat")
	}
	return nil
}

// AvailableSeats returns the advisory point-in-time remaining capacity. The
// result must never back a subsequent reserve decision.
func (l *CapacityLedger) AvailableSeats(ctx context.Context, courseID string) (int, error) {
	seats, err := l.courses.AvailableSeats(ctx, courseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, appErrors.ErrCourseNotFound
		}
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read seats")
	}
	return seats, nil
}
