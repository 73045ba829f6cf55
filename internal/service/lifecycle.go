package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/smit-institute/registration-api/internal/models"
	appErrors "github.com/smit-institute/registration-api/pkg/errors"
)

// NotificationSink receives committed status-change events. Delivery is
// best-effort: implementations must not block, and a delivery failure never
// affects the transition.
type NotificationSink interface {
	OnStatusChanged(event models.StatusChanged)
}

type lifecycleStudentRepository interface {
	FindByID(ctx context.Context, id string) (*models.StudentDetail, error)
	TransitionStatus(ctx context.Context, id string, from, to models.RegistrationStatus,
		detail *models.EnrollmentDetail, payment *models.PaymentInfo, releaseCourseID string) (bool, error)
}

// transition pairs a lifecycle edge with its side effects.
type transition struct {
	releasesSeat bool
	needsDetail  bool
}

// transitions is the full lifecycle table. pending, approved and enrolled
// all hold a seat; only moving into rejected releases it. rejected and
// enrolled are terminal. Edges absent from the table fail with
// INVALID_TRANSITION and leave all state untouched.
var transitions = map[models.RegistrationStatus]map[models.RegistrationStatus]transition{
	models.StatusPending: {
		models.StatusApproved: {},
		models.StatusRejected: {releasesSeat: true},
		// Admin fast-path skipping approval.
		models.StatusEnrolled: {needsDetail: true},
	},
	models.StatusApproved: {
		models.StatusRejected: {releasesSeat: true},
		models.StatusEnrolled: {needsDetail: true},
	},
}

// RegistrationLifecycle owns status transitions for a single registration.
type RegistrationLifecycle struct {
	students lifecycleStudentRepository
	sink     NotificationSink
	metrics  *MetricsService
	logger   *zap.Logger
}

// NewRegistrationLifecycle constructs a RegistrationLifecycle.
func NewRegistrationLifecycle(students lifecycleStudentRepository, sink NotificationSink, metrics *MetricsService, logger *zap.Logger) *RegistrationLifecycle {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RegistrationLifecycle{students: students, sink: sink, metrics: metrics, logger: logger}
}

// Transition moves a registration to newStatus. The precondition is
// re-checked against the latest committed status inside the repository
// transaction, and the seat release rides in that same transaction, so a
// stale read can never produce partial effects.
func (l *RegistrationLifecycle) Transition(ctx context.Context, studentID string, newStatus models.RegistrationStatus,
	detail *models.EnrollmentDetail, payment *models.PaymentInfo) (*models.StudentDetail, error) {

	student, err := l.students.FindByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrStorageUnavailable.Code, appErrors.ErrStorageUnavailable.Status, "failed to load student")
	}

	edge, ok := transitions[student.Status][newStatus]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition,
			fmt.Sprintf("cannot transition from %s to %s", student.Status, newStatus))
	}
	if edge.needsDetail {
		if detail == nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "enrollment detail required")
		}
	} else {
		detail = nil
	}

	releaseCourseID := ""
	if edge.releasesSeat {
		releaseCourseID = student.CourseID
	}

	committed, err := l.students.TransitionStatus(ctx, studentID, student.Status, newStatus, detail, payment, releaseCourseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStorageUnavailable.Code, appErrors.ErrStorageUnavailable.Status, "failed to commit transition")
	}
	if !committed {
		// A concurrent transition changed the status between our read and
		// the conditional update.
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "registration status changed concurrently")
	}

	updated, err := l.students.FindByID(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reload student")
	}

	if l.metrics != nil {
		l.metrics.ObserveStatusTransition(string(student.Status), string(newStatus))
	}
	if l.sink != nil {
		l.sink.OnStatusChanged(models.StatusChanged{
			StudentID:          student.ID,
			RegistrationNumber: student.RegistrationNumber,
			OldStatus:          student.Status,
			NewStatus:          newStatus,
			OccurredAt:         time.Now().UTC(),
		})
	}

	l.logger.Info("registration status changed",
		zap.String("student_id", student.ID),
		zap.String("old_status", string(student.Status)),
		zap.String("new_status", string(newStatus)))

	return updated, nil
}
