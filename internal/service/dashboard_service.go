package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/smit-institute/registration-api/internal/models"
	appErrors "github.com/smit-institute/registration-api/pkg/errors"
)

const dashboardCacheKey = "dashboard:stats"

type dashboardStudentRepository interface {
	StatusCounts(ctx context.Context) (map[models.RegistrationStatus]int, error)
	Recent(ctx context.Context, limit int) ([]models.StudentDetail, error)
}

type dashboardCourseRepository interface {
	SeatSummaries(ctx context.Context) ([]models.CourseSeats, error)
}

// DashboardStats aggregates the admin landing-page numbers.
type DashboardStats struct {
	TotalStudents       int                   `json:"total_students"`
	PendingApplications int                   `json:"pending_applications"`
	ApprovedStudents    int                   `json:"approved_students"`
	RejectedStudents    int                   `json:"rejected_students"`
	EnrolledStudents    int                   `json:"enrolled_students"`
	CourseStats         []models.CourseSeats  `json:"course_stats"`
	RecentApplications  []models.StudentDetail `json:"recent_applications"`
	GeneratedAt         time.Time             `json:"generated_at"`
}

// DashboardService serves cached admin statistics.
type DashboardService struct {
	students dashboardStudentRepository
	courses  dashboardCourseRepository
	cache    readCache
	ttl      time.Duration
	logger   *zap.Logger
}

// NewDashboardService constructs DashboardService.
func NewDashboardService(students dashboardStudentRepository, courses dashboardCourseRepository, cache readCache, ttl time.Duration, logger *zap.Logger) *DashboardService {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{students: students, courses: courses, cache: cache, ttl: ttl, logger: logger}
}

// Stats returns aggregate registration and seat numbers, cached for the
// configured TTL. The numbers are advisory snapshots for display.
func (s *DashboardService) Stats(ctx context.Context) (*DashboardStats, error) {
	if s.cache != nil {
		var cached DashboardStats
		if err := s.cache.Get(ctx, dashboardCacheKey, &cached); err == nil {
			return &cached, nil
		} else if !appErrors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("dashboard cache read failed", zap.Error(err))
		}
	}

	counts, err := s.students.StatusCounts(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count registrations")
	}
	courseStats, err := s.courses.SeatSummaries(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course stats")
	}
	recent, err := s.students.Recent(ctx, 5)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load recent applications")
	}

	total := 0
	for _, c := range counts {
		total += c
	}
	stats := &DashboardStats{
		TotalStudents:       total,
		PendingApplications: counts[models.StatusPending],
		ApprovedStudents:    counts[models.StatusApproved],
		RejectedStudents:    counts[models.StatusRejected],
		EnrolledStudents:    counts[models.StatusEnrolled],
		CourseStats:         courseStats,
		RecentApplications:  recent,
		GeneratedAt:         time.Now().UTC(),
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, dashboardCacheKey, stats, s.ttl); err != nil {
			s.logger.Warn("dashboard cache write failed", zap.Error(err))
		}
	}
	return stats, nil
}
