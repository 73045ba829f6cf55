package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/smit-institute/registration-api/internal/models"
	appErrors "github.com/smit-institute/registration-api/pkg/errors"
)

const (
	courseListCacheKey = "courses:list:%s:%s:%s"
	courseListCacheTTL = time.Minute
)

type courseRepository interface {
	List(ctx context.Context, filter models.CourseFilter) ([]models.Course, error)
	FindByID(ctx context.Context, id string) (*models.Course, error)
	Create(ctx context.Context, course *models.Course) error
	Update(ctx context.Context, course *models.Course) error
	Delete(ctx context.Context, id string) error
}

type studentCounter interface {
	CountByCourse(ctx context.Context, courseID string) (int, error)
}

type readCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

// CourseRequest describes course create/update payloads.
type CourseRequest struct {
	Code        string              `json:"code" validate:"required"`
	Name        string              `json:"name" validate:"required"`
	Description string              `json:"description" validate:"required"`
	Duration    string              `json:"duration" validate:"required"`
	Fees        float64             `json:"fees" validate:"gte=0"`
	Instructor  string              `json:"instructor" validate:"required"`
	Campus      string              `json:"campus" validate:"required"`
	City        string              `json:"city" validate:"required"`
	MaxStudents int                 `json:"max_students" validate:"required,gte=1"`
	Status      models.CourseStatus `json:"status" validate:"omitempty,oneof=active inactive"`
}

// CourseView is the listing shape with derived seat info.
type CourseView struct {
	models.Course
	AvailableSeatsCount int  `json:"available_seats"`
	Full                bool `json:"is_full"`
}

// CourseService manages course administration and public listings.
type CourseService struct {
	courses   courseRepository
	students  studentCounter
	cache     readCache
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCourseService constructs CourseService.
func NewCourseService(courses courseRepository, students studentCounter, cache readCache, validate *validator.Validate, logger *zap.Logger) *CourseService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CourseService{courses: courses, students: students, cache: cache, validator: validate, logger: logger}
}

// List returns courses with derived seat availability, cached briefly. The
// cached seat numbers are display-only; reservations never consult them.
func (s *CourseService) List(ctx context.Context, filter models.CourseFilter) ([]CourseView, error) {
	key := fmt.Sprintf(courseListCacheKey, filter.Status, filter.Campus, filter.City)
	if s.cache != nil {
		var cached []CourseView
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			return cached, nil
		} else if !appErrors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("course list cache read failed", zap.Error(err))
		}
	}

	courses, err := s.courses.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list courses")
	}

	views := make([]CourseView, len(courses))
	for i, course := range courses {
		views[i] = CourseView{Course: course, AvailableSeatsCount: course.AvailableSeats(), Full: course.IsFull()}
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, views, courseListCacheTTL); err != nil {
			s.logger.Warn("course list cache write failed", zap.Error(err))
		}
	}
	return views, nil
}

// Get returns a single course with derived seat info.
func (s *CourseService) Get(ctx context.Context, id string) (*CourseView, error) {
	course, err := s.courses.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrCourseNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	return &CourseView{Course: *course, AvailableSeatsCount: course.AvailableSeats(), Full: course.IsFull()}, nil
}

// Create adds a new course.
func (s *CourseService) Create(ctx context.Context, req CourseRequest) (*models.Course, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}

	course := &models.Course{
		Code:        req.Code,
		Name:        req.Name,
		Description: req.Description,
		Duration:    req.Duration,
		Fees:        req.Fees,
		Instructor:  req.Instructor,
		Campus:      req.Campus,
		City:        req.City,
		MaxStudents: req.MaxStudents,
		Status:      req.Status,
	}
	if err := s.courses.Create(ctx, course); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create course")
	}
	s.invalidateListings(ctx)
	return course, nil
}

// Update modifies course metadata. The seat cap may grow or shrink; the
// enrolled counter is untouched and availability is recomputed from the pair.
func (s *CourseService) Update(ctx context.Context, id string, req CourseRequest) (*models.Course, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}

	course, err := s.courses.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrCourseNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}

	course.Code = req.Code
	course.Name = req.Name
	course.Description = req.Description
	course.Duration = req.Duration
	course.Fees = req.Fees
	course.Instructor = req.Instructor
	course.Campus = req.Campus
	course.City = req.City
	course.MaxStudents = req.MaxStudents
	if req.Status != "" {
		course.Status = req.Status
	}

	if err := s.courses.Update(ctx, course); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update course")
	}
	s.invalidateListings(ctx)
	return course, nil
}

// Delete removes a course. Refused while any registration references it.
func (s *CourseService) Delete(ctx context.Context, id string) error {
	if _, err := s.courses.FindByID(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.ErrCourseNotFound
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}

	count, err := s.students.CountByCourse(ctx, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check course references")
	}
	if count > 0 {
		return appErrors.Clone(appErrors.ErrConflict, "course has registered students")
	}

	if err := s.courses.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete course")
	}
	s.invalidateListings(ctx)
	return nil
}

func (s *CourseService) invalidateListings(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, "courses:list:*"); err != nil {
		s.logger.Warn("course cache invalidation failed", zap.Error(err))
	}
}
