package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/smit-institute/registration-api/internal/models"
	appErrors "github.com/smit-institute/registration-api/pkg/errors"
)

const pqUniqueViolation = "23505"

type registrationStudentRepository interface {
	ExistsByUserOrCNIC(ctx context.Context, userID, cnic string) (bool, error)
	Create(ctx context.Context, student *models.Student) error
	FindByID(ctx context.Context, id string) (*models.StudentDetail, error)
	FindByUserID(ctx context.Context, userID string) (*models.StudentDetail, error)
	List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, int, error)
	UpdateProfile(ctx context.Context, student *models.Student) (bool, error)
	UpdatePayment(ctx context.Context, id string, payment models.PaymentInfo) error
}

type seatLedger interface {
	TryReserveSeat(ctx context.Context, courseID string) error
	ReleaseSeat(ctx context.Context, courseID string) error
}

type numberAllocator interface {
	Next(ctx context.Context, year int) (string, error)
}

type statusTransitioner interface {
	Transition(ctx context.Context, studentID string, newStatus models.RegistrationStatus,
		detail *models.EnrollmentDetail, payment *models.PaymentInfo) (*models.StudentDetail, error)
}

// SubmitRegistrationRequest is the applicant's submission payload. UserID is
// taken from the authenticated identity, never from the body.
type SubmitRegistrationRequest struct {
	UserID            string    `json:"-" validate:"required"`
	FullName          string    `json:"full_name" validate:"required"`
	FatherName        string    `json:"father_name" validate:"required"`
	CNIC              string    `json:"cnic" validate:"required,len=13,numeric"`
	FatherCNIC        *string   `json:"father_cnic,omitempty" validate:"omitempty,len=13,numeric"`
	DateOfBirth       time.Time `json:"date_of_birth" validate:"required"`
	Gender            string    `json:"gender" validate:"required,oneof=Male Female Other"`
	Phone             string    `json:"phone" validate:"required,min=10,max=15,numeric"`
	Address           string    `json:"address" validate:"required"`
	City              string    `json:"city" validate:"required"`
	Country           string    `json:"country" validate:"required"`
	LastQualification string    `json:"last_qualification" validate:"required"`
	ComputerSkill     string    `json:"computer_skill" validate:"required,oneof=Beginner Intermediate Advanced"`
	HasLaptop         bool      `json:"has_laptop"`
	CourseID          string    `json:"course_id" validate:"required"`
	ClassPreference   string    `json:"class_preference" validate:"required,oneof=Morning Evening Weekend"`
	ProfilePicture    string    `json:"profile_picture" validate:"required,url"`
}

// UpdateProfileRequest carries owner edits, allowed only while pending.
type UpdateProfileRequest struct {
	FullName          string    `json:"full_name" validate:"required"`
	FatherName        string    `json:"father_name" validate:"required"`
	FatherCNIC        *string   `json:"father_cnic,omitempty" validate:"omitempty,len=13,numeric"`
	DateOfBirth       time.Time `json:"date_of_birth" validate:"required"`
	Gender            string    `json:"gender" validate:"required,oneof=Male Female Other"`
	Phone             string    `json:"phone" validate:"required,min=10,max=15,numeric"`
	Address           string    `json:"address" validate:"required"`
	City              string    `json:"city" validate:"required"`
	Country           string    `json:"country" validate:"required"`
	LastQualification string    `json:"last_qualification" validate:"required"`
	ComputerSkill     string    `json:"computer_skill" validate:"required,oneof=Beginner Intermediate Advanced"`
	HasLaptop         bool      `json:"has_laptop"`
	ClassPreference   string    `json:"class_preference" validate:"required,oneof=Morning Evening Weekend"`
	ProfilePicture    string    `json:"profile_picture" validate:"required,url"`
}

// ChangeStatusRequest is the admin transition payload.
type ChangeStatusRequest struct {
	Status     models.RegistrationStatus `json:"status" validate:"required,oneof=approved rejected enrolled"`
	Enrollment *models.EnrollmentDetail  `json:"enrollment,omitempty"`
	Payment    *models.PaymentInfo       `json:"payment,omitempty"`
}

// RegistrationService orchestrates the registration workflow: submission
// with seat reservation and number allocation, and admin status changes.
type RegistrationService struct {
	students  registrationStudentRepository
	ledger    seatLedger
	allocator numberAllocator
	lifecycle statusTransitioner
	validator *validator.Validate
	logger    *zap.Logger
}

// NewRegistrationService constructs RegistrationService.
func NewRegistrationService(students registrationStudentRepository, ledger seatLedger, allocator numberAllocator,
	lifecycle statusTransitioner, validate *validator.Validate, logger *zap.Logger) *RegistrationService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RegistrationService{students: students, ledger: ledger, allocator: allocator, lifecycle: lifecycle, validator: validate, logger: logger}
}

// Submit creates a new registration: duplicate guard, seat reservation,
// number allocation, then the pending record. The reservation and the row
// insert cross a persistence boundary, so a failed insert triggers a
// compensating seat release.
func (s *RegistrationService) Submit(ctx context.Context, req SubmitRegistrationRequest) (*models.StudentDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid registration payload")
	}

	// Also guards retried submissions after a timeout: a retry never
	// reserves a second seat for the same applicant.
	exists, err := s.students.ExistsByUserOrCNIC(ctx, req.UserID, req.CNIC)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStorageUnavailable.Code, appErrors.ErrStorageUnavailable.Status, "failed to check existing registration")
	}
	if exists {
		return nil, appErrors.ErrDuplicateApplication
	}

	if err := s.ledger.TryReserveSeat(ctx, req.CourseID); err != nil {
		return nil, err
	}

	year := time.Now().UTC().Year()
	number, err := s.allocator.Next(ctx, year)
	if err != nil {
		s.compensateRelease(ctx, req.CourseID, req.UserID)
		return nil, err
	}

	student := &models.Student{
		UserID:             req.UserID,
		RegistrationNumber: number,
		FullName:           req.FullName,
		FatherName:         req.FatherName,
		CNIC:               req.CNIC,
		FatherCNIC:         req.FatherCNIC,
		DateOfBirth:        req.DateOfBirth,
		Gender:             req.Gender,
		Phone:              req.Phone,
		Address:            req.Address,
		City:               req.City,
		Country:            req.Country,
		LastQualification:  req.LastQualification,
		ComputerSkill:      req.ComputerSkill,
		HasLaptop:          req.HasLaptop,
		CourseID:           req.CourseID,
		ClassPreference:    req.ClassPreference,
		ProfilePicture:     req.ProfilePicture,
		Status:             models.StatusPending,
	}

	if err := s.students.Create(ctx, student); err != nil {
		s.compensateRelease(ctx, req.CourseID, req.UserID)
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == pqUniqueViolation {
			// Two submissions for the same user or CNIC raced past the
			// duplicate check; the unique index caught the loser.
			return nil, appErrors.ErrDuplicateApplication
		}
		return nil, appErrors.Wrap(err, appErrors.ErrStorageUnavailable.Code, appErrors.ErrStorageUnavailable.Status, "failed to persist registration")
	}

	detail, err := s.students.FindByID(ctx, student.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load registration")
	}

	s.logger.Info("registration submitted",
		zap.String("student_id", student.ID),
		zap.String("registration_number", number),
		zap.String("course_id", req.CourseID))

	return detail, nil
}

// compensateRelease undoes a seat reservation after a later step failed. A
// failed release is escalated to the log as a consistency risk: the course
// may now under-count available seats until an operator corrects it. No
// automatic retry, to avoid masking a systemic storage problem.
func (s *RegistrationService) compensateRelease(ctx context.Context, courseID, userID string) {
	if err := s.ledger.ReleaseSeat(ctx, courseID); err != nil {
		s.logger.Error("consistency risk: compensating seat release failed",
			zap.String("course_id", courseID),
			zap.String("user_id", userID),
			zap.Error(err))
	}
}

// ChangeStatus delegates to the lifecycle state machine.
func (s *RegistrationService) ChangeStatus(ctx context.Context, studentID string, req ChangeStatusRequest) (*models.StudentDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid status payload")
	}
	if req.Enrollment != nil {
		if err := s.validator.Struct(req.Enrollment); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid enrollment detail")
		}
	}
	return s.lifecycle.Transition(ctx, studentID, req.Status, req.Enrollment, req.Payment)
}

// GetByUser returns the registration owned by a user account.
func (s *RegistrationService) GetByUser(ctx context.Context, userID string) (*models.StudentDetail, error) {
	detail, err := s.students.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no registration found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load registration")
	}
	return detail, nil
}

// Get returns a registration by ID.
func (s *RegistrationService) Get(ctx context.Context, id string) (*models.StudentDetail, error) {
	detail, err := s.students.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	return detail, nil
}

// List returns registrations with pagination metadata.
func (s *RegistrationService) List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, *models.Pagination, error) {
	students, total, err := s.students.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return students, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// UpdateProfile applies owner edits. The course reference and registration
// number are immutable; the repository refuses the write once the record
// left pending.
func (s *RegistrationService) UpdateProfile(ctx context.Context, userID string, req UpdateProfileRequest) (*models.StudentDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid profile payload")
	}

	existing, err := s.GetByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	student := existing.Student
	student.FullName = req.FullName
	student.FatherName = req.FatherName
	student.FatherCNIC = req.FatherCNIC
	student.DateOfBirth = req.DateOfBirth
	student.Gender = req.Gender
	student.Phone = req.Phone
	student.Address = req.Address
	student.City = req.City
	student.Country = req.Country
	student.LastQualification = req.LastQualification
	student.ComputerSkill = req.ComputerSkill
	student.HasLaptop = req.HasLaptop
	student.ClassPreference = req.ClassPreference
	student.ProfilePicture = req.ProfilePicture

	updated, err := s.students.UpdateProfile(ctx, &student)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update profile")
	}
	if !updated {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "registration can no longer be edited")
	}

	return s.students.FindByID(ctx, student.ID)
}

// AttachPayment records payment info for display. Independent of status.
func (s *RegistrationService) AttachPayment(ctx context.Context, studentID string, payment models.PaymentInfo) (*models.StudentDetail, error) {
	if err := s.validator.Struct(payment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payment payload")
	}
	if err := s.students.UpdatePayment(ctx, studentID, payment); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update payment")
	}
	return s.students.FindByID(ctx, studentID)
}
