package models

import "time"

// RegistrationStatus represents the lifecycle state of a registration.
type RegistrationStatus string

// Registration lifecycle states. rejected and enrolled are terminal.
const (
	StatusPending  RegistrationStatus = "pending"
	StatusApproved RegistrationStatus = "approved"
	StatusRejected RegistrationStatus = "rejected"
	StatusEnrolled RegistrationStatus = "enrolled"
)

// PaymentStatus tracks fee settlement, independent of the lifecycle.
type PaymentStatus string

// Possible payment statuses.
const (
	PaymentPending PaymentStatus = "pending"
	PaymentPartial PaymentStatus = "partial"
	PaymentPaid    PaymentStatus = "paid"
)

// Student is the registration aggregate: one record per user account and per
// CNIC. The registration number and course reference are immutable once set.
type Student struct {
	ID                 string             `db:"id" json:"id"`
	UserID             string             `db:"user_id" json:"user_id"`
	RegistrationNumber string             `db:"registration_number" json:"registration_number"`
	FullName           string             `db:"full_name" json:"full_name"`
	FatherName         string             `db:"father_name" json:"father_name"`
	CNIC               string             `db:"cnic" json:"cnic"`
	FatherCNIC         *string            `db:"father_cnic" json:"father_cnic,omitempty"`
	DateOfBirth        time.Time          `db:"date_of_birth" json:"date_of_birth"`
	Gender             string             `db:"gender" json:"gender"`
	Phone              string             `db:"phone" json:"phone"`
	Address            string             `db:"address" json:"address"`
	City               string             `db:"city" json:"city"`
	Country            string             `db:"country" json:"country"`
	LastQualification  string             `db:"last_qualification" json:"last_qualification"`
	ComputerSkill      string             `db:"computer_skill" json:"computer_skill"`
	HasLaptop          bool               `db:"has_laptop" json:"has_laptop"`
	CourseID           string             `db:"course_id" json:"course_id"`
	ClassPreference    string             `db:"class_preference" json:"class_preference"`
	ProfilePicture     string             `db:"profile_picture" json:"profile_picture"`
	Status             RegistrationStatus `db:"status" json:"status"`
	BatchNumber        *string            `db:"batch_number" json:"batch_number,omitempty"`
	RollNumber         *string            `db:"roll_number" json:"roll_number,omitempty"`
	EnrolledCampus     *string            `db:"enrolled_campus" json:"enrolled_campus,omitempty"`
	EnrolledAt         *time.Time         `db:"enrolled_at" json:"enrolled_at,omitempty"`
	TotalFees          float64            `db:"total_fees" json:"total_fees"`
	PaidAmount         float64            `db:"paid_amount" json:"paid_amount"`
	PaymentStatus      PaymentStatus      `db:"payment_status" json:"payment_status"`
	CreatedAt          time.Time          `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time          `db:"updated_at" json:"updated_at"`
}

// Enrolled reports whether the enrollment detail is populated.
func (s *Student) Enrolled() bool {
	return s.Status == StatusEnrolled && s.BatchNumber != nil && s.RollNumber != nil && s.EnrolledAt != nil
}

// StudentDetail enriches Student with course context.
type StudentDetail struct {
	Student
	CourseName   string `db:"course_name" json:"course_name"`
	CourseCode   string `db:"course_code" json:"course_code"`
	CourseCampus string `db:"course_campus" json:"course_campus"`
}

// EnrollmentDetail is the payload an admin supplies when enrolling a student.
type EnrollmentDetail struct {
	BatchNumber string `json:"batch_number" validate:"required"`
	RollNumber  string `json:"roll_number" validate:"required"`
	Campus      string `json:"campus" validate:"required"`
}

// PaymentInfo is the optional payment attachment on a status update.
type PaymentInfo struct {
	TotalFees     float64       `json:"total_fees" validate:"gte=0"`
	PaidAmount    float64       `json:"paid_amount" validate:"gte=0"`
	PaymentStatus PaymentStatus `json:"payment_status" validate:"omitempty,oneof=pending partial paid"`
}

// StudentFilter captures admin listing criteria.
type StudentFilter struct {
	Status    RegistrationStatus
	CourseID  string
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
