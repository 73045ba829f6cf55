package models

import "time"

// CourseStatus represents the administrative state of a course.
type CourseStatus string

// Possible course statuses. StatusFull is a display convenience derived from
// the seat counters; seat availability is always decided on the counters.
const (
	CourseStatusActive   CourseStatus = "active"
	CourseStatusInactive CourseStatus = "inactive"
	CourseStatusFull     CourseStatus = "full"
)

// Course represents an offered training course with a fixed seat cap.
type Course struct {
	ID               string       `db:"id" json:"id"`
	Code             string       `db:"code" json:"code"`
	Name             string       `db:"name" json:"name"`
	Description      string       `db:"description" json:"description"`
	Duration         string       `db:"duration" json:"duration"`
	Fees             float64      `db:"fees" json:"fees"`
	Instructor       string       `db:"instructor" json:"instructor"`
	Campus           string       `db:"campus" json:"campus"`
	City             string       `db:"city" json:"city"`
	MaxStudents      int          `db:"max_students" json:"max_students"`
	EnrolledStudents int          `db:"enrolled_students" json:"enrolled_students"`
	Status           CourseStatus `db:"status" json:"status"`
	CreatedAt        time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time    `db:"updated_at" json:"updated_at"`
}

// IsFull reports whether the enrolled counter has reached the cap.
func (c *Course) IsFull() bool {
	return c.EnrolledStudents >= c.MaxStudents
}

// AvailableSeats returns the remaining capacity, floored at zero. The value
// is advisory only and must never be used to decide a reservation.
func (c *Course) AvailableSeats() int {
	seats := c.MaxStudents - c.EnrolledStudents
	if seats < 0 {
		return 0
	}
	return seats
}

// CourseFilter captures filtering criteria for listing courses.
type CourseFilter struct {
	Status CourseStatus
	Campus string
	City   string
}

// CourseSeats summarises seat usage for dashboard output.
type CourseSeats struct {
	ID               string `db:"id" json:"id"`
	Code             string `db:"code" json:"code"`
	Name             string `db:"name" json:"name"`
	MaxStudents      int    `db:"max_students" json:"max_students"`
	EnrolledStudents int    `db:"enrolled_students" json:"enrolled_students"`
	AvailableSeats   int    `db:"available_seats" json:"available_seats"`
}
