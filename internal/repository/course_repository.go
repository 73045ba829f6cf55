package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/smit-institute/registration-api/internal/models"
)

// CourseRepository handles persistence of courses and their seat counters.
// The counters are shared mutable state across service instances, so every
// mutation goes through a conditional update; callers never read-then-write.
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository constructs the repository.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

const courseColumns = `id, code, name, description, duration, fees, instructor, campus, city,
        max_students, enrolled_students, status, created_at, updated_at`

// List returns courses matching the provided filters, sorted by name.
func (r *CourseRepository) List(ctx context.Context, filter models.CourseFilter) ([]models.Course, error) {
	conditions := []string{"1=1"}
	var args []interface{}

	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if filter.Campus != "" {
		conditions = append(conditions, fmt.Sprintf("campus = $%d", len(args)+1))
		args = append(args, filter.Campus)
	}
	if filter.City != "" {
		conditions = append(conditions, fmt.Sprintf("city = $%d", len(args)+1))
		args = append(args, filter.City)
	}

	query := fmt.Sprintf("SELECT %s FROM courses WHERE %s ORDER BY name ASC", courseColumns, strings.Join(conditions, " AND "))

	var courses []models.Course
	if err := r.db.SelectContext(ctx, &courses, query, args...); err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}
	return courses, nil
}

// FindByID returns a course by its ID.
func (r *CourseRepository) FindByID(ctx context.Context, id string) (*models.Course, error) {
	query := fmt.Sprintf("SELECT %s FROM courses WHERE id = $1", courseColumns)
	var course models.Course
	if err := r.db.GetContext(ctx, &course, query, id); err != nil {
		return nil, err
	}
	return &course, nil
}

// Create persists a new course. Codes are case-normalised to uppercase.
func (r *CourseRepository) Create(ctx context.Context, course *models.Course) error {
	if course.ID == "" {
		course.ID = uuid.NewString()
	}
	course.Code = strings.ToUpper(strings.TrimSpace(course.Code))
	if course.Status == "" {
		course.Status = models.CourseStatusActive
	}
	now := time.Now().UTC()
	course.CreatedAt = now
	course.UpdatedAt = now

	const query = `INSERT INTO courses (id, code, name, description, duration, fees, instructor, campus, city,
        max_students, enrolled_students, status, created_at, updated_at)
        VALUES (:id, :code, :name, :description, :duration, :fees, :instructor, :campus, :city,
        :max_students, :enrolled_students, :status, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, course); err != nil {
		return fmt.Errorf("create course: %w", err)
	}
	return nil
}

// Update modifies course metadata. The enrolled counter is deliberately not
// touchable here; it moves only through ReserveSeat and ReleaseSeat.
func (r *CourseRepository) Update(ctx context.Context, course *models.Course) error {
	course.Code = strings.ToUpper(strings.TrimSpace(course.Code))
	const query = `UPDATE courses SET code = $2, name = $3, description = $4, duration = $5, fees = $6,
        instructor = $7, campus = $8, city = $9, max_students = $10, status = $11, updated_at = NOW()
        WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, course.ID, course.Code, course.Name, course.Description,
		course.Duration, course.Fees, course.Instructor, course.Campus, course.City,
		course.MaxStudents, course.Status)
	if err != nil {
		return fmt.Errorf("update course: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return fmt.Errorf("update course %s: %w", course.ID, ErrNoRowsAffected)
	}
	return nil
}

// Delete removes a course row.
func (r *CourseRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM courses WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete course: %w", err)
	}
	return nil
}

// ReserveSeat atomically claims one seat: the increment only matches when the
// course is active and below cap, so concurrent callers racing for the last
// seat resolve at the database. The display status flips to full inside the
// same statement and can never desynchronize from the counters.
func (r *CourseRepository) ReserveSeat(ctx context.Context, id string) (bool, error) {
	const query = `UPDATE courses
        SET enrolled_students = enrolled_students + 1,
            status = CASE WHEN enrolled_students + 1 >= max_students THEN 'full' ELSE status END,
            updated_at = NOW()
        WHERE id = $1 AND status = 'active' AND enrolled_students < max_students`
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("reserve seat: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("reserve seat result: %w", err)
	}
	return affected > 0, nil
}

// ReleaseSeat atomically returns one seat, floored at zero so releasing an
// empty course is a no-op. A full display status reverts to active.
func (r *CourseRepository) ReleaseSeat(ctx context.Context, id string) error {
	const query = `UPDATE courses
        SET enrolled_students = GREATEST(enrolled_students - 1, 0),
            status = CASE WHEN status = 'full' THEN 'active' ELSE status END,
            updated_at = NOW()
        WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("release seat: %w", err)
	}
	return nil
}

// AvailableSeats returns the point-in-time remaining capacity. Advisory only.
func (r *CourseRepository) AvailableSeats(ctx context.Context, id string) (int, error) {
	const query = `SELECT GREATEST(max_students - enrolled_students, 0) FROM courses WHERE id = $1`
	var seats int
	if err := r.db.GetContext(ctx, &seats, query, id); err != nil {
		return 0, err
	}
	return seats, nil
}

// SeatSummaries returns per-course seat usage for the dashboard.
func (r *CourseRepository) SeatSummaries(ctx context.Context) ([]models.CourseSeats, error) {
	const query = `SELECT id, code, name, max_students, enrolled_students,
        GREATEST(max_students - enrolled_students, 0) AS available_seats
        FROM courses ORDER BY name ASC`
	var summaries []models.CourseSeats
	if err := r.db.SelectContext(ctx, &summaries, query); err != nil {
		return nil, fmt.Errorf("course seat summaries: %w", err)
	}
	return summaries, nil
}
