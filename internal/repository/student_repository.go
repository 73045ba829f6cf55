package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/smit-institute/registration-api/internal/models"
)

// StudentRepository manages persistence for registration records.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs a StudentRepository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

const studentDetailColumns = `s.id, s.user_id, s.registration_number, s.full_name, s.father_name, s.cnic, s.father_cnic,
        s.date_of_birth, s.gender, s.phone, s.address, s.city, s.country,
        s.last_qualification, s.computer_skill, s.has_laptop,
        s.course_id, s.class_preference, s.profile_picture, s.status,
        s.batch_number, s.roll_number, s.enrolled_campus, s.enrolled_at,
        s.total_fees, s.paid_amount, s.payment_status, s.created_at, s.updated_at,
        c.name AS course_name, c.code AS course_code, c.campus AS course_campus`

const studentDetailFrom = `FROM students s JOIN courses c ON c.id = s.course_id`

// FindByID fetches a registration with course context by its ID.
func (r *StudentRepository) FindByID(ctx context.Context, id string) (*models.StudentDetail, error) {
	query := fmt.Sprintf("SELECT %s %s WHERE s.id = $1", studentDetailColumns, studentDetailFrom)
	var detail models.StudentDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// FindByUserID fetches the registration owned by a user account.
func (r *StudentRepository) FindByUserID(ctx context.Context, userID string) (*models.StudentDetail, error) {
	query := fmt.Sprintf("SELECT %s %s WHERE s.user_id = $1", studentDetailColumns, studentDetailFrom)
	var detail models.StudentDetail
	if err := r.db.GetContext(ctx, &detail, query, userID); err != nil {
		return nil, err
	}
	return &detail, nil
}

// ExistsByUserOrCNIC reports whether any registration already references the
// user account or the national-ID value. Both are hard uniqueness invariants
// checked before a seat is reserved, and again by unique indexes at insert.
func (r *StudentRepository) ExistsByUserOrCNIC(ctx context.Context, userID, cnic string) (bool, error) {
	const query = `SELECT 1 FROM students WHERE user_id = $1 OR cnic = $2 LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, userID, cnic); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check duplicate registration: %w", err)
	}
	return true, nil
}

// Create persists a new registration record.
func (r *StudentRepository) Create(ctx context.Context, student *models.Student) error {
	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	if student.Status == "" {
		student.Status = models.StatusPending
	}
	if student.PaymentStatus == "" {
		student.PaymentStatus = models.PaymentPending
	}
	now := time.Now().UTC()
	student.CreatedAt = now
	student.UpdatedAt = now

	const query = `INSERT INTO students (id, user_id, registration_number, full_name, father_name, cnic, father_cnic,
        date_of_birth, gender, phone, address, city, country,
        last_qualification, computer_skill, has_laptop,
        course_id, class_preference, profile_picture, status,
        total_fees, paid_amount, payment_status, created_at, updated_at)
        VALUES (:id, :user_id, :registration_number, :full_name, :father_name, :cnic, :father_cnic,
        :date_of_birth, :gender, :phone, :address, :city, :country,
        :last_qualification, :computer_skill, :has_laptop,
        :course_id, :class_preference, :profile_picture, :status,
        :total_fees, :paid_amount, :payment_status, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, student); err != nil {
		return fmt.Errorf("create student: %w", err)
	}
	return nil
}

// List returns registrations matching admin filters.
func (r *StudentRepository) List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, int, error) {
	conditions := []string{"1=1"}
	var args []interface{}

	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("s.status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if filter.CourseID != "" {
		conditions = append(conditions, fmt.Sprintf("s.course_id = $%d", len(args)+1))
		args = append(args, filter.CourseID)
	}
	if filter.Search != "" {
		idx := len(args) + 1
		conditions = append(conditions, fmt.Sprintf("(LOWER(s.full_name) LIKE $%d OR s.cnic LIKE $%d OR LOWER(s.registration_number) LIKE $%d)", idx, idx, idx))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	where := strings.Join(conditions, " AND ")

	allowedSorts := map[string]string{
		"created_at":          "s.created_at",
		"full_name":           "s.full_name",
		"registration_number": "s.registration_number",
	}
	column, ok := allowedSorts[filter.SortBy]
	if !ok {
		column = "s.created_at"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s WHERE %s ORDER BY %s %s LIMIT %d OFFSET %d",
		studentDetailColumns, studentDetailFrom, where, column, order, size, offset)

	var students []models.StudentDetail
	if err := r.db.SelectContext(ctx, &students, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list students: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s WHERE %s", studentDetailFrom, where)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count students: %w", err)
	}
	return students, total, nil
}

// UpdateProfile rewrites the owner-editable fields. The update is conditional
// on the record still being pending; zero rows means the lifecycle has moved
// on and the edit is refused.
func (r *StudentRepository) UpdateProfile(ctx context.Context, student *models.Student) (bool, error) {
	const query = `UPDATE students SET full_name = $2, father_name = $3, father_cnic = $4,
        date_of_birth = $5, gender = $6, phone = $7, address = $8, city = $9, country = $10,
        last_qualification = $11, computer_skill = $12, has_laptop = $13,
        class_preference = $14, profile_picture = $15, updated_at = NOW()
        WHERE id = $1 AND status = 'pending'`
	res, err := r.db.ExecContext(ctx, query, student.ID, student.FullName, student.FatherName, student.FatherCNIC,
		student.DateOfBirth, student.Gender, student.Phone, student.Address, student.City, student.Country,
		student.LastQualification, student.ComputerSkill, student.HasLaptop,
		student.ClassPreference, student.ProfilePicture)
	if err != nil {
		return false, fmt.Errorf("update profile: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("update profile result: %w", err)
	}
	return affected > 0, nil
}

// UpdatePayment attaches payment info. Independent of the lifecycle state.
func (r *StudentRepository) UpdatePayment(ctx context.Context, id string, payment models.PaymentInfo) error {
	const query = `UPDATE students SET total_fees = $2, paid_amount = $3, payment_status = $4, updated_at = NOW()
        WHERE id = $1`
	status := payment.PaymentStatus
	if status == "" {
		status = models.PaymentPending
	}
	res, err := r.db.ExecContext(ctx, query, id, payment.TotalFees, payment.PaidAmount, status)
	if err != nil {
		return fmt.Errorf("update payment: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// TransitionStatus performs a lifecycle transition as one transaction. The
// status write is conditional on the observed previous status, so a stale
// read can never commit; when the transition frees the seat, the course
// decrement rides in the same transaction and neither effect is visible
// without the other. Returns false when the conditional update matched
// nothing (a concurrent transition won).
func (r *StudentRepository) TransitionStatus(ctx context.Context, id string, from, to models.RegistrationStatus,
	detail *models.EnrollmentDetail, payment *models.PaymentInfo, releaseCourseID string) (bool, error) {

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin transition: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	sets := []string{"status = $3", "updated_at = NOW()"}
	args := []interface{}{id, from, to}

	if detail != nil {
		sets = append(sets,
			fmt.Sprintf("batch_number = $%d", len(args)+1),
			fmt.Sprintf("roll_number = $%d", len(args)+2),
			fmt.Sprintf("enrolled_campus = $%d", len(args)+3),
			"enrolled_at = NOW()",
		)
		args = append(args, detail.BatchNumber, detail.RollNumber, detail.Campus)
	}
	if payment != nil {
		status := payment.PaymentStatus
		if status == "" {
			status = models.PaymentPending
		}
		sets = append(sets,
			fmt.Sprintf("total_fees = $%d", len(args)+1),
			fmt.Sprintf("paid_amount = $%d", len(args)+2),
			fmt.Sprintf("payment_status = $%d", len(args)+3),
		)
		args = append(args, payment.TotalFees, payment.PaidAmount, status)
	}

	query := fmt.Sprintf("UPDATE students SET %s WHERE id = $1 AND status = $2", strings.Join(sets, ", "))
	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("transition status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("transition status result: %w", err)
	}
	if affected == 0 {
		return false, nil
	}

	if releaseCourseID != "" {
		const release = `UPDATE courses
            SET enrolled_students = GREATEST(enrolled_students - 1, 0),
                status = CASE WHEN status = 'full' THEN 'active' ELSE status END,
                updated_at = NOW()
            WHERE id = $1`
		if _, err := tx.ExecContext(ctx, release, releaseCourseID); err != nil {
			return false, fmt.Errorf("release seat in transition: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit transition: %w", err)
	}
	return true, nil
}

// StatusCounts returns the number of registrations per lifecycle state.
func (r *StudentRepository) StatusCounts(ctx context.Context) (map[models.RegistrationStatus]int, error) {
	const query = `SELECT status, COUNT(*) AS count FROM students GROUP BY status`
	rows := []struct {
		Status models.RegistrationStatus `db:"status"`
		Count  int                       `db:"count"`
	}{}
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("status counts: %w", err)
	}
	counts := make(map[models.RegistrationStatus]int, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

// Recent returns the newest registrations with course context.
func (r *StudentRepository) Recent(ctx context.Context, limit int) ([]models.StudentDetail, error) {
	if limit <= 0 {
		limit = 5
	}
	query := fmt.Sprintf("SELECT %s %s ORDER BY s.created_at DESC LIMIT %d",
		studentDetailColumns, studentDetailFrom, limit)
	var students []models.StudentDetail
	if err := r.db.SelectContext(ctx, &students, query); err != nil {
		return nil, fmt.Errorf("recent students: %w", err)
	}
	return students, nil
}

// CountByCourse reports how many registrations reference a course. Guards the
// referential invariant on course deletion.
func (r *StudentRepository) CountByCourse(ctx context.Context, courseID string) (int, error) {
	const query = `SELECT COUNT(*) FROM students WHERE course_id = $1`
	var count int
	if err := r.db.GetContext(ctx, &count, query, courseID); err != nil {
		return 0, fmt.Errorf("count students by course: %w", err)
	}
	return count, nil
}
