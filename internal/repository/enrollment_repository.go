package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/krs-online-api/internal/models"
)

const enrollmentColumns = `id, student_id, section_id, semester, academic_year, status, created_at, updated_at`

const enrollmentDetailSelect = `SELECT e.id, e.student_id, e.section_id, e.semester, e.academic_year, e.status, e.created_at, e.updated_at,
        s.id AS "section.id", s.course_id AS "section.course_id", s.class_code AS "section.class_code", s.day AS "section.day",
        s.start_time AS "section.start_time", s.end_time AS "section.end_time", s.room AS "section.room",
        s.lecturer AS "section.lecturer", s.capacity AS "section.capacity", s.seats_taken AS "section.seats_taken",
        s.active AS "section.active", s.version AS "section.version", s.created_at AS "section.created_at", s.updated_at AS "section.updated_at",
        c.id AS "section.course.id", c.code AS "section.course.code", c.name AS "section.course.name",
        c.credits AS "section.course.credits", c.level AS "section.course.level", c.program AS "section.course.program",
        c.description AS "section.course.description", c.created_at AS "section.course.created_at", c.updated_at AS "section.course.updated_at"
        FROM enrollments e
        JOIN sections s ON s.id = e.section_id
        JOIN courses c ON c.id = s.course_id`

// EnrollmentRepository handles persistence of KRS enrollments. It runs against
// either the pool or a transaction.
type EnrollmentRepository struct {
	db sqlx.ExtContext
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db sqlx.ExtContext) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// FindByID returns an enrollment by its ID.
func (r *EnrollmentRepository) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	query := fmt.Sprintf("SELECT %s FROM enrollments WHERE id = $1", enrollmentColumns)
	var enrollment models.Enrollment
	if err := sqlx.GetContext(ctx, r.db, &enrollment, query, id); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// FindDetailByID returns an enrollment joined with section and course.
func (r *EnrollmentRepository) FindDetailByID(ctx context.Context, id string) (*models.EnrollmentDetail, error) {
	var detail models.EnrollmentDetail
	if err := sqlx.GetContext(ctx, r.db, &detail, enrollmentDetailSelect+" WHERE e.id = $1", id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// FindByStudentSectionTerm returns the enrollment for the triple, or nil when none exists.
func (r *EnrollmentRepository) FindByStudentSectionTerm(ctx context.Context, studentID, sectionID string, term models.Term) (*models.Enrollment, error) {
	query := fmt.Sprintf(`SELECT %s FROM enrollments
        WHERE student_id = $1 AND section_id = $2 AND semester = $3 AND academic_year = $4 LIMIT 1`, enrollmentColumns)
	var enrollment models.Enrollment
	if err := sqlx.GetContext(ctx, r.db, &enrollment, query, studentID, sectionID, term.Semester, term.AcademicYear); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("find enrollment: %w", err)
	}
	return &enrollment, nil
}

// ListByStudent returns a student's enrollments with section and course, newest first.
func (r *EnrollmentRepository) ListByStudent(ctx context.Context, studentID string, filter models.TermFilter) ([]models.EnrollmentDetail, error) {
	conditions := []string{"e.student_id = $1"}
	args := []interface{}{studentID}
	if filter.Semester != "" {
		conditions = append(conditions, fmt.Sprintf("e.semester = $%d", len(args)+1))
		args = append(args, filter.Semester)
	}
	if filter.AcademicYear != "" {
		conditions = append(conditions, fmt.Sprintf("e.academic_year = $%d", len(args)+1))
		args = append(args, filter.AcademicYear)
	}
	query := fmt.Sprintf("%s WHERE %s ORDER BY e.created_at DESC", enrollmentDetailSelect, strings.Join(conditions, " AND "))

	var enrollments []models.EnrollmentDetail
	if err := sqlx.SelectContext(ctx, r.db, &enrollments, query, args...); err != nil {
		return nil, fmt.Errorf("list student enrollments: %w", err)
	}
	return enrollments, nil
}

// SumCredits returns the credit total of the student's pending and approved enrollments in a term.
func (r *EnrollmentRepository) SumCredits(ctx context.Context, studentID string, term models.Term) (int, error) {
	const query = `SELECT COALESCE(SUM(c.credits), 0)
        FROM enrollments e
        JOIN sections s ON s.id = e.section_id
        JOIN courses c ON c.id = s.course_id
        WHERE e.student_id = $1 AND e.semester = $2 AND e.academic_year = $3 AND e.status IN ($4, $5)`
	var total int
	if err := sqlx.GetContext(ctx, r.db, &total, query, studentID, term.Semester, term.AcademicYear,
		models.EnrollmentStatusPending, models.EnrollmentStatusApproved); err != nil {
		return 0, fmt.Errorf("sum enrollment credits: %w", err)
	}
	return total, nil
}

// Create persists a new enrollment record.
func (r *EnrollmentRepository) Create(ctx context.Context, enrollment *models.Enrollment) error {
	if enrollment.ID == "" {
		enrollment.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if enrollment.CreatedAt.IsZero() {
		enrollment.CreatedAt = now
	}
	enrollment.UpdatedAt = now
	const query = `INSERT INTO enrollments (id, student_id, section_id, semester, academic_year, status, created_at, updated_at)
        VALUES (:id, :student_id, :section_id, :semester, :academic_year, :status, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, r.db, query, enrollment); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("create enrollment: %w", err)
	}
	return nil
}

// Delete removes an enrollment.
func (r *EnrollmentRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM enrollments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete enrollment: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
