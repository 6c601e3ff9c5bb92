package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/krs-online-api/internal/models"
)

const savedClassDetailSelect = `SELECT sc.id, sc.student_id, sc.section_id, sc.created_at,
        s.id AS "section.id", s.course_id AS "section.course_id", s.class_code AS "section.class_code", s.day AS "section.day",
        s.start_time AS "section.start_time", s.end_time AS "section.end_time", s.room AS "section.room",
        s.lecturer AS "section.lecturer", s.capacity AS "section.capacity", s.seats_taken AS "section.seats_taken",
        s.active AS "section.active", s.version AS "section.version", s.created_at AS "section.created_at", s.updated_at AS "section.updated_at",
        c.id AS "section.course.id", c.code AS "section.course.code", c.name AS "section.course.name",
        c.credits AS "section.course.credits", c.level AS "section.course.level", c.program AS "section.course.program",
        c.description AS "section.course.description", c.created_at AS "section.course.created_at", c.updated_at AS "section.course.updated_at"
        FROM saved_classes sc
        JOIN sections s ON s.id = sc.section_id
        JOIN courses c ON c.id = s.course_id`

// SavedClassRepository persists student bookmarks.
type SavedClassRepository struct {
	db *sqlx.DB
}

// NewSavedClassRepository constructs the repository.
func NewSavedClassRepository(db *sqlx.DB) *SavedClassRepository {
	return &SavedClassRepository{db: db}
}

// ListByStudent returns bookmarks with section details, newest first.
func (r *SavedClassRepository) ListByStudent(ctx context.Context, studentID string) ([]models.SavedClassDetail, error) {
	var items []models.SavedClassDetail
	query := savedClassDetailSelect + " WHERE sc.student_id = $1 ORDER BY sc.created_at DESC"
	if err := r.db.SelectContext(ctx, &items, query, studentID); err != nil {
		return nil, fmt.Errorf("list saved classes: %w", err)
	}
	return items, nil
}

// FindDetail returns one bookmark with section details.
func (r *SavedClassRepository) FindDetail(ctx context.Context, studentID, sectionID string) (*models.SavedClassDetail, error) {
	var item models.SavedClassDetail
	query := savedClassDetailSelect + " WHERE sc.student_id = $1 AND sc.section_id = $2"
	if err := r.db.GetContext(ctx, &item, query, studentID, sectionID); err != nil {
		return nil, err
	}
	return &item, nil
}

// Create stores a bookmark. An existing one yields ErrDuplicate.
func (r *SavedClassRepository) Create(ctx context.Context, saved *models.SavedClass) error {
	if saved.ID == "" {
		saved.ID = uuid.NewString()
	}
	if saved.CreatedAt.IsZero() {
		saved.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO saved_classes (id, student_id, section_id, created_at)
        VALUES (:id, :student_id, :section_id, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, saved); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("create saved class: %w", err)
	}
	return nil
}

// Delete removes a bookmark, returning sql.ErrNoRows when there was none.
func (r *SavedClassRepository) Delete(ctx context.Context, studentID, sectionID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM saved_classes WHERE student_id = $1 AND section_id = $2`, studentID, sectionID)
	if err != nil {
		return fmt.Errorf("delete saved class: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
