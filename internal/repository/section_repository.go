package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/krs-online-api/internal/models"
)

const sectionColumns = `id, course_id, class_code, day, start_time, end_time, room, lecturer, capacity, seats_taken, active, version, created_at, updated_at`

const sectionDetailSelect = `SELECT s.id, s.course_id, s.class_code, s.day, s.start_time, s.end_time, s.room, s.lecturer,
        s.capacity, s.seats_taken, s.active, s.version, s.created_at, s.updated_at,
        c.id AS "course.id", c.code AS "course.code", c.name AS "course.name", c.credits AS "course.credits",
        c.level AS "course.level", c.program AS "course.program", c.description AS "course.description",
        c.created_at AS "course.created_at", c.updated_at AS "course.updated_at"
        FROM sections s
        JOIN courses c ON c.id = s.course_id`

const dayOrderExpr = `CASE s.day WHEN 'Senin' THEN 1 WHEN 'Selasa' THEN 2 WHEN 'Rabu' THEN 3 WHEN 'Kamis' THEN 4
        WHEN 'Jumat' THEN 5 WHEN 'Sabtu' THEN 6 WHEN 'Minggu' THEN 7 ELSE 8 END`

// SectionRepository handles persistence of course sections. It runs against
// either the pool or a transaction.
type SectionRepository struct {
	db sqlx.ExtContext
}

// NewSectionRepository constructs the repository.
func NewSectionRepository(db sqlx.ExtContext) *SectionRepository {
	return &SectionRepository{db: db}
}

// List returns sections joined with their course ordered by weekday and start time.
func (r *SectionRepository) List(ctx context.Context, filter models.SectionFilter) ([]models.SectionDetail, error) {
	var conditions []string
	var args []interface{}

	if !filter.IncludeInactive {
		conditions = append(conditions, "s.active = TRUE")
	}
	if filter.Program != "" {
		conditions = append(conditions, fmt.Sprintf("c.program = $%d", len(args)+1))
		args = append(args, filter.Program)
	}
	if filter.Level > 0 {
		conditions = append(conditions, fmt.Sprintf("c.level = $%d", len(args)+1))
		args = append(args, filter.Level)
	}
	if filter.Day != "" {
		conditions = append(conditions, fmt.Sprintf("s.day = $%d", len(args)+1))
		args = append(args, filter.Day)
	}
	if filter.Search != "" {
		n := len(args) + 1
		conditions = append(conditions, fmt.Sprintf("(LOWER(c.name) LIKE $%d OR LOWER(c.code) LIKE $%d OR LOWER(s.lecturer) LIKE $%d)", n, n, n))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}
	query := fmt.Sprintf("%s%s ORDER BY %s, s.start_time ASC", sectionDetailSelect, clause, dayOrderExpr)

	var sections []models.SectionDetail
	if err := sqlx.SelectContext(ctx, r.db, &sections, query, args...); err != nil {
		return nil, fmt.Errorf("list sections: %w", err)
	}
	return sections, nil
}

// FindByID returns the bare section row.
func (r *SectionRepository) FindByID(ctx context.Context, id string) (*models.Section, error) {
	query := fmt.Sprintf("SELECT %s FROM sections WHERE id = $1", sectionColumns)
	var section models.Section
	if err := sqlx.GetContext(ctx, r.db, &section, query, id); err != nil {
		return nil, err
	}
	return &section, nil
}

// FindDetailByID returns a section joined with its course.
func (r *SectionRepository) FindDetailByID(ctx context.Context, id string) (*models.SectionDetail, error) {
	var detail models.SectionDetail
	if err := sqlx.GetContext(ctx, r.db, &detail, sectionDetailSelect+" WHERE s.id = $1", id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// Create inserts a new section with no seats taken.
func (r *SectionRepository) Create(ctx context.Context, section *models.Section) error {
	if section.ID == "" {
		section.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if section.CreatedAt.IsZero() {
		section.CreatedAt = now
	}
	section.UpdatedAt = now
	section.SeatsTaken = 0
	section.Version = 1

	const query = `INSERT INTO sections (id, course_id, class_code, day, start_time, end_time, room, lecturer, capacity, seats_taken, active, version, created_at, updated_at)
        VALUES (:id, :course_id, :class_code, :day, :start_time, :end_time, :room, :lecturer, :capacity, :seats_taken, :active, :version, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, r.db, query, section); err != nil {
		return fmt.Errorf("create section: %w", err)
	}
	return nil
}

// Update writes the editable fields of a section if its version is unchanged
// and the new capacity still covers the seats taken. seats_taken is never
// written here.
func (r *SectionRepository) Update(ctx context.Context, section *models.Section) error {
	section.UpdatedAt = time.Now().UTC()
	const query = `UPDATE sections SET course_id = $2, class_code = $3, day = $4, start_time = $5, end_time = $6, room = $7,
        lecturer = $8, capacity = $9, active = $10, version = version + 1, updated_at = $11
        WHERE id = $1 AND version = $12 AND seats_taken <= $9
        RETURNING version, seats_taken`
	row := r.db.QueryRowxContext(ctx, query,
		section.ID, section.CourseID, section.ClassCode, section.Day, section.StartTime, section.EndTime, section.Room,
		section.Lecturer, section.Capacity, section.Active, section.UpdatedAt, section.Version)
	if err := row.Scan(&section.Version, &section.SeatsTaken); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrVersionConflict
		}
		return fmt.Errorf("update section: %w", err)
	}
	return nil
}

// UpdateSeatsTaken applies delta to seats_taken only if the row still has
// expectedVersion and the result stays within [0, capacity]. Any other outcome
// is reported as ErrVersionConflict so the caller can re-read and retry.
func (r *SectionRepository) UpdateSeatsTaken(ctx context.Context, id string, delta int, expectedVersion int64) (*models.Section, error) {
	query := fmt.Sprintf(`UPDATE sections SET seats_taken = seats_taken + $2, version = version + 1, updated_at = $4
        WHERE id = $1 AND version = $3 AND seats_taken + $2 >= 0 AND seats_taken + $2 <= capacity
        RETURNING %s`, sectionColumns)
	var section models.Section
	if err := r.db.QueryRowxContext(ctx, query, id, delta, expectedVersion, time.Now().UTC()).StructScan(&section); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrVersionConflict
		}
		return nil, fmt.Errorf("update seats taken: %w", err)
	}
	return &section, nil
}

// Deactivate soft-deletes a section so existing enrollments keep their reference.
func (r *SectionRepository) Deactivate(ctx context.Context, id string) error {
	const query = `UPDATE sections SET active = FALSE, version = version + 1, updated_at = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, time.Now().UTC()); err != nil {
		return fmt.Errorf("deactivate section: %w", err)
	}
	return nil
}
