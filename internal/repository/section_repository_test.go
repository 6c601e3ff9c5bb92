package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/krs-online-api/internal/models"
)

var sectionRowColumns = []string{"id", "course_id", "class_code", "day", "start_time", "end_time", "room", "lecturer",
	"capacity", "seats_taken", "active", "version", "created_at", "updated_at"}

func TestSectionRepositoryUpdateSeatsTaken(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSectionRepository(db)

	now := time.Now()
	mock.ExpectQuery(`UPDATE sections SET seats_taken = seats_taken \+ \$2, version = version \+ 1`).
		WithArgs("sec-1", 1, int64(3), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows(sectionRowColumns).
			AddRow("sec-1", "course-1", "A", "Senin", "08:00", "10:00", "R1", "Dr. Rina", 30, 11, true, 4, now, now))

	section, err := repo.UpdateSeatsTaken(context.Background(), "sec-1", 1, 3)
	require.NoError(t, err)
	assert.Equal(t, 11, section.SeatsTaken)
	assert.Equal(t, int64(4), section.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSectionRepositoryUpdateSeatsTakenConflict(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSectionRepository(db)

	mock.ExpectQuery(`UPDATE sections SET seats_taken`).
		WithArgs("sec-1", -1, int64(7), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows(sectionRowColumns))

	_, err := repo.UpdateSeatsTaken(context.Background(), "sec-1", -1, 7)
	assert.ErrorIs(t, err, ErrVersionConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSectionRepositoryListDefaultsToActive(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSectionRepository(db)

	mock.ExpectQuery(`WHERE s.active = TRUE AND c.program = \$1 AND s.day = \$2 ORDER BY CASE s.day`).
		WithArgs("Informatika", "Rabu").
		WillReturnRows(sqlmock.NewRows(sectionRowColumns))

	sections, err := repo.List(context.Background(), models.SectionFilter{Program: "Informatika", Day: "Rabu"})
	require.NoError(t, err)
	assert.Empty(t, sections)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSectionRepositoryFindDetailByID(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSectionRepository(db)

	now := time.Now()
	columns := append(append([]string{}, sectionRowColumns...),
		"course.id", "course.code", "course.name", "course.credits", "course.level", "course.program",
		"course.description", "course.created_at", "course.updated_at")
	mock.ExpectQuery(`FROM sections s\s+JOIN courses c ON c.id = s.course_id WHERE s.id = \$1`).
		WithArgs("sec-1").
		WillReturnRows(sqlmock.NewRows(columns).AddRow(
			"sec-1", "course-1", "A", "Senin", "08:00", "10:00", "R1", "Dr. Rina", 30, 0, true, 1, now, now,
			"course-1", "IF101", "Algoritma", 3, 1, "Informatika", "", now, now))

	detail, err := repo.FindDetailByID(context.Background(), "sec-1")
	require.NoError(t, err)
	assert.Equal(t, "IF101", detail.Course.Code)
	assert.Equal(t, 3, detail.Course.Credits)

	mock.ExpectQuery(`WHERE s.id = \$1`).WithArgs("missing").WillReturnError(sql.ErrNoRows)
	_, err = repo.FindDetailByID(context.Background(), "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSectionRepositoryUpdateRejectsStaleVersion(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSectionRepository(db)

	mock.ExpectQuery(`UPDATE sections SET course_id = \$2`).
		WillReturnRows(sqlmock.NewRows([]string{"version", "seats_taken"}))

	err := repo.Update(context.Background(), &models.Section{ID: "sec-1", Capacity: 5, Version: 2})
	assert.ErrorIs(t, err, ErrVersionConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}
