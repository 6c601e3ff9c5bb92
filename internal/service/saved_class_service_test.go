package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/krs-online-api/internal/models"
	"github.com/noah-isme/krs-online-api/internal/repository"
	appErrors "github.com/noah-isme/krs-online-api/pkg/errors"
)

type mockSavedRepo struct {
	sections *mockSectionRepo
	items    []models.SavedClass
}

func (m *mockSavedRepo) detail(sc models.SavedClass) models.SavedClassDetail {
	return models.SavedClassDetail{SavedClass: sc, Section: m.sections.items[sc.SectionID]}
}

func (m *mockSavedRepo) ListByStudent(ctx context.Context, studentID string) ([]models.SavedClassDetail, error) {
	var out []models.SavedClassDetail
	for i := len(m.items) - 1; i >= 0; i-- {
		if m.items[i].StudentID == studentID {
			out = append(out, m.detail(m.items[i]))
		}
	}
	return out, nil
}

func (m *mockSavedRepo) FindDetail(ctx context.Context, studentID, sectionID string) (*models.SavedClassDetail, error) {
	for _, sc := range m.items {
		if sc.StudentID == studentID && sc.SectionID == sectionID {
			d := m.detail(sc)
			return &d, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockSavedRepo) Create(ctx context.Context, saved *models.SavedClass) error {
	for _, sc := range m.items {
		if sc.StudentID == saved.StudentID && sc.SectionID == saved.SectionID {
			return repository.ErrDuplicate
		}
	}
	saved.ID = "saved-" + saved.SectionID
	saved.CreatedAt = time.Now()
	m.items = append(m.items, *saved)
	return nil
}

func (m *mockSavedRepo) Delete(ctx context.Context, studentID, sectionID string) error {
	for i, sc := range m.items {
		if sc.StudentID == studentID && sc.SectionID == sectionID {
			m.items = append(m.items[:i], m.items[i+1:]...)
			return nil
		}
	}
	return sql.ErrNoRows
}

func TestSavedClassLifecycle(t *testing.T) {
	sections := newMockSectionRepo()
	sections.items["s1"] = models.SectionDetail{Section: models.Section{ID: "s1", CourseID: "course-1", Day: "Selasa",
		StartTime: "10:00", EndTime: "12:00", Capacity: 40, SeatsTaken: 10, Active: true}, Course: sections.courses["course-1"]}
	repo := &mockSavedRepo{sections: sections}
	svc := NewSavedClassService(repo, sections, nil)
	ctx := context.Background()

	view, err := svc.Save(ctx, "stu-1", SaveClassRequest{SectionID: "s1"})
	require.NoError(t, err)
	assert.Equal(t, "s1", view.SectionID)
	assert.Equal(t, "Selasa, 10:00-12:00", view.Class.Schedule)
	assert.Equal(t, 30, view.Class.SeatsLeft)

	_, err = svc.Save(ctx, "stu-1", SaveClassRequest{SectionID: "s1"})
	assert.Equal(t, appErrors.ErrConflict.Code, appCode(err))

	_, err = svc.Save(ctx, "stu-1", SaveClassRequest{SectionID: "nope"})
	assert.Equal(t, appErrors.ErrNotFound.Code, appCode(err))

	list, err := svc.List(ctx, "stu-1")
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, svc.Remove(ctx, "stu-1", "s1"))
	assert.Equal(t, appErrors.ErrNotFound.Code, appCode(svc.Remove(ctx, "stu-1", "s1")))

	list, err = svc.List(ctx, "stu-1")
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)
}
