package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/krs-online-api/internal/dto"
	"github.com/noah-isme/krs-online-api/internal/models"
	"github.com/noah-isme/krs-online-api/internal/repository"
	appErrors "github.com/noah-isme/krs-online-api/pkg/errors"
)

type savedClassRepository interface {
	ListByStudent(ctx context.Context, studentID string) ([]models.SavedClassDetail, error)
	FindDetail(ctx context.Context, studentID, sectionID string) (*models.SavedClassDetail, error)
	Create(ctx context.Context, saved *models.SavedClass) error
	Delete(ctx context.Context, studentID, sectionID string) error
}

type sectionLookup interface {
	FindByID(ctx context.Context, id string) (*models.Section, error)
}

// SaveClassRequest bookmarks a section.
type SaveClassRequest struct {
	SectionID string `json:"jadwalId" validate:"required"`
}

// SavedClassService manages a student's bookmarked sections. Bookmarks never
// touch seats or credit loads.
type SavedClassService struct {
	repo     savedClassRepository
	sections sectionLookup
	logger   *zap.Logger
}

// NewSavedClassService constructs SavedClassService.
func NewSavedClassService(repo savedClassRepository, sections sectionLookup, logger *zap.Logger) *SavedClassService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SavedClassService{repo: repo, sections: sections, logger: logger}
}

// List returns the student's bookmarks, newest first.
func (s *SavedClassService) List(ctx context.Context, studentID string) ([]dto.SavedClassView, error) {
	items, err := s.repo.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list saved classes")
	}
	views := make([]dto.SavedClassView, 0, len(items))
	for i := range items {
		views = append(views, savedView(&items[i]))
	}
	return views, nil
}

// Save bookmarks a section once per student.
func (s *SavedClassService) Save(ctx context.Context, studentID string, req SaveClassRequest) (*dto.SavedClassView, error) {
	sectionID := strings.TrimSpace(req.SectionID)
	if sectionID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "jadwalId is required")
	}
	if _, err := s.sections.FindByID(ctx, sectionID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "section not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load section")
	}

	if err := s.repo.Create(ctx, &models.SavedClass{StudentID: studentID, SectionID: sectionID}); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "class already saved")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save class")
	}

	detail, err := s.repo.FindDetail(ctx, studentID, sectionID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load saved class")
	}
	view := savedView(detail)
	return &view, nil
}

// Remove deletes a bookmark.
func (s *SavedClassService) Remove(ctx context.Context, studentID, sectionID string) error {
	if err := s.repo.Delete(ctx, studentID, sectionID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "class is not in saved list")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to remove saved class")
	}
	return nil
}

func savedView(item *models.SavedClassDetail) dto.SavedClassView {
	return dto.SavedClassView{
		ID:        item.ID,
		SectionID: item.SectionID,
		CreatedAt: item.CreatedAt,
		Class:     classViewOf(&item.Section),
	}
}
