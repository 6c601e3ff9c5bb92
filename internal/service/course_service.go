package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/krs-online-api/internal/models"
	"github.com/noah-isme/krs-online-api/internal/repository"
	appErrors "github.com/noah-isme/krs-online-api/pkg/errors"
)

type courseRepository interface {
	List(ctx context.Context, filter models.CourseFilter) ([]models.Course, error)
	ListOptions(ctx context.Context, filter models.CourseFilter) ([]models.CourseOption, error)
	FindByID(ctx context.Context, id string) (*models.Course, error)
	ExistsByCode(ctx context.Context, code, excludeID string) (bool, error)
	Create(ctx context.Context, course *models.Course) error
	Update(ctx context.Context, course *models.Course) error
	Delete(ctx context.Context, id string) error
	CountSections(ctx context.Context, id string) (int, error)
}

// CreateCourseRequest is the payload for a new mata kuliah.
type CreateCourseRequest struct {
	Code        string `json:"kodeMk" validate:"required,max=20"`
	Name        string `json:"namaMk" validate:"required,max=150"`
	Credits     int    `json:"sks" validate:"required,min=1,max=6"`
	Level       int    `json:"semester" validate:"required,min=1,max=8"`
	Program     string `json:"prodi" validate:"required,max=100"`
	Description string `json:"description" validate:"max=1000"`
}

// UpdateCourseRequest carries optional course edits.
type UpdateCourseRequest struct {
	Code        *string `json:"kodeMk" validate:"omitempty,min=1,max=20"`
	Name        *string `json:"namaMk" validate:"omitempty,min=1,max=150"`
	Credits     *int    `json:"sks" validate:"omitempty,min=1,max=6"`
	Level       *int    `json:"semester" validate:"omitempty,min=1,max=8"`
	Program     *string `json:"prodi" validate:"omitempty,min=1,max=100"`
	Description *string `json:"description" validate:"omitempty,max=1000"`
}

// CourseService manages the course catalog.
type CourseService struct {
	repo      courseRepository
	cache     *CacheService
	audit     *AuditService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCourseService constructs CourseService.
func NewCourseService(repo courseRepository, cache *CacheService, audit *AuditService, validate *validator.Validate, logger *zap.Logger) *CourseService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CourseService{repo: repo, cache: cache, audit: audit, validator: validate, logger: logger}
}

// List returns courses ordered by code.
func (s *CourseService) List(ctx context.Context, filter models.CourseFilter) ([]models.Course, error) {
	filter.Search = strings.TrimSpace(filter.Search)
	courses, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list courses")
	}
	if courses == nil {
		courses = []models.Course{}
	}
	return courses, nil
}

// Dropdown returns id/code/name triples for select inputs.
func (s *CourseService) Dropdown(ctx context.Context, filter models.CourseFilter) ([]models.CourseOption, error) {
	filter.Search = strings.TrimSpace(filter.Search)
	options, err := s.repo.ListOptions(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list course options")
	}
	if options == nil {
		options = []models.CourseOption{}
	}
	return options, nil
}

// Get returns a course by id.
func (s *CourseService) Get(ctx context.Context, id string) (*models.Course, error) {
	course, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	return course, nil
}

// Create validates and stores a course. Codes are unique case-insensitively.
func (s *CourseService) Create(ctx context.Context, req CreateCourseRequest, meta models.RequestMeta) (*models.Course, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}
	course := &models.Course{
		Code:        normalizeCourseCode(req.Code),
		Name:        strings.TrimSpace(req.Name),
		Credits:     req.Credits,
		Level:       req.Level,
		Program:     strings.TrimSpace(req.Program),
		Description: strings.TrimSpace(req.Description),
	}
	if err := s.ensureUniqueCode(ctx, course.Code, ""); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, course); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "course code already exists")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create course")
	}
	s.afterChange(ctx)
	s.audit.Record(meta, models.AuditActionCourseCreate, "course", course.ID, nil, course)
	return course, nil
}

// Update applies a partial edit.
func (s *CourseService) Update(ctx context.Context, id string, req UpdateCourseRequest, meta models.RequestMeta) (*models.Course, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}
	course, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	before := *course

	if req.Code != nil {
		code := normalizeCourseCode(*req.Code)
		if code != course.Code {
			if err := s.ensureUniqueCode(ctx, code, id); err != nil {
				return nil, err
			}
			course.Code = code
		}
	}
	if req.Name != nil {
		course.Name = strings.TrimSpace(*req.Name)
	}
	if req.Credits != nil {
		course.Credits = *req.Credits
	}
	if req.Level != nil {
		course.Level = *req.Level
	}
	if req.Program != nil {
		course.Program = strings.TrimSpace(*req.Program)
	}
	if req.Description != nil {
		course.Description = strings.TrimSpace(*req.Description)
	}

	if err := s.repo.Update(ctx, course); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "course code already exists")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update course")
	}
	s.afterChange(ctx)
	s.audit.Record(meta, models.AuditActionCourseUpdate, "course", id, before, course)
	return course, nil
}

// Delete removes a course that no section references.
func (s *CourseService) Delete(ctx context.Context, id string, meta models.RequestMeta) error {
	course, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	count, err := s.repo.CountSections(ctx, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check course sections")
	}
	if count > 0 {
		return appErrors.Clone(appErrors.ErrConflict, "course still has sections")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete course")
	}
	s.afterChange(ctx)
	s.audit.Record(meta, models.AuditActionCourseDelete, "course", id, course, nil)
	return nil
}

func (s *CourseService) ensureUniqueCode(ctx context.Context, code, excludeID string) error {
	exists, err := s.repo.ExistsByCode(ctx, code, excludeID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check course code")
	}
	if exists {
		return appErrors.Clone(appErrors.ErrConflict, "course code already exists")
	}
	return nil
}

// afterChange drops cached section listings, which embed course fields.
func (s *CourseService) afterChange(ctx context.Context) {
	s.cache.Invalidate(ctx, sectionCachePattern)
}

func normalizeCourseCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
