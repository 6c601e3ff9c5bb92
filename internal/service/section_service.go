package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/krs-online-api/internal/dto"
	"github.com/noah-isme/krs-online-api/internal/models"
	"github.com/noah-isme/krs-online-api/internal/repository"
	appErrors "github.com/noah-isme/krs-online-api/pkg/errors"
)

const (
	sectionCachePrefix  = "sections:"
	sectionCachePattern = sectionCachePrefix + "*"
	sectionEditRetries  = 3
)

var clockPattern = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)

// weekdays maps accepted day tokens to their stored form.
var weekdays = map[string]string{
	"senin": "Senin", "selasa": "Selasa", "rabu": "Rabu", "kamis": "Kamis",
	"jumat": "Jumat", "jum'at": "Jumat", "sabtu": "Sabtu", "minggu": "Minggu",
	"monday": "Senin", "tuesday": "Selasa", "wednesday": "Rabu", "thursday": "Kamis",
	"friday": "Jumat", "saturday": "Sabtu", "sunday": "Minggu",
}

type sectionRepository interface {
	List(ctx context.Context, filter models.SectionFilter) ([]models.SectionDetail, error)
	FindByID(ctx context.Context, id string) (*models.Section, error)
	FindDetailByID(ctx context.Context, id string) (*models.SectionDetail, error)
	Create(ctx context.Context, section *models.Section) error
	Update(ctx context.Context, section *models.Section) error
	Deactivate(ctx context.Context, id string) error
}

type courseReader interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
}

// CreateSectionRequest describes a new section (jadwal).
type CreateSectionRequest struct {
	CourseID  string `json:"mataKuliahId" validate:"required"`
	ClassCode string `json:"kodeKelas" validate:"max=10"`
	Day       string `json:"hari" validate:"required"`
	StartTime string `json:"jamMulai" validate:"required"`
	EndTime   string `json:"jamSelesai" validate:"required"`
	Room      string `json:"ruangan" validate:"max=50"`
	Lecturer  string `json:"dosen" validate:"max=100"`
	Capacity  int    `json:"kuota" validate:"required,min=1"`
	Active    *bool  `json:"isActive"`
}

// UpdateSectionRequest carries optional section edits.
type UpdateSectionRequest struct {
	CourseID  *string `json:"mataKuliahId" validate:"omitempty,min=1"`
	ClassCode *string `json:"kodeKelas" validate:"omitempty,max=10"`
	Day       *string `json:"hari"`
	StartTime *string `json:"jamMulai"`
	EndTime   *string `json:"jamSelesai"`
	Room      *string `json:"ruangan" validate:"omitempty,max=50"`
	Lecturer  *string `json:"dosen" validate:"omitempty,max=100"`
	Capacity  *int    `json:"kuota"`
	Active    *bool   `json:"isActive"`
}

func (r UpdateSectionRequest) patch() models.SectionPatch {
	return models.SectionPatch{
		CourseID:  r.CourseID,
		ClassCode: r.ClassCode,
		Day:       r.Day,
		StartTime: r.StartTime,
		EndTime:   r.EndTime,
		Room:      r.Room,
		Lecturer:  r.Lecturer,
		Capacity:  r.Capacity,
		Active:    r.Active,
	}
}

// SectionService manages the section catalog. It never writes seats_taken
// beyond the initial zero.
type SectionService struct {
	repo      sectionRepository
	courses   courseReader
	cache     *CacheService
	audit     *AuditService
	validator *validator.Validate
	logger    *zap.Logger
	cacheTTL  time.Duration
}

// NewSectionService constructs SectionService.
func NewSectionService(repo sectionRepository, courses courseReader, cache *CacheService, audit *AuditService, validate *validator.Validate, logger *zap.Logger, cacheTTL time.Duration) *SectionService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SectionService{repo: repo, courses: courses, cache: cache, audit: audit, validator: validate, logger: logger, cacheTTL: cacheTTL}
}

// List returns sections with their course ordered by weekday then start time.
// cached reports whether the result came from the cache.
func (s *SectionService) List(ctx context.Context, filter models.SectionFilter) (sections []models.SectionDetail, cached bool, err error) {
	if filter.Day != "" {
		day, ok := NormalizeDay(filter.Day)
		if !ok {
			return nil, false, appErrors.Clone(appErrors.ErrValidation, "unknown day")
		}
		filter.Day = day
	}
	filter.Search = strings.TrimSpace(filter.Search)

	key := sectionListKey(filter)
	if s.cache.Get(ctx, key, &sections) {
		return sections, true, nil
	}

	sections, err = s.repo.List(ctx, filter)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list sections")
	}
	if sections == nil {
		sections = []models.SectionDetail{}
	}
	s.cache.Set(ctx, key, sections, s.cacheTTL)
	return sections, false, nil
}

// ListClassView renders List as flat class cards.
func (s *SectionService) ListClassView(ctx context.Context, filter models.SectionFilter) ([]dto.ClassView, bool, error) {
	sections, cached, err := s.List(ctx, filter)
	if err != nil {
		return nil, false, err
	}
	views := make([]dto.ClassView, 0, len(sections))
	for i := range sections {
		views = append(views, classViewOf(&sections[i]))
	}
	return views, cached, nil
}

// Get returns one section with its course.
func (s *SectionService) Get(ctx context.Context, id string) (*models.SectionDetail, error) {
	section, err := s.repo.FindDetailByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "section not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load section")
	}
	return section, nil
}

// Create validates the schedule and inserts a section with no seats taken.
func (s *SectionService) Create(ctx context.Context, req CreateSectionRequest, meta models.RequestMeta) (*models.SectionDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid section payload")
	}

	section := &models.Section{
		CourseID:  strings.TrimSpace(req.CourseID),
		ClassCode: strings.TrimSpace(req.ClassCode),
		StartTime: strings.TrimSpace(req.StartTime),
		EndTime:   strings.TrimSpace(req.EndTime),
		Room:      strings.TrimSpace(req.Room),
		Lecturer:  strings.TrimSpace(req.Lecturer),
		Capacity:  req.Capacity,
		Active:    req.Active == nil || *req.Active,
	}
	day, ok := NormalizeDay(req.Day)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, "day must be a weekday name such as Senin")
	}
	section.Day = day
	if err := validateTimeRange(section.StartTime, section.EndTime); err != nil {
		return nil, err
	}
	if err := s.ensureCourse(ctx, section.CourseID); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, section); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create section")
	}

	s.cache.Invalidate(ctx, sectionCachePattern)
	s.audit.Record(meta, models.AuditActionSectionCreate, "section", section.ID, nil, section)
	return s.Get(ctx, section.ID)
}

// Update applies a partial edit. Capacity may not drop below the seats
// already taken; the check and the write are retried together when the seat
// counter moves underneath.
func (s *SectionService) Update(ctx context.Context, id string, req UpdateSectionRequest, meta models.RequestMeta) (*models.SectionDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid section payload")
	}
	patch := req.patch()

	for attempt := 1; ; attempt++ {
		current, err := s.repo.FindByID(ctx, id)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "section not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load section")
		}
		before := *current

		updated, err := s.applyPatch(ctx, *current, patch)
		if err != nil {
			return nil, err
		}

		err = s.repo.Update(ctx, &updated)
		if err == nil {
			s.cache.Invalidate(ctx, sectionCachePattern)
			s.audit.Record(meta, models.AuditActionSectionUpdate, "section", id, before, updated)
			return s.Get(ctx, id)
		}
		if !errors.Is(err, repository.ErrVersionConflict) {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update section")
		}
		if attempt >= sectionEditRetries {
			return nil, appErrors.Clone(appErrors.ErrConflict, "section changed concurrently, please retry")
		}
		s.logger.Debug("section changed during edit, retrying", zap.String("section_id", id), zap.Int("attempt", attempt))
	}
}

// Deactivate soft-deletes a section. Existing enrollments keep pointing at it.
func (s *SectionService) Deactivate(ctx context.Context, id string, meta models.RequestMeta) (*models.WithdrawResult, error) {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "section not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load section")
	}
	if err := s.repo.Deactivate(ctx, id); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to deactivate section")
	}
	s.cache.Invalidate(ctx, sectionCachePattern)
	s.audit.Record(meta, models.AuditActionSectionDisable, "section", id, nil, map[string]bool{"active": false})
	return &models.WithdrawResult{ID: id, Message: "section deactivated"}, nil
}

func (s *SectionService) applyPatch(ctx context.Context, section models.Section, patch models.SectionPatch) (models.Section, error) {
	if patch.CourseID != nil && strings.TrimSpace(*patch.CourseID) != section.CourseID {
		courseID := strings.TrimSpace(*patch.CourseID)
		if err := s.ensureCourse(ctx, courseID); err != nil {
			return section, err
		}
		section.CourseID = courseID
	}
	if patch.ClassCode != nil {
		section.ClassCode = strings.TrimSpace(*patch.ClassCode)
	}
	if patch.Day != nil {
		day, ok := NormalizeDay(*patch.Day)
		if !ok {
			return section, appErrors.Clone(appErrors.ErrValidation, "day must be a weekday name such as Senin")
		}
		section.Day = day
	}
	if patch.StartTime != nil || patch.EndTime != nil {
		if patch.StartTime != nil {
			section.StartTime = strings.TrimSpace(*patch.StartTime)
		}
		if patch.EndTime != nil {
			section.EndTime = strings.TrimSpace(*patch.EndTime)
		}
		if err := validateTimeRange(section.StartTime, section.EndTime); err != nil {
			return section, err
		}
	}
	if patch.Room != nil {
		section.Room = strings.TrimSpace(*patch.Room)
	}
	if patch.Lecturer != nil {
		section.Lecturer = strings.TrimSpace(*patch.Lecturer)
	}
	if patch.Capacity != nil {
		if *patch.Capacity < 1 {
			return section, appErrors.Clone(appErrors.ErrValidation, "capacity must be at least 1")
		}
		if *patch.Capacity < section.SeatsTaken {
			return section, appErrors.Clone(appErrors.ErrInvalidCapacity,
				fmt.Sprintf("capacity %d is below the %d seats already taken", *patch.Capacity, section.SeatsTaken))
		}
		section.Capacity = *patch.Capacity
	}
	if patch.Active != nil {
		section.Active = *patch.Active
	}
	return section, nil
}

func (s *SectionService) ensureCourse(ctx context.Context, courseID string) error {
	if _, err := s.courses.FindByID(ctx, courseID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	return nil
}

func classViewOf(sec *models.SectionDetail) dto.ClassView {
	left := sec.Capacity - sec.SeatsTaken
	if left < 0 {
		left = 0
	}
	return dto.ClassView{
		ID:           sec.ID,
		CourseCode:   sec.Course.Code,
		CourseName:   sec.Course.Name,
		Credits:      sec.Course.Credits,
		Lecturer:     sec.Lecturer,
		Room:         sec.Room,
		Schedule:     fmt.Sprintf("%s, %s-%s", sec.Day, sec.StartTime, sec.EndTime),
		Day:          sec.Day,
		StartTime:    sec.StartTime,
		EndTime:      sec.EndTime,
		ClassCode:    sec.ClassCode,
		Capacity:     sec.Capacity,
		SeatsTaken:   sec.SeatsTaken,
		SeatsLeft:    left,
		Active:       sec.Active,
		Program:      sec.Course.Program,
		Level:        sec.Course.Level,
		WaitlistOnly: sec.IsFull(),
	}
}

// NormalizeDay maps a weekday token, in any case, to its stored form.
func NormalizeDay(raw string) (string, bool) {
	day, ok := weekdays[strings.ToLower(strings.TrimSpace(raw))]
	return day, ok
}

// validateTimeRange requires two HH:MM clock values with start before end.
// Fixed-width values compare correctly as strings.
func validateTimeRange(start, end string) error {
	if !clockPattern.MatchString(start) || !clockPattern.MatchString(end) {
		return appErrors.Clone(appErrors.ErrValidation, "times must use the HH:MM format")
	}
	if start >= end {
		return appErrors.Clone(appErrors.ErrValidation, "start time must be before end time")
	}
	return nil
}

func sectionListKey(filter models.SectionFilter) string {
	return fmt.Sprintf("%slist:%s:%d:%s:%s:%t", sectionCachePrefix,
		strings.ToLower(filter.Program), filter.Level, filter.Day, strings.ToLower(filter.Search), filter.IncludeInactive)
}
