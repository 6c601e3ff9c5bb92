package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/krs-online-api/internal/models"
	"github.com/noah-isme/krs-online-api/internal/repository"
	appErrors "github.com/noah-isme/krs-online-api/pkg/errors"
)

type enrollmentTxManager interface {
	WithTx(ctx context.Context, fn func(ctx context.Context, repos repository.TxRepositories) error) error
}

type enrollmentReader interface {
	ListByStudent(ctx context.Context, studentID string, filter models.TermFilter) ([]models.EnrollmentDetail, error)
	FindDetailByID(ctx context.Context, id string) (*models.EnrollmentDetail, error)
}

type studentReader interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

// EnrollRequest asks for a seat in a section for one term.
type EnrollRequest struct {
	StudentID    string `json:"-" validate:"required"`
	SectionID    string `json:"jadwalId" validate:"required"`
	Semester     string `json:"semester" validate:"required"`
	AcademicYear string `json:"tahunAjaran" validate:"required"`
}

// EnrollmentConfig tunes admission.
type EnrollmentConfig struct {
	DefaultMaxCredits int
	MaxRetries        int
}

// EnrollmentService admits students into sections. Every enroll and withdraw
// runs in one transaction that couples the enrollment row with the section's
// seat counter; a lost compare-and-swap on the counter restarts the
// transaction with fresh reads.
type EnrollmentService struct {
	tx          enrollmentTxManager
	enrollments enrollmentReader
	students    studentReader
	cache       *CacheService
	metrics     *MetricsService
	audit       *AuditService
	inbox       *NotificationService
	validator   *validator.Validate
	logger      *zap.Logger
	config      EnrollmentConfig
}

// NewEnrollmentService constructs EnrollmentService.
func NewEnrollmentService(tx enrollmentTxManager, enrollments enrollmentReader, students studentReader, cache *CacheService, metrics *MetricsService, audit *AuditService, inbox *NotificationService, validate *validator.Validate, logger *zap.Logger, cfg EnrollmentConfig) *EnrollmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.DefaultMaxCredits <= 0 {
		cfg.DefaultMaxCredits = models.DefaultMaxCredits
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 5
	}
	return &EnrollmentService{
		tx:          tx,
		enrollments: enrollments,
		students:    students,
		cache:       cache,
		metrics:     metrics,
		audit:       audit,
		inbox:       inbox,
		validator:   validate,
		logger:      logger,
		config:      cfg,
	}
}

// Enroll records the student's claim on a section. The status is approved
// when a seat is free at the time of the decision and pending otherwise; it
// is never revisited later.
func (s *EnrollmentService) Enroll(ctx context.Context, req EnrollRequest, meta models.RequestMeta) (*models.EnrollmentDetail, error) {
	req.SectionID = strings.TrimSpace(req.SectionID)
	req.Semester = strings.TrimSpace(req.Semester)
	req.AcademicYear = strings.TrimSpace(req.AcademicYear)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid enrollment payload")
	}

	student, err := s.students.FindByID(ctx, req.StudentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, s.reject(appErrors.Clone(appErrors.ErrNotFound, "student not found"))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	ceiling := student.CreditCeiling(s.config.DefaultMaxCredits)
	term := models.Term{Semester: req.Semester, AcademicYear: req.AcademicYear}

	var result *models.EnrollmentDetail
	err = s.withSeatRetry(ctx, "enroll", func(ctx context.Context, repos repository.TxRepositories) error {
		section, err := repos.Sections.FindDetailByID(ctx, req.SectionID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.Clone(appErrors.ErrNotFound, "section not found")
			}
			return fmt.Errorf("load section: %w", err)
		}
		if !section.Active {
			return appErrors.ErrSectionInactive
		}

		existing, err := repos.Enrollments.FindByStudentSectionTerm(ctx, req.StudentID, section.ID, term)
		if err != nil {
			return err
		}
		if existing != nil {
			return appErrors.Clone(appErrors.ErrConflict, "already enrolled in this section for the term")
		}

		status := models.EnrollmentStatusApproved
		if section.IsFull() {
			status = models.EnrollmentStatusPending
		}

		load, err := repos.Enrollments.SumCredits(ctx, req.StudentID, term)
		if err != nil {
			return err
		}
		if load+section.Course.Credits > ceiling {
			return appErrors.Clone(appErrors.ErrQuotaExceeded, fmt.Sprintf("credit load exceeds the maximum of %d credits", ceiling))
		}

		enrollment := &models.Enrollment{
			StudentID: req.StudentID,
			SectionID: section.ID,
			Term:      term,
			Status:    status,
		}
		if err := repos.Enrollments.Create(ctx, enrollment); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return appErrors.Clone(appErrors.ErrConflict, "already enrolled in this section for the term")
			}
			return err
		}

		if enrollment.HoldsSeat() {
			updated, err := repos.Sections.UpdateSeatsTaken(ctx, section.ID, 1, section.Version)
			if err != nil {
				return err
			}
			section.Section = *updated
		}

		result = &models.EnrollmentDetail{Enrollment: *enrollment, Section: *section}
		return nil
	})
	if err != nil {
		return nil, s.reject(err)
	}

	s.afterSeatChange(ctx, result.HoldsSeat())
	s.metrics.RecordEnrollmentDecision(string(result.Status))
	s.audit.Record(meta, models.AuditActionEnroll, "enrollment", result.ID, nil, map[string]interface{}{
		"section_id": result.SectionID,
		"status":     result.Status,
		"semester":   result.Semester,
		"year":       result.AcademicYear,
	})
	s.inbox.NotifyEnrollment(ctx, result)
	s.logger.Info("enrollment recorded",
		zap.String("enrollment_id", result.ID),
		zap.String("student_id", result.StudentID),
		zap.String("section_id", result.SectionID),
		zap.String("status", string(result.Status)),
	)
	return result, nil
}

// Withdraw deletes the student's enrollment. An approved enrollment gives its
// seat back; pending enrollments for the section are left untouched.
func (s *EnrollmentService) Withdraw(ctx context.Context, enrollmentID, studentID string, meta models.RequestMeta) (*models.WithdrawResult, error) {
	var removed *models.Enrollment
	err := s.withSeatRetry(ctx, "withdraw", func(ctx context.Context, repos repository.TxRepositories) error {
		enrollment, err := repos.Enrollments.FindByID(ctx, enrollmentID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
			}
			return fmt.Errorf("load enrollment: %w", err)
		}
		if enrollment.StudentID != studentID {
			return appErrors.Clone(appErrors.ErrForbidden, "enrollment belongs to another student")
		}

		if err := repos.Enrollments.Delete(ctx, enrollment.ID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
			}
			return err
		}

		if enrollment.HoldsSeat() {
			section, err := repos.Sections.FindDetailByID(ctx, enrollment.SectionID)
			if err != nil && !errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("load section: %w", err)
			}
			if section != nil && section.SeatsTaken > 0 {
				if _, err := repos.Sections.UpdateSeatsTaken(ctx, section.ID, -1, section.Version); err != nil {
					return err
				}
			}
		}

		removed = enrollment
		return nil
	})
	if err != nil {
		return nil, s.wrap(err, "failed to withdraw enrollment")
	}

	s.afterSeatChange(ctx, removed.HoldsSeat())
	s.audit.Record(meta, models.AuditActionWithdraw, "enrollment", removed.ID, map[string]interface{}{
		"section_id": removed.SectionID,
		"status":     removed.Status,
	}, nil)
	return &models.WithdrawResult{ID: removed.ID, Message: "enrollment withdrawn"}, nil
}

// ListForStudent returns the student's enrollments, newest first.
func (s *EnrollmentService) ListForStudent(ctx context.Context, studentID string, filter models.TermFilter) ([]models.EnrollmentDetail, error) {
	filter.Semester = strings.TrimSpace(filter.Semester)
	filter.AcademicYear = strings.TrimSpace(filter.AcademicYear)
	enrollments, err := s.enrollments.ListByStudent(ctx, studentID, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrollments")
	}
	if enrollments == nil {
		enrollments = []models.EnrollmentDetail{}
	}
	return enrollments, nil
}

// Get returns one enrollment with its section and course. A non-empty
// ownerID hides enrollments of other students behind NotFound.
func (s *EnrollmentService) Get(ctx context.Context, enrollmentID, ownerID string) (*models.EnrollmentDetail, error) {
	detail, err := s.enrollments.FindDetailByID(ctx, enrollmentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	if ownerID != "" && detail.StudentID != ownerID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
	}
	return detail, nil
}

func (s *EnrollmentService) withSeatRetry(ctx context.Context, op string, fn func(ctx context.Context, repos repository.TxRepositories) error) error {
	for attempt := 1; ; attempt++ {
		err := s.tx.WithTx(ctx, fn)
		if !errors.Is(err, repository.ErrVersionConflict) {
			return err
		}
		s.metrics.RecordSeatConflict()
		s.logger.Debug("seat counter changed concurrently, retrying", zap.String("op", op), zap.Int("attempt", attempt))
		if attempt >= s.config.MaxRetries {
			return appErrors.Clone(appErrors.ErrConflict, "section is busy, please try again")
		}

		timer := time.NewTimer(time.Duration(attempt) * 5 * time.Millisecond)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

func (s *EnrollmentService) afterSeatChange(ctx context.Context, seatChanged bool) {
	if seatChanged {
		s.cache.Invalidate(ctx, sectionCachePattern)
	}
}

func (s *EnrollmentService) reject(err error) error {
	err = s.wrap(err, "failed to enroll")
	var appErr *appErrors.Error
	if errors.As(err, &appErr) && appErr.Status < 500 {
		s.metrics.RecordEnrollmentDecision(strings.ToLower(appErr.Code))
	}
	return err
}

func (s *EnrollmentService) wrap(err error, message string) error {
	var appErr *appErrors.Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
}
