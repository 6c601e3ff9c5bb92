package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/krs-online-api/internal/models"
	appErrors "github.com/noah-isme/krs-online-api/pkg/errors"
)

type notificationRepository interface {
	ListByUser(ctx context.Context, userID string) ([]models.Notification, error)
	Create(ctx context.Context, n *models.Notification) error
	MarkRead(ctx context.Context, id, userID string) error
}

// NotificationService backs the in-app inbox.
type NotificationService struct {
	repo   notificationRepository
	logger *zap.Logger
}

// NewNotificationService constructs NotificationService.
func NewNotificationService(repo notificationRepository, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{repo: repo, logger: logger}
}

// List returns the user's notifications, newest first.
func (s *NotificationService) List(ctx context.Context, userID string) ([]models.Notification, error) {
	items, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list notifications")
	}
	if items == nil {
		items = []models.Notification{}
	}
	return items, nil
}

// MarkRead flags one of the user's notifications as read. Notifications owned
// by someone else are reported as missing.
func (s *NotificationService) MarkRead(ctx context.Context, id, userID string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return appErrors.Clone(appErrors.ErrValidation, "notification id is required")
	}
	if err := s.repo.MarkRead(ctx, id, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "notification not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update notification")
	}
	return nil
}

// NotifyEnrollment leaves an inbox entry describing an enrollment decision.
// Failures are logged and never surface to the caller.
func (s *NotificationService) NotifyEnrollment(ctx context.Context, detail *models.EnrollmentDetail) {
	if s == nil || detail == nil {
		return
	}
	class := strings.TrimSpace(detail.Section.Course.Code + " " + detail.Section.ClassCode)
	n := &models.Notification{UserID: detail.StudentID}
	if detail.Status == models.EnrollmentStatusPending {
		n.Type = models.NotificationKRSPending
		n.Title = "KRS menunggu kuota"
		n.Message = fmt.Sprintf("Kelas %s sudah penuh. Pendaftaran Anda masuk daftar tunggu.", class)
	} else {
		n.Type = models.NotificationKRSApproved
		n.Title = "KRS disetujui"
		n.Message = fmt.Sprintf("Anda terdaftar di kelas %s.", class)
	}
	if err := s.repo.Create(ctx, n); err != nil {
		s.logger.Warn("failed to store notification",
			zap.String("user_id", n.UserID),
			zap.String("type", string(n.Type)),
			zap.Error(err),
		)
	}
}
