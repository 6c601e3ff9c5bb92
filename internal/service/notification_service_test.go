package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/krs-online-api/internal/models"
	appErrors "github.com/noah-isme/krs-online-api/pkg/errors"
)

type mockNotificationRepo struct {
	items     []models.Notification
	createErr error
}

func (m *mockNotificationRepo) ListByUser(ctx context.Context, userID string) ([]models.Notification, error) {
	var out []models.Notification
	for i := len(m.items) - 1; i >= 0; i-- {
		if m.items[i].UserID == userID {
			out = append(out, m.items[i])
		}
	}
	return out, nil
}

func (m *mockNotificationRepo) Create(ctx context.Context, n *models.Notification) error {
	if m.createErr != nil {
		return m.createErr
	}
	n.ID = "notif-" + string(rune('a'+len(m.items)))
	m.items = append(m.items, *n)
	return nil
}

func (m *mockNotificationRepo) MarkRead(ctx context.Context, id, userID string) error {
	for i := range m.items {
		if m.items[i].ID == id && m.items[i].UserID == userID {
			m.items[i].Read = true
			return nil
		}
	}
	return sql.ErrNoRows
}

func enrollmentDetail(student string, status models.EnrollmentStatus) *models.EnrollmentDetail {
	return &models.EnrollmentDetail{
		Enrollment: models.Enrollment{ID: "krs-1", StudentID: student, Status: status},
		Section: models.SectionDetail{
			Section: models.Section{ID: "sec-1", ClassCode: "A"},
			Course:  models.Course{Code: "IF201"},
		},
	}
}

func TestNotificationInboxLifecycle(t *testing.T) {
	repo := &mockNotificationRepo{}
	svc := NewNotificationService(repo, nil)
	ctx := context.Background()

	svc.NotifyEnrollment(ctx, enrollmentDetail("stu-1", models.EnrollmentStatusApproved))
	svc.NotifyEnrollment(ctx, enrollmentDetail("stu-1", models.EnrollmentStatusPending))
	svc.NotifyEnrollment(ctx, enrollmentDetail("stu-2", models.EnrollmentStatusApproved))

	items, err := svc.List(ctx, "stu-1")
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, models.NotificationKRSPending, items[0].Type)
	assert.Contains(t, items[0].Message, "IF201 A")
	assert.Equal(t, models.NotificationKRSApproved, items[1].Type)

	require.NoError(t, svc.MarkRead(ctx, items[0].ID, "stu-1"))
	items, err = svc.List(ctx, "stu-1")
	require.NoError(t, err)
	assert.True(t, items[0].Read)
	assert.False(t, items[1].Read)
}

func TestNotificationMarkReadHidesOtherUsers(t *testing.T) {
	repo := &mockNotificationRepo{}
	svc := NewNotificationService(repo, nil)
	ctx := context.Background()

	svc.NotifyEnrollment(ctx, enrollmentDetail("stu-1", models.EnrollmentStatusApproved))

	err := svc.MarkRead(ctx, repo.items[0].ID, "stu-2")
	assert.Equal(t, appErrors.ErrNotFound.Code, appCode(err))
	assert.False(t, repo.items[0].Read)

	err = svc.MarkRead(ctx, " ", "stu-1")
	assert.Equal(t, appErrors.ErrValidation.Code, appCode(err))
}

func TestNotificationListEmptyIsNotNil(t *testing.T) {
	svc := NewNotificationService(&mockNotificationRepo{}, nil)
	items, err := svc.List(context.Background(), "stu-9")
	require.NoError(t, err)
	assert.NotNil(t, items)
	assert.Empty(t, items)
}

func TestNotifyEnrollmentSwallowsStoreErrors(t *testing.T) {
	svc := NewNotificationService(&mockNotificationRepo{createErr: errors.New("db down")}, nil)
	assert.NotPanics(t, func() {
		svc.NotifyEnrollment(context.Background(), enrollmentDetail("stu-1", models.EnrollmentStatusApproved))
	})

	var nilSvc *NotificationService
	assert.NotPanics(t, func() {
		nilSvc.NotifyEnrollment(context.Background(), enrollmentDetail("stu-1", models.EnrollmentStatusApproved))
	})
}
