package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/krs-online-api/internal/models"
	appErrors "github.com/noah-isme/krs-online-api/pkg/errors"
)

type notificationServiceMock struct {
	items    []models.Notification
	lastUser string
	lastID   string
}

func (m *notificationServiceMock) List(ctx context.Context, userID string) ([]models.Notification, error) {
	m.lastUser = userID
	return m.items, nil
}

func (m *notificationServiceMock) MarkRead(ctx context.Context, id, userID string) error {
	m.lastUser = userID
	m.lastID = id
	if id == "missing" {
		return appErrors.Clone(appErrors.ErrNotFound, "notification not found")
	}
	return nil
}

func TestNotificationHandlerListUsesTokenUser(t *testing.T) {
	svc := &notificationServiceMock{items: []models.Notification{{ID: "n-1", UserID: "student-1", Type: models.NotificationKRSApproved}}}
	h := NewNotificationHandler(svc)

	c, w := newTestContext(http.MethodGet, "/user/notifications", "", studentClaims())
	h.List(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "student-1", svc.lastUser)
	var body struct {
		Data []models.Notification `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Data, 1)
	assert.Equal(t, "n-1", body.Data[0].ID)
}

func TestNotificationHandlerMarkRead(t *testing.T) {
	svc := &notificationServiceMock{}
	h := NewNotificationHandler(svc)

	c, w := newTestContext(http.MethodPatch, "/user/notifications/n-1/read", "", studentClaims())
	c.Params = gin.Params{{Key: "id", Value: "n-1"}}
	h.MarkRead(c)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "n-1", svc.lastID)
	assert.Equal(t, "student-1", svc.lastUser)

	c, w = newTestContext(http.MethodPatch, "/user/notifications/missing/read", "", studentClaims())
	c.Params = gin.Params{{Key: "id", Value: "missing"}}
	h.MarkRead(c)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestNotificationHandlerRequiresClaims(t *testing.T) {
	h := NewNotificationHandler(&notificationServiceMock{})
	c, w := newTestContext(http.MethodGet, "/user/notifications", "", nil)
	h.List(c)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
