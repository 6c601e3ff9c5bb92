package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/krs-online-api/internal/dto"
	"github.com/noah-isme/krs-online-api/internal/middleware"
	"github.com/noah-isme/krs-online-api/internal/models"
	"github.com/noah-isme/krs-online-api/internal/service"
	appErrors "github.com/noah-isme/krs-online-api/pkg/errors"
)

type sectionServiceMock struct {
	sections   []models.SectionDetail
	views      []dto.ClassView
	cached     bool
	updateErr  error
	lastFilter models.SectionFilter
	viewCalled bool
	lastUpdate service.UpdateSectionRequest
}

func (m *sectionServiceMock) List(ctx context.Context, filter models.SectionFilter) ([]models.SectionDetail, bool, error) {
	m.lastFilter = filter
	return m.sections, m.cached, nil
}

func (m *sectionServiceMock) ListClassView(ctx context.Context, filter models.SectionFilter) ([]dto.ClassView, bool, error) {
	m.viewCalled = true
	m.lastFilter = filter
	return m.views, m.cached, nil
}

func (m *sectionServiceMock) Get(ctx context.Context, id string) (*models.SectionDetail, error) {
	return nil, appErrors.Clone(appErrors.ErrNotFound, "section not found")
}

func (m *sectionServiceMock) Create(ctx context.Context, req service.CreateSectionRequest, meta models.RequestMeta) (*models.SectionDetail, error) {
	return &models.SectionDetail{Section: models.Section{ID: "sec-new"}}, nil
}

func (m *sectionServiceMock) Update(ctx context.Context, id string, req service.UpdateSectionRequest, meta models.RequestMeta) (*models.SectionDetail, error) {
	m.lastUpdate = req
	if m.updateErr != nil {
		return nil, m.updateErr
	}
	return &models.SectionDetail{Section: models.Section{ID: id}}, nil
}

func (m *sectionServiceMock) Deactivate(ctx context.Context, id string, meta models.RequestMeta) (*models.WithdrawResult, error) {
	return &models.WithdrawResult{ID: id}, nil
}

func TestSectionHandlerListFiltersAndCacheMeta(t *testing.T) {
	svc := &sectionServiceMock{sections: []models.SectionDetail{{Section: models.Section{ID: "sec-1"}}}, cached: true}
	handler := NewSectionHandler(svc)

	c, w := newTestContext(http.MethodGet, "/jadwal?prodi=Informatika&semester=3&hari=Senin&search=basis&includeInactive=true", "", studentClaims())
	middleware.WithResponseMeta()(c)
	handler.List(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, svc.viewCalled)
	assert.Equal(t, models.SectionFilter{Program: "Informatika", Level: 3, Day: "Senin", Search: "basis"}, svc.lastFilter)

	var body struct {
		Meta map[string]interface{} `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, true, body.Meta["cache_hit"])
}

func TestSectionHandlerListInactiveForAdmins(t *testing.T) {
	svc := &sectionServiceMock{}
	handler := NewSectionHandler(svc)

	admin := &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin}
	c, w := newTestContext(http.MethodGet, "/jadwal?includeInactive=true", "", admin)
	handler.List(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, svc.lastFilter.IncludeInactive)
}

func TestSectionHandlerListClassFormat(t *testing.T) {
	svc := &sectionServiceMock{views: []dto.ClassView{{ID: "sec-1", Capacity: 40, SeatsLeft: 2}}}
	handler := NewSectionHandler(svc)

	c, w := newTestContext(http.MethodGet, "/jadwal?format=kelas", "", nil)
	handler.List(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, svc.viewCalled)
	assert.Contains(t, w.Body.String(), `"sisaKuota":2`)
}

func TestSectionHandlerUpdateCapacityBelowSeats(t *testing.T) {
	svc := &sectionServiceMock{updateErr: appErrors.Clone(appErrors.ErrInvalidCapacity, "capacity below seats taken")}
	handler := NewSectionHandler(svc)

	admin := &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin}
	c, w := newTestContext(http.MethodPut, "/jadwal/sec-1", `{"kuota":5}`, admin)
	c.Params = gin.Params{{Key: "id", Value: "sec-1"}}
	handler.Update(c)

	assert.Equal(t, appErrors.ErrInvalidCapacity.Status, w.Code)
	require.NotNil(t, svc.lastUpdate.Capacity)
	assert.Equal(t, 5, *svc.lastUpdate.Capacity)
}

func TestSectionHandlerGetNotFound(t *testing.T) {
	handler := NewSectionHandler(&sectionServiceMock{})

	c, w := newTestContext(http.MethodGet, "/jadwal/missing", "", nil)
	c.Params = gin.Params{{Key: "id", Value: "missing"}}
	handler.Get(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
}
