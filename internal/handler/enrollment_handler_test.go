package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/krs-online-api/internal/middleware"
	"github.com/noah-isme/krs-online-api/internal/models"
	"github.com/noah-isme/krs-online-api/internal/service"
	appErrors "github.com/noah-isme/krs-online-api/pkg/errors"
)

type enrollmentServiceMock struct {
	enrollResp   *models.EnrollmentDetail
	enrollErr    error
	withdrawResp *models.WithdrawResult
	withdrawErr  error
	listResp     []models.EnrollmentDetail

	lastEnroll    service.EnrollRequest
	lastStudentID string
	lastFilter    models.TermFilter
	lastOwner     string
	enrollCalled  bool
}

func (m *enrollmentServiceMock) Get(ctx context.Context, enrollmentID, ownerID string) (*models.EnrollmentDetail, error) {
	m.lastOwner = ownerID
	if enrollmentID == "missing" {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
	}
	return &models.EnrollmentDetail{Enrollment: models.Enrollment{ID: enrollmentID}}, nil
}

func (m *enrollmentServiceMock) Enroll(ctx context.Context, req service.EnrollRequest, meta models.RequestMeta) (*models.EnrollmentDetail, error) {
	m.enrollCalled = true
	m.lastEnroll = req
	return m.enrollResp, m.enrollErr
}

func (m *enrollmentServiceMock) Withdraw(ctx context.Context, enrollmentID, studentID string, meta models.RequestMeta) (*models.WithdrawResult, error) {
	m.lastStudentID = studentID
	return m.withdrawResp, m.withdrawErr
}

func (m *enrollmentServiceMock) ListForStudent(ctx context.Context, studentID string, filter models.TermFilter) ([]models.EnrollmentDetail, error) {
	m.lastStudentID = studentID
	m.lastFilter = filter
	return m.listResp, nil
}

type cardExporterMock struct {
	file      *service.ExportFile
	err       error
	lastTerm  models.Term
	lastFmt   service.ExportFormat
	studentID string
}

func (m *cardExporterMock) StudentCard(ctx context.Context, studentID string, term models.Term, format service.ExportFormat) (*service.ExportFile, error) {
	m.studentID = studentID
	m.lastTerm = term
	m.lastFmt = format
	return m.file, m.err
}

func newTestContext(method, target, body string, claims *models.JWTClaims) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	var req *http.Request
	if body == "" {
		req, _ = http.NewRequest(method, target, nil)
	} else {
		req, _ = http.NewRequest(method, target, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	}
	c.Request = req
	if claims != nil {
		c.Set(middleware.ContextUserKey, claims)
	}
	return c, w
}

func studentClaims() *models.JWTClaims {
	return &models.JWTClaims{UserID: "student-1", NIM: "2201001", Role: models.RoleStudent}
}

func TestEnrollmentHandlerEnrollUsesTokenStudent(t *testing.T) {
	svc := &enrollmentServiceMock{enrollResp: &models.EnrollmentDetail{
		Enrollment: models.Enrollment{ID: "krs-1", Status: models.EnrollmentStatusApproved},
	}}
	handler := NewEnrollmentHandler(svc, &cardExporterMock{})

	c, w := newTestContext(http.MethodPost, "/krs", `{"jadwalId":"sec-1","semester":"Ganjil","tahunAjaran":"2024/2025"}`, studentClaims())
	handler.Enroll(c)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "student-1", svc.lastEnroll.StudentID)
	assert.Equal(t, "sec-1", svc.lastEnroll.SectionID)
	assert.Equal(t, "2024/2025", svc.lastEnroll.AcademicYear)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "KRS berhasil ditambahkan", body["message"])
}

func TestEnrollmentHandlerEnrollRejectsAnonymous(t *testing.T) {
	svc := &enrollmentServiceMock{}
	handler := NewEnrollmentHandler(svc, &cardExporterMock{})

	c, w := newTestContext(http.MethodPost, "/krs", `{"jadwalId":"sec-1"}`, nil)
	handler.Enroll(c)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.False(t, svc.enrollCalled)
}

func TestEnrollmentHandlerEnrollInvalidBody(t *testing.T) {
	svc := &enrollmentServiceMock{}
	handler := NewEnrollmentHandler(svc, &cardExporterMock{})

	c, w := newTestContext(http.MethodPost, "/krs", `{"jadwalId":`, studentClaims())
	handler.Enroll(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.False(t, svc.enrollCalled)
}

func TestEnrollmentHandlerEnrollMapsQuotaError(t *testing.T) {
	svc := &enrollmentServiceMock{enrollErr: appErrors.Clone(appErrors.ErrQuotaExceeded, "credit limit reached")}
	handler := NewEnrollmentHandler(svc, &cardExporterMock{})

	c, w := newTestContext(http.MethodPost, "/krs", `{"jadwalId":"sec-1","semester":"Ganjil","tahunAjaran":"2024/2025"}`, studentClaims())
	handler.Enroll(c)

	assert.Equal(t, appErrors.ErrQuotaExceeded.Status, w.Code)
	assert.Contains(t, w.Body.String(), appErrors.ErrQuotaExceeded.Code)
}

func TestEnrollmentHandlerListScopesStudents(t *testing.T) {
	svc := &enrollmentServiceMock{}
	handler := NewEnrollmentHandler(svc, &cardExporterMock{})

	c, w := newTestContext(http.MethodGet, "/krs?semester=Ganjil&tahunAjaran=2024/2025&studentId=other", "", studentClaims())
	handler.List(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "student-1", svc.lastStudentID)
	assert.Equal(t, models.TermFilter{Semester: "Ganjil", AcademicYear: "2024/2025"}, svc.lastFilter)

	admin := &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin}
	c, _ = newTestContext(http.MethodGet, "/krs?studentId=other", "", admin)
	handler.List(c)
	assert.Equal(t, "other", svc.lastStudentID)
}

func TestEnrollmentHandlerWithdrawPassesOwner(t *testing.T) {
	svc := &enrollmentServiceMock{withdrawResp: &models.WithdrawResult{ID: "krs-1"}}
	handler := NewEnrollmentHandler(svc, &cardExporterMock{})

	c, w := newTestContext(http.MethodDelete, "/krs/krs-1", "", studentClaims())
	c.Params = gin.Params{{Key: "id", Value: "krs-1"}}
	handler.Withdraw(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "student-1", svc.lastStudentID)
}

func TestEnrollmentHandlerExportStreamsFile(t *testing.T) {
	exporter := &cardExporterMock{file: &service.ExportFile{
		Filename:    "krs_2201001_2024-2025_Ganjil.csv",
		ContentType: "text/csv",
		Data:        []byte("a,b\n"),
	}}
	handler := NewEnrollmentHandler(&enrollmentServiceMock{}, exporter)

	c, w := newTestContext(http.MethodGet, "/krs/export?format=csv&semester=Ganjil&tahunAjaran=2024/2025", "", studentClaims())
	handler.Export(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, service.ExportFormatCSV, exporter.lastFmt)
	assert.Equal(t, "Ganjil", exporter.lastTerm.Semester)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "krs_2201001_2024-2025_Ganjil.csv")
	assert.Equal(t, "a,b\n", w.Body.String())
}

func TestEnrollmentHandlerExportRejectsFormat(t *testing.T) {
	exporter := &cardExporterMock{}
	handler := NewEnrollmentHandler(&enrollmentServiceMock{}, exporter)

	c, w := newTestContext(http.MethodGet, "/krs/export?format=xlsx", "", studentClaims())
	handler.Export(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, exporter.studentID)
}

func TestEnrollmentHandlerGetScopesOwner(t *testing.T) {
	svc := &enrollmentServiceMock{}
	handler := NewEnrollmentHandler(svc, &cardExporterMock{})

	c, w := newTestContext(http.MethodGet, "/krs/krs-1", "", studentClaims())
	c.Params = gin.Params{{Key: "id", Value: "krs-1"}}
	handler.Get(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "student-1", svc.lastOwner)

	admin := &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin}
	c, w = newTestContext(http.MethodGet, "/krs/missing", "", admin)
	c.Params = gin.Params{{Key: "id", Value: "missing"}}
	handler.Get(c)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Empty(t, svc.lastOwner)
}
