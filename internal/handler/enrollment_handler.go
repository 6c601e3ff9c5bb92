package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/krs-online-api/internal/middleware"
	"github.com/noah-isme/krs-online-api/internal/models"
	"github.com/noah-isme/krs-online-api/internal/service"
	"github.com/noah-isme/krs-online-api/pkg/response"
)

type enrollmentService interface {
	Enroll(ctx context.Context, req service.EnrollRequest, meta models.RequestMeta) (*models.EnrollmentDetail, error)
	Withdraw(ctx context.Context, enrollmentID, studentID string, meta models.RequestMeta) (*models.WithdrawResult, error)
	ListForStudent(ctx context.Context, studentID string, filter models.TermFilter) ([]models.EnrollmentDetail, error)
	Get(ctx context.Context, enrollmentID, ownerID string) (*models.EnrollmentDetail, error)
}

type cardExporter interface {
	StudentCard(ctx context.Context, studentID string, term models.Term, format service.ExportFormat) (*service.ExportFile, error)
}

// EnrollmentHandler exposes the KRS endpoints of the signed-in student.
type EnrollmentHandler struct {
	enrollments enrollmentService
	exporter    cardExporter
}

// NewEnrollmentHandler constructs EnrollmentHandler.
func NewEnrollmentHandler(enrollments enrollmentService, exporter cardExporter) *EnrollmentHandler {
	return &EnrollmentHandler{enrollments: enrollments, exporter: exporter}
}

// studentScope resolves whose KRS is addressed. Admins may pass studentId.
func studentScope(c *gin.Context, claims *models.JWTClaims) string {
	if claims.Role == models.RoleAdmin {
		if id := strings.TrimSpace(c.Query("studentId")); id != "" {
			return id
		}
	}
	return claims.UserID
}

// List godoc
// @Summary List KRS entries
// @Tags KRS
// @Produce json
// @Param semester query string false "Semester"
// @Param tahunAjaran query string false "Academic year"
// @Param studentId query string false "Admins only"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /krs [get]
func (h *EnrollmentHandler) List(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	filter := models.TermFilter{
		Semester:     strings.TrimSpace(c.Query("semester")),
		AcademicYear: strings.TrimSpace(c.Query("tahunAjaran")),
	}
	items, err := h.enrollments.ListForStudent(c.Request.Context(), studentScope(c, claims), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// Get godoc
// @Summary Get one KRS entry
// @Tags KRS
// @Produce json
// @Param id path string true "Enrollment ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /krs/{id} [get]
func (h *EnrollmentHandler) Get(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	owner := claims.UserID
	if claims.Role == models.RoleAdmin {
		owner = ""
	}
	detail, err := h.enrollments.Get(c.Request.Context(), c.Param("id"), owner)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// Enroll godoc
// @Summary Add a section to the KRS
// @Description Approved while seats remain, otherwise queued as pending
// @Tags KRS
// @Accept json
// @Produce json
// @Param payload body service.EnrollRequest true "Enrollment"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /krs [post]
func (h *EnrollmentHandler) Enroll(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	var req service.EnrollRequest
	if !bindJSON(c, &req, "invalid enrollment payload") {
		return
	}
	req.StudentID = claims.UserID

	detail, err := h.enrollments.Enroll(c.Request.Context(), req, middleware.RequestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, http.StatusCreated, "KRS berhasil ditambahkan", detail)
}

// Withdraw godoc
// @Summary Remove a KRS entry
// @Tags KRS
// @Produce json
// @Param id path string true "Enrollment ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /krs/{id} [delete]
func (h *EnrollmentHandler) Withdraw(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	res, err := h.enrollments.Withdraw(c.Request.Context(), c.Param("id"), claims.UserID, middleware.RequestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, http.StatusOK, "KRS berhasil dihapus", res)
}

// Export godoc
// @Summary Download the KRS card
// @Tags KRS
// @Produce application/pdf
// @Produce text/csv
// @Param semester query string true "Semester"
// @Param tahunAjaran query string true "Academic year"
// @Param format query string false "pdf or csv"
// @Success 200 {file} binary
// @Security BearerAuth
// @Router /krs/export [get]
func (h *EnrollmentHandler) Export(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	format, err := service.ParseExportFormat(c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}
	term := models.Term{Semester: c.Query("semester"), AcademicYear: c.Query("tahunAjaran")}
	file, err := h.exporter.StudentCard(c.Request.Context(), studentScope(c, claims), term, format)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Download(c, file.Filename, file.ContentType, file.Data)
}
