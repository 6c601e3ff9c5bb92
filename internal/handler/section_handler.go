package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/krs-online-api/internal/dto"
	"github.com/noah-isme/krs-online-api/internal/middleware"
	"github.com/noah-isme/krs-online-api/internal/models"
	"github.com/noah-isme/krs-online-api/internal/service"
	"github.com/noah-isme/krs-online-api/pkg/response"
)

type sectionService interface {
	List(ctx context.Context, filter models.SectionFilter) ([]models.SectionDetail, bool, error)
	ListClassView(ctx context.Context, filter models.SectionFilter) ([]dto.ClassView, bool, error)
	Get(ctx context.Context, id string) (*models.SectionDetail, error)
	Create(ctx context.Context, req service.CreateSectionRequest, meta models.RequestMeta) (*models.SectionDetail, error)
	Update(ctx context.Context, id string, req service.UpdateSectionRequest, meta models.RequestMeta) (*models.SectionDetail, error)
	Deactivate(ctx context.Context, id string, meta models.RequestMeta) (*models.WithdrawResult, error)
}

// SectionHandler exposes the jadwal (section) endpoints.
type SectionHandler struct {
	service sectionService
}

// NewSectionHandler constructs SectionHandler.
func NewSectionHandler(svc sectionService) *SectionHandler {
	return &SectionHandler{service: svc}
}

// List godoc
// @Summary Browse sections
// @Description format=kelas returns flat class cards for the student planner
// @Tags Sections
// @Produce json
// @Param prodi query string false "Study program"
// @Param semester query int false "Curriculum semester"
// @Param hari query string false "Weekday"
// @Param search query string false "Course name, code or lecturer"
// @Param format query string false "kelas"
// @Param includeInactive query bool false "Admins only"
// @Success 200 {object} response.Envelope
// @Router /jadwal [get]
func (h *SectionHandler) List(c *gin.Context) {
	filter := models.SectionFilter{
		Program: strings.TrimSpace(c.Query("prodi")),
		Level:   queryInt(c, "semester"),
		Day:     c.Query("hari"),
		Search:  c.Query("search"),
	}
	if claims := claimsFromContext(c); claims != nil && claims.Role == models.RoleAdmin {
		filter.IncludeInactive, _ = strconv.ParseBool(c.Query("includeInactive"))
	}

	var (
		data   interface{}
		cached bool
		err    error
	)
	if c.Query("format") == "kelas" {
		data, cached, err = h.service.ListClassView(c.Request.Context(), filter)
	} else {
		data, cached, err = h.service.List(c.Request.Context(), filter)
	}
	if err != nil {
		response.Error(c, err)
		return
	}

	middleware.SetCacheHit(c, cached)
	response.JSON(c, http.StatusOK, data, nil, middleware.ExtractMeta(c))
}

// Get godoc
// @Summary Get section
// @Tags Sections
// @Produce json
// @Param id path string true "Section ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /jadwal/{id} [get]
func (h *SectionHandler) Get(c *gin.Context) {
	section, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, section, nil)
}

// Create godoc
// @Summary Create section
// @Tags Sections
// @Accept json
// @Produce json
// @Param payload body service.CreateSectionRequest true "Section"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /jadwal [post]
func (h *SectionHandler) Create(c *gin.Context) {
	var req service.CreateSectionRequest
	if !bindJSON(c, &req, "invalid section payload") {
		return
	}
	section, err := h.service.Create(c.Request.Context(), req, middleware.RequestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, section)
}

// Update godoc
// @Summary Update section
// @Description Capacity may not drop below seats already taken
// @Tags Sections
// @Accept json
// @Produce json
// @Param id path string true "Section ID"
// @Param payload body service.UpdateSectionRequest true "Changes"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /jadwal/{id} [put]
func (h *SectionHandler) Update(c *gin.Context) {
	var req service.UpdateSectionRequest
	if !bindJSON(c, &req, "invalid section payload") {
		return
	}
	section, err := h.service.Update(c.Request.Context(), c.Param("id"), req, middleware.RequestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, section, nil)
}

// Deactivate godoc
// @Summary Deactivate section
// @Tags Sections
// @Param id path string true "Section ID"
// @Success 200 {object} response.Envelope
// @Router /jadwal/{id} [delete]
func (h *SectionHandler) Deactivate(c *gin.Context) {
	res, err := h.service.Deactivate(c.Request.Context(), c.Param("id"), middleware.RequestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}
