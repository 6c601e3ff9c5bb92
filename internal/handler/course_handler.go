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

type courseService interface {
	List(ctx context.Context, filter models.CourseFilter) ([]models.Course, error)
	Dropdown(ctx context.Context, filter models.CourseFilter) ([]models.CourseOption, error)
	Get(ctx context.Context, id string) (*models.Course, error)
	Create(ctx context.Context, req service.CreateCourseRequest, meta models.RequestMeta) (*models.Course, error)
	Update(ctx context.Context, id string, req service.UpdateCourseRequest, meta models.RequestMeta) (*models.Course, error)
	Delete(ctx context.Context, id string, meta models.RequestMeta) error
}

// CourseHandler exposes the mata kuliah catalog.
type CourseHandler struct {
	service courseService
}

// NewCourseHandler constructs CourseHandler.
func NewCourseHandler(svc courseService) *CourseHandler {
	return &CourseHandler{service: svc}
}

func courseFilter(c *gin.Context) models.CourseFilter {
	return models.CourseFilter{
		Program: strings.TrimSpace(c.Query("prodi")),
		Level:   queryInt(c, "semester"),
		Search:  c.Query("search"),
	}
}

// List godoc
// @Summary List courses
// @Tags Courses
// @Produce json
// @Param prodi query string false "Study program"
// @Param semester query int false "Curriculum semester"
// @Param search query string false "Code or name"
// @Success 200 {object} response.Envelope
// @Router /mata-kuliah [get]
func (h *CourseHandler) List(c *gin.Context) {
	courses, err := h.service.List(c.Request.Context(), courseFilter(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, courses, nil)
}

// Dropdown godoc
// @Summary Course options for select inputs
// @Tags Courses
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /mata-kuliah/dropdown [get]
func (h *CourseHandler) Dropdown(c *gin.Context) {
	options, err := h.service.Dropdown(c.Request.Context(), courseFilter(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, options, nil)
}

// Get godoc
// @Summary Get course
// @Tags Courses
// @Produce json
// @Param id path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /mata-kuliah/{id} [get]
func (h *CourseHandler) Get(c *gin.Context) {
	course, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, course, nil)
}

// Create godoc
// @Summary Create course
// @Tags Courses
// @Accept json
// @Produce json
// @Param payload body service.CreateCourseRequest true "Course"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /mata-kuliah [post]
func (h *CourseHandler) Create(c *gin.Context) {
	var req service.CreateCourseRequest
	if !bindJSON(c, &req, "invalid course payload") {
		return
	}
	course, err := h.service.Create(c.Request.Context(), req, middleware.RequestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, course)
}

// Update godoc
// @Summary Update course
// @Tags Courses
// @Accept json
// @Produce json
// @Param id path string true "Course ID"
// @Param payload body service.UpdateCourseRequest true "Changes"
// @Success 200 {object} response.Envelope
// @Router /mata-kuliah/{id} [put]
func (h *CourseHandler) Update(c *gin.Context) {
	var req service.UpdateCourseRequest
	if !bindJSON(c, &req, "invalid course payload") {
		return
	}
	course, err := h.service.Update(c.Request.Context(), c.Param("id"), req, middleware.RequestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, course, nil)
}

// Delete godoc
// @Summary Delete course
// @Tags Courses
// @Param id path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /mata-kuliah/{id} [delete]
func (h *CourseHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id"), middleware.RequestMeta(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, http.StatusOK, "course deleted", nil)
}
