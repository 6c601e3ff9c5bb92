package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/krs-online-api/internal/dto"
	"github.com/noah-isme/krs-online-api/internal/service"
	"github.com/noah-isme/krs-online-api/pkg/response"
)

type savedClassService interface {
	List(ctx context.Context, studentID string) ([]dto.SavedClassView, error)
	Save(ctx context.Context, studentID string, req service.SaveClassRequest) (*dto.SavedClassView, error)
	Remove(ctx context.Context, studentID, sectionID string) error
}

// SavedClassHandler exposes the student's bookmarked sections.
type SavedClassHandler struct {
	service savedClassService
}

// NewSavedClassHandler constructs SavedClassHandler.
func NewSavedClassHandler(svc savedClassService) *SavedClassHandler {
	return &SavedClassHandler{service: svc}
}

// List godoc
// @Summary List saved classes
// @Tags SavedClasses
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /user/saved-classes [get]
func (h *SavedClassHandler) List(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	items, err := h.service.List(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// Save godoc
// @Summary Bookmark a section
// @Tags SavedClasses
// @Accept json
// @Produce json
// @Param payload body service.SaveClassRequest true "Section"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /user/saved-classes [post]
func (h *SavedClassHandler) Save(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	var req service.SaveClassRequest
	if !bindJSON(c, &req, "invalid saved class payload") {
		return
	}
	item, err := h.service.Save(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, item)
}

// Remove godoc
// @Summary Remove a bookmark
// @Tags SavedClasses
// @Param jadwalId path string true "Section ID"
// @Success 204
// @Security BearerAuth
// @Router /user/saved-classes/{jadwalId} [delete]
func (h *SavedClassHandler) Remove(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	if err := h.service.Remove(c.Request.Context(), claims.UserID, c.Param("jadwalId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
