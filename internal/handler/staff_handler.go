package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-roster-api/internal/service"
	appErrors "github.com/noah-isme/sma-roster-api/pkg/errors"
	"github.com/noah-isme/sma-roster-api/pkg/response"
)

// StaffHandler wires staff offboarding to HTTP routes.
type StaffHandler struct {
	offboarding *service.OffboardingService
}

// NewStaffHandler constructs a new StaffHandler.
func NewStaffHandler(offboarding *service.OffboardingService) *StaffHandler {
	return &StaffHandler{offboarding: offboarding}
}

// RemoveBatchRequest is the payload for a batch removal.
type RemoveBatchRequest struct {
	StaffIDs []string `json:"staff_ids" binding:"required"`
}

// Remove godoc
// @Summary Remove one staff member from the caller's school
// @Tags Staff
// @Produce json
// @Param id path string true "Staff ID"
// @Success 200 {object} response.Envelope
// @Router /staff/{id} [delete]
func (h *StaffHandler) Remove(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	result, err := h.offboarding.RemoveAffiliation(c.Request.Context(), claims.SchoolID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result)
}

// RemoveBatch godoc
// @Summary Remove many staff members from the caller's school
// @Tags Staff
// @Accept json
// @Produce json
// @Param payload body RemoveBatchRequest true "Staff ids to remove"
// @Success 200 {object} response.Envelope
// @Router /staff [delete]
func (h *StaffHandler) RemoveBatch(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req RemoveBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid removal payload"))
		return
	}

	result, err := h.offboarding.RemoveBatch(c.Request.Context(), claims.SchoolID, req.StaffIDs)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result)
}
