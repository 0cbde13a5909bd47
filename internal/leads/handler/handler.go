// Package handler exposes the leads module over HTTP.
package handler

import (
	"net/http"

	"crm_portal_backend/internal/leads/service"
	"crm_portal_backend/internal/leads/transport"
	"crm_portal_backend/platform/httpkit"
	"crm_portal_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	errInvalidRequest = "invalid request body"
	errValidation     = "validation error"
	errInvalidLeadID  = "invalid lead ID"
)

// Handler handles lead HTTP requests.
type Handler struct {
	service *service.Service
	val     *validator.Validator
}

// New creates a new leads handler.
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{service: svc, val: val}
}

// RegisterRoutes mounts lead routes on the given group.
func (h *Handler) RegisterRoutes(g *gin.RouterGroup) {
	g.POST("", h.handleCreate)
	g.GET("/:leadId", h.handleGet)
	g.PATCH("/:leadId", h.handleUpdate)
	g.PUT("/:leadId/stage", h.handleChangeStage)
	g.POST("/:leadId/archive", h.handleArchive)
	g.POST("/:leadId/aging/pause", h.handlePauseAging)
	g.POST("/:leadId/aging/resume", h.handleResumeAging)
	g.POST("/:leadId/activities", h.handleAddActivity)
	g.GET("/:leadId/activities", h.handleListActivities)
	g.GET("/:leadId/history", h.handleListHistory)
}

func (h *Handler) handleCreate(c *gin.Context) {
	var req transport.CreateLeadRequest
	if !h.bindAndValidate(c, &req) {
		return
	}

	resp, err := h.service.Create(c.Request.Context(), req)
	if httpkit.HandleError(c, err) {
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *Handler) handleGet(c *gin.Context) {
	leadID, ok := h.leadID(c)
	if !ok {
		return
	}

	resp, err := h.service.Get(c.Request.Context(), leadID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, resp)
}

func (h *Handler) handleUpdate(c *gin.Context) {
	leadID, ok := h.leadID(c)
	if !ok {
		return
	}
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}

	var req transport.UpdateLeadRequest
	if !h.bindAndValidate(c, &req) {
		return
	}

	if err := h.service.Update(c.Request.Context(), leadID, req, id.AdminID().String()); httpkit.HandleError(c, err) {
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) handleChangeStage(c *gin.Context) {
	leadID, ok := h.leadID(c)
	if !ok {
		return
	}
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}

	var req transport.ChangeStageRequest
	if !h.bindAndValidate(c, &req) {
		return
	}

	resp, err := h.service.ChangeStage(c.Request.Context(), leadID, req, id.AdminID().String())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, resp)
}

func (h *Handler) handleArchive(c *gin.Context) {
	leadID, ok := h.leadID(c)
	if !ok {
		return
	}
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}

	if err := h.service.Archive(c.Request.Context(), leadID, id.AdminID().String()); httpkit.HandleError(c, err) {
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) handlePauseAging(c *gin.Context) {
	leadID, ok := h.leadID(c)
	if !ok {
		return
	}
	if err := h.service.PauseAging(c.Request.Context(), leadID); httpkit.HandleError(c, err) {
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) handleResumeAging(c *gin.Context) {
	leadID, ok := h.leadID(c)
	if !ok {
		return
	}
	if err := h.service.ResumeAging(c.Request.Context(), leadID); httpkit.HandleError(c, err) {
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) handleAddActivity(c *gin.Context) {
	leadID, ok := h.leadID(c)
	if !ok {
		return
	}
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}

	var req transport.AddActivityRequest
	if !h.bindAndValidate(c, &req) {
		return
	}

	resp, err := h.service.AddActivity(c.Request.Context(), leadID, req, id.AdminID().String())
	if httpkit.HandleError(c, err) {
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *Handler) handleListActivities(c *gin.Context) {
	leadID, ok := h.leadID(c)
	if !ok {
		return
	}
	resp, err := h.service.ListActivities(c.Request.Context(), leadID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, resp)
}

func (h *Handler) handleListHistory(c *gin.Context) {
	leadID, ok := h.leadID(c)
	if !ok {
		return
	}
	resp, err := h.service.ListVersionHistory(c.Request.Context(), leadID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, resp)
}

func (h *Handler) leadID(c *gin.Context) (uuid.UUID, bool) {
	leadID, err := uuid.Parse(c.Param("leadId"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, errInvalidLeadID, nil)
		return uuid.Nil, false
	}
	return leadID, true
}

func (h *Handler) bindAndValidate(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, errInvalidRequest, nil)
		return false
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, errValidation, err.Error())
		return false
	}
	return true
}
