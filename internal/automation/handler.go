package automation

import (
	"net/http"

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

// Handler exposes the automation engine over HTTP.
type Handler struct {
	service *Service
	val     *validator.Validator
}

// NewHandler creates a new automation handler.
func NewHandler(svc *Service, val *validator.Validator) *Handler {
	return &Handler{service: svc, val: val}
}

// RegisterRoutes mounts automation routes on the given group.
func (h *Handler) RegisterRoutes(g *gin.RouterGroup) {
	g.GET("/:leadId", h.handleGet)
	g.POST("/:leadId/pause", h.handlePause)
	g.POST("/:leadId/resume", h.handleResume)
	g.POST("/:leadId/replied", h.handleMarkReplied)
	g.POST("/advance", h.handleAdvance)
}

func (h *Handler) handleGet(c *gin.Context) {
	leadID, ok := h.leadID(c)
	if !ok {
		return
	}

	rec, err := h.service.Get(c.Request.Context(), leadID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, toAutomationResponse(rec))
}

func (h *Handler) handlePause(c *gin.Context) {
	leadID, ok := h.leadID(c)
	if !ok {
		return
	}

	var req PauseAutomationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, errInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, errValidation, err.Error())
		return
	}

	if err := h.service.Pause(c.Request.Context(), leadID, req.Reason); httpkit.HandleError(c, err) {
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) handleResume(c *gin.Context) {
	leadID, ok := h.leadID(c)
	if !ok {
		return
	}
	if err := h.service.Resume(c.Request.Context(), leadID); httpkit.HandleError(c, err) {
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) handleMarkReplied(c *gin.Context) {
	leadID, ok := h.leadID(c)
	if !ok {
		return
	}
	if err := h.service.MarkReplied(c.Request.Context(), leadID); httpkit.HandleError(c, err) {
		return
	}
	c.Status(http.StatusNoContent)
}

// handleAdvance triggers one advance pass on demand, outside the scheduler.
func (h *Handler) handleAdvance(c *gin.Context) {
	summary, err := h.service.AdvanceAll(c.Request.Context())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, AdvanceResponse{
		Scanned:   summary.Scanned,
		Sent:      summary.Sent,
		Skipped:   summary.Skipped,
		Completed: summary.Completed,
		Failed:    summary.Failed,
	})
}

func (h *Handler) leadID(c *gin.Context) (uuid.UUID, bool) {
	leadID, err := uuid.Parse(c.Param("leadId"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, errInvalidLeadID, nil)
		return uuid.Nil, false
	}
	return leadID, true
}
