// Package handler exposes in-app notifications over HTTP.
package handler

import (
	"net/http"
	"strconv"

	"crm_portal_backend/internal/notification/inapp"
	"crm_portal_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Handler handles notification HTTP requests.
type Handler struct {
	inapp *inapp.Service
}

// New creates a new notification handler.
func New(inappSvc *inapp.Service) *Handler {
	return &Handler{inapp: inappSvc}
}

// RegisterRoutes mounts notification routes on the given group.
func (h *Handler) RegisterRoutes(g *gin.RouterGroup) {
	g.GET("", h.handleList)
	g.GET("/unread-count", h.handleUnreadCount)
	g.POST("/:notificationId/read", h.handleMarkRead)
	g.POST("/read-all", h.handleMarkAllRead)
	g.DELETE("/:notificationId", h.handleDelete)
}

func (h *Handler) handleList(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("pageSize", "20"))

	items, total, err := h.inapp.List(c.Request.Context(), id.AdminID(), page, pageSize)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{
		"items": items,
		"total": total,
	})
}

func (h *Handler) handleUnreadCount(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}

	count, err := h.inapp.CountUnread(c.Request.Context(), id.AdminID())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"unread": count})
}

func (h *Handler) handleMarkRead(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}
	notificationID, ok := h.notificationID(c)
	if !ok {
		return
	}

	if err := h.inapp.MarkRead(c.Request.Context(), id.AdminID(), notificationID); httpkit.HandleError(c, err) {
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) handleMarkAllRead(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}

	if err := h.inapp.MarkAllRead(c.Request.Context(), id.AdminID()); httpkit.HandleError(c, err) {
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) handleDelete(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}
	notificationID, ok := h.notificationID(c)
	if !ok {
		return
	}

	if err := h.inapp.Delete(c.Request.Context(), id.AdminID(), notificationID); httpkit.HandleError(c, err) {
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) notificationID(c *gin.Context) (uuid.UUID, bool) {
	notificationID, err := uuid.Parse(c.Param("notificationId"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid notification ID", nil)
		return uuid.Nil, false
	}
	return notificationID, true
}
