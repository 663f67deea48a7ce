package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (h *Handler) listNotifications(c *gin.Context) {
	ns, err := h.svc.Notifications.List(c.Request.Context(), currentUser(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, toNotificationDTOs(ns))
}

func (h *Handler) unreadNotifications(c *gin.Context) {
	ns, err := h.svc.Notifications.Unread(c.Request.Context(), currentUser(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, toNotificationDTOs(ns))
}

func (h *Handler) countUnread(c *gin.Context) {
	n, err := h.svc.Notifications.CountUnread(c.Request.Context(), currentUser(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, gin.H{"unread": n})
}

func (h *Handler) markRead(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Notifications.MarkRead(c.Request.Context(), currentUser(c), id); err != nil {
		respondServiceError(c, err)
		return
	}
	respondMessage(c, "notification marked as read")
}

func (h *Handler) markAllRead(c *gin.Context) {
	n, err := h.svc.Notifications.MarkAllRead(c.Request.Context(), currentUser(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, gin.H{"updated": n})
}

func (h *Handler) deleteNotification(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Notifications.Delete(c.Request.Context(), currentUser(c), id); err != nil {
		respondServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
