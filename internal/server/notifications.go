package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// handleListNotifications returns the caller's notifications.
func (s *Server) handleListNotifications(c *gin.Context) {
	actor, ok := identity(c)
	if !ok {
		return
	}
	list, err := s.store.ListNotifications(c.Request.Context(), actor.UserID)
	if err != nil {
		s.fail(c, err)
		return
	}
	unread := 0
	for _, n := range list {
		if !n.Read {
			unread++
		}
	}
	respondSuccess(c, http.StatusOK, gin.H{"notifications": list, "unread": unread})
}

// handleReadNotification marks one of the caller's notifications as read.
func (s *Server) handleReadNotification(c *gin.Context) {
	actor, ok := identity(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := s.store.MarkNotificationRead(c.Request.Context(), id, actor.UserID); err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusNoContent, nil)
}
