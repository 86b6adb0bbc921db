package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"taskflow/internal/models"
)

type activityRequest struct {
	Action  models.ActivityAction `json:"action"`
	Details map[string]any        `json:"details"`
}

// handleListActivity returns a task's activity log, newest first.
func (s *Server) handleListActivity(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()

	if _, err := s.store.GetTask(ctx, id); err != nil {
		s.fail(c, err)
		return
	}
	entries, err := s.store.ListActivity(ctx, id)
	if err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"activity": entries})
}

// handleCreateActivity appends a caller-supplied entry to the log.
func (s *Server) handleCreateActivity(c *gin.Context) {
	actor, ok := identity(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req activityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}

	ctx := c.Request.Context()
	if _, err := s.store.GetTask(ctx, id); err != nil {
		s.fail(c, err)
		return
	}
	entry, err := s.store.CreateActivity(ctx, models.Activity{
		TaskID:  id,
		UserID:  actor.UserID,
		Action:  req.Action,
		Details: req.Details,
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusCreated, gin.H{"activity": entry})
}
