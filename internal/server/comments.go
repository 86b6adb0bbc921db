package server

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"taskflow/internal/activity"
	"taskflow/internal/models"
)

type commentRequest struct {
	Content  string   `json:"content"`
	Mentions []string `json:"mentions"`
}

// handleListComments returns a task's comments, newest first.
func (s *Server) handleListComments(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()

	if _, err := s.store.GetTask(ctx, id); err != nil {
		s.fail(c, err)
		return
	}
	comments, err := s.store.ListComments(ctx, id)
	if err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"comments": comments})
}

// handleCreateComment adds a comment and notifies mentioned users.
func (s *Server) handleCreateComment(c *gin.Context) {
	actor, ok := identity(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req commentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}

	ctx := c.Request.Context()
	task, err := s.store.GetTask(ctx, id)
	if err != nil {
		s.fail(c, err)
		return
	}
	comment, err := s.store.CreateComment(ctx, models.Comment{
		TaskID:   task.ID,
		UserID:   actor.UserID,
		Content:  req.Content,
		Mentions: activity.Recipients(req.Mentions, ""),
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	if err := s.activity.Commented(ctx, task, comment); err != nil {
		s.logger.Warn("comment activity failed", zap.String("comment_id", comment.ID), zap.Error(err))
	}
	respondSuccess(c, http.StatusCreated, gin.H{"comment": comment})
}

// handleDeleteComment removes a comment; only its author may do so.
func (s *Server) handleDeleteComment(c *gin.Context) {
	actor, ok := identity(c)
	if !ok {
		return
	}
	taskID, ok := parseID(c, "id")
	if !ok {
		return
	}
	commentID, ok := parseID(c, "commentID")
	if !ok {
		return
	}

	ctx := c.Request.Context()
	comment, err := s.store.GetComment(ctx, commentID)
	if err != nil {
		s.fail(c, err)
		return
	}
	if comment.TaskID != taskID {
		s.fail(c, fmt.Errorf("comment %s: %w", commentID, models.ErrNotFound))
		return
	}
	if comment.UserID != actor.UserID {
		s.fail(c, fmt.Errorf("%w: only the author may delete a comment", models.ErrForbidden))
		return
	}
	if err := s.store.DeleteComment(ctx, commentID); err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusNoContent, nil)
}
