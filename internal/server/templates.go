package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"taskflow/internal/workflow"
)

type createTemplateRequest struct {
	Name        string                `json:"name"`
	Description string                `json:"description"`
	Steps       []workflow.Definition `json:"steps"`
	IsPublic    bool                  `json:"is_public"`
}

// handleListTemplates returns the caller's templates and all public ones.
func (s *Server) handleListTemplates(c *gin.Context) {
	actor, ok := identity(c)
	if !ok {
		return
	}
	list, err := s.store.ListTemplates(c.Request.Context(), actor.UserID)
	if err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"templates": list})
}

// handleCreateTemplate stores a template. Without steps it copies the workflow table.
func (s *Server) handleCreateTemplate(c *gin.Context) {
	actor, ok := identity(c)
	if !ok {
		return
	}
	var req createTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}

	draft, err := s.workflow.Table().NewTemplate(actor.UserID, req.Name, req.Description, req.Steps, req.IsPublic)
	if err != nil {
		s.fail(c, err)
		return
	}
	tpl, err := s.store.CreateTemplate(c.Request.Context(), draft)
	if err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusCreated, gin.H{"template": tpl})
}
