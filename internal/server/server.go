package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"taskflow/internal/activity"
	"taskflow/internal/auth"
	"taskflow/internal/metrics"
	"taskflow/internal/models"
	"taskflow/internal/storage/sqlstore"
	"taskflow/internal/workflow"
)

// Deps are the collaborators the HTTP layer needs.
type Deps struct {
	Store     *sqlstore.Store
	Workflow  *workflow.Engine
	Activity  *activity.Recorder
	Tokens    *auth.TokenManager
	Metrics   *metrics.Recorder
	Logger    *zap.Logger
	StaticDir string
	// Now is the server's local wall clock; defaults to time.Now.
	Now func() time.Time
}

// Server provides HTTP handlers for the task workflow backend.
type Server struct {
	engine    *gin.Engine
	store     *sqlstore.Store
	workflow  *workflow.Engine
	activity  *activity.Recorder
	tokens    *auth.TokenManager
	metrics   *metrics.Recorder
	logger    *zap.Logger
	staticDir string
	now       func() time.Time
}

// New constructs the HTTP server with routes and middleware configured.
func New(d Deps) *Server {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Activity == nil {
		d.Activity = activity.NewRecorder(d.Store, d.Logger)
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(accessLog(d.Logger, "/api"))
	if d.Metrics != nil {
		router.Use(d.Metrics.Middleware())
	}

	srv := &Server{
		engine:    router,
		store:     d.Store,
		workflow:  d.Workflow,
		activity:  d.Activity,
		tokens:    d.Tokens,
		metrics:   d.Metrics,
		logger:    d.Logger,
		staticDir: d.StaticDir,
		now:       d.Now,
	}

	srv.registerRoutes()
	return srv
}

// Engine exposes the underlying Gin engine.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// registerRoutes wires all API and static handlers together.
func (s *Server) registerRoutes() {
	if s.metrics != nil {
		s.engine.GET("/metrics", s.metrics.Handler())
	}

	api := s.engine.Group("/api")
	{
		api.GET("/healthz", s.handleHealth)
		api.GET("/workflow/steps", s.handleWorkflowSteps)

		authed := api.Group("", s.tokens.Middleware())

		tasks := authed.Group("/tasks")
		{
			tasks.GET("", s.handleListTasks)
			tasks.POST("", s.handleCreateTask)
			tasks.GET(":id", s.handleGetTask)
			tasks.POST(":id/recompute", s.handleRecomputeTask)
			tasks.GET(":id/comments", s.handleListComments)
			tasks.POST(":id/comments", s.handleCreateComment)
			tasks.DELETE(":id/comments/:commentID", s.handleDeleteComment)
			tasks.GET(":id/activity", s.handleListActivity)
			tasks.POST(":id/activity", s.handleCreateActivity)
		}

		authed.GET("/task-steps", s.handleListSteps)
		authed.PATCH("/task-steps/:id", s.handleUpdateStep)

		authed.GET("/notifications", s.handleListNotifications)
		authed.POST("/notifications/:id/read", s.handleReadNotification)

		authed.GET("/task-templates", s.handleListTemplates)
		authed.POST("/task-templates", s.handleCreateTemplate)

		authed.GET("/analytics", s.handleAnalytics)
		authed.GET("/export", s.handleExport)
	}

	s.mountStatic()
}

// handleHealth reports readiness, including database reachability.
func (s *Server) handleHealth(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	if err := s.store.Ping(ctx); err != nil {
		s.respondError(c, http.StatusServiceUnavailable, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// parseID validates a uuid path parameter.
func parseID(c *gin.Context, name string) (string, bool) {
	raw := c.Param(name)
	id, err := uuid.Parse(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid identifier"})
		return "", false
	}
	return id.String(), true
}

// identity returns the caller set by the auth middleware.
func identity(c *gin.Context) (models.Identity, bool) {
	id, ok := auth.IdentityFrom(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return models.Identity{}, false
	}
	return id, true
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, models.ErrValidation):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// fail responds with the status matching err.
func (s *Server) fail(c *gin.Context, err error) {
	s.respondError(c, statusFor(err), err)
}

// respondError logs the error and returns a JSON payload.
func (s *Server) respondError(c *gin.Context, status int, err error) {
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
	} else {
		s.logger.Debug("request rejected", zap.String("path", c.FullPath()), zap.Int("status", status), zap.Error(err))
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// respondSuccess writes payload as JSON, or only the status when payload is nil.
func respondSuccess(c *gin.Context, status int, payload any) {
	if payload == nil {
		c.Status(status)
		return
	}
	c.JSON(status, payload)
}
