package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"taskflow/internal/models"
	"taskflow/internal/storage/sqlstore"
	"taskflow/internal/workflow"
)

type createTaskRequest struct {
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Priority    models.Priority `json:"priority"`
	AssignedTo  string          `json:"assigned_to"`
	DueDate     string          `json:"due_date"`

	BCDOwner   string `json:"bcd_owner"`
	DevOwner   string `json:"dev_owner"`
	SITSupport string `json:"sit_support"`
	UATSupport string `json:"uat_support"`

	DevStart      string `json:"dev_start"`
	DevEnd        string `json:"dev_end"`
	SITStart      string `json:"sit_start"`
	SITEnd        string `json:"sit_end"`
	UATStart      string `json:"uat_start"`
	UATEnd        string `json:"uat_end"`
	GoLiveMoveDay string `json:"go_live_move_day_date"`
	GoLiveDate    string `json:"go_live_date"`

	TimeTracked   float64 `json:"time_tracked"`
	TimeEstimated float64 `json:"time_estimated"`
}

// input converts the request into engine input, normalising every date.
func (r createTaskRequest) input() (workflow.CreateTaskInput, error) {
	in := workflow.CreateTaskInput{
		Title:         r.Title,
		Description:   r.Description,
		Priority:      r.Priority,
		AssignedTo:    r.AssignedTo,
		TimeTracked:   r.TimeTracked,
		TimeEstimated: r.TimeEstimated,
		Roles: workflow.RoleAssignments{
			BCDOwner:   r.BCDOwner,
			DevOwner:   r.DevOwner,
			SITSupport: r.SITSupport,
			UATSupport: r.UATSupport,
		},
	}
	dates := []struct {
		name string
		raw  string
		dst  **models.Date
	}{
		{"due_date", r.DueDate, &in.DueDate},
		{"dev_start", r.DevStart, &in.Timeline.DevStart},
		{"dev_end", r.DevEnd, &in.Timeline.DevEnd},
		{"sit_start", r.SITStart, &in.Timeline.SITStart},
		{"sit_end", r.SITEnd, &in.Timeline.SITEnd},
		{"uat_start", r.UATStart, &in.Timeline.UATStart},
		{"uat_end", r.UATEnd, &in.Timeline.UATEnd},
		{"go_live_move_day_date", r.GoLiveMoveDay, &in.GoLive.MoveDay},
		{"go_live_date", r.GoLiveDate, &in.GoLive.Date},
	}
	for _, d := range dates {
		parsed, err := models.ParseOptionalDate(d.raw)
		if err != nil {
			return workflow.CreateTaskInput{}, fmt.Errorf("%w: %s: %v", models.ErrValidation, d.name, err)
		}
		*d.dst = parsed
	}
	return in, nil
}

// stepView is a task step together with the role sets of its definition.
type stepView struct {
	models.TaskStep
	WhoCreate   []models.Role `json:"who_create"`
	WhoApprove  []models.Role `json:"who_approve"`
	WhoComplete []models.Role `json:"who_complete"`
}

func (s *Server) stepViews(steps []models.TaskStep) []stepView {
	table := s.workflow.Table()
	out := make([]stepView, len(steps))
	for i, st := range steps {
		out[i] = stepView{TaskStep: st}
		if def, ok := table.Lookup(st.StepNo); ok {
			out[i].WhoCreate = def.WhoCreate
			out[i].WhoApprove = def.WhoApprove
			out[i].WhoComplete = def.WhoComplete
		}
	}
	return out
}

// handleListTasks returns the tasks the caller is involved in.
func (s *Server) handleListTasks(c *gin.Context) {
	actor, ok := identity(c)
	if !ok {
		return
	}
	filter, err := taskFilterFromQuery(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	filter.VisibleTo = actor.UserID

	tasks, err := s.store.ListTasks(c.Request.Context(), filter)
	if err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"tasks": tasks, "count": len(tasks)})
}

func taskFilterFromQuery(c *gin.Context) (sqlstore.TaskFilter, error) {
	f := sqlstore.TaskFilter{
		Query:      c.Query("q"),
		Status:     models.TaskStatus(c.Query("status")),
		Priority:   models.Priority(c.Query("priority")),
		AssignedTo: c.Query("assigned_to"),
		SortBy:     c.Query("sort_by"),
		SortOrder:  c.Query("sort_order"),
	}
	if _, ok := models.ValidTaskStatuses[f.Status]; f.Status != "" && !ok {
		return f, fmt.Errorf("%w: unknown status %q", models.ErrValidation, f.Status)
	}
	if _, ok := models.ValidPriorities[f.Priority]; f.Priority != "" && !ok {
		return f, fmt.Errorf("%w: unknown priority %q", models.ErrValidation, f.Priority)
	}
	var err error
	if f.DueAfter, err = models.ParseOptionalDate(c.Query("due_after")); err != nil {
		return f, fmt.Errorf("%w: due_after: %v", models.ErrValidation, err)
	}
	if f.DueBefore, err = models.ParseOptionalDate(c.Query("due_before")); err != nil {
		return f, fmt.Errorf("%w: due_before: %v", models.ErrValidation, err)
	}
	return f, nil
}

// handleCreateTask creates a task with its full step set.
func (s *Server) handleCreateTask(c *gin.Context) {
	actor, ok := identity(c)
	if !ok {
		return
	}

	var req createTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}
	in, err := req.input()
	if err != nil {
		s.fail(c, err)
		return
	}

	task, err := s.workflow.CreateTask(c.Request.Context(), actor, in)
	if err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusCreated, gin.H{"task": task})
}

// handleGetTask returns a task with its steps.
func (s *Server) handleGetTask(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()

	task, err := s.store.GetTask(ctx, id)
	if err != nil {
		s.fail(c, err)
		return
	}
	steps, err := s.store.ListSteps(ctx, id)
	if err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"task": task, "steps": s.stepViews(steps)})
}

// handleRecomputeTask re-derives a task's status from its steps.
func (s *Server) handleRecomputeTask(c *gin.Context) {
	actor, ok := identity(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	task, err := s.workflow.RecomputeStatus(c.Request.Context(), actor, id)
	if err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"task": task})
}

// handleWorkflowSteps returns the immutable step definitions.
func (s *Server) handleWorkflowSteps(c *gin.Context) {
	defs := s.workflow.Table().Definitions()
	respondSuccess(c, http.StatusOK, gin.H{"steps": defs, "count": len(defs)})
}

// handleListSteps returns the steps of every task visible to the caller.
func (s *Server) handleListSteps(c *gin.Context) {
	actor, ok := identity(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	tasks, err := s.store.ListTasks(ctx, sqlstore.TaskFilter{VisibleTo: actor.UserID})
	if err != nil {
		s.fail(c, err)
		return
	}
	steps, err := s.store.ListStepsForTasks(ctx, taskIDs(tasks))
	if err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"steps": s.stepViews(steps)})
}

type stepRequest struct {
	IsDone *bool   `json:"is_done"`
	Output *string `json:"output"`
}

// handleUpdateStep applies a step update through the workflow engine.
func (s *Server) handleUpdateStep(c *gin.Context) {
	actor, ok := identity(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req stepRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}
	if req.IsDone == nil && req.Output == nil {
		s.respondError(c, http.StatusBadRequest, errors.New("nothing to update"))
		return
	}

	step, err := s.workflow.CompleteStep(c.Request.Context(), actor, id, workflow.StepPatch{
		IsDone: req.IsDone,
		Output: req.Output,
	})
	if err != nil {
		if step.ID != "" {
			// The step was saved but the task status could not be; report both.
			s.logger.Error("step saved without status update", zap.String("step_id", step.ID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error(), "step": step})
			return
		}
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"step": step})
}

func taskIDs(tasks []models.Task) []string {
	ids := make([]string, len(tasks))
	for i, t := range tasks {
		ids[i] = t.ID
	}
	return ids
}
