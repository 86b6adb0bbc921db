package workflow

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"taskflow/internal/models"
)

const (
	// DefaultCutoffStep is the SIT/UAT approval step that may not be moved late in the day.
	DefaultCutoffStep = 12
	// DefaultCutoffHour is the local hour from which the cutoff applies.
	DefaultCutoffHour = 16
)

// Options tunes the engine. Zero values fall back to the defaults above.
type Options struct {
	CutoffStep   int
	CutoffHour   int
	EnforceRoles bool
	// Now supplies the server's local wall clock.
	Now func() time.Time
}

// Engine owns the task lifecycle: step instantiation, step updates and
// status derivation.
type Engine struct {
	repo   Repository
	table  *Table
	sink   EventSink
	logger *zap.Logger

	cutoffStep   int
	cutoffHour   int
	enforceRoles bool
	now          func() time.Time
}

// NewEngine wires an engine over a repository and an immutable step table.
// The cutoff step must name a definition of the table.
func NewEngine(repo Repository, table *Table, sink EventSink, logger *zap.Logger, opts Options) (*Engine, error) {
	if table == nil {
		return nil, fmt.Errorf("workflow table is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if sink == nil {
		sink = MultiSink{}
	}
	e := &Engine{
		repo:         repo,
		table:        table,
		sink:         sink,
		logger:       logger,
		cutoffStep:   DefaultCutoffStep,
		cutoffHour:   DefaultCutoffHour,
		enforceRoles: opts.EnforceRoles,
		now:          time.Now,
	}
	if opts.CutoffStep > 0 {
		e.cutoffStep = opts.CutoffStep
	}
	if opts.CutoffHour > 0 {
		e.cutoffHour = opts.CutoffHour
	}
	if opts.Now != nil {
		e.now = opts.Now
	}
	if _, ok := table.Lookup(e.cutoffStep); !ok {
		return nil, fmt.Errorf("cutoff step %d is not a workflow step", e.cutoffStep)
	}
	if e.cutoffHour > 23 {
		return nil, fmt.Errorf("cutoff hour %d is outside 0-23", e.cutoffHour)
	}
	return e, nil
}

// Table exposes the step definitions the engine seeds tasks from.
func (e *Engine) Table() *Table {
	return e.table
}

// RoleAssignments names the users filling the specialised task roles.
type RoleAssignments struct {
	BCDOwner   string
	DevOwner   string
	SITSupport string
	UATSupport string
}

// Timeline holds the planned development and test windows.
type Timeline struct {
	DevStart *models.Date
	DevEnd   *models.Date
	SITStart *models.Date
	SITEnd   *models.Date
	UATStart *models.Date
	UATEnd   *models.Date
}

// GoLive holds the move day and the resulting go-live date.
type GoLive struct {
	MoveDay *models.Date
	Date    *models.Date
}

// CreateTaskInput is the caller-supplied part of a new task.
type CreateTaskInput struct {
	Title       string
	Description string
	Priority    models.Priority
	AssignedTo  string
	DueDate     *models.Date
	Roles       RoleAssignments
	Timeline    Timeline
	GoLive      GoLive
	// Hours; negative values are rejected.
	TimeTracked   float64
	TimeEstimated float64
}

// CreateTask stores a todo task together with one undone step per definition.
// Both writes share one transaction so a task never exists without its steps.
func (e *Engine) CreateTask(ctx context.Context, actor models.Identity, in CreateTaskInput) (models.Task, error) {
	if actor.UserID == "" {
		return models.Task{}, fmt.Errorf("%w: acting user is required", models.ErrValidation)
	}
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return models.Task{}, fmt.Errorf("%w: title is required", models.ErrValidation)
	}
	priority := in.Priority
	if priority == "" {
		priority = models.PriorityMedium
	}
	if _, ok := models.ValidPriorities[priority]; !ok {
		return models.Task{}, fmt.Errorf("%w: unknown priority %q", models.ErrValidation, priority)
	}
	if in.TimeTracked < 0 || in.TimeEstimated < 0 {
		return models.Task{}, fmt.Errorf("%w: time values must not be negative", models.ErrValidation)
	}
	assignee := strings.TrimSpace(in.AssignedTo)
	if assignee == "" {
		assignee = actor.UserID
	}

	goLive := in.GoLive.Date
	if goLive == nil && in.GoLive.MoveDay != nil {
		next := in.GoLive.MoveDay.AddDays(1)
		goLive = &next
	}

	now := e.now()
	task := models.Task{
		Title:         title,
		Description:   strings.TrimSpace(in.Description),
		Status:        models.StatusTodo,
		Priority:      priority,
		CreatedBy:     actor.UserID,
		AssignedTo:    assignee,
		BCDOwner:      optional(in.Roles.BCDOwner),
		DevOwner:      optional(in.Roles.DevOwner),
		SITSupport:    optional(in.Roles.SITSupport),
		UATSupport:    optional(in.Roles.UATSupport),
		DevStart:      in.Timeline.DevStart,
		DevEnd:        in.Timeline.DevEnd,
		SITStart:      in.Timeline.SITStart,
		SITEnd:        in.Timeline.SITEnd,
		UATStart:      in.Timeline.UATStart,
		UATEnd:        in.Timeline.UATEnd,
		GoLiveMoveDay: in.GoLive.MoveDay,
		GoLiveDate:    goLive,
		DueDate:       in.DueDate,
		TimeTracked:   in.TimeTracked,
		TimeEstimated: in.TimeEstimated,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	defs := e.table.Definitions()
	steps := make([]models.TaskStep, len(defs))
	for i, d := range defs {
		steps[i] = models.TaskStep{
			StepNo:    d.StepNo,
			StepName:  d.StepName,
			Output:    d.Output,
			IsDone:    false,
			CreatedAt: now,
		}
	}

	var created models.Task
	err := e.repo.WithTx(ctx, func(tx Repository) error {
		var err error
		created, err = tx.CreateTask(ctx, task)
		if err != nil {
			return storeErr("create task", err)
		}
		if _, err := tx.CreateSteps(ctx, created.ID, steps); err != nil {
			return storeErr("create steps", err)
		}
		return nil
	})
	if err != nil {
		if !IsStoreError(err) {
			err = &StoreError{Op: "create task", Err: err}
		}
		return models.Task{}, err
	}

	e.logger.Info("task created",
		zap.String("task_id", created.ID),
		zap.String("created_by", actor.UserID),
		zap.Int("steps", len(steps)))
	if err := e.sink.TaskCreated(ctx, created, actor); err != nil {
		e.logger.Warn("task created event failed", zap.String("task_id", created.ID), zap.Error(err))
	}
	return created, nil
}

// StepPatch lists the step fields a caller may overwrite.
type StepPatch struct {
	IsDone *bool
	Output *string
}

// CompleteStep applies patch to a step on behalf of actor and re-derives the
// task status. When the step write succeeds but the status write fails, the
// updated step is returned together with the error; the next step update
// or RecomputeStatus repairs the status.
func (e *Engine) CompleteStep(ctx context.Context, actor models.Identity, stepID string, patch StepPatch) (models.TaskStep, error) {
	if actor.UserID == "" {
		return models.TaskStep{}, fmt.Errorf("%w: acting user is required", models.ErrValidation)
	}

	step, err := e.repo.GetStep(ctx, stepID)
	if err != nil {
		return models.TaskStep{}, storeErr("get step", err)
	}
	task, err := e.repo.GetTask(ctx, step.TaskID)
	if err != nil {
		return models.TaskStep{}, storeErr("get task", err)
	}

	now := e.now()
	if err := e.authorize(task, step, actor, now); err != nil {
		e.logger.Info("step update rejected",
			zap.String("step_id", step.ID),
			zap.Int("step_no", step.StepNo),
			zap.String("user_id", actor.UserID),
			zap.Error(err))
		if sinkErr := e.sink.StepRejected(ctx, task, step, actor, err); sinkErr != nil {
			e.logger.Warn("step rejected event failed", zap.String("step_id", step.ID), zap.Error(sinkErr))
		}
		return models.TaskStep{}, err
	}

	if patch.IsDone != nil {
		step.IsDone = *patch.IsDone
	}
	if patch.Output != nil {
		step.Output = *patch.Output
	}
	if step.IsDone {
		doneBy := actor.UserID
		doneAt := now
		step.DoneBy = &doneBy
		step.DoneAt = &doneAt
	} else {
		step.DoneBy = nil
		step.DoneAt = nil
	}

	updated, err := e.repo.UpdateStep(ctx, step)
	if err != nil {
		return models.TaskStep{}, storeErr("update step", err)
	}
	if err := e.sink.StepUpdated(ctx, task, updated, actor); err != nil {
		e.logger.Warn("step updated event failed", zap.String("step_id", updated.ID), zap.Error(err))
	}

	if _, err := e.syncStatus(ctx, task, actor); err != nil {
		e.logger.Error("task status sync failed",
			zap.String("task_id", task.ID),
			zap.String("step_id", updated.ID),
			zap.Error(err))
		return updated, err
	}
	return updated, nil
}

// RecomputeStatus re-derives a task's status from its persisted steps.
func (e *Engine) RecomputeStatus(ctx context.Context, actor models.Identity, taskID string) (models.Task, error) {
	task, err := e.repo.GetTask(ctx, taskID)
	if err != nil {
		return models.Task{}, storeErr("get task", err)
	}
	return e.syncStatus(ctx, task, actor)
}

func (e *Engine) authorize(task models.Task, step models.TaskStep, actor models.Identity, now time.Time) error {
	if step.StepNo == e.cutoffStep && now.Hour() >= e.cutoffHour && task.CreatedBy != actor.UserID {
		return fmt.Errorf("%w: not permitted to move step %d after %02d:00 except by department-head override",
			models.ErrForbidden, step.StepNo, e.cutoffHour)
	}
	if !e.enforceRoles || actor.Role == models.RoleAdmin {
		return nil
	}
	def, ok := e.table.Lookup(step.StepNo)
	if !ok {
		return fmt.Errorf("%w: step %d has no definition", models.ErrNotFound, step.StepNo)
	}
	if !def.CanComplete(actor.Role) {
		return fmt.Errorf("%w: role %q may not complete step %d", models.ErrForbidden, actor.Role, step.StepNo)
	}
	return nil
}

func (e *Engine) syncStatus(ctx context.Context, task models.Task, actor models.Identity) (models.Task, error) {
	steps, err := e.repo.ListSteps(ctx, task.ID)
	if err != nil {
		return task, storeErr("list steps", err)
	}

	next := DeriveStatus(task.Status, steps)
	if next == task.Status {
		return task, nil
	}
	if err := e.repo.UpdateTaskStatus(ctx, task.ID, next); err != nil {
		return task, storeErr("update task status", err)
	}

	from := task.Status
	task.Status = next
	e.logger.Info("task status changed",
		zap.String("task_id", task.ID),
		zap.String("from", string(from)),
		zap.String("to", string(next)))
	if err := e.sink.StatusChanged(ctx, task, from, actor); err != nil {
		e.logger.Warn("status changed event failed", zap.String("task_id", task.ID), zap.Error(err))
	}
	return task, nil
}

func optional(v string) *string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	return &v
}
