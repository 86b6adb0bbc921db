package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"taskflow/internal/models"
)

const taskColumns = `id, title, description, status, priority, created_by, assigned_to,
        bcd_owner, dev_owner, sit_support, uat_support,
        dev_start, dev_end, sit_start, sit_end, uat_start, uat_end,
        go_live_move_day_date, go_live_date, due_date, time_tracked, time_estimated, created_at, updated_at`

const stepColumns = `id, task_id, step_no, step_name, output, is_done, done_by, done_at, created_at`

// CreateTask inserts a task row. The caller supplies status and timestamps.
func (q *queries) CreateTask(ctx context.Context, t models.Task) (models.Task, error) {
	if strings.TrimSpace(t.Title) == "" {
		return models.Task{}, fmt.Errorf("task title must not be empty")
	}
	if _, ok := models.ValidTaskStatuses[t.Status]; !ok {
		t.Status = models.StatusTodo
	}
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	now := time.Now()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	if t.UpdatedAt.IsZero() {
		t.UpdatedAt = t.CreatedAt
	}
	// Timestamps are stored in UTC so textual comparisons in sqlite order correctly.
	t.CreatedAt = t.CreatedAt.UTC()
	t.UpdatedAt = t.UpdatedAt.UTC()

	_, err := sqlx.NamedExecContext(ctx, q.ext, `INSERT INTO tasks(`+taskColumns+`) VALUES(
        :id, :title, :description, :status, :priority, :created_by, :assigned_to,
        :bcd_owner, :dev_owner, :sit_support, :uat_support,
        :dev_start, :dev_end, :sit_start, :sit_end, :uat_start, :uat_end,
        :go_live_move_day_date, :go_live_date, :due_date, :time_tracked, :time_estimated, :created_at, :updated_at)`, t)
	if err != nil {
		return models.Task{}, fmt.Errorf("insert task: %w", err)
	}
	return q.GetTask(ctx, t.ID)
}

// GetTask retrieves a task by id.
func (q *queries) GetTask(ctx context.Context, id string) (models.Task, error) {
	var t models.Task
	err := sqlx.GetContext(ctx, q.ext, &t, q.ext.Rebind(`SELECT `+taskColumns+` FROM tasks WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Task{}, fmt.Errorf("task %s: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return models.Task{}, fmt.Errorf("get task: %w", err)
	}
	return t, nil
}

// UpdateTaskStatus overwrites the status column of a task.
func (q *queries) UpdateTaskStatus(ctx context.Context, id string, status models.TaskStatus) error {
	if _, ok := models.ValidTaskStatuses[status]; !ok {
		return fmt.Errorf("%w: unknown status %q", models.ErrValidation, status)
	}
	res, err := q.ext.ExecContext(ctx, q.ext.Rebind(`UPDATE tasks SET status = ?, updated_at = ? WHERE id = ?`), status, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("update task status: %w", err)
	}
	return expectRow(res, "task", id)
}

// CreateSteps inserts the given steps for a task and returns them with ids.
func (q *queries) CreateSteps(ctx context.Context, taskID string, steps []models.TaskStep) ([]models.TaskStep, error) {
	out := make([]models.TaskStep, len(steps))
	for i, st := range steps {
		if st.ID == "" {
			st.ID = uuid.NewString()
		}
		st.TaskID = taskID
		if st.CreatedAt.IsZero() {
			st.CreatedAt = time.Now()
		}
		st.CreatedAt = st.CreatedAt.UTC()
		_, err := sqlx.NamedExecContext(ctx, q.ext, `INSERT INTO task_steps(`+stepColumns+`) VALUES(
            :id, :task_id, :step_no, :step_name, :output, :is_done, :done_by, :done_at, :created_at)`, st)
		if err != nil {
			return nil, fmt.Errorf("insert step %d: %w", st.StepNo, err)
		}
		out[i] = st
	}
	return out, nil
}

// GetStep retrieves a step by id.
func (q *queries) GetStep(ctx context.Context, id string) (models.TaskStep, error) {
	var st models.TaskStep
	err := sqlx.GetContext(ctx, q.ext, &st, q.ext.Rebind(`SELECT `+stepColumns+` FROM task_steps WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return models.TaskStep{}, fmt.Errorf("step %s: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return models.TaskStep{}, fmt.Errorf("get step: %w", err)
	}
	return st, nil
}

// ListSteps returns the steps of a task ordered by step number.
func (q *queries) ListSteps(ctx context.Context, taskID string) ([]models.TaskStep, error) {
	steps := []models.TaskStep{}
	err := sqlx.SelectContext(ctx, q.ext, &steps, q.ext.Rebind(`SELECT `+stepColumns+` FROM task_steps WHERE task_id = ? ORDER BY step_no`), taskID)
	if err != nil {
		return nil, fmt.Errorf("list steps: %w", err)
	}
	return steps, nil
}

// ListStepsForTasks returns the steps of several tasks ordered by task and step number.
func (q *queries) ListStepsForTasks(ctx context.Context, taskIDs []string) ([]models.TaskStep, error) {
	steps := []models.TaskStep{}
	if len(taskIDs) == 0 {
		return steps, nil
	}
	query, args, err := sqlx.In(`SELECT `+stepColumns+` FROM task_steps WHERE task_id IN (?) ORDER BY task_id, step_no`, taskIDs)
	if err != nil {
		return nil, fmt.Errorf("list steps: %w", err)
	}
	if err := sqlx.SelectContext(ctx, q.ext, &steps, q.ext.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("list steps: %w", err)
	}
	return steps, nil
}

// UpdateStep writes the mutable step fields and returns the stored row.
func (q *queries) UpdateStep(ctx context.Context, st models.TaskStep) (models.TaskStep, error) {
	if st.DoneAt != nil {
		at := st.DoneAt.UTC()
		st.DoneAt = &at
	}
	res, err := q.ext.ExecContext(ctx, q.ext.Rebind(`UPDATE task_steps SET output = ?, is_done = ?, done_by = ?, done_at = ? WHERE id = ?`),
		st.Output, st.IsDone, st.DoneBy, st.DoneAt, st.ID)
	if err != nil {
		return models.TaskStep{}, fmt.Errorf("update step: %w", err)
	}
	if err := expectRow(res, "step", st.ID); err != nil {
		return models.TaskStep{}, err
	}
	return q.GetStep(ctx, st.ID)
}

// TaskFilter narrows ListTasks. Zero values mean no restriction.
type TaskFilter struct {
	// VisibleTo restricts the result to tasks the user is involved in.
	VisibleTo    string
	Query        string
	Status       models.TaskStatus
	Priority     models.Priority
	AssignedTo   string
	DueAfter     *models.Date
	DueBefore    *models.Date
	CreatedSince *time.Time
	SortBy       string
	SortOrder    string
}

// priorityRank orders priorities by urgency rather than by name.
const priorityRank = `CASE priority WHEN 'high' THEN 3 WHEN 'medium' THEN 2 ELSE 1 END`

var sortColumns = map[string]string{
	"":           "created_at",
	"created_at": "created_at",
	"updated_at": "updated_at",
	"due_date":   "due_date",
	"priority":   priorityRank,
}

// ListTasks returns tasks matching the filter.
func (q *queries) ListTasks(ctx context.Context, f TaskFilter) ([]models.Task, error) {
	var (
		where []string
		args  []any
	)
	if f.VisibleTo != "" {
		where = append(where, `(assigned_to = ? OR created_by = ? OR bcd_owner = ? OR dev_owner = ? OR sit_support = ? OR uat_support = ?)`)
		for range 6 {
			args = append(args, f.VisibleTo)
		}
	}
	if term := strings.TrimSpace(f.Query); term != "" {
		like := "%" + strings.ToLower(term) + "%"
		where = append(where, `(LOWER(title) LIKE ? OR LOWER(description) LIKE ?)`)
		args = append(args, like, like)
	}
	if f.Status != "" {
		where = append(where, `status = ?`)
		args = append(args, f.Status)
	}
	if f.Priority != "" {
		where = append(where, `priority = ?`)
		args = append(args, f.Priority)
	}
	if f.AssignedTo != "" {
		where = append(where, `assigned_to = ?`)
		args = append(args, f.AssignedTo)
	}
	if f.DueAfter != nil {
		where = append(where, `due_date >= ?`)
		args = append(args, f.DueAfter.String())
	}
	if f.DueBefore != nil {
		where = append(where, `due_date <= ?`)
		args = append(args, f.DueBefore.String())
	}
	if f.CreatedSince != nil {
		where = append(where, `created_at >= ?`)
		args = append(args, f.CreatedSince.UTC())
	}

	column, ok := sortColumns[f.SortBy]
	if !ok {
		return nil, fmt.Errorf("%w: cannot sort by %q", models.ErrValidation, f.SortBy)
	}
	order := "DESC"
	if strings.EqualFold(f.SortOrder, "asc") {
		order = "ASC"
	}

	query := `SELECT ` + taskColumns + ` FROM tasks`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += fmt.Sprintf(` ORDER BY %s %s, id`, column, order)

	tasks := []models.Task{}
	if err := sqlx.SelectContext(ctx, q.ext, &tasks, q.ext.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

func expectRow(res sql.Result, kind, id string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("%s %s: %w", kind, id, models.ErrNotFound)
	}
	return nil
}
