package activity

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"go.uber.org/zap"

	"taskflow/internal/models"
)

// Store is the persistence the recorder writes to.
type Store interface {
	CreateActivity(ctx context.Context, a models.Activity) (models.Activity, error)
	CreateNotification(ctx context.Context, n models.Notification) (models.Notification, error)
}

// Recorder turns workflow events into activity log entries and user
// notifications. It implements workflow.EventSink.
type Recorder struct {
	store  Store
	logger *zap.Logger
}

// NewRecorder creates a recorder over store.
func NewRecorder(store Store, logger *zap.Logger) *Recorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Recorder{store: store, logger: logger}
}

// TaskCreated logs a created entry and tells the assignee about the task.
func (r *Recorder) TaskCreated(ctx context.Context, task models.Task, actor models.Identity) error {
	err := r.record(ctx, task.ID, actor.UserID, models.ActionCreated, map[string]any{
		"title":    task.Title,
		"priority": task.Priority,
	})
	if task.AssignedTo != actor.UserID {
		err = errors.Join(err, r.notify(ctx, task.AssignedTo, task.ID, models.NotifyAssigned,
			fmt.Sprintf("You were assigned %q", task.Title)))
	}
	return err
}

// StepUpdated logs an updated entry describing the step change.
func (r *Recorder) StepUpdated(ctx context.Context, task models.Task, step models.TaskStep, actor models.Identity) error {
	return r.record(ctx, task.ID, actor.UserID, models.ActionUpdated, map[string]any{
		"step_id":   step.ID,
		"step_no":   step.StepNo,
		"step_name": step.StepName,
		"is_done":   step.IsDone,
		"output":    step.Output,
	})
}

// StepRejected is only logged; a refused update changes nothing on the task.
func (r *Recorder) StepRejected(_ context.Context, task models.Task, step models.TaskStep, actor models.Identity, reason error) error {
	r.logger.Debug("step update refused",
		zap.String("task_id", task.ID),
		zap.Int("step_no", step.StepNo),
		zap.String("user_id", actor.UserID),
		zap.Error(reason))
	return nil
}

// StatusChanged logs the transition, a completed entry when the task reached
// done, and notifies the assignee unless they made the change themselves.
func (r *Recorder) StatusChanged(ctx context.Context, task models.Task, from models.TaskStatus, actor models.Identity) error {
	err := r.record(ctx, task.ID, actor.UserID, models.ActionStatusChanged, map[string]any{
		"from": from,
		"to":   task.Status,
	})
	if task.Status == models.StatusDone {
		err = errors.Join(err, r.record(ctx, task.ID, actor.UserID, models.ActionCompleted, map[string]any{
			"title": task.Title,
		}))
	}
	if task.AssignedTo != actor.UserID {
		err = errors.Join(err, r.notify(ctx, task.AssignedTo, task.ID, models.NotifyStatusChanged,
			fmt.Sprintf("%q moved from %s to %s", task.Title, from, task.Status)))
	}
	return err
}

// Commented logs a commented entry and notifies every mentioned user other
// than the author.
func (r *Recorder) Commented(ctx context.Context, task models.Task, comment models.Comment) error {
	err := r.record(ctx, task.ID, comment.UserID, models.ActionCommented, map[string]any{
		"comment_id": comment.ID,
		"mentions":   comment.Mentions,
	})
	for _, user := range Recipients(comment.Mentions, comment.UserID) {
		err = errors.Join(err, r.notify(ctx, user, task.ID, models.NotifyCommented,
			fmt.Sprintf("You were mentioned on %q", task.Title)))
	}
	return err
}

// Recipients returns the unique, non-empty mentions excluding author.
func Recipients(mentions []string, author string) []string {
	out := make([]string, 0, len(mentions))
	for _, m := range mentions {
		m = strings.TrimSpace(m)
		if m == "" || m == author || slices.Contains(out, m) {
			continue
		}
		out = append(out, m)
	}
	return out
}

func (r *Recorder) record(ctx context.Context, taskID, userID string, action models.ActivityAction, details map[string]any) error {
	if _, err := r.store.CreateActivity(ctx, models.Activity{
		TaskID:  taskID,
		UserID:  userID,
		Action:  action,
		Details: details,
	}); err != nil {
		return fmt.Errorf("record %s activity: %w", action, err)
	}
	return nil
}

func (r *Recorder) notify(ctx context.Context, userID, taskID string, typ models.NotificationType, message string) error {
	if userID == "" {
		return nil
	}
	if _, err := r.store.CreateNotification(ctx, models.Notification{
		UserID:  userID,
		TaskID:  taskID,
		Type:    typ,
		Message: message,
	}); err != nil {
		return fmt.Errorf("notify %s: %w", userID, err)
	}
	return nil
}
