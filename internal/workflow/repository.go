package workflow

import (
	"context"

	"taskflow/internal/models"
)

// Repository persists tasks and their step records.
type Repository interface {
	CreateTask(ctx context.Context, task models.Task) (models.Task, error)
	CreateSteps(ctx context.Context, taskID string, steps []models.TaskStep) ([]models.TaskStep, error)
	GetTask(ctx context.Context, id string) (models.Task, error)
	GetStep(ctx context.Context, id string) (models.TaskStep, error)
	ListSteps(ctx context.Context, taskID string) ([]models.TaskStep, error)
	UpdateStep(ctx context.Context, step models.TaskStep) (models.TaskStep, error)
	UpdateTaskStatus(ctx context.Context, id string, status models.TaskStatus) error

	// WithTx runs fn against a repository bound to a single transaction.
	// The transaction commits when fn returns nil and rolls back otherwise.
	WithTx(ctx context.Context, fn func(Repository) error) error
}

// EventSink is informed of engine events. Failures are logged by the engine
// and never fail the operation that produced the event.
type EventSink interface {
	TaskCreated(ctx context.Context, task models.Task, actor models.Identity) error
	StepUpdated(ctx context.Context, task models.Task, step models.TaskStep, actor models.Identity) error
	StepRejected(ctx context.Context, task models.Task, step models.TaskStep, actor models.Identity, reason error) error
	StatusChanged(ctx context.Context, task models.Task, from models.TaskStatus, actor models.Identity) error
}

// MultiSink fans an event out to every sink in order.
type MultiSink []EventSink

func (m MultiSink) TaskCreated(ctx context.Context, task models.Task, actor models.Identity) error {
	var firstErr error
	for _, s := range m {
		if err := s.TaskCreated(ctx, task, actor); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (m MultiSink) StepUpdated(ctx context.Context, task models.Task, step models.TaskStep, actor models.Identity) error {
	var firstErr error
	for _, s := range m {
		if err := s.StepUpdated(ctx, task, step, actor); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (m MultiSink) StepRejected(ctx context.Context, task models.Task, step models.TaskStep, actor models.Identity, reason error) error {
	var firstErr error
	for _, s := range m {
		if err := s.StepRejected(ctx, task, step, actor, reason); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (m MultiSink) StatusChanged(ctx context.Context, task models.Task, from models.TaskStatus, actor models.Identity) error {
	var firstErr error
	for _, s := range m {
		if err := s.StatusChanged(ctx, task, from, actor); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
