package workflow

import "taskflow/internal/models"

// DeriveStatus maps the full step set of a task to its aggregate status.
// It never moves a task backwards: done stays done and in_progress never
// returns to todo, even when steps are un-marked.
func DeriveStatus(current models.TaskStatus, steps []models.TaskStep) models.TaskStatus {
	if current == models.StatusDone {
		return current
	}
	if len(steps) == 0 {
		return current
	}

	firstDone := false
	allDone := true
	for _, s := range steps {
		if s.StepNo == FirstStepNo {
			firstDone = s.IsDone
		}
		if !s.IsDone {
			allDone = false
		}
	}

	next := current
	if firstDone && current == models.StatusTodo {
		next = models.StatusInProgress
	}
	if allDone {
		next = models.StatusDone
	}
	return next
}
