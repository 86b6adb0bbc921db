package sqlstore

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"taskflow/internal/models"
	"taskflow/internal/workflow"
)

type templateRow struct {
	workflow.Template
	StepsJSON string `db:"steps"`
}

func (r templateRow) decode() (workflow.Template, error) {
	t := r.Template
	t.Steps = []workflow.Definition{}
	if r.StepsJSON != "" {
		if err := json.Unmarshal([]byte(r.StepsJSON), &t.Steps); err != nil {
			return workflow.Template{}, fmt.Errorf("decode template steps: %w", err)
		}
	}
	return t, nil
}

// CreateTemplate stores a task template with its step set.
func (q *queries) CreateTemplate(ctx context.Context, t workflow.Template) (workflow.Template, error) {
	t.Name = strings.TrimSpace(t.Name)
	if t.Name == "" {
		return workflow.Template{}, fmt.Errorf("%w: template name is required", models.ErrValidation)
	}
	if t.CreatedBy == "" {
		return workflow.Template{}, fmt.Errorf("%w: template owner is required", models.ErrValidation)
	}
	if t.Steps == nil {
		t.Steps = []workflow.Definition{}
	}
	steps, err := json.Marshal(t.Steps)
	if err != nil {
		return workflow.Template{}, fmt.Errorf("encode template steps: %w", err)
	}
	now := time.Now().UTC()
	t.ID = uuid.NewString()
	t.CreatedAt, t.UpdatedAt = now, now

	_, err = q.ext.ExecContext(ctx, q.ext.Rebind(`INSERT INTO task_templates(id, name, description, steps, created_by, is_public, created_at, updated_at)
        VALUES(?, ?, ?, ?, ?, ?, ?, ?)`), t.ID, t.Name, t.Description, string(steps), t.CreatedBy, t.IsPublic, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return workflow.Template{}, fmt.Errorf("insert template: %w", err)
	}
	return t, nil
}

// ListTemplates returns the templates userID owns plus every public one, newest first.
func (q *queries) ListTemplates(ctx context.Context, userID string) ([]workflow.Template, error) {
	var rows []templateRow
	err := sqlx.SelectContext(ctx, q.ext, &rows, q.ext.Rebind(`SELECT id, name, description, steps, created_by, is_public, created_at, updated_at
        FROM task_templates WHERE created_by = ? OR is_public = ? ORDER BY created_at DESC, id`), userID, true)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	out := make([]workflow.Template, 0, len(rows))
	for _, r := range rows {
		t, err := r.decode()
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}
