package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"taskflow/internal/models"
)

type commentRow struct {
	models.Comment
	MentionsJSON string `db:"mentions"`
}

func (r commentRow) decode() (models.Comment, error) {
	c := r.Comment
	c.Mentions = []string{}
	if r.MentionsJSON != "" {
		if err := json.Unmarshal([]byte(r.MentionsJSON), &c.Mentions); err != nil {
			return models.Comment{}, fmt.Errorf("decode mentions: %w", err)
		}
	}
	return c, nil
}

// CreateComment stores a comment on a task.
func (q *queries) CreateComment(ctx context.Context, c models.Comment) (models.Comment, error) {
	content := strings.TrimSpace(c.Content)
	if content == "" {
		return models.Comment{}, fmt.Errorf("%w: comment content is required", models.ErrValidation)
	}
	if c.Mentions == nil {
		c.Mentions = []string{}
	}
	mentions, err := json.Marshal(c.Mentions)
	if err != nil {
		return models.Comment{}, fmt.Errorf("encode mentions: %w", err)
	}
	now := time.Now().UTC()
	c.ID = uuid.NewString()
	c.Content = content
	c.CreatedAt, c.UpdatedAt = now, now

	_, err = q.ext.ExecContext(ctx, q.ext.Rebind(`INSERT INTO task_comments(id, task_id, user_id, content, mentions, created_at, updated_at)
        VALUES(?, ?, ?, ?, ?, ?, ?)`), c.ID, c.TaskID, c.UserID, c.Content, string(mentions), c.CreatedAt, c.UpdatedAt)
	if err != nil {
		return models.Comment{}, fmt.Errorf("insert comment: %w", err)
	}
	return c, nil
}

// GetComment fetches a single comment.
func (q *queries) GetComment(ctx context.Context, id string) (models.Comment, error) {
	var row commentRow
	err := sqlx.GetContext(ctx, q.ext, &row, q.ext.Rebind(`SELECT id, task_id, user_id, content, mentions, created_at, updated_at
        FROM task_comments WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Comment{}, fmt.Errorf("comment %s: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return models.Comment{}, fmt.Errorf("get comment: %w", err)
	}
	return row.decode()
}

// ListComments returns the comments of a task, newest first.
func (q *queries) ListComments(ctx context.Context, taskID string) ([]models.Comment, error) {
	var rows []commentRow
	err := sqlx.SelectContext(ctx, q.ext, &rows, q.ext.Rebind(`SELECT id, task_id, user_id, content, mentions, created_at, updated_at
        FROM task_comments WHERE task_id = ? ORDER BY created_at DESC, id`), taskID)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	comments := make([]models.Comment, 0, len(rows))
	for _, r := range rows {
		c, err := r.decode()
		if err != nil {
			return nil, err
		}
		comments = append(comments, c)
	}
	return comments, nil
}

// DeleteComment removes a comment by id.
func (q *queries) DeleteComment(ctx context.Context, id string) error {
	res, err := q.ext.ExecContext(ctx, q.ext.Rebind(`DELETE FROM task_comments WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("delete comment: %w", err)
	}
	return expectRow(res, "comment", id)
}

type activityRow struct {
	models.Activity
	DetailsJSON string `db:"details"`
}

func (r activityRow) decode() (models.Activity, error) {
	a := r.Activity
	a.Details = map[string]any{}
	if r.DetailsJSON != "" {
		if err := json.Unmarshal([]byte(r.DetailsJSON), &a.Details); err != nil {
			return models.Activity{}, fmt.Errorf("decode activity details: %w", err)
		}
	}
	return a, nil
}

// CreateActivity appends an entry to a task's activity log.
func (q *queries) CreateActivity(ctx context.Context, a models.Activity) (models.Activity, error) {
	if _, ok := models.ValidActivityActions[a.Action]; !ok {
		return models.Activity{}, fmt.Errorf("%w: unknown activity action %q", models.ErrValidation, a.Action)
	}
	if a.Details == nil {
		a.Details = map[string]any{}
	}
	details, err := json.Marshal(a.Details)
	if err != nil {
		return models.Activity{}, fmt.Errorf("encode activity details: %w", err)
	}
	a.ID = uuid.NewString()
	a.CreatedAt = time.Now().UTC()

	_, err = q.ext.ExecContext(ctx, q.ext.Rebind(`INSERT INTO task_activity(id, task_id, user_id, action, details, created_at)
        VALUES(?, ?, ?, ?, ?, ?)`), a.ID, a.TaskID, a.UserID, a.Action, string(details), a.CreatedAt)
	if err != nil {
		return models.Activity{}, fmt.Errorf("insert activity: %w", err)
	}
	return a, nil
}

// ListActivity returns a task's activity log, newest first.
func (q *queries) ListActivity(ctx context.Context, taskID string) ([]models.Activity, error) {
	var rows []activityRow
	err := sqlx.SelectContext(ctx, q.ext, &rows, q.ext.Rebind(`SELECT id, task_id, user_id, action, details, created_at
        FROM task_activity WHERE task_id = ? ORDER BY created_at DESC, id`), taskID)
	if err != nil {
		return nil, fmt.Errorf("list activity: %w", err)
	}
	return decodeActivity(rows)
}

// ListActivityByAction returns entries of one action across the given tasks,
// oldest first.
func (q *queries) ListActivityByAction(ctx context.Context, action models.ActivityAction, taskIDs []string) ([]models.Activity, error) {
	if len(taskIDs) == 0 {
		return []models.Activity{}, nil
	}
	query, args, err := sqlx.In(`SELECT id, task_id, user_id, action, details, created_at
        FROM task_activity WHERE action = ? AND task_id IN (?) ORDER BY created_at, id`, action, taskIDs)
	if err != nil {
		return nil, fmt.Errorf("list activity: %w", err)
	}
	var rows []activityRow
	if err := sqlx.SelectContext(ctx, q.ext, &rows, q.ext.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("list activity: %w", err)
	}
	return decodeActivity(rows)
}

func decodeActivity(rows []activityRow) ([]models.Activity, error) {
	out := make([]models.Activity, 0, len(rows))
	for _, r := range rows {
		a, err := r.decode()
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

// CreateNotification stores an unread notification.
func (q *queries) CreateNotification(ctx context.Context, n models.Notification) (models.Notification, error) {
	if n.UserID == "" {
		return models.Notification{}, fmt.Errorf("%w: notification recipient is required", models.ErrValidation)
	}
	n.ID = uuid.NewString()
	n.Read = false
	n.CreatedAt = time.Now().UTC()

	_, err := sqlx.NamedExecContext(ctx, q.ext, `INSERT INTO notifications(id, user_id, task_id, type, message, is_read, created_at)
        VALUES(:id, :user_id, :task_id, :type, :message, :is_read, :created_at)`, n)
	if err != nil {
		return models.Notification{}, fmt.Errorf("insert notification: %w", err)
	}
	return n, nil
}

// ListNotifications returns a user's notifications, newest first.
func (q *queries) ListNotifications(ctx context.Context, userID string) ([]models.Notification, error) {
	out := []models.Notification{}
	err := sqlx.SelectContext(ctx, q.ext, &out, q.ext.Rebind(`SELECT id, user_id, task_id, type, message, is_read, created_at
        FROM notifications WHERE user_id = ? ORDER BY created_at DESC, id`), userID)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return out, nil
}

// MarkNotificationRead flags one of the user's notifications as read.
func (q *queries) MarkNotificationRead(ctx context.Context, id, userID string) error {
	res, err := q.ext.ExecContext(ctx, q.ext.Rebind(`UPDATE notifications SET is_read = ? WHERE id = ? AND user_id = ?`), true, id, userID)
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	return expectRow(res, "notification", id)
}
