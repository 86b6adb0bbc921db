package server

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"taskflow/internal/models"
	"taskflow/internal/report"
	"taskflow/internal/storage/sqlstore"
)

// handleAnalytics aggregates the caller's tasks, or every task with team_view.
func (s *Server) handleAnalytics(c *gin.Context) {
	actor, ok := identity(c)
	if !ok {
		return
	}
	now := s.now()
	period := c.DefaultQuery("period", report.DefaultPeriod)
	since, err := report.PeriodStart(period, now)
	if err != nil {
		s.fail(c, err)
		return
	}
	teamView, _ := strconv.ParseBool(c.Query("team_view"))

	filter := sqlstore.TaskFilter{CreatedSince: since}
	if !teamView {
		filter.VisibleTo = actor.UserID
	}
	analytics, _, err := s.analyze(c, filter)
	if err != nil {
		s.fail(c, err)
		return
	}
	analytics.Period = period
	analytics.GeneratedAt = now
	respondSuccess(c, http.StatusOK, analytics)
}

// handleExport returns the caller's tasks as JSON, CSV or an HTML report.
func (s *Server) handleExport(c *gin.Context) {
	actor, ok := identity(c)
	if !ok {
		return
	}
	filter := sqlstore.TaskFilter{
		VisibleTo: actor.UserID,
		Status:    models.TaskStatus(c.Query("status")),
		Priority:  models.Priority(c.Query("priority")),
	}
	format := c.DefaultQuery("format", report.FormatJSON)
	now := s.now()

	switch format {
	case report.FormatJSON:
		tasks, err := s.store.ListTasks(c.Request.Context(), filter)
		if err != nil {
			s.fail(c, err)
			return
		}
		respondSuccess(c, http.StatusOK, gin.H{"tasks": tasks, "count": len(tasks), "exported_at": now})

	case report.FormatCSV:
		tasks, err := s.store.ListTasks(c.Request.Context(), filter)
		if err != nil {
			s.fail(c, err)
			return
		}
		var buf bytes.Buffer
		if err := report.WriteCSV(&buf, tasks); err != nil {
			s.fail(c, err)
			return
		}
		c.Header("Content-Disposition", `attachment; filename="tasks_report.csv"`)
		c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())

	case report.FormatHTML:
		analytics, tasks, err := s.analyze(c, filter)
		if err != nil {
			s.fail(c, err)
			return
		}
		var buf bytes.Buffer
		if err := report.WriteHTML(&buf, tasks, analytics, now); err != nil {
			s.fail(c, err)
			return
		}
		c.Header("Content-Disposition", `attachment; filename="tasks_report.html"`)
		c.Data(http.StatusOK, "text/html; charset=utf-8", buf.Bytes())

	default:
		s.fail(c, fmt.Errorf("%w: unknown export format %q", models.ErrValidation, format))
	}
}

func (s *Server) analyze(c *gin.Context, filter sqlstore.TaskFilter) (report.Analytics, []models.Task, error) {
	ctx := c.Request.Context()
	tasks, err := s.store.ListTasks(ctx, filter)
	if err != nil {
		return report.Analytics{}, nil, err
	}
	completions, err := s.store.ListActivityByAction(ctx, models.ActionCompleted, taskIDs(tasks))
	if err != nil {
		return report.Analytics{}, nil, err
	}
	return report.Summarize(tasks, completions, models.DateOf(s.now())), tasks, nil
}
