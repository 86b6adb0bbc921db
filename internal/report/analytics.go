package report

import (
	"fmt"
	"math"
	"time"

	"taskflow/internal/models"
)

// Periods maps the accepted analytics windows to their length in days.
// "all" has no lower bound.
var Periods = map[string]int{
	"7days":  7,
	"30days": 30,
	"90days": 90,
	"all":    0,
}

// DefaultPeriod is used when the caller names none.
const DefaultPeriod = "30days"

// PeriodStart returns the earliest creation time covered by period, or nil
// when the period is unbounded.
func PeriodStart(period string, now time.Time) (*time.Time, error) {
	if period == "" {
		period = DefaultPeriod
	}
	days, ok := Periods[period]
	if !ok {
		return nil, fmt.Errorf("%w: unknown period %q", models.ErrValidation, period)
	}
	if days == 0 {
		return nil, nil
	}
	start := now.AddDate(0, 0, -days)
	return &start, nil
}

// Summary holds the headline numbers of an analytics report.
type Summary struct {
	TotalTasks     int     `json:"total_tasks"`
	CompletedTasks int     `json:"completed_tasks"`
	CompletionRate float64 `json:"completion_rate"`
	OverdueTasks   int     `json:"overdue_tasks"`
	// Hours summed over the tasks.
	TotalTimeTracked   float64 `json:"total_time_tracked"`
	TotalTimeEstimated float64 `json:"total_time_estimated"`
}

// Analytics is the aggregate view over a set of tasks.
type Analytics struct {
	Summary              Summary        `json:"summary"`
	WorkloadByUser       map[string]int `json:"workload_by_user"`
	BurndownData         map[string]int `json:"burndown_data"`
	StatusDistribution   map[string]int `json:"status_distribution"`
	PriorityDistribution map[string]int `json:"priority_distribution"`
	Period               string         `json:"period"`
	GeneratedAt          time.Time      `json:"generated_at"`
}

// Summarize aggregates tasks. completions are the completed activity entries
// of those tasks; today decides which due dates are overdue.
func Summarize(tasks []models.Task, completions []models.Activity, today models.Date) Analytics {
	a := Analytics{
		WorkloadByUser:       map[string]int{},
		BurndownData:         map[string]int{},
		StatusDistribution:   map[string]int{},
		PriorityDistribution: map[string]int{},
	}

	for _, t := range tasks {
		a.Summary.TotalTasks++
		if t.Status == models.StatusDone {
			a.Summary.CompletedTasks++
		}
		if t.DueDate != nil && t.DueDate.Before(today) && t.Status != models.StatusDone {
			a.Summary.OverdueTasks++
		}
		a.Summary.TotalTimeTracked += t.TimeTracked
		a.Summary.TotalTimeEstimated += t.TimeEstimated
		if t.AssignedTo != "" {
			a.WorkloadByUser[t.AssignedTo]++
		}
		if t.Status != "" {
			a.StatusDistribution[string(t.Status)]++
		}
		if t.Priority != "" {
			a.PriorityDistribution[string(t.Priority)]++
		}
	}
	if a.Summary.TotalTasks > 0 {
		rate := float64(a.Summary.CompletedTasks) / float64(a.Summary.TotalTasks) * 100
		a.Summary.CompletionRate = math.Round(rate*100) / 100
	}

	for _, act := range completions {
		if act.Action != models.ActionCompleted {
			continue
		}
		day := models.DateOf(act.CreatedAt.Local()).String()
		a.BurndownData[day]++
	}
	return a
}
