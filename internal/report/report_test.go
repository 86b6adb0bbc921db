package report

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskflow/internal/models"
)

func date(t *testing.T, v string) *models.Date {
	t.Helper()
	d, err := models.ParseDate(v)
	require.NoError(t, err)
	return &d
}

func TestPeriodStart(t *testing.T) {
	now := time.Date(2025, 5, 31, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		period  string
		want    *time.Time
		wantErr bool
	}{
		{period: "", want: ptr(time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC))},
		{period: "7days", want: ptr(time.Date(2025, 5, 24, 12, 0, 0, 0, time.UTC))},
		{period: "90days", want: ptr(time.Date(2025, 3, 2, 12, 0, 0, 0, time.UTC))},
		{period: "all"},
		{period: "year", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.period, func(t *testing.T) {
			got, err := PeriodStart(tt.period, now)
			if tt.wantErr {
				assert.ErrorIs(t, err, models.ErrValidation)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func ptr[T any](v T) *T { return &v }

func TestSummarize(t *testing.T) {
	today := *date(t, "2025-05-20")
	tasks := []models.Task{
		{ID: "1", Status: models.StatusDone, Priority: models.PriorityHigh, AssignedTo: "ann", DueDate: date(t, "2025-05-01"), TimeTracked: 3.5, TimeEstimated: 4},
		{ID: "2", Status: models.StatusInProgress, Priority: models.PriorityHigh, AssignedTo: "ann", DueDate: date(t, "2025-05-19"), TimeTracked: 1, TimeEstimated: 2.5},
		{ID: "3", Status: models.StatusTodo, Priority: models.PriorityLow, AssignedTo: "bob", DueDate: date(t, "2025-05-20")},
	}
	completions := []models.Activity{
		{TaskID: "1", Action: models.ActionCompleted, CreatedAt: time.Date(2025, 5, 18, 9, 0, 0, 0, time.Local)},
		{TaskID: "1", Action: models.ActionCreated, CreatedAt: time.Date(2025, 5, 17, 9, 0, 0, 0, time.Local)},
	}

	a := Summarize(tasks, completions, today)
	assert.Equal(t, Summary{
		TotalTasks:         3,
		CompletedTasks:     1,
		CompletionRate:     33.33,
		OverdueTasks:       1,
		TotalTimeTracked:   4.5,
		TotalTimeEstimated: 6.5,
	}, a.Summary)
	assert.Equal(t, map[string]int{"ann": 2, "bob": 1}, a.WorkloadByUser)
	assert.Equal(t, map[string]int{"done": 1, "in_progress": 1, "todo": 1}, a.StatusDistribution)
	assert.Equal(t, map[string]int{"high": 2, "low": 1}, a.PriorityDistribution)
	assert.Equal(t, map[string]int{"2025-05-18": 1}, a.BurndownData)

	empty := Summarize(nil, nil, today)
	assert.Zero(t, empty.Summary.CompletionRate)
	assert.NotNil(t, empty.WorkloadByUser)
}

func TestWriteCSV(t *testing.T) {
	created := time.Date(2025, 5, 1, 8, 30, 0, 0, time.UTC)
	tasks := []models.Task{
		{ID: "t-1", Title: `Quote "this", please`, Description: "line1\nline2", Status: models.StatusTodo, Priority: models.PriorityLow, AssignedTo: "ann", DueDate: date(t, "2025-06-01"), CreatedAt: created},
		{ID: "t-2", Title: "plain", Status: models.StatusDone, Priority: models.PriorityHigh, AssignedTo: "bob", CreatedAt: created},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, tasks))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, csvHeader, records[0])
	assert.Equal(t, `Quote "this", please`, records[1][1])
	assert.Equal(t, "line1\nline2", records[1][2])
	assert.Equal(t, "2025-06-01", records[1][6])
	assert.Equal(t, "", records[2][6])
	assert.Equal(t, "2025-05-01T08:30:00Z", records[2][7])
}

func TestWriteHTML(t *testing.T) {
	tasks := []models.Task{
		{ID: "t-1", Title: "<script>alert(1)</script>", Status: models.StatusDone, Priority: models.PriorityHigh, AssignedTo: "ann"},
	}
	a := Summarize(tasks, nil, *date(t, "2025-05-20"))

	var buf bytes.Buffer
	require.NoError(t, WriteHTML(&buf, tasks, a, time.Date(2025, 5, 20, 14, 5, 0, 0, time.UTC)))
	out := buf.String()

	assert.Contains(t, out, "Generated on 2025-05-20 14:05")
	assert.Contains(t, out, "100.0%")
	assert.Contains(t, out, "N/A")
	assert.Contains(t, out, "&lt;script&gt;")
	assert.False(t, strings.Contains(out, "<script>alert"))
}
