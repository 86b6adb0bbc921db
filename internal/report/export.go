package report

import (
	_ "embed"
	"encoding/csv"
	"fmt"
	"html/template"
	"io"
	"time"

	"taskflow/internal/models"
)

// Export formats understood by the export endpoint.
const (
	FormatJSON = "json"
	FormatCSV  = "csv"
	FormatHTML = "html"
)

var csvHeader = []string{"ID", "Title", "Description", "Status", "Priority", "Assigned To", "Due Date", "Created At"}

// WriteCSV writes one row per task under a fixed header.
func WriteCSV(w io.Writer, tasks []models.Task) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, t := range tasks {
		due := ""
		if t.DueDate != nil {
			due = t.DueDate.String()
		}
		record := []string{
			t.ID,
			t.Title,
			t.Description,
			string(t.Status),
			string(t.Priority),
			t.AssignedTo,
			due,
			t.CreatedAt.Format(time.RFC3339),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

//go:embed report.html.tmpl
var reportTemplate string

var htmlReport = template.Must(template.New("report").Funcs(template.FuncMap{
	"due": func(d *models.Date) string {
		if d == nil {
			return "N/A"
		}
		return d.String()
	},
}).Parse(reportTemplate))

// WriteHTML renders a printable report with the analytics summary on top.
func WriteHTML(w io.Writer, tasks []models.Task, analytics Analytics, generatedAt time.Time) error {
	data := struct {
		Tasks       []models.Task
		Summary     Summary
		GeneratedAt string
	}{
		Tasks:       tasks,
		Summary:     analytics.Summary,
		GeneratedAt: generatedAt.Format("2006-01-02 15:04"),
	}
	if err := htmlReport.Execute(w, data); err != nil {
		return fmt.Errorf("render html report: %w", err)
	}
	return nil
}
