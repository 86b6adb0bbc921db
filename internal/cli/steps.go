package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"taskflow/internal/models"
	"taskflow/internal/workflow"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	cutoffStyle = cellStyle.Foreground(lipgloss.Color("9"))
)

func newStepsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "steps",
		Short: "Print the workflow step definitions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tbl, err := workflow.DefaultTable()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderSteps(tbl.Definitions(), workflow.DefaultCutoffStep))
			return nil
		},
	}
}

// renderSteps lays the definitions out as a bordered table. The cutoff step
// is highlighted.
func renderSteps(defs []workflow.Definition, cutoffStep int) string {
	rows := make([][]string, len(defs))
	for i, d := range defs {
		rows[i] = []string{
			strconv.Itoa(d.StepNo),
			d.StepName,
			joinRoles(d.WhoCreate),
			joinRoles(d.WhoApprove),
			joinRoles(d.WhoComplete),
			d.Output,
		}
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		Headers("NO", "STEP", "CREATE", "APPROVE", "COMPLETE", "OUTPUT").
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			if row >= 0 && row < len(defs) && defs[row].StepNo == cutoffStep {
				return cutoffStyle
			}
			return cellStyle
		})
	return t.String()
}

func joinRoles(roles []models.Role) string {
	parts := make([]string, len(roles))
	for i, r := range roles {
		parts[i] = string(r)
	}
	return strings.Join(parts, ", ")
}
