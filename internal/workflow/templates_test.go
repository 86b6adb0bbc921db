package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskflow/internal/models"
)

func TestTable_NewTemplate(t *testing.T) {
	table, err := DefaultTable()
	require.NoError(t, err)

	tests := []struct {
		name    string
		owner   string
		tplName string
		steps   []Definition
		wantErr bool
		check   func(t *testing.T, tpl Template)
	}{
		{
			name: "defaults to the workflow table", owner: "u-1", tplName: "  Release  ",
			check: func(t *testing.T, tpl Template) {
				assert.Equal(t, "Release", tpl.Name)
				assert.Equal(t, "u-1", tpl.CreatedBy)
				assert.Equal(t, table.Definitions(), tpl.Steps)
			},
		},
		{
			name: "custom steps are ordered", owner: "u-1", tplName: "Hotfix",
			steps: []Definition{{StepNo: 3, StepName: "Deploy"}, {StepNo: 1, StepName: " Patch "}},
			check: func(t *testing.T, tpl Template) {
				require.Len(t, tpl.Steps, 2)
				assert.Equal(t, "Patch", tpl.Steps[0].StepName)
				assert.Equal(t, 3, tpl.Steps[1].StepNo)
			},
		},
		{name: "blank name", owner: "u-1", tplName: "   ", wantErr: true},
		{name: "no owner", tplName: "Release", wantErr: true},
		{name: "unnamed step", owner: "u-1", tplName: "x", steps: []Definition{{StepNo: 0}}, wantErr: true},
		{name: "duplicate step", owner: "u-1", tplName: "x", steps: []Definition{{StepNo: 0, StepName: "a"}, {StepNo: 0, StepName: "b"}}, wantErr: true},
		{name: "negative step", owner: "u-1", tplName: "x", steps: []Definition{{StepNo: -1, StepName: "a"}}, wantErr: true},
		{name: "unknown role", owner: "u-1", tplName: "x", steps: []Definition{{StepNo: 0, StepName: "a", WhoComplete: []models.Role{"intern"}}}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tpl, err := table.NewTemplate(tt.owner, tt.tplName, "", tt.steps, false)
			if tt.wantErr {
				assert.ErrorIs(t, err, models.ErrValidation)
				return
			}
			require.NoError(t, err)
			tt.check(t, tpl)
		})
	}
}

func TestTable_NewTemplate_DoesNotAliasTable(t *testing.T) {
	table, err := DefaultTable()
	require.NoError(t, err)

	tpl, err := table.NewTemplate("u-1", "Release", "", nil, true)
	require.NoError(t, err)
	assert.True(t, tpl.IsPublic)
	tpl.Steps[0].WhoComplete[0] = models.RoleAdmin

	fresh, ok := table.Lookup(0)
	require.True(t, ok)
	assert.Equal(t, []models.Role{models.RoleTL}, fresh.WhoComplete)
}
