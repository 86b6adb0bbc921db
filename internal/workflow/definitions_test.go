package workflow

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskflow/internal/models"
)

func TestDefaultTable(t *testing.T) {
	table, err := DefaultTable()
	require.NoError(t, err)
	require.Equal(t, StepCount, table.Len())

	defs := table.Definitions()
	for i := 1; i < len(defs); i++ {
		assert.Less(t, defs[i-1].StepNo, defs[i].StepNo, "table must be ordered by step_no")
	}
	assert.Equal(t, FirstStepNo, defs[0].StepNo)
	assert.Equal(t, DefaultCutoffStep, defs[12].StepNo, "cutoff step is the 13th definition")

	cutoff, ok := table.Lookup(DefaultCutoffStep)
	require.True(t, ok)
	assert.Equal(t, "SAS SIT, UAT", cutoff.StepName)
	assert.True(t, cutoff.CanComplete(models.RoleDev))
	assert.False(t, cutoff.CanComplete(models.RoleTester))

	again, err := DefaultTable()
	require.NoError(t, err)
	assert.Same(t, table, again)
}

func TestTable_DefinitionsAreCopies(t *testing.T) {
	table, err := DefaultTable()
	require.NoError(t, err)

	defs := table.Definitions()
	defs[0].StepName = "mutated"
	defs[0].WhoComplete[0] = models.RoleAdmin

	fresh, ok := table.Lookup(0)
	require.True(t, ok)
	assert.Equal(t, "Create BCD", fresh.StepName)
	assert.Equal(t, []models.Role{models.RoleTL}, fresh.WhoComplete)
}

func TestLoadTable_Errors(t *testing.T) {
	valid := string(stepsYAML)

	tests := []struct {
		name string
		data string
		want string
	}{
		{name: "unknown role", data: strings.Replace(valid, "who_complete: [tl]\n  output: BCD", "who_complete: [intern]\n  output: BCD", 1), want: "schema"},
		{name: "unknown field", data: strings.Replace(valid, "output: BCD", "output: BCD\n  owner: nobody", 1), want: "schema"},
		{name: "duplicate step", data: strings.Replace(valid, "step_no: 19", "step_no: 18", 1), want: "duplicate step_no 18"},
		{name: "missing first step", data: strings.Replace(valid, "step_no: 0\n", "step_no: 20\n", 1), want: "no step 0"},
		{name: "missing cutoff step", data: strings.Replace(valid, "step_no: 12\n", "step_no: 20\n", 1), want: "no step 12"},
		{name: "not yaml", data: "::: [", want: "decode"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadTable([]byte(tt.data))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestNewTable_Cardinality(t *testing.T) {
	_, err := NewTable([]Definition{{StepNo: 0, StepName: "only"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must have 20 steps")
}
