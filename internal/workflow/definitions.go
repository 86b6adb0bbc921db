package workflow

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"slices"
	"sort"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	"taskflow/internal/models"
)

// StepCount is the fixed number of steps every task carries.
const StepCount = 20

// FirstStepNo is the step whose completion moves a task out of todo.
const FirstStepNo = 0

//go:embed steps.yaml
var stepsYAML []byte

//go:embed steps.schema.json
var stepsSchema []byte

// Definition is the immutable template of one workflow step.
type Definition struct {
	StepNo      int           `yaml:"step_no" json:"step_no"`
	StepName    string        `yaml:"step_name" json:"step_name"`
	WhoCreate   []models.Role `yaml:"who_create" json:"who_create"`
	WhoApprove  []models.Role `yaml:"who_approve" json:"who_approve"`
	WhoComplete []models.Role `yaml:"who_complete" json:"who_complete"`
	Output      string        `yaml:"output" json:"output"`
}

// CanComplete reports whether role is listed as a completer of the step.
func (d Definition) CanComplete(role models.Role) bool {
	return slices.Contains(d.WhoComplete, role)
}

// Table is a read-only, ordered set of step definitions.
type Table struct {
	defs  []Definition
	index map[int]int
}

// NewTable validates defs and returns them ordered by step number.
func NewTable(defs []Definition) (*Table, error) {
	if len(defs) != StepCount {
		return nil, fmt.Errorf("workflow table must have %d steps, got %d", StepCount, len(defs))
	}

	sorted := make([]Definition, len(defs))
	for i, d := range defs {
		sorted[i] = cloneDefinition(d)
	}
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].StepNo < sorted[j].StepNo })

	index := make(map[int]int, len(sorted))
	for i, d := range sorted {
		if d.StepNo < 0 {
			return nil, fmt.Errorf("step %q has negative step_no %d", d.StepName, d.StepNo)
		}
		if _, dup := index[d.StepNo]; dup {
			return nil, fmt.Errorf("duplicate step_no %d", d.StepNo)
		}
		index[d.StepNo] = i
	}
	for _, required := range []int{FirstStepNo, DefaultCutoffStep} {
		if _, ok := index[required]; !ok {
			return nil, fmt.Errorf("workflow table has no step %d", required)
		}
	}

	return &Table{defs: sorted, index: index}, nil
}

// LoadTable decodes a YAML step table, checks it against the bundled JSON
// schema and builds a Table from it.
func LoadTable(data []byte) (*Table, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode step table: %w", err)
	}
	if err := validateSchema(raw); err != nil {
		return nil, err
	}

	var defs []Definition
	if err := yaml.Unmarshal(data, &defs); err != nil {
		return nil, fmt.Errorf("decode step table: %w", err)
	}
	return NewTable(defs)
}

var loadDefault = sync.OnceValues(func() (*Table, error) {
	return LoadTable(stepsYAML)
})

// DefaultTable returns the bundled workflow table. It is parsed once per process.
func DefaultTable() (*Table, error) {
	return loadDefault()
}

// Definitions returns a copy of the ordered definitions.
func (t *Table) Definitions() []Definition {
	out := make([]Definition, len(t.defs))
	for i, d := range t.defs {
		out[i] = cloneDefinition(d)
	}
	return out
}

// Lookup finds the definition for a step number.
func (t *Table) Lookup(stepNo int) (Definition, bool) {
	i, ok := t.index[stepNo]
	if !ok {
		return Definition{}, false
	}
	return cloneDefinition(t.defs[i]), true
}

// Len returns the number of definitions.
func (t *Table) Len() int {
	return len(t.defs)
}

func validateSchema(raw any) error {
	// yaml.v3 decodes integers as int; round-trip through JSON so the
	// validator sees the same value model as for a JSON document.
	encoded, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("encode step table: %w", err)
	}
	var doc any
	if err := json.Unmarshal(encoded, &doc); err != nil {
		return fmt.Errorf("encode step table: %w", err)
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("steps.schema.json", bytes.NewReader(stepsSchema)); err != nil {
		return fmt.Errorf("load step schema: %w", err)
	}
	schema, err := compiler.Compile("steps.schema.json")
	if err != nil {
		return fmt.Errorf("compile step schema: %w", err)
	}
	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("step table does not match schema: %w", err)
	}
	return nil
}

func cloneDefinition(d Definition) Definition {
	d.WhoCreate = slices.Clone(d.WhoCreate)
	d.WhoApprove = slices.Clone(d.WhoApprove)
	d.WhoComplete = slices.Clone(d.WhoComplete)
	return d
}
