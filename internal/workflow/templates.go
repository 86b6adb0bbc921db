package workflow

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"taskflow/internal/models"
)

// Template is a named, reusable step set. Private templates are visible to
// their creator only.
type Template struct {
	ID          string       `json:"id" db:"id"`
	Name        string       `json:"name" db:"name"`
	Description string       `json:"description" db:"description"`
	Steps       []Definition `json:"steps" db:"-"`
	CreatedBy   string       `json:"created_by" db:"created_by"`
	IsPublic    bool         `json:"is_public" db:"is_public"`
	CreatedAt   time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at" db:"updated_at"`
}

// NewTemplate normalizes a template draft owned by owner. When steps is empty
// the template carries a copy of the table's definitions.
func (t *Table) NewTemplate(owner, name, description string, steps []Definition, public bool) (Template, error) {
	if strings.TrimSpace(owner) == "" {
		return Template{}, fmt.Errorf("%w: acting user is required", models.ErrValidation)
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return Template{}, fmt.Errorf("%w: template name is required", models.ErrValidation)
	}

	if len(steps) == 0 {
		steps = t.Definitions()
	} else {
		cloned := make([]Definition, len(steps))
		seen := make(map[int]struct{}, len(steps))
		for i, d := range steps {
			d.StepName = strings.TrimSpace(d.StepName)
			if d.StepName == "" {
				return Template{}, fmt.Errorf("%w: step %d has no name", models.ErrValidation, d.StepNo)
			}
			if d.StepNo < 0 {
				return Template{}, fmt.Errorf("%w: step %q has negative step_no", models.ErrValidation, d.StepName)
			}
			if _, dup := seen[d.StepNo]; dup {
				return Template{}, fmt.Errorf("%w: duplicate step_no %d", models.ErrValidation, d.StepNo)
			}
			seen[d.StepNo] = struct{}{}
			for _, roles := range [][]models.Role{d.WhoCreate, d.WhoApprove, d.WhoComplete} {
				for _, r := range roles {
					if _, ok := models.ValidRoles[r]; !ok {
						return Template{}, fmt.Errorf("%w: step %d names unknown role %q", models.ErrValidation, d.StepNo, r)
					}
				}
			}
			cloned[i] = cloneDefinition(d)
		}
		sort.SliceStable(cloned, func(i, j int) bool { return cloned[i].StepNo < cloned[j].StepNo })
		steps = cloned
	}

	return Template{
		Name:        name,
		Description: strings.TrimSpace(description),
		Steps:       steps,
		CreatedBy:   owner,
		IsPublic:    public,
	}, nil
}
