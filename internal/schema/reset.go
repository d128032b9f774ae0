package schema

import (
	"context"
	"fmt"

	"dwpipe/internal/warehouse"
)

// Executor is the statement-running surface the schema manager needs
type Executor interface {
	ExecSteps(ctx context.Context, steps []warehouse.Step) error
}

// DropSteps returns the ordered DROP TABLE IF EXISTS steps, one per table.
// No foreign keys are declared, so the listed order is the only constraint.
func DropSteps() []warehouse.Step {
	steps := make([]warehouse.Step, 0, len(Tables))
	for _, table := range Tables {
		steps = append(steps, warehouse.Step{
			Name: "drop_" + table.Name,
			SQL:  fmt.Sprintf("DROP TABLE IF EXISTS %s;", table.Name),
		})
	}
	return steps
}

// CreateSteps returns the ordered CREATE TABLE steps, one per table
func CreateSteps() []warehouse.Step {
	steps := make([]warehouse.Step, 0, len(Tables))
	for _, table := range Tables {
		steps = append(steps, warehouse.Step{
			Name: "create_" + table.Name,
			SQL:  table.CreateSQL,
		})
	}
	return steps
}

// Reset drops and recreates all seven tables. It destroys every row in the
// warehouse and is idempotent from any starting state, including one where
// the tables do not exist yet. A mid-sequence failure leaves the schema
// partially applied; the caller re-runs or repairs manually.
func Reset(ctx context.Context, exec Executor) error {
	if err := exec.ExecSteps(ctx, DropSteps()); err != nil {
		return err
	}
	return exec.ExecSteps(ctx, CreateSteps())
}
