package transform

import (
	"context"
	"database/sql"
	"strconv"

	"dwpipe/internal/warehouse"
	"dwpipe/pkg/errors"
)

const factCountSQL = `SELECT COUNT(*) FROM songplays;`

// userCollisionSQL finds user ids that derived more than one dimension row,
// which happens when a user's level changed across events in the same load.
const userCollisionSQL = `SELECT user_id FROM users GROUP BY user_id HAVING COUNT(*) > 1 ORDER BY user_id;`

// Executor is the warehouse surface the engine needs
type Executor interface {
	ExecSteps(ctx context.Context, steps []warehouse.Step) error
	Query(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
}

// Engine derives the star schema from the currently staged rows. Each of the
// five statements commits independently; a failure surfaces verbatim and
// leaves earlier inserts in place.
type Engine struct {
	exec Executor

	// Force skips the empty-fact-table precondition. Re-running against a
	// populated fact table appends duplicate fact rows; that is the
	// documented semantics, not a bug the engine hides.
	Force bool
}

// NewEngine creates a transform engine
func NewEngine(exec Executor) *Engine {
	return &Engine{exec: exec}
}

// Run executes the five derivations in order. Preconditions: staging tables
// are populated and the fact/dimension tables are empty (fresh reset).
func (e *Engine) Run(ctx context.Context) error {
	if !e.Force {
		if err := e.checkFactEmpty(ctx); err != nil {
			return err
		}
	}

	steps := Steps()
	for _, step := range steps {
		if err := e.exec.ExecSteps(ctx, []warehouse.Step{step}); err != nil {
			return err
		}
		if step.Name == "insert_users" {
			if err := e.checkUserCollisions(ctx); err != nil {
				return err
			}
		}
	}
	return nil
}

func (e *Engine) checkFactEmpty(ctx context.Context) error {
	rows, err := e.exec.Query(ctx, factCountSQL)
	if err != nil {
		return errors.StatementError("count_songplays", factCountSQL, err)
	}
	defer rows.Close()

	var count int64
	if rows.Next() {
		if err := rows.Scan(&count); err != nil {
			return errors.Wrap(err, errors.ErrCodeInternal, "Failed to read fact row count")
		}
	}
	if err := rows.Err(); err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "Failed to read fact row count")
	}

	if count > 0 {
		return errors.New(errors.ErrCodeFactNotEmpty,
			"songplays already holds "+strconv.FormatInt(count, 10)+" rows; a re-run would append duplicates").
			WithContext("rows", count).
			WithSuggestions(
				"Run create-tables and load for a fresh pipeline run",
				"Pass --force to append anyway",
			)
	}
	return nil
}

func (e *Engine) checkUserCollisions(ctx context.Context) error {
	rows, err := e.exec.Query(ctx, userCollisionSQL)
	if err != nil {
		return errors.StatementError("check_user_collisions", userCollisionSQL, err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return errors.Wrap(err, errors.ErrCodeInternal, "Failed to read collision probe")
		}
		ids = append(ids, strconv.FormatInt(id, 10))
	}
	if err := rows.Err(); err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "Failed to read collision probe")
	}

	if len(ids) > 0 {
		return errors.DimensionConflictError("users", ids)
	}
	return nil
}
