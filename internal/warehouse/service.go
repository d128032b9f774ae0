package warehouse

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"dwpipe/pkg/errors"
)

// Step is one named SQL statement in an ordered sequence. Naming the steps
// makes drop/create/insert ordering a first-class artifact instead of a side
// effect of source layout.
type Step struct {
	Name string
	SQL  string
	Args []interface{}
}

// Service provides warehouse database operations over a single connection.
// The pipeline is fully sequential: one caller, one connection, no
// concurrent statements.
type Service struct {
	db        *sql.DB
	dsn       string
	timeout   time.Duration
	connected bool
}

// NewService creates a service for the given DSN
func NewService(dsn string, timeout time.Duration) *Service {
	return &Service{
		dsn:     dsn,
		timeout: timeout,
	}
}

// NewServiceWithDB wraps an already-open database handle. Used by tests and
// by callers that manage the connection themselves.
func NewServiceWithDB(db *sql.DB) *Service {
	return &Service{
		db:        db,
		connected: true,
	}
}

// Connect opens the warehouse connection and verifies it with a ping
func (s *Service) Connect(ctx context.Context) error {
	if s.connected {
		return nil
	}

	db, err := sql.Open("pgx", s.dsn)
	if err != nil {
		return errors.ConnectionError("Failed to open warehouse connection", err)
	}

	// Exactly one writer for the duration of a run
	db.SetMaxOpenConns(1)

	pingCtx, cancel := s.withTimeout(ctx)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return errors.Wrap(err, errors.ErrCodeConnectionPing,
			"Failed to reach the warehouse")
	}

	s.db = db
	s.connected = true
	return nil
}

// Close closes the database connection
func (s *Service) Close() error {
	if !s.connected {
		return nil
	}
	s.connected = false
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close connection: %w", err)
	}
	return nil
}

// ExecStep executes a single named statement. Each statement commits on its
// own; there is no surrounding transaction and no rollback of earlier steps.
func (s *Service) ExecStep(ctx context.Context, step Step) error {
	if !s.connected {
		return errors.New(errors.ErrCodeConnectionFailed, "Not connected to the warehouse").
			WithSuggestions("Call Connect() before executing statements")
	}

	execCtx, cancel := s.withTimeout(ctx)
	defer cancel()

	if _, err := s.db.ExecContext(execCtx, step.SQL, step.Args...); err != nil {
		return errors.StatementError(step.Name, step.SQL, err)
	}
	return nil
}

// ExecSteps executes steps in order, stopping at the first failure. Steps
// already executed stay committed; the caller re-runs or repairs manually.
func (s *Service) ExecSteps(ctx context.Context, steps []Step) error {
	for _, step := range steps {
		if err := s.ExecStep(ctx, step); err != nil {
			return err
		}
	}
	return nil
}

// Query runs a read-only query
func (s *Service) Query(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	if !s.connected {
		return nil, errors.New(errors.ErrCodeConnectionFailed, "Not connected to the warehouse")
	}
	return s.db.QueryContext(ctx, query, args...)
}

// QueryRow runs a single-row query
func (s *Service) QueryRow(ctx context.Context, query string, args ...interface{}) (*sql.Row, error) {
	if !s.connected {
		return nil, errors.New(errors.ErrCodeConnectionFailed, "Not connected to the warehouse")
	}
	return s.db.QueryRowContext(ctx, query, args...), nil
}

func (s *Service) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	timeout := s.timeout
	if timeout == 0 {
		timeout = 5 * time.Minute
	}
	return context.WithTimeout(ctx, timeout)
}
