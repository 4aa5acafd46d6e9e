package schema

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/wxrouter/wxrouter/internal/logger"
	"github.com/wxrouter/wxrouter/internal/store"
)

// Status classifies the outcome of one evolution step.
type Status int

const (
	// StatusApplied means the step changed the schema or data.
	StatusApplied Status = iota
	// StatusAlreadyApplied means the schema was already current.
	StatusAlreadyApplied
	// StatusSkipped means the step could not run with the current
	// privileges (for example CREATE EXTENSION without superuser).
	StatusSkipped
	// StatusFailed means the step errored for another reason. Later steps
	// still run.
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusApplied:
		return "applied"
	case StatusAlreadyApplied:
		return "already-applied"
	case StatusSkipped:
		return "skipped"
	default:
		return "failed"
	}
}

// Result records the outcome of one step.
type Result struct {
	Step   string
	Status Status
	Err    error
}

// Step is one idempotent unit of schema evolution.
type Step struct {
	Name string
	Run  func(ctx context.Context, db store.Database) (Status, error)
}

// Evolve brings the live schema incrementally in line with the current
// expected shape. Steps run in dependency order; a failing step is logged
// and recorded but never aborts the rest, so the pipeline can start in
// degraded mode against a partially migrated database. Running against an
// already current database applies nothing and errors nothing.
func Evolve(ctx context.Context, db store.Database) []Result {
	results := make([]Result, 0, len(steps))
	for _, step := range steps {
		status, err := step.Run(ctx, db)
		if err != nil && isPrivilegeError(err) {
			status, err = StatusSkipped, nil
		}

		res := Result{Step: step.Name, Status: status, Err: err}
		results = append(results, res)

		switch status {
		case StatusFailed:
			logger.Error("Schema step failed", "step", step.Name, "error", err)
		case StatusSkipped:
			logger.Warn("Schema step skipped", "step", step.Name, "reason", "insufficient privilege")
		default:
			logger.Info("Schema step", "step", step.Name, "status", status.String())
		}
	}
	return results
}

// isPrivilegeError reports whether err is SQLSTATE 42501 (insufficient
// privilege).
func isPrivilegeError(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "42501"
}

// regclassExists reports whether a relation (table or index) exists.
func regclassExists(ctx context.Context, db store.Database, name string) (bool, error) {
	var reg *string
	row := db.QueryRow(ctx, `SELECT to_regclass($1)::text`, "public."+name)
	if err := row.Scan(&reg); err != nil {
		return false, err
	}
	return reg != nil, nil
}

// columnExists reports whether a table has a column.
func columnExists(ctx context.Context, db store.Database, table, column string) (bool, error) {
	var n int
	row := db.QueryRow(ctx, `
		SELECT count(*) FROM information_schema.columns
		WHERE table_schema = 'public' AND table_name = $1 AND column_name = $2
	`, table, column)
	if err := row.Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}
