package schema

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	pgx "github.com/jackc/pgx/v5"
)

// scanFunc adapts a function to pgx.Row for query fakes.
type scanFunc func(dest ...any) error

func (f scanFunc) Scan(dest ...any) error { return f(dest...) }

// currentSchemaDB fakes a database whose schema is already current: every
// relation exists and no rows need repair. Writes are recorded.
type currentSchemaDB struct {
	execs []string
}

func (f *currentSchemaDB) Exec(ctx context.Context, sql string, args ...any) error {
	f.execs = append(f.execs, sql)
	return nil
}

func (f *currentSchemaDB) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, errors.New("not implemented")
}

func (f *currentSchemaDB) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return scanFunc(func(dest ...any) error {
		switch {
		case strings.Contains(sql, "to_regclass"):
			name := args[0].(string)
			if p, ok := dest[0].(**string); ok {
				*p = &name
				return nil
			}
		case strings.Contains(sql, "count(*)"):
			if p, ok := dest[0].(*int); ok {
				*p = 0
				return nil
			}
		}
		return fmt.Errorf("unexpected scan for query %q", sql)
	})
}

func (f *currentSchemaDB) Health(ctx context.Context) error { return nil }
func (f *currentSchemaDB) IsConfigured() bool               { return true }

func TestEnsureIndexReportsCurrent(t *testing.T) {
	db := &currentSchemaDB{}
	step := ensureIndex("idx_alerts_geom", `CREATE INDEX idx_alerts_geom ON alerts USING GIST (geom)`)

	status, err := step(context.Background(), db)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status != StatusAlreadyApplied {
		t.Errorf("existing index reported %s, want already-applied", status)
	}
	if len(db.execs) != 0 {
		t.Errorf("no DDL expected against a current schema, got %v", db.execs)
	}
}

func TestGeometryNormalizationReportsCurrentWhenNothingToRepair(t *testing.T) {
	db := &currentSchemaDB{}

	status, err := normalizeOutlookGeometry(context.Background(), db)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status != StatusAlreadyApplied {
		t.Errorf("zero polygon candidates reported %s, want already-applied", status)
	}
	if len(db.execs) != 0 {
		t.Errorf("no UPDATE expected with zero candidates, got %v", db.execs)
	}
}

// staleGeometryDB reports polygon candidates in one table.
type staleGeometryDB struct {
	currentSchemaDB
}

func (f *staleGeometryDB) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return scanFunc(func(dest ...any) error {
		if strings.Contains(sql, "count(*)") && strings.Contains(sql, "convective_outlooks") {
			*(dest[0].(*int)) = 3
			return nil
		}
		return f.currentSchemaDB.QueryRow(ctx, sql, args...).Scan(dest...)
	})
}

func TestGeometryNormalizationAppliesWhenPolygonsRemain(t *testing.T) {
	db := &staleGeometryDB{}

	status, err := normalizeOutlookGeometry(context.Background(), db)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status != StatusApplied {
		t.Errorf("pending candidates reported %s, want applied", status)
	}
	if len(db.execs) != 1 || !strings.Contains(db.execs[0], "convective_outlooks") {
		t.Errorf("expected one UPDATE against convective_outlooks, got %v", db.execs)
	}
}
