package store

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	pgx "github.com/jackc/pgx/v5"

	"github.com/wxrouter/wxrouter/internal/models"
)

// fakeDB captures Exec calls for SQL assertions.
type fakeDB struct {
	configured bool
	execSQL    []string
	execArgs   [][]any
	execErr    error
}

func (f *fakeDB) Exec(ctx context.Context, sql string, args ...any) error {
	f.execSQL = append(f.execSQL, sql)
	f.execArgs = append(f.execArgs, args)
	return f.execErr
}

func (f *fakeDB) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeDB) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return nil
}

func (f *fakeDB) Health(ctx context.Context) error { return nil }
func (f *fakeDB) IsConfigured() bool               { return f.configured }

func TestNewSelectsBackend(t *testing.T) {
	if _, ok := New(&fakeDB{configured: true}).(*PostgresStore); !ok {
		t.Fatal("configured DB should yield a Postgres store")
	}
	if _, ok := New(&fakeDB{configured: false}).(*InMemoryStore); !ok {
		t.Fatal("unconfigured DB should yield an in-memory store")
	}
}

func TestUpsertAlertSQL(t *testing.T) {
	db := &fakeDB{configured: true}
	s := NewPostgresStore(db)

	geom := json.RawMessage(`{"type":"Point","coordinates":[-97.0,35.0]}`)
	err := s.UpsertAlerts(context.Background(), []models.Alert{
		{ID: "X1", Properties: json.RawMessage(`{}`), Geometry: geom},
		{ID: "X2", Properties: json.RawMessage(`{}`)},
	})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if len(db.execSQL) != 2 {
		t.Fatalf("expected 2 statements, got %d", len(db.execSQL))
	}

	sql := db.execSQL[0]
	if !strings.Contains(sql, "ON CONFLICT (id) DO UPDATE") {
		t.Fatal("alert upsert must be conflict-safe on id")
	}
	if !strings.Contains(sql, "COALESCE(ST_SetSRID(ST_GeomFromGeoJSON($46), 4326), alerts.geom)") {
		t.Fatal("geometry update must preserve the stored value on NULL input")
	}

	// Last arg is the geometry text, nil when the record carries none.
	args := db.execArgs[0]
	if g, ok := args[len(args)-1].(*string); !ok || g == nil || *g != string(geom) {
		t.Fatalf("expected geometry text argument, got %#v", args[len(args)-1])
	}
	args = db.execArgs[1]
	if g, ok := args[len(args)-1].(*string); !ok || g != nil {
		t.Fatalf("expected nil geometry argument, got %#v", args[len(args)-1])
	}
}

func TestUpsertAlertsContinuesPastFailures(t *testing.T) {
	db := &fakeDB{configured: true, execErr: errors.New("boom")}
	s := NewPostgresStore(db)

	err := s.UpsertAlerts(context.Background(), []models.Alert{{ID: "A"}, {ID: "B"}})
	if err == nil {
		t.Fatal("expected aggregated error")
	}
	// Every record is attempted even when earlier ones fail.
	if len(db.execSQL) != 2 {
		t.Fatalf("expected 2 attempts, got %d", len(db.execSQL))
	}
}

func TestUpsertOutlookFeatureSQL(t *testing.T) {
	db := &fakeDB{configured: true}
	s := NewPostgresStore(db)

	f := &models.OutlookFeature{Product: "day1fire.lyr.geojson", DN: "NA"}
	if err := s.UpsertOutlookFeature(context.Background(), models.FireOutlook, f); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	sql := db.execSQL[0]
	if !strings.Contains(sql, "INSERT INTO fire_outlooks") {
		t.Fatal("kind must select the target table")
	}
	if !strings.Contains(sql, "ON CONFLICT (product, issue, feature_index)") {
		t.Fatal("outlook upsert must be conflict-safe on the natural key")
	}
	if !strings.Contains(sql, "COALESCE(ST_SetSRID(ST_Multi(ST_GeomFromGeoJSON($16)), 4326)") {
		t.Fatal("geometry update must preserve the stored value on NULL input")
	}
	if !strings.Contains(sql, "ST_Multi") {
		t.Fatal("outlook geometry must be coerced to MultiPolygon")
	}
}
