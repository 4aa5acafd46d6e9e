package schema

import (
	"context"
	"fmt"

	"github.com/wxrouter/wxrouter/internal/store"
)

// steps is the ordered evolution list. Order matters: tables before their
// indexes, legacy migration before row repair.
var steps = []Step{
	{Name: "postgis_extension", Run: ensurePostGIS},
	{Name: "alerts_table", Run: ensureTable("alerts", createAlertsSQL)},
	{Name: "alerts_columns", Run: ensureAlertColumns},
	{Name: "alerts_geom_index", Run: ensureIndex("idx_alerts_geom", `CREATE INDEX IF NOT EXISTS idx_alerts_geom ON alerts USING GIST (geom)`)},
	{Name: "convective_outlooks_table", Run: ensureTable("convective_outlooks", outlookTableSQL("convective_outlooks"))},
	{Name: "fire_outlooks_table", Run: ensureTable("fire_outlooks", outlookTableSQL("fire_outlooks"))},
	{Name: "legacy_spc_outlooks", Run: migrateLegacyOutlooks},
	{Name: "outlook_geom_multi", Run: normalizeOutlookGeometry},
	{Name: "outlook_row_repair", Run: repairOutlookRows},
	{Name: "ingest_status_table", Run: ensureTable("spc_ingest_status", createIngestStatusSQL)},
	{Name: "api_keys_table", Run: ensureTable("api_keys", createAPIKeysSQL)},
	{Name: "drop_alerts_sender", Run: dropDeprecatedSender},
}

const createAlertsSQL = `
	CREATE TABLE IF NOT EXISTS alerts (
		id TEXT PRIMARY KEY,
		properties JSONB,
		geom geometry(Geometry, 4326),
		received_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`

// alertColumnDefs are the extracted columns added incrementally so a
// database created by an older version picks up new extractions without a
// reset.
var alertColumnDefs = []struct {
	name string
	typ  string
}{
	{"sent", "TIMESTAMPTZ"},
	{"effective", "TIMESTAMPTZ"},
	{"onset", "TIMESTAMPTZ"},
	{"expires", "TIMESTAMPTZ"},
	{"ends", "TIMESTAMPTZ"},
	{"status", "TEXT"},
	{"message_type", "TEXT"},
	{"category", "TEXT"},
	{"severity", "TEXT"},
	{"certainty", "TEXT"},
	{"urgency", "TEXT"},
	{"event", "TEXT"},
	{"sender_name", "TEXT"},
	{"headline", "TEXT"},
	{"area_desc", "TEXT"},
	{"description", "TEXT"},
	{"instruction", "TEXT"},
	{"response", "TEXT"},
	{"geocode", "JSONB"},
	{"geocode_ugc", "JSONB"},
	{"geocode_same", "JSONB"},
	{"parameters", "JSONB"},
	{"affected_zones", "JSONB"},
	{"references", "JSONB"},
	{"parameters_awips_identifier", "TEXT"},
	{"parameters_wmo_identifier", "TEXT"},
	{"parameters_nws_headline", "TEXT"},
	{"parameters_eas_org", "TEXT"},
	{"parameters_vtec", "TEXT"},
	{"parameters_event_ending_time", "TEXT"},
	{"parameters_event_motion_description", "TEXT"},
	{"parameters_max_wind_gust", "DOUBLE PRECISION"},
	{"parameters_max_hail_size", "DOUBLE PRECISION"},
	{"parameters_hail_threat", "TEXT"},
	{"parameters_wind_threat", "TEXT"},
	{"parameters_tornado_detection", "TEXT"},
	{"parameters_waterspout_detection", "TEXT"},
	{"parameters_cmam_text", "TEXT"},
	{"parameters_cmam_long_text", "TEXT"},
	{"parameters_wea_handling", "TEXT"},
	{"parameters_block_channel", "JSONB"},
	{"parameters_expired_references", "JSONB"},
}

func outlookTableSQL(table string) string {
	return fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %[1]s (
			product TEXT NOT NULL,
			url TEXT,
			payload JSONB,
			fetched_hour TIMESTAMPTZ,
			feature_index INTEGER NOT NULL DEFAULT 0,
			properties JSONB,
			dn TEXT,
			valid TIMESTAMPTZ,
			expire TIMESTAMPTZ,
			issue TIMESTAMPTZ,
			forecaster TEXT,
			label TEXT,
			label2 TEXT,
			stroke TEXT,
			fill TEXT,
			geom geometry(MultiPolygon, 4326),
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);
		CREATE UNIQUE INDEX IF NOT EXISTS uq_%[1]s_product_issue_idx
			ON %[1]s (product, issue, feature_index);
		CREATE INDEX IF NOT EXISTS idx_%[1]s_geom ON %[1]s USING GIST (geom)`, table)
}

const createIngestStatusSQL = `
	CREATE TABLE IF NOT EXISTS spc_ingest_status (
		source TEXT PRIMARY KEY,
		last_run TIMESTAMPTZ,
		last_success BOOLEAN NOT NULL DEFAULT FALSE,
		convective_count BIGINT NOT NULL DEFAULT 0,
		fire_count BIGINT NOT NULL DEFAULT 0,
		message TEXT NOT NULL DEFAULT '',
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`

const createAPIKeysSQL = `
	CREATE TABLE IF NOT EXISTS api_keys (
		id SERIAL PRIMARY KEY,
		key TEXT UNIQUE NOT NULL,
		key_hash TEXT NOT NULL,
		owner TEXT,
		active INTEGER NOT NULL DEFAULT 1,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`

func ensurePostGIS(ctx context.Context, db store.Database) (Status, error) {
	var n int
	if err := db.QueryRow(ctx, `SELECT count(*) FROM pg_extension WHERE extname = 'postgis'`).Scan(&n); err == nil && n > 0 {
		return StatusAlreadyApplied, nil
	}
	if err := db.Exec(ctx, `CREATE EXTENSION IF NOT EXISTS postgis`); err != nil {
		return StatusFailed, err
	}
	return StatusApplied, nil
}

// ensureTable creates a table unless it already exists.
func ensureTable(name, sql string) func(ctx context.Context, db store.Database) (Status, error) {
	return func(ctx context.Context, db store.Database) (Status, error) {
		exists, err := regclassExists(ctx, db, name)
		if err != nil {
			return StatusFailed, err
		}
		if exists {
			return StatusAlreadyApplied, nil
		}
		if err := db.Exec(ctx, sql); err != nil {
			return StatusFailed, err
		}
		return StatusApplied, nil
	}
}

// ensureIndex creates an index unless it already exists. Indexes are
// relations, so the same regclass probe as tables applies.
func ensureIndex(name, sql string) func(ctx context.Context, db store.Database) (Status, error) {
	return func(ctx context.Context, db store.Database) (Status, error) {
		exists, err := regclassExists(ctx, db, name)
		if err != nil {
			return StatusFailed, err
		}
		if exists {
			return StatusAlreadyApplied, nil
		}
		if err := db.Exec(ctx, sql); err != nil {
			return StatusFailed, err
		}
		return StatusApplied, nil
	}
}

// ensureAlertColumns adds any extracted column missing from an existing
// alerts table. Additive only.
func ensureAlertColumns(ctx context.Context, db store.Database) (Status, error) {
	applied := false
	for _, col := range alertColumnDefs {
		exists, err := columnExists(ctx, db, "alerts", col.name)
		if err != nil {
			return StatusFailed, err
		}
		if exists {
			continue
		}
		sql := fmt.Sprintf(`ALTER TABLE alerts ADD COLUMN IF NOT EXISTS %q %s`, col.name, col.typ)
		if err := db.Exec(ctx, sql); err != nil {
			return StatusFailed, err
		}
		applied = true
	}
	if !applied {
		return StatusAlreadyApplied, nil
	}
	return StatusApplied, nil
}

// normalizeOutlookGeometry coerces stray single polygons left by older
// versions into multi-part geometries. Current inserts already apply
// ST_Multi, so this usually touches nothing. Candidates are counted first
// so a no-op run reports the schema as already current.
func normalizeOutlookGeometry(ctx context.Context, db store.Database) (Status, error) {
	applied := false
	for _, table := range []string{"convective_outlooks", "fire_outlooks"} {
		var n int
		countSQL := fmt.Sprintf(
			`SELECT count(*) FROM %s WHERE geom IS NOT NULL AND GeometryType(geom) = 'POLYGON'`, table)
		if err := db.QueryRow(ctx, countSQL).Scan(&n); err != nil {
			return StatusFailed, err
		}
		if n == 0 {
			continue
		}
		sql := fmt.Sprintf(
			`UPDATE %s SET geom = ST_Multi(geom) WHERE geom IS NOT NULL AND GeometryType(geom) = 'POLYGON'`, table)
		if err := db.Exec(ctx, sql); err != nil {
			return StatusFailed, err
		}
		applied = true
	}
	if !applied {
		return StatusAlreadyApplied, nil
	}
	return StatusApplied, nil
}

// dropDeprecatedSender removes the superseded sender column. sender_name is
// the surviving field; nothing reads sender.
func dropDeprecatedSender(ctx context.Context, db store.Database) (Status, error) {
	exists, err := columnExists(ctx, db, "alerts", "sender")
	if err != nil {
		return StatusFailed, err
	}
	if !exists {
		return StatusAlreadyApplied, nil
	}
	if err := db.Exec(ctx, `ALTER TABLE alerts DROP COLUMN IF EXISTS sender`); err != nil {
		return StatusFailed, err
	}
	return StatusApplied, nil
}
