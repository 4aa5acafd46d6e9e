package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	apperrors "github.com/wxrouter/wxrouter/internal/errors"
	"github.com/wxrouter/wxrouter/internal/models"
)

// PostgresStore implements Store on PostgreSQL with PostGIS geometry
// columns.
type PostgresStore struct {
	db Database
}

// NewPostgresStore creates a new PostgreSQL store.
func NewPostgresStore(db Database) *PostgresStore {
	return &PostgresStore{db: db}
}

const alertColumns = `
	id, properties, received_at,
	sent, effective, onset, expires, ends,
	status, message_type, category, severity, certainty, urgency,
	event, sender_name, headline, area_desc, description, instruction, response,
	geocode, geocode_ugc, geocode_same, parameters, affected_zones, "references",
	parameters_awips_identifier, parameters_wmo_identifier, parameters_nws_headline,
	parameters_eas_org, parameters_vtec, parameters_event_ending_time,
	parameters_event_motion_description, parameters_max_wind_gust, parameters_max_hail_size,
	parameters_hail_threat, parameters_wind_threat, parameters_tornado_detection,
	parameters_waterspout_detection, parameters_cmam_text, parameters_cmam_long_text,
	parameters_wea_handling, parameters_block_channel, parameters_expired_references`

// alertUpsertSQL inserts or refreshes one alert row. Geometry is supplied
// as GeoJSON text in the final parameter; a NULL geometry never overwrites
// a stored one.
const alertUpsertSQL = `
	INSERT INTO alerts (` + alertColumns + `, geom)
	VALUES (
		$1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
		$11, $12, $13, $14, $15, $16, $17, $18, $19, $20,
		$21, $22, $23, $24, $25, $26, $27, $28, $29, $30,
		$31, $32, $33, $34, $35, $36, $37, $38, $39, $40,
		$41, $42, $43, $44, $45,
		ST_SetSRID(ST_GeomFromGeoJSON($46), 4326)
	)
	ON CONFLICT (id) DO UPDATE SET
		properties = EXCLUDED.properties,
		received_at = EXCLUDED.received_at,
		sent = EXCLUDED.sent,
		effective = EXCLUDED.effective,
		onset = EXCLUDED.onset,
		expires = EXCLUDED.expires,
		ends = EXCLUDED.ends,
		status = EXCLUDED.status,
		message_type = EXCLUDED.message_type,
		category = EXCLUDED.category,
		severity = EXCLUDED.severity,
		certainty = EXCLUDED.certainty,
		urgency = EXCLUDED.urgency,
		event = EXCLUDED.event,
		sender_name = EXCLUDED.sender_name,
		headline = EXCLUDED.headline,
		area_desc = EXCLUDED.area_desc,
		description = EXCLUDED.description,
		instruction = EXCLUDED.instruction,
		response = EXCLUDED.response,
		geocode = EXCLUDED.geocode,
		geocode_ugc = EXCLUDED.geocode_ugc,
		geocode_same = EXCLUDED.geocode_same,
		parameters = EXCLUDED.parameters,
		affected_zones = EXCLUDED.affected_zones,
		"references" = EXCLUDED."references",
		parameters_awips_identifier = EXCLUDED.parameters_awips_identifier,
		parameters_wmo_identifier = EXCLUDED.parameters_wmo_identifier,
		parameters_nws_headline = EXCLUDED.parameters_nws_headline,
		parameters_eas_org = EXCLUDED.parameters_eas_org,
		parameters_vtec = EXCLUDED.parameters_vtec,
		parameters_event_ending_time = EXCLUDED.parameters_event_ending_time,
		parameters_event_motion_description = EXCLUDED.parameters_event_motion_description,
		parameters_max_wind_gust = EXCLUDED.parameters_max_wind_gust,
		parameters_max_hail_size = EXCLUDED.parameters_max_hail_size,
		parameters_hail_threat = EXCLUDED.parameters_hail_threat,
		parameters_wind_threat = EXCLUDED.parameters_wind_threat,
		parameters_tornado_detection = EXCLUDED.parameters_tornado_detection,
		parameters_waterspout_detection = EXCLUDED.parameters_waterspout_detection,
		parameters_cmam_text = EXCLUDED.parameters_cmam_text,
		parameters_cmam_long_text = EXCLUDED.parameters_cmam_long_text,
		parameters_wea_handling = EXCLUDED.parameters_wea_handling,
		parameters_block_channel = EXCLUDED.parameters_block_channel,
		parameters_expired_references = EXCLUDED.parameters_expired_references,
		geom = COALESCE(ST_SetSRID(ST_GeomFromGeoJSON($46), 4326), alerts.geom)
`

// UpsertAlerts inserts or updates alert rows one at a time so a bad record
// fails alone.
func (s *PostgresStore) UpsertAlerts(ctx context.Context, alerts []models.Alert) error {
	var merr apperrors.MultiError
	for i := range alerts {
		if err := s.upsertAlert(ctx, &alerts[i]); err != nil {
			merr.Add(&apperrors.UpsertError{Table: "alerts", Key: alerts[i].ID, Err: err})
		}
	}
	return merr.ErrOrNil()
}

func (s *PostgresStore) upsertAlert(ctx context.Context, a *models.Alert) error {
	p := a.Params
	return s.db.Exec(ctx, alertUpsertSQL,
		a.ID, rawOrNil(a.Properties), a.ReceivedAt,
		a.Sent, a.Effective, a.Onset, a.Expires, a.Ends,
		a.Status, a.MessageType, a.Category, a.Severity, a.Certainty, a.Urgency,
		a.Event, a.SenderName, a.Headline, a.AreaDesc, a.Description, a.Instruction, a.Response,
		rawOrNil(a.Geocode), rawOrNil(a.GeocodeUGC), rawOrNil(a.GeocodeSAME),
		rawOrNil(a.Parameters), rawOrNil(a.AffectedZones), rawOrNil(a.References),
		p.AWIPSIdentifier, p.WMOIdentifier, p.NWSHeadline,
		p.EASOrg, p.VTEC, p.EventEndingTime,
		p.EventMotionDescription, p.MaxWindGust, p.MaxHailSize,
		p.HailThreat, p.WindThreat, p.TornadoDetection,
		p.WaterspoutDetection, p.CMAMText, p.CMAMLongText,
		p.WEAHandling, rawOrNil(p.BlockChannel), rawOrNil(p.ExpiredReferences),
		geomText(a.Geometry),
	)
}

// QueryAlerts retrieves alerts matching the query, newest sent first.
func (s *PostgresStore) QueryAlerts(ctx context.Context, q models.AlertQuery) ([]models.Alert, error) {
	query := `SELECT ` + alertColumns + `, ST_AsGeoJSON(geom) FROM alerts WHERE 1=1`

	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if len(q.IDs) > 0 {
		query += " AND id = ANY(" + arg(q.IDs) + ")"
	}
	if len(q.Events) > 0 {
		query += " AND event = ANY(" + arg(q.Events) + ")"
	}
	if len(q.Severities) > 0 {
		query += " AND severity = ANY(" + arg(q.Severities) + ")"
	}
	if len(q.Statuses) > 0 {
		query += " AND status = ANY(" + arg(q.Statuses) + ")"
	}
	if len(q.Urgencies) > 0 {
		query += " AND urgency = ANY(" + arg(q.Urgencies) + ")"
	}
	if !q.Since.IsZero() {
		query += " AND sent >= " + arg(q.Since)
	}
	if !q.Until.IsZero() {
		query += " AND sent <= " + arg(q.Until)
	}
	if q.Active {
		query += " AND expires > now()"
	}

	query += " ORDER BY sent DESC NULLS LAST"

	if q.Limit > 0 {
		query += " LIMIT " + arg(q.Limit)
	}
	if q.Offset > 0 {
		query += " OFFSET " + arg(q.Offset)
	}

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query alerts: %w", err)
	}
	defer rows.Close()

	var alerts []models.Alert
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, fmt.Errorf("scan alert: %w", err)
		}
		alerts = append(alerts, a)
	}
	return alerts, rows.Err()
}

// GetAlert retrieves a single alert by its normalized ID. A missing row
// returns (nil, nil).
func (s *PostgresStore) GetAlert(ctx context.Context, id string) (*models.Alert, error) {
	row := s.db.QueryRow(ctx, `SELECT `+alertColumns+`, ST_AsGeoJSON(geom) FROM alerts WHERE id = $1`, id)

	a, err := scanAlert(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scan alert: %w", err)
	}
	return &a, nil
}

func scanAlert(row pgx.Row) (models.Alert, error) {
	var a models.Alert
	var geom *string
	err := row.Scan(
		&a.ID, &a.Properties, &a.ReceivedAt,
		&a.Sent, &a.Effective, &a.Onset, &a.Expires, &a.Ends,
		&a.Status, &a.MessageType, &a.Category, &a.Severity, &a.Certainty, &a.Urgency,
		&a.Event, &a.SenderName, &a.Headline, &a.AreaDesc, &a.Description, &a.Instruction, &a.Response,
		&a.Geocode, &a.GeocodeUGC, &a.GeocodeSAME, &a.Parameters, &a.AffectedZones, &a.References,
		&a.Params.AWIPSIdentifier, &a.Params.WMOIdentifier, &a.Params.NWSHeadline,
		&a.Params.EASOrg, &a.Params.VTEC, &a.Params.EventEndingTime,
		&a.Params.EventMotionDescription, &a.Params.MaxWindGust, &a.Params.MaxHailSize,
		&a.Params.HailThreat, &a.Params.WindThreat, &a.Params.TornadoDetection,
		&a.Params.WaterspoutDetection, &a.Params.CMAMText, &a.Params.CMAMLongText,
		&a.Params.WEAHandling, &a.Params.BlockChannel, &a.Params.ExpiredReferences,
		&geom,
	)
	if err != nil {
		return models.Alert{}, err
	}
	if geom != nil {
		a.Geometry = json.RawMessage(*geom)
	}
	return a, nil
}

// outlookUpsertSQL refreshes a feature row keyed by (product, issue,
// feature_index). A NULL geometry never overwrites a stored one. Rows with
// a NULL issue never conflict; each lands as its own row.
const outlookUpsertSQL = `
	INSERT INTO %s (
		product, url, payload, fetched_hour, feature_index,
		properties, dn, valid, expire, issue,
		forecaster, label, label2, stroke, fill, geom
	) VALUES (
		$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15,
		ST_SetSRID(ST_Multi(ST_GeomFromGeoJSON($16)), 4326)
	)
	ON CONFLICT (product, issue, feature_index) DO UPDATE SET
		url = EXCLUDED.url,
		payload = EXCLUDED.payload,
		fetched_hour = EXCLUDED.fetched_hour,
		properties = EXCLUDED.properties,
		dn = EXCLUDED.dn,
		valid = EXCLUDED.valid,
		expire = EXCLUDED.expire,
		forecaster = EXCLUDED.forecaster,
		label = EXCLUDED.label,
		label2 = EXCLUDED.label2,
		stroke = EXCLUDED.stroke,
		fill = EXCLUDED.fill,
		geom = COALESCE(ST_SetSRID(ST_Multi(ST_GeomFromGeoJSON($16)), 4326), %s.geom)
`

// UpsertOutlookFeature inserts or updates one outlook feature row in the
// table selected by kind.
func (s *PostgresStore) UpsertOutlookFeature(ctx context.Context, kind models.OutlookKind, f *models.OutlookFeature) error {
	table := kind.Table()
	query := fmt.Sprintf(outlookUpsertSQL, table, table)

	err := s.db.Exec(ctx, query,
		f.Product, f.URL, rawOrNil(f.Payload), f.FetchedHour, f.FeatureIndex,
		rawOrNil(f.Properties), f.DN, f.Valid, f.Expire, f.Issue,
		f.Forecaster, f.Label, f.Label2, f.Stroke, f.Fill,
		geomText(f.Geometry),
	)
	if err != nil {
		return &apperrors.UpsertError{Table: table, Key: f.Key(), Err: err}
	}
	return nil
}

// OutlookCounts returns the total stored row counts for the two outlook
// tables.
func (s *PostgresStore) OutlookCounts(ctx context.Context) (int64, int64, error) {
	var convective, fire int64
	row := s.db.QueryRow(ctx, `SELECT
		(SELECT count(*) FROM convective_outlooks),
		(SELECT count(*) FROM fire_outlooks)`)
	if err := row.Scan(&convective, &fire); err != nil {
		return 0, 0, fmt.Errorf("count outlooks: %w", err)
	}
	return convective, fire, nil
}

// UpsertIngestStatus records the outcome of an ingest pass, one row per
// source. last_run is truncated to whole seconds.
func (s *PostgresStore) UpsertIngestStatus(ctx context.Context, st models.IngestStatus) error {
	return s.db.Exec(ctx, `
		INSERT INTO spc_ingest_status (
			source, last_run, last_success, convective_count, fire_count, message, updated_at
		) VALUES ($1, date_trunc('second', $2::timestamptz), $3, $4, $5, $6, now())
		ON CONFLICT (source) DO UPDATE SET
			last_run = EXCLUDED.last_run,
			last_success = EXCLUDED.last_success,
			convective_count = EXCLUDED.convective_count,
			fire_count = EXCLUDED.fire_count,
			message = EXCLUDED.message,
			updated_at = EXCLUDED.updated_at
	`, st.Source, st.LastRun, st.LastSuccess, st.ConvectiveCount, st.FireCount, st.Message)
}

// GetIngestStatus returns the status row for one source, (nil, nil) when
// the source has never run.
func (s *PostgresStore) GetIngestStatus(ctx context.Context, source string) (*models.IngestStatus, error) {
	row := s.db.QueryRow(ctx, `
		SELECT source, last_run, last_success, convective_count, fire_count, message, updated_at
		FROM spc_ingest_status WHERE source = $1
	`, source)

	var st models.IngestStatus
	err := row.Scan(&st.Source, &st.LastRun, &st.LastSuccess,
		&st.ConvectiveCount, &st.FireCount, &st.Message, &st.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scan ingest status: %w", err)
	}
	return &st, nil
}

// Health checks the database connection.
func (s *PostgresStore) Health(ctx context.Context) error {
	return s.db.Health(ctx)
}

// rawOrNil maps an absent raw JSON value to SQL NULL.
func rawOrNil(m json.RawMessage) any {
	if len(m) == 0 || string(m) == "null" {
		return nil
	}
	return []byte(m)
}

// geomText renders a geometry as GeoJSON text for ST_GeomFromGeoJSON, nil
// when the record carries none.
func geomText(m json.RawMessage) *string {
	if len(m) == 0 || string(m) == "null" {
		return nil
	}
	s := string(m)
	return &s
}
