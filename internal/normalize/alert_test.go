package normalize

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wxrouter/wxrouter/internal/feed"
)

func alertFeature(t *testing.T, id string, props string, geom string) feed.Feature {
	t.Helper()
	f := feed.Feature{Properties: json.RawMessage(props)}
	if id != "" {
		idJSON, err := json.Marshal(id)
		require.NoError(t, err)
		f.ID = idJSON
	}
	if geom != "" {
		f.Geometry = json.RawMessage(geom)
	}
	return f
}

func TestNormalizeAlertID(t *testing.T) {
	assert.Equal(t, "X1", NormalizeAlertID("https://api.weather.gov/alerts/X1"))
	assert.Equal(t, "urn:oid:2.49.0.1.840.0.abc", NormalizeAlertID("urn:oid:2.49.0.1.840.0.abc"))
	assert.Equal(t, "", NormalizeAlertID(""))
}

func TestAlertBasicExtraction(t *testing.T) {
	f := alertFeature(t, "https://api.weather.gov/alerts/X1", `{
		"sent": "2024-05-01T12:00:00-05:00",
		"expires": "2024-05-01T18:00:00-05:00",
		"status": "Actual",
		"messageType": "Alert",
		"severity": "Severe",
		"certainty": "Observed",
		"urgency": "Immediate",
		"event": "Tornado Warning",
		"senderName": "NWS Norman OK",
		"headline": "Tornado Warning issued",
		"areaDesc": "Cleveland, OK",
		"response": "Shelter",
		"unrecognizedField": ["kept only in raw properties"]
	}`, "")

	now := time.Now().UTC()
	a, ok := Alert(f, now)
	require.True(t, ok)

	assert.Equal(t, "X1", a.ID)
	require.NotNil(t, a.Sent)
	assert.Equal(t, time.Date(2024, 5, 1, 17, 0, 0, 0, time.UTC), a.Sent.UTC())
	require.NotNil(t, a.Expires)
	assert.Equal(t, "Severe", *a.Severity)
	assert.Equal(t, "Actual", *a.Status)
	assert.Equal(t, "Tornado Warning", *a.Event)
	assert.Equal(t, "NWS Norman OK", *a.SenderName)
	assert.Nil(t, a.Onset)
	assert.Nil(t, a.Geometry)
	assert.False(t, a.HasGeometry())
	assert.Equal(t, now, a.ReceivedAt)

	// Unrecognized fields survive only inside the raw blob.
	var rawProps map[string]any
	require.NoError(t, json.Unmarshal(a.Properties, &rawProps))
	assert.Contains(t, rawProps, "unrecognizedField")
}

func TestAlertIDFallbackToProperties(t *testing.T) {
	f := alertFeature(t, "", `{"id": "https://api.weather.gov/alerts/Y2", "severity": "Minor"}`, "")
	a, ok := Alert(f, time.Now())
	require.True(t, ok)
	assert.Equal(t, "Y2", a.ID)
}

func TestAlertMissingIDIsSkipped(t *testing.T) {
	f := alertFeature(t, "", `{"severity": "Minor"}`, "")
	_, ok := Alert(f, time.Now())
	assert.False(t, ok, "feature without an ID must be dropped, not errored")
}

func TestAlertGeometryPassThrough(t *testing.T) {
	geom := `{"type":"Polygon","coordinates":[[[-97.1,35.1],[-97.0,35.1],[-97.0,35.2],[-97.1,35.1]]]}`
	f := alertFeature(t, "Z3", `{}`, geom)
	a, ok := Alert(f, time.Now())
	require.True(t, ok)
	assert.True(t, a.HasGeometry())
	assert.JSONEq(t, geom, string(a.Geometry))

	// Explicit JSON null geometry is treated as absent.
	f = alertFeature(t, "Z3", `{}`, "null")
	a, ok = Alert(f, time.Now())
	require.True(t, ok)
	assert.False(t, a.HasGeometry())
}

func TestAlertGeocodeSplit(t *testing.T) {
	f := alertFeature(t, "G1", `{
		"geocode": {"UGC": ["OKC027"], "SAME": ["040027"]}
	}`, "")
	a, ok := Alert(f, time.Now())
	require.True(t, ok)

	assert.JSONEq(t, `["OKC027"]`, string(a.GeocodeUGC))
	assert.JSONEq(t, `["040027"]`, string(a.GeocodeSAME))
	assert.JSONEq(t, `{"UGC": ["OKC027"], "SAME": ["040027"]}`, string(a.Geocode))
}

func TestAlertGeocodeNonObject(t *testing.T) {
	f := alertFeature(t, "G2", `{"geocode": ["not", "an", "object"]}`, "")
	a, ok := Alert(f, time.Now())
	require.True(t, ok)
	assert.Nil(t, a.GeocodeUGC)
	assert.Nil(t, a.GeocodeSAME)
	assert.JSONEq(t, `["not", "an", "object"]`, string(a.Geocode))
}

func TestAlertUnparsableTimestamps(t *testing.T) {
	f := alertFeature(t, "T1", `{"sent": "yesterday-ish", "effective": ""}`, "")
	a, ok := Alert(f, time.Now())
	require.True(t, ok)
	assert.Nil(t, a.Sent)
	assert.Nil(t, a.Effective)
}

func TestAlertParamProjection(t *testing.T) {
	f := alertFeature(t, "P1", `{
		"parameters": {
			"AWIPSidentifier": ["TOROUN"],
			"NWSheadline": ["LINE ONE", "LINE TWO"],
			"maxWindGust": ["60 MPH"],
			"maxHailSize": ["1.75"],
			"hailThreat": ["1.75 IN"],
			"BLOCKCHANNEL": ["EAS", "NWEM"],
			"notAllowListed": ["stays raw only"]
		}
	}`, "")
	a, ok := Alert(f, time.Now())
	require.True(t, ok)

	require.NotNil(t, a.Params.AWIPSIdentifier)
	assert.Equal(t, "TOROUN", *a.Params.AWIPSIdentifier)

	require.NotNil(t, a.Params.NWSHeadline)
	assert.Equal(t, "LINE ONE\nLINE TWO", *a.Params.NWSHeadline)

	// "60 MPH" does not parse as a float: numeric coercion yields nil.
	assert.Nil(t, a.Params.MaxWindGust)

	require.NotNil(t, a.Params.MaxHailSize)
	assert.Equal(t, 1.75, *a.Params.MaxHailSize)

	require.NotNil(t, a.Params.HailThreat)
	assert.Equal(t, "1.75 IN", *a.Params.HailThreat)

	assert.JSONEq(t, `["EAS","NWEM"]`, string(a.Params.BlockChannel))

	// Non-allow-listed keys only live in the raw parameters blob.
	var params map[string]any
	require.NoError(t, json.Unmarshal(a.Parameters, &params))
	assert.Contains(t, params, "notAllowListed")
}

func TestCoercions(t *testing.T) {
	// string: first element of an array
	s := coerceString([]any{"a", "b"})
	require.NotNil(t, s)
	assert.Equal(t, "a", *s)

	// string: scalar number stringified
	s = coerceString(float64(42))
	require.NotNil(t, s)
	assert.Equal(t, "42", *s)

	// string: empty array
	assert.Nil(t, coerceString([]any{}))

	// text: newline join
	s = coerceText([]any{"x", float64(1), true})
	require.NotNil(t, s)
	assert.Equal(t, "x\n1\ntrue", *s)

	// numeric: first element parsed
	n := coerceNumeric([]any{"3.5", "9"})
	require.NotNil(t, n)
	assert.Equal(t, 3.5, *n)

	// numeric: native number
	n = coerceNumeric(float64(7))
	require.NotNil(t, n)
	assert.Equal(t, 7.0, *n)

	// numeric: junk
	assert.Nil(t, coerceNumeric([]any{"sixty"}))
	assert.Nil(t, coerceNumeric([]any{}))
	assert.Nil(t, coerceNumeric(map[string]any{}))
}
