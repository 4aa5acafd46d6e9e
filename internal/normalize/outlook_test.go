package normalize

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wxrouter/wxrouter/internal/feed"
	"github.com/wxrouter/wxrouter/internal/models"
)

var testProduct = feed.Product{
	Name: "day1otlk_cat.lyr.geojson",
	URL:  "https://www.spc.noaa.gov/products/outlook/day1otlk_cat.lyr.geojson",
	Kind: models.ConvectiveOutlook,
}

func outlookCollection(t *testing.T, collProps string, features ...string) (*feed.FeatureCollection, []byte) {
	t.Helper()
	raw := []byte(`{"type":"FeatureCollection","properties":` + collProps + `,"features":[`)
	for i, f := range features {
		if i > 0 {
			raw = append(raw, ',')
		}
		raw = append(raw, f...)
	}
	raw = append(raw, "]}"...)

	var fc feed.FeatureCollection
	require.NoError(t, json.Unmarshal(raw, &fc))
	return &fc, raw
}

func TestOutlookFeatures(t *testing.T) {
	fc, raw := outlookCollection(t, `{"ISSUE": "202405011630"}`,
		`{"type":"Feature","properties":{
			"DN": 2,
			"VALID": "202405011630",
			"EXPIRE": "202405021200",
			"ISSUE": "202405011628",
			"LABEL": "TSTM",
			"stroke": "#55BB55",
			"fill": "#C1E9C1"
		},"geometry":{"type":"MultiPolygon","coordinates":[[[[-97.0,35.0],[-96.0,35.0],[-96.0,36.0],[-97.0,35.0]]]]}}`,
		`{"type":"Feature","properties":{"DN": 5, "LABEL": "SLGT"},"geometry":null}`,
	)

	fetched := time.Date(2024, 5, 1, 16, 47, 12, 0, time.UTC)
	recs := OutlookFeatures(testProduct, raw, fc, fetched)
	require.Len(t, recs, 2)

	first := recs[0]
	assert.Equal(t, "day1otlk_cat.lyr.geojson", first.Product)
	assert.Equal(t, testProduct.URL, first.URL)
	assert.Equal(t, raw, []byte(first.Payload))
	assert.Equal(t, 0, first.FeatureIndex)
	assert.Equal(t, "2", first.DN)
	require.NotNil(t, first.Valid)
	assert.Equal(t, time.Date(2024, 5, 1, 16, 30, 0, 0, time.UTC), first.Valid.UTC())
	require.NotNil(t, first.Expire)
	require.NotNil(t, first.Issue)
	assert.Equal(t, time.Date(2024, 5, 1, 16, 28, 0, 0, time.UTC), first.Issue.UTC())
	assert.Equal(t, "TSTM", *first.Label)
	assert.Equal(t, "#55BB55", *first.Stroke)
	assert.True(t, first.HasGeometry())

	// fetched_hour is truncated to the hour, not extended.
	assert.Equal(t, time.Date(2024, 5, 1, 16, 0, 0, 0, time.UTC), first.FetchedHour)

	second := recs[1]
	assert.Equal(t, 1, second.FeatureIndex)
	assert.Equal(t, "5", second.DN)
	assert.False(t, second.HasGeometry())
	// No feature-level ISSUE: falls back to the collection's.
	require.NotNil(t, second.Issue)
	assert.Equal(t, time.Date(2024, 5, 1, 16, 30, 0, 0, time.UTC), second.Issue.UTC())
	assert.Nil(t, second.Valid)
	assert.Nil(t, second.Expire)
}

func TestOutlookISOPreferredOverCompact(t *testing.T) {
	fc, raw := outlookCollection(t, `{}`,
		`{"type":"Feature","properties":{
			"VALID_ISO": "2024-05-01T16:30:00+00:00",
			"VALID": "202405999999",
			"ISSUE_ISO": "2024-05-01T16:28:00",
			"ISSUE": "202405011628"
		}}`,
	)
	recs := OutlookFeatures(testProduct, raw, fc, time.Now())
	require.Len(t, recs, 1)

	require.NotNil(t, recs[0].Valid)
	assert.Equal(t, time.Date(2024, 5, 1, 16, 30, 0, 0, time.UTC), recs[0].Valid.UTC())
	require.NotNil(t, recs[0].Issue)
	assert.Equal(t, time.Date(2024, 5, 1, 16, 28, 0, 0, time.UTC), recs[0].Issue.UTC())
}

func TestOutlookEmptyProperties(t *testing.T) {
	fc, raw := outlookCollection(t, `{}`, `{"type":"Feature","properties":null,"geometry":null}`)
	recs := OutlookFeatures(testProduct, raw, fc, time.Now())
	require.Len(t, recs, 1)

	assert.Equal(t, "NA", recs[0].DN)
	assert.Nil(t, recs[0].Valid)
	assert.Nil(t, recs[0].Issue)
	assert.JSONEq(t, `{}`, string(recs[0].Properties))
}

func TestDNText(t *testing.T) {
	// Numbers keep their source digits verbatim.
	assert.Equal(t, "2", DNText(json.RawMessage(`2`)))
	assert.Equal(t, "0.15", DNText(json.RawMessage(`0.15`)))
	// Strings are unquoted.
	assert.Equal(t, "MRGL", DNText(json.RawMessage(`"MRGL"`)))
	// Absent or null is the sentinel.
	assert.Equal(t, "NA", DNText(nil))
	assert.Equal(t, "NA", DNText(json.RawMessage(`null`)))
	assert.Equal(t, "NA", DNText(json.RawMessage(`  null `)))
}

func TestParseOutlookTime(t *testing.T) {
	cases := []struct {
		in   string
		want *time.Time
	}{
		{"2024-05-01T16:30:00+00:00", timePtr(2024, 5, 1, 16, 30)},
		{"2024-05-01T16:30:00", timePtr(2024, 5, 1, 16, 30)},
		{"202405011630", timePtr(2024, 5, 1, 16, 30)},
		{"", nil},
		{"soon", nil},
		{"2024-13-99", nil},
	}
	for _, tc := range cases {
		got := ParseOutlookTime(tc.in)
		if tc.want == nil {
			assert.Nil(t, got, "input %q", tc.in)
			continue
		}
		require.NotNil(t, got, "input %q", tc.in)
		assert.Equal(t, *tc.want, got.UTC(), "input %q", tc.in)
	}
}

func timePtr(y int, mo time.Month, d, h, mi int) *time.Time {
	t := time.Date(y, mo, d, h, mi, 0, 0, time.UTC)
	return &t
}
