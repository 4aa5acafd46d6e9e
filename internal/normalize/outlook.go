package normalize

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"

	"github.com/wxrouter/wxrouter/internal/feed"
	"github.com/wxrouter/wxrouter/internal/models"
)

// outlookTimeFormats are tried in order when parsing VALID/EXPIRE/ISSUE
// values. SPC publishes both ISO timestamps and a compact YYYYMMDDHHMM form.
var outlookTimeFormats = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"200601021504",
}

// outlookProps is the typed shadow of an SPC feature's properties.
type outlookProps struct {
	DN json.RawMessage `json:"DN"`

	ValidISO  string `json:"VALID_ISO"`
	Valid     string `json:"VALID"`
	ExpireISO string `json:"EXPIRE_ISO"`
	Expire    string `json:"EXPIRE"`
	IssueISO  string `json:"ISSUE_ISO"`
	Issue     string `json:"ISSUE"`

	Forecaster *string `json:"FORECASTER"`
	Label      *string `json:"LABEL"`
	Label2     *string `json:"LABEL2"`
	Stroke     *string `json:"stroke"`
	Fill       *string `json:"fill"`
}

// OutlookFeatures normalizes a fetched SPC product into one record per
// feature. feature_index is the feature's ordinal position within the raw
// payload so later reprocessing can re-find it deterministically.
func OutlookFeatures(p feed.Product, raw []byte, fc *feed.FeatureCollection, fetchedAt time.Time) []models.OutlookFeature {
	// Collection-level ISSUE is the fallback when a feature carries none.
	collProps := fc.PropertyMap()
	collIssue := ""
	if v, ok := collProps["ISSUE_ISO"].(string); ok && v != "" {
		collIssue = v
	} else if v, ok := collProps["ISSUE"].(string); ok {
		collIssue = v
	}

	out := make([]models.OutlookFeature, 0, len(fc.Features))
	for idx, f := range fc.Features {
		var props outlookProps
		if len(f.Properties) > 0 {
			json.Unmarshal(f.Properties, &props)
		}

		rec := models.OutlookFeature{
			Product:      p.Name,
			URL:          p.URL,
			Payload:      raw,
			FetchedHour:  fetchedAt.UTC().Truncate(time.Hour),
			FeatureIndex: idx,
			Properties:   f.Properties,
			DN:           DNText(props.DN),

			Valid:  ParseOutlookTime(firstNonEmpty(props.ValidISO, props.Valid)),
			Expire: ParseOutlookTime(firstNonEmpty(props.ExpireISO, props.Expire)),
			Issue:  ParseOutlookTime(firstNonEmpty(props.IssueISO, props.Issue, collIssue)),

			Forecaster: props.Forecaster,
			Label:      props.Label,
			Label2:     props.Label2,
			Stroke:     props.Stroke,
			Fill:       props.Fill,
		}

		if len(rec.Properties) == 0 {
			rec.Properties = json.RawMessage("{}")
		}
		if f.HasGeometry() {
			rec.Geometry = f.Geometry
		}

		out = append(out, rec)
	}
	return out
}

// DNText renders a raw DN property as text, exactly mirroring the source
// representation: strings are unquoted, numbers keep their source digits,
// absent or null becomes "NA". The value is never suffixed.
func DNText(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return "NA"
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

// ParseOutlookTime parses an SPC timestamp. Empty or unparsable values
// yield nil, never an error.
func ParseOutlookTime(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range outlookTimeFormats {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
