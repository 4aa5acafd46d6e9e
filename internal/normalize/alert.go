package normalize

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/wxrouter/wxrouter/internal/feed"
	"github.com/wxrouter/wxrouter/internal/models"
)

// AlertIDPrefix is the canonical feed URL prefix stripped from alert IDs so
// the same hazard fetched repeatedly maps to one row.
const AlertIDPrefix = "https://api.weather.gov/alerts/"

// NormalizeAlertID strips the canonical feed prefix when present; IDs
// without the prefix pass through unchanged.
func NormalizeAlertID(raw string) string {
	return strings.TrimPrefix(raw, AlertIDPrefix)
}

// alertProps is the typed shadow of an alert feature's properties. Raw
// sub-objects stay as json.RawMessage so they are stored byte-for-byte.
type alertProps struct {
	ID *string `json:"id"`

	Sent      *string `json:"sent"`
	Effective *string `json:"effective"`
	Onset     *string `json:"onset"`
	Expires   *string `json:"expires"`
	Ends      *string `json:"ends"`

	Status      *string `json:"status"`
	MessageType *string `json:"messageType"`
	Category    *string `json:"category"`
	Severity    *string `json:"severity"`
	Certainty   *string `json:"certainty"`
	Urgency     *string `json:"urgency"`

	Event       *string `json:"event"`
	SenderName  *string `json:"senderName"`
	Headline    *string `json:"headline"`
	AreaDesc    *string `json:"areaDesc"`
	Description *string `json:"description"`
	Instruction *string `json:"instruction"`
	Response    *string `json:"response"`

	Geocode       json.RawMessage `json:"geocode"`
	Parameters    json.RawMessage `json:"parameters"`
	AffectedZones json.RawMessage `json:"affectedZones"`
	References    json.RawMessage `json:"references"`
}

// Alert normalizes one GeoJSON feature from the alerts feed into a typed
// record. The second return is false when the feature has no usable ID, in
// which case it is silently dropped (not an error).
func Alert(f feed.Feature, receivedAt time.Time) (models.Alert, bool) {
	var props alertProps
	if len(f.Properties) > 0 {
		// A malformed properties object still yields a record keyed by the
		// top-level ID; the raw blob keeps whatever was there.
		json.Unmarshal(f.Properties, &props)
	}

	rawID, ok := f.StringID()
	if !ok && props.ID != nil && *props.ID != "" {
		rawID, ok = *props.ID, true
	}
	if !ok {
		return models.Alert{}, false
	}

	a := models.Alert{
		ID:         NormalizeAlertID(rawID),
		Properties: f.Properties,
		ReceivedAt: receivedAt,

		Sent:      parseCAPTime(props.Sent),
		Effective: parseCAPTime(props.Effective),
		Onset:     parseCAPTime(props.Onset),
		Expires:   parseCAPTime(props.Expires),
		Ends:      parseCAPTime(props.Ends),

		Status:      props.Status,
		MessageType: props.MessageType,
		Category:    props.Category,
		Severity:    props.Severity,
		Certainty:   props.Certainty,
		Urgency:     props.Urgency,

		Event:       props.Event,
		SenderName:  props.SenderName,
		Headline:    props.Headline,
		AreaDesc:    props.AreaDesc,
		Description: props.Description,
		Instruction: props.Instruction,
		Response:    props.Response,

		Geocode:       props.Geocode,
		Parameters:    props.Parameters,
		AffectedZones: props.AffectedZones,
		References:    props.References,
	}

	if len(a.Properties) == 0 {
		a.Properties = json.RawMessage("{}")
	}

	a.GeocodeUGC, a.GeocodeSAME = splitGeocode(props.Geocode)

	if len(props.Parameters) > 0 && string(props.Parameters) != "null" {
		var params map[string]any
		if err := json.Unmarshal(props.Parameters, &params); err == nil {
			a.Params = projectParams(params)
		}
	}

	if f.HasGeometry() {
		a.Geometry = f.Geometry
	}

	return a, true
}

// splitGeocode projects geocode.UGC and geocode.SAME into independent
// fields when geocode is an object; anything else leaves both nil.
func splitGeocode(geocode json.RawMessage) (ugc, same json.RawMessage) {
	if len(geocode) == 0 || string(geocode) == "null" {
		return nil, nil
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(geocode, &obj); err != nil {
		return nil, nil
	}
	return obj["UGC"], obj["SAME"]
}

// parseCAPTime parses a CAP timestamp (RFC3339 with offset). Missing or
// unparsable values yield nil.
func parseCAPTime(s *string) *time.Time {
	if s == nil || *s == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, *s)
	if err != nil {
		return nil
	}
	return &t
}
