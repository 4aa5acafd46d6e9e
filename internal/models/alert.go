package models

import (
	"encoding/json"
	"time"
)

// Alert represents one weather hazard warning from the national alerts
// feed, keyed by its normalized ID. The full properties payload is retained
// alongside the extracted columns so unrecognized fields survive round
// trips through the store.
type Alert struct {
	ID         string          `json:"id" db:"id"`
	Properties json.RawMessage `json:"properties" db:"properties"`
	// Geometry is the raw GeoJSON geometry, nil when the feature carried
	// none. A nil geometry never overwrites a stored one.
	Geometry   json.RawMessage `json:"geometry,omitempty" db:"geometry"`
	ReceivedAt time.Time       `json:"received_at" db:"received_at"`

	// Temporal properties
	Sent      *time.Time `json:"sent,omitempty" db:"sent"`
	Effective *time.Time `json:"effective,omitempty" db:"effective"`
	Onset     *time.Time `json:"onset,omitempty" db:"onset"`
	Expires   *time.Time `json:"expires,omitempty" db:"expires"`
	Ends      *time.Time `json:"ends,omitempty" db:"ends"`

	// Categorical properties
	Status      *string `json:"status,omitempty" db:"status"`
	MessageType *string `json:"messageType,omitempty" db:"message_type"`
	Category    *string `json:"category,omitempty" db:"category"`
	Severity    *string `json:"severity,omitempty" db:"severity"`
	Certainty   *string `json:"certainty,omitempty" db:"certainty"`
	Urgency     *string `json:"urgency,omitempty" db:"urgency"`

	// Descriptive text
	Event       *string `json:"event,omitempty" db:"event"`
	SenderName  *string `json:"senderName,omitempty" db:"sender_name"`
	Headline    *string `json:"headline,omitempty" db:"headline"`
	AreaDesc    *string `json:"areaDesc,omitempty" db:"area_desc"`
	Description *string `json:"description,omitempty" db:"description"`
	Instruction *string `json:"instruction,omitempty" db:"instruction"`
	Response    *string `json:"response,omitempty" db:"response"`

	// Structured sub-objects kept as raw JSON
	Geocode       json.RawMessage `json:"geocode,omitempty" db:"geocode"`
	GeocodeUGC    json.RawMessage `json:"geocodeUGC,omitempty" db:"geocode_ugc"`
	GeocodeSAME   json.RawMessage `json:"geocodeSAME,omitempty" db:"geocode_same"`
	Parameters    json.RawMessage `json:"parameters,omitempty" db:"parameters"`
	AffectedZones json.RawMessage `json:"affectedZones,omitempty" db:"affected_zones"`
	References    json.RawMessage `json:"references,omitempty" db:"references"`

	// Projected parameter values (allow-listed keys only)
	Params ParamValues `json:"params"`
}

// ParamValues carries the allow-listed `parameters` keys projected into
// typed fields. Keys outside the allow-list live only in Alert.Parameters.
type ParamValues struct {
	AWIPSIdentifier        *string         `json:"AWIPSidentifier,omitempty" db:"awips_identifier"`
	WMOIdentifier          *string         `json:"WMOidentifier,omitempty" db:"wmo_identifier"`
	NWSHeadline            *string         `json:"NWSheadline,omitempty" db:"nws_headline"`
	EASOrg                 *string         `json:"EAS-ORG,omitempty" db:"eas_org"`
	VTEC                   *string         `json:"VTEC,omitempty" db:"vtec"`
	EventEndingTime        *string         `json:"eventEndingTime,omitempty" db:"event_ending_time"`
	EventMotionDescription *string         `json:"eventMotionDescription,omitempty" db:"event_motion_description"`
	MaxWindGust            *float64        `json:"maxWindGust,omitempty" db:"max_wind_gust"`
	MaxHailSize            *float64        `json:"maxHailSize,omitempty" db:"max_hail_size"`
	HailThreat             *string         `json:"hailThreat,omitempty" db:"hail_threat"`
	WindThreat             *string         `json:"windThreat,omitempty" db:"wind_threat"`
	TornadoDetection       *string         `json:"tornadoDetection,omitempty" db:"tornado_detection"`
	WaterspoutDetection    *string         `json:"waterspoutDetection,omitempty" db:"waterspout_detection"`
	CMAMText               *string         `json:"CMAMtext,omitempty" db:"cmam_text"`
	CMAMLongText           *string         `json:"CMAMlongtext,omitempty" db:"cmam_long_text"`
	WEAHandling            *string         `json:"WEAHandling,omitempty" db:"wea_handling"`
	BlockChannel           json.RawMessage `json:"BLOCKCHANNEL,omitempty" db:"block_channel"`
	ExpiredReferences      json.RawMessage `json:"expiredReferences,omitempty" db:"expired_references"`
}

// HasGeometry reports whether this record carries a geometry to store.
func (a *Alert) HasGeometry() bool {
	return len(a.Geometry) > 0 && string(a.Geometry) != "null"
}
