package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// OutlookKind selects the target table for an outlook feature row. The two
// schemas are structurally identical.
type OutlookKind int

const (
	ConvectiveOutlook OutlookKind = iota
	FireOutlook
)

// Table returns the table name for this kind.
func (k OutlookKind) Table() string {
	if k == FireOutlook {
		return "fire_outlooks"
	}
	return "convective_outlooks"
}

func (k OutlookKind) String() string {
	if k == FireOutlook {
		return "fire"
	}
	return "convective"
}

// OutlookFeature is one polygon from one category layer of one outlook
// product at one issuance. Natural key: (product, issue, feature_index).
type OutlookFeature struct {
	Product string `json:"product" db:"product"`
	URL     string `json:"url" db:"url"`
	// Payload is the full raw feature collection, duplicated across every
	// feature row from the same fetch so a row can always be traced back
	// to the document it came from.
	Payload     json.RawMessage `json:"payload" db:"payload"`
	FetchedHour time.Time       `json:"fetched_hour" db:"fetched_hour"`

	FeatureIndex int             `json:"feature_index" db:"feature_index"`
	Properties   json.RawMessage `json:"properties" db:"properties"`

	// DN mirrors the source DN property verbatim as text, "NA" when absent.
	DN string `json:"dn" db:"dn"`

	Valid  *time.Time `json:"valid,omitempty" db:"valid"`
	Expire *time.Time `json:"expire,omitempty" db:"expire"`
	Issue  *time.Time `json:"issue,omitempty" db:"issue"`

	Forecaster *string `json:"forecaster,omitempty" db:"forecaster"`
	Label      *string `json:"label,omitempty" db:"label"`
	Label2     *string `json:"label2,omitempty" db:"label2"`
	Stroke     *string `json:"stroke,omitempty" db:"stroke"`
	Fill       *string `json:"fill,omitempty" db:"fill"`

	Geometry json.RawMessage `json:"geometry,omitempty" db:"geom"`
}

// Key renders the natural key for log/error context.
func (f *OutlookFeature) Key() string {
	issue := "null"
	if f.Issue != nil {
		issue = f.Issue.UTC().Format(time.RFC3339)
	}
	return fmt.Sprintf("%s/%s/%d", f.Product, issue, f.FeatureIndex)
}

// HasGeometry reports whether this feature carries a geometry.
func (f *OutlookFeature) HasGeometry() bool {
	return len(f.Geometry) > 0 && string(f.Geometry) != "null"
}
