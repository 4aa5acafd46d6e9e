package feed

import "encoding/json"

// FeatureCollection is the wire shape of both the alerts feed and the SPC
// outlook products. Collection-level properties matter for outlooks (ISSUE
// fallback); geometry and feature properties are kept raw for the
// normalizer to interpret.
type FeatureCollection struct {
	Type       string          `json:"type"`
	Properties json.RawMessage `json:"properties,omitempty"`
	Features   []Feature       `json:"features"`
}

// Feature is one GeoJSON feature. ID is raw because some feeds omit it or
// carry non-string values; the normalizer decides whether it is usable.
type Feature struct {
	ID         json.RawMessage `json:"id,omitempty"`
	Properties json.RawMessage `json:"properties,omitempty"`
	Geometry   json.RawMessage `json:"geometry,omitempty"`
}

// StringID returns the feature ID when it is a JSON string.
func (f *Feature) StringID() (string, bool) {
	if len(f.ID) == 0 {
		return "", false
	}
	var s string
	if err := json.Unmarshal(f.ID, &s); err != nil || s == "" {
		return "", false
	}
	return s, true
}

// PropertyMap decodes the feature properties into a generic map. A missing
// or null properties object yields an empty map, not an error.
func (f *Feature) PropertyMap() (map[string]any, error) {
	if len(f.Properties) == 0 || string(f.Properties) == "null" {
		return map[string]any{}, nil
	}
	var m map[string]any
	if err := json.Unmarshal(f.Properties, &m); err != nil {
		return nil, err
	}
	return m, nil
}

// HasGeometry reports whether the feature carries a non-null geometry.
func (f *Feature) HasGeometry() bool {
	return len(f.Geometry) > 0 && string(f.Geometry) != "null"
}

// PropertyMap decodes the collection-level properties.
func (fc *FeatureCollection) PropertyMap() map[string]any {
	if len(fc.Properties) == 0 || string(fc.Properties) == "null" {
		return map[string]any{}
	}
	var m map[string]any
	if err := json.Unmarshal(fc.Properties, &m); err != nil {
		return map[string]any{}
	}
	return m
}
