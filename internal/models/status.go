package models

import "time"

// IngestStatus summarizes the most recent polling pass for one named
// source. One row per source, upserted after each full pass; read-only
// observability data, never consulted by the pipeline itself.
type IngestStatus struct {
	Source          string    `json:"source" db:"source"`
	LastRun         time.Time `json:"last_run" db:"last_run"`
	LastSuccess     bool      `json:"last_success" db:"last_success"`
	ConvectiveCount int64     `json:"convective_count" db:"convective_count"`
	FireCount       int64     `json:"fire_count" db:"fire_count"`
	Message         string    `json:"message" db:"message"`
	UpdatedAt       time.Time `json:"updated_at" db:"updated_at"`
}
