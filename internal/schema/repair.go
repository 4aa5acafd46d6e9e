package schema

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"time"

	"github.com/wxrouter/wxrouter/internal/logger"
	"github.com/wxrouter/wxrouter/internal/normalize"
	"github.com/wxrouter/wxrouter/internal/store"
)

// RepairDN recomputes dn from the stored properties blob, discarding any
// suffix an earlier version may have appended. Absent DN yields "NA".
func RepairDN(properties json.RawMessage) string {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(properties, &obj); err != nil {
		return "NA"
	}
	return normalize.DNText(obj["DN"])
}

// LocateFeatureIndex finds the ordinal position inside payload.features of
// the feature a row was extracted from: first by full properties equality,
// then by DN match, falling back to 0. Ties resolve to the first match.
func LocateFeatureIndex(payload, properties json.RawMessage, dn string) int {
	var doc struct {
		Features []struct {
			Properties json.RawMessage `json:"properties"`
		} `json:"features"`
	}
	if err := json.Unmarshal(payload, &doc); err != nil {
		return 0
	}

	var want any
	haveWant := json.Unmarshal(properties, &want) == nil

	if haveWant {
		for idx, f := range doc.Features {
			var got any
			if json.Unmarshal(f.Properties, &got) == nil && reflect.DeepEqual(want, got) {
				return idx
			}
		}
	}

	for idx, f := range doc.Features {
		var obj map[string]json.RawMessage
		if json.Unmarshal(f.Properties, &obj) != nil {
			continue
		}
		if normalize.DNText(obj["DN"]) == dn {
			return idx
		}
	}

	return 0
}

// repairOutlookRows fixes rows whose dn was stored with an appended suffix
// by an earlier version, recomputing both dn and feature_index from the
// retained raw payload. Rows already consistent are untouched.
func repairOutlookRows(ctx context.Context, db store.Database) (Status, error) {
	repaired := 0
	for _, table := range []string{"convective_outlooks", "fire_outlooks"} {
		n, err := repairTable(ctx, db, table)
		if err != nil {
			return StatusFailed, err
		}
		repaired += n
	}
	if repaired == 0 {
		return StatusAlreadyApplied, nil
	}
	logger.Info("Outlook rows repaired", "rows", repaired)
	return StatusApplied, nil
}

func repairTable(ctx context.Context, db store.Database, table string) (int, error) {
	query := fmt.Sprintf(`
		SELECT product, issue, feature_index, properties, payload, dn
		FROM %s
		WHERE dn IS DISTINCT FROM COALESCE(properties->>'DN', 'NA')
	`, table)

	rows, err := db.Query(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("find broken rows in %s: %w", table, err)
	}

	type brokenRow struct {
		product    string
		issue      *time.Time
		index      int
		properties json.RawMessage
		payload    json.RawMessage
		dn         string
	}
	var broken []brokenRow
	for rows.Next() {
		var r brokenRow
		if err := rows.Scan(&r.product, &r.issue, &r.index, &r.properties, &r.payload, &r.dn); err != nil {
			rows.Close()
			return 0, fmt.Errorf("scan broken row: %w", err)
		}
		broken = append(broken, r)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}

	update := fmt.Sprintf(`
		UPDATE %s SET dn = $1, feature_index = $2
		WHERE product = $3 AND issue IS NOT DISTINCT FROM $4 AND feature_index = $5
	`, table)

	repaired := 0
	for _, r := range broken {
		dn := RepairDN(r.properties)
		idx := LocateFeatureIndex(r.payload, r.properties, dn)
		if dn == r.dn && idx == r.index {
			continue
		}
		// Moving a row onto an index another row already holds violates
		// the natural key; that row stays broken rather than clobbering
		// its sibling.
		if err := db.Exec(ctx, update, dn, idx, r.product, r.issue, r.index); err != nil {
			logger.Warn("Outlook row repair failed",
				"table", table, "product", r.product, "index", r.index, "error", err)
			continue
		}
		repaired++
	}
	return repaired, nil
}
