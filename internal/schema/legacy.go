package schema

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/wxrouter/wxrouter/internal/feed"
	"github.com/wxrouter/wxrouter/internal/logger"
	"github.com/wxrouter/wxrouter/internal/models"
	"github.com/wxrouter/wxrouter/internal/normalize"
	"github.com/wxrouter/wxrouter/internal/store"
)

// migrateLegacyOutlooks flattens the retired spc_outlooks table, which held
// one row per fetched product with every feature nested in the payload,
// into the one-row-per-feature tables. The legacy table is renamed
// afterwards as a safety net, never dropped. Re-running is a no-op once
// the rename has happened.
func migrateLegacyOutlooks(ctx context.Context, db store.Database) (Status, error) {
	exists, err := regclassExists(ctx, db, "spc_outlooks")
	if err != nil {
		return StatusFailed, err
	}
	if !exists {
		return StatusAlreadyApplied, nil
	}

	rows, err := db.Query(ctx, `SELECT product, url, payload, fetched_hour FROM spc_outlooks`)
	if err != nil {
		return StatusFailed, fmt.Errorf("read legacy rows: %w", err)
	}

	type legacyRow struct {
		product string
		url     string
		payload []byte
		fetched *time.Time
	}
	var legacy []legacyRow
	for rows.Next() {
		var r legacyRow
		if err := rows.Scan(&r.product, &r.url, &r.payload, &r.fetched); err != nil {
			rows.Close()
			return StatusFailed, fmt.Errorf("scan legacy row: %w", err)
		}
		legacy = append(legacy, r)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return StatusFailed, err
	}

	st := store.NewPostgresStore(db)
	migrated, failed := 0, 0
	for _, r := range legacy {
		var fc feed.FeatureCollection
		if err := json.Unmarshal(r.payload, &fc); err != nil {
			logger.Warn("Legacy outlook payload unreadable", "product", r.product, "error", err)
			failed++
			continue
		}

		fetchedAt := time.Now().UTC()
		if r.fetched != nil {
			fetchedAt = *r.fetched
		}

		kind := legacyKind(r.product, r.url)
		p := feed.Product{Name: r.product, URL: r.url, Kind: kind}
		for _, f := range normalize.OutlookFeatures(p, r.payload, &fc, fetchedAt) {
			f := f
			if err := st.UpsertOutlookFeature(ctx, kind, &f); err != nil {
				logger.Warn("Legacy outlook feature migration failed",
					"product", r.product, "key", f.Key(), "error", err)
				failed++
				continue
			}
			migrated++
		}
	}

	if err := db.Exec(ctx, `ALTER TABLE spc_outlooks RENAME TO spc_outlooks_legacy`); err != nil {
		return StatusFailed, fmt.Errorf("rename legacy table: %w", err)
	}

	logger.Info("Legacy outlook table migrated",
		"features_migrated", migrated, "failures", failed)
	return StatusApplied, nil
}

// legacyKind picks the target table for a legacy row from its product name
// or URL.
func legacyKind(product, url string) models.OutlookKind {
	if strings.Contains(url, "fire_wx") ||
		strings.HasPrefix(product, "day1fw") || strings.HasPrefix(product, "day2fw") {
		return models.FireOutlook
	}
	return models.ConvectiveOutlook
}
