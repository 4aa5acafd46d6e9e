package poller

import (
	"context"
	"encoding/json"
	"os"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/wxrouter/wxrouter/config"
	"github.com/wxrouter/wxrouter/internal/feed"
	"github.com/wxrouter/wxrouter/internal/logger"
	"github.com/wxrouter/wxrouter/internal/metrics"
	"github.com/wxrouter/wxrouter/internal/models"
	"github.com/wxrouter/wxrouter/internal/normalize"
)

// AlertFetcher is the feed surface the alerts poller needs.
type AlertFetcher interface {
	FetchAlerts(ctx context.Context, limit int) (*feed.FeatureCollection, error)
}

// AlertStore is the persistence surface the alerts poller needs.
type AlertStore interface {
	UpsertAlerts(ctx context.Context, alerts []models.Alert) error
}

// AlertPoller drives fetch, normalize, upsert for the national alerts feed
// on a fixed interval.
type AlertPoller struct {
	fetcher AlertFetcher
	store   AlertStore
	cfg     config.PollerConfig
	clock   clockwork.Clock
}

// NewAlertPoller creates an alerts poller using the real clock.
func NewAlertPoller(fetcher AlertFetcher, st AlertStore, cfg config.PollerConfig) *AlertPoller {
	return &AlertPoller{fetcher: fetcher, store: st, cfg: cfg, clock: clockwork.NewRealClock()}
}

// NewAlertPollerWithClock is NewAlertPoller with an injected clock, for
// tests.
func NewAlertPollerWithClock(fetcher AlertFetcher, st AlertStore, cfg config.PollerConfig, clock clockwork.Clock) *AlertPoller {
	return &AlertPoller{fetcher: fetcher, store: st, cfg: cfg, clock: clock}
}

// Run blocks until ctx is cancelled. It optionally waits for an upstream
// readiness URL and seeds the store from a snapshot file, then performs one
// immediate cycle followed by one cycle per interval.
func (p *AlertPoller) Run(ctx context.Context) error {
	if p.cfg.ReadyWaitURL != "" {
		if err := WaitForReady(ctx, p.cfg.ReadyWaitURL, p.cfg.ReadyWaitTimeout); err != nil {
			logger.Warn("Upstream readiness wait gave up", "url", p.cfg.ReadyWaitURL, "error", err)
		}
	}

	if p.cfg.SnapshotLoad {
		if err := p.loadSnapshot(ctx); err != nil {
			logger.Error("Snapshot seeding failed", "path", p.cfg.SnapshotPath, "error", err)
		}
	}

	logger.Info("Alert poller starting", "interval", p.cfg.Interval, "limit", p.cfg.Limit)

	p.cycle(ctx)

	ticker := p.clock.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("Alert poller stopping")
			return ctx.Err()
		case <-ticker.Chan():
			p.cycle(ctx)
		}
	}
}

// cycle performs one fetch-normalize-upsert pass. Failures are logged and
// absorbed; the next tick retries.
func (p *AlertPoller) cycle(ctx context.Context) {
	runID := uuid.NewString()
	start := p.clock.Now()

	fc, err := p.fetcher.FetchAlerts(ctx, p.cfg.Limit)
	if err != nil {
		metrics.RecordFetch("alerts", "error")
		metrics.RecordPollCycle("alerts", "error", p.clock.Since(start))
		logger.Error("Alert fetch failed", "run_id", runID, "error", err)
		return
	}
	metrics.RecordFetch("alerts", "success")

	stored, skipped := p.storeFeatures(ctx, runID, fc.Features)

	metrics.RecordPollCycle("alerts", "success", p.clock.Since(start))
	logger.Info("Alert cycle complete",
		"run_id", runID,
		"features", len(fc.Features),
		"stored", stored,
		"skipped", skipped,
		"duration_ms", p.clock.Since(start).Milliseconds(),
	)
}

// storeFeatures normalizes and upserts features one at a time so one bad
// record cannot take down its siblings.
func (p *AlertPoller) storeFeatures(ctx context.Context, runID string, features []feed.Feature) (stored, skipped int) {
	receivedAt := p.clock.Now().UTC()
	for i, f := range features {
		alert, ok := normalize.Alert(f, receivedAt)
		if !ok {
			metrics.RecordFeatureSkipped("alerts")
			skipped++
			continue
		}
		if err := p.store.UpsertAlerts(ctx, []models.Alert{alert}); err != nil {
			metrics.RecordUpsertError("alerts")
			logger.Error("Alert upsert failed",
				"run_id", runID, "index", i, "id", alert.ID, "error", err)
			continue
		}
		metrics.RecordFeatureUpserted("alerts")
		stored++
	}
	return stored, skipped
}

// loadSnapshot seeds the store from a fixed GeoJSON file, for offline
// development without feed access.
func (p *AlertPoller) loadSnapshot(ctx context.Context) error {
	data, err := os.ReadFile(p.cfg.SnapshotPath)
	if err != nil {
		return err
	}

	var fc feed.FeatureCollection
	if err := json.Unmarshal(data, &fc); err != nil {
		return err
	}

	stored, skipped := p.storeFeatures(ctx, "snapshot", fc.Features)
	logger.Info("Snapshot seeded",
		"path", p.cfg.SnapshotPath, "stored", stored, "skipped", skipped)
	return nil
}
