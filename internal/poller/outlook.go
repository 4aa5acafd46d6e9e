package poller

import (
	"context"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/wxrouter/wxrouter/config"
	"github.com/wxrouter/wxrouter/internal/feed"
	"github.com/wxrouter/wxrouter/internal/logger"
	"github.com/wxrouter/wxrouter/internal/metrics"
	"github.com/wxrouter/wxrouter/internal/models"
	"github.com/wxrouter/wxrouter/internal/normalize"
)

// statusSource names the ingest status row the outlook poller maintains.
const statusSource = "spc"

// ProductFetcher is the feed surface the outlook poller needs.
type ProductFetcher interface {
	FetchProduct(ctx context.Context, p feed.Product) (*feed.FeatureCollection, []byte, error)
}

// OutlookStore is the persistence surface the outlook poller needs.
type OutlookStore interface {
	UpsertOutlookFeature(ctx context.Context, kind models.OutlookKind, f *models.OutlookFeature) error
	OutlookCounts(ctx context.Context) (convective, fire int64, err error)
	UpsertIngestStatus(ctx context.Context, st models.IngestStatus) error
}

// OutlookPoller walks the fixed SPC product list sequentially, upserting
// one row per feature, then records an ingest status row. With no interval
// configured it aligns passes to the top of each hour, matching issuance
// schedules instead of process start time.
type OutlookPoller struct {
	fetcher  ProductFetcher
	store    OutlookStore
	cfg      config.OutlookConfig
	clock    clockwork.Clock
	products []feed.Product
}

// NewOutlookPoller creates an outlook poller using the real clock.
func NewOutlookPoller(fetcher ProductFetcher, st OutlookStore, cfg config.OutlookConfig) *OutlookPoller {
	return NewOutlookPollerWithClock(fetcher, st, cfg, clockwork.NewRealClock())
}

// NewOutlookPollerWithClock is NewOutlookPoller with an injected clock,
// for tests.
func NewOutlookPollerWithClock(fetcher ProductFetcher, st OutlookStore, cfg config.OutlookConfig, clock clockwork.Clock) *OutlookPoller {
	return &OutlookPoller{
		fetcher:  fetcher,
		store:    st,
		cfg:      cfg,
		clock:    clock,
		products: feed.Products(),
	}
}

// Run performs one pass immediately, then either returns (once mode) or
// loops until ctx is cancelled.
func (p *OutlookPoller) Run(ctx context.Context) error {
	logger.Info("Outlook poller starting",
		"products", len(p.products), "once", p.cfg.Once, "interval", p.cfg.Interval)

	p.pass(ctx)
	if p.cfg.Once {
		logger.Info("Outlook poller done")
		return nil
	}

	for {
		wait := p.cfg.Interval
		if wait <= 0 {
			wait = untilNextHour(p.clock.Now())
			logger.Info("Outlook poller sleeping until top of hour", "wait", wait.Round(time.Second))
		}

		select {
		case <-ctx.Done():
			logger.Info("Outlook poller stopping")
			return ctx.Err()
		case <-p.clock.After(wait):
			p.pass(ctx)
		}
	}
}

// pass fetches every product once. Product and feature failures are
// isolated; the pass always finishes and always tries to record status.
func (p *OutlookPoller) pass(ctx context.Context) {
	start := p.clock.Now()
	var failures int

	for _, product := range p.products {
		if ctx.Err() != nil {
			return
		}
		if err := p.ingestProduct(ctx, product); err != nil {
			logger.Error("Outlook product failed", "product", product.Name, "error", err)
			failures++
		}
	}

	status := "success"
	if failures > 0 {
		status = "error"
	}
	metrics.RecordPollCycle(statusSource, status, p.clock.Since(start))

	p.recordStatus(ctx, failures)

	logger.Info("Outlook pass complete",
		"products", len(p.products),
		"failures", failures,
		"duration_ms", p.clock.Since(start).Milliseconds(),
	)
}

func (p *OutlookPoller) ingestProduct(ctx context.Context, product feed.Product) error {
	fc, raw, err := p.fetcher.FetchProduct(ctx, product)
	if err != nil {
		metrics.RecordFetch(statusSource, "error")
		return err
	}
	metrics.RecordFetch(statusSource, "success")

	table := product.Kind.Table()
	features := normalize.OutlookFeatures(product, raw, fc, p.clock.Now())
	var failed int
	for i := range features {
		f := &features[i]
		if err := p.store.UpsertOutlookFeature(ctx, product.Kind, f); err != nil {
			metrics.RecordUpsertError(table)
			logger.Error("Outlook feature upsert failed",
				"product", product.Name, "key", f.Key(), "error", err)
			failed++
			continue
		}
		metrics.RecordFeatureUpserted(table)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d features failed", failed, len(features))
	}
	return nil
}

// recordStatus upserts the spc status row. Best effort: a status write
// failure never fails the pass.
func (p *OutlookPoller) recordStatus(ctx context.Context, failures int) {
	convective, fire, err := p.store.OutlookCounts(ctx)
	if err != nil {
		logger.Warn("Outlook count query failed", "error", err)
	}

	message := "ok"
	if failures > 0 {
		message = fmt.Sprintf("%d products failed", failures)
	}

	st := models.IngestStatus{
		Source:          statusSource,
		LastRun:         p.clock.Now().UTC(),
		LastSuccess:     failures == 0,
		ConvectiveCount: convective,
		FireCount:       fire,
		Message:         message,
	}
	if err := p.store.UpsertIngestStatus(ctx, st); err != nil {
		logger.Warn("Ingest status write failed", "error", err)
	}
}

// untilNextHour returns the wait until the next top-of-hour boundary.
func untilNextHour(now time.Time) time.Duration {
	next := now.UTC().Truncate(time.Hour).Add(time.Hour)
	return next.Sub(now.UTC())
}
