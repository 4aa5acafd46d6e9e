package store

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/wxrouter/wxrouter/internal/models"
)

// InMemoryStore implements Store with maps, used when no database is
// configured and in tests. It mirrors the Postgres conflict semantics:
// records merge by natural key and a record without geometry keeps the
// stored one.
type InMemoryStore struct {
	mu       sync.RWMutex
	alerts   map[string]models.Alert
	outlooks map[string]models.OutlookFeature
	status   map[string]models.IngestStatus
	seq      int
}

// NewInMemoryStore creates an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		alerts:   make(map[string]models.Alert),
		outlooks: make(map[string]models.OutlookFeature),
		status:   make(map[string]models.IngestStatus),
	}
}

// UpsertAlerts stores alerts keyed by ID.
func (s *InMemoryStore) UpsertAlerts(ctx context.Context, alerts []models.Alert) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, a := range alerts {
		if prev, ok := s.alerts[a.ID]; ok && !a.HasGeometry() {
			a.Geometry = prev.Geometry
		}
		s.alerts[a.ID] = a
	}
	return nil
}

// QueryAlerts filters stored alerts, newest sent first.
func (s *InMemoryStore) QueryAlerts(ctx context.Context, q models.AlertQuery) ([]models.Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []models.Alert
	for _, a := range s.alerts {
		if q.Matches(a) {
			result = append(result, a)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		ti, tj := result[i].Sent, result[j].Sent
		switch {
		case ti == nil:
			return false
		case tj == nil:
			return true
		default:
			return ti.After(*tj)
		}
	})

	if q.Offset >= len(result) {
		result = nil
	} else if q.Offset > 0 {
		result = result[q.Offset:]
	}
	if q.Limit > 0 && q.Limit < len(result) {
		result = result[:q.Limit]
	}
	return result, nil
}

// GetAlert returns one alert, (nil, nil) when absent.
func (s *InMemoryStore) GetAlert(ctx context.Context, id string) (*models.Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if a, ok := s.alerts[id]; ok {
		return &a, nil
	}
	return nil, nil
}

// UpsertOutlookFeature merges a feature by its natural key. Features with
// no issue timestamp never merge; every fetch lands a fresh row, matching
// the unique-index-with-NULLs behavior of the Postgres store.
func (s *InMemoryStore) UpsertOutlookFeature(ctx context.Context, kind models.OutlookKind, f *models.OutlookFeature) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := *f
	if rec.Issue == nil {
		s.seq++
		s.outlooks[kind.Table()+"/"+rec.Key()+"/#"+strconv.Itoa(s.seq)] = rec
		return nil
	}

	key := kind.Table() + "/" + rec.Key()
	if prev, ok := s.outlooks[key]; ok && !rec.HasGeometry() {
		rec.Geometry = prev.Geometry
	}
	s.outlooks[key] = rec
	return nil
}

// OutlookCounts returns the total stored row counts for the two outlook
// kinds.
func (s *InMemoryStore) OutlookCounts(ctx context.Context) (int64, int64, error) {
	return int64(len(s.OutlookFeatures(models.ConvectiveOutlook))),
		int64(len(s.OutlookFeatures(models.FireOutlook))), nil
}

// UpsertIngestStatus stores the status row for a source. last_run is
// second-truncated, same as the Postgres row.
func (s *InMemoryStore) UpsertIngestStatus(ctx context.Context, st models.IngestStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st.LastRun = st.LastRun.Truncate(time.Second)
	st.UpdatedAt = time.Now().UTC()
	s.status[st.Source] = st
	return nil
}

// GetIngestStatus returns the status row for a source, (nil, nil) when the
// source has never run.
func (s *InMemoryStore) GetIngestStatus(ctx context.Context, source string) (*models.IngestStatus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if st, ok := s.status[source]; ok {
		return &st, nil
	}
	return nil, nil
}

// OutlookFeatures returns every stored feature for a kind, for tests and
// diagnostics. Order is unspecified.
func (s *InMemoryStore) OutlookFeatures(kind models.OutlookKind) []models.OutlookFeature {
	s.mu.RLock()
	defer s.mu.RUnlock()

	prefix := kind.Table() + "/"
	var out []models.OutlookFeature
	for k, f := range s.outlooks {
		if len(k) > len(prefix) && k[:len(prefix)] == prefix {
			out = append(out, f)
		}
	}
	return out
}

// Health always succeeds for the in-memory store.
func (s *InMemoryStore) Health(ctx context.Context) error {
	return nil
}
