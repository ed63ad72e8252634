package seo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/admitai/admitai-korea/internal/storage"
	"github.com/admitai/admitai-korea/internal/telemetry"
)

const snapshotLoadTimeout = 10 * time.Second

// ErrInvalidRows wraps the reason a set of ingested rows was rejected.
var ErrInvalidRows = errors.New("invalid parity rows")

// Store reads and writes the parity snapshot and keeps the decoded copy in
// memory until Invalidate is called or a new snapshot is saved.
type Store struct {
	backend storage.Storage
	key     string
	now     func() time.Time

	mu     sync.RWMutex
	cached *Snapshot
	gen    uint64

	loads singleflight.Group
}

// NewStore creates a Store for the snapshot object at key.
func NewStore(backend storage.Storage, key string) *Store {
	return &Store{backend: backend, key: key, now: time.Now}
}

// Key returns the object key of the snapshot.
func (s *Store) Key() string {
	return s.key
}

// Load returns the snapshot, reading it from storage on a cache miss.
// Concurrent misses share one read.
func (s *Store) Load(ctx context.Context) (*Snapshot, error) {
	s.mu.RLock()
	if s.cached != nil {
		snap := s.cached
		s.mu.RUnlock()
		return snap, nil
	}
	gen := s.gen
	s.mu.RUnlock()

	v, err, _ := s.loads.Do(s.key, func() (interface{}, error) {
		// The read is shared by every waiting caller and outlives any one of them.
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), snapshotLoadTimeout)
		defer cancel()

		data, err := s.backend.Get(loadCtx, s.key)
		if err != nil {
			return nil, fmt.Errorf("failed to read parity snapshot: %w", err)
		}
		var snap Snapshot
		if err := json.Unmarshal(data, &snap); err != nil {
			return nil, fmt.Errorf("failed to decode parity snapshot: %w", err)
		}

		s.mu.Lock()
		if s.gen == gen {
			s.cached = &snap
		}
		s.mu.Unlock()
		return &snap, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Snapshot), nil
}

// Report builds the parity report. A missing or unreadable snapshot yields
// an empty report rather than an error.
func (s *Store) Report(ctx context.Context) *Report {
	snap, err := s.Load(ctx)
	if err != nil {
		slog.Warn("serving empty parity report", "key", s.key, "error", err)
		return EmptyReport(s.now())
	}
	return BuildReport(snap)
}

// Save writes snap to storage and replaces the cached copy.
func (s *Store) Save(ctx context.Context, snap *Snapshot) error {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		telemetry.SEOParityIngestsTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("failed to encode parity snapshot: %w", err)
	}
	if _, err := s.backend.Put(ctx, s.key, data, "application/json"); err != nil {
		telemetry.SEOParityIngestsTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("failed to write parity snapshot: %w", err)
	}

	s.mu.Lock()
	s.gen++
	s.cached = snap
	s.mu.Unlock()

	telemetry.SEOParityIngestsTotal.WithLabelValues("ok").Inc()
	slog.Info("parity snapshot written", "key", s.key, "pages", len(snap.Pages))
	return nil
}

// Ingest groups rows into a new snapshot stamped now and saves it.
func (s *Store) Ingest(ctx context.Context, rows []Row, thresholds map[string]float64) (*Snapshot, error) {
	snap, err := BuildSnapshot(rows, thresholds, s.now())
	if err != nil {
		telemetry.SEOParityIngestsTotal.WithLabelValues("invalid").Inc()
		return nil, fmt.Errorf("%w: %v", ErrInvalidRows, err)
	}
	if err := s.Save(ctx, snap); err != nil {
		return nil, err
	}
	return snap, nil
}

// Invalidate drops the cached snapshot so the next Load reads storage again.
func (s *Store) Invalidate() {
	s.mu.Lock()
	s.gen++
	s.cached = nil
	s.mu.Unlock()
}

// Ping reports whether the storage backend answers. A missing snapshot
// still counts as reachable.
func (s *Store) Ping(ctx context.Context) error {
	if _, err := s.backend.Stat(ctx, s.key); err != nil && !isNotFound(err) {
		return err
	}
	return nil
}

func isNotFound(err error) bool {
	return errors.Is(err, storage.ErrNotFound)
}
