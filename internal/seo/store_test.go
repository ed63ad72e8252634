package seo

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/admitai/admitai-korea/internal/storage"
)

// memBackend is an in-memory storage.Storage that counts reads.
type memBackend struct {
	mu      sync.Mutex
	objects map[string][]byte
	gets    int
	putErr  error
}

func newMemBackend() *memBackend {
	return &memBackend{objects: map[string][]byte{}}
}

func (m *memBackend) Put(_ context.Context, key string, data []byte, _ string) (*storage.ObjectInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.putErr != nil {
		return nil, m.putErr
	}
	m.objects[key] = append([]byte(nil), data...)
	return &storage.ObjectInfo{Key: key, Size: int64(len(data))}, nil
}

func (m *memBackend) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gets++
	data, ok := m.objects[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return data, nil
}

func (m *memBackend) Stat(_ context.Context, key string) (*storage.ObjectInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.objects[key]; !ok {
		return nil, storage.ErrNotFound
	}
	return &storage.ObjectInfo{Key: key}, nil
}

func (m *memBackend) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

func (m *memBackend) getCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.gets
}

func newTestStore(b storage.Storage) *Store {
	s := NewStore(b, "seo/sample-parity.json")
	s.now = func() time.Time { return fixedNow }
	return s
}

func TestStore_ReportMissingSnapshotFallsBack(t *testing.T) {
	s := newTestStore(newMemBackend())

	rep := s.Report(context.Background())
	assert.Equal(t, fixedNow, rep.GeneratedAt)
	assert.Equal(t, []string{"7d", "28d"}, rep.Windows)
	assert.Empty(t, rep.Pages)
	assert.NotNil(t, rep.ParityThresholds)
	assert.Empty(t, rep.ParityThresholds)
}

func TestStore_ReportCorruptSnapshotFallsBack(t *testing.T) {
	b := newMemBackend()
	b.objects["seo/sample-parity.json"] = []byte("{not json")
	s := newTestStore(b)

	_, err := s.Load(context.Background())
	require.Error(t, err)

	rep := s.Report(context.Background())
	assert.Empty(t, rep.Pages)
}

func TestStore_LoadCachesUntilInvalidated(t *testing.T) {
	b := newMemBackend()
	b.objects["seo/sample-parity.json"] = []byte(`{"generatedAt":"2025-01-01T00:00:00Z","pages":[{"path":"/","google":{"impressions":10,"clicks":1,"ctr":0.1},"bing":null,"naver":null}],"parityThresholds":{"naverToGoogleImpressions":0.6}}`)
	s := newTestStore(b)
	ctx := context.Background()

	snap, err := s.Load(ctx)
	require.NoError(t, err)
	require.Len(t, snap.Pages, 1)
	assert.Equal(t, int64(10), snap.Pages[0].Google.Impressions)

	_, err = s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, b.getCount(), "second Load should be served from cache")

	s.Invalidate()
	_, err = s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, b.getCount())
}

// ctxBackend fails reads whose context is already done and records the
// deadline each read saw.
type ctxBackend struct {
	*memBackend
	deadline time.Time
}

func (b *ctxBackend) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b.deadline, _ = ctx.Deadline()
	return b.memBackend.Get(ctx, key)
}

func TestStore_LoadIgnoresCallerCancellation(t *testing.T) {
	b := &ctxBackend{memBackend: newMemBackend()}
	b.objects["seo/sample-parity.json"] = []byte(`{"generatedAt":"2025-01-01T00:00:00Z","pages":[]}`)
	s := newTestStore(b)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	snap, err := s.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.False(t, b.deadline.IsZero(), "shared read should carry its own timeout")
	assert.WithinDuration(t, time.Now().Add(snapshotLoadTimeout), b.deadline, 5*time.Second)

	// The snapshot is cached for the callers that are still waiting.
	_, err = s.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, b.getCount())
}

func TestStore_IngestWritesAndCaches(t *testing.T) {
	b := newMemBackend()
	s := newTestStore(b)
	ctx := context.Background()

	snap, err := s.Ingest(ctx, []Row{
		{Path: "/", Engine: "google", Impressions: 100, Clicks: 10},
		{Path: "/", Engine: "naver", Impressions: 50, Clicks: 5},
	}, map[string]float64{NaverToGoogleImpressions: 0.6})
	require.NoError(t, err)
	assert.Equal(t, fixedNow, snap.GeneratedAt)
	assert.Contains(t, string(b.objects["seo/sample-parity.json"]), `"naverToGoogleImpressions": 0.6`)

	rep := s.Report(ctx)
	require.Len(t, rep.Pages, 1)
	assert.Equal(t, 0.5, rep.Pages[0].NaverToGoogleImpressions)
	assert.True(t, rep.Pages[0].BelowThreshold[NaverToGoogleImpressions])
	assert.Equal(t, 0, b.getCount(), "report after ingest should use the saved snapshot")
}

func TestStore_IngestRejectsInvalidRows(t *testing.T) {
	b := newMemBackend()
	s := newTestStore(b)

	_, err := s.Ingest(context.Background(), []Row{{Path: "/", Engine: "yahoo"}}, nil)
	require.ErrorIs(t, err, ErrInvalidRows)
	assert.Empty(t, b.objects)
}

func TestStore_SaveError(t *testing.T) {
	b := newMemBackend()
	b.putErr = errors.New("bucket unavailable")
	s := newTestStore(b)

	err := s.Save(context.Background(), &Snapshot{GeneratedAt: fixedNow, Pages: []Page{}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bucket unavailable")
}

func TestStore_Ping(t *testing.T) {
	b := newMemBackend()
	s := newTestStore(b)
	assert.NoError(t, s.Ping(context.Background()), "missing snapshot still means storage is reachable")
}
