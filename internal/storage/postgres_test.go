//go:build integration

package storage

import (
	"context"
	"errors"
	"os"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDimension = 3

// setupTestPostgres opens the database named by TEST_DATABASE_URL and
// empties the tables. Skips test if Postgres is not available.
func setupTestPostgres(t *testing.T) *PostgresStore {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s, err := OpenPostgres(ctx, PostgresOptions{DSN: dsn, Dimension: testDimension})
	if err != nil {
		t.Skipf("Postgres not available: %v", err)
	}
	require.NoError(t, s.db.Exec(`DROP TABLE IF EXISTS documents`).Error)
	require.NoError(t, s.Migrate(context.Background()))
	require.NoError(t, s.db.Exec(`TRUNCATE telegram_groups RESTART IDENTITY`).Error)

	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestPostgresStore_RoundTrip(t *testing.T) {
	s := setupTestPostgres(t)
	ctx := context.Background()

	meta := map[string]any{"source": "voice", "tag": uuid.NewString()}
	id, err := s.Insert(ctx, NewDocument{Title: "Report - chunk 0", Content: "body", Metadata: meta, Embedding: []float32{1, 2, 3}})
	require.NoError(t, err)

	got, err := s.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Report - chunk 0", got.Title)
	assert.Equal(t, "body", got.Content)
	assert.Equal(t, meta, got.Metadata)
	assert.Equal(t, []float32{1, 2, 3}, got.Embedding)

	_, err = s.Get(ctx, id+1000)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPostgresStore_UpdateDelete(t *testing.T) {
	s := setupTestPostgres(t)
	ctx := context.Background()

	id, err := s.Insert(ctx, NewDocument{Title: "old"})
	require.NoError(t, err)

	applied, err := s.Update(ctx, id, DocumentUpdate{})
	require.NoError(t, err)
	assert.False(t, applied)

	title := "new"
	applied, err = s.Update(ctx, id, DocumentUpdate{Title: &title, Metadata: map[string]any{"k": "v"}})
	require.NoError(t, err)
	assert.True(t, applied)

	got, err := s.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "new", got.Title)
	assert.Equal(t, map[string]any{"k": "v"}, got.Metadata)

	existed, err := s.Delete(ctx, id)
	require.NoError(t, err)
	assert.True(t, existed)

	existed, err = s.Delete(ctx, id)
	require.NoError(t, err)
	assert.False(t, existed)
}

func TestPostgresStore_NearestAndList(t *testing.T) {
	s := setupTestPostgres(t)
	ctx := context.Background()

	far, err := s.Insert(ctx, NewDocument{Title: "far", Embedding: []float32{9, 9, 9}})
	require.NoError(t, err)
	_, err = s.Insert(ctx, NewDocument{Title: "plain"})
	require.NoError(t, err)
	near, err := s.Insert(ctx, NewDocument{Title: "near", Embedding: []float32{0, 0, 1}})
	require.NoError(t, err)

	res, err := s.Nearest(ctx, []float32{0, 0, 0}, 5)
	require.NoError(t, err)
	require.Len(t, res, 2)
	assert.Equal(t, near, res[0].ID)
	assert.InDelta(t, 1.0, res[0].Distance, 1e-6)
	assert.Equal(t, far, res[1].ID)

	_, err = s.Nearest(ctx, []float32{0, 0}, 5)
	assert.ErrorIs(t, err, ErrDimensionMismatch)

	docs, err := s.List(ctx, 2)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, near, docs[0].ID)
}

func TestPostgresStore_MigrateRejectsOtherDimension(t *testing.T) {
	s := setupTestPostgres(t)

	other := &PostgresStore{db: s.db, dimension: testDimension + 1, logger: s.logger}
	assert.ErrorIs(t, other.Migrate(context.Background()), ErrDimensionMismatch)
}

func TestPostgresStore_Groups(t *testing.T) {
	s := setupTestPostgres(t)
	ctx := context.Background()

	id, err := s.AddGroup(ctx, NewGroup{ExternalID: -1001, Name: "Ops", Metadata: map[string]any{"lang": "en"}})
	require.NoError(t, err)

	groups, err := s.ListGroups(ctx, 10)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, "Ops", groups[0].Name)
	assert.Equal(t, int64(-1001), groups[0].ExternalID)

	deleted, err := s.DeleteGroup(ctx, id)
	require.NoError(t, err)
	assert.True(t, deleted)
}

// memoryIndex is an in-process vectorIndex that can be told to fail writes.
type memoryIndex struct {
	points     map[uint64][]float32
	failWrites bool
	searches   int
}

func newMemoryIndex() *memoryIndex { return &memoryIndex{points: map[uint64][]float32{}} }

func (m *memoryIndex) EnsureCollection(context.Context) error { return nil }

func (m *memoryIndex) Reset(context.Context) error {
	m.points = map[uint64][]float32{}
	return nil
}

func (m *memoryIndex) Upsert(_ context.Context, id uint64, vec []float32) error {
	if m.failWrites {
		return errors.New("index write refused")
	}
	m.points[id] = vec
	return nil
}

func (m *memoryIndex) UpsertBatch(ctx context.Context, batch []IndexPoint) error {
	for _, p := range batch {
		if err := m.Upsert(ctx, p.ID, p.Vector); err != nil {
			return err
		}
	}
	return nil
}

func (m *memoryIndex) Delete(_ context.Context, id uint64) error {
	if m.failWrites {
		return errors.New("index write refused")
	}
	delete(m.points, id)
	return nil
}

func (m *memoryIndex) Search(_ context.Context, vec []float32, k int) ([]IndexHit, error) {
	m.searches++
	hits := make([]IndexHit, 0, len(m.points))
	for id, p := range m.points {
		hits = append(hits, IndexHit{ID: id, Distance: l2(vec, p)})
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Distance != hits[j].Distance {
			return hits[i].Distance < hits[j].Distance
		}
		return hits[i].ID < hits[j].ID
	})
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

func (m *memoryIndex) Close() error { return nil }

func TestPostgresStore_FailedMirrorKeepsRowsSearchable(t *testing.T) {
	s := setupTestPostgres(t)
	ctx := context.Background()

	idx := newMemoryIndex()
	idx.failWrites = true
	s.index = idx

	far, err := s.Insert(ctx, NewDocument{Title: "far", Embedding: []float32{9, 9, 9}})
	require.NoError(t, err)
	near, err := s.Insert(ctx, NewDocument{Title: "near", Embedding: []float32{0, 0, 1}})
	require.NoError(t, err)
	assert.Empty(t, idx.points)

	res, err := s.Nearest(ctx, []float32{0, 0, 0}, 2)
	require.NoError(t, err)
	require.Len(t, res, 2)
	assert.Equal(t, near, res[0].ID)
	assert.Equal(t, far, res[1].ID)
	assert.Zero(t, idx.searches, "an out-of-sync index is not consulted")

	idx.failWrites = false
	n, err := s.Reindex(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Len(t, idx.points, 2)

	res, err = s.Nearest(ctx, []float32{0, 0, 0}, 2)
	require.NoError(t, err)
	require.Len(t, res, 2)
	assert.Equal(t, near, res[0].ID)
	assert.Equal(t, 1, idx.searches)
}

func TestPostgresStore_StaleIndexHitsAreBackfilled(t *testing.T) {
	s := setupTestPostgres(t)
	ctx := context.Background()

	far, err := s.Insert(ctx, NewDocument{Title: "far", Embedding: []float32{9, 9, 9}})
	require.NoError(t, err)
	near, err := s.Insert(ctx, NewDocument{Title: "near", Embedding: []float32{0, 0, 1}})
	require.NoError(t, err)

	idx := newMemoryIndex()
	idx.points[near] = []float32{0, 0, 1}
	idx.points[near+1000] = []float32{0, 0, 0}
	s.index = idx

	res, err := s.Nearest(ctx, []float32{0, 0, 0}, 2)
	require.NoError(t, err)
	assert.Equal(t, 1, idx.searches)
	require.Len(t, res, 2)
	assert.Equal(t, near, res[0].ID)
	assert.Equal(t, far, res[1].ID)
}
