package storage

import (
	"cmp"
	"context"
	"fmt"
	"math"
	"slices"
	"sync"
	"time"
)

// MemoryStore is an in-process Store. Distances are computed by full scan.
type MemoryStore struct {
	mu        sync.RWMutex
	dimension int
	nextDocID uint64
	docs      map[uint64]*Document
	nextGrpID uint64
	groups    map[uint64]*Group
	now       func() time.Time
}

// NewMemoryStore creates an empty store for vectors of the given dimension.
func NewMemoryStore(dimension int) *MemoryStore {
	return &MemoryStore{
		dimension: dimension,
		docs:      make(map[uint64]*Document),
		groups:    make(map[uint64]*Group),
		now:       time.Now,
	}
}

func (s *MemoryStore) Insert(_ context.Context, doc NewDocument) (uint64, error) {
	if err := checkVector(doc.Embedding, s.dimension, true); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextDocID++
	id := s.nextDocID
	s.docs[id] = &Document{
		ID:        id,
		Title:     doc.Title,
		Content:   doc.Content,
		Metadata:  cloneMetadata(doc.Metadata),
		Embedding: slices.Clone(doc.Embedding),
		CreatedAt: s.now(),
	}
	return id, nil
}

func (s *MemoryStore) Get(_ context.Context, id uint64) (*Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.docs[id]
	if !ok {
		return nil, fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	out := copyDocument(d)
	return &out, nil
}

func (s *MemoryStore) Update(_ context.Context, id uint64, upd DocumentUpdate) (bool, error) {
	if upd.IsEmpty() {
		return false, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.docs[id]
	if !ok {
		return false, nil
	}
	if upd.Title != nil {
		d.Title = *upd.Title
	}
	if upd.Content != nil {
		d.Content = *upd.Content
	}
	if upd.Metadata != nil {
		d.Metadata = cloneMetadata(upd.Metadata)
	}
	return true, nil
}

func (s *MemoryStore) Delete(_ context.Context, id uint64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.docs[id]; !ok {
		return false, nil
	}
	delete(s.docs, id)
	return true, nil
}

func (s *MemoryStore) List(_ context.Context, limit int) ([]Document, error) {
	if limit <= 0 {
		return []Document{}, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Document, 0, len(s.docs))
	for _, d := range s.docs {
		out = append(out, copyDocument(d))
	}
	slices.SortFunc(out, func(a, b Document) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) Nearest(_ context.Context, vec []float32, k int) ([]ScoredDocument, error) {
	if err := checkVector(vec, s.dimension, false); err != nil {
		return nil, err
	}
	if k <= 0 {
		return []ScoredDocument{}, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]ScoredDocument, 0, len(s.docs))
	for _, d := range s.docs {
		if !d.HasEmbedding() {
			continue
		}
		out = append(out, ScoredDocument{Document: copyDocument(d), Distance: l2(vec, d.Embedding)})
	}
	sortScored(out)
	if len(out) > k {
		out = out[:k]
	}
	return out, nil
}

func (s *MemoryStore) Ping(context.Context) error { return nil }

func (s *MemoryStore) Close() error { return nil }

func (s *MemoryStore) AddGroup(_ context.Context, g NewGroup) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextGrpID++
	id := s.nextGrpID
	s.groups[id] = &Group{
		ID:          id,
		ExternalID:  g.ExternalID,
		Name:        g.Name,
		Description: g.Description,
		Metadata:    cloneMetadata(g.Metadata),
		CreatedAt:   s.now(),
	}
	return id, nil
}

func (s *MemoryStore) ListGroups(_ context.Context, limit int) ([]Group, error) {
	if limit <= 0 {
		return []Group{}, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Group, 0, len(s.groups))
	for _, g := range s.groups {
		c := *g
		c.Metadata = cloneMetadata(g.Metadata)
		out = append(out, c)
	}
	slices.SortFunc(out, func(a, b Group) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) DeleteGroup(_ context.Context, id uint64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.groups[id]; !ok {
		return false, nil
	}
	delete(s.groups, id)
	return true, nil
}

func copyDocument(d *Document) Document {
	out := *d
	out.Metadata = cloneMetadata(d.Metadata)
	out.Embedding = slices.Clone(d.Embedding)
	return out
}

// checkVector validates vec against dim. An absent vector is accepted only
// when optional is set.
func checkVector(vec []float32, dim int, optional bool) error {
	if len(vec) == 0 {
		if optional {
			return nil
		}
		return fmt.Errorf("%w: empty vector", ErrDimensionMismatch)
	}
	if dim > 0 && len(vec) != dim {
		return fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(vec), dim)
	}
	return nil
}

// sortScored orders by ascending distance, then ascending id.
func sortScored(docs []ScoredDocument) {
	slices.SortStableFunc(docs, func(a, b ScoredDocument) int {
		if c := cmp.Compare(a.Distance, b.Distance); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}

func l2(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}
