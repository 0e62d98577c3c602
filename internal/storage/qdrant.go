package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/qdrant/go-client/qdrant"
)

// IndexHit is one result of a vector index search.
type IndexHit struct {
	ID       uint64
	Distance float64
}

// QdrantIndex mirrors document embeddings into a Qdrant collection. Point
// ids are document ids and the collection uses Euclidean distance, so scores
// are directly comparable with pgvector's <-> operator.
type QdrantIndex struct {
	client     *qdrant.Client
	collection string
	dimension  int
}

// NewQdrantIndex connects to Qdrant over gRPC and waits for it to become healthy.
func NewQdrantIndex(ctx context.Context, host string, port int, collection string, dimension int) (*QdrantIndex, error) {
	client, err := qdrant.NewClient(&qdrant.Config{
		Host: host,
		Port: port,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}

	idx := &QdrantIndex{
		client:     client,
		collection: collection,
		dimension:  dimension,
	}

	if err := idx.healthCheckWithRetry(ctx); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: %v", ErrIndexUnreachable, err)
	}

	return idx, nil
}

// healthCheckWithRetry performs health check with exponential backoff.
// Initial interval 500ms, max interval 10s, max elapsed 30s.
func (x *QdrantIndex) healthCheckWithRetry(ctx context.Context) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = 30 * time.Second

	return backoff.Retry(func() error { return x.Health(ctx) }, backoff.WithContext(b, ctx))
}

// Health performs a single health check against Qdrant.
func (x *QdrantIndex) Health(ctx context.Context) error {
	result, err := x.client.HealthCheck(ctx)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	if result == nil || result.Title == "" {
		return fmt.Errorf("health check returned invalid response")
	}
	return nil
}

// EnsureCollection creates the collection if it does not exist. Idempotent.
func (x *QdrantIndex) EnsureCollection(ctx context.Context) error {
	exists, err := x.client.CollectionExists(ctx, x.collection)
	if err != nil {
		return fmt.Errorf("failed to check collection: %w", err)
	}
	if exists {
		return nil
	}

	err = x.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: x.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(x.dimension),
			Distance: qdrant.Distance_Euclid,
		}),
	})
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}
	return nil
}

// Reset drops and recreates the collection.
func (x *QdrantIndex) Reset(ctx context.Context) error {
	exists, err := x.client.CollectionExists(ctx, x.collection)
	if err != nil {
		return fmt.Errorf("failed to check collection: %w", err)
	}
	if exists {
		if err := x.client.DeleteCollection(ctx, x.collection); err != nil {
			return fmt.Errorf("failed to delete collection: %w", err)
		}
	}
	return x.EnsureCollection(ctx)
}

// Upsert stores vec under the document id.
func (x *QdrantIndex) Upsert(ctx context.Context, id uint64, vec []float32) error {
	if err := checkVector(vec, x.dimension, false); err != nil {
		return err
	}
	return x.UpsertBatch(ctx, []IndexPoint{{ID: id, Vector: vec}})
}

// IndexPoint is a document id with its embedding.
type IndexPoint struct {
	ID     uint64
	Vector []float32
}

// UpsertBatch stores several points in one request.
func (x *QdrantIndex) UpsertBatch(ctx context.Context, batch []IndexPoint) error {
	if len(batch) == 0 {
		return nil
	}

	points := make([]*qdrant.PointStruct, len(batch))
	for i, p := range batch {
		points[i] = &qdrant.PointStruct{
			Id:      qdrant.NewIDNum(p.ID),
			Vectors: qdrant.NewVectors(p.Vector...),
		}
	}

	_, err := x.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: x.collection,
		Wait:           qdrant.PtrOf(true),
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("failed to upsert %d points: %w", len(points), err)
	}
	return nil
}

// Delete removes the point of a document. Deleting a missing point is not an error.
func (x *QdrantIndex) Delete(ctx context.Context, id uint64) error {
	_, err := x.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: x.collection,
		Wait:           qdrant.PtrOf(true),
		Points:         qdrant.NewPointsSelector(qdrant.NewIDNum(id)),
	})
	if err != nil {
		return fmt.Errorf("failed to delete point %d: %w", id, err)
	}
	return nil
}

// Search returns up to k nearest points by ascending distance.
func (x *QdrantIndex) Search(ctx context.Context, vec []float32, k int) ([]IndexHit, error) {
	if err := checkVector(vec, x.dimension, false); err != nil {
		return nil, err
	}
	if k <= 0 {
		return nil, nil
	}

	results, err := x.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: x.collection,
		Query:          qdrant.NewQuery(vec...),
		Limit:          qdrant.PtrOf(uint64(k)),
		WithPayload:    qdrant.NewWithPayload(false),
		WithVectors:    qdrant.NewWithVectors(false),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query points: %w", err)
	}

	hits := make([]IndexHit, 0, len(results))
	for _, r := range results {
		hits = append(hits, IndexHit{
			ID:       r.GetId().GetNum(),
			Distance: float64(r.GetScore()),
		})
	}
	return hits, nil
}

// Count returns the number of indexed points.
func (x *QdrantIndex) Count(ctx context.Context) (uint64, error) {
	n, err := x.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: x.collection,
		Exact:          qdrant.PtrOf(true),
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count points: %w", err)
	}
	return n, nil
}

// Close closes the Qdrant client connection.
func (x *QdrantIndex) Close() error {
	if x.client != nil {
		return x.client.Close()
	}
	return nil
}
