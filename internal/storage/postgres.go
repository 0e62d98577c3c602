package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/bull/voice-agent/internal/config"
)

// hnswMaxDimension is the largest vector pgvector can build an HNSW index for.
const hnswMaxDimension = 2000

type documentRow struct {
	ID        uint64            `gorm:"primaryKey;autoIncrement"`
	Title     string            `gorm:"type:text;not null;default:''"`
	Content   string            `gorm:"type:text;not null;default:''"`
	Metadata  datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'"`
	Embedding *pgvector.Vector
	CreatedAt time.Time `gorm:"not null;default:now()"`
}

func (documentRow) TableName() string { return "documents" }

func (r *documentRow) toDocument() Document {
	d := Document{
		ID:        r.ID,
		Title:     r.Title,
		Content:   r.Content,
		Metadata:  cloneMetadata(r.Metadata),
		CreatedAt: r.CreatedAt,
	}
	if r.Embedding != nil {
		d.Embedding = r.Embedding.Slice()
	}
	return d
}

type scoredRow struct {
	documentRow
	Distance float64
}

type groupRow struct {
	ID          uint64            `gorm:"primaryKey;autoIncrement"`
	ExternalID  int64             `gorm:"index"`
	Name        string            `gorm:"type:text;not null"`
	Description string            `gorm:"type:text"`
	Metadata    datatypes.JSONMap `gorm:"type:jsonb"`
	CreatedAt   time.Time         `gorm:"not null;default:now();index"`
}

func (groupRow) TableName() string { return "telegram_groups" }

func (r *groupRow) toGroup() Group {
	return Group{
		ID:          r.ID,
		ExternalID:  r.ExternalID,
		Name:        r.Name,
		Description: r.Description,
		Metadata:    cloneMetadata(r.Metadata),
		CreatedAt:   r.CreatedAt,
	}
}

// vectorIndex is the side-car index PostgresStore mirrors embeddings into.
type vectorIndex interface {
	EnsureCollection(ctx context.Context) error
	Reset(ctx context.Context) error
	Upsert(ctx context.Context, id uint64, vec []float32) error
	UpsertBatch(ctx context.Context, batch []IndexPoint) error
	Delete(ctx context.Context, id uint64) error
	Search(ctx context.Context, vec []float32, k int) ([]IndexHit, error)
	Close() error
}

// PostgresOptions configures OpenPostgres.
type PostgresOptions struct {
	DSN       string
	Dimension int
	Logger    *slog.Logger

	// Index, when set, receives a copy of every embedding and serves Nearest
	// while it is in sync with the documents table.
	Index *QdrantIndex
}

// PostgresStore is a Store backed by PostgreSQL with the pgvector extension.
type PostgresStore struct {
	db        *gorm.DB
	dimension int
	index     vectorIndex
	logger    *slog.Logger

	// indexStale is set when a mirror write fails and cleared by Reindex.
	indexStale atomic.Bool
}

// OpenPostgres connects to the database and waits until it answers a ping.
func OpenPostgres(ctx context.Context, opts PostgresOptions) (*PostgresStore, error) {
	if opts.DSN == "" {
		return nil, fmt.Errorf("%w: DATABASE_URL not set", config.ErrConfiguration)
	}
	if opts.Dimension <= 0 {
		return nil, fmt.Errorf("%w: embedding dimension must be positive", config.ErrConfiguration)
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	db, err := gorm.Open(postgres.Open(opts.DSN), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: open postgres: %w", ErrStore, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("%w: get sql db: %w", ErrStore, err)
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(50)
	sqlDB.SetConnMaxLifetime(time.Hour)
	sqlDB.SetConnMaxIdleTime(30 * time.Minute)

	s := &PostgresStore{
		db:        db,
		dimension: opts.Dimension,
		logger:    opts.Logger,
	}
	if opts.Index != nil {
		s.index = opts.Index
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = 30 * time.Second

	if err := backoff.Retry(func() error { return s.Ping(ctx) }, backoff.WithContext(b, ctx)); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}

	return s, nil
}

// Migrate creates the vector extension, the tables and their indexes. It is
// idempotent and fails with ErrDimensionMismatch when an existing documents
// table was created for another dimension.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	db := s.db.WithContext(ctx)

	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS documents (
	id BIGSERIAL PRIMARY KEY,
	title TEXT NOT NULL DEFAULT '',
	content TEXT NOT NULL DEFAULT '',
	metadata JSONB NOT NULL DEFAULT '{}',
	embedding vector(%d),
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`, s.dimension),
		`CREATE INDEX IF NOT EXISTS documents_created_at_idx ON documents (created_at DESC, id DESC)`,
	}
	if s.dimension <= hnswMaxDimension {
		stmts = append(stmts, `CREATE INDEX IF NOT EXISTS documents_embedding_idx ON documents USING hnsw (embedding vector_l2_ops)`)
	} else {
		s.logger.Warn("embedding dimension too large for an HNSW index, nearest queries will scan", "dimension", s.dimension)
	}

	for _, stmt := range stmts {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("%w: migrate: %w", ErrStore, err)
		}
	}

	var typmod int
	err := db.Raw(`SELECT atttypmod FROM pg_attribute
WHERE attrelid = 'documents'::regclass AND attname = 'embedding'`).Scan(&typmod).Error
	if err != nil {
		return fmt.Errorf("%w: inspect embedding column: %w", ErrStore, err)
	}
	if typmod > 0 && typmod != s.dimension {
		return fmt.Errorf("%w: documents.embedding is vector(%d), configured %d", ErrDimensionMismatch, typmod, s.dimension)
	}

	if err := db.AutoMigrate(&groupRow{}); err != nil {
		return fmt.Errorf("%w: migrate groups: %w", ErrStore, err)
	}

	if s.index != nil {
		if err := s.index.EnsureCollection(ctx); err != nil {
			return fmt.Errorf("%w: %w", ErrIndexUnreachable, err)
		}
	}

	s.logger.Info("database migrated", "dimension", s.dimension, "index", s.index != nil)
	return nil
}

func (s *PostgresStore) Insert(ctx context.Context, doc NewDocument) (uint64, error) {
	if err := checkVector(doc.Embedding, s.dimension, true); err != nil {
		return 0, err
	}

	row := documentRow{
		Title:    doc.Title,
		Content:  doc.Content,
		Metadata: datatypes.JSONMap(cloneMetadata(doc.Metadata)),
	}
	if len(doc.Embedding) > 0 {
		v := pgvector.NewVector(doc.Embedding)
		row.Embedding = &v
	}

	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return 0, fmt.Errorf("%w: insert document: %w", ErrStore, err)
	}

	if s.index != nil && row.Embedding != nil {
		if err := s.index.Upsert(ctx, row.ID, doc.Embedding); err != nil {
			s.indexStale.Store(true)
			s.logger.Error("failed to mirror embedding into index, nearest queries use pgvector until reindex", "id", row.ID, "error", err)
		}
	}
	return row.ID, nil
}

func (s *PostgresStore) Get(ctx context.Context, id uint64) (*Document, error) {
	var row documentRow
	err := s.db.WithContext(ctx).Where("id = ?", id).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get document %d: %w", ErrStore, id, err)
	}
	d := row.toDocument()
	return &d, nil
}

func (s *PostgresStore) Update(ctx context.Context, id uint64, upd DocumentUpdate) (bool, error) {
	if upd.IsEmpty() {
		return false, nil
	}

	fields := map[string]any{}
	if upd.Title != nil {
		fields["title"] = *upd.Title
	}
	if upd.Content != nil {
		fields["content"] = *upd.Content
	}
	if upd.Metadata != nil {
		fields["metadata"] = datatypes.JSONMap(cloneMetadata(upd.Metadata))
	}

	res := s.db.WithContext(ctx).Model(&documentRow{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return false, fmt.Errorf("%w: update document %d: %w", ErrStore, id, res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (s *PostgresStore) Delete(ctx context.Context, id uint64) (bool, error) {
	res := s.db.WithContext(ctx).Where("id = ?", id).Delete(&documentRow{})
	if res.Error != nil {
		return false, fmt.Errorf("%w: delete document %d: %w", ErrStore, id, res.Error)
	}
	if res.RowsAffected == 0 {
		return false, nil
	}

	if s.index != nil {
		if err := s.index.Delete(ctx, id); err != nil {
			s.indexStale.Store(true)
			s.logger.Error("failed to remove embedding from index, nearest queries use pgvector until reindex", "id", id, "error", err)
		}
	}
	return true, nil
}

func (s *PostgresStore) List(ctx context.Context, limit int) ([]Document, error) {
	if limit <= 0 {
		return []Document{}, nil
	}

	var rows []documentRow
	err := s.db.WithContext(ctx).Order("created_at DESC, id DESC").Limit(limit).Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("%w: list documents: %w", ErrStore, err)
	}

	out := make([]Document, len(rows))
	for i := range rows {
		out[i] = rows[i].toDocument()
	}
	return out, nil
}

// Nearest ranks by the side-car index when one is configured and in sync,
// and by pgvector's <-> operator otherwise. A failed index search or an
// answer with fewer than k live documents is replaced by the pgvector answer.
func (s *PostgresStore) Nearest(ctx context.Context, vec []float32, k int) ([]ScoredDocument, error) {
	if err := checkVector(vec, s.dimension, false); err != nil {
		return nil, err
	}
	if k <= 0 {
		return []ScoredDocument{}, nil
	}
	if s.index != nil && !s.indexStale.Load() {
		out, err := s.nearestFromIndex(ctx, vec, k)
		if err == nil && len(out) == k {
			return out, nil
		}
		if err != nil {
			s.logger.Warn("index search failed, using pgvector", "error", err)
		}
	}
	return s.nearestSQL(ctx, vec, k)
}

func (s *PostgresStore) nearestSQL(ctx context.Context, vec []float32, k int) ([]ScoredDocument, error) {
	var rows []scoredRow
	err := s.db.WithContext(ctx).Raw(`SELECT id, title, content, metadata, embedding, created_at, embedding <-> ? AS distance
FROM documents
WHERE embedding IS NOT NULL
ORDER BY distance, id
LIMIT ?`, pgvector.NewVector(vec), k).Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("%w: nearest: %w", ErrStore, err)
	}

	out := make([]ScoredDocument, len(rows))
	for i := range rows {
		out[i] = ScoredDocument{Document: rows[i].toDocument(), Distance: rows[i].Distance}
	}
	return out, nil
}

// nearestFromIndex loads the rows behind the index hits. Ids the index
// returns but the table no longer holds are skipped.
func (s *PostgresStore) nearestFromIndex(ctx context.Context, vec []float32, k int) ([]ScoredDocument, error) {
	hits, err := s.index.Search(ctx, vec, k)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIndexUnreachable, err)
	}
	if len(hits) == 0 {
		return []ScoredDocument{}, nil
	}

	ids := make([]uint64, len(hits))
	for i, h := range hits {
		ids[i] = h.ID
	}

	var rows []documentRow
	if err := s.db.WithContext(ctx).Where("id IN ? AND embedding IS NOT NULL", ids).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("%w: load nearest documents: %w", ErrStore, err)
	}
	byID := make(map[uint64]*documentRow, len(rows))
	for i := range rows {
		byID[rows[i].ID] = &rows[i]
	}

	out := make([]ScoredDocument, 0, len(hits))
	for _, h := range hits {
		row, ok := byID[h.ID]
		if !ok {
			s.logger.Warn("index returned a stale document id", "id", h.ID)
			continue
		}
		out = append(out, ScoredDocument{Document: row.toDocument(), Distance: h.Distance})
	}
	sortScored(out)
	return out, nil
}

// Reindex rebuilds the side-car index from the documents table and returns
// the number of embeddings written.
func (s *PostgresStore) Reindex(ctx context.Context, batchSize int) (int, error) {
	if s.index == nil {
		return 0, fmt.Errorf("%w: no vector index configured", config.ErrConfiguration)
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	if err := s.index.Reset(ctx); err != nil {
		return 0, fmt.Errorf("%w: %w", ErrIndexUnreachable, err)
	}

	total := 0
	var lastID uint64
	for {
		var rows []documentRow
		err := s.db.WithContext(ctx).
			Where("id > ? AND embedding IS NOT NULL", lastID).
			Order("id").
			Limit(batchSize).
			Find(&rows).Error
		if err != nil {
			return total, fmt.Errorf("%w: scan documents: %w", ErrStore, err)
		}
		if len(rows) == 0 {
			break
		}

		points := make([]IndexPoint, len(rows))
		for i := range rows {
			points[i] = IndexPoint{ID: rows[i].ID, Vector: rows[i].Embedding.Slice()}
		}
		if err := s.index.UpsertBatch(ctx, points); err != nil {
			return total, fmt.Errorf("%w: %w", ErrIndexUnreachable, err)
		}

		total += len(rows)
		lastID = rows[len(rows)-1].ID
		s.logger.Debug("reindexed batch", "up_to_id", lastID, "total", total)
	}

	s.indexStale.Store(false)
	s.logger.Info("reindex complete", "documents", total)
	return total, nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrStore, err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		return fmt.Errorf("%w: ping postgres: %w", ErrStore, err)
	}
	return nil
}

func (s *PostgresStore) Close() error {
	var errs []error
	if s.index != nil {
		errs = append(errs, s.index.Close())
	}
	if sqlDB, err := s.db.DB(); err == nil {
		errs = append(errs, sqlDB.Close())
	}
	return errors.Join(errs...)
}

func (s *PostgresStore) AddGroup(ctx context.Context, g NewGroup) (uint64, error) {
	row := groupRow{
		ExternalID:  g.ExternalID,
		Name:        g.Name,
		Description: g.Description,
		Metadata:    datatypes.JSONMap(cloneMetadata(g.Metadata)),
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return 0, fmt.Errorf("%w: add group: %w", ErrStore, err)
	}
	return row.ID, nil
}

func (s *PostgresStore) ListGroups(ctx context.Context, limit int) ([]Group, error) {
	if limit <= 0 {
		return []Group{}, nil
	}

	var rows []groupRow
	if err := s.db.WithContext(ctx).Order("created_at DESC, id DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("%w: list groups: %w", ErrStore, err)
	}
	out := make([]Group, len(rows))
	for i := range rows {
		out[i] = rows[i].toGroup()
	}
	return out, nil
}

func (s *PostgresStore) DeleteGroup(ctx context.Context, id uint64) (bool, error) {
	res := s.db.WithContext(ctx).Where("id = ?", id).Delete(&groupRow{})
	if res.Error != nil {
		return false, fmt.Errorf("%w: delete group %d: %w", ErrStore, id, res.Error)
	}
	return res.RowsAffected > 0, nil
}
