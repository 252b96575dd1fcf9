package persistence

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/helixml/passage/domain/passage"
	"github.com/helixml/passage/internal/database"
	"gorm.io/gorm"
)

const insertBatchSize = 100

// ChunkStore implements passage.Store on top of a GORM database. Embeddings
// are stored as JSON arrays and similarity is computed by the caller.
// Writes through one handle are serialized.
type ChunkStore struct {
	db     database.Database
	owned  bool
	logger *slog.Logger
	mapper chunkMapper

	mu     sync.Mutex
	closed bool
}

// NewChunkStore creates the schema if needed and returns a store over db.
// The caller keeps ownership of db.
func NewChunkStore(ctx context.Context, db database.Database, logger *slog.Logger) (*ChunkStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := AutoMigrate(ctx, db); err != nil {
		return nil, fmt.Errorf("%w: migrate: %w", passage.ErrStorageUnavailable, err)
	}
	return &ChunkStore{db: db, logger: logger}, nil
}

// OpenChunkStore opens the database at url, creating the file and schema
// if needed. Closing the store closes the database.
func OpenChunkStore(ctx context.Context, url string, logger *slog.Logger) (*ChunkStore, error) {
	db, err := database.NewDatabase(ctx, database.URL(url), logger)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", passage.ErrStorageUnavailable, err)
	}
	store, err := NewChunkStore(ctx, db, logger)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	store.owned = true
	return store, nil
}

// AutoMigrate creates the chunk and property tables.
func AutoMigrate(ctx context.Context, db database.Database) error {
	return db.Session(ctx).AutoMigrate(&ChunkModel{}, &PropertyModel{})
}

// Insert persists one chunk in its own transaction.
func (s *ChunkStore) Insert(ctx context.Context, c passage.Chunk, embedding []float64) (int64, error) {
	ids, err := s.InsertAll(ctx, []passage.Chunk{c}, [][]float64{embedding})
	if err != nil {
		return 0, err
	}
	return ids[0], nil
}

// InsertAll persists a batch in one transaction. Ids continue the dense
// sequence starting at 0. The first insert into an empty store fixes the
// embedding dimension; later batches must match it.
func (s *ChunkStore) InsertAll(ctx context.Context, chunks []passage.Chunk, embeddings [][]float64) ([]int64, error) {
	dim, err := validateBatch(chunks, embeddings)
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		return []int64{}, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, fmt.Errorf("%w: store is closed", passage.ErrStorageUnavailable)
	}

	ids, err := database.WithTransactionResult(ctx, s.db, func(tx *gorm.DB) ([]int64, error) {
		return s.insertBatch(tx, chunks, embeddings, dim)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug("stored chunks", slog.Int("count", len(ids)), slog.Int64("first_id", ids[0]))
	return ids, nil
}

// Replace drops the stored corpus and inserts the batch in a single
// transaction. On any failure the previous corpus is left untouched.
func (s *ChunkStore) Replace(ctx context.Context, chunks []passage.Chunk, embeddings [][]float64) ([]int64, error) {
	dim, err := validateBatch(chunks, embeddings)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, fmt.Errorf("%w: store is closed", passage.ErrStorageUnavailable)
	}

	ids, err := database.WithTransactionResult(ctx, s.db, func(tx *gorm.DB) ([]int64, error) {
		if err := recreate(tx); err != nil {
			return nil, fmt.Errorf("%w: reset: %w", passage.ErrStorageUnavailable, err)
		}
		if len(chunks) == 0 {
			return []int64{}, nil
		}
		return s.insertBatch(tx, chunks, embeddings, dim)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("replaced corpus", slog.Int("count", len(ids)))
	return ids, nil
}

// validateBatch returns the shared embedding dimension of a batch, or 0 for
// an empty one.
func validateBatch(chunks []passage.Chunk, embeddings [][]float64) (int, error) {
	if len(chunks) != len(embeddings) {
		return 0, fmt.Errorf("%d chunks, %d embeddings: %w", len(chunks), len(embeddings), passage.ErrLengthMismatch)
	}
	if len(chunks) == 0 {
		return 0, nil
	}
	dim := len(embeddings[0])
	if dim == 0 {
		return 0, fmt.Errorf("embedding 0 is empty: %w", passage.ErrDimensionMismatch)
	}
	for i, e := range embeddings {
		if len(e) != dim {
			return 0, fmt.Errorf("embedding %d has %d dimensions, batch has %d: %w", i, len(e), dim, passage.ErrDimensionMismatch)
		}
	}
	return dim, nil
}

func (s *ChunkStore) insertBatch(tx *gorm.DB, chunks []passage.Chunk, embeddings [][]float64, dim int) ([]int64, error) {
	if err := s.checkDimension(tx, dim); err != nil {
		return nil, err
	}

	var next int64
	if err := tx.Raw("SELECT COALESCE(MAX(id), -1) + 1 FROM document_chunks").Scan(&next).Error; err != nil {
		return nil, fmt.Errorf("%w: next id: %w", passage.ErrStorageUnavailable, err)
	}

	now := time.Now().UTC()
	models := make([]ChunkModel, len(chunks))
	ids := make([]int64, len(chunks))
	for i, c := range chunks {
		m, err := s.mapper.ToModel(next+int64(i), c, embeddings[i], now)
		if err != nil {
			return nil, err
		}
		models[i] = m
		ids[i] = m.ID
	}

	if err := tx.CreateInBatches(models, insertBatchSize).Error; err != nil {
		return nil, fmt.Errorf("%w: insert chunks: %w", passage.ErrStorageUnavailable, err)
	}
	return ids, nil
}

func (s *ChunkStore) checkDimension(tx *gorm.DB, dim int) error {
	var prop PropertyModel
	err := tx.Where("key = ?", propertyDimension).First(&prop).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		prop = PropertyModel{Key: propertyDimension, Value: strconv.Itoa(dim)}
		if err := tx.Create(&prop).Error; err != nil {
			return fmt.Errorf("%w: record dimension: %w", passage.ErrStorageUnavailable, err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w: read dimension: %w", passage.ErrStorageUnavailable, err)
	}

	stored, err := strconv.Atoi(prop.Value)
	if err != nil {
		return fmt.Errorf("%w: corrupt dimension %q", passage.ErrStorageUnavailable, prop.Value)
	}
	if stored != dim {
		return fmt.Errorf("store has %d dimensions, insert has %d: %w", stored, dim, passage.ErrDimensionMismatch)
	}
	return nil
}

// Count returns the number of stored chunks.
func (s *ChunkStore) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.Session(ctx).Model(&ChunkModel{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("%w: count chunks: %w", passage.ErrStorageUnavailable, err)
	}
	return count, nil
}

// Dimension returns the recorded embedding dimension.
func (s *ChunkStore) Dimension(ctx context.Context) (int, bool, error) {
	var prop PropertyModel
	err := s.db.Session(ctx).Where("key = ?", propertyDimension).First(&prop).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("%w: read dimension: %w", passage.ErrStorageUnavailable, err)
	}
	dim, err := strconv.Atoi(prop.Value)
	if err != nil {
		return 0, false, fmt.Errorf("%w: corrupt dimension %q", passage.ErrStorageUnavailable, prop.Value)
	}
	return dim, true, nil
}

// Scan streams rows in ascending id order. The iterator holds a database
// connection until it finishes; callers must not use the store from inside
// the loop body.
func (s *ChunkStore) Scan(ctx context.Context) iter.Seq2[passage.Stored, error] {
	return func(yield func(passage.Stored, error) bool) {
		session := s.db.Session(ctx)
		rows, err := session.Model(&ChunkModel{}).Order("id ASC").Rows()
		if err != nil {
			yield(passage.Stored{}, fmt.Errorf("%w: scan chunks: %w", passage.ErrStorageUnavailable, err))
			return
		}
		defer func() { _ = rows.Close() }()

		for rows.Next() {
			var m ChunkModel
			if err := session.ScanRows(rows, &m); err != nil {
				yield(passage.Stored{}, fmt.Errorf("%w: read chunk: %w", passage.ErrStorageUnavailable, err))
				return
			}
			stored, err := s.mapper.ToDomain(m)
			if err != nil {
				yield(passage.Stored{}, fmt.Errorf("%w: %w", passage.ErrStorageUnavailable, err))
				return
			}
			if !yield(stored, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(passage.Stored{}, fmt.Errorf("%w: scan chunks: %w", passage.ErrStorageUnavailable, err))
		}
	}
}

func recreate(tx *gorm.DB) error {
	if err := tx.Migrator().DropTable(&ChunkModel{}, &PropertyModel{}); err != nil {
		return err
	}
	return tx.AutoMigrate(&ChunkModel{}, &PropertyModel{})
}

// Close releases the database if the store opened it. Safe to call twice.
func (s *ChunkStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if !s.owned {
		return nil
	}
	return s.db.Close()
}

var _ passage.Store = (*ChunkStore)(nil)
