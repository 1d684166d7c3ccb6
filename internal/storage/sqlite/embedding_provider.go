package sqlite

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/crateful/linernotes/internal/storage"
)

// Ensure *Store implements storage.EmbeddingProvider at compile time.
var _ storage.EmbeddingProvider = (*Store)(nil)

// StoreEmbedding stores a bio embedding vector for an artist.
// The vector is serialized as a binary BLOB (little-endian float32).
func (s *Store) StoreEmbedding(ctx context.Context, artistID string, embedding []float32, dimension int, model string) error {
	if artistID == "" {
		return fmt.Errorf("%w: artist ID is required", storage.ErrInvalidInput)
	}

	if len(embedding) == 0 {
		return fmt.Errorf("%w: embedding vector cannot be empty", storage.ErrInvalidInput)
	}

	if dimension <= 0 {
		return fmt.Errorf("%w: dimension must be positive", storage.ErrInvalidInput)
	}

	if model == "" {
		return fmt.Errorf("%w: model is required", storage.ErrInvalidInput)
	}

	if len(embedding) != dimension {
		return fmt.Errorf("%w: embedding length (%d) does not match dimension (%d)",
			storage.ErrInvalidInput, len(embedding), dimension)
	}

	query := `
		INSERT INTO embeddings (artist_id, embedding, dimension, model, created_at, updated_at)
		VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		ON CONFLICT(artist_id) DO UPDATE SET
			embedding = excluded.embedding,
			dimension = excluded.dimension,
			model = excluded.model,
			updated_at = CURRENT_TIMESTAMP
	`

	if _, err := s.db.ExecContext(ctx, query, artistID, serializeEmbedding(embedding), dimension, model); err != nil {
		return fmt.Errorf("failed to store embedding: %w", err)
	}

	return nil
}

// GetEmbedding retrieves the bio embedding for an artist.
// Returns storage.ErrNotFound if no embedding is stored.
func (s *Store) GetEmbedding(ctx context.Context, artistID string) ([]float32, error) {
	if artistID == "" {
		return nil, fmt.Errorf("%w: artist ID is required", storage.ErrInvalidInput)
	}

	var blob []byte
	var dimension int

	err := s.db.QueryRowContext(ctx,
		"SELECT embedding, dimension FROM embeddings WHERE artist_id = ?", artistID).Scan(&blob, &dimension)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get embedding: %w", err)
	}

	embedding, err := deserializeEmbedding(blob)
	if err != nil {
		return nil, fmt.Errorf("failed to deserialize embedding: %w", err)
	}

	if len(embedding) != dimension {
		return nil, fmt.Errorf("embedding length (%d) does not match stored dimension (%d)",
			len(embedding), dimension)
	}

	return embedding, nil
}

// DeleteEmbedding removes the stored embedding for an artist.
// Returns storage.ErrNotFound if no embedding exists.
func (s *Store) DeleteEmbedding(ctx context.Context, artistID string) error {
	if artistID == "" {
		return fmt.Errorf("%w: artist ID is required", storage.ErrInvalidInput)
	}

	result, err := s.db.ExecContext(ctx, "DELETE FROM embeddings WHERE artist_id = ?", artistID)
	if err != nil {
		return fmt.Errorf("failed to delete embedding: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return storage.ErrNotFound
	}

	return nil
}

// serializeEmbedding converts a float32 slice to little-endian binary form,
// 4 bytes per component.
func serializeEmbedding(embedding []float32) []byte {
	buf := make([]byte, len(embedding)*4)
	for i, v := range embedding {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

// deserializeEmbedding converts the binary representation back to a float32
// slice. The dimension is implied by the buffer length.
func deserializeEmbedding(buf []byte) ([]float32, error) {
	if len(buf)%4 != 0 {
		return nil, fmt.Errorf("embedding blob length %d is not a multiple of 4", len(buf))
	}

	embedding := make([]float32, len(buf)/4)
	for i := range embedding {
		embedding[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}

	return embedding, nil
}
