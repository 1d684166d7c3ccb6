package postgres

import (
	"context"
	"fmt"
	"strings"

	pgvector "github.com/pgvector/pgvector-go"

	"github.com/crateful/linernotes/internal/storage"
	"github.com/crateful/linernotes/pkg/types"
)

// Ensure *Store implements storage.SearchProvider at compile time.
var _ storage.SearchProvider = (*Store)(nil)

// SearchArtists performs PostgreSQL tsvector full-text search across artist
// names, bios and disambiguation notes.
//
// When opts.Query is empty the method falls back to a plain list ordered by
// name so the caller still receives a useful result set.
func (s *Store) SearchArtists(ctx context.Context, opts storage.SearchOptions) (*storage.PaginatedResult[types.ArtistIdentity], error) {
	opts.Normalize()

	// When the query is empty fall back to a plain list ordered by name.
	if strings.TrimSpace(opts.Query) == "" {
		page := 1
		if opts.Limit > 0 {
			page = (opts.Offset / opts.Limit) + 1
		}
		return s.List(ctx, storage.ListOptions{
			Page:      page,
			Limit:     opts.Limit,
			SortBy:    "name",
			SortOrder: "asc",
		})
	}

	querySQL := `
		SELECT ` + artistSelectColumns + `
		FROM artists
		WHERE search_tsv @@ plainto_tsquery('english', $1)
		ORDER BY ts_rank(search_tsv, plainto_tsquery('english', $1)) DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := s.db.QueryContext(ctx, querySQL, opts.Query, opts.Limit, opts.Offset)
	if err != nil {
		return nil, fmt.Errorf("postgres: SearchArtists query %q: %w", opts.Query, err)
	}
	defer func() { _ = rows.Close() }()

	var artists []types.ArtistIdentity
	for rows.Next() {
		artist, err := scanArtistRow(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: SearchArtists scan: %w", err)
		}
		artists = append(artists, *artist)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: SearchArtists rows: %w", err)
	}

	// Count total matching rows for pagination.
	countSQL := `
		SELECT COUNT(*)
		FROM artists
		WHERE search_tsv @@ plainto_tsquery('english', $1)
	`
	var total int
	if err := s.db.QueryRowContext(ctx, countSQL, opts.Query).Scan(&total); err != nil {
		return nil, fmt.Errorf("postgres: SearchArtists count: %w", err)
	}

	page := 1
	if opts.Limit > 0 {
		page = (opts.Offset / opts.Limit) + 1
	}

	result := &storage.PaginatedResult[types.ArtistIdentity]{
		Items:    artists,
		Total:    total,
		Page:     page,
		PageSize: opts.Limit,
		HasMore:  opts.Offset+len(artists) < total,
	}

	// Fuzzy fallback: if no results and FuzzyFallback is enabled, retry with OR'd terms
	if opts.FuzzyFallback && len(result.Items) == 0 && opts.Query != "" {
		terms := strings.Fields(opts.Query)
		if len(terms) > 1 {
			relaxedOpts := opts
			relaxedOpts.Query = strings.Join(terms, " OR ")
			relaxedOpts.FuzzyFallback = false // prevent recursion
			return s.SearchArtists(ctx, relaxedOpts)
		}
	}

	return result, nil
}

// VectorSearch performs semantic similarity search using pgvector cosine
// distance. The search is accelerated by an ivfflat index
// (idx_embeddings_vec_cosine) when the embeddings table is non-empty.
//
// When pgvector is not available, it falls back to returning artists in name
// order so autocomplete still has something to show.
func (s *Store) VectorSearch(ctx context.Context, query []float32, opts storage.SearchOptions) (*storage.PaginatedResult[types.ArtistIdentity], error) {
	opts.Normalize()

	if len(query) == 0 {
		return &storage.PaginatedResult[types.ArtistIdentity]{Items: []types.ArtistIdentity{}, PageSize: opts.Limit}, nil
	}

	if !s.pgvectorAvailable {
		return s.List(ctx, storage.ListOptions{
			Page:      1,
			Limit:     opts.Limit,
			SortBy:    "name",
			SortOrder: "asc",
		})
	}

	vec := pgvector.NewVector(query)

	// Columns must be qualified here: both artists and embeddings carry
	// created_at/updated_at.
	querySQL := `
		SELECT
			a.id, a.name, a.sort_name, a.bio, a.image_url, a.disambiguation,
			a.created_at, a.updated_at
		FROM artists a
		JOIN embeddings e ON e.artist_id = a.id
		WHERE e.embedding_vec IS NOT NULL
		ORDER BY e.embedding_vec <=> $1::vector
		LIMIT $2 OFFSET $3
	`

	rows, err := s.db.QueryContext(ctx, querySQL, vec, opts.Limit, opts.Offset)
	if err != nil {
		// If the query fails (e.g. no rows with embedding_vec yet), fall back.
		return s.List(ctx, storage.ListOptions{
			Page:      1,
			Limit:     opts.Limit,
			SortBy:    "name",
			SortOrder: "asc",
		})
	}
	defer func() { _ = rows.Close() }()

	var artists []types.ArtistIdentity
	for rows.Next() {
		artist, err := scanArtistRow(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: VectorSearch scan: %w", err)
		}
		artists = append(artists, *artist)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: VectorSearch rows: %w", err)
	}

	// Count total rows with embedding vectors for pagination.
	countSQL := `
		SELECT COUNT(*)
		FROM artists a
		JOIN embeddings e ON e.artist_id = a.id
		WHERE e.embedding_vec IS NOT NULL
	`
	var total int
	if err := s.db.QueryRowContext(ctx, countSQL).Scan(&total); err != nil {
		total = len(artists) + opts.Offset
	}

	return &storage.PaginatedResult[types.ArtistIdentity]{
		Items:    artists,
		Total:    total,
		PageSize: opts.Limit,
		HasMore:  opts.Offset+len(artists) < total,
	}, nil
}
