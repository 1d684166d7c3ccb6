package sqlite

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/crateful/linernotes/internal/storage"
	"github.com/crateful/linernotes/pkg/types"
)

// Ensure *Store implements storage.SearchProvider at compile time.
var _ storage.SearchProvider = (*Store)(nil)

// SearchArtists performs FTS5-backed full-text search across artist names,
// bios and disambiguation notes.
//
// The FTS5 virtual table (artists_fts) is kept in sync with the artists
// table via INSERT/UPDATE/DELETE triggers defined in schema.go.
//
// When opts.Query is empty the method falls back to a plain list ordered by
// name so the caller still receives a useful result set.
//
// FTS5 rank values are negative (more negative == better match), so ordering
// by rank ASC gives the best results first.
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

	// Sanitise the raw query string so it is safe to pass to FTS5's MATCH
	// operator.  FTS5 syntax is powerful but fragile: an unbalanced quote or
	// stray operator keyword will cause SQLite to return "fts5: syntax error".
	// We convert the free-form user input into a simple prefix query that
	// searches for each word individually (OR semantics).
	ftsQuery := sanitiseFTSQuery(opts.Query)

	querySQL := `
		SELECT ` + qualifiedArtistColumns + `
		FROM artists_fts fts
		JOIN artists a ON a.rowid = fts.rowid
		WHERE artists_fts MATCH ?
		ORDER BY rank
		LIMIT ? OFFSET ?
	`

	rows, err := s.db.QueryContext(ctx, querySQL, ftsQuery, opts.Limit, opts.Offset)
	if err != nil {
		// FTS5 can still error on malformed input that slipped past sanitisation.
		// Wrap the error with enough context for callers to diagnose.
		return nil, fmt.Errorf("sqlite: SearchArtists MATCH %q: %w", opts.Query, err)
	}
	defer func() { _ = rows.Close() }()

	var artists []types.ArtistIdentity
	for rows.Next() {
		artist, err := scanArtist(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: SearchArtists scan: %w", err)
		}
		artists = append(artists, *artist)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: SearchArtists rows: %w", err)
	}

	// Count total matching rows (without LIMIT/OFFSET) so the caller can
	// determine whether more pages exist.
	countSQL := `
		SELECT COUNT(*)
		FROM artists_fts fts
		JOIN artists a ON a.rowid = fts.rowid
		WHERE artists_fts MATCH ?
	`
	var total int
	if err := s.db.QueryRowContext(ctx, countSQL, ftsQuery).Scan(&total); err != nil {
		return nil, fmt.Errorf("sqlite: SearchArtists count: %w", err)
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

// qualifiedArtistColumns mirrors artistColumns with the "a." table alias used
// by the FTS join queries.
const qualifiedArtistColumns = `
	a.id, a.name, a.sort_name, a.bio, a.image_url, a.disambiguation,
	a.created_at, a.updated_at
`

// ftsStopWords are common words stripped from search queries before they are
// handed to FTS5. Matching on them produces noise rather than relevance.
var ftsStopWords = map[string]bool{
	"the": true, "a": true, "an": true, "and": true, "or": true,
	"of": true, "in": true, "on": true, "at": true, "to": true,
	"for": true, "with": true, "by": true, "is": true, "was": true,
}

// sanitiseFTSQuery converts free-form user input into a safe FTS5 query.
//
// Strategy: strip FTS5 metacharacters, drop stop words and single letters,
// then turn each remaining word into a prefix query (word*) joined with OR.
// "Thelonious Monk" becomes `thelonious* OR monk*`, which matches partial
// typing without tripping FTS5's syntax parser.
func sanitiseFTSQuery(raw string) string {
	// Remove characters that have meaning in FTS5 query syntax.
	replacer := strings.NewReplacer(
		`"`, " ",
		`'`, " ",
		`(`, " ",
		`)`, " ",
		`*`, " ",
		`-`, " ",
		`^`, " ",
		`?`, " ",
		`:`, " ",
	)
	cleaned := replacer.Replace(raw)

	words := strings.Fields(strings.ToLower(cleaned))
	terms := make([]string, 0, len(words))
	for _, w := range words {
		if len(w) < 2 || ftsStopWords[w] {
			continue
		}
		terms = append(terms, w+"*")
	}

	if len(terms) == 0 {
		// Everything was filtered out; fall back to the cleaned text so the
		// MATCH still has an operand.
		return strings.TrimSpace(strings.ToLower(cleaned))
	}

	return strings.Join(terms, " OR ")
}

// vectorSearchMaxCandidates caps the number of embeddings loaded into memory
// during a vector search. Embeddings are selected in recency order (newest
// first) so recently seeded artists are always considered. For the catalog
// sizes a single-node deployment sees this limit is never hit; larger
// installations should run the PostgreSQL backend, which uses pgvector for
// indexed ANN search.
const vectorSearchMaxCandidates = 10_000

// VectorSearch performs semantic similarity search over stored bio embeddings.
// Embeddings are loaded into Go memory and ranked by cosine similarity; SQLite
// has no native vector index, so the candidate pool is capped at
// vectorSearchMaxCandidates (most-recent first) to bound memory use.
func (s *Store) VectorSearch(ctx context.Context, query []float32, opts storage.SearchOptions) (*storage.PaginatedResult[types.ArtistIdentity], error) {
	opts.Normalize()

	if len(query) == 0 {
		return &storage.PaginatedResult[types.ArtistIdentity]{Items: []types.ArtistIdentity{}, PageSize: opts.Limit}, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT e.artist_id, e.embedding
		FROM embeddings e
		JOIN artists a ON a.id = e.artist_id
		ORDER BY a.created_at DESC
		LIMIT ?`, vectorSearchMaxCandidates)
	if err != nil {
		return nil, fmt.Errorf("failed to load embeddings: %w", err)
	}
	defer func() { _ = rows.Close() }()

	type scored struct {
		artistID string
		score    float64
	}
	var candidates []scored

	for rows.Next() {
		var artistID string
		var blob []byte
		if err := rows.Scan(&artistID, &blob); err != nil {
			continue
		}
		embedding, err := deserializeEmbedding(blob)
		if err != nil {
			continue
		}
		if len(embedding) != len(query) {
			continue
		}
		sim := cosineSimilarity(query, embedding)
		candidates = append(candidates, scored{artistID, sim})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating embeddings: %w", err)
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})

	total := len(candidates)
	offset := opts.Offset
	if offset >= total {
		return &storage.PaginatedResult[types.ArtistIdentity]{Items: []types.ArtistIdentity{}, Total: total, PageSize: opts.Limit}, nil
	}
	end := offset + opts.Limit
	if end > total {
		end = total
	}

	var artists []types.ArtistIdentity
	for _, c := range candidates[offset:end] {
		artist, err := s.Get(ctx, c.artistID)
		if err != nil {
			continue
		}
		artists = append(artists, *artist)
	}

	return &storage.PaginatedResult[types.ArtistIdentity]{
		Items:    artists,
		Total:    total,
		PageSize: opts.Limit,
		HasMore:  end < total,
	}, nil
}

// cosineSimilarity computes the cosine similarity between two equal-length
// vectors. Returns 0 for zero-magnitude vectors.
func cosineSimilarity(a, b []float32) float64 {
	var dot, magA, magB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		magA += float64(a[i]) * float64(a[i])
		magB += float64(b[i]) * float64(b[i])
	}
	if magA == 0 || magB == 0 {
		return 0
	}
	return dot / (math.Sqrt(magA) * math.Sqrt(magB))
}
