package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"net/url"
	"os"
	"os/exec"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/crateful/linernotes/internal/storage"
	"github.com/crateful/linernotes/pkg/types"
)

// Store implements the full storage.Store surface (identity store, network
// cache, artist search and disambiguation settings) using SQLite.
type Store struct {
	db *sql.DB
}

// Ensure *Store implements the storage interfaces at compile time.
var (
	_ storage.ArtistStore   = (*Store)(nil)
	_ storage.NetworkCache  = (*Store)(nil)
	_ storage.SettingsStore = (*Store)(nil)
	_ storage.Store         = (*Store)(nil)
)

// NewStore creates a new SQLite store with WAL self-healing.
// If the initial open fails due to stale WAL files (left behind by a crashed
// process), it verifies no other process holds them and retries once after
// removing the stale -shm/-wal files.
func NewStore(dsn string) (*Store, error) {
	store, err := openStore(dsn)
	if err == nil {
		return store, nil
	}

	if !isRecoverableWALError(err) {
		return nil, err
	}

	dbPath := dbPathFromDSN(dsn)
	if dbPath == "" || dbPath == ":memory:" {
		return nil, err
	}

	if !isWALStale(dbPath) {
		return nil, err
	}

	removeStaleWAL(dbPath)

	store, retryErr := openStore(dsn)
	if retryErr != nil {
		return nil, fmt.Errorf("failed after WAL recovery: %w (original: %v)", retryErr, err)
	}

	log.Printf("sqlite: recovered from stale WAL files for %s", dbPath)
	return store, nil
}

// openStore opens a SQLite database, configures WAL mode, and creates the schema.
func openStore(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one concurrent writer. Using a single open connection
	// serialises writes and avoids SQLITE_BUSY errors under concurrent load.
	// WAL mode allows concurrent readers to proceed without blocking the writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0) // Connections live for the lifetime of the store.

	// Enable WAL mode for better read concurrency (readers don't block writers).
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// Set busy timeout so that callers wait instead of getting an immediate
	// SQLITE_BUSY error when the connection is held by another goroutine.
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	// Create schema
	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Store creates or updates an artist record (upsert semantics).
func (s *Store) Store(ctx context.Context, artist *types.ArtistIdentity) error {
	if artist == nil {
		return storage.ErrInvalidInput
	}

	if artist.ID == "" {
		return fmt.Errorf("%w: artist ID is required", storage.ErrInvalidInput)
	}

	if strings.TrimSpace(artist.Name) == "" {
		return fmt.Errorf("%w: artist name is required", storage.ErrInvalidInput)
	}

	// Set default timestamps if not provided
	if artist.CreatedAt.IsZero() {
		artist.CreatedAt = time.Now()
	}
	if artist.UpdatedAt.IsZero() {
		artist.UpdatedAt = time.Now()
	}

	query := `
		INSERT INTO artists (
			id, name, sort_name, bio, image_url, disambiguation, name_key,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			sort_name = excluded.sort_name,
			bio = excluded.bio,
			image_url = excluded.image_url,
			disambiguation = excluded.disambiguation,
			name_key = excluded.name_key,
			updated_at = excluded.updated_at
	`

	_, err := s.db.ExecContext(ctx, query,
		artist.ID,
		artist.Name,
		nullableString(artist.SortName),
		nullableString(artist.Bio),
		nullableString(artist.ImageURL),
		nullableString(artist.Disambiguation),
		types.IdentityKey(artist.Name),
		artist.CreatedAt,
		artist.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to store artist: %w", err)
	}

	return nil
}

// artistColumns is the SELECT column list shared by Get, GetByName and List.
// scanArtist must stay in the same order.
const artistColumns = `
	id, name, sort_name, bio, image_url, disambiguation,
	created_at, updated_at
`

// scanArtist reads one row into an ArtistIdentity. The column order must
// match artistColumns.
func scanArtist(row interface{ Scan(...interface{}) error }) (*types.ArtistIdentity, error) {
	var artist types.ArtistIdentity
	var sortName, bio, imageURL, disambiguation sql.NullString

	err := row.Scan(
		&artist.ID,
		&artist.Name,
		&sortName,
		&bio,
		&imageURL,
		&disambiguation,
		&artist.CreatedAt,
		&artist.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if sortName.Valid {
		artist.SortName = sortName.String
	}
	if bio.Valid {
		artist.Bio = bio.String
	}
	if imageURL.Valid {
		artist.ImageURL = imageURL.String
	}
	if disambiguation.Valid {
		artist.Disambiguation = disambiguation.String
	}

	return &artist, nil
}

// Get retrieves an artist by canonical id.
func (s *Store) Get(ctx context.Context, id string) (*types.ArtistIdentity, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: artist ID is required", storage.ErrInvalidInput)
	}

	row := s.db.QueryRowContext(ctx,
		"SELECT "+artistColumns+" FROM artists WHERE id = ?", id)

	artist, err := scanArtist(row)
	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get artist: %w", err)
	}

	return artist, nil
}

// GetByName retrieves an artist by display name through identity-key
// normalization. When several records collapse to the same key, the oldest
// record wins.
func (s *Store) GetByName(ctx context.Context, name string) (*types.ArtistIdentity, error) {
	key := types.IdentityKey(name)
	if key == "" {
		return nil, fmt.Errorf("%w: artist name is required", storage.ErrInvalidInput)
	}

	row := s.db.QueryRowContext(ctx,
		"SELECT "+artistColumns+" FROM artists WHERE name_key = ? ORDER BY created_at ASC, id ASC LIMIT 1", key)

	artist, err := scanArtist(row)
	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get artist by name: %w", err)
	}

	return artist, nil
}

// List retrieves artist records with pagination.
func (s *Store) List(ctx context.Context, opts storage.ListOptions) (*storage.PaginatedResult[types.ArtistIdentity], error) {
	// Normalize options (must be done before ORDER BY construction to prevent SQL injection)
	opts.Normalize()

	// Safe from SQL injection due to Normalize() whitelist validation above
	query := fmt.Sprintf(
		"SELECT "+artistColumns+" FROM artists ORDER BY %s %s LIMIT ? OFFSET ?",
		opts.SortBy, opts.SortOrder,
	)

	rows, err := s.db.QueryContext(ctx, query, opts.Limit, opts.Offset())
	if err != nil {
		return nil, fmt.Errorf("failed to list artists: %w", err)
	}
	defer rows.Close()

	var artists []types.ArtistIdentity
	for rows.Next() {
		artist, err := scanArtist(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan artist: %w", err)
		}
		artists = append(artists, *artist)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating artists: %w", err)
	}

	var total int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM artists").Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count artists: %w", err)
	}

	return &storage.PaginatedResult[types.ArtistIdentity]{
		Items:    artists,
		Total:    total,
		Page:     opts.Page,
		PageSize: opts.Limit,
		HasMore:  opts.Offset()+len(artists) < total,
	}, nil
}

// Delete removes an artist record. The cached network and any embedding go
// with it (ON DELETE CASCADE).
func (s *Store) Delete(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("%w: artist ID is required", storage.ErrInvalidInput)
	}

	result, err := s.db.ExecContext(ctx, "DELETE FROM artists WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete artist: %w", err)
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

// Count returns the number of artist records.
func (s *Store) Count(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM artists").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count artists: %w", err)
	}
	return count, nil
}

// PutNetwork stores the finished network document for the artist, replacing
// any previous one. The write is a single upsert, so readers either see the
// old complete document or the new complete document, never a partial one.
func (s *Store) PutNetwork(ctx context.Context, artistID string, result *types.NetworkResult) error {
	if artistID == "" {
		return fmt.Errorf("%w: artist ID is required", storage.ErrInvalidInput)
	}
	if result == nil {
		return fmt.Errorf("%w: network result is required", storage.ErrInvalidInput)
	}

	document, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal network document: %w", err)
	}

	generatedAt := result.Meta.GeneratedAt
	if generatedAt.IsZero() {
		generatedAt = time.Now()
	}

	hallucinated := 0
	if result.Meta.Hallucinated {
		hallucinated = 1
	}

	query := `
		INSERT INTO networks (artist_id, document, source, node_count, hallucinated, generated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(artist_id) DO UPDATE SET
			document = excluded.document,
			source = excluded.source,
			node_count = excluded.node_count,
			hallucinated = excluded.hallucinated,
			generated_at = excluded.generated_at
	`

	_, err = s.db.ExecContext(ctx, query,
		artistID,
		string(document),
		result.Meta.Source,
		len(result.Nodes),
		hallucinated,
		generatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to store network: %w", err)
	}

	return nil
}

// GetNetwork retrieves the cached network document for the artist.
func (s *Store) GetNetwork(ctx context.Context, artistID string) (*types.NetworkResult, error) {
	if artistID == "" {
		return nil, fmt.Errorf("%w: artist ID is required", storage.ErrInvalidInput)
	}

	var document string
	err := s.db.QueryRowContext(ctx,
		"SELECT document FROM networks WHERE artist_id = ?", artistID).Scan(&document)
	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get network: %w", err)
	}

	var result types.NetworkResult
	if err := json.Unmarshal([]byte(document), &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal network document: %w", err)
	}

	return &result, nil
}

// InvalidateNetwork removes the cached network document for the artist.
// Invalidating a missing entry is not an error.
func (s *Store) InvalidateNetwork(ctx context.Context, artistID string) error {
	if artistID == "" {
		return fmt.Errorf("%w: artist ID is required", storage.ErrInvalidInput)
	}

	if _, err := s.db.ExecContext(ctx, "DELETE FROM networks WHERE artist_id = ?", artistID); err != nil {
		return fmt.Errorf("failed to invalidate network: %w", err)
	}

	return nil
}

// NetworkStats reports cache contents for the stats endpoint.
func (s *Store) NetworkStats(ctx context.Context) (*storage.NetworkCacheStats, error) {
	stats := &storage.NetworkCacheStats{BySource: make(map[string]int)}

	rows, err := s.db.QueryContext(ctx, "SELECT source, COUNT(*) FROM networks GROUP BY source")
	if err != nil {
		return nil, fmt.Errorf("failed to query network stats: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var source string
		var count int
		if err := rows.Scan(&source, &count); err != nil {
			return nil, fmt.Errorf("failed to scan network stats: %w", err)
		}
		stats.BySource[source] = count
		stats.Total += count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating network stats: %w", err)
	}

	if err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM networks WHERE node_count <= 1").Scan(&stats.SingleNode); err != nil {
		return nil, fmt.Errorf("failed to count single-node networks: %w", err)
	}

	return stats, nil
}

// disambiguationSettingsID is the fixed row id for the singleton settings row.
const disambiguationSettingsID = "default"

// GetDisambiguationSettings returns the stored disambiguation settings.
func (s *Store) GetDisambiguationSettings(ctx context.Context) (*types.DisambiguationSettings, error) {
	var saved types.SavedDisambiguationSettings
	var overrides, ambiguousNames sql.NullString

	err := s.db.QueryRowContext(ctx, `
		SELECT id, overrides, ambiguous_names, created_at, updated_at
		FROM disambiguation_settings WHERE id = ?`, disambiguationSettingsID).Scan(
		&saved.ID,
		&overrides,
		&ambiguousNames,
		&saved.CreatedAt,
		&saved.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get disambiguation settings: %w", err)
	}

	if overrides.Valid {
		saved.Overrides = overrides.String
	}
	if ambiguousNames.Valid {
		saved.AmbiguousNames = ambiguousNames.String
	}

	parsedOverrides, err := types.UnmarshalOverrides(saved.Overrides)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal overrides: %w", err)
	}
	parsedNames, err := types.UnmarshalAmbiguousNames(saved.AmbiguousNames)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal ambiguous names: %w", err)
	}

	return &types.DisambiguationSettings{
		ID:             saved.ID,
		Overrides:      parsedOverrides,
		AmbiguousNames: parsedNames,
		CreatedAt:      saved.CreatedAt,
		UpdatedAt:      saved.UpdatedAt,
	}, nil
}

// SaveDisambiguationSettings stores the disambiguation settings (upsert
// semantics, singleton row).
func (s *Store) SaveDisambiguationSettings(ctx context.Context, settings *types.DisambiguationSettings) error {
	if settings == nil {
		return storage.ErrInvalidInput
	}

	overridesJSON, err := json.Marshal(settings.Overrides)
	if err != nil {
		return fmt.Errorf("failed to marshal overrides: %w", err)
	}
	namesJSON, err := json.Marshal(settings.AmbiguousNames)
	if err != nil {
		return fmt.Errorf("failed to marshal ambiguous names: %w", err)
	}

	query := `
		INSERT INTO disambiguation_settings (id, overrides, ambiguous_names, created_at, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		ON CONFLICT(id) DO UPDATE SET
			overrides = excluded.overrides,
			ambiguous_names = excluded.ambiguous_names,
			updated_at = CURRENT_TIMESTAMP
	`

	if _, err := s.db.ExecContext(ctx, query, disambiguationSettingsID, string(overridesJSON), string(namesJSON)); err != nil {
		return fmt.Errorf("failed to save disambiguation settings: %w", err)
	}

	return nil
}

// GetDB returns the underlying database connection.
// This is used for direct database operations like config persistence.
func (s *Store) GetDB() *sql.DB {
	return s.db
}

// Close flushes the WAL into the main database file and releases resources.
// The TRUNCATE checkpoint removes the -shm and -wal files so that another
// process (e.g., linernotes-seed after linernotes-web exits) can open the
// database without encountering stale WAL state.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}

	if _, err := s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		log.Printf("sqlite: WAL checkpoint on close failed (non-fatal): %v", err)
	}

	return s.db.Close()
}

// nullableString converts a string to sql.NullString.
// An empty string is treated as NULL.
func nullableString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{Valid: false}
	}
	return sql.NullString{String: s, Valid: true}
}

// dbPathFromDSN extracts the filesystem path from a SQLite DSN.
// Handles bare paths ("/path/to/db.sqlite") and file: URIs ("file:/path/to/db.sqlite?mode=rwc").
// Returns empty string for in-memory databases or unparseable DSNs.
func dbPathFromDSN(dsn string) string {
	if dsn == ":memory:" || dsn == "" {
		return ""
	}

	if strings.HasPrefix(dsn, "file:") {
		u, err := url.Parse(dsn)
		if err != nil {
			return ""
		}
		path := u.Path
		if path == "" {
			path = u.Opaque
		}
		if path == ":memory:" || path == "" {
			return ""
		}
		return path
	}

	return dsn
}

// isRecoverableWALError returns true if the error matches patterns caused by
// stale WAL files left behind after a crash (SIGKILL, OOM, etc.).
func isRecoverableWALError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "disk I/O error") ||
		strings.Contains(msg, "database is locked")
}

// isWALStale checks whether -shm/-wal files exist for the given database path
// AND no other process currently holds them open (via lsof).
// Returns false if lsof is unavailable (conservative: no deletion).
func isWALStale(dbPath string) bool {
	shmPath := dbPath + "-shm"
	walPath := dbPath + "-wal"

	if !fileExists(shmPath) && !fileExists(walPath) {
		return false
	}

	// Check if any process has the database or WAL files open.
	lsofPath, err := exec.LookPath("lsof")
	if err != nil {
		// lsof not available (e.g., Alpine Docker) — conservative fallback.
		return false
	}

	// Check the main db file, -shm, and -wal in a single lsof invocation.
	cmd := exec.Command(lsofPath, "-t", dbPath, shmPath, walPath)
	output, err := cmd.Output()
	if err != nil {
		// lsof returns exit code 1 when no files are open — that means stale.
		return true
	}

	// If lsof produced output, some process has these files open — not stale.
	return strings.TrimSpace(string(output)) == ""
}

// removeStaleWAL removes -shm and -wal files for the given database path.
func removeStaleWAL(dbPath string) {
	for _, suffix := range []string{"-shm", "-wal"} {
		path := dbPath + suffix
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			log.Printf("sqlite: failed to remove stale %s: %v", path, err)
		}
	}
}

// fileExists returns true if the path exists on disk.
func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
