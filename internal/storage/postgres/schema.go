// Package postgres provides PostgreSQL implementations of storage interfaces.
package postgres

// Schema contains the SQL statements to create the database schema for PostgreSQL.
// All statements are idempotent (IF NOT EXISTS) so the schema can be applied on
// every startup.
const Schema = `
-- Artists table: canonical artist identity records
CREATE TABLE IF NOT EXISTS artists (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    sort_name TEXT,
    bio TEXT,
    image_url TEXT,
    disambiguation TEXT,

    -- Lowercased, trimmed name used for identity resolution
    name_key TEXT NOT NULL,

    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

-- Networks table: one cached collaboration network document per artist
CREATE TABLE IF NOT EXISTS networks (
    artist_id TEXT PRIMARY KEY REFERENCES artists(id) ON DELETE CASCADE,
    document JSONB NOT NULL,

    -- Denormalized fields so the stats endpoint never parses documents
    source TEXT NOT NULL,
    node_count INTEGER NOT NULL DEFAULT 0,
    hallucinated BOOLEAN NOT NULL DEFAULT FALSE,

    generated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

-- Settings table: persistent key-value store for application configuration
CREATE TABLE IF NOT EXISTS settings (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL,

    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

-- Disambiguation settings: singleton row holding operator-managed
-- name overrides and the ambiguous-names list (stored as JSON)
CREATE TABLE IF NOT EXISTS disambiguation_settings (
    id TEXT PRIMARY KEY,
    overrides TEXT,
    ambiguous_names TEXT,

    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

-- Embeddings table: bio embedding vectors with dimension tracking
CREATE TABLE IF NOT EXISTS embeddings (
    artist_id TEXT PRIMARY KEY REFERENCES artists(id) ON DELETE CASCADE,
    embedding BYTEA NOT NULL, -- binary packed float32 array
    dimension INTEGER NOT NULL,
    model TEXT NOT NULL,

    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

-- Indexes

-- Identity resolution by normalized name
CREATE INDEX IF NOT EXISTS idx_artists_name_key ON artists(name_key);

-- Timestamp queries and seeding-order lookups
CREATE INDEX IF NOT EXISTS idx_artists_created_at ON artists(created_at);
CREATE INDEX IF NOT EXISTS idx_artists_updated_at ON artists(updated_at);

-- Cache stats grouping
CREATE INDEX IF NOT EXISTS idx_networks_source ON networks(source);
CREATE INDEX IF NOT EXISTS idx_networks_node_count ON networks(node_count);

-- Embedding model lookups
CREATE INDEX IF NOT EXISTS idx_embeddings_model ON embeddings(model);
`

// MigrationFTS contains SQL to add full-text search support to the artists table.
// Uses PostgreSQL's built-in tsvector/GIN index approach.
// Safe to run multiple times (uses IF NOT EXISTS / conditional checks).
const MigrationFTS = `
-- Add tsvector column for full-text search if it doesn't already exist.
-- We use a regular tsvector column (not GENERATED ALWAYS AS) for maximum
-- compatibility across PostgreSQL versions.
DO $$
BEGIN
    IF NOT EXISTS (
        SELECT 1 FROM information_schema.columns
        WHERE table_name = 'artists' AND column_name = 'search_tsv'
    ) THEN
        ALTER TABLE artists ADD COLUMN search_tsv tsvector;
    END IF;
END
$$;

-- Populate the tsvector column for any existing rows.
UPDATE artists
SET search_tsv = to_tsvector('english',
    COALESCE(name, '') || ' ' || COALESCE(bio, '') || ' ' || COALESCE(disambiguation, ''))
WHERE search_tsv IS NULL;

-- Create a GIN index for fast FTS queries.
CREATE INDEX IF NOT EXISTS idx_artists_search_tsv ON artists USING GIN(search_tsv);

-- Create trigger to auto-populate search_tsv on INSERT/UPDATE.
CREATE OR REPLACE FUNCTION artists_tsv_update()
RETURNS TRIGGER AS $$
BEGIN
    NEW.search_tsv := to_tsvector('english',
        COALESCE(NEW.name, '') || ' ' || COALESCE(NEW.bio, '') || ' ' || COALESCE(NEW.disambiguation, ''));
    RETURN NEW;
END;
$$ LANGUAGE plpgsql;

DROP TRIGGER IF EXISTS artists_tsv_trigger ON artists;
CREATE TRIGGER artists_tsv_trigger
    BEFORE INSERT OR UPDATE OF name, bio, disambiguation
    ON artists
    FOR EACH ROW
    EXECUTE FUNCTION artists_tsv_update();
`

// MigrationPgvector contains SQL to add pgvector support to the embeddings table.
// This migration is only applied when the vector extension is available.
// Safe to run multiple times (uses IF NOT EXISTS / conditional checks).
const MigrationPgvector = `
-- Add embedding_vec column if it doesn't already exist.
DO $$
BEGIN
    IF NOT EXISTS (
        SELECT 1 FROM information_schema.columns
        WHERE table_name = 'embeddings' AND column_name = 'embedding_vec'
    ) THEN
        ALTER TABLE embeddings ADD COLUMN embedding_vec vector;
    END IF;
END
$$;

-- Create ivfflat index for approximate nearest-neighbor vector search.
-- Lists = 100 is a good default for up to ~1M vectors; tune upward for larger datasets.
-- IMPORTANT: ivfflat requires at least one row to exist; we guard with a DO block.
DO $$
BEGIN
  IF NOT EXISTS (
    SELECT 1 FROM pg_indexes WHERE indexname = 'idx_embeddings_vec_cosine'
  ) THEN
    IF EXISTS (SELECT 1 FROM embeddings LIMIT 1) THEN
      EXECUTE 'CREATE INDEX idx_embeddings_vec_cosine ON embeddings USING ivfflat (embedding_vec vector_cosine_ops) WITH (lists = 100)';
    END IF;
  END IF;
END$$;
`
