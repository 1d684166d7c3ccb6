package sqlite

// Schema is the SQLite schema for the identity store, the network cache and
// the settings tables. It is executed on every open; all statements are
// idempotent (IF NOT EXISTS) so an existing database is left untouched.
//
// The artists_fts virtual table is an FTS5 external-content index over the
// artists table, kept in sync by the three triggers below it. FTS5 is
// compiled into modernc.org/sqlite by default.
const Schema = `
CREATE TABLE IF NOT EXISTS artists (
	id             TEXT PRIMARY KEY,
	name           TEXT NOT NULL,
	sort_name      TEXT,
	bio            TEXT,
	image_url      TEXT,
	disambiguation TEXT,
	name_key       TEXT NOT NULL,
	created_at     TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at     TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_artists_name_key ON artists(name_key);

CREATE TABLE IF NOT EXISTS networks (
	artist_id    TEXT PRIMARY KEY REFERENCES artists(id) ON DELETE CASCADE,
	document     TEXT NOT NULL,
	source       TEXT NOT NULL,
	node_count   INTEGER NOT NULL,
	hallucinated INTEGER NOT NULL DEFAULT 0,
	generated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS settings (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS disambiguation_settings (
	id              TEXT PRIMARY KEY,
	overrides       TEXT,
	ambiguous_names TEXT,
	created_at      TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at      TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS embeddings (
	artist_id  TEXT PRIMARY KEY REFERENCES artists(id) ON DELETE CASCADE,
	embedding  BLOB NOT NULL,
	dimension  INTEGER NOT NULL,
	model      TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE VIRTUAL TABLE IF NOT EXISTS artists_fts USING fts5(
	name,
	bio,
	disambiguation,
	content='artists',
	content_rowid='rowid'
);

CREATE TRIGGER IF NOT EXISTS artists_fts_ai AFTER INSERT ON artists BEGIN
	INSERT INTO artists_fts(rowid, name, bio, disambiguation)
	VALUES (new.rowid, new.name, new.bio, new.disambiguation);
END;

CREATE TRIGGER IF NOT EXISTS artists_fts_ad AFTER DELETE ON artists BEGIN
	INSERT INTO artists_fts(artists_fts, rowid, name, bio, disambiguation)
	VALUES ('delete', old.rowid, old.name, old.bio, old.disambiguation);
END;

CREATE TRIGGER IF NOT EXISTS artists_fts_au AFTER UPDATE ON artists BEGIN
	INSERT INTO artists_fts(artists_fts, rowid, name, bio, disambiguation)
	VALUES ('delete', old.rowid, old.name, old.bio, old.disambiguation);
	INSERT INTO artists_fts(rowid, name, bio, disambiguation)
	VALUES (new.rowid, new.name, new.bio, new.disambiguation);
END;
`
