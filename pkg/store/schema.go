package store

// schema contains the complete DDL for the statute database.
//
// Two parallel provision tables: `provisions` holds only the current wording
// per (document_id, provision_ref) with a uniqueness constraint on the pair;
// `provision_versions` holds every wording with its half-open validity
// window. Each carries an FTS5 index kept in sync by triggers, refreshed
// incrementally on insert/update/delete.
const schema = `
CREATE TABLE IF NOT EXISTS documents (
	document_id TEXT PRIMARY KEY,
	title       TEXT NOT NULL DEFAULT '',
	repealed_by TEXT,
	repeal_date TEXT,
	updated_at  TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS provisions (
	document_id   TEXT NOT NULL REFERENCES documents(document_id),
	provision_ref TEXT NOT NULL,
	chapter       TEXT NOT NULL DEFAULT '',
	section       TEXT NOT NULL,
	title         TEXT NOT NULL DEFAULT '',
	content       TEXT NOT NULL,
	UNIQUE(document_id, provision_ref)
);

CREATE TABLE IF NOT EXISTS provision_versions (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	document_id   TEXT NOT NULL,
	provision_ref TEXT NOT NULL,
	chapter       TEXT NOT NULL DEFAULT '',
	section       TEXT NOT NULL,
	title         TEXT NOT NULL DEFAULT '',
	content       TEXT NOT NULL,
	valid_from    TEXT,
	valid_to      TEXT,
	ingest_run    TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_versions_lookup
	ON provision_versions(document_id, provision_ref, valid_from);
CREATE INDEX IF NOT EXISTS idx_versions_from
	ON provision_versions(valid_from);

CREATE TABLE IF NOT EXISTS amendment_log (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	document_id    TEXT NOT NULL,
	provision_ref  TEXT NOT NULL DEFAULT '',
	amended_by_sfs TEXT NOT NULL,
	amendment_type TEXT NOT NULL,
	position       TEXT NOT NULL,
	raw_text       TEXT NOT NULL,
	recorded_at    TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_amendment_log_doc
	ON amendment_log(document_id, provision_ref);

-- FTS5 indexes for current and historical wordings
CREATE VIRTUAL TABLE IF NOT EXISTS provisions_fts USING fts5(
	title,
	content,
	content='provisions',
	content_rowid='rowid'
);

CREATE VIRTUAL TABLE IF NOT EXISTS provision_versions_fts USING fts5(
	title,
	content,
	content='provision_versions',
	content_rowid='id'
);

-- Triggers to keep FTS in sync with provisions
CREATE TRIGGER IF NOT EXISTS provisions_ai AFTER INSERT ON provisions BEGIN
	INSERT INTO provisions_fts(rowid, title, content)
	VALUES (new.rowid, new.title, new.content);
END;

CREATE TRIGGER IF NOT EXISTS provisions_ad AFTER DELETE ON provisions BEGIN
	INSERT INTO provisions_fts(provisions_fts, rowid, title, content)
	VALUES('delete', old.rowid, old.title, old.content);
END;

CREATE TRIGGER IF NOT EXISTS provisions_au AFTER UPDATE ON provisions BEGIN
	INSERT INTO provisions_fts(provisions_fts, rowid, title, content)
	VALUES('delete', old.rowid, old.title, old.content);
	INSERT INTO provisions_fts(rowid, title, content)
	VALUES (new.rowid, new.title, new.content);
END;

-- Triggers to keep FTS in sync with provision_versions
CREATE TRIGGER IF NOT EXISTS provision_versions_ai AFTER INSERT ON provision_versions BEGIN
	INSERT INTO provision_versions_fts(rowid, title, content)
	VALUES (new.id, new.title, new.content);
END;

CREATE TRIGGER IF NOT EXISTS provision_versions_ad AFTER DELETE ON provision_versions BEGIN
	INSERT INTO provision_versions_fts(provision_versions_fts, rowid, title, content)
	VALUES('delete', old.id, old.title, old.content);
END;

CREATE TRIGGER IF NOT EXISTS provision_versions_au AFTER UPDATE ON provision_versions BEGIN
	INSERT INTO provision_versions_fts(provision_versions_fts, rowid, title, content)
	VALUES('delete', old.id, old.title, old.content);
	INSERT INTO provision_versions_fts(rowid, title, content)
	VALUES (new.id, new.title, new.content);
END;
`
