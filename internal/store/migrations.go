package store

// migration holds a single schema migration with its target version and SQL.
type migration struct {
	version int
	sql     string
}

// migrations is the ordered list of schema migrations.
// Each migration's version must be sequential starting from 1.
var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS boards (
	id          TEXT PRIMARY KEY,
	name        TEXT NOT NULL,
	slug        TEXT NOT NULL UNIQUE,
	description TEXT NOT NULL DEFAULT '',
	created_at  DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS columns (
	id         TEXT PRIMARY KEY,
	board_id   TEXT NOT NULL REFERENCES boards(id) ON DELETE CASCADE,
	name       TEXT NOT NULL,
	position   INTEGER NOT NULL,
	created_at DATETIME NOT NULL,
	UNIQUE(board_id, name),
	UNIQUE(board_id, position)
);

CREATE TABLE IF NOT EXISTS cards (
	id               TEXT PRIMARY KEY,
	column_id        TEXT NOT NULL REFERENCES columns(id) ON DELETE CASCADE,
	title            TEXT NOT NULL,
	description      TEXT NOT NULL DEFAULT '',
	start_date       DATETIME,
	last_update_date DATETIME,
	created_at       DATETIME NOT NULL,
	updated_at       DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_cards_column_id ON cards(column_id);
CREATE INDEX IF NOT EXISTS idx_cards_last_update ON cards(last_update_date);

CREATE TABLE IF NOT EXISTS entries (
	id          TEXT PRIMARY KEY,
	board_id    TEXT NOT NULL REFERENCES boards(id) ON DELETE CASCADE,
	card_id     TEXT NOT NULL REFERENCES cards(id) ON DELETE CASCADE,
	from_addr   TEXT NOT NULL DEFAULT '',
	from_name   TEXT NOT NULL DEFAULT '',
	recipients  TEXT NOT NULL DEFAULT '[]',
	subject     TEXT NOT NULL DEFAULT '',
	message_id  TEXT NOT NULL DEFAULT '',
	date        DATETIME NOT NULL,
	body        TEXT NOT NULL DEFAULT '',
	raw_message TEXT NOT NULL DEFAULT '',
	summary     TEXT NOT NULL DEFAULT '',
	created_at  DATETIME NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_entries_board_message_id
	ON entries(board_id, message_id) WHERE message_id != '';
CREATE INDEX IF NOT EXISTS idx_entries_card_date ON entries(card_id, date);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
	{
		version: 2,
		sql: `
CREATE TABLE IF NOT EXISTS correspondents (
	id         TEXT PRIMARY KEY,
	board_id   TEXT NOT NULL REFERENCES boards(id) ON DELETE CASCADE,
	email      TEXT NOT NULL,
	name       TEXT NOT NULL DEFAULT '',
	aliases    TEXT NOT NULL DEFAULT '[]',
	created_at DATETIME NOT NULL,
	UNIQUE(board_id, email)
);

CREATE TABLE IF NOT EXISTS tags (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL UNIQUE,
	color      TEXT NOT NULL DEFAULT '#6c757d',
	created_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS entry_tags (
	entry_id TEXT NOT NULL REFERENCES entries(id) ON DELETE CASCADE,
	tag_id   TEXT NOT NULL REFERENCES tags(id) ON DELETE CASCADE,
	PRIMARY KEY (entry_id, tag_id)
);

INSERT INTO schema_version (version) VALUES (2);
`,
	},
}
