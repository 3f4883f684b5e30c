package db

func (db *DB) initSchema() error {
	schema := `
	-- Archived chat sessions
	CREATE TABLE IF NOT EXISTS sessions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT UNIQUE NOT NULL,
		title TEXT,
		file_count INTEGER DEFAULT 0,
		message_count INTEGER DEFAULT 0,
		created_at DATETIME,
		updated_at DATETIME,
		archived_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_sessions_session_id ON sessions(session_id);
	CREATE INDEX IF NOT EXISTS idx_sessions_updated_at ON sessions(updated_at);

	-- Files tracked by a session, in selection order
	CREATE TABLE IF NOT EXISTS session_files (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id INTEGER NOT NULL,
		file_id TEXT NOT NULL,
		batch_id TEXT,
		name TEXT NOT NULL,
		size INTEGER,
		mime_type TEXT,
		status TEXT CHECK(status IN ('uploading', 'processing', 'ready', 'error')),
		progress INTEGER,
		error_message TEXT,
		sequence INTEGER,
		FOREIGN KEY (session_id) REFERENCES sessions(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_session_files_session_id ON session_files(session_id);
	CREATE INDEX IF NOT EXISTS idx_session_files_name ON session_files(name);

	-- Chat transcript
	CREATE TABLE IF NOT EXISTS messages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		uuid TEXT NOT NULL,
		session_id INTEGER NOT NULL,
		role TEXT NOT NULL CHECK(role IN ('user', 'assistant')),
		content TEXT,
		reply_to TEXT,
		is_error BOOLEAN DEFAULT 0,
		timestamp DATETIME,
		sequence INTEGER,
		UNIQUE (session_id, uuid),
		FOREIGN KEY (session_id) REFERENCES sessions(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_messages_session_id ON messages(session_id);
	CREATE INDEX IF NOT EXISTS idx_messages_timestamp ON messages(timestamp);

	-- Processed documents in the local library
	CREATE TABLE IF NOT EXISTS documents (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		file_id TEXT UNIQUE NOT NULL,
		session_id TEXT NOT NULL,
		name TEXT NOT NULL,
		mime_type TEXT,
		size INTEGER,
		stored_path TEXT NOT NULL,
		sha256 TEXT NOT NULL,
		registered_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_documents_session_id ON documents(session_id);
	CREATE INDEX IF NOT EXISTS idx_documents_sha256 ON documents(sha256);

	-- FTS5 over message text with porter stemming
	CREATE VIRTUAL TABLE IF NOT EXISTS messages_fts USING fts5(
		content,
		content=messages,
		content_rowid=id,
		tokenize='porter unicode61'
	);

	-- Triggers to keep FTS in sync
	CREATE TRIGGER IF NOT EXISTS messages_ai AFTER INSERT ON messages BEGIN
		INSERT INTO messages_fts(rowid, content) VALUES (new.id, new.content);
	END;

	CREATE TRIGGER IF NOT EXISTS messages_ad AFTER DELETE ON messages BEGIN
		INSERT INTO messages_fts(messages_fts, rowid, content) VALUES ('delete', old.id, old.content);
	END;

	CREATE TRIGGER IF NOT EXISTS messages_au AFTER UPDATE ON messages BEGIN
		INSERT INTO messages_fts(messages_fts, rowid, content) VALUES ('delete', old.id, old.content);
		INSERT INTO messages_fts(rowid, content) VALUES (new.id, new.content);
	END;
	`

	_, err := db.conn.Exec(schema)
	return err
}
