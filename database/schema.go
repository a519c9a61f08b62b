package database

const schema = `
CREATE TABLE IF NOT EXISTS schema_migrations (
	version INTEGER PRIMARY KEY,
	applied_at DATETIME NOT NULL
);
CREATE TABLE IF NOT EXISTS users (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	username TEXT NOT NULL UNIQUE,
	email TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	display_name TEXT NOT NULL,
	avatar_icon TEXT DEFAULT 'user',
	is_admin BOOLEAN DEFAULT 0,
	admin_badge TEXT,
	profile_bio TEXT DEFAULT '',
	is_active BOOLEAN DEFAULT 1,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	last_login DATETIME
);
CREATE TABLE IF NOT EXISTS sessions (
	session_token TEXT PRIMARY KEY,
	user_id INTEGER NOT NULL,
	expires_at DATETIME NOT NULL,
	ip_address TEXT DEFAULT '',
	user_agent TEXT DEFAULT '',
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
);
CREATE TABLE IF NOT EXISTS document_sections (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	section_type TEXT NOT NULL,
	section_category TEXT NOT NULL,
	section_subject TEXT,
	title TEXT NOT NULL,
	description TEXT DEFAULT '',
	is_active BOOLEAN DEFAULT 1,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	UNIQUE (section_type, section_category, section_subject)
);
CREATE TABLE IF NOT EXISTS comments (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id INTEGER NOT NULL,
	section_id INTEGER NOT NULL,
	parent_comment_id INTEGER,
	content TEXT NOT NULL,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	is_edited BOOLEAN DEFAULT 0,
	is_deleted BOOLEAN DEFAULT 0,
	deleted_at DATETIME,
	FOREIGN KEY (user_id) REFERENCES users(id),
	FOREIGN KEY (section_id) REFERENCES document_sections(id),
	FOREIGN KEY (parent_comment_id) REFERENCES comments(id)
);
CREATE TABLE IF NOT EXISTS comment_reactions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id INTEGER NOT NULL,
	comment_id INTEGER NOT NULL,
	reaction_type TEXT NOT NULL,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	UNIQUE (user_id, comment_id),
	FOREIGN KEY (user_id) REFERENCES users(id),
	FOREIGN KEY (comment_id) REFERENCES comments(id) ON DELETE CASCADE
);
CREATE TABLE IF NOT EXISTS section_reactions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id INTEGER NOT NULL,
	section_id INTEGER NOT NULL,
	reaction_type TEXT NOT NULL,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	UNIQUE (user_id, section_id),
	FOREIGN KEY (user_id) REFERENCES users(id),
	FOREIGN KEY (section_id) REFERENCES document_sections(id) ON DELETE CASCADE
);
CREATE TABLE IF NOT EXISTS avatar_icons (
	icon_name TEXT PRIMARY KEY,
	icon_emoji TEXT NOT NULL,
	category TEXT DEFAULT 'general',
	is_active BOOLEAN DEFAULT 1
);
CREATE TABLE IF NOT EXISTS admin_actions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	admin_user_id INTEGER NOT NULL,
	action_type TEXT NOT NULL,
	target_user_id INTEGER,
	target_comment_id INTEGER,
	reason TEXT DEFAULT '',
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	FOREIGN KEY (admin_user_id) REFERENCES users(id)
);

-- --- INDEXES ---
CREATE INDEX IF NOT EXISTS idx_sessions_user ON sessions(user_id);
CREATE INDEX IF NOT EXISTS idx_sessions_expires ON sessions(expires_at);
CREATE INDEX IF NOT EXISTS idx_comments_section ON comments(section_id, is_deleted, created_at);
CREATE INDEX IF NOT EXISTS idx_comments_parent ON comments(parent_comment_id);
CREATE INDEX IF NOT EXISTS idx_comment_reactions_comment ON comment_reactions(comment_id);
CREATE INDEX IF NOT EXISTS idx_section_reactions_section ON section_reactions(section_id);
CREATE INDEX IF NOT EXISTS idx_admin_actions_time ON admin_actions(created_at DESC);
`
