package store

// schemaDDL creates the persisted state layout declared in spec §6.1. It is
// executed once by Bootstrap and is safe to run repeatedly.
const schemaDDL = `
CREATE TABLE IF NOT EXISTS nodes (
	id             BIGSERIAL PRIMARY KEY,
	uuid           TEXT NOT NULL,
	owner_id       BIGINT NOT NULL,
	root_key       TEXT NOT NULL,
	parent_path    TEXT NOT NULL,
	filename       TEXT NOT NULL,
	ordinal        INTEGER NOT NULL DEFAULT 0,
	is_directory   BOOLEAN NOT NULL DEFAULT FALSE,
	is_public      BOOLEAN NOT NULL DEFAULT FALSE,
	is_binary      BOOLEAN NOT NULL DEFAULT FALSE,
	content_text   TEXT,
	content_binary BYTEA,
	content_type   TEXT NOT NULL DEFAULT '',
	size_bytes     BIGINT NOT NULL DEFAULT 0,
	created_time   BIGINT NOT NULL,
	modified_time  BIGINT NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS nodes_uuid_idx ON nodes (uuid);
CREATE UNIQUE INDEX IF NOT EXISTS nodes_root_parent_name_idx ON nodes (root_key, parent_path, filename);
CREATE INDEX IF NOT EXISTS nodes_root_parent_idx ON nodes (root_key, parent_path);
CREATE INDEX IF NOT EXISTS nodes_is_binary_idx ON nodes (is_binary);

CREATE TABLE IF NOT EXISTS blocked_keys (
	pub_key    TEXT PRIMARY KEY,
	blocked_at BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS user_info (
	id       BIGSERIAL PRIMARY KEY,
	pub_key  TEXT NOT NULL,
	display_name TEXT NOT NULL DEFAULT ''
);
CREATE UNIQUE INDEX IF NOT EXISTS user_info_pub_key_idx ON user_info (pub_key);

CREATE TABLE IF NOT EXISTS rooms (
	id   BIGSERIAL PRIMARY KEY,
	name TEXT NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS rooms_name_idx ON rooms (name);

CREATE TABLE IF NOT EXISTS messages (
	id         TEXT PRIMARY KEY,
	state      TEXT NOT NULL DEFAULT 'SAVED',
	room_id    BIGINT NOT NULL REFERENCES rooms (id) ON DELETE CASCADE,
	timestamp  BIGINT NOT NULL,
	sender     TEXT NOT NULL,
	content    TEXT NOT NULL DEFAULT '',
	public_key TEXT NOT NULL DEFAULT '',
	signature  TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS messages_room_id_idx ON messages (room_id);
CREATE INDEX IF NOT EXISTS messages_timestamp_idx ON messages (timestamp);

CREATE TABLE IF NOT EXISTS attachments (
	id         BIGSERIAL PRIMARY KEY,
	message_id TEXT NOT NULL REFERENCES messages (id) ON DELETE CASCADE,
	name       TEXT NOT NULL,
	type       TEXT NOT NULL DEFAULT '',
	size       BIGINT NOT NULL DEFAULT 0,
	data       BYTEA
);
CREATE INDEX IF NOT EXISTS attachments_message_id_idx ON attachments (message_id);
`

// schemaFunctions installs the set-based VFS primitives that the spec frames
// as single-statement, DB-side operations (§4.3.8, §4.3.12, §4.3.13, §4.3.15):
// the rename cascade, ordinal shift, descendant walk, and text/binary
// search. Path normalization and the multi-step primitives (ensure_path,
// mkdir, write_*) are driven from internal/vfs instead, as a sequence of
// parameterized statements inside the ambient TxScope — the transactional
// guarantee comes from the enclosing transaction, not from folding every
// primitive into a single PL/pgSQL routine.
const schemaFunctions = `
CREATE OR REPLACE FUNCTION vfs_rename_cascade(
	p_root_key TEXT,
	p_old_prefix TEXT,
	p_new_prefix TEXT
) RETURNS void AS $$
BEGIN
	UPDATE nodes
	SET parent_path = p_new_prefix || substring(parent_path from length(p_old_prefix) + 1)
	WHERE root_key = p_root_key
	  AND (parent_path = p_old_prefix OR parent_path LIKE p_old_prefix || '/%');
END;
$$ LANGUAGE plpgsql;

CREATE OR REPLACE FUNCTION vfs_shift_ordinals_down(
	p_root_key TEXT,
	p_parent_path TEXT,
	p_insert_ordinal INTEGER,
	p_slots INTEGER
) RETURNS void AS $$
BEGIN
	UPDATE nodes
	SET ordinal = ordinal + p_slots
	WHERE root_key = p_root_key
	  AND parent_path = p_parent_path
	  AND ordinal >= p_insert_ordinal;
END;
$$ LANGUAGE plpgsql;

CREATE OR REPLACE FUNCTION vfs_get_descendants(
	p_root_key TEXT,
	p_node_uuid TEXT,
	p_root_path TEXT
) RETURNS SETOF nodes AS $$
BEGIN
	RETURN QUERY
	SELECT * FROM nodes
	WHERE root_key = p_root_key
	  AND (uuid = p_node_uuid
	       OR parent_path = p_root_path
	       OR parent_path LIKE p_root_path || '/%');
END;
$$ LANGUAGE plpgsql;

CREATE OR REPLACE FUNCTION vfs_search_text(
	p_root_key TEXT,
	p_path TEXT,
	p_query TEXT,
	p_case_sensitive BOOLEAN
) RETURNS TABLE (
	uuid TEXT, full_path TEXT, filename TEXT,
	content_snippet TEXT, content_type TEXT, size_bytes BIGINT, modified_time BIGINT
) AS $$
BEGIN
	IF p_case_sensitive THEN
		RETURN QUERY
		SELECT n.uuid, n.parent_path || '/' || n.filename, n.filename,
		       left(n.content_text, 200), n.content_type, n.size_bytes, n.modified_time
		FROM nodes n
		WHERE n.root_key = p_root_key AND n.is_binary = FALSE
		  AND (n.parent_path = p_path OR n.parent_path LIKE p_path || '/%')
		  AND n.content_text LIKE '%' || p_query || '%';
	ELSE
		RETURN QUERY
		SELECT n.uuid, n.parent_path || '/' || n.filename, n.filename,
		       left(n.content_text, 200), n.content_type, n.size_bytes, n.modified_time
		FROM nodes n
		WHERE n.root_key = p_root_key AND n.is_binary = FALSE
		  AND (n.parent_path = p_path OR n.parent_path LIKE p_path || '/%')
		  AND n.content_text ILIKE '%' || p_query || '%';
	END IF;
END;
$$ LANGUAGE plpgsql;

CREATE OR REPLACE FUNCTION vfs_search_binaries(
	p_root_key TEXT,
	p_path TEXT,
	p_query TEXT
) RETURNS TABLE (
	uuid TEXT, full_path TEXT, filename TEXT,
	content_type TEXT, size_bytes BIGINT, modified_time BIGINT
) AS $$
BEGIN
	RETURN QUERY
	SELECT n.uuid, n.parent_path || '/' || n.filename, n.filename,
	       n.content_type, n.size_bytes, n.modified_time
	FROM nodes n
	WHERE n.root_key = p_root_key AND n.is_binary = TRUE
	  AND (n.parent_path = p_path OR n.parent_path LIKE p_path || '/%')
	  AND n.filename ILIKE '%' || p_query || '%';
END;
$$ LANGUAGE plpgsql;
`
