package db

import (
	"database/sql"
	"fmt"
)

// schema is the full database schema. The swap invariants that must survive
// concurrent requests are enforced here, not only in application code: the
// non-negative balance (users.points CHECK), the one-active-swap rule
// (partial unique index on swaps) and the kind/field exclusivity (swaps
// table CHECK).
const schema = `
CREATE TABLE IF NOT EXISTS users (
    id            INTEGER PRIMARY KEY,
    username      TEXT NOT NULL,
    password_hash TEXT NOT NULL,
    role          TEXT NOT NULL DEFAULT 'user' CHECK (role IN ('admin', 'user')),
    points        INTEGER NOT NULL DEFAULT 0 CHECK (points >= 0),
    created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    deleted_at    DATETIME
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_users_username_active
    ON users(username) WHERE deleted_at IS NULL;

CREATE TABLE IF NOT EXISTS items (
    id           INTEGER PRIMARY KEY,
    owner_id     INTEGER NOT NULL REFERENCES users(id),
    title        TEXT NOT NULL,
    description  TEXT,
    category     TEXT,
    size         TEXT,
    condition    TEXT NOT NULL DEFAULT 'good' CHECK (condition IN ('new', 'like_new', 'good', 'worn')),
    point_value  INTEGER NOT NULL CHECK (point_value > 0),
    availability TEXT NOT NULL DEFAULT 'available' CHECK (availability IN ('available', 'reserved', 'swapped')),
    moderation   TEXT NOT NULL DEFAULT 'pending' CHECK (moderation IN ('pending', 'approved', 'rejected')),
    image        BLOB,
    image_mime   TEXT,
    created_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    deleted_at   DATETIME
);

CREATE INDEX IF NOT EXISTS idx_items_owner ON items(owner_id);

CREATE TABLE IF NOT EXISTS swaps (
    id              TEXT PRIMARY KEY,
    kind            TEXT NOT NULL CHECK (kind IN ('direct', 'points')),
    requester_id    INTEGER NOT NULL REFERENCES users(id),
    owner_id        INTEGER NOT NULL REFERENCES users(id),
    item_id         INTEGER NOT NULL REFERENCES items(id),
    offered_item_id INTEGER REFERENCES items(id),
    points_offered  INTEGER CHECK (points_offered > 0),
    status          TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'accepted', 'rejected', 'completed', 'cancelled')),
    message         TEXT,
    created_at      DATETIME NOT NULL,
    expires_at      DATETIME NOT NULL,
    completed_at    DATETIME,
    CHECK ((kind = 'direct' AND offered_item_id IS NOT NULL AND points_offered IS NULL)
        OR (kind = 'points' AND offered_item_id IS NULL AND points_offered IS NOT NULL))
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_swaps_one_active
    ON swaps(requester_id, item_id) WHERE status IN ('pending', 'accepted');

CREATE INDEX IF NOT EXISTS idx_swaps_requester ON swaps(requester_id);
CREATE INDEX IF NOT EXISTS idx_swaps_owner ON swaps(owner_id);
CREATE INDEX IF NOT EXISTS idx_swaps_item ON swaps(item_id);
CREATE INDEX IF NOT EXISTS idx_swaps_expiry ON swaps(expires_at) WHERE status = 'pending';

CREATE TABLE IF NOT EXISTS swap_events (
    id         INTEGER PRIMARY KEY,
    swap_id    TEXT NOT NULL REFERENCES swaps(id),
    status     TEXT NOT NULL,
    note       TEXT,
    created_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_swap_events_swap ON swap_events(swap_id);

CREATE TABLE IF NOT EXISTS point_entries (
    id         INTEGER PRIMARY KEY,
    user_id    INTEGER NOT NULL REFERENCES users(id),
    delta      INTEGER NOT NULL CHECK (delta != 0),
    reason     TEXT NOT NULL,
    swap_id    TEXT REFERENCES swaps(id),
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_point_entries_user ON point_entries(user_id);

CREATE TABLE IF NOT EXISTS revoked_tokens (
    jti        TEXT PRIMARY KEY,
    expires_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS settings (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);
`

// EnsureSchema creates all tables and indexes if they don't already exist.
func EnsureSchema(db *sql.DB) error {
	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}
