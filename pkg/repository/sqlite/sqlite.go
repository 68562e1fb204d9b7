package sqlite

import (
	"context"
	"database/sql"

	"github.com/hearthlist/relay/pkg/domain/interfaces"
	"github.com/m-mizutani/goerr/v2"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS action_queue (
	id          TEXT PRIMARY KEY,
	seq         INTEGER NOT NULL,
	kind        TEXT NOT NULL,
	entity_type TEXT NOT NULL,
	entity_id   TEXT NOT NULL,
	payload     TEXT,
	method      TEXT NOT NULL,
	path        TEXT NOT NULL,
	header      TEXT,
	enqueued_at INTEGER NOT NULL,
	retry_count INTEGER NOT NULL DEFAULT 0,
	max_retries INTEGER NOT NULL,
	state       TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_action_queue_seq ON action_queue (seq);

CREATE TABLE IF NOT EXISTS entity_cache (
	entity_type TEXT NOT NULL,
	entity_id   TEXT NOT NULL,
	data        TEXT,
	tombstone   INTEGER NOT NULL DEFAULT 0,
	updated_at  INTEGER NOT NULL,
	PRIMARY KEY (entity_type, entity_id)
);
`

// Repository is a sqlite-backed repository. Both the action queue and the
// entity cache live in one database file so the engine survives a full
// process restart.
type Repository struct {
	db    *sql.DB
	queue *queueRepository
	cache *cacheRepository
}

var _ interfaces.Repository = &Repository{}

// New opens (or creates) the database at the given path and prepares the
// schema. Use ":memory:" for an ephemeral database.
func New(ctx context.Context, path string) (*Repository, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to open sqlite database", goerr.V("path", path))
	}

	// modernc sqlite serializes writes itself; a single connection avoids
	// SQLITE_BUSY under concurrent bookkeeping.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, goerr.Wrap(err, "failed to prepare schema", goerr.V("path", path))
	}

	return &Repository{
		db:    db,
		queue: &queueRepository{db: db},
		cache: &cacheRepository{db: db},
	}, nil
}

func (r *Repository) Queue() interfaces.QueueRepository {
	return r.queue
}

func (r *Repository) Cache() interfaces.CacheRepository {
	return r.cache
}

func (r *Repository) Close() error {
	if err := r.db.Close(); err != nil {
		return goerr.Wrap(err, "failed to close sqlite database")
	}
	return nil
}
