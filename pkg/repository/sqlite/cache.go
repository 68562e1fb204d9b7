package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/hearthlist/relay/pkg/domain/model"
	"github.com/hearthlist/relay/pkg/domain/types"
	"github.com/m-mizutani/goerr/v2"
)

type cacheRepository struct {
	db *sql.DB
}

func (r *cacheRepository) Get(ctx context.Context, entityType types.EntityType, entityID types.EntityID) (*model.EntitySnapshot, error) {
	var (
		data      sql.NullString
		tombstone int
		updatedAt int64
	)

	err := r.db.QueryRowContext(ctx, `
		SELECT data, tombstone, updated_at FROM entity_cache
		WHERE entity_type = ? AND entity_id = ?`,
		entityType.String(), entityID.String(),
	).Scan(&data, &tombstone, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, goerr.Wrap(ErrNotFound, "snapshot not found",
			goerr.V("entity_type", entityType), goerr.V("entity_id", entityID))
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to query snapshot",
			goerr.V("entity_type", entityType), goerr.V("entity_id", entityID))
	}

	snapshot := &model.EntitySnapshot{
		EntityType: entityType,
		EntityID:   entityID,
		Tombstone:  tombstone != 0,
		UpdatedAt:  time.Unix(0, updatedAt).UTC(),
	}
	if data.Valid {
		if err := json.Unmarshal([]byte(data.String), &snapshot.Data); err != nil {
			return nil, goerr.Wrap(err, "failed to decode snapshot data",
				goerr.V("entity_type", entityType), goerr.V("entity_id", entityID))
		}
	}
	return snapshot, nil
}

func (r *cacheRepository) Put(ctx context.Context, snapshot *model.EntitySnapshot) error {
	var data sql.NullString
	if snapshot.Data != nil {
		raw, err := json.Marshal(snapshot.Data)
		if err != nil {
			return goerr.Wrap(err, "failed to encode snapshot data",
				goerr.V("entity_type", snapshot.EntityType), goerr.V("entity_id", snapshot.EntityID))
		}
		data = sql.NullString{String: string(raw), Valid: true}
	}

	tombstone := 0
	if snapshot.Tombstone {
		tombstone = 1
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO entity_cache (entity_type, entity_id, data, tombstone, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (entity_type, entity_id)
		DO UPDATE SET data = excluded.data, tombstone = excluded.tombstone,
		              updated_at = excluded.updated_at`,
		snapshot.EntityType.String(),
		snapshot.EntityID.String(),
		data,
		tombstone,
		snapshot.UpdatedAt.UnixNano(),
	)
	if err != nil {
		return goerr.Wrap(err, "failed to upsert snapshot",
			goerr.V("entity_type", snapshot.EntityType), goerr.V("entity_id", snapshot.EntityID))
	}
	return nil
}

func (r *cacheRepository) Delete(ctx context.Context, entityType types.EntityType, entityID types.EntityID) error {
	_, err := r.db.ExecContext(ctx, `
		DELETE FROM entity_cache WHERE entity_type = ? AND entity_id = ?`,
		entityType.String(), entityID.String())
	if err != nil {
		return goerr.Wrap(err, "failed to delete snapshot",
			goerr.V("entity_type", entityType), goerr.V("entity_id", entityID))
	}
	return nil
}
