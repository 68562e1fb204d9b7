package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"time"

	"github.com/hearthlist/relay/pkg/domain/model"
	"github.com/hearthlist/relay/pkg/domain/types"
	"github.com/m-mizutani/goerr/v2"
)

type queueRepository struct {
	db *sql.DB
}

func (r *queueRepository) Add(ctx context.Context, action *model.ActionRecord) error {
	payload, header, err := encodeAction(action)
	if err != nil {
		return err
	}

	var exists int
	err = r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM action_queue WHERE id = ?`, action.ID.String()).Scan(&exists)
	if err != nil {
		return goerr.Wrap(err, "failed to check queued action", goerr.V("id", action.ID))
	}
	if exists > 0 {
		return goerr.Wrap(ErrDuplicate, "action already queued", goerr.V("id", action.ID))
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO action_queue
			(id, seq, kind, entity_type, entity_id, payload, method, path, header,
			 enqueued_at, retry_count, max_retries, state)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		action.ID.String(),
		action.Seq,
		action.Kind.String(),
		action.EntityType.String(),
		action.EntityID.String(),
		payload,
		action.Target.Method,
		action.Target.Path,
		header,
		action.EnqueuedAt.UnixNano(),
		action.RetryCount,
		action.MaxRetries,
		action.State.String(),
	)
	if err != nil {
		return goerr.Wrap(err, "failed to insert action", goerr.V("id", action.ID))
	}
	return nil
}

func (r *queueRepository) ListAll(ctx context.Context) ([]*model.ActionRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, seq, kind, entity_type, entity_id, payload, method, path, header,
		       enqueued_at, retry_count, max_retries, state
		FROM action_queue ORDER BY seq ASC`)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to query action queue")
	}
	defer func() { _ = rows.Close() }()

	actions := make([]*model.ActionRecord, 0)
	for rows.Next() {
		action, err := scanAction(rows)
		if err != nil {
			return nil, err
		}
		actions = append(actions, action)
	}
	if err := rows.Err(); err != nil {
		return nil, goerr.Wrap(err, "failed to iterate action queue")
	}
	return actions, nil
}

func (r *queueRepository) Update(ctx context.Context, action *model.ActionRecord) error {
	payload, header, err := encodeAction(action)
	if err != nil {
		return err
	}

	res, err := r.db.ExecContext(ctx, `
		UPDATE action_queue
		SET entity_id = ?, payload = ?, method = ?, path = ?, header = ?,
		    retry_count = ?, state = ?
		WHERE id = ?`,
		action.EntityID.String(),
		payload,
		action.Target.Method,
		action.Target.Path,
		header,
		action.RetryCount,
		action.State.String(),
		action.ID.String(),
	)
	if err != nil {
		return goerr.Wrap(err, "failed to update action", goerr.V("id", action.ID))
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return goerr.Wrap(err, "failed to read update result", goerr.V("id", action.ID))
	}
	if affected == 0 {
		return goerr.Wrap(ErrNotFound, "action not found", goerr.V("id", action.ID))
	}
	return nil
}

func (r *queueRepository) Remove(ctx context.Context, id types.ActionID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM action_queue WHERE id = ?`, id.String())
	if err != nil {
		return goerr.Wrap(err, "failed to delete action", goerr.V("id", id))
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return goerr.Wrap(err, "failed to read delete result", goerr.V("id", id))
	}
	if affected == 0 {
		return goerr.Wrap(ErrNotFound, "action not found", goerr.V("id", id))
	}
	return nil
}

func encodeAction(action *model.ActionRecord) (payload, header sql.NullString, err error) {
	if action.Payload != nil {
		raw, err := json.Marshal(action.Payload)
		if err != nil {
			return payload, header, goerr.Wrap(err, "failed to encode payload", goerr.V("id", action.ID))
		}
		payload = sql.NullString{String: string(raw), Valid: true}
	}
	if action.Target.Header != nil {
		raw, err := json.Marshal(action.Target.Header)
		if err != nil {
			return payload, header, goerr.Wrap(err, "failed to encode header", goerr.V("id", action.ID))
		}
		header = sql.NullString{String: string(raw), Valid: true}
	}
	return payload, header, nil
}

func scanAction(rows *sql.Rows) (*model.ActionRecord, error) {
	var (
		id, kind, entityType, entityID, method, path, state string
		payload, header                                     sql.NullString
		seq, enqueuedAt                                     int64
		retryCount, maxRetries                              int
	)

	if err := rows.Scan(&id, &seq, &kind, &entityType, &entityID, &payload,
		&method, &path, &header, &enqueuedAt, &retryCount, &maxRetries, &state); err != nil {
		return nil, goerr.Wrap(err, "failed to scan action row")
	}

	action := &model.ActionRecord{
		ID:         types.ActionID(id),
		Kind:       types.ActionKind(kind),
		EntityType: types.EntityType(entityType),
		EntityID:   types.EntityID(entityID),
		Target: model.Target{
			Method: method,
			Path:   path,
		},
		Seq:        seq,
		EnqueuedAt: time.Unix(0, enqueuedAt).UTC(),
		RetryCount: retryCount,
		MaxRetries: maxRetries,
		State:      types.ActionState(state),
	}

	if payload.Valid {
		if err := json.Unmarshal([]byte(payload.String), &action.Payload); err != nil {
			return nil, goerr.Wrap(err, "failed to decode payload", goerr.V("id", id))
		}
	}
	if header.Valid {
		var h http.Header
		if err := json.Unmarshal([]byte(header.String), &h); err != nil {
			return nil, goerr.Wrap(err, "failed to decode header", goerr.V("id", id))
		}
		action.Target.Header = h
	}

	return action, nil
}
