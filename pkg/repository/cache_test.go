package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/m-mizutani/gt"

	"github.com/hearthlist/relay/pkg/domain/interfaces"
	"github.com/hearthlist/relay/pkg/domain/model"
)

func runCacheRepositoryTest(t *testing.T, newRepo func(t *testing.T) interfaces.Repository) {
	t.Helper()

	t.Run("Put and Get round-trips a snapshot", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		snapshot := &model.EntitySnapshot{
			EntityType: "task",
			EntityID:   "srv-42",
			Data:       model.Payload{"id": "srv-42", "title": "Buy milk"},
			UpdatedAt:  time.Now().UTC(),
		}
		gt.NoError(t, repo.Cache().Put(ctx, snapshot)).Required()

		got, err := repo.Cache().Get(ctx, "task", "srv-42")
		gt.NoError(t, err).Required()
		gt.Value(t, got.Data["title"]).Equal("Buy milk")
		gt.Bool(t, got.Tombstone).False()
	})

	t.Run("Get of unknown entity returns error", func(t *testing.T) {
		repo := newRepo(t)

		_, err := repo.Cache().Get(context.Background(), "task", "missing")
		gt.Error(t, err)
		gt.Bool(t, isNotFound(err)).True()
	})

	t.Run("Put replaces an existing snapshot", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		gt.NoError(t, repo.Cache().Put(ctx, &model.EntitySnapshot{
			EntityType: "task",
			EntityID:   "srv-1",
			Data:       model.Payload{"title": "old"},
			UpdatedAt:  time.Now().UTC(),
		})).Required()
		gt.NoError(t, repo.Cache().Put(ctx, &model.EntitySnapshot{
			EntityType: "task",
			EntityID:   "srv-1",
			Data:       model.Payload{"title": "new"},
			UpdatedAt:  time.Now().UTC(),
		})).Required()

		got, err := repo.Cache().Get(ctx, "task", "srv-1")
		gt.NoError(t, err).Required()
		gt.Value(t, got.Data["title"]).Equal("new")
	})

	t.Run("Tombstone is stored as explicit absence", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		gt.NoError(t, repo.Cache().Put(ctx, &model.EntitySnapshot{
			EntityType: "task",
			EntityID:   "srv-9",
			Tombstone:  true,
			UpdatedAt:  time.Now().UTC(),
		})).Required()

		got, err := repo.Cache().Get(ctx, "task", "srv-9")
		gt.NoError(t, err).Required()
		gt.Bool(t, got.Tombstone).True()
		gt.Value(t, got.Data).Nil()
	})

	t.Run("Snapshots are keyed by entity type and ID", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		gt.NoError(t, repo.Cache().Put(ctx, &model.EntitySnapshot{
			EntityType: "task",
			EntityID:   "1",
			Data:       model.Payload{"title": "a task"},
			UpdatedAt:  time.Now().UTC(),
		})).Required()
		gt.NoError(t, repo.Cache().Put(ctx, &model.EntitySnapshot{
			EntityType: "list",
			EntityID:   "1",
			Data:       model.Payload{"name": "groceries"},
			UpdatedAt:  time.Now().UTC(),
		})).Required()

		task, err := repo.Cache().Get(ctx, "task", "1")
		gt.NoError(t, err).Required()
		gt.Value(t, task.Data["title"]).Equal("a task")

		list, err := repo.Cache().Get(ctx, "list", "1")
		gt.NoError(t, err).Required()
		gt.Value(t, list.Data["name"]).Equal("groceries")
	})

	t.Run("Delete removes the entry including tombstones", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		gt.NoError(t, repo.Cache().Put(ctx, &model.EntitySnapshot{
			EntityType: "task",
			EntityID:   "temp-abc",
			Tombstone:  true,
			UpdatedAt:  time.Now().UTC(),
		})).Required()
		gt.NoError(t, repo.Cache().Delete(ctx, "task", "temp-abc")).Required()

		_, err := repo.Cache().Get(ctx, "task", "temp-abc")
		gt.Error(t, err)
		gt.Bool(t, isNotFound(err)).True()
	})

	t.Run("Get returns copies", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		gt.NoError(t, repo.Cache().Put(ctx, &model.EntitySnapshot{
			EntityType: "task",
			EntityID:   "srv-7",
			Data:       model.Payload{"title": "original"},
			UpdatedAt:  time.Now().UTC(),
		})).Required()

		first, err := repo.Cache().Get(ctx, "task", "srv-7")
		gt.NoError(t, err).Required()
		first.Data["title"] = "mutated"

		second, err := repo.Cache().Get(ctx, "task", "srv-7")
		gt.NoError(t, err).Required()
		gt.Value(t, second.Data["title"]).Equal("original")
	})
}
