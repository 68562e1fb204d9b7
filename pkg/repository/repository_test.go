package repository_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/m-mizutani/gt"

	"github.com/hearthlist/relay/pkg/domain/interfaces"
	"github.com/hearthlist/relay/pkg/repository/memory"
	"github.com/hearthlist/relay/pkg/repository/sqlite"
)

func newMemoryRepo(t *testing.T) interfaces.Repository {
	t.Helper()
	return memory.New()
}

func newSQLiteRepo(t *testing.T) interfaces.Repository {
	t.Helper()

	repo, err := sqlite.New(context.Background(), filepath.Join(t.TempDir(), "relay.db"))
	gt.NoError(t, err).Required()
	t.Cleanup(func() {
		gt.NoError(t, repo.Close())
	})
	return repo
}

func TestMemoryQueueRepository(t *testing.T) {
	runQueueRepositoryTest(t, newMemoryRepo)
}

func TestSQLiteQueueRepository(t *testing.T) {
	runQueueRepositoryTest(t, newSQLiteRepo)
}

func TestMemoryCacheRepository(t *testing.T) {
	runCacheRepositoryTest(t, newMemoryRepo)
}

func TestSQLiteCacheRepository(t *testing.T) {
	runCacheRepositoryTest(t, newSQLiteRepo)
}
