package memory

import (
	"github.com/hearthlist/relay/pkg/domain/interfaces"
)

// Memory is an in-memory repository. Nothing survives a process restart;
// it backs tests and development mode.
type Memory struct {
	queue *queueRepository
	cache *cacheRepository
}

var _ interfaces.Repository = &Memory{}

func New() *Memory {
	return &Memory{
		queue: newQueueRepository(),
		cache: newCacheRepository(),
	}
}

func (m *Memory) Queue() interfaces.QueueRepository {
	return m.queue
}

func (m *Memory) Cache() interfaces.CacheRepository {
	return m.cache
}

func (m *Memory) Close() error {
	return nil
}
