package kvstore

import (
	"context"
	"sync"
	"time"

	"tutor-service/common/metrics"
)

// Memory keeps values in process memory. Used for demo mode and tests.
type Memory struct {
	mu      sync.RWMutex
	values  map[string][]byte
	size    int64
	quota   int64
	metrics *metrics.Metrics
}

func NewMemory(quota int64, m *metrics.Metrics) *Memory {
	if quota <= 0 {
		quota = DefaultQuotaBytes
	}
	return &Memory{
		values:  make(map[string][]byte),
		quota:   quota,
		metrics: m,
	}
}

func (s *Memory) Get(ctx context.Context, key string) ([]byte, error) {
	start := time.Now()
	s.mu.RLock()
	v, ok := s.values[key]
	s.mu.RUnlock()

	s.record(ctx, "get", key, start, nil)
	if !ok {
		return nil, ErrNotFound
	}

	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (s *Memory) Set(ctx context.Context, key string, value []byte) error {
	start := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.size - int64(len(s.values[key])) + int64(len(value))
	if next > s.quota {
		err := quotaError(key, next, s.quota)
		s.record(ctx, "set", key, start, err)
		return err
	}

	stored := make([]byte, len(value))
	copy(stored, value)
	s.values[key] = stored
	s.size = next

	s.record(ctx, "set", key, start, nil)
	return nil
}

func (s *Memory) Delete(ctx context.Context, key string) error {
	start := time.Now()
	s.mu.Lock()
	s.size -= int64(len(s.values[key]))
	delete(s.values, key)
	s.mu.Unlock()

	s.record(ctx, "delete", key, start, nil)
	return nil
}

func (s *Memory) Close() error {
	return nil
}

func (s *Memory) record(ctx context.Context, op, key string, start time.Time, err error) {
	if s.metrics != nil {
		s.metrics.Store.RecordQuery(ctx, op, key, time.Since(start), err)
	}
}
