package cache

import (
	"context"
	"sync"
	"time"
)

type memoryItem struct {
	value   string
	expires time.Time // zero = no ttl
}

const memorySweepInterval = time.Minute

// Memory is an in-process Cache. Expired entries are removed on Get, and
// keys that are never read again are swept on Set at most once a minute.
type Memory struct {
	mu        sync.Mutex
	data      map[string]memoryItem
	now       func() time.Time
	lastSweep time.Time
}

func NewMemory() *Memory {
	return &Memory{data: make(map[string]memoryItem), now: time.Now}
}

func (m *Memory) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	item, ok := m.data[key]
	if !ok {
		return "", ErrMiss
	}
	if !item.expires.IsZero() && !m.now().Before(item.expires) {
		delete(m.data, key)
		return "", ErrMiss
	}
	return item.value, nil
}

func (m *Memory) Set(_ context.Context, key string, value string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if now.Sub(m.lastSweep) >= memorySweepInterval {
		m.sweep(now)
	}

	var exp time.Time
	if ttl > 0 {
		exp = now.Add(ttl)
	}
	m.data[key] = memoryItem{value: value, expires: exp}
	return nil
}

func (m *Memory) sweep(now time.Time) {
	for k, item := range m.data {
		if !item.expires.IsZero() && !now.Before(item.expires) {
			delete(m.data, k)
		}
	}
	m.lastSweep = now
}

func (m *Memory) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}
