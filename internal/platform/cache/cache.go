// Package cache provides a small TTL cache port with an in-memory implementation.
// Values are stored as opaque bytes so callers control their own encoding
package cache

import (
	"strings"
	"sync"
	"time"
)

// Cache is the read-through surface handlers and services use
type Cache interface {
	// Get returns the value and true when present and not expired
	Get(key string) ([]byte, bool)
	// Set stores value under key for ttl, ttl <= 0 means no expiry
	Set(key string, value []byte, ttl time.Duration)
	// Delete removes a single key
	Delete(key string)
	// DeletePrefix removes every key with the given prefix
	DeletePrefix(prefix string)
	// Len reports live (non-expired) entries, mainly for tests and stats
	Len() int
}

type entry struct {
	value     []byte
	expiresAt time.Time // zero means no expiry
}

func (e entry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// Memory is a concurrency-safe in-process cache with lazy expiry and a
// background sweep
type Memory struct {
	mu      sync.RWMutex
	items   map[string]entry
	stopped chan struct{}
	once    sync.Once

	// test seam
	now func() time.Time
}

// NewMemory builds a Memory cache. sweep <= 0 disables the background sweeper
// and expiry happens lazily on Get
func NewMemory(sweep time.Duration) *Memory {
	m := &Memory{
		items:   make(map[string]entry),
		stopped: make(chan struct{}),
		now:     time.Now,
	}
	if sweep > 0 {
		go m.sweepLoop(sweep)
	}
	return m
}

// Get returns the cached value when present and fresh
func (m *Memory) Get(key string) ([]byte, bool) {
	m.mu.RLock()
	e, ok := m.items[key]
	m.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if e.expired(m.now()) {
		m.Delete(key)
		return nil, false
	}
	return e.value, true
}

// Set stores value under key for ttl
func (m *Memory) Set(key string, value []byte, ttl time.Duration) {
	e := entry{value: value}
	if ttl > 0 {
		e.expiresAt = m.now().Add(ttl)
	}
	m.mu.Lock()
	m.items[key] = e
	m.mu.Unlock()
}

// Delete removes a single key
func (m *Memory) Delete(key string) {
	m.mu.Lock()
	delete(m.items, key)
	m.mu.Unlock()
}

// DeletePrefix removes every key with the given prefix
func (m *Memory) DeletePrefix(prefix string) {
	m.mu.Lock()
	for k := range m.items {
		if strings.HasPrefix(k, prefix) {
			delete(m.items, k)
		}
	}
	m.mu.Unlock()
}

// Len reports live entries
func (m *Memory) Len() int {
	now := m.now()
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, e := range m.items {
		if !e.expired(now) {
			n++
		}
	}
	return n
}

// Close stops the background sweeper, safe to call more than once
func (m *Memory) Close() {
	m.once.Do(func() { close(m.stopped) })
}

func (m *Memory) sweepLoop(every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-m.stopped:
			return
		case <-t.C:
			now := m.now()
			m.mu.Lock()
			for k, e := range m.items {
				if e.expired(now) {
					delete(m.items, k)
				}
			}
			m.mu.Unlock()
		}
	}
}
