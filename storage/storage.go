// Package storage is the per-session key-value store that stands in for
// browser local storage.
package storage

import (
	"context"
	"errors"
	"sync"
)

// Well-known keys.
const (
	TokenKey = "token"
	CartKey  = "cart"
)

var ErrNotFound = errors.New("storage: key not found")

// Storage is a string key-value store.
type Storage interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// Memory is a process-local Storage.
type Memory struct {
	mu   sync.RWMutex
	data map[string]string
}

func NewMemory() *Memory {
	return &Memory{data: make(map[string]string)}
}

func (m *Memory) Get(_ context.Context, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

func (m *Memory) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	m.data[key] = value
	m.mu.Unlock()
	return nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.data, key)
	m.mu.Unlock()
	return nil
}

type prefixed struct {
	prefix string
	next   Storage
}

// Prefixed scopes every key of s under prefix.
func Prefixed(s Storage, prefix string) Storage {
	return &prefixed{prefix: prefix, next: s}
}

func (p *prefixed) Get(ctx context.Context, key string) (string, error) {
	return p.next.Get(ctx, p.prefix+key)
}

func (p *prefixed) Set(ctx context.Context, key, value string) error {
	return p.next.Set(ctx, p.prefix+key, value)
}

func (p *prefixed) Delete(ctx context.Context, key string) error {
	return p.next.Delete(ctx, p.prefix+key)
}
