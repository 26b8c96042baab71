package database

import (
	"context"
	"sync"
	"time"

	"shortlink/internal/types"
)

// Memory is a process-local store. Links are lost on restart and are not
// shared between processes, so it only suits tests and local runs.
type Memory struct {
	mu    sync.Mutex
	links map[string]*types.ShortLink
}

func NewMemory() *Memory {
	return &Memory{links: make(map[string]*types.ShortLink)}
}

func (m *Memory) InsertIfAbsent(_ context.Context, link *types.ShortLink) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.links[link.Code]; ok {
		return false, nil
	}
	stored := link.Clone()
	stored.ClickCount = 0
	stored.LastAccessedAt = nil
	m.links[link.Code] = stored
	return true, nil
}

func (m *Memory) Get(_ context.Context, code string) (*types.ShortLink, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	link, ok := m.links[code]
	if !ok {
		return nil, nil
	}
	return link.Clone(), nil
}

func (m *Memory) IncrementAndTouch(_ context.Context, code string, now time.Time) (*types.ShortLink, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	link, ok := m.links[code]
	if !ok {
		return nil, nil
	}
	link.ClickCount++
	link.LastAccessedAt = &now
	return link.Clone(), nil
}

func (m *Memory) Close() error { return nil }
