package realtime

import (
	"context"
	"sort"
	"sync"
)

type OnlineUser struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

// Presence tracks which users hold at least one open socket.
// Add reports whether this was the user's first connection and Remove
// whether it was the last.
type Presence interface {
	Add(ctx context.Context, userID uint, name string) (bool, error)
	Remove(ctx context.Context, userID uint) (bool, error)
	IsOnline(ctx context.Context, userID uint) (bool, error)
	List(ctx context.Context) ([]OnlineUser, error)
}

type presenceEntry struct {
	name  string
	conns int
}

// MemoryPresence is only correct for a single process.
type MemoryPresence struct {
	mu    sync.Mutex
	users map[uint]*presenceEntry
}

func NewMemoryPresence() *MemoryPresence {
	return &MemoryPresence{users: make(map[uint]*presenceEntry)}
}

func (p *MemoryPresence) Add(_ context.Context, userID uint, name string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	entry, ok := p.users[userID]
	if !ok {
		p.users[userID] = &presenceEntry{name: name, conns: 1}
		return true, nil
	}
	entry.conns++
	entry.name = name
	return false, nil
}

func (p *MemoryPresence) Remove(_ context.Context, userID uint) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	entry, ok := p.users[userID]
	if !ok {
		return false, nil
	}
	entry.conns--
	if entry.conns <= 0 {
		delete(p.users, userID)
		return true, nil
	}
	return false, nil
}

func (p *MemoryPresence) IsOnline(_ context.Context, userID uint) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.users[userID]
	return ok, nil
}

func (p *MemoryPresence) List(_ context.Context) ([]OnlineUser, error) {
	p.mu.Lock()
	out := make([]OnlineUser, 0, len(p.users))
	for id, entry := range p.users {
		out = append(out, OnlineUser{ID: id, Name: entry.name})
	}
	p.mu.Unlock()

	sortOnline(out)
	return out, nil
}

func sortOnline(users []OnlineUser) {
	sort.Slice(users, func(i, j int) bool {
		if users[i].Name != users[j].Name {
			return users[i].Name < users[j].Name
		}
		return users[i].ID < users[j].ID
	})
}
