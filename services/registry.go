package services

import (
	"sync"

	"github.com/courtsync/courtsync/state"
)

// ManagerRegistry maps running tournaments to their live state managers.
// Shared between the tournament and match services.
type ManagerRegistry struct {
	mu       sync.RWMutex
	managers map[string]*state.Manager
}

func NewManagerRegistry() *ManagerRegistry {
	return &ManagerRegistry{managers: make(map[string]*state.Manager)}
}

func (r *ManagerRegistry) Get(tournamentID string) (*state.Manager, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.managers[tournamentID]
	return m, ok
}

func (r *ManagerRegistry) Put(tournamentID string, m *state.Manager) {
	r.mu.Lock()
	r.managers[tournamentID] = m
	r.mu.Unlock()
}

func (r *ManagerRegistry) Remove(tournamentID string) {
	r.mu.Lock()
	if m, ok := r.managers[tournamentID]; ok {
		m.Close()
		delete(r.managers, tournamentID)
	}
	r.mu.Unlock()
}
