package service

import (
	"sort"
	"sync"
)

// AdminRegistry is the in-memory set of admin user ids. Changes are lost on restart.
type AdminRegistry struct {
	mu  sync.RWMutex
	ids map[int64]struct{}
}

func NewAdminRegistry(seed []int64) *AdminRegistry {
	r := &AdminRegistry{ids: make(map[int64]struct{}, len(seed))}
	for _, id := range seed {
		r.ids[id] = struct{}{}
	}
	return r
}

func (r *AdminRegistry) IsAdmin(userID int64) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.ids[userID]
	return ok
}

// Add returns false when the user was already an admin.
func (r *AdminRegistry) Add(userID int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.ids[userID]; ok {
		return false
	}
	r.ids[userID] = struct{}{}
	return true
}

// Remove returns false when the user was not an admin.
func (r *AdminRegistry) Remove(userID int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.ids[userID]; !ok {
		return false
	}
	delete(r.ids, userID)
	return true
}

func (r *AdminRegistry) List() []int64 {
	r.mu.RLock()
	ids := make([]int64, 0, len(r.ids))
	for id := range r.ids {
		ids = append(ids, id)
	}
	r.mu.RUnlock()
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (r *AdminRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.ids)
}
