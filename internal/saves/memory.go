package saves

import (
	"context"
	"sync"
	"time"
)

// MemoryRepository keeps saves in process memory. It backs tests and
// servers started without a redis address.
type MemoryRepository struct {
	mu    sync.RWMutex
	slots map[string][SlotCount]*SaveData
}

// NewMemoryRepository builds an empty in-memory store.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{slots: make(map[string][SlotCount]*SaveData)}
}

var _ Repository = (*MemoryRepository)(nil)

func (r *MemoryRepository) Save(ctx context.Context, data SaveData) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing := r.slots[data.PlayerID]
	slot := pickSlot(existing)
	r.store(&existing, slot, data)
	r.slots[data.PlayerID] = existing
	return slot, nil
}

func (r *MemoryRepository) SaveSlot(ctx context.Context, slot int, data SaveData) error {
	if !validSlot(slot) {
		return ErrInvalidSlot
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	existing := r.slots[data.PlayerID]
	r.store(&existing, slot, data)
	r.slots[data.PlayerID] = existing
	return nil
}

func (r *MemoryRepository) store(existing *[SlotCount]*SaveData, slot int, data SaveData) {
	data.SchemaVersion = SchemaVersion
	if data.SavedAt.IsZero() {
		data.SavedAt = time.Now()
	}
	copied := data
	existing[slot] = &copied
}

func (r *MemoryRepository) Load(ctx context.Context, playerID string, slot int) (SaveData, error) {
	if !validSlot(slot) {
		return SaveData{}, ErrInvalidSlot
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	data := r.slots[playerID][slot]
	if !usable(data) {
		return SaveData{}, ErrNoSlot
	}
	return *data, nil
}

func (r *MemoryRepository) List(ctx context.Context, playerID string) ([SlotCount]*SaveData, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out [SlotCount]*SaveData
	for i, data := range r.slots[playerID] {
		if !usable(data) {
			continue
		}
		copied := *data
		out[i] = &copied
	}
	return out, nil
}

func (r *MemoryRepository) Delete(ctx context.Context, playerID string, slot int) error {
	if !validSlot(slot) {
		return ErrInvalidSlot
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.slots[playerID]
	if !ok {
		return nil
	}
	existing[slot] = nil
	r.slots[playerID] = existing
	return nil
}
