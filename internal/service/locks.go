package service

import (
	"sync"

	"github.com/google/uuid"
)

// keyedMutex hands out one mutex per id. Entries are never evicted; the set
// of ids is bounded by the rows in the store.
type keyedMutex struct {
	mutexes sync.Map
}

// lock acquires the mutex for id and returns its unlock func.
func (k *keyedMutex) lock(id uuid.UUID) func() {
	value, _ := k.mutexes.LoadOrStore(id, &sync.Mutex{})
	mu := value.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}
