package storage

import (
	"fmt"
	"sync"
)

// KeyLock serializes read-mutate-persist sequences per (store, user). The
// transport layer may run operations for one user concurrently; without this
// lock they would race to overwrite each other's full-file rewrites.
type KeyLock struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewKeyLock() *KeyLock {
	return &KeyLock{locks: make(map[string]*sync.Mutex)}
}

func (k *KeyLock) get(key string) *sync.Mutex {
	k.mu.Lock()
	defer k.mu.Unlock()

	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	return m
}

// Lock acquires the lock for (store, userID) and returns its unlock func.
func (k *KeyLock) Lock(store string, userID int64) func() {
	m := k.get(fmt.Sprintf("%s/%d", store, userID))
	m.Lock()
	return m.Unlock
}
