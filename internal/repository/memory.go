package repository

import (
	"context"
	"sync"
)

// MemorySnapshotStore keeps snapshots in process memory.
type MemorySnapshotStore struct {
	blobs sync.Map
}

func NewMemorySnapshotStore() *MemorySnapshotStore {
	return &MemorySnapshotStore{}
}

func (r *MemorySnapshotStore) Load(ctx context.Context, key string) ([]byte, error) {
	val, ok := r.blobs.Load(key)
	if !ok {
		return nil, nil
	}
	return append([]byte(nil), val.([]byte)...), nil
}

func (r *MemorySnapshotStore) Save(ctx context.Context, key string, data []byte) error {
	r.blobs.Store(key, append([]byte(nil), data...))
	return nil
}

func (r *MemorySnapshotStore) Delete(ctx context.Context, key string) error {
	r.blobs.Delete(key)
	return nil
}

// Keys lists the stored keys in no particular order.
func (r *MemorySnapshotStore) Keys() []string {
	var keys []string
	r.blobs.Range(func(k, _ interface{}) bool {
		keys = append(keys, k.(string))
		return true
	})
	return keys
}
