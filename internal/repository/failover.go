package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"tms/internal/domain"

	"github.com/rs/zerolog"
)

const recoveryInterval = time.Minute

// ErrPrimaryUnavailable is returned for reads the fallback cannot answer
// while the primary is down.
var ErrPrimaryUnavailable = errors.New("primary snapshot store unavailable")

// FailoverSnapshotStore writes through to both stores and reads from the
// primary while it is healthy. Keys written during an outage are copied back
// to the primary once it answers again. While the primary is down only keys
// the fallback holds an authoritative copy of are served; a missing blob there
// does not mean the key is absent.
type FailoverSnapshotStore struct {
	primary  domain.SnapshotStore
	fallback domain.SnapshotStore
	logger   *zerolog.Logger
	isDown   atomic.Bool

	mu        sync.Mutex
	lastCheck time.Time
	dirty     map[string]bool
	known     map[string]bool
}

func NewFailoverSnapshotStore(primary, fallback domain.SnapshotStore, logger *zerolog.Logger) *FailoverSnapshotStore {
	return &FailoverSnapshotStore{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
		dirty:    make(map[string]bool),
		known:    make(map[string]bool),
	}
}

func (r *FailoverSnapshotStore) markDown(err error) {
	r.logger.Error().Err(err).Msg("Primary snapshot store failed, falling back to memory")
	r.isDown.Store(true)
	r.mu.Lock()
	r.lastCheck = time.Now()
	r.mu.Unlock()
}

func (r *FailoverSnapshotStore) markDirty(key string) {
	r.mu.Lock()
	r.dirty[key] = true
	r.mu.Unlock()
}

// markKnown records that the fallback mirrors the current value of key.
func (r *FailoverSnapshotStore) markKnown(key string) {
	r.mu.Lock()
	r.known[key] = true
	r.mu.Unlock()
}

func (r *FailoverSnapshotStore) isKnown(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.known[key]
}

// tryRecover probes the primary at most once per recoveryInterval and
// replays keys changed while it was down.
func (r *FailoverSnapshotStore) tryRecover(ctx context.Context) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if time.Since(r.lastCheck) <= recoveryInterval {
		return false
	}
	r.lastCheck = time.Now()

	for key := range r.dirty {
		data, err := r.fallback.Load(ctx, key)
		if err != nil {
			return false
		}
		if data == nil {
			err = r.primary.Delete(ctx, key)
		} else {
			err = r.primary.Save(ctx, key, data)
		}
		if err != nil {
			return false
		}
		delete(r.dirty, key)
	}

	// Nothing to replay still needs a successful round trip.
	if _, err := r.primary.Load(ctx, "__ping__"); err != nil {
		return false
	}

	r.isDown.Store(false)
	r.logger.Info().Msg("Primary snapshot store recovered")
	return true
}

func (r *FailoverSnapshotStore) Load(ctx context.Context, key string) ([]byte, error) {
	if r.isDown.Load() {
		r.tryRecover(ctx)
	}

	if !r.isDown.Load() {
		data, err := r.primary.Load(ctx, key)
		if err == nil {
			if data != nil {
				if err := r.fallback.Save(ctx, key, data); err != nil {
					r.logger.Warn().Err(err).Str("key", key).Msg("fallback cache write failed")
					return data, nil
				}
			}
			r.markKnown(key)
			return data, nil
		}
		r.markDown(err)
	}

	if !r.isKnown(key) {
		return nil, fmt.Errorf("%w: %s not cached", ErrPrimaryUnavailable, key)
	}
	return r.fallback.Load(ctx, key)
}

func (r *FailoverSnapshotStore) Save(ctx context.Context, key string, data []byte) error {
	if r.isDown.Load() {
		r.tryRecover(ctx)
	}

	if err := r.fallback.Save(ctx, key, data); err != nil {
		return err
	}
	r.markKnown(key)

	if !r.isDown.Load() {
		err := r.primary.Save(ctx, key, data)
		if err == nil {
			return nil
		}
		r.markDown(err)
	}

	r.markDirty(key)
	return nil
}

func (r *FailoverSnapshotStore) Delete(ctx context.Context, key string) error {
	if r.isDown.Load() {
		r.tryRecover(ctx)
	}

	if err := r.fallback.Delete(ctx, key); err != nil {
		return err
	}
	r.markKnown(key)

	if !r.isDown.Load() {
		err := r.primary.Delete(ctx, key)
		if err == nil {
			return nil
		}
		r.markDown(err)
	}

	r.markDirty(key)
	return nil
}

// Healthy reports whether the primary is currently in use.
func (r *FailoverSnapshotStore) Healthy() bool {
	return !r.isDown.Load()
}
