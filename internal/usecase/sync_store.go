package usecase

import (
	"context"
	"fmt"

	"github.com/lollopanta/Projex-sub000/internal/domain"
)

// SyncStoreInput contains the parameters for SyncStore.
type SyncStoreInput struct {
	Fetch bool // Fetch from the remote instead of pushing to it
}

// SyncStore pushes the store to, or fetches it from, the origin remote.
type SyncStore struct {
	syncer domain.Syncer
	logger domain.Logger
}

// NewSyncStore creates a new SyncStore use case. syncer is nil for backends
// that cannot sync.
func NewSyncStore(syncer domain.Syncer, logger domain.Logger) *SyncStore {
	return &SyncStore{syncer: syncer, logger: logger}
}

// Execute runs the push or fetch.
func (uc *SyncStore) Execute(_ context.Context, in SyncStoreInput) error {
	if uc.syncer == nil {
		return domain.ErrSyncUnsupported
	}
	op, run := "push", uc.syncer.Push
	if in.Fetch {
		op, run = "fetch", uc.syncer.Fetch
	}
	if err := run(); err != nil {
		return fmt.Errorf("%s store: %w", op, err)
	}
	if uc.logger != nil {
		uc.logger.Info("", "sync", op+" complete")
	}
	return nil
}
