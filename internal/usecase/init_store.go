// Package usecase contains the application use cases.
package usecase

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/lollopanta/Projex-sub000/internal/domain"
)

// InitStoreInput contains the input parameters for InitStore.
type InitStoreInput struct {
	DataDir string // Path to the .projex directory
}

// InitStoreOutput contains the output from InitStore.
type InitStoreOutput struct {
	DataDir            string // Path to the data directory
	AlreadyInitialized bool   // True if the store existed before
}

// InitStore initializes a workspace: data directory, logs directory and entity store.
type InitStore struct {
	storeInit domain.StoreInitializer
}

// NewInitStore creates a new InitStore use case.
func NewInitStore(storeInit domain.StoreInitializer) *InitStore {
	return &InitStore{storeInit: storeInit}
}

// Execute creates the data directory layout and initializes the store.
// Running it again on an initialized workspace is harmless.
func (uc *InitStore) Execute(_ context.Context, in InitStoreInput) (*InitStoreOutput, error) {
	alreadyInitialized := uc.storeInit.IsInitialized()

	if !alreadyInitialized {
		if err := os.MkdirAll(in.DataDir, 0o750); err != nil {
			return nil, fmt.Errorf("create data directory: %w", err)
		}
		if err := os.MkdirAll(filepath.Join(in.DataDir, "logs"), 0o750); err != nil {
			return nil, fmt.Errorf("create logs directory: %w", err)
		}
	}

	if err := uc.storeInit.Initialize(); err != nil {
		return nil, fmt.Errorf("initialize store: %w", err)
	}

	return &InitStoreOutput{
		DataDir:            in.DataDir,
		AlreadyInitialized: alreadyInitialized,
	}, nil
}
