package store

import "context"

// Store is the read-only boundary to the platform's entity storage.
type Store interface {
	// DepositProcess returns the deposit process by id.
	DepositProcess(ctx context.Context, id uint64) (DepositProcess, error)
}
