// Package store holds the persistence contract the ledger requires: a
// whole-map load and an atomic whole-map save of account records. Engine
// internals (sessions, pending invoices) are deliberately not persisted.
package store

import (
	"context"

	"casa-backend/internal/models"
)

type Store interface {
	Load(ctx context.Context) (map[int64]models.Account, error)
	// Save must be atomic-replace: a failed write leaves the previous
	// state intact.
	Save(ctx context.Context, accounts map[int64]models.Account) error
}
