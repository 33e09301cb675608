package payment

import (
	"context"

	"github.com/google/uuid"

	"github.com/techcsc21/paybridge/internal/core/domain"
)

// Store is the persistence contract for deposits and their wallets. The core
// only talks to this interface, never to a concrete database.
type Store interface {
	CreateTransaction(ctx context.Context, tx *domain.Transaction) error
	FindByReference(ctx context.Context, reference string) (*domain.Transaction, error)
	ListByAccount(ctx context.Context, accountID uuid.UUID, limit int) ([]domain.Transaction, error)

	// MergeMetadata extends the transaction's metadata bag without touching
	// its status.
	MergeMetadata(ctx context.Context, reference string, patch domain.Metadata) error

	// Resolve atomically moves a PENDING transaction to the given status and
	// merges patch into its metadata. With credit set, the owner's wallet is
	// increased by the stored amount (created if absent) in the same database
	// transaction, so the status change and the ledger credit commit or fail
	// as one unit. Returns false when the row was no longer PENDING, in which
	// case nothing was written.
	Resolve(ctx context.Context, reference string, to domain.TransactionStatus, patch domain.Metadata, credit bool) (bool, error)
}
