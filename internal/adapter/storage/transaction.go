package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/techcsc21/paybridge/internal/core/domain"
)

// TransactionRepository persists deposit transactions. Amounts are stored as
// integer minor units; metadata is a jsonb bag merged with the || operator so
// concurrent writers can only extend it, never replace it.
type TransactionRepository struct {
	Db *pgxpool.Pool
}

func NewTransactionRepository(db *pgxpool.Pool) *TransactionRepository {
	return &TransactionRepository{Db: db}
}

const transactionColumns = `id, uuid, reference, account_id, kind, status, amount_minor, currency, metadata, created_at, updated_at`

func (r *TransactionRepository) CreateTransaction(ctx context.Context, tx *domain.Transaction) error {
	metaJSON, err := json.Marshal(tx.Metadata)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}

	query := `
		INSERT INTO transactions (uuid, reference, account_id, kind, status, amount_minor, currency, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at
	`
	err = r.Db.QueryRow(ctx, query,
		tx.UUID, tx.Reference, tx.AccountID, tx.Kind, tx.Status,
		domain.MinorUnits(tx.Amount), tx.Currency, metaJSON,
	).Scan(&tx.ID, &tx.CreatedAt, &tx.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create transaction: %w", err)
	}
	return nil
}

func (r *TransactionRepository) FindByReference(ctx context.Context, reference string) (*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE reference = $1`
	tx, err := scanTransaction(r.Db.QueryRow(ctx, query, reference))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find transaction: %w", err)
	}
	return tx, nil
}

func (r *TransactionRepository) ListByAccount(ctx context.Context, accountID uuid.UUID, limit int) ([]domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions
		WHERE account_id = $1 ORDER BY created_at DESC LIMIT $2`

	rows, err := r.Db.Query(ctx, query, accountID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	var out []domain.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		out = append(out, *tx)
	}
	return out, rows.Err()
}

func (r *TransactionRepository) MergeMetadata(ctx context.Context, reference string, patch domain.Metadata) error {
	patchJSON, err := json.Marshal(patch)
	if err != nil {
		return fmt.Errorf("marshal metadata patch: %w", err)
	}

	tag, err := r.Db.Exec(ctx,
		`UPDATE transactions SET metadata = metadata || $2::jsonb, updated_at = now() WHERE reference = $1`,
		reference, patchJSON)
	if err != nil {
		return fmt.Errorf("failed to merge metadata: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Resolve performs the guarded status transition. The conditional UPDATE on
// status = 'PENDING' is the race guard: two concurrent deliveries of the same
// success both reach here, only one affects a row. The wallet credit runs in
// the same database transaction, so a failed credit rolls the transition back.
func (r *TransactionRepository) Resolve(ctx context.Context, reference string, to domain.TransactionStatus, patch domain.Metadata, credit bool) (bool, error) {
	patchJSON, err := json.Marshal(patch)
	if err != nil {
		return false, fmt.Errorf("marshal metadata patch: %w", err)
	}

	dbTx, err := r.Db.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer dbTx.Rollback(ctx)

	tag, err := dbTx.Exec(ctx, `
		UPDATE transactions
		SET status = $2, metadata = metadata || $3::jsonb, updated_at = now()
		WHERE reference = $1 AND status = 'PENDING'`,
		reference, to, patchJSON)
	if err != nil {
		return false, fmt.Errorf("failed to transition transaction: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return false, nil
	}

	if credit {
		var accountID uuid.UUID
		var amountMinor int64
		var currency string
		err = dbTx.QueryRow(ctx,
			`SELECT account_id, amount_minor, currency FROM transactions WHERE reference = $1`,
			reference).Scan(&accountID, &amountMinor, &currency)
		if err != nil {
			return false, fmt.Errorf("failed to load transaction for credit: %w", err)
		}
		if err := creditWallet(ctx, dbTx, accountID, currency, amountMinor); err != nil {
			return false, err
		}
	}

	return true, dbTx.Commit(ctx)
}

// ListStalePending returns PENDING deposits created before the cutoff that
// have not exhausted their requery attempts. Used by the requery worker.
func (r *TransactionRepository) ListStalePending(ctx context.Context, cutoff time.Time, limit int) ([]domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions
		WHERE status = 'PENDING' AND created_at < $1 AND requery_attempts < 5
		ORDER BY created_at ASC LIMIT $2`

	rows, err := r.Db.Query(ctx, query, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list stale transactions: %w", err)
	}
	defer rows.Close()

	var out []domain.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		out = append(out, *tx)
	}
	return out, rows.Err()
}

func (r *TransactionRepository) MarkRequeried(ctx context.Context, reference string) error {
	_, err := r.Db.Exec(ctx,
		`UPDATE transactions SET requery_attempts = requery_attempts + 1 WHERE reference = $1`,
		reference)
	return err
}

func scanTransaction(row pgx.Row) (*domain.Transaction, error) {
	var tx domain.Transaction
	var amountMinor int64
	var metaJSON []byte

	err := row.Scan(&tx.ID, &tx.UUID, &tx.Reference, &tx.AccountID, &tx.Kind, &tx.Status,
		&amountMinor, &tx.Currency, &metaJSON, &tx.CreatedAt, &tx.UpdatedAt)
	if err != nil {
		return nil, err
	}

	tx.Amount = decimal.New(amountMinor, -2)
	if len(metaJSON) > 0 {
		if err := json.Unmarshal(metaJSON, &tx.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshal metadata: %w", err)
		}
	}
	return &tx, nil
}
