package storage

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/techcsc21/paybridge/internal/core/domain"
)

// creditWallet increments (or creates) the account's wallet inside the given
// database transaction. The addition happens in SQL, not read-modify-write in
// Go, so concurrent unrelated deposits cannot lose updates.
func creditWallet(ctx context.Context, tx pgx.Tx, accountID uuid.UUID, currency string, amountMinor int64) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO wallets (account_id, currency, wallet_type, balance_minor)
		VALUES ($1, $2, 'FIAT', $3)
		ON CONFLICT (account_id, currency, wallet_type)
		DO UPDATE SET balance_minor = wallets.balance_minor + EXCLUDED.balance_minor, updated_at = now()`,
		accountID, currency, amountMinor)
	if err != nil {
		return fmt.Errorf("failed to credit wallet: %w", err)
	}
	return nil
}

type WalletRepository struct {
	Db *pgxpool.Pool
}

func NewWalletRepository(db *pgxpool.Pool) *WalletRepository {
	return &WalletRepository{Db: db}
}

// ListByAccount returns the account's wallets across currencies.
func (r *WalletRepository) ListByAccount(ctx context.Context, accountID uuid.UUID) ([]domain.Wallet, error) {
	query := `SELECT id, account_id, currency, wallet_type, balance_minor, created_at, updated_at
		FROM wallets WHERE account_id = $1 ORDER BY currency`

	rows, err := r.Db.Query(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to list wallets: %w", err)
	}
	defer rows.Close()

	var out []domain.Wallet
	for rows.Next() {
		var w domain.Wallet
		var balanceMinor int64
		if err := rows.Scan(&w.ID, &w.AccountID, &w.Currency, &w.Type, &balanceMinor, &w.CreatedAt, &w.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan wallet: %w", err)
		}
		w.Balance = decimal.New(balanceMinor, -2)
		out = append(out, w)
	}
	return out, rows.Err()
}
