package storage

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/techcsc21/paybridge/internal/core/domain"
)

// MemoryStore is a thread-safe in-memory payment.Store. It backs the tests
// and mirrors the Postgres repository's semantics, in particular the
// compare-and-set status transition and the transition+credit unit.
type MemoryStore struct {
	mu           sync.Mutex
	nextID       int64
	transactions map[string]*domain.Transaction
	wallets      map[walletKey]*domain.Wallet
}

type walletKey struct {
	accountID uuid.UUID
	currency  string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		transactions: make(map[string]*domain.Transaction),
		wallets:      make(map[walletKey]*domain.Wallet),
	}
}

func (s *MemoryStore) CreateTransaction(_ context.Context, tx *domain.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	tx.ID = s.nextID
	cp := *tx
	s.transactions[tx.Reference] = &cp
	return nil
}

func (s *MemoryStore) FindByReference(_ context.Context, reference string) (*domain.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, ok := s.transactions[reference]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *tx
	return &cp, nil
}

func (s *MemoryStore) ListByAccount(_ context.Context, accountID uuid.UUID, limit int) ([]domain.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []domain.Transaction
	for _, tx := range s.transactions {
		if tx.AccountID == accountID {
			out = append(out, *tx)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) MergeMetadata(_ context.Context, reference string, patch domain.Metadata) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, ok := s.transactions[reference]
	if !ok {
		return domain.ErrNotFound
	}
	tx.Metadata = tx.Metadata.Merge(patch)
	return nil
}

func (s *MemoryStore) Resolve(_ context.Context, reference string, to domain.TransactionStatus, patch domain.Metadata, credit bool) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, ok := s.transactions[reference]
	if !ok {
		return false, domain.ErrNotFound
	}
	// Compare-and-set: only a PENDING row may transition.
	if tx.Status != domain.StatusPending {
		return false, nil
	}

	tx.Status = to
	tx.Metadata = tx.Metadata.Merge(patch)

	if credit {
		key := walletKey{accountID: tx.AccountID, currency: tx.Currency}
		w, ok := s.wallets[key]
		if !ok {
			w = &domain.Wallet{
				AccountID: tx.AccountID,
				Currency:  tx.Currency,
				Type:      domain.WalletFiat,
				Balance:   decimal.Zero,
			}
			s.wallets[key] = w
		}
		w.Balance = w.Balance.Add(tx.Amount)
	}
	return true, nil
}

// WalletBalance reports the current balance for assertions; zero when the
// wallet does not exist yet.
func (s *MemoryStore) WalletBalance(accountID uuid.UUID, currency string) decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()

	if w, ok := s.wallets[walletKey{accountID: accountID, currency: currency}]; ok {
		return w.Balance
	}
	return decimal.Zero
}
