package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"finledger/internal/amqp"
	"finledger/internal/core"
	"finledger/internal/ledger"
)

const (
	DefaultRecentLimit = 5
	MaxRecentLimit     = 50
)

type transactionStore interface {
	ledger.TransactionWriter
	ledger.TransactionReader
	ledger.WalletStore
	ledger.CategoryStore
}

// TransactionService validates and records transactions. Wallet balances are
// stored values and are not touched here.
type TransactionService struct {
	store     transactionStore
	publisher EventPublisher
}

func NewTransactionService(store transactionStore, publisher EventPublisher) *TransactionService {
	return &TransactionService{store: store, publisher: publisher}
}

func (s *TransactionService) Create(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	t.ID = ""
	if err := s.check(ctx, t); err != nil {
		return core.Transaction{}, err
	}

	saved, err := s.store.CreateTransaction(ctx, t)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction recorded",
		"user_id", saved.UserID,
		"type", saved.Type,
		"amount_cents", saved.Amount.Cents,
		"period", core.PeriodOf(saved.Date).String())

	publish(ctx, s.publisher, amqp.KindTransactionChanged, saved.UserID, core.PeriodOf(saved.Date))
	return saved, nil
}

// Update replaces a transaction the user owns. Both the old and the new
// period are announced when the date moves across months.
func (s *TransactionService) Update(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	existing, err := s.store.GetTransaction(ctx, t.UserID, t.ID)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("load transaction: %w", err)
	}
	if err := s.check(ctx, t); err != nil {
		return core.Transaction{}, err
	}

	saved, err := s.store.UpdateTransaction(ctx, t)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction: %w", err)
	}

	publish(ctx, s.publisher, amqp.KindTransactionChanged, saved.UserID,
		core.PeriodOf(existing.Date), core.PeriodOf(saved.Date))
	return saved, nil
}

func (s *TransactionService) Delete(ctx context.Context, userID, id string) error {
	existing, err := s.store.GetTransaction(ctx, userID, id)
	if err != nil {
		return fmt.Errorf("load transaction: %w", err)
	}
	if err := s.store.DeleteTransaction(ctx, userID, id); err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}

	publish(ctx, s.publisher, amqp.KindTransactionChanged, userID, core.PeriodOf(existing.Date))
	return nil
}

// Recent returns the user's latest transactions, newest first.
func (s *TransactionService) Recent(ctx context.Context, userID string, limit int) ([]core.Transaction, error) {
	if userID == "" {
		return []core.Transaction{}, nil
	}
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	if limit > MaxRecentLimit {
		limit = MaxRecentLimit
	}

	out, err := s.store.RecentTransactions(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("recent transactions: %w", err)
	}
	if out == nil {
		out = []core.Transaction{}
	}
	return out, nil
}

// List returns one page of the user's transactions matching f, newest first.
// A page past the end comes back empty with the real totals.
func (s *TransactionService) List(ctx context.Context, f core.TransactionFilter) (core.TransactionPage, error) {
	if f.Page < 1 {
		f.Page = 1
	}
	f.PageSize = core.TransactionPageSize
	if f.UserID == "" {
		return core.NewTransactionPage(nil, 0, f.Page, f.PageSize), nil
	}
	if f.Type != "" && !f.Type.IsValid() {
		return core.TransactionPage{}, core.NewValidationError("type", "must be income, expense or transfer")
	}
	if !f.From.IsZero() && !f.To.IsZero() && f.To.Before(f.From) {
		return core.TransactionPage{}, core.NewValidationError("to", "must not be before from")
	}

	items, total, err := s.store.ListTransactions(ctx, f)
	if err != nil {
		return core.TransactionPage{}, fmt.Errorf("list transactions: %w", err)
	}
	return core.NewTransactionPage(items, total, f.Page, f.PageSize), nil
}

// check runs shape validation, then verifies every referenced wallet and
// category belongs to the user.
func (s *TransactionService) check(ctx context.Context, t core.Transaction) error {
	if err := t.Validate(); err != nil {
		return err
	}

	if err := s.ownedWallet(ctx, t.UserID, t.WalletID, "walletId"); err != nil {
		return err
	}
	if t.Type == core.Transfer {
		return s.ownedWallet(ctx, t.UserID, t.TargetWalletID, "targetWalletId")
	}

	if t.CategoryID == "" {
		return nil
	}
	cat, err := s.store.GetCategory(ctx, t.UserID, t.CategoryID)
	if errors.Is(err, core.ErrNotFound) {
		return core.NewValidationError("categoryId", "does not exist")
	}
	if err != nil {
		return fmt.Errorf("load category: %w", err)
	}
	if cat.Type != t.Type {
		return core.NewValidationError("categoryId", fmt.Sprintf("is a %s category", cat.Type))
	}
	return nil
}

func (s *TransactionService) ownedWallet(ctx context.Context, userID, walletID, field string) error {
	_, err := s.store.GetWallet(ctx, userID, walletID)
	if errors.Is(err, core.ErrNotFound) {
		return core.NewValidationError(field, "does not exist")
	}
	if err != nil {
		return fmt.Errorf("load wallet: %w", err)
	}
	return nil
}
