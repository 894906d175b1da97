package services

import (
	"context"
	"fmt"
	"log/slog"

	"finledger/internal/amqp"
	"finledger/internal/core"
	"finledger/internal/ledger"
)

// WalletService manages wallets. Balances are stored as entered; editing one
// does not reconcile it with the transaction history.
type WalletService struct {
	store     ledger.WalletStore
	publisher EventPublisher
}

func NewWalletService(store ledger.WalletStore, publisher EventPublisher) *WalletService {
	return &WalletService{store: store, publisher: publisher}
}

func (s *WalletService) List(ctx context.Context, userID string) ([]core.Wallet, error) {
	if userID == "" {
		return []core.Wallet{}, nil
	}
	out, err := s.store.ListWallets(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list wallets: %w", err)
	}
	if out == nil {
		out = []core.Wallet{}
	}
	return out, nil
}

// Create stores the opening balance as given; it may be zero or negative.
func (s *WalletService) Create(ctx context.Context, w core.Wallet) (core.Wallet, error) {
	w.ID = ""
	if err := w.Validate(); err != nil {
		return core.Wallet{}, err
	}
	saved, err := s.store.CreateWallet(ctx, w)
	if err != nil {
		return core.Wallet{}, fmt.Errorf("create wallet: %w", err)
	}
	return saved, nil
}

func (s *WalletService) Update(ctx context.Context, w core.Wallet) (core.Wallet, error) {
	if err := w.Validate(); err != nil {
		return core.Wallet{}, err
	}
	saved, err := s.store.UpdateWallet(ctx, w)
	if err != nil {
		return core.Wallet{}, fmt.Errorf("update wallet: %w", err)
	}
	return saved, nil
}

// Delete removes the wallet with its transactions and announces every month
// that lost rows.
func (s *WalletService) Delete(ctx context.Context, userID, id string) error {
	periods, err := s.store.DeleteWallet(ctx, userID, id)
	if err != nil {
		return fmt.Errorf("delete wallet: %w", err)
	}

	slog.InfoContext(ctx, "Wallet deleted",
		"user_id", userID,
		"wallet_id", id,
		"periods", len(periods))

	publish(ctx, s.publisher, amqp.KindTransactionChanged, userID, periods...)
	return nil
}
