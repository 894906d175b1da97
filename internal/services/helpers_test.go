package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"finledger/internal/amqp"
	"finledger/internal/core"
	"finledger/internal/ledger/memory"
)

type publishedEvent struct {
	kind   amqp.EventKind
	userID string
	period core.Period
}

// recordingPublisher captures events instead of sending them.
type recordingPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
	err    error
}

func (p *recordingPublisher) PublishLedgerEvent(_ context.Context, kind amqp.EventKind, userID string, period core.Period) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{kind, userID, period})
	return p.err
}

func (p *recordingPublisher) Events() []publishedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]publishedEvent(nil), p.events...)
}

type env struct {
	store        *memory.Store
	pub          *recordingPublisher
	analytics    *AnalyticsService
	budgets      *BudgetService
	history      *HistoryService
	transactions *TransactionService
	categories   *CategoryService
	wallets      *WalletService
	dashboard    *DashboardService
}

func newEnv(t *testing.T) *env {
	t.Helper()
	store := memory.New()
	pub := &recordingPublisher{}
	analytics := NewAnalyticsService(store)
	budgets := NewBudgetService(store, store, store, pub)
	history := NewHistoryService(analytics, store)
	transactions := NewTransactionService(store, pub)
	categories := NewCategoryService(store)
	return &env{
		store:        store,
		pub:          pub,
		analytics:    analytics,
		budgets:      budgets,
		history:      history,
		transactions: transactions,
		categories:   categories,
		wallets:      NewWalletService(store, pub),
		dashboard:    NewDashboardService(store, transactions, categories, budgets, history, analytics),
	}
}

func (e *env) wallet(t *testing.T, userID, name string, balance int64) core.Wallet {
	t.Helper()
	w, err := e.store.CreateWallet(context.Background(), core.Wallet{UserID: userID, Name: name, Balance: core.Cents(balance)})
	if err != nil {
		t.Fatalf("create wallet: %v", err)
	}
	return w
}

func (e *env) category(t *testing.T, userID, name string, typ core.TransactionType) core.Category {
	t.Helper()
	c, err := e.store.CreateCategory(context.Background(), core.Category{UserID: userID, Name: name, Type: typ})
	if err != nil {
		t.Fatalf("create category: %v", err)
	}
	return c
}

// record inserts straight into the store, bypassing service validation.
func (e *env) record(t *testing.T, tx core.Transaction) {
	t.Helper()
	if tx.WalletID == "" {
		tx.WalletID = "w"
	}
	if _, err := e.store.CreateTransaction(context.Background(), tx); err != nil {
		t.Fatalf("create transaction: %v", err)
	}
}

func (e *env) budget(t *testing.T, userID, categoryID string, p core.Period, cents int64) {
	t.Helper()
	if _, err := e.store.UpsertBudget(context.Background(), core.Budget{UserID: userID, CategoryID: categoryID, Period: p, Amount: core.Cents(cents)}); err != nil {
		t.Fatalf("upsert budget: %v", err)
	}
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 10, 0, 0, 0, time.UTC)
}

func period(y int, m time.Month) core.Period {
	return core.Period{Year: y, Month: m}
}
