// Package ledger declares the query surface the engines consume. Concrete
// stores live in internal/storage (SQL) and internal/ledger/memory.
package ledger

import (
	"context"
	"time"

	"finledger/internal/core"
)

// Ports for outbound adapters. Every method is scoped by userID; rows owned by
// other users are never visible.
type (
	// TransactionAggregator runs filtered sums over the transaction relation.
	// Date bounds are inclusive.
	TransactionAggregator interface {
		// SumByMonth groups amounts of txType by the calendar month of their
		// date. Months without rows are omitted.
		SumByMonth(ctx context.Context, userID string, txType core.TransactionType, from, to time.Time) ([]core.MonthlyTotal, error)
		// SumByCategory groups amounts of txType by category, left-joined with
		// category metadata. Name/Color are empty when no category matches.
		SumByCategory(ctx context.Context, userID string, txType core.TransactionType, from, to time.Time) ([]core.CategoryTotal, error)
		// SumByType groups all amounts by transaction type.
		SumByType(ctx context.Context, userID string, from, to time.Time) (map[core.TransactionType]core.Money, error)
		// SumForCategory totals one category's amounts of txType.
		SumForCategory(ctx context.Context, userID, categoryID string, txType core.TransactionType, from, to time.Time) (core.Money, error)
	}

	TransactionWriter interface {
		CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error)
		UpdateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error)
		DeleteTransaction(ctx context.Context, userID, id string) error
	}

	TransactionReader interface {
		GetTransaction(ctx context.Context, userID, id string) (core.Transaction, error)
		RecentTransactions(ctx context.Context, userID string, limit int) ([]core.Transaction, error)
		// ListTransactions returns one page of the filtered transactions,
		// newest first, along with the total number of matches.
		ListTransactions(ctx context.Context, f core.TransactionFilter) ([]core.Transaction, int, error)
	}

	BudgetStore interface {
		// UpsertBudget inserts or updates the budget keyed by
		// (userID, categoryID, period) in one atomic statement.
		UpsertBudget(ctx context.Context, b core.Budget) (core.Budget, error)
		// ListBudgets returns the period's budgets with category metadata.
		ListBudgets(ctx context.Context, userID string, period core.Period) ([]core.Budget, error)
		// InsertBudgetsIfAbsent inserts each budget unless its key already
		// exists and returns how many rows were written.
		InsertBudgetsIfAbsent(ctx context.Context, budgets []core.Budget) (int, error)
		// SumBudgetsByPeriod totals budgets per period in [from, to].
		SumBudgetsByPeriod(ctx context.Context, userID string, from, to core.Period) ([]core.PeriodTotal, error)
		// BudgetOwners lists users holding at least one budget in period.
		BudgetOwners(ctx context.Context, period core.Period) ([]string, error)
	}

	CategoryStore interface {
		GetCategory(ctx context.Context, userID, id string) (core.Category, error)
		ListCategories(ctx context.Context, userID string) ([]core.Category, error)
		CreateCategory(ctx context.Context, c core.Category) (core.Category, error)
		// UpdateCategory replaces name, type and color. A type change fails
		// with core.ErrInUse while transactions reference the category.
		UpdateCategory(ctx context.Context, c core.Category) (core.Category, error)
		// DeleteCategory fails with core.ErrInUse while transactions
		// reference the category. Its budgets and alerts go with it.
		DeleteCategory(ctx context.Context, userID, id string) error
	}

	WalletStore interface {
		GetWallet(ctx context.Context, userID, id string) (core.Wallet, error)
		ListWallets(ctx context.Context, userID string) ([]core.Wallet, error)
		CreateWallet(ctx context.Context, w core.Wallet) (core.Wallet, error)
		// UpdateWallet replaces name, balance and color.
		UpdateWallet(ctx context.Context, w core.Wallet) (core.Wallet, error)
		// DeleteWallet removes the wallet and every transaction moving money
		// out of or into it. It returns the periods those transactions fell in.
		DeleteWallet(ctx context.Context, userID, id string) ([]core.Period, error)
	}

	AlertStore interface {
		UpsertAlert(ctx context.Context, a core.BudgetAlert) error
		ListAlerts(ctx context.Context, userID string, period core.Period) ([]core.BudgetAlert, error)
		// DeleteAlert is a no-op when no alert exists for the key.
		DeleteAlert(ctx context.Context, userID, categoryID string, period core.Period) error
	}

	// Store is everything a backend provides.
	Store interface {
		TransactionAggregator
		TransactionWriter
		TransactionReader
		BudgetStore
		CategoryStore
		WalletStore
		AlertStore
		Ping(ctx context.Context) error
		Close() error
	}
)
