package services

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"finledger/internal/core"
	"finledger/internal/ledger"
)

// Dashboard is the landing-page read model for one user and month.
type Dashboard struct {
	Period             core.Period         `json:"period"`
	TotalBalance       core.Money          `json:"totalBalance"`
	Summary            core.PeriodSummary  `json:"summary"`
	Wallets            []core.Wallet       `json:"wallets"`
	RecentTransactions []core.Transaction  `json:"recentTransactions"`
	Categories         []core.Category     `json:"categories"`
	Budgets            []core.BudgetUsage  `json:"budgets"`
	History            []core.HistoryPoint `json:"history"`
}

type DashboardService struct {
	wallets      ledger.WalletStore
	transactions *TransactionService
	categories   *CategoryService
	budgets      *BudgetService
	history      *HistoryService
	analytics    *AnalyticsService
}

func NewDashboardService(
	wallets ledger.WalletStore,
	transactions *TransactionService,
	categories *CategoryService,
	budgets *BudgetService,
	history *HistoryService,
	analytics *AnalyticsService,
) *DashboardService {
	return &DashboardService{
		wallets:      wallets,
		transactions: transactions,
		categories:   categories,
		budgets:      budgets,
		history:      history,
		analytics:    analytics,
	}
}

// Load fetches every dashboard section concurrently. TotalBalance sums the
// stored wallet balances as-is.
func (s *DashboardService) Load(ctx context.Context, userID string, now time.Time) (Dashboard, error) {
	period := core.PeriodOf(now)
	d := Dashboard{
		Period:             period,
		Summary:            core.NewPeriodSummary(period, core.Money{}, core.Money{}),
		Wallets:            []core.Wallet{},
		RecentTransactions: []core.Transaction{},
		Categories:         []core.Category{},
		Budgets:            []core.BudgetUsage{},
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if userID == "" {
			return nil
		}
		wallets, err := s.wallets.ListWallets(gctx, userID)
		if err != nil {
			return fmt.Errorf("list wallets: %w", err)
		}
		if wallets != nil {
			d.Wallets = wallets
		}
		return nil
	})
	g.Go(func() error {
		recent, err := s.transactions.Recent(gctx, userID, DefaultRecentLimit)
		d.RecentTransactions = recent
		return err
	})
	g.Go(func() error {
		cats, err := s.categories.List(gctx, userID)
		d.Categories = cats
		return err
	})
	g.Go(func() error {
		usage, err := s.budgets.BudgetVsSpend(gctx, userID, period)
		d.Budgets = usage
		return err
	})
	g.Go(func() error {
		history, err := s.history.SixMonthHistory(gctx, userID, now)
		d.History = history
		return err
	})
	g.Go(func() error {
		summary, err := s.analytics.PeriodSummary(gctx, userID, period)
		d.Summary = summary
		return err
	})
	if err := g.Wait(); err != nil {
		return Dashboard{}, fmt.Errorf("load dashboard: %w", err)
	}

	for _, w := range d.Wallets {
		d.TotalBalance = d.TotalBalance.Add(w.Balance)
	}
	return d, nil
}
