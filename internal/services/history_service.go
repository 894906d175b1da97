package services

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"finledger/internal/core"
	"finledger/internal/ledger"
)

// HistoryMonths is the length of the spending-vs-budget series.
const HistoryMonths = 6

type HistoryService struct {
	analytics *AnalyticsService
	budgets   ledger.BudgetStore
}

func NewHistoryService(analytics *AnalyticsService, budgets ledger.BudgetStore) *HistoryService {
	return &HistoryService{analytics: analytics, budgets: budgets}
}

// SixMonthHistory returns the anchor month and the five before it, oldest
// first. Months without data are zero.
func (s *HistoryService) SixMonthHistory(ctx context.Context, userID string, anchor time.Time) ([]core.HistoryPoint, error) {
	periods := core.Periods(core.PeriodOf(anchor), HistoryMonths)
	first, last := periods[0], periods[len(periods)-1]

	spending := map[core.Period]core.Money{}
	budgets := map[core.Period]core.Money{}

	if userID != "" {
		var (
			monthly []core.MonthlyTotal
			planned []core.PeriodTotal
		)
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			var err error
			monthly, err = s.analytics.MonthlySpending(gctx, userID, first.Start(), last.End())
			return err
		})
		g.Go(func() error {
			var err error
			planned, err = s.budgets.SumBudgetsByPeriod(gctx, userID, first, last)
			return err
		})
		if err := g.Wait(); err != nil {
			return nil, fmt.Errorf("six month history: %w", err)
		}

		for _, m := range monthly {
			spending[m.Period] = m.Total
		}
		for _, b := range planned {
			budgets[b.Period] = b.Total
		}
	}

	out := make([]core.HistoryPoint, 0, len(periods))
	for _, p := range periods {
		out = append(out, core.HistoryPoint{
			MonthLabel: p.Label(),
			PeriodKey:  p,
			Spending:   spending[p],
			Budget:     budgets[p],
		})
	}
	return out, nil
}
