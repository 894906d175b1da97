package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"finledger/internal/core"
	"finledger/internal/ledger"
)

// AnalyticsService reduces transactions into monthly series, category
// breakdowns and period summaries. Every call is scoped to one user; an empty
// userID yields an empty result without touching the store.
type AnalyticsService struct {
	store ledger.TransactionAggregator
}

func NewAnalyticsService(store ledger.TransactionAggregator) *AnalyticsService {
	return &AnalyticsService{store: store}
}

// MonthlySpending returns expense totals per calendar month in [start, end],
// oldest first. Months without expenses are absent.
func (s *AnalyticsService) MonthlySpending(ctx context.Context, userID string, start, end time.Time) ([]core.MonthlyTotal, error) {
	if end.Before(start) {
		return nil, core.NewValidationError("range", "start must not be after end")
	}
	if userID == "" {
		return []core.MonthlyTotal{}, nil
	}

	rows, err := s.store.SumByMonth(ctx, userID, core.Expense, start.UTC(), end.UTC())
	if err != nil {
		return nil, fmt.Errorf("monthly spending: %w", err)
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Period.Before(rows[j].Period) })
	if rows == nil {
		rows = []core.MonthlyTotal{}
	}
	return rows, nil
}

// CategoryBreakdown groups the period's expenses by category, largest first.
func (s *AnalyticsService) CategoryBreakdown(ctx context.Context, userID string, period core.Period) ([]core.CategoryTotal, error) {
	if userID == "" {
		return []core.CategoryTotal{}, nil
	}

	from, to := period.Range()
	rows, err := s.store.SumByCategory(ctx, userID, core.Expense, from, to)
	if err != nil {
		return nil, fmt.Errorf("category breakdown: %w", err)
	}
	return normalizeBreakdown(rows), nil
}

// normalizeBreakdown labels rows without category metadata, applies the
// default color and orders by total desc, then category id.
func normalizeBreakdown(rows []core.CategoryTotal) []core.CategoryTotal {
	out := make([]core.CategoryTotal, 0, len(rows))
	for _, r := range rows {
		if r.Name == "" {
			r.Name = core.UncategorizedName
		}
		if r.Color == "" {
			r.Color = core.DefaultColor
		}
		out = append(out, r)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Total.Cents != out[j].Total.Cents {
			return out[i].Total.Cents > out[j].Total.Cents
		}
		return out[i].CategoryID < out[j].CategoryID
	})
	return out
}

// PeriodSummary totals income and expense for the period. Transfers move
// money between wallets and are not counted.
func (s *AnalyticsService) PeriodSummary(ctx context.Context, userID string, period core.Period) (core.PeriodSummary, error) {
	if userID == "" {
		return core.NewPeriodSummary(period, core.Money{}, core.Money{}), nil
	}

	from, to := period.Range()
	sums, err := s.store.SumByType(ctx, userID, from, to)
	if err != nil {
		return core.PeriodSummary{}, fmt.Errorf("period summary: %w", err)
	}
	return core.NewPeriodSummary(period, sums[core.Income], sums[core.Expense]), nil
}

// CategorySpend is the expense total of one category in the period.
func (s *AnalyticsService) CategorySpend(ctx context.Context, userID, categoryID string, period core.Period) (core.Money, error) {
	if userID == "" || categoryID == "" {
		return core.Money{}, nil
	}

	from, to := period.Range()
	total, err := s.store.SumForCategory(ctx, userID, categoryID, core.Expense, from, to)
	if err != nil {
		return core.Money{}, fmt.Errorf("category spend: %w", err)
	}
	return total, nil
}
