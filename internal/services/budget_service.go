package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"golang.org/x/sync/errgroup"

	"finledger/internal/amqp"
	"finledger/internal/core"
	"finledger/internal/ledger"
)

// BudgetService owns per-category monthly limits.
type BudgetService struct {
	budgets    ledger.BudgetStore
	categories ledger.CategoryStore
	txs        ledger.TransactionAggregator
	publisher  EventPublisher
}

func NewBudgetService(budgets ledger.BudgetStore, categories ledger.CategoryStore, txs ledger.TransactionAggregator, publisher EventPublisher) *BudgetService {
	return &BudgetService{
		budgets:    budgets,
		categories: categories,
		txs:        txs,
		publisher:  publisher,
	}
}

// UpsertBudget sets the limit for (user, category, period), creating the row
// if needed. Concurrent calls on the same key leave exactly one row.
func (s *BudgetService) UpsertBudget(ctx context.Context, userID, categoryID string, period core.Period, amount core.Money) (core.Budget, error) {
	b := core.Budget{
		UserID:     userID,
		CategoryID: categoryID,
		Period:     period,
		Amount:     amount,
	}
	if err := b.Validate(); err != nil {
		return core.Budget{}, err
	}

	cat, err := s.categories.GetCategory(ctx, userID, categoryID)
	if errors.Is(err, core.ErrNotFound) {
		return core.Budget{}, core.NewValidationError("categoryId", "does not exist")
	}
	if err != nil {
		return core.Budget{}, fmt.Errorf("load category: %w", err)
	}
	if cat.Type != core.Expense {
		return core.Budget{}, core.NewValidationError("categoryId", "must be an expense category")
	}

	saved, err := s.budgets.UpsertBudget(ctx, b)
	if err != nil {
		return core.Budget{}, fmt.Errorf("upsert budget: %w", err)
	}

	slog.InfoContext(ctx, "Budget saved",
		"user_id", userID,
		"category_id", categoryID,
		"period", period.String(),
		"amount_cents", amount.Cents)

	publish(ctx, s.publisher, amqp.KindBudgetChanged, userID, period)
	return saved, nil
}

// CopyBudgets carries the previous month's budgets into target. Categories
// already budgeted in target are skipped, never overwritten.
func (s *BudgetService) CopyBudgets(ctx context.Context, userID string, target core.Period) (core.CopyResult, error) {
	source := target.Shift(-1)
	result := core.CopyResult{Source: source, Target: target}
	if userID == "" {
		return result, core.NewValidationError("userId", "is required")
	}

	var prev, current []core.Budget
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		prev, err = s.budgets.ListBudgets(gctx, userID, source)
		return err
	})
	g.Go(func() error {
		var err error
		current, err = s.budgets.ListBudgets(gctx, userID, target)
		return err
	})
	if err := g.Wait(); err != nil {
		return result, fmt.Errorf("load budgets: %w", err)
	}

	if len(prev) == 0 {
		return result, fmt.Errorf("copy into %s: %w", target, core.ErrNoSourceBudgets)
	}

	existing := make(map[string]bool, len(current))
	for _, b := range current {
		existing[b.CategoryID] = true
	}

	candidates := make([]core.Budget, 0, len(prev))
	for _, b := range prev {
		if existing[b.CategoryID] {
			continue
		}
		candidates = append(candidates, core.Budget{
			UserID:     userID,
			CategoryID: b.CategoryID,
			Period:     target,
			Amount:     b.Amount,
		})
	}

	copied, err := s.budgets.InsertBudgetsIfAbsent(ctx, candidates)
	if err != nil {
		return result, fmt.Errorf("copy budgets: %w", err)
	}
	result.Copied = copied
	result.Skipped = len(prev) - copied

	slog.InfoContext(ctx, "Budgets copied",
		"user_id", userID,
		"source", source.String(),
		"target", target.String(),
		"copied", result.Copied,
		"skipped", result.Skipped)

	if copied > 0 {
		publish(ctx, s.publisher, amqp.KindBudgetChanged, userID, target)
	}
	return result, nil
}

// BudgetVsSpend pairs every budget of the period with the expense recorded
// against its category, ordered by category name.
func (s *BudgetService) BudgetVsSpend(ctx context.Context, userID string, period core.Period) ([]core.BudgetUsage, error) {
	if userID == "" {
		return []core.BudgetUsage{}, nil
	}

	var (
		budgets []core.Budget
		spend   []core.CategoryTotal
	)
	from, to := period.Range()
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		budgets, err = s.budgets.ListBudgets(gctx, userID, period)
		return err
	})
	g.Go(func() error {
		var err error
		spend, err = s.txs.SumByCategory(gctx, userID, core.Expense, from, to)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("budget vs spend: %w", err)
	}

	spent := make(map[string]core.Money, len(spend))
	for _, row := range spend {
		spent[row.CategoryID] = row.Total
	}

	out := make([]core.BudgetUsage, 0, len(budgets))
	for _, b := range budgets {
		color := b.CategoryColor
		if color == "" {
			color = core.DefaultColor
		}
		name := b.CategoryName
		if name == "" {
			name = core.UncategorizedName
		}
		out = append(out, core.BudgetUsage{
			BudgetID:     b.ID,
			CategoryID:   b.CategoryID,
			CategoryName: name,
			Color:        color,
			Spent:        spent[b.CategoryID],
			Limit:        b.Amount,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CategoryName != out[j].CategoryName {
			return out[i].CategoryName < out[j].CategoryName
		}
		return out[i].CategoryID < out[j].CategoryID
	})
	return out, nil
}
