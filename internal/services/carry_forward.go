package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"finledger/internal/core"
	"finledger/internal/ledger"
)

// CarryForwardReport summarizes one scheduled run.
type CarryForwardReport struct {
	Target core.Period
	Users  int
	Copied int
	Failed int
}

// CarryForwardProcessor copies last month's budgets into the current month
// for every user that had any.
type CarryForwardProcessor struct {
	budgets ledger.BudgetStore
	service *BudgetService
}

func NewCarryForwardProcessor(budgets ledger.BudgetStore, service *BudgetService) *CarryForwardProcessor {
	return &CarryForwardProcessor{budgets: budgets, service: service}
}

// Run processes every owner of budgets in the month before now. A failure
// for one user is logged and counted; the run continues.
func (p *CarryForwardProcessor) Run(ctx context.Context, now time.Time) (CarryForwardReport, error) {
	if p.budgets == nil || p.service == nil {
		return CarryForwardReport{}, fmt.Errorf("processor not properly initialized")
	}

	target := core.PeriodOf(now)
	report := CarryForwardReport{Target: target}

	owners, err := p.budgets.BudgetOwners(ctx, target.Shift(-1))
	if err != nil {
		return report, fmt.Errorf("list budget owners: %w", err)
	}

	slog.InfoContext(ctx, "Carrying budgets forward",
		"target", target.String(),
		"users", len(owners))

	for _, userID := range owners {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		report.Users++

		res, err := p.service.CopyBudgets(ctx, userID, target)
		if err != nil {
			if errors.Is(err, core.ErrNoSourceBudgets) {
				continue
			}
			report.Failed++
			slog.ErrorContext(ctx, "Failed to carry budgets forward",
				"user_id", userID,
				"target", target.String(),
				"error", err)
			continue
		}
		report.Copied += res.Copied
	}

	slog.InfoContext(ctx, "Budget carry-forward complete",
		"target", target.String(),
		"users", report.Users,
		"copied", report.Copied,
		"failed", report.Failed)

	return report, nil
}
