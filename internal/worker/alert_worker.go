package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"finledger/internal/amqp"
	"finledger/internal/core"
	"finledger/internal/ledger"
)

// DefaultThresholdPercent is the share of a budget that triggers an alert.
const DefaultThresholdPercent = 80

type usageReader interface {
	BudgetVsSpend(ctx context.Context, userID string, period core.Period) ([]core.BudgetUsage, error)
}

// AlertWorker keeps one BudgetAlert for every category whose spend reaches
// the threshold share of its budget, and clears it once spend drops back.
type AlertWorker struct {
	usage            usageReader
	alerts           ledger.AlertStore
	owners           ledger.BudgetStore
	thresholdPercent int64
}

func NewAlertWorker(usage usageReader, alerts ledger.AlertStore, owners ledger.BudgetStore, thresholdPercent int) *AlertWorker {
	if thresholdPercent <= 0 {
		thresholdPercent = DefaultThresholdPercent
	}
	return &AlertWorker{
		usage:            usage,
		alerts:           alerts,
		owners:           owners,
		thresholdPercent: int64(thresholdPercent),
	}
}

// HandleLedgerEvent processes a single ledger event from AMQP.
func (w *AlertWorker) HandleLedgerEvent(ctx context.Context, msg *amqp.LedgerEvent) error {
	slog.DebugContext(ctx, "Processing ledger event",
		"kind", msg.Kind,
		"user_id", msg.UserID,
		"period", msg.Period.String())

	if _, err := w.Evaluate(ctx, msg.UserID, msg.Period); err != nil {
		return fmt.Errorf("evaluate %s for %s: %w", msg.Period, msg.UserID, err)
	}
	return nil
}

// Evaluate compares every budget of the period with its spend, upserting
// alerts for those over the threshold and deleting the rest. It returns the
// number of alerts written.
func (w *AlertWorker) Evaluate(ctx context.Context, userID string, period core.Period) (int, error) {
	usage, err := w.usage.BudgetVsSpend(ctx, userID, period)
	if err != nil {
		return 0, err
	}

	written := 0
	for _, u := range usage {
		if !w.overThreshold(u) {
			if err := w.alerts.DeleteAlert(ctx, userID, u.CategoryID, period); err != nil {
				return written, fmt.Errorf("delete alert: %w", err)
			}
			continue
		}
		alert := core.BudgetAlert{
			UserID:       userID,
			CategoryID:   u.CategoryID,
			CategoryName: u.CategoryName,
			Period:       period,
			Spent:        u.Spent,
			Limit:        u.Limit,
		}
		if err := w.alerts.UpsertAlert(ctx, alert); err != nil {
			return written, fmt.Errorf("upsert alert: %w", err)
		}
		written++
		slog.InfoContext(ctx, "Budget threshold reached",
			"user_id", userID,
			"category_id", u.CategoryID,
			"period", period.String(),
			"spent_cents", u.Spent.Cents,
			"limit_cents", u.Limit.Cents)
	}
	return written, nil
}

func (w *AlertWorker) overThreshold(u core.BudgetUsage) bool {
	if u.Limit.Cents <= 0 {
		return false
	}
	return u.Ratio() >= w.thresholdPercent*100
}

// Sweep re-evaluates every user holding budgets in the current month.
// It backs up event delivery in case messages were lost.
func (w *AlertWorker) Sweep(ctx context.Context, now time.Time) error {
	period := core.PeriodOf(now)
	users, err := w.owners.BudgetOwners(ctx, period)
	if err != nil {
		return fmt.Errorf("list budget owners: %w", err)
	}

	for _, userID := range users {
		if _, err := w.Evaluate(ctx, userID, period); err != nil {
			slog.ErrorContext(ctx, "Alert sweep failed for user",
				"user_id", userID,
				"period", period.String(),
				"error", err)
		}
	}
	return nil
}
