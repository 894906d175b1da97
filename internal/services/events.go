package services

import (
	"context"
	"log/slog"

	"finledger/internal/amqp"
	"finledger/internal/core"
)

// EventPublisher announces ledger changes. *amqp.Client satisfies it.
type EventPublisher interface {
	PublishLedgerEvent(ctx context.Context, kind amqp.EventKind, userID string, period core.Period) error
}

// publish never fails the caller: the write already succeeded.
func publish(ctx context.Context, p EventPublisher, kind amqp.EventKind, userID string, periods ...core.Period) {
	if p == nil {
		slog.DebugContext(ctx, "AMQP client not available, skipping ledger event", "kind", kind)
		return
	}
	seen := make(map[core.Period]bool, len(periods))
	for _, period := range periods {
		if seen[period] {
			continue
		}
		seen[period] = true
		if err := p.PublishLedgerEvent(ctx, kind, userID, period); err != nil {
			slog.ErrorContext(ctx, "Failed to publish ledger event",
				"kind", kind,
				"user_id", userID,
				"period", period.String(),
				"error", err)
		}
	}
}
