package main

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/robfig/cron/v3"

	"finledger/internal/cli"
	applog "finledger/internal/log"
	"finledger/internal/services"
	"finledger/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	bootLogger := cli.SetupLogger()
	cfg := cli.LoadAndValidateConfig(bootLogger)

	logger := cli.ConfigureLogger(cfg, applog.ComponentWorker)
	logger.Info("Starting finledger-worker")

	result := cli.InitBackend(context.Background(), logger.Logger, cfg)
	store := result.Store

	budgets := services.NewBudgetService(store, store, store, result.Publisher())
	carryForward := services.NewCarryForwardProcessor(store, budgets)
	alerts := worker.NewAlertWorker(budgets, store, store, cfg.AlertThresholdPercent)

	scheduler := cron.New(cron.WithLocation(time.UTC))

	ctx, done := cli.GracefulShutdown(logger.Logger, 30*time.Second, func() {
		<-scheduler.Stop().Done()
		if err := result.Cleanup(); err != nil {
			logger.Error("Backend cleanup error", "error", err)
		}
	})

	if result.Events != nil {
		go func() {
			err := result.Events.ConsumeLedgerEvents(ctx, alerts.HandleLedgerEvent)
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Ledger event consumption failed", "error", err)
			}
		}()
		logger.Info("Consuming ledger events", "queue", cfg.AMQPQueue)
	} else {
		logger.Info("AMQP disabled, budget alerts are only evaluated by the scheduled sweep")
	}

	if cfg.CarryForwardSchedule == "" {
		logger.Info("Carry-forward schedule empty, scheduled jobs disabled")
	} else {
		_, err := scheduler.AddFunc(cfg.CarryForwardSchedule, func() {
			runScheduled(ctx, logger, carryForward, alerts)
		})
		if err != nil {
			logger.Error("Invalid carry-forward schedule", "schedule", cfg.CarryForwardSchedule, "error", err)
			os.Exit(1)
		}
		scheduler.Start()
		logger.Info("Carry-forward scheduled", "schedule", cfg.CarryForwardSchedule)

		// Catch up on a month whose run was missed while the worker was down.
		go runScheduled(ctx, logger, carryForward, alerts)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker stopped")
}

// runScheduled copies last month's budgets forward and then re-checks every
// budget of the current month against the alert threshold.
func runScheduled(ctx context.Context, logger *applog.Logger, carryForward *services.CarryForwardProcessor, alerts *worker.AlertWorker) {
	now := time.Now()
	log := logger.WithComponent(applog.ComponentScheduler)

	report, err := carryForward.Run(ctx, now)
	if err != nil {
		log.ErrorContext(ctx, "Carry-forward failed", "error", err)
	} else {
		log.InfoContext(ctx, "Carry-forward finished",
			"period", report.Target.String(),
			"users", report.Users,
			"copied", report.Copied,
			"failed", report.Failed)
	}

	if err := alerts.Sweep(ctx, now); err != nil {
		log.ErrorContext(ctx, "Budget alert sweep failed", "error", err)
	}
}
