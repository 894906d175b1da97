// Command finledger-seed fills the configured store with a demo user's
// wallets, categories, budgets and a few months of transactions.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"

	"finledger/internal/auth"
	"finledger/internal/cli"
	"finledger/internal/core"
	applog "finledger/internal/log"
	"finledger/internal/services"
)

func main() {
	userID := flag.String("user", "", "user id to seed (random when empty)")
	months := flag.Int("months", 6, "months of transactions to generate")
	perMonth := flag.Int("per-month", 25, "expense transactions per month")
	seed := flag.Int64("seed", 0, "random seed (0 picks one)")
	flag.Parse()

	cli.LoadEnvFile()
	bootLogger := cli.SetupLogger()
	cfg := cli.LoadAndValidateConfig(bootLogger)
	logger := cli.ConfigureLogger(cfg, applog.ComponentSeed)

	ctx := context.Background()
	result := cli.InitBackend(ctx, logger.Logger, cfg)
	defer func() {
		if err := result.Cleanup(); err != nil {
			logger.Error("Backend cleanup error", "error", err)
		}
	}()

	if *userID == "" {
		*userID = uuid.NewString()
	}
	faker := gofakeit.New(*seed)

	s := seeder{
		wallets:      services.NewWalletService(result.Store, nil),
		faker:        faker,
		categories:   services.NewCategoryService(result.Store),
		budgets:      services.NewBudgetService(result.Store, result.Store, result.Store, nil),
		transactions: services.NewTransactionService(result.Store, nil),
	}
	stats, err := s.run(ctx, *userID, *months, *perMonth, time.Now().UTC())
	if err != nil {
		logger.Error("Seeding failed", "user_id", *userID, "error", err)
		os.Exit(1)
	}
	logger.Info("Seeding complete",
		"user_id", *userID,
		"wallets", stats.wallets,
		"budgets", stats.budgets,
		"transactions", stats.transactions)

	if cfg.JWTSecret == "" {
		logger.Warn("JWT_SECRET not set, no token issued")
		return
	}
	token, err := auth.NewVerifier(cfg.JWTSecret).Issue(*userID, 24*time.Hour)
	if err != nil {
		logger.Error("Failed to issue token", "error", err)
		os.Exit(1)
	}
	fmt.Println(token)
}

type seedStats struct {
	wallets      int
	budgets      int
	transactions int
}

type seeder struct {
	wallets      *services.WalletService
	faker        *gofakeit.Faker
	categories   *services.CategoryService
	budgets      *services.BudgetService
	transactions *services.TransactionService
}

// run writes through the services so every generated row passes the same
// validation as an API write.
func (s seeder) run(ctx context.Context, userID string, months, perMonth int, now time.Time) (seedStats, error) {
	var stats seedStats

	wallets := make([]core.Wallet, 0, 2)
	for _, name := range []string{"Checking", "Cash"} {
		w, err := s.wallets.Create(ctx, core.Wallet{
			UserID:  userID,
			Name:    name,
			Balance: core.Cents(int64(s.faker.Number(50000, 500000))),
			Color:   s.faker.HexColor(),
		})
		if err != nil {
			return stats, fmt.Errorf("create wallet %s: %w", name, err)
		}
		wallets = append(wallets, w)
	}
	stats.wallets = len(wallets)

	if _, err := s.categories.SeedDefaults(ctx, userID); err != nil {
		return stats, fmt.Errorf("seed categories: %w", err)
	}
	cats, err := s.categories.List(ctx, userID)
	if err != nil {
		return stats, err
	}
	var income, expense []core.Category
	for _, c := range cats {
		if c.Type == core.Income {
			income = append(income, c)
		} else {
			expense = append(expense, c)
		}
	}
	if len(income) == 0 || len(expense) == 0 {
		return stats, fmt.Errorf("user %s has no income or expense categories", userID)
	}

	current := core.PeriodOf(now)
	for _, period := range core.Periods(current, months) {
		for _, c := range expense {
			amount := core.Cents(int64(s.faker.Number(100, 800)) * 100)
			if _, err := s.budgets.UpsertBudget(ctx, userID, c.ID, period, amount); err != nil {
				return stats, fmt.Errorf("budget %s %s: %w", c.Name, period, err)
			}
			stats.budgets++
		}

		start, end := period.Range()
		if period == current {
			end = now
		}
		salary := core.Transaction{
			UserID:      userID,
			WalletID:    wallets[0].ID,
			CategoryID:  income[0].ID,
			Type:        core.Income,
			Amount:      core.Cents(int64(s.faker.Number(250000, 400000))),
			Date:        start,
			Description: "Salary " + period.Label(),
		}
		if _, err := s.transactions.Create(ctx, salary); err != nil {
			return stats, fmt.Errorf("salary %s: %w", period, err)
		}
		stats.transactions++

		for i := 0; i < perMonth; i++ {
			c := expense[s.faker.Number(0, len(expense)-1)]
			tx := core.Transaction{
				UserID:      userID,
				WalletID:    wallets[s.faker.Number(0, len(wallets)-1)].ID,
				CategoryID:  c.ID,
				Type:        core.Expense,
				Amount:      core.Cents(int64(s.faker.Number(150, 12000))),
				Date:        s.faker.DateRange(start, end).UTC(),
				Description: s.faker.Company(),
			}
			// Leave a few uncategorized.
			if s.faker.Number(1, 10) == 1 {
				tx.CategoryID = ""
			}
			if _, err := s.transactions.Create(ctx, tx); err != nil {
				return stats, fmt.Errorf("expense %s: %w", period, err)
			}
			stats.transactions++
		}

		transfer := core.Transaction{
			UserID:         userID,
			WalletID:       wallets[0].ID,
			TargetWalletID: wallets[1].ID,
			Type:           core.Transfer,
			Amount:         core.Cents(int64(s.faker.Number(2000, 20000))),
			Date:           s.faker.DateRange(start, end).UTC(),
			Description:    "ATM withdrawal",
		}
		if _, err := s.transactions.Create(ctx, transfer); err != nil {
			return stats, fmt.Errorf("transfer %s: %w", period, err)
		}
		stats.transactions++
	}
	return stats, nil
}
