package storage

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"finledger/internal/core"
)

func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

type fixture struct {
	wallet core.Wallet
	food   core.Category
	salary core.Category
}

func seed(t *testing.T, repo *Repository, userID string) fixture {
	t.Helper()
	ctx := context.Background()
	w, err := repo.CreateWallet(ctx, core.Wallet{UserID: userID, Name: "Cash", Balance: core.Cents(10000)})
	if err != nil {
		t.Fatalf("create wallet: %v", err)
	}
	food, err := repo.CreateCategory(ctx, core.Category{UserID: userID, Name: "Food", Type: core.Expense, Color: "#ef4444"})
	if err != nil {
		t.Fatalf("create category: %v", err)
	}
	salary, err := repo.CreateCategory(ctx, core.Category{UserID: userID, Name: "Salary", Type: core.Income})
	if err != nil {
		t.Fatalf("create category: %v", err)
	}
	return fixture{wallet: w, food: food, salary: salary}
}

func mustTx(t *testing.T, repo *Repository, tx core.Transaction) core.Transaction {
	t.Helper()
	saved, err := repo.CreateTransaction(context.Background(), tx)
	if err != nil {
		t.Fatalf("create transaction: %v", err)
	}
	return saved
}

func TestSQLiteAggregatesJanuaryExample(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	f := seed(t, repo, "u1")

	mustTx(t, repo, core.Transaction{UserID: "u1", WalletID: f.wallet.ID, CategoryID: f.salary.ID, Type: core.Income,
		Amount: core.Cents(50000), Date: time.Date(2025, 1, 3, 9, 0, 0, 0, time.UTC)})
	mustTx(t, repo, core.Transaction{UserID: "u1", WalletID: f.wallet.ID, CategoryID: f.food.ID, Type: core.Expense,
		Amount: core.Cents(15000), Date: time.Date(2025, 1, 31, 23, 59, 59, 0, time.UTC)})
	// Outside the period.
	mustTx(t, repo, core.Transaction{UserID: "u1", WalletID: f.wallet.ID, CategoryID: f.food.ID, Type: core.Expense,
		Amount: core.Cents(999), Date: time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)})

	p := core.Period{Year: 2025, Month: time.January}
	byType, err := repo.SumByType(ctx, "u1", p.Start(), p.End())
	if err != nil {
		t.Fatalf("SumByType: %v", err)
	}
	if byType[core.Income].Cents != 50000 || byType[core.Expense].Cents != 15000 {
		t.Fatalf("unexpected sums: %+v", byType)
	}

	cats, err := repo.SumByCategory(ctx, "u1", core.Expense, p.Start(), p.End())
	if err != nil {
		t.Fatalf("SumByCategory: %v", err)
	}
	if len(cats) != 1 || cats[0].Name != "Food" || cats[0].Total.Cents != 15000 || cats[0].Color != "#ef4444" {
		t.Fatalf("unexpected breakdown: %+v", cats)
	}

	spent, err := repo.SumForCategory(ctx, "u1", f.food.ID, core.Expense, p.Start(), p.End())
	if err != nil || spent.Cents != 15000 {
		t.Fatalf("SumForCategory = %v, %v", spent, err)
	}
}

func TestSQLiteSumByMonthOmitsEmptyMonths(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	f := seed(t, repo, "u1")

	mustTx(t, repo, core.Transaction{UserID: "u1", WalletID: f.wallet.ID, Type: core.Expense,
		Amount: core.Cents(100), Date: time.Date(2024, 12, 15, 0, 0, 0, 0, time.UTC)})
	mustTx(t, repo, core.Transaction{UserID: "u1", WalletID: f.wallet.ID, CategoryID: f.food.ID, Type: core.Expense,
		Amount: core.Cents(200), Date: time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)})
	mustTx(t, repo, core.Transaction{UserID: "u1", WalletID: f.wallet.ID, CategoryID: f.food.ID, Type: core.Expense,
		Amount: core.Cents(300), Date: time.Date(2025, 2, 28, 12, 0, 0, 0, time.UTC)})

	from := core.Period{Year: 2024, Month: time.December}.Start()
	to := core.Period{Year: 2025, Month: time.February}.End()
	got, err := repo.SumByMonth(ctx, "u1", core.Expense, from, to)
	if err != nil {
		t.Fatalf("SumByMonth: %v", err)
	}
	want := []struct {
		key   string
		cents int64
	}{{"2024-12", 100}, {"2025-02", 500}}
	if len(got) != len(want) {
		t.Fatalf("got %+v, want %d months", got, len(want))
	}
	for i, w := range want {
		if got[i].Period.String() != w.key || got[i].Total.Cents != w.cents {
			t.Fatalf("month %d: got %+v, want %s=%d", i, got[i], w.key, w.cents)
		}
	}
}

func TestSQLiteUncategorizedHasBlankName(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	f := seed(t, repo, "u1")
	mustTx(t, repo, core.Transaction{UserID: "u1", WalletID: f.wallet.ID, Type: core.Expense,
		Amount: core.Cents(4200), Date: time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)})

	p := core.Period{Year: 2025, Month: time.March}
	got, err := repo.SumByCategory(ctx, "u1", core.Expense, p.Start(), p.End())
	if err != nil {
		t.Fatalf("SumByCategory: %v", err)
	}
	if len(got) != 1 || got[0].CategoryID != "" || got[0].Name != "" || got[0].Total.Cents != 4200 {
		t.Fatalf("unexpected: %+v", got)
	}
}

func TestSQLiteUpsertBudgetIsIdempotentOnKey(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	f := seed(t, repo, "u1")
	p := core.Period{Year: 2025, Month: time.January}

	var wg sync.WaitGroup
	for i := 1; i <= 8; i++ {
		wg.Add(1)
		go func(cents int64) {
			defer wg.Done()
			if _, err := repo.UpsertBudget(ctx, core.Budget{UserID: "u1", CategoryID: f.food.ID, Period: p, Amount: core.Cents(cents)}); err != nil {
				t.Errorf("upsert: %v", err)
			}
		}(int64(i * 100))
	}
	wg.Wait()

	last, err := repo.UpsertBudget(ctx, core.Budget{UserID: "u1", CategoryID: f.food.ID, Period: p, Amount: core.Cents(20000)})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if last.CategoryName != "Food" || last.Amount.Cents != 20000 {
		t.Fatalf("unexpected budget: %+v", last)
	}

	list, err := repo.ListBudgets(ctx, "u1", p)
	if err != nil {
		t.Fatalf("ListBudgets: %v", err)
	}
	if len(list) != 1 || list[0].Amount.Cents != 20000 {
		t.Fatalf("expected one row with the last amount, got %+v", list)
	}
}

func TestSQLiteInsertBudgetsIfAbsent(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	f := seed(t, repo, "u1")
	rent, _ := repo.CreateCategory(ctx, core.Category{UserID: "u1", Name: "Housing", Type: core.Expense})
	feb := core.Period{Year: 2025, Month: time.February}

	if _, err := repo.UpsertBudget(ctx, core.Budget{UserID: "u1", CategoryID: f.food.ID, Period: feb, Amount: core.Cents(5000)}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	rows := []core.Budget{
		{UserID: "u1", CategoryID: f.food.ID, Period: feb, Amount: core.Cents(10000)},
		{UserID: "u1", CategoryID: rent.ID, Period: feb, Amount: core.Cents(20000)},
	}
	n, err := repo.InsertBudgetsIfAbsent(ctx, rows)
	if err != nil || n != 1 {
		t.Fatalf("first insert: n=%d err=%v", n, err)
	}
	n, err = repo.InsertBudgetsIfAbsent(ctx, rows)
	if err != nil || n != 0 {
		t.Fatalf("second insert: n=%d err=%v", n, err)
	}

	totals, err := repo.SumBudgetsByPeriod(ctx, "u1", feb.Shift(-5), feb)
	if err != nil {
		t.Fatalf("SumBudgetsByPeriod: %v", err)
	}
	if len(totals) != 1 || totals[0].Period != feb || totals[0].Total.Cents != 25000 {
		t.Fatalf("unexpected totals: %+v", totals)
	}

	owners, err := repo.BudgetOwners(ctx, feb)
	if err != nil || len(owners) != 1 || owners[0] != "u1" {
		t.Fatalf("unexpected owners: %v err=%v", owners, err)
	}
}

func TestSQLiteTransactionLifecycle(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	f := seed(t, repo, "u1")
	savings, _ := repo.CreateWallet(ctx, core.Wallet{UserID: "u1", Name: "Savings"})

	tx := mustTx(t, repo, core.Transaction{UserID: "u1", WalletID: f.wallet.ID, TargetWalletID: savings.ID,
		Type: core.Transfer, Amount: core.Cents(700), Date: time.Date(2025, 4, 2, 8, 30, 0, 0, time.UTC), Description: "move"})

	got, err := repo.GetTransaction(ctx, "u1", tx.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.TargetWalletID != savings.ID || got.CategoryID != "" || !got.Date.Equal(tx.Date) {
		t.Fatalf("unexpected round trip: %+v", got)
	}

	if _, err := repo.GetTransaction(ctx, "u2", tx.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found for other user, got %v", err)
	}

	got.Amount = core.Cents(800)
	if _, err := repo.UpdateTransaction(ctx, got); err != nil {
		t.Fatalf("update: %v", err)
	}
	recent, err := repo.RecentTransactions(ctx, "u1", 5)
	if err != nil || len(recent) != 1 || recent[0].Amount.Cents != 800 {
		t.Fatalf("unexpected recent: %+v err=%v", recent, err)
	}

	if err := repo.DeleteTransaction(ctx, "u1", tx.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := repo.DeleteTransaction(ctx, "u1", tx.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
}

func TestSQLiteAlerts(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	f := seed(t, repo, "u1")
	p := core.Period{Year: 2025, Month: time.May}

	for _, spent := range []int64{9000, 12000} {
		err := repo.UpsertAlert(ctx, core.BudgetAlert{UserID: "u1", CategoryID: f.food.ID, Period: p,
			Spent: core.Cents(spent), Limit: core.Cents(10000)})
		if err != nil {
			t.Fatalf("upsert alert: %v", err)
		}
	}
	alerts, err := repo.ListAlerts(ctx, "u1", p)
	if err != nil {
		t.Fatalf("list alerts: %v", err)
	}
	if len(alerts) != 1 || alerts[0].Spent.Cents != 12000 || alerts[0].CategoryName != "Food" {
		t.Fatalf("unexpected alerts: %+v", alerts)
	}

	for i := 0; i < 2; i++ {
		if err := repo.DeleteAlert(ctx, "u1", f.food.ID, p); err != nil {
			t.Fatalf("delete alert #%d: %v", i, err)
		}
	}
	if alerts, _ := repo.ListAlerts(ctx, "u1", p); len(alerts) != 0 {
		t.Fatalf("alert survived delete: %+v", alerts)
	}
}

func TestSQLiteListTransactions(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	f := seed(t, repo, "u1")
	for i := 1; i <= 11; i++ {
		mustTx(t, repo, core.Transaction{UserID: "u1", WalletID: f.wallet.ID, CategoryID: f.food.ID, Type: core.Expense,
			Amount: core.Cents(100), Date: time.Date(2025, 2, i, 9, 0, 0, 0, time.UTC), Description: "Lunch 50%_off"})
	}
	mustTx(t, repo, core.Transaction{UserID: "u1", WalletID: f.wallet.ID, CategoryID: f.salary.ID, Type: core.Income,
		Amount: core.Cents(300000), Date: time.Date(2025, 2, 5, 18, 0, 0, 0, time.UTC), Description: "February salary"})

	dayStart := time.Date(2025, 2, 5, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name      string
		filter    core.TransactionFilter
		wantTotal int
		wantItems int
		wantFirst string
	}{
		{"first page newest first", core.TransactionFilter{UserID: "u1", Page: 1, PageSize: 10}, 12, 10, "2025-02-11"},
		{"second page", core.TransactionFilter{UserID: "u1", Page: 2, PageSize: 10}, 12, 2, "2025-02-02"},
		{"query is case-insensitive", core.TransactionFilter{UserID: "u1", Query: "SALARY", Page: 1, PageSize: 10}, 1, 1, "2025-02-05"},
		{"wildcards are literal", core.TransactionFilter{UserID: "u1", Query: "50%_", Page: 1, PageSize: 10}, 11, 10, "2025-02-11"},
		{"percent alone matches nothing", core.TransactionFilter{UserID: "u1", Query: "%%", Page: 1, PageSize: 10}, 0, 0, ""},
		{"type", core.TransactionFilter{UserID: "u1", Type: core.Income, Page: 1, PageSize: 10}, 1, 1, "2025-02-05"},
		{"single day", core.TransactionFilter{UserID: "u1", From: dayStart, To: dayStart.Add(24*time.Hour - time.Nanosecond), Page: 1, PageSize: 10}, 2, 2, "2025-02-05"},
		{"other user", core.TransactionFilter{UserID: "u2", Page: 1, PageSize: 10}, 0, 0, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items, total, err := repo.ListTransactions(ctx, tt.filter)
			if err != nil {
				t.Fatalf("ListTransactions: %v", err)
			}
			if total != tt.wantTotal || len(items) != tt.wantItems {
				t.Fatalf("got %d items of %d, want %d of %d", len(items), total, tt.wantItems, tt.wantTotal)
			}
			if tt.wantFirst != "" && items[0].Date.Format("2006-01-02") != tt.wantFirst {
				t.Fatalf("first item dated %s, want %s", items[0].Date.Format("2006-01-02"), tt.wantFirst)
			}
		})
	}
}

func TestSQLiteWalletUpdateAndDelete(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	f := seed(t, repo, "u1")
	savings, err := repo.CreateWallet(ctx, core.Wallet{UserID: "u1", Name: "Savings"})
	if err != nil {
		t.Fatalf("create wallet: %v", err)
	}

	edited := f.wallet
	edited.Name, edited.Balance, edited.Color = "Pocket", core.Cents(-250), "#111111"
	if _, err := repo.UpdateWallet(ctx, edited); err != nil {
		t.Fatalf("UpdateWallet: %v", err)
	}
	got, _ := repo.GetWallet(ctx, "u1", f.wallet.ID)
	if got != edited {
		t.Fatalf("wallet = %+v, want %+v", got, edited)
	}
	foreign := edited
	foreign.UserID = "u2"
	if _, err := repo.UpdateWallet(ctx, foreign); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("foreign update: expected ErrNotFound, got %v", err)
	}

	mustTx(t, repo, core.Transaction{UserID: "u1", WalletID: f.wallet.ID, CategoryID: f.food.ID, Type: core.Expense,
		Amount: core.Cents(100), Date: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)})
	mustTx(t, repo, core.Transaction{UserID: "u1", WalletID: savings.ID, TargetWalletID: f.wallet.ID, Type: core.Transfer,
		Amount: core.Cents(100), Date: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)})
	kept := mustTx(t, repo, core.Transaction{UserID: "u1", WalletID: savings.ID, CategoryID: f.food.ID, Type: core.Expense,
		Amount: core.Cents(100), Date: time.Date(2025, 3, 2, 0, 0, 0, 0, time.UTC)})

	periods, err := repo.DeleteWallet(ctx, "u1", f.wallet.ID)
	if err != nil {
		t.Fatalf("DeleteWallet: %v", err)
	}
	if len(periods) != 2 || periods[0].String() != "2025-01" || periods[1].String() != "2025-03" {
		t.Fatalf("periods = %v", periods)
	}
	left, _ := repo.RecentTransactions(ctx, "u1", 10)
	if len(left) != 1 || left[0].ID != kept.ID {
		t.Fatalf("remaining = %+v", left)
	}
	if _, err := repo.DeleteWallet(ctx, "u1", f.wallet.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("second delete: expected ErrNotFound, got %v", err)
	}
}

func TestSQLiteCategoryUpdateAndDelete(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	f := seed(t, repo, "u1")
	p := core.Period{Year: 2025, Month: time.April}
	if _, err := repo.UpsertBudget(ctx, core.Budget{UserID: "u1", CategoryID: f.food.ID, Period: p, Amount: core.Cents(1000)}); err != nil {
		t.Fatalf("upsert budget: %v", err)
	}
	if err := repo.UpsertAlert(ctx, core.BudgetAlert{UserID: "u1", CategoryID: f.food.ID, Period: p}); err != nil {
		t.Fatalf("upsert alert: %v", err)
	}
	tx := mustTx(t, repo, core.Transaction{UserID: "u1", WalletID: f.wallet.ID, CategoryID: f.food.ID, Type: core.Expense,
		Amount: core.Cents(100), Date: p.Start()})

	edited := f.food
	edited.Name, edited.Color = "Groceries", "#222222"
	if _, err := repo.UpdateCategory(ctx, edited); err != nil {
		t.Fatalf("rename: %v", err)
	}
	edited.Type = core.Income
	if _, err := repo.UpdateCategory(ctx, edited); !errors.Is(err, core.ErrInUse) {
		t.Fatalf("type change in use: expected ErrInUse, got %v", err)
	}
	if err := repo.DeleteCategory(ctx, "u1", f.food.ID); !errors.Is(err, core.ErrInUse) {
		t.Fatalf("delete in use: expected ErrInUse, got %v", err)
	}
	got, _ := repo.GetCategory(ctx, "u1", f.food.ID)
	if got.Name != "Groceries" || got.Type != core.Expense {
		t.Fatalf("category = %+v", got)
	}

	if err := repo.DeleteTransaction(ctx, "u1", tx.ID); err != nil {
		t.Fatalf("delete transaction: %v", err)
	}
	if err := repo.DeleteCategory(ctx, "u1", f.food.ID); err != nil {
		t.Fatalf("DeleteCategory: %v", err)
	}
	if budgets, _ := repo.ListBudgets(ctx, "u1", p); len(budgets) != 0 {
		t.Fatalf("budgets remain: %+v", budgets)
	}
	if alerts, _ := repo.ListAlerts(ctx, "u1", p); len(alerts) != 0 {
		t.Fatalf("alerts remain: %+v", alerts)
	}
	if err := repo.DeleteCategory(ctx, "u2", f.salary.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("foreign delete: expected ErrNotFound, got %v", err)
	}
}

func TestRebindDollar(t *testing.T) {
	got := rebindDollar("SELECT * FROM t WHERE a = ? AND b = ?")
	if got != "SELECT * FROM t WHERE a = $1 AND b = $2" {
		t.Fatalf("unexpected rebind: %s", got)
	}
}

func TestDBTimeScan(t *testing.T) {
	cases := []any{
		"2025-01-31T23:59:59Z",
		[]byte("2025-01-31T23:59:59Z"),
		time.Date(2025, 1, 31, 23, 59, 59, 0, time.UTC),
	}
	for _, src := range cases {
		var dt dbTime
		if err := dt.Scan(src); err != nil {
			t.Fatalf("scan %T: %v", src, err)
		}
		if dt.Year() != 2025 || dt.Month() != time.January || dt.Day() != 31 {
			t.Fatalf("scan %T: got %v", src, dt.Time)
		}
	}
	var dt dbTime
	if err := dt.Scan(42); err == nil {
		t.Fatalf("expected error for int source")
	}
}
