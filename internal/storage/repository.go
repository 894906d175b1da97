// Package storage is the SQL ledger store. One repository serves SQLite
// (modernc.org/sqlite) and Postgres (pgx stdlib); the dialect covers the
// differences in placeholders, timestamps and month keys.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"finledger/internal/core"
)

type Repository struct {
	db      *sql.DB
	dialect dialect
	now     func() time.Time
}

// SQLiteDSN appends the pragmas every connection needs.
func SQLiteDSN(dbPath string) string {
	sep := "?"
	if strings.Contains(dbPath, "?") {
		sep = "&"
	}
	return dbPath + sep + "_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
}

func NewSQLiteRepository(dbPath string) (*Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	dsn := SQLiteDSN(dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// A single writer avoids SQLITE_BUSY inside transactions.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dsn); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Repository{db: db, dialect: sqliteDialect, now: time.Now}, nil
}

func NewPostgresRepository(ctx context.Context, url string) (*Repository, error) {
	db, err := sql.Open("pgx", url)
	if err != nil {
		return nil, fmt.Errorf("open postgres database: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetConnMaxIdleTime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunPostgresMigrations(url); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Repository{db: db, dialect: postgresDialect, now: time.Now}, nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *Repository) Ping(ctx context.Context) error {
	return core.WrapStorage("ping", r.db.PingContext(ctx))
}

func (r *Repository) exec(ctx context.Context, q string, args ...any) (sql.Result, error) {
	return r.db.ExecContext(ctx, r.dialect.rebind(q), args...)
}

func (r *Repository) query(ctx context.Context, q string, args ...any) (*sql.Rows, error) {
	return r.db.QueryContext(ctx, r.dialect.rebind(q), args...)
}

func (r *Repository) queryRow(ctx context.Context, q string, args ...any) *sql.Row {
	return r.db.QueryRowContext(ctx, r.dialect.rebind(q), args...)
}

func (r *Repository) stamp() any {
	return r.dialect.timeArg(r.now())
}

// inTx runs fn inside one database transaction, rolling back on error.
func (r *Repository) inTx(ctx context.Context, op string, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return core.WrapStorage("begin "+op, err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		if errors.Is(err, core.ErrInUse) {
			return err
		}
		return core.WrapStorage(op, err)
	}
	return core.WrapStorage("commit "+op, tx.Commit())
}

func (r *Repository) txExec(ctx context.Context, tx *sql.Tx, q string, args ...any) (sql.Result, error) {
	return tx.ExecContext(ctx, r.dialect.rebind(q), args...)
}

func (r *Repository) txQueryRow(ctx context.Context, tx *sql.Tx, q string, args ...any) *sql.Row {
	return tx.QueryRowContext(ctx, r.dialect.rebind(q), args...)
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return core.ErrNotFound
	}
	return err
}

// Wallets

func (r *Repository) CreateWallet(ctx context.Context, w core.Wallet) (core.Wallet, error) {
	if w.ID == "" {
		w.ID = uuid.NewString()
	}
	_, err := r.exec(ctx,
		`INSERT INTO wallets (id, user_id, name, balance_cents, color) VALUES (?, ?, ?, ?, ?)`,
		w.ID, w.UserID, w.Name, w.Balance.Cents, w.Color)
	if err != nil {
		return core.Wallet{}, core.WrapStorage("create wallet", err)
	}
	return w, nil
}

func (r *Repository) GetWallet(ctx context.Context, userID, id string) (core.Wallet, error) {
	var w core.Wallet
	err := r.queryRow(ctx,
		`SELECT id, user_id, name, balance_cents, color FROM wallets WHERE id = ? AND user_id = ?`,
		id, userID).Scan(&w.ID, &w.UserID, &w.Name, &w.Balance.Cents, &w.Color)
	if err != nil {
		return core.Wallet{}, core.WrapStorage("get wallet", notFound(err))
	}
	return w, nil
}

func (r *Repository) ListWallets(ctx context.Context, userID string) ([]core.Wallet, error) {
	rows, err := r.query(ctx,
		`SELECT id, user_id, name, balance_cents, color FROM wallets WHERE user_id = ? ORDER BY name, id`,
		userID)
	if err != nil {
		return nil, core.WrapStorage("list wallets", err)
	}
	defer rows.Close()

	var out []core.Wallet
	for rows.Next() {
		var w core.Wallet
		if err := rows.Scan(&w.ID, &w.UserID, &w.Name, &w.Balance.Cents, &w.Color); err != nil {
			return nil, core.WrapStorage("scan wallet", err)
		}
		out = append(out, w)
	}
	return out, core.WrapStorage("list wallets", rows.Err())
}

func (r *Repository) UpdateWallet(ctx context.Context, w core.Wallet) (core.Wallet, error) {
	res, err := r.exec(ctx,
		`UPDATE wallets SET name = ?, balance_cents = ?, color = ? WHERE id = ? AND user_id = ?`,
		w.Name, w.Balance.Cents, w.Color, w.ID, w.UserID)
	if err != nil {
		return core.Wallet{}, core.WrapStorage("update wallet", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return core.Wallet{}, core.ErrNotFound
	}
	return w, nil
}

// DeleteWallet removes transfers into the wallet explicitly; the schema would
// only null their target, leaving transfers without a destination.
func (r *Repository) DeleteWallet(ctx context.Context, userID, id string) ([]core.Period, error) {
	var periods []core.Period
	err := r.inTx(ctx, "delete wallet", func(tx *sql.Tx) error {
		key := r.dialect.monthKey("occurred_at")
		rows, err := tx.QueryContext(ctx, r.dialect.rebind(
			`SELECT DISTINCT `+key+` AS month FROM transactions
			 WHERE user_id = ? AND (wallet_id = ? OR target_wallet_id = ?)
			 ORDER BY month`), userID, id, id)
		if err != nil {
			return err
		}
		for rows.Next() {
			var month string
			if err := rows.Scan(&month); err != nil {
				rows.Close()
				return err
			}
			p, err := core.ParsePeriod(month)
			if err != nil {
				rows.Close()
				return err
			}
			periods = append(periods, p)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}

		if _, err := r.txExec(ctx, tx,
			`DELETE FROM transactions WHERE user_id = ? AND (wallet_id = ? OR target_wallet_id = ?)`,
			userID, id, id); err != nil {
			return err
		}
		res, err := r.txExec(ctx, tx, `DELETE FROM wallets WHERE id = ? AND user_id = ?`, id, userID)
		if err != nil {
			return err
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return core.ErrNotFound
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return periods, nil
}

// Categories

func (r *Repository) CreateCategory(ctx context.Context, c core.Category) (core.Category, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	_, err := r.exec(ctx,
		`INSERT INTO categories (id, user_id, name, type, color) VALUES (?, ?, ?, ?, ?)`,
		c.ID, c.UserID, c.Name, string(c.Type), c.Color)
	if err != nil {
		return core.Category{}, core.WrapStorage("create category", err)
	}
	return c, nil
}

func (r *Repository) GetCategory(ctx context.Context, userID, id string) (core.Category, error) {
	var c core.Category
	var typ string
	err := r.queryRow(ctx,
		`SELECT id, user_id, name, type, color FROM categories WHERE id = ? AND user_id = ?`,
		id, userID).Scan(&c.ID, &c.UserID, &c.Name, &typ, &c.Color)
	if err != nil {
		return core.Category{}, core.WrapStorage("get category", notFound(err))
	}
	c.Type = core.TransactionType(typ)
	return c, nil
}

func (r *Repository) ListCategories(ctx context.Context, userID string) ([]core.Category, error) {
	rows, err := r.query(ctx,
		`SELECT id, user_id, name, type, color FROM categories WHERE user_id = ? ORDER BY name, id`,
		userID)
	if err != nil {
		return nil, core.WrapStorage("list categories", err)
	}
	defer rows.Close()

	var out []core.Category
	for rows.Next() {
		var c core.Category
		var typ string
		if err := rows.Scan(&c.ID, &c.UserID, &c.Name, &typ, &c.Color); err != nil {
			return nil, core.WrapStorage("scan category", err)
		}
		c.Type = core.TransactionType(typ)
		out = append(out, c)
	}
	return out, core.WrapStorage("list categories", rows.Err())
}

func categoryInUse(ctx context.Context, r *Repository, tx *sql.Tx, userID, id string) (bool, error) {
	var n int
	err := r.txQueryRow(ctx, tx,
		`SELECT COUNT(*) FROM transactions WHERE user_id = ? AND category_id = ?`, userID, id).Scan(&n)
	return n > 0, err
}

func (r *Repository) UpdateCategory(ctx context.Context, c core.Category) (core.Category, error) {
	err := r.inTx(ctx, "update category", func(tx *sql.Tx) error {
		var current string
		err := r.txQueryRow(ctx, tx,
			`SELECT type FROM categories WHERE id = ? AND user_id = ?`, c.ID, c.UserID).Scan(&current)
		if err != nil {
			return notFound(err)
		}
		if core.TransactionType(current) != c.Type {
			used, err := categoryInUse(ctx, r, tx, c.UserID, c.ID)
			if err != nil {
				return err
			}
			if used {
				return core.ErrInUse
			}
		}
		_, err = r.txExec(ctx, tx,
			`UPDATE categories SET name = ?, type = ?, color = ? WHERE id = ? AND user_id = ?`,
			c.Name, string(c.Type), c.Color, c.ID, c.UserID)
		return err
	})
	if err != nil {
		return core.Category{}, err
	}
	return c, nil
}

func (r *Repository) DeleteCategory(ctx context.Context, userID, id string) error {
	return r.inTx(ctx, "delete category", func(tx *sql.Tx) error {
		var found string
		err := r.txQueryRow(ctx, tx,
			`SELECT id FROM categories WHERE id = ? AND user_id = ?`, id, userID).Scan(&found)
		if err != nil {
			return notFound(err)
		}
		used, err := categoryInUse(ctx, r, tx, userID, id)
		if err != nil {
			return err
		}
		if used {
			return core.ErrInUse
		}
		for _, q := range []string{
			`DELETE FROM budget_alerts WHERE user_id = ? AND category_id = ?`,
			`DELETE FROM budgets WHERE user_id = ? AND category_id = ?`,
		} {
			if _, err := r.txExec(ctx, tx, q, userID, id); err != nil {
				return err
			}
		}
		_, err = r.txExec(ctx, tx, `DELETE FROM categories WHERE id = ? AND user_id = ?`, id, userID)
		return err
	})
}

// Transactions

const transactionColumns = `id, user_id, wallet_id, COALESCE(target_wallet_id, ''), COALESCE(category_id, ''),
	amount_cents, type, occurred_at, description`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (core.Transaction, error) {
	var (
		t   core.Transaction
		typ string
		at  dbTime
	)
	err := row.Scan(&t.ID, &t.UserID, &t.WalletID, &t.TargetWalletID, &t.CategoryID,
		&t.Amount.Cents, &typ, &at, &t.Description)
	if err != nil {
		return core.Transaction{}, err
	}
	t.Type = core.TransactionType(typ)
	t.Date = at.Time
	return t, nil
}

func (r *Repository) CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	t.Date = t.Date.UTC().Truncate(time.Second)
	_, err := r.exec(ctx,
		`INSERT INTO transactions (id, user_id, wallet_id, target_wallet_id, category_id, amount_cents, type, occurred_at, description)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.UserID, t.WalletID, nullString(t.TargetWalletID), nullString(t.CategoryID),
		t.Amount.Cents, string(t.Type), r.dialect.timeArg(t.Date), t.Description)
	if err != nil {
		return core.Transaction{}, core.WrapStorage("create transaction", err)
	}
	return t, nil
}

func (r *Repository) UpdateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	t.Date = t.Date.UTC().Truncate(time.Second)
	res, err := r.exec(ctx,
		`UPDATE transactions
		 SET wallet_id = ?, target_wallet_id = ?, category_id = ?, amount_cents = ?, type = ?, occurred_at = ?, description = ?
		 WHERE id = ? AND user_id = ?`,
		t.WalletID, nullString(t.TargetWalletID), nullString(t.CategoryID), t.Amount.Cents,
		string(t.Type), r.dialect.timeArg(t.Date), t.Description, t.ID, t.UserID)
	if err != nil {
		return core.Transaction{}, core.WrapStorage("update transaction", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return core.Transaction{}, core.ErrNotFound
	}
	return t, nil
}

func (r *Repository) DeleteTransaction(ctx context.Context, userID, id string) error {
	res, err := r.exec(ctx, `DELETE FROM transactions WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return core.WrapStorage("delete transaction", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (r *Repository) GetTransaction(ctx context.Context, userID, id string) (core.Transaction, error) {
	row := r.queryRow(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE id = ? AND user_id = ?`, id, userID)
	t, err := scanTransaction(row)
	if err != nil {
		return core.Transaction{}, core.WrapStorage("get transaction", notFound(err))
	}
	return t, nil
}

func (r *Repository) RecentTransactions(ctx context.Context, userID string, limit int) ([]core.Transaction, error) {
	rows, err := r.query(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE user_id = ?
		 ORDER BY occurred_at DESC, id LIMIT ?`, userID, limit)
	if err != nil {
		return nil, core.WrapStorage("recent transactions", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, core.WrapStorage("scan transaction", err)
		}
		out = append(out, t)
	}
	return out, core.WrapStorage("recent transactions", rows.Err())
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// transactionWhere renders the WHERE clause of a listing filter.
func (r *Repository) transactionWhere(f core.TransactionFilter) (string, []any) {
	var (
		conds = []string{"user_id = ?"}
		args  = []any{f.UserID}
	)
	if f.Type != "" {
		conds = append(conds, "type = ?")
		args = append(args, string(f.Type))
	}
	if !f.From.IsZero() {
		conds = append(conds, "occurred_at >= ?")
		args = append(args, r.dialect.timeArg(f.From))
	}
	if !f.To.IsZero() {
		conds = append(conds, "occurred_at <= ?")
		args = append(args, r.dialect.timeArg(f.To))
	}
	if q := strings.TrimSpace(f.Query); q != "" {
		conds = append(conds, `LOWER(description) LIKE ? ESCAPE '\'`)
		args = append(args, "%"+likeEscaper.Replace(strings.ToLower(q))+"%")
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (r *Repository) ListTransactions(ctx context.Context, f core.TransactionFilter) ([]core.Transaction, int, error) {
	where, args := r.transactionWhere(f)

	var total int
	if err := r.queryRow(ctx, `SELECT COUNT(*) FROM transactions`+where, args...).Scan(&total); err != nil {
		return nil, 0, core.WrapStorage("count transactions", err)
	}
	if total == 0 {
		return nil, 0, nil
	}

	q := `SELECT ` + transactionColumns + ` FROM transactions` + where + ` ORDER BY occurred_at DESC, id`
	if f.PageSize > 0 {
		q += ` LIMIT ? OFFSET ?`
		args = append(args, f.PageSize, f.Offset())
	}
	rows, err := r.query(ctx, q, args...)
	if err != nil {
		return nil, 0, core.WrapStorage("list transactions", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, 0, core.WrapStorage("scan transaction", err)
		}
		out = append(out, t)
	}
	return out, total, core.WrapStorage("list transactions", rows.Err())
}

// Aggregates

func (r *Repository) SumByMonth(ctx context.Context, userID string, txType core.TransactionType, from, to time.Time) ([]core.MonthlyTotal, error) {
	key := r.dialect.monthKey("occurred_at")
	rows, err := r.query(ctx,
		`SELECT `+key+` AS month, CAST(SUM(amount_cents) AS BIGINT)
		 FROM transactions
		 WHERE user_id = ? AND type = ? AND occurred_at >= ? AND occurred_at <= ?
		 GROUP BY `+key+`
		 ORDER BY month`,
		userID, string(txType), r.dialect.timeArg(from), r.dialect.timeArg(to))
	if err != nil {
		return nil, core.WrapStorage("sum by month", err)
	}
	defer rows.Close()

	var out []core.MonthlyTotal
	for rows.Next() {
		var (
			month string
			total int64
		)
		if err := rows.Scan(&month, &total); err != nil {
			return nil, core.WrapStorage("scan monthly total", err)
		}
		p, err := core.ParsePeriod(month)
		if err != nil {
			return nil, core.WrapStorage("parse month key", err)
		}
		out = append(out, core.MonthlyTotal{Period: p, Total: core.Cents(total)})
	}
	return out, core.WrapStorage("sum by month", rows.Err())
}

func (r *Repository) SumByCategory(ctx context.Context, userID string, txType core.TransactionType, from, to time.Time) ([]core.CategoryTotal, error) {
	rows, err := r.query(ctx,
		`SELECT COALESCE(t.category_id, ''), COALESCE(c.name, ''), COALESCE(c.color, ''), CAST(SUM(t.amount_cents) AS BIGINT)
		 FROM transactions t
		 LEFT JOIN categories c ON c.id = t.category_id AND c.user_id = t.user_id
		 WHERE t.user_id = ? AND t.type = ? AND t.occurred_at >= ? AND t.occurred_at <= ?
		 GROUP BY t.category_id, c.name, c.color`,
		userID, string(txType), r.dialect.timeArg(from), r.dialect.timeArg(to))
	if err != nil {
		return nil, core.WrapStorage("sum by category", err)
	}
	defer rows.Close()

	var out []core.CategoryTotal
	for rows.Next() {
		var ct core.CategoryTotal
		if err := rows.Scan(&ct.CategoryID, &ct.Name, &ct.Color, &ct.Total.Cents); err != nil {
			return nil, core.WrapStorage("scan category total", err)
		}
		out = append(out, ct)
	}
	return out, core.WrapStorage("sum by category", rows.Err())
}

func (r *Repository) SumByType(ctx context.Context, userID string, from, to time.Time) (map[core.TransactionType]core.Money, error) {
	rows, err := r.query(ctx,
		`SELECT type, CAST(SUM(amount_cents) AS BIGINT)
		 FROM transactions
		 WHERE user_id = ? AND occurred_at >= ? AND occurred_at <= ?
		 GROUP BY type`,
		userID, r.dialect.timeArg(from), r.dialect.timeArg(to))
	if err != nil {
		return nil, core.WrapStorage("sum by type", err)
	}
	defer rows.Close()

	out := make(map[core.TransactionType]core.Money)
	for rows.Next() {
		var (
			typ   string
			total int64
		)
		if err := rows.Scan(&typ, &total); err != nil {
			return nil, core.WrapStorage("scan type total", err)
		}
		out[core.TransactionType(typ)] = core.Cents(total)
	}
	return out, core.WrapStorage("sum by type", rows.Err())
}

func (r *Repository) SumForCategory(ctx context.Context, userID, categoryID string, txType core.TransactionType, from, to time.Time) (core.Money, error) {
	var total int64
	err := r.queryRow(ctx,
		`SELECT CAST(COALESCE(SUM(amount_cents), 0) AS BIGINT)
		 FROM transactions
		 WHERE user_id = ? AND category_id = ? AND type = ? AND occurred_at >= ? AND occurred_at <= ?`,
		userID, categoryID, string(txType), r.dialect.timeArg(from), r.dialect.timeArg(to)).Scan(&total)
	if err != nil {
		return core.Money{}, core.WrapStorage("sum for category", err)
	}
	return core.Cents(total), nil
}

// Budgets

const budgetSelect = `SELECT b.id, b.user_id, b.category_id, COALESCE(c.name, ''), COALESCE(c.color, ''),
	b.amount_cents, b.period, b.created_at, b.updated_at
	FROM budgets b
	LEFT JOIN categories c ON c.id = b.category_id AND c.user_id = b.user_id`

func scanBudget(row rowScanner) (core.Budget, error) {
	var (
		b                core.Budget
		period           string
		created, updated dbTime
	)
	err := row.Scan(&b.ID, &b.UserID, &b.CategoryID, &b.CategoryName, &b.CategoryColor,
		&b.Amount.Cents, &period, &created, &updated)
	if err != nil {
		return core.Budget{}, err
	}
	p, err := core.ParsePeriod(strings.TrimSpace(period))
	if err != nil {
		return core.Budget{}, err
	}
	b.Period = p
	b.CreatedAt, b.UpdatedAt = created.Time, updated.Time
	return b, nil
}

// UpsertBudget is a single INSERT ... ON CONFLICT statement, so concurrent
// writers on the same key end with exactly one row holding the last amount.
func (r *Repository) UpsertBudget(ctx context.Context, b core.Budget) (core.Budget, error) {
	now := r.stamp()
	_, err := r.exec(ctx,
		`INSERT INTO budgets (id, user_id, category_id, amount_cents, period, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (user_id, category_id, period)
		 DO UPDATE SET amount_cents = excluded.amount_cents, updated_at = excluded.updated_at`,
		uuid.NewString(), b.UserID, b.CategoryID, b.Amount.Cents, b.Period.String(), now, now)
	if err != nil {
		return core.Budget{}, core.WrapStorage("upsert budget", err)
	}

	row := r.queryRow(ctx,
		budgetSelect+` WHERE b.user_id = ? AND b.category_id = ? AND b.period = ?`,
		b.UserID, b.CategoryID, b.Period.String())
	saved, err := scanBudget(row)
	if err != nil {
		return core.Budget{}, core.WrapStorage("reload budget", notFound(err))
	}
	slog.DebugContext(ctx, "Budget upserted",
		"user_id", saved.UserID,
		"category_id", saved.CategoryID,
		"period", saved.Period.String(),
		"amount_cents", saved.Amount.Cents)
	return saved, nil
}

func (r *Repository) ListBudgets(ctx context.Context, userID string, period core.Period) ([]core.Budget, error) {
	rows, err := r.query(ctx,
		budgetSelect+` WHERE b.user_id = ? AND b.period = ? ORDER BY b.category_id`,
		userID, period.String())
	if err != nil {
		return nil, core.WrapStorage("list budgets", err)
	}
	defer rows.Close()

	var out []core.Budget
	for rows.Next() {
		b, err := scanBudget(rows)
		if err != nil {
			return nil, core.WrapStorage("scan budget", err)
		}
		out = append(out, b)
	}
	return out, core.WrapStorage("list budgets", rows.Err())
}

// InsertBudgetsIfAbsent writes all rows in one transaction. Keys that already
// exist are left untouched and not counted.
func (r *Repository) InsertBudgetsIfAbsent(ctx context.Context, budgets []core.Budget) (int, error) {
	if len(budgets) == 0 {
		return 0, nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, core.WrapStorage("begin copy", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, r.dialect.rebind(
		`INSERT INTO budgets (id, user_id, category_id, amount_cents, period, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (user_id, category_id, period) DO NOTHING`))
	if err != nil {
		return 0, core.WrapStorage("prepare copy", err)
	}
	defer stmt.Close()

	now := r.stamp()
	inserted := 0
	for _, b := range budgets {
		res, err := stmt.ExecContext(ctx, uuid.NewString(), b.UserID, b.CategoryID, b.Amount.Cents, b.Period.String(), now, now)
		if err != nil {
			return 0, core.WrapStorage("insert budget", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, core.WrapStorage("insert budget", err)
		}
		inserted += int(n)
	}

	if err := tx.Commit(); err != nil {
		return 0, core.WrapStorage("commit copy", err)
	}
	return inserted, nil
}

func (r *Repository) SumBudgetsByPeriod(ctx context.Context, userID string, from, to core.Period) ([]core.PeriodTotal, error) {
	rows, err := r.query(ctx,
		`SELECT period, CAST(SUM(amount_cents) AS BIGINT)
		 FROM budgets
		 WHERE user_id = ? AND period >= ? AND period <= ?
		 GROUP BY period
		 ORDER BY period`,
		userID, from.String(), to.String())
	if err != nil {
		return nil, core.WrapStorage("sum budgets", err)
	}
	defer rows.Close()

	var out []core.PeriodTotal
	for rows.Next() {
		var (
			period string
			total  int64
		)
		if err := rows.Scan(&period, &total); err != nil {
			return nil, core.WrapStorage("scan budget total", err)
		}
		p, err := core.ParsePeriod(strings.TrimSpace(period))
		if err != nil {
			return nil, core.WrapStorage("parse budget period", err)
		}
		out = append(out, core.PeriodTotal{Period: p, Total: core.Cents(total)})
	}
	return out, core.WrapStorage("sum budgets", rows.Err())
}

func (r *Repository) BudgetOwners(ctx context.Context, period core.Period) ([]string, error) {
	rows, err := r.query(ctx,
		`SELECT DISTINCT user_id FROM budgets WHERE period = ? ORDER BY user_id`, period.String())
	if err != nil {
		return nil, core.WrapStorage("budget owners", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, core.WrapStorage("scan budget owner", err)
		}
		out = append(out, id)
	}
	return out, core.WrapStorage("budget owners", rows.Err())
}

// Alerts

func (r *Repository) UpsertAlert(ctx context.Context, a core.BudgetAlert) error {
	now := r.stamp()
	_, err := r.exec(ctx,
		`INSERT INTO budget_alerts (user_id, category_id, period, spent_cents, limit_cents, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (user_id, category_id, period)
		 DO UPDATE SET spent_cents = excluded.spent_cents, limit_cents = excluded.limit_cents, updated_at = excluded.updated_at`,
		a.UserID, a.CategoryID, a.Period.String(), a.Spent.Cents, a.Limit.Cents, now, now)
	return core.WrapStorage("upsert alert", err)
}

func (r *Repository) ListAlerts(ctx context.Context, userID string, period core.Period) ([]core.BudgetAlert, error) {
	rows, err := r.query(ctx,
		`SELECT a.user_id, a.category_id, COALESCE(c.name, ''), a.period, a.spent_cents, a.limit_cents, a.created_at, a.updated_at
		 FROM budget_alerts a
		 LEFT JOIN categories c ON c.id = a.category_id AND c.user_id = a.user_id
		 WHERE a.user_id = ? AND a.period = ?
		 ORDER BY a.category_id`,
		userID, period.String())
	if err != nil {
		return nil, core.WrapStorage("list alerts", err)
	}
	defer rows.Close()

	var out []core.BudgetAlert
	for rows.Next() {
		var (
			a                core.BudgetAlert
			p                string
			created, updated dbTime
		)
		if err := rows.Scan(&a.UserID, &a.CategoryID, &a.CategoryName, &p, &a.Spent.Cents, &a.Limit.Cents, &created, &updated); err != nil {
			return nil, core.WrapStorage("scan alert", err)
		}
		if a.Period, err = core.ParsePeriod(strings.TrimSpace(p)); err != nil {
			return nil, core.WrapStorage("parse alert period", err)
		}
		a.CreatedAt, a.UpdatedAt = created.Time, updated.Time
		out = append(out, a)
	}
	return out, core.WrapStorage("list alerts", rows.Err())
}

func (r *Repository) DeleteAlert(ctx context.Context, userID, categoryID string, period core.Period) error {
	_, err := r.exec(ctx,
		`DELETE FROM budget_alerts WHERE user_id = ? AND category_id = ? AND period = ?`,
		userID, categoryID, period.String())
	return core.WrapStorage("delete alert", err)
}
