// Package memory is an in-process ledger store. It backs the "memory" data
// backend and the service tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"finledger/internal/core"
)

type budgetKey struct {
	userID     string
	categoryID string
	period     core.Period
}

type Store struct {
	mu           sync.Mutex
	now          func() time.Time
	wallets      map[string]core.Wallet
	categories   map[string]core.Category
	transactions map[string]core.Transaction
	budgets      map[budgetKey]core.Budget
	alerts       map[budgetKey]core.BudgetAlert
}

func New() *Store {
	return &Store{
		now:          time.Now,
		wallets:      make(map[string]core.Wallet),
		categories:   make(map[string]core.Category),
		transactions: make(map[string]core.Transaction),
		budgets:      make(map[budgetKey]core.Budget),
		alerts:       make(map[budgetKey]core.BudgetAlert),
	}
}

// WithClock replaces the timestamp source, for tests.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

func (s *Store) Ping(context.Context) error { return nil }
func (s *Store) Close() error               { return nil }

// BudgetCount returns the number of stored budget rows for userID.
func (s *Store) BudgetCount(userID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for k := range s.budgets {
		if k.userID == userID {
			n++
		}
	}
	return n
}

func inRange(t, from, to time.Time) bool {
	return !t.Before(from) && !t.After(to)
}

func (s *Store) SumByMonth(_ context.Context, userID string, txType core.TransactionType, from, to time.Time) ([]core.MonthlyTotal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sums := map[core.Period]core.Money{}
	for _, t := range s.transactions {
		if t.UserID != userID || t.Type != txType || !inRange(t.Date, from, to) {
			continue
		}
		p := core.PeriodOf(t.Date)
		sums[p] = sums[p].Add(t.Amount)
	}
	out := make([]core.MonthlyTotal, 0, len(sums))
	for p, total := range sums {
		out = append(out, core.MonthlyTotal{Period: p, Total: total})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Period.Before(out[j].Period) })
	return out, nil
}

func (s *Store) SumByCategory(_ context.Context, userID string, txType core.TransactionType, from, to time.Time) ([]core.CategoryTotal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sums := map[string]core.Money{}
	for _, t := range s.transactions {
		if t.UserID != userID || t.Type != txType || !inRange(t.Date, from, to) {
			continue
		}
		sums[t.CategoryID] = sums[t.CategoryID].Add(t.Amount)
	}
	out := make([]core.CategoryTotal, 0, len(sums))
	for id, total := range sums {
		ct := core.CategoryTotal{CategoryID: id, Total: total}
		if c, ok := s.categories[id]; ok && c.UserID == userID {
			ct.Name, ct.Color = c.Name, c.Color
		}
		out = append(out, ct)
	}
	return out, nil
}

func (s *Store) SumByType(_ context.Context, userID string, from, to time.Time) (map[core.TransactionType]core.Money, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := map[core.TransactionType]core.Money{}
	for _, t := range s.transactions {
		if t.UserID != userID || !inRange(t.Date, from, to) {
			continue
		}
		out[t.Type] = out[t.Type].Add(t.Amount)
	}
	return out, nil
}

func (s *Store) SumForCategory(_ context.Context, userID, categoryID string, txType core.TransactionType, from, to time.Time) (core.Money, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var total core.Money
	for _, t := range s.transactions {
		if t.UserID == userID && t.CategoryID == categoryID && t.Type == txType && inRange(t.Date, from, to) {
			total = total.Add(t.Amount)
		}
	}
	return total, nil
}

func (s *Store) CreateTransaction(_ context.Context, t core.Transaction) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	t.Date = t.Date.UTC()
	s.transactions[t.ID] = t
	return t, nil
}

func (s *Store) UpdateTransaction(_ context.Context, t core.Transaction) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.transactions[t.ID]
	if !ok || existing.UserID != t.UserID {
		return core.Transaction{}, core.ErrNotFound
	}
	t.Date = t.Date.UTC()
	s.transactions[t.ID] = t
	return t, nil
}

func (s *Store) DeleteTransaction(_ context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.transactions[id]
	if !ok || existing.UserID != userID {
		return core.ErrNotFound
	}
	delete(s.transactions, id)
	return nil
}

func (s *Store) GetTransaction(_ context.Context, userID, id string) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.transactions[id]
	if !ok || t.UserID != userID {
		return core.Transaction{}, core.ErrNotFound
	}
	return t, nil
}

func (s *Store) RecentTransactions(_ context.Context, userID string, limit int) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Transaction
	for _, t := range s.transactions {
		if t.UserID == userID {
			out = append(out, t)
		}
	}
	sortNewestFirst(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) ListTransactions(_ context.Context, f core.TransactionFilter) ([]core.Transaction, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var matched []core.Transaction
	for _, t := range s.transactions {
		if f.Matches(t) {
			matched = append(matched, t)
		}
	}
	sortNewestFirst(matched)

	total := len(matched)
	start := min(f.Offset(), total)
	end := total
	if f.PageSize > 0 {
		end = min(start+f.PageSize, total)
	}
	return matched[start:end], total, nil
}

func sortNewestFirst(txs []core.Transaction) {
	sort.Slice(txs, func(i, j int) bool {
		if !txs[i].Date.Equal(txs[j].Date) {
			return txs[i].Date.After(txs[j].Date)
		}
		return txs[i].ID < txs[j].ID
	})
}

func (s *Store) withCategory(b core.Budget) core.Budget {
	if c, ok := s.categories[b.CategoryID]; ok && c.UserID == b.UserID {
		b.CategoryName, b.CategoryColor = c.Name, c.Color
	}
	return b
}

func (s *Store) UpsertBudget(_ context.Context, b core.Budget) (core.Budget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now().UTC()
	key := budgetKey{b.UserID, b.CategoryID, b.Period}
	if existing, ok := s.budgets[key]; ok {
		existing.Amount = b.Amount
		existing.UpdatedAt = now
		s.budgets[key] = existing
		return s.withCategory(existing), nil
	}
	b.ID = uuid.NewString()
	b.CreatedAt, b.UpdatedAt = now, now
	s.budgets[key] = b
	return s.withCategory(b), nil
}

func (s *Store) ListBudgets(_ context.Context, userID string, period core.Period) ([]core.Budget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Budget
	for k, b := range s.budgets {
		if k.userID == userID && k.period == period {
			out = append(out, s.withCategory(b))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CategoryID < out[j].CategoryID })
	return out, nil
}

func (s *Store) InsertBudgetsIfAbsent(_ context.Context, budgets []core.Budget) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now().UTC()
	inserted := 0
	for _, b := range budgets {
		key := budgetKey{b.UserID, b.CategoryID, b.Period}
		if _, ok := s.budgets[key]; ok {
			continue
		}
		b.ID = uuid.NewString()
		b.CreatedAt, b.UpdatedAt = now, now
		s.budgets[key] = b
		inserted++
	}
	return inserted, nil
}

func (s *Store) SumBudgetsByPeriod(_ context.Context, userID string, from, to core.Period) ([]core.PeriodTotal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sums := map[core.Period]core.Money{}
	for k, b := range s.budgets {
		if k.userID != userID || k.period.Before(from) || to.Before(k.period) {
			continue
		}
		sums[k.period] = sums[k.period].Add(b.Amount)
	}
	out := make([]core.PeriodTotal, 0, len(sums))
	for p, total := range sums {
		out = append(out, core.PeriodTotal{Period: p, Total: total})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Period.Before(out[j].Period) })
	return out, nil
}

func (s *Store) BudgetOwners(_ context.Context, period core.Period) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := map[string]struct{}{}
	var out []string
	for k := range s.budgets {
		if k.period != period {
			continue
		}
		if _, ok := seen[k.userID]; ok {
			continue
		}
		seen[k.userID] = struct{}{}
		out = append(out, k.userID)
	}
	sort.Strings(out)
	return out, nil
}

func (s *Store) GetCategory(_ context.Context, userID, id string) (core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.categories[id]
	if !ok || c.UserID != userID {
		return core.Category{}, core.ErrNotFound
	}
	return c, nil
}

func (s *Store) ListCategories(_ context.Context, userID string) ([]core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Category
	for _, c := range s.categories {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) CreateCategory(_ context.Context, c core.Category) (core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	s.categories[c.ID] = c
	return c, nil
}

// categoryInUse reports whether any transaction of userID references id.
// Callers hold s.mu.
func (s *Store) categoryInUse(userID, id string) bool {
	for _, t := range s.transactions {
		if t.UserID == userID && t.CategoryID == id {
			return true
		}
	}
	return false
}

func (s *Store) UpdateCategory(_ context.Context, c core.Category) (core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.categories[c.ID]
	if !ok || existing.UserID != c.UserID {
		return core.Category{}, core.ErrNotFound
	}
	if existing.Type != c.Type && s.categoryInUse(c.UserID, c.ID) {
		return core.Category{}, core.ErrInUse
	}
	s.categories[c.ID] = c
	return c, nil
}

func (s *Store) DeleteCategory(_ context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.categories[id]
	if !ok || existing.UserID != userID {
		return core.ErrNotFound
	}
	if s.categoryInUse(userID, id) {
		return core.ErrInUse
	}
	for k := range s.budgets {
		if k.userID == userID && k.categoryID == id {
			delete(s.budgets, k)
		}
	}
	for k := range s.alerts {
		if k.userID == userID && k.categoryID == id {
			delete(s.alerts, k)
		}
	}
	delete(s.categories, id)
	return nil
}

func (s *Store) GetWallet(_ context.Context, userID, id string) (core.Wallet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.wallets[id]
	if !ok || w.UserID != userID {
		return core.Wallet{}, core.ErrNotFound
	}
	return w, nil
}

func (s *Store) ListWallets(_ context.Context, userID string) ([]core.Wallet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Wallet
	for _, w := range s.wallets {
		if w.UserID == userID {
			out = append(out, w)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) CreateWallet(_ context.Context, w core.Wallet) (core.Wallet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if w.ID == "" {
		w.ID = uuid.NewString()
	}
	s.wallets[w.ID] = w
	return w, nil
}

func (s *Store) UpdateWallet(_ context.Context, w core.Wallet) (core.Wallet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.wallets[w.ID]
	if !ok || existing.UserID != w.UserID {
		return core.Wallet{}, core.ErrNotFound
	}
	s.wallets[w.ID] = w
	return w, nil
}

func (s *Store) DeleteWallet(_ context.Context, userID, id string) ([]core.Period, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.wallets[id]
	if !ok || existing.UserID != userID {
		return nil, core.ErrNotFound
	}
	seen := map[core.Period]bool{}
	var periods []core.Period
	for txID, t := range s.transactions {
		if t.UserID != userID || (t.WalletID != id && t.TargetWalletID != id) {
			continue
		}
		if p := core.PeriodOf(t.Date); !seen[p] {
			seen[p] = true
			periods = append(periods, p)
		}
		delete(s.transactions, txID)
	}
	delete(s.wallets, id)
	sort.Slice(periods, func(i, j int) bool { return periods[i].Before(periods[j]) })
	return periods, nil
}

func (s *Store) UpsertAlert(_ context.Context, a core.BudgetAlert) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now().UTC()
	key := budgetKey{a.UserID, a.CategoryID, a.Period}
	if existing, ok := s.alerts[key]; ok {
		a.CreatedAt = existing.CreatedAt
	} else {
		a.CreatedAt = now
	}
	a.UpdatedAt = now
	s.alerts[key] = a
	return nil
}

func (s *Store) ListAlerts(_ context.Context, userID string, period core.Period) ([]core.BudgetAlert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.BudgetAlert
	for k, a := range s.alerts {
		if k.userID != userID || k.period != period {
			continue
		}
		if c, ok := s.categories[a.CategoryID]; ok {
			a.CategoryName = c.Name
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CategoryID < out[j].CategoryID })
	return out, nil
}

func (s *Store) DeleteAlert(_ context.Context, userID, categoryID string, period core.Period) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.alerts, budgetKey{userID, categoryID, period})
	return nil
}
