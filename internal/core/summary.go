package core

// MonthlyTotal is one month of a spending series.
type MonthlyTotal struct {
	Period Period `json:"period"`
	Total  Money  `json:"total"`
}

// PeriodTotal is a sum keyed by period, e.g. all budgets of a month.
type PeriodTotal struct {
	Period Period
	Total  Money
}

// CategoryTotal is one slice of a category breakdown. CategoryID is empty for
// uncategorized transactions.
type CategoryTotal struct {
	CategoryID string `json:"categoryId,omitempty"`
	Name       string `json:"name"`
	Total      Money  `json:"total"`
	Color      string `json:"color"`
}

// PeriodSummary holds the income/expense totals of one month. Savings may be
// negative.
type PeriodSummary struct {
	Period  Period `json:"period"`
	Income  Money  `json:"income"`
	Expense Money  `json:"expense"`
	Savings Money  `json:"savings"`
}

func NewPeriodSummary(p Period, income, expense Money) PeriodSummary {
	return PeriodSummary{
		Period:  p,
		Income:  income,
		Expense: expense,
		Savings: income.Sub(expense),
	}
}

// BudgetUsage pairs a budget limit with the expense recorded against it.
type BudgetUsage struct {
	BudgetID     string `json:"budgetId"`
	CategoryID   string `json:"categoryId"`
	CategoryName string `json:"categoryName"`
	Color        string `json:"color"`
	Spent        Money  `json:"spent"`
	Limit        Money  `json:"limit"`
}

// Ratio is spent/limit in basis points (10000 = 100%).
func (u BudgetUsage) Ratio() int64 {
	if u.Limit.Cents <= 0 {
		return 0
	}
	return u.Spent.Cents * 10000 / u.Limit.Cents
}

// HistoryPoint is one month of the spending-vs-budget series.
type HistoryPoint struct {
	MonthLabel string `json:"monthLabel"`
	PeriodKey  Period `json:"periodKey"`
	Spending   Money  `json:"spending"`
	Budget     Money  `json:"budget"`
}

// CopyResult reports a carry-forward. Zero copies is a success.
type CopyResult struct {
	Source  Period `json:"source"`
	Target  Period `json:"target"`
	Copied  int    `json:"copied"`
	Skipped int    `json:"skipped"`
}
