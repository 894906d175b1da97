package core

import (
	"strings"
	"time"
)

const (
	Income   TransactionType = "income"
	Expense  TransactionType = "expense"
	Transfer TransactionType = "transfer"
)

const (
	// UncategorizedName labels totals whose transactions have no linked category.
	UncategorizedName = "Uncategorized"
	// DefaultColor is used when a category carries no color.
	DefaultColor = "#94a3b8"
	// TransactionPageSize is the number of rows per listing page.
	TransactionPageSize = 10
)

type (
	TransactionType string

	Wallet struct {
		ID      string `json:"id"`
		UserID  string `json:"userId"`
		Name    string `json:"name"`
		Balance Money  `json:"balance"` // stored running total, never derived from transactions
		Color   string `json:"color,omitempty"`
	}

	Category struct {
		ID     string          `json:"id"`
		UserID string          `json:"userId"`
		Name   string          `json:"name"`
		Type   TransactionType `json:"type"` // income or expense
		Color  string          `json:"color,omitempty"`
	}

	Transaction struct {
		ID             string          `json:"id"`
		UserID         string          `json:"userId"`
		WalletID       string          `json:"walletId"`
		TargetWalletID string          `json:"targetWalletId,omitempty"` // set only for transfers
		CategoryID     string          `json:"categoryId,omitempty"`
		Amount         Money           `json:"amount"`
		Type           TransactionType `json:"type"`
		Date           time.Time       `json:"date"`
		Description    string          `json:"description,omitempty"`
	}

	Budget struct {
		ID            string    `json:"id"`
		UserID        string    `json:"userId"`
		CategoryID    string    `json:"categoryId"`
		CategoryName  string    `json:"categoryName,omitempty"`
		CategoryColor string    `json:"categoryColor,omitempty"`
		Amount        Money     `json:"amount"`
		Period        Period    `json:"period"`
		CreatedAt     time.Time `json:"createdAt"`
		UpdatedAt     time.Time `json:"updatedAt"`
	}

	// TransactionFilter narrows a transaction listing. Zero fields match
	// everything; From and To are inclusive instants.
	TransactionFilter struct {
		UserID   string
		Query    string // case-insensitive substring of Description
		Type     TransactionType
		From     time.Time
		To       time.Time
		Page     int // 1-based
		PageSize int
	}

	TransactionPage struct {
		Items      []Transaction `json:"items"`
		Total      int           `json:"total"`
		Page       int           `json:"page"`
		PageSize   int           `json:"pageSize"`
		TotalPages int           `json:"totalPages"`
	}

	BudgetAlert struct {
		UserID       string    `json:"userId"`
		CategoryID   string    `json:"categoryId"`
		CategoryName string    `json:"categoryName,omitempty"`
		Period       Period    `json:"period"`
		Spent        Money     `json:"spent"`
		Limit        Money     `json:"limit"`
		CreatedAt    time.Time `json:"createdAt"`
		UpdatedAt    time.Time `json:"updatedAt"`
	}
)

// IsValid reports whether t is one of the known transaction types.
func (t TransactionType) IsValid() bool {
	switch t {
	case Income, Expense, Transfer:
		return true
	default:
		return false
	}
}

// IsCategoryType reports whether a category may carry type t.
func (t TransactionType) IsCategoryType() bool {
	return t == Income || t == Expense
}

func (w Wallet) Validate() error {
	if strings.TrimSpace(w.UserID) == "" {
		return NewValidationError("userId", "is required")
	}
	if strings.TrimSpace(w.Name) == "" {
		return NewValidationError("name", "is required")
	}
	return nil
}

// Offset is the number of rows skipped before the filter's page.
func (f TransactionFilter) Offset() int {
	if f.Page < 1 {
		return 0
	}
	return (f.Page - 1) * f.PageSize
}

// Matches reports whether t passes every set criterion of f except paging.
func (f TransactionFilter) Matches(t Transaction) bool {
	if t.UserID != f.UserID {
		return false
	}
	if f.Type != "" && t.Type != f.Type {
		return false
	}
	if !f.From.IsZero() && t.Date.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && t.Date.After(f.To) {
		return false
	}
	if q := strings.TrimSpace(f.Query); q != "" &&
		!strings.Contains(strings.ToLower(t.Description), strings.ToLower(q)) {
		return false
	}
	return true
}

// NewTransactionPage wraps one page of results with its paging totals.
func NewTransactionPage(items []Transaction, total, page, pageSize int) TransactionPage {
	if items == nil {
		items = []Transaction{}
	}
	pages := 0
	if pageSize > 0 {
		pages = (total + pageSize - 1) / pageSize
	}
	return TransactionPage{Items: items, Total: total, Page: page, PageSize: pageSize, TotalPages: pages}
}

func (c Category) Validate() error {
	if strings.TrimSpace(c.UserID) == "" {
		return NewValidationError("userId", "is required")
	}
	if strings.TrimSpace(c.Name) == "" {
		return NewValidationError("name", "is required")
	}
	if !c.Type.IsCategoryType() {
		return NewValidationError("type", "must be income or expense")
	}
	return nil
}

// Validate checks the intrinsic shape of a transaction. Ownership and
// category/type agreement need the store and are checked by the service.
func (t Transaction) Validate() error {
	if strings.TrimSpace(t.UserID) == "" {
		return NewValidationError("userId", "is required")
	}
	if strings.TrimSpace(t.WalletID) == "" {
		return NewValidationError("walletId", "is required")
	}
	if !t.Type.IsValid() {
		return NewValidationError("type", "must be income, expense or transfer")
	}
	if err := t.Amount.Validate(); err != nil {
		return NewValidationError("amount", "must be positive")
	}
	if t.Date.IsZero() {
		return NewValidationError("date", "is required")
	}
	if len(t.Description) > 200 {
		return NewValidationError("description", "too long (max 200 characters)")
	}
	if t.Type == Transfer {
		if t.TargetWalletID == "" {
			return NewValidationError("targetWalletId", "is required for transfers")
		}
		if t.TargetWalletID == t.WalletID {
			return NewValidationError("targetWalletId", "must differ from the source wallet")
		}
		if t.CategoryID != "" {
			return NewValidationError("categoryId", "must be empty for transfers")
		}
	} else if t.TargetWalletID != "" {
		return NewValidationError("targetWalletId", "must be empty unless the type is transfer")
	}
	return nil
}

func (b Budget) Validate() error {
	if strings.TrimSpace(b.UserID) == "" {
		return NewValidationError("userId", "is required")
	}
	if strings.TrimSpace(b.CategoryID) == "" {
		return NewValidationError("categoryId", "is required")
	}
	if b.Period.IsZero() {
		return NewValidationError("period", "is required")
	}
	if err := b.Amount.Validate(); err != nil {
		return NewValidationError("amount", "must be positive")
	}
	return nil
}
