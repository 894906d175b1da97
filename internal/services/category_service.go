package services

import (
	"context"
	"fmt"
	"log/slog"

	"finledger/internal/core"
	"finledger/internal/ledger"
)

type defaultCategory struct {
	Name  string
	Type  core.TransactionType
	Color string
}

// DefaultCategories is the starter set offered to new users.
var DefaultCategories = []defaultCategory{
	{"Salary", core.Income, "#22c55e"},
	{"Freelance", core.Income, "#14b8a6"},
	{"Investments", core.Income, "#0ea5e9"},
	{"Food", core.Expense, "#ef4444"},
	{"Transport", core.Expense, "#f97316"},
	{"Housing", core.Expense, "#8b5cf6"},
	{"Utilities", core.Expense, "#eab308"},
	{"Entertainment", core.Expense, "#ec4899"},
	{"Health", core.Expense, "#10b981"},
	{"Shopping", core.Expense, "#6366f1"},
}

type CategoryService struct {
	store ledger.CategoryStore
}

func NewCategoryService(store ledger.CategoryStore) *CategoryService {
	return &CategoryService{store: store}
}

func (s *CategoryService) List(ctx context.Context, userID string) ([]core.Category, error) {
	if userID == "" {
		return []core.Category{}, nil
	}
	out, err := s.store.ListCategories(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	if out == nil {
		out = []core.Category{}
	}
	return out, nil
}

func (s *CategoryService) Create(ctx context.Context, c core.Category) (core.Category, error) {
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}
	saved, err := s.store.CreateCategory(ctx, c)
	if err != nil {
		return core.Category{}, fmt.Errorf("create category: %w", err)
	}
	return saved, nil
}

// Update replaces name, type and color. Changing the type of a category that
// transactions already use is refused with core.ErrInUse.
func (s *CategoryService) Update(ctx context.Context, c core.Category) (core.Category, error) {
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}
	saved, err := s.store.UpdateCategory(ctx, c)
	if err != nil {
		return core.Category{}, fmt.Errorf("update category: %w", err)
	}
	return saved, nil
}

// Delete removes an unused category together with its budgets and alerts.
func (s *CategoryService) Delete(ctx context.Context, userID, id string) error {
	if err := s.store.DeleteCategory(ctx, userID, id); err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	slog.InfoContext(ctx, "Category deleted", "user_id", userID, "category_id", id)
	return nil
}

// SeedDefaults adds each default category the user does not already have
// under the same name and type. It returns how many were created.
func (s *CategoryService) SeedDefaults(ctx context.Context, userID string) (int, error) {
	if userID == "" {
		return 0, core.NewValidationError("userId", "is required")
	}

	existing, err := s.store.ListCategories(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("list categories: %w", err)
	}
	have := make(map[string]bool, len(existing))
	for _, c := range existing {
		have[string(c.Type)+"/"+c.Name] = true
	}

	created := 0
	for _, d := range DefaultCategories {
		if have[string(d.Type)+"/"+d.Name] {
			continue
		}
		_, err := s.store.CreateCategory(ctx, core.Category{
			UserID: userID,
			Name:   d.Name,
			Type:   d.Type,
			Color:  d.Color,
		})
		if err != nil {
			return created, fmt.Errorf("seed category %s: %w", d.Name, err)
		}
		created++
	}

	slog.InfoContext(ctx, "Default categories seeded", "user_id", userID, "created", created)
	return created, nil
}
