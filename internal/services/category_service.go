package services

import (
	"context"
	"log/slog"

	"github.com/itsmibrahim123/ExpenseManager/internal/core"
)

// CategoryService is thin lookup-table CRUD; the ledger itself only ever
// reads categories.
type CategoryService struct {
	runner TxRunner
	stores Stores
}

func NewCategoryService(runner TxRunner, stores Stores) *CategoryService {
	return &CategoryService{runner: runner, stores: stores}
}

func (s *CategoryService) Create(ctx context.Context, c core.Category) (core.Category, error) {
	if c.Type != core.TypeExpense && c.Type != core.TypeIncome && c.Type != core.TypeTransfer {
		return core.Category{}, &core.InvalidTransactionTypeError{Type: c.Type}
	}
	return s.stores.Categories.Create(ctx, c)
}

func (s *CategoryService) Get(ctx context.Context, ownerID, id int64) (core.Category, error) {
	return s.stores.Categories.Get(ctx, ownerID, id)
}

func (s *CategoryService) List(ctx context.Context, ownerID int64) ([]core.Category, error) {
	return s.stores.Categories.List(ctx, ownerID)
}

func (s *CategoryService) Update(ctx context.Context, c core.Category) (core.Category, error) {
	var updated core.Category
	err := s.runner.InTx(ctx, func(st Stores) error {
		existing, err := st.Categories.Get(ctx, c.OwnerID, c.ID)
		if err != nil {
			return err
		}
		existing.Name = c.Name
		existing.Color = c.Color
		if err := st.Categories.Update(ctx, existing); err != nil {
			return err
		}
		updated = existing
		return nil
	})
	if err != nil {
		return core.Category{}, err
	}
	return updated, nil
}

func (s *CategoryService) Delete(ctx context.Context, ownerID, id int64) error {
	return s.runner.InTx(ctx, func(st Stores) error {
		if _, err := st.Categories.Get(ctx, ownerID, id); err != nil {
			return err
		}
		return st.Categories.Delete(ctx, id)
	})
}

// EnsureDefaults provisions the starter categories for a new owner, most
// importantly the TRANSFER category that transfers resolve by type. Without
// it, the first transfer fails with CategoryNotFound.
func (s *CategoryService) EnsureDefaults(ctx context.Context, ownerID int64) error {
	defaults := []core.Category{
		{OwnerID: ownerID, Name: "General", Type: core.TypeExpense},
		{OwnerID: ownerID, Name: "Salary", Type: core.TypeIncome},
		{OwnerID: ownerID, Name: "Transfer", Type: core.TypeTransfer},
	}

	return s.runner.InTx(ctx, func(st Stores) error {
		existing, err := st.Categories.List(ctx, ownerID)
		if err != nil {
			return err
		}
		have := make(map[core.TransactionType]bool, len(existing))
		for _, c := range existing {
			have[c.Type] = true
		}

		for _, c := range defaults {
			if have[c.Type] {
				continue
			}
			if _, err := st.Categories.Create(ctx, c); err != nil {
				return err
			}
			slog.InfoContext(ctx, "Default category created",
				"owner_id", ownerID, "name", c.Name, "type", c.Type)
		}
		return nil
	})
}
