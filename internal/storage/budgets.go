package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/itsmibrahim123/ExpenseManager/internal/core"
)

type budgetStore struct {
	q Querier
}

const budgetColumns = `id, owner_id, name, period_type, start_date, end_date, total_limit, notes, created_at, updated_at`

func (s *budgetStore) Create(ctx context.Context, b core.Budget) (core.Budget, error) {
	now := time.Now()
	res, err := s.q.ExecContext(ctx, `
		INSERT INTO budgets (owner_id, name, period_type, start_date, end_date, total_limit, notes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.OwnerID, b.Name, string(b.PeriodType), formatDate(b.StartDate), formatDate(b.EndDate),
		nullDecimal(b.TotalLimit), b.Notes, formatTimestamp(now), formatTimestamp(now),
	)
	if err != nil {
		return core.Budget{}, fmt.Errorf("insert budget: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return core.Budget{}, fmt.Errorf("budget insert id: %w", err)
	}

	b.ID = id
	b.CreatedAt = now
	b.UpdatedAt = now
	return b, nil
}

func (s *budgetStore) Get(ctx context.Context, ownerID, id int64) (core.Budget, error) {
	row := s.q.QueryRowContext(ctx,
		`SELECT `+budgetColumns+` FROM budgets WHERE id = ? AND owner_id = ?`, id, ownerID)

	b, err := scanBudget(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Budget{}, core.NewBudgetNotFound(id)
	}
	if err != nil {
		return core.Budget{}, fmt.Errorf("get budget %d: %w", id, err)
	}
	return b, nil
}

func (s *budgetStore) List(ctx context.Context, ownerID int64) ([]core.Budget, error) {
	return s.listWhere(ctx, `owner_id = ? ORDER BY start_date DESC`, ownerID)
}

// ListOverlapping returns budgets whose [start_date, end_date] window
// intersects [from, to]. Both windows are inclusive on both ends.
func (s *budgetStore) ListOverlapping(ctx context.Context, ownerID int64, from, to time.Time) ([]core.Budget, error) {
	return s.listWhere(ctx,
		`owner_id = ? AND start_date <= ? AND end_date >= ? ORDER BY start_date`,
		ownerID, formatDate(to), formatDate(from))
}

func (s *budgetStore) listWhere(ctx context.Context, where string, args ...any) ([]core.Budget, error) {
	rows, err := s.q.QueryContext(ctx, `SELECT `+budgetColumns+` FROM budgets WHERE `+where, args...)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	defer rows.Close()

	var budgets []core.Budget
	for rows.Next() {
		b, err := scanBudget(rows)
		if err != nil {
			return nil, fmt.Errorf("scan budget: %w", err)
		}
		budgets = append(budgets, b)
	}
	return budgets, rows.Err()
}

func (s *budgetStore) Update(ctx context.Context, b core.Budget) error {
	res, err := s.q.ExecContext(ctx, `
		UPDATE budgets
		SET name = ?, period_type = ?, start_date = ?, end_date = ?, total_limit = ?, notes = ?, updated_at = ?
		WHERE id = ?`,
		b.Name, string(b.PeriodType), formatDate(b.StartDate), formatDate(b.EndDate),
		nullDecimal(b.TotalLimit), b.Notes, formatTimestamp(time.Now()), b.ID,
	)
	if err != nil {
		return fmt.Errorf("update budget %d: %w", b.ID, err)
	}
	return requireRow(res, core.NewBudgetNotFound(b.ID))
}

func (s *budgetStore) Delete(ctx context.Context, id int64) error {
	res, err := s.q.ExecContext(ctx, `DELETE FROM budgets WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete budget %d: %w", id, err)
	}
	return requireRow(res, core.NewBudgetNotFound(id))
}

func (s *budgetStore) CreateItem(ctx context.Context, item core.BudgetItem) (core.BudgetItem, error) {
	res, err := s.q.ExecContext(ctx, `
		INSERT INTO budget_items (budget_id, category_id, limit_amount, warning_percent)
		VALUES (?, ?, ?, ?)`,
		item.BudgetID, item.CategoryID, item.LimitAmount.String(), item.WarningPercent,
	)
	if err != nil {
		return core.BudgetItem{}, fmt.Errorf("insert budget item: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return core.BudgetItem{}, fmt.Errorf("budget item insert id: %w", err)
	}
	item.ID = id
	return item, nil
}

func (s *budgetStore) GetItem(ctx context.Context, budgetID, itemID int64) (core.BudgetItem, error) {
	row := s.q.QueryRowContext(ctx, `
		SELECT id, budget_id, category_id, limit_amount, warning_percent
		FROM budget_items WHERE id = ? AND budget_id = ?`, itemID, budgetID)

	item, err := scanBudgetItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.BudgetItem{}, core.NewBudgetItemNotFound(itemID)
	}
	if err != nil {
		return core.BudgetItem{}, fmt.Errorf("get budget item %d: %w", itemID, err)
	}
	return item, nil
}

func (s *budgetStore) ListItems(ctx context.Context, budgetID int64) ([]core.BudgetItem, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT id, budget_id, category_id, limit_amount, warning_percent
		FROM budget_items WHERE budget_id = ? ORDER BY id`, budgetID)
	if err != nil {
		return nil, fmt.Errorf("list budget items: %w", err)
	}
	defer rows.Close()

	var items []core.BudgetItem
	for rows.Next() {
		item, err := scanBudgetItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan budget item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (s *budgetStore) UpdateItem(ctx context.Context, item core.BudgetItem) error {
	res, err := s.q.ExecContext(ctx, `
		UPDATE budget_items SET category_id = ?, limit_amount = ?, warning_percent = ? WHERE id = ?`,
		item.CategoryID, item.LimitAmount.String(), item.WarningPercent, item.ID,
	)
	if err != nil {
		return fmt.Errorf("update budget item %d: %w", item.ID, err)
	}
	return requireRow(res, core.NewBudgetItemNotFound(item.ID))
}

func (s *budgetStore) DeleteItem(ctx context.Context, itemID int64) error {
	res, err := s.q.ExecContext(ctx, `DELETE FROM budget_items WHERE id = ?`, itemID)
	if err != nil {
		return fmt.Errorf("delete budget item %d: %w", itemID, err)
	}
	return requireRow(res, core.NewBudgetItemNotFound(itemID))
}

func scanBudget(r rowScanner) (core.Budget, error) {
	var (
		b                      core.Budget
		period                 string
		start, end             string
		totalLimit             sql.NullString
		created, updated       string
	)
	if err := r.Scan(&b.ID, &b.OwnerID, &b.Name, &period, &start, &end,
		&totalLimit, &b.Notes, &created, &updated); err != nil {
		return core.Budget{}, err
	}

	b.PeriodType = core.PeriodType(period)

	var err error
	if b.StartDate, err = parseDate(start); err != nil {
		return core.Budget{}, err
	}
	if b.EndDate, err = parseDate(end); err != nil {
		return core.Budget{}, err
	}
	if totalLimit.Valid {
		d, err := parseDecimal(totalLimit.String)
		if err != nil {
			return core.Budget{}, err
		}
		b.TotalLimit = &d
	}
	if b.CreatedAt, err = parseTimestamp(created); err != nil {
		return core.Budget{}, err
	}
	if b.UpdatedAt, err = parseTimestamp(updated); err != nil {
		return core.Budget{}, err
	}
	return b, nil
}

func scanBudgetItem(r rowScanner) (core.BudgetItem, error) {
	var (
		item  core.BudgetItem
		limit string
	)
	if err := r.Scan(&item.ID, &item.BudgetID, &item.CategoryID, &limit, &item.WarningPercent); err != nil {
		return core.BudgetItem{}, err
	}

	var err error
	if item.LimitAmount, err = parseDecimal(limit); err != nil {
		return core.BudgetItem{}, err
	}
	return item, nil
}
