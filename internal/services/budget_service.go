package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/itsmibrahim123/ExpenseManager/internal/core"
)

// BudgetService manages budgets and evaluates their consumption against the
// cleared transaction history.
type BudgetService struct {
	runner TxRunner
	stores Stores
}

func NewBudgetService(runner TxRunner, stores Stores) *BudgetService {
	return &BudgetService{runner: runner, stores: stores}
}

type BudgetItemRequest struct {
	CategoryID     int64
	LimitAmount    decimal.Decimal
	WarningPercent int // 0 = default 80
}

type CreateBudgetRequest struct {
	OwnerID    int64
	Name       string
	PeriodType core.PeriodType
	StartDate  time.Time
	EndDate    time.Time // required for CUSTOM, derived otherwise
	TotalLimit *decimal.Decimal
	Notes      string
	Items      []BudgetItemRequest
}

// BudgetWithItems pairs a budget with its items for read paths.
type BudgetWithItems struct {
	Budget core.Budget
	Items  []core.BudgetItem
}

// deriveEndDate produces the inclusive last day of a non-custom period:
// start plus one period, minus one day.
func deriveEndDate(periodType core.PeriodType, start time.Time) time.Time {
	switch periodType {
	case core.PeriodWeekly:
		return start.AddDate(0, 0, 6)
	case core.PeriodMonthly:
		return start.AddDate(0, 1, 0).AddDate(0, 0, -1)
	case core.PeriodYearly:
		return start.AddDate(1, 0, 0).AddDate(0, 0, -1)
	}
	return start
}

func validateItem(item BudgetItemRequest) (core.BudgetItem, error) {
	if !item.LimitAmount.IsPositive() {
		return core.BudgetItem{}, &core.InvalidAmountRangeError{Field: "limit amount", Value: item.LimitAmount}
	}
	warning := item.WarningPercent
	if warning == 0 {
		warning = core.DefaultWarningPercent
	}
	if warning < 1 || warning > 100 {
		return core.BudgetItem{}, &core.InvalidWarningPercentError{Percent: item.WarningPercent}
	}
	return core.BudgetItem{
		CategoryID:     item.CategoryID,
		LimitAmount:    item.LimitAmount,
		WarningPercent: warning,
	}, nil
}

func (s *BudgetService) Create(ctx context.Context, req CreateBudgetRequest) (BudgetWithItems, error) {
	if !core.ValidPeriodType(req.PeriodType) {
		return BudgetWithItems{}, &core.InvalidPeriodTypeError{PeriodType: req.PeriodType}
	}

	end := req.EndDate
	if req.PeriodType == core.PeriodCustom {
		if end.IsZero() || end.Before(req.StartDate) {
			return BudgetWithItems{}, core.ErrInvalidDateRange
		}
	} else {
		end = deriveEndDate(req.PeriodType, req.StartDate)
	}

	if req.TotalLimit != nil && !req.TotalLimit.IsPositive() {
		return BudgetWithItems{}, &core.InvalidAmountRangeError{Field: "total limit", Value: *req.TotalLimit}
	}

	items := make([]core.BudgetItem, 0, len(req.Items))
	for _, ir := range req.Items {
		item, err := validateItem(ir)
		if err != nil {
			return BudgetWithItems{}, err
		}
		items = append(items, item)
	}

	var result BudgetWithItems
	err := s.runner.InTx(ctx, func(st Stores) error {
		for _, item := range items {
			if _, err := st.Categories.Get(ctx, req.OwnerID, item.CategoryID); err != nil {
				return err
			}
		}

		budget, err := st.Budgets.Create(ctx, core.Budget{
			OwnerID:    req.OwnerID,
			Name:       req.Name,
			PeriodType: req.PeriodType,
			StartDate:  req.StartDate,
			EndDate:    end,
			TotalLimit: req.TotalLimit,
			Notes:      req.Notes,
		})
		if err != nil {
			return err
		}

		saved := make([]core.BudgetItem, 0, len(items))
		for _, item := range items {
			item.BudgetID = budget.ID
			created, err := st.Budgets.CreateItem(ctx, item)
			if err != nil {
				return err
			}
			saved = append(saved, created)
		}

		result = BudgetWithItems{Budget: budget, Items: saved}
		return nil
	})
	if err != nil {
		return BudgetWithItems{}, err
	}

	slog.InfoContext(ctx, "Budget created",
		"budget_id", result.Budget.ID,
		"period_type", result.Budget.PeriodType,
		"items", len(result.Items))

	return result, nil
}

func (s *BudgetService) Get(ctx context.Context, ownerID, id int64) (BudgetWithItems, error) {
	budget, err := s.stores.Budgets.Get(ctx, ownerID, id)
	if err != nil {
		return BudgetWithItems{}, err
	}
	items, err := s.stores.Budgets.ListItems(ctx, id)
	if err != nil {
		return BudgetWithItems{}, err
	}
	return BudgetWithItems{Budget: budget, Items: items}, nil
}

func (s *BudgetService) List(ctx context.Context, ownerID int64) ([]core.Budget, error) {
	return s.stores.Budgets.List(ctx, ownerID)
}

type UpdateBudgetRequest struct {
	OwnerID    int64
	ID         int64
	Name       string
	StartDate  time.Time
	EndDate    time.Time
	TotalLimit *decimal.Decimal
	Notes      string
}

func (s *BudgetService) Update(ctx context.Context, req UpdateBudgetRequest) (core.Budget, error) {
	var updated core.Budget
	err := s.runner.InTx(ctx, func(st Stores) error {
		budget, err := st.Budgets.Get(ctx, req.OwnerID, req.ID)
		if err != nil {
			return err
		}

		start := budget.StartDate
		if !req.StartDate.IsZero() {
			start = req.StartDate
		}
		end := budget.EndDate
		if budget.PeriodType == core.PeriodCustom {
			if !req.EndDate.IsZero() {
				end = req.EndDate
			}
		} else if !req.StartDate.IsZero() {
			end = deriveEndDate(budget.PeriodType, start)
		}
		if end.Before(start) {
			return core.ErrInvalidDateRange
		}
		if req.TotalLimit != nil && !req.TotalLimit.IsPositive() {
			return &core.InvalidAmountRangeError{Field: "total limit", Value: *req.TotalLimit}
		}

		if req.Name != "" {
			budget.Name = req.Name
		}
		budget.StartDate = start
		budget.EndDate = end
		if req.TotalLimit != nil {
			budget.TotalLimit = req.TotalLimit
		}
		if req.Notes != "" {
			budget.Notes = req.Notes
		}

		if err := st.Budgets.Update(ctx, budget); err != nil {
			return err
		}
		updated = budget
		return nil
	})
	if err != nil {
		return core.Budget{}, err
	}
	return updated, nil
}

// Delete removes a budget together with its items.
func (s *BudgetService) Delete(ctx context.Context, ownerID, id int64) error {
	return s.runner.InTx(ctx, func(st Stores) error {
		if _, err := st.Budgets.Get(ctx, ownerID, id); err != nil {
			return err
		}
		items, err := st.Budgets.ListItems(ctx, id)
		if err != nil {
			return err
		}
		for _, item := range items {
			if err := st.Budgets.DeleteItem(ctx, item.ID); err != nil {
				return err
			}
		}
		return st.Budgets.Delete(ctx, id)
	})
}

func (s *BudgetService) AddItem(ctx context.Context, ownerID, budgetID int64, req BudgetItemRequest) (core.BudgetItem, error) {
	item, err := validateItem(req)
	if err != nil {
		return core.BudgetItem{}, err
	}

	var saved core.BudgetItem
	err = s.runner.InTx(ctx, func(st Stores) error {
		if _, err := st.Budgets.Get(ctx, ownerID, budgetID); err != nil {
			return err
		}
		if _, err := st.Categories.Get(ctx, ownerID, item.CategoryID); err != nil {
			return err
		}
		item.BudgetID = budgetID
		var err error
		saved, err = st.Budgets.CreateItem(ctx, item)
		return err
	})
	if err != nil {
		return core.BudgetItem{}, err
	}
	return saved, nil
}

func (s *BudgetService) UpdateItem(ctx context.Context, ownerID, budgetID, itemID int64, req BudgetItemRequest) (core.BudgetItem, error) {
	item, err := validateItem(req)
	if err != nil {
		return core.BudgetItem{}, err
	}

	var saved core.BudgetItem
	err = s.runner.InTx(ctx, func(st Stores) error {
		if _, err := st.Budgets.Get(ctx, ownerID, budgetID); err != nil {
			return err
		}
		existing, err := st.Budgets.GetItem(ctx, budgetID, itemID)
		if err != nil {
			return err
		}
		if _, err := st.Categories.Get(ctx, ownerID, item.CategoryID); err != nil {
			return err
		}

		existing.CategoryID = item.CategoryID
		existing.LimitAmount = item.LimitAmount
		existing.WarningPercent = item.WarningPercent
		if err := st.Budgets.UpdateItem(ctx, existing); err != nil {
			return err
		}
		saved = existing
		return nil
	})
	if err != nil {
		return core.BudgetItem{}, err
	}
	return saved, nil
}

func (s *BudgetService) DeleteItem(ctx context.Context, ownerID, budgetID, itemID int64) error {
	return s.runner.InTx(ctx, func(st Stores) error {
		if _, err := st.Budgets.Get(ctx, ownerID, budgetID); err != nil {
			return err
		}
		if _, err := st.Budgets.GetItem(ctx, budgetID, itemID); err != nil {
			return err
		}
		return st.Budgets.DeleteItem(ctx, itemID)
	})
}

// ItemProgress is the consumption report for one budget item.
type ItemProgress struct {
	Item       core.BudgetItem
	Actual     decimal.Decimal
	Remaining  decimal.Decimal
	Percentage float64
	Status     core.ProgressStatus
}

// BudgetProgress aggregates item reports for one budget. Overall status uses
// the fixed default warning line, not any item's own threshold.
type BudgetProgress struct {
	Budget            core.Budget
	Status            core.BudgetStatus
	Items             []ItemProgress
	TotalBudgeted     decimal.Decimal
	TotalActual       decimal.Decimal
	TotalRemaining    decimal.Decimal
	OverallPercentage float64
	OverallStatus     core.ProgressStatus
}

// Progress evaluates every budget whose own window overlaps the reporting
// window. Actuals are summed over the BUDGET's date range, not the report
// window, and count only CLEARED EXPENSE transactions of the item's
// category, across all of the owner's accounts.
func (s *BudgetService) Progress(ctx context.Context, ownerID int64, reportStart, reportEnd time.Time) ([]BudgetProgress, error) {
	if reportStart.IsZero() || reportEnd.IsZero() {
		now := time.Now()
		reportStart = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
		reportEnd = reportStart.AddDate(0, 1, 0).AddDate(0, 0, -1)
	}
	if reportEnd.Before(reportStart) {
		return nil, core.ErrInvalidDateRange
	}

	budgets, err := s.stores.Budgets.ListOverlapping(ctx, ownerID, reportStart, reportEnd)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	reports := make([]BudgetProgress, 0, len(budgets))
	for _, budget := range budgets {
		items, err := s.stores.Budgets.ListItems(ctx, budget.ID)
		if err != nil {
			return nil, err
		}

		report := BudgetProgress{
			Budget:         budget,
			Status:         budget.StatusAt(now),
			TotalBudgeted:  decimal.Zero,
			TotalActual:    decimal.Zero,
			TotalRemaining: decimal.Zero,
		}

		for _, item := range items {
			actual, err := s.stores.Transactions.SumByCategories(ctx, ownerID,
				[]int64{item.CategoryID}, core.TypeExpense, budget.StartDate, budget.EndDate)
			if err != nil {
				return nil, err
			}

			remaining := item.LimitAmount.Sub(actual)
			percentage := 0.0
			if item.LimitAmount.IsPositive() {
				percentage, _ = actual.Div(item.LimitAmount).Mul(decimal.NewFromInt(100)).Float64()
			}

			report.Items = append(report.Items, ItemProgress{
				Item:       item,
				Actual:     actual,
				Remaining:  remaining,
				Percentage: percentage,
				Status:     core.ProgressStatusFor(percentage, item.WarningPercent),
			})

			report.TotalBudgeted = report.TotalBudgeted.Add(item.LimitAmount)
			report.TotalActual = report.TotalActual.Add(actual)
			report.TotalRemaining = report.TotalRemaining.Add(remaining)
		}

		if report.TotalBudgeted.IsPositive() {
			report.OverallPercentage, _ = report.TotalActual.
				Div(report.TotalBudgeted).Mul(decimal.NewFromInt(100)).Float64()
		}
		report.OverallStatus = core.ProgressStatusFor(report.OverallPercentage, core.DefaultWarningPercent)

		reports = append(reports, report)
	}
	return reports, nil
}
