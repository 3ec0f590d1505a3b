package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/itsmibrahim123/ExpenseManager/internal/core"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func seedClearedExpense(db *fakeDB, ownerID, accountID, categoryID int64, amount string, date time.Time) {
	id := db.id()
	db.transactions[id] = core.Transaction{
		ID: id, OwnerID: ownerID, AccountID: accountID, CategoryID: categoryID,
		Type: core.TypeExpense, Amount: dec(amount), Status: core.StatusCleared, Date: date,
	}
}

func TestBudgetCreate(t *testing.T) {
	const owner = int64(1)
	ctx := context.Background()

	t.Run("monthly period derives the inclusive end date", func(t *testing.T) {
		runner, stores, _ := newFixture()
		svc := NewBudgetService(runner, stores)

		result, err := svc.Create(ctx, CreateBudgetRequest{
			OwnerID:    owner,
			Name:       "March",
			PeriodType: core.PeriodMonthly,
			StartDate:  day(2025, time.March, 1),
		})
		if err != nil {
			t.Fatalf("Create: %v", err)
		}
		if want := day(2025, time.March, 31); !result.Budget.EndDate.Equal(want) {
			t.Errorf("end date = %s, want %s", result.Budget.EndDate, want)
		}
	})

	t.Run("weekly and yearly derivation", func(t *testing.T) {
		runner, stores, _ := newFixture()
		svc := NewBudgetService(runner, stores)

		weekly, err := svc.Create(ctx, CreateBudgetRequest{
			OwnerID: owner, Name: "W", PeriodType: core.PeriodWeekly, StartDate: day(2025, time.June, 2),
		})
		if err != nil {
			t.Fatalf("Create weekly: %v", err)
		}
		if want := day(2025, time.June, 8); !weekly.Budget.EndDate.Equal(want) {
			t.Errorf("weekly end = %s, want %s", weekly.Budget.EndDate, want)
		}

		yearly, err := svc.Create(ctx, CreateBudgetRequest{
			OwnerID: owner, Name: "Y", PeriodType: core.PeriodYearly, StartDate: day(2024, time.January, 1),
		})
		if err != nil {
			t.Fatalf("Create yearly: %v", err)
		}
		if want := day(2024, time.December, 31); !yearly.Budget.EndDate.Equal(want) {
			t.Errorf("yearly end = %s, want %s", yearly.Budget.EndDate, want)
		}
	})

	t.Run("custom period requires a valid range", func(t *testing.T) {
		runner, stores, _ := newFixture()
		svc := NewBudgetService(runner, stores)

		_, err := svc.Create(ctx, CreateBudgetRequest{
			OwnerID:    owner,
			Name:       "Bad",
			PeriodType: core.PeriodCustom,
			StartDate:  day(2025, time.March, 10),
			EndDate:    day(2025, time.March, 1),
		})
		if !errors.Is(err, core.ErrInvalidDateRange) {
			t.Errorf("error = %v, want ErrInvalidDateRange", err)
		}
	})

	t.Run("item validation", func(t *testing.T) {
		runner, stores, db := newFixture()
		category := seedCategory(db, owner, "Groceries", core.TypeExpense)
		svc := NewBudgetService(runner, stores)

		_, err := svc.Create(ctx, CreateBudgetRequest{
			OwnerID: owner, Name: "B", PeriodType: core.PeriodMonthly, StartDate: day(2025, time.March, 1),
			Items: []BudgetItemRequest{{CategoryID: category.ID, LimitAmount: dec("0")}},
		})
		var badRange *core.InvalidAmountRangeError
		if !errors.As(err, &badRange) {
			t.Errorf("error = %v, want InvalidAmountRangeError", err)
		}

		_, err = svc.Create(ctx, CreateBudgetRequest{
			OwnerID: owner, Name: "B", PeriodType: core.PeriodMonthly, StartDate: day(2025, time.March, 1),
			Items: []BudgetItemRequest{{CategoryID: category.ID, LimitAmount: dec("100"), WarningPercent: 150}},
		})
		var badWarning *core.InvalidWarningPercentError
		if !errors.As(err, &badWarning) {
			t.Errorf("error = %v, want InvalidWarningPercentError", err)
		}

		result, err := svc.Create(ctx, CreateBudgetRequest{
			OwnerID: owner, Name: "B", PeriodType: core.PeriodMonthly, StartDate: day(2025, time.March, 1),
			Items: []BudgetItemRequest{{CategoryID: category.ID, LimitAmount: dec("100")}},
		})
		if err != nil {
			t.Fatalf("Create: %v", err)
		}
		if result.Items[0].WarningPercent != 80 {
			t.Errorf("warning percent = %d, want default 80", result.Items[0].WarningPercent)
		}
	})

	t.Run("unknown period type", func(t *testing.T) {
		runner, stores, _ := newFixture()
		svc := NewBudgetService(runner, stores)

		_, err := svc.Create(ctx, CreateBudgetRequest{
			OwnerID: owner, Name: "B", PeriodType: "FORTNIGHTLY", StartDate: day(2025, time.March, 1),
		})
		var badPeriod *core.InvalidPeriodTypeError
		if !errors.As(err, &badPeriod) {
			t.Errorf("error = %v, want InvalidPeriodTypeError", err)
		}
	})
}

func TestBudgetProgress(t *testing.T) {
	const owner = int64(1)
	ctx := context.Background()

	t.Run("warning threshold is inclusive", func(t *testing.T) {
		runner, stores, db := newFixture()
		account := seedAccount(db, owner, "Main", "PKR", dec("100000"))
		category := seedCategory(db, owner, "Groceries", core.TypeExpense)
		svc := NewBudgetService(runner, stores)

		budget, err := svc.Create(ctx, CreateBudgetRequest{
			OwnerID:    owner,
			Name:       "March",
			PeriodType: core.PeriodMonthly,
			StartDate:  day(2025, time.March, 1),
			Items:      []BudgetItemRequest{{CategoryID: category.ID, LimitAmount: dec("10000"), WarningPercent: 80}},
		})
		if err != nil {
			t.Fatalf("Create: %v", err)
		}
		seedClearedExpense(db, owner, account.ID, category.ID, "8000", day(2025, time.March, 15))

		reports, err := svc.Progress(ctx, owner, day(2025, time.March, 1), day(2025, time.March, 31))
		if err != nil {
			t.Fatalf("Progress: %v", err)
		}
		if len(reports) != 1 || len(reports[0].Items) != 1 {
			t.Fatalf("got %d reports, want 1 with 1 item", len(reports))
		}

		item := reports[0].Items[0]
		if item.Percentage != 80.0 {
			t.Errorf("percentage = %v, want 80.0", item.Percentage)
		}
		if item.Status != core.Warning {
			t.Errorf("status = %s, want WARNING at exactly the threshold", item.Status)
		}
		if !item.Remaining.Equal(dec("2000")) {
			t.Errorf("remaining = %s, want 2000", item.Remaining)
		}
		if budget.Budget.ID != reports[0].Budget.ID {
			t.Error("report references the wrong budget")
		}
	})

	t.Run("exactly 100 percent is over budget", func(t *testing.T) {
		runner, stores, db := newFixture()
		account := seedAccount(db, owner, "Main", "PKR", dec("100000"))
		category := seedCategory(db, owner, "Groceries", core.TypeExpense)
		svc := NewBudgetService(runner, stores)

		if _, err := svc.Create(ctx, CreateBudgetRequest{
			OwnerID: owner, Name: "B", PeriodType: core.PeriodMonthly, StartDate: day(2025, time.March, 1),
			Items: []BudgetItemRequest{{CategoryID: category.ID, LimitAmount: dec("500")}},
		}); err != nil {
			t.Fatalf("Create: %v", err)
		}
		seedClearedExpense(db, owner, account.ID, category.ID, "500", day(2025, time.March, 2))

		reports, err := svc.Progress(ctx, owner, day(2025, time.March, 1), day(2025, time.March, 31))
		if err != nil {
			t.Fatalf("Progress: %v", err)
		}
		if got := reports[0].Items[0].Status; got != core.OverBudget {
			t.Errorf("status = %s, want OVER_BUDGET at exactly 100", got)
		}
	})

	t.Run("actuals use the budget window, selection uses the report window", func(t *testing.T) {
		runner, stores, db := newFixture()
		account := seedAccount(db, owner, "Main", "PKR", dec("100000"))
		category := seedCategory(db, owner, "Groceries", core.TypeExpense)
		svc := NewBudgetService(runner, stores)

		if _, err := svc.Create(ctx, CreateBudgetRequest{
			OwnerID: owner, Name: "March", PeriodType: core.PeriodMonthly, StartDate: day(2025, time.March, 1),
			Items: []BudgetItemRequest{{CategoryID: category.ID, LimitAmount: dec("1000")}},
		}); err != nil {
			t.Fatalf("Create: %v", err)
		}

		// Inside the budget window but outside the report window: still counted.
		seedClearedExpense(db, owner, account.ID, category.ID, "300", day(2025, time.March, 2))
		// Outside the budget window: never counted.
		seedClearedExpense(db, owner, account.ID, category.ID, "400", day(2025, time.April, 2))
		// Pending transactions never count.
		id := db.id()
		db.transactions[id] = core.Transaction{
			ID: id, OwnerID: owner, AccountID: account.ID, CategoryID: category.ID,
			Type: core.TypeExpense, Amount: dec("250"), Status: core.StatusPending,
			Date: day(2025, time.March, 10),
		}

		// Report window covers late March only; the budget overlaps it.
		reports, err := svc.Progress(ctx, owner, day(2025, time.March, 20), day(2025, time.March, 31))
		if err != nil {
			t.Fatalf("Progress: %v", err)
		}
		if len(reports) != 1 {
			t.Fatalf("got %d reports, want 1", len(reports))
		}
		if got := reports[0].Items[0].Actual; !got.Equal(dec("300")) {
			t.Errorf("actual = %s, want 300 (budget window, cleared only)", got)
		}

		// A report window with no overlap selects nothing.
		reports, err = svc.Progress(ctx, owner, day(2025, time.May, 1), day(2025, time.May, 31))
		if err != nil {
			t.Fatalf("Progress: %v", err)
		}
		if len(reports) != 0 {
			t.Errorf("got %d reports, want 0 outside the budget window", len(reports))
		}
	})

	t.Run("overall status uses the fixed 80 line", func(t *testing.T) {
		runner, stores, db := newFixture()
		account := seedAccount(db, owner, "Main", "PKR", dec("100000"))
		groceries := seedCategory(db, owner, "Groceries", core.TypeExpense)
		fuel := seedCategory(db, owner, "Fuel", core.TypeExpense)
		svc := NewBudgetService(runner, stores)

		if _, err := svc.Create(ctx, CreateBudgetRequest{
			OwnerID: owner, Name: "B", PeriodType: core.PeriodMonthly, StartDate: day(2025, time.March, 1),
			Items: []BudgetItemRequest{
				{CategoryID: groceries.ID, LimitAmount: dec("1000"), WarningPercent: 95},
				{CategoryID: fuel.ID, LimitAmount: dec("1000"), WarningPercent: 95},
			},
		}); err != nil {
			t.Fatalf("Create: %v", err)
		}
		seedClearedExpense(db, owner, account.ID, groceries.ID, "900", day(2025, time.March, 5))
		seedClearedExpense(db, owner, account.ID, fuel.ID, "800", day(2025, time.March, 6))

		reports, err := svc.Progress(ctx, owner, day(2025, time.March, 1), day(2025, time.March, 31))
		if err != nil {
			t.Fatalf("Progress: %v", err)
		}
		report := reports[0]

		// 1700/2000 = 85%: above the fixed overall line even though each
		// item sits below its own 95% threshold.
		if report.OverallStatus != core.Warning {
			t.Errorf("overall status = %s, want WARNING", report.OverallStatus)
		}
		for _, item := range report.Items {
			if item.Status != core.OnTrack {
				t.Errorf("item status = %s, want ON_TRACK below its own threshold", item.Status)
			}
		}
		if !report.TotalBudgeted.Equal(dec("2000")) || !report.TotalActual.Equal(dec("1700")) {
			t.Errorf("totals = %s/%s, want 1700/2000", report.TotalActual, report.TotalBudgeted)
		}
	})
}

func TestBudgetItemLifecycle(t *testing.T) {
	const owner = int64(1)
	ctx := context.Background()

	runner, stores, db := newFixture()
	groceries := seedCategory(db, owner, "Groceries", core.TypeExpense)
	fuel := seedCategory(db, owner, "Fuel", core.TypeExpense)
	svc := NewBudgetService(runner, stores)

	created, err := svc.Create(ctx, CreateBudgetRequest{
		OwnerID: owner, Name: "B", PeriodType: core.PeriodMonthly, StartDate: day(2025, time.March, 1),
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	budgetID := created.Budget.ID

	item, err := svc.AddItem(ctx, owner, budgetID, BudgetItemRequest{
		CategoryID: groceries.ID, LimitAmount: dec("500"),
	})
	if err != nil {
		t.Fatalf("AddItem: %v", err)
	}

	if _, err := svc.AddItem(ctx, owner, budgetID, BudgetItemRequest{
		CategoryID: 9999, LimitAmount: dec("500"),
	}); err == nil {
		t.Error("AddItem with unknown category should fail")
	}

	updated, err := svc.UpdateItem(ctx, owner, budgetID, item.ID, BudgetItemRequest{
		CategoryID: fuel.ID, LimitAmount: dec("750"), WarningPercent: 60,
	})
	if err != nil {
		t.Fatalf("UpdateItem: %v", err)
	}
	if updated.CategoryID != fuel.ID || !updated.LimitAmount.Equal(dec("750")) || updated.WarningPercent != 60 {
		t.Errorf("updated item = %+v", updated)
	}

	if err := svc.DeleteItem(ctx, owner, budgetID, item.ID); err != nil {
		t.Fatalf("DeleteItem: %v", err)
	}

	if err := svc.Delete(ctx, owner, budgetID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if len(db.budgets) != 0 || len(db.budgetItems) != 0 {
		t.Error("budget and items should be gone")
	}
}
