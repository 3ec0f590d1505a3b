package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/itsmibrahim123/ExpenseManager/internal/core"
	"github.com/itsmibrahim123/ExpenseManager/internal/services"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func mustDecimal(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("bad decimal %q: %v", s, err)
	}
	return d
}

// seedAccount inserts an account and a matching expense category so
// transaction rows satisfy the foreign keys.
func seedAccount(t *testing.T, stores services.Stores, owner int64) (core.Account, core.Category) {
	t.Helper()
	ctx := context.Background()

	account, err := stores.Accounts.Create(ctx, core.Account{
		OwnerID:        owner,
		Name:           "Wallet",
		Type:           core.AccountCash,
		CurrencyCode:   "PKR",
		InitialBalance: mustDecimal(t, "1000"),
		CurrentBalance: mustDecimal(t, "1000"),
	})
	if err != nil {
		t.Fatalf("create account: %v", err)
	}

	category, err := stores.Categories.Create(ctx, core.Category{
		OwnerID: owner,
		Name:    "Food",
		Type:    core.TypeExpense,
	})
	if err != nil {
		t.Fatalf("create category: %v", err)
	}
	return account, category
}

func TestAccountStore_RoundTrip(t *testing.T) {
	store := openTestStore(t)
	stores := store.Stores()
	ctx := context.Background()

	created, _ := seedAccount(t, stores, 1)

	got, err := stores.Accounts.Get(ctx, 1, created.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Name != "Wallet" || got.Type != core.AccountCash {
		t.Errorf("Get() = %+v", got)
	}
	if !got.CurrentBalance.Equal(mustDecimal(t, "1000")) {
		t.Errorf("balance = %s, want 1000", got.CurrentBalance)
	}

	// Ownership is part of the key.
	if _, err := stores.Accounts.Get(ctx, 2, created.ID); err == nil {
		t.Error("expected not found for wrong owner")
	}

	if err := stores.Accounts.UpdateBalance(ctx, created.ID, mustDecimal(t, "250.75")); err != nil {
		t.Fatalf("UpdateBalance() error = %v", err)
	}
	got, _ = stores.Accounts.Get(ctx, 1, created.ID)
	if !got.CurrentBalance.Equal(mustDecimal(t, "250.75")) {
		t.Errorf("balance after update = %s, want 250.75", got.CurrentBalance)
	}

	if err := stores.Accounts.SetArchived(ctx, created.ID, true); err != nil {
		t.Fatalf("SetArchived() error = %v", err)
	}
	active, err := stores.Accounts.List(ctx, 1, false)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(active) != 0 {
		t.Errorf("active accounts = %d, want 0", len(active))
	}
	all, _ := stores.Accounts.List(ctx, 1, true)
	if len(all) != 1 {
		t.Errorf("all accounts = %d, want 1", len(all))
	}
}

func TestStore_InTxRollsBack(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	boom := errors.New("boom")
	err := store.InTx(ctx, func(st services.Stores) error {
		if _, err := st.Accounts.Create(ctx, core.Account{
			OwnerID:      1,
			Name:         "Doomed",
			Type:         core.AccountBank,
			CurrencyCode: "PKR",
		}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("InTx() error = %v, want boom", err)
	}

	accounts, err := store.Stores().Accounts.List(ctx, 1, true)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(accounts) != 0 {
		t.Errorf("accounts after rollback = %d, want 0", len(accounts))
	}
}

func TestTransactionStore_ListFilters(t *testing.T) {
	store := openTestStore(t)
	stores := store.Stores()
	ctx := context.Background()

	account, category := seedAccount(t, stores, 1)

	mk := func(txType core.TransactionType, status core.TransactionStatus, amount, date string) {
		t.Helper()
		if _, err := stores.Transactions.Create(ctx, core.Transaction{
			OwnerID:      1,
			AccountID:    account.ID,
			CategoryID:   category.ID,
			Type:         txType,
			Amount:       mustDecimal(t, amount),
			CurrencyCode: "PKR",
			Date:         mustDate(t, date),
			Status:       status,
		}); err != nil {
			t.Fatalf("create transaction: %v", err)
		}
	}

	mk(core.TypeExpense, core.StatusCleared, "100", "2026-01-10")
	mk(core.TypeExpense, core.StatusPending, "40", "2026-01-20")
	mk(core.TypeIncome, core.StatusCleared, "900", "2026-02-01")

	cases := []struct {
		name   string
		filter services.TransactionFilter
		want   int
	}{
		{"owner only", services.TransactionFilter{OwnerID: 1}, 3},
		{"wrong owner", services.TransactionFilter{OwnerID: 2}, 0},
		{"by type", services.TransactionFilter{OwnerID: 1, Type: core.TypeExpense}, 2},
		{"by status", services.TransactionFilter{OwnerID: 1, Status: core.StatusCleared}, 2},
		{"by date window", services.TransactionFilter{
			OwnerID: 1,
			From:    mustDate(t, "2026-01-15"),
			To:      mustDate(t, "2026-01-31"),
		}, 1},
		{"with limit", services.TransactionFilter{OwnerID: 1, Limit: 2}, 2},
	}

	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			got, err := stores.Transactions.List(ctx, tt.filter)
			if err != nil {
				t.Fatalf("List() error = %v", err)
			}
			if len(got) != tt.want {
				t.Errorf("List() returned %d rows, want %d", len(got), tt.want)
			}
		})
	}

	// Newest first.
	all, _ := stores.Transactions.List(ctx, services.TransactionFilter{OwnerID: 1})
	if all[0].Date.Before(all[len(all)-1].Date) {
		t.Error("expected descending date order")
	}
}

func TestTransactionStore_SumByCategoriesCountsOnlyCleared(t *testing.T) {
	store := openTestStore(t)
	stores := store.Stores()
	ctx := context.Background()

	account, category := seedAccount(t, stores, 1)

	for _, row := range []struct {
		amount string
		status core.TransactionStatus
	}{
		{"100", core.StatusCleared},
		{"50", core.StatusCleared},
		{"999", core.StatusPending},
	} {
		if _, err := stores.Transactions.Create(ctx, core.Transaction{
			OwnerID:      1,
			AccountID:    account.ID,
			CategoryID:   category.ID,
			Type:         core.TypeExpense,
			Amount:       mustDecimal(t, row.amount),
			CurrencyCode: "PKR",
			Date:         mustDate(t, "2026-03-05"),
			Status:       row.status,
		}); err != nil {
			t.Fatalf("create transaction: %v", err)
		}
	}

	total, err := stores.Transactions.SumByCategories(ctx, 1, []int64{category.ID},
		core.TypeExpense, mustDate(t, "2026-03-01"), mustDate(t, "2026-03-31"))
	if err != nil {
		t.Fatalf("SumByCategories() error = %v", err)
	}
	if !total.Equal(mustDecimal(t, "150")) {
		t.Errorf("total = %s, want 150 (pending rows must not count)", total)
	}
}

func TestTransactionStore_CreateTransferPairLinksLegs(t *testing.T) {
	store := openTestStore(t)
	stores := store.Stores()
	ctx := context.Background()

	account, category := seedAccount(t, stores, 1)

	leg := func(txType core.TransactionType) core.Transaction {
		return core.Transaction{
			OwnerID:      1,
			AccountID:    account.ID,
			CategoryID:   category.ID,
			Type:         txType,
			Amount:       mustDecimal(t, "75"),
			CurrencyCode: "PKR",
			Date:         mustDate(t, "2026-04-01"),
			Status:       core.StatusCleared,
		}
	}

	out, in, err := stores.Transactions.CreateTransferPair(ctx, leg(core.TypeExpense), leg(core.TypeIncome))
	if err != nil {
		t.Fatalf("CreateTransferPair() error = %v", err)
	}
	if out.LinkedTransactionID == nil || *out.LinkedTransactionID != in.ID {
		t.Errorf("out leg link = %v, want %d", out.LinkedTransactionID, in.ID)
	}
	if in.LinkedTransactionID == nil || *in.LinkedTransactionID != out.ID {
		t.Errorf("in leg link = %v, want %d", in.LinkedTransactionID, out.ID)
	}

	// Links survive the round trip.
	stored, err := stores.Transactions.Get(ctx, 1, out.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if stored.LinkedTransactionID == nil || *stored.LinkedTransactionID != in.ID {
		t.Errorf("stored link = %v, want %d", stored.LinkedTransactionID, in.ID)
	}
}

func TestRuleStore_ListDue(t *testing.T) {
	store := openTestStore(t)
	stores := store.Stores()
	ctx := context.Background()

	account, category := seedAccount(t, stores, 1)

	mk := func(nextRun string, active bool) {
		t.Helper()
		if _, err := stores.Rules.Create(ctx, core.RecurringRule{
			OwnerID:      1,
			AccountID:    account.ID,
			CategoryID:   category.ID,
			Type:         core.TypeExpense,
			Amount:       mustDecimal(t, "500"),
			CurrencyCode: "PKR",
			Frequency:    core.Monthly,
			Interval:     1,
			DayOfMonth:   5,
			StartDate:    mustDate(t, "2026-01-05"),
			NextRunDate:  mustDate(t, nextRun),
			Active:       active,
		}); err != nil {
			t.Fatalf("create rule: %v", err)
		}
	}

	mk("2026-05-05", true)  // due
	mk("2026-06-05", true)  // not yet
	mk("2026-05-05", false) // inactive never due

	due, err := stores.Rules.ListDue(ctx, 1, mustDate(t, "2026-05-10"))
	if err != nil {
		t.Fatalf("ListDue() error = %v", err)
	}
	if len(due) != 1 {
		t.Fatalf("due rules = %d, want 1", len(due))
	}
	if !due[0].NextRunDate.Equal(mustDate(t, "2026-05-05")) {
		t.Errorf("due rule next run = %v", due[0].NextRunDate)
	}
}

func TestRuleStore_ListFilters(t *testing.T) {
	store := openTestStore(t)
	stores := store.Stores()
	ctx := context.Background()

	account, category := seedAccount(t, stores, 1)

	second, err := stores.Accounts.Create(ctx, core.Account{
		OwnerID:        1,
		Name:           "Savings",
		Type:           core.AccountBank,
		CurrencyCode:   "PKR",
		InitialBalance: mustDecimal(t, "0"),
		CurrentBalance: mustDecimal(t, "0"),
	})
	if err != nil {
		t.Fatalf("create account: %v", err)
	}

	mk := func(accountID int64, txType core.TransactionType, active bool) {
		t.Helper()
		if _, err := stores.Rules.Create(ctx, core.RecurringRule{
			OwnerID:      1,
			AccountID:    accountID,
			CategoryID:   category.ID,
			Type:         txType,
			Amount:       mustDecimal(t, "500"),
			CurrencyCode: "PKR",
			Frequency:    core.Monthly,
			Interval:     1,
			DayOfMonth:   5,
			StartDate:    mustDate(t, "2026-01-05"),
			NextRunDate:  mustDate(t, "2026-02-05"),
			Active:       active,
		}); err != nil {
			t.Fatalf("create rule: %v", err)
		}
	}

	mk(account.ID, core.TypeExpense, true)
	mk(account.ID, core.TypeExpense, false)
	mk(second.ID, core.TypeIncome, true)

	cases := []struct {
		name   string
		filter services.RuleFilter
		want   int
	}{
		{"all", services.RuleFilter{OwnerID: 1}, 3},
		{"active only", services.RuleFilter{OwnerID: 1, ActiveOnly: true}, 2},
		{"by account", services.RuleFilter{OwnerID: 1, AccountID: second.ID}, 1},
		{"by type", services.RuleFilter{OwnerID: 1, Type: core.TypeExpense}, 2},
		{"other owner", services.RuleFilter{OwnerID: 2}, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rules, err := stores.Rules.List(ctx, tc.filter)
			if err != nil {
				t.Fatalf("List() error = %v", err)
			}
			if len(rules) != tc.want {
				t.Errorf("List() returned %d rules, want %d", len(rules), tc.want)
			}
		})
	}
}

func TestRuleStore_WeekdayRoundTrip(t *testing.T) {
	store := openTestStore(t)
	stores := store.Stores()
	ctx := context.Background()

	account, category := seedAccount(t, stores, 1)

	created, err := stores.Rules.Create(ctx, core.RecurringRule{
		OwnerID:      1,
		AccountID:    account.ID,
		CategoryID:   category.ID,
		Type:         core.TypeExpense,
		Amount:       mustDecimal(t, "200"),
		CurrencyCode: "PKR",
		Frequency:    core.Weekly,
		Interval:     2,
		DayOfWeek:    time.Friday,
		HasDayOfWeek: true,
		StartDate:    mustDate(t, "2026-01-02"),
		NextRunDate:  mustDate(t, "2026-01-02"),
		Active:       true,
	})
	if err != nil {
		t.Fatalf("create rule: %v", err)
	}

	got, err := stores.Rules.Get(ctx, 1, created.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !got.HasDayOfWeek || got.DayOfWeek != time.Friday {
		t.Errorf("weekday = (%v, %v), want (Friday, true)", got.DayOfWeek, got.HasDayOfWeek)
	}
	if got.EndDate != nil {
		t.Errorf("end date = %v, want nil", got.EndDate)
	}
}

func TestBudgetStore_OverlapAndCascade(t *testing.T) {
	store := openTestStore(t)
	stores := store.Stores()
	ctx := context.Background()

	_, category := seedAccount(t, stores, 1)

	mk := func(name, start, end string) core.Budget {
		t.Helper()
		b, err := stores.Budgets.Create(ctx, core.Budget{
			OwnerID:    1,
			Name:       name,
			PeriodType: core.PeriodMonthly,
			StartDate:  mustDate(t, start),
			EndDate:    mustDate(t, end),
		})
		if err != nil {
			t.Fatalf("create budget: %v", err)
		}
		return b
	}

	march := mk("March", "2026-03-01", "2026-03-31")
	mk("May", "2026-05-01", "2026-05-31")

	overlapping, err := stores.Budgets.ListOverlapping(ctx, 1,
		mustDate(t, "2026-03-15"), mustDate(t, "2026-04-15"))
	if err != nil {
		t.Fatalf("ListOverlapping() error = %v", err)
	}
	if len(overlapping) != 1 || overlapping[0].Name != "March" {
		t.Errorf("overlapping = %+v, want only March", overlapping)
	}

	item, err := stores.Budgets.CreateItem(ctx, core.BudgetItem{
		BudgetID:       march.ID,
		CategoryID:     category.ID,
		LimitAmount:    mustDecimal(t, "3000"),
		WarningPercent: 80,
	})
	if err != nil {
		t.Fatalf("CreateItem() error = %v", err)
	}

	// Deleting the budget removes its items through the FK cascade.
	if err := stores.Budgets.Delete(ctx, march.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := stores.Budgets.GetItem(ctx, march.ID, item.ID); err == nil {
		t.Error("expected item to be gone after budget delete")
	}
}

func TestAuditStore_ListNewestFirstWithLimit(t *testing.T) {
	store := openTestStore(t)
	stores := store.Stores()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := stores.Audits.Create(ctx, core.AuditLog{
			OwnerID:   1,
			Action:    "transaction.created",
			Entity:    "transaction",
			EntityID:  int64(i + 1),
			CreatedAt: time.Date(2026, 7, 1+i, 12, 0, 0, 0, time.UTC),
		}); err != nil {
			t.Fatalf("create audit entry: %v", err)
		}
	}

	entries, err := stores.Audits.List(ctx, 1, 2)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(entries))
	}
	if entries[0].EntityID != 3 {
		t.Errorf("first entry entity id = %d, want newest (3)", entries[0].EntityID)
	}
}

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := parseDate(s)
	if err != nil {
		t.Fatalf("bad date %q: %v", s, err)
	}
	return d
}

func TestHelpers(t *testing.T) {
	t.Run("parseDecimal empty", func(t *testing.T) {
		d, err := parseDecimal("")
		if err != nil || !d.IsZero() {
			t.Errorf("parseDecimal(\"\") = (%s, %v), want (0, nil)", d, err)
		}
	})

	t.Run("parseDecimal invalid", func(t *testing.T) {
		if _, err := parseDecimal("abc"); err == nil {
			t.Error("expected error for non-numeric input")
		}
	})

	t.Run("date round trip", func(t *testing.T) {
		d := mustDate(t, "2026-08-31")
		if got := formatDate(d); got != "2026-08-31" {
			t.Errorf("formatDate = %q", got)
		}
	})

	t.Run("nullDecimal", func(t *testing.T) {
		if nullDecimal(nil).Valid {
			t.Error("nullDecimal(nil) should be invalid")
		}
		v := decimal.NewFromInt(7)
		n := nullDecimal(&v)
		if !n.Valid || n.String != "7" {
			t.Errorf("nullDecimal(7) = %+v", n)
		}
	})

	t.Run("intPtr", func(t *testing.T) {
		if intPtr(nullInt(nil)) != nil {
			t.Error("round trip of nil should stay nil")
		}
		v := int64(42)
		got := intPtr(nullInt(&v))
		if got == nil || *got != 42 {
			t.Errorf("round trip of 42 = %v", got)
		}
	})
}
