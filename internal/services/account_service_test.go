package services

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/itsmibrahim123/ExpenseManager/internal/core"
)

func TestAccountCreate(t *testing.T) {
	const owner = int64(1)
	ctx := context.Background()

	t.Run("current balance starts at initial balance", func(t *testing.T) {
		runner, stores, _ := newFixture()
		svc := NewAccountService(runner, stores)

		account, err := svc.Create(ctx, CreateAccountRequest{
			OwnerID:        owner,
			Name:           "Wallet",
			Type:           core.AccountCash,
			CurrencyCode:   "pkr",
			InitialBalance: dec("2500"),
		})
		if err != nil {
			t.Fatalf("Create: %v", err)
		}
		if !account.CurrentBalance.Equal(dec("2500")) {
			t.Errorf("current balance = %s, want 2500", account.CurrentBalance)
		}
		if account.CurrencyCode != "PKR" {
			t.Errorf("currency = %s, want uppercased PKR", account.CurrencyCode)
		}
		if account.Archived {
			t.Error("new account must not be archived")
		}
	})

	t.Run("rejects unknown currency and type", func(t *testing.T) {
		runner, stores, _ := newFixture()
		svc := NewAccountService(runner, stores)

		_, err := svc.Create(ctx, CreateAccountRequest{
			OwnerID: owner, Name: "X", Type: core.AccountCash, CurrencyCode: "ZZZ",
		})
		var badCurrency *core.InvalidCurrencyError
		if !errors.As(err, &badCurrency) {
			t.Errorf("error = %v, want InvalidCurrencyError", err)
		}

		_, err = svc.Create(ctx, CreateAccountRequest{
			OwnerID: owner, Name: "X", Type: "SOCK_DRAWER", CurrencyCode: "PKR",
		})
		var badType *core.InvalidAccountTypeError
		if !errors.As(err, &badType) {
			t.Errorf("error = %v, want InvalidAccountTypeError", err)
		}
	})

	t.Run("default account is cash with zero balance", func(t *testing.T) {
		runner, stores, _ := newFixture()
		svc := NewAccountService(runner, stores)

		account, err := svc.CreateDefault(ctx, owner, "EUR")
		if err != nil {
			t.Fatalf("CreateDefault: %v", err)
		}
		if account.Type != core.AccountCash || !account.CurrentBalance.IsZero() {
			t.Errorf("default account = %s/%s, want CASH/0", account.Type, account.CurrentBalance)
		}
	})
}

func TestAccountArchive(t *testing.T) {
	const owner = int64(1)
	ctx := context.Background()

	t.Run("non-zero balance blocks archival", func(t *testing.T) {
		runner, stores, db := newFixture()
		account := seedAccount(db, owner, "Main", "PKR", dec("10"))
		svc := NewAccountService(runner, stores)

		err := svc.Archive(ctx, owner, account.ID, false)
		var hasBalance *core.AccountHasBalanceError
		if !errors.As(err, &hasBalance) {
			t.Fatalf("error = %v, want AccountHasBalanceError", err)
		}
		if !hasBalance.Balance.Equal(dec("10")) {
			t.Errorf("error balance = %s, want 10", hasBalance.Balance)
		}
		if db.accounts[account.ID].Archived {
			t.Error("account must not be archived after failed call")
		}
	})

	t.Run("force archives regardless of balance", func(t *testing.T) {
		runner, stores, db := newFixture()
		account := seedAccount(db, owner, "Main", "PKR", dec("10"))
		svc := NewAccountService(runner, stores)

		if err := svc.Archive(ctx, owner, account.ID, true); err != nil {
			t.Fatalf("Archive with force: %v", err)
		}
		if !db.accounts[account.ID].Archived {
			t.Error("account should be archived")
		}
	})

	t.Run("zero balance archives without force", func(t *testing.T) {
		runner, stores, db := newFixture()
		account := seedAccount(db, owner, "Main", "PKR", decimal.Zero)
		svc := NewAccountService(runner, stores)

		if err := svc.Archive(ctx, owner, account.ID, false); err != nil {
			t.Fatalf("Archive: %v", err)
		}
		if !db.accounts[account.ID].Archived {
			t.Error("account should be archived")
		}
	})
}

func TestAccountChangeCurrency(t *testing.T) {
	const owner = int64(1)
	ctx := context.Background()

	t.Run("changes code when no transactions exist", func(t *testing.T) {
		runner, stores, db := newFixture()
		account := seedAccount(db, owner, "Main", "PKR", dec("100"))
		svc := NewAccountService(runner, stores)

		updated, err := svc.ChangeCurrency(ctx, owner, account.ID, "usd")
		if err != nil {
			t.Fatalf("ChangeCurrency: %v", err)
		}
		if updated.CurrencyCode != "USD" {
			t.Errorf("currency = %s, want USD", updated.CurrencyCode)
		}
		if !updated.CurrentBalance.Equal(dec("100")) {
			t.Errorf("balance = %s, want unconverted 100", updated.CurrentBalance)
		}
	})

	t.Run("refused once the account has transactions", func(t *testing.T) {
		runner, stores, db := newFixture()
		account := seedAccount(db, owner, "Main", "PKR", dec("100"))
		category := seedCategory(db, owner, "Misc", core.TypeExpense)
		db.transactions[db.id()] = core.Transaction{
			OwnerID: owner, AccountID: account.ID, CategoryID: category.ID,
			Type: core.TypeExpense, Amount: dec("5"), Status: core.StatusCleared,
		}
		svc := NewAccountService(runner, stores)

		_, err := svc.ChangeCurrency(ctx, owner, account.ID, "USD")
		var hasTxns *core.AccountHasTransactionsError
		if !errors.As(err, &hasTxns) {
			t.Fatalf("error = %v, want AccountHasTransactionsError", err)
		}
		if db.accounts[account.ID].CurrencyCode != "PKR" {
			t.Error("currency must remain PKR")
		}
	})
}

// The balance invariant: current balance always equals initial balance plus
// the sum of cleared effects, across a mixed sequence of operations.
func TestBalanceInvariant(t *testing.T) {
	const owner = int64(1)
	ctx := context.Background()

	runner, stores, db := newFixture()
	account := seedAccount(db, owner, "Main", "PKR", dec("5000"))
	expense := seedCategory(db, owner, "Groceries", core.TypeExpense)
	income := seedCategory(db, owner, "Salary", core.TypeIncome)
	svc := NewTransactionService(runner, stores, nil)

	steps := []struct {
		categoryID int64
		typ        core.TransactionType
		amount     string
		status     core.TransactionStatus
	}{
		{expense.ID, core.TypeExpense, "1200", core.StatusCleared},
		{income.ID, core.TypeIncome, "3000", core.StatusCleared},
		{expense.ID, core.TypeExpense, "700", core.StatusPending},
		{expense.ID, core.TypeExpense, "450.75", core.StatusCleared},
	}
	for _, step := range steps {
		if _, err := svc.Create(ctx, CreateTransactionRequest{
			OwnerID:    owner,
			AccountID:  account.ID,
			CategoryID: step.categoryID,
			Type:       step.typ,
			Amount:     dec(step.amount),
			Status:     step.status,
		}, false); err != nil {
			t.Fatalf("Create %s %s: %v", step.typ, step.amount, err)
		}
	}

	expected := dec("5000")
	for _, txn := range db.transactions {
		if txn.Status == core.StatusCleared {
			expected = expected.Add(txn.Delta())
		}
	}
	if got := db.accounts[account.ID].CurrentBalance; !got.Equal(expected) {
		t.Errorf("balance = %s, want initial + cleared effects = %s", got, expected)
	}
	if got := db.accounts[account.ID].CurrentBalance; !got.Equal(dec("6349.25")) {
		t.Errorf("balance = %s, want 6349.25", got)
	}
}

func TestAccountOverview(t *testing.T) {
	const owner = int64(1)
	ctx := context.Background()

	runner, stores, db := newFixture()
	wallet := seedAccount(db, owner, "Wallet", "PKR", dec("100"))
	wallet.Type = core.AccountCash
	db.accounts[wallet.ID] = wallet
	seedAccount(db, owner, "Bank", "PKR", dec("900"))
	archived := seedAccount(db, owner, "Closed", "PKR", dec("50"))
	archived.Archived = true
	db.accounts[archived.ID] = archived
	svc := NewAccountService(runner, stores)

	overview, err := svc.Overview(ctx, owner)
	if err != nil {
		t.Fatalf("Overview: %v", err)
	}
	if !overview.Total.Equal(dec("1000")) {
		t.Errorf("total = %s, want 1000 excluding archived", overview.Total)
	}
	if got := overview.ByType[core.AccountBank]; !got.Equal(dec("900")) {
		t.Errorf("bank total = %s, want 900", got)
	}
}
