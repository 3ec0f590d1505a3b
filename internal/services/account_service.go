package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/itsmibrahim123/ExpenseManager/internal/core"
)

// AccountService owns balance mutation and archival rules. Every balance
// change in the system goes through ApplyDelta; nothing else writes
// current_balance.
type AccountService struct {
	runner TxRunner
	stores Stores
}

func NewAccountService(runner TxRunner, stores Stores) *AccountService {
	return &AccountService{runner: runner, stores: stores}
}

// CreateAccountRequest carries the caller-supplied fields for a new account.
type CreateAccountRequest struct {
	OwnerID        int64
	Name           string
	Type           core.AccountType
	CurrencyCode   string
	InitialBalance decimal.Decimal
}

func (s *AccountService) Create(ctx context.Context, req CreateAccountRequest) (core.Account, error) {
	if !core.ValidAccountType(req.Type) {
		return core.Account{}, &core.InvalidAccountTypeError{Type: req.Type}
	}
	code := core.NormalizeCurrency(req.CurrencyCode)
	if !core.ValidCurrencyCode(code) {
		return core.Account{}, &core.InvalidCurrencyError{Code: req.CurrencyCode}
	}
	if req.InitialBalance.IsNegative() {
		return core.Account{}, &core.InvalidAmountRangeError{Field: "initial balance", Value: req.InitialBalance}
	}

	account, err := s.stores.Accounts.Create(ctx, core.Account{
		OwnerID:        req.OwnerID,
		Name:           req.Name,
		Type:           req.Type,
		CurrencyCode:   code,
		InitialBalance: req.InitialBalance,
		CurrentBalance: req.InitialBalance,
	})
	if err != nil {
		return core.Account{}, fmt.Errorf("create account: %w", err)
	}

	slog.InfoContext(ctx, "Account created",
		"account_id", account.ID,
		"owner_id", account.OwnerID,
		"type", account.Type,
		"currency", account.CurrencyCode)

	return account, nil
}

// CreateDefault provisions the single cash account a new owner starts with.
func (s *AccountService) CreateDefault(ctx context.Context, ownerID int64, currencyCode string) (core.Account, error) {
	return s.Create(ctx, CreateAccountRequest{
		OwnerID:        ownerID,
		Name:           "Cash",
		Type:           core.AccountCash,
		CurrencyCode:   currencyCode,
		InitialBalance: decimal.Zero,
	})
}

func (s *AccountService) Get(ctx context.Context, ownerID, id int64) (core.Account, error) {
	return s.stores.Accounts.Get(ctx, ownerID, id)
}

func (s *AccountService) List(ctx context.Context, ownerID int64, includeArchived bool) ([]core.Account, error) {
	return s.stores.Accounts.List(ctx, ownerID, includeArchived)
}

// UpdateAccountRequest updates name and type only. Currency changes route
// through ChangeCurrency, balances through ApplyDelta.
type UpdateAccountRequest struct {
	OwnerID int64
	ID      int64
	Name    string
	Type    core.AccountType
}

func (s *AccountService) Update(ctx context.Context, req UpdateAccountRequest) (core.Account, error) {
	if !core.ValidAccountType(req.Type) {
		return core.Account{}, &core.InvalidAccountTypeError{Type: req.Type}
	}

	var updated core.Account
	err := s.runner.InTx(ctx, func(st Stores) error {
		account, err := st.Accounts.Get(ctx, req.OwnerID, req.ID)
		if err != nil {
			return err
		}
		account.Name = req.Name
		account.Type = req.Type
		if err := st.Accounts.Update(ctx, account); err != nil {
			return err
		}
		updated = account
		return nil
	})
	if err != nil {
		return core.Account{}, err
	}
	return updated, nil
}

// ApplyDelta adds a signed amount to the account balance inside tx. It must
// be called from within a transaction closure; there is no standalone path.
func ApplyDelta(ctx context.Context, tx Stores, ownerID, accountID int64, delta decimal.Decimal) (core.Account, error) {
	account, err := tx.Accounts.Get(ctx, ownerID, accountID)
	if err != nil {
		return core.Account{}, err
	}

	account.CurrentBalance = account.CurrentBalance.Add(delta)
	if err := tx.Accounts.UpdateBalance(ctx, account.ID, account.CurrentBalance); err != nil {
		return core.Account{}, err
	}
	return account, nil
}

// ApplyDelta applies a signed balance change in its own transaction.
func (s *AccountService) ApplyDelta(ctx context.Context, ownerID, accountID int64, delta decimal.Decimal) (core.Account, error) {
	var account core.Account
	err := s.runner.InTx(ctx, func(st Stores) error {
		var err error
		account, err = ApplyDelta(ctx, st, ownerID, accountID, delta)
		return err
	})
	if err != nil {
		return core.Account{}, err
	}

	slog.InfoContext(ctx, "Balance delta applied",
		"account_id", accountID,
		"delta", delta.String(),
		"balance", account.CurrentBalance.String())

	return account, nil
}

// Archive soft-deletes an account. A non-zero balance blocks archival unless
// force is set; an archived account can never again be a transaction or
// transfer endpoint.
func (s *AccountService) Archive(ctx context.Context, ownerID, accountID int64, force bool) error {
	return s.runner.InTx(ctx, func(st Stores) error {
		account, err := st.Accounts.Get(ctx, ownerID, accountID)
		if err != nil {
			return err
		}
		if !force && !account.CurrentBalance.IsZero() {
			return &core.AccountHasBalanceError{Balance: account.CurrentBalance}
		}
		return st.Accounts.SetArchived(ctx, accountID, true)
	})
}

// ChangeCurrency swaps the currency code without conversion. Refused once any
// transaction references the account.
func (s *AccountService) ChangeCurrency(ctx context.Context, ownerID, accountID int64, newCode string) (core.Account, error) {
	code := core.NormalizeCurrency(newCode)
	if !core.ValidCurrencyCode(code) {
		return core.Account{}, &core.InvalidCurrencyError{Code: newCode}
	}

	var updated core.Account
	err := s.runner.InTx(ctx, func(st Stores) error {
		account, err := st.Accounts.Get(ctx, ownerID, accountID)
		if err != nil {
			return err
		}

		has, err := st.Transactions.ExistsByAccount(ctx, accountID)
		if err != nil {
			return err
		}
		if has {
			return &core.AccountHasTransactionsError{AccountID: accountID}
		}

		account.CurrencyCode = code
		if err := st.Accounts.Update(ctx, account); err != nil {
			return err
		}
		updated = account
		return nil
	})
	if err != nil {
		return core.Account{}, err
	}
	return updated, nil
}

// BalanceOverview groups balances of non-archived accounts by account type.
type BalanceOverview struct {
	Total  decimal.Decimal
	ByType map[core.AccountType]decimal.Decimal
}

func (s *AccountService) Overview(ctx context.Context, ownerID int64) (BalanceOverview, error) {
	accounts, err := s.stores.Accounts.List(ctx, ownerID, false)
	if err != nil {
		return BalanceOverview{}, fmt.Errorf("balance overview: %w", err)
	}

	overview := BalanceOverview{
		Total:  decimal.Zero,
		ByType: make(map[core.AccountType]decimal.Decimal),
	}
	for _, a := range accounts {
		overview.Total = overview.Total.Add(a.CurrentBalance)
		overview.ByType[a.Type] = overview.ByType[a.Type].Add(a.CurrentBalance)
	}
	return overview, nil
}
