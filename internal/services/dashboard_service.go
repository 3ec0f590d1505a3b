package services

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/itsmibrahim123/ExpenseManager/internal/core"
)

// DashboardService produces read-only summaries over accounts and cleared
// transactions. It never writes.
type DashboardService struct {
	stores Stores
}

func NewDashboardService(stores Stores) *DashboardService {
	return &DashboardService{stores: stores}
}

type AccountSummary struct {
	ID       int64
	Name     string
	Type     core.AccountType
	Currency string
	Balance  decimal.Decimal
}

type DashboardSummary struct {
	Accounts           []AccountSummary
	TotalBalance       decimal.Decimal
	PeriodIncome       decimal.Decimal
	PeriodExpense      decimal.Decimal
	PeriodNet          decimal.Decimal
	RecentTransactions []core.Transaction
}

// Summary reports balances of non-archived accounts, the cleared income and
// expense totals over [from, to], and the most recent transactions.
func (s *DashboardService) Summary(ctx context.Context, ownerID int64, from, to time.Time, recentLimit int) (DashboardSummary, error) {
	if recentLimit <= 0 {
		recentLimit = 10
	}

	accounts, err := s.stores.Accounts.List(ctx, ownerID, false)
	if err != nil {
		return DashboardSummary{}, err
	}

	summary := DashboardSummary{
		TotalBalance:  decimal.Zero,
		PeriodIncome:  decimal.Zero,
		PeriodExpense: decimal.Zero,
	}
	for _, a := range accounts {
		summary.Accounts = append(summary.Accounts, AccountSummary{
			ID:       a.ID,
			Name:     a.Name,
			Type:     a.Type,
			Currency: a.CurrencyCode,
			Balance:  a.CurrentBalance,
		})
		summary.TotalBalance = summary.TotalBalance.Add(a.CurrentBalance)
	}

	cleared, err := s.stores.Transactions.List(ctx, TransactionFilter{
		OwnerID: ownerID,
		Status:  core.StatusCleared,
		From:    from,
		To:      to,
	})
	if err != nil {
		return DashboardSummary{}, err
	}
	for _, t := range cleared {
		switch t.Type {
		case core.TypeIncome:
			summary.PeriodIncome = summary.PeriodIncome.Add(t.Amount)
		case core.TypeExpense:
			summary.PeriodExpense = summary.PeriodExpense.Add(t.Amount)
		}
	}
	summary.PeriodNet = summary.PeriodIncome.Sub(summary.PeriodExpense)

	recent, err := s.stores.Transactions.List(ctx, TransactionFilter{
		OwnerID: ownerID,
		Limit:   recentLimit,
	})
	if err != nil {
		return DashboardSummary{}, err
	}
	sort.SliceStable(recent, func(i, j int) bool {
		if !recent[i].Date.Equal(recent[j].Date) {
			return recent[i].Date.After(recent[j].Date)
		}
		return recent[i].CreatedAt.After(recent[j].CreatedAt)
	})
	summary.RecentTransactions = recent

	return summary, nil
}

type CategoryBreakdownEntry struct {
	CategoryID   int64
	CategoryName string
	Total        decimal.Decimal
	Percentage   float64
}

// CategoryBreakdown groups cleared transactions of one type by category,
// with each group's share of the total, sorted largest first.
func (s *DashboardService) CategoryBreakdown(ctx context.Context, ownerID int64, txType core.TransactionType, from, to time.Time) ([]CategoryBreakdownEntry, error) {
	if txType != core.TypeExpense && txType != core.TypeIncome {
		return nil, &core.InvalidTransactionTypeError{Type: txType}
	}

	txns, err := s.stores.Transactions.List(ctx, TransactionFilter{
		OwnerID: ownerID,
		Type:    txType,
		Status:  core.StatusCleared,
		From:    from,
		To:      to,
	})
	if err != nil {
		return nil, err
	}

	categories, err := s.stores.Categories.List(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	names := make(map[int64]string, len(categories))
	for _, c := range categories {
		names[c.ID] = c.Name
	}

	totals := make(map[int64]decimal.Decimal)
	grand := decimal.Zero
	for _, t := range txns {
		totals[t.CategoryID] = totals[t.CategoryID].Add(t.Amount)
		grand = grand.Add(t.Amount)
	}

	entries := make([]CategoryBreakdownEntry, 0, len(totals))
	for id, total := range totals {
		entry := CategoryBreakdownEntry{
			CategoryID:   id,
			CategoryName: names[id],
			Total:        total,
		}
		if grand.IsPositive() {
			entry.Percentage, _ = total.Div(grand).Mul(decimal.NewFromInt(100)).Float64()
		}
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Total.GreaterThan(entries[j].Total)
	})
	return entries, nil
}

type IncomeExpenseComparison struct {
	Income         decimal.Decimal
	Expense        decimal.Decimal
	Net            decimal.Decimal
	IncomeCount    int
	ExpenseCount   int
	AverageIncome  decimal.Decimal
	AverageExpense decimal.Decimal
	SavingsRate    float64 // net / income * 100, 0 when income is zero
}

func (s *DashboardService) Comparison(ctx context.Context, ownerID int64, from, to time.Time) (IncomeExpenseComparison, error) {
	txns, err := s.stores.Transactions.List(ctx, TransactionFilter{
		OwnerID: ownerID,
		Status:  core.StatusCleared,
		From:    from,
		To:      to,
	})
	if err != nil {
		return IncomeExpenseComparison{}, err
	}

	cmp := IncomeExpenseComparison{
		Income:         decimal.Zero,
		Expense:        decimal.Zero,
		AverageIncome:  decimal.Zero,
		AverageExpense: decimal.Zero,
	}
	for _, t := range txns {
		switch t.Type {
		case core.TypeIncome:
			cmp.Income = cmp.Income.Add(t.Amount)
			cmp.IncomeCount++
		case core.TypeExpense:
			cmp.Expense = cmp.Expense.Add(t.Amount)
			cmp.ExpenseCount++
		}
	}
	cmp.Net = cmp.Income.Sub(cmp.Expense)
	if cmp.IncomeCount > 0 {
		cmp.AverageIncome = cmp.Income.Div(decimal.NewFromInt(int64(cmp.IncomeCount)))
	}
	if cmp.ExpenseCount > 0 {
		cmp.AverageExpense = cmp.Expense.Div(decimal.NewFromInt(int64(cmp.ExpenseCount)))
	}
	if cmp.Income.IsPositive() {
		cmp.SavingsRate, _ = cmp.Net.Div(cmp.Income).Mul(decimal.NewFromInt(100)).Float64()
	}
	return cmp, nil
}
