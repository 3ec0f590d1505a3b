package http

import (
	"fmt"
	"net/http"
	"time"

	"github.com/itsmibrahim123/ExpenseManager/internal/core"
)

type accountSummaryResponse struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Type     string `json:"type"`
	Currency string `json:"currency"`
	Balance  string `json:"balance"`
}

type summaryResponse struct {
	Accounts           []accountSummaryResponse `json:"accounts"`
	TotalBalance       string                   `json:"total_balance"`
	PeriodIncome       string                   `json:"period_income"`
	PeriodExpense      string                   `json:"period_expense"`
	PeriodNet          string                   `json:"period_net"`
	RecentTransactions []transactionResponse    `json:"recent_transactions"`
}

// summaryWindow resolves the ?from/?to query pair, defaulting to the
// current calendar month.
func summaryWindow(r *http.Request) (time.Time, time.Time, error) {
	from, err := queryDate(r, "from")
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	to, err := queryDate(r, "to")
	if err != nil {
		return time.Time{}, time.Time{}, err
	}

	now := time.Now().UTC()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	if from.IsZero() {
		from = monthStart
	}
	if to.IsZero() {
		to = monthStart.AddDate(0, 1, -1)
	}
	return from, to, nil
}

func (s *Server) handleDashboardSummary(w http.ResponseWriter, r *http.Request) {
	owner, err := ownerID(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	from, to, err := summaryWindow(r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	summary, err := s.dashboard.Summary(r.Context(), owner, from, to, queryInt(r, "recentLimit", 10))
	if err != nil {
		respondError(w, r, err)
		return
	}

	out := summaryResponse{
		Accounts:           make([]accountSummaryResponse, 0, len(summary.Accounts)),
		TotalBalance:       summary.TotalBalance.String(),
		PeriodIncome:       summary.PeriodIncome.String(),
		PeriodExpense:      summary.PeriodExpense.String(),
		PeriodNet:          summary.PeriodNet.String(),
		RecentTransactions: make([]transactionResponse, 0, len(summary.RecentTransactions)),
	}
	for _, a := range summary.Accounts {
		out.Accounts = append(out.Accounts, accountSummaryResponse{
			ID:       a.ID,
			Name:     a.Name,
			Type:     string(a.Type),
			Currency: a.Currency,
			Balance:  a.Balance.String(),
		})
	}
	for _, t := range summary.RecentTransactions {
		out.RecentTransactions = append(out.RecentTransactions, toTransactionResponse(t))
	}
	respondJSON(w, http.StatusOK, out)
}

type breakdownEntryResponse struct {
	CategoryID   int64   `json:"category_id"`
	CategoryName string  `json:"category_name"`
	Total        string  `json:"total"`
	Percentage   float64 `json:"percentage"`
}

func (s *Server) handleCategoryBreakdown(w http.ResponseWriter, r *http.Request) {
	owner, err := ownerID(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	from, to, err := summaryWindow(r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	txType := core.TransactionType(r.URL.Query().Get("type"))
	if txType == "" {
		txType = core.TypeExpense
	}

	entries, err := s.dashboard.CategoryBreakdown(r.Context(), owner, txType, from, to)
	if err != nil {
		respondError(w, r, err)
		return
	}

	out := make([]breakdownEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, breakdownEntryResponse{
			CategoryID:   e.CategoryID,
			CategoryName: e.CategoryName,
			Total:        e.Total.String(),
			Percentage:   e.Percentage,
		})
	}
	respondJSON(w, http.StatusOK, out)
}

type comparisonResponse struct {
	Income         string  `json:"income"`
	Expense        string  `json:"expense"`
	Net            string  `json:"net"`
	IncomeCount    int     `json:"income_count"`
	ExpenseCount   int     `json:"expense_count"`
	AverageIncome  string  `json:"average_income"`
	AverageExpense string  `json:"average_expense"`
	SavingsRate    float64 `json:"savings_rate"`
}

func (s *Server) handleComparison(w http.ResponseWriter, r *http.Request) {
	owner, err := ownerID(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	from, to, err := summaryWindow(r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	cmp, err := s.dashboard.Comparison(r.Context(), owner, from, to)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, comparisonResponse{
		Income:         cmp.Income.String(),
		Expense:        cmp.Expense.String(),
		Net:            cmp.Net.String(),
		IncomeCount:    cmp.IncomeCount,
		ExpenseCount:   cmp.ExpenseCount,
		AverageIncome:  cmp.AverageIncome.String(),
		AverageExpense: cmp.AverageExpense.String(),
		SavingsRate:    cmp.SavingsRate,
	})
}

// handleExportTransactions streams the owner's transactions over the
// ?from/?to window as CSV (default) or JSON via ?format=json.
func (s *Server) handleExportTransactions(w http.ResponseWriter, r *http.Request) {
	owner, err := ownerID(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	from, to, err := summaryWindow(r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	format := r.URL.Query().Get("format")
	switch format {
	case "", "csv":
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "transactions.csv"))
		_, err = s.export.TransactionsCSV(r.Context(), w, owner, from, to)
	case "json":
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		_, err = s.export.TransactionsJSON(r.Context(), w, owner, from, to)
	default:
		respondError(w, r, badRequest("invalid_format", "unsupported export format %q", format))
		return
	}
	if err != nil {
		// Headers may already be out; nothing more we can do than log.
		respondError(w, r, err)
	}
}

func (s *Server) handleExportBudgets(w http.ResponseWriter, r *http.Request) {
	owner, err := ownerID(r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	format := r.URL.Query().Get("format")
	switch format {
	case "", "csv":
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "budgets.csv"))
		_, err = s.export.BudgetsCSV(r.Context(), w, owner)
	case "json":
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		_, err = s.export.BudgetsJSON(r.Context(), w, owner)
	default:
		respondError(w, r, badRequest("invalid_format", "unsupported export format %q", format))
		return
	}
	if err != nil {
		respondError(w, r, err)
	}
}
