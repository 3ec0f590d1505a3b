package services

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/itsmibrahim123/ExpenseManager/internal/core"
)

// ExportService renders transactions and budgets as CSV or JSON. Read-only.
type ExportService struct {
	stores Stores
}

func NewExportService(stores Stores) *ExportService {
	return &ExportService{stores: stores}
}

// ExportMeta is attached to JSON exports and logged for CSV ones.
type ExportMeta struct {
	GeneratedAt time.Time `json:"generated_at"`
	RowCount    int       `json:"row_count"`
	From        string    `json:"from,omitempty"`
	To          string    `json:"to,omitempty"`
}

func (s *ExportService) TransactionsCSV(ctx context.Context, w io.Writer, ownerID int64, from, to time.Time) (ExportMeta, error) {
	txns, err := s.stores.Transactions.List(ctx, TransactionFilter{
		OwnerID: ownerID,
		From:    from,
		To:      to,
	})
	if err != nil {
		return ExportMeta{}, fmt.Errorf("export transactions: %w", err)
	}

	cw := csv.NewWriter(w)
	header := []string{"id", "date", "type", "status", "amount", "currency", "account_id", "category_id", "description", "reference"}
	if err := cw.Write(header); err != nil {
		return ExportMeta{}, fmt.Errorf("write csv header: %w", err)
	}
	for _, t := range txns {
		record := []string{
			strconv.FormatInt(t.ID, 10),
			t.Date.Format("2006-01-02"),
			string(t.Type),
			string(t.Status),
			t.Amount.String(),
			t.CurrencyCode,
			strconv.FormatInt(t.AccountID, 10),
			strconv.FormatInt(t.CategoryID, 10),
			t.Description,
			t.ReferenceNumber,
		}
		if err := cw.Write(record); err != nil {
			return ExportMeta{}, fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return ExportMeta{}, fmt.Errorf("flush csv: %w", err)
	}

	return exportMeta(len(txns), from, to), nil
}

type transactionExport struct {
	Meta         ExportMeta         `json:"meta"`
	Transactions []core.Transaction `json:"transactions"`
}

func (s *ExportService) TransactionsJSON(ctx context.Context, w io.Writer, ownerID int64, from, to time.Time) (ExportMeta, error) {
	txns, err := s.stores.Transactions.List(ctx, TransactionFilter{
		OwnerID: ownerID,
		From:    from,
		To:      to,
	})
	if err != nil {
		return ExportMeta{}, fmt.Errorf("export transactions: %w", err)
	}

	meta := exportMeta(len(txns), from, to)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(transactionExport{Meta: meta, Transactions: txns}); err != nil {
		return ExportMeta{}, fmt.Errorf("encode transactions: %w", err)
	}
	return meta, nil
}

func (s *ExportService) BudgetsCSV(ctx context.Context, w io.Writer, ownerID int64) (ExportMeta, error) {
	budgets, err := s.stores.Budgets.List(ctx, ownerID)
	if err != nil {
		return ExportMeta{}, fmt.Errorf("export budgets: %w", err)
	}

	cw := csv.NewWriter(w)
	header := []string{"id", "name", "period_type", "start_date", "end_date", "total_limit", "notes"}
	if err := cw.Write(header); err != nil {
		return ExportMeta{}, fmt.Errorf("write csv header: %w", err)
	}
	for _, b := range budgets {
		limit := ""
		if b.TotalLimit != nil {
			limit = b.TotalLimit.String()
		}
		record := []string{
			strconv.FormatInt(b.ID, 10),
			b.Name,
			string(b.PeriodType),
			b.StartDate.Format("2006-01-02"),
			b.EndDate.Format("2006-01-02"),
			limit,
			b.Notes,
		}
		if err := cw.Write(record); err != nil {
			return ExportMeta{}, fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return ExportMeta{}, fmt.Errorf("flush csv: %w", err)
	}

	return exportMeta(len(budgets), time.Time{}, time.Time{}), nil
}

type budgetExport struct {
	Meta    ExportMeta    `json:"meta"`
	Budgets []core.Budget `json:"budgets"`
}

func (s *ExportService) BudgetsJSON(ctx context.Context, w io.Writer, ownerID int64) (ExportMeta, error) {
	budgets, err := s.stores.Budgets.List(ctx, ownerID)
	if err != nil {
		return ExportMeta{}, fmt.Errorf("export budgets: %w", err)
	}

	meta := exportMeta(len(budgets), time.Time{}, time.Time{})
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(budgetExport{Meta: meta, Budgets: budgets}); err != nil {
		return ExportMeta{}, fmt.Errorf("encode budgets: %w", err)
	}
	return meta, nil
}

func exportMeta(rows int, from, to time.Time) ExportMeta {
	meta := ExportMeta{GeneratedAt: time.Now(), RowCount: rows}
	if !from.IsZero() {
		meta.From = from.Format("2006-01-02")
	}
	if !to.IsZero() {
		meta.To = to.Format("2006-01-02")
	}
	return meta
}
