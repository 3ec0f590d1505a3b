package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/itsmibrahim123/ExpenseManager/internal/core"
	"github.com/itsmibrahim123/ExpenseManager/internal/services"
)

type transactionStore struct {
	q Querier
}

const transactionColumns = `id, owner_id, account_id, category_id, payment_method_id, merchant_id,
	type, amount, currency_code, date, time_of_day, status, linked_transaction_id,
	description, reference_number, recurring_instance, created_at, updated_at`

func (s *transactionStore) Create(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	now := time.Now()
	res, err := s.q.ExecContext(ctx, insertTransactionSQL,
		t.OwnerID, t.AccountID, t.CategoryID, nullInt(t.PaymentMethodID), nullInt(t.MerchantID),
		string(t.Type), t.Amount.String(), t.CurrencyCode, formatDate(t.Date), t.TimeOfDay,
		string(t.Status), nullInt(t.LinkedTransactionID), t.Description, t.ReferenceNumber,
		boolToInt(t.RecurringInstance), formatTimestamp(now), formatTimestamp(now),
	)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return core.Transaction{}, fmt.Errorf("transaction insert id: %w", err)
	}

	t.ID = id
	t.CreatedAt = now
	t.UpdatedAt = now
	return t, nil
}

const insertTransactionSQL = `
	INSERT INTO transactions (owner_id, account_id, category_id, payment_method_id, merchant_id,
		type, amount, currency_code, date, time_of_day, status, linked_transaction_id,
		description, reference_number, recurring_instance, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

// CreateTransferPair inserts both transfer legs and links each to the other.
// Callers run it inside InTx, so a failure on any statement rolls back the
// whole pair.
func (s *transactionStore) CreateTransferPair(ctx context.Context, out, in core.Transaction) (core.Transaction, core.Transaction, error) {
	outSaved, err := s.Create(ctx, out)
	if err != nil {
		return core.Transaction{}, core.Transaction{}, fmt.Errorf("outgoing leg: %w", err)
	}

	in.LinkedTransactionID = &outSaved.ID
	inSaved, err := s.Create(ctx, in)
	if err != nil {
		return core.Transaction{}, core.Transaction{}, fmt.Errorf("incoming leg: %w", err)
	}

	if _, err := s.q.ExecContext(ctx,
		`UPDATE transactions SET linked_transaction_id = ? WHERE id = ?`,
		inSaved.ID, outSaved.ID,
	); err != nil {
		return core.Transaction{}, core.Transaction{}, fmt.Errorf("link outgoing leg: %w", err)
	}
	outSaved.LinkedTransactionID = &inSaved.ID

	return outSaved, inSaved, nil
}

func (s *transactionStore) Get(ctx context.Context, ownerID, id int64) (core.Transaction, error) {
	row := s.q.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE id = ? AND owner_id = ?`, id, ownerID)

	t, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, core.NewTransactionNotFound(id)
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction %d: %w", id, err)
	}
	return t, nil
}

func (s *transactionStore) List(ctx context.Context, f services.TransactionFilter) ([]core.Transaction, error) {
	var (
		conds []string
		args  []any
	)

	conds = append(conds, "owner_id = ?")
	args = append(args, f.OwnerID)

	if f.AccountID != 0 {
		conds = append(conds, "account_id = ?")
		args = append(args, f.AccountID)
	}
	if f.CategoryID != 0 {
		conds = append(conds, "category_id = ?")
		args = append(args, f.CategoryID)
	}
	if f.Type != "" {
		conds = append(conds, "type = ?")
		args = append(args, string(f.Type))
	}
	if f.Status != "" {
		conds = append(conds, "status = ?")
		args = append(args, string(f.Status))
	}
	if !f.From.IsZero() {
		conds = append(conds, "date >= ?")
		args = append(args, formatDate(f.From))
	}
	if !f.To.IsZero() {
		conds = append(conds, "date <= ?")
		args = append(args, formatDate(f.To))
	}

	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE ` +
		strings.Join(conds, " AND ") + ` ORDER BY date DESC, id DESC`
	if f.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", f.Limit, f.Offset)
	}

	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var txns []core.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		txns = append(txns, t)
	}
	return txns, rows.Err()
}

func (s *transactionStore) UpdateStatus(ctx context.Context, id int64, status core.TransactionStatus) error {
	res, err := s.q.ExecContext(ctx,
		`UPDATE transactions SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), formatTimestamp(time.Now()), id,
	)
	if err != nil {
		return fmt.Errorf("update status of transaction %d: %w", id, err)
	}
	return requireRow(res, core.NewTransactionNotFound(id))
}

func (s *transactionStore) Delete(ctx context.Context, id int64) error {
	res, err := s.q.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete transaction %d: %w", id, err)
	}
	return requireRow(res, core.NewTransactionNotFound(id))
}

// SumByCategories totals CLEARED amounts of the given type over [from, to],
// both inclusive, across the given categories. Sums are computed over the
// decimal strings in Go rather than with SQL SUM to avoid float drift.
func (s *transactionStore) SumByCategories(ctx context.Context, ownerID int64, categoryIDs []int64, txType core.TransactionType, from, to time.Time) (decimal.Decimal, error) {
	if len(categoryIDs) == 0 {
		return decimal.Zero, nil
	}

	placeholders := strings.Repeat("?,", len(categoryIDs))
	placeholders = placeholders[:len(placeholders)-1]

	args := []any{ownerID, string(txType), formatDate(from), formatDate(to)}
	for _, id := range categoryIDs {
		args = append(args, id)
	}

	rows, err := s.q.QueryContext(ctx, `
		SELECT amount FROM transactions
		WHERE owner_id = ? AND type = ? AND status = 'CLEARED' AND date >= ? AND date <= ?
		AND category_id IN (`+placeholders+`)`, args...)
	if err != nil {
		return decimal.Zero, fmt.Errorf("sum transactions by category: %w", err)
	}
	defer rows.Close()

	total := decimal.Zero
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return decimal.Zero, fmt.Errorf("scan amount: %w", err)
		}
		amount, err := parseDecimal(raw)
		if err != nil {
			return decimal.Zero, err
		}
		total = total.Add(amount)
	}
	return total, rows.Err()
}

func (s *transactionStore) ExistsByAccount(ctx context.Context, accountID int64) (bool, error) {
	var n int64
	err := s.q.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM transactions WHERE account_id = ? LIMIT 1`, accountID).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("count transactions for account %d: %w", accountID, err)
	}
	return n > 0, nil
}

func scanTransaction(r rowScanner) (core.Transaction, error) {
	var (
		t                          core.Transaction
		paymentMethod, merchant    sql.NullInt64
		linked                     sql.NullInt64
		typ, status, amount        string
		date, created, updated     string
		recurring                  int64
	)
	if err := r.Scan(&t.ID, &t.OwnerID, &t.AccountID, &t.CategoryID, &paymentMethod, &merchant,
		&typ, &amount, &t.CurrencyCode, &date, &t.TimeOfDay, &status, &linked,
		&t.Description, &t.ReferenceNumber, &recurring, &created, &updated); err != nil {
		return core.Transaction{}, err
	}

	t.Type = core.TransactionType(typ)
	t.Status = core.TransactionStatus(status)
	t.PaymentMethodID = intPtr(paymentMethod)
	t.MerchantID = intPtr(merchant)
	t.LinkedTransactionID = intPtr(linked)
	t.RecurringInstance = recurring != 0

	var err error
	if t.Amount, err = parseDecimal(amount); err != nil {
		return core.Transaction{}, err
	}
	if t.Date, err = parseDate(date); err != nil {
		return core.Transaction{}, err
	}
	if t.CreatedAt, err = parseTimestamp(created); err != nil {
		return core.Transaction{}, err
	}
	if t.UpdatedAt, err = parseTimestamp(updated); err != nil {
		return core.Transaction{}, err
	}
	return t, nil
}
