package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/itsmibrahim123/ExpenseManager/internal/core"
)

type accountStore struct {
	q Querier
}

const accountColumns = `id, owner_id, name, type, currency_code, initial_balance, current_balance, archived, created_at, updated_at`

func (s *accountStore) Create(ctx context.Context, a core.Account) (core.Account, error) {
	now := time.Now()
	res, err := s.q.ExecContext(ctx, `
		INSERT INTO accounts (owner_id, name, type, currency_code, initial_balance, current_balance, archived, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.OwnerID, a.Name, string(a.Type), a.CurrencyCode,
		a.InitialBalance.String(), a.CurrentBalance.String(), boolToInt(a.Archived),
		formatTimestamp(now), formatTimestamp(now),
	)
	if err != nil {
		return core.Account{}, fmt.Errorf("insert account: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return core.Account{}, fmt.Errorf("account insert id: %w", err)
	}

	a.ID = id
	a.CreatedAt = now
	a.UpdatedAt = now
	return a, nil
}

func (s *accountStore) Get(ctx context.Context, ownerID, id int64) (core.Account, error) {
	row := s.q.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE id = ? AND owner_id = ?`, id, ownerID)

	a, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Account{}, core.NewAccountNotFound(id)
	}
	if err != nil {
		return core.Account{}, fmt.Errorf("get account %d: %w", id, err)
	}
	return a, nil
}

func (s *accountStore) List(ctx context.Context, ownerID int64, includeArchived bool) ([]core.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE owner_id = ?`
	if !includeArchived {
		query += ` AND archived = 0`
	}
	query += ` ORDER BY name`

	rows, err := s.q.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []core.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

func (s *accountStore) Update(ctx context.Context, a core.Account) error {
	res, err := s.q.ExecContext(ctx, `
		UPDATE accounts
		SET name = ?, type = ?, currency_code = ?, initial_balance = ?, current_balance = ?, updated_at = ?
		WHERE id = ?`,
		a.Name, string(a.Type), a.CurrencyCode,
		a.InitialBalance.String(), a.CurrentBalance.String(),
		formatTimestamp(time.Now()), a.ID,
	)
	if err != nil {
		return fmt.Errorf("update account %d: %w", a.ID, err)
	}
	return requireRow(res, core.NewAccountNotFound(a.ID))
}

func (s *accountStore) UpdateBalance(ctx context.Context, id int64, balance decimal.Decimal) error {
	res, err := s.q.ExecContext(ctx,
		`UPDATE accounts SET current_balance = ?, updated_at = ? WHERE id = ?`,
		balance.String(), formatTimestamp(time.Now()), id,
	)
	if err != nil {
		return fmt.Errorf("update balance of account %d: %w", id, err)
	}
	return requireRow(res, core.NewAccountNotFound(id))
}

func (s *accountStore) SetArchived(ctx context.Context, id int64, archived bool) error {
	res, err := s.q.ExecContext(ctx,
		`UPDATE accounts SET archived = ?, updated_at = ? WHERE id = ?`,
		boolToInt(archived), formatTimestamp(time.Now()), id,
	)
	if err != nil {
		return fmt.Errorf("set archived on account %d: %w", id, err)
	}
	return requireRow(res, core.NewAccountNotFound(id))
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(r rowScanner) (core.Account, error) {
	var (
		a                  core.Account
		typ                string
		initial, current   string
		archived           int64
		created, updated   string
	)
	if err := r.Scan(&a.ID, &a.OwnerID, &a.Name, &typ, &a.CurrencyCode,
		&initial, &current, &archived, &created, &updated); err != nil {
		return core.Account{}, err
	}

	a.Type = core.AccountType(typ)
	a.Archived = archived != 0

	var err error
	if a.InitialBalance, err = parseDecimal(initial); err != nil {
		return core.Account{}, err
	}
	if a.CurrentBalance, err = parseDecimal(current); err != nil {
		return core.Account{}, err
	}
	if a.CreatedAt, err = parseTimestamp(created); err != nil {
		return core.Account{}, err
	}
	if a.UpdatedAt, err = parseTimestamp(updated); err != nil {
		return core.Account{}, err
	}
	return a, nil
}

// requireRow converts a zero-rows-affected update into notFound.
func requireRow(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}
