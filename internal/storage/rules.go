package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/itsmibrahim123/ExpenseManager/internal/core"
	"github.com/itsmibrahim123/ExpenseManager/internal/services"
)

type ruleStore struct {
	q Querier
}

const ruleColumns = `id, owner_id, account_id, category_id, type, amount, currency_code, description,
	frequency, interval, day_of_month, day_of_week, start_date, end_date, next_run_date,
	active, created_at, updated_at`

func (s *ruleStore) Create(ctx context.Context, r core.RecurringRule) (core.RecurringRule, error) {
	now := time.Now()
	res, err := s.q.ExecContext(ctx, `
		INSERT INTO recurring_rules (owner_id, account_id, category_id, type, amount, currency_code,
			description, frequency, interval, day_of_month, day_of_week, start_date, end_date,
			next_run_date, active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.OwnerID, r.AccountID, r.CategoryID, string(r.Type), r.Amount.String(), r.CurrencyCode,
		r.Description, string(r.Frequency), r.Interval, r.DayOfMonth, weekdayColumn(r),
		formatDate(r.StartDate), nullDate(r.EndDate), formatDate(r.NextRunDate),
		boolToInt(r.Active), formatTimestamp(now), formatTimestamp(now),
	)
	if err != nil {
		return core.RecurringRule{}, fmt.Errorf("insert recurring rule: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return core.RecurringRule{}, fmt.Errorf("recurring rule insert id: %w", err)
	}

	r.ID = id
	r.CreatedAt = now
	r.UpdatedAt = now
	return r, nil
}

func (s *ruleStore) Get(ctx context.Context, ownerID, id int64) (core.RecurringRule, error) {
	row := s.q.QueryRowContext(ctx,
		`SELECT `+ruleColumns+` FROM recurring_rules WHERE id = ? AND owner_id = ?`, id, ownerID)

	r, err := scanRule(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.RecurringRule{}, core.NewRuleNotFound(id)
	}
	if err != nil {
		return core.RecurringRule{}, fmt.Errorf("get recurring rule %d: %w", id, err)
	}
	return r, nil
}

func (s *ruleStore) List(ctx context.Context, f services.RuleFilter) ([]core.RecurringRule, error) {
	query := `SELECT ` + ruleColumns + ` FROM recurring_rules WHERE owner_id = ?`
	args := []any{f.OwnerID}
	if f.AccountID != 0 {
		query += ` AND account_id = ?`
		args = append(args, f.AccountID)
	}
	if f.Type != "" {
		query += ` AND type = ?`
		args = append(args, string(f.Type))
	}
	if f.ActiveOnly {
		query += ` AND active = 1`
	}
	query += ` ORDER BY next_run_date`

	return s.list(ctx, query, args...)
}

// ListDue returns active rules whose next run date is on or before asOf.
func (s *ruleStore) ListDue(ctx context.Context, ownerID int64, asOf time.Time) ([]core.RecurringRule, error) {
	return s.list(ctx,
		`SELECT `+ruleColumns+` FROM recurring_rules
		WHERE owner_id = ? AND active = 1 AND next_run_date <= ?
		ORDER BY next_run_date`,
		ownerID, formatDate(asOf))
}

func (s *ruleStore) list(ctx context.Context, query string, args ...any) ([]core.RecurringRule, error) {
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list recurring rules: %w", err)
	}
	defer rows.Close()

	var rules []core.RecurringRule
	for rows.Next() {
		r, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("scan recurring rule: %w", err)
		}
		rules = append(rules, r)
	}
	return rules, rows.Err()
}

func (s *ruleStore) Update(ctx context.Context, r core.RecurringRule) error {
	res, err := s.q.ExecContext(ctx, `
		UPDATE recurring_rules
		SET account_id = ?, category_id = ?, type = ?, amount = ?, currency_code = ?, description = ?,
			frequency = ?, interval = ?, day_of_month = ?, day_of_week = ?, start_date = ?,
			end_date = ?, next_run_date = ?, active = ?, updated_at = ?
		WHERE id = ?`,
		r.AccountID, r.CategoryID, string(r.Type), r.Amount.String(), r.CurrencyCode, r.Description,
		string(r.Frequency), r.Interval, r.DayOfMonth, weekdayColumn(r), formatDate(r.StartDate),
		nullDate(r.EndDate), formatDate(r.NextRunDate), boolToInt(r.Active),
		formatTimestamp(time.Now()), r.ID,
	)
	if err != nil {
		return fmt.Errorf("update recurring rule %d: %w", r.ID, err)
	}
	return requireRow(res, core.NewRuleNotFound(r.ID))
}

func (s *ruleStore) Delete(ctx context.Context, id int64) error {
	res, err := s.q.ExecContext(ctx, `DELETE FROM recurring_rules WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete recurring rule %d: %w", id, err)
	}
	return requireRow(res, core.NewRuleNotFound(id))
}

func weekdayColumn(r core.RecurringRule) string {
	if !r.HasDayOfWeek {
		return ""
	}
	return core.WeekdayString(r.DayOfWeek)
}

func nullDate(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatDate(*t), Valid: true}
}

func scanRule(row rowScanner) (core.RecurringRule, error) {
	var (
		r                         core.RecurringRule
		typ, freq, amount, dow    string
		start, nextRun            string
		end                       sql.NullString
		active                    int64
		created, updated          string
	)
	if err := row.Scan(&r.ID, &r.OwnerID, &r.AccountID, &r.CategoryID, &typ, &amount,
		&r.CurrencyCode, &r.Description, &freq, &r.Interval, &r.DayOfMonth, &dow,
		&start, &end, &nextRun, &active, &created, &updated); err != nil {
		return core.RecurringRule{}, err
	}

	r.Type = core.TransactionType(typ)
	r.Frequency = core.Frequency(freq)
	r.Active = active != 0
	if dow != "" {
		if wd, ok := core.ParseWeekday(dow); ok {
			r.DayOfWeek = wd
			r.HasDayOfWeek = true
		}
	}

	var err error
	if r.Amount, err = parseDecimal(amount); err != nil {
		return core.RecurringRule{}, err
	}
	if r.StartDate, err = parseDate(start); err != nil {
		return core.RecurringRule{}, err
	}
	if end.Valid {
		d, err := parseDate(end.String)
		if err != nil {
			return core.RecurringRule{}, err
		}
		r.EndDate = &d
	}
	if r.NextRunDate, err = parseDate(nextRun); err != nil {
		return core.RecurringRule{}, err
	}
	if r.CreatedAt, err = parseTimestamp(created); err != nil {
		return core.RecurringRule{}, err
	}
	if r.UpdatedAt, err = parseTimestamp(updated); err != nil {
		return core.RecurringRule{}, err
	}
	return r, nil
}
