package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/itsmibrahim123/ExpenseManager/internal/core"
	"github.com/itsmibrahim123/ExpenseManager/internal/schedule"
)

// RecurringRuleService manages recurring obligations. The next-run date is
// owned by the schedule package; this service only decides when to recompute
// it. Rules are never executed here, only described and advanced.
type RecurringRuleService struct {
	runner TxRunner
	stores Stores
}

func NewRecurringRuleService(runner TxRunner, stores Stores) *RecurringRuleService {
	return &RecurringRuleService{runner: runner, stores: stores}
}

type CreateRuleRequest struct {
	OwnerID      int64
	AccountID    int64
	CategoryID   int64
	Type         core.TransactionType
	Amount       decimal.Decimal
	Description  string
	Frequency    core.Frequency
	Interval     int
	DayOfMonth   int
	DayOfWeek    string // wire form, e.g. "FRIDAY"
	StartDate    time.Time
	EndDate      *time.Time
}

// validateSchedule applies the shared schedule validation: frequency,
// interval, the per-frequency required field and the date range.
func validateSchedule(freq core.Frequency, interval, dayOfMonth int, dayOfWeek string, start time.Time, end *time.Time) (schedule.Params, error) {
	if !core.ValidFrequency(freq) {
		return schedule.Params{}, &core.InvalidFrequencyError{Frequency: freq}
	}
	if interval < 1 {
		return schedule.Params{}, &core.InvalidIntervalError{Interval: interval}
	}

	p := schedule.Params{Frequency: freq, Interval: interval}

	switch freq {
	case core.Monthly:
		if dayOfMonth == 0 {
			return schedule.Params{}, &core.InvalidDayOfMonthError{Day: 0}
		}
		if dayOfMonth < 1 || dayOfMonth > 31 {
			return schedule.Params{}, &core.InvalidDayOfMonthError{Day: dayOfMonth}
		}
		p.DayOfMonth = dayOfMonth
	case core.Weekly:
		if dayOfWeek == "" {
			return schedule.Params{}, &core.InvalidDayOfWeekError{Value: ""}
		}
		wd, ok := core.ParseWeekday(dayOfWeek)
		if !ok {
			return schedule.Params{}, &core.InvalidDayOfWeekError{Value: dayOfWeek}
		}
		p.DayOfWeek = wd
		p.HasDayOfWeek = true
	}

	if end != nil && end.Before(start) {
		return schedule.Params{}, core.ErrInvalidDateRange
	}

	return p, nil
}

func (s *RecurringRuleService) Create(ctx context.Context, req CreateRuleRequest) (core.RecurringRule, error) {
	if !req.Amount.IsPositive() {
		return core.RecurringRule{}, &core.InvalidAmountError{Amount: req.Amount}
	}
	if req.Type != core.TypeExpense && req.Type != core.TypeIncome {
		return core.RecurringRule{}, &core.InvalidTransactionTypeError{Type: req.Type}
	}

	params, err := validateSchedule(req.Frequency, req.Interval, req.DayOfMonth, req.DayOfWeek, req.StartDate, req.EndDate)
	if err != nil {
		return core.RecurringRule{}, err
	}

	var rule core.RecurringRule
	err = s.runner.InTx(ctx, func(st Stores) error {
		account, err := st.Accounts.Get(ctx, req.OwnerID, req.AccountID)
		if err != nil {
			return err
		}
		if account.Archived {
			return &core.ArchivedAccountError{Name: account.Name}
		}
		if _, err := st.Categories.Get(ctx, req.OwnerID, req.CategoryID); err != nil {
			return err
		}

		rule, err = st.Rules.Create(ctx, core.RecurringRule{
			OwnerID:      req.OwnerID,
			AccountID:    req.AccountID,
			CategoryID:   req.CategoryID,
			Type:         req.Type,
			Amount:       req.Amount,
			CurrencyCode: account.CurrencyCode,
			Description:  req.Description,
			Frequency:    req.Frequency,
			Interval:     req.Interval,
			DayOfMonth:   params.DayOfMonth,
			DayOfWeek:    params.DayOfWeek,
			HasDayOfWeek: params.HasDayOfWeek,
			StartDate:    req.StartDate,
			EndDate:      req.EndDate,
			NextRunDate:  schedule.InitialNextRun(req.StartDate, params),
			Active:       true,
		})
		return err
	})
	if err != nil {
		return core.RecurringRule{}, err
	}

	slog.InfoContext(ctx, "Recurring rule created",
		"rule_id", rule.ID,
		"frequency", rule.Frequency,
		"interval", rule.Interval,
		"next_run", rule.NextRunDate.Format("2006-01-02"))

	return rule, nil
}

// UpdateRuleRequest carries optional changes; nil pointers leave the field
// untouched. Changing any schedule-affecting field recomputes the next run
// from the rule's CURRENT next-run date with the new parameters, never from
// the start date.
type UpdateRuleRequest struct {
	OwnerID     int64
	ID          int64
	Amount      *decimal.Decimal
	Description *string
	Interval    *int
	DayOfMonth  *int
	DayOfWeek   *string
	EndDate     *time.Time
	ClearEnd    bool
}

func (s *RecurringRuleService) Update(ctx context.Context, req UpdateRuleRequest) (core.RecurringRule, error) {
	var rule core.RecurringRule
	err := s.runner.InTx(ctx, func(st Stores) error {
		var err error
		rule, err = st.Rules.Get(ctx, req.OwnerID, req.ID)
		if err != nil {
			return err
		}

		if req.Amount != nil {
			if !req.Amount.IsPositive() {
				return &core.InvalidAmountError{Amount: *req.Amount}
			}
			rule.Amount = *req.Amount
		}
		if req.Description != nil {
			rule.Description = *req.Description
		}

		scheduleChanged := false
		interval := rule.Interval
		dayOfMonth := rule.DayOfMonth
		dayOfWeek := ""
		if rule.HasDayOfWeek {
			dayOfWeek = core.WeekdayString(rule.DayOfWeek)
		}
		if req.Interval != nil {
			interval = *req.Interval
			scheduleChanged = true
		}
		if req.DayOfMonth != nil {
			dayOfMonth = *req.DayOfMonth
			scheduleChanged = true
		}
		if req.DayOfWeek != nil {
			dayOfWeek = *req.DayOfWeek
			scheduleChanged = true
		}

		endDate := rule.EndDate
		if req.ClearEnd {
			endDate = nil
		} else if req.EndDate != nil {
			endDate = req.EndDate
		}

		params, err := validateSchedule(rule.Frequency, interval, dayOfMonth, dayOfWeek, rule.StartDate, endDate)
		if err != nil {
			return err
		}

		rule.Interval = interval
		rule.DayOfMonth = params.DayOfMonth
		rule.DayOfWeek = params.DayOfWeek
		rule.HasDayOfWeek = params.HasDayOfWeek
		rule.EndDate = endDate
		if scheduleChanged {
			rule.NextRunDate = schedule.NextRun(rule.NextRunDate, params)
		}

		return st.Rules.Update(ctx, rule)
	})
	if err != nil {
		return core.RecurringRule{}, err
	}
	return rule, nil
}

// Advance moves the rule to its next occurrence, deactivating it when the
// new date passes the end date. Callers invoke it when the obligation has
// been handled; nothing here generates transactions.
func (s *RecurringRuleService) Advance(ctx context.Context, ownerID, id int64) (core.RecurringRule, error) {
	var rule core.RecurringRule
	err := s.runner.InTx(ctx, func(st Stores) error {
		var err error
		rule, err = st.Rules.Get(ctx, ownerID, id)
		if err != nil {
			return err
		}

		params := schedule.Params{
			Frequency:    rule.Frequency,
			Interval:     rule.Interval,
			DayOfMonth:   rule.DayOfMonth,
			DayOfWeek:    rule.DayOfWeek,
			HasDayOfWeek: rule.HasDayOfWeek,
		}
		rule.NextRunDate = schedule.NextRun(rule.NextRunDate, params)
		if schedule.IsExpired(rule.EndDate, rule.NextRunDate) {
			rule.Active = false
		}

		return st.Rules.Update(ctx, rule)
	})
	if err != nil {
		return core.RecurringRule{}, err
	}
	return rule, nil
}

func (s *RecurringRuleService) SetActive(ctx context.Context, ownerID, id int64, active bool) (core.RecurringRule, error) {
	var rule core.RecurringRule
	err := s.runner.InTx(ctx, func(st Stores) error {
		var err error
		rule, err = st.Rules.Get(ctx, ownerID, id)
		if err != nil {
			return err
		}
		rule.Active = active
		return st.Rules.Update(ctx, rule)
	})
	if err != nil {
		return core.RecurringRule{}, err
	}
	return rule, nil
}

func (s *RecurringRuleService) Get(ctx context.Context, ownerID, id int64) (core.RecurringRule, error) {
	return s.stores.Rules.Get(ctx, ownerID, id)
}

func (s *RecurringRuleService) List(ctx context.Context, f RuleFilter) ([]core.RecurringRule, error) {
	return s.stores.Rules.List(ctx, f)
}

func (s *RecurringRuleService) ListDue(ctx context.Context, ownerID int64, asOf time.Time) ([]core.RecurringRule, error) {
	if asOf.IsZero() {
		asOf = time.Now()
	}
	return s.stores.Rules.ListDue(ctx, ownerID, asOf)
}

func (s *RecurringRuleService) Delete(ctx context.Context, ownerID, id int64) error {
	return s.runner.InTx(ctx, func(st Stores) error {
		if _, err := st.Rules.Get(ctx, ownerID, id); err != nil {
			return err
		}
		return st.Rules.Delete(ctx, id)
	})
}
