package core

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// The error taxonomy below is exhaustive for the core: every failure an
// operation can surface is one of these values, all deterministic validation
// or state conflicts. Callers match with errors.As / errors.Is instead of
// string inspection. InsufficientBalanceError and AccountHasBalanceError name
// the caller flag that bypasses the guard, since both guards are escapable by
// explicit opt-in.

var (
	ErrSameAccountTransfer = errors.New("source and destination accounts must differ")
	ErrInvalidDateRange    = errors.New("end date must not be before start date")
)

type NotFoundError struct {
	Entity string // "account", "category", "budget", "budget item", "recurring rule", "transaction"
	ID     int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Entity, e.ID)
}

func NewAccountNotFound(id int64) *NotFoundError   { return &NotFoundError{Entity: "account", ID: id} }
func NewCategoryNotFound(id int64) *NotFoundError  { return &NotFoundError{Entity: "category", ID: id} }
func NewBudgetNotFound(id int64) *NotFoundError    { return &NotFoundError{Entity: "budget", ID: id} }
func NewBudgetItemNotFound(id int64) *NotFoundError {
	return &NotFoundError{Entity: "budget item", ID: id}
}
func NewRuleNotFound(id int64) *NotFoundError {
	return &NotFoundError{Entity: "recurring rule", ID: id}
}
func NewTransactionNotFound(id int64) *NotFoundError {
	return &NotFoundError{Entity: "transaction", ID: id}
}

type InvalidAmountError struct {
	Amount decimal.Decimal
}

func (e *InvalidAmountError) Error() string {
	return fmt.Sprintf("amount must be greater than zero, got %s", e.Amount)
}

type InvalidAccountTypeError struct {
	Type AccountType
}

func (e *InvalidAccountTypeError) Error() string {
	return fmt.Sprintf("invalid account type %q", e.Type)
}

type InvalidTransactionTypeError struct {
	Type TransactionType
}

func (e *InvalidTransactionTypeError) Error() string {
	return fmt.Sprintf("invalid transaction type %q, must be EXPENSE or INCOME", e.Type)
}

type InvalidStatusError struct {
	Status TransactionStatus
}

func (e *InvalidStatusError) Error() string {
	return fmt.Sprintf("invalid transaction status %q, must be PENDING or CLEARED", e.Status)
}

type CategoryTypeMismatchError struct {
	Requested TransactionType
	Actual    TransactionType
}

func (e *CategoryTypeMismatchError) Error() string {
	return fmt.Sprintf("category type %q does not match transaction type %q", e.Actual, e.Requested)
}

type InvalidPeriodTypeError struct {
	PeriodType PeriodType
}

func (e *InvalidPeriodTypeError) Error() string {
	return fmt.Sprintf("invalid period type %q", e.PeriodType)
}

type InvalidFrequencyError struct {
	Frequency Frequency
}

func (e *InvalidFrequencyError) Error() string {
	return fmt.Sprintf("invalid frequency %q", e.Frequency)
}

type InvalidIntervalError struct {
	Interval int
}

func (e *InvalidIntervalError) Error() string {
	return fmt.Sprintf("interval must be at least 1, got %d", e.Interval)
}

type InvalidDayOfMonthError struct {
	Day int // 0 when missing
}

func (e *InvalidDayOfMonthError) Error() string {
	if e.Day == 0 {
		return "day of month is required for MONTHLY rules"
	}
	return fmt.Sprintf("day of month must be between 1 and 31, got %d", e.Day)
}

type InvalidDayOfWeekError struct {
	Value string
}

func (e *InvalidDayOfWeekError) Error() string {
	if e.Value == "" {
		return "day of week is required for WEEKLY rules"
	}
	return fmt.Sprintf("invalid day of week %q", e.Value)
}

type InvalidAmountRangeError struct {
	Field string
	Value decimal.Decimal
}

func (e *InvalidAmountRangeError) Error() string {
	return fmt.Sprintf("%s must be greater than zero, got %s", e.Field, e.Value)
}

type InvalidWarningPercentError struct {
	Percent int
}

func (e *InvalidWarningPercentError) Error() string {
	return fmt.Sprintf("warning percent must be between 1 and 100, got %d", e.Percent)
}

type InvalidCurrencyError struct {
	Code string
}

func (e *InvalidCurrencyError) Error() string {
	return fmt.Sprintf("unknown currency code %q", e.Code)
}

type InsufficientBalanceError struct {
	Balance  decimal.Decimal
	Required decimal.Decimal
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance: current balance %s, required %s (pass allowNegative to override)",
		e.Balance, e.Required)
}

type AccountHasBalanceError struct {
	Balance decimal.Decimal
}

func (e *AccountHasBalanceError) Error() string {
	return fmt.Sprintf("account has non-zero balance %s (pass force to archive anyway)", e.Balance)
}

type AccountHasTransactionsError struct {
	AccountID int64
}

func (e *AccountHasTransactionsError) Error() string {
	return fmt.Sprintf("account %d has transactions, currency cannot be changed", e.AccountID)
}

type ArchivedAccountError struct {
	Name string
}

func (e *ArchivedAccountError) Error() string {
	return fmt.Sprintf("account %q is archived and cannot be used", e.Name)
}

type CurrencyMismatchError struct {
	Source      string
	Destination string
}

func (e *CurrencyMismatchError) Error() string {
	return fmt.Sprintf("currency mismatch: source is %s, destination is %s (conversion is not supported)",
		e.Source, e.Destination)
}
