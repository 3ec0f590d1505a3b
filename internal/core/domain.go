package core

import (
	"strings"
	"time"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

const (
	AccountCash         AccountType = "CASH"
	AccountBank         AccountType = "BANK"
	AccountCreditCard   AccountType = "CREDIT_CARD"
	AccountMobileWallet AccountType = "MOBILE_WALLET"
	AccountOther        AccountType = "OTHER"

	TypeExpense  TransactionType = "EXPENSE"
	TypeIncome   TransactionType = "INCOME"
	TypeTransfer TransactionType = "TRANSFER"

	StatusPending TransactionStatus = "PENDING"
	StatusCleared TransactionStatus = "CLEARED"

	Daily   Frequency = "DAILY"
	Weekly  Frequency = "WEEKLY"
	Monthly Frequency = "MONTHLY"
	Yearly  Frequency = "YEARLY"

	PeriodMonthly PeriodType = "MONTHLY"
	PeriodWeekly  PeriodType = "WEEKLY"
	PeriodYearly  PeriodType = "YEARLY"
	PeriodCustom  PeriodType = "CUSTOM"

	BudgetUpcoming BudgetStatus = "UPCOMING"
	BudgetActive   BudgetStatus = "ACTIVE"
	BudgetExpired  BudgetStatus = "EXPIRED"

	OnTrack    ProgressStatus = "ON_TRACK"
	Warning    ProgressStatus = "WARNING"
	OverBudget ProgressStatus = "OVER_BUDGET"

	// DefaultWarningPercent applies to budget items that do not set their own
	// threshold, and to per-budget overall status.
	DefaultWarningPercent = 80
)

type (
	AccountType       string
	TransactionType   string
	TransactionStatus string
	Frequency         string
	PeriodType        string
	BudgetStatus      string
	ProgressStatus    string

	// Account is a single money container owned by one user. CurrentBalance is
	// mutated exclusively by the account ledger and always equals InitialBalance
	// plus the signed effect of every CLEARED transaction on the account.
	Account struct {
		ID             int64
		OwnerID        int64
		Name           string
		Type           AccountType
		CurrencyCode   string
		InitialBalance decimal.Decimal
		CurrentBalance decimal.Decimal
		Archived       bool
		CreatedAt      time.Time
		UpdatedAt      time.Time
	}

	// Transaction records one movement. Amount is strictly positive; the effect
	// on the balance is derived from Type, never from the sign. The only
	// permitted mutation after creation is the PENDING -> CLEARED transition.
	Transaction struct {
		ID                  int64
		OwnerID             int64
		AccountID           int64
		CategoryID          int64
		PaymentMethodID     *int64
		MerchantID          *int64
		Type                TransactionType
		Amount              decimal.Decimal
		CurrencyCode        string
		Date                time.Time
		TimeOfDay           string // "15:04:05", optional
		Status              TransactionStatus
		LinkedTransactionID *int64 // set only on transfer legs, mutual
		Description         string
		ReferenceNumber     string
		RecurringInstance   bool
		CreatedAt           time.Time
		UpdatedAt           time.Time
	}

	// Category is a lookup row; the core only reads id, type and name.
	Category struct {
		ID      int64
		OwnerID int64
		Name    string
		Type    TransactionType
		Color   string
	}

	// RecurringRule describes a repeating obligation. NextRunDate is owned by
	// the schedule calculator; generation of transactions is out of scope.
	RecurringRule struct {
		ID           int64
		OwnerID      int64
		AccountID    int64
		CategoryID   int64
		Type         TransactionType
		Amount       decimal.Decimal
		CurrencyCode string
		Description  string
		Frequency    Frequency
		Interval     int
		DayOfMonth   int          // 1-31, required for MONTHLY, 0 otherwise
		DayOfWeek    time.Weekday // required for WEEKLY
		HasDayOfWeek bool
		StartDate    time.Time
		EndDate      *time.Time // nil = indefinite
		NextRunDate  time.Time
		Active       bool
		CreatedAt    time.Time
		UpdatedAt    time.Time
	}

	Budget struct {
		ID         int64
		OwnerID    int64
		Name       string
		PeriodType PeriodType
		StartDate  time.Time
		EndDate    time.Time
		TotalLimit *decimal.Decimal
		Notes      string
		CreatedAt  time.Time
		UpdatedAt  time.Time
	}

	BudgetItem struct {
		ID             int64
		BudgetID       int64
		CategoryID     int64
		LimitAmount    decimal.Decimal
		WarningPercent int
	}

	// AuditLog rows are written by the audit worker from consumed events; they
	// never participate in the balance invariant.
	AuditLog struct {
		ID        int64
		OwnerID   int64
		Action    string
		Entity    string
		EntityID  int64
		Detail    string
		CreatedAt time.Time
	}
)

// ValidAccountType reports whether t is one of the known account types.
func ValidAccountType(t AccountType) bool {
	switch t {
	case AccountCash, AccountBank, AccountCreditCard, AccountMobileWallet, AccountOther:
		return true
	}
	return false
}

func ValidFrequency(f Frequency) bool {
	switch f {
	case Daily, Weekly, Monthly, Yearly:
		return true
	}
	return false
}

func ValidPeriodType(p PeriodType) bool {
	switch p {
	case PeriodMonthly, PeriodWeekly, PeriodYearly, PeriodCustom:
		return true
	}
	return false
}

// ValidCurrencyCode checks a 3-letter ISO code against the go-money currency
// table. Codes are compared uppercased.
func ValidCurrencyCode(code string) bool {
	if len(code) != 3 {
		return false
	}
	return money.GetCurrency(strings.ToUpper(code)) != nil
}

// NormalizeCurrency uppercases a currency code for storage.
func NormalizeCurrency(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Delta returns the signed effect of the transaction on its account balance:
// negative for EXPENSE and the outgoing transfer leg, positive for INCOME and
// the incoming leg. Outgoing is identified by the account the leg sits on.
func (t Transaction) Delta() decimal.Decimal {
	switch t.Type {
	case TypeExpense:
		return t.Amount.Neg()
	case TypeIncome:
		return t.Amount
	}
	return t.Amount
}

// StatusAt derives the budget lifecycle status from the clock; it is never
// stored.
func (b Budget) StatusAt(now time.Time) BudgetStatus {
	if now.Before(b.StartDate) {
		return BudgetUpcoming
	}
	if now.After(b.EndDate) {
		return BudgetExpired
	}
	return BudgetActive
}

// ProgressStatusFor applies the consumption thresholds: percentage >= 100 is
// OVER_BUDGET, >= warningPercent is WARNING, anything below is ON_TRACK. Both
// boundaries are inclusive.
func ProgressStatusFor(percentage float64, warningPercent int) ProgressStatus {
	if warningPercent <= 0 {
		warningPercent = DefaultWarningPercent
	}
	switch {
	case percentage >= 100:
		return OverBudget
	case percentage >= float64(warningPercent):
		return Warning
	default:
		return OnTrack
	}
}

// ParseWeekday maps the wire form (SUNDAY..SATURDAY) to time.Weekday.
func ParseWeekday(s string) (time.Weekday, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "SUNDAY":
		return time.Sunday, true
	case "MONDAY":
		return time.Monday, true
	case "TUESDAY":
		return time.Tuesday, true
	case "WEDNESDAY":
		return time.Wednesday, true
	case "THURSDAY":
		return time.Thursday, true
	case "FRIDAY":
		return time.Friday, true
	case "SATURDAY":
		return time.Saturday, true
	}
	return 0, false
}

// WeekdayString renders a time.Weekday in the wire form.
func WeekdayString(d time.Weekday) string {
	return strings.ToUpper(d.String())
}
