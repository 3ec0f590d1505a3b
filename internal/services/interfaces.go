package services

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/itsmibrahim123/ExpenseManager/internal/core"
)

// AccountStore persists accounts.
type AccountStore interface {
	Create(ctx context.Context, a core.Account) (core.Account, error)
	Get(ctx context.Context, ownerID, id int64) (core.Account, error)
	List(ctx context.Context, ownerID int64, includeArchived bool) ([]core.Account, error)
	Update(ctx context.Context, a core.Account) error
	UpdateBalance(ctx context.Context, id int64, balance decimal.Decimal) error
	SetArchived(ctx context.Context, id int64, archived bool) error
}

// TransactionFilter narrows transaction listings. Zero values mean "no filter".
type TransactionFilter struct {
	OwnerID    int64
	AccountID  int64
	CategoryID int64
	Type       core.TransactionType
	Status     core.TransactionStatus
	From       time.Time
	To         time.Time
	Limit      int
	Offset     int
}

// TransactionStore persists transactions. CreateTransferPair inserts both
// legs of a transfer and cross-links them in one statement sequence so a
// caller never observes a half-linked pair.
type TransactionStore interface {
	Create(ctx context.Context, t core.Transaction) (core.Transaction, error)
	CreateTransferPair(ctx context.Context, out, in core.Transaction) (core.Transaction, core.Transaction, error)
	Get(ctx context.Context, ownerID, id int64) (core.Transaction, error)
	List(ctx context.Context, f TransactionFilter) ([]core.Transaction, error)
	UpdateStatus(ctx context.Context, id int64, status core.TransactionStatus) error
	Delete(ctx context.Context, id int64) error
	SumByCategories(ctx context.Context, ownerID int64, categoryIDs []int64, txType core.TransactionType, from, to time.Time) (decimal.Decimal, error)
	ExistsByAccount(ctx context.Context, accountID int64) (bool, error)
}

// CategoryStore persists categories.
type CategoryStore interface {
	Create(ctx context.Context, c core.Category) (core.Category, error)
	Get(ctx context.Context, ownerID, id int64) (core.Category, error)
	List(ctx context.Context, ownerID int64) ([]core.Category, error)
	FindByType(ctx context.Context, ownerID int64, txType core.TransactionType) (core.Category, error)
	Update(ctx context.Context, c core.Category) error
	Delete(ctx context.Context, id int64) error
}

// BudgetStore persists budgets and their per-category items.
type BudgetStore interface {
	Create(ctx context.Context, b core.Budget) (core.Budget, error)
	Get(ctx context.Context, ownerID, id int64) (core.Budget, error)
	List(ctx context.Context, ownerID int64) ([]core.Budget, error)
	ListOverlapping(ctx context.Context, ownerID int64, from, to time.Time) ([]core.Budget, error)
	Update(ctx context.Context, b core.Budget) error
	Delete(ctx context.Context, id int64) error

	CreateItem(ctx context.Context, item core.BudgetItem) (core.BudgetItem, error)
	GetItem(ctx context.Context, budgetID, itemID int64) (core.BudgetItem, error)
	ListItems(ctx context.Context, budgetID int64) ([]core.BudgetItem, error)
	UpdateItem(ctx context.Context, item core.BudgetItem) error
	DeleteItem(ctx context.Context, itemID int64) error
}

// RuleFilter narrows rule listings. Zero values mean "no filter".
type RuleFilter struct {
	OwnerID    int64
	AccountID  int64
	Type       core.TransactionType
	ActiveOnly bool
}

// RuleStore persists recurring rules.
type RuleStore interface {
	Create(ctx context.Context, r core.RecurringRule) (core.RecurringRule, error)
	Get(ctx context.Context, ownerID, id int64) (core.RecurringRule, error)
	List(ctx context.Context, f RuleFilter) ([]core.RecurringRule, error)
	ListDue(ctx context.Context, ownerID int64, asOf time.Time) ([]core.RecurringRule, error)
	Update(ctx context.Context, r core.RecurringRule) error
	Delete(ctx context.Context, id int64) error
}

// AuditStore persists audit log entries.
type AuditStore interface {
	Create(ctx context.Context, entry core.AuditLog) (core.AuditLog, error)
	List(ctx context.Context, ownerID int64, limit int) ([]core.AuditLog, error)
}

// Stores bundles every store so a transactional closure can touch any of
// them through the same underlying connection.
type Stores struct {
	Accounts     AccountStore
	Transactions TransactionStore
	Categories   CategoryStore
	Budgets      BudgetStore
	Rules        RuleStore
	Audits       AuditStore
}

// TxRunner executes fn inside a single database transaction. The Stores
// passed to fn all share that transaction; if fn returns an error, every
// write made through them is rolled back.
type TxRunner interface {
	InTx(ctx context.Context, fn func(Stores) error) error
}

// Publisher emits domain events after commit. Implementations must be safe
// to call from concurrent requests.
type Publisher interface {
	PublishEvent(ctx context.Context, eventType string, ownerID, entityID int64, detail string) error
}
