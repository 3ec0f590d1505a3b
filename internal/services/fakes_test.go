package services

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/itsmibrahim123/ExpenseManager/internal/core"
)

// fakeDB is an in-memory stand-in for the SQLite layer. InTx runs the
// closure against a deep copy and swaps it in only on success, so a failed
// closure leaves no partial writes, mirroring rollback.
type fakeDB struct {
	accounts     map[int64]core.Account
	transactions map[int64]core.Transaction
	categories   map[int64]core.Category
	budgets      map[int64]core.Budget
	budgetItems  map[int64]core.BudgetItem
	rules        map[int64]core.RecurringRule
	audits       []core.AuditLog
	nextID       int64
}

func newFakeDB() *fakeDB {
	return &fakeDB{
		accounts:     make(map[int64]core.Account),
		transactions: make(map[int64]core.Transaction),
		categories:   make(map[int64]core.Category),
		budgets:      make(map[int64]core.Budget),
		budgetItems:  make(map[int64]core.BudgetItem),
		rules:        make(map[int64]core.RecurringRule),
	}
}

func (db *fakeDB) id() int64 {
	db.nextID++
	return db.nextID
}

func (db *fakeDB) clone() *fakeDB {
	c := newFakeDB()
	c.nextID = db.nextID
	for k, v := range db.accounts {
		c.accounts[k] = v
	}
	for k, v := range db.transactions {
		c.transactions[k] = v
	}
	for k, v := range db.categories {
		c.categories[k] = v
	}
	for k, v := range db.budgets {
		c.budgets[k] = v
	}
	for k, v := range db.budgetItems {
		c.budgetItems[k] = v
	}
	for k, v := range db.rules {
		c.rules[k] = v
	}
	c.audits = append(c.audits, db.audits...)
	return c
}

func (db *fakeDB) stores() Stores {
	return Stores{
		Accounts:     &fakeAccountStore{db},
		Transactions: &fakeTransactionStore{db},
		Categories:   &fakeCategoryStore{db},
		Budgets:      &fakeBudgetStore{db},
		Rules:        &fakeRuleStore{db},
		Audits:       &fakeAuditStore{db},
	}
}

type fakeRunner struct {
	db *fakeDB
}

func (r *fakeRunner) InTx(_ context.Context, fn func(Stores) error) error {
	trial := r.db.clone()
	if err := fn(trial.stores()); err != nil {
		return err
	}
	*r.db = *trial
	return nil
}

// newFixture wires a runner and store bundle over one fake database.
func newFixture() (*fakeRunner, Stores, *fakeDB) {
	db := newFakeDB()
	return &fakeRunner{db: db}, db.stores(), db
}

type fakeAccountStore struct{ db *fakeDB }

func (s *fakeAccountStore) Create(_ context.Context, a core.Account) (core.Account, error) {
	a.ID = s.db.id()
	a.CreatedAt = time.Now()
	a.UpdatedAt = a.CreatedAt
	s.db.accounts[a.ID] = a
	return a, nil
}

func (s *fakeAccountStore) Get(_ context.Context, ownerID, id int64) (core.Account, error) {
	a, ok := s.db.accounts[id]
	if !ok || a.OwnerID != ownerID {
		return core.Account{}, core.NewAccountNotFound(id)
	}
	return a, nil
}

func (s *fakeAccountStore) List(_ context.Context, ownerID int64, includeArchived bool) ([]core.Account, error) {
	var out []core.Account
	for _, a := range s.db.accounts {
		if a.OwnerID != ownerID {
			continue
		}
		if a.Archived && !includeArchived {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *fakeAccountStore) Update(_ context.Context, a core.Account) error {
	if _, ok := s.db.accounts[a.ID]; !ok {
		return core.NewAccountNotFound(a.ID)
	}
	s.db.accounts[a.ID] = a
	return nil
}

func (s *fakeAccountStore) UpdateBalance(_ context.Context, id int64, balance decimal.Decimal) error {
	a, ok := s.db.accounts[id]
	if !ok {
		return core.NewAccountNotFound(id)
	}
	a.CurrentBalance = balance
	s.db.accounts[id] = a
	return nil
}

func (s *fakeAccountStore) SetArchived(_ context.Context, id int64, archived bool) error {
	a, ok := s.db.accounts[id]
	if !ok {
		return core.NewAccountNotFound(id)
	}
	a.Archived = archived
	s.db.accounts[id] = a
	return nil
}

type fakeTransactionStore struct{ db *fakeDB }

func (s *fakeTransactionStore) Create(_ context.Context, t core.Transaction) (core.Transaction, error) {
	t.ID = s.db.id()
	t.CreatedAt = time.Now()
	t.UpdatedAt = t.CreatedAt
	s.db.transactions[t.ID] = t
	return t, nil
}

func (s *fakeTransactionStore) CreateTransferPair(ctx context.Context, out, in core.Transaction) (core.Transaction, core.Transaction, error) {
	outSaved, err := s.Create(ctx, out)
	if err != nil {
		return core.Transaction{}, core.Transaction{}, err
	}
	in.LinkedTransactionID = &outSaved.ID
	inSaved, err := s.Create(ctx, in)
	if err != nil {
		return core.Transaction{}, core.Transaction{}, err
	}
	outSaved.LinkedTransactionID = &inSaved.ID
	s.db.transactions[outSaved.ID] = outSaved
	return outSaved, inSaved, nil
}

func (s *fakeTransactionStore) Get(_ context.Context, ownerID, id int64) (core.Transaction, error) {
	t, ok := s.db.transactions[id]
	if !ok || t.OwnerID != ownerID {
		return core.Transaction{}, core.NewTransactionNotFound(id)
	}
	return t, nil
}

func (s *fakeTransactionStore) List(_ context.Context, f TransactionFilter) ([]core.Transaction, error) {
	var out []core.Transaction
	for _, t := range s.db.transactions {
		if t.OwnerID != f.OwnerID {
			continue
		}
		if f.AccountID != 0 && t.AccountID != f.AccountID {
			continue
		}
		if f.CategoryID != 0 && t.CategoryID != f.CategoryID {
			continue
		}
		if f.Type != "" && t.Type != f.Type {
			continue
		}
		if f.Status != "" && t.Status != f.Status {
			continue
		}
		if !f.From.IsZero() && t.Date.Before(f.From) {
			continue
		}
		if !f.To.IsZero() && t.Date.After(f.To) {
			continue
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].ID > out[j].ID
	})
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (s *fakeTransactionStore) UpdateStatus(_ context.Context, id int64, status core.TransactionStatus) error {
	t, ok := s.db.transactions[id]
	if !ok {
		return core.NewTransactionNotFound(id)
	}
	t.Status = status
	s.db.transactions[id] = t
	return nil
}

func (s *fakeTransactionStore) Delete(_ context.Context, id int64) error {
	if _, ok := s.db.transactions[id]; !ok {
		return core.NewTransactionNotFound(id)
	}
	delete(s.db.transactions, id)
	return nil
}

func (s *fakeTransactionStore) SumByCategories(_ context.Context, ownerID int64, categoryIDs []int64, txType core.TransactionType, from, to time.Time) (decimal.Decimal, error) {
	wanted := make(map[int64]bool, len(categoryIDs))
	for _, id := range categoryIDs {
		wanted[id] = true
	}
	total := decimal.Zero
	for _, t := range s.db.transactions {
		if t.OwnerID != ownerID || t.Type != txType || t.Status != core.StatusCleared {
			continue
		}
		if !wanted[t.CategoryID] {
			continue
		}
		if t.Date.Before(from) || t.Date.After(to) {
			continue
		}
		total = total.Add(t.Amount)
	}
	return total, nil
}

func (s *fakeTransactionStore) ExistsByAccount(_ context.Context, accountID int64) (bool, error) {
	for _, t := range s.db.transactions {
		if t.AccountID == accountID {
			return true, nil
		}
	}
	return false, nil
}

type fakeCategoryStore struct{ db *fakeDB }

func (s *fakeCategoryStore) Create(_ context.Context, c core.Category) (core.Category, error) {
	c.ID = s.db.id()
	s.db.categories[c.ID] = c
	return c, nil
}

func (s *fakeCategoryStore) Get(_ context.Context, ownerID, id int64) (core.Category, error) {
	c, ok := s.db.categories[id]
	if !ok || c.OwnerID != ownerID {
		return core.Category{}, core.NewCategoryNotFound(id)
	}
	return c, nil
}

func (s *fakeCategoryStore) List(_ context.Context, ownerID int64) ([]core.Category, error) {
	var out []core.Category
	for _, c := range s.db.categories {
		if c.OwnerID == ownerID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *fakeCategoryStore) FindByType(_ context.Context, ownerID int64, txType core.TransactionType) (core.Category, error) {
	var (
		best  core.Category
		found bool
	)
	for _, c := range s.db.categories {
		if c.OwnerID != ownerID || c.Type != txType {
			continue
		}
		if !found || c.ID < best.ID {
			best = c
			found = true
		}
	}
	if !found {
		return core.Category{}, core.NewCategoryNotFound(0)
	}
	return best, nil
}

func (s *fakeCategoryStore) Update(_ context.Context, c core.Category) error {
	if _, ok := s.db.categories[c.ID]; !ok {
		return core.NewCategoryNotFound(c.ID)
	}
	s.db.categories[c.ID] = c
	return nil
}

func (s *fakeCategoryStore) Delete(_ context.Context, id int64) error {
	if _, ok := s.db.categories[id]; !ok {
		return core.NewCategoryNotFound(id)
	}
	delete(s.db.categories, id)
	return nil
}

type fakeBudgetStore struct{ db *fakeDB }

func (s *fakeBudgetStore) Create(_ context.Context, b core.Budget) (core.Budget, error) {
	b.ID = s.db.id()
	b.CreatedAt = time.Now()
	b.UpdatedAt = b.CreatedAt
	s.db.budgets[b.ID] = b
	return b, nil
}

func (s *fakeBudgetStore) Get(_ context.Context, ownerID, id int64) (core.Budget, error) {
	b, ok := s.db.budgets[id]
	if !ok || b.OwnerID != ownerID {
		return core.Budget{}, core.NewBudgetNotFound(id)
	}
	return b, nil
}

func (s *fakeBudgetStore) List(_ context.Context, ownerID int64) ([]core.Budget, error) {
	var out []core.Budget
	for _, b := range s.db.budgets {
		if b.OwnerID == ownerID {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *fakeBudgetStore) ListOverlapping(_ context.Context, ownerID int64, from, to time.Time) ([]core.Budget, error) {
	var out []core.Budget
	for _, b := range s.db.budgets {
		if b.OwnerID != ownerID {
			continue
		}
		if b.EndDate.Before(from) || b.StartDate.After(to) {
			continue
		}
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *fakeBudgetStore) Update(_ context.Context, b core.Budget) error {
	if _, ok := s.db.budgets[b.ID]; !ok {
		return core.NewBudgetNotFound(b.ID)
	}
	s.db.budgets[b.ID] = b
	return nil
}

func (s *fakeBudgetStore) Delete(_ context.Context, id int64) error {
	if _, ok := s.db.budgets[id]; !ok {
		return core.NewBudgetNotFound(id)
	}
	delete(s.db.budgets, id)
	return nil
}

func (s *fakeBudgetStore) CreateItem(_ context.Context, item core.BudgetItem) (core.BudgetItem, error) {
	item.ID = s.db.id()
	s.db.budgetItems[item.ID] = item
	return item, nil
}

func (s *fakeBudgetStore) GetItem(_ context.Context, budgetID, itemID int64) (core.BudgetItem, error) {
	item, ok := s.db.budgetItems[itemID]
	if !ok || item.BudgetID != budgetID {
		return core.BudgetItem{}, core.NewBudgetItemNotFound(itemID)
	}
	return item, nil
}

func (s *fakeBudgetStore) ListItems(_ context.Context, budgetID int64) ([]core.BudgetItem, error) {
	var out []core.BudgetItem
	for _, item := range s.db.budgetItems {
		if item.BudgetID == budgetID {
			out = append(out, item)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *fakeBudgetStore) UpdateItem(_ context.Context, item core.BudgetItem) error {
	if _, ok := s.db.budgetItems[item.ID]; !ok {
		return core.NewBudgetItemNotFound(item.ID)
	}
	s.db.budgetItems[item.ID] = item
	return nil
}

func (s *fakeBudgetStore) DeleteItem(_ context.Context, itemID int64) error {
	if _, ok := s.db.budgetItems[itemID]; !ok {
		return core.NewBudgetItemNotFound(itemID)
	}
	delete(s.db.budgetItems, itemID)
	return nil
}

type fakeRuleStore struct{ db *fakeDB }

func (s *fakeRuleStore) Create(_ context.Context, r core.RecurringRule) (core.RecurringRule, error) {
	r.ID = s.db.id()
	r.CreatedAt = time.Now()
	r.UpdatedAt = r.CreatedAt
	s.db.rules[r.ID] = r
	return r, nil
}

func (s *fakeRuleStore) Get(_ context.Context, ownerID, id int64) (core.RecurringRule, error) {
	r, ok := s.db.rules[id]
	if !ok || r.OwnerID != ownerID {
		return core.RecurringRule{}, core.NewRuleNotFound(id)
	}
	return r, nil
}

func (s *fakeRuleStore) List(_ context.Context, f RuleFilter) ([]core.RecurringRule, error) {
	var out []core.RecurringRule
	for _, r := range s.db.rules {
		if r.OwnerID != f.OwnerID {
			continue
		}
		if f.AccountID != 0 && r.AccountID != f.AccountID {
			continue
		}
		if f.Type != "" && r.Type != f.Type {
			continue
		}
		if f.ActiveOnly && !r.Active {
			continue
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].NextRunDate.Before(out[j].NextRunDate) })
	return out, nil
}

func (s *fakeRuleStore) ListDue(_ context.Context, ownerID int64, asOf time.Time) ([]core.RecurringRule, error) {
	var out []core.RecurringRule
	for _, r := range s.db.rules {
		if r.OwnerID != ownerID || !r.Active || r.NextRunDate.After(asOf) {
			continue
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].NextRunDate.Before(out[j].NextRunDate) })
	return out, nil
}

func (s *fakeRuleStore) Update(_ context.Context, r core.RecurringRule) error {
	if _, ok := s.db.rules[r.ID]; !ok {
		return core.NewRuleNotFound(r.ID)
	}
	s.db.rules[r.ID] = r
	return nil
}

func (s *fakeRuleStore) Delete(_ context.Context, id int64) error {
	if _, ok := s.db.rules[id]; !ok {
		return core.NewRuleNotFound(id)
	}
	delete(s.db.rules, id)
	return nil
}

type fakeAuditStore struct{ db *fakeDB }

func (s *fakeAuditStore) Create(_ context.Context, entry core.AuditLog) (core.AuditLog, error) {
	entry.ID = s.db.id()
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	s.db.audits = append(s.db.audits, entry)
	return entry, nil
}

func (s *fakeAuditStore) List(_ context.Context, ownerID int64, limit int) ([]core.AuditLog, error) {
	var out []core.AuditLog
	for i := len(s.db.audits) - 1; i >= 0; i-- {
		if s.db.audits[i].OwnerID != ownerID {
			continue
		}
		out = append(out, s.db.audits[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

type recordedEvent struct {
	Type     string
	OwnerID  int64
	EntityID int64
	Detail   string
}

type fakePublisher struct {
	events []recordedEvent
	fail   error
}

func (p *fakePublisher) PublishEvent(_ context.Context, eventType string, ownerID, entityID int64, detail string) error {
	if p.fail != nil {
		return p.fail
	}
	p.events = append(p.events, recordedEvent{Type: eventType, OwnerID: ownerID, EntityID: entityID, Detail: detail})
	return nil
}
