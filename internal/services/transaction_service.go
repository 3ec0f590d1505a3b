package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/itsmibrahim123/ExpenseManager/internal/core"
)

// Event types published after balance-affecting operations commit.
const (
	EventTransactionCreated = "transaction.created"
	EventTransactionCleared = "transaction.cleared"
	EventTransferCompleted  = "transfer.completed"
)

// TransactionService validates and records transactions, invoking the
// account ledger for every balance-affecting write. All multi-step writes
// run in a single storage transaction.
type TransactionService struct {
	runner    TxRunner
	stores    Stores
	publisher Publisher
}

func NewTransactionService(runner TxRunner, stores Stores, publisher Publisher) *TransactionService {
	return &TransactionService{runner: runner, stores: stores, publisher: publisher}
}

type CreateTransactionRequest struct {
	OwnerID         int64
	AccountID       int64
	CategoryID      int64
	PaymentMethodID *int64
	MerchantID      *int64
	Type            core.TransactionType
	Amount          decimal.Decimal
	CurrencyCode    string // empty = account currency
	Date            time.Time
	TimeOfDay       string
	Status          core.TransactionStatus // empty = CLEARED
	Description     string
	ReferenceNumber string
}

// TransactionResult carries the stored transaction and the account balance
// after the operation.
type TransactionResult struct {
	Transaction  core.Transaction
	BalanceAfter decimal.Decimal
}

// Create records an EXPENSE or INCOME transaction. A CLEARED transaction
// immediately moves the balance; a PENDING one does not. A CLEARED expense
// that would drive the balance negative is rejected unless allowNegative.
func (s *TransactionService) Create(ctx context.Context, req CreateTransactionRequest, allowNegative bool) (TransactionResult, error) {
	if !req.Amount.IsPositive() {
		return TransactionResult{}, &core.InvalidAmountError{Amount: req.Amount}
	}
	if req.Type != core.TypeExpense && req.Type != core.TypeIncome {
		return TransactionResult{}, &core.InvalidTransactionTypeError{Type: req.Type}
	}

	status := req.Status
	if status == "" {
		status = core.StatusCleared
	}
	if status != core.StatusPending && status != core.StatusCleared {
		return TransactionResult{}, &core.InvalidStatusError{Status: status}
	}

	date := req.Date
	if date.IsZero() {
		date = time.Now()
	}

	var result TransactionResult
	err := s.runner.InTx(ctx, func(st Stores) error {
		account, err := st.Accounts.Get(ctx, req.OwnerID, req.AccountID)
		if err != nil {
			return err
		}
		if account.Archived {
			return &core.ArchivedAccountError{Name: account.Name}
		}

		category, err := st.Categories.Get(ctx, req.OwnerID, req.CategoryID)
		if err != nil {
			return err
		}
		if !strings.EqualFold(string(category.Type), string(req.Type)) {
			return &core.CategoryTypeMismatchError{Requested: req.Type, Actual: category.Type}
		}

		currency := account.CurrencyCode
		if req.CurrencyCode != "" {
			code := core.NormalizeCurrency(req.CurrencyCode)
			if !core.ValidCurrencyCode(code) {
				return &core.InvalidCurrencyError{Code: req.CurrencyCode}
			}
			if code != account.CurrencyCode {
				return &core.CurrencyMismatchError{Source: account.CurrencyCode, Destination: code}
			}
			currency = code
		}

		if req.Type == core.TypeExpense && status == core.StatusCleared {
			projected := account.CurrentBalance.Sub(req.Amount)
			if projected.IsNegative() && !allowNegative {
				return &core.InsufficientBalanceError{
					Balance:  account.CurrentBalance,
					Required: req.Amount,
				}
			}
		}

		txn, err := st.Transactions.Create(ctx, core.Transaction{
			OwnerID:         req.OwnerID,
			AccountID:       req.AccountID,
			CategoryID:      req.CategoryID,
			PaymentMethodID: req.PaymentMethodID,
			MerchantID:      req.MerchantID,
			Type:            req.Type,
			Amount:          req.Amount,
			CurrencyCode:    currency,
			Date:            date,
			TimeOfDay:       req.TimeOfDay,
			Status:          status,
			Description:     req.Description,
			ReferenceNumber: req.ReferenceNumber,
		})
		if err != nil {
			return err
		}

		balanceAfter := account.CurrentBalance
		if status == core.StatusCleared {
			updated, err := ApplyDelta(ctx, st, req.OwnerID, req.AccountID, txn.Delta())
			if err != nil {
				return err
			}
			balanceAfter = updated.CurrentBalance
		}

		result = TransactionResult{Transaction: txn, BalanceAfter: balanceAfter}
		return nil
	})
	if err != nil {
		return TransactionResult{}, err
	}

	slog.InfoContext(ctx, "Transaction created",
		"transaction_id", result.Transaction.ID,
		"account_id", req.AccountID,
		"type", req.Type,
		"amount", req.Amount.String(),
		"status", result.Transaction.Status,
		"balance_after", result.BalanceAfter.String())

	s.publish(ctx, EventTransactionCreated, req.OwnerID, result.Transaction.ID, result.Transaction.Description)

	return result, nil
}

// UpdateStatus applies the single sanctioned transition PENDING -> CLEARED,
// moving the balance at that point. Any other requested transition is a
// silent no-op returning current state; a cleared transaction can never be
// un-cleared this way.
func (s *TransactionService) UpdateStatus(ctx context.Context, ownerID, id int64, newStatus core.TransactionStatus) (TransactionResult, error) {
	var (
		result  TransactionResult
		applied bool
	)
	err := s.runner.InTx(ctx, func(st Stores) error {
		txn, err := st.Transactions.Get(ctx, ownerID, id)
		if err != nil {
			return err
		}

		account, err := st.Accounts.Get(ctx, ownerID, txn.AccountID)
		if err != nil {
			return err
		}

		if txn.Status != core.StatusPending || newStatus != core.StatusCleared {
			result = TransactionResult{Transaction: txn, BalanceAfter: account.CurrentBalance}
			return nil
		}

		if err := st.Transactions.UpdateStatus(ctx, id, core.StatusCleared); err != nil {
			return err
		}
		txn.Status = core.StatusCleared

		updated, err := ApplyDelta(ctx, st, ownerID, txn.AccountID, txn.Delta())
		if err != nil {
			return err
		}

		applied = true
		result = TransactionResult{Transaction: txn, BalanceAfter: updated.CurrentBalance}
		return nil
	})
	if err != nil {
		return TransactionResult{}, err
	}

	if applied {
		slog.InfoContext(ctx, "Transaction cleared",
			"transaction_id", id,
			"balance_after", result.BalanceAfter.String())
		s.publish(ctx, EventTransactionCleared, ownerID, id, result.Transaction.Description)
	}

	return result, nil
}

func (s *TransactionService) Get(ctx context.Context, ownerID, id int64) (core.Transaction, error) {
	return s.stores.Transactions.Get(ctx, ownerID, id)
}

func (s *TransactionService) List(ctx context.Context, f TransactionFilter) ([]core.Transaction, error) {
	return s.stores.Transactions.List(ctx, f)
}

type TransferRequest struct {
	OwnerID         int64
	FromAccountID   int64
	ToAccountID     int64
	Amount          decimal.Decimal
	Date            time.Time
	Description     string
	ReferenceNumber string // empty = generated
}

// TransferResult carries both legs, mutually linked, and the balances of
// both accounts before and after.
type TransferResult struct {
	OutLeg            core.Transaction
	InLeg             core.Transaction
	ReferenceNumber   string
	SourceBefore      decimal.Decimal
	SourceAfter       decimal.Decimal
	DestinationBefore decimal.Decimal
	DestinationAfter  decimal.Decimal
}

// Transfer moves funds between two same-currency accounts of one owner. Both
// legs, their mutual link and both balance updates commit or roll back as a
// unit; a transfer never leaves a single-sided trace.
func (s *TransactionService) Transfer(ctx context.Context, req TransferRequest, allowNegative bool) (TransferResult, error) {
	if !req.Amount.IsPositive() {
		return TransferResult{}, &core.InvalidAmountError{Amount: req.Amount}
	}
	if req.FromAccountID == req.ToAccountID {
		return TransferResult{}, core.ErrSameAccountTransfer
	}

	date := req.Date
	if date.IsZero() {
		date = time.Now()
	}
	reference := req.ReferenceNumber
	if reference == "" {
		reference = uuid.NewString()
	}

	var result TransferResult
	err := s.runner.InTx(ctx, func(st Stores) error {
		source, err := st.Accounts.Get(ctx, req.OwnerID, req.FromAccountID)
		if err != nil {
			return err
		}
		dest, err := st.Accounts.Get(ctx, req.OwnerID, req.ToAccountID)
		if err != nil {
			return err
		}

		if source.Archived {
			return &core.ArchivedAccountError{Name: source.Name}
		}
		if dest.Archived {
			return &core.ArchivedAccountError{Name: dest.Name}
		}
		if source.CurrencyCode != dest.CurrencyCode {
			return &core.CurrencyMismatchError{Source: source.CurrencyCode, Destination: dest.CurrencyCode}
		}
		if !allowNegative && source.CurrentBalance.Sub(req.Amount).IsNegative() {
			return &core.InsufficientBalanceError{
				Balance:  source.CurrentBalance,
				Required: req.Amount,
			}
		}

		category, err := st.Categories.FindByType(ctx, req.OwnerID, core.TypeTransfer)
		if err != nil {
			return err
		}

		outDesc := req.Description
		inDesc := req.Description
		if outDesc == "" {
			outDesc = fmt.Sprintf("Transfer to %s", dest.Name)
			inDesc = fmt.Sprintf("Transfer from %s", source.Name)
		}

		leg := core.Transaction{
			OwnerID:         req.OwnerID,
			CategoryID:      category.ID,
			Type:            core.TypeTransfer,
			Amount:          req.Amount,
			CurrencyCode:    source.CurrencyCode,
			Date:            date,
			Status:          core.StatusCleared,
			ReferenceNumber: reference,
		}
		out := leg
		out.AccountID = source.ID
		out.Description = outDesc
		in := leg
		in.AccountID = dest.ID
		in.Description = inDesc

		outSaved, inSaved, err := st.Transactions.CreateTransferPair(ctx, out, in)
		if err != nil {
			return err
		}

		sourceAfter, err := ApplyDelta(ctx, st, req.OwnerID, source.ID, req.Amount.Neg())
		if err != nil {
			return err
		}
		destAfter, err := ApplyDelta(ctx, st, req.OwnerID, dest.ID, req.Amount)
		if err != nil {
			return err
		}

		result = TransferResult{
			OutLeg:            outSaved,
			InLeg:             inSaved,
			ReferenceNumber:   reference,
			SourceBefore:      source.CurrentBalance,
			SourceAfter:       sourceAfter.CurrentBalance,
			DestinationBefore: dest.CurrentBalance,
			DestinationAfter:  destAfter.CurrentBalance,
		}
		return nil
	})
	if err != nil {
		return TransferResult{}, err
	}

	slog.InfoContext(ctx, "Transfer completed",
		"out_leg_id", result.OutLeg.ID,
		"in_leg_id", result.InLeg.ID,
		"amount", req.Amount.String(),
		"reference", reference,
		"source_balance", result.SourceAfter.String(),
		"destination_balance", result.DestinationAfter.String())

	s.publish(ctx, EventTransferCompleted, req.OwnerID, result.OutLeg.ID, result.OutLeg.Description)

	return result, nil
}

// publish emits an event without failing the request. The write already
// committed; a lost event costs an audit row, not a balance.
func (s *TransactionService) publish(ctx context.Context, eventType string, ownerID, entityID int64, detail string) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishEvent(ctx, eventType, ownerID, entityID, detail); err != nil {
		slog.ErrorContext(ctx, "Failed to publish event",
			"event_type", eventType,
			"entity_id", entityID,
			"error", err)
	}
}
